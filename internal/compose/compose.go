// Package compose turns a resolved directory record plus the requester's
// details into a channel-specific submission payload. EMAIL resolutions
// become a ready-to-send request letter. PORTAL resolutions become an
// ordered field manifest handed to the external form-automation agent,
// which is the only component that ever drives the portal itself.
package compose

import (
	"fmt"
	"strings"

	"foiadir/internal/config"
	"foiadir/internal/directory"
)

// Statutory citation embedded in every request letter.
const statute = "Freedom of Information Act, 5 U.S.C. § 552"

// Requester identifies the person filing the request.
type Requester struct {
	Name          string `json:"name"`
	Email         string `json:"email,omitempty"`
	Phone         string `json:"phone,omitempty"`
	PostalAddress string `json:"postal_address,omitempty"`
}

// Request carries the substance of a records request. Zero-valued fee
// fields fall back to the configured defaults at Build time.
type Request struct {
	Body                string    `json:"body"`
	Requester           Requester `json:"requester"`
	FeeCategory         string    `json:"fee_category,omitempty"`
	FeeLimitUSD         int       `json:"fee_limit_usd,omitempty"`
	WaiverRequested     bool      `json:"waiver_requested,omitempty"`
	WaiverJustification string    `json:"waiver_justification,omitempty"`
}

// EmailPayload is a complete request letter for the mail dispatcher.
type EmailPayload struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Field is a single portal form entry. Order matters: the automation
// agent fills fields top to bottom, matching the form's reveal sequence.
type Field struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// PortalManifest tells the form-automation agent what must be filled.
// ExtendedFieldSet marks units whose portal form demands the non-standard
// jurisdiction, subject-type and attestation fields behind dependent
// reveals; the extra fields are appended to the manifest when set.
type PortalManifest struct {
	UnitID           string  `json:"unit_id,omitempty"`
	Website          string  `json:"website,omitempty"`
	Fields           []Field `json:"fields"`
	ExtendedFieldSet bool    `json:"extended_field_set"`
}

// Payload tags the channel and carries exactly one of the two payloads.
type Payload struct {
	Channel directory.Channel `json:"channel"`
	Email   *EmailPayload     `json:"email,omitempty"`
	Portal  *PortalManifest   `json:"portal,omitempty"`
}

var feeCategoryLabels = map[string]string{
	"commercial":  "Commercial use",
	"educational": "Educational institution",
	"scientific":  "Non-commercial scientific institution",
	"media":       "Representative of the news media",
	"other":       "All other requesters",
}

// FeeCategoryLabel maps a fee-category key to the label agencies expect.
// Unknown keys fall back to the catch-all category.
func FeeCategoryLabel(category string) string {
	if label, ok := feeCategoryLabels[strings.ToLower(strings.TrimSpace(category))]; ok {
		return label
	}
	return feeCategoryLabels["other"]
}

// Composer builds submission payloads. Safe for concurrent use.
type Composer struct {
	defaults      config.RequesterConfig
	feeCategory   string
	feeLimitUSD   int
	extendedUnits map[string]bool
}

// New builds a Composer from the compose, portal and requester config
// sections.
func New(cfg config.ComposeConfig, portal config.PortalConfig, requester config.RequesterConfig) *Composer {
	extended := make(map[string]bool, len(portal.ExtendedUnits))
	for _, id := range portal.ExtendedUnits {
		if id = strings.TrimSpace(id); id != "" {
			extended[id] = true
		}
	}
	return &Composer{
		defaults:      requester,
		feeCategory:   cfg.DefaultFeeCategory,
		feeLimitUSD:   cfg.DefaultFeeLimitUSD,
		extendedUnits: extended,
	}
}

// Build composes the payload for a resolution. It validates the request,
// applies configured defaults, and dispatches on the channel.
func (c *Composer) Build(res directory.Resolution, req Request) (Payload, error) {
	req = c.withDefaults(req)
	if strings.TrimSpace(req.Body) == "" {
		return Payload{}, fmt.Errorf("request body is required")
	}
	if strings.TrimSpace(req.Requester.Name) == "" {
		return Payload{}, fmt.Errorf("requester name is required")
	}

	switch res.Channel {
	case directory.ChannelEmail:
		if res.Record == nil {
			return Payload{}, fmt.Errorf("email resolution carries no record")
		}
		to := res.Email
		if to == "" {
			to = res.Record.Email()
		}
		if to == "" {
			return Payload{}, fmt.Errorf("email resolution carries no address")
		}
		payload := c.Email(res.Record, req)
		payload.To = to
		return Payload{Channel: directory.ChannelEmail, Email: &payload}, nil
	case directory.ChannelPortal:
		manifest := c.Portal(res.Record, req)
		return Payload{Channel: directory.ChannelPortal, Portal: &manifest}, nil
	default:
		return Payload{}, fmt.Errorf("unknown channel %q", res.Channel)
	}
}

// Email renders the request letter for a unit with a usable address.
func (c *Composer) Email(rec *directory.Record, req Request) EmailPayload {
	var b strings.Builder

	if rec != nil && rec.Name != "" {
		fmt.Fprintf(&b, "To the FOIA Officer, %s:\n\n", rec.Name)
	} else {
		b.WriteString("To the FOIA Officer:\n\n")
	}

	fmt.Fprintf(&b, "This is a request under the %s.\n\n", statute)
	b.WriteString("I request copies of the following records:\n\n")
	b.WriteString(strings.TrimSpace(req.Body))
	b.WriteString("\n\n")

	fmt.Fprintf(&b, "Fee category: %s.\n", FeeCategoryLabel(req.FeeCategory))
	fmt.Fprintf(&b, "I agree to pay applicable fees up to $%d. Please contact me before incurring charges beyond that amount.\n\n", req.FeeLimitUSD)

	// The waiver block is omitted outright when no waiver was requested.
	if req.WaiverRequested {
		b.WriteString("I request a waiver of all fees for this request.")
		if j := strings.TrimSpace(req.WaiverJustification); j != "" {
			b.WriteString(" ")
			b.WriteString(j)
		}
		b.WriteString("\n\n")
	}

	b.WriteString("If any portion of this request is denied, please cite the specific exemption claimed and describe the appeal procedures available to me.\n\n")

	b.WriteString("Sincerely,\n")
	b.WriteString(req.Requester.Name)
	b.WriteString("\n")
	for _, line := range []string{req.Requester.PostalAddress, req.Requester.Email, req.Requester.Phone} {
		if line != "" {
			b.WriteString(line)
			b.WriteString("\n")
		}
	}

	subject := "Freedom of Information Act Request"
	if rec != nil && rec.Abbreviation != "" {
		subject = fmt.Sprintf("%s (%s)", subject, rec.Abbreviation)
	}

	return EmailPayload{
		To:      recEmail(rec),
		Subject: subject,
		Body:    b.String(),
	}
}

// Portal renders the ordered field manifest. A nil record still yields a
// usable manifest; the agent is pointed at the general portal instead of
// a unit-specific form.
func (c *Composer) Portal(rec *directory.Record, req Request) PortalManifest {
	fields := []Field{
		{Name: "Requester name", Value: req.Requester.Name},
		{Name: "Requester email", Value: req.Requester.Email},
		{Name: "Requester phone", Value: req.Requester.Phone},
		{Name: "Mailing address", Value: req.Requester.PostalAddress},
		{Name: "Description of records", Value: strings.TrimSpace(req.Body)},
		{Name: "Fee category", Value: FeeCategoryLabel(req.FeeCategory)},
		{Name: "Fee ceiling", Value: fmt.Sprintf("$%d", req.FeeLimitUSD)},
	}
	if req.WaiverRequested {
		fields = append(fields,
			Field{Name: "Fee waiver requested", Value: "Yes"},
			Field{Name: "Fee waiver justification", Value: strings.TrimSpace(req.WaiverJustification)},
		)
	} else {
		fields = append(fields, Field{Name: "Fee waiver requested", Value: "No"})
	}

	manifest := PortalManifest{Fields: fields}
	if rec != nil {
		manifest.UnitID = rec.UnitID
		manifest.Website = rec.Website
		manifest.ExtendedFieldSet = c.extendedUnits[rec.UnitID]
	}
	if manifest.ExtendedFieldSet {
		manifest.Fields = append(manifest.Fields,
			Field{Name: "Request jurisdiction", Value: "Federal"},
			Field{Name: "Record subject type", Value: "General agency records"},
			Field{Name: "Perjury attestation", Value: "I declare under penalty of perjury that the foregoing is true and correct."},
		)
	}
	return manifest
}

func (c *Composer) withDefaults(req Request) Request {
	if req.Requester.Name == "" {
		req.Requester.Name = c.defaults.Name
	}
	if req.Requester.Email == "" {
		req.Requester.Email = c.defaults.Email
	}
	if req.Requester.Phone == "" {
		req.Requester.Phone = c.defaults.Phone
	}
	if req.Requester.PostalAddress == "" {
		req.Requester.PostalAddress = c.defaults.PostalAddress
	}
	if req.FeeCategory == "" {
		req.FeeCategory = c.feeCategory
	}
	if req.FeeLimitUSD <= 0 {
		req.FeeLimitUSD = c.feeLimitUSD
	}
	return req
}

func recEmail(rec *directory.Record) string {
	if rec == nil {
		return ""
	}
	return rec.Email()
}

// Package registry fetches the agency-component catalog from the FOIA.gov
// registry API.
package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"foiadir/internal/config"
	"foiadir/internal/metrics"
)

// Component is one agency component from the registry, flattened from the
// JSON:API payload with its parent agency resolved via the included side
// table. Components are transient: re-fetched on every pipeline run, never
// persisted.
type Component struct {
	ID                 string
	Title              string
	Abbreviation       string
	AgencyID           string
	AgencyName         string
	AgencyAbbreviation string
	Emails             []string
	Website            string
	Phone              string
	PostalAddress      string
}

// Client pages through the registry API with offset cursors.
type Client struct {
	baseURL   string
	apiKey    string
	userAgent string
	pageSize  int
	maxPages  int
	http      *http.Client
	limiter   *rate.Limiter
	metrics   *metrics.Metrics
	log       *zap.Logger
}

// NewClient builds a registry client from config. metrics may be nil.
func NewClient(cfg *config.Config, m *metrics.Metrics, log *zap.Logger) *Client {
	limit := rate.Limit(cfg.Registry.RateLimit)
	if cfg.Registry.RateLimit <= 0 {
		limit = rate.Inf
	}
	burst := cfg.Registry.Burst
	if burst < 1 {
		burst = 1
	}

	return &Client{
		baseURL:   strings.TrimRight(cfg.Registry.BaseURL, "/"),
		apiKey:    cfg.Registry.APIKey,
		userAgent: cfg.Registry.UserAgent,
		pageSize:  cfg.Registry.PageSize,
		maxPages:  cfg.Registry.MaxPages,
		http:      &http.Client{Timeout: cfg.GetRegistryTimeout()},
		limiter:   rate.NewLimiter(limit, burst),
		metrics:   m,
		log:       log,
	}
}

// FetchComponents enumerates the full component catalog.
//
// Enumeration degrades instead of failing: on a non-success response or a
// transport error the pages already retrieved are returned and the failure
// is logged. A page shorter than the requested size is the last page. The
// max-page ceiling guards against pathological upstream paging.
func (c *Client) FetchComponents(ctx context.Context) []Component {
	var all []Component
	offset := 0

	for page := 0; ; page++ {
		if page >= c.maxPages {
			c.log.Warn("registry page ceiling reached",
				zap.Int("max_pages", c.maxPages),
				zap.Int("components", len(all)))
			break
		}

		batch, err := c.fetchPage(ctx, offset)
		if err != nil {
			c.log.Warn("registry enumeration stopped early",
				zap.Int("page", page),
				zap.Int("components", len(all)),
				zap.Error(err))
			return all
		}

		all = append(all, batch...)
		c.metrics.AddPagesFetched(1)
		if len(batch) < c.pageSize {
			break
		}
		offset += c.pageSize
	}

	c.log.Debug("registry enumeration complete", zap.Int("components", len(all)))
	return all
}

// fetchPage retrieves one page of components starting at offset.
func (c *Client) fetchPage(ctx context.Context, offset int) ([]Component, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("include", "agency")
	q.Set("fields[agency]", "name,abbreviation")
	q.Set("page[limit]", strconv.Itoa(c.pageSize))
	q.Set("page[offset]", strconv.Itoa(offset))

	endpoint := c.baseURL + "/agency_components?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, "GET", endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/vnd.api+json")
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, err
	}

	var doc document
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("decode page at offset %d: %w", offset, err)
	}

	return flatten(doc), nil
}

// flatten maps one JSON:API document to components, resolving each parent
// agency reference against the page's included side table.
func flatten(doc document) []Component {
	agencies := make(map[string]resource, len(doc.Included))
	for _, inc := range doc.Included {
		if inc.Type == "agency" {
			agencies[inc.ID] = inc
		}
	}

	out := make([]Component, 0, len(doc.Data))
	for _, res := range doc.Data {
		comp := Component{
			ID:            res.ID,
			Title:         res.Attributes.Title,
			Abbreviation:  res.Attributes.Abbreviation,
			AgencyID:      res.Relationships.Agency.Data.ID,
			Emails:        res.Attributes.Emails,
			Website:       res.Attributes.Website.URI,
			Phone:         res.Attributes.Telephone,
			PostalAddress: res.Attributes.Address.format(),
		}
		if parent, ok := agencies[comp.AgencyID]; ok {
			comp.AgencyName = parent.Attributes.Name
			comp.AgencyAbbreviation = parent.Attributes.Abbreviation
		}
		out = append(out, comp)
	}
	return out
}

// JSON:API wire types.

type document struct {
	Data     []resource `json:"data"`
	Included []resource `json:"included"`
}

type resource struct {
	ID            string        `json:"id"`
	Type          string        `json:"type"`
	Attributes    attributes    `json:"attributes"`
	Relationships relationships `json:"relationships"`
}

type attributes struct {
	Title        string   `json:"title"` // components
	Name         string   `json:"name"`  // parent agencies
	Abbreviation string   `json:"abbreviation"`
	Emails       []string `json:"emails"`
	Telephone    string   `json:"telephone"`
	Website      struct {
		URI string `json:"uri"`
	} `json:"website"`
	Address address `json:"address"`
}

type relationships struct {
	Agency struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	} `json:"agency"`
}

type address struct {
	AddressLine1       string `json:"address_line1"`
	AddressLine2       string `json:"address_line2"`
	Locality           string `json:"locality"`
	AdministrativeArea string `json:"administrative_area"`
	PostalCode         string `json:"postal_code"`
}

func (a address) format() string {
	var parts []string
	if a.AddressLine1 != "" {
		parts = append(parts, a.AddressLine1)
	}
	if a.AddressLine2 != "" {
		parts = append(parts, a.AddressLine2)
	}
	locality := a.Locality
	if a.AdministrativeArea != "" {
		if locality != "" {
			locality += ", "
		}
		locality += a.AdministrativeArea
	}
	if a.PostalCode != "" {
		if locality != "" {
			locality += " "
		}
		locality += a.PostalCode
	}
	if locality != "" {
		parts = append(parts, locality)
	}
	return strings.Join(parts, ", ")
}

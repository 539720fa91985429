// Package extract derives unit contact details from captured agency pages.
// Every function here is pure: no browser, no network, no clock.
package extract

import (
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

// SharedIntakeAddress is the government-wide generic FOIA intake mailbox.
// It is published on dozens of unit pages and never identifies a specific
// unit, so every heuristic here skips it.
const SharedIntakeAddress = "National.FOIAPortal@usdoj.gov"

// Contact is the outcome of extraction over one unit page. An empty field
// means "unknown"; extraction never returns an error.
type Contact struct {
	Name    string // first top-level heading, trimmed
	Email   string // unit-specific submission address
	Officer string // best-effort FOIA officer name
	Phone   string // best-effort phone number
	Address string // best-effort postal address
}

var (
	emailPattern   = regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`)
	phonePattern   = regexp.MustCompile(`\(?\d{3}\)?[-.\s]?\d{3}[-.\s]\d{4}`)
	officerPattern = regexp.MustCompile(`FOIA\s+(?:Officer|Public Liaison|Contact)\s*:?\s+([A-Z][\w.'-]*(?:\s+[A-Z][\w.'-]*){1,3}?)`)
	addressPattern = regexp.MustCompile(`\d+ [A-Z][\w .,'#/-]*,\s*[A-Z]{2}\s+\d{5}(?:-\d{4})?`)
)

// IsSharedIntake reports whether addr is the shared generic intake mailbox.
func IsSharedIntake(addr string) bool {
	return strings.EqualFold(strings.TrimSpace(addr), SharedIntakeAddress)
}

// SelectEmail picks the best submission address for a unit page.
//
// Priority: the first mailto target that is not the shared intake address;
// failing that, email-shaped tokens in the rendered text restricted to
// government domains (.gov, .mil, .us), preferring one containing "foia" or
// "request", else the first in document order. An empty result means no
// usable address was found; that is an answer, not an error.
func SelectEmail(text string, mailtos []string) string {
	for _, raw := range mailtos {
		addr := normalizeMailto(raw)
		if addr == "" || IsSharedIntake(addr) {
			continue
		}
		return addr
	}

	var kept []string
	for _, c := range emailPattern.FindAllString(text, -1) {
		if IsSharedIntake(c) || !governmentAddress(c) {
			continue
		}
		kept = append(kept, c)
	}

	for _, c := range kept {
		lower := strings.ToLower(c)
		if strings.Contains(lower, "foia") || strings.Contains(lower, "request") {
			return c
		}
	}
	if len(kept) > 0 {
		return kept[0]
	}
	return ""
}

// Page runs all heuristics against one captured HTML document.
func Page(markup string) Contact {
	doc, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		return Contact{}
	}

	text := renderedText(doc)

	return Contact{
		Name:    firstHeading(doc),
		Email:   SelectEmail(text, mailtoTargets(doc)),
		Officer: findOfficer(text),
		Phone:   findPhone(text),
		Address: findAddress(text),
	}
}

// normalizeMailto strips the scheme, query parameters, and URL escaping
// from a mailto href, leaving the bare address.
func normalizeMailto(href string) string {
	addr := strings.TrimSpace(href)
	if len(addr) >= 7 && strings.EqualFold(addr[:7], "mailto:") {
		addr = addr[7:]
	}
	if i := strings.IndexAny(addr, "?&"); i >= 0 {
		addr = addr[:i]
	}
	if unescaped, err := url.QueryUnescape(addr); err == nil {
		addr = unescaped
	}
	return strings.TrimSpace(addr)
}

// governmentAddress reports whether the address's domain is a U.S.
// government one. Anything else on an agency page is boilerplate
// (newsletter vendors, social links) rather than an intake address.
func governmentAddress(addr string) bool {
	at := strings.LastIndex(addr, "@")
	if at < 0 {
		return false
	}
	host := strings.ToLower(addr[at+1:])
	return strings.HasSuffix(host, ".gov") ||
		strings.HasSuffix(host, ".mil") ||
		strings.HasSuffix(host, ".us")
}

// firstHeading returns the text of the first h1 in document order.
func firstHeading(doc *html.Node) string {
	var found string
	var traverse func(*html.Node) bool
	traverse = func(n *html.Node) bool {
		if n.Type == html.ElementNode && n.Data == "h1" {
			found = textContent(n)
			return true
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if traverse(c) {
				return true
			}
		}
		return false
	}
	traverse(doc)
	return found
}

// mailtoTargets collects mailto hrefs in document order.
func mailtoTargets(doc *html.Node) []string {
	var hrefs []string
	var traverse func(*html.Node)
	traverse = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			for _, attr := range n.Attr {
				if attr.Key == "href" && len(attr.Val) >= 7 && strings.EqualFold(attr.Val[:7], "mailto:") {
					hrefs = append(hrefs, attr.Val)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			traverse(c)
		}
	}
	traverse(doc)
	return hrefs
}

// renderedText flattens the document's visible text nodes.
func renderedText(doc *html.Node) string {
	var sb strings.Builder
	var traverse func(*html.Node)
	traverse = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript":
				return
			}
		}
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
			sb.WriteString(" ")
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			traverse(c)
		}
	}
	traverse(doc)
	return strings.TrimSpace(sb.String())
}

// textContent extracts a node's text with whitespace collapsed.
func textContent(n *html.Node) string {
	var sb strings.Builder
	var traverse func(*html.Node)
	traverse = func(node *html.Node) {
		if node.Type == html.TextNode {
			sb.WriteString(node.Data)
			sb.WriteString(" ")
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			traverse(c)
		}
	}
	traverse(n)
	return strings.Join(strings.Fields(sb.String()), " ")
}

func findOfficer(text string) string {
	m := officerPattern.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return m[1]
}

func findPhone(text string) string {
	return phonePattern.FindString(text)
}

func findAddress(text string) string {
	return strings.TrimSpace(addressPattern.FindString(text))
}

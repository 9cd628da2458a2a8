// Package listing fetches and parses the internship listing document: a
// markdown README holding one table row per posting. The table sits between a
// fixed header-separator row and a fixed end marker; anything outside those
// anchors is ignored.
package listing

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/ryanDing26/career-gpt/engine/domain"
)

// DefaultURL is the upstream listing document.
const DefaultURL = "https://raw.githubusercontent.com/SimplifyJobs/Summer2025-Internships/dev/README.md"

// Client fetches the listing document over plain HTTP.
type Client struct {
	url    string
	client *http.Client
}

// NewClient creates a listing fetcher for the given URL (DefaultURL if empty).
func NewClient(url string, hc *http.Client) *Client {
	if url == "" {
		url = DefaultURL
	}
	if hc == nil {
		hc = &http.Client{}
	}
	return &Client{url: url, client: hc}
}

// URL returns the configured document URL.
func (c *Client) URL() string { return c.url }

// Fetch retrieves the raw markdown text. A non-2xx status or a network
// failure is a transport-kind error (timeouts classify separately).
func (c *Client) Fetch(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return "", domain.E(domain.KindTransport, "listing.fetch", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", domain.Classify("listing.fetch", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", domain.Ef(domain.KindTransport, "listing.fetch", "status %d from %s", resp.StatusCode, c.url)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", domain.Classify("listing.fetch", err)
	}
	return string(body), nil
}

// Sentence renders a posting as the factual sentence stored in the index.
func Sentence(p domain.Posting) string {
	return fmt.Sprintf("%s offered an internship titled '%s' in %s on %s",
		p.Company, p.Title, p.Location, p.PostedDate)
}

// Sentences renders all postings in order.
func Sentences(postings []domain.Posting) []string {
	out := make([]string, len(postings))
	for i, p := range postings {
		out[i] = Sentence(p)
	}
	return out
}

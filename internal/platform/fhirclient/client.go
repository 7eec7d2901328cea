// Package fhirclient fetches resources from a remote FHIR server for quality
// assessment. It implements the fetch contract the assessment engine depends
// on: a search per resource type, transparent pagination over Bundle pages,
// and a scoped FetchError so callers can tell transport failures apart from
// legitimately empty result sets.
package fhirclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/fhirspective/fhirspective/internal/platform/fhir"
)

// Auth types supported for outbound FHIR requests.
const (
	AuthNone   = "none"
	AuthBasic  = "basic"
	AuthBearer = "bearer"
)

// ServerConfig identifies the FHIR server an assessment runs against.
type ServerConfig struct {
	BaseURL  string `json:"baseUrl"`
	AuthType string `json:"authType,omitempty"`
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`
	Token    string `json:"token,omitempty"`
}

// Validate checks that the server configuration is usable.
func (sc *ServerConfig) Validate() error {
	if sc.BaseURL == "" {
		return fmt.Errorf("server baseUrl is required")
	}
	u, err := url.Parse(sc.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("server baseUrl %q is not a valid absolute URL", sc.BaseURL)
	}
	switch sc.AuthType {
	case "", AuthNone:
	case AuthBasic:
		if sc.Username == "" {
			return fmt.Errorf("basic auth requires a username")
		}
	case AuthBearer:
		if sc.Token == "" {
			return fmt.Errorf("bearer auth requires a token")
		}
	default:
		return fmt.Errorf("unknown auth type %q", sc.AuthType)
	}
	return nil
}

// FetchError is a resource-type-scoped fetch failure. Zero results is not a
// FetchError: an empty Bundle is a valid outcome.
type FetchError struct {
	ResourceType string
	StatusCode   int
	Err          error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: server returned %d: %v", e.ResourceType, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch %s: %v", e.ResourceType, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// bundle is the slice of a FHIR Bundle the fetcher needs.
type bundle struct {
	ResourceType string `json:"resourceType"`
	Total        *int   `json:"total,omitempty"`
	Link         []struct {
		Relation string `json:"relation"`
		URL      string `json:"url"`
	} `json:"link,omitempty"`
	Entry []struct {
		Resource json.RawMessage `json:"resource"`
	} `json:"entry,omitempty"`
}

// Client fetches resources from FHIR servers over HTTP.
type Client struct {
	http     *http.Client
	pageSize int
}

// maxResponseBytes caps a single search-page body read.
const maxResponseBytes = 32 << 20

// New creates a Client. timeout bounds every individual page request; the
// engine treats a timeout like any other scoped fetch failure.
func New(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		http:     &http.Client{Timeout: timeout},
		pageSize: 50,
	}
}

// FetchResources searches the server for resources of the given type,
// following Bundle next links until limit resources are collected or pages
// run out. limit <= 0 means fetch everything the server returns.
func (c *Client) FetchResources(ctx context.Context, server ServerConfig, resourceType string, limit int) ([]fhir.Resource, error) {
	if err := server.Validate(); err != nil {
		return nil, &FetchError{ResourceType: resourceType, Err: err}
	}

	count := c.pageSize
	if limit > 0 && limit < count {
		count = limit
	}
	next := fmt.Sprintf("%s/%s?_count=%d",
		strings.TrimRight(server.BaseURL, "/"), resourceType, count)

	var resources []fhir.Resource
	for next != "" {
		page, err := c.fetchPage(ctx, server, resourceType, next)
		if err != nil {
			return nil, err
		}

		for _, entry := range page.Entry {
			var r fhir.Resource
			if err := json.Unmarshal(entry.Resource, &r); err != nil {
				// A single undecodable entry should not sink the page.
				continue
			}
			resources = append(resources, r)
			if limit > 0 && len(resources) >= limit {
				return resources, nil
			}
		}

		next = nextLink(page)
	}

	return resources, nil
}

// fetchPage performs one search-page request and decodes the Bundle.
func (c *Client) fetchPage(ctx context.Context, server ServerConfig, resourceType, pageURL string) (*bundle, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, &FetchError{ResourceType: resourceType, Err: err}
	}
	req.Header.Set("Accept", "application/fhir+json")
	applyAuth(req, server)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &FetchError{ResourceType: resourceType, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &FetchError{ResourceType: resourceType, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &FetchError{
			ResourceType: resourceType,
			StatusCode:   resp.StatusCode,
			Err:          fmt.Errorf("search failed: %s", strconv.Quote(truncate(string(body), 200))),
		}
	}

	var page bundle
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, &FetchError{ResourceType: resourceType, Err: fmt.Errorf("decode bundle: %w", err)}
	}
	if page.ResourceType != "Bundle" {
		return nil, &FetchError{
			ResourceType: resourceType,
			Err:          fmt.Errorf("expected a Bundle, got %q", page.ResourceType),
		}
	}

	return &page, nil
}

// applyAuth sets the Authorization header per the server's auth type.
func applyAuth(req *http.Request, server ServerConfig) {
	switch server.AuthType {
	case AuthBasic:
		req.SetBasicAuth(server.Username, server.Password)
	case AuthBearer:
		req.Header.Set("Authorization", "Bearer "+server.Token)
	}
}

// nextLink returns the Bundle's next-page URL, or "" on the last page.
func nextLink(page *bundle) string {
	for _, link := range page.Link {
		if link.Relation == "next" {
			return link.URL
		}
	}
	return ""
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

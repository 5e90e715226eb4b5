// Package restcountries reads flag URLs and country facts from the
// REST Countries API. Responses are treated as best effort: entries with
// missing fields are skipped or left empty, never fatal.
package restcountries

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/five82/passport/internal/visits"
)

// DefaultBaseURL is the public v3.1 endpoint.
const DefaultBaseURL = "https://restcountries.com/v3.1"

// RawFetcher is satisfied by *fetch.Client.
type RawFetcher interface {
	FetchRaw(ctx context.Context, url string) ([]byte, error)
}

// Meta holds the facts shown alongside a country.
type Meta struct {
	Capital    string  `json:"capital,omitempty"`
	Population int64   `json:"population,omitempty"`
	Area       float64 `json:"area,omitempty"`
}

// Client builds endpoint URLs and parses the responses.
type Client struct {
	baseURL *url.URL
	fetcher RawFetcher
}

// NewClient validates baseURL and binds it to fetcher.
func NewClient(baseURL string, fetcher RawFetcher) (*Client, error) {
	if fetcher == nil {
		return nil, fmt.Errorf("fetcher is nil")
	}
	base, err := parseBaseURL(baseURL)
	if err != nil {
		return nil, err
	}
	return &Client{baseURL: base, fetcher: fetcher}, nil
}

// ResolveFlagURLs looks up the SVG flag URL for each code in one request.
// Codes the API does not know are simply absent from the result.
func (c *Client) ResolveFlagURLs(ctx context.Context, codes []visits.Code) (map[visits.Code]string, error) {
	if len(codes) == 0 {
		return map[visits.Code]string{}, nil
	}
	joined := make([]string, len(codes))
	for i, code := range codes {
		joined[i] = string(code)
	}
	endpoint := c.endpoint("alpha", url.Values{
		"codes":  {strings.Join(joined, ",")},
		"fields": {"cca2,flags"},
	})

	body, err := c.fetcher.FetchRaw(ctx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("resolve flags: %w", err)
	}

	out := make(map[visits.Code]string, len(codes))
	eachEntry(gjson.ParseBytes(body), func(entry gjson.Result) {
		code, err := visits.ParseCode(entry.Get("cca2").String())
		if err != nil {
			return
		}
		if svg := strings.TrimSpace(entry.Get("flags.svg").String()); svg != "" {
			out[code] = svg
		}
	})
	return out, nil
}

// FetchAllMeta returns capital, population and area for every country.
func (c *Client) FetchAllMeta(ctx context.Context) (map[visits.Code]Meta, error) {
	endpoint := c.endpoint("all", url.Values{"fields": {"cca2,capital,population,area"}})

	body, err := c.fetcher.FetchRaw(ctx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("fetch country facts: %w", err)
	}

	out := make(map[visits.Code]Meta)
	eachEntry(gjson.ParseBytes(body), func(entry gjson.Result) {
		code, err := visits.ParseCode(entry.Get("cca2").String())
		if err != nil {
			return
		}
		out[code] = Meta{
			Capital:    strings.TrimSpace(entry.Get("capital.0").String()),
			Population: entry.Get("population").Int(),
			Area:       entry.Get("area").Float(),
		}
	})
	return out, nil
}

func (c *Client) endpoint(path string, query url.Values) string {
	u := c.baseURL.JoinPath(path)
	u.RawQuery = query.Encode()
	return u.String()
}

// eachEntry visits array elements, or the value itself when the API answers
// a single-code lookup with a bare object.
func eachEntry(result gjson.Result, fn func(gjson.Result)) {
	switch {
	case result.IsArray():
		result.ForEach(func(_, entry gjson.Result) bool {
			if entry.IsObject() {
				fn(entry)
			}
			return true
		})
	case result.IsObject():
		fn(result)
	}
}

func parseBaseURL(raw string) (*url.URL, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		trimmed = DefaultBaseURL
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "https://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse api base %q: %w", raw, err)
	}
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}

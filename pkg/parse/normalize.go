package parse

import (
	"fmt"
	"net/url"
	"strings"
)

// ResolveLink turns an href scraped from a listing page into an absolute URL.
// Relative hrefs (including phpBB's "./viewtopic.php?..." form) resolve against the forum root;
// fragments are dropped. An empty href or an unsupported scheme is an error.
func ResolveLink(base *url.URL, href string) (string, error) {
	href = strings.TrimSpace(href)
	if href == "" {
		return "", fmt.Errorf("empty href")
	}
	if base == nil {
		return "", fmt.Errorf("no base URL to resolve '%s' against", href)
	}
	ref, err := url.Parse(href)
	if err != nil {
		return "", fmt.Errorf("parsing href '%s': %w", href, err)
	}

	root := *base
	root.Path = "/"
	root.RawPath = ""
	root.RawQuery = ""
	root.Fragment = ""

	resolved := root.ResolveReference(ref)
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return "", fmt.Errorf("unsupported scheme in '%s'", href)
	}
	resolved.Fragment = ""
	return resolved.String(), nil
}

// ParseBaseURL parses an absolute http(s) base URL, rejecting relative ones.
func ParseBaseURL(raw string) (*url.URL, error) {
	u, err := url.ParseRequestURI(raw) // Stricter parsing
	if err != nil {
		return nil, err
	}
	if u.Host == "" {
		return nil, fmt.Errorf("base URL '%s' has no host", raw)
	}
	return u, nil
}

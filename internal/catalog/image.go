package catalog

import (
	"net/url"
	"strconv"
	"strings"
	"time"
)

// CacheBustParam is the query parameter appended to image URLs so browsers
// and CDNs re-fetch after a refresh.
const CacheBustParam = "t"

// ImagePolicy controls how image URLs are normalized when items are loaded
// from the remote store.
type ImagePolicy struct {
	// Placeholder replaces an empty image URL.
	Placeholder string
	// OpaqueHosts lists host suffixes whose URLs are versioned by the host
	// itself and must be left byte-for-byte intact.
	OpaqueHosts []string
}

// IsOpaque reports whether raw points at one of the opaque hosts.
func (p ImagePolicy) IsOpaque(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return false
	}
	host := strings.ToLower(u.Hostname())
	for _, h := range p.OpaqueHosts {
		h = strings.ToLower(strings.TrimPrefix(h, "."))
		if h == "" {
			continue
		}
		if host == h || strings.HasSuffix(host, "."+h) {
			return true
		}
	}
	return false
}

// Normalize returns the URL a reader should see for raw at time now.
// Empty URLs become the placeholder. URLs on opaque hosts are returned
// unchanged. Anything else gets a fresh cache-bust parameter, replacing a
// previous one so repeated loads do not accumulate parameters.
func (p ImagePolicy) Normalize(raw string, now time.Time) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return p.Placeholder
	}
	if p.IsOpaque(raw) {
		return raw
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw
	}
	q := u.Query()
	q.Set(CacheBustParam, strconv.FormatInt(now.UnixMilli(), 10))
	u.RawQuery = q.Encode()
	return u.String()
}

// NormalizeAll applies Normalize to every item's image URL in place.
func (p ImagePolicy) NormalizeAll(items []Item, now time.Time) {
	for i := range items {
		items[i].ImageURL = p.Normalize(items[i].ImageURL, now)
	}
}

package util

import (
	"fmt"
	"net/url"
	"strings"
)

// ResolveURL turns href into an absolute URL using base as the reference.
// Already-absolute hrefs are returned unchanged apart from trimming. The
// result must be an http(s) URL with a host, so javascript: and mailto:
// links are rejected.
func ResolveURL(base, href string) (string, error) {
	href = strings.TrimSpace(href)
	if href == "" {
		return "", fmt.Errorf("empty link")
	}
	ref, err := url.Parse(href)
	if err != nil {
		return "", fmt.Errorf("parse link %q: %w", href, err)
	}
	out := ref.String()
	if !ref.IsAbs() {
		b, err := url.Parse(strings.TrimSpace(base))
		if err != nil || !b.IsAbs() {
			return "", fmt.Errorf("cannot resolve %q against %q", href, base)
		}
		out = b.ResolveReference(ref).String()
	}
	if !IsAbsoluteURL(out) {
		return "", fmt.Errorf("not an http(s) link: %q", href)
	}
	return out, nil
}

// Origin returns scheme://host of raw.
func Origin(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", err
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("missing scheme or host in %q", raw)
	}
	return u.Scheme + "://" + u.Host, nil
}

// IsAbsoluteURL reports whether raw is an http or https URL with a host.
func IsAbsoluteURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return false
	}
	scheme := strings.ToLower(u.Scheme)
	return scheme == "http" || scheme == "https"
}

// StripTracking drops the fragment and click-tracking query parameters
// (utm_*, gclid, ...) so the same posting linked from different emails
// compares equal. Remaining parameters are re-encoded in sorted order.
func StripTracking(raw string) string {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw
	}
	u.Fragment = ""

	q := u.Query()
	for k := range q {
		lk := strings.ToLower(k)
		if strings.HasPrefix(lk, "utm_") ||
			lk == "gclid" || lk == "fbclid" || lk == "msclkid" ||
			lk == "mc_cid" || lk == "mc_eid" ||
			lk == "mkt_tok" || lk == "trk" || lk == "trackingid" || lk == "refid" {
			q.Del(k)
		}
	}
	u.RawQuery = q.Encode()
	return u.String()
}

package email

import (
	"bytes"
	"errors"
	"io"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/emersion/go-message"
	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"

	"jobhunt-aggregator/internal/scrape/util"
)

const maxPartBytes = 6 << 20

var reURL = regexp.MustCompile(`https?://[^\s<>"']+`)

// Link is one anchor (or bare URL) found in an alert email.
type Link struct {
	URL  string
	Text string
}

// bodies returns the subject and the text/plain and text/html parts of a
// raw RFC822 message. Unknown charsets are read as-is.
func bodies(raw []byte) (subject, plain, html string, err error) {
	mr, err := mail.CreateReader(bytes.NewReader(raw))
	if err != nil && !message.IsUnknownCharset(err) {
		return "", "", "", err
	}
	subject, _ = mr.Header.Subject()

	for {
		p, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil && !message.IsUnknownCharset(err) {
			return subject, plain, html, err
		}
		if p == nil {
			continue
		}
		h, ok := p.Header.(*mail.InlineHeader)
		if !ok {
			continue
		}
		ct, _, _ := h.ContentType()
		b, _ := io.ReadAll(io.LimitReader(p.Body, maxPartBytes))
		switch {
		case strings.HasPrefix(ct, "text/html") && len(b) > len(html):
			html = string(b)
		case strings.HasPrefix(ct, "text/plain") && len(b) > len(plain):
			plain = string(b)
		}
	}
	return subject, plain, html, nil
}

// Links extracts anchors from the HTML part, or bare URLs from the plain part
// when there is no HTML.
func Links(plain, html string) []Link {
	var out []Link
	if strings.TrimSpace(html) != "" {
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
		if err == nil {
			doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
				href, _ := a.Attr("href")
				if u := util.StripTracking(unwrapRedirect(href)); u != "" {
					out = append(out, Link{URL: u, Text: util.CleanText(a.Text())})
				}
			})
			return out
		}
	}
	for _, u := range reURL.FindAllString(plain, -1) {
		if u = util.StripTracking(unwrapRedirect(strings.TrimRight(u, ".,);:]\"'"))); u != "" {
			out = append(out, Link{URL: u})
		}
	}
	return out
}

// unwrapRedirect returns the target of click-tracking wrappers (?url=, google
// /url?q=) and drops anything that is not an absolute http(s) URL.
func unwrapRedirect(href string) string {
	u, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return ""
	}
	if raw := u.Query().Get("url"); raw != "" {
		if uu, err := url.Parse(raw); err == nil && uu.Host != "" {
			return uu.String()
		}
	}
	if strings.Contains(strings.ToLower(u.Host), "google.") && strings.HasPrefix(u.Path, "/url") {
		if q := u.Query().Get("q"); q != "" {
			if uu, err := url.Parse(q); err == nil && uu.Host != "" {
				return uu.String()
			}
		}
	}
	if (u.Scheme == "http" || u.Scheme == "https") && u.Host != "" {
		return u.String()
	}
	return ""
}

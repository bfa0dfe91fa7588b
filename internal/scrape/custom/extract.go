package custom

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"jobhunt-aggregator/internal/domain"
	"jobhunt-aggregator/internal/scrape/util"
)

// Extract reads listings out of rendered page HTML using a scrape step's
// selectors. Title and link default to the item element itself; location
// defaults to empty. Several location matches are joined with "; ".
func Extract(html, pageURL string, st Step, company string) ([]domain.Listing, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("%w: parse page html: %v", domain.ErrMarkupMismatch, err)
	}

	var out []domain.Listing
	doc.Find(st.Item).Each(func(_ int, item *goquery.Selection) {
		titleSel := item
		if st.Title != "" {
			titleSel = item.Find(st.Title).First()
		}
		title := util.CleanText(titleSel.Text())
		if title == "" {
			return
		}

		href, ok := linkOf(item, st.Link)
		if !ok {
			return
		}
		link, err := util.ResolveURL(pageURL, href)
		if err != nil {
			return
		}

		out = append(out, domain.Listing{
			Company:  company,
			Title:    title,
			URL:      link,
			Location: locationOf(item, st.Location),
		})
	})
	return out, nil
}

func linkOf(item *goquery.Selection, selector string) (string, bool) {
	if selector != "" {
		href, ok := item.Find(selector).First().Attr("href")
		return strings.TrimSpace(href), ok && strings.TrimSpace(href) != ""
	}
	if href, ok := item.Attr("href"); ok && strings.TrimSpace(href) != "" {
		return strings.TrimSpace(href), true
	}
	href, ok := item.Find("a[href]").First().Attr("href")
	return strings.TrimSpace(href), ok && strings.TrimSpace(href) != ""
}

func locationOf(item *goquery.Selection, selector string) string {
	if selector == "" {
		return ""
	}
	var parts []string
	item.Find(selector).Each(func(_ int, s *goquery.Selection) {
		if t := util.CleanText(s.Text()); t != "" {
			parts = append(parts, t)
		}
	})
	return strings.Join(parts, "; ")
}

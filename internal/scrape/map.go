package scrape

import (
	"jobhunt-aggregator/internal/config"
	"jobhunt-aggregator/internal/domain"
	"jobhunt-aggregator/internal/scrape/custom"
	"jobhunt-aggregator/internal/scrape/email"
)

func mapBoards(in []config.Company) []domain.Board {
	out := make([]domain.Board, 0, len(in))
	for _, c := range in {
		out = append(out, domain.Board{Company: c.Company, Link: c.Link})
	}
	return out
}

func mapWorkdayBoards(in []config.WorkdayBoard) []domain.Board {
	out := make([]domain.Board, 0, len(in))
	for _, b := range in {
		out = append(out, domain.Board{Company: b.Company, Link: b.URL})
	}
	return out
}

func mapAlertBoards(in []config.AlertBoard) []email.AlertBoard {
	out := make([]email.AlertBoard, 0, len(in))
	for _, b := range in {
		out = append(out, email.AlertBoard{Company: b.Company, Match: b.Match})
	}
	return out
}

// mapCustomSites turns each configured site into a flow. Explicit steps win
// over the descriptor fields.
func mapCustomSites(in []config.CustomSite) []custom.Site {
	out := make([]custom.Site, 0, len(in))
	for _, s := range in {
		site := custom.Site{Company: s.CompanyName}
		if len(s.Steps) == 0 {
			site.Flow = custom.Descriptor{
				Company:           s.CompanyName,
				CareersURL:        s.CareersURL,
				ItemSelector:      s.JobItemSelector,
				TitleSelector:     s.JobItemTitleSelector,
				LinkSelector:      s.JobItemLinkSelector,
				LocationSelector:  s.JobItemLocationSelector,
				PrerequisiteClick: s.PrerequisiteClickSelector,
			}.Flow()
		} else {
			for _, st := range s.Steps {
				site.Flow = append(site.Flow, custom.Step{
					Kind:      custom.StepKind(st.Kind),
					URL:       st.URL,
					Selector:  st.Selector,
					Selectors: st.Selectors,
					Optional:  st.Optional,
					Timeout:   st.Timeout,
					Max:       st.Max,
					Settle:    st.Settle,
					Item:      st.Item,
					Title:     st.Title,
					Link:      st.Link,
					Location:  st.Location,
				})
			}
		}
		out = append(out, site)
	}
	return out
}

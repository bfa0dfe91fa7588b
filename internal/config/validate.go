package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/go-playground/validator/v10"

	"jobhunt-aggregator/internal/domain"
)

type Validation struct {
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

func (v *Validation) addErr(format string, args ...any) {
	v.Errors = append(v.Errors, fmt.Sprintf(format, args...))
}
func (v *Validation) addWarn(format string, args ...any) {
	v.Warnings = append(v.Warnings, fmt.Sprintf(format, args...))
}
func (v Validation) OK() bool { return len(v.Errors) == 0 }

// Err folds the errors into one error, or nil.
func (v Validation) Err() error {
	if v.OK() {
		return nil
	}
	return errors.New("config validation failed:\n- " + strings.Join(v.Errors, "\n- "))
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report yaml keys, not Go field names.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})
	return v
}

// NormalizeAndValidate returns a trimmed copy of cfg and what is wrong with it.
func NormalizeAndValidate(cfg Config) (Config, Validation) {
	out := cfg
	var res Validation

	out.Sources.Greenhouse.Companies = trimCompanies("sources.greenhouse", out.Sources.Greenhouse.Companies, &res)
	out.Sources.Lever.Companies = trimCompanies("sources.lever", out.Sources.Lever.Companies, &res)
	out.Sources.SmartRecruiters.Companies = trimCompanies("sources.smartrecruiters", out.Sources.SmartRecruiters.Companies, &res)
	out.Email.SearchSubjectAny = trimList(out.Email.SearchSubjectAny)
	for i := range out.Sources.Workday.Boards {
		b := &out.Sources.Workday.Boards[i]
		b.Company = strings.TrimSpace(b.Company)
		b.URL = strings.TrimSpace(b.URL)
	}

	if err := validate.Struct(out); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			res.addErr("%v", err)
		}
		for _, fe := range verrs {
			res.addErr("%s", describe(fe))
		}
	}

	for i, s := range out.Sources.Custom.Sites {
		if len(s.Steps) > 0 {
			continue
		}
		path := fmt.Sprintf("sources.custom.sites[%d]", i)
		if s.CareersURL == "" {
			res.addErr("%s.careers_url is required when no steps are given", path)
		}
		if s.JobItemSelector == "" {
			res.addErr("%s.job_item_selector is required when no steps are given", path)
		}
		if s.JobItemTitleSelector == "" {
			res.addErr("%s.job_item_title_selector is required when no steps are given", path)
		}
	}

	if out.Email.Enabled {
		if strings.TrimSpace(out.Email.IMAPHost) == "" {
			res.addErr("email.imap_host is required when email.enabled=true")
		}
		if strings.TrimSpace(out.Email.Username) == "" {
			res.addErr("email.username is required when email.enabled=true")
		}
		if len(out.Email.Boards) == 0 {
			res.addWarn("email.boards is empty; alert emails will not produce listings.")
		}
		if len(out.Email.SearchSubjectAny) == 0 {
			res.addWarn("email.search_subject_any is empty; every message in the window is scanned.")
		}
	}

	enabled := 0
	check := func(name string, on bool, boards int) {
		if !on {
			return
		}
		enabled++
		if boards == 0 {
			res.addWarn("sources.%s is enabled but has no boards.", name)
		}
	}
	check("greenhouse", out.Sources.Greenhouse.Enabled, len(out.Sources.Greenhouse.Companies))
	check("lever", out.Sources.Lever.Enabled, len(out.Sources.Lever.Companies))
	check("smartrecruiters", out.Sources.SmartRecruiters.Enabled, len(out.Sources.SmartRecruiters.Companies))
	check("workday", out.Sources.Workday.Enabled, len(out.Sources.Workday.Boards))
	check("custom", out.Sources.Custom.Enabled, len(out.Sources.Custom.Sites))
	if out.Email.Enabled {
		enabled++
	}
	if enabled == 0 {
		res.addWarn("No sources enabled; the report will only contain headers.")
	}

	return out, res
}

// CheckLists trims and dedupes the filter lists and warns about entries that
// contradict each other.
func CheckLists(l Lists) (Lists, []string) {
	out := Lists{
		BlacklistedTitles:    trimList(l.BlacklistedTitles),
		RequiredKeywords:     trimList(l.RequiredKeywords),
		BlacklistedKeywords:  trimList(l.BlacklistedKeywords),
		WhitelistedLocations: trimList(l.WhitelistedLocations),
		BlacklistedLocations: trimList(l.BlacklistedLocations),
		AlreadySeen:          trimList(l.AlreadySeen),
	}

	var warnings []string
	block := mapset.NewThreadUnsafeSet[string]()
	for _, b := range out.BlacklistedLocations {
		block.Add(domain.Fold(b))
	}
	for _, a := range out.WhitelistedLocations {
		if block.Contains(domain.Fold(a)) {
			warnings = append(warnings, fmt.Sprintf("location appears in both whitelist and blacklist: %q (blacklist wins)", a))
		}
	}
	if len(out.RequiredKeywords) > 0 && len(out.BlacklistedKeywords) > 0 {
		warnings = append(warnings, "required keywords are set, so blacklisted keywords are ignored.")
	}
	return out, warnings
}

func describe(fe validator.FieldError) string {
	path := fe.Namespace()
	if i := strings.Index(path, "."); i >= 0 {
		path = path[i+1:]
	}
	switch fe.Tag() {
	case "required":
		return path + " is required"
	case "url":
		return fmt.Sprintf("%s must be an absolute URL, got %q", path, fe.Value())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s], got %q", path, fe.Param(), fe.Value())
	case "gte", "lte":
		return fmt.Sprintf("%s must be %s %s", path, fe.Tag(), fe.Param())
	default:
		return fmt.Sprintf("%s failed %s", path, fe.Tag())
	}
}

func trimList(xs []string) []string {
	seen := mapset.NewThreadUnsafeSet[string]()
	var ys []string
	for _, x := range xs {
		x = strings.TrimSpace(x)
		if x == "" {
			continue
		}
		if !seen.Add(domain.Fold(x)) {
			continue
		}
		ys = append(ys, x)
	}
	return ys
}

func trimCompanies(path string, cs []Company, res *Validation) []Company {
	seen := mapset.NewThreadUnsafeSet[string]()
	out := make([]Company, 0, len(cs))
	for _, c := range cs {
		c.Company = strings.TrimSpace(c.Company)
		c.Link = strings.TrimSpace(c.Link)
		key := domain.Fold(domain.Board{Company: c.Company, Link: c.Link}.Slug())
		if c.Company != "" && !seen.Add(key) {
			res.addWarn("%s: duplicate board %q ignored", path, c.Company)
			continue
		}
		out = append(out, c)
	}
	return out
}

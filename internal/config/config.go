// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Company is a board on a templated platform. Link overrides the slug
// derived from the company name.
type Company struct {
	Company string `yaml:"company" validate:"required"`
	Link    string `yaml:"link,omitempty"`
}

type Platform struct {
	Enabled   bool      `yaml:"enabled"`
	RootURL   string    `yaml:"root_url,omitempty" validate:"omitempty,url"`
	Companies []Company `yaml:"companies" validate:"dive"`
}

type WorkdayBoard struct {
	Company string `yaml:"company" validate:"required"`
	URL     string `yaml:"url" validate:"required,url"`
}

type Workday struct {
	Enabled bool           `yaml:"enabled"`
	Boards  []WorkdayBoard `yaml:"boards" validate:"dive"`
}

// FlowStep is the YAML form of one custom flow step.
type FlowStep struct {
	Kind      string        `yaml:"kind" validate:"required,oneof=navigate wait click expand select click_filter scrape next_page scroll"`
	URL       string        `yaml:"url,omitempty" validate:"omitempty,url"`
	Selector  string        `yaml:"selector,omitempty"`
	Selectors []string      `yaml:"selectors,omitempty"`
	Optional  bool          `yaml:"optional,omitempty"`
	Timeout   time.Duration `yaml:"timeout,omitempty" validate:"gte=0"`
	Max       int           `yaml:"max,omitempty" validate:"gte=0"`
	Settle    time.Duration `yaml:"settle,omitempty" validate:"gte=0"`
	Item      string        `yaml:"item,omitempty"`
	Title     string        `yaml:"title,omitempty"`
	Link      string        `yaml:"link,omitempty"`
	Location  string        `yaml:"location,omitempty"`
}

// CustomSite is either a descriptor (careers_url + selectors) or an explicit
// list of steps. Steps win when both are present.
type CustomSite struct {
	CompanyName               string     `yaml:"company_name" validate:"required"`
	CareersURL                string     `yaml:"careers_url,omitempty" validate:"omitempty,url"`
	JobItemSelector           string     `yaml:"job_item_selector,omitempty"`
	JobItemTitleSelector      string     `yaml:"job_item_title_selector,omitempty"`
	JobItemLinkSelector       string     `yaml:"job_item_link_selector,omitempty"`
	JobItemLocationSelector   string     `yaml:"job_item_location_selector,omitempty"`
	PrerequisiteClickSelector string     `yaml:"prerequisite_click_selector,omitempty"`
	Steps                     []FlowStep `yaml:"steps,omitempty" validate:"dive"`
}

type Custom struct {
	Enabled bool         `yaml:"enabled"`
	Sites   []CustomSite `yaml:"sites" validate:"dive"`
}

type AlertBoard struct {
	Company string `yaml:"company" validate:"required"`
	Match   string `yaml:"match" validate:"required"`
}

type Email struct {
	Enabled          bool         `yaml:"enabled"`
	IMAPHost         string       `yaml:"imap_host"`
	IMAPPort         int          `yaml:"imap_port" validate:"gte=0,lte=65535"`
	Username         string       `yaml:"username"`
	Mailbox          string       `yaml:"mailbox"`
	SearchSubjectAny []string     `yaml:"search_subject_any"`
	SinceDays        int          `yaml:"since_days" validate:"gte=0"`
	MaxMessages      int          `yaml:"max_messages" validate:"gte=0"`
	Boards           []AlertBoard `yaml:"boards" validate:"dive"`
}

type Sources struct {
	Greenhouse      Platform `yaml:"greenhouse"`
	Lever           Platform `yaml:"lever"`
	SmartRecruiters Platform `yaml:"smartrecruiters"`
	Workday         Workday  `yaml:"workday"`
	Custom          Custom   `yaml:"custom"`
}

// ListPaths point at newline-delimited list files.
type ListPaths struct {
	BlacklistedTitles    string `yaml:"blacklisted_titles"`
	RequiredKeywords     string `yaml:"required_keywords"`
	BlacklistedKeywords  string `yaml:"blacklisted_keywords"`
	WhitelistedLocations string `yaml:"whitelisted_locations"`
	BlacklistedLocations string `yaml:"blacklisted_locations"`
	AlreadySeen          string `yaml:"already_seen"`
}

type Config struct {
	Output        string    `yaml:"output" validate:"required"`
	CompaniesFile string    `yaml:"companies_file,omitempty"`
	SeenDB        string    `yaml:"seen_db,omitempty"`
	Lists         ListPaths `yaml:"lists"`

	Concurrency struct {
		Sources         int `yaml:"sources" validate:"gte=1"`
		BoardsPerSource int `yaml:"boards_per_source" validate:"gte=1"`
		Browsers        int `yaml:"browsers" validate:"gte=1"`
	} `yaml:"concurrency"`

	Timeouts struct {
		BoardSeconds int `yaml:"board_seconds" validate:"gte=1"`
		WaitSeconds  int `yaml:"wait_seconds" validate:"gte=1"`
	} `yaml:"timeouts"`

	RateLimit struct {
		PerHostRPS float64 `yaml:"per_host_rps" validate:"gte=0"`
		Burst      int     `yaml:"burst" validate:"gte=0"`
	} `yaml:"rate_limit"`

	Browser struct {
		Headful  bool   `yaml:"headful"`
		ExecPath string `yaml:"exec_path,omitempty"`
	} `yaml:"browser"`

	Sources Sources `yaml:"sources"`
	Email   Email   `yaml:"email"`

	// Dir is the directory relative paths are resolved against.
	Dir string `yaml:"-"`
}

func (c Config) BoardTimeout() time.Duration {
	return time.Duration(c.Timeouts.BoardSeconds) * time.Second
}

func (c Config) WaitTimeout() time.Duration {
	return time.Duration(c.Timeouts.WaitSeconds) * time.Second
}

// Path resolves p against the config directory. Empty stays empty.
func (c Config) Path(p string) string {
	if p == "" || filepath.IsAbs(p) || c.Dir == "" {
		return p
	}
	return filepath.Join(c.Dir, p)
}

// ApplyDefaults fills zero values.
func ApplyDefaults(cfg *Config) {
	if cfg.Output == "" {
		cfg.Output = "scraped_positions.csv"
	}
	if cfg.Concurrency.Sources <= 0 {
		cfg.Concurrency.Sources = 4
	}
	if cfg.Concurrency.BoardsPerSource <= 0 {
		cfg.Concurrency.BoardsPerSource = 4
	}
	if cfg.Concurrency.Browsers <= 0 {
		cfg.Concurrency.Browsers = 1
	}
	if cfg.Timeouts.BoardSeconds <= 0 {
		cfg.Timeouts.BoardSeconds = 90
	}
	if cfg.Timeouts.WaitSeconds <= 0 {
		cfg.Timeouts.WaitSeconds = 10
	}
	if cfg.RateLimit.Burst <= 0 {
		cfg.RateLimit.Burst = 1
	}
	if cfg.Email.IMAPPort == 0 {
		cfg.Email.IMAPPort = 993
	}
	if cfg.Email.Mailbox == "" {
		cfg.Email.Mailbox = "INBOX"
	}
	if cfg.Email.SinceDays <= 0 {
		cfg.Email.SinceDays = 14
	}
}

// Load reads a YAML config, applies defaults and overlays the companies file
// when one is configured.
func Load(path string) (Config, error) {
	var cfg Config
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	if abs, err := filepath.Abs(path); err == nil {
		cfg.Dir = filepath.Dir(abs)
	} else {
		cfg.Dir = filepath.Dir(path)
	}
	ApplyDefaults(&cfg)

	if cfg.CompaniesFile != "" {
		if err := OverlayCompanies(&cfg, cfg.Path(cfg.CompaniesFile)); err != nil {
			return cfg, fmt.Errorf("companies file: %w", err)
		}
	}
	return cfg, nil
}

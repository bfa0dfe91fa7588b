// config/overlay.go
package config

import (
	"errors"
	"log"
	"os"

	"gopkg.in/yaml.v3"
)

// CompaniesFile keeps the long board lists out of the main config.
type CompaniesFile struct {
	Greenhouse      []Company      `yaml:"greenhouse"`
	Lever           []Company      `yaml:"lever"`
	SmartRecruiters []Company      `yaml:"smartrecruiters"`
	Workday         []WorkdayBoard `yaml:"workday"`
}

// OverlayCompanies replaces each platform's board list with the file's list
// when the file provides one.
func OverlayCompanies(cfg *Config, companiesPath string) error {
	b, err := os.ReadFile(companiesPath)
	if errors.Is(err, os.ErrNotExist) {
		// Missing companies file should not kill startup
		log.Printf("[config] companies file %s not found; using inline lists", companiesPath)
		return nil
	}
	if err != nil {
		return err
	}

	var cf CompaniesFile
	if err := yaml.Unmarshal(b, &cf); err != nil {
		return err
	}

	if len(cf.Greenhouse) > 0 {
		cfg.Sources.Greenhouse.Companies = cf.Greenhouse
	}
	if len(cf.Lever) > 0 {
		cfg.Sources.Lever.Companies = cf.Lever
	}
	if len(cf.SmartRecruiters) > 0 {
		cfg.Sources.SmartRecruiters.Companies = cf.SmartRecruiters
	}
	if len(cf.Workday) > 0 {
		cfg.Sources.Workday.Boards = cf.Workday
	}
	return nil
}

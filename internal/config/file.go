package config

import (
	"time"
)

// File represents the structure of the YAML configuration file.
// Unset fields leave the corresponding Config value unchanged.
type File struct {
	DataDomain         string          `yaml:"dataDomain,omitempty"`
	DataGroup          string          `yaml:"dataGroup,omitempty"`
	OutputDataset      string          `yaml:"outputDataset,omitempty"`
	LookbackDays       int             `yaml:"lookbackDays,omitempty"`
	PrefixLength       int             `yaml:"prefixLength,omitempty"`
	EnumeratePageViews *bool           `yaml:"enumeratePageViews,omitempty"`
	Datasets           []DatasetConfig `yaml:"datasets,omitempty"`
	Thresholds         *ThresholdsFile `yaml:"thresholds,omitempty"`
	Quintiles          *bool           `yaml:"quintiles,omitempty"`
	Concurrency        int             `yaml:"concurrency,omitempty"`
	Timeout            time.Duration   `yaml:"timeout,omitempty"`
	Family             *FamilyFile     `yaml:"family,omitempty"`
	ArchiveDir         string          `yaml:"archiveDir,omitempty"`
	DBDir              string          `yaml:"dbDir,omitempty"`
}

// ThresholdsFile holds optional threshold overrides.
type ThresholdsFile struct {
	Problems *float64 `yaml:"problems,omitempty"`
	Searches *float64 `yaml:"searches,omitempty"`
}

// FamilyFile configures where family roots come from.
type FamilyFile struct {
	// Search enables the search API lookup.
	Search *bool `yaml:"search,omitempty"`

	// SearchURL overrides the search API endpoint.
	SearchURL string `yaml:"searchURL,omitempty"`

	// Formats are the document formats treated as roots.
	Formats []string `yaml:"formats,omitempty"`

	// Roots are extra root paths.
	Roots []string `yaml:"roots,omitempty"`

	// URLsFile is a JSON dump of search results to read roots from.
	URLsFile string `yaml:"urlsFile,omitempty"`
}

// Apply overlays the values set in f onto cfg.
func (f *File) Apply(cfg *Config) {
	if f == nil {
		return
	}
	setString(&cfg.DataDomain, f.DataDomain)
	setString(&cfg.DataGroup, f.DataGroup)
	setString(&cfg.OutputDataset, f.OutputDataset)
	setString(&cfg.ArchiveDir, f.ArchiveDir)
	setString(&cfg.DBDir, f.DBDir)
	setInt(&cfg.LookbackDays, f.LookbackDays)
	setInt(&cfg.PrefixLength, f.PrefixLength)
	setInt(&cfg.Concurrency, f.Concurrency)
	setBool(&cfg.EnumeratePageViews, f.EnumeratePageViews)
	setBool(&cfg.Quintiles, f.Quintiles)

	if f.Timeout > 0 {
		cfg.Timeout = f.Timeout
	}
	if len(f.Datasets) > 0 {
		cfg.Datasets = append([]DatasetConfig(nil), f.Datasets...)
	}
	if t := f.Thresholds; t != nil {
		if t.Problems != nil {
			cfg.Thresholds.Problems = *t.Problems
		}
		if t.Searches != nil {
			cfg.Thresholds.Searches = *t.Searches
		}
	}
	if fam := f.Family; fam != nil {
		setBool(&cfg.SearchFamilies, fam.Search)
		setString(&cfg.SearchURL, fam.SearchURL)
		setString(&cfg.FamilyFile, fam.URLsFile)
		if len(fam.Formats) > 0 {
			cfg.FamilyFormats = append([]string(nil), fam.Formats...)
		}
		if len(fam.Roots) > 0 {
			cfg.FamilyRoots = append([]string(nil), fam.Roots...)
		}
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}

package config

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"github.com/nao1215/infostats/internal/model"
	"github.com/nao1215/infostats/internal/stats"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "infostats"

	// DefaultDataDomain is the read and write API root of the statistics service.
	DefaultDataDomain = "https://www.performance.service.gov.uk/data"

	// DefaultDataGroup is the data group holding every dataset the job uses.
	DefaultDataGroup = "govuk-info"

	// DefaultOutputDataset receives the published rows.
	DefaultOutputDataset = "info-statistics"

	// DefaultLookbackDays is the length of the trailing window.
	DefaultLookbackDays = 42

	// DefaultPrefixLength selects single-letter enumeration (26 queries per dataset).
	DefaultPrefixLength = 1

	// DefaultConcurrency bounds concurrent page-view lookups.
	DefaultConcurrency = 4

	// DefaultTimeout is the per-request timeout against the statistics service.
	// Prefix queries over six weeks of data can be slow.
	DefaultTimeout = 60 * time.Second

	// DefaultUserAgent identifies the job in the service logs.
	DefaultUserAgent = "infostats/1.0 (+https://github.com/nao1215/infostats)"
)

// DatasetConfig maps a remote dataset onto an OutputRow field.
type DatasetConfig struct {
	// Name is the remote dataset name, e.g. "page-contacts".
	Name string `yaml:"name"`

	// AggregateField is the collected aggregate, e.g. "total:sum".
	AggregateField string `yaml:"aggregateField"`

	// OutputField is the OutputRow field the values go to,
	// one of uniquePageviews, problemReports or searchUniques.
	OutputField string `yaml:"outputField"`
}

// DefaultDatasets returns the three datasets the job reads.
func DefaultDatasets() []DatasetConfig {
	return []DatasetConfig{
		{Name: "page-statistics", AggregateField: "uniquePageviews:sum", OutputField: model.MeasurePageviews},
		{Name: "page-contacts", AggregateField: "total:sum", OutputField: model.MeasureProblemReports},
		{Name: "search-terms", AggregateField: "searchUniques:sum", OutputField: model.MeasureSearchUniques},
	}
}

// Config holds all options of a run.
type Config struct {
	// DataDomain is the root URL of the statistics service API.
	DataDomain string

	// DataGroup is the data group of every dataset.
	DataGroup string

	// OutputDataset is the dataset the rows are published to.
	OutputDataset string

	// Datasets lists the inputs and the output field each one feeds.
	Datasets []DatasetConfig

	// LookbackDays is the length of the window ending on EndDate.
	LookbackDays int

	// EndDate is the last day of the window. Zero means today.
	EndDate time.Time

	// PrefixLength is 1 for 26 enumeration queries per dataset or 2 for 676.
	PrefixLength int

	// EnumeratePageViews also enumerates the page-view dataset; only rows
	// still lacking a count then get an exact lookup.
	EnumeratePageViews bool

	// Thresholds are the minimum-volume guards of normalization.
	Thresholds stats.Thresholds

	// Quintiles adds quintile bands after normalization.
	Quintiles bool

	// Concurrency bounds concurrent page-view lookups. 1 is sequential.
	Concurrency int

	// Timeout is the per-request timeout.
	Timeout time.Duration

	// UserAgent is sent with every request.
	UserAgent string

	// SearchFamilies asks the search API for family roots.
	SearchFamilies bool

	// SearchURL is the search API endpoint.
	SearchURL string

	// FamilyFormats are the document formats treated as family roots.
	FamilyFormats []string

	// FamilyRoots are extra root paths that are always rolled up.
	FamilyRoots []string

	// FamilyFile is an optional JSON dump of search results.
	FamilyFile string

	// ArchiveDir receives data-YYYY-MM-DD.json files. Empty disables archiving.
	ArchiveDir string

	// DBDir holds the run history database.
	DBDir string

	// SaveToDB stores each run in the history database.
	SaveToDB bool

	// Publish posts the rows to OutputDataset.
	Publish bool

	// EmptyFirst clears OutputDataset before publishing.
	EmptyFirst bool

	// Token is the bearer token for the output dataset.
	Token string

	// Verbose enables debug logging.
	Verbose bool

	// JSONReport writes the run summary as JSON.
	JSONReport bool

	// MarkdownReport writes the run summary as Markdown.
	MarkdownReport bool

	// ReportFile is where the summary is written instead of stdout.
	ReportFile string

	// ConfigFilePath is the YAML file the config was loaded from.
	ConfigFilePath string
}

// NewConfig creates a Config with default values.
func NewConfig() *Config {
	return &Config{
		DataDomain:     DefaultDataDomain,
		DataGroup:      DefaultDataGroup,
		OutputDataset:  DefaultOutputDataset,
		Datasets:       DefaultDatasets(),
		LookbackDays:   DefaultLookbackDays,
		PrefixLength:   DefaultPrefixLength,
		Thresholds:     stats.DefaultThresholds(),
		Concurrency:    DefaultConcurrency,
		Timeout:        DefaultTimeout,
		UserAgent:      DefaultUserAgent,
		SearchFamilies: true,
		FamilyFormats:  []string{model.FormatSmartAnswer},
		ArchiveDir:     DefaultArchiveDir(),
		DBDir:          XDGDataDir(),
		SaveToDB:       true,
		Publish:        true,
	}
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	switch {
	case c.DataDomain == "":
		return ErrMissingDataDomain
	case c.DataGroup == "":
		return ErrMissingDataGroup
	case c.OutputDataset == "":
		return ErrMissingOutputDataset
	case c.LookbackDays <= 0:
		return ErrInvalidLookback
	case c.PrefixLength != 1 && c.PrefixLength != 2:
		return ErrInvalidPrefixLength
	case c.Concurrency <= 0:
		return ErrInvalidConcurrency
	case c.Timeout <= 0:
		return ErrInvalidTimeout
	case c.Thresholds.Problems < 0 || c.Thresholds.Searches < 0:
		return ErrInvalidThreshold
	case c.JSONReport && c.MarkdownReport:
		return ErrConflictingReportFormats
	case c.Publish && c.Token == "":
		return ErrMissingToken
	}
	return c.validateDatasets()
}

func (c *Config) validateDatasets() error {
	seen := make(map[string]string, len(c.Datasets))
	for _, d := range c.Datasets {
		if d.Name == "" || d.AggregateField == "" {
			return fmt.Errorf("%w: %+v", ErrInvalidDataset, d)
		}
		if !model.IsKnownMeasure(d.OutputField) {
			return fmt.Errorf("%w: %q (dataset %s)", ErrUnknownOutputField, d.OutputField, d.Name)
		}
		if other, ok := seen[d.OutputField]; ok {
			return fmt.Errorf("%w: %q used by %s and %s", ErrDuplicateOutputField, d.OutputField, other, d.Name)
		}
		seen[d.OutputField] = d.Name
	}
	for _, m := range model.Measures {
		if _, ok := seen[m]; !ok {
			return fmt.Errorf("%w: %s", ErrMissingMeasure, m)
		}
	}
	return nil
}

// Dataset returns the dataset that feeds the output field measure.
func (c *Config) Dataset(measure string) (DatasetConfig, bool) {
	for _, d := range c.Datasets {
		if d.OutputField == measure {
			return d, true
		}
	}
	return DatasetConfig{}, false
}

// EnumeratedDatasets returns the datasets that are read by prefix
// enumeration, in configuration order.
func (c *Config) EnumeratedDatasets() []DatasetConfig {
	out := make([]DatasetConfig, 0, len(c.Datasets))
	for _, d := range c.Datasets {
		if d.OutputField == model.MeasurePageviews && !c.EnumeratePageViews {
			continue
		}
		out = append(out, d)
	}
	return out
}

// Window returns the run window. A zero EndDate means the day of now.
func (c *Config) Window(now time.Time) model.Window {
	end := c.EndDate
	if end.IsZero() {
		end = now
	}
	return model.NewWindow(end, c.LookbackDays)
}

// XDGDataDir returns the XDG data directory for infostats.
// On Linux: ~/.local/share/infostats
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// DefaultArchiveDir returns the directory archives are written to.
func DefaultArchiveDir() string {
	return filepath.Join(XDGDataDir(), "results")
}

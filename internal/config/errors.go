package config

import "errors"

// Configuration validation errors returned by Config.Validate.
var (
	// ErrMissingDataDomain is returned when no statistics service URL is set.
	ErrMissingDataDomain = errors.New("missing data domain")

	// ErrMissingDataGroup is returned when no data group is set.
	ErrMissingDataGroup = errors.New("missing data group")

	// ErrMissingOutputDataset is returned when no output dataset is set.
	ErrMissingOutputDataset = errors.New("missing output dataset name")

	// ErrInvalidLookback is returned when lookbackDays is not positive.
	ErrInvalidLookback = errors.New("invalid lookback: must be a positive number of days")

	// ErrInvalidPrefixLength is returned when prefixLength is not 1 or 2.
	ErrInvalidPrefixLength = errors.New("invalid prefix length: must be 1 or 2")

	// ErrInvalidConcurrency is returned when concurrency is not positive.
	ErrInvalidConcurrency = errors.New("invalid concurrency: must be positive")

	// ErrInvalidTimeout is returned when the request timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidThreshold is returned when a threshold is negative.
	ErrInvalidThreshold = errors.New("invalid threshold: must be non-negative")

	// ErrInvalidDataset is returned when a dataset lacks a name or aggregate field.
	ErrInvalidDataset = errors.New("invalid dataset: name and aggregateField are required")

	// ErrUnknownOutputField is returned when a dataset maps to an unknown output field.
	ErrUnknownOutputField = errors.New("unknown output field")

	// ErrDuplicateOutputField is returned when two datasets map to the same output field.
	ErrDuplicateOutputField = errors.New("duplicate output field")

	// ErrMissingMeasure is returned when no dataset feeds one of the output fields.
	ErrMissingMeasure = errors.New("no dataset configured for output field")

	// ErrMissingToken is returned when publishing is enabled without a token.
	ErrMissingToken = errors.New("missing dataset token: set PP_DATASET_TOKEN or use --no-publish")

	// ErrConflictingReportFormats is returned when both --json and --markdown are set.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")
)

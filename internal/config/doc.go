// Package config provides the configuration of the info-statistics job:
// where the datasets live, which datasets feed which output fields, the
// lookback window, the normalization thresholds, and where results are
// archived and published.
//
// A Config is built from defaults (NewConfig), optionally overlaid by a
// YAML file (LoadConfigFile, File.Apply) and then by CLI flags. Once
// Validate succeeds it is passed by pointer and not modified.
package config

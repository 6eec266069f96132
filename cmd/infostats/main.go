// Package main provides the entry point for the infostats CLI.
//
// infostats builds the info-statistics dataset: per-URL problem reports
// and site searches over a trailing window, normalised by page views,
// archived locally and published to the statistics service.
//
// Usage:
//
//	infostats run
//	infostats run --no-publish --markdown
//	infostats schedule --cron "0 6 * * 1"
//
// See --help for all available options.
package main

// main is the entry point for infostats.
func main() {
	Execute()
}

// Package platform talks to the statistics service that holds the
// page-statistics, page-contacts and search-terms datasets and receives the
// published info-statistics dataset.
//
// Client wraps the read API. Its Fetch method never returns an error: a
// failed query is logged, counted and degrades to an empty result, so a
// run with many failures still produces output with null fields.
//
// Publisher wraps the write API, which replaces the contents of a dataset
// with a JSON array and requires a bearer token.
package platform

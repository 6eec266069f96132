// Package family resolves the roots of page families: multi-step pages
// whose sub-pages report problems against many leaf URLs. Problem reports
// of those leaves are attributed to the root during rollup.
//
// Roots can come from the site search API (pages of a given format), from
// a local dump of search results, or from a static list in the
// configuration. Combined merges several sources.
package family

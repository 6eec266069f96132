// Package pipeline runs the info-statistics job as a sequence of steps.
//
// Each stage of a run is a Step that reads what earlier steps left in the
// model.Run and adds its own results:
//
//	resolve_families -> fetch -> rollup -> assemble -> pageviews ->
//	normalise -> [quintiles] -> [archive] -> [store] -> [publish]
//
// NewRunPipeline builds that sequence from a config.Config and the
// collaborators in Deps. Fetch failures never stop a run; they leave
// values missing. Archive, store and publish errors do.
//
// PageViewBatch performs the per-URL page-view lookups with a bounded
// number of concurrent requests.
package pipeline

// Package stats implements the numeric core of the info-statistics job.
//
// The functions here are pure transformations over model types:
//   - Prefixes enumerates the path prefixes used to page through a dataset
//   - Rollup folds problem reports of family descendants into their roots
//   - UniquePaths, UsefulPaths, InitialiseRows and Fold assemble output rows
//   - Normalise derives per-100k-view rates and normalised scores
//   - AssignQuintiles adds positional quintile bands
//
// None of them perform I/O; fetching and publishing live in the platform
// package and are sequenced by the pipeline package.
package stats

// Package core provides the data-loading pipeline for student grade files.
//
// This package contains all domain logic for turning a CSV or Excel export
// into a clean, typed grade table, independent of any HTTP or CLI layer.
// It can be used by web handlers, the report command, or tests without
// modification.
//
// # Pipeline
//
// A cold load runs these stages in order:
//
//  1. [Reader] parses the file into a raw [Frame] (CSV with encoding
//     fallback, or the first Excel sheet)
//  2. [Normalize] maps headers onto the canonical schema and coerces cells
//  3. [FilterErrors] drops rows that cannot satisfy the schema and merges
//     student names
//  4. [ValidateStructure] reports every remaining structural problem
//  5. [Frame.Table] converts the frame into typed [GradeRecord] values
//
// # Caching
//
// [Loader] fingerprints the source with SHA-256 ([FingerprintFile]) and keeps
// exactly one cached generation in a [CacheStore]. A load whose fingerprint
// matches the stored generation skips the pipeline entirely. An optional
// go-cache hot tier memoizes the decoded table in process.
//
// # Queries
//
// [GetFiltered] is a pure filter over a loaded table, and
// [Loader.FindNewGrades] diffs a table against the cached generation.
//
// # Error Handling
//
// Failures wrap the sentinels [ErrNotFound], [ErrDecode],
// [ErrUnsupportedFormat], [ErrValidation] and [ErrCacheRead]. [MapError]
// turns any of them into a [UserMessage] with a support code.
package core

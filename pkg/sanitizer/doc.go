// Package sanitizer turns untrusted listing cells into canonical values.
//
// Every exported transform is total: malformed input never produces an error
// or a panic, only a sentinel result (an unresolved date, the trimmed URL
// passed through verbatim, an empty signature). The transforms hold no
// mutable state and are safe to call from many goroutines at once.
//
// Normalization includes:
//   - Dates: spreadsheet serials, Unix seconds/milliseconds, packed YYYYMMDD
//     integers, M/D/YYYY and free text, rendered as MM/DD/YYYY and YYYY-MM-DD
//     in one fixed reference timezone
//   - URLs: https upgrade, lowercase host, no "www.", no fragment, no tracking
//     parameters, no trailing slash on non-root paths
//   - Titles: a short lowercase token signature used for fuzzy dedup
//   - Strings: collapse whitespace, trim leading/trailing spaces
//
// URL canonicalization is idempotent except for paths ending in more than one
// slash, where exactly one slash is removed per pass.
package sanitizer

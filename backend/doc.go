// Package backend selects the generation backend used for a request.
//
// A Prober holds the ranked list of configured providers (cheapest and most
// private first). It probes them lazily, caches the first reachable one as
// active, and only re-probes after a generation call against the active
// backend fails, starting from the next-lower-priority candidate.
package backend

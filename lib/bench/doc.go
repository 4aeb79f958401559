// Package bench measures reshape runs. A Recorder times named phases on one
// rank; Report reduces the per-rank totals over the world with the same
// collectives the data path uses, so every rank ends up with identical
// min/max/mean figures. WritePrometheus dumps the byte and row counters
// kept by the transfer, sliceio and store packages.
package bench

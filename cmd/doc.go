// Package cmd implements the command-line interface of dReshard. It provides
// a hierarchical command structure for rewriting snapshot sets and for
// looking at the results.
//
// The package is organized into several subpackages:
//
//   - reshape: Commands that run a world of ranks (reshape, reshape bench)
//   - inspect: Commands that work on files directly (inspect, verify)
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// See dreshard -help for a list of all commands.
package cmd

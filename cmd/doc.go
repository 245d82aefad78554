// Package cmd implements the command-line interface of oak.
//
// The package is organized into several subpackages:
//
//   - perf: Measures how the concurrent tree scales with the number of goroutines
//   - repl: An interactive shell for a local key-value store backed by the oak engine
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// Every flag can also be set with an environment variable of the form OAK_<FLAG>
// (e.g. OAK_LOG_LEVEL=debug). Variables are also read from .env and .env.local.
//
// See oak -help for a list of all commands.
package cmd

// Package config handles configuration loading, parsing, and validation
// from defaults, an optional config file and KANJIGATE_ environment
// variables. It provides type-safe access to the settings needed by the
// store adapter, the enrichment chain, the cache and the CLI while keeping
// configuration details separate from the sync logic.
package config

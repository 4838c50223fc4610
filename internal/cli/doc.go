// Package cli defines the Cobra command tree for the pcrelease CLI. Each file
// registers one top-level command with the root command. Commands resolve
// settings, wire the pipeline components together and print summaries; the
// release logic itself lives in internal/pipeline.
package cli

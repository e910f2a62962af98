// Package model defines the domain value types for the lotscan CLI.
//
// This package contains pure data structures with no external dependencies:
// identifier kinds (serial, IMEI) and their token lengths, ingest modes
// (single token, pasted block), duplicate scopes, and the exit-code carrying
// CLIError used by every command.
package model

// Package config loads engine and tooling settings from TOML files and
// REWIND_-prefixed environment variables, layered over engine defaults.
// File values override defaults and environment values override both.
package config

// Package config defines the settings shared by the maritime-alarm commands
// and provides helpers to load, validate and save them in YAML format.
//
// Validate fills every unset field with its default, so a zero Config is a
// working single-node setup listening on the default ports.
package config

// Package config loads the tracker's YAML configuration with ${VAR}
// environment expansion, applies defaults, and validates. Invalid
// configuration is a startup error, never a runtime one.
package config

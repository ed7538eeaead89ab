// Package config loads and validates all application configuration from
// environment variables.
//
// SSO settings configured here are the static layer: any non-zero value set
// through the environment overrides the same field from the mutable settings
// store at resolve time.
package config

// Package config handles YAML configuration loading with environment variable substitution.
//
// Configuration files support ${VAR} syntax for environment variable interpolation.
// The notification endpoint can always be overridden with LEXFLOW_WS_URL, and an
// empty config path yields defaults plus environment overrides only.
package config

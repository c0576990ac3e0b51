// ABOUTME: Package config loads the gateway YAML configuration.
// ABOUTME: Supports ${ENV_VAR} expansion and duration-string parsing.
package config

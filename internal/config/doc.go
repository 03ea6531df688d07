// Package config loads the tripflow YAML configuration and its environment overrides.
package config

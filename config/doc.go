// Package config loads service configuration with Viper.
//
// Values come from a config.yml, an optional .env file and the process
// environment. Environment variables map onto nested keys by splitting on
// underscores (SERVER_PORT -> server.port), so every field is overridable
// without listing it.
//
// # Usage
//
//	var cfg ServeConfig
//	err := config.LoadConfig("ssectl", &cfg, config.WithEnvPrefix("SSEKIT_"))
package config

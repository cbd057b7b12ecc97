// Package config provides configuration loading and validation for
// flowgraph binaries.
//
// It uses Viper to load a YAML file and environment variables, and godotenv
// to pick up .env files found next to the binary's cmd directory.
//
// # Usage
//
//	var cfg AppConfig
//	err := config.Load("flowgraph", &cfg, config.WithConfigFile("flowgraph.yml"))
//
// Environment variables override file values; COMPILER_STRICT_JOIN binds
// to compiler.strict_join.
package config

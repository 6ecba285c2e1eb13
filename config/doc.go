// Package config provides application configuration management.
//
// The config package loads configuration with viper from a YAML file, a
// .env file and CODERUN_* environment variables, in increasing order of
// precedence, and validates it. It covers the transports, the execution
// engine, logging, and the recipe table for externally run languages.
//
// Usage:
//
//	cfg, err := config.Load("config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("Server transport: %s\n", cfg.Server.Transport)
package config

// Package config loads application configuration from environment
// variables into tagged structs, wrapping github.com/joho/godotenv for
// optional .env files and github.com/caarlos0/env/v11 for parsing.
//
//	type ServerConfig struct {
//	    Addr string `env:"HTTP_ADDR" envDefault:":8080"`
//	}
//
//	var cfg ServerConfig
//	config.MustLoad(&cfg)
package config

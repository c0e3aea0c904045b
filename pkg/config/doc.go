// Package config loads environment variables into typed configuration structs.
//
// It combines godotenv (optional .env file for local development) with
// caarlos0/env struct parsing, caching each configuration type so repeated
// loads across packages return the same values.
//
// Example:
//
//	type StoreConfig struct {
//	    ConnURL string `env:"PG_CONN_URL,required"`
//	}
//
//	var cfg StoreConfig
//	if err := config.Load(&cfg); err != nil {
//	    // handle error
//	}
package config

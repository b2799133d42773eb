package config

import "log"

type Config struct {
	EnvConfig *EnvConfig
}

func NewConfig() *Config {
	envConfig := LoadEnvConfig()
	if err := envConfig.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	return &Config{
		EnvConfig: envConfig,
	}
}

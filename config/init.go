package config

import (
	"log"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"

	"github.com/bosatsu/aws-twilio-fax/internal/logger"
	"github.com/bosatsu/aws-twilio-fax/internal/tracing"
)

type Config struct {
	AppConfig       *AppConfig
	Logger          *logger.Config
	Tracing         *tracing.JaegerConfig
	AWSConfig       *AWSConfig
	BucketConfig    *BucketConfig
	ParameterConfig *ParameterConfig
	TwilioConfig    *TwilioConfig
	DispatchConfig  *DispatchConfig
}

func InitConfig() (*Config, error) {
	config := &Config{
		AppConfig:       &AppConfig{},
		Logger:          &logger.Config{},
		Tracing:         &tracing.JaegerConfig{},
		AWSConfig:       &AWSConfig{},
		BucketConfig:    &BucketConfig{},
		ParameterConfig: &ParameterConfig{},
		TwilioConfig:    &TwilioConfig{},
		DispatchConfig:  &DispatchConfig{},
	}

	err := godotenv.Load()
	if err != nil {
		log.Print("Unable to load .env file")
	}

	err = env.Parse(config)
	if err != nil {
		log.Fatalf("Error loading fax bridge config: %v", err)
	}

	return config, nil
}

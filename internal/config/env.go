package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

const (
	ModelSourceFS = "fs"
	ModelSourceS3 = "s3"
)

type Env struct {
	AppPort          string        `mapstructure:"app_port" validate:"required,numeric"`
	AppEnv           string        `mapstructure:"app_env"`
	ModelSource      string        `mapstructure:"model_source" validate:"oneof=fs s3"`
	ModelPath        string        `mapstructure:"model_path" validate:"required"`
	InferenceURL     string        `mapstructure:"inference_url" validate:"required,url"`
	SurfaceWidth     int           `mapstructure:"surface_width" validate:"min=1,max=8192"`
	SurfaceHeight    int           `mapstructure:"surface_height" validate:"min=1,max=8192"`
	DetectionTimeout time.Duration `mapstructure:"detection_timeout" validate:"min=0"`
	RateLimitRPS     float64       `mapstructure:"rate_limit_rps" validate:"gt=0"`
	RateLimitBurst   int           `mapstructure:"rate_limit_burst" validate:"min=1"`
	AWSRegion        string        `mapstructure:"aws_region" validate:"required_if=ModelSource s3"`
	AWSBucketName    string        `mapstructure:"aws_bucket_name" validate:"required_if=ModelSource s3"`
}

func setEnvDefaults(v *viper.Viper) {
	v.SetDefault("app_port", "3000")
	v.SetDefault("app_env", "development")
	v.SetDefault("model_source", ModelSourceFS)
	v.SetDefault("model_path", "./assets/models")
	v.SetDefault("inference_url", "")
	v.SetDefault("surface_width", 640)
	v.SetDefault("surface_height", 480)
	v.SetDefault("detection_timeout", "0s")
	v.SetDefault("rate_limit_rps", 5)
	v.SetDefault("rate_limit_burst", 10)
	v.SetDefault("aws_region", "")
	v.SetDefault("aws_bucket_name", "")
}

// LoadEnv reads the process environment (already seeded from .env by the
// caller) and validates it.
func LoadEnv(validate *validator.Validate) (*Env, error) {
	v := viper.New()
	v.AutomaticEnv()
	setEnvDefaults(v)

	var env Env
	if err := v.Unmarshal(&env); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	if err := validate.Struct(env); err != nil {
		return nil, fmt.Errorf("invalid environment: %w", err)
	}

	return &env, nil
}

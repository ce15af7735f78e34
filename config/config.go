// Package config contains code to set the default values and read
// config files to be used throughout the whole application
package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"slices"

	"github.com/spf13/pflag"
	v "github.com/spf13/viper"
	"go.uber.org/zap"
)

var (
	validLogLevels  = []string{"debug", "info", "warn", "error", "fatal"}
	validStoreTypes = []string{"dynamo", "sqlite", "postgres"}
)

func genSecret() string {
	b := make([]byte, 64)
	rand.Read(b)
	return hex.EncodeToString(b)
}

// Setup prepares everything config-related so that the app can
// start working. Function will return an error if something
// is critically wrong and the application can't run because of
// that.
func Setup() error {
	pflag.Parse()
	v.BindPFlags(pflag.CommandLine)

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")

	v.AutomaticEnv()

	//
	// ENVS
	//
	v.BindEnv("app.log_level", "app_log_level")

	v.BindEnv("host.port", "host_port")
	v.BindEnv("host.cors", "host_cors")

	v.BindEnv("store.type", "store_type")
	v.BindEnv("store.dsn", "store_dsn")

	v.BindEnv("dynamo.table", "dynamo_table")

	v.BindEnv("redis.addr", "redis_addr")
	v.BindEnv("redis.db", "redis_db")

	v.BindEnv("aws.region", "aws_region")
	v.BindEnv("aws.bucket", "aws_bucket")
	v.BindEnv("aws.access_key_id", "aws_access_key_id")
	v.BindEnv("aws.secret_access_key", "aws_secret_access_key")

	v.BindEnv("upload.max_size", "upload_max_size")
	v.BindEnv("presign.expiry", "presign_expiry")

	v.BindEnv("transcode.workers", "transcode_workers")
	v.BindEnv("transcode.max_jobs", "transcode_max_jobs")
	v.BindEnv("transcode.ffmpeg_path", "transcode_ffmpeg_path")

	v.BindEnv("security.jwt_secret", "security_jwt_secret")
	v.BindEnv("security.rate_limit", "security_rate_limit")

	v.BindEnv("weather.api_key", "openweather_api_key")

	//
	// Defaults
	//
	v.SetDefault("app.log_level", "info")

	v.SetDefault("host.port", 8080)
	v.SetDefault("host.cors", []string{"http://localhost:3000"})

	v.SetDefault("store.type", "sqlite")
	v.SetDefault("store.dsn", "database.db")

	v.SetDefault("dynamo.table", "app_data")

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)

	v.SetDefault("upload.max_size", 50)
	v.SetDefault("presign.expiry", 900)

	v.SetDefault("transcode.workers", 2)
	v.SetDefault("transcode.max_jobs", 16)
	v.SetDefault("transcode.ffmpeg_path", "ffmpeg")

	v.SetDefault("security.rate_limit", 25)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(v.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("failed to read config file, %w", err)
		}
	}

	if !slices.Contains(validLogLevels, v.GetString("app.log_level")) {
		return errors.New("invalid log level provided")
	}

	if v.GetInt("host.port") <= 0 {
		return errors.New("invalid port provided")
	}

	if v.GetString("security.jwt_secret") == "" {
		fmt.Println("WARNING: You haven't set a JWT secret, so it has been generated for you. Please set it as an environment variable or in the config.toml file.\nYour random JWT secret:\n\n" + genSecret() + "\n\nPaste it into your config.toml file.")
		os.Exit(0)
	}

	if !slices.Contains(validStoreTypes, v.GetString("store.type")) {
		return errors.New("invalid store type provided")
	}

	switch v.GetString("store.type") {
	case "dynamo":
		if v.GetString("aws.region") == "" {
			return errors.New("aws region can't be empty")
		}
		if v.GetString("dynamo.table") == "" {
			return errors.New("dynamo table can't be empty")
		}
	case "sqlite", "postgres":
		if v.GetString("store.dsn") == "" {
			return errors.New("store dsn can't be empty")
		}
	}

	if v.GetString("aws.bucket") == "" {
		zap.L().Warn("No aws.bucket configured, presigned transfers will be unavailable")
	}

	if v.GetInt("upload.max_size") <= 0 {
		return errors.New("upload.max_size must be bigger than 0")
	}

	if v.GetInt("presign.expiry") <= 0 {
		return errors.New("presign.expiry must be bigger than 0")
	}

	if v.GetInt("transcode.workers") <= 0 {
		return errors.New("transcode.workers must be bigger than 0")
	}

	if v.GetString("weather.api_key") == "" {
		zap.L().Warn("No weather.api_key configured, the weather endpoint will return errors")
	}

	v.Set("upload.max_size", v.GetInt64("upload.max_size")<<20)
	return nil
}

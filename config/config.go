// Package config contains code to set the default values and read
// config files to be used throughout the whole application
package config

import (
	"errors"
	"fmt"
	"os"
	"slices"

	"github.com/spf13/pflag"
	v "github.com/spf13/viper"
)

var (
	migrateOnly    = pflag.Bool("migrate-only", false, "Runs database migrations and exits")
	validLogLevels = []string{"debug", "info", "warn", "error", "fatal"}
	validDBDrivers = []string{"sqlite", "postgres"}
)

// MigrateOnly reports whether the process should stop after migrations.
func MigrateOnly() bool {
	return *migrateOnly
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
	v.BindEnv("host.domain", "host_domain")

	v.BindEnv("db.driver", "db_driver")
	v.BindEnv("db.dsn", "db_dsn")

	v.BindEnv("storage.type", "storage_type")

	v.BindEnv("upload.max_size", "upload_max_size")
	v.BindEnv("upload.chunk_size", "upload_chunk_size")
	v.BindEnv("upload.chunk_dir", "upload_chunk_dir")
	v.BindEnv("upload.dir", "upload_dir")
	v.BindEnv("upload.processed_dir", "upload_processed_dir")

	v.BindEnv("processing.workers", "processing_workers")
	v.BindEnv("processing.queue_size", "processing_queue_size")
	v.BindEnv("processing.max_image_width", "processing_max_image_width")

	v.BindEnv("aws.access_key", "aws_access_key")
	v.BindEnv("aws.secret_access_key", "aws_secret_access_key")
	v.BindEnv("aws.bucket", "aws_bucket")
	v.BindEnv("aws.region", "aws_region")

	//
	// Defaults
	//
	v.SetDefault("app.log_level", "info")

	v.SetDefault("host.port", 8080)
	v.SetDefault("host.domain", "localhost")

	v.SetDefault("db.driver", "sqlite")
	v.SetDefault("db.dsn", "database.db")

	v.SetDefault("storage.type", "local")

	// Sizes are in MiB and converted to bytes after validation
	v.SetDefault("upload.max_size", 512)
	v.SetDefault("upload.chunk_size", 1)
	v.SetDefault("upload.chunk_dir", "data/chunks")
	v.SetDefault("upload.dir", "data/uploads")
	v.SetDefault("upload.processed_dir", "data/processed")

	v.SetDefault("processing.workers", 4)
	v.SetDefault("processing.queue_size", 64)
	v.SetDefault("processing.max_image_width", 2048)

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

	if !slices.Contains(validDBDrivers, v.GetString("db.driver")) {
		return errors.New("invalid database driver provided")
	}

	if v.GetString("db.dsn") == "" {
		return errors.New("database dsn can't be empty")
	}

	if v.GetInt("upload.max_size") <= 0 {
		return errors.New("upload.max_size must be bigger than 0")
	}

	if v.GetInt("upload.chunk_size") <= 0 {
		return errors.New("upload.chunk_size must be bigger than 0")
	}

	if v.GetInt("upload.chunk_size") > v.GetInt("upload.max_size") {
		return errors.New("upload.chunk_size can't exceed upload.max_size")
	}

	if v.GetInt("processing.workers") <= 0 {
		return errors.New("processing.workers must be bigger than 0")
	}

	if v.GetInt("processing.queue_size") <= 0 {
		return errors.New("processing.queue_size must be bigger than 0")
	}

	if v.GetInt("processing.max_image_width") <= 0 {
		return errors.New("processing.max_image_width must be bigger than 0")
	}

	switch v.GetString("storage.type") {
	case "s3":
		{
			if v.GetString("aws.access_key") == "" {
				return errors.New("access key can't be empty")
			}
			if v.GetString("aws.secret_access_key") == "" {
				return errors.New("secret access key can't be empty")
			}
			if v.GetString("aws.bucket") == "" {
				return errors.New("bucket can't be empty")
			}
			if v.GetString("aws.region") == "" {
				return errors.New("region can't be empty")
			}
		}
	case "local":
	default:
		return errors.New("invalid storage type provided")
	}

	for _, key := range []string{"upload.chunk_dir", "upload.dir", "upload.processed_dir"} {
		dir := v.GetString(key)
		if dir == "" {
			return fmt.Errorf("%s can't be empty", key)
		}

		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create %s directory, %w", key, err)
		}
	}

	v.Set("upload.max_size", v.GetInt64("upload.max_size")<<20)
	v.Set("upload.chunk_size", v.GetInt64("upload.chunk_size")<<20)
	return nil
}

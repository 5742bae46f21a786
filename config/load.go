package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// Load reads configuration from a file and the environment. cfgPath may be
// empty, in which case the default search path is used (./aqfs.yaml, then
// ~/.aqfs/aqfs.yaml); a missing config file is not an error — defaults and
// environment variables are enough to run against a local or memory
// backend.
//
// Environment bindings follow the original deployment convention:
// S3_BUCKET, S3_REGION, and S3_ENDPOINT override their file counterparts.
func Load(cfgPath string) (Config, error) {
	v := viper.New()

	// Order of precedence: ENV, config file, defaults.
	v.SetDefault("backend", "s3")
	v.SetDefault("chunkSizeBytes", DefaultChunkSizeBytes)
	v.SetDefault("compression", DefaultCompression)
	v.SetDefault("cacheBudgetBytes", DefaultCacheBudgetBytes)
	v.SetDefault("maxRetryAttempts", DefaultMaxRetryAttempts)
	v.SetDefault("retryBackoffBaseMs", int(DefaultRetryBackoffBase/time.Millisecond))
	v.SetDefault("commitConflictRetryLimit", DefaultCommitConflictRetryLimit)
	v.SetDefault("operationTimeoutMs", 0)
	v.SetDefault("logLevel", DefaultLogLevel)

	_ = v.BindEnv("bucket", "S3_BUCKET")
	_ = v.BindEnv("region", "S3_REGION")
	_ = v.BindEnv("endpoint", "S3_ENDPOINT")

	if cfgPath != "" {
		v.SetConfigFile(cfgPath)
	} else {
		v.SetConfigName("aqfs")
		v.AddConfigPath(".")
		if home, err := homedir.Dir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".aqfs"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgPath != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("config: read %s: %w", v.ConfigFileUsed(), err)
		}
	}

	cfg := Config{
		Backend:                  v.GetString("backend"),
		Bucket:                   v.GetString("bucket"),
		Prefix:                   v.GetString("prefix"),
		Region:                   v.GetString("region"),
		Endpoint:                 v.GetString("endpoint"),
		LocalDir:                 v.GetString("localDir"),
		ChunkSizeBytes:           v.GetInt("chunkSizeBytes"),
		Compression:              v.GetString("compression"),
		CacheBudgetBytes:         v.GetInt64("cacheBudgetBytes"),
		CachePath:                v.GetString("cachePath"),
		MaxRetryAttempts:         v.GetInt("maxRetryAttempts"),
		RetryBackoffBase:         time.Duration(v.GetInt("retryBackoffBaseMs")) * time.Millisecond,
		CommitConflictRetryLimit: v.GetInt("commitConflictRetryLimit"),
		OperationTimeout:         time.Duration(v.GetInt("operationTimeoutMs")) * time.Millisecond,
		LogLevel:                 v.GetString("logLevel"),
	}

	if cfg.CachePath != "" {
		expanded, err := homedir.Expand(cfg.CachePath)
		if err != nil {
			return Config{}, fmt.Errorf("config: expand cachePath: %w", err)
		}
		cfg.CachePath = expanded
	}
	if cfg.LocalDir != "" {
		expanded, err := homedir.Expand(cfg.LocalDir)
		if err != nil {
			return Config{}, fmt.Errorf("config: expand localDir: %w", err)
		}
		cfg.LocalDir = expanded
	}

	cfg.ApplyDefaults()
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

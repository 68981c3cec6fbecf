// Package config loads server settings from defaults, an optional YAML file
// and ATLAS_* environment variables, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	RPC      RPCConfig      `yaml:"rpc"`
	Database DatabaseConfig `yaml:"database"`
	Files    FilesConfig    `yaml:"files"`
	Log      LogConfig      `yaml:"log"`
	API      APIConfig      `yaml:"api"`
}

type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

type RPCConfig struct {
	Socket string `yaml:"socket"`
}

type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

type FilesConfig struct {
	Driver string   `yaml:"driver"`
	Root   string   `yaml:"root"`
	S3     S3Config `yaml:"s3"`
}

type S3Config struct {
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	Prefix    string `yaml:"prefix"`
	Endpoint  string `yaml:"endpoint"`
	PathStyle bool   `yaml:"path_style"`
}

type LogConfig struct {
	Mode string `yaml:"mode"`
}

type APIConfig struct {
	DefaultLimit int `yaml:"default_limit"`
	MaxLimit     int `yaml:"max_limit"`
}

func Default() Config {
	return Config{
		HTTP:     HTTPConfig{Addr: ":8080"},
		RPC:      RPCConfig{Socket: "./atlas.sock"},
		Database: DatabaseConfig{Driver: "sqlite", DSN: "./atlas.db"},
		Files:    FilesConfig{Driver: "fs", Root: "./uploads", S3: S3Config{Region: "us-east-1"}},
		Log:      LogConfig{Mode: "dev"},
		API:      APIConfig{DefaultLimit: 100, MaxLimit: 1000},
	}
}

// Load reads path when it is set and exists, then applies the environment.
// A missing file is not an error so the server runs with defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return Config{}, err
		default:
			if err := yaml.Unmarshal(raw, &cfg); err != nil {
				return Config{}, fmt.Errorf("parse %s: %w", path, err)
			}
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	str("ATLAS_HTTP_ADDR", &c.HTTP.Addr)
	str("ATLAS_RPC_SOCKET", &c.RPC.Socket)
	str("ATLAS_DATABASE_DRIVER", &c.Database.Driver)
	str("ATLAS_DATABASE_DSN", &c.Database.DSN)
	str("ATLAS_FILES_DRIVER", &c.Files.Driver)
	str("ATLAS_FILES_ROOT", &c.Files.Root)
	str("ATLAS_FILES_S3_BUCKET", &c.Files.S3.Bucket)
	str("ATLAS_FILES_S3_REGION", &c.Files.S3.Region)
	str("ATLAS_FILES_S3_PREFIX", &c.Files.S3.Prefix)
	str("ATLAS_FILES_S3_ENDPOINT", &c.Files.S3.Endpoint)
	str("ATLAS_LOG_MODE", &c.Log.Mode)

	if v, ok := lookup("ATLAS_FILES_S3_PATH_STYLE"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("ATLAS_FILES_S3_PATH_STYLE: %w", err)
		}
		c.Files.S3.PathStyle = b
	}
	for key, dst := range map[string]*int{
		"ATLAS_API_DEFAULT_LIMIT": &c.API.DefaultLimit,
		"ATLAS_API_MAX_LIMIT":     &c.API.MaxLimit,
	} {
		if v, ok := lookup(key); ok && v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			*dst = n
		}
	}
	return nil
}

func (c Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("database.driver must be sqlite or postgres, got %q", c.Database.Driver)
	}
	if strings.TrimSpace(c.Database.DSN) == "" {
		return errors.New("database.dsn is required")
	}
	switch c.Files.Driver {
	case "fs":
		if strings.TrimSpace(c.Files.Root) == "" {
			return errors.New("files.root is required for the fs driver")
		}
	case "s3":
		if strings.TrimSpace(c.Files.S3.Bucket) == "" {
			return errors.New("files.s3.bucket is required for the s3 driver")
		}
	default:
		return fmt.Errorf("files.driver must be fs or s3, got %q", c.Files.Driver)
	}
	if c.API.DefaultLimit <= 0 || c.API.MaxLimit < c.API.DefaultLimit {
		return errors.New("api limits must be positive and max_limit >= default_limit")
	}
	return nil
}

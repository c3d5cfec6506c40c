package config

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// FileEnv names the optional YAML config file.
const FileEnv = "TRUNITY_IMPORTER_CONFIG"

type Config struct {
	Trunity Trunity `yaml:"trunity"`
	Blob    Blob    `yaml:"blob"`
	HTTP    HTTP    `yaml:"http"`
	DB      DB      `yaml:"db"`
	Auth    Auth    `yaml:"auth"`
	NoColor bool    `yaml:"no_color"`
}

type Trunity struct {
	BaseURL  string        `yaml:"base_url"`
	TokenURL string        `yaml:"token_url"`
	ClientID string        `yaml:"client_id"`
	Username string        `yaml:"username"`
	Password string        `yaml:"password"`
	Timeout  time.Duration `yaml:"timeout"`
}

type Blob struct {
	Driver    string `yaml:"driver"` // trunity|fs
	BasePath  string `yaml:"base_path"`
	PublicURL string `yaml:"public_url"`
}

type HTTP struct {
	Addr        string   `yaml:"addr"`
	CORSOrigins []string `yaml:"cors_origins"`
}

type DB struct {
	Driver string `yaml:"driver"` // sqlite|postgres
	DSN    string `yaml:"dsn"`
}

type Auth struct {
	HMACSecret       string `yaml:"hmac_secret"`
	OperatorUser     string `yaml:"operator_user"`
	OperatorPassHash string `yaml:"operator_pass_hash"` // bcrypt
}

func Defaults() Config {
	return Config{
		Trunity: Trunity{
			BaseURL:  "https://api.trunity.net/v1",
			TokenURL: "https://api.trunity.net/v1/auth/token",
			ClientID: "trunity-importer",
			Timeout:  60 * time.Second,
		},
		Blob: Blob{Driver: "trunity", BasePath: "./data"},
		HTTP: HTTP{Addr: ":8080", CORSOrigins: []string{"http://localhost:3000"}},
		DB:   DB{Driver: "sqlite"},
		Auth: Auth{OperatorUser: "operator"},
	}
}

// Load layers .env, the YAML file (path, or $TRUNITY_IMPORTER_CONFIG when
// path is empty) and the process environment, later layers winning.
func Load(path string) (Config, error) {
	_ = godotenv.Load()

	cfg := Defaults()
	if path == "" {
		path = os.Getenv(FileEnv)
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := parseYAML(data, &cfg); err != nil {
			return Config{}, err
		}
	}
	return FromEnv(cfg), nil
}

func parseYAML(data []byte, cfg *Config) error {
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil && err != io.EOF {
		return fmt.Errorf("parse config: %w", err)
	}
	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		if err == nil {
			return fmt.Errorf("parse config: multiple YAML documents are not supported")
		}
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}

// FromEnv overrides base with whatever the environment sets.
func FromEnv(base Config) Config {
	c := base
	c.Trunity.BaseURL = envOr("T3_BASE_URL", c.Trunity.BaseURL)
	c.Trunity.TokenURL = envOr("T3_TOKEN_URL", c.Trunity.TokenURL)
	c.Trunity.ClientID = envOr("T3_CLIENT_ID", c.Trunity.ClientID)
	c.Trunity.Username = envOr("T3_USERNAME", c.Trunity.Username)
	c.Trunity.Password = envOr("T3_PWD", c.Trunity.Password)
	c.Trunity.Timeout = envDuration("T3_TIMEOUT", c.Trunity.Timeout)

	c.Blob.Driver = envOr("BLOB_DRIVER", c.Blob.Driver)
	c.Blob.BasePath = envOr("BLOB_BASE_PATH", c.Blob.BasePath)
	c.Blob.PublicURL = envOr("BLOB_PUBLIC_URL", c.Blob.PublicURL)

	c.HTTP.Addr = envOr("HTTP_ADDR", c.HTTP.Addr)
	c.HTTP.CORSOrigins = csvOr("CORS_ORIGINS", strings.Join(c.HTTP.CORSOrigins, ","))

	c.DB.Driver = envOr("DB_DRIVER", c.DB.Driver)
	c.DB.DSN = envOr("DB_DSN", c.DB.DSN)

	c.Auth.HMACSecret = envOr("AUTH_HMAC_SECRET", c.Auth.HMACSecret)
	c.Auth.OperatorUser = envOr("OPERATOR_USER", c.Auth.OperatorUser)
	c.Auth.OperatorPassHash = envOr("OPERATOR_PASS_HASH", c.Auth.OperatorPassHash)

	_, noColor := os.LookupEnv("NO_COLOR")
	c.NoColor = noColor || c.NoColor
	return c
}

func envOr(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}
func envDuration(k string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(os.Getenv(k))
	if err != nil {
		return def
	}
	return d
}
func csvOr(k, def string) []string {
	v := envOr(k, def)
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}

package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	DriverFile     = "file"
	DriverMongo    = "mongo"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// maxPasswordBytes is bcrypt's input limit.
const maxPasswordBytes = 72

type Config struct {
	Port     string
	LogLevel string

	AdminPassword     string
	AdminPasswordHash string
	LoginLimitPerMin  int
	TrustProxy        bool

	StoreDriver     string
	DataFile        string
	MongoURI        string
	MongoDB         string
	MongoCollection string
	DatabaseURL     string

	CloudName    string
	CloudKey     string
	CloudSecret  string
	UploadFolder string

	MetricsToken string
	CORSOrigins  []string
}

// Load reads configuration from the environment, after merging a .env file
// from the working directory when one exists. Variables already set in the
// environment win over .env.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from a lookup function and validates it.
func FromEnv(getenv func(string) string) (Config, error) {
	get := func(k, def string) string {
		if v := strings.TrimSpace(getenv(k)); v != "" {
			return v
		}
		return def
	}

	limit, err := strconv.Atoi(get("LOGIN_LIMIT_PER_MIN", "10"))
	if err != nil {
		return Config{}, fmt.Errorf("LOGIN_LIMIT_PER_MIN: %w", err)
	}

	trustProxy, err := strconv.ParseBool(get("TRUST_PROXY", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("TRUST_PROXY: %w", err)
	}

	cfg := Config{
		Port:     get("PORT", "3000"),
		LogLevel: get("LOG_LEVEL", "info"),

		AdminPassword:     getenv("ADMIN_PASSWORD"),
		AdminPasswordHash: get("ADMIN_PASSWORD_HASH", ""),
		LoginLimitPerMin:  limit,
		TrustProxy:        trustProxy,

		StoreDriver:     strings.ToLower(get("STORE_DRIVER", DriverFile)),
		DataFile:        get("DATA_FILE", "data/productos.json"),
		MongoURI:        get("MONGO_URI", ""),
		MongoDB:         get("MONGO_DB", "bodega"),
		MongoCollection: get("MONGO_COLLECTION", "productos"),
		DatabaseURL:     get("DATABASE_URL", ""),

		CloudName:    get("CLOUD_NAME", ""),
		CloudKey:     get("CLOUD_KEY", ""),
		CloudSecret:  get("CLOUD_SECRET", ""),
		UploadFolder: get("UPLOAD_FOLDER", "bodega-el-milagro"),

		MetricsToken: get("METRICS_TOKEN", ""),
		CORSOrigins:  splitList(get("CORS_ORIGINS", "*")),
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.AdminPassword == "" && c.AdminPasswordHash == "" {
		return errors.New("ADMIN_PASSWORD or ADMIN_PASSWORD_HASH is required")
	}
	if c.AdminPasswordHash == "" && len(c.AdminPassword) > maxPasswordBytes {
		return fmt.Errorf("ADMIN_PASSWORD is %d bytes, bcrypt accepts at most %d; use a shorter password or set ADMIN_PASSWORD_HASH",
			len(c.AdminPassword), maxPasswordBytes)
	}
	if c.LoginLimitPerMin < 0 {
		return errors.New("LOGIN_LIMIT_PER_MIN must be >= 0")
	}

	switch c.StoreDriver {
	case DriverFile:
		if c.DataFile == "" {
			return errors.New("DATA_FILE is required for the file store")
		}
	case DriverMongo:
		if c.MongoURI == "" {
			return errors.New("MONGO_URI is required for the mongo store")
		}
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required for the postgres store")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}
	return nil
}

// UploadsEnabled reports whether media host credentials are present.
func (c Config) UploadsEnabled() bool {
	return c.CloudName != "" && c.CloudKey != "" && c.CloudSecret != ""
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DocStorePostgres = "postgres"
	DocStoreMongo    = "mongo"

	PrefsPostgres = "postgres"
	PrefsSQLite   = "sqlite"
)

type Config struct {
	DB         DBConfig
	DocStore   string // "postgres" or "mongo"
	Mongo      MongoConfig
	Storage    StorageConfig
	Cache      CacheConfig
	Telegram   TelegramConfig
	HTTP       HTTPConfig
	Restaurant RestaurantConfig
	Prefs      PrefsConfig
	Log        LogConfig
	Locale     string // system locale used to derive the default language
}

type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
}

type MongoConfig struct {
	URI      string
	Database string
}

type StorageConfig struct {
	Bucket          string
	Endpoint        string // optional override, e.g. an emulator
	CredentialsFile string
}

type CacheConfig struct {
	Dir           string
	ImageMaxBytes int64
	FetchTimeout  time.Duration
	Prefetch      int // concurrent image fetches when warming a category
}

type TelegramConfig struct {
	Token string
}

type HTTPConfig struct {
	Addr string // empty disables the JSON API
}

type RestaurantConfig struct {
	Name      string
	Phone     string
	Instagram string
	Lat       float64
	Lon       float64
}

type PrefsConfig struct {
	Driver string // "postgres" or "sqlite"
	Path   string // sqlite file
}

type LogConfig struct {
	Level  string
	Format string // "json" or "console"
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	port, err := getInt("DB_PORT", 5432)
	if err != nil {
		return nil, err
	}
	maxBytes, err := getInt("IMAGE_MAX_BYTES", 5*1024*1024)
	if err != nil {
		return nil, err
	}
	prefetch, err := getInt("IMAGE_PREFETCH", 4)
	if err != nil {
		return nil, err
	}
	timeout, err := getDuration("FETCH_TIMEOUT", 20*time.Second)
	if err != nil {
		return nil, err
	}
	lat, err := getFloat("RESTAURANT_LAT", 32.860010)
	if err != nil {
		return nil, err
	}
	lon, err := getFloat("RESTAURANT_LON", 35.366690)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		DB: DBConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     port,
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Database: getEnv("DB_NAME", "menu"),
		},
		DocStore: strings.ToLower(getEnv("DOCSTORE", DocStorePostgres)),
		Mongo: MongoConfig{
			URI:      getEnv("MONGO_URI", "mongodb://localhost:27017"),
			Database: getEnv("MONGO_DB", "menu"),
		},
		Storage: StorageConfig{
			Bucket:          getEnv("STORAGE_BUCKET", ""),
			Endpoint:        getEnv("STORAGE_ENDPOINT", ""),
			CredentialsFile: getEnv("GOOGLE_APPLICATION_CREDENTIALS", ""),
		},
		Cache: CacheConfig{
			Dir:           getEnv("CACHE_DIR", os.TempDir()),
			ImageMaxBytes: int64(maxBytes),
			FetchTimeout:  timeout,
			Prefetch:      prefetch,
		},
		Telegram: TelegramConfig{
			Token: getEnv("TOKEN", ""),
		},
		HTTP: HTTPConfig{
			Addr: getEnv("HTTP_ADDR", ":8080"),
		},
		Restaurant: RestaurantConfig{
			Name:      getEnv("RESTAURANT_NAME", "Papa Italia"),
			Phone:     getEnv("RESTAURANT_PHONE", "046361110"),
			Instagram: getEnv("RESTAURANT_INSTAGRAM", "papa.italia_"),
			Lat:       lat,
			Lon:       lon,
		},
		Prefs: PrefsConfig{
			Driver: strings.ToLower(getEnv("PREFS_DRIVER", PrefsPostgres)),
			Path:   getEnv("PREFS_PATH", "data/prefs.db"),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Locale: firstEnv("LC_ALL", "LC_MESSAGES", "LANG"),
	}

	if cfg.DocStore != DocStorePostgres && cfg.DocStore != DocStoreMongo {
		return nil, fmt.Errorf("invalid DOCSTORE: %s", cfg.DocStore)
	}
	if cfg.Prefs.Driver != PrefsPostgres && cfg.Prefs.Driver != PrefsSQLite {
		return nil, fmt.Errorf("invalid PREFS_DRIVER: %s", cfg.Prefs.Driver)
	}
	if cfg.Cache.ImageMaxBytes <= 0 {
		return nil, fmt.Errorf("IMAGE_MAX_BYTES must be > 0")
	}
	return cfg, nil
}

// NeedsPostgres reports whether any configured component talks to Postgres.
func (c *Config) NeedsPostgres() bool {
	return c.DocStore == DocStorePostgres || c.Prefs.Driver == PrefsPostgres
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}

func getInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getFloat(key string, def float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return f, nil
}

func getDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

package config

import (
	"encoding/json"
	"errors"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// AppConfig holds environment driven configuration values.
// Sensitive data should never have defaults inside code and must be provided via config files or the environment.
type AppConfig struct {
	AppPort            string
	JWTSecret          string
	RateLimitPerMinute int
	AllowedOrigins     []string
	// Gin framework configuration
	GinMode string
	GinPath string
	// Storage: mysql, postgres, mongo or badger
	StorageDriver string
	DatabaseURI   string
	DBHost        string
	DBPort        string
	DBUser        string
	DBPassword    string
	DBName        string
	MongoURI      string
	MongoDatabase string
	BadgerPath    string
	// Redis for caching and the creation lock
	RedisEnabled  bool
	RedisHost     string
	RedisPort     int
	RedisDB       int
	RedisPassword string
	// Logging configuration
	LogLevel      string
	LogPath       string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int
	LogCompress   bool
	// Blog behaviour
	LockBackend            string
	CreationCooldownSec    int
	CreationLockMaxHoldSec int
	CacheTTLSeconds        int
	MaxPageSize            int
}

var cfg AppConfig
var loaded bool

// fileConfig mirrors the grouped layout of config/config.json.
type fileConfig struct {
	App struct {
		AppPort            string   `json:"AppPort"`
		JWTSecret          string   `json:"JWTSecret"`
		RateLimitPerMinute int      `json:"RateLimitPerMinute"`
		AllowedOrigins     []string `json:"AllowedOrigins"`
		GinMode            string   `json:"GinMode"`
		GinPath            string   `json:"GinPath"`
	} `json:"app"`
	Storage struct {
		Driver        string `json:"Driver"`
		DatabaseURI   string `json:"DatabaseURI"`
		DBHost        string `json:"DBHost"`
		DBPort        string `json:"DBPort"`
		DBUser        string `json:"DBUser"`
		DBPassword    string `json:"DBPassword"`
		DBName        string `json:"DBName"`
		MongoURI      string `json:"MongoURI"`
		MongoDatabase string `json:"MongoDatabase"`
		BadgerPath    string `json:"BadgerPath"`
	} `json:"storage"`
	Redis struct {
		Enabled  bool   `json:"Enabled"`
		Host     string `json:"Host"`
		Port     int    `json:"Port"`
		DB       int    `json:"DB"`
		Password string `json:"Password"`
	} `json:"redis"`
	Log struct {
		Level      string `json:"Level"`
		Path       string `json:"Path"`
		MaxSizeMB  int    `json:"MaxSizeMB"`
		MaxBackups int    `json:"MaxBackups"`
		MaxAgeDays int    `json:"MaxAgeDays"`
		Compress   bool   `json:"Compress"`
	} `json:"log"`
	Blog struct {
		LockBackend            string `json:"LockBackend"`
		CreationCooldownSec    int    `json:"CreationCooldownSec"`
		CreationLockMaxHoldSec int    `json:"CreationLockMaxHoldSec"`
		CacheTTLSeconds        int    `json:"CacheTTLSeconds"`
		MaxPageSize            int    `json:"MaxPageSize"`
	} `json:"blog"`
}

// Load loads the application configuration. It should be called once during boot.
func Load() AppConfig {
	if loaded {
		return cfg
	}

	c, err := LoadFrom(filepath.Join("config", "config.json"))
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	cfg = c
	loaded = true
	return cfg
}

// LoadFrom builds a configuration from the given JSON file (optional), defaults and environment.
// Precedence: file -> defaults for zero values -> environment variable overrides.
func LoadFrom(path string) (AppConfig, error) {
	var c AppConfig
	if err := loadJSONConfig(path, &c); err != nil {
		return AppConfig{}, err
	}
	applyDefaults(&c)
	applyEnvOverrides(&c)

	if c.JWTSecret == "" {
		return AppConfig{}, errors.New("JWT_SECRET must be set in config or environment")
	}
	return c, nil
}

// Get returns the cached configuration, loading it if necessary.
func Get() AppConfig {
	if !loaded {
		return Load()
	}
	return cfg
}

// Set replaces the cached configuration. Intended for tests and embedding.
func Set(c AppConfig) {
	cfg = c
	loaded = true
}

// loadJSONConfig reads the JSON file into out if present. Returns error only for invalid JSON.
func loadJSONConfig(path string, out *AppConfig) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil // silently ignore missing file
	}

	var fc fileConfig
	if err := json.Unmarshal(raw, &fc); err != nil {
		return err
	}

	out.AppPort = fc.App.AppPort
	out.JWTSecret = fc.App.JWTSecret
	out.RateLimitPerMinute = fc.App.RateLimitPerMinute
	out.AllowedOrigins = fc.App.AllowedOrigins
	out.GinMode = fc.App.GinMode
	out.GinPath = fc.App.GinPath

	out.StorageDriver = fc.Storage.Driver
	out.DatabaseURI = fc.Storage.DatabaseURI
	out.DBHost = fc.Storage.DBHost
	out.DBPort = fc.Storage.DBPort
	out.DBUser = fc.Storage.DBUser
	out.DBPassword = fc.Storage.DBPassword
	out.DBName = fc.Storage.DBName
	out.MongoURI = fc.Storage.MongoURI
	out.MongoDatabase = fc.Storage.MongoDatabase
	out.BadgerPath = fc.Storage.BadgerPath

	out.RedisEnabled = fc.Redis.Enabled
	out.RedisHost = fc.Redis.Host
	out.RedisPort = fc.Redis.Port
	out.RedisDB = fc.Redis.DB
	out.RedisPassword = fc.Redis.Password

	out.LogLevel = fc.Log.Level
	out.LogPath = fc.Log.Path
	out.LogMaxSizeMB = fc.Log.MaxSizeMB
	out.LogMaxBackups = fc.Log.MaxBackups
	out.LogMaxAgeDays = fc.Log.MaxAgeDays
	out.LogCompress = fc.Log.Compress

	out.LockBackend = fc.Blog.LockBackend
	out.CreationCooldownSec = fc.Blog.CreationCooldownSec
	out.CreationLockMaxHoldSec = fc.Blog.CreationLockMaxHoldSec
	out.CacheTTLSeconds = fc.Blog.CacheTTLSeconds
	out.MaxPageSize = fc.Blog.MaxPageSize
	return nil
}

func applyDefaults(c *AppConfig) {
	if c.AppPort == "" {
		c.AppPort = "8080"
	}
	if c.RateLimitPerMinute == 0 {
		c.RateLimitPerMinute = 120
	}
	if len(c.AllowedOrigins) == 0 {
		c.AllowedOrigins = []string{"*"}
	}
	if c.GinMode == "" {
		c.GinMode = "release"
	}
	if c.GinPath == "" {
		c.GinPath = "logs/gin.log"
	}
	if c.StorageDriver == "" {
		c.StorageDriver = "mysql"
	}
	if c.DBHost == "" {
		c.DBHost = "127.0.0.1"
	}
	if c.DBPort == "" {
		c.DBPort = "3306"
	}
	if c.DBName == "" {
		c.DBName = "openbite"
	}
	if c.MongoURI == "" {
		c.MongoURI = "mongodb://localhost:27017"
	}
	if c.MongoDatabase == "" {
		c.MongoDatabase = "openbite"
	}
	if c.BadgerPath == "" {
		c.BadgerPath = "data/badger"
	}
	if c.RedisHost == "" {
		c.RedisHost = "127.0.0.1"
	}
	if c.RedisPort == 0 {
		c.RedisPort = 6379
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogPath == "" {
		c.LogPath = "logs/app.log"
	}
	if c.LockBackend == "" {
		c.LockBackend = "memory"
	}
	if c.CreationCooldownSec == 0 {
		c.CreationCooldownSec = 5
	}
	if c.CreationLockMaxHoldSec == 0 {
		c.CreationLockMaxHoldSec = 60
	}
	if c.CacheTTLSeconds == 0 {
		c.CacheTTLSeconds = 3600
	}
	if c.MaxPageSize == 0 {
		c.MaxPageSize = 100
	}
}

func applyEnvOverrides(c *AppConfig) {
	c.AppPort = getEnv("APP_PORT", c.AppPort)
	c.JWTSecret = getEnv("JWT_SECRET", c.JWTSecret)
	if v := os.Getenv("RATE_LIMIT_PER_MINUTE"); v != "" {
		c.RateLimitPerMinute = mustParseInt(v)
	}
	c.AllowedOrigins = readListEnv("ALLOWED_ORIGINS", c.AllowedOrigins)
	c.GinMode = getEnv("GIN_MODE", c.GinMode)
	c.GinPath = getEnv("GIN_LOG_PATH", c.GinPath)

	c.StorageDriver = strings.ToLower(getEnv("STORAGE_DRIVER", c.StorageDriver))
	c.DatabaseURI = getEnv("DATABASE_URI", c.DatabaseURI)
	c.DBHost = getEnv("DB_HOST", c.DBHost)
	c.DBPort = getEnv("DB_PORT", c.DBPort)
	c.DBUser = getEnv("DB_USER", c.DBUser)
	c.DBPassword = getEnv("DB_PASSWORD", c.DBPassword)
	c.DBName = getEnv("DB_NAME", c.DBName)
	c.MongoURI = getEnv("MONGO_URI", c.MongoURI)
	c.MongoDatabase = getEnv("MONGO_DATABASE", c.MongoDatabase)
	c.BadgerPath = getEnv("BADGER_PATH", c.BadgerPath)

	if v := os.Getenv("REDIS_ENABLED"); v != "" {
		c.RedisEnabled = parseBool(v)
	}
	c.RedisHost = getEnv("REDIS_HOST", c.RedisHost)
	if v := os.Getenv("REDIS_PORT"); v != "" {
		c.RedisPort = mustParseInt(v)
	}
	if v := os.Getenv("REDIS_DB"); v != "" {
		c.RedisDB = mustParseInt(v)
	}
	c.RedisPassword = getEnv("REDIS_PASSWORD", c.RedisPassword)

	c.LogLevel = strings.ToLower(getEnv("LOG_LEVEL", c.LogLevel))
	c.LogPath = getEnv("LOG_PATH", c.LogPath)
	if v := os.Getenv("LOG_MAX_SIZE_MB"); v != "" {
		c.LogMaxSizeMB = mustParseInt(v)
	}
	if v := os.Getenv("LOG_MAX_BACKUPS"); v != "" {
		c.LogMaxBackups = mustParseInt(v)
	}
	if v := os.Getenv("LOG_MAX_AGE_DAYS"); v != "" {
		c.LogMaxAgeDays = mustParseInt(v)
	}
	if v := os.Getenv("LOG_COMPRESS"); v != "" {
		c.LogCompress = parseBool(v)
	}

	c.LockBackend = strings.ToLower(getEnv("LOCK_BACKEND", c.LockBackend))
	if v := os.Getenv("CREATION_COOLDOWN_SEC"); v != "" {
		c.CreationCooldownSec = mustParseInt(v)
	}
	if v := os.Getenv("CREATION_LOCK_MAX_HOLD_SEC"); v != "" {
		c.CreationLockMaxHoldSec = mustParseInt(v)
	}
	if v := os.Getenv("CACHE_TTL_SECONDS"); v != "" {
		c.CacheTTLSeconds = mustParseInt(v)
	}
	if v := os.Getenv("MAX_PAGE_SIZE"); v != "" {
		c.MaxPageSize = mustParseInt(v)
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func mustParseInt(val string) int {
	i, err := strconv.Atoi(strings.TrimSpace(val))
	if err != nil {
		log.Fatalf("invalid integer value %q: %v", val, err)
	}
	return i
}

func parseBool(val string) bool {
	b, err := strconv.ParseBool(strings.TrimSpace(val))
	return err == nil && b
}

func readListEnv(key string, defaults []string) []string {
	if val := os.Getenv(key); val != "" {
		return splitAndTrim(val)
	}
	return defaults
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	res := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			res = append(res, p)
		}
	}
	return res
}

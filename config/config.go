package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
)

// AppConfig holds environment driven configuration values.
// Sensitive data should never have defaults inside code and must be provided via config files or the environment.
type AppConfig struct {
	AppPort            string
	JWTSecret          string
	TokenTTLHours      int
	RateLimitPerMinute int
	AllowedOrigins     []string
	SeedDemo           bool
	MetricsEnabled     bool
	StaticDir          string
	// Database: DBDriver is one of mysql, postgres, sqlite
	DBDriver    string
	DatabaseURI string
	DBHost      string
	DBPort      string
	DBUser      string
	DBPassword  string
	DBName      string
	SQLitePath  string
	// Redis for response caching; empty host disables the cache
	RedisHost       string
	RedisPort       int
	RedisDB         int
	RedisPassword   string
	CacheTTLSeconds int
	// Gin framework configuration
	GinMode string
	GinPath string
	// Logging configuration
	LogLevel      string
	LogPath       string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int
	LogCompress   bool
	// Local (single user, offline) variant
	LocalStorePath string
}

// DefaultConfigPath is where Load looks for the JSON config file.
var DefaultConfigPath = filepath.Join("config", "config.json")

var (
	cfg    AppConfig
	loaded bool
	mu     sync.Mutex
)

// Load loads the application configuration once. Precedence:
// config/config.json -> defaults -> environment variable overrides.
func Load() (AppConfig, error) {
	mu.Lock()
	defer mu.Unlock()
	if loaded {
		return cfg, nil
	}
	c, err := LoadFrom(DefaultConfigPath)
	if err != nil {
		return AppConfig{}, err
	}
	cfg, loaded = c, true
	return cfg, nil
}

// Get returns the cached configuration, loading it if necessary. Load errors
// leave the defaults in place.
func Get() AppConfig {
	c, err := Load()
	if err != nil {
		var d AppConfig
		applyDefaults(&d)
		applyEnvOverrides(&d)
		return d
	}
	return c
}

// LoadFrom builds a configuration from the JSON file at path (missing files
// are ignored), defaults and the environment.
func LoadFrom(path string) (AppConfig, error) {
	var c AppConfig
	if err := loadJSONConfig(path, &c); err != nil {
		return AppConfig{}, err
	}
	applyDefaults(&c)
	applyEnvOverrides(&c)
	return c, nil
}

// ValidateServer checks the settings the HTTP server cannot run without.
func (c AppConfig) ValidateServer() error {
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET must be set in config or environment variables")
	}
	switch c.DBDriver {
	case "mysql", "postgres", "sqlite":
	default:
		return errors.New("unsupported DB_DRIVER " + strconv.Quote(c.DBDriver))
	}
	return nil
}

// fileConfig mirrors config.json. Both grouped sections and flat keys are accepted.
type fileConfig struct {
	App      *fileApp      `json:"app"`
	Database *fileDatabase `json:"database"`
	Redis    *fileRedis    `json:"redis"`
	Log      *fileLog      `json:"log"`
	Local    *fileLocal    `json:"local"`
	fileApp
	fileDatabase
	fileRedis
	fileLog
	fileLocal
}

type fileApp struct {
	AppPort            string   `json:"AppPort"`
	JWTSecret          string   `json:"JWTSecret"`
	TokenTTLHours      int      `json:"TokenTTLHours"`
	RateLimitPerMinute int      `json:"RateLimitPerMinute"`
	AllowedOrigins     []string `json:"AllowedOrigins"`
	SeedDemo           *bool    `json:"SeedDemo"`
	MetricsEnabled     *bool    `json:"MetricsEnabled"`
	StaticDir          string   `json:"StaticDir"`
	GinMode            string   `json:"GinMode"`
	GinPath            string   `json:"GinPath"`
}

type fileDatabase struct {
	DBDriver    string `json:"DBDriver"`
	DatabaseURI string `json:"DatabaseURI"`
	DBHost      string `json:"DBHost"`
	DBPort      string `json:"DBPort"`
	DBUser      string `json:"DBUser"`
	DBPassword  string `json:"DBPassword"`
	DBName      string `json:"DBName"`
	SQLitePath  string `json:"SQLitePath"`
}

type fileRedis struct {
	RedisHost       string `json:"RedisHost"`
	RedisPort       int    `json:"RedisPort"`
	RedisDB         int    `json:"RedisDB"`
	RedisPassword   string `json:"RedisPassword"`
	CacheTTLSeconds int    `json:"CacheTTLSeconds"`
}

type fileLog struct {
	LogLevel      string `json:"LogLevel"`
	LogPath       string `json:"LogPath"`
	LogMaxSizeMB  int    `json:"LogMaxSizeMB"`
	LogMaxBackups int    `json:"LogMaxBackups"`
	LogMaxAgeDays int    `json:"LogMaxAgeDays"`
	LogCompress   bool   `json:"LogCompress"`
}

type fileLocal struct {
	LocalStorePath string `json:"LocalStorePath"`
}

// loadJSONConfig reads JSON file into out if present. Returns error only for invalid JSON.
func loadJSONConfig(path string, out *AppConfig) error {
	f, err := os.Open(path)
	if err != nil {
		return nil // silently ignore missing file
	}
	defer f.Close()

	var fc fileConfig
	if err := json.NewDecoder(f).Decode(&fc); err != nil {
		return err
	}

	// flat keys first, grouped sections win
	mergeApp(out, &fc.fileApp)
	mergeDatabase(out, &fc.fileDatabase)
	mergeRedis(out, &fc.fileRedis)
	mergeLog(out, &fc.fileLog)
	mergeLocal(out, &fc.fileLocal)
	if fc.App != nil {
		mergeApp(out, fc.App)
	}
	if fc.Database != nil {
		mergeDatabase(out, fc.Database)
	}
	if fc.Redis != nil {
		mergeRedis(out, fc.Redis)
	}
	if fc.Log != nil {
		mergeLog(out, fc.Log)
	}
	if fc.Local != nil {
		mergeLocal(out, fc.Local)
	}
	return nil
}

func mergeApp(c *AppConfig, a *fileApp) {
	setString(&c.AppPort, a.AppPort)
	setString(&c.JWTSecret, a.JWTSecret)
	setInt(&c.TokenTTLHours, a.TokenTTLHours)
	setInt(&c.RateLimitPerMinute, a.RateLimitPerMinute)
	if len(a.AllowedOrigins) > 0 {
		c.AllowedOrigins = a.AllowedOrigins
	}
	if a.SeedDemo != nil {
		c.SeedDemo = *a.SeedDemo
	}
	if a.MetricsEnabled != nil {
		c.MetricsEnabled = *a.MetricsEnabled
	}
	setString(&c.StaticDir, a.StaticDir)
	setString(&c.GinMode, a.GinMode)
	setString(&c.GinPath, a.GinPath)
}

func mergeDatabase(c *AppConfig, d *fileDatabase) {
	setString(&c.DBDriver, d.DBDriver)
	setString(&c.DatabaseURI, d.DatabaseURI)
	setString(&c.DBHost, d.DBHost)
	setString(&c.DBPort, d.DBPort)
	setString(&c.DBUser, d.DBUser)
	setString(&c.DBPassword, d.DBPassword)
	setString(&c.DBName, d.DBName)
	setString(&c.SQLitePath, d.SQLitePath)
}

func mergeRedis(c *AppConfig, r *fileRedis) {
	setString(&c.RedisHost, r.RedisHost)
	setInt(&c.RedisPort, r.RedisPort)
	setInt(&c.RedisDB, r.RedisDB)
	setString(&c.RedisPassword, r.RedisPassword)
	setInt(&c.CacheTTLSeconds, r.CacheTTLSeconds)
}

func mergeLog(c *AppConfig, l *fileLog) {
	setString(&c.LogLevel, l.LogLevel)
	setString(&c.LogPath, l.LogPath)
	setInt(&c.LogMaxSizeMB, l.LogMaxSizeMB)
	setInt(&c.LogMaxBackups, l.LogMaxBackups)
	setInt(&c.LogMaxAgeDays, l.LogMaxAgeDays)
	if l.LogCompress {
		c.LogCompress = true
	}
}

func mergeLocal(c *AppConfig, l *fileLocal) {
	setString(&c.LocalStorePath, l.LocalStorePath)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

func applyDefaults(c *AppConfig) {
	if c.AppPort == "" {
		c.AppPort = "3000"
	}
	if c.TokenTTLHours == 0 {
		c.TokenTTLHours = 7 * 24
	}
	if c.RateLimitPerMinute == 0 {
		c.RateLimitPerMinute = 60
	}
	if len(c.AllowedOrigins) == 0 {
		c.AllowedOrigins = []string{"*"}
	}
	if c.StaticDir == "" {
		c.StaticDir = "./static"
	}
	if c.DBDriver == "" {
		c.DBDriver = "mysql"
	}
	if c.DBHost == "" {
		c.DBHost = "127.0.0.1"
	}
	if c.DBPort == "" {
		if c.DBDriver == "postgres" {
			c.DBPort = "5432"
		} else {
			c.DBPort = "3306"
		}
	}
	if c.DBName == "" {
		c.DBName = "qforum"
	}
	if c.SQLitePath == "" {
		c.SQLitePath = "qforum.db"
	}
	if c.RedisPort == 0 {
		c.RedisPort = 6379
	}
	if c.CacheTTLSeconds == 0 {
		c.CacheTTLSeconds = 3600
	}
	if c.GinMode == "" {
		c.GinMode = "release"
	}
	if c.GinPath == "" {
		c.GinPath = "logs/gin.log"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LocalStorePath == "" {
		if home, err := os.UserHomeDir(); err == nil {
			c.LocalStorePath = filepath.Join(home, ".qforum")
		} else {
			c.LocalStorePath = ".qforum"
		}
	}
}

// applyEnvOverrides maps known environment variables onto config values when present.
func applyEnvOverrides(c *AppConfig) {
	strs := map[string]*string{
		"APP_PORT":         &c.AppPort,
		"JWT_SECRET":       &c.JWTSecret,
		"STATIC_DIR":       &c.StaticDir,
		"DB_DRIVER":        &c.DBDriver,
		"DATABASE_URI":     &c.DatabaseURI,
		"DB_HOST":          &c.DBHost,
		"DB_PORT":          &c.DBPort,
		"DB_USER":          &c.DBUser,
		"DB_PASSWORD":      &c.DBPassword,
		"DB_NAME":          &c.DBName,
		"SQLITE_PATH":      &c.SQLitePath,
		"REDIS_HOST":       &c.RedisHost,
		"REDIS_PASSWORD":   &c.RedisPassword,
		"GIN_MODE":         &c.GinMode,
		"GIN_PATH":         &c.GinPath,
		"LOG_LEVEL":        &c.LogLevel,
		"LOG_PATH":         &c.LogPath,
		"LOCAL_STORE_PATH": &c.LocalStorePath,
	}
	for key, dst := range strs {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	ints := map[string]*int{
		"TOKEN_TTL_HOURS":       &c.TokenTTLHours,
		"RATE_LIMIT_PER_MINUTE": &c.RateLimitPerMinute,
		"REDIS_PORT":            &c.RedisPort,
		"REDIS_DB":              &c.RedisDB,
		"CACHE_TTL_SECONDS":     &c.CacheTTLSeconds,
		"LOG_MAX_SIZE_MB":       &c.LogMaxSizeMB,
		"LOG_MAX_BACKUPS":       &c.LogMaxBackups,
		"LOG_MAX_AGE_DAYS":      &c.LogMaxAgeDays,
	}
	for key, dst := range ints {
		if v := os.Getenv(key); v != "" {
			if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
				*dst = n
			}
		}
	}

	bools := map[string]*bool{
		"LOG_COMPRESS":    &c.LogCompress,
		"SEED_DEMO":       &c.SeedDemo,
		"METRICS_ENABLED": &c.MetricsEnabled,
	}
	for key, dst := range bools {
		if v := os.Getenv(key); v != "" {
			if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
				*dst = b
			}
		}
	}

	if v := os.Getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		c.AllowedOrigins = splitAndTrim(v)
	}
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

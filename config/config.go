package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

const keyEnv = "ENV"
const envLocal = "local"

const (
	defaultPort            = "8080"
	defaultStoragePath     = "./.paperdex"
	defaultIndexPath       = "papers.bleve"
	defaultKVDBPath        = "papers.db"
	defaultPageSize        = 20
	defaultMaxPageSize     = 100
	defaultSortBy          = "name"
	defaultMatchCacheSize  = 256
	defaultLookupBaseURL   = "https://api2.openreview.net"
	defaultLookupTimeout   = 5 * time.Second
	defaultLookupRate      = 2.0
	defaultAPIBaseURL      = "http://localhost:8080"
	defaultLogLevel        = "info"
	defaultShutdownTimeout = 10 * time.Second
)

type Config struct {
	config *viper.Viper
}

func Load(env string) (*Config, error) {

	if len(env) == 0 {
		if env = os.Getenv(keyEnv); len(env) == 0 {
			env = envLocal
		}
	}

	configPath, err := getConfigPath(env)

	viperConfig := viper.New()
	setDefaults(viperConfig)
	if err == nil {
		viperConfig.SetConfigFile(configPath)
		if err := viperConfig.ReadInConfig(); err != nil {
			slog.Warn(fmt.Sprintf("error reading config file, %s", err))
		}
	}
	viperConfig.AutomaticEnv()

	cfg := &Config{
		config: viperConfig,
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", defaultPort)
	v.SetDefault("server.shutdown_timeout", defaultShutdownTimeout)
	v.SetDefault("database.storage_path", defaultStoragePath)
	v.SetDefault("database.index_path", defaultIndexPath)
	v.SetDefault("database.kvdb_path", defaultKVDBPath)
	v.SetDefault("search.default_page_size", defaultPageSize)
	v.SetDefault("search.max_page_size", defaultMaxPageSize)
	v.SetDefault("search.default_sort_by", defaultSortBy)
	v.SetDefault("search.match_cache_size", defaultMatchCacheSize)
	v.SetDefault("lookup.base_url", defaultLookupBaseURL)
	v.SetDefault("lookup.timeout", defaultLookupTimeout)
	v.SetDefault("lookup.rate_per_second", defaultLookupRate)
	v.SetDefault("client.base_url", defaultAPIBaseURL)
	v.SetDefault("logging.level", defaultLogLevel)
}

func (c *Config) GetPort() string {
	return c.getString("PORT", "server.port")
}

func (c *Config) GetShutdownTimeout() time.Duration {
	return c.getDuration("SHUTDOWN_TIMEOUT", "server.shutdown_timeout")
}

func (c *Config) GetStoragePath() string {
	return c.getString("STORAGE_PATH", "database.storage_path")
}

// GetKVDBPath returns the record store location joined onto the storage path.
func (c *Config) GetKVDBPath() string {
	return filepath.Join(c.GetStoragePath(), c.getString("KVDB_PATH", "database.kvdb_path"))
}

// GetIndexPath returns the full-text index location joined onto the storage path.
func (c *Config) GetIndexPath() string {
	return filepath.Join(c.GetStoragePath(), c.getString("INDEX_PATH", "database.index_path"))
}

func (c *Config) GetDefaultPageSize() int {
	return c.getInt("DEFAULT_PAGE_SIZE", "search.default_page_size")
}

func (c *Config) GetMaxPageSize() int {
	return c.getInt("MAX_PAGE_SIZE", "search.max_page_size")
}

func (c *Config) GetDefaultSortBy() string {
	return c.getString("DEFAULT_SORT_BY", "search.default_sort_by")
}

func (c *Config) GetMatchCacheSize() int {
	return c.getInt("MATCH_CACHE_SIZE", "search.match_cache_size")
}

// GetFacetLimits returns the per-field cap on distinct facet values. A yaml
// map under catalog.facets replaces the built-in set entirely.
func (c *Config) GetFacetLimits() map[string]int {
	limits := map[string]int{
		"decision":   50,
		"event_type": 50,
		"session":    100,
		"topic":      100,
		"keywords":   200,
		"authors":    200,
	}
	if !c.config.IsSet("catalog.facets") {
		return limits
	}

	configured := c.config.GetStringMap("catalog.facets")
	if len(configured) == 0 {
		return limits
	}
	limits = make(map[string]int, len(configured))
	for field := range configured {
		limits[field] = c.config.GetInt("catalog.facets." + field)
	}
	return limits
}

func (c *Config) GetLookupBaseURL() string {
	return c.getString("LOOKUP_BASE_URL", "lookup.base_url")
}

func (c *Config) GetLookupTimeout() time.Duration {
	return c.getDuration("LOOKUP_TIMEOUT", "lookup.timeout")
}

func (c *Config) GetLookupRate() float64 {
	if rate := c.config.GetFloat64("LOOKUP_RATE"); rate > 0 {
		return rate
	}
	return c.config.GetFloat64("lookup.rate_per_second")
}

func (c *Config) GetAPIBaseURL() string {
	return c.getString("API_BASE_URL", "client.base_url")
}

func (c *Config) GetLogLevel() string {
	return c.getString("LOG_LEVEL", "logging.level")
}

func (c *Config) getString(envKey string, yamlKey string) string {
	value := c.config.GetString(envKey)
	if len(value) == 0 {
		value = c.config.GetString(yamlKey)
	}

	return value
}

func (c *Config) getInt(envKey string, yamlKey string) int {
	value := c.config.GetInt(envKey)
	if value == 0 {
		value = c.config.GetInt(yamlKey)
	}

	return value
}

func (c *Config) getDuration(envKey string, yamlKey string) time.Duration {
	value := c.config.GetDuration(envKey)
	if value == 0 {
		value = c.config.GetDuration(yamlKey)
	}

	return value
}

func getProjectRoot() (string, error) {
	currentDir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get current working directory: %w", err)
	}

	for {
		configDir := filepath.Join(currentDir, "config")
		if info, err := os.Stat(configDir); err == nil && info.IsDir() {
			return currentDir, nil
		}

		parent := filepath.Dir(currentDir)

		if parent == currentDir {
			break
		}

		currentDir = parent
	}

	return "", fmt.Errorf("could not find project root (directory containing 'config' folder)")
}

func getConfigPath(env string) (string, error) {
	configFile := fmt.Sprintf("config.%s.yaml", env)

	projectRoot, err := getProjectRoot()
	if err != nil {
		slog.Warn("failed to find project root with config directory, will use environment variables instead", "err", err.Error())
		return "", fmt.Errorf("failed to find project root: %w", err)
	}
	configPath := filepath.Join(projectRoot, "config", configFile)
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		slog.Warn("failed to find config file within config directory, will use environment variables instead", "err", err.Error())
		return "", fmt.Errorf("config file does not exist: %s", configPath)
	}

	return configPath, nil
}

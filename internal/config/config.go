package config

import (
	"bufio"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config holds runtime configuration for the panel service.
type Config struct {
	ListenAddr      string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration

	LogLevel  string
	LogFormat string

	TargetHost      string
	DefaultPort     string
	ProbeTimeout    time.Duration
	RefreshInterval time.Duration

	SettingsBackend    string
	SettingsSQLitePath string
	SettingsYAMLPath   string

	SettingsMySQLHost     string
	SettingsMySQLPort     int
	SettingsMySQLUser     string
	SettingsMySQLPassword string
	SettingsMySQLName     string
	SettingsConnTimeout   time.Duration
	SettingsQueryTimeout  time.Duration

	SettingsPostgresDSN string
}

// FromEnv loads configuration from environment variables with sensible defaults.
func FromEnv() Config {
	loadConfigDefaultsFromFile()

	return Config{
		ListenAddr:            getEnv("APP_LISTEN_ADDR", ":8090"),
		ReadTimeout:           time.Duration(getEnvInt("APP_READ_TIMEOUT_SEC", 10)) * time.Second,
		WriteTimeout:          time.Duration(getEnvInt("APP_WRITE_TIMEOUT_SEC", 20)) * time.Second,
		ShutdownTimeout:       time.Duration(getEnvInt("APP_SHUTDOWN_TIMEOUT_SEC", 10)) * time.Second,
		LogLevel:              getEnv("APP_LOG_LEVEL", "info"),
		LogFormat:             getEnv("APP_LOG_FORMAT", "json"),
		TargetHost:            getEnv("PANEL_TARGET_HOST", "localhost"),
		DefaultPort:           getEnv("PANEL_DEFAULT_PORT", "8080"),
		ProbeTimeout:          time.Duration(getEnvInt("PANEL_PROBE_TIMEOUT_SEC", 0)) * time.Second,
		RefreshInterval:       time.Duration(getEnvInt("PANEL_REFRESH_INTERVAL_SEC", 0)) * time.Second,
		SettingsBackend:       strings.ToLower(getEnv("PANEL_SETTINGS_BACKEND", "sqlite")),
		SettingsSQLitePath:    getEnv("PANEL_SETTINGS_SQLITE_PATH", "fl-status-panel.db"),
		SettingsYAMLPath:      getEnv("PANEL_SETTINGS_YAML_PATH", "fl-status-panel.yaml"),
		SettingsMySQLHost:     getEnv("PANEL_SETTINGS_MYSQL_HOST", "127.0.0.1"),
		SettingsMySQLPort:     getEnvInt("PANEL_SETTINGS_MYSQL_PORT", 3306),
		SettingsMySQLUser:     getEnv("PANEL_SETTINGS_MYSQL_USER", "panel"),
		SettingsMySQLPassword: getEnv("PANEL_SETTINGS_MYSQL_PASSWORD", ""),
		SettingsMySQLName:     getEnv("PANEL_SETTINGS_MYSQL_NAME", "panel"),
		SettingsConnTimeout:   time.Duration(getEnvInt("PANEL_SETTINGS_CONN_TIMEOUT_SEC", 5)) * time.Second,
		SettingsQueryTimeout:  time.Duration(getEnvInt("PANEL_SETTINGS_QUERY_TIMEOUT_SEC", 5)) * time.Second,
		SettingsPostgresDSN:   getEnv("PANEL_SETTINGS_POSTGRES_DSN", ""),
	}
}

func loadConfigDefaultsFromFile() {
	bootstrapCandidates := []string{
		"./fl-status-panel.env",
		"/etc/default/fl-status-panel",
	}

	for _, candidate := range bootstrapCandidates {
		abs := candidate
		if !filepath.IsAbs(candidate) {
			if wd, err := os.Getwd(); err == nil {
				abs = filepath.Join(wd, candidate)
			}
		}
		_ = applyEnvDefaultsFromFile(abs)
	}

	candidates := make([]string, 0, 2)
	if explicit := strings.TrimSpace(os.Getenv("APP_CONFIG_FILE")); explicit != "" {
		candidates = append(candidates, explicit)
	}
	candidates = append(candidates, "/etc/fl-status-panel/config.env")

	for _, candidate := range candidates {
		abs := candidate
		if !filepath.IsAbs(candidate) {
			if wd, err := os.Getwd(); err == nil {
				abs = filepath.Join(wd, candidate)
			}
		}

		if err := applyEnvDefaultsFromFile(abs); err == nil {
			return
		}
	}
}

// applyEnvDefaultsFromFile sets KEY=VALUE pairs from path without overriding
// variables that are already present in the environment.
func applyEnvDefaultsFromFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		kv := strings.SplitN(line, "=", 2)
		if len(kv) != 2 {
			continue
		}

		key := strings.TrimSpace(kv[0])
		val := strings.TrimSpace(kv[1])
		if key == "" {
			continue
		}

		if len(val) >= 2 {
			if (val[0] == '"' && val[len(val)-1] == '"') || (val[0] == '\'' && val[len(val)-1] == '\'') {
				val = val[1 : len(val)-1]
			}
		}

		if os.Getenv(key) == "" {
			_ = os.Setenv(key, val)
		}
	}

	return scanner.Err()
}

// SettingsMySQLDSN returns a mysql driver DSN for the settings table.
func (c Config) SettingsMySQLDSN() string {
	params := url.Values{}
	params.Set("parseTime", "true")
	params.Set("timeout", c.SettingsConnTimeout.String())
	params.Set("readTimeout", c.SettingsQueryTimeout.String())
	params.Set("writeTimeout", c.SettingsQueryTimeout.String())
	params.Set("charset", "utf8mb4")
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?%s", c.SettingsMySQLUser, c.SettingsMySQLPassword, c.SettingsMySQLHost, c.SettingsMySQLPort, c.SettingsMySQLName, params.Encode())
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvInt(key string, def int) int {
	val := os.Getenv(key)
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return def
	}
	return parsed
}

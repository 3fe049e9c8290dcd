package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration options for the art bot
type Config struct {
	// Museum collection API settings
	Museum MuseumConfig `yaml:"museum" toml:"museum" json:"museum"`

	// X/Twitter credentials and endpoints
	Twitter TwitterConfig `yaml:"twitter" toml:"twitter" json:"twitter"`

	// Artwork selection
	Picker PickerConfig `yaml:"picker" toml:"picker" json:"picker"`

	// Image download and staging
	Download DownloadConfig `yaml:"download" toml:"download" json:"download"`

	// Client-side request pacing
	RateLimit RateLimitConfig `yaml:"rate_limit" toml:"rate_limit" json:"rate_limit"`

	// Transient failure retries
	Retry RetryConfig `yaml:"retry" toml:"retry" json:"retry"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" toml:"logging" json:"logging"`
}

// MuseumConfig holds collection API configuration
type MuseumConfig struct {
	BaseURL   string        `yaml:"base_url" toml:"base_url" json:"base_url"`
	UserAgent string        `yaml:"user_agent" toml:"user_agent" json:"user_agent"`
	Timeout   time.Duration `yaml:"timeout" toml:"timeout" json:"timeout"`
}

// TwitterConfig holds the four OAuth 1.0a credential values and API endpoints
type TwitterConfig struct {
	APIKey            string        `yaml:"api_key" toml:"api_key" json:"api_key"`
	APISecret         string        `yaml:"api_secret" toml:"api_secret" json:"api_secret"`
	AccessToken       string        `yaml:"access_token" toml:"access_token" json:"access_token"`
	AccessTokenSecret string        `yaml:"access_token_secret" toml:"access_token_secret" json:"access_token_secret"`
	UploadURL         string        `yaml:"upload_url" toml:"upload_url" json:"upload_url"`
	APIURL            string        `yaml:"api_url" toml:"api_url" json:"api_url"`
	Timeout           time.Duration `yaml:"timeout" toml:"timeout" json:"timeout"`
}

// PickerConfig holds artwork selection configuration
type PickerConfig struct {
	SearchTerm  string `yaml:"search_term" toml:"search_term" json:"search_term"`
	MaxAttempts int    `yaml:"max_attempts" toml:"max_attempts" json:"max_attempts"`
}

// DownloadConfig holds image download configuration
type DownloadConfig struct {
	Timeout        time.Duration `yaml:"timeout" toml:"timeout" json:"timeout"`
	TempDir        string        `yaml:"temp_dir" toml:"temp_dir" json:"temp_dir"`
	MaxImageBytes  int64         `yaml:"max_image_bytes" toml:"max_image_bytes" json:"max_image_bytes"`
	MaxUploadBytes int64         `yaml:"max_upload_bytes" toml:"max_upload_bytes" json:"max_upload_bytes"`
	MaxDimension   int           `yaml:"max_dimension" toml:"max_dimension" json:"max_dimension"`
}

// RateLimitConfig holds request pacing configuration
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" toml:"requests_per_second" json:"requests_per_second"`
	Burst             int     `yaml:"burst" toml:"burst" json:"burst"`
}

// RetryConfig holds retry configuration for idempotent transfers
type RetryConfig struct {
	MaxAttempts int           `yaml:"max_attempts" toml:"max_attempts" json:"max_attempts"`
	BaseDelay   time.Duration `yaml:"base_delay" toml:"base_delay" json:"base_delay"`
	MaxDelay    time.Duration `yaml:"max_delay" toml:"max_delay" json:"max_delay"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level      string `yaml:"level" toml:"level" json:"level"`
	File       string `yaml:"file" toml:"file" json:"file"`
	MaxSize    int    `yaml:"max_size" toml:"max_size" json:"max_size"`
	MaxBackups int    `yaml:"max_backups" toml:"max_backups" json:"max_backups"`
	MaxAge     int    `yaml:"max_age" toml:"max_age" json:"max_age"`
	Compress   bool   `yaml:"compress" toml:"compress" json:"compress"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Museum: MuseumConfig{
			BaseURL:   "https://collectionapi.metmuseum.org/public/collection/v1",
			UserAgent: "artbot/1.0 (+https://github.com/artbot/artbot)",
			Timeout:   15 * time.Second,
		},
		Twitter: TwitterConfig{
			UploadURL: "https://upload.twitter.com/1.1/media/upload.json",
			APIURL:    "https://api.twitter.com/2",
			Timeout:   30 * time.Second,
		},
		Picker: PickerConfig{
			SearchTerm:  "cat",
			MaxAttempts: 25,
		},
		Download: DownloadConfig{
			Timeout:        60 * time.Second,
			TempDir:        "",
			MaxImageBytes:  50 << 20,
			MaxUploadBytes: 5 << 20, // X image upload limit
			MaxDimension:   4096,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 20,
			Burst:             1,
		},
		Retry: RetryConfig{
			MaxAttempts: 3,
			BaseDelay:   1 * time.Second,
			MaxDelay:    10 * time.Second,
		},
		Logging: LoggingConfig{
			Level:      "info",
			File:       "",
			MaxSize:    10,
			MaxBackups: 3,
			MaxAge:     28,
			Compress:   false,
		},
	}
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	// Credentials keep the bare names used by the .env files of the bot
	if v := os.Getenv("API_KEY"); v != "" {
		c.Twitter.APIKey = v
	}
	if v := os.Getenv("API_SECRET"); v != "" {
		c.Twitter.APISecret = v
	}
	if v := os.Getenv("ACCESS_TOKEN"); v != "" {
		c.Twitter.AccessToken = v
	}
	if v := os.Getenv("ACCESS_TOKEN_SECRET"); v != "" {
		c.Twitter.AccessTokenSecret = v
	}

	if term := os.Getenv("ARTBOT_SEARCH_TERM"); term != "" {
		c.Picker.SearchTerm = term
	}
	if attempts := os.Getenv("ARTBOT_MAX_ATTEMPTS"); attempts != "" {
		val, err := strconv.Atoi(attempts)
		if err != nil {
			return fmt.Errorf("invalid ARTBOT_MAX_ATTEMPTS %q: %w", attempts, err)
		}
		c.Picker.MaxAttempts = val
	}
	if baseURL := os.Getenv("ARTBOT_MET_BASE_URL"); baseURL != "" {
		c.Museum.BaseURL = baseURL
	}
	if rps := os.Getenv("ARTBOT_REQUESTS_PER_SECOND"); rps != "" {
		val, err := strconv.ParseFloat(rps, 64)
		if err != nil {
			return fmt.Errorf("invalid ARTBOT_REQUESTS_PER_SECOND %q: %w", rps, err)
		}
		c.RateLimit.RequestsPerSecond = val
	}
	if tempDir := os.Getenv("ARTBOT_TEMP_DIR"); tempDir != "" {
		c.Download.TempDir = tempDir
	}

	if logLevel := os.Getenv("ARTBOT_LOG_LEVEL"); logLevel != "" {
		c.Logging.Level = logLevel
	}
	if logFile := os.Getenv("ARTBOT_LOG_FILE"); logFile != "" {
		c.Logging.File = logFile
	}

	return nil
}

// LoadFromFile loads configuration from a YAML or TOML file
func (c *Config) LoadFromFile(path string) error {
	// If path is empty, try default locations
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil // No config file found, not an error
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if isTOML(path) {
		if _, err := toml.Decode(string(data), c); err != nil {
			return fmt.Errorf("failed to parse config file: %w", err)
		}
		return nil
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// findConfigFile searches for config file in standard locations
func (c *Config) findConfigFile() string {
	for _, loc := range SearchPaths() {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}
	return ""
}

// SearchPaths lists the config file locations in order of precedence
func SearchPaths() []string {
	home := os.Getenv("HOME")
	return []string{
		".artbot.yaml",
		".artbot.yml",
		".artbot.toml",
		filepath.Join(home, ".config", "artbot", "config.yaml"),
		filepath.Join(home, ".config", "artbot", "config.yml"),
		filepath.Join(home, ".config", "artbot", "config.toml"),
	}
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	if c.Museum.BaseURL == "" {
		errs = append(errs, errors.New("museum base URL is required"))
	}
	if c.Museum.Timeout <= 0 {
		errs = append(errs, errors.New("museum timeout must be positive"))
	}

	if strings.TrimSpace(c.Picker.SearchTerm) == "" {
		errs = append(errs, errors.New("search term is required"))
	}
	if c.Picker.MaxAttempts <= 0 {
		errs = append(errs, errors.New("max attempts must be positive"))
	}

	if c.Download.Timeout <= 0 {
		errs = append(errs, errors.New("download timeout must be positive"))
	}
	if c.Download.MaxImageBytes <= 0 {
		errs = append(errs, errors.New("max image bytes must be positive"))
	}
	if c.Download.MaxUploadBytes <= 0 {
		errs = append(errs, errors.New("max upload bytes must be positive"))
	}
	if c.Download.MaxDimension < 0 {
		errs = append(errs, errors.New("max dimension cannot be negative"))
	}

	if c.RateLimit.RequestsPerSecond < 0 {
		errs = append(errs, errors.New("requests per second cannot be negative"))
	}
	if c.RateLimit.Burst <= 0 {
		errs = append(errs, errors.New("burst size must be positive"))
	}

	if c.Retry.MaxAttempts <= 0 {
		errs = append(errs, errors.New("retry max attempts must be positive"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// ValidateCredentials checks that all four X credentials are present
func (c *Config) ValidateCredentials() error {
	var errs []error
	if c.Twitter.APIKey == "" {
		errs = append(errs, errors.New("API key is required (API_KEY)"))
	}
	if c.Twitter.APISecret == "" {
		errs = append(errs, errors.New("API secret is required (API_SECRET)"))
	}
	if c.Twitter.AccessToken == "" {
		errs = append(errs, errors.New("access token is required (ACCESS_TOKEN)"))
	}
	if c.Twitter.AccessTokenSecret == "" {
		errs = append(errs, errors.New("access token secret is required (ACCESS_TOKEN_SECRET)"))
	}
	return errors.Join(errs...)
}

// HasCredentials reports whether all four X credentials are set
func (c *Config) HasCredentials() bool {
	return c.ValidateCredentials() == nil
}

// Save saves the configuration to a file, as TOML for .toml paths and YAML otherwise
func (c *Config) Save(path string) error {
	var data []byte
	if isTOML(path) {
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(c); err != nil {
			return fmt.Errorf("failed to marshal config: %w", err)
		}
		data = buf.Bytes()
	} else {
		var err error
		data, err = yaml.Marshal(c)
		if err != nil {
			return fmt.Errorf("failed to marshal config: %w", err)
		}
	}

	// Create directory if it doesn't exist
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Sanitized returns a copy of the configuration with credentials masked
func (c *Config) Sanitized() *Config {
	cp := *c
	cp.Twitter.APIKey = MaskSecret(c.Twitter.APIKey)
	cp.Twitter.APISecret = MaskSecret(c.Twitter.APISecret)
	cp.Twitter.AccessToken = MaskSecret(c.Twitter.AccessToken)
	cp.Twitter.AccessTokenSecret = MaskSecret(c.Twitter.AccessTokenSecret)
	return &cp
}

// MaskSecret masks all but the first 4 and last 4 characters of a secret
func MaskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return "********"
	}
	return s[:4] + "..." + s[len(s)-4:]
}

// MergeCommandLineFlags merges command line flags into the configuration
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if term, ok := flags["search-term"].(string); ok && term != "" {
		c.Picker.SearchTerm = term
	}
	if attempts, ok := flags["max-attempts"].(int); ok && attempts > 0 {
		c.Picker.MaxAttempts = attempts
	}
	if tempDir, ok := flags["temp-dir"].(string); ok && tempDir != "" {
		c.Download.TempDir = tempDir
	}
	if baseURL, ok := flags["met-base-url"].(string); ok && baseURL != "" {
		c.Museum.BaseURL = baseURL
	}
	if logLevel, ok := flags["log-level"].(string); ok && logLevel != "" {
		c.Logging.Level = logLevel
	}
	if logFile, ok := flags["log-file"].(string); ok && logFile != "" {
		c.Logging.File = logFile
	}
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	// Try to load .env files (don't fail if they don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".artbot.env"))

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	// Override with environment variables (includes values from .env)
	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	config.MergeCommandLineFlags(flags)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

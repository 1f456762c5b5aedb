// Package config loads debits settings from an optional YAML file and
// DEBITS_* environment variables.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"

	"github.com/nv-h/gmail-debit-client/internal/core"
)

const (
	EnvPrefix         = "DEBITS_"
	maxConfigFileSize = 1024 * 1024
)

const (
	MailBackendGmail  = "gmail"
	MailBackendMemory = "memory"
)

type Config struct {
	// Snapshot cache
	CacheDir   string `koanf:"cache_dir"`
	FilePrefix string `koanf:"file_prefix"`

	// Fetch window
	FloorMonth    string   `koanf:"floor_month"`
	WindowDays    int      `koanf:"window_days"`
	SearchSubject string   `koanf:"search_subject"`
	ValidSenders  []string `koanf:"valid_senders"`
	Timezone      string   `koanf:"timezone"`

	// Mailbox
	MailBackend     string `koanf:"mail_backend"`
	MailDir         string `koanf:"mail_dir"`
	OAuthClientFile string `koanf:"oauth_client_file"`
	OAuthClientJSON string `koanf:"oauth_client_json"`
	OAuthTokenFile  string `koanf:"oauth_token_file"`
	OAuthTokenJSON  string `koanf:"oauth_token_json"`

	// Ingestion ledger; "-" disables it
	LedgerPath string `koanf:"ledger_path"`

	// AMQP, optional
	AMQPURL      string `koanf:"amqp_url"`
	AMQPExchange string `koanf:"amqp_exchange"`
	AMQPQueue    string `koanf:"amqp_queue"`

	LogLevel string `koanf:"log_level"`
}

// Defaults returns the configuration used when nothing is set.
func Defaults() Config {
	return Config{
		CacheDir:        "outputs",
		FilePrefix:      "result_debit_",
		FloorMonth:      "2025-01",
		WindowDays:      365,
		SearchSubject:   "口座振替",
		ValidSenders:    []string{"post_master@netbk.co.jp", "@netbk.co.jp"},
		Timezone:        "Local",
		MailBackend:     MailBackendGmail,
		MailDir:         "mail",
		OAuthClientFile: "credentials.json",
		OAuthTokenFile:  "token.json",
		AMQPExchange:    "debits",
		AMQPQueue:       "records_fetched",
		LogLevel:        "info",
	}
}

// Load reads configPath (skipped when empty) and then the environment.
// Environment variables win over the file; unset values fall back to
// Defaults. The result is not validated.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if configPath != "" {
		content, err := readConfigFile(configPath)
		if err != nil {
			return nil, err
		}
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", configPath, err)
		}
	}

	// DEBITS_CACHE_DIR -> cache_dir
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	}), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func readConfigFile(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat config file: %w", err)
	}
	if info.Size() > maxConfigFileSize {
		return nil, fmt.Errorf("config file %s is larger than %d bytes", path, maxConfigFileSize)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	return content, nil
}

// applyDefaults fills every unset value from Defaults.
func (c *Config) applyDefaults() {
	d := Defaults()
	if strings.TrimSpace(c.CacheDir) == "" {
		c.CacheDir = d.CacheDir
	}
	if c.FilePrefix == "" {
		c.FilePrefix = d.FilePrefix
	}
	if c.FloorMonth == "" {
		c.FloorMonth = d.FloorMonth
	}
	if c.WindowDays == 0 {
		c.WindowDays = d.WindowDays
	}
	if strings.TrimSpace(c.SearchSubject) == "" {
		c.SearchSubject = d.SearchSubject
	}
	// DEBITS_VALID_SENDERS arrives as one comma-separated entry.
	var senders []string
	for _, entry := range c.ValidSenders {
		for _, s := range strings.Split(entry, ",") {
			if s = strings.TrimSpace(s); s != "" {
				senders = append(senders, s)
			}
		}
	}
	if len(senders) == 0 {
		senders = d.ValidSenders
	}
	c.ValidSenders = senders
	if c.Timezone == "" {
		c.Timezone = d.Timezone
	}
	if c.MailBackend == "" {
		c.MailBackend = d.MailBackend
	}
	if c.MailDir == "" {
		c.MailDir = d.MailDir
	}
	if c.OAuthClientFile == "" {
		c.OAuthClientFile = d.OAuthClientFile
	}
	if c.OAuthTokenFile == "" {
		c.OAuthTokenFile = d.OAuthTokenFile
	}
	if c.AMQPExchange == "" {
		c.AMQPExchange = d.AMQPExchange
	}
	if c.AMQPQueue == "" {
		c.AMQPQueue = d.AMQPQueue
	}
	if c.LedgerPath == "" {
		c.LedgerPath = filepath.Join(c.CacheDir, "debits_ledger.db")
	}
	if c.LogLevel == "" {
		c.LogLevel = d.LogLevel
	}
}

// LedgerEnabled reports whether the ingestion ledger should be opened.
func (c *Config) LedgerEnabled() bool {
	return c.LedgerPath != "-"
}

// Location resolves Timezone.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" || strings.EqualFold(c.Timezone, "local") {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// Floor returns FloorMonth as a period. Callers should Validate first.
func (c *Config) Floor() core.Period {
	return core.Period(strings.TrimSpace(c.FloorMonth))
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if strings.TrimSpace(c.CacheDir) == "" {
		errors = append(errors, "cache directory cannot be empty")
	}
	if strings.ContainsAny(c.FilePrefix, `/\`) {
		errors = append(errors, fmt.Sprintf("invalid file prefix '%s': must not contain path separators", c.FilePrefix))
	}
	if _, err := core.ParsePeriod(c.FloorMonth); err != nil {
		errors = append(errors, fmt.Sprintf("invalid floor month '%s': must be YYYY-MM", c.FloorMonth))
	}
	if c.WindowDays < 1 {
		errors = append(errors, fmt.Sprintf("invalid window days %d: must be at least 1", c.WindowDays))
	} else if c.WindowDays > 3660 {
		errors = append(errors, fmt.Sprintf("invalid window days %d: must be at most 3660", c.WindowDays))
	}
	if strings.ContainsAny(c.SearchSubject, "()") {
		errors = append(errors, fmt.Sprintf("invalid search subject '%s': must not contain parentheses", c.SearchSubject))
	}
	if _, err := c.Location(); err != nil {
		errors = append(errors, fmt.Sprintf("invalid timezone '%s': %v", c.Timezone, err))
	}

	switch c.MailBackend {
	case MailBackendGmail:
		if c.OAuthClientFile == "" && c.OAuthClientJSON == "" {
			errors = append(errors, "either oauth_client_file or oauth_client_json must be provided for gmail backend")
		}
		if c.OAuthTokenFile == "" && c.OAuthTokenJSON == "" {
			errors = append(errors, "either oauth_token_file or oauth_token_json must be provided for gmail backend")
		}
		if c.OAuthClientJSON == "" && c.OAuthClientFile != "" {
			if _, err := os.Stat(c.OAuthClientFile); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("OAuth client file does not exist: %s", c.OAuthClientFile))
			}
		}
	case MailBackendMemory:
		if c.MailDir == "" {
			errors = append(errors, "mail directory is required for memory backend")
		}
	default:
		errors = append(errors, fmt.Sprintf("invalid mail backend '%s': must be one of [%s %s]", c.MailBackend, MailBackendGmail, MailBackendMemory))
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be debug, info, warn or error", c.LogLevel))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

package conf

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/devricklin/wechat-oa-bridge/internal/biz/usecase"
	"github.com/devricklin/wechat-oa-bridge/internal/infra/wechat"
)

// Config represents application configuration
type Config struct {
	// WeChat Official Account configuration
	Wechat WechatConfig

	// HTTP server configuration
	HTTP HTTPConfig

	// User directory configuration
	User UserConfig

	// Reply texts (loaded from YAML)
	Replies *RepliesConfig

	// Logging configuration
	Log LogConfig

	// Debug mode
	Debug bool
}

// WechatConfig contains Official Account credentials
type WechatConfig struct {
	AppID          string
	AppSecret      string
	Token          string
	EncodingAESKey string // Unused, messages are handled in plaintext mode
	APIBaseURL     string
	Timeout        time.Duration
}

// HTTPConfig contains HTTP server configuration
type HTTPConfig struct {
	Port int
}

// UserConfig contains user directory configuration
type UserConfig struct {
	DBPath   string
	SyncCron string // Empty disables periodic follower sync
}

// LogConfig contains logging configuration
type LogConfig struct {
	Level    string
	Format   string
	File     string
	MaxLines int // Line cap of File, 0 means DefaultLogMaxLines
}

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv() *Config {
	userDBPath := os.Getenv("USER_DB_PATH")
	if userDBPath == "" {
		homeDir, _ := os.UserHomeDir()
		userDBPath = filepath.Join(homeDir, ".wechat-oa-bridge", "users.db")
	}

	port := 3000
	if val := os.Getenv("HTTP_PORT"); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			port = parsed
		}
	}

	timeout := 10 * time.Second
	if val := os.Getenv("HTTP_TIMEOUT"); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil {
			timeout = parsed
		}
	}

	apiBaseURL := os.Getenv("WECHAT_API_BASE_URL")
	if apiBaseURL == "" {
		apiBaseURL = wechat.DefaultBaseURL
	}

	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}

	logMaxLines := DefaultLogMaxLines
	if val := os.Getenv("LOG_MAX_LINES"); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			logMaxLines = parsed
		}
	}

	replies, err := LoadRepliesConfig(os.Getenv("REPLIES_CONFIG_PATH"))
	if err != nil {
		logrus.WithError(err).Warn("using default reply texts")
	}

	return &Config{
		Wechat: WechatConfig{
			AppID:          os.Getenv("WECHAT_APP_ID"),
			AppSecret:      os.Getenv("WECHAT_APP_SECRET"),
			Token:          os.Getenv("WECHAT_TOKEN"),
			EncodingAESKey: os.Getenv("WECHAT_ENCODING_AES_KEY"),
			APIBaseURL:     apiBaseURL,
			Timeout:        timeout,
		},
		HTTP: HTTPConfig{
			Port: port,
		},
		User: UserConfig{
			DBPath:   userDBPath,
			SyncCron: os.Getenv("FOLLOWER_SYNC_CRON"),
		},
		Replies: replies,
		Log: LogConfig{
			Level:    logLevel,
			Format:   os.Getenv("LOG_FORMAT"),
			File:     os.Getenv("LOG_FILE"),
			MaxLines: logMaxLines,
		},
		Debug: os.Getenv("DEBUG") == "true",
	}
}

// ToRouterConfig converts to message router configuration
func (c *Config) ToRouterConfig() usecase.RouterConfig {
	if c.Replies == nil {
		return usecase.DefaultRouterConfig
	}
	return usecase.RouterConfig{
		Welcome:    c.Replies.Welcome,
		EchoPrefix: c.Replies.EchoPrefix,
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Wechat.AppID == "" || c.Wechat.AppSecret == "" {
		return &ConfigError{Field: "WECHAT_APP_ID/WECHAT_APP_SECRET", Message: "required"}
	}
	if c.Wechat.Token == "" {
		return &ConfigError{Field: "WECHAT_TOKEN", Message: "required"}
	}
	if key := c.Wechat.EncodingAESKey; key != "" && len(key) != 43 {
		return &ConfigError{Field: "WECHAT_ENCODING_AES_KEY", Message: "must be 43 characters"}
	}
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return &ConfigError{Field: "HTTP_PORT", Message: "out of range"}
	}
	if c.Wechat.Timeout <= 0 {
		return &ConfigError{Field: "HTTP_TIMEOUT", Message: "must be positive"}
	}
	if c.Log.MaxLines < 0 {
		return &ConfigError{Field: "LOG_MAX_LINES", Message: "must not be negative"}
	}
	return nil
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return e.Field + ": " + e.Message
}

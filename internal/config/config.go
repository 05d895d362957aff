package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const DefaultPath = "config/config.yaml"

type AppConfig struct {
	Env             string `mapstructure:"env"`
	Port            int    `mapstructure:"port"`
	ShutdownSeconds int    `mapstructure:"shutdown_seconds"`
}

func (a AppConfig) PortString() string { return fmt.Sprintf("%d", a.Port) }

func (a AppConfig) Development() bool { return a.Env == "development" }

type MongoConfig struct {
	URI                     string `mapstructure:"uri"`
	Database                string `mapstructure:"database"`
	ConversationsCollection string `mapstructure:"conversations_collection"`
	UsersCollection         string `mapstructure:"users_collection"`
}

type RedisConfig struct {
	Enabled          bool   `mapstructure:"enabled"`
	Addr             string `mapstructure:"addr"`
	Password         string `mapstructure:"password"`
	DB               int    `mapstructure:"db"`
	UnreadTTLSeconds int    `mapstructure:"unread_ttl_seconds"`
}

type KafkaConfig struct {
	Enabled     bool     `mapstructure:"enabled"`
	Brokers     []string `mapstructure:"brokers"`
	TopicEvents string   `mapstructure:"topic_events"`
}

type JWTConfig struct {
	Algorithm     string `mapstructure:"algorithm"`
	PublicKeyPath string `mapstructure:"public_key_path"`
	HSSecret      string `mapstructure:"hs_secret"`
}

type IdentityConfig struct {
	Driver         string `mapstructure:"driver"`
	BaseURL        string `mapstructure:"base_url"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	MaxFailures    uint32 `mapstructure:"max_failures"`
}

type ConversationConfig struct {
	PreviewLength int `mapstructure:"preview_length"`
}

type RateLimitConfig struct {
	SendPerMinute int `mapstructure:"send_per_minute"`
	Burst         int `mapstructure:"burst"`
}

// ReadReceiptConfig drives the read-confirmation client.
type ReadReceiptConfig struct {
	BaseURL          string  `mapstructure:"base_url"`
	VisibleThreshold float64 `mapstructure:"visible_threshold"`
	DwellMS          int     `mapstructure:"dwell_ms"`
	FlushIntervalMS  int     `mapstructure:"flush_interval_ms"`
	PollIntervalMS   int     `mapstructure:"poll_interval_ms"`
	MaxRetries       int     `mapstructure:"max_retries"`
	RequestsPerSec   float64 `mapstructure:"requests_per_second"`
}

type Config struct {
	App          AppConfig          `mapstructure:"app"`
	Mongo        MongoConfig        `mapstructure:"mongodb"`
	Redis        RedisConfig        `mapstructure:"redis"`
	Kafka        KafkaConfig        `mapstructure:"kafka"`
	JWT          JWTConfig          `mapstructure:"jwt"`
	Identity     IdentityConfig     `mapstructure:"identity"`
	Conversation ConversationConfig `mapstructure:"conversation"`
	RateLimit    RateLimitConfig    `mapstructure:"ratelimit"`
	ReadReceipt  ReadReceiptConfig  `mapstructure:"readreceipt"`

	// derived values
	ShutdownTimeout time.Duration
	UnreadTTL       time.Duration
	IdentityTimeout time.Duration
	Dwell           time.Duration
	FlushInterval   time.Duration
	PollInterval    time.Duration
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.env", "production")
	v.SetDefault("app.port", 8085)
	v.SetDefault("app.shutdown_seconds", 10)
	v.SetDefault("mongodb.uri", "mongodb://localhost:27017")
	v.SetDefault("mongodb.database", "healing")
	v.SetDefault("mongodb.conversations_collection", "conversations")
	v.SetDefault("mongodb.users_collection", "users")
	v.SetDefault("redis.enabled", true)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.unread_ttl_seconds", 300)
	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.topic_events", "conversation.events")
	v.SetDefault("jwt.algorithm", "RS256")
	v.SetDefault("jwt.public_key_path", "./keys/jwt_pub.pem")
	v.SetDefault("jwt.hs_secret", "")
	v.SetDefault("identity.driver", "mongo")
	v.SetDefault("identity.base_url", "")
	v.SetDefault("identity.timeout_seconds", 5)
	v.SetDefault("identity.max_failures", 5)
	v.SetDefault("conversation.preview_length", 50)
	v.SetDefault("ratelimit.send_per_minute", 30)
	v.SetDefault("ratelimit.burst", 5)
	v.SetDefault("readreceipt.base_url", "http://localhost:8085")
	v.SetDefault("readreceipt.visible_threshold", 0.6)
	v.SetDefault("readreceipt.dwell_ms", 2000)
	v.SetDefault("readreceipt.flush_interval_ms", 2000)
	v.SetDefault("readreceipt.poll_interval_ms", 5000)
	v.SetDefault("readreceipt.max_retries", 3)
	v.SetDefault("readreceipt.requests_per_second", 5)
}

// Load reads the yaml file at path (CONFIG_PATH or DefaultPath when empty).
// A missing file is not an error; defaults and environment still apply.
// Environment keys use "_" for nesting, e.g. MONGODB_URI.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	if path == "" {
		path = DefaultPath
	}

	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(path)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, err
	}

	c.ShutdownTimeout = time.Duration(c.App.ShutdownSeconds) * time.Second
	c.UnreadTTL = time.Duration(c.Redis.UnreadTTLSeconds) * time.Second
	c.IdentityTimeout = time.Duration(c.Identity.TimeoutSeconds) * time.Second
	c.Dwell = time.Duration(c.ReadReceipt.DwellMS) * time.Millisecond
	c.FlushInterval = time.Duration(c.ReadReceipt.FlushIntervalMS) * time.Millisecond
	c.PollInterval = time.Duration(c.ReadReceipt.PollIntervalMS) * time.Millisecond

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) Validate() error {
	if c.Mongo.URI == "" || c.Mongo.Database == "" {
		return errors.New("mongodb.uri and mongodb.database are required")
	}
	switch c.JWT.Algorithm {
	case "RS256":
		if c.JWT.PublicKeyPath == "" {
			return errors.New("jwt.public_key_path missing")
		}
	case "HS256":
		if c.JWT.HSSecret == "" {
			return errors.New("jwt.hs_secret missing")
		}
	default:
		return fmt.Errorf("unsupported jwt.algorithm %q", c.JWT.Algorithm)
	}
	switch c.Identity.Driver {
	case "mongo":
	case "http":
		if c.Identity.BaseURL == "" {
			return errors.New("identity.base_url is required for the http driver")
		}
	default:
		return fmt.Errorf("unsupported identity.driver %q", c.Identity.Driver)
	}
	if t := c.ReadReceipt.VisibleThreshold; t <= 0 || t > 1 {
		return fmt.Errorf("readreceipt.visible_threshold must be in (0,1], got %v", t)
	}
	if c.Dwell <= 0 || c.FlushInterval <= 0 {
		return errors.New("readreceipt dwell and flush interval must be positive")
	}
	return nil
}

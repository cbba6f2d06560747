package settings

import (
	"fmt"
	"log"
	"os"

	vd "github.com/bytedance/go-tagexpr/v2/validator"
	"gopkg.in/yaml.v3"

	"purchasekit/pkg/utils"
)

func init() {
	vd.SetErrorFactory(func(failPath, msg string) error {
		return fmt.Errorf("invalid config: %s: %s", failPath, msg)
	})
}

// NATSConfig holds the payment queue transport configuration.
type NATSConfig struct {
	Host     string `yaml:"host" vd:"len($)>0"`
	Port     string `yaml:"port" vd:"len($)>0"`
	Username string `yaml:"username" vd:"-"`
	Password string `yaml:"password" vd:"-"`
	// Subject is the event stream subject; request subjects derive from it.
	Subject string `yaml:"subject" vd:"len($)>0"`
}

// RedisConfig holds the optional coordinator state snapshot store.
type RedisConfig struct {
	Enabled  bool   `yaml:"enabled" vd:"-"`
	Host     string `yaml:"host" vd:"-"`
	Port     string `yaml:"port" vd:"-"`
	Password string `yaml:"password" vd:"-"`
	DB       int    `yaml:"db" vd:"$>=0&& $<16"`
}

// PlatformConfig holds the platform access-token endpoint and credentials.
type PlatformConfig struct {
	Server    string `yaml:"server" vd:"-"`
	AppKey    string `yaml:"app_key" vd:"-"`
	AppSecret string `yaml:"app_secret" vd:"-"`
}

// Config is the full purchasekit configuration. Values come from the
// environment; an optional YAML file (PURCHASEKIT_CONFIG) overrides them.
type Config struct {
	NATS     NATSConfig     `yaml:"nats"`
	Redis    RedisConfig    `yaml:"redis"`
	Platform PlatformConfig `yaml:"platform"`

	CatalogURL string `yaml:"catalog_url" vd:"len($)>0"`
	ReceiptURL string `yaml:"receipt_url" vd:"-"`
	// ReceiptFile is a local receipt blob path used when ReceiptURL is empty.
	ReceiptFile string `yaml:"receipt_file" vd:"-"`

	ListenAddress string `yaml:"listen_address" vd:"len($)>0"`

	// AcceptStorePayments is the answer returned to the platform when it
	// asks whether a store-initiated payment may be added immediately.
	AcceptStorePayments bool `yaml:"accept_store_payments" vd:"-"`
}

// Load builds the configuration from environment variables, applies the
// optional YAML override file and validates the result.
func Load() (*Config, error) {
	cfg := fromEnv()

	if path := os.Getenv("PURCHASEKIT_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
		log.Printf("Loaded config overrides from %s", path)
	}

	if err := vd.Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func fromEnv() *Config {
	return &Config{
		NATS: NATSConfig{
			Host:     utils.GetEnvOrDefault("NATS_HOST", "localhost"),
			Port:     utils.GetEnvOrDefault("NATS_PORT", "4222"),
			Username: utils.GetEnvOrDefault("NATS_USERNAME", ""),
			Password: utils.GetEnvOrDefault("NATS_PASSWORD", ""),
			Subject:  utils.GetEnvOrDefault("NATS_SUBJECT_PAYMENTS", "payments.events"),
		},
		Redis: RedisConfig{
			Enabled:  utils.GetEnvBool("REDIS_ENABLED", false),
			Host:     utils.GetEnvOrDefault("REDIS_HOST", "localhost"),
			Port:     utils.GetEnvOrDefault("REDIS_PORT", "6379"),
			Password: utils.GetEnvOrDefault("REDIS_PASSWORD", ""),
			DB:       utils.GetEnvInt("REDIS_DB", 0),
		},
		Platform: PlatformConfig{
			Server:    utils.GetEnvOrDefault("PLATFORM_SERVER", ""),
			AppKey:    utils.GetEnvOrDefault("PLATFORM_APP_KEY", ""),
			AppSecret: utils.GetEnvOrDefault("PLATFORM_APP_SECRET", ""),
		},
		CatalogURL:          utils.GetEnvOrDefault("CATALOG_URL", "http://localhost:8083/catalog/v1/resolve"),
		ReceiptURL:          utils.GetEnvOrDefault("RECEIPT_URL", ""),
		ReceiptFile:         utils.GetEnvOrDefault("RECEIPT_FILE", ""),
		ListenAddress:       utils.GetEnvOrDefault("PURCHASEKIT_LISTEN", ":8084"),
		AcceptStorePayments: utils.GetEnvBool("ACCEPT_STORE_PAYMENTS", false),
	}
}

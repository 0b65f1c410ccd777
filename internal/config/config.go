package config

import (
	"log"
	"os"
	"strconv"

	"gopkg.in/yaml.v2"
)

type Config struct {
	Server struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port"`
		Env  string `yaml:"env"`
	} `yaml:"server"`

	Database struct {
		DSN string `yaml:"url"`
	} `yaml:"database"`

	JWT struct {
		Secret string `yaml:"secret"`
		TTL    int    `yaml:"ttl"` // minutes
	} `yaml:"jwt"`

	Email struct {
		SMTPHost     string `yaml:"smtp_host"`
		SMTPPort     int    `yaml:"smtp_port"`
		SMTPUsername string `yaml:"smtp_user"`
		SMTPPassword string `yaml:"smtp_password"`
		FromEmail    string `yaml:"from_email"`
		FromName     string `yaml:"from_name"`
	} `yaml:"email"`

	Billing struct {
		StripeSecretKey     string `yaml:"stripe_secret_key"`
		StripeWebhookSecret string `yaml:"stripe_webhook_secret"`
		PriceMinor          int64  `yaml:"price_minor"` // subscription price in minor units (øre)
		Currency            string `yaml:"currency"`
		TrialDays           int    `yaml:"trial_days"`
		RetryDays           int    `yaml:"retry_days"`
		SweepIntervalMin    int    `yaml:"sweep_interval_minutes"`
		SellerName          string `yaml:"seller_name"`
		SellerOrgNumber     string `yaml:"seller_org_number"`
	} `yaml:"billing"`

	Accounting struct {
		AppKey          string `yaml:"app_key"`
		ClientKey       string `yaml:"client_key"`
		SubscriptionKey string `yaml:"subscription_key"`
		Demo            bool   `yaml:"demo"`
	} `yaml:"accounting"`
}

var AppConfig *Config

// LoadConfig reads config.yaml, or builds the config from environment
// variables when DATABASE_URL is set (test/container mode).
func LoadConfig() {
	var cfg Config

	dbURL := os.Getenv("DATABASE_URL")

	if dbURL == "" {
		configPath := os.Getenv("CONFIG_PATH")
		if configPath == "" {
			configPath = "config/config.yaml"
		}

		f, err := os.Open(configPath)
		if err != nil {
			log.Fatalf("Failed to open config file at %s: %v", configPath, err)
		}
		defer f.Close()

		decoder := yaml.NewDecoder(f)
		if err := decoder.Decode(&cfg); err != nil {
			log.Fatalf("Failed to parse config file at %s: %v", configPath, err)
		}

		applyDefaults(&cfg)
		AppConfig = &cfg
		return
	}

	cfg.Database.DSN = dbURL
	cfg.Server.Env = os.Getenv("SERVER_ENV")
	cfg.Server.Port, _ = strconv.Atoi(os.Getenv("SERVER_PORT"))
	cfg.JWT.Secret = os.Getenv("JWT_SECRET")
	cfg.JWT.TTL, _ = strconv.Atoi(os.Getenv("JWT_TTL"))

	cfg.Billing.StripeSecretKey = os.Getenv("STRIPE_SECRET_KEY")
	cfg.Billing.StripeWebhookSecret = os.Getenv("STRIPE_WEBHOOK_SECRET")
	cfg.Billing.PriceMinor, _ = strconv.ParseInt(os.Getenv("BILLING_PRICE_MINOR"), 10, 64)
	cfg.Billing.Currency = os.Getenv("BILLING_CURRENCY")
	cfg.Billing.TrialDays, _ = strconv.Atoi(os.Getenv("BILLING_TRIAL_DAYS"))
	cfg.Billing.SellerName = os.Getenv("SELLER_NAME")
	cfg.Billing.SellerOrgNumber = os.Getenv("SELLER_ORG_NUMBER")

	cfg.Accounting.AppKey = os.Getenv("POWEROFFICE_APP_KEY")
	cfg.Accounting.ClientKey = os.Getenv("POWEROFFICE_CLIENT_KEY")
	cfg.Accounting.SubscriptionKey = os.Getenv("POWEROFFICE_SUBSCRIPTION_KEY")
	cfg.Accounting.Demo = os.Getenv("POWEROFFICE_DEMO") == "true"

	applyDefaults(&cfg)
	AppConfig = &cfg
}

func applyDefaults(cfg *Config) {
	if cfg.JWT.TTL == 0 {
		cfg.JWT.TTL = 60 * 24 * 7 // 7 days
	}
	if cfg.Billing.Currency == "" {
		cfg.Billing.Currency = "NOK"
	}
	if cfg.Billing.PriceMinor == 0 {
		cfg.Billing.PriceMinor = 29900 // 299 NOK
	}
	if cfg.Billing.TrialDays == 0 {
		cfg.Billing.TrialDays = 14
	}
	if cfg.Billing.RetryDays == 0 {
		cfg.Billing.RetryDays = 7
	}
	if cfg.Billing.SweepIntervalMin == 0 {
		cfg.Billing.SweepIntervalMin = 6 * 60
	}
	if cfg.Billing.SellerName == "" {
		cfg.Billing.SellerName = "Hercules"
	}
}

// GetConfig returns the loaded config, loading it on first use.
func GetConfig() *Config {
	if AppConfig == nil {
		LoadConfig()
	}
	return AppConfig
}

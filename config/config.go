package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/arneor/vault-api/models"
	"github.com/arneor/vault-api/utils"
)

// Config is read from the environment (optionally a .env file) and an
// optional YAML file named by VAULT_CONFIG for list-shaped values.
type Config struct {
	Port        string
	FrontendURL string
	Env         string

	SpreadsheetID      string
	GoogleCredentials  string
	TokenCachePath     string
	DataEncryptionKey  string
	JWTSecret          string
	SessionTTL         time.Duration
	DatabaseURL        string
	Timezone           string
	RefreshInterval    time.Duration
	CacheTTL           time.Duration
	RateLimitPerMinute int

	AllowedEmails     []string
	IncomeCategories  []string
	ExpenseCategories []string
	PaymentMethods    []string
	SeedPartners      []models.SeedPartner
}

var defaultIncomeCategories = []string{
	"Product Sales Revenue",
	"Subscription Revenue",
	"Licensing Fees",
	"Partner Capital Injection",
	"Grants & Funding",
	"Pilot Program Revenue",
	"Other Income",
}

var defaultExpenseCategories = []string{
	"R&D Costs",
	"Software Development Tools",
	"Infrastructure Costs",
	"Product Testing & QA",
	"Team Salaries",
	"Office & Operations",
	"Marketing & Product Launch",
	"Legal & IP Protection",
	"Hardware & Equipment",
	"Software Licenses & Subscriptions",
	"Prototyping Costs",
	"Travel & Conferences",
	"Miscellaneous Operating Expenses",
}

var defaultPaymentMethods = []string{
	"Bank Transfer",
	"UPI",
	"Corporate Card",
	"Partner Personal Card",
	"Cash",
	"Cheque",
	"Other",
}

// fileConfig is the YAML shape. Only list values live there.
type fileConfig struct {
	AllowedEmails     []string             `yaml:"allowed_emails"`
	IncomeCategories  []string             `yaml:"income_categories"`
	ExpenseCategories []string             `yaml:"expense_categories"`
	PaymentMethods    []string             `yaml:"payment_methods"`
	SeedPartners      []models.SeedPartner `yaml:"seed_partners"`
}

// Load builds the configuration. Environment values win over the file.
func Load() (*Config, error) {
	cfg := &Config{
		Port:               getEnv("PORT", "8080"),
		FrontendURL:        getEnv("FRONTEND_URL", "http://localhost:3000"),
		Env:                getEnv("ENV", "development"),
		SpreadsheetID:      os.Getenv("SPREADSHEET_ID"),
		GoogleCredentials:  os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"),
		TokenCachePath:     getEnv("TOKEN_CACHE_PATH", ".vault/token.enc"),
		DataEncryptionKey:  os.Getenv("DATA_ENCRYPTION_KEY"),
		JWTSecret:          os.Getenv("JWT_SECRET"),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		Timezone:           getEnv("TIMEZONE", "Asia/Kolkata"),
		IncomeCategories:   defaultIncomeCategories,
		ExpenseCategories:  defaultExpenseCategories,
		PaymentMethods:     defaultPaymentMethods,
		RateLimitPerMinute: 100,
	}

	var err error
	if cfg.SessionTTL, err = getDuration("SESSION_TTL", 12*time.Hour); err != nil {
		return nil, err
	}
	if cfg.RefreshInterval, err = getDuration("REFRESH_INTERVAL", 0); err != nil {
		return nil, err
	}
	if cfg.CacheTTL, err = getDuration("CACHE_TTL", 30*time.Second); err != nil {
		return nil, err
	}
	if raw := os.Getenv("RATE_LIMIT_PER_MINUTE"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("RATE_LIMIT_PER_MINUTE must be a positive integer, got %q", raw)
		}
		cfg.RateLimitPerMinute = n
	}

	if path := os.Getenv("VAULT_CONFIG"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	if raw := os.Getenv("ALLOWED_EMAILS"); raw != "" {
		cfg.AllowedEmails = splitList(raw)
	}

	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	if len(fc.AllowedEmails) > 0 {
		c.AllowedEmails = fc.AllowedEmails
	}
	if len(fc.IncomeCategories) > 0 {
		c.IncomeCategories = fc.IncomeCategories
	}
	if len(fc.ExpenseCategories) > 0 {
		c.ExpenseCategories = fc.ExpenseCategories
	}
	if len(fc.PaymentMethods) > 0 {
		c.PaymentMethods = fc.PaymentMethods
	}
	if len(fc.SeedPartners) > 0 {
		c.SeedPartners = fc.SeedPartners
	}
	utils.SafeLog("📄 Loaded configuration file %s", path)
	return nil
}

// Validate checks what the HTTP server needs. CLI commands that only read
// the spreadsheet skip it.
func (c *Config) Validate() error {
	var missing []string
	if c.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}
	if len(c.AllowedEmails) == 0 {
		missing = append(missing, "ALLOWED_EMAILS")
	}
	if c.GoogleCredentials == "" && c.TokenCachePath != "" && c.DataEncryptionKey == "" {
		missing = append(missing, "DATA_ENCRYPTION_KEY")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}
	return nil
}

// Location resolves the business time zone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// IsOffline reports whether the API runs against the in-memory store.
func (c *Config) IsOffline() bool {
	return c.SpreadsheetID == ""
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration like 30s, got %q", key, raw)
	}
	return d, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"

	"github.com/xenking/keygate/internal/domain/apikey"
)

const defaultAddr = "0.0.0.0:3004"

// Config holds the complete gateway configuration, loadable from environment
// variables (KEYGATE_ prefix), flags, or YAML config files.
type Config struct {
	Addr           string        `default:"0.0.0.0:3004" usage:"Gateway listen address"`
	AdminKey       string        `usage:"Admin credential for /admin routes (KEYGATE_ADMIN_KEY or ADMIN_KEY)" flag:"admin-key"`
	KeyTTL         time.Duration `default:"8760h" usage:"Lifetime of newly created API keys" flag:"key-ttl"`
	MaxBodyBytes   int64         `default:"10485760" usage:"Maximum accepted request body size" flag:"max-body-bytes"`
	Backend        BackendConfig
	Store          StoreConfig
	Quota          QuotaConfig
	AdminRateLimit AdminRateLimitConfig
	CORS           CORSConfig
	Graceful       GracefulConfig
}

// BackendConfig points at the inference backend.
type BackendConfig struct {
	URL     string        `default:"http://localhost:11434" usage:"Inference backend base URL (or OLLAMA_BASE_URL)"`
	Timeout time.Duration `default:"5m" usage:"Timeout of a single backend exchange"`
	Breaker BreakerConfig
}

// BreakerConfig controls the circuit breaker in front of the backend.
type BreakerConfig struct {
	Enabled     bool          `default:"true" usage:"Enable the backend circuit breaker"`
	Failures    int           `default:"5" usage:"Consecutive failures that open the breaker"`
	OpenTimeout time.Duration `default:"30s" usage:"How long the breaker stays open"`
}

// StoreConfig locates the key file.
type StoreConfig struct {
	Path          string        `default:"data/api-keys.json" usage:"API keys file (or API_KEYS_FILE)"`
	Timeout       time.Duration `default:"5s" usage:"Max wait behind a pending key file write, 0 disables"`
	SweepInterval time.Duration `default:"1h" usage:"Interval of expired key removal, 0 disables"`
}

// QuotaConfig is the quota of keys created without one.
type QuotaConfig struct {
	Limit  int           `default:"100" usage:"Default requests per window"`
	Window time.Duration `default:"60s" usage:"Default quota window, whole seconds"`
}

// AdminRateLimitConfig throttles the admin routes per client IP.
type AdminRateLimitConfig struct {
	RPS        float64 `default:"2" usage:"Sustained admin requests per second per client"`
	Burst      int     `default:"20" usage:"Admin request burst per client"`
	TrustProxy bool    `default:"false" usage:"Identify clients by X-Forwarded-For, only behind a trusted proxy"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins []string `default:"*" usage:"Allowed CORS origins"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// DefaultQuota converts the configured default quota.
func (c *Config) DefaultQuota() apikey.Quota {
	return apikey.Quota{
		Limit:         c.Quota.Limit,
		WindowSeconds: int(c.Quota.Window / time.Second),
	}
}

// LoadConfig loads configuration from environment variables, YAML config
// files and flags, then applies platform defaults and validates.
func LoadConfig() (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "KEYGATE",
		Files:     []string{"config.yaml", "/etc/keygate/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults(os.Getenv)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyPlatformDefaults maps the unprefixed variables the gateway has always
// understood (and that PaaS platforms set, like PORT) onto the configuration
// when the KEYGATE_ variant left the default in place.
func (c *Config) applyPlatformDefaults(getenv func(string) string) {
	if c.AdminKey == "" {
		c.AdminKey = getenv("ADMIN_KEY")
	}
	if v := getenv("OLLAMA_BASE_URL"); v != "" && c.Backend.URL == "http://localhost:11434" {
		c.Backend.URL = v
	}
	if v := getenv("API_KEYS_FILE"); v != "" && c.Store.Path == "data/api-keys.json" {
		c.Store.Path = v
	}
	if port := getenv("PORT"); port != "" && c.Addr == defaultAddr {
		c.Addr = "0.0.0.0:" + port
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch {
	case c.AdminKey == "":
		return errors.New("admin key is required: set KEYGATE_ADMIN_KEY or ADMIN_KEY")
	case c.Store.Path == "":
		return errors.New("store path is required")
	case c.KeyTTL <= 0:
		return errors.New("key TTL must be positive")
	case c.Quota.Window%time.Second != 0:
		return errors.Errorf("quota window %s is not a whole number of seconds", c.Quota.Window)
	case c.Store.SweepInterval < 0:
		return errors.New("sweep interval must not be negative")
	case c.Store.Timeout < 0:
		return errors.New("store timeout must not be negative")
	}
	if err := c.DefaultQuota().Validate(); err != nil {
		return errors.Wrap(err, "default quota")
	}
	return nil
}

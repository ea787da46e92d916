package config

import (
	"strings"
	"time"

	"github.com/Deuthe/test-odrl-integration/internal/observability"
)

// Config is the root configuration of the PAP.
type Config struct {
	Server     ServerConfig               `yaml:"server"`
	Log        observability.LogConfig    `yaml:"log"`
	Tracing    observability.TracerConfig `yaml:"tracing"`
	Metrics    MetricsConfig              `yaml:"metrics"`
	PDP        PDPConfig                  `yaml:"pdp"`
	Policy     PolicyConfig               `yaml:"policy"`
	Backend    BackendConfig              `yaml:"backend"`
	Upstream   UpstreamConfig             `yaml:"upstream"`
	Credential CredentialConfig           `yaml:"credential"`
	Vault      VaultConfig                `yaml:"vault"`
	EventLog   EventLogConfig             `yaml:"eventLog"`
	RateLimit  RateLimitConfig            `yaml:"rateLimit"`
	CORS       CORSConfig                 `yaml:"cors"`

	// Resources maps a logical resource name to its backend locator:
	// an absolute URL or a path relative to backend.baseURL.
	Resources map[string]string `yaml:"resources"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Host            string   `yaml:"host"`
	Port            int      `yaml:"port"`
	ReadTimeout     Duration `yaml:"readTimeout"`
	WriteTimeout    Duration `yaml:"writeTimeout"`
	IdleTimeout     Duration `yaml:"idleTimeout"`
	ShutdownTimeout Duration `yaml:"shutdownTimeout"`
	MaxBodyBytes    int64    `yaml:"maxBodyBytes"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Namespace string `yaml:"namespace"`
	Path      string `yaml:"path"`
}

// PDPConfig addresses the Open Policy Agent instance.
type PDPConfig struct {
	URL      string `yaml:"url"`
	PolicyID string `yaml:"policyID"`
	// DecisionPath defaults to "<policy.package>/decision".
	DecisionPath string            `yaml:"decisionPath"`
	Timeout      Duration          `yaml:"timeout"`
	Headers      map[string]string `yaml:"headers"`
}

// PolicyConfig shapes the compiled Rego program.
type PolicyConfig struct {
	Package     string `yaml:"package"`
	MethodGuard string `yaml:"methodGuard"`
	PathPrefix  string `yaml:"pathPrefix"`
	RegoV1      bool   `yaml:"regoV1"`
}

// BackendConfig addresses the data provider.
type BackendConfig struct {
	BaseURL        string               `yaml:"baseURL"`
	Timeout        Duration             `yaml:"timeout"`
	CircuitBreaker CircuitBreakerConfig `yaml:"circuitBreaker"`
}

// CircuitBreakerConfig configures the optional backend breaker.
type CircuitBreakerConfig struct {
	Enabled      bool     `yaml:"enabled"`
	MaxRequests  uint32   `yaml:"maxRequests"`
	Interval     Duration `yaml:"interval"`
	Timeout      Duration `yaml:"timeout"`
	MinRequests  uint32   `yaml:"minRequests"`
	FailureRatio float64  `yaml:"failureRatio"`
}

// UpstreamConfig bounds each PDP or backend call made while serving a
// protected request. Zero means no bound beyond the client timeouts.
type UpstreamConfig struct {
	Timeout Duration `yaml:"timeout"`
}

// CredentialConfig configures token issuance. The signing secret is read
// from Vault when enabled, else secretFile, else secretEnv, else secret.
type CredentialConfig struct {
	Secret        string `yaml:"secret"`
	SecretEnv     string `yaml:"secretEnv"`
	SecretFile    string `yaml:"secretFile"`
	SecretFileKey string `yaml:"secretFileKey"`
	SubjectKey    string `yaml:"subjectKey"`
	Issuer        string `yaml:"issuer"`
}

// VaultConfig configures the Vault KV v2 secret source.
type VaultConfig struct {
	Enabled   bool     `yaml:"enabled"`
	Address   string   `yaml:"address"`
	Token     string   `yaml:"token"`
	Namespace string   `yaml:"namespace"`
	Mount     string   `yaml:"mount"`
	Path      string   `yaml:"path"`
	Key       string   `yaml:"key"`
	Timeout   Duration `yaml:"timeout"`
}

// EventLogConfig sizes the dashboard event buffer.
type EventLogConfig struct {
	Capacity         int `yaml:"capacity"`
	SubscriberBuffer int `yaml:"subscriberBuffer"`
}

// RateLimitConfig configures per-client limiting of token issuance.
type RateLimitConfig struct {
	Enabled           bool    `yaml:"enabled"`
	RequestsPerSecond float64 `yaml:"requestsPerSecond"`
	Burst             int     `yaml:"burst"`
}

// CORSConfig configures cross-origin handling.
type CORSConfig struct {
	AllowOrigins []string `yaml:"allowOrigins"`
	AllowMethods []string `yaml:"allowMethods"`
	AllowHeaders []string `yaml:"allowHeaders"`
}

// Defaults.
const (
	DefaultPort             = 3000
	DefaultPDPURL           = "http://opa:8181"
	DefaultPolicyID         = "eindhoven"
	DefaultPackage          = "httpauthz"
	DefaultMethodGuard      = "GET"
	DefaultPathPrefix       = "/data/"
	DefaultBackendURL       = "http://mock-data/"
	DefaultSubjectKey       = "paradym-user"
	DefaultEventLogCapacity = 1000
	DefaultSubscriberBuffer = 64
	DefaultMaxBodyBytes     = 1 << 20
	DefaultVaultMount       = "secret"
	DefaultVaultKey         = "secret"
)

// DefaultResources mirrors the demo data provider.
func DefaultResources() map[string]string {
	return map[string]string{
		"airquality": "airquality_data_kennedylaan.json",
		"soundlevel": "soundlevel_data_kennedylaan.json",
		"traffic":    "traffic_data_kennedylaan.json",
	}
}

// DefaultConfig returns a configuration with every default applied.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills zero-valued fields with their defaults.
func (c *Config) ApplyDefaults() {
	c.applyServerDefaults()

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
	if c.Log.Output == "" {
		c.Log.Output = "stdout"
	}
	if c.Tracing.ServiceName == "" {
		c.Tracing.ServiceName = "pap"
	}
	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = "pap"
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}

	c.applyPolicyDefaults()
	c.applyBackendDefaults()

	if c.Credential.SubjectKey == "" {
		c.Credential.SubjectKey = DefaultSubjectKey
	}
	if c.Vault.Mount == "" {
		c.Vault.Mount = DefaultVaultMount
	}
	if c.Vault.Key == "" {
		c.Vault.Key = DefaultVaultKey
	}
	if c.Vault.Timeout == 0 {
		c.Vault.Timeout = Duration(10 * time.Second)
	}
	if c.EventLog.Capacity == 0 {
		c.EventLog.Capacity = DefaultEventLogCapacity
	}
	if c.EventLog.SubscriberBuffer == 0 {
		c.EventLog.SubscriberBuffer = DefaultSubscriberBuffer
	}
	if c.RateLimit.RequestsPerSecond == 0 {
		c.RateLimit.RequestsPerSecond = 5
	}
	if c.RateLimit.Burst == 0 {
		c.RateLimit.Burst = 10
	}
	if len(c.CORS.AllowOrigins) == 0 {
		c.CORS.AllowOrigins = []string{"*"}
	}
	if len(c.CORS.AllowMethods) == 0 {
		c.CORS.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE"}
	}
	if len(c.CORS.AllowHeaders) == 0 {
		c.CORS.AllowHeaders = []string{"Origin", "X-Requested-With", "Content-Type", "Accept", "Authorization"}
	}
	if c.Resources == nil {
		c.Resources = DefaultResources()
	}
}

func (c *Config) applyServerDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = DefaultPort
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = Duration(30 * time.Second)
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = Duration(30 * time.Second)
	}
	if c.Server.IdleTimeout == 0 {
		c.Server.IdleTimeout = Duration(120 * time.Second)
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = Duration(15 * time.Second)
	}
	if c.Server.MaxBodyBytes == 0 {
		c.Server.MaxBodyBytes = DefaultMaxBodyBytes
	}
}

func (c *Config) applyPolicyDefaults() {
	if c.PDP.URL == "" {
		c.PDP.URL = DefaultPDPURL
	}
	if c.PDP.PolicyID == "" {
		c.PDP.PolicyID = DefaultPolicyID
	}
	if c.PDP.Timeout == 0 {
		c.PDP.Timeout = Duration(10 * time.Second)
	}
	if c.Policy.Package == "" {
		c.Policy.Package = DefaultPackage
	}
	if c.Policy.MethodGuard == "" {
		c.Policy.MethodGuard = DefaultMethodGuard
	}
	if c.Policy.PathPrefix == "" {
		c.Policy.PathPrefix = DefaultPathPrefix
	}
	if c.PDP.DecisionPath == "" {
		c.PDP.DecisionPath = strings.ReplaceAll(c.Policy.Package, ".", "/") + "/decision"
	}
}

func (c *Config) applyBackendDefaults() {
	if c.Backend.BaseURL == "" {
		c.Backend.BaseURL = DefaultBackendURL
	}
	if c.Backend.Timeout == 0 {
		c.Backend.Timeout = Duration(10 * time.Second)
	}
	cb := &c.Backend.CircuitBreaker
	if cb.MaxRequests == 0 {
		cb.MaxRequests = 1
	}
	if cb.Interval == 0 {
		cb.Interval = Duration(60 * time.Second)
	}
	if cb.Timeout == 0 {
		cb.Timeout = Duration(30 * time.Second)
	}
	if cb.MinRequests == 0 {
		cb.MinRequests = 5
	}
	if cb.FailureRatio == 0 {
		cb.FailureRatio = 0.5
	}
}

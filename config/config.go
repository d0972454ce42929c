package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
	"unicode"

	"gopkg.in/yaml.v3"

	"github.com/stella-systems/stellanow-sdk-go/errors"
)

// Auth modes
const (
	AuthModeOIDC = "oidc" // Keycloak password grant, access token as MQTT username
	AuthModeNone = "none" // client id only, for local brokers
)

// Transports
const (
	TransportMQTT = "mqtt"
	TransportNATS = "nats"
)

// Log formats
const (
	LogFormatText = "text"
	LogFormatJSON = "json"
)

// Config is the complete SDK configuration
type Config struct {
	Organization Organization `yaml:"organization"`
	Auth         Auth         `yaml:"auth"`
	Broker       Broker       `yaml:"broker"`
	Delivery     Delivery     `yaml:"delivery"`
	Log          Log          `yaml:"log"`
	Metrics      Metrics      `yaml:"metrics"`
}

// Organization identifies the tenant events are published for
type Organization struct {
	ID        string `yaml:"id" env:"STELLANOW_ORGANIZATION_ID"`
	ProjectID string `yaml:"project_id" env:"STELLANOW_PROJECT_ID"`
}

// Auth selects and configures the authentication strategy
type Auth struct {
	Mode      string `yaml:"mode" env:"STELLANOW_AUTH_MODE" env-default:"oidc"`
	Authority string `yaml:"authority" env:"STELLANOW_AUTH_AUTHORITY"`
	ClientID  string `yaml:"client_id" env:"STELLANOW_AUTH_CLIENT_ID" env-default:"event-ingestor"`
	Username  string `yaml:"username" env:"STELLANOW_USERNAME"`
	Password  string `yaml:"password" env:"STELLANOW_PASSWORD"`
}

// Broker configures the transport
type Broker struct {
	Transport      string        `yaml:"transport" env:"STELLANOW_BROKER_TRANSPORT" env-default:"mqtt"`
	URL            string        `yaml:"url" env:"STELLANOW_BROKER_URL" env-default:"tcp://localhost:1883"`
	ClientID       string        `yaml:"client_id" env:"STELLANOW_BROKER_CLIENT_ID"`
	KeepAlive      time.Duration `yaml:"keep_alive" env:"STELLANOW_BROKER_KEEP_ALIVE" env-default:"30s"`
	ConnectTimeout time.Duration `yaml:"connect_timeout" env:"STELLANOW_BROKER_CONNECT_TIMEOUT" env-default:"30s"`
	Stream         string        `yaml:"stream" env:"STELLANOW_BROKER_STREAM"` // NATS only; empty skips stream setup
	TLS            BrokerTLS     `yaml:"tls"`
}

// BrokerTLS configures TLS towards the broker. The system CA bundle is always
// trusted.
type BrokerTLS struct {
	CAFiles            []string `yaml:"ca_files" env:"STELLANOW_BROKER_TLS_CA_FILES"`
	CertFile           string   `yaml:"cert_file" env:"STELLANOW_BROKER_TLS_CERT_FILE"`
	KeyFile            string   `yaml:"key_file" env:"STELLANOW_BROKER_TLS_KEY_FILE"`
	MinVersion         string   `yaml:"min_version" env:"STELLANOW_BROKER_TLS_MIN_VERSION"`
	InsecureSkipVerify bool     `yaml:"insecure_skip_verify" env:"STELLANOW_BROKER_TLS_INSECURE_SKIP_VERIFY"`
}

// Delivery tunes the pump and reconnect schedule
type Delivery struct {
	PumpInterval           time.Duration `yaml:"pump_interval" env:"STELLANOW_PUMP_INTERVAL" env-default:"100ms"`
	BatchSize              int           `yaml:"batch_size" env:"STELLANOW_BATCH_SIZE" env-default:"100"`
	MaxConcurrentPublishes int           `yaml:"max_concurrent_publishes" env:"STELLANOW_MAX_CONCURRENT_PUBLISHES" env-default:"10"`
	PublishRate            float64       `yaml:"publish_rate" env:"STELLANOW_PUBLISH_RATE"` // events per second, 0 = unlimited
	ReconnectBaseDelay     time.Duration `yaml:"reconnect_base_delay" env:"STELLANOW_RECONNECT_BASE_DELAY" env-default:"5s"`
	ReconnectMaxDelay      time.Duration `yaml:"reconnect_max_delay" env:"STELLANOW_RECONNECT_MAX_DELAY" env-default:"60s"`
}

// Log configures the process logger
type Log struct {
	Level  string `yaml:"level" env:"STELLANOW_LOG_LEVEL" env-default:"info"`
	Format string `yaml:"format" env:"STELLANOW_LOG_FORMAT" env-default:"text"`
}

// Metrics configures the Prometheus endpoint
type Metrics struct {
	Enabled bool   `yaml:"enabled" env:"STELLANOW_METRICS_ENABLED"`
	Port    int    `yaml:"port" env:"STELLANOW_METRICS_PORT" env-default:"9090"`
	Path    string `yaml:"path" env:"STELLANOW_METRICS_PATH" env-default:"/metrics"`
}

// Default returns a configuration with every default applied and no
// organization or credentials.
func Default() Config {
	return Config{
		Auth: Auth{
			Mode:     AuthModeOIDC,
			ClientID: "event-ingestor",
		},
		Broker: Broker{
			Transport:      TransportMQTT,
			URL:            "tcp://localhost:1883",
			KeepAlive:      30 * time.Second,
			ConnectTimeout: 30 * time.Second,
		},
		Delivery: Delivery{
			PumpInterval:           100 * time.Millisecond,
			BatchSize:              100,
			MaxConcurrentPublishes: 10,
			ReconnectBaseDelay:     5 * time.Second,
			ReconnectMaxDelay:      60 * time.Second,
		},
		Log: Log{
			Level:  "info",
			Format: LogFormatText,
		},
		Metrics: Metrics{
			Port: 9090,
			Path: "/metrics",
		},
	}
}

// Validate checks the configuration. Every failure is fatal: the SDK cannot
// start with it.
func (c *Config) Validate() error {
	if c.Organization.ID == "" {
		return missing("organization.id")
	}
	// The organization id becomes a topic level and a NATS subject token
	if !isValidSubjectToken(c.Organization.ID) {
		return invalid("organization.id %q must be alphanumeric with dashes or underscores", c.Organization.ID)
	}
	if c.Organization.ProjectID == "" {
		return missing("organization.project_id")
	}

	switch c.Auth.Mode {
	case AuthModeOIDC:
		if c.Auth.Authority == "" {
			return missing("auth.authority")
		}
		if u, err := url.Parse(c.Auth.Authority); err != nil || u.Scheme == "" || u.Host == "" {
			return invalid("auth.authority %q is not an absolute URL", c.Auth.Authority)
		}
		if c.Auth.ClientID == "" {
			return missing("auth.client_id")
		}
		if c.Auth.Username == "" {
			return missing("auth.username")
		}
		if c.Auth.Password == "" {
			return missing("auth.password")
		}
	case AuthModeNone:
	default:
		return invalid("auth.mode %q must be %q or %q", c.Auth.Mode, AuthModeOIDC, AuthModeNone)
	}

	switch c.Broker.Transport {
	case TransportMQTT, TransportNATS:
	default:
		return invalid("broker.transport %q must be %q or %q", c.Broker.Transport, TransportMQTT, TransportNATS)
	}
	if c.Broker.URL == "" {
		return missing("broker.url")
	}
	if tlsCfg := c.Broker.TLS; (tlsCfg.CertFile == "") != (tlsCfg.KeyFile == "") {
		return invalid("broker.tls.cert_file and broker.tls.key_file must be set together")
	}
	switch c.Broker.TLS.MinVersion {
	case "", "1.2", "1.3":
	default:
		return invalid("broker.tls.min_version %q must be \"1.2\" or \"1.3\"", c.Broker.TLS.MinVersion)
	}

	d := c.Delivery
	if d.PumpInterval <= 0 {
		return invalid("delivery.pump_interval must be positive, got %v", d.PumpInterval)
	}
	if d.BatchSize < 0 {
		return invalid("delivery.batch_size must not be negative, got %d", d.BatchSize)
	}
	if d.MaxConcurrentPublishes < 1 {
		return invalid("delivery.max_concurrent_publishes must be at least 1, got %d", d.MaxConcurrentPublishes)
	}
	if d.PublishRate < 0 {
		return invalid("delivery.publish_rate must not be negative, got %v", d.PublishRate)
	}
	if d.ReconnectBaseDelay <= 0 || d.ReconnectMaxDelay < d.ReconnectBaseDelay {
		return invalid("delivery reconnect delays must satisfy 0 < base (%v) <= max (%v)",
			d.ReconnectBaseDelay, d.ReconnectMaxDelay)
	}

	switch strings.ToLower(c.Log.Format) {
	case LogFormatText, LogFormatJSON:
	default:
		return invalid("log.format %q must be %q or %q", c.Log.Format, LogFormatText, LogFormatJSON)
	}

	if c.Metrics.Enabled && (c.Metrics.Port < 1 || c.Metrics.Port > 65535) {
		return invalid("metrics.port %d out of range", c.Metrics.Port)
	}

	return nil
}

// String renders the configuration as YAML with the password redacted
func (c Config) String() string {
	if c.Auth.Password != "" {
		c.Auth.Password = "[REDACTED]"
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Sprintf("config: %v", err)
	}
	return string(data)
}

func missing(field string) error {
	return errors.WrapFatal(fmt.Errorf("%s is required: %w", field, errors.ErrMissingConfig),
		"Config", "Validate", "check "+field)
}

func invalid(format string, args ...any) error {
	return errors.WrapFatal(fmt.Errorf(format+": %w", append(args, errors.ErrInvalidConfig)...),
		"Config", "Validate", "check configuration")
}

// isValidSubjectToken reports whether s can be used as a single topic level
// and NATS subject token.
func isValidSubjectToken(s string) bool {
	if len(s) == 0 {
		return false
	}

	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) &&
			r != '-' && r != '_' {
			return false
		}
	}
	return true
}

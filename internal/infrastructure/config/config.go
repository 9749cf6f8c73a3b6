package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for the chapa agent.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Device    DeviceConfig    `yaml:"device"`
	Server    ServerConfig    `yaml:"server"`
	Relay     RelayConfig     `yaml:"relay"`
	Commands  CommandsConfig  `yaml:"commands"`
	Reporting ReportingConfig `yaml:"reporting"`
	Provision ProvisionConfig `yaml:"provision"`
	Database  DatabaseConfig  `yaml:"database"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	InfluxDB  InfluxDBConfig  `yaml:"influxdb"`
	Diag      DiagConfig      `yaml:"diag"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// DeviceConfig identifies this unit to the rentals server.
type DeviceConfig struct {
	// ID is baked into every outbound message (e.g. "chapa_principal").
	ID string `yaml:"id"`

	// Type selects the status vocabulary: "chapa" (lock) or "luz" (light).
	Type string `yaml:"type"`
}

// ServerConfig contains the WebSocket endpoint settings.
type ServerConfig struct {
	// URL is the server base URL. http/https are accepted and mapped to ws/wss.
	URL  string `yaml:"url"`
	Path string `yaml:"path"`

	// ReconnectInterval is the fixed delay between reconnection attempts.
	ReconnectInterval time.Duration `yaml:"reconnect_interval"`

	HandshakeTimeout time.Duration `yaml:"handshake_timeout"`
	WriteTimeout     time.Duration `yaml:"write_timeout"`
	PingInterval     time.Duration `yaml:"ping_interval"`
	PongTimeout      time.Duration `yaml:"pong_timeout"`

	// MaxMessageSize caps inbound frames in bytes. Zero means no limit,
	// which is what the firmware did; a frame over the cap drops the connection.
	MaxMessageSize int64 `yaml:"max_message_size"`
}

// RelayConfig contains the output pin settings.
type RelayConfig struct {
	// Driver is "periph" (real GPIO) or "memory" (no hardware).
	Driver string `yaml:"driver"`

	// Pin is the BCM GPIO number driving the relay.
	Pin int `yaml:"pin"`

	// ActiveHigh is true when a HIGH level energises the relay (opens the lock).
	ActiveHigh bool `yaml:"active_high"`

	// InitialState is the state driven at startup: "closed" or "open".
	InitialState string `yaml:"initial_state"`
}

// CommandsConfig controls how inbound payloads are interpreted.
type CommandsConfig struct {
	// Match is "structured" (JSON {"action": ...}) or "substring" (raw text scan).
	Match string `yaml:"match"`
}

// ReportingConfig contains the periodic status report settings.
type ReportingConfig struct {
	StatusInterval time.Duration `yaml:"status_interval"`

	// PollInterval is how often the loop checks the status timer.
	PollInterval time.Duration `yaml:"poll_interval"`

	// ReportActualState sends the real relay state instead of the fixed
	// inactive status word. Defaults to false to keep the deployed behaviour.
	ReportActualState bool `yaml:"report_actual_state"`
}

// ProvisionConfig contains HTTP device registration settings.
type ProvisionConfig struct {
	Enabled   bool          `yaml:"enabled"`
	URL       string        `yaml:"url"`
	Interface string        `yaml:"interface"`
	Timeout   time.Duration `yaml:"timeout"`
}

// DatabaseConfig contains SQLite journal settings.
type DatabaseConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Path          string `yaml:"path"`
	WALMode       bool   `yaml:"wal_mode"`
	BusyTimeout   int    `yaml:"busy_timeout"`
	RetentionDays int    `yaml:"retention_days"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Enabled   bool                `yaml:"enabled"`
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// DiagConfig contains the local diagnostics HTTP server settings.
type DiagConfig struct {
	Enabled bool   `yaml:"enabled"`
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string            `yaml:"level"`
	Format string            `yaml:"format"`
	Output string            `yaml:"output"`
	File   FileLoggingConfig `yaml:"file"`
}

// FileLoggingConfig contains file-based logging settings.
type FileLoggingConfig struct {
	Path       string `yaml:"path"`
	MaxSize    int    `yaml:"max_size"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAge     int    `yaml:"max_age"`
	Compress   bool   `yaml:"compress"`
}

// Supported enumerations.
const (
	DeviceTypeChapa = "chapa"
	DeviceTypeLuz   = "luz"

	RelayDriverPeriph = "periph"
	RelayDriverMemory = "memory"

	MatchStructured = "structured"
	MatchSubstring  = "substring"

	InitialClosed = "closed"
	InitialOpen   = "open"
)

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (the firmware's compile-time constants)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: CHAPA_SECTION_KEY
// For example: CHAPA_DEVICE_ID, CHAPA_SERVER_URL
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Default returns a Config populated with the values the original firmware
// compiled in. It is valid as returned.
func Default() *Config {
	return &Config{
		Device: DeviceConfig{
			ID:   "chapa_principal",
			Type: DeviceTypeChapa,
		},
		Server: ServerConfig{
			URL:               "ws://localhost:4000",
			Path:              "/",
			ReconnectInterval: 5 * time.Second,
			HandshakeTimeout:  10 * time.Second,
			WriteTimeout:      5 * time.Second,
			PingInterval:      15 * time.Second,
			PongTimeout:       10 * time.Second,
		},
		Relay: RelayConfig{
			Driver:       RelayDriverMemory,
			Pin:          26,
			ActiveHigh:   true,
			InitialState: InitialClosed,
		},
		Commands: CommandsConfig{
			Match: MatchStructured,
		},
		Reporting: ReportingConfig{
			StatusInterval: 30 * time.Second,
			PollInterval:   250 * time.Millisecond,
		},
		Provision: ProvisionConfig{
			URL:       "http://localhost:4000/register-device",
			Interface: "wlan0",
			Timeout:   10 * time.Second,
		},
		Database: DatabaseConfig{
			Path:          "./data/chapa.db",
			WALMode:       true,
			BusyTimeout:   5,
			RetentionDays: 30,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "chapa-agent",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		InfluxDB: InfluxDBConfig{
			BatchSize:     100,
			FlushInterval: 10,
		},
		Diag: DiagConfig{
			Host: "127.0.0.1",
			Port: 8090,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
			File: FileLoggingConfig{
				Path:       "./logs/chapa-agent.log",
				MaxSize:    10,
				MaxBackups: 3,
				MaxAge:     28,
			},
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: CHAPA_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Device
	if v := os.Getenv("CHAPA_DEVICE_ID"); v != "" {
		cfg.Device.ID = v
	}
	if v := os.Getenv("CHAPA_DEVICE_TYPE"); v != "" {
		cfg.Device.Type = v
	}

	// Server
	if v := os.Getenv("CHAPA_SERVER_URL"); v != "" {
		cfg.Server.URL = v
	}

	// Relay
	if v := os.Getenv("CHAPA_RELAY_DRIVER"); v != "" {
		cfg.Relay.Driver = v
	}
	if v := os.Getenv("CHAPA_RELAY_PIN"); v != "" {
		if pin, err := strconv.Atoi(v); err == nil {
			cfg.Relay.Pin = pin
		}
	}

	// Database
	if v := os.Getenv("CHAPA_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// MQTT
	if v := os.Getenv("CHAPA_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("CHAPA_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("CHAPA_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// InfluxDB
	if v := os.Getenv("CHAPA_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	// Logging
	if v := os.Getenv("CHAPA_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of every validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	// Device
	if c.Device.ID == "" {
		errs = append(errs, "device.id is required")
	}
	switch c.Device.Type {
	case DeviceTypeChapa, DeviceTypeLuz:
	default:
		errs = append(errs, fmt.Sprintf("device.type must be %q or %q", DeviceTypeChapa, DeviceTypeLuz))
	}

	// Server
	if _, err := c.Server.WebSocketURL(); err != nil {
		errs = append(errs, fmt.Sprintf("server.url: %v", err))
	}
	if c.Server.ReconnectInterval <= 0 {
		errs = append(errs, "server.reconnect_interval must be positive")
	}
	if c.Server.MaxMessageSize < 0 {
		errs = append(errs, "server.max_message_size must not be negative")
	}

	// Relay
	switch c.Relay.Driver {
	case RelayDriverPeriph, RelayDriverMemory:
	default:
		errs = append(errs, fmt.Sprintf("relay.driver must be %q or %q", RelayDriverPeriph, RelayDriverMemory))
	}
	if c.Relay.Pin < 0 {
		errs = append(errs, "relay.pin must not be negative")
	}
	switch c.Relay.InitialState {
	case InitialClosed, InitialOpen:
	default:
		errs = append(errs, fmt.Sprintf("relay.initial_state must be %q or %q", InitialClosed, InitialOpen))
	}

	// Commands
	switch c.Commands.Match {
	case MatchStructured, MatchSubstring:
	default:
		errs = append(errs, fmt.Sprintf("commands.match must be %q or %q", MatchStructured, MatchSubstring))
	}

	// Reporting
	if c.Reporting.StatusInterval <= 0 {
		errs = append(errs, "reporting.status_interval must be positive")
	}
	if c.Reporting.PollInterval <= 0 {
		errs = append(errs, "reporting.poll_interval must be positive")
	}

	// Provisioning
	if c.Provision.Enabled && c.Provision.URL == "" {
		errs = append(errs, "provision.url is required when provisioning is enabled")
	}

	// Database
	if c.Database.Enabled && c.Database.Path == "" {
		errs = append(errs, "database.path is required when the journal is enabled")
	}

	// MQTT
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	// InfluxDB
	if c.InfluxDB.Enabled && (c.InfluxDB.URL == "" || c.InfluxDB.Bucket == "") {
		errs = append(errs, "influxdb.url and influxdb.bucket are required when InfluxDB is enabled")
	}

	// Diagnostics
	if c.Diag.Enabled && (c.Diag.Port < 1 || c.Diag.Port > 65535) {
		errs = append(errs, "diag.port must be between 1 and 65535")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// WebSocketURL joins URL and Path into the dial target. The firmware accepted
// an http:// base, so http and https are rewritten to ws and wss.
func (s ServerConfig) WebSocketURL() (string, error) {
	if s.URL == "" {
		return "", fmt.Errorf("is required")
	}
	u, err := url.Parse(s.URL)
	if err != nil {
		return "", fmt.Errorf("invalid URL: %w", err)
	}

	switch u.Scheme {
	case "ws", "wss":
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported scheme %q (use ws, wss, http or https)", u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("missing host")
	}

	path := s.Path
	if path == "" {
		path = "/"
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + path

	return u.String(), nil
}

// DiagAddr returns the listen address of the diagnostics server.
func (c *Config) DiagAddr() string {
	return fmt.Sprintf("%s:%d", c.Diag.Host, c.Diag.Port)
}

// RetentionPeriod returns the journal retention as a Duration.
func (c *Config) RetentionPeriod() time.Duration {
	return time.Duration(c.Database.RetentionDays) * 24 * time.Hour
}

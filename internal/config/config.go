// Package config holds the configuration of the bazaar API server and the notification worker.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/bazaarhq/bazaar/pkg/config"
	"github.com/bazaarhq/bazaar/pkg/config/configloader"
)

var _ configloader.Validator = (*Config)(nil)
var _ configloader.Validator = (*NotifierConfig)(nil)

// Config is the configuration of the API server.
type Config struct {
	HTTPServer config.HTTPConfig       `koanf:"server"`
	GrpcServer config.GrpcServerConfig `koanf:"grpc"`
	Database   config.DatabaseConfig   `koanf:"database"`
	Log        config.LogConfig        `koanf:"log"`
	PProf      config.PProfConfig      `koanf:"pprof"`
	Nats       config.NATSConfig       `koanf:"nats"`
	Telemetry  config.TelemetryConfig  `koanf:"telemetry"`
	Redis      config.RedisConfig      `koanf:"redis"`
	IdP        config.IdP              `koanf:"idp"`
	Notify     config.RetryConfig      `koanf:"notify"`
	Gateway    GatewayConfig           `koanf:"gateway"`
	OTP        OTPConfig               `koanf:"otp"`
	Shutdown   config.ShutdownConfig   `koanf:"shutdown"`
}

func (c *Config) String() string {
	var b strings.Builder
	b.WriteString(c.HTTPServer.String())
	b.WriteString(c.GrpcServer.String())
	b.WriteString(c.Database.String())
	b.WriteString(c.Nats.String())
	b.WriteString(c.Redis.String())
	b.WriteString(c.IdP.String())
	b.WriteString(c.Gateway.String())
	b.WriteString(c.OTP.String())
	b.WriteString(c.Notify.String())
	b.WriteString(c.Telemetry.String())
	b.WriteString(c.Log.String())
	b.WriteString(c.PProf.String())
	b.WriteString(c.Shutdown.String())
	return b.String()
}

// Validate checks if the configuration values are valid
func (c *Config) Validate() error {
	validators := []configloader.Validator{
		&c.HTTPServer, &c.GrpcServer, &c.Database, &c.Log, &c.PProf, &c.Nats,
		&c.Telemetry, &c.Redis, &c.IdP, &c.Notify, &c.Gateway, &c.OTP, &c.Shutdown,
	}
	for _, v := range validators {
		if err := v.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// GatewayConfig configures the payment gateway client.
type GatewayConfig struct {
	BaseURL     string `koanf:"baseurl"`
	StartPayURL string `koanf:"startpayurl"`
	MerchantID  string `koanf:"merchantid"`
	CallbackURL string `koanf:"callbackurl"`
	// MinAmount is the smallest amount the gateway accepts, in minor units.
	MinAmount      int64                       `koanf:"minamount"`
	Timeout        time.Duration               `koanf:"timeout"`
	CircuitBreaker config.CircuitBreakerConfig `koanf:"circuitbreaker"`
}

func (c *GatewayConfig) String() string {
	var b strings.Builder
	b.WriteString("\n--- Payment Gateway ---\n")
	b.WriteString(fmt.Sprintf("  baseurl: %s\n", c.BaseURL))
	b.WriteString(fmt.Sprintf("  startpayurl: %s\n", c.StartPayURL))
	b.WriteString(fmt.Sprintf("  merchantid: %s\n", maskSecret(c.MerchantID)))
	b.WriteString(fmt.Sprintf("  callbackurl: %s\n", c.CallbackURL))
	b.WriteString(fmt.Sprintf("  minamount: %d\n", c.MinAmount))
	b.WriteString(fmt.Sprintf("  timeout: %s\n", c.Timeout))
	b.WriteString(c.CircuitBreaker.String())
	return b.String()
}

func (c *GatewayConfig) Validate() error {
	for name, raw := range map[string]string{"baseurl": c.BaseURL, "startpayurl": c.StartPayURL, "callbackurl": c.CallbackURL} {
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("gateway.%s must be an absolute URL, got %q", name, raw)
		}
	}
	if c.MerchantID == "" {
		return fmt.Errorf("gateway.merchantid is not configured")
	}
	if c.MinAmount <= 0 {
		return fmt.Errorf("gateway.minamount must be greater than zero")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("gateway.timeout must be greater than zero")
	}
	return c.CircuitBreaker.Validate()
}

// OTPConfig controls one-time code issuance.
type OTPConfig struct {
	TTL      time.Duration `koanf:"ttl"`
	Cooldown time.Duration `koanf:"cooldown"`
	// MaxAttempts wrong codes discard the issued code. Zero means the default of 5.
	MaxAttempts int `koanf:"maxattempts"`
}

func (c *OTPConfig) String() string {
	return fmt.Sprintf("\n--- OTP ---\n  ttl: %s\n  cooldown: %s\n  maxattempts: %d\n", c.TTL, c.Cooldown, c.MaxAttempts)
}

func (c *OTPConfig) Validate() error {
	if c.TTL <= 0 {
		return fmt.Errorf("otp.ttl must be greater than zero")
	}
	if c.Cooldown < 0 || c.Cooldown >= c.TTL {
		return fmt.Errorf("otp.cooldown must be between zero and otp.ttl")
	}
	if c.MaxAttempts < 0 {
		return fmt.Errorf("otp.maxattempts must not be negative")
	}
	return nil
}

// NotifierConfig is the configuration of the notification worker.
type NotifierConfig struct {
	Log        config.LogConfig        `koanf:"log"`
	PProf      config.PProfConfig      `koanf:"pprof"`
	Nats       config.NATSConfig       `koanf:"nats"`
	Subscriber config.SubscriberConfig `koanf:"subscriber"`
	Probes     config.ProbesConfig     `koanf:"probes"`
	SMTP       SMTPConfig              `koanf:"smtp"`
	Shutdown   config.ShutdownConfig   `koanf:"shutdown"`
}

func (c *NotifierConfig) String() string {
	var b strings.Builder
	b.WriteString(c.Nats.String())
	b.WriteString(c.Subscriber.String())
	b.WriteString(c.SMTP.String())
	b.WriteString(c.Log.String())
	b.WriteString(c.PProf.String())
	b.WriteString(c.Probes.String())
	b.WriteString(c.Shutdown.String())
	return b.String()
}

func (c *NotifierConfig) Validate() error {
	validators := []configloader.Validator{
		&c.Log, &c.PProf, &c.Nats, &c.Subscriber, &c.Probes, &c.SMTP, &c.Shutdown,
	}
	for _, v := range validators {
		if err := v.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// SMTPConfig configures outgoing mail.
type SMTPConfig struct {
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	Username string `koanf:"username"`
	Password string `koanf:"password"`
	From     string `koanf:"from"`
}

func (c *SMTPConfig) String() string {
	var b strings.Builder
	b.WriteString("\n--- SMTP ---\n")
	b.WriteString(fmt.Sprintf("  host: %s\n", c.Host))
	b.WriteString(fmt.Sprintf("  port: %d\n", c.Port))
	b.WriteString(fmt.Sprintf("  username: %s\n", c.Username))
	b.WriteString(fmt.Sprintf("  from: %s\n", c.From))
	return b.String()
}

func (c *SMTPConfig) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("smtp.host is not configured")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid smtp.port: %d", c.Port)
	}
	if c.From == "" {
		return fmt.Errorf("smtp.from is not configured")
	}
	return nil
}

func maskSecret(s string) string {
	if len(s) <= 4 {
		return "****"
	}
	return s[:4] + "****"
}

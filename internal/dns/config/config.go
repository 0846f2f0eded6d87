// Package config loads the client defaults from DNS_* environment variables
// and hosts the validator shared with the command line parser.
package config

import (
	"fmt"
	"net/netip"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/haukened/rr-dig/internal/dns/common/utils"
)

// AppConfig holds configuration values parsed from environment variables.
// Command line flags take precedence over every field.
type AppConfig struct {
	// Env is the runtime environment, either "dev" or "prod".
	Env string `koanf:"env" validate:"required,oneof=dev prod"`

	// LogLevel controls log verbosity: "debug", "info", "warn", or "error".
	LogLevel string `koanf:"log_level" validate:"required,oneof=debug info warn error"`

	// Timeout is how long each attempt waits for a reply, in seconds.
	Timeout int `koanf:"timeout" validate:"gt=0"`

	// Retries is the number of resends after the first attempt times out.
	Retries int `koanf:"retries" validate:"gte=0"`

	// Port is the server port queries are sent to.
	Port int `koanf:"port" validate:"gte=1,lte=65535"`
}

// DEFAULT_APP_CONFIG defines the settings used when no environment variable
// overrides them.
var DEFAULT_APP_CONFIG = AppConfig{
	Env:      "prod",
	LogLevel: "error",
	Timeout:  5,
	Retries:  3,
	Port:     53,
}

// validServerAddr accepts an IPv4 or IPv6 literal, or a host name made of
// letters, digits and hyphens. Ports are given separately and are rejected here.
func validServerAddr(fl validator.FieldLevel) bool {
	addr := fl.Field().String()
	if addr == "" {
		return false
	}
	if _, err := netip.ParseAddr(addr); err == nil {
		return true
	}
	name := utils.CanonicalDNSName(addr)
	if name == "" || len(name) > 253 {
		return false
	}
	for _, label := range strings.Split(name, ".") {
		if !validHostLabel(label) {
			return false
		}
	}
	return true
}

func validHostLabel(label string) bool {
	if len(label) == 0 || len(label) > 63 {
		return false
	}
	if label[0] == '-' || label[len(label)-1] == '-' {
		return false
	}
	for i := 0; i < len(label); i++ {
		c := label[i]
		if !(c >= 'a' && c <= 'z' || c >= '0' && c <= '9' || c == '-') {
			return false
		}
	}
	return true
}

// envLoader is a function that loads environment variables with the prefix "DNS_".
// It transforms the keys to lowercase and removes the prefix,
// and can be mocked in tests.
var envLoader = func(k *koanf.Koanf) error {
	return k.Load(env.Provider(".", env.Opt{
		Prefix: "DNS_",
		TransformFunc: func(key, value string) (string, any) {
			key = strings.ToLower(strings.TrimPrefix(key, "DNS_"))
			return key, strings.TrimSpace(value)
		},
	}), nil)
}

// defaultLoader loads default configuration values into the provided Koanf instance
// using the structs provider and the DEFAULT_APP_CONFIG struct. It returns an error
// if loading fails.
var defaultLoader = func(k *koanf.Koanf) error {
	return k.Load(structs.Provider(DEFAULT_APP_CONFIG, "koanf"), nil)
}

// registerValidation registers the custom "server_addr" tag with the provided validator.
// Returns an error if registration fails.
var registerValidation = func(v *validator.Validate) error {
	return v.RegisterValidation("server_addr", validServerAddr)
}

// newValidator returns a validator with the custom rules registered.
func newValidator() (*validator.Validate, error) {
	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := registerValidation(validate); err != nil {
		return nil, fmt.Errorf("error registering validation: %w", err)
	}
	return validate, nil
}

// Validate checks v against its `validate` struct tags, including the
// "server_addr" rule.
func Validate(v any) error {
	validate, err := newValidator()
	if err != nil {
		return err
	}
	if err := validate.Struct(v); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	return nil
}

// Load parses environment variables and returns an AppConfig instance.
// It applies default values and runs validation automatically.
func Load() (*AppConfig, error) {
	k := koanf.New(".")

	err := defaultLoader(k)
	if err != nil {
		return nil, fmt.Errorf("error loading default config: %w", err)
	}

	err = envLoader(k)
	if err != nil {
		return nil, fmt.Errorf("error loading env: %w", err)
	}

	var cfg AppConfig

	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

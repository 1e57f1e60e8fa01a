package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// MinForwardLifetimeFloor is the least remaining lifetime a forwarded
// message may carry. Larger values are allowed.
const MinForwardLifetimeFloor = 10 * time.Second

// EndpointConfig holds the settings shared by all inbound tunnel endpoints
// of a router.
type EndpointConfig struct {
	// MinForwardLifetime is the shortest remaining lifetime a message may
	// carry when it is forwarded or looped back into a tunnel.
	MinForwardLifetime time.Duration
	// MaxGarlicDepth bounds nested garlic unwrapping.
	MaxGarlicDepth int
	// GarlicTagCacheSize is the number of session tags remembered for
	// garlic decryption.
	GarlicTagCacheSize int
	// InboundPoolSize is the capacity of the local inbound queue.
	InboundPoolSize int
	// DuplicateCacheSize is how many message ids the inbound queue
	// remembers for duplicate suppression.
	DuplicateCacheSize int
	// LogRate and LogBurst throttle drop logging per drop reason.
	LogRate  float64
	LogBurst int
	// NTPServers are queried to correct the endpoint clock.
	NTPServers  []string
	NTPTimeout  time.Duration
	NTPInterval time.Duration
}

// Defaults returns the built-in endpoint settings.
func Defaults() EndpointConfig {
	return EndpointConfig{
		MinForwardLifetime: MinForwardLifetimeFloor,
		MaxGarlicDepth:     4,
		GarlicTagCacheSize: 4096,
		InboundPoolSize:    256,
		DuplicateCacheSize: 8192,
		LogRate:            5,
		LogBurst:           20,
		NTPServers: []string{
			"0.pool.ntp.org",
			"1.pool.ntp.org",
			"2.pool.ntp.org",
		},
		NTPTimeout:  5 * time.Second,
		NTPInterval: time.Hour,
	}
}

// CurrentEndpointConfig reads the endpoint settings from viper.
func CurrentEndpointConfig() *EndpointConfig {
	return &EndpointConfig{
		MinForwardLifetime: viper.GetDuration("endpoint.min_forward_lifetime"),
		MaxGarlicDepth:     viper.GetInt("endpoint.max_garlic_depth"),
		GarlicTagCacheSize: viper.GetInt("endpoint.garlic_tag_cache_size"),
		InboundPoolSize:    viper.GetInt("endpoint.inbound_pool_size"),
		DuplicateCacheSize: viper.GetInt("endpoint.duplicate_cache_size"),
		LogRate:            viper.GetFloat64("endpoint.log_rate"),
		LogBurst:           viper.GetInt("endpoint.log_burst"),
		NTPServers:         viper.GetStringSlice("endpoint.ntp_servers"),
		NTPTimeout:         viper.GetDuration("endpoint.ntp_timeout"),
		NTPInterval:        viper.GetDuration("endpoint.ntp_interval"),
	}
}

// Validate reports the first invalid setting in cfg.
func Validate(cfg EndpointConfig) error {
	switch {
	case cfg.MinForwardLifetime < MinForwardLifetimeFloor:
		return newValidationError(fmt.Sprintf("endpoint.min_forward_lifetime must be at least %v, got %v", MinForwardLifetimeFloor, cfg.MinForwardLifetime))
	case cfg.MaxGarlicDepth < 1 || cfg.MaxGarlicDepth > 16:
		return newValidationError(fmt.Sprintf("endpoint.max_garlic_depth must be between 1 and 16, got %d", cfg.MaxGarlicDepth))
	case cfg.GarlicTagCacheSize < 1:
		return newValidationError(fmt.Sprintf("endpoint.garlic_tag_cache_size must be positive, got %d", cfg.GarlicTagCacheSize))
	case cfg.InboundPoolSize < 1:
		return newValidationError(fmt.Sprintf("endpoint.inbound_pool_size must be positive, got %d", cfg.InboundPoolSize))
	case cfg.DuplicateCacheSize < 1:
		return newValidationError(fmt.Sprintf("endpoint.duplicate_cache_size must be positive, got %d", cfg.DuplicateCacheSize))
	case cfg.LogRate <= 0:
		return newValidationError(fmt.Sprintf("endpoint.log_rate must be positive, got %v", cfg.LogRate))
	case cfg.LogBurst < 1:
		return newValidationError(fmt.Sprintf("endpoint.log_burst must be positive, got %d", cfg.LogBurst))
	case len(cfg.NTPServers) == 0:
		return newValidationError("endpoint.ntp_servers must not be empty")
	case cfg.NTPTimeout <= 0:
		return newValidationError(fmt.Sprintf("endpoint.ntp_timeout must be positive, got %v", cfg.NTPTimeout))
	case cfg.NTPInterval < time.Minute:
		return newValidationError(fmt.Sprintf("endpoint.ntp_interval must be at least 1m, got %v", cfg.NTPInterval))
	}
	return nil
}

type validationError struct {
	message string
}

func newValidationError(message string) error {
	return &validationError{message: message}
}

func (e *validationError) Error() string {
	return "configuration validation failed: " + e.message
}

package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/efreitasn/tradecore/internal/engine"
	"github.com/shopspring/decimal"
)

// Config holds all runtime configuration for the trade engine.
type Config struct {
	Port               int
	LogLevel           string
	CommissionPerShare decimal.Decimal
	MinTick            decimal.Decimal
	OCAStopPolicy      engine.StopPolicy
	ReadTimeout        time.Duration
	WriteTimeout       time.Duration
	IdleTimeout        time.Duration
	ShutdownTimeout    time.Duration
}

// Load reads configuration from environment variables, applies defaults,
// and validates values. It returns an error for any invalid value.
func Load() (*Config, error) {
	port, err := getInt("PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("invalid PORT: %w", err)
	}

	logLevel := getStr("LOG_LEVEL", "info")
	if !isValidLogLevel(logLevel) {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %q, must be one of: debug, info, warn, error", logLevel)
	}

	commission, err := getDecimal("COMMISSION_PER_SHARE", "0.005")
	if err != nil {
		return nil, fmt.Errorf("invalid COMMISSION_PER_SHARE: %w", err)
	}
	if commission.IsNegative() {
		return nil, fmt.Errorf("invalid COMMISSION_PER_SHARE: must not be negative")
	}

	minTick, err := getDecimal("MIN_TICK", "0.01")
	if err != nil {
		return nil, fmt.Errorf("invalid MIN_TICK: %w", err)
	}
	if !minTick.IsPositive() {
		return nil, fmt.Errorf("invalid MIN_TICK: must be positive")
	}

	stopPolicy := engine.StopPolicy(getStr("OCA_STOP_POLICY", string(engine.StopPolicyStopExit)))
	if !engine.ValidStopPolicy(stopPolicy) {
		return nil, fmt.Errorf("invalid OCA_STOP_POLICY: %q, must be one of: %s, %s, %s",
			stopPolicy, engine.StopPolicyStopExit, engine.StopPolicySynthesizeFill, engine.StopPolicyCancel)
	}

	readTimeout, err := getDuration("READ_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid READ_TIMEOUT: %w", err)
	}

	writeTimeout, err := getDuration("WRITE_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid WRITE_TIMEOUT: %w", err)
	}

	idleTimeout, err := getDuration("IDLE_TIMEOUT", 60*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid IDLE_TIMEOUT: %w", err)
	}

	shutdownTimeout, err := getDuration("SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid SHUTDOWN_TIMEOUT: %w", err)
	}

	return &Config{
		Port:               port,
		LogLevel:           logLevel,
		CommissionPerShare: commission,
		MinTick:            minTick,
		OCAStopPolicy:      stopPolicy,
		ReadTimeout:        readTimeout,
		WriteTimeout:       writeTimeout,
		IdleTimeout:        idleTimeout,
		ShutdownTimeout:    shutdownTimeout,
	}, nil
}

func getStr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%q is not an integer", v)
	}
	return n, nil
}

func getDecimal(key, def string) (decimal.Decimal, error) {
	v := os.Getenv(key)
	if v == "" {
		v = def
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%q is not a decimal number", v)
	}
	return d, nil
}

func getDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%q is not a duration", v)
	}
	if d <= 0 {
		return 0, fmt.Errorf("duration must be positive, got %q", v)
	}
	return d, nil
}

func isValidLogLevel(level string) bool {
	switch level {
	case "debug", "info", "warn", "error":
		return true
	}
	return false
}

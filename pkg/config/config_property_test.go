// Package config property tests: configuration fallback behavior.
// These verify universal properties that should hold across all inputs.
package config

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestProperty_InvalidWorkerTimingsFallBackToDefaults tests that
// non-positive liveness timings fall back to defaults.
//
// Property: for any non-positive heartbeat interval or timeout, the
// runtime uses the default value and stays operational.
func TestProperty_InvalidWorkerTimingsFallBackToDefaults(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.MaxSize = 50

	properties := gopter.NewProperties(parameters)
	defaults := DefaultWorkerConfig()

	properties.Property("non-positive heartbeat interval falls back to default", prop.ForAll(
		func(interval int) bool {
			cfg := &Config{}
			cfg.Worker.HeartbeatInterval = interval
			cfg.Worker.HeartbeatTimeout = defaults.HeartbeatTimeout

			validateAndApplyDefaults(cfg)

			return cfg.Worker.HeartbeatInterval == defaults.HeartbeatInterval
		},
		gen.IntRange(-1000, 0),
	))

	properties.Property("non-positive heartbeat timeout falls back to default", prop.ForAll(
		func(timeout int) bool {
			cfg := &Config{}
			cfg.Worker.HeartbeatInterval = defaults.HeartbeatInterval
			cfg.Worker.HeartbeatTimeout = timeout

			validateAndApplyDefaults(cfg)

			return cfg.Worker.HeartbeatTimeout == defaults.HeartbeatTimeout
		},
		gen.IntRange(-1000, 0),
	))

	properties.Property("omitted sweep interval derives from heartbeat interval", prop.ForAll(
		func(interval int) bool {
			cfg := &Config{}
			cfg.Worker.HeartbeatInterval = interval
			cfg.Worker.HeartbeatTimeout = defaults.HeartbeatTimeout

			validateAndApplyDefaults(cfg)

			return cfg.Worker.SweepInterval == 2*cfg.Worker.HeartbeatInterval
		},
		gen.IntRange(1, 600),
	))

	properties.TestingRun(t)
}

// TestProperty_InvalidRetrySettingsFallBackToDefaults tests that
// unusable retry settings fall back to defaults.
func TestProperty_InvalidRetrySettingsFallBackToDefaults(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.MaxSize = 50

	properties := gopter.NewProperties(parameters)
	defaults := DefaultRetryConfig()

	properties.Property("non-positive max attempts falls back to default", prop.ForAll(
		func(attempts int) bool {
			cfg := &Config{}
			cfg.Checkpoint.Retry = defaults
			cfg.Checkpoint.Retry.MaxAttempts = attempts

			validateAndApplyDefaults(cfg)

			return cfg.Checkpoint.Retry.MaxAttempts == defaults.MaxAttempts
		},
		gen.IntRange(-100, 0),
	))

	properties.Property("max delay below initial delay falls back to default", prop.ForAll(
		func(maxDelay int) bool {
			cfg := &Config{}
			cfg.Checkpoint.Retry = defaults
			cfg.Checkpoint.Retry.MaxDelayMS = maxDelay

			validateAndApplyDefaults(cfg)

			return cfg.Checkpoint.Retry.MaxDelayMS >= cfg.Checkpoint.Retry.InitialDelayMS
		},
		gen.IntRange(-1000, 99),
	))

	properties.Property("multiplier below one falls back to default", prop.ForAll(
		func(multiplier float64) bool {
			cfg := &Config{}
			cfg.Checkpoint.Retry = defaults
			cfg.Checkpoint.Retry.Multiplier = multiplier

			validateAndApplyDefaults(cfg)

			return cfg.Checkpoint.Retry.Multiplier == defaults.Multiplier
		},
		gen.Float64Range(-10, 0.99),
	))

	properties.TestingRun(t)
}

// TestProperty_ValidValuesArePreserved tests that validation never
// overwrites usable values.
func TestProperty_ValidValuesArePreserved(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.MaxSize = 50

	properties := gopter.NewProperties(parameters)

	properties.Property("valid worker timings are preserved", prop.ForAll(
		func(interval, timeout, sweep int) bool {
			cfg := &Config{}
			cfg.Worker.HeartbeatInterval = interval
			cfg.Worker.HeartbeatTimeout = timeout
			cfg.Worker.SweepInterval = sweep

			validateAndApplyDefaults(cfg)

			return cfg.Worker.HeartbeatInterval == interval &&
				cfg.Worker.HeartbeatTimeout == timeout &&
				cfg.Worker.SweepInterval == sweep
		},
		gen.IntRange(1, 600),
		gen.IntRange(1, 3600),
		gen.IntRange(1, 3600),
	))

	properties.Property("valid server port is preserved", prop.ForAll(
		func(port int) bool {
			cfg := &Config{}
			cfg.Server.Port = port

			validateAndApplyDefaults(cfg)

			return cfg.Server.Port == port
		},
		gen.IntRange(1, 65535),
	))

	properties.Property("reject mismatch policy is preserved", prop.ForAll(
		func(_ int) bool {
			cfg := &Config{}
			cfg.Checkpoint.PayloadMismatch = PayloadMismatchReject

			validateAndApplyDefaults(cfg)

			return cfg.Checkpoint.PayloadMismatch == PayloadMismatchReject
		},
		gen.Const(0),
	))

	properties.Property("unknown mismatch policy falls back to short circuit", prop.ForAll(
		func(policy string) bool {
			if policy == PayloadMismatchReject {
				return true
			}
			cfg := &Config{}
			cfg.Checkpoint.PayloadMismatch = policy

			validateAndApplyDefaults(cfg)

			return cfg.Checkpoint.PayloadMismatch == PayloadMismatchShortCircuit
		},
		gen.AlphaString(),
	))

	properties.TestingRun(t)
}

// TestProperty_ValidationIsIdempotent tests that applying validation
// twice produces the same result as applying it once.
func TestProperty_ValidationIsIdempotent(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.MaxSize = 50

	properties := gopter.NewProperties(parameters)

	properties.Property("validation is idempotent", prop.ForAll(
		func(port, interval, timeout, attempts int) bool {
			cfg := &Config{}
			cfg.Server.Port = port
			cfg.Worker.HeartbeatInterval = interval
			cfg.Worker.HeartbeatTimeout = timeout
			cfg.Checkpoint.Retry.MaxAttempts = attempts

			validateAndApplyDefaults(cfg)
			first := *cfg
			validateAndApplyDefaults(cfg)

			return first == *cfg
		},
		gen.IntRange(-100, 70000),
		gen.IntRange(-100, 100),
		gen.IntRange(-100, 100),
		gen.IntRange(-10, 10),
	))

	properties.TestingRun(t)
}

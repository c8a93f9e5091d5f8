package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"skytally/pkg/config"
	errs "skytally/pkg/errors"
	"skytally/pkg/logger"
)

// Operation is a single attempt of something that might need retrying
type Operation func() error

// OperationWithResult is an attempt that also returns a value
type OperationWithResult[T any] func() (T, error)

// Config holds retry configuration
type Config struct {
	// MaxAttempts is the total number of attempts, including the first one
	MaxAttempts int
	// Backoff computes the delay when the error carries no server hint
	Backoff BackoffStrategy
	// RetryIf determines if an error should be retried
	RetryIf func(error) bool
	// OnRetry is called before each sleep
	OnRetry func(attempt int, err error, delay time.Duration)
	// Sleep defaults to Wait
	Sleep Sleeper
	// Logger for retry attempts
	Logger logger.Logger
}

// DefaultConfig returns three attempts with the default exponential backoff
func DefaultConfig() *Config {
	return &Config{
		MaxAttempts: 3,
		Backoff:     DefaultExponentialBackoff(),
		RetryIf:     DefaultRetryIf,
		Sleep:       Wait,
		Logger:      logger.GetLogger(),
	}
}

// FromConfig builds a retry configuration from the user settings
func FromConfig(cfg config.RetryConfig, log logger.Logger) *Config {
	return &Config{
		MaxAttempts: cfg.MaxAttempts,
		Backoff: &ExponentialBackoff{
			BaseDelay:    cfg.BaseDelay,
			MaxDelay:     cfg.MaxDelay,
			Multiplier:   cfg.Multiplier,
			JitterFactor: cfg.JitterFactor,
		},
		RetryIf: DefaultRetryIf,
		Sleep:   Wait,
		Logger:  log,
	}
}

// DefaultRetryIf retries throttling and network failures only
func DefaultRetryIf(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var apiErr *errs.Error
	if errors.As(err, &apiErr) {
		return errs.IsRetryable(apiErr.Kind)
	}

	// Unclassified errors are assumed transient
	return true
}

// delayFor prefers the wait the server asked for, bounded by the backoff cap
func delayFor(cfg *Config, err error, attempt int) (time.Duration, bool) {
	var apiErr *errs.Error
	if errors.As(err, &apiErr) && apiErr.RetryAfter > 0 {
		delay := apiErr.RetryAfter
		if capped, ok := cfg.Backoff.(interface{ Cap() time.Duration }); ok && capped.Cap() > 0 && delay > capped.Cap() {
			delay = capped.Cap()
		}
		return delay, true
	}
	return cfg.Backoff.NextDelay(attempt), false
}

// Do executes an operation with retry logic. When the budget runs out on a
// retryable *errs.Error the returned error keeps its kind and is marked Exhausted.
func Do(ctx context.Context, op Operation, cfg *Config) error {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.Backoff == nil {
		cfg.Backoff = DefaultExponentialBackoff()
	}
	if cfg.RetryIf == nil {
		cfg.RetryIf = DefaultRetryIf
	}
	sleep := cfg.Sleep
	if sleep == nil {
		sleep = Wait
	}
	log := cfg.Logger
	if log == nil {
		log = logger.NewNopLogger()
	}
	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := op()
		if err == nil {
			if attempt > 1 {
				log.DebugWithFields("operation succeeded after retry", map[string]interface{}{
					"attempt": attempt,
				})
			}
			return nil
		}
		lastErr = err

		if !cfg.RetryIf(err) {
			log.DebugWithFields("error is not retryable", map[string]interface{}{
				"attempt": attempt,
				"error":   err.Error(),
			})
			return err
		}

		if attempt == maxAttempts {
			break
		}

		delay, fromServer := delayFor(cfg, err, attempt)
		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt, err, delay)
		}

		log.DebugWithFields("retrying operation", map[string]interface{}{
			"attempt":      attempt,
			"max_attempts": maxAttempts,
			"error":        err.Error(),
			"delay":        delay,
			"server_hint":  fromServer,
		})

		if err := sleep(ctx, delay); err != nil {
			log.WarnWithFields("retry cancelled", map[string]interface{}{
				"attempt": attempt,
				"reason":  err.Error(),
			})
			return fmt.Errorf("retry cancelled: %w", err)
		}
	}

	log.ErrorWithFields("max retry attempts exceeded", map[string]interface{}{
		"attempts":   maxAttempts,
		"last_error": lastErr.Error(),
	})
	return exhausted(lastErr, maxAttempts)
}

// exhausted marks the last error as a spent retry budget
func exhausted(lastErr error, attempts int) error {
	var apiErr *errs.Error
	if errors.As(lastErr, &apiErr) {
		return &errs.Error{
			Kind:       apiErr.Kind,
			Message:    "retry budget exhausted",
			Code:       apiErr.Code,
			Endpoint:   apiErr.Endpoint,
			Attempts:   attempts,
			Exhausted:  true,
			RetryAfter: apiErr.RetryAfter,
			Err:        lastErr,
		}
	}
	return fmt.Errorf("max retry attempts (%d) exceeded: %w", attempts, lastErr)
}

// DoWithResult executes an operation that returns a result with retry logic
func DoWithResult[T any](ctx context.Context, op OperationWithResult[T], cfg *Config) (T, error) {
	var result T

	err := Do(ctx, func() error {
		var opErr error
		result, opErr = op()
		return opErr
	}, cfg)

	return result, err
}

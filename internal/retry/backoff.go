package retry

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/rs/zerolog"
)

// Config configures retry behavior. With Multiplier=1.0 and Jitter=false the
// delay between attempts is fixed, which is what the orchestration engine
// uses for submission and run polling.
type Config struct {
	MaxAttempts int           `json:"max_attempts"` // Total attempts, including the first
	BaseDelay   time.Duration `json:"base_delay"`   // Delay before the first retry
	MaxDelay    time.Duration `json:"max_delay"`    // Ceiling on the computed delay
	Multiplier  float64       `json:"multiplier"`   // Backoff multiplier (1.0 = fixed delay)
	Jitter      bool          `json:"jitter"`       // Add random jitter to delays
}

// Result contains information about the retry operation
type Result struct {
	Attempts      int           `json:"attempts"`       // Total number of attempts made
	TotalDuration time.Duration `json:"total_duration"` // Total time spent on all attempts
	LastError     error         `json:"-"`              // Last error encountered
	Success       bool          `json:"success"`        // Whether the operation eventually succeeded
	RetryReasons  []string      `json:"retry_reasons"`  // Reasons for each failed attempt
}

// FixedDelayConfig returns a fixed-delay retry configuration. The external
// assistant service contract calls for small bounded retry counts with a
// constant delay, never exponential backoff.
func FixedDelayConfig(attempts int, delay time.Duration) Config {
	return Config{
		MaxAttempts: attempts,
		BaseDelay:   delay,
		MaxDelay:    delay,
		Multiplier:  1.0,
		Jitter:      false,
	}
}

// Do executes an operation with retry logic, waiting between attempts via the
// supplied sleep function. Passing nil uses a real timer; tests inject a stub
// so no real delays occur.
func Do(ctx context.Context, config Config, operation func() error, sleep func(context.Context, time.Duration) error, logger zerolog.Logger) Result {
	startTime := time.Now()

	if sleep == nil {
		sleep = waitTimer
	}

	result := Result{
		RetryReasons: make([]string, 0),
	}

	for attempt := 0; attempt < config.MaxAttempts; attempt++ {
		result.Attempts = attempt + 1

		err := operation()
		if err == nil {
			result.Success = true
			result.TotalDuration = time.Since(startTime)
			if attempt > 0 {
				logger.Info().
					Int("attempts", result.Attempts).
					Dur("total_duration", result.TotalDuration).
					Msg("operation succeeded after retries")
			}
			return result
		}

		result.LastError = err
		result.RetryReasons = append(result.RetryReasons, err.Error())

		if attempt == config.MaxAttempts-1 {
			// No more attempts left
			result.TotalDuration = time.Since(startTime)
			logger.Warn().
				Int("attempts", result.Attempts).
				Dur("total_duration", result.TotalDuration).
				Err(err).
				Msg("operation failed, attempts exhausted")
			return result
		}

		if ctx.Err() != nil {
			result.LastError = ctx.Err()
			result.TotalDuration = time.Since(startTime)
			return result
		}

		delay := calculateDelay(config, attempt)
		logger.Debug().
			Int("attempt", attempt+1).
			Int("max_attempts", config.MaxAttempts).
			Dur("delay", delay).
			Err(err).
			Msg("operation failed, retrying")

		if err := sleep(ctx, delay); err != nil {
			result.LastError = err
			result.TotalDuration = time.Since(startTime)
			return result
		}
	}

	result.TotalDuration = time.Since(startTime)
	return result
}

// waitTimer sleeps for d or until the context is cancelled.
func waitTimer(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// calculateDelay calculates the delay before the next retry attempt
func calculateDelay(config Config, attempt int) time.Duration {
	delay := float64(config.BaseDelay) * math.Pow(config.Multiplier, float64(attempt))

	if delay > float64(config.MaxDelay) {
		delay = float64(config.MaxDelay)
	}

	if config.Jitter {
		// Up to 10% random jitter either way
		jitterRange := delay * 0.1
		delay += (rand.Float64() - 0.5) * 2 * jitterRange
		if delay < 0 {
			delay = float64(config.BaseDelay)
		}
	}

	return time.Duration(delay)
}

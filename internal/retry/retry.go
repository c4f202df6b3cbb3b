package retry

import (
	"fmt"
	"time"

	"github.com/angelitadias/ETL-Pipeline-API/internal/logger"
)

// Policy holds the parameters for the retry strategy.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Logger      *logger.Logger
}

// Do executes fn with exponential back-off. fn reports whether its error is
// retryable; a non-retryable error is returned immediately.
func (p *Policy) Do(component, operation string, fn func() (retryable bool, err error)) error {
	var lastErr error
	delay := p.BaseDelay

	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		retryable, err := fn()
		if err == nil {
			return nil
		}
		if !retryable {
			return err
		}
		lastErr = err

		if attempt < p.MaxAttempts {
			p.Logger.Warn(component, "%s failed (attempt %d/%d): %v, retrying in %v",
				operation, attempt, p.MaxAttempts, err, delay)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operation, p.MaxAttempts, lastErr)
}

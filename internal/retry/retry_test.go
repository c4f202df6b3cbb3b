package retry

import (
	"errors"
	"testing"
	"time"

	"github.com/angelitadias/ETL-Pipeline-API/internal/logger"
)

func testPolicy(maxAttempts int) *Policy {
	return &Policy{
		MaxAttempts: maxAttempts,
		BaseDelay:   time.Millisecond,
		Logger:      logger.New(logger.LevelError),
	}
}

func TestDoSucceedsFirstAttempt(t *testing.T) {
	calls := 0
	err := testPolicy(3).Do("Test", "op", func() (bool, error) {
		calls++
		return false, nil
	})
	if err != nil {
		t.Fatalf("Do returned error: %v", err)
	}
	if calls != 1 {
		t.Errorf("fn called %d times, want 1", calls)
	}
}

func TestDoRetriesUntilSuccess(t *testing.T) {
	calls := 0
	err := testPolicy(5).Do("Test", "op", func() (bool, error) {
		calls++
		if calls < 3 {
			return true, errors.New("transient")
		}
		return false, nil
	})
	if err != nil {
		t.Fatalf("Do returned error: %v", err)
	}
	if calls != 3 {
		t.Errorf("fn called %d times, want 3", calls)
	}
}

func TestDoStopsOnNonRetryable(t *testing.T) {
	fatal := errors.New("fatal")
	calls := 0
	err := testPolicy(5).Do("Test", "op", func() (bool, error) {
		calls++
		return false, fatal
	})
	if !errors.Is(err, fatal) {
		t.Errorf("Do error = %v, want %v", err, fatal)
	}
	if calls != 1 {
		t.Errorf("fn called %d times, want 1", calls)
	}
}

func TestDoExhaustsAttempts(t *testing.T) {
	transient := errors.New("transient")
	calls := 0
	err := testPolicy(3).Do("Test", "op", func() (bool, error) {
		calls++
		return true, transient
	})
	if calls != 3 {
		t.Errorf("fn called %d times, want 3", calls)
	}
	if !errors.Is(err, transient) {
		t.Errorf("final error should wrap the last failure, got %v", err)
	}
}

package domain

import (
	"math"
	"time"
)

type CaptureAttemptStatus string

const (
	AttemptPending   CaptureAttemptStatus = "pending"
	AttemptResolved  CaptureAttemptStatus = "resolved"
	AttemptAbandoned CaptureAttemptStatus = "abandoned"
)

// CaptureAttempt tracks a capture whose outcome is unknown: the provider call
// timed out or the result could not be stored.
type CaptureAttempt struct {
	ProviderOrderID string
	Status          CaptureAttemptStatus
	AttemptCount    int
	LastError       *string
	NextRetryAt     time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// NextRetryDelay doubles from base per attempt, capped at one hour.
func NextRetryDelay(base time.Duration, attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	delay := time.Duration(float64(base) * math.Pow(2, float64(attempt)))
	if delay > time.Hour || delay <= 0 {
		return time.Hour
	}
	return delay
}

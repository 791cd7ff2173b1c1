package logger

import "time"

// Took returns the rounded duration since start.
func Took(start time.Time) time.Duration {
	return RoundMS(time.Since(start))
}

// RoundMS rounds d to the nearest millisecond; negative values become zero.
func RoundMS(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	return d.Round(time.Millisecond)
}

// Outcome maps an error to the "outcome" value used in handler summaries.
func Outcome(err error) string {
	if err != nil {
		return "fail"
	}
	return "ok"
}

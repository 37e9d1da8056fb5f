package live

import "time"

// Backoff computes reconnect delays that grow linearly with the attempt
// number up to Max.
type Backoff struct {
	Base       time.Duration `mapstructure:"base"`
	Max        time.Duration `mapstructure:"max"`
	MaxAttempt int           `mapstructure:"max_attempt"`
}

// DefaultBackoff is 1s, 2s, 3s ... capped at 8s, with the attempt counter
// capped at 10.
var DefaultBackoff = Backoff{Base: time.Second, Max: 8 * time.Second, MaxAttempt: 10}

// Delay returns min(Base*attempt, Max). Attempts below 1 are treated as 1.
func (b Backoff) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := b.Base * time.Duration(attempt)
	if b.Max > 0 && d > b.Max {
		d = b.Max
	}
	return d
}

// Next returns the attempt counter after one more failure, honoring
// MaxAttempt.
func (b Backoff) Next(attempt int) int {
	attempt++
	if b.MaxAttempt > 0 && attempt > b.MaxAttempt {
		attempt = b.MaxAttempt
	}
	return attempt
}

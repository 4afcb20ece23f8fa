package auth

import (
	"crypto/rand"
	"encoding/binary"
	"time"
)

// TimingConfig tunes the delay applied to rejected login attempts.
type TimingConfig struct {
	BaseDelayMs   int // base delay in milliseconds
	RandomDelayMs int // random jitter range in milliseconds
}

// TimingDelay pads rejection paths so that "unknown account" and "wrong
// password" take indistinguishable time.
type TimingDelay struct {
	config TimingConfig
}

func NewTimingDelay(config TimingConfig) *TimingDelay {
	return &TimingDelay{config: config}
}

// Wait sleeps for the configured base delay plus jitter. No-op when the
// attempt succeeded or the delays are zero.
func (td *TimingDelay) Wait(success bool) {
	if success {
		return
	}

	delay := time.Duration(td.config.BaseDelayMs) * time.Millisecond
	if td.config.RandomDelayMs > 0 {
		if jitter, err := cryptoRandIntn(td.config.RandomDelayMs); err == nil {
			delay += time.Duration(jitter) * time.Millisecond
		}
	}

	if delay > 0 {
		time.Sleep(delay)
	}
}

// cryptoRandIntn returns a secure random number in [0, max).
// Uses crypto/rand; timing padding is security-sensitive.
func cryptoRandIntn(max int) (int, error) {
	if max <= 0 {
		return 0, nil
	}

	randomBytes := make([]byte, 8)
	if _, err := rand.Read(randomBytes); err != nil {
		return 0, err
	}

	return int(binary.BigEndian.Uint64(randomBytes) % uint64(max)), nil
}

package sr

import (
	"github.com/pkg/errors"
)

// Config carries the per-endpoint protocol tunables. Both endpoints of a
// session must agree on WindowSize and SeqSpace.
type Config struct {
	// WindowSize is the maximum number of unacknowledged packets the
	// sender keeps in flight, and equally the number of out-of-order
	// packets the receiver is prepared to buffer.
	WindowSize int
	// SeqSpace is the sequence number modulus. Selective repeat requires
	// SeqSpace >= 2*WindowSize, otherwise a retransmitted old packet is
	// indistinguishable from a new one inside the receiver's window.
	SeqSpace int
	// Timeout is the retransmission timeout in channel time units. It
	// must exceed the round-trip time of the channel or every packet is
	// retransmitted spuriously.
	Timeout float64
}

// DefaultConfig returns the canonical configuration: window of 6, sequence
// space of 12, timeout of one round trip (16 time units).
func DefaultConfig() Config {
	return Config{
		WindowSize: defaultWindowSize,
		SeqSpace:   defaultSeqSpace,
		Timeout:    defaultTimeout,
	}
}

func (c Config) validate() error {
	if c.WindowSize <= 0 {
		return errors.Errorf("window size must be positive, got %d", c.WindowSize)
	}
	if c.Timeout <= 0 {
		return errors.Errorf("retransmission timeout must be positive, got %v", c.Timeout)
	}
	if c.SeqSpace < 2*c.WindowSize {
		return errors.Errorf("sequence space %d is too small for window size %d, need at least %d",
			c.SeqSpace, c.WindowSize, 2*c.WindowSize)
	}
	return nil
}

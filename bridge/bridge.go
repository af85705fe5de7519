// Package bridge carries externally loaded model bytes from a platform
// bridge into the client. The core never parses the payload; it only hands
// ownership across, exactly once.
package bridge

import (
	"context"
	"errors"
	"sync"
)

var (
	ErrAlreadyDelivered = errors.New("bridge: model already delivered")
	ErrAlreadyTaken     = errors.New("bridge: model already taken")
)

// ModelHandoff is a single-producer single-consumer one-shot channel. The
// producer delivers an owned buffer once; the consumer takes it once, after
// which neither side can touch it again.
type ModelHandoff struct {
	mu        sync.Mutex
	ch        chan []byte
	delivered bool
	taken     bool
}

func NewModelHandoff() *ModelHandoff {
	return &ModelHandoff{ch: make(chan []byte, 1)}
}

// Deliver hands the buffer to the consumer. The caller must not retain or
// modify data afterwards.
func (h *ModelHandoff) Deliver(data []byte) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.delivered {
		return ErrAlreadyDelivered
	}
	h.delivered = true
	h.ch <- data
	return nil
}

// TryTake returns the buffer if one has been delivered and not yet taken.
func (h *ModelHandoff) TryTake() ([]byte, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.taken {
		return nil, false
	}
	select {
	case data := <-h.ch:
		h.taken = true
		return data, true
	default:
		return nil, false
	}
}

// Take blocks until a buffer is delivered or ctx ends.
func (h *ModelHandoff) Take(ctx context.Context) ([]byte, error) {
	h.mu.Lock()
	if h.taken {
		h.mu.Unlock()
		return nil, ErrAlreadyTaken
	}
	h.mu.Unlock()

	select {
	case data := <-h.ch:
		h.mu.Lock()
		h.taken = true
		h.mu.Unlock()
		return data, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

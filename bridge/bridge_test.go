package bridge

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"
)

func TestDeliverThenTryTake(t *testing.T) {
	h := NewModelHandoff()

	if _, ok := h.TryTake(); ok {
		t.Fatal("nothing delivered yet")
	}
	if err := h.Deliver([]byte("glb bytes")); err != nil {
		t.Fatal(err)
	}
	data, ok := h.TryTake()
	if !ok || !bytes.Equal(data, []byte("glb bytes")) {
		t.Fatalf("want delivered payload, got %q ok=%v", data, ok)
	}
	if _, ok := h.TryTake(); ok {
		t.Fatal("payload must hand off exactly once")
	}
}

func TestSecondDeliverFails(t *testing.T) {
	h := NewModelHandoff()

	if err := h.Deliver([]byte("first")); err != nil {
		t.Fatal(err)
	}
	if err := h.Deliver([]byte("second")); !errors.Is(err, ErrAlreadyDelivered) {
		t.Fatalf("want ErrAlreadyDelivered, got %v", err)
	}
	data, ok := h.TryTake()
	if !ok || string(data) != "first" {
		t.Fatalf("want first payload, got %q ok=%v", data, ok)
	}
}

func TestTakeBlocksUntilDelivered(t *testing.T) {
	h := NewModelHandoff()

	go func() {
		time.Sleep(10 * time.Millisecond)
		h.Deliver([]byte("late"))
	}()

	data, err := h.Take(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "late" {
		t.Fatalf("want late payload, got %q", data)
	}
	if _, err := h.Take(context.Background()); !errors.Is(err, ErrAlreadyTaken) {
		t.Fatalf("want ErrAlreadyTaken, got %v", err)
	}
}

func TestTakeHonorsContext(t *testing.T) {
	h := NewModelHandoff()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := h.Take(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("want DeadlineExceeded, got %v", err)
	}

	// A delivery after the failed take must still reach a later consumer.
	if err := h.Deliver([]byte("model")); err != nil {
		t.Fatal(err)
	}
	if data, ok := h.TryTake(); !ok || string(data) != "model" {
		t.Fatalf("want model payload, got %q ok=%v", data, ok)
	}
}

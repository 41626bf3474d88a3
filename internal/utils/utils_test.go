package utils

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestAwaitReturnsResult(t *testing.T) {
	t.Parallel()

	got, err := Await(context.Background(), func() (string, error) {
		return "done", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "done" {
		t.Fatalf("expected done, got %q", got)
	}
}

func TestAwaitReturnsError(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	_, err := Await(context.Background(), func() (int, error) {
		return 0, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
}

func TestAwaitStopsOnDeadline(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := Await(ctx, func() (string, error) {
		<-release
		return "late", nil
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("await blocked for %s", elapsed)
	}
}

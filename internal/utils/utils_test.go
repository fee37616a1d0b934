package utils

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestWaitFor(t *testing.T) {
	var slept time.Duration
	sleep = func(d time.Duration) { slept = d }
	t.Cleanup(func() { sleep = time.Sleep })

	if err := WaitFor(context.Background(), 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if slept != 0 {
		t.Fatalf("zero duration must not sleep")
	}

	if err := WaitFor(context.Background(), time.Second); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if slept != time.Second {
		t.Fatalf("expected to sleep 1s, slept %s", slept)
	}
}

func TestWaitForCanceled(t *testing.T) {
	block := make(chan struct{})
	sleep = func(time.Duration) { <-block }
	t.Cleanup(func() {
		close(block)
		sleep = time.Sleep
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := WaitFor(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if err := WaitFor(ctx, 0); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled for zero wait, got %v", err)
	}
}

func TestBackoff(t *testing.T) {
	cases := []struct {
		attempt int
		want    time.Duration
	}{
		{attempt: 0, want: 500 * time.Millisecond},
		{attempt: 1, want: 500 * time.Millisecond},
		{attempt: 2, want: time.Second},
		{attempt: 4, want: 4 * time.Second},
		{attempt: 100, want: 500 * time.Millisecond * (1 << 30)},
	}

	for _, tc := range cases {
		if got := Backoff(500*time.Millisecond, tc.attempt); got != tc.want {
			t.Fatalf("attempt %d: expected %s, got %s", tc.attempt, tc.want, got)
		}
	}
}

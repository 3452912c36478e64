package main

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestWithTimeout_BoundsEachStep(t *testing.T) {
	err := withTimeout(20*time.Millisecond, func(ctx context.Context) error {
		if _, ok := ctx.Deadline(); !ok {
			t.Error("step context has no deadline")
		}
		<-ctx.Done()
		return ctx.Err()
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want deadline exceeded", err)
	}
}

func TestWithTimeout_ZeroMeansUnbounded(t *testing.T) {
	err := withTimeout(0, func(ctx context.Context) error {
		if _, ok := ctx.Deadline(); ok {
			t.Error("unexpected deadline")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("err = %v", err)
	}
}

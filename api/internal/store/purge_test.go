package store

import (
	"context"
	"testing"
	"time"
)

func TestStartPurgeRunsAndStops(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	calls := make(chan struct{}, 8)
	done := make(chan struct{})
	go func() {
		StartPurge(ctx, time.Millisecond, func(context.Context) (int64, error) {
			select {
			case calls <- struct{}{}:
			default:
			}
			return 1, nil
		})
		close(done)
	}()

	// первый вызов сразу, второй — по тикеру
	for i := 0; i < 2; i++ {
		select {
		case <-calls:
		case <-time.After(time.Second):
			t.Fatal("purge was not called")
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("StartPurge did not stop after cancel")
	}
}

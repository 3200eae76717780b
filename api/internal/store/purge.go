package store

import (
	"context"
	"log"
	"time"
)

// StartPurge гоняет purge по расписанию, пока жив контекст.
// Первый проход — сразу при старте, чтобы не ждать сутки после рестарта.
func StartPurge(ctx context.Context, every time.Duration, purge func(context.Context) (int64, error)) {
	tick := time.NewTicker(every)
	defer tick.Stop()

	for {
		n, err := purge(ctx)
		if err != nil {
			log.Printf("store: purge: %v", err)
		} else if n > 0 {
			log.Printf("store: purge удалил %d строк", n)
		}

		select {
		case <-ctx.Done():
			return
		case <-tick.C:
		}
	}
}

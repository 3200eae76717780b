package httpserver

import (
	"context"
	"log"
	"net/http"
	"time"
)

// RegisterHealthz вешает /healthz на default mux (его же использует
// ListenForWebhook бота). ping — проверка БД, может быть nil.
func RegisterHealthz(ping func(ctx context.Context) error) {
	http.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		if ping != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := ping(ctx); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte("db: not ok\n" + err.Error()))
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	http.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("assignment-duper bot"))
	})
}

func StartHTTP(addr string) error {
	log.Printf("listening on %s", addr)
	return http.ListenAndServe(addr, nil)
}

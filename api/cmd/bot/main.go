package main

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"net/url"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver

	"assignment-duper/api/internal/config"
	"assignment-duper/api/internal/gateway/gemini"
	"assignment-duper/api/internal/httpserver"
	"assignment-duper/api/internal/store"
	"assignment-duper/api/internal/telegram"
)

const (
	runRetention  = 30 * 24 * time.Hour // сколько храним историю прогонов
	purgeInterval = 24 * time.Hour
)

func main() {
	cfg := config.Load()

	// Платформенный PORT важнее конфига
	if p := strings.TrimSpace(os.Getenv("PORT")); p != "" {
		cfg.Port = p
	} else if strings.TrimSpace(cfg.Port) == "" {
		cfg.Port = "8080"
	}

	// --- Postgres ---
	dsn := databaseDSN(cfg)
	if dsn == "" {
		log.Fatal("database DSN is empty: set DATABASE_URL or POSTGRES_* env vars")
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		log.Fatalf("sql.Open: %v", err)
	}
	// connection pool tune (нагрузка небольшая, прогоны долгие)
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(1 * time.Hour)

	{
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			log.Fatalf("db.Ping: %v", err)
		}
		if err := store.EnsureSchema(ctx, db); err != nil {
			log.Fatalf("store.EnsureSchema: %v", err)
		}
		log.Printf("db connected: %s", dsnSummary(dsn))
	}

	runs := store.NewRunRepo(db)
	go store.StartPurge(context.Background(), purgeInterval, func(ctx context.Context) (int64, error) {
		return runs.PurgeOlderThan(ctx, runRetention)
	})

	// --- Telegram bot ---
	bot, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		log.Fatal(err)
	}
	bot.Debug = false

	// --- Шлюз модели: один на процесс; ключ можно заменить между прогонами
	gw := gemini.New(cfg.GeminiAPIKey, gemini.Models{
		Pro:   cfg.GeminiProModel,
		Flash: cfg.GeminiFlashModel,
		Image: cfg.GeminiImageModel,
	})

	r := &telegram.Router{
		Bot:     bot,
		GW:      gw,
		Samples: store.NewSampleRepo(db),
		Runs:    runs,
	}

	httpserver.RegisterHealthz(db.PingContext)

	addr := "0.0.0.0:" + cfg.Port
	if wh := strings.TrimSpace(cfg.WebhookURL); wh != "" {
		serveWebhook(addr, bot, r, wh)
	} else {
		servePolling(addr, bot, r)
	}
}

// ---------------- Modes -----------------

func serveWebhook(addr string, bot *tgbotapi.BotAPI, r *telegram.Router, baseURL string) {
	path := webhookPath(bot.Token)
	wh, err := tgbotapi.NewWebhook(strings.TrimRight(baseURL, "/") + path)
	if err != nil {
		log.Fatal(err)
	}
	wh.DropPendingUpdates = true
	if _, err := bot.Request(wh); err != nil {
		log.Fatal(err)
	}

	// регистрирует обработчик на DefaultServeMux, рядом с /healthz
	updates := bot.ListenForWebhook(path)
	go func() {
		for upd := range updates {
			r.HandleUpdate(upd)
		}
		log.Printf("webhook updates channel closed")
	}()

	log.Printf("webhook listening on %s%s", addr, path)
	if err := http.ListenAndServe(addr, nil); err != nil {
		log.Fatal(err)
	}
}

func servePolling(addr string, bot *tgbotapi.BotAPI, r *telegram.Router) {
	// healthz поднимаем и в этом режиме
	go func() {
		if err := httpserver.StartHTTP(addr); err != nil {
			log.Fatal(err)
		}
	}()
	pollUpdates(context.Background(), bot, r.HandleUpdate)
}

// ---------------- Polling loop -----------------

var reRetryAfter = regexp.MustCompile(`(?i)retry after\s+(\d+)`)

// backoffFor: на 429 Телеграм сам говорит "retry after N",
// остальные сбои — короткая пауза.
func backoffFor(err error) time.Duration {
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "too many requests") {
		if m := reRetryAfter.FindStringSubmatch(msg); len(m) == 2 {
			if n, _ := strconv.Atoi(m[1]); n > 0 {
				return time.Duration(n) * time.Second
			}
		}
		return 3 * time.Second
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return 2 * time.Second
	}
	return time.Second
}

func pollUpdates(ctx context.Context, bot *tgbotapi.BotAPI, handle func(tgbotapi.Update)) {
	req := tgbotapi.NewUpdate(0)
	req.Timeout = 30 // long poll, сек

	for ctx.Err() == nil {
		updates, err := bot.GetUpdates(req)
		if err != nil {
			d := backoffFor(err)
			if d > 15*time.Second {
				d = 15 * time.Second
			}
			log.Printf("polling: %v; пауза %v", err, d)
			time.Sleep(d)
			continue
		}

		for _, upd := range updates {
			if upd.UpdateID >= req.Offset {
				req.Offset = upd.UpdateID + 1
			}
			handle(upd)
		}
		if len(updates) == 0 {
			time.Sleep(200 * time.Millisecond)
		}
	}
	log.Printf("polling: остановлен")
}

// ---------------- Helpers -----------------

func databaseDSN(cfg *config.Config) string {
	if v := strings.TrimSpace(cfg.DatabaseURL); v != "" {
		return v
	}
	// Однокнопочный вариант: адрес собирается из POSTGRES_*/PG* переменных.
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(envOr("POSTGRES_USER", "duper"), os.Getenv("POSTGRES_PASSWORD")),
		Host:     net.JoinHostPort(envOr("PGHOST", "db"), envOr("PGPORT", "5432")),
		Path:     "/" + envOr("POSTGRES_DB", "duper"),
		RawQuery: "sslmode=disable",
	}
	return u.String()
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

// webhookPath — секретный путь, детерминированный токеном.
func webhookPath(token string) string {
	sum := sha256.Sum256([]byte(token))
	return "/webhook/" + hex.EncodeToString(sum[:8])
}

// dsnSummary — строка для лога без пароля.
func dsnSummary(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil {
		return "dsn: parse error"
	}
	return fmt.Sprintf("host=%s db=%s user=%s",
		u.Host, strings.TrimPrefix(u.Path, "/"), u.User.Username())
}

package config

import (
	"log"
	"os"
)

type Config struct {
	Port string

	TelegramBotToken string
	WebhookURL       string

	GeminiAPIKey string
	// Модели по уровням. Pro — основной «умный» уровень,
	// Flash — запасной при отказе в доступе, Image — рендер страниц.
	GeminiProModel   string
	GeminiFlashModel string
	GeminiImageModel string

	DatabaseURL string
}

func mustEnv(k string) string {
	v := os.Getenv(k)
	if v == "" {
		log.Fatalf("missing required env %s", k)
	}
	return v
}

func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func Load() *Config {
	return &Config{
		Port: getEnv("PORT", "8000"),

		TelegramBotToken: mustEnv("TELEGRAM_BOT_TOKEN"),
		WebhookURL:       getEnv("WEBHOOK_URL", ""),

		GeminiAPIKey:     mustEnv("GEMINI_API_KEY"),
		GeminiProModel:   getEnv("GEMINI_PRO_MODEL", "gemini-2.5-pro"),
		GeminiFlashModel: getEnv("GEMINI_FLASH_MODEL", "gemini-2.5-flash"),
		GeminiImageModel: getEnv("GEMINI_IMAGE_MODEL", "gemini-2.5-flash-image-preview"),

		DatabaseURL: getEnv("DATABASE_URL", ""),
	}
}

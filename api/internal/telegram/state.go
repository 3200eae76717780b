package telegram

import (
	"sync"
	"time"
)

const modeAwaitSample = "await_sample"

const (
	// Кадры альбома приходят отдельными апдейтами; ждём паузу между ними.
	albumDebounce = 1200 * time.Millisecond
	// Потолок площади склейки, дальше ужимаем.
	mergedMaxPixels = 18_000_000
)

var (
	chatMode sync.Map // chatID -> string: "" | "await_sample"
	chatBusy sync.Map // chatID -> bool: прогон конвейера уже идёт
	batches  sync.Map // key -> *photoBatch
)

// photoBatch копит кадры одного альбома (или одиночные фото чата)
// до срабатывания дебаунса.
type photoBatch struct {
	chatID int64

	mu     sync.Mutex
	images [][]byte
	timer  *time.Timer
}

// хелперы
func setMode(chatID int64, mode string) { chatMode.Store(chatID, mode) }
func getMode(chatID int64) string {
	if v, ok := chatMode.Load(chatID); ok {
		if s, _ := v.(string); s != "" {
			return s
		}
	}
	return ""
}
func clearMode(chatID int64) { chatMode.Delete(chatID) }

// tryAcquire — один прогон на чат за раз.
func tryAcquire(chatID int64) bool {
	_, loaded := chatBusy.LoadOrStore(chatID, true)
	return !loaded
}
func release(chatID int64) { chatBusy.Delete(chatID) }

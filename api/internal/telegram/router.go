package telegram

import (
	"context"
	"log"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"assignment-duper/api/internal/gateway"
	"assignment-duper/api/internal/store"
)

type Router struct {
	Bot *tgbotapi.BotAPI
	GW  gateway.Gateway

	Samples *store.SampleRepo
	Runs    *store.RunRepo
}

func (r *Router) HandleUpdate(upd tgbotapi.Update) {
	if upd.Message == nil {
		return
	}
	cid := upd.Message.Chat.ID

	if upd.Message.IsCommand() {
		r.handleCommand(upd)
		return
	}

	if len(upd.Message.Photo) > 0 {
		r.acceptPhoto(*upd.Message)
		return
	}

	if strings.TrimSpace(upd.Message.Text) != "" {
		r.send(cid, "Пришлите фото: сначала образец почерка (/sample), затем фото задачи.")
	}
}

func (r *Router) handleCommand(upd tgbotapi.Update) {
	cid := upd.Message.Chat.ID
	switch upd.Message.Command() {
	case "start":
		r.send(cid, "Я переписываю решение задачи вашим почерком.\n"+
			"1. /sample — пришлите фото страницы, исписанной вашим почерком.\n"+
			"2. Пришлите фото задачи — верну PDF с решением.\n"+
			"Команды: /sample, /status, /reset, /health")
	case "health":
		r.send(cid, "✅ OK")
	case "sample":
		setMode(cid, modeAwaitSample)
		r.send(cid, "Жду фото образца почерка (одна исписанная страница, хорошее освещение).")
	case "reset":
		clearMode(cid)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := r.Samples.Delete(ctx, cid); err != nil {
			log.Printf("telegram: reset sample chat=%d: %v", cid, err)
		}
		r.send(cid, "Образец почерка удалён. /sample — чтобы загрузить новый.")
	case "status":
		r.sendLastRun(cid)
	default:
		r.send(cid, "Неизвестная команда")
	}
}

func (r *Router) sendLastRun(cid int64) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	run, err := r.Runs.LastForChat(ctx, cid)
	if err != nil {
		r.send(cid, "Прогонов ещё не было.")
		return
	}
	text := "Последний прогон: " + run.Status
	if run.Pages > 0 {
		text += ", страниц: " + strconv.Itoa(run.Pages)
	}
	if run.ErrorText != "" {
		text += "\n" + run.ErrorText
	}
	r.send(cid, text)
}

func (r *Router) send(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := r.Bot.Send(msg); err != nil {
		log.Printf("telegram: send chat=%d: %v", chatID, err)
	}
}

func (r *Router) SendError(chatID int64, err error) {
	r.send(chatID, "⚠️ Ошибка: "+err.Error())
}

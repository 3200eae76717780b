package telegram

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"assignment-duper/api/internal/document"
	"assignment-duper/api/internal/pipeline"
	"assignment-duper/api/internal/store"
	"assignment-duper/api/internal/util"
)

const runTimeout = 15 * time.Minute

// startRun запускает конвейер для фото задачи. Образец почерка берём из БД;
// на чат — не больше одного прогона одновременно.
func (r *Router) startRun(cid int64, problemBytes []byte) {
	if !tryAcquire(cid) {
		r.send(cid, "Предыдущая задача ещё в работе, подождите её окончания.")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	sample, err := r.Samples.Find(ctx, cid)
	cancel()
	if err != nil {
		release(cid)
		if errors.Is(err, store.ErrNotFound) {
			r.send(cid, "Сначала нужен образец почерка: /sample")
			return
		}
		r.SendError(cid, err)
		return
	}

	// Статусное сообщение, его же будем редактировать по ходу прогона.
	statusMsg, err := r.Bot.Send(tgbotapi.NewMessage(cid, "⏳ Запускаю..."))
	if err != nil {
		release(cid)
		log.Printf("telegram: status message chat=%d: %v", cid, err)
		return
	}

	problem := pipeline.Image{Data: problemBytes, MIMEType: util.SniffMimeHTTP(problemBytes)}
	hw := pipeline.Image{Data: sample.Image, MIMEType: sample.MIMEType}

	go func() {
		defer release(cid)
		runCtx, cancelRun := context.WithTimeout(context.Background(), runTimeout)
		defer cancelRun()

		orc := pipeline.New(r.GW, pipeline.Config{
			Observer: func(st pipeline.ProcessingState) {
				r.editStatus(cid, statusMsg.MessageID, st)
			},
		})

		pages, err := orc.Run(runCtx, problem, hw)
		r.recordRun(cid, problemBytes, pages, err)
		if err != nil {
			r.reportFailure(cid, err)
			return
		}
		r.deliver(cid, pages)
	}()
}

func (r *Router) editStatus(cid int64, msgID int, st pipeline.ProcessingState) {
	text := progressText(st)
	if text == "" {
		return
	}
	edit := tgbotapi.NewEditMessageText(cid, msgID, text)
	if _, err := r.Bot.Send(edit); err != nil {
		// Телеграм отвечает ошибкой на "текст не изменился" — не шумим.
		log.Printf("telegram: edit status chat=%d: %v", cid, err)
	}
}

func (r *Router) deliver(cid int64, pages []pipeline.GeneratedPage) {
	pdf, err := document.Assemble(pages)
	if err != nil {
		r.SendError(cid, err)
		return
	}
	doc := tgbotapi.NewDocument(cid, tgbotapi.FileBytes{
		Name:  "solution.pdf",
		Bytes: pdf,
	})
	doc.Caption = fmt.Sprintf("Готово: %d стр.", len(pages))
	if _, err := r.Bot.Send(doc); err != nil {
		r.SendError(cid, err)
	}
}

func (r *Router) reportFailure(cid int64, err error) {
	kind, _ := pipeline.KindOf(err)
	switch kind {
	case pipeline.ErrAccessDenied:
		r.send(cid, "🚫 Бэкенд отклонил ключ API. Обновите ключ и попробуйте снова.")
	case pipeline.ErrEmptySolution:
		r.send(cid, "🤷 Не удалось получить решение этой задачи. Попробуйте снять фото чётче.")
	case pipeline.ErrValidationRejected:
		r.send(cid, "❌ Сгенерированные страницы не прошли проверку: "+err.Error())
	default:
		r.SendError(cid, err)
	}
}

func (r *Router) recordRun(cid int64, problemBytes []byte, pages []pipeline.GeneratedPage, runErr error) {
	status := "ok"
	errText := ""
	if runErr != nil {
		errText = runErr.Error()
		switch kind, _ := pipeline.KindOf(runErr); kind {
		case pipeline.ErrAccessDenied:
			status = "access_denied"
		case pipeline.ErrEmptySolution:
			status = "empty_solution"
		case pipeline.ErrValidationRejected:
			status = "validation_rejected"
		default:
			status = "system_failure"
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := r.Runs.Insert(ctx, store.Run{
		ChatID:      cid,
		ProblemHash: util.HashImage(problemBytes),
		Status:      status,
		Pages:       len(pages),
		ErrorText:   errText,
	})
	if err != nil {
		log.Printf("telegram: record run chat=%d: %v", cid, err)
	}
}

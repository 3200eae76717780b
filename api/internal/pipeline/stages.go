package pipeline

import (
	"context"
	"fmt"
	"log"

	"assignment-duper/api/internal/gateway"
	"assignment-duper/api/internal/util"
)

// Stages — четыре функции-этапа поверх шлюза модели.
// Solve и RenderPage умеют фоллбэк на запасной уровень; Transcribe и
// Validate ходят одним, базовым.
type Stages struct {
	GW gateway.Gateway
}

// invokeWithFallback: основной уровень, и ровно один синхронный повтор
// на запасном — только при отказе в доступе. Любая другая ошибка
// уходит наверх как есть.
func (s *Stages) invokeWithFallback(ctx context.Context, req gateway.Request) (gateway.Response, error) {
	req.Tier = gateway.TierPrimary
	resp, err := s.GW.Invoke(ctx, req)
	if err != nil && gateway.IsAccessDenied(err) {
		req.Tier = gateway.TierFallback
		return s.GW.Invoke(ctx, req)
	}
	return resp, err
}

// Transcribe переводит фото задачи в текст.
func (s *Stages) Transcribe(ctx context.Context, problem Image) (string, error) {
	resp, err := s.GW.Invoke(ctx, gateway.Request{
		Task:        gateway.TaskTranscribe,
		Tier:        gateway.TierBaseline,
		Prompt:      transcribePrompt,
		Attachments: []gateway.Attachment{{MIMEType: problem.MIMEType, Data: problem.Data}},
		OutputMode:  gateway.OutputText,
	})
	if err != nil {
		return "", fmt.Errorf("transcribe: %w", err)
	}
	return resp.Text(), nil
}

// Solve возвращает постраничные шаги решения.
func (s *Stages) Solve(ctx context.Context, problemText string) ([]string, error) {
	resp, err := s.invokeWithFallback(ctx, gateway.Request{
		Task:       gateway.TaskSolve,
		Prompt:     fmt.Sprintf(solvePrompt, problemText),
		System:     solveSystem,
		OutputMode: gateway.OutputJSON,
	})
	if err != nil {
		return nil, fmt.Errorf("solve: %w", err)
	}
	return interpretStepList(resp.Text()), nil
}

// RenderPage рисует одну страницу решения почерком из образца.
// index — позиция шага (0-based); номер страницы всегда index+1.
func (s *Stages) RenderPage(ctx context.Context, sample Image, step string, index int) (GeneratedPage, error) {
	resp, err := s.invokeWithFallback(ctx, gateway.Request{
		Task:        gateway.TaskRender,
		Prompt:      fmt.Sprintf(renderPrompt, index+1, sanitizeForHandwriting(step)),
		Attachments: []gateway.Attachment{{MIMEType: sample.MIMEType, Data: sample.Data}},
		OutputMode:  gateway.OutputImage,
	})
	if err != nil {
		return GeneratedPage{}, fmt.Errorf("render page %d: %w", index+1, err)
	}
	dataURL, err := interpretInlineImage(resp)
	if err != nil {
		return GeneratedPage{}, fmt.Errorf("render page %d: %w", index+1, err)
	}
	return GeneratedPage{ImageData: dataURL, PageNumber: index + 1}, nil
}

// Validate сверяет страницы с исходной задачей. Сбой парсинга вердикта
// не валит прогон: лучше отдать результат, чем упасть из-за кривого JSON.
func (s *Stages) Validate(ctx context.Context, problem Image, pages []GeneratedPage) (Verdict, error) {
	attachments := []gateway.Attachment{{MIMEType: problem.MIMEType, Data: problem.Data}}
	for _, p := range pages {
		raw, hint, err := util.DecodeBase64MaybeDataURL(p.ImageData)
		if err != nil {
			log.Printf("validate: страница %d не декодируется, проверяем без неё: %v", p.PageNumber, err)
			continue
		}
		attachments = append(attachments, gateway.Attachment{
			MIMEType: util.PickMIME("", hint, raw),
			Data:     raw,
		})
	}

	resp, err := s.GW.Invoke(ctx, gateway.Request{
		Task:        gateway.TaskValidate,
		Tier:        gateway.TierBaseline,
		Prompt:      validatePrompt,
		System:      validateSystem,
		Attachments: attachments,
		OutputMode:  gateway.OutputJSON,
	})
	if err != nil {
		return Verdict{}, fmt.Errorf("validate: %w", err)
	}

	v, err := interpretVerdict(resp.Text())
	if err != nil {
		return Verdict{Valid: true, Reason: "validation bypassed due to system error"}, nil
	}
	return v, nil
}

package gateway

import (
	"context"
	"errors"
	"fmt"
)

// Task — какой этап конвейера вызывает модель.
type Task string

const (
	TaskTranscribe Task = "transcribe"
	TaskSolve      Task = "solve"
	TaskRender     Task = "render"
	TaskValidate   Task = "validate"
)

// Tier — уровень качества/стоимости. Primary пробуем первым,
// Fallback — при отказе в доступе. Baseline — для этапов без фоллбэка.
type Tier string

const (
	TierBaseline Tier = "baseline"
	TierPrimary  Tier = "primary"
	TierFallback Tier = "fallback"
)

// OutputMode — ожидаемая форма ответа модели.
type OutputMode string

const (
	OutputText  OutputMode = "text"
	OutputJSON  OutputMode = "json"
	OutputImage OutputMode = "image"
)

// Attachment — бинарная часть запроса (фото задачи, образец почерка).
type Attachment struct {
	MIMEType string
	Data     []byte
}

type Request struct {
	Task        Task
	Tier        Tier
	Prompt      string
	System      string
	Attachments []Attachment
	OutputMode  OutputMode
}

// Part — одна часть ответа модели: текст либо inline-картинка.
type Part struct {
	Text       string
	InlineData []byte
	MIMEType   string
}

type Response struct {
	Parts []Part
}

// Text склеивает все текстовые части ответа.
func (r Response) Text() string {
	var out string
	for _, p := range r.Parts {
		out += p.Text
	}
	return out
}

// Gateway — единственная точка выхода конвейера в генеративный бэкенд.
type Gateway interface {
	Invoke(ctx context.Context, req Request) (Response, error)
}

// ErrKind классифицируется один раз на границе шлюза,
// дальше по коду никто не разбирает текст ошибки.
type ErrKind int

const (
	KindTransient ErrKind = iota
	KindAccessDenied
	KindMalformed
)

type Error struct {
	Kind   ErrKind
	Detail string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("gateway: %s: %v", e.Detail, e.Err)
	}
	return "gateway: " + e.Detail
}

func (e *Error) Unwrap() error { return e.Err }

// IsAccessDenied — отказал ли бэкенд в авторизации (403 и т.п.).
// Такие ошибки не ретраим: повтор не починит ключ.
func IsAccessDenied(err error) bool {
	var ge *Error
	return errors.As(err, &ge) && ge.Kind == KindAccessDenied
}

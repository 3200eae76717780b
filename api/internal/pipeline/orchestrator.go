package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"

	"assignment-duper/api/internal/gateway"
)

// DefaultMaxAttempts — сколько полных проходов конвейера разрешено
// на один прогон.
const DefaultMaxAttempts = 3

// Проценты прогресса по этапам. Кривая детерминирована: для данного
// числа страниц прогон всегда показывает одни и те же значения.
const (
	progressAnalyzing  = 10
	progressSolving    = 30
	progressRenderBase = 40
	progressRenderSpan = 40
	progressValidating = 90
	progressCompleted  = 100
)

type Config struct {
	// MaxAttempts — 0 означает DefaultMaxAttempts.
	MaxAttempts int
	// Observer дергается после каждого перехода состояния.
	Observer func(ProcessingState)
}

// Orchestrator гоняет четыре этапа с ретраями и проецирует прогресс.
// Одновременно один прогон: состояние процесса единственное.
type Orchestrator struct {
	stages  *Stages
	tracker *stateTracker
	max     int
}

func New(gw gateway.Gateway, cfg Config) *Orchestrator {
	max := cfg.MaxAttempts
	if max <= 0 {
		max = DefaultMaxAttempts
	}
	return &Orchestrator{
		stages:  &Stages{GW: gw},
		tracker: newStateTracker(cfg.Observer),
		max:     max,
	}
}

// State — текущий снимок прогресса (для поллинга).
func (o *Orchestrator) State() ProcessingState {
	return o.tracker.state()
}

// Run — единственная внешняя операция: фото задачи + образец почерка →
// упорядоченные страницы решения. Ошибка всегда *pipeline.Error.
func (o *Orchestrator) Run(ctx context.Context, problem, sample Image) ([]GeneratedPage, error) {
	o.tracker.reset()

	for attempt := 1; attempt <= o.max; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, o.fail(&Error{Kind: ErrSystemFailure, Reason: "run cancelled", Err: err})
		}

		pages, err := o.attempt(ctx, attempt, problem, sample)
		if err == nil {
			return pages, nil
		}

		// Отказ в доступе фатален сразу: ретрай не починит авторизацию
		// и только сожжёт квоту.
		if gateway.IsAccessDenied(err) {
			return nil, o.fail(&Error{Kind: ErrAccessDenied, Reason: "model backend denied access", Err: err})
		}

		if attempt == o.max {
			return nil, o.fail(asPipelineError(err))
		}
		log.Printf("pipeline: attempt %d/%d failed, retrying: %v", attempt, o.max, err)
	}

	// Недостижимо при max >= 1; страховка от кривой конфигурации.
	return nil, o.fail(&Error{Kind: ErrSystemFailure, Reason: "no attempts executed"})
}

// attempt — один полный проход по всем четырём этапам.
// Страницы неудачной попытки наружу не утекают.
func (o *Orchestrator) attempt(ctx context.Context, n int, problem, sample Image) ([]GeneratedPage, error) {
	o.tracker.set(StepAnalyzing, fmt.Sprintf("Reading problem (Attempt %d)...", n), progressAnalyzing)
	problemText, err := o.stages.Transcribe(ctx, problem)
	if err != nil {
		return nil, err
	}

	o.tracker.set(StepSolving, "Solving problem step-by-step...", progressSolving)
	steps, err := o.stages.Solve(ctx, problemText)
	if err != nil {
		return nil, err
	}
	if len(steps) == 0 {
		return nil, &Error{Kind: ErrEmptySolution, Reason: "solver produced no pages"}
	}

	total := len(steps)
	pages := make([]GeneratedPage, 0, total)
	for i, step := range steps {
		o.tracker.set(StepGeneratingPages,
			fmt.Sprintf("Writing page %d/%d...", i+1, total),
			progressRenderBase+i*progressRenderSpan/total)
		page, err := o.stages.RenderPage(ctx, sample, step, i)
		if err != nil {
			return nil, err
		}
		pages = append(pages, page)
	}

	o.tracker.set(StepValidating, "Verifying solution quality...", progressValidating)
	verdict, err := o.stages.Validate(ctx, problem, pages)
	if err != nil {
		return nil, err
	}
	if !verdict.Valid {
		return nil, &Error{Kind: ErrValidationRejected, Reason: verdict.Reason}
	}

	o.tracker.set(StepCompleted, "Sequence Complete. Output Verified.", progressCompleted)
	return pages, nil
}

// fail переводит машину в Error и отдаёт ошибку вызывающему.
func (o *Orchestrator) fail(perr *Error) *Error {
	o.tracker.set(StepError, "SYSTEM FAILURE: "+perr.Reason, 0)
	return perr
}

// asPipelineError сохраняет классификацию этапа, если она уже есть,
// иначе заворачивает как общий системный сбой.
func asPipelineError(err error) *Error {
	var pe *Error
	if errors.As(err, &pe) {
		return pe
	}
	return &Error{Kind: ErrSystemFailure, Reason: err.Error(), Err: err}
}

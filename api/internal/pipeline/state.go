package pipeline

import (
	"log"
	"sync"
)

// Step — этап конвейера, видимый наружу.
type Step int

const (
	StepIdle Step = iota
	StepAnalyzing
	StepSolving
	StepGeneratingPages
	StepValidating
	StepCompleted
	StepError
)

func (s Step) String() string {
	switch s {
	case StepIdle:
		return "idle"
	case StepAnalyzing:
		return "analyzing"
	case StepSolving:
		return "solving"
	case StepGeneratingPages:
		return "generating_pages"
	case StepValidating:
		return "validating"
	case StepCompleted:
		return "completed"
	case StepError:
		return "error"
	}
	return "unknown"
}

// ProcessingState — проекция прогресса: этап, человекочитаемое сообщение,
// процент 0..100. Внутри одной удачной попытки процент не убывает.
type ProcessingState struct {
	Step     Step
	Message  string
	Progress int
}

// transitions — допустимые переходы машины состояний.
// Петля Analyzing←{Analyzing,Solving,GeneratingPages,Validating} — ретрай попытки.
var transitions = map[Step][]Step{
	StepIdle:            {StepAnalyzing, StepError},
	StepAnalyzing:       {StepSolving, StepAnalyzing, StepError},
	StepSolving:         {StepGeneratingPages, StepAnalyzing, StepError},
	StepGeneratingPages: {StepGeneratingPages, StepValidating, StepAnalyzing, StepError},
	StepValidating:      {StepCompleted, StepAnalyzing, StepError},
	StepCompleted:       {StepIdle},
	StepError:           {StepIdle},
}

// CanTransition — разрешён ли переход from→to.
func CanTransition(from, to Step) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// stateTracker хранит единственный экземпляр ProcessingState.
// Мутирует его только оркестратор; наблюдатель получает снимок
// после каждого перехода.
type stateTracker struct {
	mu       sync.Mutex
	cur      ProcessingState
	observer func(ProcessingState)
}

func newStateTracker(observer func(ProcessingState)) *stateTracker {
	return &stateTracker{
		cur:      ProcessingState{Step: StepIdle},
		observer: observer,
	}
}

func (t *stateTracker) set(step Step, message string, progress int) {
	t.mu.Lock()
	if !CanTransition(t.cur.Step, step) && t.cur.Step != step {
		// Не роняем прогон из-за дырки в таблице — только след в логе.
		log.Printf("pipeline: unexpected transition %s -> %s", t.cur.Step, step)
	}
	t.cur = ProcessingState{Step: step, Message: message, Progress: progress}
	snapshot := t.cur
	obs := t.observer
	t.mu.Unlock()

	if obs != nil {
		obs(snapshot)
	}
}

// reset возвращает машину в Idle перед новым прогоном.
func (t *stateTracker) reset() {
	t.set(StepIdle, "", 0)
}

func (t *stateTracker) state() ProcessingState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cur
}

package pipeline

import (
	"errors"
	"fmt"
)

// ErrorKind — классификация терминальных ошибок прогона.
type ErrorKind int

const (
	// ErrSystemFailure — любой прочий сбой этапа после исчерпания попыток.
	ErrSystemFailure ErrorKind = iota
	// ErrAccessDenied — бэкенд отказал в авторизации; прогон не ретраится.
	ErrAccessDenied
	// ErrEmptySolution — решатель так и не вернул ни одной страницы.
	ErrEmptySolution
	// ErrValidationRejected — проверка забраковала результат на всех попытках.
	ErrValidationRejected
)

// Error — единственный тип ошибки, который Run отдаёт наружу.
type Error struct {
	Kind   ErrorKind
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("pipeline: %s: %v", e.Reason, e.Err)
	}
	return "pipeline: " + e.Reason
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf достаёт классификацию из любой обёрнутой ошибки конвейера.
func KindOf(err error) (ErrorKind, bool) {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind, true
	}
	return 0, false
}

// ErrNoImageProduced — модель не вернула ни одной inline-картинки.
var ErrNoImageProduced = errors.New("no image produced")

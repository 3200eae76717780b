package telegram

import (
	"fmt"
	"strings"

	"assignment-duper/api/internal/pipeline"
)

// progressText рисует терминальный прогресс-бар для статусного сообщения.
func progressText(st pipeline.ProcessingState) string {
	switch st.Step {
	case pipeline.StepIdle:
		return ""
	case pipeline.StepCompleted:
		return "✅ " + st.Message
	case pipeline.StepError:
		return "💥 " + st.Message
	}
	return fmt.Sprintf("%s %d%%\n%s", bar(st.Progress), st.Progress, st.Message)
}

func bar(percent int) string {
	const width = 10
	filled := percent * width / 100
	if filled > width {
		filled = width
	}
	return strings.Repeat("▓", filled) + strings.Repeat("░", width-filled)
}

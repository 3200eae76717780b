package telegram

import (
	"strings"
	"testing"

	"assignment-duper/api/internal/pipeline"
)

func TestProgressText(t *testing.T) {
	tests := []struct {
		name string
		st   pipeline.ProcessingState
		want string // подстрока
	}{
		{
			"idle is silent",
			pipeline.ProcessingState{Step: pipeline.StepIdle},
			"",
		},
		{
			"working shows bar and message",
			pipeline.ProcessingState{Step: pipeline.StepGeneratingPages, Message: "Writing page 2/4...", Progress: 50},
			"50%",
		},
		{
			"completed",
			pipeline.ProcessingState{Step: pipeline.StepCompleted, Message: "Sequence Complete. Output Verified.", Progress: 100},
			"✅ Sequence Complete. Output Verified.",
		},
		{
			"error",
			pipeline.ProcessingState{Step: pipeline.StepError, Message: "SYSTEM FAILURE: boom", Progress: 0},
			"💥 SYSTEM FAILURE: boom",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := progressText(tt.st)
			if tt.want == "" {
				if got != "" {
					t.Errorf("progressText() = %q, want empty", got)
				}
				return
			}
			if !strings.Contains(got, tt.want) {
				t.Errorf("progressText() = %q, want substring %q", got, tt.want)
			}
		})
	}
}

func TestBar(t *testing.T) {
	tests := []struct {
		percent int
		filled  int
	}{
		{0, 0},
		{40, 4},
		{95, 9},
		{100, 10},
	}
	for _, tt := range tests {
		got := bar(tt.percent)
		if n := strings.Count(got, "▓"); n != tt.filled {
			t.Errorf("bar(%d) filled = %d, want %d", tt.percent, n, tt.filled)
		}
		if total := strings.Count(got, "▓") + strings.Count(got, "░"); total != 10 {
			t.Errorf("bar(%d) width = %d, want 10", tt.percent, total)
		}
	}
}

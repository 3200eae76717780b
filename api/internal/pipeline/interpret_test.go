package pipeline

import (
	"reflect"
	"testing"

	"assignment-duper/api/internal/gateway"
)

func TestInterpretStepList(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{
			"plain json array",
			`["step one", "step two"]`,
			[]string{"step one", "step two"},
		},
		{
			"fenced json array",
			"```json\n[\"a\", \"b\", \"c\"]\n```",
			[]string{"a", "b", "c"},
		},
		{
			"not json degrades to single page",
			"not json",
			[]string{"not json"},
		},
		{
			"json object degrades to single page",
			`{"pages": ["a"]}`,
			[]string{`{"pages": ["a"]}`},
		},
		{
			"empty array",
			"[]",
			[]string{},
		},
		{
			"empty text",
			"   ",
			nil,
		},
		{
			"blank elements dropped",
			`["real page", "", "  "]`,
			[]string{"real page"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := interpretStepList(tt.raw)
			if len(got) == 0 && len(tt.want) == 0 {
				return
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("interpretStepList(%q) = %#v, want %#v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestInterpretInlineImage(t *testing.T) {
	t.Run("first inline payload wins", func(t *testing.T) {
		resp := gateway.Response{Parts: []gateway.Part{
			{Text: "here is your page"},
			{InlineData: []byte("first"), MIMEType: "image/png"},
			{InlineData: []byte("second"), MIMEType: "image/jpeg"},
		}}
		got, err := interpretInlineImage(resp)
		if err != nil {
			t.Fatalf("interpretInlineImage() error = %v", err)
		}
		want := "data:image/png;base64,Zmlyc3Q="
		if got != want {
			t.Errorf("interpretInlineImage() = %q, want %q", got, want)
		}
	})

	t.Run("no image", func(t *testing.T) {
		resp := gateway.Response{Parts: []gateway.Part{{Text: "text only"}}}
		if _, err := interpretInlineImage(resp); err != ErrNoImageProduced {
			t.Errorf("error = %v, want ErrNoImageProduced", err)
		}
	})
}

func TestInterpretVerdict(t *testing.T) {
	v, err := interpretVerdict("```json\n{\"valid\": true, \"reason\": \"matches the problem\"}\n```")
	if err != nil {
		t.Fatalf("interpretVerdict() error = %v", err)
	}
	if !v.Valid || v.Reason != "matches the problem" {
		t.Errorf("interpretVerdict() = %+v", v)
	}

	if _, err := interpretVerdict("total garbage"); err == nil {
		t.Error("interpretVerdict(garbage) error = nil, want parse failure")
	}
}

func TestSanitizeForHandwriting(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"**x = 5**", "x = 5"},
		{"# Step 1", "Step 1"},
		{"`2 + 2`", "2 + 2"},
		{"[draw a line]", "draw a line"},
		{"__under__ and _score_", "under and score"},
		{"plain text stays", "plain text stays"},
	}
	for _, tt := range tests {
		if got := sanitizeForHandwriting(tt.in); got != tt.want {
			t.Errorf("sanitizeForHandwriting(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

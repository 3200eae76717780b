package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"

	"assignment-duper/api/internal/gateway"
)

// tierGateway отвечает по уровню запроса.
type tierGateway struct {
	byTier   map[gateway.Tier]func() (gateway.Response, error)
	requests []gateway.Request
}

func (g *tierGateway) Invoke(_ context.Context, req gateway.Request) (gateway.Response, error) {
	g.requests = append(g.requests, req)
	fn, ok := g.byTier[req.Tier]
	if !ok {
		return gateway.Response{}, errors.New("no script for tier " + string(req.Tier))
	}
	return fn()
}

func ok(text string) func() (gateway.Response, error) {
	return func() (gateway.Response, error) {
		return gateway.Response{Parts: []gateway.Part{{Text: text}}}, nil
	}
}

func denied() func() (gateway.Response, error) {
	return func() (gateway.Response, error) {
		return gateway.Response{}, &gateway.Error{Kind: gateway.KindAccessDenied, Detail: "quota tier"}
	}
}

func transient() func() (gateway.Response, error) {
	return func() (gateway.Response, error) {
		return gateway.Response{}, &gateway.Error{Kind: gateway.KindTransient, Detail: "503"}
	}
}

func TestSolveFallsBackOnAccessDenied(t *testing.T) {
	gw := &tierGateway{byTier: map[gateway.Tier]func() (gateway.Response, error){
		gateway.TierPrimary:  denied(),
		gateway.TierFallback: ok(`["page one"]`),
	}}
	s := &Stages{GW: gw}

	steps, err := s.Solve(context.Background(), "problem")
	if err != nil {
		t.Fatalf("Solve() error = %v", err)
	}
	if len(steps) != 1 || steps[0] != "page one" {
		t.Errorf("Solve() = %v, want [page one]", steps)
	}

	tiers := []gateway.Tier{gw.requests[0].Tier, gw.requests[1].Tier}
	if tiers[0] != gateway.TierPrimary || tiers[1] != gateway.TierFallback {
		t.Errorf("tier sequence = %v, want [primary fallback]", tiers)
	}
}

func TestSolveNoFallbackOnTransient(t *testing.T) {
	gw := &tierGateway{byTier: map[gateway.Tier]func() (gateway.Response, error){
		gateway.TierPrimary:  transient(),
		gateway.TierFallback: ok(`["never"]`),
	}}
	s := &Stages{GW: gw}

	if _, err := s.Solve(context.Background(), "problem"); err == nil {
		t.Fatal("Solve() error = nil, want transient failure")
	}
	if len(gw.requests) != 1 {
		t.Errorf("gateway calls = %d, want 1 (no fallback for non-authorization failures)", len(gw.requests))
	}
}

func TestSolveFallbackDeniedToo(t *testing.T) {
	gw := &tierGateway{byTier: map[gateway.Tier]func() (gateway.Response, error){
		gateway.TierPrimary:  denied(),
		gateway.TierFallback: denied(),
	}}
	s := &Stages{GW: gw}

	_, err := s.Solve(context.Background(), "problem")
	if !gateway.IsAccessDenied(err) {
		t.Errorf("Solve() error = %v, want access denied to propagate", err)
	}
	if len(gw.requests) != 2 {
		t.Errorf("gateway calls = %d, want 2 (exactly one fallback retry)", len(gw.requests))
	}
}

func TestRenderPageFallbackAndSanitize(t *testing.T) {
	gw := &tierGateway{byTier: map[gateway.Tier]func() (gateway.Response, error){
		gateway.TierPrimary: denied(),
		gateway.TierFallback: func() (gateway.Response, error) {
			return gateway.Response{Parts: []gateway.Part{{
				InlineData: []byte("png-bytes"),
				MIMEType:   "image/png",
			}}}, nil
		},
	}}
	s := &Stages{GW: gw}

	page, err := s.RenderPage(context.Background(), testSampleImage, "**bold** step with [brackets] and `ticks`", 2)
	if err != nil {
		t.Fatalf("RenderPage() error = %v", err)
	}
	if page.PageNumber != 3 {
		t.Errorf("PageNumber = %d, want 3", page.PageNumber)
	}
	if !strings.HasPrefix(page.ImageData, "data:image/png;base64,") {
		t.Errorf("ImageData is not a data-URI: %q", page.ImageData)
	}

	for _, req := range gw.requests {
		for _, marker := range []string{"**", "[brackets]", "`"} {
			if strings.Contains(req.Prompt, marker) {
				t.Errorf("render prompt still contains markup %q", marker)
			}
		}
	}
}

func TestRenderPageNoImageProduced(t *testing.T) {
	gw := &tierGateway{byTier: map[gateway.Tier]func() (gateway.Response, error){
		gateway.TierPrimary: ok("sorry, text only"),
	}}
	s := &Stages{GW: gw}

	_, err := s.RenderPage(context.Background(), testSampleImage, "step", 0)
	if !errors.Is(err, ErrNoImageProduced) {
		t.Errorf("RenderPage() error = %v, want ErrNoImageProduced", err)
	}
}

func TestTranscribeUsesBaselineTier(t *testing.T) {
	gw := &tierGateway{byTier: map[gateway.Tier]func() (gateway.Response, error){
		gateway.TierBaseline: ok("2x = 10"),
	}}
	s := &Stages{GW: gw}

	text, err := s.Transcribe(context.Background(), testSampleImage)
	if err != nil {
		t.Fatalf("Transcribe() error = %v", err)
	}
	if text != "2x = 10" {
		t.Errorf("Transcribe() = %q", text)
	}
	if len(gw.requests) != 1 || gw.requests[0].Tier != gateway.TierBaseline {
		t.Errorf("requests = %+v, want single baseline call", gw.requests)
	}
}

func TestValidateBypassOnUnparsableVerdict(t *testing.T) {
	gw := &tierGateway{byTier: map[gateway.Tier]func() (gateway.Response, error){
		gateway.TierBaseline: ok("the model rambles instead of JSON"),
	}}
	s := &Stages{GW: gw}

	v, err := s.Validate(context.Background(), testSampleImage, []GeneratedPage{
		{ImageData: "data:image/png;base64,cG5n", PageNumber: 1},
	})
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if !v.Valid {
		t.Error("Valid = false, want bypass to true")
	}
	if v.Reason != "validation bypassed due to system error" {
		t.Errorf("Reason = %q", v.Reason)
	}
}

func TestValidateSkipsUndecodablePage(t *testing.T) {
	gw := &tierGateway{byTier: map[gateway.Tier]func() (gateway.Response, error){
		gateway.TierBaseline: ok(`{"valid": true, "reason": ""}`),
	}}
	s := &Stages{GW: gw}

	v, err := s.Validate(context.Background(), testSampleImage, []GeneratedPage{
		{ImageData: "data:image/png;base64,cG5n", PageNumber: 1},
		{ImageData: "data:image/png;base64,%%%not-base64%%%", PageNumber: 2},
	})
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if !v.Valid {
		t.Errorf("Validate() = %+v, want valid", v)
	}
	// задача + одна декодируемая страница; битая выпадает из вложений
	if got := len(gw.requests[0].Attachments); got != 2 {
		t.Errorf("attachments = %d, want 2", got)
	}
}

func TestValidateRejectionPassedThrough(t *testing.T) {
	gw := &tierGateway{byTier: map[gateway.Tier]func() (gateway.Response, error){
		gateway.TierBaseline: ok("```json\n{\"valid\": false, \"reason\": \"wrong answer\"}\n```"),
	}}
	s := &Stages{GW: gw}

	v, err := s.Validate(context.Background(), testSampleImage, nil)
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if v.Valid || v.Reason != "wrong answer" {
		t.Errorf("Validate() = %+v, want invalid/wrong answer", v)
	}
}

var testSampleImage = Image{Data: []byte("img"), MIMEType: "image/jpeg"}

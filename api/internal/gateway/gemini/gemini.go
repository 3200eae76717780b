package gemini

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"assignment-duper/api/internal/gateway"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// Models — какие модели Gemini обслуживают какой уровень.
type Models struct {
	Pro   string // solve, primary
	Flash string // transcribe/validate baseline, solve fallback
	Image string // render (обе ступени, fallback без high-res)
}

// Engine реализует gateway.Gateway поверх Gemini.
// Текстовые задачи идут через официальный SDK; рендер страниц — через
// REST generateContent напрямую, т.к. SDK не умеет responseModalities.
type Engine struct {
	mu     sync.RWMutex
	apiKey string

	models Models
	httpc  *http.Client
}

func New(apiKey string, models Models) *Engine {
	return &Engine{
		apiKey: strings.TrimSpace(apiKey),
		models: models,
		httpc:  &http.Client{Timeout: 180 * time.Second},
	}
}

// SetAPIKey заменяет ключ для последующих вызовов.
// На уже начатый прогон конвейера не влияет.
func (e *Engine) SetAPIKey(key string) {
	e.mu.Lock()
	e.apiKey = strings.TrimSpace(key)
	e.mu.Unlock()
}

func (e *Engine) key() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.apiKey
}

// model выбирает модель по задаче и уровню.
func (e *Engine) model(task gateway.Task, tier gateway.Tier) string {
	switch task {
	case gateway.TaskSolve:
		if tier == gateway.TierFallback {
			return e.models.Flash
		}
		return e.models.Pro
	case gateway.TaskRender:
		return e.models.Image
	default:
		return e.models.Flash
	}
}

func (e *Engine) Invoke(ctx context.Context, req gateway.Request) (gateway.Response, error) {
	if e.key() == "" {
		return gateway.Response{}, &gateway.Error{Kind: gateway.KindAccessDenied, Detail: "GEMINI_API_KEY is empty"}
	}
	if req.OutputMode == gateway.OutputImage {
		return e.invokeREST(ctx, req)
	}
	return e.invokeSDK(ctx, req)
}

// --------------------------- SDK (текст/JSON) ---------------------------

func (e *Engine) invokeSDK(ctx context.Context, req gateway.Request) (gateway.Response, error) {
	cl, err := genai.NewClient(ctx, option.WithAPIKey(e.key()))
	if err != nil {
		return gateway.Response{}, classify("client", err)
	}
	defer cl.Close()

	m := cl.GenerativeModel(e.model(req.Task, req.Tier))
	m.GenerationConfig = genai.GenerationConfig{
		Temperature: ptrFloat32(0),
	}
	if req.OutputMode == gateway.OutputJSON {
		m.GenerationConfig.ResponseMIMEType = "application/json"
	}
	if req.Task == gateway.TaskSolve && req.Tier == gateway.TierFallback {
		// Запасной уровень — дешевле: режем бюджет генерации.
		m.GenerationConfig.MaxOutputTokens = ptrInt32(4096)
	}
	if req.System != "" {
		m.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(req.System)}}
	}

	parts := make([]genai.Part, 0, len(req.Attachments)+1)
	for _, a := range req.Attachments {
		parts = append(parts, genai.Blob{MIMEType: a.MIMEType, Data: a.Data})
	}
	parts = append(parts, genai.Text(req.Prompt))

	resp, err := m.GenerateContent(ctx, parts...)
	if err != nil {
		return gateway.Response{}, classify(string(req.Task), err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return gateway.Response{}, &gateway.Error{Kind: gateway.KindMalformed, Detail: "gemini: empty candidates"}
	}

	var out gateway.Response
	for _, p := range resp.Candidates[0].Content.Parts {
		switch v := p.(type) {
		case genai.Text:
			out.Parts = append(out.Parts, gateway.Part{Text: string(v)})
		case genai.Blob:
			out.Parts = append(out.Parts, gateway.Part{InlineData: v.Data, MIMEType: v.MIMEType})
		}
	}
	return out, nil
}

// --------------------------- REST (картинки) ---------------------------

// Ответ REST приходит в camelCase.
type restInline struct {
	MIMEType string `json:"mimeType"`
	Data     string `json:"data"`
}

type restPart struct {
	Text       string      `json:"text,omitempty"`
	InlineData *restInline `json:"inlineData,omitempty"`
}

func (e *Engine) invokeREST(ctx context.Context, req gateway.Request) (gateway.Response, error) {
	parts := make([]any, 0, len(req.Attachments)+1)
	for _, a := range req.Attachments {
		parts = append(parts, map[string]any{"inline_data": map[string]any{
			"mime_type": a.MIMEType,
			"data":      base64.StdEncoding.EncodeToString(a.Data),
		}})
	}
	parts = append(parts, map[string]any{"text": req.Prompt})

	genCfg := map[string]any{
		"temperature":        0,
		"responseModalities": []string{"IMAGE", "TEXT"},
	}
	if req.Tier != gateway.TierFallback {
		// high-res только на основном уровне
		genCfg["imageConfig"] = map[string]any{"imageSize": "2K"}
	}

	body := map[string]any{
		"contents":         []any{map[string]any{"parts": parts}},
		"generationConfig": genCfg,
	}
	if req.System != "" {
		body["systemInstruction"] = map[string]any{
			"parts": []any{map[string]any{"text": req.System}},
		}
	}
	payload, _ := json.Marshal(body)

	url := fmt.Sprintf("https://generativelanguage.googleapis.com/v1beta/models/%s:generateContent?key=%s",
		e.model(req.Task, req.Tier), e.key())

	httpReq, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(payload))
	if err != nil {
		return gateway.Response{}, classify("render", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := e.httpc.Do(httpReq)
	if err != nil {
		return gateway.Response{}, classify("render", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		detail := fmt.Sprintf("gemini %d: %s", resp.StatusCode, string(raw))
		kind := gateway.KindTransient
		if resp.StatusCode == http.StatusForbidden || containsDenialMarker(string(raw)) {
			kind = gateway.KindAccessDenied
		}
		return gateway.Response{}, &gateway.Error{Kind: kind, Detail: detail}
	}

	var out struct {
		Candidates []struct {
			Content struct {
				Parts []restPart `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return gateway.Response{}, &gateway.Error{Kind: gateway.KindMalformed, Detail: "gemini: bad response body", Err: err}
	}
	if len(out.Candidates) == 0 {
		return gateway.Response{}, &gateway.Error{Kind: gateway.KindMalformed, Detail: "gemini: empty candidates"}
	}

	var gw gateway.Response
	for _, p := range out.Candidates[0].Content.Parts {
		part := gateway.Part{Text: p.Text}
		if p.InlineData != nil {
			raw, err := base64.StdEncoding.DecodeString(p.InlineData.Data)
			if err != nil {
				continue
			}
			part.InlineData = raw
			part.MIMEType = p.InlineData.MIMEType
		}
		gw.Parts = append(gw.Parts, part)
	}
	return gw, nil
}

// --------------------------- классификация ---------------------------

// classify переводит сырую ошибку бэкенда в типизированную ровно один раз,
// на границе шлюза. Дальше никто не матчит строки.
func classify(op string, err error) *gateway.Error {
	var ge *googleapi.Error
	if errors.As(err, &ge) {
		if ge.Code == http.StatusForbidden {
			return &gateway.Error{Kind: gateway.KindAccessDenied, Detail: op, Err: err}
		}
		return &gateway.Error{Kind: gateway.KindTransient, Detail: op, Err: err}
	}
	if containsDenialMarker(err.Error()) {
		return &gateway.Error{Kind: gateway.KindAccessDenied, Detail: op, Err: err}
	}
	return &gateway.Error{Kind: gateway.KindTransient, Detail: op, Err: err}
}

func containsDenialMarker(s string) bool {
	ls := strings.ToLower(s)
	return strings.Contains(ls, "permission denied") ||
		strings.Contains(ls, "permission_denied") ||
		strings.Contains(ls, "error 403") ||
		strings.Contains(ls, "gemini 403") ||
		strings.Contains(ls, "\"code\": 403") ||
		strings.Contains(ls, "\"code\":403")
}

func ptrFloat32(v float32) *float32 { return &v }
func ptrInt32(v int32) *int32       { return &v }

package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/killallgit/meeting-recorder/pkg/config"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/killallgit/meeting-recorder/internal/services/analysis"

// LLM providers
const (
	ProviderOpenAI    = "openai"
	ProviderYandexGPT = "yandexgpt"
)

const defaultYandexModel = "yandexgpt-lite"

// ErrEmptyCompletion is returned when the model answered without any text
var ErrEmptyCompletion = fmt.Errorf("llm returned no completion")

// ChatOptions tune one completion
type ChatOptions struct {
	Temperature float64
	MaxTokens   int
}

// LLMClient sends one system prompt and one user message and returns the reply
type LLMClient interface {
	Chat(ctx context.Context, systemPrompt, userMessage string, opts ChatOptions) (string, error)
}

// APIError is a non-2xx answer from the completion API
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("llm api returned %d: %s", e.Status, e.Body)
}

// NewLLMClient builds the client for cfg.Provider
func NewLLMClient(cfg config.LLMConfig) (LLMClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("llm api_key is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 90 * time.Second
	}
	base := llmHTTP{
		http: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		apiURL: cfg.APIURL,
		apiKey: cfg.APIKey,
	}

	switch cfg.Provider {
	case "", ProviderOpenAI:
		return &OpenAIChat{llmHTTP: base, model: cfg.Model}, nil
	case ProviderYandexGPT:
		if cfg.FolderID == "" {
			return nil, fmt.Errorf("llm folder_id is required for yandexgpt")
		}
		return &YandexGPT{llmHTTP: base, folderID: cfg.FolderID, modelURI: yandexModelURI(cfg.FolderID, cfg.Model)}, nil
	default:
		return nil, fmt.Errorf("unknown llm provider: %q", cfg.Provider)
	}
}

// yandexModelURI accepts a full gpt:// URI or a bare model name
func yandexModelURI(folderID, model string) string {
	if strings.HasPrefix(model, "gpt://") {
		return model
	}
	if model == "" {
		model = defaultYandexModel
	}
	return fmt.Sprintf("gpt://%s/%s", folderID, model)
}

type llmHTTP struct {
	http   *http.Client
	apiURL string
	apiKey string
}

func (c *llmHTTP) post(ctx context.Context, provider string, body interface{}, headers map[string]string, out interface{}) (err error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "llm.chat",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("provider", provider)),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encoding llm request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("executing llm request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("reading llm response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{Status: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decoding llm response: %w", err)
	}
	return nil
}

// OpenAIChat speaks the OpenAI-compatible chat completions API
type OpenAIChat struct {
	llmHTTP
	model string
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func (c *OpenAIChat) Chat(ctx context.Context, systemPrompt, userMessage string, opts ChatOptions) (string, error) {
	body := struct {
		Model       string          `json:"model"`
		Messages    []openAIMessage `json:"messages"`
		Temperature float64         `json:"temperature"`
		MaxTokens   int             `json:"max_tokens,omitempty"`
	}{
		Model: c.model,
		Messages: []openAIMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userMessage},
		},
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
	}

	var result struct {
		Choices []struct {
			Message openAIMessage `json:"message"`
		} `json:"choices"`
	}
	headers := map[string]string{"Authorization": "Bearer " + c.apiKey}
	if err := c.post(ctx, ProviderOpenAI, body, headers, &result); err != nil {
		return "", err
	}
	if len(result.Choices) == 0 || strings.TrimSpace(result.Choices[0].Message.Content) == "" {
		return "", ErrEmptyCompletion
	}
	return strings.TrimSpace(result.Choices[0].Message.Content), nil
}

// YandexGPT speaks the Yandex Foundation Models completion API
type YandexGPT struct {
	llmHTTP
	folderID string
	modelURI string
}

type yandexMessage struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

func (c *YandexGPT) Chat(ctx context.Context, systemPrompt, userMessage string, opts ChatOptions) (string, error) {
	type completionOptions struct {
		Stream      bool    `json:"stream"`
		Temperature float64 `json:"temperature"`
		MaxTokens   string  `json:"maxTokens"`
	}
	body := struct {
		ModelURI          string            `json:"modelUri"`
		CompletionOptions completionOptions `json:"completionOptions"`
		Messages          []yandexMessage   `json:"messages"`
	}{
		ModelURI: c.modelURI,
		CompletionOptions: completionOptions{
			Temperature: opts.Temperature,
			MaxTokens:   strconv.Itoa(opts.MaxTokens),
		},
		Messages: []yandexMessage{
			{Role: "system", Text: systemPrompt},
			{Role: "user", Text: userMessage},
		},
	}

	var result struct {
		Result struct {
			Alternatives []struct {
				Message yandexMessage `json:"message"`
				Status  string        `json:"status"`
			} `json:"alternatives"`
		} `json:"result"`
	}
	headers := map[string]string{
		"Authorization": "Api-Key " + c.apiKey,
		"x-folder-id":   c.folderID,
	}
	if err := c.post(ctx, ProviderYandexGPT, body, headers, &result); err != nil {
		return "", err
	}
	alts := result.Result.Alternatives
	if len(alts) == 0 || strings.TrimSpace(alts[0].Message.Text) == "" {
		return "", ErrEmptyCompletion
	}
	return strings.TrimSpace(alts[0].Message.Text), nil
}

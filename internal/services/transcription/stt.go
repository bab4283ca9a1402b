package transcription

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/killallgit/meeting-recorder/pkg/config"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/killallgit/meeting-recorder/internal/services/transcription"

// STT providers
const (
	ProviderOpenAI    = "openai"
	ProviderSpeechKit = "speechkit"
)

// APIError is a non-2xx answer from the speech API
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("stt api returned %d: %s", e.Status, e.Body)
}

// NewSTTClient builds the client for cfg.Provider
func NewSTTClient(cfg config.STTConfig) (STTClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("stt api_key is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Minute
	}
	base := httpClient{
		http: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		apiURL:   cfg.APIURL,
		apiKey:   cfg.APIKey,
		language: cfg.Language,
	}

	switch cfg.Provider {
	case "", ProviderOpenAI:
		return &OpenAIClient{httpClient: base, model: cfg.Model}, nil
	case ProviderSpeechKit:
		if cfg.FolderID == "" {
			return nil, fmt.Errorf("stt folder_id is required for speechkit")
		}
		return &SpeechKitClient{httpClient: base, folderID: cfg.FolderID}, nil
	default:
		return nil, fmt.Errorf("unknown stt provider: %q", cfg.Provider)
	}
}

type httpClient struct {
	http     *http.Client
	apiURL   string
	apiKey   string
	language string
}

func (c *httpClient) do(ctx context.Context, provider string, req *http.Request, out interface{}) (err error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "stt.recognize",
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

	resp, err := c.http.Do(req.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("executing stt request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("reading stt response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{Status: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decoding stt response: %w", err)
	}
	return nil
}

// OpenAIClient speaks the OpenAI-compatible audio transcription API
type OpenAIClient struct {
	httpClient
	model string
}

func (c *OpenAIClient) Recognize(ctx context.Context, audioPath string) (string, error) {
	file, err := os.Open(audioPath)
	if err != nil {
		return "", err
	}
	defer file.Close()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", filepath.Base(audioPath))
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(part, file); err != nil {
		return "", err
	}
	_ = writer.WriteField("model", c.model)
	if c.language != "" {
		_ = writer.WriteField("language", c.language)
	}
	if err := writer.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, body)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	var result struct {
		Text string `json:"text"`
	}
	if err := c.do(ctx, ProviderOpenAI, req, &result); err != nil {
		return "", err
	}
	return strings.TrimSpace(result.Text), nil
}

// SpeechKitClient speaks the Yandex SpeechKit synchronous recognition API,
// which takes the raw Ogg/Opus body
type SpeechKitClient struct {
	httpClient
	folderID string
}

func (c *SpeechKitClient) Recognize(ctx context.Context, audioPath string) (string, error) {
	audio, err := os.ReadFile(audioPath)
	if err != nil {
		return "", err
	}

	params := url.Values{}
	params.Set("folderId", c.folderID)
	params.Set("format", "oggopus")
	if c.language != "" {
		params.Set("lang", speechKitLanguage(c.language))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL+"?"+params.Encode(), bytes.NewReader(audio))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	req.Header.Set("Authorization", "Api-Key "+c.apiKey)

	var result struct {
		Result string `json:"result"`
	}
	if err := c.do(ctx, ProviderSpeechKit, req, &result); err != nil {
		return "", err
	}
	return strings.TrimSpace(result.Result), nil
}

// speechKitLanguage expands a bare ISO code into the locale SpeechKit expects
func speechKitLanguage(lang string) string {
	if strings.Contains(lang, "-") {
		return lang
	}
	return strings.ToLower(lang) + "-" + strings.ToUpper(lang)
}

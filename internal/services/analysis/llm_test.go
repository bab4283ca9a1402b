package analysis

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/killallgit/meeting-recorder/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLLMClient(t *testing.T) {
	_, err := NewLLMClient(config.LLMConfig{})
	assert.Error(t, err, "api key required")

	c, err := NewLLMClient(config.LLMConfig{APIKey: "k"})
	require.NoError(t, err)
	assert.IsType(t, &OpenAIChat{}, c)

	_, err = NewLLMClient(config.LLMConfig{APIKey: "k", Provider: ProviderYandexGPT})
	assert.Error(t, err, "folder id required")

	c, err = NewLLMClient(config.LLMConfig{APIKey: "k", Provider: ProviderYandexGPT, FolderID: "b1g"})
	require.NoError(t, err)
	require.IsType(t, &YandexGPT{}, c)
	assert.Equal(t, "gpt://b1g/yandexgpt-lite", c.(*YandexGPT).modelURI)

	_, err = NewLLMClient(config.LLMConfig{APIKey: "k", Provider: "other"})
	assert.Error(t, err)
}

func TestYandexModelURI(t *testing.T) {
	assert.Equal(t, "gpt://f/yandexgpt-lite", yandexModelURI("f", ""))
	assert.Equal(t, "gpt://f/yandexgpt/latest", yandexModelURI("f", "yandexgpt/latest"))
	assert.Equal(t, "gpt://other/yandexgpt", yandexModelURI("f", "gpt://other/yandexgpt"))
}

func TestOpenAIChat(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		var body struct {
			Model       string          `json:"model"`
			Messages    []openAIMessage `json:"messages"`
			Temperature float64         `json:"temperature"`
			MaxTokens   int             `json:"max_tokens"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "gpt-4o-mini", body.Model)
		assert.Equal(t, 0.3, body.Temperature)
		assert.Equal(t, 2000, body.MaxTokens)
		require.Len(t, body.Messages, 2)
		assert.Equal(t, openAIMessage{Role: "system", Content: "Summarize."}, body.Messages[0])
		assert.Equal(t, "user", body.Messages[1].Role)

		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":" A short summary. "}}]}`))
	}))
	defer srv.Close()

	c, err := NewLLMClient(config.LLMConfig{APIURL: srv.URL, APIKey: "secret", Model: "gpt-4o-mini"})
	require.NoError(t, err)

	out, err := c.Chat(context.Background(), "Summarize.", "Here is the transcript:\n\nhello", ChatOptions{Temperature: 0.3, MaxTokens: 2000})
	require.NoError(t, err)
	assert.Equal(t, "A short summary.", out)
}

func TestYandexGPT(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Api-Key secret", r.Header.Get("Authorization"))
		assert.Equal(t, "b1g", r.Header.Get("x-folder-id"))

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "gpt://b1g/yandexgpt-lite", body["modelUri"])
		opts := body["completionOptions"].(map[string]interface{})
		assert.Equal(t, false, opts["stream"])
		assert.Equal(t, "2000", opts["maxTokens"])
		assert.Equal(t, 0.3, opts["temperature"])
		msgs := body["messages"].([]interface{})
		require.Len(t, msgs, 2)
		assert.Equal(t, "Summarize.", msgs[0].(map[string]interface{})["text"])

		_, _ = w.Write([]byte(`{"result":{"alternatives":[{"message":{"role":"assistant","text":"Итоги встречи."},"status":"ALTERNATIVE_STATUS_FINAL"}]}}`))
	}))
	defer srv.Close()

	c, err := NewLLMClient(config.LLMConfig{Provider: ProviderYandexGPT, APIURL: srv.URL, APIKey: "secret", FolderID: "b1g"})
	require.NoError(t, err)

	out, err := c.Chat(context.Background(), "Summarize.", "text", ChatOptions{Temperature: 0.3, MaxTokens: 2000})
	require.NoError(t, err)
	assert.Equal(t, "Итоги встречи.", out)
}

func TestChat_Errors(t *testing.T) {
	tests := []struct {
		name     string
		provider string
		status   int
		body     string
		check    func(t *testing.T, err error)
	}{
		{
			name:   "openai api error",
			status: http.StatusTooManyRequests,
			body:   `{"error":"rate limited"}`,
			check: func(t *testing.T, err error) {
				var apiErr *APIError
				require.ErrorAs(t, err, &apiErr)
				assert.Equal(t, http.StatusTooManyRequests, apiErr.Status)
				assert.Contains(t, apiErr.Body, "rate limited")
			},
		},
		{
			name:   "openai no choices",
			status: http.StatusOK,
			body:   `{"choices":[]}`,
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrEmptyCompletion)
			},
		},
		{
			name:     "yandex empty alternatives",
			provider: ProviderYandexGPT,
			status:   http.StatusOK,
			body:     `{"result":{"alternatives":[]}}`,
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrEmptyCompletion)
			},
		},
		{
			name:     "yandex malformed body",
			provider: ProviderYandexGPT,
			status:   http.StatusOK,
			body:     `not json`,
			check: func(t *testing.T, err error) {
				assert.ErrorContains(t, err, "decoding llm response")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c, err := NewLLMClient(config.LLMConfig{Provider: tt.provider, APIURL: srv.URL, APIKey: "k", FolderID: "f"})
			require.NoError(t, err)
			_, err = c.Chat(context.Background(), "s", "u", ChatOptions{MaxTokens: 10})
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}

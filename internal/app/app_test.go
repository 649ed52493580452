package app

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zombar/humanscore/internal/config"
	"github.com/zombar/humanscore/internal/scoring"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func TestNewLogger(t *testing.T) {
	tests := []struct {
		format string
		level  string
		check  func(t *testing.T, out string)
	}{
		{"json", "info", func(t *testing.T, out string) {
			var line map[string]any
			require.NoError(t, json.Unmarshal([]byte(out), &line))
			assert.Equal(t, "hello", line["msg"])
		}},
		{"text", "info", func(t *testing.T, out string) {
			assert.Contains(t, out, "msg=hello")
		}},
		{"json", "error", func(t *testing.T, out string) {
			assert.Empty(t, out)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.format+"/"+tt.level, func(t *testing.T) {
			cfg := config.Default()
			cfg.Logging.Format = tt.format
			cfg.Logging.Level = tt.level

			var buf bytes.Buffer
			NewLogger(cfg, &buf).Info("hello")
			tt.check(t, strings.TrimSpace(buf.String()))
		})
	}
}

func TestNewBundleWithoutModels(t *testing.T) {
	cfg := config.Default()
	cfg.Models.URL = ""

	bundle, err := NewBundle(cfg, discard, nil)
	require.NoError(t, err)
	assert.False(t, bundle.HasLanguageModel())
	assert.False(t, bundle.HasClassifier())
	assert.Equal(t, scoring.PerplexitySentinel, bundle.Perplexity(context.Background(), "Some text."))
}

func TestNewBundleWithSidecar(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/perplexity":
			w.Write([]byte(`{"perplexity": 42.5}`))
		case "/classify":
			w.Write([]byte(`{"human_probability": 0.25}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Models.URL = server.URL

	bundle, err := NewBundle(cfg, discard, nil)
	require.NoError(t, err)
	assert.True(t, bundle.HasLanguageModel())
	assert.True(t, bundle.HasClassifier())
	assert.Equal(t, 42.5, bundle.Perplexity(context.Background(), "Some text."))
	assert.Equal(t, 25.0, bundle.HumanProbability(context.Background(), "Some text."))

	cfg.Models.Classifier = "none"
	bundle, err = NewBundle(cfg, discard, nil)
	require.NoError(t, err)
	assert.True(t, bundle.HasLanguageModel())
	assert.False(t, bundle.HasClassifier())
}

func TestNewBundleOllamaClassifier(t *testing.T) {
	cfg := config.Default()
	cfg.Models.Classifier = "ollama"
	cfg.Ollama.URL = "://bad"

	_, err := NewBundle(cfg, discard, nil)
	assert.Error(t, err)

	cfg.Ollama.URL = "http://localhost:11434"
	bundle, err := NewBundle(cfg, discard, nil)
	require.NoError(t, err)
	assert.True(t, bundle.HasClassifier())
}

func TestAnalyzerOptions(t *testing.T) {
	cfg := config.Default()
	assert.False(t, AnalyzerOptions(cfg).EnableMixed)
	assert.False(t, AnalyzerOptions(cfg).SectionFlags)

	cfg.Analysis.Mixed = true
	cfg.Analysis.SectionFlags = true
	a := NewAnalyzer(cfg, scoring.NewBundle(nil, nil), discard, nil)
	assert.True(t, a.Options().EnableMixed)
	assert.True(t, a.Options().SectionFlags)
}

func TestNewRewriter(t *testing.T) {
	tests := []struct {
		name    string
		backend string
		apiKey  string
		want    string
		wantErr bool
	}{
		{name: "ollama", backend: "ollama", want: "ollama"},
		{name: "anthropic", backend: "anthropic", apiKey: "sk-test", want: "anthropic"},
		{name: "anthropic without key", backend: "anthropic", wantErr: true},
		{name: "none", backend: "none"},
		{name: "unknown", backend: "gpt", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.Rewrite.Backend = tt.backend
			cfg.Anthropic.APIKey = tt.apiKey

			svc, err := NewRewriter(cfg, nil)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want != "", svc.Available())
			assert.Equal(t, tt.want, svc.Backend())
		})
	}
}

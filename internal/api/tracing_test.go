package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/zombar/humanscore/internal/analyzer"
	"github.com/zombar/humanscore/internal/config"
	"github.com/zombar/humanscore/internal/scoring"
)

// TestAnalyzeTracing tests that the analyze handler annotates the request
// span and that the analysis span is its child
func TestAnalyzeTracing(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	defer tp.Shutdown(context.Background())

	a := analyzer.New(scoring.NewBundle(nil, nil),
		analyzer.WithTracerProvider(tp),
		analyzer.WithLogger(discardLogger),
	)
	h := newHandler(config.Default(), a,
		WithGatherer(prometheus.NewRegistry()),
		WithLogger(discardLogger),
	)

	req := httptest.NewRequest(http.MethodPost, "/api/analyze", strings.NewReader(analyzeBody(sampleText)))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User", "tracer")

	ctx, span := tp.Tracer("test").Start(context.Background(), "test-request")
	req = req.WithContext(ctx)

	w := httptest.NewRecorder()
	h.handleAnalyze(w, req)
	span.End()

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	spans := exporter.GetSpans()
	requestSpan := findSpan(spans, "test-request")
	analyzeSpan := findSpan(spans, "analyzer.analyze")
	if requestSpan == nil || analyzeSpan == nil {
		t.Fatalf("Expected test-request and analyzer.analyze spans, got %v", getSpanNames(spans))
	}

	if analyzeSpan.Parent.SpanID() != requestSpan.SpanContext.SpanID() {
		t.Error("analyzer.analyze should be a child of the request span")
	}
	if analyzeSpan.SpanContext.TraceID() != requestSpan.SpanContext.TraceID() {
		t.Error("analyzer.analyze should share the request trace")
	}

	for _, key := range []string{"text.length", "user", "async"} {
		if !hasAttribute(requestSpan, key) {
			t.Errorf("%s attribute not found on request span", key)
		}
	}
	for _, key := range []string{"text.length", "sentences.count", "score.human"} {
		if !hasAttribute(analyzeSpan, key) {
			t.Errorf("%s attribute not found on analyzer.analyze span", key)
		}
	}
}

func findSpan(spans tracetest.SpanStubs, name string) *tracetest.SpanStub {
	for i := range spans {
		if spans[i].Name == name {
			return &spans[i]
		}
	}
	return nil
}

func hasAttribute(span *tracetest.SpanStub, key string) bool {
	for _, attr := range span.Attributes {
		if string(attr.Key) == key {
			return true
		}
	}
	return false
}

// getSpanNames returns a list of span names for debugging
func getSpanNames(spans tracetest.SpanStubs) []string {
	names := make([]string, len(spans))
	for i, span := range spans {
		names[i] = span.Name
	}
	return names
}

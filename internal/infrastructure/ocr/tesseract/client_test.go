package tesseract

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestRecognizeNormalizesConfidence(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ocr" {
			http.NotFound(w, r)
			return
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("parse multipart: %v", err)
		}
		if got := r.FormValue("language"); got != "nld+eng" {
			t.Fatalf("language = %q, want nld+eng", got)
		}
		_, _ = w.Write([]byte(`{
			"text": "Factuurnummer 2024-001\nTotaal: 1234,56",
			"confidence": 87.5,
			"words": [
				{"text": "Factuurnummer", "confidence": 92.0},
				{"text": "Totaal:", "confidence": 80.0}
			]
		}`))
	}))
	defer server.Close()

	client := New(server.URL, "")
	out, err := client.Recognize(context.Background(), "invoice.pdf", "application/pdf", strings.NewReader("%PDF"))
	if err != nil {
		t.Fatalf("Recognize() error = %v", err)
	}
	if out.Provider != "tesseract" {
		t.Fatalf("provider = %q", out.Provider)
	}
	if out.OverallConfidence != 0.875 {
		t.Fatalf("overall = %v, want 0.875", out.OverallConfidence)
	}
	if out.Words["Factuurnummer"] != 0.92 {
		t.Fatalf("word confidence = %v, want 0.92", out.Words["Factuurnummer"])
	}
}

func TestRecognizeReportsAbsentConfidence(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"text": "hello", "confidence": -1}`))
	}))
	defer server.Close()

	client := New(server.URL, "eng")
	out, err := client.Recognize(context.Background(), "a.png", "image/png", strings.NewReader("png"))
	if err != nil {
		t.Fatalf("Recognize() error = %v", err)
	}
	if out.OverallConfidence >= 0 {
		t.Fatalf("overall = %v, want negative sentinel", out.OverallConfidence)
	}
}

func TestRecognizeIncludesHTTPBodyInError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "engine crashed", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := New(server.URL, "eng")
	_, err := client.Recognize(context.Background(), "a.png", "image/png", strings.NewReader("png"))
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), "engine crashed") {
		t.Fatalf("expected response body in error, got %v", err)
	}
}

package tesseract

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/wkamphuis/invoiceflow/internal/core/domain"
	"github.com/wkamphuis/invoiceflow/internal/infrastructure/resilience"
)

const providerName = "tesseract"

// Client talks to a tesseract OCR sidecar over HTTP. The sidecar accepts a
// multipart upload and returns recognized text plus word-level confidence.
type Client struct {
	baseURL    string
	language   string
	httpClient *http.Client
	executor   *resilience.Executor
}

type Option func(*Client)

func WithResilienceExecutor(executor *resilience.Executor) Option {
	return func(c *Client) { c.executor = executor }
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) { c.httpClient = httpClient }
}

func New(baseURL, language string, opts ...Option) *Client {
	if language == "" {
		language = "nld+eng"
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		language:   language,
		httpClient: &http.Client{Timeout: 120 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type recognizeResponse struct {
	Text string `json:"text"`
	// Confidence is tesseract's document mean in [0,100], -1 when absent.
	Confidence float64 `json:"confidence"`
	Words      []struct {
		Text       string  `json:"text"`
		Confidence float64 `json:"confidence"`
	} `json:"words"`
}

// Recognize uploads the document and maps the sidecar response onto the
// domain OCR output, normalizing confidence to [0,1].
func (c *Client) Recognize(ctx context.Context, filename, mimeType string, data io.Reader) (domain.OCROutput, error) {
	// Buffer the payload so the post can be retried.
	payload, err := io.ReadAll(data)
	if err != nil {
		return domain.OCROutput{}, fmt.Errorf("read document bytes: %w", err)
	}

	var response recognizeResponse
	call := func(callCtx context.Context) error {
		return c.postMultipart(callCtx, "/ocr", filename, mimeType, payload, &response)
	}

	if c.executor != nil {
		err = c.executor.Execute(ctx, "tesseract.recognize", call, classifyOCRError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return domain.OCROutput{}, wrapTemporaryIfNeeded("tesseract recognize", err)
	}

	out := domain.OCROutput{
		Provider:          providerName,
		Text:              response.Text,
		OverallConfidence: normalizeConfidence(response.Confidence),
	}
	if len(response.Words) > 0 {
		out.Words = make(map[string]float64, len(response.Words))
		for _, w := range response.Words {
			if w.Text == "" {
				continue
			}
			out.Words[w.Text] = clampUnit(normalizeConfidence(w.Confidence))
		}
	}
	return out, nil
}

func normalizeConfidence(pct float64) float64 {
	if pct < 0 {
		return -1
	}
	return pct / 100.0
}

func clampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

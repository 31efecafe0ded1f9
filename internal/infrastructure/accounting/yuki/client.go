package yuki

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/wkamphuis/invoiceflow/internal/core/domain"
	"github.com/wkamphuis/invoiceflow/internal/core/ports"
	"github.com/wkamphuis/invoiceflow/internal/infrastructure/resilience"
)

// Config carries the Yuki connection and ledger defaults. Every booking
// posts its main line to GLAccountCode and the VAT line, when present, to
// VATGLAccountCode.
type Config struct {
	BaseURL          string
	AdministrationID string
	Username         string
	Password         string
	GLAccountCode    string
	VATGLAccountCode string
	VATCode          string
}

// Client submits documents and bookings to the Yuki accounting platform.
// Document bytes go through the upload gateway, bookings through the
// accounting endpoint. Both calls surface *domain.RemoteAPIError.
type Client struct {
	cfg        Config
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

func New(cfg Config, opts ...Option) *Client {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.GLAccountCode == "" {
		cfg.GLAccountCode = "4000"
	}
	if cfg.VATGLAccountCode == "" {
		cfg.VATGLAccountCode = "1520"
	}
	c := &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

const (
	opUploadDocument = "upload_document"
	opCreateBooking  = "create_booking"
)

// CreateDocument uploads the source document and returns Yuki's document id.
func (c *Client) CreateDocument(ctx context.Context, filename string, data io.Reader, metadata map[string]string) (string, error) {
	// Buffer the payload so the upload can be retried.
	payload, err := io.ReadAll(data)
	if err != nil {
		return "", fmt.Errorf("read document bytes: %w", err)
	}

	form := map[string]string{
		"AdministrationID":    c.cfg.AdministrationID,
		"DocumentName":        orDefault(metadata["name"], filename),
		"DocumentDescription": metadata["description"],
		"DocumentDate":        orDefault(metadata["date"], time.Now().UTC().Format("2006-01-02")),
		"DocumentType":        orDefault(metadata["type"], "Invoice"),
	}

	var remoteDocID string
	call := func(callCtx context.Context) error {
		id, err := c.uploadDocument(callCtx, filename, payload, form)
		if err != nil {
			return err
		}
		remoteDocID = id
		return nil
	}

	if err := c.execute(ctx, "yuki.upload", opUploadDocument, call); err != nil {
		return "", err
	}
	return remoteDocID, nil
}

type bookingLine struct {
	GLAccountCode string  `json:"GLAccountCode"`
	Description   string  `json:"Description"`
	Amount        float64 `json:"Amount"`
	VATCode       string  `json:"VATCode,omitempty"`
	VATPercentage float64 `json:"VATPercentage"`
	VATAmount     float64 `json:"VATAmount"`
}

type bookingPayload struct {
	AdministrationID string        `json:"AdministrationID"`
	DocumentID       string        `json:"DocumentID"`
	Date             string        `json:"Date"`
	Description      string        `json:"Description"`
	Contact          string        `json:"Contact,omitempty"`
	InvoiceNumber    string        `json:"InvoiceNumber,omitempty"`
	IBAN             string        `json:"IBAN,omitempty"`
	Lines            []bookingLine `json:"Lines"`
}

// CreateEntry books the validated amounts against the uploaded document and
// returns Yuki's booking id.
func (c *Client) CreateEntry(ctx context.Context, booking ports.BookingRequest) (string, error) {
	payload := bookingPayload{
		AdministrationID: c.cfg.AdministrationID,
		DocumentID:       booking.RemoteDocumentID,
		Date:             booking.Date,
		Description:      booking.Description,
		Contact:          booking.VendorName,
		InvoiceNumber:    booking.InvoiceNumber,
		IBAN:             booking.IBAN,
		Lines: []bookingLine{{
			GLAccountCode: c.cfg.GLAccountCode,
			Description:   booking.Description,
			Amount:        booking.Amount,
			VATCode:       c.cfg.VATCode,
			VATPercentage: booking.VATPercentage,
			VATAmount:     booking.VATAmount,
		}},
	}
	if booking.VATAmount > 0 {
		payload.Lines = append(payload.Lines, bookingLine{
			GLAccountCode: c.cfg.VATGLAccountCode,
			Description:   fmt.Sprintf("VAT %.1f%%", booking.VATPercentage),
			Amount:        booking.VATAmount,
			VATCode:       c.cfg.VATCode,
		})
	}

	var bookingID string
	call := func(callCtx context.Context) error {
		id, err := c.createBooking(callCtx, payload)
		if err != nil {
			return err
		}
		bookingID = id
		return nil
	}

	if err := c.execute(ctx, "yuki.booking", opCreateBooking, call); err != nil {
		return "", err
	}
	return bookingID, nil
}

func (c *Client) execute(ctx context.Context, breakerName, operation string, call func(context.Context) error) error {
	var err error
	if c.executor != nil {
		err = c.executor.Execute(ctx, breakerName, call, classifyYukiError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return asRemoteError(operation, err)
	}
	return nil
}

// asRemoteError guarantees the AccountingClient contract: every failure that
// is not a caller cancellation carries the domain.RemoteAPIError shape.
func asRemoteError(operation string, err error) error {
	if err == nil {
		return nil
	}
	if domain.IsKind(err, domain.ErrRemoteAPI) {
		return err
	}
	if ctxErr := contextCause(err); ctxErr != nil {
		return ctxErr
	}
	return &domain.RemoteAPIError{
		Operation: operation,
		Retryable: true,
		Detail:    err.Error(),
	}
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

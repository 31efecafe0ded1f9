package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/wkamphuis/invoiceflow/internal/config"
	"github.com/wkamphuis/invoiceflow/internal/core/domain"
	"github.com/wkamphuis/invoiceflow/internal/core/extract"
	"github.com/wkamphuis/invoiceflow/internal/core/ports"
	"github.com/wkamphuis/invoiceflow/internal/core/usecase"
	"github.com/wkamphuis/invoiceflow/internal/core/validate"
	"github.com/wkamphuis/invoiceflow/internal/export"
	"github.com/wkamphuis/invoiceflow/internal/infrastructure/accounting/yuki"
	"github.com/wkamphuis/invoiceflow/internal/infrastructure/ocr"
	"github.com/wkamphuis/invoiceflow/internal/infrastructure/ocr/pdftext"
	"github.com/wkamphuis/invoiceflow/internal/infrastructure/ocr/tesseract"
	"github.com/wkamphuis/invoiceflow/internal/infrastructure/queue/nats"
	"github.com/wkamphuis/invoiceflow/internal/infrastructure/repository/postgres"
	"github.com/wkamphuis/invoiceflow/internal/infrastructure/resilience"
	"github.com/wkamphuis/invoiceflow/internal/infrastructure/storage/localfs"
)

type App struct {
	Config config.Config

	Queue ports.MessageQueue
	Repo  ports.DocumentRepository

	UploadUC   ports.DocumentUploader
	ExtractUC  ports.ExtractionRunner
	ValidateUC ports.ValidationRunner
	SubmitUC   ports.SubmissionRunner
	QueryUC    ports.DocumentReader
	Exporter   ports.DocumentExporter

	closeFn func()
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	repo := postgres.NewDocumentRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	executor := resilience.NewExecutor(resilience.DefaultPolicy())

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: executor,
	})
	if err != nil {
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	ocrClient := ocr.NewFallback(
		tesseract.New(cfg.TesseractURL, cfg.TesseractLanguage, tesseract.WithResilienceExecutor(executor)),
		pdftext.New(),
	)

	accounting := yuki.New(yuki.Config{
		BaseURL:          cfg.YukiAPIURL,
		AdministrationID: cfg.YukiAdministrationID,
		Username:         cfg.YukiUsername,
		Password:         cfg.YukiPassword,
		GLAccountCode:    cfg.YukiGLAccount,
		VATGLAccountCode: cfg.YukiVATGLAccount,
		VATCode:          cfg.YukiVATCode,
	}, yuki.WithResilienceExecutor(executor))

	schema := domain.InvoiceSchema()
	fieldExtractor := extract.NewExtractor(schema, extract.NewHeuristicMatcher(), extract.NewScorer(0.5))
	validator := validate.New(schema, cfg.MinFieldConfidence)

	uploadUC := usecase.NewUploadDocumentUseCase(repo, storage, queue)
	extractUC := usecase.NewExtractDocumentUseCase(
		repo, storage, ocrClient, fieldExtractor,
		time.Duration(cfg.OCRTimeoutSeconds)*time.Second, domain.ActorWorker,
	)
	validateUC := usecase.NewValidateDocumentUseCase(repo, validator, domain.ActorAPI)
	submitUC := usecase.NewSubmitDocumentUseCase(
		repo, storage, accounting,
		time.Duration(cfg.SubmitTimeoutSeconds)*time.Second, domain.ActorAPI,
	)
	queryUC := usecase.NewQueryUseCase(repo)
	exporter := export.NewService(repo, nil)

	return &App{
		Config: cfg,
		Queue:  queue,
		Repo:   repo,

		UploadUC:   uploadUC,
		ExtractUC:  extractUC,
		ValidateUC: validateUC,
		SubmitUC:   submitUC,
		QueryUC:    queryUC,
		Exporter:   exporter,

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}

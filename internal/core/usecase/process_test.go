package usecase

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/kirillkom/solar-equipment-parser/internal/core/domain"
)

type parserFake struct {
	result  domain.ParseResult
	urls    []string
	uploads [][]byte
}

func (f *parserFake) Parse(_ context.Context, documentURL string) domain.ParseResult {
	f.urls = append(f.urls, documentURL)
	return f.result
}

func (f *parserFake) ParseUpload(_ context.Context, data []byte) domain.ParseResult {
	f.uploads = append(f.uploads, data)
	return f.result
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestProcessByIDStoresSuccess(t *testing.T) {
	repo := newJobRepoFake(&domain.ParseJob{ID: "job-1", SourceURL: "https://example.com/a.pdf", Status: domain.JobStatusQueued})
	parser := &parserFake{result: domain.SucceededResult(domain.EquipmentRecord{Name: "Panel", Category: domain.CategorySolarPanel, IsActive: true}, 0.9)}
	uc := NewProcessParseJobUseCase(repo, newStorageFake(), parser, 1<<20, discardLogger())

	if err := uc.ProcessByID(context.Background(), "job-1"); err != nil {
		t.Fatalf("ProcessByID() error = %v", err)
	}
	if len(repo.processing) != 1 {
		t.Fatalf("expected processing mark, got %v", repo.processing)
	}
	if repo.savedStatus != domain.JobStatusSucceeded || repo.savedCode != "" {
		t.Fatalf("unexpected saved state: %s %q", repo.savedStatus, repo.savedCode)
	}
	if len(parser.urls) != 1 || parser.urls[0] != "https://example.com/a.pdf" {
		t.Fatalf("unexpected parser calls: %v", parser.urls)
	}
}

func TestProcessByIDStoresFailureCode(t *testing.T) {
	storage := newStorageFake()
	storage.objects["job-1_a.pdf"] = "<html>"
	repo := newJobRepoFake(&domain.ParseJob{ID: "job-1", StorageKey: "job-1_a.pdf", Status: domain.JobStatusQueued})
	parser := &parserFake{result: domain.FailedResult(domain.NewPipelineError(domain.ErrNotAPDF, "The document is not a valid PDF", nil), nil)}
	uc := NewProcessParseJobUseCase(repo, storage, parser, 1<<20, discardLogger())

	if err := uc.ProcessByID(context.Background(), "job-1"); err != nil {
		t.Fatalf("pipeline failures must not be returned, got %v", err)
	}
	if repo.savedStatus != domain.JobStatusFailed || repo.savedCode != "not_a_pdf" {
		t.Fatalf("unexpected saved state: %s %q", repo.savedStatus, repo.savedCode)
	}
	if len(parser.uploads) != 1 || string(parser.uploads[0]) != "<html>" {
		t.Fatalf("expected staged bytes to reach the parser")
	}
	if len(storage.deleted) != 1 {
		t.Fatalf("expected staged upload cleanup, got %v", storage.deleted)
	}
}

func TestProcessByIDMissingUploadIsInternal(t *testing.T) {
	repo := newJobRepoFake(&domain.ParseJob{ID: "job-1", StorageKey: "gone.pdf", Status: domain.JobStatusQueued})
	parser := &parserFake{}
	uc := NewProcessParseJobUseCase(repo, newStorageFake(), parser, 1<<20, discardLogger())

	if err := uc.ProcessByID(context.Background(), "job-1"); err != nil {
		t.Fatalf("ProcessByID() error = %v", err)
	}
	if repo.savedCode != "internal_error" || repo.savedResult.Error != domain.GenericInternalMessage {
		t.Fatalf("unexpected saved result: %q %+v", repo.savedCode, repo.savedResult)
	}
	if len(parser.uploads) != 0 {
		t.Fatalf("parser must not run without bytes")
	}
}

func TestProcessByIDSkipsFinishedJobs(t *testing.T) {
	repo := newJobRepoFake(&domain.ParseJob{ID: "job-1", Status: domain.JobStatusSucceeded})
	parser := &parserFake{}
	uc := NewProcessParseJobUseCase(repo, newStorageFake(), parser, 0, discardLogger())

	if err := uc.ProcessByID(context.Background(), "job-1"); err != nil {
		t.Fatalf("ProcessByID() error = %v", err)
	}
	if len(repo.processing) != 0 || len(parser.urls) != 0 {
		t.Fatalf("finished job must not be processed again")
	}
}

func TestProcessByIDReturnsRepositoryErrors(t *testing.T) {
	repo := newJobRepoFake(&domain.ParseJob{ID: "job-1", SourceURL: "https://example.com/a.pdf"})
	repo.saveErr = errors.New("db down")
	uc := NewProcessParseJobUseCase(repo, newStorageFake(), &parserFake{}, 0, discardLogger())

	if err := uc.ProcessByID(context.Background(), "job-1"); err == nil {
		t.Fatalf("expected error when result cannot be stored")
	}
}

type slowParser struct{}

func (slowParser) Parse(ctx context.Context, _ string) domain.ParseResult {
	<-ctx.Done()
	return domain.FailedResult(domain.NewPipelineError(domain.ErrTemporary, "interrupted", ctx.Err()), nil)
}

func (slowParser) ParseUpload(ctx context.Context, _ []byte) domain.ParseResult {
	return slowParser{}.Parse(ctx, "")
}

func TestProcessByIDStoresResultAfterJobDeadline(t *testing.T) {
	repo := newJobRepoFake(&domain.ParseJob{ID: "job-1", SourceURL: "https://example.com/a.pdf", Status: domain.JobStatusQueued})
	repo.honorCtx = true
	uc := NewProcessParseJobUseCase(repo, newStorageFake(), slowParser{}, 1<<20, discardLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if err := uc.ProcessByID(ctx, "job-1"); err != nil {
		t.Fatalf("ProcessByID() error = %v", err)
	}
	if repo.savedStatus != domain.JobStatusFailed {
		t.Fatalf("expected terminal failed status, got %q", repo.savedStatus)
	}
	if repo.savedCode != "temporary" {
		t.Fatalf("unexpected saved code %q", repo.savedCode)
	}
}

func TestProcessByIDRejectsOversizedStagedUpload(t *testing.T) {
	storage := newStorageFake()
	storage.objects["job-1_a.pdf"] = "%PDF-1.4 " + strings.Repeat("x", 64)
	repo := newJobRepoFake(&domain.ParseJob{ID: "job-1", StorageKey: "job-1_a.pdf", Status: domain.JobStatusQueued})
	parser := &parserFake{}
	uc := NewProcessParseJobUseCase(repo, storage, parser, 32, discardLogger())

	if err := uc.ProcessByID(context.Background(), "job-1"); err != nil {
		t.Fatalf("ProcessByID() error = %v", err)
	}
	if len(parser.uploads) != 0 {
		t.Fatalf("oversized upload must not reach the parser")
	}
	if repo.savedStatus != domain.JobStatusFailed || repo.savedCode != "invalid_input" {
		t.Fatalf("unexpected saved state: %s %q", repo.savedStatus, repo.savedCode)
	}
	if repo.savedResult == nil || !strings.Contains(repo.savedResult.Error, "too large") {
		t.Fatalf("expected size error in result, got %+v", repo.savedResult)
	}
}

func TestProcessByIDAcceptsUploadAtLimit(t *testing.T) {
	body := "%PDF-1.4 " + strings.Repeat("x", 23)
	storage := newStorageFake()
	storage.objects["job-1_a.pdf"] = body
	repo := newJobRepoFake(&domain.ParseJob{ID: "job-1", StorageKey: "job-1_a.pdf", Status: domain.JobStatusQueued})
	parser := &parserFake{result: domain.SucceededResult(domain.EquipmentRecord{Name: "Panel", Category: domain.CategorySolarPanel, IsActive: true}, 0.7)}
	uc := NewProcessParseJobUseCase(repo, storage, parser, int64(len(body)), discardLogger())

	if err := uc.ProcessByID(context.Background(), "job-1"); err != nil {
		t.Fatalf("ProcessByID() error = %v", err)
	}
	if len(parser.uploads) != 1 || string(parser.uploads[0]) != body {
		t.Fatalf("expected full upload to reach parser, got %d calls", len(parser.uploads))
	}
}

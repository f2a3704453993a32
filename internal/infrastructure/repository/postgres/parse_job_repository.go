package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/kirillkom/solar-equipment-parser/internal/core/domain"
)

type ParseJobRepository struct {
	db *sql.DB
}

func NewParseJobRepository(db *sql.DB) *ParseJobRepository {
	return &ParseJobRepository{db: db}
}

func (r *ParseJobRepository) Create(ctx context.Context, job *domain.ParseJob) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO parse_jobs (
	id, organization_id, source_url, storage_key, filename, status, error_code, result, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,NULL,$8,$9)
`,
		job.ID, job.OrganizationID, job.SourceURL, job.StorageKey, job.Filename,
		string(job.Status), job.ErrorCode, job.CreatedAt, job.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert parse job: %w", err)
	}
	return nil
}

func (r *ParseJobRepository) GetByID(ctx context.Context, id string) (*domain.ParseJob, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, organization_id, source_url, storage_key, filename, status, error_code, result, created_at, updated_at
FROM parse_jobs
WHERE id = $1
`, id)

	var job domain.ParseJob
	var sourceURL, storageKey, filename, errorCode sql.NullString
	var status string
	var resultRaw []byte

	err := row.Scan(
		&job.ID, &job.OrganizationID, &sourceURL, &storageKey, &filename,
		&status, &errorCode, &resultRaw, &job.CreatedAt, &job.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrNotFound, "get parse job", fmt.Errorf("parse job not found: %s", id))
		}
		return nil, fmt.Errorf("scan parse job: %w", err)
	}

	job.SourceURL = sourceURL.String
	job.StorageKey = storageKey.String
	job.Filename = filename.String
	job.ErrorCode = errorCode.String
	job.Status = domain.ParseJobStatus(status)
	if len(resultRaw) > 0 {
		var result domain.ParseResult
		if err := json.Unmarshal(resultRaw, &result); err != nil {
			return nil, fmt.Errorf("unmarshal parse result: %w", err)
		}
		job.Result = &result
	}
	return &job, nil
}

func (r *ParseJobRepository) MarkProcessing(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE parse_jobs
SET status = $2, updated_at = $3
WHERE id = $1
`, id, string(domain.JobStatusProcessing), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update parse job status: %w", err)
	}
	return requireAffected(res, "update parse job status", id)
}

func (r *ParseJobRepository) SaveResult(
	ctx context.Context,
	id string,
	status domain.ParseJobStatus,
	result domain.ParseResult,
	errorCode string,
) error {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal parse result: %w", err)
	}
	res, err := r.db.ExecContext(ctx, `
UPDATE parse_jobs
SET status = $2, result = $3, error_code = $4, updated_at = $5
WHERE id = $1
`, id, string(status), resultJSON, errorCode, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("save parse result: %w", err)
	}
	return requireAffected(res, "save parse result", id)
}

func requireAffected(res sql.Result, operation, id string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", operation, err)
	}
	if affected == 0 {
		return domain.WrapError(domain.ErrNotFound, operation, fmt.Errorf("parse job not found: %s", id))
	}
	return nil
}

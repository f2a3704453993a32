package httpfetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/kirillkom/solar-equipment-parser/internal/core/domain"
)

const (
	defaultTimeout   = 30 * time.Second
	defaultMaxBytes  = 25 << 20
	defaultUserAgent = "solar-equipment-parser/1.0"
)

type Options struct {
	Timeout   time.Duration
	MaxBytes  int64
	UserAgent string
	Client    *http.Client
	Logger    *slog.Logger
}

// Fetcher downloads datasheets with a single GET. It never retries.
type Fetcher struct {
	client    *http.Client
	maxBytes  int64
	userAgent string
	logger    *slog.Logger
}

func New(opts Options) *Fetcher {
	client := opts.Client
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		client = &http.Client{Timeout: timeout}
	}
	maxBytes := opts.MaxBytes
	if maxBytes <= 0 {
		maxBytes = defaultMaxBytes
	}
	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{client: client, maxBytes: maxBytes, userAgent: userAgent, logger: logger}
}

func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (domain.FetchedDocument, error) {
	ref, err := url.Parse(rawURL)
	if err != nil || (ref.Scheme != "http" && ref.Scheme != "https") || ref.Host == "" {
		return domain.FetchedDocument{}, domain.NewPipelineError(
			domain.ErrInvalidReference,
			"Invalid document URL: an absolute http or https URL is required",
			err,
		)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref.String(), nil)
	if err != nil {
		return domain.FetchedDocument{}, fetchFailed("could not build the request", err)
	}
	req.Header.Set("Accept", "application/pdf, */*;q=0.5")
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return domain.FetchedDocument{}, fetchFailed(transportReason(err), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return domain.FetchedDocument{}, fetchFailed(resp.Status, fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return domain.FetchedDocument{}, fetchFailed("the download was interrupted", err)
	}
	if int64(len(data)) > f.maxBytes {
		return domain.FetchedDocument{}, fetchFailed(
			fmt.Sprintf("the document is larger than %d MB", f.maxBytes>>20),
			fmt.Errorf("body exceeds %d bytes", f.maxBytes),
		)
	}

	contentType := resp.Header.Get("Content-Type")
	if !pdfContentType(contentType) {
		f.logger.Warn("parse.fetch.content_type_mismatch",
			"url", ref.Redacted(),
			"content_type", contentType,
			"msg_detail", "Unexpected content type, but proceeding with PDF parsing",
		)
	}

	return domain.FetchedDocument{Data: data, ContentType: contentType, SourceURL: ref.String()}, nil
}

func fetchFailed(reason string, cause error) error {
	return domain.NewPipelineError(domain.ErrFetchFailed, "Failed to fetch document: "+reason, cause)
}

func transportReason(err error) string {
	var netErr net.Error
	switch {
	case errors.Is(err, context.Canceled):
		return "the request was cancelled"
	case errors.Is(err, context.DeadlineExceeded), errors.As(err, &netErr) && netErr.Timeout():
		return "the request timed out"
	default:
		return "could not connect to the document host"
	}
}

func pdfContentType(value string) bool {
	if value == "" {
		return false
	}
	mediaType, _, err := mime.ParseMediaType(value)
	if err != nil {
		return false
	}
	return mediaType == "application/pdf" || mediaType == "application/x-pdf"
}

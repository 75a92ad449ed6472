// Package loader turns a document reference (local path or fetchable URL)
// into an ordered page sequence. Supported formats: PDF, DOCX, EML.
package loader

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"docquery/types"
)

type Service struct {
	client *http.Client
	logger *zap.Logger
}

func New(logger *zap.Logger) *Service {
	return &Service{
		client: &http.Client{Timeout: 60 * time.Second},
		logger: logger,
	}
}

// Load reads the document behind source and extracts its pages. A format of
// FormatAuto (or empty) detects the format from the file extension, or from
// the Content-Type for URLs without a usable extension.
func (s *Service) Load(ctx context.Context, source string, format types.DocumentFormat) (*types.Document, error) {
	path := source
	cleanup := func() {}

	if isURL(source) {
		local, detected, remove, err := s.fetch(ctx, source)
		if err != nil {
			return nil, err
		}
		path = local
		cleanup = remove
		if format == "" || format == types.FormatAuto {
			format = detected
		}
	}
	defer cleanup()

	if format == "" || format == types.FormatAuto {
		var err error
		format, err = detectFormat(path)
		if err != nil {
			return nil, err
		}
	}

	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", types.ErrSourceUnavailable, source, err)
	}

	var (
		pages []types.Page
		err   error
	)
	switch format {
	case types.FormatPDF:
		pages, err = extractPDF(path)
	case types.FormatDOCX:
		pages, err = extractDOCX(path)
	case types.FormatEmail:
		pages, err = extractEML(path)
	default:
		return nil, fmt.Errorf("%w: %q", types.ErrUnsupportedFormat, format)
	}
	if err != nil {
		return nil, err
	}

	if !hasText(pages) {
		return nil, fmt.Errorf("%w: %s", types.ErrEmptyDocument, source)
	}

	doc := &types.Document{
		ID:        uuid.New(),
		Source:    source,
		Format:    format,
		Title:     titleFromSource(source),
		Pages:     pages,
		CreatedAt: time.Now(),
	}
	s.logger.Info("document loaded",
		zap.String("source", source),
		zap.String("format", string(format)),
		zap.Int("pages", len(pages)),
	)
	return doc, nil
}

func isURL(source string) bool {
	return strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")
}

func detectFormat(path string) (types.DocumentFormat, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return types.FormatPDF, nil
	case ".docx":
		return types.FormatDOCX, nil
	case ".doc":
		// Legacy binary Word files are not ZIP containers; the DOCX extractor
		// cannot read them.
		return "", fmt.Errorf("%w: legacy .doc is not supported, convert to .docx", types.ErrUnsupportedFormat)
	case ".eml":
		return types.FormatEmail, nil
	default:
		return "", fmt.Errorf("%w: %q", types.ErrUnsupportedFormat, filepath.Ext(path))
	}
}

// fetch downloads a URL to a temp file and reports the detected format.
func (s *Service) fetch(ctx context.Context, url string) (string, types.DocumentFormat, func(), error) {
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return "", "", nil, fmt.Errorf("%w: %s: %v", types.ErrSourceUnavailable, url, err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return "", "", nil, fmt.Errorf("%w: %s: %v", types.ErrSourceUnavailable, url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", "", nil, fmt.Errorf("%w: %s: status %d", types.ErrSourceUnavailable, url, resp.StatusCode)
	}

	format, ext := formatFromResponse(url, resp.Header.Get("Content-Type"))

	tmp, err := os.CreateTemp("", "docquery-*"+ext)
	if err != nil {
		return "", "", nil, fmt.Errorf("%w: %s: %v", types.ErrSourceUnavailable, url, err)
	}
	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", "", nil, fmt.Errorf("%w: %s: %v", types.ErrSourceUnavailable, url, err)
	}
	tmp.Close()

	s.logger.Debug("document fetched", zap.String("url", url), zap.String("tmp", tmp.Name()))
	return tmp.Name(), format, func() { os.Remove(tmp.Name()) }, nil
}

func formatFromResponse(url, contentType string) (types.DocumentFormat, string) {
	// Strip query string before looking at the extension.
	trimmed := url
	if i := strings.IndexAny(trimmed, "?#"); i >= 0 {
		trimmed = trimmed[:i]
	}
	if f, err := detectFormat(trimmed); err == nil {
		return f, strings.ToLower(filepath.Ext(trimmed))
	}

	switch {
	case strings.Contains(contentType, "application/pdf"):
		return types.FormatPDF, ".pdf"
	case strings.Contains(contentType, "wordprocessingml"):
		return types.FormatDOCX, ".docx"
	case strings.Contains(contentType, "message/rfc822"):
		return types.FormatEmail, ".eml"
	}
	return types.FormatAuto, ""
}

func hasText(pages []types.Page) bool {
	for _, p := range pages {
		if strings.TrimSpace(p.Text) != "" {
			return true
		}
	}
	return false
}

func titleFromSource(source string) string {
	name := filepath.Base(source)
	if i := strings.IndexAny(name, "?#"); i >= 0 {
		name = name[:i]
	}
	name = strings.TrimSuffix(name, filepath.Ext(name))
	name = strings.ReplaceAll(name, "_", " ")
	name = strings.ReplaceAll(name, "-", " ")
	return name
}

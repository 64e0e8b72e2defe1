// Package attachment validates uploaded files and stores them in the
// external object storage over HTTP.
package attachment

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/timeclock-server/timeclock-server-pro/internal/config"
	"github.com/timeclock-server/timeclock-server-pro/internal/models"
)

// Common errors
var (
	ErrTooLarge     = errors.New("attachment exceeds size limit")
	ErrBadExtension = errors.New("attachment extension not allowed")
	ErrBadContent   = errors.New("attachment content does not match an allowed type")
	ErrUnavailable  = errors.New("object storage unavailable")
)

// MaxSize is the upload size limit
const MaxSize = 5 << 20 // 5 MiB

var allowedExtensions = map[string]string{
	".pdf":  "application/pdf",
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
}

// Validate checks size, extension and the sniffed content type of an
// upload. The extension alone is not trusted: the magic bytes must
// agree with an allowed type.
func Validate(filename string, data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("%w: empty file", ErrBadContent)
	}
	if len(data) > MaxSize {
		return "", fmt.Errorf("%w: %d bytes", ErrTooLarge, len(data))
	}

	ext := strings.ToLower(path.Ext(filename))
	want, ok := allowedExtensions[ext]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrBadExtension, ext)
	}

	sniffed := http.DetectContentType(data)
	if !strings.HasPrefix(sniffed, want) {
		return "", fmt.Errorf("%w: sniffed %q for %q", ErrBadContent, sniffed, ext)
	}

	return want, nil
}

// Client uploads validated files to the object storage
type Client struct {
	baseURL string
	bucket  string
	apiKey  string
	http    *http.Client
}

// NewClient creates an object storage client. Returns nil when no
// storage is configured; callers treat a nil client as "attachments
// disabled".
func NewClient(cfg config.StorageConfig) *Client {
	if cfg.BaseURL == "" {
		return nil
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		bucket:  cfg.Bucket,
		apiKey:  cfg.APIKey,
		http:    &http.Client{Timeout: cfg.Timeout},
	}
}

// Upload validates and stores a file under the tenant/employee/folder
// path and returns its public reference.
func (c *Client) Upload(ctx context.Context, tenantID, employeeID uuid.UUID, folder, filename string, data []byte) (*models.Attachment, error) {
	if c == nil {
		return nil, ErrUnavailable
	}

	mimeType, err := Validate(filename, data)
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/%s/%s/%s/%s/%s",
		c.baseURL, c.bucket, tenantID, employeeID, folder, path.Base(filename))

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mimeType)
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		log.Error().Err(err).Str("url", url).Msg("Object storage upload failed")
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		log.Error().Int("status", resp.StatusCode).Str("url", url).Msg("Object storage rejected upload")
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	return &models.Attachment{
		URL:      url,
		Filename: path.Base(filename),
		MimeType: mimeType,
		Size:     int64(len(data)),
	}, nil
}

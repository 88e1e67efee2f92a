package extract

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/invoice-intake/internal/model"
)

// HTTPExtractor posts the document to a remote extraction service as a
// multipart "file" field and decodes the JSON response body.
type HTTPExtractor struct {
	endpoint string
	client   *http.Client
}

// NewHTTPExtractor creates an HTTPExtractor for endpoint.
func NewHTTPExtractor(endpoint string, timeout time.Duration) *HTTPExtractor {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPExtractor{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

// Extract uploads path and decodes the service's answer. 204 No Content and
// 422 Unprocessable Entity mean the service found no invoice.
func (h *HTTPExtractor) Extract(ctx context.Context, path string) (*model.Invoice, error) {
	body, contentType, err := multipartFile(path)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.endpoint, body)
	if err != nil {
		return nil, eris.Wrap(err, "extract: create request")
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "extract: extractor request")
	}
	defer resp.Body.Close() //nolint:errcheck

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "extract: read extractor response")
	}

	switch {
	case resp.StatusCode == http.StatusNoContent, resp.StatusCode == http.StatusUnprocessableEntity:
		return nil, nil
	case resp.StatusCode != http.StatusOK:
		return nil, eris.Errorf("extract: extractor returned %d: %s", resp.StatusCode, string(respBody))
	}

	return Decode(respBody)
}

func multipartFile(path string) (io.Reader, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", eris.Wrapf(err, "extract: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return nil, "", eris.Wrap(err, "extract: create form file")
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, "", eris.Wrapf(err, "extract: read %s", path)
	}
	if err := w.Close(); err != nil {
		return nil, "", eris.Wrap(err, "extract: close multipart body")
	}
	return &buf, w.FormDataContentType(), nil
}

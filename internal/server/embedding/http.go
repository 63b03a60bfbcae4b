package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dmitrijs2005/imagevault/internal/common"
)

// HTTPEmbedder calls a feature-extraction service over HTTP: image bytes go
// out as application/octet-stream, the vector comes back as a JSON array of
// numbers. Any failure wraps common.ErrCollaborator so the session can
// report it for the one affected request without closing.
type HTTPEmbedder struct {
	url    string
	client *http.Client
}

func NewHTTPEmbedder(url string, timeout time.Duration) *HTTPEmbedder {
	return &HTTPEmbedder{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

func (e *HTTPEmbedder) Embed(ctx context.Context, imageData []byte) ([]float32, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url, bytes.NewReader(imageData))
	if err != nil {
		return nil, fmt.Errorf("%w: building request: %v", common.ErrCollaborator, err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrCollaborator, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("%w: %s: %s", common.ErrCollaborator, resp.Status, string(b))
	}

	var vector []float32
	if err := json.NewDecoder(resp.Body).Decode(&vector); err != nil {
		return nil, fmt.Errorf("%w: decoding vector: %v", common.ErrCollaborator, err)
	}
	if len(vector) == 0 {
		return nil, fmt.Errorf("%w: empty vector", common.ErrCollaborator)
	}
	return vector, nil
}

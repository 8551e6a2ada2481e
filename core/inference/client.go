// ABOUTME: HTTP client for the external plant disease model server
// ABOUTME: Uploads a normalized leaf photo as multipart form data to /predict

package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"cropguard-api/core/domain"
	"cropguard-api/core/errors"
	"cropguard-api/core/interfaces"
)

const maxResponseBytes = 64 << 10

// Config configures the inference client
type Config struct {
	// URL is the model server base URL; empty disables inference
	URL string
	// Timeout bounds one prediction request
	Timeout time.Duration
	// MaxEdge is the longest image edge sent to the server
	MaxEdge int
}

// Client implements interfaces.InferenceClient
type Client struct {
	cfg  Config
	deps interfaces.Dependencies
}

// NewClient creates an inference client
func NewClient(cfg Config, deps interfaces.Dependencies) *Client {
	return &Client{cfg: cfg, deps: deps}
}

// Predict classifies one leaf photo. The call is made once; failures are
// returned to the caller without retry.
func (c *Client) Predict(ctx context.Context, image []byte) (*domain.Prediction, error) {
	if c.cfg.URL == "" {
		return nil, &errors.UnavailableError{Service: "inference", Reason: "INFERENCE_URL is not configured"}
	}

	normalized, err := Normalize(image, c.cfg.MaxEdge)
	if err != nil {
		return nil, err
	}

	body, contentType, err := multipartBody(normalized)
	if err != nil {
		return nil, err
	}

	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := c.deps.HTTPClient.Post(ctx, c.cfg.URL+"/predict", contentType, body)
	if err != nil {
		return nil, &errors.ExternalAPIError{API: "inference", Message: err.Error()}
	}
	defer resp.Body().Close()

	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body(), 512))
		return nil, &errors.ExternalAPIError{
			API:        "inference",
			StatusCode: resp.StatusCode(),
			Message:    string(bytes.TrimSpace(snippet)),
		}
	}

	var p domain.Prediction
	if err := json.NewDecoder(io.LimitReader(resp.Body(), maxResponseBytes)).Decode(&p); err != nil {
		return nil, &errors.ExternalAPIError{API: "inference", StatusCode: resp.StatusCode(), Message: "malformed prediction: " + err.Error()}
	}
	if err := p.Validate(); err != nil {
		return nil, &errors.ExternalAPIError{API: "inference", StatusCode: resp.StatusCode(), Message: err.Error()}
	}

	c.deps.Logger.Debug("Prediction received", map[string]interface{}{
		"disease_id": p.DiseaseID,
		"confidence": p.Confidence,
		"duration":   time.Since(start).String(),
		"bytes":      len(normalized),
	})

	return &p, nil
}

func multipartBody(image []byte) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	part, err := w.CreateFormFile("file", "leaf.jpg")
	if err != nil {
		return nil, "", fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(image); err != nil {
		return nil, "", fmt.Errorf("failed to write image: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to close multipart body: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}

// Healthy reports whether the model server answers on its root endpoint
func (c *Client) Healthy(ctx context.Context) bool {
	if c.cfg.URL == "" {
		return false
	}
	resp, err := c.deps.HTTPClient.Get(ctx, c.cfg.URL+"/")
	if err != nil {
		return false
	}
	resp.Body().Close()
	return resp.StatusCode() == http.StatusOK
}

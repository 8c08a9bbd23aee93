package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/wms-platform/outbound-service/internal/domain"
	apperrors "github.com/wms-platform/outbound-service/pkg/errors"
	"github.com/wms-platform/outbound-service/pkg/resilience"
)

// VerifierClient submits package images to the AI verification service.
// Implements domain.LabelVerifier.
//
// Verification runs OCR plus model inference upstream, so this client uses a
// longer timeout than the plain data clients.
type VerifierClient struct {
	baseURL    string
	httpClient *http.Client
	breaker    *resilience.CircuitBreaker
}

// NewVerifierClient creates a new VerifierClient
func NewVerifierClient(baseURL string, breaker *resilience.CircuitBreaker) *VerifierClient {
	return &VerifierClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
		breaker: breaker,
	}
}

// VerifyPackage uploads the image as multipart form data and decodes the
// structured verdict
func (c *VerifierClient) VerifyPackage(ctx context.Context, packageID int64, image []byte, filename string) (*domain.VerificationResult, error) {
	url := fmt.Sprintf("%s/api/inbound-verification/verify/%d", c.baseURL, packageID)

	if filename == "" {
		filename = "package.jpg"
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("image", filename)
	if err != nil {
		return nil, fmt.Errorf("failed to build multipart body: %w", err)
	}
	if _, err := part.Write(image); err != nil {
		return nil, fmt.Errorf("failed to write image data: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize multipart body: %w", err)
	}

	var result *domain.VerificationResult
	execErr := c.execute(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body.Bytes()))
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", writer.FormDataContentType())
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("failed to submit verification: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return upstreamError("verification-service", resp)
		}

		var decoded domain.VerificationResult
		if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
			return fmt.Errorf("failed to decode verification response: %w", err)
		}
		result = &decoded
		return nil
	})
	if execErr != nil {
		return nil, execErr
	}
	return result, nil
}

func (c *VerifierClient) execute(ctx context.Context, fn func() error) error {
	if c.breaker == nil {
		return fn()
	}
	_, err := c.breaker.Execute(ctx, func() (interface{}, error) {
		return nil, fn()
	})
	if errors.Is(err, resilience.ErrCircuitOpen) {
		return apperrors.ErrServiceUnavailable("verification-service").Wrap(err)
	}
	return err
}

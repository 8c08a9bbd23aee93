package clients

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wms-platform/outbound-service/internal/domain"
)

func TestVerifyPackage(t *testing.T) {
	image := []byte("fake-jpeg-bytes")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/inbound-verification/verify/55", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)

		file, header, err := r.FormFile("image")
		require.NoError(t, err)
		defer file.Close()
		assert.Equal(t, "label.jpg", header.Filename)

		uploaded, err := io.ReadAll(file)
		require.NoError(t, err)
		assert.Equal(t, image, uploaded)

		json.NewEncoder(w).Encode(domain.VerificationResult{
			Status:       "SUCCESS",
			Message:      "Package verified successfully",
			Matched:      true,
			AutoAssigned: true,
			Details: &domain.VerificationDetails{
				ExpectedSKU:  "SKU-1",
				ExtractedSKU: "SKU-1",
				Confidence:   0.93,
			},
		})
	}))
	defer server.Close()

	client := NewVerifierClient(server.URL, nil)

	result, err := client.VerifyPackage(context.Background(), 55, image, "label.jpg")
	require.NoError(t, err)
	assert.True(t, result.Matched)
	assert.True(t, result.AutoAssigned)
	require.NotNil(t, result.Details)
	assert.Equal(t, 0.93, result.Details.Confidence)
}

func TestVerifyPackageDefaultFilename(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, header, err := r.FormFile("image")
		require.NoError(t, err)
		assert.Equal(t, "package.jpg", header.Filename)
		json.NewEncoder(w).Encode(domain.VerificationResult{Status: "SUCCESS", Matched: true})
	}))
	defer server.Close()

	client := NewVerifierClient(server.URL, nil)

	_, err := client.VerifyPackage(context.Background(), 55, []byte("x"), "")
	require.NoError(t, err)
}

func TestVerifyPackageUpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		json.NewEncoder(w).Encode(map[string]string{"error": "ocr pipeline unavailable"})
	}))
	defer server.Close()

	client := NewVerifierClient(server.URL, nil)

	_, err := client.VerifyPackage(context.Background(), 55, []byte("x"), "label.jpg")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ocr pipeline unavailable")
}

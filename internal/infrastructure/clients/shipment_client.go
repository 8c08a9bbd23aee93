package clients

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/wms-platform/outbound-service/internal/domain"
	apperrors "github.com/wms-platform/outbound-service/pkg/errors"
	"github.com/wms-platform/outbound-service/pkg/resilience"
)

// ShipmentServiceClient handles communication with the shipment backend.
// Implements domain.ShipmentBackend.
type ShipmentServiceClient struct {
	baseURL    string
	httpClient *http.Client
	breaker    *resilience.CircuitBreaker
}

// NewShipmentServiceClient creates a new ShipmentServiceClient
func NewShipmentServiceClient(baseURL string, breaker *resilience.CircuitBreaker) *ShipmentServiceClient {
	return &ShipmentServiceClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		breaker: breaker,
	}
}

// ListAssignedShipments fetches the shipments assigned for verification work
func (c *ShipmentServiceClient) ListAssignedShipments(ctx context.Context) ([]domain.Shipment, error) {
	url := fmt.Sprintf("%s/api/shipments/assigned", c.baseURL)

	var shipments []domain.Shipment
	err := c.execute(ctx, func() error {
		return c.getJSON(ctx, url, &shipments)
	})
	if err != nil {
		return nil, err
	}
	return shipments, nil
}

// ListShipmentPackages fetches a shipment's packages with storage locations
func (c *ShipmentServiceClient) ListShipmentPackages(ctx context.Context, shipmentID int64) ([]domain.Package, error) {
	url := fmt.Sprintf("%s/api/inbound-verification/shipment-items/%d", c.baseURL, shipmentID)

	var packages []domain.Package
	err := c.execute(ctx, func() error {
		return c.getJSON(ctx, url, &packages)
	})
	if err != nil {
		return nil, err
	}
	return packages, nil
}

func (c *ShipmentServiceClient) getJSON(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return upstreamError("shipment-service", resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func (c *ShipmentServiceClient) execute(ctx context.Context, fn func() error) error {
	if c.breaker == nil {
		return fn()
	}
	_, err := c.breaker.Execute(ctx, func() (interface{}, error) {
		return nil, fn()
	})
	if errors.Is(err, resilience.ErrCircuitOpen) {
		return apperrors.ErrServiceUnavailable("shipment-service").Wrap(err)
	}
	return err
}

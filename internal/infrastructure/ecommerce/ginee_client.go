package ecommerce

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/sneakerflash/backend/internal/domain/integration"
	"github.com/sneakerflash/backend/internal/infrastructure/telemetry"
)

const (
	// maxGineeResponseSize limits the response body size to prevent memory exhaustion
	maxGineeResponseSize = 10 * 1024 * 1024 // 10MB max response

	gineeCountryHeader = "X-Advai-Country"
)

// GineeClient implements the InventoryPlatform port for Ginee.
// It signs and sends requests only; callers own retry policy.
type GineeClient struct {
	config     *GineeConfig
	httpClient *http.Client
	logger     *zap.Logger
}

// NewGineeClient creates a new Ginee client. Missing credentials are rejected here
// so the client never runs without them.
func NewGineeClient(config *GineeConfig, logger *zap.Logger) (*GineeClient, error) {
	if config == nil {
		return nil, integration.ErrPlatformNotConfigured
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &GineeClient{
		config:     config,
		httpClient: &http.Client{},
		logger:     logger.Named("ginee"),
	}, nil
}

// ListMasterProducts returns one page of master products
func (c *GineeClient) ListMasterProducts(ctx context.Context, page, size int, filter integration.MasterProductFilter) (*integration.MasterProductPage, error) {
	req := GineeMasterProductRequest{
		Page:    page,
		Size:    size,
		Keyword: filter.Keyword,
		Status:  filter.Status,
	}

	var resp GineeMasterProductResponse
	if err := c.doRequest(ctx, http.MethodPost, gineeMasterProductListPath, req, c.config.ListTimeout(), &resp); err != nil {
		return nil, err
	}

	result := &integration.MasterProductPage{Page: page, Size: size}
	if resp.Data == nil {
		return result, nil
	}
	result.Total = resp.Data.Total
	result.Fetched = len(resp.Data.Content)
	result.Items = make([]integration.MasterProduct, 0, len(resp.Data.Content))
	for _, p := range resp.Data.Content {
		result.Items = append(result.Items, integration.MasterProduct{
			SKU:           p.MasterSku,
			ProductName:   p.Name,
			StockQuantity: p.StockQuantity.Value,
			Malformed:     p.StockQuantity.Malformed,
		})
	}
	return result, nil
}

// ListWarehouseInventory returns one page of warehouse inventory records.
// The request body carries page and size only.
func (c *GineeClient) ListWarehouseInventory(ctx context.Context, page, size int) (*integration.WarehouseInventoryPage, error) {
	req := GineeWarehouseInventoryRequest{Page: page, Size: size}

	var resp GineeWarehouseInventoryResponse
	if err := c.doRequest(ctx, http.MethodPost, gineeWarehouseInventoryListPath, req, c.config.ListTimeout(), &resp); err != nil {
		return nil, err
	}

	result := &integration.WarehouseInventoryPage{Page: page, Size: size}
	if resp.Data == nil {
		return result, nil
	}
	result.Total = resp.Data.Total
	result.Fetched = len(resp.Data.Content)
	result.Items = make([]integration.WarehouseInventoryItem, 0, len(resp.Data.Content))
	for _, record := range resp.Data.Content {
		item, ok := convertGineeInventoryRecord(record)
		if !ok {
			continue
		}
		result.Items = append(result.Items, item)
	}
	return result, nil
}

// UpdateStock pushes stock quantities and returns the records Ginee echoes back
func (c *GineeClient) UpdateStock(ctx context.Context, warehouseID string, items []integration.StockUpdateItem) (*integration.StockUpdateResult, error) {
	if warehouseID == "" {
		return nil, integration.ErrWarehouseRequired
	}

	req := GineeStockUpdateRequest{
		WarehouseID: warehouseID,
		StockList:   make([]GineeStockUpdateItem, 0, len(items)),
	}
	for _, item := range items {
		req.StockList = append(req.StockList, GineeStockUpdateItem{
			MasterSku: item.SKU,
			Quantity:  item.Quantity,
		})
	}

	var resp GineeStockUpdateResponse
	if err := c.doRequest(ctx, http.MethodPost, gineeStockUpdatePath, req, c.config.UpdateTimeout(), &resp); err != nil {
		return nil, err
	}

	result := &integration.StockUpdateResult{}
	if resp.Data == nil {
		return result, nil
	}
	for _, echo := range resp.Data.StockList {
		result.Items = append(result.Items, integration.StockEcho{
			SKU:            echo.MasterSku,
			ProductName:    echo.MasterProductName,
			WarehouseStock: echo.WarehouseStock.Value,
			AvailableStock: echo.AvailableStock.Value,
			LockedStock:    echo.LockedStock.Value,
			Malformed:      echo.WarehouseStock.Malformed || echo.AvailableStock.Malformed || echo.LockedStock.Malformed,
		})
	}
	return result, nil
}

// ---------------------------------------------------------------------------
// Helper Methods
// ---------------------------------------------------------------------------

// doRequest signs and sends one request and decodes the envelope into out.
// Transport failures become CLIENT_ERROR envelopes; non-SUCCESS codes become remote errors.
func (c *GineeClient) doRequest(ctx context.Context, method, path string, body any, timeout time.Duration, out gineeEnvelope) error {
	ctx, span := telemetry.StartSpan(ctx, "ginee"+path,
		telemetry.WithSpanKind(trace.SpanKindClient),
		telemetry.WithAttribute("http.method", method),
	)
	defer span.End()

	start := time.Now()
	err := c.send(ctx, method, path, body, timeout, out)
	elapsed := time.Since(start)

	if err != nil {
		telemetry.RecordError(span, err)
		var remote *integration.RemoteError
		if errors.As(err, &remote) {
			telemetry.SetAttribute(span, "ginee.code", remote.Code)
		}
		c.logger.Debug("Ginee request failed",
			zap.String("path", path),
			zap.Duration("elapsed", elapsed),
			zap.Error(err),
		)
		return err
	}

	c.logger.Debug("Ginee request completed",
		zap.String("path", path),
		zap.Duration("elapsed", elapsed),
		zap.String("transaction_id", out.envelope().TransactionID),
	)
	return nil
}

func (c *GineeClient) send(ctx context.Context, method, path string, body any, timeout time.Duration, out gineeEnvelope) error {
	payload, err := compactJSON(body)
	if err != nil {
		return integration.NewClientError(fmt.Errorf("ginee: failed to marshal request: %w", err))
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, c.config.APIBaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return integration.NewClientError(fmt.Errorf("ginee: failed to create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", c.config.Authorization(method, path))
	req.Header.Set(gineeCountryHeader, c.config.Country)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return integration.NewClientError(err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxGineeResponseSize))
	if err != nil {
		return integration.NewClientError(fmt.Errorf("ginee: failed to read response: %w", err))
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		if resp.StatusCode >= 300 {
			return integration.NewClientError(fmt.Errorf("ginee: HTTP %d", resp.StatusCode))
		}
		return integration.NewClientError(fmt.Errorf("ginee: failed to parse response: %w", err))
	}

	env := out.envelope()
	switch {
	case resp.StatusCode >= 300 && (env.Code == "" || env.IsSuccess()):
		return integration.NewClientError(fmt.Errorf("ginee: HTTP %d", resp.StatusCode))
	case env.Code == "":
		return integration.NewClientError(errors.New("ginee: response without code"))
	case !env.IsSuccess():
		return integration.NewRemoteError(env.Code, env.Message)
	}
	return nil
}

// convertGineeInventoryRecord converts an inventory record, skipping records without a SKU
func convertGineeInventoryRecord(record GineeWarehouseInventoryRecord) (integration.WarehouseInventoryItem, bool) {
	if record.MasterVariation == nil || record.MasterVariation.MasterSku == "" {
		return integration.WarehouseInventoryItem{}, false
	}

	item := integration.WarehouseInventoryItem{
		SKU:         record.MasterVariation.MasterSku,
		ProductName: record.MasterVariation.Name,
	}
	if inv := record.WarehouseInventory; inv != nil {
		item.WarehouseStock = inv.WarehouseStock.Value
		item.AvailableStock = inv.AvailableStock.Value
		item.LockedStock = inv.LockedStock.Value
		item.UpdatedAt = inv.UpdatedAt()
		item.Malformed = inv.WarehouseStock.Malformed || inv.AvailableStock.Malformed || inv.LockedStock.Malformed
	}
	return item, true
}

// compactJSON marshals v and drops null values, empty strings and empty collections
// at every nesting level. Numbers and booleans are kept even when zero.
func compactJSON(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var generic any
	if err := dec.Decode(&generic); err != nil {
		return nil, err
	}

	cleaned, _ := stripEmpty(generic)
	if cleaned == nil {
		cleaned = map[string]any{}
	}
	return json.Marshal(cleaned)
}

// stripEmpty returns the value with empty members removed and whether anything is left
func stripEmpty(v any) (any, bool) {
	switch val := v.(type) {
	case nil:
		return nil, false
	case string:
		return val, val != ""
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, child := range val {
			if cleaned, keep := stripEmpty(child); keep {
				out[k] = cleaned
			}
		}
		return out, len(out) > 0
	case []any:
		out := make([]any, 0, len(val))
		for _, child := range val {
			if cleaned, keep := stripEmpty(child); keep {
				out = append(out, cleaned)
			}
		}
		return out, len(out) > 0
	default:
		return val, true
	}
}

// Ensure GineeClient implements InventoryPlatform
var _ integration.InventoryPlatform = (*GineeClient)(nil)

package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/shop-orders/internal/domain"
)

const defaultLookupTimeout = 5 * time.Second

// Client обращается к сервису каталога по HTTP за снимком товара.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *log.Entry
}

// NewClient создаёт клиент каталога. Каждый lookup ограничен timeout;
// timeout <= 0 заменяется значением по умолчанию.
func NewClient(baseURL string, timeout time.Duration, logger *log.Entry) *Client {
	if timeout <= 0 {
		timeout = defaultLookupTimeout
	}
	if logger == nil {
		logger = log.WithField("component", "catalog-client")
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// productPayload повторяет JSON-контракт сервиса каталога.
type productPayload struct {
	Success bool `json:"success"`
	Data    *struct {
		Name  string          `json:"name"`
		Price decimal.Decimal `json:"price"`
		Stock int32           `json:"stock"`
	} `json:"data"`
}

// Lookup возвращает снимок товара по идентификатору.
// Явный 404 каталога — ProductNotFoundError; любая транспортная ошибка,
// таймаут или некорректное тело — CatalogUnavailableError.
func (c *Client) Lookup(ctx context.Context, productID int64) (domain.ProductSnapshot, error) {
	url := fmt.Sprintf("%s/api/products/%d", c.baseURL, productID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return domain.ProductSnapshot{}, &domain.CatalogUnavailableError{ProductID: productID, Err: err}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.WithError(err).WithField("product_id", productID).Warn("catalog request failed")
		return domain.ProductSnapshot{}, &domain.CatalogUnavailableError{ProductID: productID, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return domain.ProductSnapshot{}, &domain.ProductNotFoundError{ProductID: productID}
	}
	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("unexpected status %d", resp.StatusCode)
		c.logger.WithError(err).WithField("product_id", productID).Warn("catalog returned non-success status")
		return domain.ProductSnapshot{}, &domain.CatalogUnavailableError{ProductID: productID, Err: err}
	}

	var payload productPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return domain.ProductSnapshot{}, &domain.CatalogUnavailableError{ProductID: productID, Err: fmt.Errorf("decode response: %w", err)}
	}
	if !payload.Success || payload.Data == nil {
		return domain.ProductSnapshot{}, &domain.CatalogUnavailableError{ProductID: productID, Err: fmt.Errorf("response has no product payload")}
	}

	return domain.ProductSnapshot{
		ID:    productID,
		Name:  payload.Data.Name,
		Price: payload.Data.Price,
		Stock: payload.Data.Stock,
	}, nil
}

var _ domain.CatalogClient = (*Client)(nil)

package shipping

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/rbhandari/attira-backend/pkg/config"
	"github.com/rbhandari/attira-backend/pkg/db/models"
	"github.com/rbhandari/attira-backend/pkg/enums"
	pkgerrors "github.com/rbhandari/attira-backend/pkg/errors"
	"github.com/rbhandari/attira-backend/pkg/logger"
)

const manifestPath = "/v1/manifests"

// Client pushes confirmed orders to the carrier for pickup manifestation.
type Client interface {
	Manifest(ctx context.Context, order *models.Order) (ManifestResult, error)
	Enabled() bool
}

// ManifestResult is the carrier's acknowledgement.
type ManifestResult struct {
	AWB    string `json:"awb"`
	Status string `json:"status"`
}

type manifestRequest struct {
	OrderNumber string         `json:"order_number"`
	Consignee   consignee      `json:"consignee"`
	Lines       []manifestLine `json:"lines"`
	CODAmount   string         `json:"cod_amount,omitempty"`
}

type consignee struct {
	Name       string `json:"name"`
	Phone      string `json:"phone"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

type manifestLine struct {
	SKU  string `json:"sku"`
	Name string `json:"name"`
	Qty  int    `json:"qty"`
}

type client struct {
	baseURL  string
	token    string
	attempts int
	http     *http.Client
	logg     *logger.Logger
}

// NewClient builds the carrier client. An empty base URL yields a disabled
// client so environments without a carrier account keep working.
func NewClient(cfg config.ShippingConfig, logg *logger.Logger) (Client, error) {
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	attempts := cfg.PushAttempts
	if attempts <= 0 {
		attempts = 3
	}
	timeout := cfg.PushTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &client{
		baseURL:  strings.TrimRight(cfg.CarrierBaseURL, "/"),
		token:    cfg.CarrierToken,
		attempts: attempts,
		http:     &http.Client{Timeout: timeout},
		logg:     logg,
	}, nil
}

func (c *client) Enabled() bool {
	return c.baseURL != ""
}

// Manifest registers the shipment with the carrier and returns the assigned
// AWB. Transient carrier failures are retried with exponential backoff; the
// final error carries the integration code so callers never treat it as an
// order-state failure.
func (c *client) Manifest(ctx context.Context, order *models.Order) (ManifestResult, error) {
	if !c.Enabled() {
		return ManifestResult{}, pkgerrors.New(pkgerrors.CodeIntegration, "carrier integration disabled")
	}
	if order == nil {
		return ManifestResult{}, pkgerrors.New(pkgerrors.CodeValidation, "order required")
	}

	body, err := json.Marshal(c.buildRequest(order))
	if err != nil {
		return ManifestResult{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encoding manifest request")
	}

	var result ManifestResult
	backoff := retry.WithMaxRetries(uint64(c.attempts-1), retry.NewExponential(500*time.Millisecond))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		res, err := c.push(ctx, body)
		if err != nil {
			return err
		}
		result = res
		return nil
	})
	if err != nil {
		return ManifestResult{}, pkgerrors.Wrap(pkgerrors.CodeIntegration, err, "carrier manifest failed")
	}
	return result, nil
}

func (c *client) push(ctx context.Context, body []byte) (ManifestResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+manifestPath, bytes.NewReader(body))
	if err != nil {
		return ManifestResult{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		// network errors are worth another attempt
		return ManifestResult{}, retry.RetryableError(err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return ManifestResult{}, retry.RetryableError(err)
	}

	switch {
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		return ManifestResult{}, retry.RetryableError(fmt.Errorf("carrier returned %d", resp.StatusCode))
	case resp.StatusCode >= 400:
		return ManifestResult{}, fmt.Errorf("carrier rejected manifest: %d %s", resp.StatusCode, strings.TrimSpace(string(payload)))
	}

	var result ManifestResult
	if err := json.Unmarshal(payload, &result); err != nil {
		return ManifestResult{}, fmt.Errorf("decoding carrier response: %w", err)
	}
	if result.AWB == "" {
		return ManifestResult{}, fmt.Errorf("carrier response missing awb")
	}
	return result, nil
}

func (c *client) buildRequest(order *models.Order) manifestRequest {
	var line2 string
	if order.ShippingAddress.Line2 != nil {
		line2 = *order.ShippingAddress.Line2
	}
	req := manifestRequest{
		OrderNumber: order.OrderNumber,
		Consignee: consignee{
			Name:       order.ShippingAddress.Name,
			Phone:      order.ShippingAddress.Phone,
			Line1:      order.ShippingAddress.Line1,
			Line2:      line2,
			City:       order.ShippingAddress.City,
			State:      order.ShippingAddress.State,
			PostalCode: order.ShippingAddress.PostalCode,
			Country:    order.ShippingAddress.Country,
		},
	}
	for _, item := range order.Items {
		req.Lines = append(req.Lines, manifestLine{SKU: item.SKUCode, Name: item.Name, Qty: item.Qty})
	}
	if order.PaymentMethod == enums.PaymentMethodCOD {
		req.CODAmount = order.GrandTotal.StringFixed(2)
	}
	return req
}

package shipping

import (
	"context"
	"fmt"

	"github.com/rbhandari/attira-backend/internal/orders"
	"github.com/rbhandari/attira-backend/pkg/db/models"
	"github.com/rbhandari/attira-backend/pkg/logger"
)

// Dispatcher manifests orders with the carrier after their state has been
// committed. Carrier failures are logged, never propagated: the shipment can
// be manifested again by an operator but the order must not roll back.
type Dispatcher struct {
	client Client
	orders orders.Repository
	logg   *logger.Logger
}

func NewDispatcher(client Client, ordersRepo orders.Repository, logg *logger.Logger) (*Dispatcher, error) {
	if client == nil {
		return nil, fmt.Errorf("carrier client required")
	}
	if ordersRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Dispatcher{client: client, orders: ordersRepo, logg: logg}, nil
}

// ManifestOrder pushes the order to the carrier and records the assigned AWB.
func (d *Dispatcher) ManifestOrder(ctx context.Context, order *models.Order) {
	if order == nil {
		return
	}
	if !d.client.Enabled() {
		return
	}
	if order.AWB != nil && *order.AWB != "" {
		return
	}

	ctx = d.logg.WithOrderNumber(ctx, order.OrderNumber)
	result, err := d.client.Manifest(ctx, order)
	if err != nil {
		d.logg.Error(ctx, "carrier manifest push failed", err)
		return
	}
	if err := d.orders.Update(ctx, order.ID, map[string]any{"awb": result.AWB}); err != nil {
		d.logg.Error(ctx, "recording carrier awb", err)
		return
	}
	d.logg.Info(ctx, "order manifested with carrier")
}

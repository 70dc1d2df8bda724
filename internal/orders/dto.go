package orders

import (
	"github.com/google/uuid"

	"github.com/rbhandari/attira-backend/pkg/db/models"
	"github.com/rbhandari/attira-backend/pkg/enums"
)

// OrderList is one page of orders plus the cursor for the next page.
type OrderList struct {
	Orders     []models.Order
	NextCursor string
}

// ListFilters narrow the order history endpoint.
type ListFilters struct {
	Status *enums.OrderStatus
}

// TransitionInput captures an explicit status change request.
type TransitionInput struct {
	OrderID uuid.UUID
	Target  enums.OrderStatus
}

// CarrierStatusInput is the normalized form of a shipping webhook event.
type CarrierStatusInput struct {
	OrderID       uuid.UUID
	CarrierStatus string
	AWB           string
	Scans         []string
}

// PaymentUpdateInput is the normalized form of a payment webhook event.
type PaymentUpdateInput struct {
	OrderNumber string
	Status      enums.PaymentStatus
	PaymentRef  *string
}

package returns

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rbhandari/attira-backend/internal/catalog"
	"github.com/rbhandari/attira-backend/internal/orders"
	"github.com/rbhandari/attira-backend/pkg/db/models"
	"github.com/rbhandari/attira-backend/pkg/enums"
	pkgerrors "github.com/rbhandari/attira-backend/pkg/errors"
	"github.com/rbhandari/attira-backend/pkg/logger"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// returnTransitions is the inspection pipeline. Refunds only follow a passed
// QC; rejection is reachable from every non-terminal state.
var returnTransitions = map[enums.ReturnStatus][]enums.ReturnStatus{
	enums.ReturnStatusRequested:       {enums.ReturnStatusApproved, enums.ReturnStatusRejected},
	enums.ReturnStatusApproved:        {enums.ReturnStatusPickupScheduled, enums.ReturnStatusRejected},
	enums.ReturnStatusPickupScheduled: {enums.ReturnStatusReceived, enums.ReturnStatusRejected},
	enums.ReturnStatusReceived:        {enums.ReturnStatusQCPass, enums.ReturnStatusQCFail, enums.ReturnStatusRejected},
	enums.ReturnStatusQCPass:          {enums.ReturnStatusRefunded, enums.ReturnStatusRejected},
	enums.ReturnStatusQCFail:          {enums.ReturnStatusRejected},
}

// RequestItemInput names one order item and quantity in a return claim.
type RequestItemInput struct {
	OrderItemID uuid.UUID
	Qty         int
	Reason      string
}

// RequestInput captures a customer's return claim.
type RequestInput struct {
	OrderID uuid.UUID
	UserID  uuid.UUID
	Type    enums.ReturnType
	Reason  string
	Items   []RequestItemInput
}

// ProcessInput captures an operator moving a return through the pipeline.
type ProcessInput struct {
	RequestID uuid.UUID
	Target    enums.ReturnStatus
	Comments  string
}

// Service owns the post-delivery return and refund workflow.
type Service interface {
	Request(ctx context.Context, input RequestInput) (*models.ReturnRequest, error)
	Process(ctx context.Context, input ProcessInput) (*models.ReturnRequest, error)
	Get(ctx context.Context, userID, requestID uuid.UUID) (*models.ReturnRequest, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]models.ReturnRequest, error)
}

type service struct {
	repo    Repository
	orders  orders.Repository
	catalog catalog.Repository
	tx      txRunner
	logg    *logger.Logger
}

// NewService builds a returns service with the required dependencies.
func NewService(repo Repository, ordersRepo orders.Repository, catalogRepo catalog.Repository, tx txRunner, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("returns repository required")
	}
	if ordersRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if catalogRepo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, orders: ordersRepo, catalog: catalogRepo, tx: tx, logg: logg}, nil
}

// Request opens a return claim. Item-level return flags flip to requested in
// the same transaction, which is what blocks a second claim on the same item.
func (s *service) Request(ctx context.Context, input RequestInput) (*models.ReturnRequest, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if !input.Type.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown return type")
	}
	if strings.TrimSpace(input.Reason) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "return reason required")
	}
	if len(input.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one item required")
	}

	var created *models.ReturnRequest
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		ordersRepo := s.orders.WithTx(tx)
		order, err := ordersRepo.FindByID(ctx, input.OrderID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return err
		}
		if order.UserID != input.UserID {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		if order.Status != enums.OrderStatusDelivered {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "only delivered orders can be returned")
		}
		now := time.Now().UTC()
		if order.ReturnWindowExpiresAt == nil || now.After(*order.ReturnWindowExpiresAt) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "return window has expired")
		}

		itemsByID := make(map[uuid.UUID]models.OrderItem, len(order.Items))
		for _, item := range order.Items {
			itemsByID[item.ID] = item
		}

		returnItems := make([]models.ReturnItem, 0, len(input.Items))
		for _, claim := range input.Items {
			item, ok := itemsByID[claim.OrderItemID]
			if !ok {
				return pkgerrors.New(pkgerrors.CodeValidation, "item does not belong to this order")
			}
			if claim.Qty <= 0 || claim.Qty > item.Qty {
				return pkgerrors.New(pkgerrors.CodeValidation, "invalid return quantity").
					WithDetails(map[string]any{"item_id": item.ID, "ordered_qty": item.Qty})
			}
			if item.ReturnStatus != enums.ItemReturnStatusNone {
				return pkgerrors.New(pkgerrors.CodeConflict, "item already has a return claim").
					WithDetails(map[string]any{"item_id": item.ID})
			}
			returnItems = append(returnItems, models.ReturnItem{
				OrderItemID: item.ID,
				Qty:         claim.Qty,
				Reason:      strings.TrimSpace(claim.Reason),
			})
		}

		for _, ri := range returnItems {
			if err := ordersRepo.UpdateItemReturnStatus(ctx, ri.OrderItemID, enums.ItemReturnStatusRequested.String()); err != nil {
				return err
			}
		}

		created, err = s.repo.WithTx(tx).Create(ctx, &models.ReturnRequest{
			OrderID: order.ID,
			UserID:  input.UserID,
			Type:    input.Type,
			Reason:  strings.TrimSpace(input.Reason),
			Status:  enums.ReturnStatusRequested,
			Items:   returnItems,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// Process advances a return along the inspection pipeline. A refund marks
// the claimed items returned, restocks them and flips the order's payment
// status; a rejection only stamps the items.
func (s *service) Process(ctx context.Context, input ProcessInput) (*models.ReturnRequest, error) {
	if input.RequestID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "return request id required")
	}
	if !input.Target.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown return status")
	}

	var result *models.ReturnRequest
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		request, err := repo.FindByID(ctx, input.RequestID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "return request not found")
			}
			return err
		}

		if !canTransition(request.Status, input.Target) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "invalid return transition").
				WithDetails(map[string]any{"current": request.Status.String(), "target": input.Target.String()})
		}

		updates := map[string]any{"status": input.Target}
		if comments := strings.TrimSpace(input.Comments); comments != "" {
			updates["comments"] = comments
		}
		if err := repo.Update(ctx, request.ID, updates); err != nil {
			return err
		}

		switch input.Target {
		case enums.ReturnStatusRefunded:
			if err := s.settleRefund(ctx, tx, request); err != nil {
				return err
			}
		case enums.ReturnStatusRejected:
			if err := s.stampItems(ctx, tx, request, enums.ItemReturnStatusRejected); err != nil {
				return err
			}
		}

		result, err = repo.FindByID(ctx, request.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *service) settleRefund(ctx context.Context, tx *gorm.DB, request *models.ReturnRequest) error {
	ordersRepo := s.orders.WithTx(tx)
	catalogRepo := s.catalog.WithTx(tx)

	for _, ri := range request.Items {
		if err := ordersRepo.UpdateItemReturnStatus(ctx, ri.OrderItemID, enums.ItemReturnStatusReturned.String()); err != nil {
			return err
		}
		item, err := ordersRepo.FindItem(ctx, ri.OrderItemID)
		if err != nil {
			return err
		}
		if item.SKUID == nil {
			continue
		}
		if err := catalogRepo.RestockSKU(ctx, *item.SKUID, ri.Qty); err != nil {
			if catalog.IsNotFound(err) {
				s.logg.Warn(ctx, "sku missing during return restock")
				continue
			}
			return err
		}
	}

	return ordersRepo.Update(ctx, request.OrderID, map[string]any{
		"payment_status": enums.PaymentStatusRefunded,
	})
}

func (s *service) stampItems(ctx context.Context, tx *gorm.DB, request *models.ReturnRequest, status enums.ItemReturnStatus) error {
	ordersRepo := s.orders.WithTx(tx)
	for _, ri := range request.Items {
		if err := ordersRepo.UpdateItemReturnStatus(ctx, ri.OrderItemID, status.String()); err != nil {
			return err
		}
	}
	return nil
}

func (s *service) Get(ctx context.Context, userID, requestID uuid.UUID) (*models.ReturnRequest, error) {
	if requestID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "return request id required")
	}
	request, err := s.repo.FindByID(ctx, requestID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "return request not found")
		}
		return nil, err
	}
	if request.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "return request not found")
	}
	return request, nil
}

func (s *service) ListForUser(ctx context.Context, userID uuid.UUID) ([]models.ReturnRequest, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	return s.repo.ListByUser(ctx, userID)
}

func canTransition(from, to enums.ReturnStatus) bool {
	for _, allowed := range returnTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

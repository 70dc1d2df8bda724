package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/rbhandari/attira-backend/internal/catalog"
	"github.com/rbhandari/attira-backend/pkg/db/models"
	"github.com/rbhandari/attira-backend/pkg/enums"
	pkgerrors "github.com/rbhandari/attira-backend/pkg/errors"
	"github.com/rbhandari/attira-backend/pkg/logger"
	"github.com/rbhandari/attira-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// carrierStatusMap translates carrier scan statuses into the order lifecycle.
// The mapping is lossy on purpose; intermediate scan detail lands in
// carrier_scans instead of inventing new order states.
var carrierStatusMap = map[string]enums.OrderStatus{
	"manifested":       enums.OrderStatusProcessing,
	"picked_up":        enums.OrderStatusShipped,
	"in_transit":       enums.OrderStatusShipped,
	"out_for_delivery": enums.OrderStatusShipped,
	"delivered":        enums.OrderStatusDelivered,
}

// Service drives the order lifecycle after checkout has cut the record.
type Service interface {
	Get(ctx context.Context, userID, orderID uuid.UUID) (*models.Order, error)
	GetAny(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	ListForUser(ctx context.Context, userID uuid.UUID, params pagination.Params, filters ListFilters) (*OrderList, error)
	Transition(ctx context.Context, input TransitionInput) (*models.Order, error)
	Cancel(ctx context.Context, orderID, actorUserID uuid.UUID, isAdmin bool) (*models.Order, error)
	ApplyCarrierStatus(ctx context.Context, input CarrierStatusInput) error
	ApplyPaymentUpdate(ctx context.Context, input PaymentUpdateInput) (*models.Order, error)
}

type service struct {
	repo             Repository
	catalog          catalog.Repository
	tx               txRunner
	logg             *logger.Logger
	returnWindowDays int
}

// NewService builds an orders service with the required dependencies.
func NewService(repo Repository, catalogRepo catalog.Repository, tx txRunner, logg *logger.Logger, returnWindowDays int) (Service, error) {
	if repo == nil {
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
	if returnWindowDays <= 0 {
		returnWindowDays = 7
	}
	return &service{
		repo:             repo,
		catalog:          catalogRepo,
		tx:               tx,
		logg:             logg,
		returnWindowDays: returnWindowDays,
	}, nil
}

func (s *service) Get(ctx context.Context, userID, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.GetAny(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return order, nil
}

func (s *service) GetAny(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, err
	}
	return order, nil
}

func (s *service) ListForUser(ctx context.Context, userID uuid.UUID, params pagination.Params, filters ListFilters) (*OrderList, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	return s.repo.ListByUser(ctx, userID, params, filters)
}

// Transition moves an order forward along the lifecycle. Backward moves are
// rejected, repeats are no-ops, and timestamps stamp exactly once.
func (s *service) Transition(ctx context.Context, input TransitionInput) (*models.Order, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if !input.Target.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown order status")
	}
	if input.Target == enums.OrderStatusCancelled {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cancellation has its own operation")
	}

	var result *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindByID(ctx, input.OrderID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return err
		}

		updates, err := s.transitionUpdates(order, input.Target, time.Now().UTC())
		if err != nil {
			return err
		}
		if len(updates) == 0 {
			result = order
			return nil
		}
		if err := repo.Update(ctx, order.ID, updates); err != nil {
			return err
		}
		result, err = repo.FindByID(ctx, order.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *service) transitionUpdates(order *models.Order, target enums.OrderStatus, now time.Time) (map[string]any, error) {
	currentRank, ok := order.Status.Rank()
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order is cancelled")
	}
	targetRank, ok := target.Rank()
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown order status")
	}
	if targetRank < currentRank {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order status cannot move backwards").
			WithDetails(map[string]any{"current": order.Status.String(), "target": target.String()})
	}
	if targetRank == currentRank {
		return nil, nil
	}
	if target == enums.OrderStatusDelivered && order.PaymentStatus == enums.PaymentStatusFailed {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "cannot deliver an order with failed payment")
	}

	updates := map[string]any{"status": target}
	if target == enums.OrderStatusShipped && order.ShippedAt == nil {
		updates["shipped_at"] = now
	}
	if target == enums.OrderStatusDelivered {
		if order.ShippedAt == nil {
			updates["shipped_at"] = now
		}
		if order.DeliveredAt == nil {
			updates["delivered_at"] = now
			updates["return_window_expires_at"] = now.AddDate(0, 0, s.returnWindowDays)
		}
	}
	return updates, nil
}

// Cancel aborts any order that has not been delivered. Stock returns to the
// catalog only while the goods are still in the warehouse; an in-transit
// cancellation restocks later, when the carrier returns the parcel. Paid
// orders flip to refunded so downstream settlement can pick them up.
func (s *service) Cancel(ctx context.Context, orderID, actorUserID uuid.UUID, isAdmin bool) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}

	var result *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindByID(ctx, orderID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return err
		}
		if !isAdmin && order.UserID != actorUserID {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}

		rank, ok := order.Status.Rank()
		if !ok {
			// already cancelled, idempotent
			result = order
			return nil
		}
		if deliveredRank, _ := enums.OrderStatusDelivered.Rank(); rank >= deliveredRank {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "delivered orders go through the returns flow")
		}

		shippedRank, _ := enums.OrderStatusShipped.Rank()
		if rank < shippedRank {
			catalogRepo := s.catalog.WithTx(tx)
			for _, item := range order.Items {
				if item.SKUID == nil {
					continue
				}
				if err := catalogRepo.RestockSKU(ctx, *item.SKUID, item.Qty); err != nil {
					if catalog.IsNotFound(err) {
						s.logg.Warn(s.logg.WithOrderNumber(ctx, order.OrderNumber), "sku missing during cancel restock")
						continue
					}
					return err
				}
			}
		} else {
			s.logg.Warn(s.logg.WithOrderNumber(ctx, order.OrderNumber), "cancelling in-transit order, stock returns on carrier RTO")
		}

		updates := map[string]any{
			"status":       enums.OrderStatusCancelled,
			"cancelled_at": time.Now().UTC(),
		}
		if order.PaymentStatus == enums.PaymentStatusPaid {
			updates["payment_status"] = enums.PaymentStatusRefunded
		}
		if err := repo.Update(ctx, order.ID, updates); err != nil {
			return err
		}
		result, err = repo.FindByID(ctx, order.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ApplyCarrierStatus folds a shipping webhook event into the order. Unknown
// carrier statuses only record scans; known ones also advance the lifecycle.
func (s *service) ApplyCarrierStatus(ctx context.Context, input CarrierStatusInput) error {
	if input.OrderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindByID(ctx, input.OrderID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return err
		}

		updates := map[string]any{}
		if input.AWB != "" && (order.AWB == nil || *order.AWB != input.AWB) {
			updates["awb"] = input.AWB
		}
		if len(input.Scans) > 0 {
			updates["carrier_scans"] = pq.StringArray(append(order.CarrierScans, input.Scans...))
		}

		if target, known := carrierStatusMap[input.CarrierStatus]; known {
			statusUpdates, terr := s.transitionUpdates(order, target, time.Now().UTC())
			if terr != nil {
				typed := pkgerrors.As(terr)
				// a late scan arriving after delivery is noise, not an error
				if typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
					return terr
				}
				s.logg.Warn(s.logg.WithOrderNumber(ctx, order.OrderNumber), "ignoring out-of-order carrier status")
			}
			for k, v := range statusUpdates {
				updates[k] = v
			}
		} else {
			s.logg.Warn(s.logg.WithOrderNumber(ctx, order.OrderNumber), "unknown carrier status "+input.CarrierStatus)
		}

		if len(updates) == 0 {
			return nil
		}
		return repo.Update(ctx, order.ID, updates)
	})
}

// ApplyPaymentUpdate folds a payment webhook event into the order. A paid
// event confirms a pending order in the same transaction.
func (s *service) ApplyPaymentUpdate(ctx context.Context, input PaymentUpdateInput) (*models.Order, error) {
	if input.OrderNumber == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order reference required")
	}
	if !input.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown payment status")
	}

	var result *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindByOrderNumber(ctx, input.OrderNumber)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return err
		}

		if order.PaymentStatus == input.Status {
			result = order
			return nil
		}

		updates := map[string]any{"payment_status": input.Status}
		if input.PaymentRef != nil {
			updates["payment_ref"] = *input.PaymentRef
		}
		if input.Status == enums.PaymentStatusPaid && order.Status == enums.OrderStatusPending {
			updates["status"] = enums.OrderStatusConfirmed
		}

		if err := repo.Update(ctx, order.ID, updates); err != nil {
			return err
		}
		result, err = repo.FindByID(ctx, order.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

package webhooks

import (
	"context"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/rbhandari/attira-backend/internal/orders"
	"github.com/rbhandari/attira-backend/pkg/db/models"
	"github.com/rbhandari/attira-backend/pkg/enums"
	pkgerrors "github.com/rbhandari/attira-backend/pkg/errors"
	"github.com/rbhandari/attira-backend/pkg/logger"
)

type mockDedupe struct {
	seen    map[string]bool
	deleted []string
	failNX  error
}

func newMockDedupe() *mockDedupe {
	return &mockDedupe{seen: map[string]bool{}}
}

func (m *mockDedupe) SetNX(_ context.Context, key string, _ any, _ time.Duration) (bool, error) {
	if m.failNX != nil {
		return false, m.failNX
	}
	if m.seen[key] {
		return false, nil
	}
	m.seen[key] = true
	return true, nil
}

func (m *mockDedupe) WebhookEventKey(source, digest string) string {
	return "attira:webhook:" + source + ":" + digest
}

func (m *mockDedupe) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(m.seen, key)
		m.deleted = append(m.deleted, key)
	}
	return nil
}

type stubOrders struct {
	paymentCalls []orders.PaymentUpdateInput
	carrierCalls []orders.CarrierStatusInput
	paymentErr   error
	carrierErr   error
}

func (s *stubOrders) ApplyPaymentUpdate(_ context.Context, input orders.PaymentUpdateInput) (*models.Order, error) {
	if s.paymentErr != nil {
		return nil, s.paymentErr
	}
	s.paymentCalls = append(s.paymentCalls, input)
	return &models.Order{OrderNumber: input.OrderNumber}, nil
}

func (s *stubOrders) ApplyCarrierStatus(_ context.Context, input orders.CarrierStatusInput) error {
	if s.carrierErr != nil {
		return s.carrierErr
	}
	s.carrierCalls = append(s.carrierCalls, input)
	return nil
}

func newTestService(t *testing.T, ordersSvc *stubOrders, dedupe *mockDedupe) Service {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "webhooks-test", Output: io.Discard})
	svc, err := NewService(ordersSvc, dedupe, logg, time.Hour)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func TestHandlePaymentAppliesUpdate(t *testing.T) {
	t.Parallel()

	ordersSvc := &stubOrders{}
	svc := newTestService(t, ordersSvc, newMockDedupe())
	payload := []byte(`{"type":"payment.captured","order_ref":"ATT-20260829-AB12CD","status":"paid","payment_ref":"pay_9f3k"}`)

	res, err := svc.HandlePayment(context.Background(), payload)
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if res.Duplicate {
		t.Fatalf("first delivery flagged duplicate")
	}
	if len(ordersSvc.paymentCalls) != 1 {
		t.Fatalf("expected 1 payment update, got %d", len(ordersSvc.paymentCalls))
	}
	call := ordersSvc.paymentCalls[0]
	if call.OrderNumber != "ATT-20260829-AB12CD" || call.Status != enums.PaymentStatusPaid {
		t.Fatalf("unexpected input: %+v", call)
	}
	if call.PaymentRef == nil || *call.PaymentRef != "pay_9f3k" {
		t.Fatalf("payment ref not carried")
	}
}

func TestHandlePaymentReplayIsNoOp(t *testing.T) {
	t.Parallel()

	ordersSvc := &stubOrders{}
	svc := newTestService(t, ordersSvc, newMockDedupe())
	payload := []byte(`{"type":"payment.captured","order_ref":"ATT-20260829-AB12CD","status":"paid"}`)

	if _, err := svc.HandlePayment(context.Background(), payload); err != nil {
		t.Fatalf("first delivery: %v", err)
	}
	res, err := svc.HandlePayment(context.Background(), payload)
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if !res.Duplicate {
		t.Fatalf("replay not flagged duplicate")
	}
	if len(ordersSvc.paymentCalls) != 1 {
		t.Fatalf("replay reached the orders service")
	}
}

func TestHandlePaymentFailureReleasesClaim(t *testing.T) {
	t.Parallel()

	ordersSvc := &stubOrders{paymentErr: fmt.Errorf("db down")}
	dedupe := newMockDedupe()
	svc := newTestService(t, ordersSvc, dedupe)
	payload := []byte(`{"order_ref":"ATT-20260829-AB12CD","status":"paid"}`)

	if _, err := svc.HandlePayment(context.Background(), payload); err == nil {
		t.Fatalf("expected processing failure")
	}
	if len(dedupe.deleted) != 1 {
		t.Fatalf("dedupe claim not released")
	}

	// the retry can now land
	ordersSvc.paymentErr = nil
	res, err := svc.HandlePayment(context.Background(), payload)
	if err != nil || res.Duplicate {
		t.Fatalf("retry blocked: %v dup=%v", err, res.Duplicate)
	}
}

func TestHandlePaymentValidation(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, &stubOrders{}, newMockDedupe())

	for name, payload := range map[string]string{
		"malformed json": `{"order_ref":`,
		"missing ref":    `{"status":"paid"}`,
		"unknown status": `{"order_ref":"ATT-1","status":"maybe"}`,
	} {
		_, err := svc.HandlePayment(context.Background(), []byte(payload))
		if err == nil {
			t.Fatalf("%s: expected rejection", name)
		}
		typed := pkgerrors.As(err)
		if typed == nil || typed.Code() != pkgerrors.CodeValidation {
			t.Fatalf("%s: unexpected error %v", name, err)
		}
	}
}

func TestHandleShippingAppliesCarrierStatus(t *testing.T) {
	t.Parallel()

	ordersSvc := &stubOrders{}
	svc := newTestService(t, ordersSvc, newMockDedupe())
	orderID := uuid.New()
	payload := []byte(`{"order_id":"` + orderID.String() + `","current_status":"In_Transit","awb":"AWB123","scans":["left hub BLR"]}`)

	res, err := svc.HandleShipping(context.Background(), payload)
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if res.Duplicate {
		t.Fatalf("first delivery flagged duplicate")
	}
	if len(ordersSvc.carrierCalls) != 1 {
		t.Fatalf("expected 1 carrier update")
	}
	call := ordersSvc.carrierCalls[0]
	if call.OrderID != orderID || call.CarrierStatus != "in_transit" || call.AWB != "AWB123" {
		t.Fatalf("unexpected input: %+v", call)
	}
	if len(call.Scans) != 1 || call.Scans[0] != "left hub BLR" {
		t.Fatalf("scans not carried")
	}
}

func TestHandleShippingReplayAndValidation(t *testing.T) {
	t.Parallel()

	ordersSvc := &stubOrders{}
	svc := newTestService(t, ordersSvc, newMockDedupe())
	payload := []byte(`{"order_id":"` + uuid.NewString() + `","current_status":"delivered"}`)

	if _, err := svc.HandleShipping(context.Background(), payload); err != nil {
		t.Fatalf("first delivery: %v", err)
	}
	res, err := svc.HandleShipping(context.Background(), payload)
	if err != nil || !res.Duplicate {
		t.Fatalf("replay not deduplicated: %v", err)
	}
	if len(ordersSvc.carrierCalls) != 1 {
		t.Fatalf("replay reached the orders service")
	}

	if _, err := svc.HandleShipping(context.Background(), []byte(`{"order_id":"not-a-uuid","current_status":"delivered"}`)); err == nil {
		t.Fatalf("expected invalid order id rejection")
	}
	if _, err := svc.HandleShipping(context.Background(), []byte(`{"order_id":"`+uuid.NewString()+`"}`)); err == nil {
		t.Fatalf("expected missing status rejection")
	}
}

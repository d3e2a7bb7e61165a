package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/lumipos/internal/constants"
	"github.com/lumipos/internal/models"
	"github.com/lumipos/internal/queue"
	"github.com/lumipos/internal/realtime"
	"github.com/lumipos/internal/repository"

	"github.com/hibiken/asynq"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type stubOrderRepo struct {
	orders        map[uint]*models.Order
	nextID        uint
	forceConflict bool
	overdue       []models.Order
}

func newStubOrderRepo() *stubOrderRepo {
	return &stubOrderRepo{orders: map[uint]*models.Order{}, nextID: 1}
}

func (r *stubOrderRepo) put(order models.Order) *models.Order {
	if order.ID == 0 {
		order.ID = r.nextID
		r.nextID++
	}
	stored := order
	r.orders[stored.ID] = &stored
	return &stored
}

func (r *stubOrderRepo) Create(order *models.Order, items []models.OrderItem) error {
	order.ID = r.nextID
	r.nextID++
	order.Items = items
	clone := *order
	r.orders[order.ID] = &clone
	return nil
}

func (r *stubOrderRepo) GetByID(businessID, id uint) (*models.Order, error) {
	order, ok := r.orders[id]
	if !ok {
		return nil, nil
	}
	if businessID != 0 && order.BusinessID != businessID {
		return nil, nil
	}
	clone := *order
	return &clone, nil
}

func (r *stubOrderRepo) GetByOrderNo(businessID uint, orderNo string) (*models.Order, error) {
	for _, order := range r.orders {
		if order.OrderNo == orderNo && (businessID == 0 || order.BusinessID == businessID) {
			clone := *order
			return &clone, nil
		}
	}
	return nil, nil
}

func (r *stubOrderRepo) List(filter repository.OrderListFilter) ([]models.Order, int64, error) {
	var out []models.Order
	for _, order := range r.orders {
		out = append(out, *order)
	}
	return out, int64(len(out)), nil
}

func (r *stubOrderRepo) ListBoard(businessID uint) ([]models.Order, error) {
	return nil, nil
}

func (r *stubOrderRepo) ListOverdue(businessID uint, asOf time.Time, slaMinutes int) ([]models.Order, error) {
	return r.overdue, nil
}

func (r *stubOrderRepo) UpdateStatusIf(id uint, expectedStatus, status string, updates map[string]interface{}) (bool, error) {
	if r.forceConflict {
		return false, nil
	}
	order, ok := r.orders[id]
	if !ok || order.Status != expectedStatus {
		return false, nil
	}
	order.Status = status
	return true, nil
}

func (r *stubOrderRepo) MarkNotificationSent(id uint) error {
	if order, ok := r.orders[id]; ok {
		order.NotificationSent = true
	}
	return nil
}

func (r *stubOrderRepo) MarkReminderSent(id uint) error {
	if order, ok := r.orders[id]; ok {
		order.ReminderSent = true
	}
	return nil
}

func (r *stubOrderRepo) Stats(businessID uint, from, to *time.Time) (*repository.OrderStats, error) {
	return &repository.OrderStats{CountsByStatus: map[string]int64{}}, nil
}

func (r *stubOrderRepo) WithTx(tx *gorm.DB) *repository.GormOrderRepository { return nil }

type stubHistoryRepo struct {
	entries []models.OrderStatusHistory
	failure error
}

func (r *stubHistoryRepo) Append(entry *models.OrderStatusHistory) error {
	if r.failure != nil {
		return r.failure
	}
	r.entries = append(r.entries, *entry)
	return nil
}

func (r *stubHistoryRepo) ListByOrder(orderID uint) ([]models.OrderStatusHistory, error) {
	var out []models.OrderStatusHistory
	for _, entry := range r.entries {
		if entry.OrderID == orderID {
			out = append(out, entry)
		}
	}
	return out, nil
}

func (r *stubHistoryRepo) WithTx(tx *gorm.DB) *repository.GormStatusHistoryRepository { return nil }

type stubBusinessRepo struct {
	businesses map[uint]*models.Business
}

func (r *stubBusinessRepo) Create(business *models.Business) error { return nil }

func (r *stubBusinessRepo) GetByID(id uint) (*models.Business, error) {
	business, ok := r.businesses[id]
	if !ok {
		return nil, nil
	}
	clone := *business
	return &clone, nil
}

func (r *stubBusinessRepo) GetBySlug(slug string) (*models.Business, error) { return nil, nil }

func (r *stubBusinessRepo) ListAll() ([]models.Business, error) { return nil, nil }

func (r *stubBusinessRepo) Update(business *models.Business) error { return nil }

type stubPublisher struct {
	events []realtime.OrderEvent
}

func (p *stubPublisher) PublishOrderEvent(ctx context.Context, event realtime.OrderEvent) error {
	p.events = append(p.events, event)
	return nil
}

type stubEnqueuer struct {
	payloads []queue.NotificationDispatchPayload
}

func (e *stubEnqueuer) EnqueueNotificationDispatch(payload queue.NotificationDispatchPayload, opts ...asynq.Option) error {
	e.payloads = append(e.payloads, payload)
	return nil
}

func newOrderServiceForTest(t *testing.T) (*OrderService, *stubOrderRepo, *stubHistoryRepo, *stubEnqueuer, *stubPublisher) {
	t.Helper()
	orderRepo := newStubOrderRepo()
	historyRepo := &stubHistoryRepo{}
	businessRepo := &stubBusinessRepo{businesses: map[uint]*models.Business{
		1: {ID: 1, Name: "Lumi Coffee", DefaultLocale: constants.LocaleEnUS, NotifyOnReady: true, NotifyAllChannels: true, EmailEnabled: true},
	}}
	publisher := &stubPublisher{}
	enqueuer := &stubEnqueuer{}
	svc := NewOrderService(orderRepo, historyRepo, businessRepo, enqueuer, publisher, 30)
	return svc, orderRepo, historyRepo, enqueuer, publisher
}

func TestOrderServiceCreateOrder(t *testing.T) {
	svc, _, historyRepo, enqueuer, publisher := newOrderServiceForTest(t)

	order, err := svc.CreateOrder(context.Background(), CreateOrderInput{
		BusinessID:       1,
		CustomerName:     "Alice",
		PreferredChannel: "SMS",
		TaxAmount:        decimal.NewFromFloat(0.50),
		Items: []CreateOrderItemInput{
			{Name: "Latte", Quantity: 2, UnitPrice: decimal.NewFromFloat(4.75)},
		},
	})
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	if order.Status != constants.OrderStatusPending {
		t.Fatalf("expected pending status, got %s", order.Status)
	}
	if !strings.HasPrefix(order.OrderNo, "LP") {
		t.Fatalf("unexpected order_no: %s", order.OrderNo)
	}
	if order.TotalAmount.String() != "10.00" {
		t.Fatalf("unexpected total: %s", order.TotalAmount.String())
	}
	if order.PreferredChannel != "sms" {
		t.Fatalf("expected normalized preferred channel, got %s", order.PreferredChannel)
	}

	// 创建记录的审计条目 old_status 为空
	if len(historyRepo.entries) != 1 {
		t.Fatalf("expected 1 history entry, got %d", len(historyRepo.entries))
	}
	if historyRepo.entries[0].OldStatus != nil {
		t.Fatal("expected nil old_status for creation entry")
	}
	if historyRepo.entries[0].NewStatus != constants.OrderStatusPending {
		t.Fatalf("unexpected new_status: %s", historyRepo.entries[0].NewStatus)
	}

	if len(publisher.events) != 1 || publisher.events[0].Kind != realtime.EventInsert {
		t.Fatalf("expected insert event, got %+v", publisher.events)
	}
	if len(enqueuer.payloads) != 1 || enqueuer.payloads[0].Event != constants.NotificationEventOrderCreated {
		t.Fatalf("expected order_created dispatch, got %+v", enqueuer.payloads)
	}
}

func TestOrderServiceCreateOrderValidation(t *testing.T) {
	svc, _, _, _, _ := newOrderServiceForTest(t)

	if _, err := svc.CreateOrder(context.Background(), CreateOrderInput{BusinessID: 1}); !errors.Is(err, ErrEmptyOrder) {
		t.Fatalf("expected ErrEmptyOrder, got %v", err)
	}
	if _, err := svc.CreateOrder(context.Background(), CreateOrderInput{
		BusinessID: 99,
		Items:      []CreateOrderItemInput{{Name: "Latte", Quantity: 1, UnitPrice: decimal.NewFromInt(4)}},
	}); !errors.Is(err, ErrBusinessNotFound) {
		t.Fatalf("expected ErrBusinessNotFound, got %v", err)
	}
}

func TestOrderServiceUpdateStatusHappyPath(t *testing.T) {
	svc, orderRepo, historyRepo, _, publisher := newOrderServiceForTest(t)
	order := orderRepo.put(models.Order{BusinessID: 1, OrderNo: "LP001", Status: constants.OrderStatusPending})

	steps := []string{
		constants.OrderStatusConfirmed,
		constants.OrderStatusPreparing,
		constants.OrderStatusReady,
		constants.OrderStatusPickedUp,
	}
	for _, target := range steps {
		updated, err := svc.UpdateStatus(context.Background(), 1, order.ID, UpdateStatusInput{Target: target, ChangedBy: "staff-1"})
		if err != nil {
			t.Fatalf("update to %s failed: %v", target, err)
		}
		if updated.Status != target {
			t.Fatalf("expected status %s, got %s", target, updated.Status)
		}
		if !lifecycleTimestampSet(updated, target) {
			t.Fatalf("expected lifecycle timestamp for %s", target)
		}
	}

	if len(historyRepo.entries) != len(steps) {
		t.Fatalf("expected %d history entries, got %d", len(steps), len(historyRepo.entries))
	}
	if *historyRepo.entries[0].OldStatus != constants.OrderStatusPending {
		t.Fatalf("unexpected first old_status: %s", *historyRepo.entries[0].OldStatus)
	}
	if historyRepo.entries[len(steps)-1].NewStatus != constants.OrderStatusPickedUp {
		t.Fatal("expected final entry to be picked_up")
	}
	if len(publisher.events) != len(steps) {
		t.Fatalf("expected %d update events, got %d", len(steps), len(publisher.events))
	}
	for _, event := range publisher.events {
		if event.Kind != realtime.EventUpdate {
			t.Fatalf("expected update event, got %s", event.Kind)
		}
	}
}

func TestOrderServiceUpdateStatusInvalidTransition(t *testing.T) {
	svc, orderRepo, historyRepo, _, _ := newOrderServiceForTest(t)
	order := orderRepo.put(models.Order{BusinessID: 1, OrderNo: "LP002", Status: constants.OrderStatusPending})

	_, err := svc.UpdateStatus(context.Background(), 1, order.ID, UpdateStatusInput{Target: constants.OrderStatusReady, ChangedBy: "staff-1"})
	var transitionErr *InvalidTransitionError
	if !errors.As(err, &transitionErr) {
		t.Fatalf("expected InvalidTransitionError, got %v", err)
	}
	if transitionErr.From != constants.OrderStatusPending || transitionErr.To != constants.OrderStatusReady {
		t.Fatalf("unexpected transition pair: %+v", transitionErr)
	}
	if len(historyRepo.entries) != 0 {
		t.Fatal("rejected transition must not write history")
	}
}

func TestOrderServiceCancelReasonOptional(t *testing.T) {
	svc, orderRepo, historyRepo, _, _ := newOrderServiceForTest(t)
	noReason := orderRepo.put(models.Order{BusinessID: 1, OrderNo: "LP003", Status: constants.OrderStatusConfirmed})

	// 无原因取消同样生效
	updated, err := svc.UpdateStatus(context.Background(), 1, noReason.ID, UpdateStatusInput{Target: constants.OrderStatusCancelled, ChangedBy: "staff-1"})
	if err != nil {
		t.Fatalf("cancel without reason failed: %v", err)
	}
	if updated.Status != constants.OrderStatusCancelled || updated.CancelledAt == nil {
		t.Fatalf("unexpected cancelled order: %+v", updated)
	}
	if updated.CancelReason != "" {
		t.Fatalf("expected empty cancel reason, got %s", updated.CancelReason)
	}

	withReason := orderRepo.put(models.Order{BusinessID: 1, OrderNo: "LP004", Status: constants.OrderStatusConfirmed})
	updated, err = svc.UpdateStatus(context.Background(), 1, withReason.ID, UpdateStatusInput{
		Target:    constants.OrderStatusCancelled,
		ChangedBy: "staff-1",
		Reason:    "customer no-show",
	})
	if err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	if updated.CancelReason != "customer no-show" {
		t.Fatalf("unexpected cancel reason: %s", updated.CancelReason)
	}
	if historyRepo.entries[1].Reason != "customer no-show" {
		t.Fatalf("expected reason in history, got %s", historyRepo.entries[1].Reason)
	}
}

func TestOrderServiceUpdateStatusConflict(t *testing.T) {
	svc, orderRepo, _, _, _ := newOrderServiceForTest(t)
	order := orderRepo.put(models.Order{BusinessID: 1, OrderNo: "LP005", Status: constants.OrderStatusPending})
	orderRepo.forceConflict = true

	if _, err := svc.UpdateStatus(context.Background(), 1, order.ID, UpdateStatusInput{Target: constants.OrderStatusConfirmed, ChangedBy: "staff-1"}); !errors.Is(err, ErrOrderConflict) {
		t.Fatalf("expected ErrOrderConflict, got %v", err)
	}
}

func TestOrderServiceUpdateStatusNotFound(t *testing.T) {
	svc, _, _, _, _ := newOrderServiceForTest(t)
	if _, err := svc.UpdateStatus(context.Background(), 1, 999, UpdateStatusInput{Target: constants.OrderStatusConfirmed, ChangedBy: "staff-1"}); !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
}

func TestOrderServiceUpdateStatusNotificationDispatch(t *testing.T) {
	svc, orderRepo, _, enqueuer, _ := newOrderServiceForTest(t)
	order := orderRepo.put(models.Order{BusinessID: 1, OrderNo: "LP010", Status: constants.OrderStatusPreparing})

	if _, err := svc.UpdateStatus(context.Background(), 1, order.ID, UpdateStatusInput{Target: constants.OrderStatusReady, ChangedBy: "staff-1"}); err != nil {
		t.Fatalf("update to ready failed: %v", err)
	}
	if len(enqueuer.payloads) != 1 {
		t.Fatalf("expected 1 dispatch, got %d", len(enqueuer.payloads))
	}
	if enqueuer.payloads[0].Event != constants.NotificationEventOrderReady || !enqueuer.payloads[0].AllChannels {
		t.Fatalf("expected all-channel order_ready dispatch, got %+v", enqueuer.payloads[0])
	}

	if _, err := svc.UpdateStatus(context.Background(), 1, order.ID, UpdateStatusInput{Target: constants.OrderStatusCancelled, ChangedBy: "staff-1"}); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	if len(enqueuer.payloads) != 2 {
		t.Fatalf("expected 2 dispatches, got %d", len(enqueuer.payloads))
	}
	if enqueuer.payloads[1].Event != constants.NotificationEventOrderCancelled || enqueuer.payloads[1].AllChannels {
		t.Fatalf("expected single-channel order_cancelled dispatch, got %+v", enqueuer.payloads[1])
	}
}

func TestOrderServiceUpdateStatusSkipNotification(t *testing.T) {
	svc, orderRepo, _, enqueuer, _ := newOrderServiceForTest(t)
	order := orderRepo.put(models.Order{BusinessID: 1, OrderNo: "LP011", Status: constants.OrderStatusPreparing})

	updated, err := svc.UpdateStatus(context.Background(), 1, order.ID, UpdateStatusInput{
		Target:           constants.OrderStatusReady,
		ChangedBy:        "staff-1",
		SkipNotification: true,
	})
	if err != nil {
		t.Fatalf("update to ready failed: %v", err)
	}
	if updated.Status != constants.OrderStatusReady {
		t.Fatalf("unexpected status: %s", updated.Status)
	}
	if len(enqueuer.payloads) != 0 {
		t.Fatalf("expected no dispatch when notifications skipped, got %+v", enqueuer.payloads)
	}
}

func TestOrderServiceHistoryFailureDoesNotFailUpdate(t *testing.T) {
	svc, orderRepo, historyRepo, _, _ := newOrderServiceForTest(t)
	order := orderRepo.put(models.Order{BusinessID: 1, OrderNo: "LP012", Status: constants.OrderStatusPending})
	historyRepo.failure = errors.New("history table unavailable")

	updated, err := svc.UpdateStatus(context.Background(), 1, order.ID, UpdateStatusInput{Target: constants.OrderStatusConfirmed, ChangedBy: "staff-1"})
	if err != nil {
		t.Fatalf("status update must survive history failure: %v", err)
	}
	if updated.Status != constants.OrderStatusConfirmed {
		t.Fatalf("unexpected status: %s", updated.Status)
	}
}

func TestOrderServiceBulkUpdateStatusIsolation(t *testing.T) {
	svc, orderRepo, _, _, _ := newOrderServiceForTest(t)
	pending := orderRepo.put(models.Order{BusinessID: 1, OrderNo: "LP013", Status: constants.OrderStatusPending})
	terminal := orderRepo.put(models.Order{BusinessID: 1, OrderNo: "LP014", Status: constants.OrderStatusPickedUp})

	results := svc.BulkUpdateStatus(context.Background(), 1, []uint{pending.ID, terminal.ID, 999}, UpdateStatusInput{
		Target:    constants.OrderStatusConfirmed,
		ChangedBy: "staff-1",
	})
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if results[0].Error != "" || results[0].Status != constants.OrderStatusConfirmed {
		t.Fatalf("expected first order to succeed: %+v", results[0])
	}
	if results[1].Error == "" {
		t.Fatal("expected terminal order to fail")
	}
	if results[2].Error == "" {
		t.Fatal("expected missing order to fail")
	}
}

func TestOrderServiceBulkCancelWithReason(t *testing.T) {
	svc, orderRepo, historyRepo, _, _ := newOrderServiceForTest(t)
	first := orderRepo.put(models.Order{BusinessID: 1, OrderNo: "LP015", Status: constants.OrderStatusConfirmed})
	second := orderRepo.put(models.Order{BusinessID: 1, OrderNo: "LP016", Status: constants.OrderStatusPending})

	results := svc.BulkUpdateStatus(context.Background(), 1, []uint{first.ID, second.ID}, UpdateStatusInput{
		Target:    constants.OrderStatusCancelled,
		ChangedBy: "staff-1",
		Reason:    "store closed early",
	})
	for _, result := range results {
		if result.Error != "" || result.Status != constants.OrderStatusCancelled {
			t.Fatalf("expected bulk cancellation to succeed: %+v", result)
		}
	}
	for _, entry := range historyRepo.entries {
		if entry.Reason != "store closed early" {
			t.Fatalf("expected reason threaded into history, got %s", entry.Reason)
		}
	}
}

func TestOrderServiceCanCancelOrder(t *testing.T) {
	svc, orderRepo, _, _, _ := newOrderServiceForTest(t)
	active := orderRepo.put(models.Order{BusinessID: 1, OrderNo: "LP017", Status: constants.OrderStatusPreparing})
	done := orderRepo.put(models.Order{BusinessID: 1, OrderNo: "LP018", Status: constants.OrderStatusPickedUp})

	can, err := svc.CanCancelOrder(1, active.ID)
	if err != nil || !can {
		t.Fatalf("expected preparing order to be cancellable, got %v %v", can, err)
	}
	can, err = svc.CanCancelOrder(1, done.ID)
	if err != nil || can {
		t.Fatalf("expected picked_up order not cancellable, got %v %v", can, err)
	}
	if _, err := svc.CanCancelOrder(1, 999); !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
}

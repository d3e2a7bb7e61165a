package repository

import (
	"fmt"
	"testing"
	"time"

	"github.com/lumipos/internal/constants"
	"github.com/lumipos/internal/models"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func setupNotificationLogRepositoryTest(t *testing.T) (*GormNotificationLogRepository, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:notification_repo_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(&models.NotificationLog{}); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	return NewNotificationLogRepository(db), db
}

func makeLog(businessID, orderID uint, status string, retryCount int) models.NotificationLog {
	return models.NotificationLog{
		BusinessID: businessID,
		OrderID:    orderID,
		Channel:    constants.NotificationChannelEmail,
		Event:      constants.NotificationEventOrderReady,
		Recipient:  "customer@example.com",
		Status:     status,
		RetryCount: retryCount,
	}
}

func TestNotificationLogRepositoryLifecycle(t *testing.T) {
	repo, _ := setupNotificationLogRepositoryTest(t)

	entry := makeLog(1, 10, constants.NotificationStatusPending, 0)
	if err := repo.Create(&entry); err != nil {
		t.Fatalf("create log failed: %v", err)
	}

	sentAt := time.Now()
	if err := repo.MarkSent(entry.ID, "msg-123", sentAt); err != nil {
		t.Fatalf("mark sent failed: %v", err)
	}
	got, err := repo.GetByID(entry.ID)
	if err != nil || got == nil {
		t.Fatalf("get log failed: %v", err)
	}
	if got.Status != constants.NotificationStatusSent || got.ProviderMessageID != "msg-123" {
		t.Fatalf("unexpected log after mark sent: %+v", got)
	}
	if got.SentAt == nil {
		t.Fatal("expected sent_at to be set")
	}

	if err := repo.MarkDelivered(entry.ID, time.Now()); err != nil {
		t.Fatalf("mark delivered failed: %v", err)
	}
	got, _ = repo.GetByID(entry.ID)
	if got.Status != constants.NotificationStatusDelivered || got.DeliveredAt == nil {
		t.Fatalf("unexpected log after mark delivered: %+v", got)
	}

	missing, err := repo.GetByID(entry.ID + 100)
	if err != nil {
		t.Fatalf("get missing log failed: %v", err)
	}
	if missing != nil {
		t.Fatal("expected nil for missing log")
	}
}

func TestNotificationLogRepositoryMarkFailedIncrementsRetryCount(t *testing.T) {
	repo, _ := setupNotificationLogRepositoryTest(t)

	entry := makeLog(1, 10, constants.NotificationStatusPending, 0)
	if err := repo.Create(&entry); err != nil {
		t.Fatalf("create log failed: %v", err)
	}

	if err := repo.MarkFailed(entry.ID, "smtp timeout"); err != nil {
		t.Fatalf("mark failed failed: %v", err)
	}
	if err := repo.MarkFailed(entry.ID, "smtp timeout again"); err != nil {
		t.Fatalf("mark failed failed: %v", err)
	}

	got, err := repo.GetByID(entry.ID)
	if err != nil || got == nil {
		t.Fatalf("get log failed: %v", err)
	}
	if got.Status != constants.NotificationStatusFailed {
		t.Fatalf("unexpected status: %s", got.Status)
	}
	if got.RetryCount != 2 {
		t.Fatalf("expected retry_count 2, got %d", got.RetryCount)
	}
	if got.Error != "smtp timeout again" {
		t.Fatalf("unexpected error message: %s", got.Error)
	}
}

func TestNotificationLogRepositoryListRetryable(t *testing.T) {
	repo, db := setupNotificationLogRepositoryTest(t)
	now := time.Now()

	retryable := makeLog(1, 10, constants.NotificationStatusFailed, 1)
	exhausted := makeLog(1, 11, constants.NotificationStatusFailed, 3)
	sent := makeLog(1, 12, constants.NotificationStatusSent, 0)
	expired := makeLog(1, 13, constants.NotificationStatusFailed, 0)
	otherBusiness := makeLog(2, 14, constants.NotificationStatusFailed, 0)

	for _, e := range []*models.NotificationLog{&retryable, &exhausted, &sent, &expired, &otherBusiness} {
		if err := repo.Create(e); err != nil {
			t.Fatalf("create log failed: %v", err)
		}
	}
	// 过期记录的创建时间早于回溯窗口
	if err := db.Model(&models.NotificationLog{}).
		Where("id = ?", expired.ID).
		Update("created_at", now.Add(-48*time.Hour)).Error; err != nil {
		t.Fatalf("backdate log failed: %v", err)
	}

	since := now.Add(-24 * time.Hour)
	entries, err := repo.ListRetryable(1, 3, since, 0)
	if err != nil {
		t.Fatalf("list retryable failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 retryable entry, got %d", len(entries))
	}
	if entries[0].ID != retryable.ID {
		t.Fatalf("unexpected entry: %+v", entries[0])
	}

	// business_id 为 0 时跨商家扫描
	entries, err = repo.ListRetryable(0, 3, since, 0)
	if err != nil {
		t.Fatalf("list retryable failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 retryable entries, got %d", len(entries))
	}
}

func TestNotificationLogRepositoryListByOrderDesc(t *testing.T) {
	repo, _ := setupNotificationLogRepositoryTest(t)

	first := makeLog(1, 20, constants.NotificationStatusSent, 0)
	second := makeLog(1, 20, constants.NotificationStatusFailed, 1)
	other := makeLog(1, 21, constants.NotificationStatusSent, 0)
	telegram := makeLog(1, 20, constants.NotificationStatusSent, 0)
	telegram.Channel = constants.NotificationChannelTelegram
	for _, e := range []*models.NotificationLog{&first, &second, &other, &telegram} {
		if err := repo.Create(e); err != nil {
			t.Fatalf("create log failed: %v", err)
		}
	}

	entries, err := repo.ListByOrder(20, "")
	if err != nil {
		t.Fatalf("list by order failed: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	if entries[0].ID != telegram.ID {
		t.Fatal("expected newest entry first")
	}

	// 渠道过滤
	entries, err = repo.ListByOrder(20, constants.NotificationChannelEmail)
	if err != nil {
		t.Fatalf("list by order failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 email entries, got %d", len(entries))
	}
	for _, entry := range entries {
		if entry.Channel != constants.NotificationChannelEmail {
			t.Fatalf("unexpected channel: %s", entry.Channel)
		}
	}
}

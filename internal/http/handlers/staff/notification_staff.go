package staff

import (
	"strconv"
	"strings"

	"github.com/lumipos/internal/http/response"
	"github.com/lumipos/internal/repository"

	"github.com/gin-gonic/gin"
)

// ListNotifications 通知记录列表
func (h *Handler) ListNotifications(c *gin.Context) {
	businessID, ok := parseIDParam(c, "business_id")
	if !ok {
		return
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	var orderID uint
	if raw := strings.TrimSpace(c.Query("order_id")); raw != "" {
		if parsed, err := strconv.ParseUint(raw, 10, 64); err == nil {
			orderID = uint(parsed)
		}
	}

	entries, total, err := h.NotificationService.ListNotifications(repository.NotificationLogListFilter{
		Page:       page,
		PageSize:   pageSize,
		BusinessID: businessID,
		OrderID:    orderID,
		Channel:    strings.TrimSpace(c.Query("channel")),
		Event:      strings.TrimSpace(c.Query("event")),
		Status:     strings.TrimSpace(c.Query("status")),
	})
	if err != nil {
		respondError(c, response.CodeInternal, "notification list failed", err)
		return
	}

	response.SuccessWithPage(c, entries, response.Pagination{
		Page:      page,
		PageSize:  pageSize,
		Total:     total,
		TotalPage: (total + int64(pageSize) - 1) / int64(pageSize),
	})
}

// GetOrderNotifications 订单的通知历史，最新在前，可按渠道过滤
func (h *Handler) GetOrderNotifications(c *gin.Context) {
	if _, ok := parseIDParam(c, "business_id"); !ok {
		return
	}
	orderID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	entries, err := h.NotificationService.GetNotificationHistory(orderID, strings.TrimSpace(c.Query("channel")))
	if err != nil {
		respondError(c, response.CodeInternal, "notification history failed", err)
		return
	}
	response.Success(c, entries)
}

// RetryNotifications 立即重试商家的失败通知
func (h *Handler) RetryNotifications(c *gin.Context) {
	businessID, ok := parseIDParam(c, "business_id")
	if !ok {
		return
	}
	result, err := h.NotificationService.RetryFailedNotifications(c.Request.Context(), businessID)
	if err != nil {
		respondError(c, response.CodeInternal, "notification retry failed", err)
		return
	}
	response.Success(c, result)
}

// MarkNotificationDelivered 标记通知已送达
func (h *Handler) MarkNotificationDelivered(c *gin.Context) {
	if _, ok := parseIDParam(c, "business_id"); !ok {
		return
	}
	notificationID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	entry, err := h.NotificationService.MarkAsDelivered(notificationID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, entry)
}

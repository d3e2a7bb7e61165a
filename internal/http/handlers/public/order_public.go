package public

import (
	"errors"
	"strconv"
	"strings"
	"time"

	handlershared "github.com/lumipos/internal/http/handlers/shared"
	"github.com/lumipos/internal/http/response"
	"github.com/lumipos/internal/service"

	"github.com/gin-gonic/gin"
)

// TrackOrderResponse 顾客端订单追踪返回
type TrackOrderResponse struct {
	OrderNo      string     `json:"order_no"`
	BusinessName string     `json:"business_name"`
	Status       string     `json:"status"`
	PickupAt     *time.Time `json:"pickup_at"`
	ReadyAt      *time.Time `json:"ready_at"`
	CancelReason string     `json:"cancel_reason,omitempty"`
	Total        string     `json:"total"`
}

// TrackOrder 按商家标识与订单编号查询订单状态
func (h *Handler) TrackOrder(c *gin.Context) {
	slug := strings.TrimSpace(c.Param("slug"))
	orderNo := strings.TrimSpace(c.Param("order_no"))
	if slug == "" || orderNo == "" {
		handlershared.RespondError(c, response.CodeBadRequest, "invalid request", nil)
		return
	}

	business, err := h.BusinessRepo.GetBySlug(slug)
	if err != nil {
		handlershared.RespondError(c, response.CodeInternal, "order lookup failed", err)
		return
	}
	if business == nil {
		handlershared.RespondError(c, response.CodeNotFound, "business not found", nil)
		return
	}

	order, err := h.OrderService.GetOrderByOrderNo(business.ID, orderNo)
	if err != nil {
		if errors.Is(err, service.ErrOrderNotFound) {
			handlershared.RespondError(c, response.CodeNotFound, "order not found", nil)
			return
		}
		handlershared.RespondError(c, response.CodeInternal, "order lookup failed", err)
		return
	}

	response.Success(c, TrackOrderResponse{
		OrderNo:      order.OrderNo,
		BusinessName: business.Name,
		Status:       order.Status,
		PickupAt:     order.PickupAt,
		ReadyAt:      order.ReadyAt,
		CancelReason: order.CancelReason,
		Total:        order.TotalAmount.String(),
	})
}

// NotificationDelivered 渠道送达回执
func (h *Handler) NotificationDelivered(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		handlershared.RespondError(c, response.CodeBadRequest, "invalid id", nil)
		return
	}
	entry, svcErr := h.NotificationService.MarkAsDelivered(uint(id))
	if svcErr != nil {
		if errors.Is(svcErr, service.ErrNotificationNotFound) {
			handlershared.RespondError(c, response.CodeNotFound, "notification not found", nil)
			return
		}
		handlershared.RespondError(c, response.CodeInternal, "delivery receipt failed", svcErr)
		return
	}
	response.Success(c, entry)
}

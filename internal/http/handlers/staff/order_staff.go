package staff

import (
	"strconv"
	"strings"
	"time"

	"github.com/lumipos/internal/http/response"
	"github.com/lumipos/internal/repository"
	"github.com/lumipos/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// CreateOrderItemRequest 创建订单项请求
type CreateOrderItemRequest struct {
	Name      string          `json:"name" binding:"required"`
	Quantity  int             `json:"quantity" binding:"required,gt=0"`
	UnitPrice decimal.Decimal `json:"unit_price" binding:"required"`
}

// CreateOrderRequest 创建订单请求
type CreateOrderRequest struct {
	CustomerName     string                   `json:"customer_name"`
	CustomerEmail    string                   `json:"customer_email"`
	CustomerPhone    string                   `json:"customer_phone"`
	CustomerChatID   string                   `json:"customer_chat_id"`
	PreferredChannel string                   `json:"preferred_channel"`
	Locale           string                   `json:"locale"`
	PickupAt         *time.Time               `json:"pickup_at"`
	Note             string                   `json:"note"`
	TaxAmount        decimal.Decimal          `json:"tax_amount"`
	TipAmount        decimal.Decimal          `json:"tip_amount"`
	Items            []CreateOrderItemRequest `json:"items" binding:"required,min=1,dive"`
}

// UpdateStatusRequest 状态更新请求
type UpdateStatusRequest struct {
	Status           string `json:"status" binding:"required"`
	ChangedBy        string `json:"changed_by"`
	Reason           string `json:"reason"`
	SkipNotification bool   `json:"skip_notification"`
}

// BulkUpdateStatusRequest 批量状态更新请求
type BulkUpdateStatusRequest struct {
	OrderIDs         []uint `json:"order_ids" binding:"required,min=1"`
	Status           string `json:"status" binding:"required"`
	ChangedBy        string `json:"changed_by"`
	Reason           string `json:"reason"`
	SkipNotification bool   `json:"skip_notification"`
}

// CancelOrderRequest 取消订单请求，原因可选
type CancelOrderRequest struct {
	ChangedBy string `json:"changed_by"`
	Reason    string `json:"reason"`
}

// ListOrders 订单列表
func (h *Handler) ListOrders(c *gin.Context) {
	businessID, ok := parseIDParam(c, "business_id")
	if !ok {
		return
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	createdFrom, err := parseTimeNullable(strings.TrimSpace(c.Query("created_from")))
	if err != nil {
		respondError(c, response.CodeBadRequest, "invalid created_from", err)
		return
	}
	createdTo, err := parseTimeNullable(strings.TrimSpace(c.Query("created_to")))
	if err != nil {
		respondError(c, response.CodeBadRequest, "invalid created_to", err)
		return
	}

	orders, total, err := h.OrderService.ListOrders(repository.OrderListFilter{
		Page:        page,
		PageSize:    pageSize,
		BusinessID:  businessID,
		Status:      strings.TrimSpace(c.Query("status")),
		OrderNo:     strings.TrimSpace(c.Query("order_no")),
		Search:      strings.TrimSpace(c.Query("search")),
		CreatedFrom: createdFrom,
		CreatedTo:   createdTo,
	})
	if err != nil {
		respondError(c, response.CodeInternal, "order list failed", err)
		return
	}

	response.SuccessWithPage(c, orders, response.Pagination{
		Page:      page,
		PageSize:  pageSize,
		Total:     total,
		TotalPage: (total + int64(pageSize) - 1) / int64(pageSize),
	})
}

// GetOrder 订单详情，附带可达状态与审计记录
func (h *Handler) GetOrder(c *gin.Context) {
	businessID, ok := parseIDParam(c, "business_id")
	if !ok {
		return
	}
	orderID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	order, err := h.OrderService.GetOrder(businessID, orderID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	history, err := h.OrderService.GetStatusHistory(businessID, orderID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	response.Success(c, gin.H{
		"order":               order,
		"allowed_transitions": service.AllowedTransitions(order.Status),
		"can_cancel":          service.CanCancelStatus(order.Status),
		"status_history":      history,
	})
}

// CreateOrder 创建订单
func (h *Handler) CreateOrder(c *gin.Context) {
	businessID, ok := parseIDParam(c, "business_id")
	if !ok {
		return
	}
	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request body", err)
		return
	}

	items := make([]service.CreateOrderItemInput, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, service.CreateOrderItemInput{
			Name:      item.Name,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		})
	}

	order, err := h.OrderService.CreateOrder(c.Request.Context(), service.CreateOrderInput{
		BusinessID:       businessID,
		CustomerName:     req.CustomerName,
		CustomerEmail:    req.CustomerEmail,
		CustomerPhone:    req.CustomerPhone,
		CustomerChatID:   req.CustomerChatID,
		PreferredChannel: req.PreferredChannel,
		Locale:           req.Locale,
		PickupAt:         req.PickupAt,
		Note:             req.Note,
		TaxAmount:        req.TaxAmount,
		TipAmount:        req.TipAmount,
		Items:            items,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	requestLog(c).Infow("order_created",
		"business_id", businessID,
		"order_id", order.ID,
		"order_no", order.OrderNo,
	)
	response.Success(c, order)
}

// UpdateOrderStatus 推进订单状态
func (h *Handler) UpdateOrderStatus(c *gin.Context) {
	businessID, ok := parseIDParam(c, "business_id")
	if !ok {
		return
	}
	orderID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request body", err)
		return
	}

	order, err := h.OrderService.UpdateStatus(c.Request.Context(), businessID, orderID, service.UpdateStatusInput{
		Target:           req.Status,
		ChangedBy:        req.ChangedBy,
		Reason:           req.Reason,
		SkipNotification: req.SkipNotification,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	requestLog(c).Infow("order_status_updated",
		"business_id", businessID,
		"order_id", orderID,
		"status", order.Status,
	)
	response.Success(c, order)
}

// BulkUpdateOrderStatus 批量推进订单状态
func (h *Handler) BulkUpdateOrderStatus(c *gin.Context) {
	businessID, ok := parseIDParam(c, "business_id")
	if !ok {
		return
	}
	var req BulkUpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request body", err)
		return
	}

	results := h.OrderService.BulkUpdateStatus(c.Request.Context(), businessID, req.OrderIDs, service.UpdateStatusInput{
		Target:           req.Status,
		ChangedBy:        req.ChangedBy,
		Reason:           req.Reason,
		SkipNotification: req.SkipNotification,
	})
	response.Success(c, results)
}

// CancelOrder 取消订单
func (h *Handler) CancelOrder(c *gin.Context) {
	businessID, ok := parseIDParam(c, "business_id")
	if !ok {
		return
	}
	orderID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req CancelOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request body", err)
		return
	}

	order, err := h.OrderService.UpdateStatus(c.Request.Context(), businessID, orderID, service.UpdateStatusInput{
		Target:    "cancelled",
		ChangedBy: req.ChangedBy,
		Reason:    req.Reason,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, order)
}

// GetOrderStats 订单统计
func (h *Handler) GetOrderStats(c *gin.Context) {
	businessID, ok := parseIDParam(c, "business_id")
	if !ok {
		return
	}
	from, err := parseTimeNullable(strings.TrimSpace(c.Query("from")))
	if err != nil {
		respondError(c, response.CodeBadRequest, "invalid from", err)
		return
	}
	to, err := parseTimeNullable(strings.TrimSpace(c.Query("to")))
	if err != nil {
		respondError(c, response.CodeBadRequest, "invalid to", err)
		return
	}

	stats, err := h.OrderService.GetOrderStats(businessID, from, to)
	if err != nil {
		respondError(c, response.CodeInternal, "order stats failed", err)
		return
	}
	response.Success(c, stats)
}

// GetOverdueOrders 超时未取订单
func (h *Handler) GetOverdueOrders(c *gin.Context) {
	businessID, ok := parseIDParam(c, "business_id")
	if !ok {
		return
	}
	orders, err := h.OrderService.GetOverdueOrders(businessID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, orders)
}

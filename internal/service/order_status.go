package service

import (
	"strings"

	"github.com/lumipos/internal/constants"
)

// nextStatuses 订单状态机。picked_up 与 cancelled 为终态；
// 创建订单是 null -> pending 的隐式流转，不在表内。
var nextStatuses = map[string][]string{
	constants.OrderStatusPending:   {constants.OrderStatusConfirmed, constants.OrderStatusCancelled},
	constants.OrderStatusConfirmed: {constants.OrderStatusPreparing, constants.OrderStatusCancelled},
	constants.OrderStatusPreparing: {constants.OrderStatusReady, constants.OrderStatusCancelled},
	constants.OrderStatusReady:     {constants.OrderStatusPickedUp, constants.OrderStatusCancelled},
	constants.OrderStatusPickedUp:  {},
	constants.OrderStatusCancelled: {},
}

// statusTimestampColumns 状态对应的生命周期时间戳字段
var statusTimestampColumns = map[string]string{
	constants.OrderStatusConfirmed: "confirmed_at",
	constants.OrderStatusPreparing: "preparing_at",
	constants.OrderStatusReady:     "ready_at",
	constants.OrderStatusPickedUp:  "picked_up_at",
	constants.OrderStatusCancelled: "cancelled_at",
}

// NormalizeStatus 归一化状态值
func NormalizeStatus(status string) string {
	return strings.ToLower(strings.TrimSpace(status))
}

// KnownStatus 判断是否为已知状态
func KnownStatus(status string) bool {
	_, ok := nextStatuses[NormalizeStatus(status)]
	return ok
}

// IsTerminalStatus 判断是否为终态
func IsTerminalStatus(status string) bool {
	nexts, ok := nextStatuses[NormalizeStatus(status)]
	return ok && len(nexts) == 0
}

// ValidateTransition 校验状态流转，非法时返回携带流转对的错误。
// from 为空表示订单尚未创建，此时只允许进入 pending。
func ValidateTransition(from, to string) error {
	from = NormalizeStatus(from)
	to = NormalizeStatus(to)
	if from == "" {
		if to == constants.OrderStatusPending {
			return nil
		}
		return &InvalidTransitionError{From: from, To: to}
	}
	for _, next := range nextStatuses[from] {
		if next == to {
			return nil
		}
	}
	return &InvalidTransitionError{From: from, To: to}
}

// AllowedTransitions 返回某状态的可达状态。
// 终态与未知状态都返回空切片，顺序稳定。
func AllowedTransitions(from string) []string {
	nexts := nextStatuses[NormalizeStatus(from)]
	out := make([]string, len(nexts))
	copy(out, nexts)
	return out
}

// CanCancelStatus 判断当前状态能否取消（终态不可取消）
func CanCancelStatus(status string) bool {
	return KnownStatus(status) && !IsTerminalStatus(status)
}

// statusTimestampColumn 返回状态的生命周期时间戳字段名，无对应字段返回空串
func statusTimestampColumn(status string) string {
	return statusTimestampColumns[NormalizeStatus(status)]
}

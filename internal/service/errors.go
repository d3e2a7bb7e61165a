package service

import (
	"errors"
	"fmt"
)

// 服务层哨兵错误
var (
	ErrOrderNotFound          = errors.New("order not found")
	ErrBusinessNotFound       = errors.New("business not found")
	ErrNotificationNotFound   = errors.New("notification not found")
	ErrOrderConflict          = errors.New("order status changed concurrently")
	ErrInvalidTransition      = errors.New("invalid status transition")
	ErrEmptyOrder             = errors.New("order has no items")
	ErrUnknownChannel         = errors.New("unknown notification channel")
	ErrNotificationSendFailed = errors.New("notification send failed")
)

// InvalidTransitionError 非法状态流转错误，携带具体的流转对
type InvalidTransitionError struct {
	From string
	To   string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid status transition: %s -> %s", e.From, e.To)
}

func (e *InvalidTransitionError) Unwrap() error {
	return ErrInvalidTransition
}

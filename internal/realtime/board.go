package realtime

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/lumipos/internal/logger"
	"github.com/lumipos/internal/models"
)

// 看板连接状态
const (
	StateDisconnected = "disconnected"
	StateConnecting   = "connecting"
	StateConnected    = "connected"
	StateError        = "error"
)

var (
	ErrFeedUnavailable = errors.New("realtime feed unavailable")
	ErrBoardClosed     = errors.New("realtime board closed")
)

// OrderLister 看板快照数据源
type OrderLister interface {
	ListBoard(businessID uint) ([]models.Order, error)
}

// Board 商家实时订单看板。
// 启动时先批量拉取快照，再订阅增量事件；事件合并是幂等的：
// 重复 insert 视为 upsert，未知订单的 update 按 insert 处理，
// 不存在订单的 delete 是空操作。
type Board struct {
	businessID uint
	lister     OrderLister
	feed       Feed

	mu       sync.Mutex
	state    string
	orders   map[uint]models.Order
	closed   bool
	cancel   context.CancelFunc
	unsub    func()
	onChange func(OrderEvent)
}

// NewBoard 创建看板
func NewBoard(businessID uint, lister OrderLister, feed Feed) *Board {
	return &Board{
		businessID: businessID,
		lister:     lister,
		feed:       feed,
		state:      StateDisconnected,
		orders:     map[uint]models.Order{},
	}
}

// OnChange 注册事件回调（需在 Start 前调用）。
// 回调在看板内部 goroutine 上执行，Close 之后不再触发。
func (b *Board) OnChange(fn func(OrderEvent)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onChange = fn
}

// Start 建立连接：拉取快照并订阅变更事件
func (b *Board) Start(ctx context.Context) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return ErrBoardClosed
	}
	if b.state == StateConnecting || b.state == StateConnected {
		b.mu.Unlock()
		return nil
	}
	b.state = StateConnecting
	b.mu.Unlock()

	orders, err := b.lister.ListBoard(b.businessID)
	if err != nil {
		b.setState(StateError)
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	events, unsub, err := b.feed.Subscribe(runCtx, b.businessID)
	if err != nil {
		cancel()
		b.setState(StateError)
		return err
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		cancel()
		unsub()
		return ErrBoardClosed
	}
	b.orders = map[uint]models.Order{}
	for _, order := range orders {
		b.orders[order.ID] = order
	}
	b.cancel = cancel
	b.unsub = unsub
	b.state = StateConnected
	b.mu.Unlock()

	go b.consume(runCtx, events)
	return nil
}

func (b *Board) consume(ctx context.Context, events <-chan OrderEvent) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				// 事件源中断；Close 引发的关闭不算故障
				b.mu.Lock()
				if !b.closed {
					b.state = StateError
				}
				b.mu.Unlock()
				return
			}
			b.Apply(event)
		}
	}
}

// Apply 合并单个变更事件。Close 之后不再修改快照。
func (b *Board) Apply(event OrderEvent) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	switch event.Kind {
	case EventInsert, EventUpdate:
		if event.Order.ID != 0 {
			b.orders[event.Order.ID] = event.Order
		}
	case EventDelete:
		delete(b.orders, event.Order.ID)
	default:
		logger.Debugw("realtime_board_skip_unknown_event",
			"business_id", b.businessID,
			"kind", event.Kind,
		)
	}
	onChange := b.onChange
	b.mu.Unlock()

	if onChange != nil {
		onChange(event)
	}
}

// Refetch 重新拉取快照，不中断已有订阅
func (b *Board) Refetch(ctx context.Context) error {
	_ = ctx
	orders, err := b.lister.ListBoard(b.businessID)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrBoardClosed
	}
	b.orders = map[uint]models.Order{}
	for _, order := range orders {
		b.orders[order.ID] = order
	}
	return nil
}

// Snapshot 返回当前快照，新单在前
func (b *Board) Snapshot() []models.Order {
	b.mu.Lock()
	defer b.mu.Unlock()
	orders := make([]models.Order, 0, len(b.orders))
	for _, order := range b.orders {
		orders = append(orders, order)
	}
	sort.Slice(orders, func(i, j int) bool {
		return orders[i].ID > orders[j].ID
	})
	return orders
}

// State 返回连接状态
func (b *Board) State() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Close 幂等关闭看板。返回后不再发生任何快照或状态变更。
func (b *Board) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	b.state = StateDisconnected
	cancel := b.cancel
	unsub := b.unsub
	b.cancel = nil
	b.unsub = nil
	b.onChange = nil
	b.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if unsub != nil {
		unsub()
	}
}

func (b *Board) setState(state string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.state = state
}

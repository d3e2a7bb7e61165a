package staff

import (
	"errors"
	"io"
	"time"

	"github.com/lumipos/internal/http/response"
	"github.com/lumipos/internal/realtime"

	"github.com/gin-gonic/gin"
)

// StreamBoard 以 SSE 推送商家实时订单看板。
// 连接建立后先推送全量快照，之后持续推送增量变更事件。
func (h *Handler) StreamBoard(c *gin.Context) {
	businessID, ok := parseIDParam(c, "business_id")
	if !ok {
		return
	}

	board := realtime.NewBoard(businessID, h.OrderRepo, h.Feed)
	events := make(chan realtime.OrderEvent, 64)
	board.OnChange(func(event realtime.OrderEvent) {
		select {
		case events <- event:
		default:
			// 客户端消费不过来时丢弃增量，靠下一次快照补齐
		}
	})

	if err := board.Start(c.Request.Context()); err != nil {
		if errors.Is(err, realtime.ErrFeedUnavailable) {
			respondError(c, response.CodeInternal, "realtime feed unavailable", nil)
			return
		}
		respondError(c, response.CodeInternal, "board start failed", err)
		return
	}
	defer board.Close()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	c.SSEvent("snapshot", board.Snapshot())
	c.Writer.Flush()

	heartbeat := time.NewTicker(15 * time.Second)
	defer heartbeat.Stop()

	clientGone := c.Request.Context().Done()
	c.Stream(func(w io.Writer) bool {
		select {
		case <-clientGone:
			return false
		case event := <-events:
			c.SSEvent(string(event.Kind), event.Order)
			return true
		case <-heartbeat.C:
			c.SSEvent("ping", time.Now().Unix())
			return true
		}
	})
}

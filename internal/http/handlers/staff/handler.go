package staff

import "github.com/lumipos/internal/provider"

// Handler 店员端接口处理器入口
// 说明：该处理器仅用于店员端 API。
type Handler struct {
	*provider.Container
}

// New 创建店员端处理器
func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
}

package public

import "github.com/lumipos/internal/provider"

// Handler 顾客端接口处理器入口
type Handler struct {
	*provider.Container
}

// New 创建顾客端处理器
func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
}

package router

import (
	"github.com/lumipos/internal/config"
	publichandlers "github.com/lumipos/internal/http/handlers/public"
	staffhandlers "github.com/lumipos/internal/http/handlers/staff"
	"github.com/lumipos/internal/logger"
	"github.com/lumipos/internal/provider"

	"github.com/gin-gonic/gin"
)

// SetupRouter 初始化路由
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	log := logger.L
	if log == nil {
		log = logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	}
	r := gin.New()

	// 初始化 Handler（按店员端/顾客端分组）
	staffHandler := staffhandlers.New(c)
	publicHandler := publichandlers.New(c)

	// 中间件
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(log))
	r.Use(CORSMiddleware(cfg.CORS))

	r.GET("/health", func(ctx *gin.Context) {
		ctx.JSON(200, gin.H{"status": "ok"})
	})

	// API 路由组
	apiV1 := r.Group("/api/v1")
	{
		// 顾客端接口
		public := apiV1.Group("/public")
		{
			public.GET("/:slug/orders/:order_no", publicHandler.TrackOrder)
			public.POST("/notifications/:id/delivered", publicHandler.NotificationDelivered)
		}

		// 店员端接口
		staff := apiV1.Group("/staff/businesses/:business_id")
		{
			staff.GET("/orders", staffHandler.ListOrders)
			staff.POST("/orders", staffHandler.CreateOrder)
			staff.GET("/orders/stats", staffHandler.GetOrderStats)
			staff.GET("/orders/overdue", staffHandler.GetOverdueOrders)
			staff.GET("/orders/board", staffHandler.StreamBoard)
			staff.GET("/orders/:id", staffHandler.GetOrder)
			staff.PATCH("/orders/:id/status", staffHandler.UpdateOrderStatus)
			staff.POST("/orders/:id/cancel", staffHandler.CancelOrder)
			staff.POST("/orders/bulk-status", staffHandler.BulkUpdateOrderStatus)
			staff.GET("/orders/:id/notifications", staffHandler.GetOrderNotifications)

			staff.GET("/notifications", staffHandler.ListNotifications)
			staff.POST("/notifications/retry", staffHandler.RetryNotifications)
			staff.POST("/notifications/:id/delivered", staffHandler.MarkNotificationDelivered)
		}
	}

	return r
}

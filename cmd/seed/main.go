package main

import (
	"time"

	"github.com/lumipos/internal/config"
	"github.com/lumipos/internal/constants"
	"github.com/lumipos/internal/logger"
	"github.com/lumipos/internal/models"

	"github.com/shopspring/decimal"
)

func main() {
	// 连接数据库
	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()
	if err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	}); err != nil {
		stdLog.Fatalf("Failed to connect database: %v", err)
	}

	// 自动迁移
	if err := models.AutoMigrate(); err != nil {
		stdLog.Fatalf("Failed to migrate database: %v", err)
	}

	// 添加商家
	businesses := []models.Business{
		{
			Name:              "Lumi Coffee",
			Slug:              "lumi-coffee",
			Timezone:          "America/Los_Angeles",
			DefaultLocale:     constants.LocaleEnUS,
			NotifyOnReady:     true,
			NotifyAllChannels: true,
			EmailEnabled:      true,
			SMSEnabled:        true,
			PickupSLAMinutes:  20,
		},
		{
			Name:             "满堂红小吃",
			Slug:             "mantanghong",
			Timezone:         "Asia/Shanghai",
			DefaultLocale:    constants.LocaleZhCN,
			NotifyOnReady:    true,
			SMSEnabled:       true,
			TelegramEnabled:  true,
			TelegramChatID:   "-1001234567890",
			PickupSLAMinutes: 30,
		},
	}
	for i := range businesses {
		var existing models.Business
		if err := models.DB.Where("slug = ?", businesses[i].Slug).First(&existing).Error; err == nil {
			businesses[i] = existing
			continue
		}
		if err := models.DB.Create(&businesses[i]).Error; err != nil {
			stdLog.Fatalf("Failed to seed business %s: %v", businesses[i].Slug, err)
		}
	}

	// 添加示例订单
	now := time.Now()
	pickup := now.Add(25 * time.Minute)
	pendingStatus := constants.OrderStatusPending

	orders := []models.Order{
		{
			BusinessID:       businesses[0].ID,
			OrderNo:          "LP" + now.Format("20060102150405") + "000001",
			CustomerName:     "Alice",
			CustomerEmail:    "alice@example.com",
			PreferredChannel: constants.NotificationChannelEmail,
			Locale:           constants.LocaleEnUS,
			Status:           constants.OrderStatusPending,
			Subtotal:         models.NewMoneyFromDecimal(decimal.NewFromFloat(9.50)),
			TotalAmount:      models.NewMoneyFromDecimal(decimal.NewFromFloat(9.50)),
			PickupAt:         &pickup,
			Items: []models.OrderItem{
				{
					Name:       "Latte",
					Quantity:   2,
					UnitPrice:  models.NewMoneyFromDecimal(decimal.NewFromFloat(4.75)),
					TotalPrice: models.NewMoneyFromDecimal(decimal.NewFromFloat(9.50)),
				},
			},
		},
		{
			BusinessID:    businesses[1].ID,
			OrderNo:       "LP" + now.Format("20060102150405") + "000002",
			CustomerName:  "王小明",
			CustomerPhone: "+8613800138000",
			Locale:        constants.LocaleZhCN,
			Status:        constants.OrderStatusPending,
			Subtotal:      models.NewMoneyFromDecimal(decimal.NewFromInt(36)),
			TotalAmount:   models.NewMoneyFromDecimal(decimal.NewFromInt(36)),
			Items: []models.OrderItem{
				{
					Name:       "牛肉面",
					Quantity:   2,
					UnitPrice:  models.NewMoneyFromDecimal(decimal.NewFromInt(18)),
					TotalPrice: models.NewMoneyFromDecimal(decimal.NewFromInt(36)),
				},
			},
		},
	}
	for i := range orders {
		var count int64
		models.DB.Model(&models.Order{}).Where("order_no = ?", orders[i].OrderNo).Count(&count)
		if count > 0 {
			continue
		}
		if err := models.DB.Create(&orders[i]).Error; err != nil {
			stdLog.Fatalf("Failed to seed order %s: %v", orders[i].OrderNo, err)
		}
		history := models.OrderStatusHistory{
			OrderID:   orders[i].ID,
			OldStatus: nil,
			NewStatus: pendingStatus,
			ChangedBy: "seed",
		}
		if err := models.DB.Create(&history).Error; err != nil {
			stdLog.Fatalf("Failed to seed order history: %v", err)
		}
	}

	stdLog.Printf("Seed completed: %d businesses, %d orders", len(businesses), len(orders))
}

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/alenapavlenkko/expireassist/internal/app"
	"github.com/alenapavlenkko/expireassist/internal/bot"
	"github.com/alenapavlenkko/expireassist/internal/config"
	"github.com/alenapavlenkko/expireassist/pkg/utils"
)

func main() {
	// -----------------------
	// ENV
	cfg, envFound, err := config.Load()
	utils.Log = utils.NewLogger(cfg.AppEnv)
	defer utils.Log.Sync()

	if !envFound {
		utils.Log.Info("No .env file found")
	}
	if err != nil {
		utils.Log.Error("Invalid configuration", zap.Error(err))
		os.Exit(1)
	}
	if cfg.TelegramToken == "" {
		utils.Log.Error("TELEGRAM_TOKEN not set")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// -----------------------
	// DATABASE + SERVICES
	a, err := app.New(ctx, cfg, nil)
	if err != nil {
		utils.Log.Error("Failed to start", zap.Error(err))
		os.Exit(1)
	}
	defer a.Close()

	// -----------------------
	// BOT
	botApp, err := bot.NewBotApp(cfg.TelegramToken, a.Catalog, a.Inventory, a.Meals, bot.Options{
		AllowedChatIDs:   cfg.AllowedChatIDs,
		NotifyChatIDs:    cfg.NotifyChatIDs,
		ReminderInterval: cfg.ReminderInterval,
		ReminderDays:     cfg.ReminderDays,
	})
	if err != nil {
		utils.Log.Error("Failed to create bot", zap.Error(err))
		os.Exit(1)
	}

	utils.Log.Info("Telegram bot starting...",
		zap.Int("allowed_chats", len(cfg.AllowedChatIDs)),
		zap.Int("notify_chats", len(cfg.NotifyChatIDs)),
	)
	botApp.Run(ctx)
}

package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/alenapavlenkko/expireassist/internal/matcher"
	"github.com/alenapavlenkko/expireassist/internal/service"
	"github.com/alenapavlenkko/expireassist/pkg/utils"
)

const (
	btnPantry   = "🥫 Pantry"
	btnExpiring = "⏰ Expiring"
	btnMeals    = "🍳 Meals"
	btnCatalog  = "📦 Catalog"

	buyPrefix = "buy_"

	defaultExpiringDays = 3
)

// sender is the part of *tgbotapi.BotAPI the bot uses.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Options - who may change the pantry and who gets reminders
type Options struct {
	AllowedChatIDs   []int64 // empty means everyone
	NotifyChatIDs    []int64
	ReminderInterval time.Duration
	ReminderDays     int
}

// BotApp is the Telegram front end over the pantry services.
type BotApp struct {
	API sender

	catalog   *service.CatalogService
	inventory *service.InventoryService
	meals     *service.MealService

	opts      Options
	fsm       *AddFSM
	callbacks map[string]func(context.Context, *tgbotapi.CallbackQuery)
	log       *utils.Logger
}

func NewBotApp(
	token string,
	catalog *service.CatalogService,
	inventory *service.InventoryService,
	meals *service.MealService,
	opts Options,
) (*BotApp, error) {
	botAPI, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("connect to telegram: %w", err)
	}
	return newBotApp(botAPI, catalog, inventory, meals, opts), nil
}

func newBotApp(api sender, catalog *service.CatalogService, inventory *service.InventoryService, meals *service.MealService, opts Options) *BotApp {
	if opts.ReminderDays <= 0 {
		opts.ReminderDays = defaultExpiringDays
	}
	b := &BotApp{
		API:       api,
		catalog:   catalog,
		inventory: inventory,
		meals:     meals,
		opts:      opts,
		fsm:       NewAddFSM(),
		log:       utils.Log.With(zap.String("component", "bot")),
	}
	b.registerCallbacks()
	return b
}

// Run polls for updates until ctx is cancelled. The reminder loop runs
// alongside when configured.
func (b *BotApp) Run(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.API.GetUpdatesChan(u)
	b.log.Info("Bot started")

	go b.runReminders(ctx)

	for {
		select {
		case <-ctx.Done():
			b.API.StopReceivingUpdates()
			b.log.Info("Bot stopped")
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			b.handleUpdate(ctx, update)
		}
	}
}

func (b *BotApp) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	if update.CallbackQuery != nil {
		b.handleCallback(ctx, update.CallbackQuery)
		return
	}
	if update.Message == nil {
		return
	}
	if update.Message.IsCommand() {
		b.handleCommand(ctx, update.Message)
		return
	}
	b.handleRegularMessage(ctx, update.Message)
}

// isAllowed - may this chat change the pantry
func (b *BotApp) isAllowed(chatID int64) bool {
	if len(b.opts.AllowedChatIDs) == 0 {
		return true
	}
	for _, id := range b.opts.AllowedChatIDs {
		if id == chatID {
			return true
		}
	}
	return false
}

// ==================== commands ====================

func (b *BotApp) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID

	switch msg.Command() {
	case "start":
		b.showMainMenu(chatID)
	case "help":
		b.sendText(chatID, helpText)
	case "pantry":
		b.showPantry(ctx, chatID)
	case "expiring":
		days, err := parseDays(msg.CommandArguments())
		if err != nil {
			b.sendText(chatID, "❌ Usage: /expiring [days], for example /expiring 5")
			return
		}
		b.showExpiring(ctx, chatID, days)
	case "meals":
		b.showMeals(ctx, chatID)
	case "catalog":
		b.showCatalog(ctx, chatID)
	case "add":
		if !b.isAllowed(chatID) {
			b.sendText(chatID, "⛔ This chat may not change the pantry")
			return
		}
		b.fsm.SetState(chatID, &AddState{Step: stepName})
		b.sendText(chatID, "What did you buy? Send the item name (or /cancel).")
	case "cancel":
		b.fsm.DeleteState(chatID)
		b.sendText(chatID, "Cancelled.")
	default:
		b.sendText(chatID, "Unknown command. Try /help")
	}
}

const helpText = `ExpireAssist keeps track of what is in your kitchen.

/pantry - everything you have, soonest expiry first
/expiring [days] - what to use up soon (default 3 days)
/meals - meal ideas from what you have
/catalog - known items
/add - add an item to the pantry
/cancel - stop adding

Under each meal idea a button buys the missing ingredients.`

func (b *BotApp) handleRegularMessage(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	text := strings.TrimSpace(msg.Text)

	if state, ok := b.fsm.GetState(chatID); ok {
		b.handleAddFlow(ctx, chatID, state, text)
		return
	}

	switch text {
	case btnPantry:
		b.showPantry(ctx, chatID)
	case btnExpiring:
		b.showExpiring(ctx, chatID, defaultExpiringDays)
	case btnMeals:
		b.showMeals(ctx, chatID)
	case btnCatalog:
		b.showCatalog(ctx, chatID)
	default:
		b.sendText(chatID, "Use the menu below or /help")
	}
}

// handleAddFlow walks the /add dialog: name, expiry date, quantity.
func (b *BotApp) handleAddFlow(ctx context.Context, chatID int64, state *AddState, text string) {
	switch state.Step {
	case stepName:
		if text == "" {
			b.sendText(chatID, "❌ The name cannot be empty")
			return
		}
		state.Name = text
		state.Step = stepExpiry
		b.sendText(chatID, "Expiry date as YYYY-MM-DD, or - to use the usual shelf life:")
	case stepExpiry:
		if text != "-" {
			if _, err := time.Parse("2006-01-02", text); err != nil {
				b.sendText(chatID, "❌ Please send a date like 2024-05-31, or -")
				return
			}
			date := text
			state.ExpiryDate = &date
		}
		state.Step = stepQuantity
		b.sendText(chatID, "How many?")
	case stepQuantity:
		qty, err := strconv.Atoi(text)
		if err != nil || qty < 0 {
			b.sendText(chatID, "❌ Please send a whole number")
			return
		}
		b.fsm.DeleteState(chatID)

		entry, err := b.inventory.Create(ctx, service.CreateInventoryDTO{
			Name:       state.Name,
			ExpiryDate: state.ExpiryDate,
			Quantity:   &qty,
		})
		if err != nil {
			b.replyError(chatID, "add item", err)
			return
		}
		b.sendText(chatID, "✅ Added\n"+entryLine(*entry))
	default:
		b.fsm.DeleteState(chatID)
	}
}

// ==================== views ====================

func (b *BotApp) showMainMenu(chatID int64) {
	keyboard := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnPantry),
			tgbotapi.NewKeyboardButton(btnExpiring),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnMeals),
			tgbotapi.NewKeyboardButton(btnCatalog),
		),
	)
	keyboard.ResizeKeyboard = true

	msg := tgbotapi.NewMessage(chatID, "👋 Welcome to ExpireAssist!\n\n"+helpText)
	msg.ReplyMarkup = keyboard
	b.send(msg)
}

func (b *BotApp) showPantry(ctx context.Context, chatID int64) {
	entries, err := b.inventory.List(ctx)
	if err != nil {
		b.replyError(chatID, "list pantry", err)
		return
	}
	b.sendText(chatID, formatPantry(entries))
}

func (b *BotApp) showExpiring(ctx context.Context, chatID int64, days int) {
	entries, err := b.inventory.Expiring(ctx, days)
	if err != nil {
		b.replyError(chatID, "list expiring", err)
		return
	}
	b.sendText(chatID, formatExpiring(entries, days))
}

func (b *BotApp) showMeals(ctx context.Context, chatID int64) {
	res, err := b.meals.Suggest(ctx, service.MealQuery{})
	if err != nil {
		b.replyError(chatID, "suggest meals", err)
		return
	}
	if res.Mode == service.ModeBrowse {
		b.sendText(chatID, formatBrowse(res.Browse))
		return
	}

	rows := buyButtons(res.Ranked)
	if len(rows) == 0 {
		b.sendText(chatID, formatRanked(res.Ranked))
		return
	}
	b.sendTextWithKeyboard(chatID, formatRanked(res.Ranked), rows)
}

func buyButtons(results []matcher.Result) [][]tgbotapi.InlineKeyboardButton {
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, r := range results {
		if r.MissingCount == 0 {
			continue
		}
		label := fmt.Sprintf("🛒 Buy %d for %s", r.MissingCount, r.Name)
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, buyPrefix+strconv.FormatUint(uint64(r.MealID), 10)),
		))
	}
	return rows
}

func (b *BotApp) showCatalog(ctx context.Context, chatID int64) {
	items, err := b.catalog.ListItems(ctx)
	if err != nil {
		b.replyError(chatID, "list catalog", err)
		return
	}
	names := make([]string, 0, len(items))
	for _, it := range items {
		names = append(names, it.Name)
	}
	b.sendText(chatID, formatCatalog(names))
}

// ==================== callbacks ====================

func (b *BotApp) registerCallbacks() {
	b.callbacks = map[string]func(context.Context, *tgbotapi.CallbackQuery){
		"pantry": func(ctx context.Context, c *tgbotapi.CallbackQuery) {
			b.showPantry(ctx, c.Message.Chat.ID)
		},
		"meals": func(ctx context.Context, c *tgbotapi.CallbackQuery) {
			b.showMeals(ctx, c.Message.Chat.ID)
		},
	}
}

func (b *BotApp) handleCallback(ctx context.Context, callback *tgbotapi.CallbackQuery) {
	data := callback.Data
	if callback.Message == nil {
		b.answerCallback(callback.ID, "")
		return
	}
	chatID := callback.Message.Chat.ID

	if fn, ok := b.callbacks[data]; ok {
		b.answerCallback(callback.ID, "")
		fn(ctx, callback)
		return
	}

	if strings.HasPrefix(data, buyPrefix) {
		if !b.isAllowed(chatID) {
			b.answerCallback(callback.ID, "⛔ Not allowed")
			return
		}
		id, err := strconv.ParseUint(strings.TrimPrefix(data, buyPrefix), 10, 64)
		if err != nil || id == 0 {
			b.answerCallback(callback.ID, "❌ Unknown meal")
			return
		}
		b.answerCallback(callback.ID, "")
		b.buyMissing(ctx, chatID, uint(id))
		return
	}

	b.answerCallback(callback.ID, "⚠️ Unknown action")
}

// buyMissing checks out one of every ingredient of the meal that is not
// in stock.
func (b *BotApp) buyMissing(ctx context.Context, chatID int64, mealID uint) {
	meal, err := b.meals.GetMeal(ctx, mealID)
	if err != nil {
		b.replyError(chatID, "load meal", err)
		return
	}
	available, err := b.inventory.AvailableItemIDs(ctx)
	if err != nil {
		b.replyError(chatID, "load pantry", err)
		return
	}

	var lines []service.BasketLine
	var names []string
	for _, ing := range meal.Ingredients {
		if available.Has(ing.ItemID) {
			continue
		}
		id := ing.ItemID
		lines = append(lines, service.BasketLine{ItemID: &id, Quantity: 1})
		names = append(names, ing.Name)
	}
	if len(lines) == 0 {
		b.sendText(chatID, fmt.Sprintf("✅ You already have everything for %s", meal.Name))
		return
	}

	if _, err := b.inventory.Checkout(ctx, service.CheckoutDTO{Items: lines}); err != nil {
		b.replyError(chatID, "checkout", err)
		return
	}
	b.sendTextWithKeyboard(chatID, fmt.Sprintf("🛒 Bought for %s: %s", meal.Name, strings.Join(names, ", ")),
		[][]tgbotapi.InlineKeyboardButton{tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(btnPantry, "pantry"),
			tgbotapi.NewInlineKeyboardButtonData(btnMeals, "meals"),
		)},
	)
}

// ==================== reminders ====================

func (b *BotApp) runReminders(ctx context.Context) {
	if b.opts.ReminderInterval <= 0 || len(b.opts.NotifyChatIDs) == 0 {
		return
	}
	t := time.NewTicker(b.opts.ReminderInterval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			b.sendReminders(ctx)
		}
	}
}

// sendReminders posts soon-to-expire items to every notify chat. Nothing
// is sent when nothing expires.
func (b *BotApp) sendReminders(ctx context.Context) {
	entries, err := b.inventory.Expiring(ctx, b.opts.ReminderDays)
	if err != nil {
		b.log.Error("Reminder query failed", zap.Error(err))
		return
	}
	if len(entries) == 0 {
		return
	}
	text := formatExpiring(entries, b.opts.ReminderDays)
	for _, chatID := range b.opts.NotifyChatIDs {
		b.sendText(chatID, text)
	}
}

// ==================== sending ====================

func (b *BotApp) sendText(chatID int64, text string) {
	b.send(tgbotapi.NewMessage(chatID, text))
}

func (b *BotApp) sendTextWithKeyboard(chatID int64, text string, rows [][]tgbotapi.InlineKeyboardButton) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	b.send(msg)
}

func (b *BotApp) send(msg tgbotapi.MessageConfig) {
	if _, err := b.API.Send(msg); err != nil {
		b.log.Warn("Send failed", zap.Int64("chat_id", msg.ChatID), zap.Error(err))
	}
}

func (b *BotApp) answerCallback(callbackID string, text string) {
	if _, err := b.API.Request(tgbotapi.NewCallback(callbackID, text)); err != nil {
		b.log.Warn("Callback answer failed", zap.Error(err))
	}
}

// replyError tells the user what went wrong. Storage errors stay in the log.
func (b *BotApp) replyError(chatID int64, action string, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidInput), errors.Is(err, service.ErrNotFound):
		b.sendText(chatID, "❌ "+err.Error())
	default:
		b.log.Error("Bot action failed", zap.String("action", action), zap.Int64("chat_id", chatID), zap.Error(err))
		b.sendText(chatID, "❌ Something went wrong, please try again later")
	}
}

func parseDays(arg string) (int, error) {
	arg = strings.TrimSpace(arg)
	if arg == "" {
		return defaultExpiringDays, nil
	}
	days, err := strconv.Atoi(arg)
	if err != nil || days < 0 {
		return 0, fmt.Errorf("bad day count %q", arg)
	}
	return days, nil
}

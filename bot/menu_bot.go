package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"menu-admin/config"
	"menu-admin/logger"
	"menu-admin/models"
	"menu-admin/services"
)

// MenuBackend is what the bot needs from the menu service.
type MenuBackend interface {
	ListCategories(ctx context.Context) ([]models.Category, error)
	ListItems(ctx context.Context) ([]models.MenuItem, error)
	ToggleAvailability(ctx context.Context, id int64) (*models.MenuItem, error)
}

// MenuBot lets admins flip item availability from Telegram (ADDER_TOKEN).
// Admins log in by sending the LOGIN password.
type MenuBot struct {
	api      *tgbotapi.BotAPI
	menu     MenuBackend
	login    string
	loggedM  sync.RWMutex
	logged   map[int64]bool
	throttle *services.LoginThrottle
	// one toggle per item at a time
	inflight sync.Map
}

func NewMenuBot(cfg *config.Config, menu MenuBackend) (*MenuBot, error) {
	if cfg.Telegram.AdderToken == "" {
		return nil, fmt.Errorf("ADDER_TOKEN not set")
	}
	if strings.TrimSpace(cfg.Telegram.Login) == "" {
		return nil, fmt.Errorf("LOGIN not set")
	}
	api, err := tgbotapi.NewBotAPI(cfg.Telegram.AdderToken)
	if err != nil {
		return nil, err
	}
	return &MenuBot{
		api:      api,
		menu:     menu,
		login:    strings.TrimSpace(cfg.Telegram.Login),
		logged:   make(map[int64]bool),
		throttle: services.NewLoginThrottle(),
	}, nil
}

// Start polls updates until ctx is cancelled.
func (a *MenuBot) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := a.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			a.api.StopReceivingUpdates()
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			if update.CallbackQuery != nil {
				a.handleCallback(ctx, update.CallbackQuery)
				continue
			}
			if update.Message != nil {
				a.handleMessage(ctx, update.Message)
			}
		}
	}
}

func (a *MenuBot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	// channel posts carry no sender
	if msg.From == nil || msg.Chat == nil {
		return
	}
	userID := msg.From.ID
	text := strings.TrimSpace(msg.Text)

	if text == "/logout" {
		a.setLoggedIn(userID, false)
		a.send(msg.Chat.ID, "👋 Logged out.")
		return
	}
	if !a.isLoggedIn(userID) {
		if text == "" || strings.HasPrefix(text, "/") {
			a.send(msg.Chat.ID, "🔒 Menu admin. Send the admin password to continue.")
			return
		}
		caller := strconv.FormatInt(userID, 10)
		if wait := a.throttle.WaitSeconds(services.ThrottleChannelTelegram, caller); wait > 0 {
			a.send(msg.Chat.ID, fmt.Sprintf("⏳ Too many attempts. Try again in %d s.", wait))
			return
		}
		if text != a.login {
			a.throttle.RecordFailed(services.ThrottleChannelTelegram, caller)
			logger.FromContext(ctx).Warn("menu bot login failed", "tg_user_id", userID)
			a.send(msg.Chat.ID, "❌ Wrong password.")
			return
		}
		a.throttle.RecordSuccess(services.ThrottleChannelTelegram, caller)
		a.setLoggedIn(userID, true)
		a.sendPanel(ctx, msg.Chat.ID)
		return
	}
	a.sendPanel(ctx, msg.Chat.ID)
}

func (a *MenuBot) handleCallback(ctx context.Context, cq *tgbotapi.CallbackQuery) {
	_, _ = a.api.Request(tgbotapi.NewCallback(cq.ID, ""))
	if cq.Message == nil || cq.Message.Chat == nil || cq.From == nil {
		return
	}
	chatID := cq.Message.Chat.ID
	if !a.isLoggedIn(cq.From.ID) {
		a.send(chatID, "🔒 Send the admin password first.")
		return
	}

	action, id, ok := parseCallback(cq.Data)
	if !ok {
		return
	}
	switch action {
	case "panel":
		a.sendPanel(ctx, chatID)
	case "cat":
		a.sendCategory(ctx, chatID, id)
	case "toggle":
		a.toggle(ctx, chatID, cq.Message.MessageID, id)
	}
}

func (a *MenuBot) toggle(ctx context.Context, chatID int64, messageID int, itemID int64) {
	if _, busy := a.inflight.LoadOrStore(itemID, struct{}{}); busy {
		a.send(chatID, "⏳ This item is still being updated.")
		return
	}
	defer a.inflight.Delete(itemID)

	item, err := a.menu.ToggleAvailability(ctx, itemID)
	if errors.Is(err, services.ErrNotFound) {
		a.send(chatID, "This item no longer exists.")
		return
	}
	if err != nil {
		a.fail(ctx, chatID, "update the item", err)
		return
	}
	items, err := a.menu.ListItems(ctx)
	if err != nil {
		a.fail(ctx, chatID, "load the menu", err)
		return
	}
	kb := itemsKeyboard(filterCategory(items, item.CategoryID))
	if _, err := a.api.Request(tgbotapi.NewEditMessageReplyMarkup(chatID, messageID, kb)); err != nil {
		logger.FromContext(ctx).Warn("bot edit markup failed", "error", err)
	}
}

func (a *MenuBot) sendPanel(ctx context.Context, chatID int64) {
	cats, err := a.menu.ListCategories(ctx)
	if err != nil {
		a.fail(ctx, chatID, "load categories", err)
		return
	}
	if len(cats) == 0 {
		a.send(chatID, "No categories yet. Run `menu-admin seed` first.")
		return
	}
	a.sendWithInline(chatID, "📋 Menu — choose a category:", categoriesKeyboard(cats))
}

func (a *MenuBot) sendCategory(ctx context.Context, chatID int64, categoryID int64) {
	items, err := a.menu.ListItems(ctx)
	if err != nil {
		a.fail(ctx, chatID, "load the menu", err)
		return
	}
	items = filterCategory(items, categoryID)
	if len(items) == 0 {
		a.send(chatID, "No items in this category.")
		return
	}
	text := fmt.Sprintf("📋 %s — tap an item to toggle availability:", items[0].CategoryName)
	a.sendWithInline(chatID, text, itemsKeyboard(items))
}

func (a *MenuBot) isLoggedIn(userID int64) bool {
	a.loggedM.RLock()
	defer a.loggedM.RUnlock()
	return a.logged[userID]
}

func (a *MenuBot) setLoggedIn(userID int64, on bool) {
	a.loggedM.Lock()
	defer a.loggedM.Unlock()
	if on {
		a.logged[userID] = true
	} else {
		delete(a.logged, userID)
	}
}

// fail logs err and tells the chat only what could not be done.
func (a *MenuBot) fail(ctx context.Context, chatID int64, what string, err error) {
	logger.FromContext(ctx).Error("menu bot: "+what, "chat_id", chatID, "error", err)
	a.send(chatID, "⚠️ Could not "+what+". Please try again.")
}

func (a *MenuBot) send(chatID int64, text string) {
	if _, err := a.api.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		logger.Get().Warn("menu bot send failed", "error", err)
	}
}

func (a *MenuBot) sendWithInline(chatID int64, text string, kb tgbotapi.InlineKeyboardMarkup) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = kb
	if _, err := a.api.Send(msg); err != nil {
		logger.Get().Warn("menu bot send failed", "error", err)
	}
}

func categoriesKeyboard(cats []models.Category) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(cats))
	for _, c := range cats {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📂 "+c.Name, fmt.Sprintf("menu:cat:%d", c.ID)),
		))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func itemsKeyboard(items []models.MenuItem) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(items)+1)
	for _, it := range items {
		mark := "✅"
		if !it.IsAvailable {
			mark = "⛔️"
		}
		label := fmt.Sprintf("%s %s — %s", mark, it.Name, it.Price.StringFixed(2))
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, fmt.Sprintf("menu:toggle:%d", it.ID)),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("⬅️ Categories", "menu:panel"),
	))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func filterCategory(items []models.MenuItem, categoryID int64) []models.MenuItem {
	var out []models.MenuItem
	for _, it := range items {
		if it.CategoryID == categoryID {
			out = append(out, it)
		}
	}
	return out
}

// parseCallback decodes "menu:panel", "menu:cat:<id>" and "menu:toggle:<id>".
func parseCallback(data string) (action string, id int64, ok bool) {
	parts := strings.Split(data, ":")
	if len(parts) < 2 || parts[0] != "menu" {
		return "", 0, false
	}
	switch parts[1] {
	case "panel":
		return "panel", 0, len(parts) == 2
	case "cat", "toggle":
		if len(parts) != 3 {
			return "", 0, false
		}
		n, err := strconv.ParseInt(parts[2], 10, 64)
		if err != nil || n <= 0 {
			return "", 0, false
		}
		return parts[1], n, true
	}
	return "", 0, false
}

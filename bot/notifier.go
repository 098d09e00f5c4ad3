package bot

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"menu-admin/logger"
	"menu-admin/services"
)

// Notifier posts menu changes to the admin chat (MESSAGE_TOKEN, ADMIN_CHAT_ID).
type Notifier struct {
	api    *tgbotapi.BotAPI
	chatID int64
}

func NewNotifier(token string, chatID int64) (*Notifier, error) {
	if token == "" {
		return nil, fmt.Errorf("MESSAGE_TOKEN not set")
	}
	if chatID == 0 {
		return nil, fmt.Errorf("ADMIN_CHAT_ID not set")
	}
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	return &Notifier{api: api, chatID: chatID}, nil
}

// MenuChanged sends in the background; a failed send is only logged.
func (n *Notifier) MenuChanged(ctx context.Context, c services.Change) {
	log := logger.FromContext(ctx)
	msg := tgbotapi.NewMessage(n.chatID, FormatChange(c))
	go func() {
		if _, err := n.api.Send(msg); err != nil {
			log.Warn("menu notifier send failed", "item_id", c.Item.ID, "error", err)
		}
	}()
}

func FormatChange(c services.Change) string {
	it := c.Item
	var b strings.Builder
	switch c.Kind {
	case services.ItemCreated:
		b.WriteString("🆕 New menu item")
	case services.AvailabilityChanged:
		if it.IsAvailable {
			b.WriteString("✅ Back on the menu")
		} else {
			b.WriteString("⛔️ Marked unavailable")
		}
	default:
		b.WriteString("✏️ Menu item updated")
	}
	fmt.Fprintf(&b, "\n#%d %s — %s", it.ID, it.Name, it.Price.StringFixed(2))
	if it.CategoryName != "" {
		fmt.Fprintf(&b, "\nCategory: %s", it.CategoryName)
	}
	return b.String()
}

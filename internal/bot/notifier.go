package bot

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"sync"
	"time"

	"telegram_rewards/internal/domain"
	"telegram_rewards/internal/logger"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Notifier delivers notifications through the bot. Sends run in the
// background so a slow Telegram API never holds up a request.
type Notifier struct {
	out      sender
	adminIDs []int64
	wg       sync.WaitGroup
	log      *slog.Logger
}

func NewNotifier(api *tgbotapi.BotAPI, adminIDs []int64) *Notifier {
	return newNotifier(api, adminIDs)
}

func newNotifier(out sender, adminIDs []int64) *Notifier {
	return &Notifier{out: out, adminIDs: adminIDs, log: logger.With("component", "notifier")}
}

func (n *Notifier) NotifyUser(_ context.Context, userTgID int64, note domain.Notification) {
	if userTgID == 0 {
		return
	}
	n.send(userTgID, html.EscapeString(note.Message))
}

// NotifyAdminsNewWithdrawal notifies all admins about a new withdrawal request
func (n *Notifier) NotifyAdminsNewWithdrawal(_ context.Context, user *domain.User, w *domain.Withdrawal) {
	message := fmt.Sprintf(`🔔 <b>Новый запрос на вывод!</b>

👤 Пользователь: %s (ID: %d, TG: %d)
💰 Сумма: %d coins
💳 Кошелек: <code>%s</code>
🔗 Ref: <code>%s</code>

ID: #%d

/approve %d - одобрить
/reject %d причина - отклонить`,
		html.EscapeString(user.DisplayName()), user.ID, user.TgID, w.Amount,
		html.EscapeString(w.WalletAddress), html.EscapeString(w.TxHash), w.ID, w.ID, w.ID)

	for _, adminID := range n.adminIDs {
		n.send(adminID, message)
	}
}

func (n *Notifier) send(chatID int64, text string) {
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		msg := tgbotapi.NewMessage(chatID, text)
		msg.ParseMode = tgbotapi.ModeHTML
		if _, err := n.out.Send(msg); err != nil {
			n.log.Warn("telegram send failed", "chat_id", chatID, "error", err)
		}
	}()
}

// Wait blocks until in-flight sends finish or timeout elapses.
func (n *Notifier) Wait(timeout time.Duration) bool {
	done := make(chan struct{})
	go func() {
		n.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-time.After(timeout):
		return false
	}
}

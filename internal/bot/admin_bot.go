package bot

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"telegram_rewards/internal/domain"
	"telegram_rewards/internal/logger"
	"telegram_rewards/internal/service"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// sender is the part of *tgbotapi.BotAPI used for outgoing messages.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type adminOps interface {
	GetStats(ctx context.Context) (*service.Stats, error)
	FindUser(ctx context.Context, identifier string) (*service.UserInfo, error)
	SetBanned(ctx context.Context, userID int64, banned bool) error
	GrantItem(ctx context.Context, userID int64, code string, qty int64) (int64, error)
}

type withdrawalOps interface {
	Pending(ctx context.Context, limit int) ([]domain.Withdrawal, error)
	Process(ctx context.Context, id int64, action domain.WithdrawAction, note string) (*domain.Withdrawal, error)
}

// AdminBot handles admin commands via Telegram
type AdminBot struct {
	api         *tgbotapi.BotAPI
	out         sender
	admin       adminOps
	withdrawals withdrawalOps
	adminIDs    []int64 // Telegram user IDs who can use admin commands
	stopCh      chan struct{}
	wg          sync.WaitGroup
	log         *slog.Logger
}

// NewAPI authorizes the bot token.
func NewAPI(token string) (*tgbotapi.BotAPI, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	logger.Info("telegram bot authorized", "username", api.Self.UserName)
	return api, nil
}

// NewAdminBot creates a new admin bot
func NewAdminBot(api *tgbotapi.BotAPI, admin adminOps, withdrawals withdrawalOps, adminIDs []int64) *AdminBot {
	b := newAdminBot(api, admin, withdrawals, adminIDs)
	b.api = api
	return b
}

func newAdminBot(out sender, admin adminOps, withdrawals withdrawalOps, adminIDs []int64) *AdminBot {
	return &AdminBot{
		out:         out,
		admin:       admin,
		withdrawals: withdrawals,
		adminIDs:    adminIDs,
		stopCh:      make(chan struct{}),
		log:         logger.With("component", "admin_bot"),
	}
}

// Start listens for commands until Stop is called.
func (b *AdminBot) Start() {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)
	b.log.Info("starting bot update loop")

	for {
		select {
		case <-b.stopCh:
			b.log.Info("stopping bot update loop")
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			msg := update.Message
			if msg == nil || msg.From == nil || !msg.IsCommand() {
				continue
			}
			if !b.isAdmin(msg.From.ID) {
				continue
			}

			b.wg.Add(1)
			go func(msg *tgbotapi.Message) {
				defer b.wg.Done()
				b.handleCommand(msg)
			}(msg)
		}
	}
}

// Stop gracefully stops the bot
func (b *AdminBot) Stop() {
	b.log.Info("stopping admin bot...")
	close(b.stopCh)
	if b.api != nil {
		b.api.StopReceivingUpdates()
	}

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		b.log.Info("admin bot stopped gracefully")
	case <-time.After(10 * time.Second):
		b.log.Warn("admin bot shutdown timeout, some handlers may not have completed")
	}
}

func (b *AdminBot) isAdmin(userID int64) bool {
	return slices.Contains(b.adminIDs, userID)
}

func (b *AdminBot) handleCommand(msg *tgbotapi.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	response := b.dispatch(ctx, msg.Command(), msg.CommandArguments())

	reply := tgbotapi.NewMessage(msg.Chat.ID, response)
	reply.ParseMode = tgbotapi.ModeHTML
	reply.ReplyToMessageID = msg.MessageID

	if _, err := b.out.Send(reply); err != nil {
		b.log.Error("error sending message", "error", err)
	}
}

package bot

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strconv"
	"strings"

	"telegram_rewards/internal/domain"
	"telegram_rewards/internal/service"
)

const pendingListLimit = 20

func (b *AdminBot) dispatch(ctx context.Context, command, args string) string {
	args = strings.TrimSpace(args)

	switch command {
	case "start", "help":
		return helpMessage
	case "stats":
		return b.handleStats(ctx)
	case "user":
		return b.handleUser(ctx, args)
	case "ban":
		return b.handleBan(ctx, args, true)
	case "unban":
		return b.handleBan(ctx, args, false)
	case "grant":
		return b.handleGrant(ctx, args)
	case "withdrawals":
		return b.handleWithdrawals(ctx)
	case "approve":
		return b.handleApprove(ctx, args)
	case "reject":
		return b.handleReject(ctx, args)
	default:
		return "❌ Неизвестная команда. Используйте /help для списка команд."
	}
}

const helpMessage = `<b>🤖 Команды администратора</b>

<b>📊 Статистика:</b>
/stats - Статистика экономики

<b>👤 Управление пользователями:</b>
/user &lt;id|tg_id|username&gt; - Информация о пользователе
/ban &lt;id&gt; - Заблокировать
/unban &lt;id&gt; - Разблокировать
/grant &lt;id&gt; &lt;shield|logic_bomb|streak_shield&gt; [кол-во] - Выдать предмет

<b>💸 Выводы:</b>
/withdrawals - Ожидающие выводы
/approve &lt;id&gt; [комментарий] - Одобрить вывод
/reject &lt;id&gt; &lt;причина&gt; - Отклонить вывод`

func errorText(err error) string {
	return "❌ Ошибка: " + html.EscapeString(err.Error())
}

func (b *AdminBot) handleStats(ctx context.Context) string {
	stats, err := b.admin.GetStats(ctx)
	if err != nil {
		return errorText(err)
	}

	return fmt.Sprintf(`<b>📊 Статистика экономики</b>

<b>👥 Пользователи:</b>
• Всего: %d
• Заблокировано: %d
• Фармят сейчас: %d

<b>🎮 Сегодня:</b>
• Чек-инов: %d
• Спинов: %d
• Атак: %d

<b>💰 Экономика:</b>
• В обороте: %d

<b>💸 Выводы:</b>
• Ожидает: %d (%d coins)
• Всего выведено: %d`,
		stats.TotalUsers,
		stats.BannedUsers,
		stats.FarmingNow,
		stats.CheckInsToday,
		stats.SpinsToday,
		stats.BattlesToday,
		stats.CirculatingCoins,
		stats.PendingWithdraws,
		stats.PendingAmount,
		stats.TotalWithdrawn,
	)
}

func (b *AdminBot) handleUser(ctx context.Context, args string) string {
	if args == "" {
		return "❌ Использование: /user &lt;id|tg_id|username&gt;"
	}

	u, err := b.admin.FindUser(ctx, strings.TrimPrefix(args, "@"))
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			return "❌ Пользователь не найден"
		}
		return errorText(err)
	}

	status := "активен"
	if u.IsBanned {
		status = "🚫 заблокирован"
	}

	return fmt.Sprintf(`<b>👤 Информация о пользователе</b>

• ID: %d
• Telegram ID: %d
• Username: @%s
• Имя: %s
• 🪙 Баланс: %d
• 🔥 Серия: %d
• ⚔️ Побед: %d (украдено %d)
• Статус: %s
• 📅 Регистрация: %s`,
		u.ID,
		u.TgID,
		html.EscapeString(u.Username),
		html.EscapeString(u.FirstName),
		u.Balance,
		u.Streak,
		u.PvpWins,
		u.PvpTotalStolen,
		status,
		u.CreatedAt.Format("02.01.2006 15:04"),
	)
}

func (b *AdminBot) handleBan(ctx context.Context, args string, banned bool) string {
	cmd := "unban"
	if banned {
		cmd = "ban"
	}
	userID, err := strconv.ParseInt(args, 10, 64)
	if err != nil || userID <= 0 {
		return fmt.Sprintf("❌ Использование: /%s &lt;id&gt;", cmd)
	}

	if err := b.admin.SetBanned(ctx, userID, banned); err != nil {
		return errorText(err)
	}

	if banned {
		return fmt.Sprintf("🚫 Пользователь %d заблокирован", userID)
	}
	return fmt.Sprintf("✅ Пользователь %d разблокирован", userID)
}

func (b *AdminBot) handleGrant(ctx context.Context, args string) string {
	parts := strings.Fields(args)
	if len(parts) < 2 || len(parts) > 3 {
		return "❌ Использование: /grant &lt;id&gt; &lt;предмет&gt; [кол-во]"
	}

	userID, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return "❌ Неверный ID пользователя"
	}

	qty := int64(1)
	if len(parts) == 3 {
		if qty, err = strconv.ParseInt(parts[2], 10, 64); err != nil {
			return "❌ Неверное количество"
		}
	}

	total, err := b.admin.GrantItem(ctx, userID, parts[1], qty)
	if err != nil {
		return errorText(err)
	}
	return fmt.Sprintf("✅ Выдано %d × %s пользователю %d. Теперь: %d", qty, html.EscapeString(parts[1]), userID, total)
}

func (b *AdminBot) handleWithdrawals(ctx context.Context) string {
	list, err := b.withdrawals.Pending(ctx, pendingListLimit)
	if err != nil {
		return errorText(err)
	}

	if len(list) == 0 {
		return "✅ Нет ожидающих выводов"
	}

	var sb strings.Builder
	sb.WriteString("<b>💸 Ожидающие выводы</b>\n\n")

	for _, w := range list {
		fmt.Fprintf(&sb, "🆔 #%d | user %d\n", w.ID, w.UserID)
		fmt.Fprintf(&sb, "💰 Сумма: %d coins\n", w.Amount)
		fmt.Fprintf(&sb, "💳 Кошелёк: <code>%s</code>\n", html.EscapeString(w.WalletAddress))
		fmt.Fprintf(&sb, "🔗 Ref: <code>%s</code>\n", html.EscapeString(w.TxHash))
		fmt.Fprintf(&sb, "📅 %s\n\n", w.CreatedAt.Format("02.01.2006 15:04"))
	}

	sb.WriteString("\n/approve &lt;id&gt; — одобрить\n/reject &lt;id&gt; &lt;причина&gt; — отклонить")

	return sb.String()
}

func (b *AdminBot) handleApprove(ctx context.Context, args string) string {
	idStr, note, _ := strings.Cut(args, " ")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		return "❌ Использование: /approve &lt;id&gt; [комментарий]"
	}

	if _, err := b.withdrawals.Process(ctx, id, domain.WithdrawApprove, note); err != nil {
		return processError(id, err)
	}
	return fmt.Sprintf("✅ Вывод #%d одобрен", id)
}

func (b *AdminBot) handleReject(ctx context.Context, args string) string {
	idStr, reason, _ := strings.Cut(args, " ")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || strings.TrimSpace(reason) == "" {
		return "❌ Использование: /reject &lt;id&gt; &lt;причина&gt;"
	}

	if _, err := b.withdrawals.Process(ctx, id, domain.WithdrawReject, reason); err != nil {
		return processError(id, err)
	}
	return fmt.Sprintf("❌ Вывод #%d отклонён. Средства возвращены.", id)
}

func processError(id int64, err error) string {
	switch {
	case errors.Is(err, service.ErrWithdrawalNotFound):
		return fmt.Sprintf("❌ Вывод #%d не найден", id)
	case errors.Is(err, domain.ErrAlreadyProcessed):
		return fmt.Sprintf("⚠️ Вывод #%d уже обработан", id)
	default:
		return errorText(err)
	}
}

package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"telegram_rewards/internal/domain"
	"telegram_rewards/internal/game"
	"telegram_rewards/internal/logger"
	"telegram_rewards/internal/metrics"
)

type CombatStore interface {
	GetUser(ctx context.Context, id int64) (*domain.User, error)
	ResolveBattle(ctx context.Context, req domain.BattleRequest, decide domain.BattleDecider) (*domain.BattleCommit, error)
	ListBattles(ctx context.Context, userID int64, limit int) ([]domain.BattleLog, error)
	TopRaiders(ctx context.Context, limit int) ([]domain.User, error)
}

type CombatService struct {
	store    CombatStore
	rng      game.RNG
	now      Clock
	notifier Notifier
}

func NewCombatService(store CombatStore, rng game.RNG, now Clock, notifier Notifier) *CombatService {
	if now == nil {
		now = time.Now
	}
	if notifier == nil {
		notifier = LogNotifier{}
	}
	return &CombatService{store: store, rng: rng, now: now, notifier: notifier}
}

type AttackResult struct {
	Result       domain.BattleResult `json:"result"`
	Amount       int64               `json:"amount"`
	DefenderName string              `json:"defender_name"`
	IsRevenge    bool                `json:"is_revenge"`
	Roll         *int                `json:"roll,omitempty"`
	NewBalance   int64               `json:"new_balance"`
}

// LeaderboardEntry is one row of the PvP leaderboard
type LeaderboardEntry struct {
	Rank        int    `json:"rank"`
	UserID      int64  `json:"user_id"`
	Name        string `json:"name"`
	Wins        int64  `json:"wins"`
	TotalStolen int64  `json:"total_stolen"`
}

func (s *CombatService) Attack(ctx context.Context, attackerID, targetID int64) (*AttackResult, error) {
	return s.resolve(ctx, domain.BattleRequest{AttackerID: attackerID, DefenderID: targetID}, game.NormalAttack)
}

// Revenge strikes back at someone whose earlier attack on the caller won or
// was shielded. sourceNotificationID, when given, is marked read in the same commit.
func (s *CombatService) Revenge(ctx context.Context, attackerID, targetID int64, sourceNotificationID *int64) (*AttackResult, error) {
	return s.resolve(ctx, domain.BattleRequest{
		AttackerID:           attackerID,
		DefenderID:           targetID,
		Revenge:              true,
		SourceNotificationID: sourceNotificationID,
	}, game.RevengeAttack)
}

func (s *CombatService) resolve(ctx context.Context, req domain.BattleRequest, rules game.CombatRules) (*AttackResult, error) {
	action := "attack"
	if req.Revenge {
		action = "revenge"
	}

	if req.AttackerID == req.DefenderID {
		return nil, ErrSelfAttack
	}
	if _, err := loadActiveUser(ctx, s.store, req.AttackerID); err != nil {
		return nil, err
	}
	if _, err := loadActiveUser(ctx, s.store, req.DefenderID); err != nil {
		if errors.Is(err, ErrUserNotFound) || errors.Is(err, ErrUserBanned) {
			metrics.Action(action, "target_unavailable")
			return nil, ErrTargetUnavailable
		}
		return nil, err
	}

	now := s.now()
	var attacker, defender domain.User

	commit, err := s.store.ResolveBattle(ctx, req, func(st *domain.BattleState) (*domain.BattleCommit, error) {
		if st.Attacker.IsBanned {
			return nil, ErrUserBanned
		}
		if st.Defender.IsBanned {
			return nil, ErrTargetUnavailable
		}
		if req.Revenge && !st.HasRevengeRight {
			return nil, ErrRevengeNotAllowed
		}
		if left := game.CooldownRemaining(st.Attacker.LastHeistAt, now, rules.Cooldown); left > 0 {
			return nil, &CooldownError{Remaining: left}
		}

		attacker, defender = *st.Attacker, *st.Defender
		out := game.ResolveCombat(rules, game.CombatInput{
			AttackerBalance: st.Attacker.Balance,
			DefenderBalance: st.Defender.Balance,
			DefenderItems:   st.DefenderItems,
		}, s.rng)
		return buildBattleCommit(req, st, out, now), nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			metrics.Action(action, "target_unavailable")
			return nil, ErrTargetUnavailable
		}
		var cd *CooldownError
		switch {
		case errors.As(err, &cd):
			metrics.Action(action, "cooldown")
		case errors.Is(err, ErrRevengeNotAllowed):
			metrics.Action(action, "revenge_not_allowed")
		}
		return nil, err
	}

	metrics.Action(action, "ok")
	metrics.Battle(string(commit.Log.Result), req.Revenge)
	recordBattleFlow(commit)
	logger.WithContext(ctx).Info("battle resolved",
		"attacker_id", req.AttackerID, "defender_id", req.DefenderID, "revenge", req.Revenge,
		"result", commit.Log.Result, "amount", commit.Log.Amount, "balance", commit.AttackerBalance)

	tgIDs := map[int64]int64{attacker.ID: attacker.TgID, defender.ID: defender.TgID}
	for _, n := range commit.Notifications {
		s.notifier.NotifyUser(ctx, tgIDs[n.UserID], n)
	}

	return &AttackResult{
		Result:       commit.Log.Result,
		Amount:       commit.Log.Amount,
		DefenderName: commit.DefenderName,
		IsRevenge:    req.Revenge,
		Roll:         commit.Log.Roll,
		NewBalance:   commit.AttackerBalance,
	}, nil
}

func buildBattleCommit(req domain.BattleRequest, st *domain.BattleState, out game.CombatOutcome, now time.Time) *domain.BattleCommit {
	attackerName := st.Attacker.DisplayName()
	c := &domain.BattleCommit{
		Log: domain.BattleLog{
			AttackerID: req.AttackerID,
			DefenderID: req.DefenderID,
			Amount:     out.Amount,
			Result:     out.Result,
			IsRevenge:  req.Revenge,
			CreatedAt:  now,
		},
		HeistAt:      now,
		DefenderName: st.Defender.DisplayName(),
	}
	if out.Roll >= 0 {
		roll := out.Roll
		c.Log.Roll = &roll
	}
	if req.Revenge {
		c.MarkRead = req.SourceNotificationID
	}
	if out.Consumed != 0 {
		c.ItemUses = append(c.ItemUses, domain.ItemUse{UserID: req.DefenderID, Kind: out.Consumed})
	}

	payload := func() map[string]interface{} {
		return map[string]interface{}{
			"attacker_id":   req.AttackerID,
			"attacker_name": attackerName,
			"amount":        out.Amount,
			"is_revenge":    req.Revenge,
		}
	}

	switch out.Result {
	case domain.BattleWin:
		c.Stolen = out.Amount
		c.Postings = []domain.Posting{
			{UserID: req.DefenderID, Delta: out.DefenderDelta, Type: domain.TxTypePvpStolen,
				Meta: map[string]interface{}{"attacker_id": req.AttackerID}},
			{UserID: req.AttackerID, Delta: out.AttackerDelta, Type: domain.TxTypePvpSteal,
				Meta: map[string]interface{}{"defender_id": req.DefenderID}},
		}
		c.Notifications = []domain.Notification{{
			UserID:  req.DefenderID,
			Type:    domain.NotificationPvpAttacked,
			Message: fmt.Sprintf("%s stole %d coins from you! Take revenge?", attackerName, out.Amount),
			Payload: payload(),
		}}

	case domain.BattleLose:
		c.Postings = []domain.Posting{
			{UserID: req.AttackerID, Delta: out.AttackerDelta, Type: domain.TxTypePvpFine,
				Meta: map[string]interface{}{"defender_id": req.DefenderID}},
		}

	case domain.BattleShielded:
		c.Postings = []domain.Posting{
			{UserID: req.AttackerID, Delta: out.AttackerDelta, Type: domain.TxTypePvpShieldPenalty,
				Meta: map[string]interface{}{"defender_id": req.DefenderID}},
		}
		c.Notifications = []domain.Notification{{
			UserID:  req.DefenderID,
			Type:    domain.NotificationPvpShielded,
			Message: fmt.Sprintf("Your shield blocked an attack from %s", attackerName),
			Payload: payload(),
		}}

	case domain.BattleCounterAttack:
		c.Postings = []domain.Posting{
			{UserID: req.AttackerID, Delta: out.AttackerDelta, Type: domain.TxTypePvpCounter,
				Meta: map[string]interface{}{"defender_id": req.DefenderID}},
			{UserID: req.DefenderID, Delta: out.DefenderDelta, Type: domain.TxTypePvpCounter,
				Meta: map[string]interface{}{"attacker_id": req.AttackerID}},
		}
		c.Notifications = []domain.Notification{
			{
				UserID:  req.DefenderID,
				Type:    domain.NotificationPvpCounterAttack,
				Message: fmt.Sprintf("Your logic bomb hit %s for %d coins", attackerName, out.Amount),
				Payload: payload(),
			},
			{
				UserID:  req.AttackerID,
				Type:    domain.NotificationPvpCounterAttack,
				Message: fmt.Sprintf("You triggered a logic bomb at %s and lost %d coins", c.DefenderName, out.Amount),
				Payload: map[string]interface{}{"defender_id": req.DefenderID, "amount": out.Amount},
			},
		}
	}
	return c
}

// recordBattleFlow counts fines and shield penalties, which leave circulation.
func recordBattleFlow(c *domain.BattleCommit) {
	var source string
	switch c.Log.Result {
	case domain.BattleLose:
		source = "pvp_fine"
	case domain.BattleShielded:
		source = "pvp_shield"
	default:
		return
	}
	for _, p := range c.Postings {
		metrics.Burned(source, -p.Delta)
	}
}

func (s *CombatService) History(ctx context.Context, userID int64, limit int) ([]domain.BattleLog, error) {
	return s.store.ListBattles(ctx, userID, limit)
}

func (s *CombatService) Leaderboard(ctx context.Context, limit int) ([]LeaderboardEntry, error) {
	users, err := s.store.TopRaiders(ctx, limit)
	if err != nil {
		return nil, err
	}
	entries := make([]LeaderboardEntry, 0, len(users))
	for i, u := range users {
		entries = append(entries, LeaderboardEntry{
			Rank:        i + 1,
			UserID:      u.ID,
			Name:        u.DisplayName(),
			Wins:        u.PvpWins,
			TotalStolen: u.PvpTotalStolen,
		})
	}
	return entries, nil
}

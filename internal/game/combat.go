package game

import (
	"time"

	"telegram_rewards/internal/domain"
)

// CombatRules parameterise one attack flavour.
type CombatRules struct {
	Cooldown      time.Duration
	WinThreshold  int   // roll must be strictly greater to win
	StealPercent  int64 // of defender balance on a win
	LoseFine      int64
	ShieldPenalty int64
	BombPenalty   int64
	CheckTraps    bool // logic bombs only trigger on normal attacks
}

var (
	NormalAttack = CombatRules{
		Cooldown:      60 * time.Minute,
		WinThreshold:  50,
		StealPercent:  5,
		LoseFine:      100,
		ShieldPenalty: 50,
		BombPenalty:   2000,
		CheckTraps:    true,
	}
	RevengeAttack = CombatRules{
		Cooldown:      30 * time.Minute,
		WinThreshold:  45,
		StealPercent:  8,
		LoseFine:      100,
		ShieldPenalty: 50,
		BombPenalty:   2000,
		CheckTraps:    false,
	}
)

// RollSides is the size of the combat roll range [0, 100].
const RollSides = 101

// CombatInput is the locked state an outcome is resolved from.
type CombatInput struct {
	AttackerBalance int64
	DefenderBalance int64
	DefenderItems   domain.Inventory
}

// CombatOutcome lists the balance deltas of one resolution.
// AttackerDelta + DefenderDelta is always 0 except for penalties paid to nobody.
type CombatOutcome struct {
	Result        domain.BattleResult
	Roll          int // -1 when no roll happened
	Amount        int64
	AttackerDelta int64
	DefenderDelta int64
	Consumed      domain.ItemKind // 0 when nothing was consumed
}

// CooldownRemaining returns how long the attacker must still wait.
func CooldownRemaining(lastHeistAt *time.Time, now time.Time, cooldown time.Duration) time.Duration {
	if lastHeistAt == nil {
		return 0
	}
	left := cooldown - now.Sub(*lastHeistAt)
	if left < 0 {
		return 0
	}
	return left
}

// ResolveCombat runs trap check, shield check and dice roll in that order.
func ResolveCombat(rules CombatRules, in CombatInput, rng RNG) CombatOutcome {
	attackerBal := nonNegative(in.AttackerBalance)
	defenderBal := nonNegative(in.DefenderBalance)

	if rules.CheckTraps && in.DefenderItems.Has(domain.ItemLogicBomb) {
		penalty := min(rules.BombPenalty, attackerBal)
		return CombatOutcome{
			Result:        domain.BattleCounterAttack,
			Roll:          -1,
			Amount:        penalty,
			AttackerDelta: -penalty,
			DefenderDelta: penalty,
			Consumed:      domain.ItemLogicBomb,
		}
	}

	if in.DefenderItems.Has(domain.ItemShield) {
		penalty := min(rules.ShieldPenalty, attackerBal)
		return CombatOutcome{
			Result:        domain.BattleShielded,
			Roll:          -1,
			AttackerDelta: -penalty,
			Consumed:      domain.ItemShield,
		}
	}

	roll := rng.Intn(RollSides)
	if roll > rules.WinThreshold {
		steal := defenderBal * rules.StealPercent / 100
		return CombatOutcome{
			Result:        domain.BattleWin,
			Roll:          roll,
			Amount:        steal,
			AttackerDelta: steal,
			DefenderDelta: -steal,
		}
	}

	fine := min(rules.LoseFine, attackerBal)
	return CombatOutcome{
		Result:        domain.BattleLose,
		Roll:          roll,
		AttackerDelta: -fine,
	}
}

func nonNegative(v int64) int64 {
	if v < 0 {
		return 0
	}
	return v
}

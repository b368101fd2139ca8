package service

import (
	"context"
	"slices"
	"sync"
	"time"

	"telegram_rewards/internal/domain"

	"github.com/shopspring/decimal"
)

// memStore is an in-memory store with the same all-or-nothing contract
// as the Postgres one. Every method holds the mutex for its whole body.
type memStore struct {
	mu            sync.Mutex
	nextID        int64
	users         map[int64]*domain.User
	items         map[int64]domain.Inventory
	spins         []domain.SpinRecord
	battles       []domain.BattleLog
	withdrawals   map[int64]*domain.Withdrawal
	notifications map[int64]*domain.Notification
	txs           []domain.Transaction
}

func newMemStore() *memStore {
	return &memStore{
		users:         map[int64]*domain.User{},
		items:         map[int64]domain.Inventory{},
		withdrawals:   map[int64]*domain.Withdrawal{},
		notifications: map[int64]*domain.Notification{},
	}
}

func (m *memStore) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *memStore) addUser(balance int64, name string) *domain.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.id()
	u := &domain.User{
		ID:          id,
		TgID:        1000 + id,
		Username:    name,
		Balance:     balance,
		FarmingRate: decimal.NewFromInt(1),
	}
	m.users[id] = u
	return u
}

func (m *memStore) giveItem(userID int64, kind domain.ItemKind, qty int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.items[userID] == nil {
		m.items[userID] = domain.Inventory{}
	}
	m.items[userID][kind] += qty
}

func (m *memStore) balance(userID int64) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.users[userID].Balance
}

func (m *memStore) user(userID int64) domain.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.users[userID]
}

func (m *memStore) itemCount(userID int64, kind domain.ItemKind) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.items[userID][kind]
}

func (m *memStore) ledgerSum(userID int64) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	var sum int64
	for _, tx := range m.txs {
		if tx.UserID == userID {
			sum += tx.Amount
		}
	}
	return sum
}

func (m *memStore) GetUser(ctx context.Context, id int64) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memStore) GetInventory(ctx context.Context, userID int64) (domain.Inventory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv := domain.Inventory{}
	for k, v := range m.items[userID] {
		if v > 0 {
			inv[k] = v
		}
	}
	return inv, nil
}

// applyLocked validates every posting against running balances first and
// only then mutates, so a failing posting leaves nothing behind.
func (m *memStore) applyLocked(postings []domain.Posting) (map[int64]int64, error) {
	running := map[int64]int64{}
	for _, p := range postings {
		u, ok := m.users[p.UserID]
		if !ok {
			return nil, domain.ErrNotFound
		}
		bal, seen := running[p.UserID]
		if !seen {
			bal = u.Balance
		}
		if bal < p.Floor() {
			return nil, domain.ErrInsufficientBalance
		}
		running[p.UserID] = bal + p.Delta
	}
	for _, p := range postings {
		m.txs = append(m.txs, domain.Transaction{ID: m.id(), UserID: p.UserID, Type: p.Type, Amount: p.Delta, Meta: p.Meta})
	}
	for id, bal := range running {
		m.users[id].Balance = bal
	}
	return running, nil
}

func (m *memStore) CommitSpin(ctx context.Context, rec *domain.SpinRecord) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	bals, err := m.applyLocked([]domain.Posting{{
		UserID: rec.UserID, Delta: rec.NetGain(), Require: rec.Cost, Type: domain.TxTypeSpin,
	}})
	if err != nil {
		return 0, err
	}
	rec.ID = m.id()
	m.spins = append(m.spins, *rec)
	return bals[rec.UserID], nil
}

func (m *memStore) ListSpins(ctx context.Context, userID int64, limit int) ([]domain.SpinRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var res []domain.SpinRecord
	for i := len(m.spins) - 1; i >= 0; i-- {
		s := m.spins[i]
		if s.UserID == userID && len(res) < limit {
			res = append(res, s)
		}
	}
	return res, nil
}

func (m *memStore) StartFarming(ctx context.Context, userID int64, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return domain.ErrNotFound
	}
	if u.FarmingStartedAt != nil {
		return domain.ErrAlreadyFarming
	}
	u.FarmingStartedAt = &now
	return nil
}

func (m *memStore) ClaimFarming(ctx context.Context, c domain.FarmingClaim) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := m.users[c.UserID]
	if u.FarmingStartedAt == nil || !u.FarmingStartedAt.Equal(c.StartedAt) {
		return 0, domain.ErrNotFarming
	}
	u.FarmingStartedAt = nil
	u.Balance += c.Reward
	if c.Reward > 0 {
		m.txs = append(m.txs, domain.Transaction{ID: m.id(), UserID: c.UserID, Type: domain.TxTypeFarmingClaim, Amount: c.Reward})
	}
	return u.Balance, nil
}

func (m *memStore) CommitCheckIn(ctx context.Context, c domain.CheckIn) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := m.users[c.UserID]
	same := (u.LastCheckIn == nil && c.PrevCheckIn == nil) ||
		(u.LastCheckIn != nil && c.PrevCheckIn != nil && u.LastCheckIn.Equal(*c.PrevCheckIn))
	if !same || u.Streak != c.PrevStreak {
		return 0, domain.ErrConflict
	}
	if c.UseStreakShield {
		if m.items[c.UserID][domain.ItemStreakShield] < 1 {
			return 0, domain.ErrConflict
		}
		m.items[c.UserID][domain.ItemStreakShield]--
	}
	now := c.Now
	u.LastCheckIn = &now
	u.Streak = c.NewStreak
	u.Balance += c.Reward
	m.txs = append(m.txs, domain.Transaction{ID: m.id(), UserID: c.UserID, Type: domain.TxTypeCheckIn, Amount: c.Reward})
	return u.Balance, nil
}

func (m *memStore) ResolveBattle(ctx context.Context, req domain.BattleRequest, decide domain.BattleDecider) (*domain.BattleCommit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, okA := m.users[req.AttackerID]
	d, okD := m.users[req.DefenderID]
	if !okA || !okD {
		return nil, domain.ErrNotFound
	}
	ac, dc := *a, *d
	st := &domain.BattleState{Attacker: &ac, Defender: &dc, DefenderItems: domain.Inventory{}}
	for k, v := range m.items[req.DefenderID] {
		if v > 0 {
			st.DefenderItems[k] = v
		}
	}
	if req.Revenge {
		for _, b := range m.battles {
			if b.AttackerID == req.DefenderID && b.DefenderID == req.AttackerID && !b.IsRevenge && b.Result.GrantsRevenge() {
				st.HasRevengeRight = true
			}
		}
	}

	commit, err := decide(st)
	if err != nil {
		return nil, err
	}
	for _, use := range commit.ItemUses {
		if m.items[use.UserID][use.Kind] < 1 {
			return nil, domain.ErrItemMissing
		}
	}
	bals, err := m.applyLocked(commit.Postings)
	if err != nil {
		return nil, err
	}
	for _, use := range commit.ItemUses {
		m.items[use.UserID][use.Kind]--
	}

	commit.AttackerBalance = a.Balance
	if bal, ok := bals[req.AttackerID]; ok {
		commit.AttackerBalance = bal
	}
	heist := commit.HeistAt
	a.LastHeistAt = &heist
	if commit.Log.Result == domain.BattleWin {
		a.PvpWins++
		a.PvpTotalStolen += commit.Stolen
	}
	commit.Log.ID = m.id()
	m.battles = append(m.battles, commit.Log)
	for i := range commit.Notifications {
		n := &commit.Notifications[i]
		n.ID = m.id()
		cp := *n
		m.notifications[n.ID] = &cp
	}
	if commit.MarkRead != nil {
		if n, ok := m.notifications[*commit.MarkRead]; ok && n.UserID == req.AttackerID {
			n.IsRead = true
		}
	}
	return commit, nil
}

func (m *memStore) ListBattles(ctx context.Context, userID int64, limit int) ([]domain.BattleLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var res []domain.BattleLog
	for i := len(m.battles) - 1; i >= 0; i-- {
		b := m.battles[i]
		if (b.AttackerID == userID || b.DefenderID == userID) && len(res) < limit {
			res = append(res, b)
		}
	}
	return res, nil
}

func (m *memStore) TopRaiders(ctx context.Context, limit int) ([]domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var res []domain.User
	for _, u := range m.users {
		if u.PvpWins > 0 && !u.IsBanned {
			res = append(res, *u)
		}
	}
	slices.SortFunc(res, func(a, b domain.User) int {
		switch {
		case a.PvpTotalStolen > b.PvpTotalStolen:
			return -1
		case a.PvpTotalStolen < b.PvpTotalStolen:
			return 1
		}
		return 0
	})
	if len(res) > limit {
		res = res[:limit]
	}
	return res, nil
}

func (m *memStore) SubmitWithdrawal(ctx context.Context, sub *domain.WithdrawalSubmit) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w := &sub.Withdrawal
	active := 0
	for _, existing := range m.withdrawals {
		if existing.TxHash == w.TxHash {
			return 0, domain.ErrDuplicateReference
		}
		if existing.UserID == w.UserID && !existing.Status.IsTerminal() {
			active++
		}
	}
	if sub.MaxPending > 0 && active >= sub.MaxPending {
		return 0, domain.ErrTooManyPending
	}
	bals, err := m.applyLocked([]domain.Posting{{UserID: w.UserID, Delta: -w.Amount, Type: domain.TxTypeWithdrawal}})
	if err != nil {
		return 0, err
	}
	w.ID = m.id()
	w.Status = domain.WithdrawalStatusPending
	w.CreatedAt = time.Now()
	cp := *w
	m.withdrawals[w.ID] = &cp
	sub.Notification = m.storeNotification(sub.Notification, w.CreatedAt)
	return bals[w.UserID], nil
}

func (m *memStore) ProcessWithdrawal(ctx context.Context, d domain.WithdrawalDecision) (*domain.ProcessedWithdrawal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.withdrawals[d.WithdrawalID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if !w.Status.Processable() {
		return nil, domain.ErrAlreadyProcessed
	}
	next := *w
	at := d.ProcessedAt
	next.ProcessedAt = &at
	next.AdminNote = d.Note
	next.Status = domain.WithdrawalStatusCompleted
	if d.Action == domain.WithdrawReject {
		next.Status = domain.WithdrawalStatusFailed
		if _, err := m.applyLocked([]domain.Posting{{UserID: w.UserID, Delta: w.Amount, Type: domain.TxTypeWithdrawalRefund}}); err != nil {
			return nil, err
		}
	}
	*w = next
	cp := next
	out := &domain.ProcessedWithdrawal{Withdrawal: &cp}
	if d.Notify != nil {
		n := m.storeNotification(d.Notify(&cp), at)
		out.Notification = &n
	}
	return out, nil
}

// storeNotification assigns the id and timestamp the database would.
func (m *memStore) storeNotification(n domain.Notification, at time.Time) domain.Notification {
	n.ID = m.id()
	n.CreatedAt = at
	cp := n
	m.notifications[n.ID] = &cp
	return n
}

func (m *memStore) GetWithdrawal(ctx context.Context, id int64) (*domain.Withdrawal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.withdrawals[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *w
	return &cp, nil
}

func (m *memStore) ListWithdrawals(ctx context.Context, userID int64, limit int) ([]domain.Withdrawal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var res []domain.Withdrawal
	for _, w := range m.withdrawals {
		if w.UserID == userID {
			res = append(res, *w)
		}
	}
	return res, nil
}

func (m *memStore) ListPendingWithdrawals(ctx context.Context, limit int) ([]domain.Withdrawal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var res []domain.Withdrawal
	for _, w := range m.withdrawals {
		if !w.Status.IsTerminal() {
			res = append(res, *w)
		}
	}
	return res, nil
}

func (m *memStore) ListTransactions(ctx context.Context, userID int64, limit int) ([]*domain.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var res []*domain.Transaction
	for i := len(m.txs) - 1; i >= 0 && len(res) < limit; i-- {
		if m.txs[i].UserID == userID {
			tx := m.txs[i]
			res = append(res, &tx)
		}
	}
	return res, nil
}

// recordingNotifier captures deliveries for assertions.
type recordingNotifier struct {
	mu     sync.Mutex
	sent   []domain.Notification
	admins []int64
}

func (r *recordingNotifier) NotifyUser(ctx context.Context, tgID int64, n domain.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, n)
}

func (r *recordingNotifier) NotifyAdminsNewWithdrawal(ctx context.Context, user *domain.User, w *domain.Withdrawal) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.admins = append(r.admins, w.ID)
}

func (r *recordingNotifier) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, n := range r.sent {
		out = append(out, n.Type)
	}
	return out
}

func fixedClock(t time.Time) Clock {
	return func() time.Time { return t }
}

// movableClock lets a test advance time between calls.
type movableClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *movableClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *movableClock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func (m *memStore) ListNotifications(ctx context.Context, userID int64, limit int) ([]domain.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var res []domain.Notification
	for _, n := range m.notifications {
		if n.UserID == userID && !n.IsRead {
			res = append(res, *n)
		}
	}
	slices.SortFunc(res, func(a, b domain.Notification) int { return int(b.ID - a.ID) })
	if len(res) > limit {
		res = res[:limit]
	}
	return res, nil
}

func (m *memStore) MarkNotificationRead(ctx context.Context, userID, notificationID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.notifications[notificationID]
	if !ok || n.UserID != userID {
		return domain.ErrNotFound
	}
	n.IsRead = true
	return nil
}

package quota

import (
	"sync"
	"time"

	domain "github.com/numgate/numgate/pkg/domain/quota"
)

const counterDayFormat = "2006-01-02"

var _ domain.Ledger = (*MemoryLedger)(nil)

// Config carries the quota policy the ledger enforces.
type Config struct {
	// DailyLimit is the number of lookups a user gets per window.
	DailyLimit int
	// Window is the replenishment period.
	Window time.Duration
	// AdminID is always treated as unlimited.
	AdminID int64
}

type record struct {
	remaining     int
	windowResetAt time.Time
}

type refEdge struct {
	referrer int64
	referred int64
}

// MemoryLedger is the in-process implementation of domain.Ledger. A single
// mutex guards the tables; every operation is a near-instant map access so
// coarse locking is enough to serialize overlapping consume/refund pairs for
// the same user.
type MemoryLedger struct {
	mu  sync.Mutex
	cfg Config
	now func() time.Time

	users     map[int64]*record
	grants    map[int64]time.Time // zero value means forever
	referrals map[refEdge]struct{}
	bans      map[int64]string

	consumedToday int64
	counterDay    string
}

type LedgerOption func(*MemoryLedger)

// WithLedgerTimeProvider overrides the clock, for tests.
func WithLedgerTimeProvider(now func() time.Time) LedgerOption {
	return func(l *MemoryLedger) {
		l.now = now
	}
}

func NewMemoryLedger(cfg Config, opts ...LedgerOption) *MemoryLedger {
	l := &MemoryLedger{
		cfg:       cfg,
		now:       time.Now,
		users:     make(map[int64]*record),
		grants:    make(map[int64]time.Time),
		referrals: make(map[refEdge]struct{}),
		bans:      make(map[int64]string),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.counterDay = l.now().UTC().Format(counterDayFormat)
	return l
}

// ensure returns the user's record, lazily initializing it at the daily
// limit and applying the window reset. Caller must hold the mutex.
func (l *MemoryLedger) ensure(userID int64) *record {
	now := l.now()
	rec, ok := l.users[userID]
	if !ok {
		rec = &record{
			remaining:     l.cfg.DailyLimit,
			windowResetAt: now.Add(l.cfg.Window),
		}
		l.users[userID] = rec
		return rec
	}
	if !now.Before(rec.windowResetAt) {
		rec.remaining = l.cfg.DailyLimit
		rec.windowResetAt = now.Add(l.cfg.Window)
	}
	return rec
}

// unlimited reports whether the user bypasses quota checks, removing an
// expired grant on the way. Caller must hold the mutex.
func (l *MemoryLedger) unlimited(userID int64) bool {
	if userID == l.cfg.AdminID {
		return true
	}
	until, ok := l.grants[userID]
	if !ok {
		return false
	}
	if until.IsZero() {
		return true
	}
	if l.now().Before(until) {
		return true
	}
	delete(l.grants, userID)
	return false
}

func (l *MemoryLedger) Remaining(userID int64) (int, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.unlimited(userID) {
		return 0, true
	}
	return l.ensure(userID).remaining, false
}

func (l *MemoryLedger) IsUnlimited(userID int64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.unlimited(userID)
}

func (l *MemoryLedger) TryConsume(userID int64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.bumpCounter()
	if l.unlimited(userID) {
		l.consumedToday++
		return true
	}
	rec := l.ensure(userID)
	if rec.remaining <= 0 {
		return false
	}
	rec.remaining--
	l.consumedToday++
	return true
}

func (l *MemoryLedger) Refund(userID int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.unlimited(userID) {
		return
	}
	l.ensure(userID).remaining++
	if l.consumedToday > 0 {
		l.consumedToday--
	}
}

func (l *MemoryLedger) GrantUnlimited(userID int64, d time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if d <= 0 {
		l.grants[userID] = time.Time{}
		return
	}
	l.grants[userID] = l.now().Add(d)
}

func (l *MemoryLedger) RevokeUnlimited(userID int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.grants, userID)
}

func (l *MemoryLedger) AddCredits(userID int64, amount int) {
	if amount <= 0 {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ensure(userID).remaining += amount
}

func (l *MemoryLedger) CreditReferral(referrerID, referredID int64, amount int) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if referrerID == referredID {
		return false
	}
	if _, banned := l.bans[referrerID]; banned {
		return false
	}
	edge := refEdge{referrer: referrerID, referred: referredID}
	if _, seen := l.referrals[edge]; seen {
		return false
	}
	l.referrals[edge] = struct{}{}
	if !l.unlimited(referrerID) {
		l.ensure(referrerID).remaining += amount
	}
	return true
}

func (l *MemoryLedger) Ban(userID int64, reason string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.bans[userID] = reason
}

func (l *MemoryLedger) Unban(userID int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.bans, userID)
}

func (l *MemoryLedger) IsBanned(userID int64) (bool, string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	reason, ok := l.bans[userID]
	return ok, reason
}

func (l *MemoryLedger) KnownUsers() []int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	ids := make([]int64, 0, len(l.users))
	for id := range l.users {
		ids = append(ids, id)
	}
	return ids
}

func (l *MemoryLedger) Stats() domain.Stats {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.bumpCounter()
	active := 0
	now := l.now()
	for _, until := range l.grants {
		if until.IsZero() || now.Before(until) {
			active++
		}
	}
	return domain.Stats{
		KnownUsers:    len(l.users),
		BannedUsers:   len(l.bans),
		ActiveGrants:  active,
		ConsumedToday: l.consumedToday,
	}
}

// bumpCounter rolls the daily consumption counter over at UTC midnight.
// Caller must hold the mutex.
func (l *MemoryLedger) bumpCounter() {
	day := l.now().UTC().Format(counterDayFormat)
	if day != l.counterDay {
		l.counterDay = day
		l.consumedToday = 0
	}
}

func (l *MemoryLedger) Snapshot() *domain.Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()

	snap := &domain.Snapshot{
		Users:         make(map[int64]domain.UserState, len(l.users)),
		Grants:        make(map[int64]time.Time, len(l.grants)),
		Referrals:     make([]domain.Edge, 0, len(l.referrals)),
		Bans:          make(map[int64]string, len(l.bans)),
		ConsumedToday: l.consumedToday,
		CounterDay:    l.counterDay,
	}
	for id, rec := range l.users {
		snap.Users[id] = domain.UserState{
			Remaining:     rec.remaining,
			WindowResetAt: rec.windowResetAt,
		}
	}
	for id, until := range l.grants {
		snap.Grants[id] = until
	}
	for edge := range l.referrals {
		snap.Referrals = append(snap.Referrals, domain.Edge{
			ReferrerID: edge.referrer,
			ReferredID: edge.referred,
		})
	}
	for id, reason := range l.bans {
		snap.Bans[id] = reason
	}
	return snap
}

func (l *MemoryLedger) Restore(snap *domain.Snapshot) {
	if snap == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	l.users = make(map[int64]*record, len(snap.Users))
	for id, state := range snap.Users {
		l.users[id] = &record{
			remaining:     state.Remaining,
			windowResetAt: state.WindowResetAt,
		}
	}
	l.grants = make(map[int64]time.Time, len(snap.Grants))
	for id, until := range snap.Grants {
		l.grants[id] = until
	}
	l.referrals = make(map[refEdge]struct{}, len(snap.Referrals))
	for _, edge := range snap.Referrals {
		l.referrals[refEdge{referrer: edge.ReferrerID, referred: edge.ReferredID}] = struct{}{}
	}
	l.bans = make(map[int64]string, len(snap.Bans))
	for id, reason := range snap.Bans {
		l.bans[id] = reason
	}
	l.consumedToday = snap.ConsumedToday
	if snap.CounterDay != "" {
		l.counterDay = snap.CounterDay
	}
}

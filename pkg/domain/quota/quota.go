package quota

import "time"

// Ledger tracks per-user lookup credits, unlimited-access grants, referral
// bonuses and the ban set. Implementations must be safe for concurrent use;
// consume/refund for a single user must be serialized so that overlapping
// requests cannot both spend the same unit.
type Ledger interface {
	// Remaining returns the units left for the user within the current
	// window. The second return is true when the user is exempt from
	// quota checks entirely, in which case the count is meaningless.
	Remaining(userID int64) (int, bool)

	// IsUnlimited reports whether the user is the configured administrator
	// or holds an unexpired unlimited grant. Expired grants are removed on
	// check.
	IsUnlimited(userID int64) bool

	// TryConsume spends one unit. It returns false without mutation when
	// no units remain and the user is not unlimited. Consuming is a no-op
	// for unlimited users but still returns true.
	TryConsume(userID int64) bool

	// Refund gives back one unit after a consumed lookup failed in
	// transit. No-op for unlimited users.
	Refund(userID int64)

	// GrantUnlimited exempts the user from quota checks for the given
	// duration. A non-positive duration means forever. Overwrites any
	// prior grant.
	GrantUnlimited(userID int64, d time.Duration)

	// RevokeUnlimited removes a grant; quota rules apply again afterwards.
	RevokeUnlimited(userID int64)

	// AddCredits adds units to the user's current window.
	AddCredits(userID int64, amount int)

	// CreditReferral records the (referrer, referred) edge and credits the
	// referrer. Returns false without mutation when the edge already
	// exists, when referrer == referred, or when the referrer is banned.
	CreditReferral(referrerID, referredID int64, amount int) bool

	Ban(userID int64, reason string)
	Unban(userID int64)
	// IsBanned returns the ban state and the recorded reason.
	IsBanned(userID int64) (bool, string)

	// KnownUsers returns every user id the ledger has seen, for broadcast.
	KnownUsers() []int64

	Stats() Stats

	// Snapshot exports the ledger state for persistence; Restore replaces
	// the ledger state with a previously exported snapshot.
	Snapshot() *Snapshot
	Restore(s *Snapshot)
}

// Stats is an aggregate read-only view over the ledger.
type Stats struct {
	KnownUsers    int   `json:"known_users"`
	BannedUsers   int   `json:"banned_users"`
	ActiveGrants  int   `json:"active_grants"`
	ConsumedToday int64 `json:"consumed_today"`
}

// UserState is the persisted form of a single quota record.
type UserState struct {
	Remaining     int       `json:"remaining"`
	WindowResetAt time.Time `json:"window_reset_at"`
}

// Edge is a recorded referral attribution, unique per pair.
type Edge struct {
	ReferrerID int64 `json:"referrer_id"`
	ReferredID int64 `json:"referred_id"`
}

// Snapshot is the durable form of the whole ledger, written as a flat JSON
// file and reloaded verbatim at startup. Writes are best-effort.
type Snapshot struct {
	Users         map[int64]UserState `json:"users"`
	Grants        map[int64]time.Time `json:"grants"`
	Referrals     []Edge              `json:"referrals"`
	Bans          map[int64]string    `json:"bans"`
	ConsumedToday int64               `json:"consumed_today"`
	CounterDay    string              `json:"counter_day"`
}

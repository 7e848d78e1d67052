package admin

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/numgate/numgate/pkg/domain/history"
	quotadomain "github.com/numgate/numgate/pkg/domain/quota"
	"github.com/numgate/numgate/pkg/infra/metrics"
)

// Stats is the aggregate view served to administrators.
type Stats struct {
	TotalLookups  int64                 `json:"total_lookups"`
	LookupsToday  int64                 `json:"lookups_today"`
	KnownUsers    int                   `json:"known_users"`
	BannedUsers   int                   `json:"banned_users"`
	ActiveGrants  int                   `json:"active_grants"`
	ConsumedToday int64                 `json:"consumed_today"`
	TopNumbers    []history.NumberCount `json:"top_numbers"`
}

// Service exposes the administrative operations over the ledger and the
// history. Callers are authenticated at the transport layer; the service
// itself performs no permission checks.
type Service struct {
	ledger  quotadomain.Ledger
	history history.Repository
	logger  *logrus.Logger
}

func NewService(ledger quotadomain.Ledger, historyRepo history.Repository, logger *logrus.Logger) *Service {
	return &Service{
		ledger:  ledger,
		history: historyRepo,
		logger:  logger,
	}
}

// GrantUnlimited exempts the user from quota for the duration; non-positive
// means forever.
func (s *Service) GrantUnlimited(userID int64, d time.Duration) {
	s.ledger.GrantUnlimited(userID, d)
	s.logger.WithFields(logrus.Fields{"user_id": userID, "duration": d}).Info("unlimited access granted")
}

func (s *Service) RevokeUnlimited(userID int64) {
	s.ledger.RevokeUnlimited(userID)
	s.logger.WithField("user_id", userID).Info("unlimited access revoked")
}

func (s *Service) AddCredits(userID int64, amount int) {
	s.ledger.AddCredits(userID, amount)
	s.logger.WithFields(logrus.Fields{"user_id": userID, "amount": amount}).Info("credits added")
}

func (s *Service) Ban(userID int64, reason string) {
	s.ledger.Ban(userID, reason)
	s.logger.WithFields(logrus.Fields{"user_id": userID, "reason": reason}).Info("user banned")
}

func (s *Service) Unban(userID int64) {
	s.ledger.Unban(userID)
	s.logger.WithField("user_id", userID).Info("user unbanned")
}

// CreditReferral attributes a new user to their referrer and pays out the
// bonus at most once per referred user.
func (s *Service) CreditReferral(referrerID, referredID int64, amount int) bool {
	ok := s.ledger.CreditReferral(referrerID, referredID, amount)
	if ok {
		metrics.ReferralCreditsTotal.Inc()
		s.logger.WithFields(logrus.Fields{
			"referrer_id": referrerID,
			"referred_id": referredID,
		}).Info("referral credited")
	}
	return ok
}

// BroadcastTargets returns every user id the ledger has seen.
func (s *Service) BroadcastTargets() []int64 {
	return s.ledger.KnownUsers()
}

func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	total, err := s.history.Count(ctx)
	if err != nil {
		return nil, err
	}
	midnight := time.Now().UTC().Truncate(24 * time.Hour)
	today, err := s.history.CountSince(ctx, midnight)
	if err != nil {
		return nil, err
	}
	top, err := s.history.TopNumbers(ctx, 10)
	if err != nil {
		return nil, err
	}

	ls := s.ledger.Stats()
	return &Stats{
		TotalLookups:  total,
		LookupsToday:  today,
		KnownUsers:    ls.KnownUsers,
		BannedUsers:   ls.BannedUsers,
		ActiveGrants:  ls.ActiveGrants,
		ConsumedToday: ls.ConsumedToday,
		TopNumbers:    top,
	}, nil
}

package lookup

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/numgate/numgate/pkg/domain/history"
	lookupdomain "github.com/numgate/numgate/pkg/domain/lookup"
	quotadomain "github.com/numgate/numgate/pkg/domain/quota"
	"github.com/numgate/numgate/pkg/infra/metrics"
)

// Status is the terminal state of one lookup request.
type Status int

const (
	StatusSuccess Status = iota
	StatusBanned
	StatusInvalidInput
	StatusQuotaExhausted
	StatusTransportFailed
	StatusNotFound
)

// Outcome is what the transport renders back to the user. Text content is
// semantic only; markup is left to the transport.
type Outcome struct {
	Status    Status
	Number    string
	Result    *lookupdomain.Result
	Remaining int
	Unlimited bool
	BanReason string
}

// Fetcher is the gateway seam, narrowed to what the orchestrator needs.
type Fetcher interface {
	Fetch(ctx context.Context, number string) (*lookupdomain.Result, error)
}

// Config bounds the accepted number length.
type Config struct {
	MinDigits int
	MaxDigits int
}

// Orchestrator runs the per-request state machine: ban check, input
// normalization, quota consume, fetch, refund-or-keep, history append.
type Orchestrator struct {
	ledger  quotadomain.Ledger
	fetcher Fetcher
	history history.Repository
	pattern *regexp.Regexp
	logger  *logrus.Logger
}

func NewOrchestrator(
	cfg Config,
	ledger quotadomain.Ledger,
	fetcher Fetcher,
	historyRepo history.Repository,
	logger *logrus.Logger,
) *Orchestrator {
	minDigits := cfg.MinDigits
	if minDigits <= 0 {
		minDigits = 7
	}
	maxDigits := cfg.MaxDigits
	if maxDigits <= 0 {
		maxDigits = 15
	}
	if maxDigits < minDigits {
		maxDigits = minDigits
	}
	return &Orchestrator{
		ledger:  ledger,
		fetcher: fetcher,
		history: historyRepo,
		pattern: regexp.MustCompile(fmt.Sprintf(`[0-9]{%d,%d}`, minDigits, maxDigits)),
		logger:  logger,
	}
}

// Remaining exposes the user's current quota standing for display.
func (o *Orchestrator) Remaining(userID int64) (int, bool) {
	return o.ledger.Remaining(userID)
}

// NormalizeNumber extracts the first digit run of accepted length from free
// text, after removing the usual phone-number separators.
func (o *Orchestrator) NormalizeNumber(raw string) (string, bool) {
	cleaned := strings.NewReplacer("+", "", "-", "", " ", "", "(", "", ")", "", ".", "").Replace(raw)
	match := o.pattern.FindString(cleaned)
	return match, match != ""
}

// HandleLookup processes one request end to end. Every path is terminal; no
// error escapes as a fault.
func (o *Orchestrator) HandleLookup(ctx context.Context, userID int64, username, raw string) Outcome {
	log := o.logger.WithFields(logrus.Fields{
		"request_id": uuid.New().String(),
		"user_id":    userID,
	})

	if banned, reason := o.ledger.IsBanned(userID); banned {
		metrics.LookupsTotal.WithLabelValues(metrics.OutcomeBanned).Inc()
		return Outcome{Status: StatusBanned, BanReason: reason}
	}

	number, ok := o.NormalizeNumber(raw)
	if !ok {
		metrics.LookupsTotal.WithLabelValues(metrics.OutcomeInvalid).Inc()
		return Outcome{Status: StatusInvalidInput}
	}
	log = log.WithField("number", number)

	// Consume eagerly; a transport failure below refunds the unit.
	if !o.ledger.TryConsume(userID) {
		metrics.LookupsTotal.WithLabelValues(metrics.OutcomeRejected).Inc()
		log.Info("lookup rejected, quota exhausted")
		return Outcome{Status: StatusQuotaExhausted}
	}

	res, err := o.fetcher.Fetch(ctx, number)
	if err != nil {
		if lookupdomain.IsNotFound(err) {
			// A completed search counts, fruitful or not.
			metrics.LookupsTotal.WithLabelValues(metrics.OutcomeNotFound).Inc()
			remaining, unlimited := o.ledger.Remaining(userID)
			log.Info("lookup completed with no data")
			return Outcome{Status: StatusNotFound, Number: number, Remaining: remaining, Unlimited: unlimited}
		}
		o.ledger.Refund(userID)
		metrics.LookupsTotal.WithLabelValues(metrics.OutcomeTransport).Inc()
		log.WithError(err).Warn("lookup failed in transit, unit refunded")
		remaining, unlimited := o.ledger.Remaining(userID)
		return Outcome{Status: StatusTransportFailed, Number: number, Remaining: remaining, Unlimited: unlimited}
	}

	if err := o.history.Append(ctx, history.Entry{
		UserID:    userID,
		Username:  username,
		Number:    number,
		CreatedAt: time.Now().UTC(),
	}); err != nil {
		log.WithError(err).Warn("failed to record search history")
	}

	metrics.LookupsTotal.WithLabelValues(metrics.OutcomeSuccess).Inc()
	remaining, unlimited := o.ledger.Remaining(userID)
	log.Info("lookup succeeded")
	return Outcome{
		Status:    StatusSuccess,
		Number:    number,
		Result:    res,
		Remaining: remaining,
		Unlimited: unlimited,
	}
}

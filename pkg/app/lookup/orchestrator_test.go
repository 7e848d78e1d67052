package lookup_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	applookup "github.com/numgate/numgate/pkg/app/lookup"
	"github.com/numgate/numgate/pkg/domain/history"
	lookupdomain "github.com/numgate/numgate/pkg/domain/lookup"
	"github.com/numgate/numgate/pkg/quota"
)

type stubFetcher struct {
	fetch func(ctx context.Context, number string) (*lookupdomain.Result, error)
}

func (s *stubFetcher) Fetch(ctx context.Context, number string) (*lookupdomain.Result, error) {
	return s.fetch(ctx, number)
}

type memHistory struct {
	mu      sync.Mutex
	entries []history.Entry
}

func (m *memHistory) Append(_ context.Context, e history.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, e)
	return nil
}

func (m *memHistory) Recent(_ context.Context, userID int64, limit int) ([]history.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []history.Entry
	for i := len(m.entries) - 1; i >= 0 && len(out) < limit; i-- {
		if m.entries[i].UserID == userID {
			out = append(out, m.entries[i])
		}
	}
	return out, nil
}

func (m *memHistory) TopNumbers(context.Context, int) ([]history.NumberCount, error) {
	return nil, nil
}
func (m *memHistory) Count(context.Context) (int64, error)                { return 0, nil }
func (m *memHistory) CountSince(context.Context, time.Time) (int64, error) { return 0, nil }
func (m *memHistory) Close() error                                         { return nil }

func successResult(number string) *lookupdomain.Result {
	return &lookupdomain.Result{
		Number: number,
		Records: []lookupdomain.Record{
			{Fields: []lookupdomain.Field{{Key: "name", Value: "Jordan"}}},
		},
	}
}

func newOrchestrator(limit int, fetch func(ctx context.Context, number string) (*lookupdomain.Result, error)) (*applookup.Orchestrator, *quota.MemoryLedger, *memHistory) {
	ledger := quota.NewMemoryLedger(quota.Config{DailyLimit: limit, Window: 24 * time.Hour})
	hist := &memHistory{}
	orch := applookup.NewOrchestrator(
		applookup.Config{MinDigits: 7, MaxDigits: 15},
		ledger,
		&stubFetcher{fetch: fetch},
		hist,
		logrus.New(),
	)
	return orch, ledger, hist
}

func TestHandleLookup_SuccessDecrementsAndRecords(t *testing.T) {
	orch, _, hist := newOrchestrator(3, func(_ context.Context, number string) (*lookupdomain.Result, error) {
		return successResult(number), nil
	})
	ctx := context.Background()

	// Three successful lookups on distinct keys leave 2, 1, 0 units.
	for i, raw := range []string{"9798423774", "9812345670", "9900112233"} {
		out := orch.HandleLookup(ctx, 100, "jordan", raw)
		require.Equal(t, applookup.StatusSuccess, out.Status)
		assert.Equal(t, 2-i, out.Remaining)
	}

	// The fourth attempt is rejected without a further decrement.
	out := orch.HandleLookup(ctx, 100, "jordan", "9700000000")
	assert.Equal(t, applookup.StatusQuotaExhausted, out.Status)

	recent, err := hist.Recent(ctx, 100, 10)
	require.NoError(t, err)
	assert.Len(t, recent, 3, "only completed successful lookups are recorded")
}

func TestHandleLookup_TransportFailureRefunds(t *testing.T) {
	orch, ledger, _ := newOrchestrator(3, func(_ context.Context, number string) (*lookupdomain.Result, error) {
		return nil, lookupdomain.NewTransportError(number, errors.New("timeout"))
	})

	before, _ := ledger.Remaining(100)
	out := orch.HandleLookup(context.Background(), 100, "jordan", "9798423774")
	after, _ := ledger.Remaining(100)

	assert.Equal(t, applookup.StatusTransportFailed, out.Status)
	assert.Equal(t, before, after, "transport failure must be quota-neutral")
}

func TestHandleLookup_NotFoundConsumesUnit(t *testing.T) {
	orch, ledger, hist := newOrchestrator(3, func(_ context.Context, number string) (*lookupdomain.Result, error) {
		return nil, lookupdomain.NewNotFoundError(number)
	})

	before, _ := ledger.Remaining(100)
	out := orch.HandleLookup(context.Background(), 100, "jordan", "9798423774")
	after, _ := ledger.Remaining(100)

	assert.Equal(t, applookup.StatusNotFound, out.Status)
	assert.Equal(t, before-1, after, "a completed fruitless search still counts")
	recent, _ := hist.Recent(context.Background(), 100, 10)
	assert.Empty(t, recent)
}

func TestHandleLookup_BannedShortCircuits(t *testing.T) {
	called := false
	orch, ledger, _ := newOrchestrator(3, func(_ context.Context, number string) (*lookupdomain.Result, error) {
		called = true
		return successResult(number), nil
	})
	ledger.Ban(100, "abuse")

	out := orch.HandleLookup(context.Background(), 100, "jordan", "9798423774")

	assert.Equal(t, applookup.StatusBanned, out.Status)
	assert.Equal(t, "abuse", out.BanReason)
	assert.False(t, called, "ban check precedes everything else")
	remaining, _ := ledger.Remaining(100)
	assert.Equal(t, 3, remaining)
}

func TestHandleLookup_InvalidInput(t *testing.T) {
	orch, ledger, _ := newOrchestrator(3, func(_ context.Context, number string) (*lookupdomain.Result, error) {
		t.Fatal("fetcher must not be called for invalid input")
		return nil, nil
	})

	for _, raw := range []string{"", "hello there", "12345", "call me maybe"} {
		out := orch.HandleLookup(context.Background(), 100, "jordan", raw)
		assert.Equal(t, applookup.StatusInvalidInput, out.Status, "input %q", raw)
	}
	remaining, _ := ledger.Remaining(100)
	assert.Equal(t, 3, remaining, "validation errors have no quota impact")
}

func TestHandleLookup_UnlimitedUserNeverDecrements(t *testing.T) {
	orch, ledger, _ := newOrchestrator(1, func(_ context.Context, number string) (*lookupdomain.Result, error) {
		return successResult(number), nil
	})
	ledger.GrantUnlimited(100, time.Hour)

	for i := 0; i < 5; i++ {
		out := orch.HandleLookup(context.Background(), 100, "jordan", "9798423774")
		require.Equal(t, applookup.StatusSuccess, out.Status)
		assert.True(t, out.Unlimited)
	}
}

func TestHandleLookup_ConcurrentLastUnit(t *testing.T) {
	orch, _, _ := newOrchestrator(1, func(_ context.Context, number string) (*lookupdomain.Result, error) {
		time.Sleep(10 * time.Millisecond) // hold the in-flight window open
		return successResult(number), nil
	})

	var wg sync.WaitGroup
	outcomes := make(chan applookup.Status, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(n string) {
			defer wg.Done()
			out := orch.HandleLookup(context.Background(), 100, "jordan", n)
			outcomes <- out.Status
		}([]string{"9798423774", "9812345670"}[i])
	}
	wg.Wait()
	close(outcomes)

	var success, exhausted int
	for status := range outcomes {
		switch status {
		case applookup.StatusSuccess:
			success++
		case applookup.StatusQuotaExhausted:
			exhausted++
		}
	}
	assert.Equal(t, 1, success, "exactly one request may spend the last unit")
	assert.Equal(t, 1, exhausted)
}

func TestNormalizeNumber(t *testing.T) {
	orch, _, _ := newOrchestrator(1, nil)

	tests := []struct {
		raw  string
		want string
		ok   bool
	}{
		{"9798423774", "9798423774", true},
		{"/info 9798423774", "9798423774", true},
		{"+91 97984-23774", "919798423774", true},
		{"(979) 842-3774", "9798423774", true},
		{"please check 9798423774 thanks", "9798423774", true},
		{"123456", "", false},
		{"no numbers here", "", false},
	}
	for _, tt := range tests {
		got, ok := orch.NormalizeNumber(tt.raw)
		assert.Equal(t, tt.ok, ok, "input %q", tt.raw)
		assert.Equal(t, tt.want, got, "input %q", tt.raw)
	}
}

func TestNewOrchestrator_MinAboveMaxClampsInsteadOfPanicking(t *testing.T) {
	ledger := quota.NewMemoryLedger(quota.Config{DailyLimit: 1, Window: 24 * time.Hour})
	orch := applookup.NewOrchestrator(
		applookup.Config{MinDigits: 20, MaxDigits: 15},
		ledger,
		&stubFetcher{},
		&memHistory{},
		logrus.New(),
	)

	got, ok := orch.NormalizeNumber(strings.Repeat("9", 20))
	assert.True(t, ok)
	assert.Equal(t, strings.Repeat("9", 20), got)

	_, ok = orch.NormalizeNumber("9798423774")
	assert.False(t, ok, "runs shorter than min_digits stay rejected")
}

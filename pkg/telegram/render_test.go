package telegram

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"

	appadmin "github.com/numgate/numgate/pkg/app/admin"
	applookup "github.com/numgate/numgate/pkg/app/lookup"
	"github.com/numgate/numgate/pkg/domain/history"
	lookupdomain "github.com/numgate/numgate/pkg/domain/lookup"
)

func testBot() *Bot {
	return &Bot{
		api: &tgbotapi.BotAPI{Self: tgbotapi.User{UserName: "numgate_bot"}},
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short"))

	long := strings.Repeat("x", maxMessageLen+100)
	got := truncate(long)
	assert.LessOrEqual(t, len(got), maxMessageLen)
	assert.True(t, strings.HasSuffix(got, "...[truncated]"))
}

func TestTruncateKeepsRunesWhole(t *testing.T) {
	long := strings.Repeat("имя", maxMessageLen)
	got := truncate(long)
	assert.True(t, utf8.ValidString(got))
	assert.LessOrEqual(t, len(got), maxMessageLen)
	assert.True(t, strings.HasSuffix(got, "...[truncated]"))
}

func TestParseReferralPayload(t *testing.T) {
	tests := []struct {
		payload string
		want    int64
		ok      bool
	}{
		{"ref_100", 100, true},
		{"100", 100, true},
		{"ref_", 0, false},
		{"", 0, false},
		{"ref_-5", 0, false},
		{"ref_abc", 0, false},
	}
	for _, tt := range tests {
		got, ok := parseReferralPayload(tt.payload)
		assert.Equal(t, tt.ok, ok, "payload %q", tt.payload)
		assert.Equal(t, tt.want, got, "payload %q", tt.payload)
	}
}

func TestRenderOutcome_Success(t *testing.T) {
	b := testBot()
	out := applookup.Outcome{
		Status: applookup.StatusSuccess,
		Number: "9798423774",
		Result: &lookupdomain.Result{
			Number: "9798423774",
			Records: []lookupdomain.Record{
				{Fields: []lookupdomain.Field{
					{Key: "name", Value: "Jordan"},
					{Key: "circle", Value: "Bihar"},
				}},
			},
		},
		Remaining: 2,
	}

	text := b.renderOutcome(out, 100)
	assert.Contains(t, text, "Data for 9798423774")
	assert.Contains(t, text, "name: Jordan")
	assert.Contains(t, text, "Remaining lookups: 2")
}

func TestRenderOutcome_QuotaExhaustedIncludesReferralLink(t *testing.T) {
	b := testBot()
	out := applookup.Outcome{Status: applookup.StatusQuotaExhausted}

	text := b.renderOutcome(out, 100)
	assert.Contains(t, text, "https://t.me/numgate_bot?start=ref_100")
}

func TestRenderOutcome_Banned(t *testing.T) {
	b := testBot()

	text := b.renderOutcome(applookup.Outcome{Status: applookup.StatusBanned, BanReason: "spam"}, 100)
	assert.Contains(t, text, "banned")
	assert.Contains(t, text, "spam")
}

func TestRenderOutcome_TransportKeepsCreditMessage(t *testing.T) {
	b := testBot()

	text := b.renderOutcome(applookup.Outcome{Status: applookup.StatusTransportFailed, Number: "9798423774"}, 100)
	assert.Contains(t, text, "not spent")
}

func TestRenderHistory(t *testing.T) {
	assert.Equal(t, "No lookups yet.", renderHistory(nil))

	entries := []history.Entry{
		{Number: "9798423774", CreatedAt: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)},
	}
	text := renderHistory(entries)
	assert.Contains(t, text, "9798423774")
	assert.Contains(t, text, "2025-03-01 12:00")
}

func TestRenderStats(t *testing.T) {
	text := renderStats(&appadmin.Stats{
		TotalLookups: 42,
		LookupsToday: 7,
		KnownUsers:   3,
		TopNumbers:   []history.NumberCount{{Number: "9798423774", Count: 12}},
	})
	assert.Contains(t, text, "Total lookups: 42")
	assert.Contains(t, text, "9798423774 (12)")
}

func TestHelpText(t *testing.T) {
	assert.NotContains(t, helpText(false), "/broadcast")
	assert.Contains(t, helpText(true), "/broadcast")
}

package telegram

import (
	"fmt"
	"strings"
	"unicode/utf8"

	appadmin "github.com/numgate/numgate/pkg/app/admin"
	applookup "github.com/numgate/numgate/pkg/app/lookup"
	"github.com/numgate/numgate/pkg/domain/history"
)

// maxMessageLen keeps replies under the chat platform's message size limit.
const maxMessageLen = 4000

func truncate(s string) string {
	if len(s) <= maxMessageLen {
		return s
	}
	cut := maxMessageLen - 15
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "\n\n...[truncated]"
}

func (b *Bot) renderOutcome(out applookup.Outcome, userID int64) string {
	switch out.Status {
	case applookup.StatusBanned:
		if out.BanReason != "" {
			return fmt.Sprintf("You are banned from using this bot. Reason: %s", out.BanReason)
		}
		return "You are banned from using this bot."
	case applookup.StatusInvalidInput:
		return "No valid number found in your input. Send a number of 7 to 15 digits."
	case applookup.StatusQuotaExhausted:
		return fmt.Sprintf(
			"You have used all your lookups for now.\nInvite friends to earn more: %s",
			b.referralLink(userID),
		)
	case applookup.StatusTransportFailed:
		return fmt.Sprintf("Lookup for %s failed, the sources are unreachable. Your credit was not spent, try again in a bit.", out.Number)
	case applookup.StatusNotFound:
		return fmt.Sprintf("No data found for %s.\n%s", out.Number, remainingLine(out.Remaining, out.Unlimited))
	default:
		var sb strings.Builder
		fmt.Fprintf(&sb, "Data for %s:\n", out.Number)
		for i, rec := range out.Result.Records {
			if i > 0 {
				sb.WriteString("\n")
			}
			for _, f := range rec.Fields {
				fmt.Fprintf(&sb, "• %s: %s\n", f.Key, f.Value)
			}
		}
		sb.WriteString("\n")
		sb.WriteString(remainingLine(out.Remaining, out.Unlimited))
		return sb.String()
	}
}

func (b *Bot) renderRemaining(userID int64) string {
	remaining, unlimited := b.orchestrator.Remaining(userID)
	return remainingLine(remaining, unlimited)
}

func remainingLine(remaining int, unlimited bool) string {
	if unlimited {
		return "Remaining lookups: unlimited"
	}
	return fmt.Sprintf("Remaining lookups: %d", remaining)
}

func (b *Bot) referralLink(userID int64) string {
	return fmt.Sprintf("https://t.me/%s?start=ref_%d", b.api.Self.UserName, userID)
}

func startText(botName string, userID int64) string {
	return fmt.Sprintf(
		"Number Info Bot\n\n"+
			"Send /info <number> to look up a number, or just send a message containing one.\n\n"+
			"Example: /info 9798423774\n\n"+
			"Invite friends with your link to earn bonus lookups:\n"+
			"https://t.me/%s?start=ref_%d\n\n"+
			"Respect privacy and local laws when using this bot.",
		botName, userID,
	)
}

func helpText(isAdmin bool) string {
	var sb strings.Builder
	sb.WriteString("Commands:\n")
	sb.WriteString("/info <number> - look up a number\n")
	sb.WriteString("/me - remaining lookups\n")
	sb.WriteString("/history - your recent lookups\n")
	if isAdmin {
		sb.WriteString("\nAdmin:\n")
		sb.WriteString("/grant <user_id> <duration|forever>\n")
		sb.WriteString("/revoke <user_id>\n")
		sb.WriteString("/addcredits <user_id> <amount>\n")
		sb.WriteString("/ban <user_id> [reason]\n")
		sb.WriteString("/unban <user_id>\n")
		sb.WriteString("/stats\n")
		sb.WriteString("/broadcast <message>\n")
	}
	return sb.String()
}

func renderHistory(entries []history.Entry) string {
	if len(entries) == 0 {
		return "No lookups yet."
	}
	var sb strings.Builder
	sb.WriteString("Your recent lookups:\n")
	for _, e := range entries {
		fmt.Fprintf(&sb, "• %s (%s)\n", e.Number, e.CreatedAt.Format("2006-01-02 15:04"))
	}
	return sb.String()
}

func renderStats(stats *appadmin.Stats) string {
	var sb strings.Builder
	sb.WriteString("Bot stats:\n")
	fmt.Fprintf(&sb, "Total lookups: %d\n", stats.TotalLookups)
	fmt.Fprintf(&sb, "Lookups today: %d\n", stats.LookupsToday)
	fmt.Fprintf(&sb, "Known users: %d\n", stats.KnownUsers)
	fmt.Fprintf(&sb, "Banned users: %d\n", stats.BannedUsers)
	fmt.Fprintf(&sb, "Active unlimited grants: %d\n", stats.ActiveGrants)
	if len(stats.TopNumbers) > 0 {
		sb.WriteString("Top numbers:\n")
		for _, nc := range stats.TopNumbers {
			fmt.Fprintf(&sb, "• %s (%d)\n", nc.Number, nc.Count)
		}
	}
	return sb.String()
}

package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	appadmin "github.com/numgate/numgate/pkg/app/admin"
	applookup "github.com/numgate/numgate/pkg/app/lookup"
	"github.com/numgate/numgate/pkg/domain/history"
)

// Config wires the transport-level knobs.
type Config struct {
	Token         string
	AdminID       int64
	ReferralBonus int
}

// Bot is the chat transport. It renders orchestrator outcomes to plain text
// and maps chat commands onto the admin service; it holds no quota or cache
// logic of its own.
type Bot struct {
	api           *tgbotapi.BotAPI
	orchestrator  *applookup.Orchestrator
	admin         *appadmin.Service
	history       history.Repository
	adminID       int64
	referralBonus int
	logger        *logrus.Logger
}

func NewBot(
	cfg Config,
	orchestrator *applookup.Orchestrator,
	adminService *appadmin.Service,
	historyRepo history.Repository,
	logger *logrus.Logger,
) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("telegram auth failed: %w", err)
	}
	return &Bot{
		api:           api,
		orchestrator:  orchestrator,
		admin:         adminService,
		history:       historyRepo,
		adminID:       cfg.AdminID,
		referralBonus: cfg.ReferralBonus,
		logger:        logger,
	}, nil
}

// Run polls for updates until the context is cancelled. Updates are handled
// concurrently; all shared state below the transport is concurrency-safe.
func (b *Bot) Run(ctx context.Context) error {
	b.logger.WithField("username", b.api.Self.UserName).Info("telegram bot started")

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			go b.handleUpdate(ctx, update)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	msg := update.Message
	if msg == nil || msg.From == nil {
		return
	}

	if msg.IsCommand() {
		b.handleCommand(ctx, msg)
		return
	}
	if msg.Text == "" {
		return
	}

	// Plain messages: auto-detect a number and treat it as a lookup, but
	// stay silent when there is nothing that looks like one.
	if _, ok := b.orchestrator.NormalizeNumber(msg.Text); !ok {
		return
	}
	b.runLookup(ctx, msg, msg.Text)
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	switch msg.Command() {
	case "start":
		b.handleStart(msg)
	case "help":
		b.reply(msg.Chat.ID, helpText(msg.From.ID == b.adminID))
	case "info":
		args := msg.CommandArguments()
		if strings.TrimSpace(args) == "" {
			b.reply(msg.Chat.ID, "Usage: /info <number>")
			return
		}
		b.runLookup(ctx, msg, args)
	case "me":
		b.handleMe(msg)
	case "history":
		b.handleHistory(ctx, msg)
	case "grant":
		b.adminOnly(msg, b.handleGrant)
	case "revoke":
		b.adminOnly(msg, b.handleRevoke)
	case "addcredits":
		b.adminOnly(msg, b.handleAddCredits)
	case "ban":
		b.adminOnly(msg, b.handleBan)
	case "unban":
		b.adminOnly(msg, b.handleUnban)
	case "stats":
		b.adminOnly(msg, func(m *tgbotapi.Message) { b.handleStats(ctx, m) })
	case "broadcast":
		b.adminOnly(msg, b.handleBroadcast)
	}
}

func (b *Bot) runLookup(ctx context.Context, msg *tgbotapi.Message, raw string) {
	typing := tgbotapi.NewChatAction(msg.Chat.ID, tgbotapi.ChatTyping)
	if _, err := b.api.Request(typing); err != nil {
		b.logger.WithError(err).Debug("failed to send typing action")
	}

	out := b.orchestrator.HandleLookup(ctx, msg.From.ID, msg.From.UserName, raw)
	b.reply(msg.Chat.ID, b.renderOutcome(out, msg.From.ID))
}

func (b *Bot) handleStart(msg *tgbotapi.Message) {
	payload := strings.TrimSpace(msg.CommandArguments())
	if ref, ok := parseReferralPayload(payload); ok {
		if b.admin.CreditReferral(ref, msg.From.ID, b.referralBonus) {
			b.send(ref, fmt.Sprintf("A new user joined through your link, %d bonus lookups added.", b.referralBonus))
		}
	}
	b.reply(msg.Chat.ID, startText(b.api.Self.UserName, msg.From.ID))
}

func parseReferralPayload(payload string) (int64, bool) {
	payload = strings.TrimPrefix(payload, "ref_")
	if payload == "" {
		return 0, false
	}
	id, err := strconv.ParseInt(payload, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func (b *Bot) handleMe(msg *tgbotapi.Message) {
	b.reply(msg.Chat.ID, b.renderRemaining(msg.From.ID))
}

func (b *Bot) handleHistory(ctx context.Context, msg *tgbotapi.Message) {
	entries, err := b.history.Recent(ctx, msg.From.ID, 10)
	if err != nil {
		b.logger.WithError(err).WithField("user_id", msg.From.ID).Error("failed to read history")
		b.reply(msg.Chat.ID, "Could not load your history, try again later.")
		return
	}
	b.reply(msg.Chat.ID, renderHistory(entries))
}

// adminOnly rejects non-administrators before the wrapped handler runs.
func (b *Bot) adminOnly(msg *tgbotapi.Message, fn func(*tgbotapi.Message)) {
	if msg.From.ID != b.adminID {
		b.reply(msg.Chat.ID, "Unauthorized.")
		return
	}
	fn(msg)
}

func (b *Bot) handleGrant(msg *tgbotapi.Message) {
	fields := strings.Fields(msg.CommandArguments())
	if len(fields) != 2 {
		b.reply(msg.Chat.ID, "Usage: /grant <user_id> <duration|forever>")
		return
	}
	userID, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		b.reply(msg.Chat.ID, "Invalid user id.")
		return
	}
	var d time.Duration
	if fields[1] != "forever" {
		d, err = time.ParseDuration(fields[1])
		if err != nil || d <= 0 {
			b.reply(msg.Chat.ID, "Invalid duration, use something like 1h, 24h or forever.")
			return
		}
	}
	b.admin.GrantUnlimited(userID, d)
	b.reply(msg.Chat.ID, fmt.Sprintf("User %d now has unlimited access.", userID))
	b.send(userID, "You have been granted unlimited lookups. Enjoy!")
}

func (b *Bot) handleRevoke(msg *tgbotapi.Message) {
	userID, ok := b.singleIDArg(msg, "Usage: /revoke <user_id>")
	if !ok {
		return
	}
	b.admin.RevokeUnlimited(userID)
	b.reply(msg.Chat.ID, fmt.Sprintf("Unlimited access revoked for %d.", userID))
}

func (b *Bot) handleAddCredits(msg *tgbotapi.Message) {
	fields := strings.Fields(msg.CommandArguments())
	if len(fields) != 2 {
		b.reply(msg.Chat.ID, "Usage: /addcredits <user_id> <amount>")
		return
	}
	userID, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		b.reply(msg.Chat.ID, "Invalid user id.")
		return
	}
	amount, err := strconv.Atoi(fields[1])
	if err != nil || amount <= 0 {
		b.reply(msg.Chat.ID, "Amount must be a positive number.")
		return
	}
	b.admin.AddCredits(userID, amount)
	b.reply(msg.Chat.ID, fmt.Sprintf("Added %d lookups to user %d.", amount, userID))
	b.send(userID, fmt.Sprintf("An admin added %d lookups to your account.", amount))
}

func (b *Bot) handleBan(msg *tgbotapi.Message) {
	fields := strings.Fields(msg.CommandArguments())
	if len(fields) < 1 {
		b.reply(msg.Chat.ID, "Usage: /ban <user_id> [reason]")
		return
	}
	userID, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		b.reply(msg.Chat.ID, "Invalid user id.")
		return
	}
	reason := strings.Join(fields[1:], " ")
	b.admin.Ban(userID, reason)
	b.reply(msg.Chat.ID, fmt.Sprintf("User %d banned.", userID))
}

func (b *Bot) handleUnban(msg *tgbotapi.Message) {
	userID, ok := b.singleIDArg(msg, "Usage: /unban <user_id>")
	if !ok {
		return
	}
	b.admin.Unban(userID)
	b.reply(msg.Chat.ID, fmt.Sprintf("User %d unbanned.", userID))
}

func (b *Bot) handleStats(ctx context.Context, msg *tgbotapi.Message) {
	stats, err := b.admin.Stats(ctx)
	if err != nil {
		b.logger.WithError(err).Error("failed to collect stats")
		b.reply(msg.Chat.ID, "Could not collect stats.")
		return
	}
	b.reply(msg.Chat.ID, renderStats(stats))
}

func (b *Bot) handleBroadcast(msg *tgbotapi.Message) {
	text := strings.TrimSpace(msg.CommandArguments())
	if text == "" {
		b.reply(msg.Chat.ID, "Usage: /broadcast <message>")
		return
	}
	targets := b.admin.BroadcastTargets()
	sent := 0
	for _, userID := range targets {
		if userID == msg.From.ID {
			continue
		}
		// Delivery failures (user blocked the bot) are logged, never
		// surfaced as a crash.
		if b.send(userID, text) {
			sent++
		}
	}
	b.reply(msg.Chat.ID, fmt.Sprintf("Broadcast delivered to %d of %d users.", sent, len(targets)))
}

func (b *Bot) singleIDArg(msg *tgbotapi.Message, usage string) (int64, bool) {
	fields := strings.Fields(msg.CommandArguments())
	if len(fields) != 1 {
		b.reply(msg.Chat.ID, usage)
		return 0, false
	}
	userID, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		b.reply(msg.Chat.ID, "Invalid user id.")
		return 0, false
	}
	return userID, true
}

func (b *Bot) reply(chatID int64, text string) {
	if _, err := b.api.Send(tgbotapi.NewMessage(chatID, truncate(text))); err != nil {
		b.logger.WithError(err).WithField("chat_id", chatID).Warn("failed to send message")
	}
}

// send delivers a message to a user chat, reporting success.
func (b *Bot) send(userID int64, text string) bool {
	if _, err := b.api.Send(tgbotapi.NewMessage(userID, truncate(text))); err != nil {
		b.logger.WithError(err).WithField("user_id", userID).Debug("delivery failed")
		return false
	}
	return true
}

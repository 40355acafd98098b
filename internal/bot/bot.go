package bot

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rmoroz/mexc-tracker/internal/telegram"
	"github.com/rmoroz/mexc-tracker/internal/tracker"
)

// Config holds bot settings.
type Config struct {
	PollTimeout   int           // getUpdates hold time, seconds
	CheckInterval time.Duration // Scheduled poll cadence, shown in /status and /stats
	AllowedChats  []int64       // Chats permitted to run /check; empty allows all
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		PollTimeout:   30,
		CheckInterval: 60 * time.Minute,
	}
}

// Tracker is the slice of the poll engine the bot needs.
type Tracker interface {
	TriggerCheck() (tracker.CycleResult, error)
	Status() tracker.Status
	UniqueSymbols() []string
}

// Bot answers Telegram commands with tracker state.
type Bot struct {
	cfg     Config
	client  *telegram.Client
	tracker Tracker
	logger  *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a Bot.
func New(cfg Config, client *telegram.Client, tr Tracker, logger *slog.Logger) *Bot {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bot{
		cfg:     cfg,
		client:  client,
		tracker: tr,
		logger:  logger,
	}
}

// Start verifies the token and begins the long-poll loop.
func (b *Bot) Start(ctx context.Context) error {
	me, err := b.client.GetMe(ctx)
	if err != nil {
		return fmt.Errorf("verify bot token: %w", err)
	}

	b.ctx, b.cancel = context.WithCancel(ctx)

	b.wg.Add(1)
	go b.pollLoop()

	b.logger.Info("command bot started", "username", me.Username)
	return nil
}

// Stop cancels the long-poll loop and waits for it to exit.
func (b *Bot) Stop(ctx context.Context) error {
	if b.cancel != nil {
		b.cancel()
	}

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		b.logger.Info("command bot stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// pollLoop long-polls getUpdates and dispatches commands.
func (b *Bot) pollLoop() {
	defer b.wg.Done()

	var offset int64
	for {
		if b.ctx.Err() != nil {
			return
		}

		updates, err := b.client.GetUpdates(b.ctx, offset, b.cfg.PollTimeout)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			b.logger.Error("getUpdates failed", "error", err)
			select {
			case <-b.ctx.Done():
				return
			case <-time.After(5 * time.Second):
			}
			continue
		}

		for _, upd := range updates {
			offset = upd.UpdateID + 1
			if upd.Message == nil || !strings.HasPrefix(upd.Message.Text, "/") {
				continue
			}
			b.handleCommand(upd.Message)
		}
	}
}

// handleCommand routes one command message.
func (b *Bot) handleCommand(msg *telegram.Message) {
	// "/check@MyBot arg" -> "/check"
	cmd, _, _ := strings.Cut(msg.Text, " ")
	cmd, _, _ = strings.Cut(cmd, "@")

	b.logger.Info("command received",
		"command", cmd,
		"chat_id", msg.Chat.ID,
	)

	var reply string
	switch cmd {
	case "/start":
		reply = b.startText(msg.From)
	case "/help":
		reply = helpText
	case "/status":
		reply = b.statusText()
	case "/stats":
		reply = b.statsText()
	case "/check":
		b.runCheck(msg.Chat.ID)
		return
	default:
		reply = "Unknown command. Use /help to see available commands."
	}

	b.reply(msg.Chat.ID, reply)
}

// runCheck triggers an immediate poll cycle and reports the outcome.
func (b *Bot) runCheck(chatID int64) {
	if !b.chatAllowed(chatID) {
		b.reply(chatID, "⛔ This chat is not allowed to trigger checks.")
		return
	}

	b.reply(chatID, "🔍 <b>Performing immediate check...</b>")

	res, err := b.tracker.TriggerCheck()
	if err != nil {
		b.reply(chatID, fmt.Sprintf("❌ <b>Check failed:</b>\n%s", html.EscapeString(err.Error())))
		return
	}

	symbols := b.tracker.UniqueSymbols()
	sort.Strings(symbols)

	var sb strings.Builder
	sb.WriteString("✅ <b>Check Complete!</b>\n\n")
	if len(symbols) == 0 {
		sb.WriteString("No unique futures found at the moment.")
	} else {
		fmt.Fprintf(&sb, "🎯 Found <b>%d</b> unique futures:\n\n", len(symbols))
		for i, sym := range symbols {
			if i == 10 {
				fmt.Fprintf(&sb, "• ... and %d more", len(symbols)-10)
				break
			}
			fmt.Fprintf(&sb, "• %s\n", html.EscapeString(sym))
		}
	}
	if res.Changes > 0 {
		fmt.Fprintf(&sb, "\n\n🔔 %d change(s) detected this check.", res.Changes)
	}

	b.reply(chatID, sb.String())
}

func (b *Bot) startText(from *telegram.User) string {
	name := "there"
	if from != nil && from.FirstName != "" {
		name = html.EscapeString(from.FirstName)
	}
	return fmt.Sprintf(
		"🤖 Hello %s!\n\n"+
			"I'm <b>MEXC Unique Futures Tracker</b>\n"+
			"I monitor for perpetual contracts that are available on MEXC but not on other major exchanges.\n\n"+
			"<b>Available commands:</b>\n"+
			"/start - Show this welcome message\n"+
			"/status - Check current status\n"+
			"/check - Perform immediate check\n"+
			"/stats - Show statistics\n"+
			"/help - Show help information",
		name,
	)
}

const helpText = "🆘 <b>Help - MEXC Unique Futures Tracker</b>\n\n" +
	"I monitor MEXC exchange for perpetual futures contracts that are NOT available on other major exchanges like Binance.\n\n" +
	"<b>Commands:</b>\n" +
	"/start - Welcome message\n" +
	"/status - Current status and unique futures\n" +
	"/check - Perform immediate check\n" +
	"/stats - Bot statistics\n" +
	"/help - This help message\n\n" +
	"<b>How it works:</b>\n" +
	"• I automatically check on a fixed interval\n" +
	"• You'll get notifications when new unique futures are found\n" +
	"• Use /check for immediate verification\n\n" +
	"⚡ <i>Happy trading!</i>"

func (b *Bot) statusText() string {
	status := b.tracker.Status()

	lastCheck := "Never"
	if !status.LastCommitAt.IsZero() {
		lastCheck = status.LastCommitAt.UTC().Format("2006-01-02 15:04:05 UTC")
	}

	var sb strings.Builder
	sb.WriteString("📊 <b>Current Status</b>\n\n")
	fmt.Fprintf(&sb, "🔄 Unique futures found: <b>%d</b>\n", status.UniqueCount)
	fmt.Fprintf(&sb, "⏰ Last check: %s\n", lastCheck)
	fmt.Fprintf(&sb, "🔍 Auto-check interval: %s\n", formatInterval(b.cfg.CheckInterval))
	fmt.Fprintf(&sb, "🤖 Bot uptime: %s", formatUptime(status.Stats.StartedAt))

	symbols := b.tracker.UniqueSymbols()
	if len(symbols) > 0 {
		sort.Strings(symbols)
		sb.WriteString("\n\n<b>Current unique futures:</b>\n")
		for i, sym := range symbols {
			if i == 8 {
				fmt.Fprintf(&sb, "• ... and %d more", len(symbols)-8)
				break
			}
			fmt.Fprintf(&sb, "• %s\n", html.EscapeString(sym))
		}
	}

	return sb.String()
}

func (b *Bot) statsText() string {
	status := b.tracker.Status()
	stats := status.Stats

	runningSince := "Never"
	if !stats.StartedAt.IsZero() {
		runningSince = stats.StartedAt.UTC().Format("2006-01-02 15:04:05 UTC")
	}

	return fmt.Sprintf(
		"📈 <b>Bot Statistics</b>\n\n"+
			"🔄 Checks performed: <b>%d</b>\n"+
			"🎯 Max unique found: <b>%d</b>\n"+
			"⏰ Current unique: <b>%d</b>\n"+
			"📅 Running since: %s\n"+
			"🤖 Uptime: %s\n"+
			"⚡ Auto-check: %s",
		stats.ChecksPerformed,
		stats.MaxUnique,
		status.UniqueCount,
		runningSince,
		formatUptime(stats.StartedAt),
		formatInterval(b.cfg.CheckInterval),
	)
}

func (b *Bot) chatAllowed(chatID int64) bool {
	if len(b.cfg.AllowedChats) == 0 {
		return true
	}
	for _, id := range b.cfg.AllowedChats {
		if id == chatID {
			return true
		}
	}
	return false
}

func (b *Bot) reply(chatID int64, text string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(b.ctx), 30*time.Second)
	defer cancel()

	if _, err := b.client.SendMessage(ctx, chatID, text); err != nil {
		b.logger.Error("reply failed", "chat_id", chatID, "error", err)
	}
}

// formatUptime renders elapsed time since start as "2d 3h 15m".
func formatUptime(startedAt time.Time) string {
	if startedAt.IsZero() {
		return "not started"
	}
	up := time.Since(startedAt)
	days := int(up.Hours()) / 24
	hours := int(up.Hours()) % 24
	minutes := int(up.Minutes()) % 60
	if days > 0 {
		return fmt.Sprintf("%dd %dh %dm", days, hours, minutes)
	}
	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, minutes)
	}
	return fmt.Sprintf("%dm", minutes)
}

// formatInterval renders the poll cadence in minutes, matching the
// notification footer style.
func formatInterval(d time.Duration) string {
	return fmt.Sprintf("%d minutes", int(d.Minutes()))
}

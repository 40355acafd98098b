package notify

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"

	"github.com/rmoroz/mexc-tracker/internal/model"
	"github.com/rmoroz/mexc-tracker/internal/telegram"
)

// TelegramSink sends one HTML message per change event to a chat.
type TelegramSink struct {
	client *telegram.Client
	chatID int64
}

// NewTelegramSink creates a sink for the given chat.
func NewTelegramSink(client *telegram.Client, chatID int64) *TelegramSink {
	return &TelegramSink{client: client, chatID: chatID}
}

// Name implements Sink.
func (s *TelegramSink) Name() string { return "telegram" }

// Send implements Sink.
func (s *TelegramSink) Send(ctx context.Context, change model.Change) error {
	if _, err := s.client.SendMessage(ctx, s.chatID, FormatChange(change)); err != nil {
		kind := SinkUnreachable
		var apiErr *telegram.APIError
		if errors.As(err, &apiErr) && !apiErr.IsRetryable() {
			kind = SinkRejected
		}
		return &DispatchError{Kind: kind, Sink: s.Name(), Err: err}
	}
	return nil
}

// FormatChange renders a change event as a Telegram HTML message.
func FormatChange(change model.Change) string {
	var b strings.Builder

	switch change.Kind {
	case model.ChangeAdded:
		b.WriteString("🚀 <b>NEW UNIQUE FUTURES FOUND!</b>\n\n")
		fmt.Fprintf(&b, "✅ %s\n", html.EscapeString(change.Symbol))
		if change.New != nil && change.New.MaxLeverage > 0 {
			fmt.Fprintf(&b, "📈 Max leverage: %dx\n", change.New.MaxLeverage)
		}
	case model.ChangeRemoved:
		b.WriteString("🗑 <b>Unique futures delisted or no longer unique</b>\n\n")
		fmt.Fprintf(&b, "❌ %s\n", html.EscapeString(change.Symbol))
	case model.ChangeModified:
		b.WriteString("✏️ <b>Unique futures updated</b>\n\n")
		fmt.Fprintf(&b, "• %s\n", html.EscapeString(change.Symbol))
		if change.Old != nil && change.New != nil && change.Old.State != change.New.State {
			fmt.Fprintf(&b, "State: %d → %d\n", change.Old.State, change.New.State)
		}
	}

	fmt.Fprintf(&b, "\n⏰ %s", change.CapturedAt.UTC().Format("2006-01-02 15:04:05 UTC"))
	return b.String()
}

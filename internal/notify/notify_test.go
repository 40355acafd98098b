package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/rmoroz/mexc-tracker/internal/model"
	"github.com/rmoroz/mexc-tracker/internal/telegram"
)

func testChange(kind model.ChangeKind, symbol string) model.Change {
	c := model.Change{
		ID:         uuid.New(),
		Kind:       kind,
		Symbol:     symbol,
		CapturedAt: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	val := model.Contract{Symbol: symbol, BaseCoin: strings.TrimSuffix(symbol, "_USDT"), QuoteCoin: "USDT", MaxLeverage: 50}
	switch kind {
	case model.ChangeAdded:
		c.New = &val
	case model.ChangeRemoved:
		c.Old = &val
	case model.ChangeModified:
		old := val
		old.State = 0
		mod := val
		mod.State = 2
		c.Old, c.New = &old, &mod
	}
	return c
}

// recordingSink records sent changes and optionally fails.
type recordingSink struct {
	name string
	sent []model.Change
	err  error
}

func (r *recordingSink) Name() string { return r.name }

func (r *recordingSink) Send(_ context.Context, change model.Change) error {
	if r.err != nil {
		return r.err
	}
	r.sent = append(r.sent, change)
	return nil
}

func TestFanout_DeliversToAllSinks(t *testing.T) {
	a := &recordingSink{name: "a"}
	b := &recordingSink{name: "b"}
	f := NewFanout(nil, a, b)

	if err := f.Send(context.Background(), testChange(model.ChangeAdded, "XYZ_USDT")); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if len(a.sent) != 1 || len(b.sent) != 1 {
		t.Errorf("sent counts a=%d b=%d, want 1 and 1", len(a.sent), len(b.sent))
	}
}

func TestFanout_BadSinkDoesNotStarveOthers(t *testing.T) {
	bad := &recordingSink{name: "bad", err: &DispatchError{Kind: SinkUnreachable, Sink: "bad", Err: errors.New("down")}}
	good := &recordingSink{name: "good"}
	f := NewFanout(nil, bad, good)

	err := f.Send(context.Background(), testChange(model.ChangeAdded, "XYZ_USDT"))
	if err == nil {
		t.Fatal("Send succeeded, want joined error")
	}
	if len(good.sent) != 1 {
		t.Errorf("good sink received %d events, want 1", len(good.sent))
	}
	var de *DispatchError
	if !errors.As(err, &de) {
		t.Errorf("error = %v, want to unwrap *DispatchError", err)
	}
}

func TestTelegramSink_Send(t *testing.T) {
	var gotText string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotText = r.URL.Query().Get("text")
		json.NewEncoder(w).Encode(map[string]any{
			"ok":     true,
			"result": map[string]any{"message_id": 1},
		})
	}))
	defer server.Close()

	client := telegram.NewClient("tok", telegram.WithBaseURL(server.URL))
	sink := NewTelegramSink(client, 42)

	if err := sink.Send(context.Background(), testChange(model.ChangeAdded, "XYZ_USDT")); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if !strings.Contains(gotText, "XYZ_USDT") {
		t.Errorf("message text %q does not mention the symbol", gotText)
	}
	if !strings.Contains(gotText, "NEW UNIQUE FUTURES") {
		t.Errorf("message text %q missing added headline", gotText)
	}
}

func TestTelegramSink_RejectedClassification(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]any{
			"ok":          false,
			"error_code":  400,
			"description": "Bad Request: chat not found",
		})
	}))
	defer server.Close()

	client := telegram.NewClient("tok", telegram.WithBaseURL(server.URL), telegram.WithRetries(0, time.Millisecond))
	sink := NewTelegramSink(client, 42)

	err := sink.Send(context.Background(), testChange(model.ChangeRemoved, "XYZ_USDT"))
	var de *DispatchError
	if !errors.As(err, &de) {
		t.Fatalf("error = %v, want *DispatchError", err)
	}
	if de.Kind != SinkRejected {
		t.Errorf("kind = %s, want %s", de.Kind, SinkRejected)
	}
}

func TestFormatChange_Modified(t *testing.T) {
	text := FormatChange(testChange(model.ChangeModified, "ABC_USDT"))
	if !strings.Contains(text, "ABC_USDT") {
		t.Errorf("text %q missing symbol", text)
	}
	if !strings.Contains(text, "0") || !strings.Contains(text, "2") {
		t.Errorf("text %q missing state transition", text)
	}
}

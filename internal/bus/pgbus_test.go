package bus

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/placeboard/placeboard/internal/canvas"
)

// tailStore serves canned log tails keyed by the afterAddedID cursor.
type tailStore struct {
	placements []canvas.Placement
	calls      int
}

func (s *tailStore) ScanSince(ctx context.Context, afterAddedID int64, limit int) ([]canvas.Placement, error) {
	s.calls++
	var out []canvas.Placement
	for _, p := range s.placements {
		if p.AddedID > afterAddedID {
			out = append(out, p)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *tailStore) Append(ctx context.Context, req canvas.WriteRequest) (*canvas.Placement, error) {
	panic("not used")
}

func (s *tailStore) LatestPerCell(ctx context.Context, since *time.Time) ([]canvas.Cell, error) {
	panic("not used")
}

func (s *tailStore) CountSince(ctx context.Context, actorID string, since time.Time) (int, error) {
	panic("not used")
}

func newCatchUpBus(store *tailStore, broker *Broker) *PgBus {
	return &PgBus{
		store:  store,
		broker: broker,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func TestCatchUpReplaysMissedPlacements(t *testing.T) {
	actor := "alice"
	store := &tailStore{placements: []canvas.Placement{
		{AddedID: 5, X: 0, Y: 0, Color: "#000000"},
		{AddedID: 6, X: 1, Y: 1, Color: "#111111", ActorID: &actor, CreatedAt: time.UnixMilli(1700000000000)},
		{AddedID: 7, X: 2, Y: 2, Color: "#222222"},
	}}
	broker := NewBroker(8, nil)
	ch, cancel := broker.Subscribe()
	defer cancel()

	b := newCatchUpBus(store, broker)
	b.lastSeen = 5

	if err := b.catchUp(context.Background()); err != nil {
		t.Fatalf("catchUp: %v", err)
	}

	// Only placements after the watermark are replayed, in log order.
	first := <-ch
	if first.AddedID != 6 || first.Color != "#111111" {
		t.Errorf("first replayed event = %+v, want added_id 6", first)
	}
	if first.UserID == nil || *first.UserID != "alice" {
		t.Errorf("UserID = %v, want alice", first.UserID)
	}
	if first.CreatedAt != 1700000000000 {
		t.Errorf("CreatedAt = %d, want 1700000000000", first.CreatedAt)
	}
	second := <-ch
	if second.AddedID != 7 {
		t.Errorf("second replayed event = %+v, want added_id 7", second)
	}
	if len(ch) != 0 {
		t.Errorf("%d extra events replayed", len(ch))
	}

	if b.lastSeen != 7 {
		t.Errorf("lastSeen = %d, want 7", b.lastSeen)
	}
}

func TestCatchUpWithoutWatermarkDoesNothing(t *testing.T) {
	store := &tailStore{placements: []canvas.Placement{{AddedID: 1, Color: "#000000"}}}
	broker := NewBroker(8, nil)
	b := newCatchUpBus(store, broker)

	if err := b.catchUp(context.Background()); err != nil {
		t.Fatalf("catchUp: %v", err)
	}
	if store.calls != 0 {
		t.Error("a listener with no watermark must not scan the log")
	}
}

func TestCatchUpPagesThroughLargeGaps(t *testing.T) {
	store := &tailStore{}
	for i := int64(1); i <= catchUpBatch+3; i++ {
		store.placements = append(store.placements, canvas.Placement{AddedID: i, Color: "#ffffff"})
	}
	broker := NewBroker(catchUpBatch+8, nil)
	ch, cancel := broker.Subscribe()
	defer cancel()

	b := newCatchUpBus(store, broker)
	b.lastSeen = 1 // placements 2..catchUpBatch+3 are missing

	if err := b.catchUp(context.Background()); err != nil {
		t.Fatalf("catchUp: %v", err)
	}

	if got := len(ch); got != catchUpBatch+2 {
		t.Errorf("replayed %d events, want %d", got, catchUpBatch+2)
	}
	if store.calls != 2 {
		t.Errorf("store scanned %d times, want 2 (one full batch, one partial)", store.calls)
	}
	if b.lastSeen != catchUpBatch+3 {
		t.Errorf("lastSeen = %d, want %d", b.lastSeen, catchUpBatch+3)
	}
}

func TestNotifyPayloadCarriesLogPosition(t *testing.T) {
	user := "bob"
	ev := Event{AddedID: 42, X: 1, Y: 2, Color: "#abcdef", UserID: &user, CreatedAt: 1700000000000}

	raw, err := json.Marshal(notifyPayload{AddedID: ev.AddedID, Event: ev})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(raw), `"addedId":42`) {
		t.Errorf("notify payload must carry the log position, got %s", raw)
	}

	var p notifyPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if p.AddedID != 42 || p.Color != "#abcdef" {
		t.Errorf("round trip lost fields: %+v", p)
	}
}

func TestViewerEventOmitsLogPosition(t *testing.T) {
	raw, err := json.Marshal(Event{AddedID: 42, X: 1, Y: 2, Color: "#abcdef", CreatedAt: 1})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if strings.Contains(string(raw), "addedId") || strings.Contains(string(raw), "AddedID") {
		t.Errorf("viewer event must not expose the log position, got %s", raw)
	}
}

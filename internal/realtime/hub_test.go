package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/defi-dashboard/internal/models"
	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
)

const testRoomAddress = "0xabcdef1234567890123456789012345678901234"

func startTestHub(t *testing.T) (*Hub, string) {
	t.Helper()

	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ServeWS(hub, w, r)
	}))
	t.Cleanup(server.Close)

	return hub, "ws" + strings.TrimPrefix(server.URL, "http")
}

func dialAndJoin(t *testing.T, wsURL, address string) *websocket.Conn {
	t.Helper()

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("failed to dial websocket: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	join := clientMessage{Action: "join", Address: address}
	if err := conn.WriteJSON(join); err != nil {
		t.Fatalf("failed to send join: %v", err)
	}

	return conn
}

func TestHub_RoomBroadcast(t *testing.T) {
	hub, wsURL := startTestHub(t)

	// Join with uppercase; publishes use lowercase. Both must land in the
	// same room.
	conn := dialAndJoin(t, wsURL, "0x"+strings.ToUpper(testRoomAddress[2:]))

	account := &models.Account{
		Address:        testRoomAddress,
		PortfolioValue: decimal.NewFromInt(3010),
	}

	// The join is processed asynchronously, so publish until the message
	// arrives or the deadline passes.
	go func() {
		ticker := time.NewTicker(50 * time.Millisecond)
		defer ticker.Stop()
		deadline := time.After(3 * time.Second)
		for {
			select {
			case <-ticker.C:
				hub.PortfolioUpdated(testRoomAddress, account)
			case <-deadline:
				return
			}
		}
	}()

	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	_, payload, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("failed to read broadcast: %v", err)
	}

	var msg ServerMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		t.Fatalf("failed to decode broadcast: %v", err)
	}

	if msg.Event != EventPortfolioUpdated {
		t.Errorf("Event = %q, want %q", msg.Event, EventPortfolioUpdated)
	}
	if msg.Address != testRoomAddress {
		t.Errorf("Address = %q, want lowercase %q", msg.Address, testRoomAddress)
	}
}

func TestHub_OtherRoomDoesNotReceive(t *testing.T) {
	hub, wsURL := startTestHub(t)

	other := "0x9999999999999999999999999999999999999999"
	conn := dialAndJoin(t, wsURL, other)

	// Give the join a moment to land, then publish to a different room
	time.Sleep(100 * time.Millisecond)
	hub.TransactionsSynced(testRoomAddress, 5)

	_ = conn.SetReadDeadline(time.Now().Add(300 * time.Millisecond))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Error("received broadcast for a room the client never joined")
	}
}

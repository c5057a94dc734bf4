package websocket

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"fretus-backend/internal/models"

	"go.uber.org/zap"
)

func newTestClient(hub *Hub, userID, role string) *Client {
	return &Client{UserID: userID, UserRole: role, hub: hub, send: make(chan []byte, 8)}
}

func receive(t *testing.T, c *Client) Envelope {
	t.Helper()
	select {
	case data := <-c.send:
		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			t.Fatalf("invalid frame: %v", err)
		}
		return env
	case <-time.After(time.Second):
		t.Fatalf("no frame for %s", c.UserID)
	}
	return Envelope{}
}

func TestHubNotifyRoutesToParticipantsAndAdmins(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewHub(zap.NewNop())
	go hub.Run(ctx)

	driver := newTestClient(hub, "driver-1", models.RoleDriver)
	company := newTestClient(hub, "company-1", models.RoleCompany)
	admin := newTestClient(hub, "admin-1", models.RoleAdmin)
	other := newTestClient(hub, "driver-2", models.RoleDriver)
	for _, c := range []*Client{driver, company, admin, other} {
		hub.Register(c)
	}

	hub.Notify(ctx, models.Event{
		Type:      models.EventDeliveryAccepted,
		TripID:    "trip-1",
		DriverID:  "driver-1",
		CompanyID: "company-1",
	})

	for _, c := range []*Client{driver, company, admin} {
		env := receive(t, c)
		if env.Type != string(models.EventDeliveryAccepted) || env.Data.TripID != "trip-1" {
			t.Errorf("%s got %+v", c.UserID, env)
		}
	}

	select {
	case data := <-other.send:
		t.Errorf("unrelated driver received %s", data)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHubReplacesDuplicateConnection(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewHub(zap.NewNop())
	go hub.Run(ctx)

	first := newTestClient(hub, "driver-1", models.RoleDriver)
	second := newTestClient(hub, "driver-1", models.RoleDriver)
	hub.Register(first)
	hub.Register(second)

	if _, ok := <-first.send; ok {
		t.Fatal("expected first connection's send channel to be closed")
	}

	hub.Unregister(first)
	if !hub.IsUserConnected("driver-1") {
		t.Fatal("stale unregister removed the live connection")
	}
	if hub.GetClientCount() != 1 {
		t.Errorf("client count = %d, want 1", hub.GetClientCount())
	}
}

func TestHubDropsTrafficAfterStop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub(zap.NewNop())
	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()

	client := newTestClient(hub, "driver-1", models.RoleDriver)
	hub.Register(client)
	cancel()
	<-stopped

	finished := make(chan struct{})
	go func() {
		// More events than the broadcast buffer holds.
		for i := 0; i < 300; i++ {
			hub.Notify(context.Background(), models.Event{Type: models.EventTripStatusChanged, DriverID: "driver-1"})
		}
		hub.Unregister(client)
		if hub.Register(newTestClient(hub, "driver-2", models.RoleDriver)) {
			t.Error("Register succeeded on a stopped hub")
		}
		close(finished)
	}()

	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("hub calls blocked after Run returned")
	}
	if _, ok := <-client.send; ok {
		t.Error("client send channel left open after stop")
	}
}

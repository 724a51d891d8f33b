package ws

import (
	"testing"
	"time"
)

func TestHubAddAndRemoveGroupClient(t *testing.T) {
	hub := NewHub()
	info := ConnInfo{ConnID: "c1", UserID: "u1", ConnectedAt: time.Now()}

	hub.AddGroupClient("g1", nil, info)
	if len(hub.groupRooms) != 1 {
		t.Fatalf("expected group room to be created")
	}
	if _, ok := hub.groupConnInfo["g1"][nil]; !ok {
		t.Fatalf("expected conn info to be tracked")
	}

	hub.RemoveGroupClient("g1", nil)
	if len(hub.groupRooms) != 0 {
		t.Fatalf("expected group room to be removed")
	}
	if len(hub.groupConnInfo) != 0 {
		t.Fatalf("expected conn info to be cleared")
	}
}

func TestHubAddAndRemoveDirectClient(t *testing.T) {
	hub := NewHub()
	info := ConnInfo{ConnID: "c2", UserID: "u2", ConnectedAt: time.Now()}

	hub.AddDirectClient("u2", nil, info)
	if len(hub.directRooms) != 1 {
		t.Fatalf("expected direct room to be created")
	}

	hub.RemoveDirectClient("u2", nil)
	if len(hub.directRooms) != 0 {
		t.Fatalf("expected direct room to be removed")
	}
	if len(hub.directConnInfo) != 0 {
		t.Fatalf("expected conn info to be cleared")
	}
}

func TestHubRemoveUnknownClientIsNoop(t *testing.T) {
	hub := NewHub()

	hub.RemoveGroupClient("missing", nil)
	hub.RemoveDirectClient("missing", nil)

	if len(hub.groupRooms) != 0 || len(hub.directRooms) != 0 {
		t.Fatalf("expected hub to stay empty")
	}
}

package memory

import "testing"

func TestLobbyStoreLifecycle(t *testing.T) {
	store := NewLobbyStore()

	lobby := store.GetOrCreate("session-1")
	if lobby == nil || lobby.SessionID() != "session-1" {
		t.Fatalf("expected lobby")
	}
	if again := store.GetOrCreate("session-1"); again != lobby {
		t.Fatalf("expected the same lobby back")
	}
	if _, ok := store.Get("session-1"); !ok {
		t.Fatalf("expected lobby present")
	}

	store.DeleteIfIdle("session-1")
	if _, ok := store.Get("session-1"); ok {
		t.Fatalf("expected lobby removed when idle")
	}
}

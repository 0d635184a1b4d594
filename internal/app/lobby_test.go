package app

import (
	"testing"
	"time"

	"cyberhoot-service/internal/domain"
)

func TestRosterRanksByScoreThenAnswerTimeThenJoin(t *testing.T) {
	base := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	early, late := base.Add(time.Second), base.Add(2*time.Second)
	session := domain.GameSession{
		Code:   "AB12CD",
		Status: domain.SessionPlaying,
		Players: []domain.Player{
			{UserID: "host", Name: "alice", Score: 100, AnswerTime: &late, JoinedAt: base},
			{UserID: "u2", Name: "bob", Score: 100, AnswerTime: &early, JoinedAt: base.Add(time.Minute)},
			{UserID: "u3", Name: "carol", Score: 300, JoinedAt: base.Add(2 * time.Minute), CurrentAnswer: "secret"},
			{UserID: "u4", Name: "dave", JoinedAt: base.Add(3 * time.Minute)},
		},
	}

	roster := rosterOf(session, base)
	var names []string
	for _, e := range roster.Players {
		names = append(names, e.Name)
	}
	want := []string{"carol", "bob", "alice", "dave"}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("expected order %v, got %v", want, names)
		}
	}
	if roster.Status != domain.SessionPlaying || roster.Code != "AB12CD" {
		t.Fatalf("unexpected roster header %+v", roster)
	}
}

func TestRosterOrderIgnoresInputOrderWhenSomeHaveNotAnswered(t *testing.T) {
	base := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	first, second := base.Add(time.Second), base.Add(2*time.Second)
	// erin joined between the two who answered but has not answered yet
	players := []domain.Player{
		{Name: "dan", Score: 100, AnswerTime: &second, JoinedAt: base},
		{Name: "erin", Score: 100, JoinedAt: base.Add(time.Minute)},
		{Name: "fay", Score: 100, AnswerTime: &first, JoinedAt: base.Add(2 * time.Minute)},
	}
	orders := [][]int{{0, 1, 2}, {0, 2, 1}, {1, 0, 2}, {1, 2, 0}, {2, 0, 1}, {2, 1, 0}}
	for _, order := range orders {
		var in []domain.Player
		for _, i := range order {
			in = append(in, players[i])
		}
		roster := rosterOf(domain.GameSession{Players: in}, base)
		got := []string{roster.Players[0].Name, roster.Players[1].Name, roster.Players[2].Name}
		if got[0] != "fay" || got[1] != "dan" || got[2] != "erin" {
			t.Fatalf("input order %v: expected [fay dan erin], got %v", order, got)
		}
	}
}

func TestLobbyBroadcastDropsStaleUpdates(t *testing.T) {
	now := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	lobby := NewLobbyWithClock("AB12CD", func() time.Time { return now })
	ch, cancel, err := lobby.subscribe(func() (domain.GameSession, error) {
		return domain.GameSession{Code: "AB12CD", Status: domain.SessionWaiting}, nil
	})
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer cancel()

	// never read: the buffer fills and older snapshots are dropped
	for i := 1; i <= 20; i++ {
		score := i
		_, err := lobby.mutate(func() (domain.GameSession, error) {
			return domain.GameSession{Code: "AB12CD", Players: []domain.Player{{Name: "alice", Score: score}}}, nil
		})
		if err != nil {
			t.Fatalf("mutate: %v", err)
		}
	}

	var last Roster
	for len(ch) > 0 {
		last = <-ch
	}
	if len(last.Players) != 1 || last.Players[0].Score != 20 {
		t.Fatalf("expected latest snapshot to survive, got %+v", last)
	}
}

func TestLobbyUnchangedMutationDoesNotBroadcast(t *testing.T) {
	lobby := NewLobby("AB12CD")
	ch, cancel, _ := lobby.subscribe(nil)
	defer cancel()
	<-ch

	if _, err := lobby.mutate(func() (domain.GameSession, error) { return domain.GameSession{}, errUnchanged }); err != nil {
		t.Fatalf("mutate: %v", err)
	}
	select {
	case r := <-ch:
		t.Fatalf("unexpected broadcast %+v", r)
	default:
	}
	if lobby.IsIdle() {
		t.Fatalf("lobby with a subscriber is not idle")
	}
}

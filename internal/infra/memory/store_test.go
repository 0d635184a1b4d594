package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"cyberhoot-service/internal/domain"
	"github.com/google/uuid"
)

func TestStoreFindSessionByCodeRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewStore("alice")
	session := sampleSession(t, store, "AB12CD")

	if err := store.CreateSession(ctx, session); err != nil {
		t.Fatalf("create session: %v", err)
	}

	got, err := store.FindSessionByCode(ctx, " ab12cd ")
	if err != nil {
		t.Fatalf("find by code: %v", err)
	}
	if got.ID != session.ID || len(got.Players) != 1 || len(got.Questions) != 1 {
		t.Fatalf("unexpected session %+v", got)
	}
	if _, err := store.FindQuestion(ctx, session.Questions[0].ID); err != nil {
		t.Fatalf("question stored with session: %v", err)
	}

	if _, err := store.FindSessionByCode(ctx, "ZZZZZZ"); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected session not found, got %v", err)
	}
}

func TestStoreRejectsLiveCodeUntilFinished(t *testing.T) {
	ctx := context.Background()
	store := NewStore("alice")
	first := sampleSession(t, store, "AAAAAA")
	if err := store.CreateSession(ctx, first); err != nil {
		t.Fatalf("create first: %v", err)
	}

	second := sampleSession(t, store, "AAAAAA")
	if err := store.CreateSession(ctx, second); !errors.Is(err, domain.ErrCodeTaken) {
		t.Fatalf("expected code taken, got %v", err)
	}

	end := time.Now()
	if err := store.UpdateSessionStatus(ctx, first.ID, domain.SessionFinished, nil, &end); err != nil {
		t.Fatalf("finish: %v", err)
	}
	if err := store.CreateSession(ctx, second); err != nil {
		t.Fatalf("code should be free after finish: %v", err)
	}
	got, err := store.FindSessionByCode(ctx, "AAAAAA")
	if err != nil || got.ID != second.ID {
		t.Fatalf("expected live session to win, got %+v (%v)", got, err)
	}
}

func TestStoreAddPlayerIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := NewStore("alice", "bob")
	session := sampleSession(t, store, "BBBBBB")
	if err := store.CreateSession(ctx, session); err != nil {
		t.Fatalf("create: %v", err)
	}
	bob, _ := store.FindUserByUsername(ctx, "bob")

	for i := 0; i < 2; i++ {
		if err := store.AddPlayer(ctx, session.ID, domain.Player{ID: "p-bob", UserID: bob.ID, Name: "bob"}); err != nil {
			t.Fatalf("add player: %v", err)
		}
	}
	got, _ := store.FindSessionByID(ctx, session.ID)
	if len(got.Players) != 2 {
		t.Fatalf("expected 2 players, got %d", len(got.Players))
	}

	if err := store.AddPlayer(ctx, "missing", domain.Player{UserID: bob.ID}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestStoreQuizQuestionsKeepOrderAndAnswersAppend(t *testing.T) {
	ctx := context.Background()
	store := NewStore("alice")
	alice, _ := store.FindUserByUsername(ctx, "alice")

	quiz := domain.Quiz{ID: "quiz-1", UserID: alice.ID, Name: "Crypto Quiz"}
	questions := []domain.Question{
		{ID: "q-b", Type: domain.QuestionOpen, Text: "first", Open: &domain.OpenForm{Answer: "x"}},
		{ID: "q-a", Type: domain.QuestionOpen, Text: "second", Open: &domain.OpenForm{Answer: "y"}},
	}
	if err := store.CreateQuiz(ctx, quiz, questions); err != nil {
		t.Fatalf("create quiz: %v", err)
	}
	got, _ := store.FindQuestionsByQuiz(ctx, "quiz-1")
	if len(got) != 2 || got[0].Text != "first" || got[1].QuizID != "quiz-1" {
		t.Fatalf("unexpected questions %+v", got)
	}

	for i := 0; i < 2; i++ {
		if err := store.SaveAnswer(ctx, domain.QuestionAnswer{ID: uuid.NewString(), QuestionID: "q-b", UserAnswer: "x"}); err != nil {
			t.Fatalf("save answer: %v", err)
		}
	}
	answers, _ := store.FindAnswersByQuestion(ctx, "q-b")
	if len(answers) != 2 {
		t.Fatalf("expected 2 answers, got %d", len(answers))
	}
	if err := store.SaveAnswer(ctx, domain.QuestionAnswer{QuestionID: "nope"}); !errors.Is(err, domain.ErrQuestionNotFound) {
		t.Fatalf("expected question not found, got %v", err)
	}
}

func TestStoreDeleteSessionCascades(t *testing.T) {
	ctx := context.Background()
	store := NewStore("alice")
	session := sampleSession(t, store, "CCCCCC")
	_ = store.CreateSession(ctx, session)

	if err := store.DeleteSession(ctx, session.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.FindQuestion(ctx, session.Questions[0].ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected questions removed, got %v", err)
	}
	if _, err := store.FindSessionByCode(ctx, "CCCCCC"); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected session removed, got %v", err)
	}
}

func sampleSession(t *testing.T, store *Store, code string) domain.GameSession {
	t.Helper()
	alice, err := store.FindUserByUsername(context.Background(), "alice")
	if err != nil {
		t.Fatalf("find alice: %v", err)
	}
	id := uuid.NewString()
	return domain.GameSession{
		ID:     id,
		Code:   code,
		Status: domain.SessionWaiting,
		Host:   alice,
		Players: []domain.Player{
			{ID: "p-" + id, SessionID: id, UserID: alice.ID, Name: "alice", IsHost: true},
		},
		QuestionType: domain.QuestionMCQ,
		Count:        1,
		CreatedAt:    time.Now(),
		Questions: []domain.Question{{
			ID:        "q-" + id,
			Type:      domain.QuestionMCQ,
			Text:      "Which port does SSH use?",
			Choice:    &domain.ChoiceForm{Options: []string{"A) 21", "B) 22", "C) 23", "D) 25"}, Correct: "B"},
			SessionID: id,
		}},
	}
}

package app_test

import (
	"context"
	"errors"
	"testing"

	"cyberhoot-service/internal/app"
	"cyberhoot-service/internal/domain"
	"cyberhoot-service/internal/llm"
)

func TestListAnsweredHistory(t *testing.T) {
	f := newFixture(t, llm.Response{Content: mcqBatch(2)})
	ctx := context.Background()
	history := app.NewHistoryService(f.store)

	first, err := f.pipeline.Generate(ctx, app.GenerateRequest{Username: "alice", Params: mcqParams(2)})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := f.pipeline.Generate(ctx, app.GenerateRequest{Username: "alice", Params: mcqParams(2)}); err != nil {
		t.Fatalf("generate second: %v", err)
	}
	if _, err := f.answers.Submit(ctx, app.SubmitRequest{QuestionID: first.Questions[1].ID, Username: "alice", Answer: "b"}); err != nil {
		t.Fatalf("submit: %v", err)
	}
	// bob answers alice's quiz; that answer belongs to bob, not to alice's history
	if _, err := f.answers.Submit(ctx, app.SubmitRequest{QuestionID: first.Questions[0].ID, Username: "bob", Answer: "C"}); err != nil {
		t.Fatalf("submit as bob: %v", err)
	}

	got, err := history.ListAnswered(ctx, "alice")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 quizzes, got %d", len(got))
	}
	var answered int
	for _, h := range got {
		if h.AnsweredQuestions == nil {
			t.Fatalf("expected empty slice, not nil")
		}
		for _, a := range h.AnsweredQuestions {
			answered++
			if a.QuestionID != first.Questions[1].ID || !a.Correct || a.UserAnswer != "b" {
				t.Fatalf("unexpected answered question %+v", a)
			}
		}
	}
	if answered != 1 {
		t.Fatalf("expected one answered question, got %d", answered)
	}

	if _, err := history.ListAnswered(ctx, "mallory"); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected user not found, got %v", err)
	}
}

package app_test

import (
	"fmt"
	"strings"
	"testing"

	"cyberhoot-service/internal/app"
	"cyberhoot-service/internal/infra/memory"
	"cyberhoot-service/internal/llm"
	"cyberhoot-service/internal/prompt"
)

// mcqBatch renders n well-formed mcq questions, keys question1..questionN.
func mcqBatch(n int) string {
	var parts []string
	for i := 1; i <= n; i++ {
		parts = append(parts, fmt.Sprintf(
			`"question%d":{"text":"Network question %d?","options":["A) one","B) two","C) three","D) four"],"correct":"%s"}`,
			i, i, []string{"A", "b", "C)", "D"}[(i-1)%4]))
	}
	return "```json\n{\"questions\":{" + strings.Join(parts, ",") + "}}\n```"
}

func openBatch(n int) string {
	var parts []string
	for i := 1; i <= n; i++ {
		parts = append(parts, fmt.Sprintf(`"question%d":{"text":"Explain concept %d.","answer":"Model answer %d","solvingTime":90}`, i, i, i))
	}
	return `{"questions":{` + strings.Join(parts, ",") + `}}`
}

type fixture struct {
	store    *memory.Store
	codes    *memory.CodeRegistry
	lobbies  *memory.LobbyStore
	gateway  *llm.ScriptedGateway
	pipeline *app.QuestionPipeline
	sessions *app.SessionService
	answers  *app.AnswerEvaluator
}

func newFixture(t *testing.T, responses ...llm.Response) *fixture {
	t.Helper()
	f := &fixture{
		store:   memory.NewStore("alice", "bob", "carol", "dave"),
		codes:   memory.NewCodeRegistry(),
		lobbies: memory.NewLobbyStore(),
		gateway: llm.NewScriptedGateway(responses...),
	}
	builder := prompt.NewBuilder(0, 100)
	f.pipeline = app.NewQuestionPipeline(f.gateway, builder, f.store, f.store)
	f.sessions = app.NewSessionService(app.SessionDeps{
		Pipeline: f.pipeline,
		Store:    f.store,
		Codes:    f.codes,
		Lobbies:  f.lobbies,
		Config:   app.DefaultSessionConfig(),
	})
	f.answers = app.NewAnswerEvaluator(app.EvaluatorDeps{
		Gateway: f.gateway,
		Prompts: builder,
		Policy:  app.DefaultScorePolicy(),
		Store:   f.store,
		Lobbies: f.lobbies,
	})
	return f
}

func mcqParams(count int) prompt.Params {
	return prompt.Params{Difficulty: 5, Type: "mcq", Language: "English", Topic: "Network Security", Count: count}
}

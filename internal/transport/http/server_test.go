package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"cyberhoot-service/internal/app"
	"cyberhoot-service/internal/auth"
	"cyberhoot-service/internal/infra/memory"
	"cyberhoot-service/internal/llm"
	"cyberhoot-service/internal/prompt"
	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func mcqBatch(n int) string {
	var parts []string
	for i := 1; i <= n; i++ {
		parts = append(parts, fmt.Sprintf(
			`"question%d":{"text":"Which port does service %d use?","options":["A) 22","B) 80","C) 443","D) 8080"],"correct":"A"}`, i, i))
	}
	return `{"questions":{` + strings.Join(parts, ",") + `}}`
}

type testServer struct {
	store    *memory.Store
	sessions *app.SessionService
	gateway  *llm.ScriptedGateway
	server   *httptest.Server
}

func newTestServer(t *testing.T, verifier auth.Verifier, responses ...llm.Response) *testServer {
	t.Helper()
	store := memory.NewStore("alice", "bob", "carol")
	lobbies := memory.NewLobbyStore()
	gateway := llm.NewScriptedGateway(responses...)
	builder := prompt.NewBuilder(0, 100)

	pipeline := app.NewQuestionPipeline(gateway, builder, store, store)
	sessions := app.NewSessionService(app.SessionDeps{
		Pipeline: pipeline,
		Store:    store,
		Codes:    memory.NewCodeRegistry(),
		Lobbies:  lobbies,
		Config:   app.DefaultSessionConfig(),
	})
	answers := app.NewAnswerEvaluator(app.EvaluatorDeps{
		Gateway: gateway,
		Prompts: builder,
		Policy:  app.DefaultScorePolicy(),
		Store:   store,
		Lobbies: lobbies,
	})
	explainer := app.NewGeneratedExplainer(gateway, builder)
	handler := NewHandler(Services{
		Sessions:     sessions,
		Questions:    pipeline,
		Answers:      answers,
		Explanations: app.NewExplanationService(store, memory.NewExplanationCache(explainer, time.Minute)),
		History:      app.NewHistoryService(store),
	})
	router := NewRouter(handler, NewWSHandler(sessions, answers), RouterConfig{Verifier: verifier})

	ts := &testServer{store: store, sessions: sessions, gateway: gateway, server: httptest.NewServer(router)}
	t.Cleanup(ts.server.Close)
	return ts
}

func (ts *testServer) do(t *testing.T, method, path string, body any, token string) (int, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, ts.server.URL+path, reader)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := ts.server.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp.StatusCode, out
}

func decode[T any](t *testing.T, raw []byte) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		t.Fatalf("decode %s: %v", raw, err)
	}
	return v
}

func createBody(username string, count int) map[string]any {
	return map[string]any{
		"username":     username,
		"topic":        "Network Security",
		"questionType": "mcq",
		"difficulty":   5,
		"language":     "English",
		"count":        count,
	}
}

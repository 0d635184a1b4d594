package cli

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"cyberhoot-service/internal/app"
	"cyberhoot-service/internal/config"
	"cyberhoot-service/internal/domain"
	"cyberhoot-service/internal/infra/amqp"
	"cyberhoot-service/internal/infra/memory"
	"cyberhoot-service/internal/infra/postgres"
	redisinfra "cyberhoot-service/internal/infra/redis"
	"cyberhoot-service/internal/llm"
	"cyberhoot-service/internal/prompt"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
)

// userStore is a Store that can also register identities.
type userStore interface {
	app.Store
	AddUser(ctx context.Context, username string) (domain.User, error)
}

// stack holds the infrastructure picked by the config: Postgres or memory for
// persistence, Redis or memory for codes, lobbies and explanations.
type stack struct {
	cfg       config.Config
	store     userStore
	redis     *redis.Client
	publisher app.EventPublisher
	closers   []func()
}

func openStack(ctx context.Context, cfg config.Config) (*stack, error) {
	s := &stack{cfg: cfg}
	if err := s.openStore(ctx); err != nil {
		s.Close()
		return nil, err
	}
	for _, name := range cfg.Users {
		if _, err := s.store.AddUser(ctx, name); err != nil {
			s.Close()
			return nil, fmt.Errorf("register user %q: %w", name, err)
		}
	}

	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			s.Close()
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		s.redis = client
		s.closers = append(s.closers, func() { client.Close() })
	}

	if cfg.AMQP.URL != "" {
		publisher, err := amqp.Dial(cfg.AMQP.URL)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.publisher = publisher
		s.closers = append(s.closers, func() { publisher.Close() })
	}
	return s, nil
}

func (s *stack) openStore(ctx context.Context) error {
	if s.cfg.Postgres.URL == "" {
		log.Printf("postgres not configured, using in-memory store")
		s.store = memory.NewStore()
		return nil
	}
	if err := runMigrationsWithConfig(ctx, s.cfg); err != nil {
		return err
	}
	pool, err := pgxpool.Connect(ctx, s.cfg.Postgres.URL)
	if err != nil {
		return fmt.Errorf("connect to postgres: %w", err)
	}
	s.store = postgres.NewStore(pool)
	s.closers = append(s.closers, pool.Close)
	return nil
}

// Close releases connections in reverse order of opening.
func (s *stack) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
	s.closers = nil
}

func (s *stack) gateway() llm.Gateway {
	return newGateway(s.cfg)
}

func newGateway(cfg config.Config) llm.Gateway {
	return llm.NewClient(cfg.LLM.BaseURL, cfg.LLM.APIKey, cfg.LLM.Model, config.TTLDuration(cfg.LLM.Timeout, time.Minute))
}

func promptBuilder(cfg config.Config) prompt.Builder {
	b := prompt.NewBuilder(cfg.Grading.MinScore, cfg.Grading.MaxScore)
	if strings.EqualFold(strings.TrimSpace(cfg.Topic.Mode), string(domain.TopicCategorized)) {
		b.TopicMode = domain.TopicCategorized
		b.Taxonomy = cfg.Topic.Taxonomy
	}
	return b
}

func scorePolicy(cfg config.Config) app.ScorePolicy {
	p := app.ScorePolicy{
		Min:             cfg.Grading.MinScore,
		Max:             cfg.Grading.MaxScore,
		CorrectPoints:   cfg.Grading.MaxScore,
		IncorrectPoints: cfg.Grading.MinScore,
	}
	if cfg.Grading.CorrectPoints != nil {
		p.CorrectPoints = *cfg.Grading.CorrectPoints
	}
	if cfg.Grading.IncorrectPoints != nil {
		p.IncorrectPoints = *cfg.Grading.IncorrectPoints
	}
	return p
}

func sessionConfig(cfg config.Config) app.SessionConfig {
	sc := app.DefaultSessionConfig()
	if cfg.Session.CodeLength > 0 {
		sc.CodeLength = cfg.Session.CodeLength
	}
	if cfg.Session.MaxCodeAttempts > 0 {
		sc.MaxCodeAttempts = cfg.Session.MaxCodeAttempts
	}
	if cfg.Session.MaxPlayers != nil {
		sc.MaxPlayers = *cfg.Session.MaxPlayers
	}
	return sc
}

func (s *stack) codeRegistry() app.CodeRegistry {
	if s.redis != nil {
		return redisinfra.NewCodeRegistry(s.redis, config.TTLDuration(s.cfg.Session.CodeTTL, 6*time.Hour))
	}
	return memory.NewCodeRegistry()
}

func (s *stack) lobbyStore() app.LobbyStore {
	if s.redis != nil {
		return redisinfra.NewLobbyStore(s.redis, config.TTLDuration(s.cfg.Session.LobbyTTL, 6*time.Hour))
	}
	return memory.NewLobbyStore()
}

func (s *stack) explanations(explainer app.Explainer) app.ExplanationRepository {
	ttl := config.TTLDuration(s.cfg.Explanation.TTL, 24*time.Hour)
	if s.redis != nil {
		return redisinfra.NewExplanationCache(s.redis, explainer, ttl)
	}
	return memory.NewExplanationCache(explainer, ttl)
}

// services wires every use case against the stack.
type services struct {
	pipeline     *app.QuestionPipeline
	sessions     *app.SessionService
	answers      *app.AnswerEvaluator
	explanations *app.ExplanationService
	history      *app.HistoryService
}

func (s *stack) services() services {
	gateway := s.gateway()
	builder := promptBuilder(s.cfg)
	lobbies := s.lobbyStore()

	pipeline := app.NewQuestionPipeline(gateway, builder, s.store, s.store)
	return services{
		pipeline: pipeline,
		sessions: app.NewSessionService(app.SessionDeps{
			Pipeline:  pipeline,
			Store:     s.store,
			Codes:     s.codeRegistry(),
			Lobbies:   lobbies,
			Publisher: s.publisher,
			Queue:     s.cfg.AMQP.Queue,
			Config:    sessionConfig(s.cfg),
		}),
		answers: app.NewAnswerEvaluator(app.EvaluatorDeps{
			Gateway:   gateway,
			Prompts:   builder,
			Policy:    scorePolicy(s.cfg),
			Store:     s.store,
			Lobbies:   lobbies,
			Publisher: s.publisher,
			Queue:     s.cfg.AMQP.Queue,
		}),
		explanations: app.NewExplanationService(s.store, s.explanations(app.NewGeneratedExplainer(gateway, builder))),
		history:      app.NewHistoryService(s.store),
	}
}

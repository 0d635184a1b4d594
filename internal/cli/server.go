package cli

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"cyberhoot-service/internal/auth"
	"cyberhoot-service/internal/config"
	transport "cyberhoot-service/internal/transport/http"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	st, err := openStack(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	var verifier auth.Verifier
	if cfg.Auth.JWTSecret != "" {
		verifier = auth.NewJWT(cfg.Auth.JWTSecret, cfg.Auth.Issuer)
	} else {
		log.Printf("auth.jwt_secret not set, callers name themselves")
	}

	svc := st.services()
	gin.SetMode(gin.ReleaseMode)
	router := transport.NewRouter(
		transport.NewHandler(transport.Services{
			Sessions:     svc.sessions,
			Questions:    svc.pipeline,
			Answers:      svc.answers,
			Explanations: svc.explanations,
			History:      svc.history,
		}),
		transport.NewWSHandler(svc.sessions, svc.answers),
		transport.RouterConfig{Verifier: verifier, AllowOrigins: cfg.Server.AllowOrigins},
	)

	// generation round trips can take most of a minute
	writeTimeout := config.TTLDuration(cfg.LLM.Timeout, time.Minute) + 15*time.Second
	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: writeTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Printf("starting quiz service on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Println("shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

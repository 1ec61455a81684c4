package cli

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"live-poll-service/internal/app"
	"live-poll-service/internal/config"
	"live-poll-service/internal/infra/memory"
	pgloader "live-poll-service/internal/infra/postgres"
	redisstore "live-poll-service/internal/infra/redis"
	transport "live-poll-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the poll server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	policy, err := app.ParseClosePolicy(cfg.Poll.ClosePolicy)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
	}
	redisTTL := config.TTLDuration(cfg.Redis.TTL, 10*time.Minute)

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
	}

	loader, err := questionLoader(cfg, pool)
	if err != nil {
		return err
	}

	questionTTL := config.TTLDuration(cfg.Questions.TTL, 10*time.Minute)
	var bank app.QuestionBank
	if redisClient != nil {
		bank = redisstore.NewQuestionBank(redisClient, loader, questionTTL)
	} else {
		bank = memory.NewQuestionBank(loader, questionTTL)
	}

	sessionOpts := []app.SessionOption{
		app.WithClosePolicy(policy),
		app.WithDiscloseCorrect(cfg.DiscloseCorrect()),
	}
	var store app.SessionRepository
	if redisClient != nil {
		store = redisstore.NewSessionStore(redisClient, redisTTL, sessionOpts...)
	} else {
		store = memory.NewSessionStore(sessionOpts...)
	}
	service := app.NewPollService(store, bank, app.Options{
		SessionID:     cfg.Poll.SessionID,
		ChatMaxLength: cfg.ChatMaxLength(),
	})
	wsHandler := transport.NewWSHandler(service)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", wsHandler.ServeWS)
	transport.NewAPI(service).Register(mux)

	server := &http.Server{
		Addr:              ":" + finalPort,
		Handler:           mux,
		ReadHeaderTimeout: 15 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Printf("starting poll service on :%s (session=%s policy=%s)", finalPort, service.SessionID(), policy.Name())
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

// questionLoader prefers Postgres, then the configured YAML file, then an empty bank.
func questionLoader(cfg config.Config, pool *pgxpool.Pool) (memory.QuestionLoader, error) {
	if pool != nil {
		return pgloader.NewQuestionLoader(pool), nil
	}
	if cfg.Questions.File == "" {
		return memory.NewStaticQuestionLoader(nil), nil
	}
	questions, err := memory.LoadQuestionFile(cfg.Questions.File)
	if errors.Is(err, os.ErrNotExist) {
		log.Printf("question file %s not found, starting with an empty bank", cfg.Questions.File)
		return memory.NewStaticQuestionLoader(nil), nil
	}
	if err != nil {
		return nil, err
	}
	log.Printf("loaded %d bank questions from %s", len(questions), cfg.Questions.File)
	return memory.NewStaticQuestionLoader(questions), nil
}

package integration

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"

	"live-poll-service/internal/app"
	"live-poll-service/internal/domain"
	pgloader "live-poll-service/internal/infra/postgres"
	pgmigrations "live-poll-service/internal/infra/postgres/migrations"
	infraredis "live-poll-service/internal/infra/redis"
)

func TestPresetPollEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	seedQuestions(t, ctx, pgURL, sampleQuestions())

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	loader := pgloader.NewQuestionLoader(pool)

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	bank := infraredis.NewQuestionBank(redisClient, loader, 5*time.Minute)
	sessionStore := infraredis.NewSessionStore(redisClient, 5*time.Minute, app.WithClosePolicy(app.FirstAnswerPolicy{}))
	service := app.NewPollService(sessionStore, bank, app.Options{})

	if _, err := service.Join(ctx, "t1", "Teacher", domain.RoleTeacher); err != nil {
		t.Fatalf("join: %v", err)
	}
	q, err := service.PublishPreset(ctx, "t1", "arith-1")
	if err != nil {
		t.Fatalf("publish preset: %v", err)
	}
	if q.Text != "What is 2 + 2?" || q.CorrectOption != 1 {
		t.Fatalf("unexpected question %+v", q)
	}

	if _, err := service.SubmitAnswer(ctx, "a1", domain.AnswerSubmission{Option: 1, StudentName: "Alice"}); err != nil {
		t.Fatalf("submit a1: %v", err)
	}
	receipt, err := service.SubmitAnswer(ctx, "b1", domain.AnswerSubmission{Option: 0, StudentName: "Bob"})
	if err != nil {
		t.Fatalf("submit b1: %v", err)
	}
	if fmt.Sprint(receipt.Snapshot.OptionCounts) != "[1 1 0]" || receipt.Snapshot.State != domain.StateClosed {
		t.Fatalf("unexpected snapshot %+v", receipt.Snapshot)
	}

	if _, err := service.PublishPreset(ctx, "t1", "missing"); !errors.Is(err, domain.ErrQuestionNotFound) {
		t.Fatalf("expected ErrQuestionNotFound, got %v", err)
	}

	exists, err := redisClient.Exists(ctx, "poll:session:"+app.DefaultSessionID, "poll:question:arith-1").Result()
	if err != nil || exists != 2 {
		t.Fatalf("expected session marker and cached question in redis, got %d err=%v", exists, err)
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "poll", "POSTGRES_PASSWORD": "pollpass", "POSTGRES_DB": "polldb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://poll:pollpass@%s:%s/polldb?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

// seedQuestions runs the real migrations and imports through the bun importer.
func seedQuestions(t *testing.T, ctx context.Context, dsn string, questions []domain.BankQuestion) {
	t.Helper()
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	n, err := pgloader.NewQuestionImporter(db).Import(ctx, questions)
	if err != nil {
		t.Fatalf("import questions: %v", err)
	}
	if n != len(questions) {
		t.Fatalf("expected %d imported, got %d", len(questions), n)
	}
}

func sampleQuestions() []domain.BankQuestion {
	return []domain.BankQuestion{
		{ID: "arith-1", Text: "What is 2 + 2?", Options: []string{"3", "4", "5"}, CorrectOption: 1},
		{ID: "capital-fr", Text: "Capital of France?", Options: []string{"Lyon", "Paris"}, CorrectOption: 1},
	}
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}

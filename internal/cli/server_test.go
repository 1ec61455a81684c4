package cli

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"live-poll-service/internal/config"
	"live-poll-service/internal/domain"
)

func TestQuestionLoaderFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "questions.yaml")
	content := `questions:
  - id: arith-1
    question: "What is 2 + 2?"
    options: ["3", "4"]
    correctOption: 1
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	var cfg config.Config
	cfg.Questions.File = path

	loader, err := questionLoader(cfg, nil)
	if err != nil {
		t.Fatalf("loader: %v", err)
	}
	q, err := loader.LoadQuestion(context.Background(), "arith-1")
	if err != nil || q.CorrectOption != 1 {
		t.Fatalf("unexpected question %+v err=%v", q, err)
	}
}

func TestQuestionLoaderMissingFileIsEmptyBank(t *testing.T) {
	var cfg config.Config
	cfg.Questions.File = filepath.Join(t.TempDir(), "missing.yaml")

	loader, err := questionLoader(cfg, nil)
	if err != nil {
		t.Fatalf("loader: %v", err)
	}
	if _, err := loader.LoadQuestion(context.Background(), "arith-1"); !errors.Is(err, domain.ErrQuestionNotFound) {
		t.Fatalf("expected empty bank, got %v", err)
	}
}

func TestRootCommandWiring(t *testing.T) {
	cmd := newRootCmd()
	for _, name := range []string{"start", "migrate", "questions"} {
		if sub, _, err := cmd.Find([]string{name}); err != nil || sub.Name() != name {
			t.Fatalf("expected %s subcommand, got %v", name, err)
		}
	}
	if sub, _, err := cmd.Find([]string{"questions", "import"}); err != nil || sub.Name() != "import" {
		t.Fatalf("expected questions import subcommand, got %v", err)
	}
}

func TestStartRejectsUnknownPolicy(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("poll:\n  closePolicy: majority\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := runServer(context.Background(), path, "0"); err == nil {
		t.Fatalf("expected unknown policy error")
	}
}

package cli

import (
	"fmt"
	"log"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"live-poll-service/internal/config"
	"live-poll-service/internal/infra/memory"
	pgloader "live-poll-service/internal/infra/postgres"
	redisbank "live-poll-service/internal/infra/redis"
)

// NewQuestionsCmd groups question bank maintenance.
func NewQuestionsCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "questions",
		Short: "Manage the question bank",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "import <file.yaml>",
		Short: "Validate a YAML question file and upsert it into Postgres",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			questions, err := memory.LoadQuestionFile(args[0])
			if err != nil {
				return err
			}

			db, err := openBunDB(cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			n, err := pgloader.NewQuestionImporter(db).Import(cmd.Context(), questions)
			if err != nil {
				return err
			}
			log.Printf("imported %d questions from %s", n, args[0])

			if cfg.Redis.Addr == "" {
				return nil
			}
			client := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
			defer client.Close()
			bank := redisbank.NewQuestionBank(client, nil, 0)
			for _, q := range questions {
				if err := bank.Invalidate(cmd.Context(), q.ID); err != nil {
					return fmt.Errorf("invalidate cached question %s: %w", q.ID, err)
				}
			}
			return nil
		},
	})
	return cmd
}

package main

import (
	"context"
	"encoding/json"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/agrimitra/agrimitra/internal/config"
	"github.com/agrimitra/agrimitra/internal/jobs"
	"github.com/agrimitra/agrimitra/internal/store"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("load config")
	}

	pool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect database")
	}
	defer pool.Close()
	advisories := store.NewAdvisories(pool)

	srv := asynq.NewServer(asynq.RedisClientOpt{Addr: cfg.RedisAddr}, asynq.Config{
		Concurrency: 4,
		Queues: map[string]int{
			"persist": 10,
			"default": 5,
		},
	})
	mux := asynq.NewServeMux()

	mux.HandleFunc(jobs.TaskPersistAdvisory, func(ctx context.Context, t *asynq.Task) error {
		var p jobs.PersistAdvisoryPayload
		if err := json.Unmarshal(t.Payload(), &p); err != nil {
			logger.Error().Err(err).Msg("bad persist payload, dropping")
			return nil
		}

		rec, err := recordFromPayload(p)
		if err != nil {
			logger.Error().Err(err).Str("advisory_id", p.AdvisoryID).Msg("unusable persist payload, dropping")
			return nil
		}

		if err := advisories.Save(ctx, rec); err != nil {
			logger.Warn().Err(err).Str("advisory_id", p.AdvisoryID).Msg("save advisory failed, will retry")
			return err
		}
		logger.Info().Str("advisory_id", p.AdvisoryID).Msg("advisory persisted")
		return nil
	})

	logger.Info().Msg("worker running")
	if err := srv.Run(mux); err != nil {
		logger.Fatal().Err(err).Msg("worker stopped")
	}
}

func recordFromPayload(p jobs.PersistAdvisoryPayload) (store.AdvisoryRecord, error) {
	id, err := uuid.Parse(p.AdvisoryID)
	if err != nil {
		return store.AdvisoryRecord{}, err
	}
	farmID, err := uuid.Parse(p.FarmID)
	if err != nil {
		return store.AdvisoryRecord{}, err
	}
	return store.AdvisoryRecord{
		ID:        id,
		FarmID:    farmID,
		Question:  p.Question,
		Answer:    p.Answer,
		CreatedAt: time.Unix(p.AskedUnix, 0),
	}, nil
}

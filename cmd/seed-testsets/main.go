package main

import (
	"context"
	"fmt"
	"time"

	"github.com/skillgate/assess-backend/internal/config"
	"github.com/skillgate/assess-backend/internal/database"
	"github.com/skillgate/assess-backend/internal/logger"
	"github.com/skillgate/assess-backend/internal/model"
	"github.com/skillgate/assess-backend/internal/repository"
	"github.com/skillgate/assess-backend/internal/service"
)

func main() {
	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	testSetRepo := repository.NewTestSetRepository(pool)
	resultRepo := repository.NewResultRepository(pool)
	testSetService := service.NewTestSetService(testSetRepo, resultRepo, log)

	fmt.Println("=== Seeding Sample Test Sets ===")

	samples := []model.CreateTestSetRequest{
		{
			Title:            "Backend Engineer Screening",
			QuizIDs:          []string{"sql-basics", "http-fundamentals", "concurrency-model"},
			ProblemIDs:       []string{"two-sum", "lru-cache"},
			TimeLimitMinutes: 90,
		},
		{
			Title:            "Frontend Engineer Screening",
			QuizIDs:          []string{"dom-events", "css-layout", "async-js"},
			ProblemIDs:       []string{"debounce", "virtual-list"},
			TimeLimitMinutes: 75,
		},
		{
			Title:      "Quiz-Only Culture Fit",
			QuizIDs:    []string{"communication", "ownership", "collaboration"},
			ProblemIDs: []string{},
			// Untimed.
			TimeLimitMinutes: 0,
		},
		{
			Title:            "Algorithms Deep Dive",
			QuizIDs:          []string{},
			ProblemIDs:       []string{"median-streams", "word-ladder", "skyline"},
			TimeLimitMinutes: 120,
		},
	}

	for _, req := range samples {
		ts, err := testSetService.Create(ctx, &req)
		if err != nil {
			log.Fatal().Err(err).Str("title", req.Title).Msg("Failed to seed test set")
		}
		fmt.Printf("Created %q (%s): %d quizzes, %d problems, %d min\n",
			ts.Title, ts.ID, len(ts.QuizIDs), len(ts.ProblemIDs), ts.TimeLimitMinutes)
	}

	fmt.Println("=== Seeding complete ===")
}

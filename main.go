package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/example/questionbot/internal/bot"
	"github.com/example/questionbot/internal/config"
	"github.com/example/questionbot/internal/database"
	"github.com/example/questionbot/internal/logger"
	"github.com/example/questionbot/internal/questionbank"
	"github.com/example/questionbot/internal/quiz"
	"github.com/example/questionbot/internal/scheduler"
	"github.com/example/questionbot/internal/telegram"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load(true)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logg, err := logger.New(cfg.LogMode, cfg.ErrorsLogPath)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer logg.Sync()

	// Контекст отменяется по SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Подключаемся к базе данных
	db, err := database.Connect(cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		logg.Fatal("failed to connect to database", "driver", cfg.DatabaseDriver, "error", err)
	}
	defer db.Close()

	clock := database.Clock(time.Now)
	users := database.NewUserRepository(db, clock)
	stats := database.NewAnswerStatRepository(db, clock)
	sent := database.NewSentQuestionRepository(db, clock)

	client, err := telegram.NewClient(cfg.BotToken)
	if err != nil {
		logg.Fatal("failed to create telegram client", "error", err)
	}
	logg.Info("authorized on telegram", "account", client.API().Self.UserName)

	bank := questionbank.NewCache(cfg.QuestionsDir, logg.With("component", "questionbank"))
	delivery := quiz.NewDelivery(quiz.NewSelector(bank, stats), client, sent, logg.With("component", "delivery"))
	answers := quiz.NewAnswers(bank, stats, sent, logg.With("component", "answers"))

	sched := scheduler.New(scheduler.OptionsFromConfig(cfg), users, sent, delivery, client, logg.With("component", "scheduler"))
	b := bot.New(bot.Deps{
		Config:    cfg,
		Messenger: client,
		Users:     users,
		Pending:   sent,
		Delivery:  delivery,
		Answers:   answers,
		Log:       logg.With("component", "bot"),
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := sched.Start(gctx); err != nil {
			return err
		}
		<-gctx.Done()
		sched.Stop()
		return nil
	})
	g.Go(func() error {
		return b.Run(gctx, client.API())
	})

	logg.Info("bot started, press Ctrl+C to stop", "timezone", cfg.Timezone, "slots", cfg.AvailableTimes)
	if err := g.Wait(); err != nil {
		logg.Error("bot stopped with error", "error", err)
		logg.Sync()
		os.Exit(1)
	}
	logg.Info("bot stopped successfully")
}

package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/aliskhannn/exam-prep-bot/internal/config"
	"github.com/aliskhannn/exam-prep-bot/internal/delivery/telegram"
	"github.com/aliskhannn/exam-prep-bot/internal/infra/postgres"
	"github.com/aliskhannn/exam-prep-bot/internal/logger"
	"github.com/aliskhannn/exam-prep-bot/internal/repository"
	"github.com/aliskhannn/exam-prep-bot/internal/scheduler"
	"github.com/aliskhannn/exam-prep-bot/internal/service"
	"github.com/aliskhannn/exam-prep-bot/internal/storage"
	syncx "github.com/aliskhannn/exam-prep-bot/internal/sync"
)

func main() {
	// .env is optional, real deployments pass environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	zl, err := logger.New(cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer zl.Sync() //nolint:errcheck

	bot, err := tgbotapi.NewBotAPI(cfg.TelegramAPIToken)
	if err != nil {
		zl.Fatal("telegram auth failed", zap.Error(err))
	}
	zl.Info("authorized", zap.String("account", bot.Self.UserName))

	// Set commands.
	commands := []tgbotapi.BotCommand{
		{Command: "start", Description: "Запустить бота"},
		{Command: "exams", Description: "Список билетов"},
		{Command: "adaptive", Description: "Адаптивная тренировка"},
		{Command: "review", Description: "Повторение прошлого раунда"},
		{Command: "note", Description: "Заметка к текущему вопросу"},
		{Command: "progress", Description: "Мой прогресс"},
		{Command: "sync", Description: "Синхронизация между устройствами"},
		{Command: "reset", Description: "Сбросить прогресс"},
		{Command: "help", Description: "Помощь"},
	}
	if _, err = bot.Request(tgbotapi.NewSetMyCommands(commands...)); err != nil {
		zl.Warn("failed to set bot commands", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repo, err := repository.NewQuestionRepository(cfg.BankJSONPath)
	if err != nil {
		zl.Fatal("question bank load failed", zap.Error(err))
	}
	zl.Info("question bank loaded", zap.Int("questions", repo.Count()))

	local, err := storage.NewLocalCache(cfg.SQLitePath)
	if err != nil {
		zl.Fatal("local cache init failed", zap.Error(err))
	}
	defer local.Close() //nolint:errcheck

	// The Postgres remote is optional: without DATABASE_URL every
	// profile stays offline and progress lives in the local cache only.
	var remote syncx.Remote
	if cfg.DB.URL != "" {
		pool, err := postgres.NewPool(ctx, cfg.DB.URL, postgres.PoolConfig{
			MaxConns:        int32(cfg.DB.MaxConnections),
			MaxConnLifetime: cfg.DB.MaxConnLifetime,
		})
		if err != nil {
			zl.Fatal("postgres pool init failed", zap.Error(err))
		}
		defer pool.Close()

		pg := syncx.NewPostgresRemote(pool)
		if err := pg.Init(ctx); err != nil {
			zl.Fatal("postgres schema init failed", zap.Error(err))
		}
		remote = pg
		zl.Info("sync remote connected")
	} else {
		zl.Info("no DATABASE_URL, running in offline mode")
	}

	syncMgr := syncx.NewManager(remote, local, zl, syncx.WithDebounce(cfg.Trainer.SyncDebounce))
	go syncMgr.Run(ctx)

	schedCfg := scheduler.DefaultConfig()
	if cfg.Trainer.SessionSize > 0 {
		schedCfg.SessionSize = cfg.Trainer.SessionSize
	}
	sched := scheduler.New(schedCfg)

	sessions := storage.NewSessionStorage()
	examService := service.NewExamService(repo, zl, cfg.Trainer.ExamCount)
	statsService := service.NewStatsService(repo, sched)
	trainer := service.NewTrainer(
		repo,
		sessions,
		local,
		syncMgr,
		sched,
		examService,
		statsService,
		zl,
		cfg.Trainer.ExamDuration,
	)

	reminders := service.NewReminderService(sessions, repo, sched, zl, cfg.Trainer.ReminderSpec)

	handler := telegram.NewHandler(bot, zl, trainer, statsService, examService)

	reminders.SetNotifier(handler)
	reminders.Start(ctx)

	if err := handler.Run(ctx); err != nil && ctx.Err() == nil {
		zl.Fatal("handler stopped", zap.Error(err))
	}

	zl.Info("shutdown signal received")
}

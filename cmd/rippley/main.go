package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/modernice/goes/aggregate/repository"
	"github.com/modernice/goes/command/cmdbus"
	"github.com/modernice/goes/event/eventbus"
	"github.com/modernice/goes/event/eventstore"
	"github.com/neoglyph/rippley/agent"
	"github.com/neoglyph/rippley/backend/mongo"
	"github.com/neoglyph/rippley/chat"
	"github.com/neoglyph/rippley/config"
	"github.com/neoglyph/rippley/internal/commands"
	"github.com/neoglyph/rippley/internal/discard"
	"github.com/neoglyph/rippley/internal/ratelimit"
	"github.com/neoglyph/rippley/memory"
	"github.com/neoglyph/rippley/shell"
	"github.com/neoglyph/rippley/task"
	"github.com/neoglyph/rippley/web"
	"github.com/neoglyph/rippley/web/routes"
	mongodrv "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	addr := flag.String("addr", "", "listen address (overrides config)")
	configPath := flag.String("config", "", "path to config file")
	glyphSpec := flag.String("glyph-spec", "", "path to glyph spec file")
	flag.Parse()

	if *showVersion {
		fmt.Printf("rippley %s (%s)\n", version, commit)
		return
	}

	if err := run(*addr, *configPath, *glyphSpec); err != nil {
		fmt.Fprintf(os.Stderr, "rippley: %v\n", err)
		os.Exit(1)
	}
}

func run(addr, configPath, glyphSpec string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadFromPath(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if addr != "" {
		cfg.Server.Addr = addr
	}

	logger, err := newLogger(cfg.Log.Level)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer logger.Sync()

	ebus := eventbus.New()
	estore := eventstore.WithBus(eventstore.New(), ebus)
	cbus := cmdbus.New(commands.NewRegistry(), ebus)

	agents := agent.GoesRepository(repository.New(estore))

	lookup := agent.NewLookup()
	lookupErrors, err := lookup.Project(ctx, ebus, estore)
	if err != nil {
		return fmt.Errorf("project agent lookup: %w", err)
	}
	go discard.Errors(lookupErrors, func(err error) {
		logger.Warn("agent lookup", zap.Error(err))
	})

	blueprints, err := config.LoadBlueprints(glyphSpec)
	if err != nil {
		return fmt.Errorf("load blueprints: %w", err)
	}
	factory := agent.NewFactory(blueprints...)
	logger.Info("agent blueprints loaded", zap.Strings("types", factory.Types()))

	commandErrors := agent.HandleCommands(ctx, cbus, agents, lookup, factory)
	go discard.Errors(commandErrors, func(err error) {
		logger.Warn("agent command", zap.Error(err))
	})

	runner := task.NewRunner(cfg.Tasks.Workers, cfg.Tasks.QueueSize, logger.Named("tasks"))
	go runner.Run(ctx)

	manager := memory.NewManager(cfg.Memory.MaxEntries)

	if uri := os.Getenv("RIPPLEY_MONGO_URI"); uri != "" {
		archive, err := connectArchive(ctx, uri)
		if err != nil {
			return fmt.Errorf("connect memory archive: %w", err)
		}
		go snapshotMemory(ctx, manager, archive, logger.Named("memory"))
	}

	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		logger.Warn("OPENAI_API_KEY not set; chat completions will fail")
	}
	chatClient := chat.NewWithConfig(chat.Config{
		APIKey:            apiKey,
		BaseURL:           cfg.Chat.BaseURL,
		Model:             cfg.Chat.Model,
		Timeout:           time.Duration(cfg.Chat.TimeoutSeconds) * time.Second,
		RequestsPerSecond: cfg.Chat.RequestsPerSecond,
		Burst:             cfg.Chat.Burst,
	})

	limiter := ratelimit.New(5, 10, 10*time.Minute)

	srv := web.New(
		cbus,
		web.WithShell(shell.Default(), nil),
		web.WithAgents(agents, lookup),
		web.WithTasks(runner),
		web.WithMemory(manager),
		web.WithChat(chatClient, routes.Middleware(routes.Chat, web.RateLimit(limiter))),
	)

	httpServer := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: srv,
	}

	errs := make(chan error, 1)
	go func() {
		logger.Info("server listening", zap.String("addr", cfg.Server.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs <- err
		}
	}()

	select {
	case err := <-errs:
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	return nil
}

func connectArchive(ctx context.Context, uri string) (memory.Archive, error) {
	client, err := mongodrv.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect to mongo: %w", err)
	}
	return mongo.MemoryArchive(ctx, client.Database("rippley").Collection("memory"))
}

func snapshotMemory(ctx context.Context, manager *memory.Manager, archive memory.Archive, logger *zap.Logger) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := manager.Archive(ctx, archive); err != nil {
				logger.Warn("archive memory", zap.Error(err))
			}
		}
	}
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("parse log level %q: %w", level, err)
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)

	return cfg.Build()
}

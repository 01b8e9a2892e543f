// Package main is a minimal echo bot driven by a config file: it
// replies to every friend message with the same message chain.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/miraigo/miraigo"
	"github.com/miraigo/miraigo/adapter"
	"github.com/miraigo/miraigo/config"
	"github.com/miraigo/miraigo/event"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	// Local overrides (verify key etc.) may live in a .env file.
	_ = godotenv.Load()

	path, err := config.Locate(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	cfg, err := config.Load(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if key := os.Getenv("MIRAIGO_VERIFY_KEY"); key != "" {
		cfg.Adapter.VerifyKey = key
	}

	level, err := config.Level(cfg.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger := config.NewLogger(os.Stdout, level)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	server := adapter.NewWebServer(logger)
	transport, err := cfg.Adapter.BuildAdapter(server, logger)
	if err != nil {
		return err
	}

	bot := miraigo.New(cfg.QQ, transport,
		miraigo.WithLogger(logger),
		miraigo.WithWebServer(server),
	)

	miraigo.On(bot, 0, func(ctx context.Context, ev *event.FriendMessage) error {
		logger.Info("echoing", "from", ev.Sender.ID, "text", ev.MessageChain.String())
		_, err := bot.Send(ctx, ev, ev.MessageChain, false)
		return err
	})

	return bot.Run(ctx, cfg.Listen.Address, cfg.Listen.Port)
}

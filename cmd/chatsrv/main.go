package main

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/wtask/chatrelay/internal/chat"
	"github.com/wtask/chatrelay/internal/config"
	"github.com/wtask/chatrelay/internal/console"
	"github.com/wtask/chatrelay/pkg/log"
)

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "%s (v%s) error:\n\n\t%v\n", BinaryName, Version, err)
		os.Exit(1)
	}
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	cfg, err := config.Load(args, stderr)
	if err != nil {
		return err
	}
	logger := log.New(cfg.Log, stdout).With().Str("version", Version).Logger()

	server, err := chat.NewServer(
		chat.WithLogger(logger),
		chat.WithQueueSize(cfg.QueueSize),
		chat.WithWriteTimeout(cfg.WriteTimeout),
		chat.WithHandshakeTimeout(cfg.HandshakeTimeout),
	)
	if err != nil {
		return err
	}
	if err := server.Start(net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info().Msg("type \"stop\" to shut the server down")
	wait(ctx, console.Watch(ctx, stdin, logger), server.Done(), logger)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func wait(ctx context.Context, command, done <-chan struct{}, logger zerolog.Logger) {
	select {
	case <-command:
	case <-done:
	case <-ctx.Done():
		logger.Info().Msg("got stop signal")
	}
}

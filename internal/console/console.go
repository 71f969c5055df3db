// Package console reads operator commands from a text stream.
package console

import (
	"bufio"
	"context"
	"io"
	"strings"

	"github.com/rs/zerolog"
)

// CommandStop - initiates graceful shutdown, case-insensitive.
const CommandStop = "stop"

// Watch - scans newline-terminated commands from r in background and closes returned channel
// when the stop command is read. End of input does not count as stop.
// The reading goroutine is not interruptible while it waits for input.
func Watch(ctx context.Context, r io.Reader, logger zerolog.Logger) <-chan struct{} {
	stop := make(chan struct{})
	go func() {
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			if ctx.Err() != nil {
				return
			}
			command := strings.TrimSpace(scanner.Text())
			switch {
			case command == "":
			case strings.EqualFold(command, CommandStop):
				logger.Info().Msg("stop command received")
				close(stop)
				return
			default:
				logger.Warn().Str("command", command).Msg("unknown console command, type \"stop\" to shut down")
			}
		}
		if err := scanner.Err(); err != nil {
			logger.Error().Err(err).Msg("console input failed")
			return
		}
		logger.Debug().Msg("console input closed")
	}()
	return stop
}

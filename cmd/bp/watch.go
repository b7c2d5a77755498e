package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/alfredjeanlab/buildproc/internal/events"
	"github.com/alfredjeanlab/buildproc/internal/ui"
	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:     "watch",
	Short:   "Follow processing events published by other bp runs",
	GroupID: "builds",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		natsURL := cfg.NATSURL
		if natsURL == "" {
			natsURL = activeServerNATSURL()
		}
		if natsURL == "" {
			return fmt.Errorf("no NATS server configured; set BP_NATS_URL or add one with 'bp server add --nats'")
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()
		return watchNATS(ctx, natsURL, cmd.OutOrStdout())
	},
}

func watchNATS(ctx context.Context, natsURL string, w io.Writer) error {
	sub, err := events.NewNATSSubscriber(natsURL,
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("nats: disconnected", "err", err)
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			logger.Info("nats: reconnected")
		}),
	)
	if err != nil {
		return fmt.Errorf("connecting to NATS: %w", err)
	}
	defer sub.Close()

	ch, cancel, err := sub.Subscribe(events.TopicAll)
	if err != nil {
		return fmt.Errorf("subscribing to events: %w", err)
	}
	defer cancel()

	defer func() {
		if n := sub.Dropped(); n > 0 {
			logger.Warn("events dropped by slow output", "count", n)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case data, ok := <-ch:
			if !ok {
				return nil
			}
			printEvent(w, data)
		}
	}
}

func printEvent(w io.Writer, data []byte) {
	if jsonOutput {
		fmt.Fprintln(w, string(data))
		return
	}
	h, err := events.DecodeHeader(data)
	if err != nil {
		logger.Warn("skipping malformed event", "err", err)
		return
	}
	fmt.Fprintf(w, "%s  %s  %s\n",
		ui.RenderMuted(h.Time.Local().Format(time.TimeOnly)),
		ui.RenderAccent(h.RunID),
		h.Type,
	)
}

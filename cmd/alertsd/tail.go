package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rickgao/market-alerts/internal/alert"
	"github.com/rickgao/market-alerts/internal/app"
	"github.com/rickgao/market-alerts/internal/config"
	"github.com/rickgao/market-alerts/internal/connection"
	"github.com/rickgao/market-alerts/internal/router"
)

func newTailCmd(configPath *string) *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Connect to the alert stream and print decoded messages",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			cfg, err := config.LoadWithDefaults(ctx, *configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			return tail(ctx, cfg, cmd.OutOrStdout(), verbose)
		},
	}
	cmd.Flags().BoolVar(&verbose, "verbose", false, "print full message JSON")
	return cmd
}

// tail streams messages to out until ctx is done.
func tail(ctx context.Context, cfg *config.Config, out io.Writer, verbose bool) error {
	tokens, err := app.TokenProvider(cfg.API)
	if err != nil {
		return err
	}

	sup := connection.NewSupervisor(connection.SupervisorConfig{
		Client: connection.ClientConfig{
			URL:          cfg.API.WSURL,
			Tokens:       tokens,
			PingInterval: cfg.Stream.PingInterval,
			PingTimeout:  cfg.Stream.PingTimeout,
			WriteTimeout: cfg.Stream.WriteTimeout,
			BufferSize:   cfg.Stream.BufferSize,
		},
		ReconnectBaseWait: cfg.Stream.ReconnectBaseDelay,
		ReconnectMaxWait:  cfg.Stream.ReconnectMaxDelay,
		MessageBufferSize: cfg.Stream.BufferSize,
	}, zap.NewNop())

	show := func(msg alert.Message) {
		fmt.Fprintln(out, describe(msg, verbose))
	}
	rtr := router.NewRouter(router.DefaultRouterConfig(), sup.Messages(), alert.InlineExecutor{}, show, zap.NewNop())

	if err := rtr.Start(ctx); err != nil {
		return err
	}
	if err := sup.Start(ctx); err != nil {
		return err
	}

	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	sup.Stop(stopCtx)
	rtr.Stop(stopCtx)

	st := rtr.Stats()
	fmt.Fprintf(out, "received=%d dispatched=%d parse_errors=%d\n", st.MessagesReceived, st.MessagesDispatched, st.ParseErrors)
	return nil
}

// describe renders one message per line.
func describe(msg alert.Message, verbose bool) string {
	if verbose {
		data, err := json.Marshal(msg)
		if err == nil {
			return string(data)
		}
	}

	switch msg.Action {
	case alert.ActionSnapshot:
		ids := make([]string, 0, len(msg.Alerts))
		for _, d := range msg.Alerts {
			ids = append(ids, d.UUID)
		}
		return fmt.Sprintf("[snapshot] %d alerts: %s", len(msg.Alerts), strings.Join(ids, ", "))
	case alert.ActionCreated, alert.ActionUpdated:
		status := "-"
		if msg.Alert.Status != nil {
			status = string(*msg.Alert.Status)
		}
		return fmt.Sprintf("[%s] %s market=%s status=%s", msg.Action, msg.Alert.UUID, msg.Alert.MarketKey(), status)
	case alert.ActionCanceled:
		return fmt.Sprintf("[canceled] %s", msg.UUID)
	case alert.ActionTriggered:
		return fmt.Sprintf("[triggered] %s event=%s price=%s", msg.Event.Alert, msg.Event.UUID, msg.Event.Price)
	default:
		return fmt.Sprintf("[%s]", msg.Action)
	}
}

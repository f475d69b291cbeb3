package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/iliyamo/slot-reservation/internal/config"
	"github.com/iliyamo/slot-reservation/internal/queue"
)

func newConsumeCmd() *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "consume",
		Short: "Append booking events from RabbitMQ to the audit log",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger := config.NewLogger(cfg, os.Stderr)
			if out == "" {
				out = cfg.AuditLogPath
			}
			if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
				return fmt.Errorf("create audit dir: %w", err)
			}
			f, err := os.OpenFile(out, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
			if err != nil {
				return fmt.Errorf("open audit log: %w", err)
			}
			defer f.Close()

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			c := &queue.AuditConsumer{
				URL:      cfg.RabbitURL,
				Exchange: cfg.EventExchange,
				Queue:    cfg.EventQueue,
				Out:      f,
				Logger:   logger,
			}
			logger.Info("booking consumer started", "queue", cfg.EventQueue, "out", out)
			if err := c.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "audit log path (default AUDIT_LOG_PATH)")
	return cmd
}

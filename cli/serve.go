package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/voicevision/voicevision/metrics"
	"github.com/voicevision/voicevision/session"
	"github.com/voicevision/voicevision/web"
)

const sweepInterval = 10 * time.Minute

func (a *app) serveCommand() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the web app",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if addr != "" {
				a.conf.Server.Addr = addr
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "override server.addr")
	return cmd
}

func (a *app) serve(ctx context.Context) error {
	m := metrics.NewCollector("voicevision")
	h := a.newClients(m)

	store, err := session.Open(ctx, a.conf.Session, a.log)
	if err != nil {
		return fmt.Errorf("session store: %w", err)
	}
	defer store.Close()
	if mem, ok := store.(*session.MemoryStore); ok {
		go sweep(ctx, mem, a)
	}

	srv, err := web.New(a.conf, a.newPipeline(h, m), a.newTutor(h), store,
		web.WithLogger(a.log),
		web.WithMetrics(m))
	if err != nil {
		return err
	}
	a.log.WithField("version", a.conf.App.Version).Info("voicevision starting")
	return srv.Run(ctx)
}

// sweep drops expired in-memory sessions until ctx ends.
func sweep(ctx context.Context, mem *session.MemoryStore, a *app) {
	t := time.NewTicker(sweepInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := mem.Sweep(); n > 0 {
				a.log.WithField("expired", n).Debug("sessions swept")
			}
		}
	}
}

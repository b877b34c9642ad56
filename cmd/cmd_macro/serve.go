package cmd_macro

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rskv-p/srtmacro/pkg/x_log"
	"github.com/rskv-p/srtmacro/servs/s_bus/bus_serv"
	"github.com/rskv-p/srtmacro/servs/s_macro/macro_api"
	"github.com/rskv-p/srtmacro/servs/s_macro/macro_client"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// refreshInterval is how often the server looks for a worker that ended on its own.
const refreshInterval = time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the control panel",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		log := initLogging(&cfg, "serve")

		defaultAdmin, err := cfg.CheckAuth()
		if err != nil {
			return err
		}
		if defaultAdmin {
			log.Warn().Msg("auth enabled with the default admin password; set auth.admin_password")
		}

		st, err := newStack(cfg)
		if err != nil {
			return err
		}

		if cfg.Auth.Enabled {
			if err := st.vault.EnsureAdmin(cfg.Auth.AdminPassword); err != nil {
				st.Close()
				return err
			}
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		g, ctx := errgroup.WithContext(ctx)

		var bus *bus_serv.Service
		if cfg.Bus.Enabled {
			bus = bus_serv.New(cfg.Bus, x_log.New("bus"))
			if err := bus.Start(); err != nil {
				st.Close()
				return err
			}
			st.ctrl.Observe(bus.PublishEvent)
			if err := bus.ServeStatus(st.ctrl.Status); err != nil {
				bus.Stop()
				st.Close()
				return err
			}
			g.Go(func() error { return bus.Forward(ctx, st.pump) })
		}

		client := macro_client.NewLocalClient(st.ctrl, st.vault)
		auth := macro_api.NewAuth(cfg.Auth.Enabled, cfg.Auth.JWTSecret, cfg.Auth.TokenTTL, st.vault)
		srv := macro_api.NewServer(client, st.pump, st.vault, auth, cfg, x_log.New("http"))

		g.Go(func() error { return srv.Serve(ctx, cfg.HTTPAddress) })
		g.Go(func() error { return refreshLoop(ctx, st) })

		err = g.Wait()
		log.Info().Msg("shutting down")

		// The controller goes first so its final event still reaches the bus.
		st.Close()
		if bus != nil {
			bus.Stop()
		}
		return err
	},
}

// refreshLoop applies queued worker status even when nobody is polling.
func refreshLoop(ctx context.Context, st *stack) error {
	t := time.NewTicker(refreshInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			st.ctrl.Refresh()
		}
	}
}

// Package cmd_bus talks to a running server over the NATS bus.
package cmd_bus

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rskv-p/srtmacro/servs/s_bus/bus_api"
	"github.com/rskv-p/srtmacro/servs/s_bus/bus_client"
	"github.com/rskv-p/srtmacro/servs/s_macro/macro_cfg"
	"github.com/rskv-p/srtmacro/servs/s_macro/macro_serv"

	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"
)

var busURL string

var Cmd = &cobra.Command{
	Use:   "bus",
	Short: "Interact with the macro bus",
}

var tailCmd = &cobra.Command{
	Use:   "tail",
	Short: "Print lifecycle events and log lines as they are published",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := bus_client.Connect(busURL, "srtmacro-tail")
		if err != nil {
			return fmt.Errorf("nats connect: %w", err)
		}
		defer client.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		out := cmd.OutOrStdout()
		return client.Tail(ctx, func(ev *macro_serv.Event, line *bus_api.LogLine) {
			switch {
			case ev != nil:
				fmt.Fprintf(out, "%s EVENT %s run=%s pid=%d %s\n",
					ev.At.Local().Format(time.TimeOnly), ev.Kind, ev.RunID, ev.Pid, ev.Message)
			case line != nil:
				fmt.Fprintf(out, "%s %s\n", line.At.Local().Format(time.TimeOnly), line.Line)
			}
		})
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Ask the server for its status over the bus",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := bus_client.Connect(busURL, "srtmacro-status")
		if err != nil {
			return fmt.Errorf("nats connect: %w", err)
		}
		defer client.Close()

		ctx, cancel := context.WithTimeout(cmd.Context(), 3*time.Second)
		defer cancel()
		st, err := client.Status(ctx)
		if err != nil {
			return fmt.Errorf("status request failed: %w", err)
		}

		state := "idle"
		if st.Running {
			state = fmt.Sprintf("%s pid=%d run=%s", st.Phase, st.Pid, st.RunID)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "STATE:", state)
		if st.LastError != "" {
			fmt.Fprintln(cmd.OutOrStdout(), "LAST ERROR:", st.LastError)
		}
		return nil
	},
}

// defaultURL points at the embedded server of a default install.
func defaultURL() string {
	cfg := macro_cfg.DefaultConfig().Bus
	if cfg.URL != "" {
		return cfg.URL
	}
	if cfg.Port > 0 {
		return fmt.Sprintf("nats://%s:%d", cfg.Host, cfg.Port)
	}
	return nats.DefaultURL
}

func init() {
	Cmd.PersistentFlags().StringVar(&busURL, "url", macro_cfg.GetEnvStr("MACRO_BUS_URL", defaultURL()), "NATS server URL")
	Cmd.AddCommand(tailCmd, statusCmd)
}

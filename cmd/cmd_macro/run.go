package cmd_macro

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rskv-p/srtmacro/servs/s_macro/macro_cfg"
	"github.com/rskv-p/srtmacro/servs/s_macro/macro_client"
	"github.com/rskv-p/srtmacro/servs/s_macro/macro_serv"
	"github.com/spf13/cobra"
)

// runCmd runs one attempt in the foreground and prints the log until the
// worker ends or the user interrupts.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the macro in the foreground",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		initLogging(&cfg, "run")

		p, err := paramsFromFlags(cmd, cfg.Defaults)
		if err != nil {
			return err
		}

		st, err := newStack(cfg)
		if err != nil {
			return err
		}
		defer st.Close()

		sub := st.pump.Subscribe()
		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case line := <-sub.C():
					fmt.Fprintln(cmd.OutOrStdout(), line)
				case <-sub.Done():
					for {
						select {
						case line := <-sub.C():
							fmt.Fprintln(cmd.OutOrStdout(), line)
						default:
							return
						}
					}
				}
			}
		}()
		defer func() {
			st.pump.Unsubscribe(sub)
			wg.Wait()
		}()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		client := macro_client.NewLocalClient(st.ctrl, st.vault)
		if err := client.Start(ctx, p); err != nil {
			return err
		}

		waitIdle(ctx, st.ctrl)
		if st.ctrl.Running() {
			_ = client.Stop(context.Background())
		}
		// Let the last lines reach the printer.
		st.pump.Wait()

		if msg := st.ctrl.LastError(); msg != "" {
			return fmt.Errorf("run ended: %s", msg)
		}
		return nil
	},
}

// waitIdle returns once the worker has ended or ctx is done.
func waitIdle(ctx context.Context, ctrl *macro_serv.Controller) {
	t := time.NewTicker(500 * time.Millisecond)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if !ctrl.Running() {
				return
			}
		}
	}
}

func addParamFlags(c *cobra.Command) {
	d := macro_cfg.DefaultConfig().Defaults
	f := c.Flags()
	f.String("arrival", d.Arrival, "Origin station")
	f.String("departure", d.Departure, "Destination station")
	f.String("date", d.Date, "Travel date (YYYYMMDD)")
	f.String("time", d.Time, "Departure slot (00,02,...,22)")
	f.String("seats", d.Seats, "standard, special or both")
	f.Int("from", d.FromRow, "First result row")
	f.Int("to", d.ToRow, "Last result row")
}

// paramsFromFlags starts from the configured defaults and applies any flag
// the user set.
func paramsFromFlags(c *cobra.Command, d macro_cfg.FormDefaults) (macro_serv.Params, error) {
	p := macro_serv.Params{
		Arrival:   d.Arrival,
		Departure: d.Departure,
		Date:      d.Date,
		Time:      d.Time,
		Seats:     d.Seats,
		FromRow:   d.FromRow,
		ToRow:     d.ToRow,
	}
	f := c.Flags()
	strs := map[string]*string{
		"arrival":   &p.Arrival,
		"departure": &p.Departure,
		"date":      &p.Date,
		"time":      &p.Time,
		"seats":     &p.Seats,
	}
	for name, dst := range strs {
		if f.Changed(name) {
			v, err := f.GetString(name)
			if err != nil {
				return p, err
			}
			*dst = v
		}
	}
	ints := map[string]*int{"from": &p.FromRow, "to": &p.ToRow}
	for name, dst := range ints {
		if f.Changed(name) {
			v, err := f.GetInt(name)
			if err != nil {
				return p, err
			}
			*dst = v
		}
	}
	return p, nil
}

func init() {
	addParamFlags(runCmd)
}

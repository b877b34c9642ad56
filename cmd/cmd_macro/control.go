package cmd_macro

import (
	"fmt"
	"io"
	"time"

	"github.com/rskv-p/srtmacro/servs/s_macro/macro_serv"
	"github.com/spf13/cobra"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start a run on the control panel",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		p, err := paramsFromFlags(cmd, cfg.Defaults)
		if err != nil {
			return err
		}
		if err := restClient().Start(cmd.Context(), p); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Started.")
		return nil
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the current run",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := restClient().Stop(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Stopped.")
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the run state",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := restClient().Status(cmd.Context())
		if err != nil {
			return err
		}
		printStatus(cmd.OutOrStdout(), st)
		return nil
	},
}

func printStatus(w io.Writer, st macro_serv.Status) {
	state := paint(styleIdle, "idle")
	if st.Running {
		state = paint(styleRunning, st.Phase)
	}
	fmt.Fprintln(w, row("state", state))
	if st.Running {
		fmt.Fprintln(w, row("pid", fmt.Sprint(st.Pid)))
		if st.StartedAt != nil {
			fmt.Fprintln(w, row("started", st.StartedAt.Local().Format(time.DateTime)))
		}
		if st.Params != nil {
			p := st.Params
			fmt.Fprintln(w, row("route", fmt.Sprintf("%s -> %s %s %s:00", p.Arrival, p.Departure, p.Date, p.Time)))
			fmt.Fprintln(w, row("rows", fmt.Sprintf("%d..%d (%s)", p.FromRow, p.ToRow, p.Seats)))
		}
	}
	if st.LastError != "" {
		fmt.Fprintln(w, row("last error", paint(styleError, st.LastError)))
	}
}

func init() {
	addParamFlags(startCmd)
	for _, c := range []*cobra.Command{startCmd, stopCmd, statusCmd} {
		addRemoteFlags(c)
	}
}

package cmd_macro

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rskv-p/srtmacro/servs/s_macro/macro_auto"
	"github.com/rskv-p/srtmacro/servs/s_macro/macro_cfg"
	"github.com/rskv-p/srtmacro/servs/s_macro/macro_serv"
	"github.com/rskv-p/srtmacro/servs/s_macro/macro_vault"
	"github.com/spf13/cobra"
)

// workerCmd is what the controller spawns. Status goes to the inherited
// pipe, everything else to stdout.
var workerCmd = &cobra.Command{
	Use:           "worker",
	Short:         "Run one reservation attempt (spawned by serve)",
	Hidden:        true,
	SilenceErrors: true,
	SilenceUsage:  true,
	RunE: func(cmd *cobra.Command, args []string) error {
		status, err := macro_serv.OpenStatusPipe()
		if err != nil {
			return err
		}
		defer status.Close()

		cfg, err := loadConfig()
		if err != nil {
			reportEarlyFailure(status, err)
			return err
		}
		p, err := macro_serv.ParamsFromEnv()
		if err != nil {
			reportEarlyFailure(status, err)
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return macro_serv.RunWorker(ctx, p, macro_serv.WorkerDeps{
			Automation: automationFor(cfg),
			Notifier:   notifierFor(cfg),
			Status:     status,
			Out:        os.Stdout,
		})
	},
}

// reportEarlyFailure covers errors before the worker body can run.
func reportEarlyFailure(status io.Writer, err error) {
	fmt.Fprintf(os.Stdout, "[ERROR] %v\n", err)
	for _, m := range []macro_serv.StatusMessage{
		macro_serv.ErrorStatus{Message: err.Error()},
		macro_serv.FinishedStatus{},
	} {
		if b, encErr := macro_serv.EncodeStatus(m); encErr == nil {
			_, _ = status.Write(append(b, '\n'))
		}
	}
}

// automationFor picks the external script, or the demo when none is set.
func automationFor(cfg macro_cfg.MacroConfig) macro_serv.Automation {
	a := cfg.Automation
	switch {
	case a.Command != "":
		return &macro_auto.CommandAutomation{Command: a.Command, Dir: a.Dir}
	case a.Demo:
		return &macro_auto.DemoAutomation{Step: a.Step, Cycles: a.Cycles}
	default:
		return nil
	}
}

// notifierFor posts to the webhook the controller passed in the environment.
func notifierFor(cfg macro_cfg.MacroConfig) macro_serv.Notifier {
	url := os.Getenv(macro_vault.KeyWebhook)
	if !cfg.Notify.Enabled || url == "" {
		return nil
	}
	return macro_auto.NewDiscordNotifier(url, cfg.Notify.Timeout)
}

package cmd_macro

import (
	"fmt"

	"github.com/rskv-p/srtmacro/servs/s_macro/macro_client"
	"github.com/spf13/cobra"
)

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Print the buffered log, or follow it with -f",
	RunE: func(cmd *cobra.Command, args []string) error {
		follow, _ := cmd.Flags().GetBool("follow")
		client := restClient()
		out := cmd.OutOrStdout()

		if follow {
			return client.StreamLogs(cmd.Context(), func(line string) {
				fmt.Fprintln(out, line)
			})
		}

		logs, err := client.Logs(cmd.Context())
		if err != nil {
			return err
		}
		for _, line := range logs.Lines {
			fmt.Fprintln(out, line)
		}
		if logs.LastError != "" {
			fmt.Fprintln(out, paint(styleError, "last error: "+logs.LastError))
		}
		return nil
	},
}

// watchCmd follows the log over the websocket.
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow the log over a websocket",
	RunE: func(cmd *cobra.Command, args []string) error {
		token, _ := loadToken()
		out := cmd.OutOrStdout()
		ws := macro_client.NewWSClient(panelURL, token, func(line string) {
			fmt.Fprintln(out, line)
		})
		if err := ws.Connect(cmd.Context()); err != nil {
			return fmt.Errorf("failed to connect to websocket: %w", err)
		}
		<-ws.Done()
		if cmd.Context().Err() != nil {
			return nil
		}
		return ws.Err()
	},
}

func init() {
	logsCmd.Flags().BoolP("follow", "f", false, "Follow the live stream")
	addRemoteFlags(logsCmd)
	addRemoteFlags(watchCmd)
}

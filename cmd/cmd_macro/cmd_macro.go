// Package cmd_macro holds the srtmacro commands: the server, the hidden
// worker entrypoint and the remote control commands.
package cmd_macro

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rskv-p/srtmacro/servs/s_macro/macro_cfg"
	"github.com/rskv-p/srtmacro/servs/s_macro/macro_client"
	"github.com/spf13/cobra"
)

// ConfigPath is bound to the root --config flag.
var ConfigPath string

// panelURL is bound to --url on the remote commands.
var panelURL string

const defaultPanelURL = "http://127.0.0.1:8000"

// Commands returns every top-level macro command.
func Commands() []*cobra.Command {
	return []*cobra.Command{
		serveCmd,
		workerCmd,
		runCmd,
		loginCmd,
		logoutCmd,
		startCmd,
		stopCmd,
		statusCmd,
		logsCmd,
		watchCmd,
		envCmd,
	}
}

func loadConfig() (macro_cfg.MacroConfig, error) {
	cfg, err := macro_cfg.Load(ConfigPath)
	if err != nil {
		return cfg, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// addRemoteFlags registers --url on commands that talk to a running panel.
func addRemoteFlags(c *cobra.Command) {
	c.Flags().StringVar(&panelURL, "url", macro_cfg.GetEnvStr("MACRO_URL", defaultPanelURL), "Control panel URL")
}

func restClient() *macro_client.RESTClient {
	token, _ := loadToken()
	return macro_client.NewRESTClient(panelURL, token)
}

//---------------------
// Token file
//---------------------

// tokenFilePath returns the file path where the token is stored
func tokenFilePath() string {
	return macro_cfg.GetEnvStr("MACRO_TOKEN_FILE", "./_data/data/.macro_token")
}

// loadToken reads the saved token from file
func loadToken() (string, error) {
	data, err := os.ReadFile(tokenFilePath())
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

func saveToken(token string) error {
	if err := os.MkdirAll(filepath.Dir(tokenFilePath()), 0o755); err != nil {
		return err
	}
	return os.WriteFile(tokenFilePath(), []byte(token), 0o600)
}

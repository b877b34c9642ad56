package cmd_macro

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// loginCmd handles the login process and saves the token
var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in to the control panel and save the token",
	RunE: func(cmd *cobra.Command, args []string) error {
		username, _ := cmd.Flags().GetString("username")
		password, _ := cmd.Flags().GetString("password")
		if username == "" || password == "" {
			return fmt.Errorf("both --username and --password are required")
		}

		token, err := restClient().Login(cmd.Context(), username, password)
		if err != nil {
			return fmt.Errorf("authorization error: %w", err)
		}
		if token == "" {
			return fmt.Errorf("token not received")
		}
		if err := saveToken(token); err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), "Login successful. Token saved.")
		return nil
	},
}

// logoutCmd removes the saved token
var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove the saved token",
	RunE: func(cmd *cobra.Command, args []string) error {
		tokenFile := tokenFilePath()
		if _, err := os.Stat(tokenFile); os.IsNotExist(err) {
			return fmt.Errorf("token not found, already logged out")
		}
		if err := os.Remove(tokenFile); err != nil {
			return fmt.Errorf("failed to remove token: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Logout successful. Token removed.")
		return nil
	},
}

func init() {
	loginCmd.Flags().String("username", "admin", "Username")
	loginCmd.Flags().String("password", "", "Password")
	addRemoteFlags(loginCmd)
}

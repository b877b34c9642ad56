package cmd_macro

import (
	"fmt"

	"github.com/rskv-p/srtmacro/servs/s_macro/macro_vault"
	"github.com/spf13/cobra"
)

var envCmd = &cobra.Command{
	Use:   "env",
	Short: "Manage the stored booking credentials",
}

var envSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Encrypt and store the credentials",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		db, v, err := openVault(cfg)
		if err != nil {
			return err
		}
		defer closeDB(db)

		member, _ := cmd.Flags().GetString("member")
		password, _ := cmd.Flags().GetString("password")
		webhook, _ := cmd.Flags().GetString("webhook")
		if err := v.Save(map[string]string{
			macro_vault.KeyMemberNumber: member,
			macro_vault.KeyPassword:     password,
			macro_vault.KeyWebhook:      webhook,
		}); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Credentials saved.")
		return nil
	},
}

var envCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Show which credentials are set",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		db, v, err := openVault(cfg)
		if err != nil {
			return err
		}
		defer closeDB(db)

		check := v.Check()
		masked := v.Masked()
		for _, k := range macro_vault.Keys {
			mark := paint(styleError, "missing")
			if check[k] {
				mark = paint(styleOK, masked[k])
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%-18s %s\n", k, mark)
		}
		if !v.Ready() {
			return fmt.Errorf("%s and %s are required", macro_vault.KeyMemberNumber, macro_vault.KeyPassword)
		}
		return nil
	},
}

func init() {
	envSetCmd.Flags().String("member", "", "Member number")
	envSetCmd.Flags().String("password", "", "Account password")
	envSetCmd.Flags().String("webhook", "", "Discord webhook URL (optional)")
	envCmd.AddCommand(envSetCmd, envCheckCmd)
}

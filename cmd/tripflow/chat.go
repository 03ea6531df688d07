package main

import (
	"context"
	"os"

	"github.com/aretw0/tripflow/internal/cli"
	"github.com/spf13/cobra"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Book a trip interactively on the terminal",
	Long: `Starts a booking conversation on the terminal.
Details already known can be passed with --prefill, e.g.
  tripflow chat --prefill origin_city=Paris --prefill budget=500`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		sessionID, _ := cmd.Flags().GetString("session")
		prefill, _ := cmd.Flags().GetStringArray("prefill")
		quiet, _ := cmd.Flags().GetBool("quiet")

		return cli.RunChat(context.Background(), cfg, cli.ChatCommand{
			SessionID: sessionID,
			Prefill:   prefill,
			Quiet:     quiet,
		}, os.Stdin, os.Stdout)
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)

	chatCmd.Flags().String("session", "", "Session ID (generated when empty)")
	chatCmd.Flags().StringArray("prefill", nil, "Known detail as key=value (repeatable)")
	chatCmd.Flags().BoolP("quiet", "q", false, "Do not print the banner")

	// 'chat' is the default when no command is provided.
	rootCmd.RunE = chatCmd.RunE
	rootCmd.Flags().AddFlagSet(chatCmd.Flags())
}

package cmd

import (
	"fmt"
	"strings"

	"chatrelay/pkg/chat"
	"chatrelay/pkg/config"

	"github.com/spf13/cobra"
)

var (
	detectDM      bool
	detectBotName string
)

var detectCmd = &cobra.Command{
	Use:   "detect [text]",
	Short: "Debug command detection for a message",
	Long:  "Runs the configured command detector against the given message text and prints the classification.",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.LoadConfig()
		if err != nil {
			fmt.Printf("failed to load config: %v\n", err)
			return
		}

		detector := chat.Detector{
			Prefix:         cfg.Relay.Prefix(),
			PrefixEnabled:  cfg.Relay.PrefixCommandsEnabled(),
			DefaultBotName: cfg.Relay.BotName,
		}

		text := strings.Join(args, " ")
		command, addressed := detector.Detect(text, detectDM, detectBotName)

		fmt.Printf("addressed: %v\n", addressed)
		if addressed {
			fmt.Printf("command:   %q\n", command)
		}
	},
}

func init() {
	detectCmd.Flags().BoolVar(&detectDM, "dm", false, "treat the message as a direct message")
	detectCmd.Flags().StringVar(&detectBotName, "bot-name", "", "bot display name carried by the message")
	rootCmd.AddCommand(detectCmd)
}

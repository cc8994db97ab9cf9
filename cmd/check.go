package cmd

import (
	"fmt"
	"strings"

	"chatrelay/pkg/config"

	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate the relay configuration",
	Long:  "Loads and validates config.json, then prints the resolved runtime settings.",
	Run: func(cmd *cobra.Command, args []string) {
		_ = args

		cfg, err := config.LoadConfig()
		if err != nil {
			fmt.Printf("failed to load config: %v\n", err)
			return
		}
		if err := cfg.Validate(); err != nil {
			fmt.Printf("invalid config: %v\n", err)
			return
		}

		fmt.Println("configuration ok")
		fmt.Printf("  providers:       %s\n", strings.Join(enabledProviderNames(cfg), ","))
		fmt.Printf("  command prefix:  %s\n", cfg.Relay.Prefix())
		fmt.Printf("  prefix commands: %v\n", cfg.Relay.PrefixCommandsEnabled())
		fmt.Printf("  cache ttl:       %s\n", cfg.Relay.CacheTTL())
		fmt.Printf("  request timeout: %s\n", cfg.Relay.RequestTimeout())
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func enabledProviderNames(cfg *config.Config) []string {
	names := make([]string, 0, 2)
	if cfg.Providers.Telegram.Enabled {
		names = append(names, "telegram")
	}
	if cfg.Providers.Webhook.Enabled {
		names = append(names, "webhook")
	}

	return names
}

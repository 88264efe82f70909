// Package cli implements the plura-proxy CLI commands.
package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rcliao/plura-proxy/internal/config"
	"github.com/rcliao/plura-proxy/internal/store"
)

var (
	dbPath     string
	formatFlag string
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "plura-proxy",
	Short: "Post chat messages as one of your members",
	Long:  "A Slack bot that reposts trigger-tagged messages under a member's name and avatar, and keeps a ledger so they can be edited, deleted, or reproxied later.",
}

var (
	membersCmd = &cobra.Command{
		Use:   "members",
		Short: "Manage members",
	}
	triggersCmd = &cobra.Command{
		Use:   "triggers",
		Short: "Manage member triggers",
	}
	ledgerCmd = &cobra.Command{
		Use:   "ledger",
		Short: "Inspect proxied messages",
	}
)

func init() {
	RootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "", "Database path or Postgres URL (default: $PLURA_DATABASE_URL or ~/.plura-proxy/proxy.db)")
	RootCmd.PersistentFlags().StringVarP(&formatFlag, "format", "f", "json", "Output format: json or text")

	RootCmd.AddCommand(membersCmd, triggersCmd, ledgerCmd)
}

// loadConfig reads the environment and applies the --db override.
func loadConfig() *config.Config {
	cfg, err := config.New()
	if err != nil {
		exitErr("load config", err)
	}
	if dbPath != "" {
		cfg.DatabaseURL = dbPath
		cfg.DBDriver = "auto"
		if err := cfg.ResolveDefaults(); err != nil {
			exitErr("load config", err)
		}
	}
	return cfg
}

func openStore() (*store.SQLStore, *config.Config) {
	cfg := loadConfig()
	s, err := store.Open(cfg.DBDriver, cfg.DatabaseURL)
	if err != nil {
		exitErr("open store", err)
	}
	return s, cfg
}

// output prints v as indented JSON, or calls text when --format=text.
func output(v any, text func()) {
	if formatFlag == "text" && text != nil {
		text()
		return
	}
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}

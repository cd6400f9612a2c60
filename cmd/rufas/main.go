package main

import (
	"context"
	"fmt"
	"os"

	"rufas/internal/app"
	"rufas/internal/config"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	rootDir    string
	verbose    bool
	outputJSON bool
	outputTOON bool
)

func main() {
	// A missing .env is fine; values only fill in unset variables.
	_ = godotenv.Load()

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

// loadConfig resolves the default paths and reads the config file.
func loadConfig() (*config.Config, map[string]string, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := app.LoadConfig(defaults["config_path"], defaults["base_dir"])
	if err != nil {
		return nil, nil, fmt.Errorf("reading config: %w", err)
	}
	return cfg, defaults, nil
}

// newApp reads the config and opens the folder given by --root.
// The caller must defer app.Close().
// operation identifies the CLI command being run (e.g. "Scan", "ExportBundle").
func newApp(ctx context.Context, operation, parameters string, watch bool) (*app.RufasApp, error) {
	cfg, _, err := loadConfig()
	if err != nil {
		return nil, err
	}

	a, err := app.NewRufasApp(ctx, cfg, rootDir, app.Options{
		Operation:  operation,
		Parameters: parameters,
		Watch:      watch,
		Verbose:    verbose,
	})
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}
	return a, nil
}

var rootCmd = &cobra.Command{
	Use:          "rufas",
	Short:        "Tag files, group them into bundles and export bundles as documents",
	SilenceUsage: true,
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg := config.NewConfig(defaults["base_dir"])
		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("Base Dir: %s\n", defaults["base_dir"])
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, defaults, err := loadConfig()
		if err != nil {
			return err
		}

		if outputJSON || outputTOON {
			return printStructured(cmd, cfg)
		}

		fmt.Printf("Configuration from %s:\n\n", defaults["config_path"])
		fmt.Printf("Base Dir:   %s\n", cfg.BaseDir)
		fmt.Printf("Log Dir:    %s\n", cfg.LogDir)
		fmt.Printf("Storage:    %s (%s)\n", cfg.Storage.Type, cfg.Storage.Dir)
		fmt.Printf("Export:     %s, format %s\n", cfg.Export.Type, cfg.Export.Format)
		fmt.Printf("Encryption: %s\n", cfg.Encryption.Type)
		fmt.Printf("Polling:    enabled=%t interval=%s watch=%t\n", cfg.Polling.Enabled, cfg.Polling.Interval, cfg.Filesystem.Watch)
		return nil
	},
}

// keys command
var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Manage export encryption keys",
}

var keysInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Generate the encryption key pair",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := loadConfig()
		if err != nil {
			return err
		}

		passphrase, err := readPassphrase("Passphrase: ")
		if err != nil {
			return err
		}
		confirm, err := readPassphrase("Repeat passphrase: ")
		if err != nil {
			return err
		}
		if passphrase != confirm {
			return fmt.Errorf("passphrases do not match")
		}

		if err := app.SetupKeys(cfg, passphrase); err != nil {
			return err
		}
		fmt.Printf("Public key:  %s\n", cfg.Encryption.PublicKeyPath)
		fmt.Printf("Private key: %s\n", cfg.Encryption.PrivateKeyPath)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&rootDir, "root", "C", ".", "Folder to open")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log debug output to stderr")
	rootCmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "Print output as JSON")
	rootCmd.PersistentFlags().BoolVar(&outputTOON, "toon", false, "Print output as TOON")
	rootCmd.MarkFlagsMutuallyExclusive("json", "toon")

	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)

	// keys subcommands
	keysCmd.AddCommand(keysInitCmd)

	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(keysCmd)
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(filesCmd)
	rootCmd.AddCommand(tagCmd)
	rootCmd.AddCommand(bundleCmd)
	rootCmd.AddCommand(exportCmd)
}

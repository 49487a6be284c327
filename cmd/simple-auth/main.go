package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/brizzai/simple-auth/internal/auth"
	"github.com/brizzai/simple-auth/internal/auth/fake"
	"github.com/brizzai/simple-auth/internal/auth/resolver"
	"github.com/brizzai/simple-auth/internal/config"
	"github.com/brizzai/simple-auth/internal/logger"
	"github.com/brizzai/simple-auth/internal/metrics"
	"github.com/brizzai/simple-auth/internal/server"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

func main() {
	Execute()
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		pterm.Error.Println(err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "simple-auth",
		Short: "Sign users in with external authentication providers",
		Long: `simple-auth redirects browsers to an authentication provider such as
Google or GitHub and turns the provider's callback into an authenticated client.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if v, _ := cmd.Flags().GetBool("version"); v {
				fmt.Fprintln(cmd.OutOrStdout(), config.GetVersionInfo())
				return nil
			}
			return runServe(cmd)
		},
	}

	config.BindFlags(rootCmd.PersistentFlags())
	rootCmd.Flags().BoolP("version", "v", false, "Show version information")

	rootCmd.AddCommand(newServeCmd(), newProvidersCmd(), newConfigCmd())
	return rootCmd
}

// loadConfig reads and validates the configuration for cmd
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the authentication server (default)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd)
		},
	}
}

// runServe starts the server and blocks until the process is signalled
func runServe(cmd *cobra.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := logger.InitLogger(&cfg.Logging); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting simple-auth",
		zap.String("version", config.GetVersionInfo()),
		zap.Strings("providers", cfg.ProviderNames()),
		zap.Bool("fake", cfg.Fake),
	)

	app := fx.New(newApp(cfg))
	if err := app.Err(); err != nil {
		return err
	}
	app.Run()
	return nil
}

// newApp wires the application for cfg
func newApp(cfg *config.Config) fx.Option {
	resolverModule := resolver.Module
	if cfg.Fake {
		resolverModule = fake.Module
	}

	return fx.Options(
		fx.Supply(cfg),
		fx.WithLogger(func() fxevent.Logger {
			return &fxevent.ZapLogger{Logger: logger.GetLogger().Named("fx")}
		}),
		resolverModule,
		metrics.Module,
		auth.Module,
		server.Module,
	)
}

func newProvidersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "providers",
		Short: "List the configured authentication providers",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			names := cfg.ProviderNames()
			if len(names) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No providers configured")
				return nil
			}

			data := pterm.TableData{{"Name", "Type", "Client ID", "Scopes", "Route"}}
			for _, name := range names {
				p := cfg.Providers[name]
				data = append(data, []string{
					name,
					string(p.Type),
					p.ClientID,
					strings.Join(p.Scopes, " "),
					"/authenticate/" + strings.ToLower(name),
				})
			}

			table, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), table)
			return nil
		},
	}
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cmd.Flags())
			if err != nil {
				return err
			}

			redacted := *cfg
			if redacted.Auth.StateSecret != "" {
				redacted.Auth.StateSecret = "<redacted>"
			}

			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(&redacted); err != nil {
				return fmt.Errorf("failed to encode config: %w", err)
			}
			return enc.Close()
		},
	}
}

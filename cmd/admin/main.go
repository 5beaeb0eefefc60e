// Command admin runs maintenance tasks against the blood donation database:
// schema migration, user role and status changes, funding totals and local
// test tokens.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"blood-donation-api/internal/app"
	"blood-donation-api/internal/core/config"
	"blood-donation-api/internal/core/database"
	"blood-donation-api/internal/core/logger"
	"blood-donation-api/internal/domain"
)

var configPath string

func main() {
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:           "admin",
		Short:         "Maintenance commands for the blood donation API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", os.Getenv("CONFIG_PATH"), "path to the yaml config")

	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(userCmd())
	rootCmd.AddCommand(fundingCmd())
	rootCmd.AddCommand(statsCmd())
	rootCmd.AddCommand(tokenCmd())
	rootCmd.AddCommand(lifecycleCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// withApp loads config, wires the services and hands them to fn.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log, cleanup := logger.New(cfg.Log)
	defer cleanup()

	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()
	a, err := app.New(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the users, donation_requests and payments tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			log, cleanup := logger.New(cfg.Log)
			defer cleanup()

			db, err := app.OpenDB(cfg, log)
			if err != nil {
				return err
			}
			defer database.Close(db)
			if err := database.Migrate(db); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			log.Info("migration complete", zap.String("driver", cfg.DB.Driver))
			return nil
		},
	}
}

func userCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Inspect and administer user accounts",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "get <email>",
		Short: "Print a user record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				u, err := a.Users.Get(ctx, args[0])
				if err != nil {
					return err
				}
				if u == nil {
					return fmt.Errorf("user %s not found", args[0])
				}
				return printJSON(cmd, u)
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:       "role <email> <donor|volunteer|admin>",
		Short:     "Change a user's role",
		Args:      cobra.ExactArgs(2),
		ValidArgs: []string{string(domain.RoleDonor), string(domain.RoleVolunteer), string(domain.RoleAdmin)},
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				u, err := a.Users.SetRole(ctx, args[0], domain.Role(args[1]))
				if err != nil {
					return err
				}
				if u == nil {
					return fmt.Errorf("user %s not found", args[0])
				}
				return printJSON(cmd, u)
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status <email> <active|blocked>",
		Short: "Block or unblock a user",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				u, err := a.Users.SetStatus(ctx, args[0], domain.UserStatus(args[1]))
				if err != nil {
					return err
				}
				if u == nil {
					return fmt.Errorf("user %s not found", args[0])
				}
				return printJSON(cmd, u)
			})
		},
	})

	var status string
	list := &cobra.Command{
		Use:   "list",
		Short: "List users, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				users, err := a.Users.List(ctx, domain.UserStatus(status))
				if err != nil {
					return err
				}
				return printJSON(cmd, users)
			})
		},
	}
	list.Flags().StringVar(&status, "status", "", "filter by status (active, blocked)")
	cmd.AddCommand(list)

	return cmd
}

func fundingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "funding",
		Short: "Print the sum of all recorded payments",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				total, err := a.Payments.TotalFunding(ctx)
				if err != nil {
					return err
				}
				return printJSON(cmd, total)
			})
		},
	}
}

func statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print the admin dashboard counters",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				st, err := a.Stats.AdminStats(ctx)
				if err != nil {
					return err
				}
				return printJSON(cmd, st)
			})
		},
	}
}

func tokenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "token <email>",
		Short: "Issue a bearer token for local auth mode",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if cfg.Auth.Mode != "local" {
				return fmt.Errorf("auth.mode is %q; tokens can only be issued in local mode", cfg.Auth.Mode)
			}
			tok, err := app.LocalTokens(cfg.Auth).Issue(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
}

func lifecycleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "lifecycle",
		Short: "Print the donation status transitions enforced in strict mode",
		RunE: func(cmd *cobra.Command, args []string) error {
			strict := false
			if cfg, err := config.Load(configPath); err == nil {
				strict = cfg.Lifecycle.Strict
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "lifecycle.strict = %t\n", strict)
			for _, t := range domain.Transitions() {
				fmt.Fprintf(out, "%-10s -> %s\n", t.From, t.To)
			}
			return nil
		},
	}
}

package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"lattice/api/login"
	"lattice/infrastructure/cache"
	"lattice/infrastructure/config"
	"lattice/infrastructure/rbac"
)

var (
	seedUsername string
	seedPassword string

	seedAdminCmd = &cobra.Command{
		Use:   "seed-admin",
		Short: "Create or reset an Admin user",
		Long:  `Creates the user with the Admin role, or resets the password and role of an existing one. The password falls back to ADMIN_PASSWORD.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeedAdmin(cmd)
		},
	}
)

func init() {
	seedAdminCmd.Flags().StringVar(&seedUsername, "username", "admin", "username to create or reset")
	seedAdminCmd.Flags().StringVar(&seedPassword, "password", "", "password (defaults to $ADMIN_PASSWORD)")
}

func runSeedAdmin(cmd *cobra.Command) error {
	password := seedPassword
	if password == "" {
		password = os.Getenv("ADMIN_PASSWORD")
	}
	if password == "" {
		return errors.New("a password is required: pass --password or set ADMIN_PASSWORD")
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	ctx := context.Background()
	db, err := openDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	if _, err := rbac.New(cache.NewRbacRolesCache(), db).EnsureSeeded(ctx); err != nil {
		return err
	}
	if err := login.UpsertUserPasswordHash(ctx, db, seedUsername, rbac.RoleAdmin, password); err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "seeded admin user (username=%s)\n", seedUsername)
	return nil
}

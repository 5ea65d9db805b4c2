package cmd

import (
	"log/slog"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"github.com/templui/estatedesk/internal/db"
)

func MigrateCmd() *cobra.Command {
	var flags dbFlags

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back database migrations",
	}
	flags.register(cmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := flags.open()
			if err != nil {
				return err
			}
			defer closeDB(conn)
			return db.RunMigrations(conn.DB, flags.driver)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back the latest migration",
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := flags.open()
			if err != nil {
				return err
			}
			defer closeDB(conn)
			return db.MigrateDown(conn.DB, flags.driver)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Print the state of every migration",
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := flags.open()
			if err != nil {
				return err
			}
			defer closeDB(conn)
			return db.MigrationStatus(conn.DB, flags.driver)
		},
	})

	return cmd
}

func closeDB(conn *sqlx.DB) {
	err := conn.Close()
	if err != nil {
		slog.Error("failed to close database", "error", err)
	}
}

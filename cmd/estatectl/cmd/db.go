package cmd

import (
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"github.com/templui/estatedesk/internal/config"
	"github.com/templui/estatedesk/internal/db"
)

type dbFlags struct {
	driver     string
	connection string
}

func (f *dbFlags) register(cmd *cobra.Command) {
	driver, connection := config.Database()
	cmd.PersistentFlags().StringVar(&f.driver, "driver", driver, "database driver (sqlite or pgx)")
	cmd.PersistentFlags().StringVar(&f.connection, "db", connection, "database connection string")
}

func (f *dbFlags) open() (*sqlx.DB, error) {
	return db.Init(f.driver, f.connection)
}

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/templui/estatedesk/internal/repository"
	"github.com/templui/estatedesk/internal/service"
)

func SeedCmd() *cobra.Command {
	var flags dbFlags

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load reference data",
	}
	flags.register(cmd)

	var file string
	currencies := &cobra.Command{
		Use:   "currencies",
		Short: "Upsert the currency catalog",
		Long:  "Upserts currencies from a YAML catalog. Without --file the built-in catalog is used.",
		RunE: func(cmd *cobra.Command, args []string) error {
			data := service.DefaultCurrencyCatalog
			if file != "" {
				var err error
				data, err = os.ReadFile(file)
				if err != nil {
					return fmt.Errorf("failed to read catalog: %w", err)
				}
			}

			catalog, err := service.ParseCurrencyCatalog(data)
			if err != nil {
				return err
			}

			conn, err := flags.open()
			if err != nil {
				return err
			}
			defer closeDB(conn)

			currencyService := service.NewCurrencyService(repository.NewCurrencyRepository(conn))
			err = currencyService.Seed(catalog)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d currencies\n", len(catalog))
			return nil
		},
	}
	currencies.Flags().StringVar(&file, "file", "", "path to a YAML currency catalog")
	cmd.AddCommand(currencies)

	return cmd
}

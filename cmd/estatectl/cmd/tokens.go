package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/templui/estatedesk/internal/repository"
	"github.com/templui/estatedesk/internal/service"
)

func TokensCmd() *cobra.Command {
	var flags dbFlags

	cmd := &cobra.Command{
		Use:   "tokens",
		Short: "Maintain upload and login tokens",
	}
	flags.register(cmd)

	var olderThan time.Duration
	cleanup := &cobra.Command{
		Use:   "cleanup",
		Short: "Delete stale upload tokens and spent login links",
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := flags.open()
			if err != nil {
				return err
			}
			defer closeDB(conn)

			uploadTokenService := service.NewUploadTokenService(
				repository.NewUploadTokenRepository(conn),
				repository.NewPropertyRepository(conn),
				repository.NewAgentRepository(conn),
				repository.NewCustomFieldRepository(conn),
				repository.NewCurrencyRepository(conn),
				"", 0, 0,
			)
			deleted, err := uploadTokenService.Cleanup(olderThan)
			if err != nil {
				return fmt.Errorf("failed to delete stale upload tokens: %w", err)
			}

			authService := service.NewAuthService(repository.NewAgentRepository(conn), repository.NewTokenRepository(conn), nil, nil, "", false, 0, 0)
			purged, err := authService.PurgeTokens(olderThan)
			if err != nil {
				return fmt.Errorf("failed to purge login tokens: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "deleted %d upload tokens and %d login tokens\n", deleted, purged)
			return nil
		},
	}
	cleanup.Flags().DurationVar(&olderThan, "older-than", 30*24*time.Hour, "only delete tokens that expired or were deactivated before this age")
	cmd.AddCommand(cleanup)

	return cmd
}

package cli

import (
	"context"
	"fmt"

	"github.com/portfolio/portfolio/backend/go-services/internal/models"
	"github.com/portfolio/portfolio/backend/go-services/internal/resource"
	"github.com/portfolio/portfolio/backend/go-services/internal/users"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// CreateAdminCmd returns the command that bootstraps an administrator.
func CreateAdminCmd() *cobra.Command {
	var in users.RegisterInput

	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an administrator account, or promote an existing one",
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := connect(cmd.Context())
			if err != nil {
				return err
			}
			defer b.Close()

			store, err := users.NewMongoStore(cmd.Context(), b.db)
			if err != nil {
				return err
			}
			u, err := createAdmin(cmd.Context(), store, b.cfg.Auth.BcryptCost, b.log, in)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "admin ready: %s (%s)\n", u.Email, u.ID.Hex())
			return nil
		},
	}
	cmd.Flags().StringVar(&in.Name, "name", "Admin", "display name")
	cmd.Flags().StringVar(&in.Email, "email", "", "login email")
	cmd.Flags().StringVar(&in.Password, "password", "", "login password")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func createAdmin(ctx context.Context, store resource.Store[models.User], cost int, log *zap.Logger, in users.RegisterInput) (*models.User, error) {
	u, err := users.NewService(store, cost, log).CreateAdmin(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("create admin: %w", err)
	}
	return u, nil
}

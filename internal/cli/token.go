package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/noah-isme/path-planner/internal/models"
	"github.com/noah-isme/path-planner/internal/service"
	"github.com/noah-isme/path-planner/pkg/config"
)

type tokenOptions struct {
	userID string
	role   string
	ttl    time.Duration
}

func newTokenCmd() *cobra.Command {
	opts := tokenOptions{}
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint an API access token signed with the configured JWT secret",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			return runToken(cmd.OutOrStdout(), cfg.JWT, opts)
		},
	}
	cmd.Flags().StringVar(&opts.userID, "user", "", "Subject user id")
	cmd.Flags().StringVar(&opts.role, "role", string(models.RoleStudent), "Role claim (STUDENT or ADMIN)")
	cmd.Flags().DurationVar(&opts.ttl, "ttl", time.Hour, "Token lifetime")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func runToken(out io.Writer, jwtCfg config.JWTConfig, opts tokenOptions) error {
	role := models.UserRole(strings.ToUpper(opts.role))
	if role != models.RoleStudent && role != models.RoleAdmin {
		return fmt.Errorf("unknown role %q", opts.role)
	}
	tokens := service.NewTokenService(service.TokenConfig{Secret: jwtCfg.Secret, Issuer: jwtCfg.Issuer})
	signed, err := tokens.Issue(opts.userID, role, opts.ttl)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, signed)
	return nil
}

package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"virtualexpo/internal/adapters/auth"
	"virtualexpo/internal/domain"
)

var (
	tokenSubject string
	tokenRoles   []string
	tokenTTL     time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint an operator JWT signed with JWT_SECRET",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.JWTSecret == "" {
			return errors.New("JWT_SECRET is not set")
		}
		token, err := auth.NewJWTIssuer(cfg.JWTSecret).Issue(tokenSubject, tokenRoles, tokenTTL)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
		return err
	},
}

func init() {
	rootCmd.AddCommand(tokenCmd)

	tokenCmd.Flags().StringVar(&tokenSubject, "subject", "", "operator user id written to the sub claim")
	tokenCmd.Flags().StringSliceVar(&tokenRoles, "role", []string{domain.RoleAdmin}, "roles claim (repeatable)")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 12*time.Hour, "token lifetime")
	_ = tokenCmd.MarkFlagRequired("subject")
}

package main

import (
	"fmt"

	"github.com/jonathan/hrms/internal/config"
	"github.com/jonathan/hrms/internal/server"
	"github.com/spf13/cobra"
)

var (
	tokenEmail string
	tokenRole  string
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint a session token for the REST API",
	Long:  "Mint a bearer session token signed with SESSION_SECRET. Sign-in happens upstream; this command stands in for it.",
	RunE:  runToken,
}

func init() {
	tokenCmd.Flags().StringVar(&tokenEmail, "email", "", "User email (required)")
	tokenCmd.Flags().StringVar(&tokenRole, "role", "", "User role: admin, ea or hr (required)")
	_ = tokenCmd.MarkFlagRequired("email")
	_ = tokenCmd.MarkFlagRequired("role")
	rootCmd.AddCommand(tokenCmd)
}

func runToken(cmd *cobra.Command, _ []string) error {
	actor, err := parseActor(tokenEmail, tokenRole)
	if err != nil {
		return err
	}
	jwtConfig, err := config.NewJWTConfig()
	if err != nil {
		return fmt.Errorf("failed to create JWT config: %w", err)
	}

	token, err := server.NewJWTService(jwtConfig).GenerateToken(actor)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
	return err
}

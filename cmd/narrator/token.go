package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/scene-narrator/internal/server"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue a bearer token for the status API",
	Args:  cobra.NoArgs,
	RunE:  runToken,
}

var tokenSubject string

func init() {
	tokenCmd.Flags().StringVar(&tokenSubject, "subject", "", "Client name recorded in the token")
	_ = tokenCmd.MarkFlagRequired("subject")
	rootCmd.AddCommand(tokenCmd)
}

func runToken(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	jwtCfg, err := cfg.JWT()
	if err != nil {
		return err
	}

	token, err := server.NewJWTService(jwtCfg).GenerateToken(tokenSubject)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}

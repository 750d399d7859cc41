package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonathan/procurement-watch/internal/config"
	"github.com/jonathan/procurement-watch/internal/server"
)

var (
	tokenSubject string
	tokenHours   int
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint an operator token for the API's mutating routes",
	Long:  `Prints a bearer token signed with JWT_SECRET. Send it as 'Authorization: Bearer <token>' to POST /pull, POST /pull/stream, POST /pull/stop and DELETE /store.`,
	RunE:  runToken,
}

func init() {
	tokenCmd.Flags().StringVar(&tokenSubject, "subject", "operator", "Subject (sub claim) of the token")
	tokenCmd.Flags().IntVar(&tokenHours, "hours", 0, "Token lifetime in hours (defaults to JWT_EXPIRATION_HOURS)")
	rootCmd.AddCommand(tokenCmd)
}

func runToken(cmd *cobra.Command, _ []string) error {
	jwtCfg, err := config.NewJWTConfig()
	if err != nil {
		return err
	}
	if tokenSubject == "" {
		return fmt.Errorf("--subject cannot be empty")
	}

	svc := server.NewJWTService(jwtCfg)
	var token string
	if cmd.Flags().Changed("hours") {
		if tokenHours < 1 {
			return fmt.Errorf("--hours must be at least 1")
		}
		token, err = svc.GenerateTokenFor(tokenSubject, time.Duration(tokenHours)*time.Hour)
	} else {
		token, err = svc.GenerateToken(tokenSubject)
	}
	if err != nil {
		return fmt.Errorf("failed to sign token: %w", err)
	}

	_, _ = fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}

package cmd

import (
	"errors"
	"fmt"
	"time"

	"msgcard/core/auth"

	"github.com/spf13/cobra"
)

var tokenTTL time.Duration

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "管理端凭证工具",
}

var hashPasswordCmd = &cobra.Command{
	Use:   "hash-password <password>",
	Short: "生成 ADMIN_PASSWORD_HASH",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		hash, err := auth.HashPassword(args[0])
		if err != nil {
			return err
		}
		fmt.Println(hash)
		return nil
	},
}

var issueTokenCmd = &cobra.Command{
	Use:   "issue [username]",
	Short: "使用 JWT_SECRET 签发管理端 token",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.JWTSecret == "" {
			return errors.New("JWT_SECRET is not set")
		}
		username := cfg.AdminUsername
		if len(args) == 1 {
			username = args[0]
		}
		tok, err := auth.GenerateToken(cfg.JWTSecret, username, tokenTTL)
		if err != nil {
			return err
		}
		fmt.Println(tok)
		return nil
	},
}

func init() {
	issueTokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 24*time.Hour, "有效期")
	tokenCmd.AddCommand(hashPasswordCmd, issueTokenCmd)
	rootCmd.AddCommand(tokenCmd)
}

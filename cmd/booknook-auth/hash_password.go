package main

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	auth "github.com/goliatone/go-booknook-auth"
	"github.com/spf13/cobra"
)

var (
	hashAlgorithm string
	hashCost      int
)

var hashPasswordCmd = &cobra.Command{
	Use:   "hash-password [password]",
	Short: "Print a password digest",
	Long:  `Hashes the password given as argument, or read from stdin, with bcrypt or argon2id.`,
	Args:  cobra.MaximumNArgs(1),
	Annotations: map[string]string{
		skipConfigAnnotation: "true",
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		password := ""
		if len(args) == 1 {
			password = args[0]
		} else {
			line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			if err != nil && line == "" {
				return errors.New("no password given")
			}
			password = strings.TrimRight(line, "\r\n")
		}

		var hasher auth.PasswordAuthenticator
		switch strings.ToLower(hashAlgorithm) {
		case auth.HashAlgorithmArgon2id:
			hasher = auth.NewArgon2idHasher(auth.DefaultArgon2idParams())
		case auth.HashAlgorithmBcrypt:
			hasher = auth.NewBcryptHasher(hashCost)
		default:
			return fmt.Errorf("unknown algorithm %q", hashAlgorithm)
		}

		digest, err := hasher.HashPassword(password)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), digest)
		return nil
	},
}

func init() {
	hashPasswordCmd.Flags().StringVar(&hashAlgorithm, "algorithm", auth.HashAlgorithmBcrypt, "bcrypt or argon2id")
	hashPasswordCmd.Flags().IntVar(&hashCost, "cost", 12, "bcrypt cost")
}

package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"jobhunt-aggregator/internal/secrets"
)

var secretCommand = &cobra.Command{
	Use:   "secret",
	Short: "Manage the IMAP password in the OS keychain",
}

var secretSetCommand = &cobra.Command{
	Use:   "set",
	Short: "Store the IMAP password, read from stdin",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		account, err := imapAccount()
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "IMAP password for %s: ", account)
		pw, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if err != nil && pw == "" {
			return err
		}
		if err := secrets.SetIMAPPassword(account, strings.TrimRight(pw, "\r\n")); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "stored password for %s\n", account)
		return nil
	},
}

var secretDeleteCommand = &cobra.Command{
	Use:   "delete",
	Short: "Remove the stored IMAP password",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		account, err := imapAccount()
		if err != nil {
			return err
		}
		if err := secrets.DeleteIMAPPassword(account); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "deleted password for %s\n", account)
		return nil
	},
}

var secretStatusCommand = &cobra.Command{
	Use:   "status",
	Short: "Show where the IMAP password would be read from",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		account, err := imapAccount()
		if err != nil {
			return err
		}
		_, origin, err := secrets.Lookup(account)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: password from %s\n", account, origin)
		return nil
	},
}

func init() {
	secretCommand.AddCommand(secretSetCommand, secretDeleteCommand, secretStatusCommand)
	rootCmd.AddCommand(secretCommand)
}

func imapAccount() (string, error) {
	cfg, err := loadConfig()
	if err != nil {
		return "", err
	}
	if cfg.Email.Username == "" || cfg.Email.IMAPHost == "" {
		return "", errors.New("email.username and email.imap_host must be set")
	}
	if os.Getenv(secrets.PasswordEnv) != "" {
		fmt.Fprintf(os.Stderr, "note: $%s is set and is used only when the keychain has no entry\n", secrets.PasswordEnv)
	}
	return secrets.IMAPKeyringAccount(cfg.Email.Username, cfg.Email.IMAPHost), nil
}

// Package secrets resolves the IMAP password used by the job-alert source.
package secrets

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/zalando/go-keyring"
)

const (
	// KeyringService groups this app's entries in the OS keychain.
	KeyringService = "jobhunt-aggregator"

	PasswordEnv = "JOBAGG_IMAP_PASSWORD"
)

var (
	ErrNoPassword   = errors.New("IMAP password not found (set it with `aggregator secret set` or " + PasswordEnv + ")")
	ErrEmptyAccount = errors.New("keyring account name is empty")
)

// Origin says where a password was found.
type Origin string

const (
	FromKeyring Origin = "keyring"
	FromEnv     Origin = "env"
)

// Lookup tries the keychain entry for account, then $JOBAGG_IMAP_PASSWORD.
// A keychain that cannot be reached is not fatal while the env var is set.
func Lookup(account string) (string, Origin, error) {
	var kerr error
	if account = strings.TrimSpace(account); account != "" {
		pw, err := keyring.Get(KeyringService, account)
		switch {
		case err == nil && strings.TrimSpace(pw) != "":
			return pw, FromKeyring, nil
		case err != nil && !errors.Is(err, keyring.ErrNotFound):
			kerr = err
		}
	}
	if pw := strings.TrimSpace(os.Getenv(PasswordEnv)); pw != "" {
		return pw, FromEnv, nil
	}
	if kerr != nil {
		return "", "", fmt.Errorf("%w: keychain: %v", ErrNoPassword, kerr)
	}
	return "", "", ErrNoPassword
}

// GetIMAPPassword is Lookup without the origin.
func GetIMAPPassword(account string) (string, error) {
	pw, _, err := Lookup(account)
	return pw, err
}

func SetIMAPPassword(account, password string) error {
	if strings.TrimSpace(account) == "" {
		return ErrEmptyAccount
	}
	if strings.TrimSpace(password) == "" {
		return errors.New("password is empty")
	}
	return keyring.Set(KeyringService, account, password)
}

// DeleteIMAPPassword removes the keychain entry. A missing entry is not an error.
func DeleteIMAPPassword(account string) error {
	if strings.TrimSpace(account) == "" {
		return ErrEmptyAccount
	}
	if err := keyring.Delete(KeyringService, account); err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return err
	}
	return nil
}

// IMAPKeyringAccount names the keychain entry for one mailbox login.
func IMAPKeyringAccount(username, host string) string {
	return fmt.Sprintf("jobagg:imap:%s@%s", strings.TrimSpace(username), strings.TrimSpace(host))
}

// Package cli: login.go implements "lotscan login", "lotscan verify" and
// "lotscan logout", which manage the inventory API session stored on this
// station.
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/mmr-tortoise/lotscan/internal/config"
	"github.com/mmr-tortoise/lotscan/internal/inventory"
	"github.com/mmr-tortoise/lotscan/internal/model"
	"github.com/mmr-tortoise/lotscan/internal/session"
	"github.com/mmr-tortoise/lotscan/internal/tui"
)

type loginFlags struct {
	username      string
	passwordStdin bool
}

// NewLoginCommand creates the "login" cobra command.
func NewLoginCommand() *cobra.Command {
	flags := &loginFlags{}

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in to the inventory API",
		Long: `Sign in with your inventory account. The session token is stored in
<user config dir>/lotscan/session.yaml and sent with label requests.

Accounts with two-factor authentication must run "lotscan verify <code>"
afterwards.

Examples:
  lotscan login -u operator1
  echo "$PASSWORD" | lotscan login -u operator1 --password-stdin`,

		Args: cobra.NoArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogin(cmd.Context(), cmd.InOrStdin(), flags)
		},
	}

	cmd.Flags().StringVarP(&flags.username, "username", "u", "", "Account user name (prompted when empty)")
	cmd.Flags().BoolVar(&flags.passwordStdin, "password-stdin", false, "Read the password from stdin")

	return cmd
}

func runLogin(ctx context.Context, stdin io.Reader, flags *loginFlags) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	username := flags.username
	if username == "" {
		if username, err = tui.Prompt(ctx, "Username", false); err != nil {
			return err
		}
	}

	var password string
	if flags.passwordStdin {
		password, err = readLine(stdin)
		if err != nil {
			return model.WrapCLIError(model.ExitGeneralError, "failed to read password from stdin", err)
		}
	} else if password, err = tui.Prompt(ctx, "Password for "+username, true); err != nil {
		return err
	}
	if username == "" || password == "" {
		return model.NewCLIError(model.ExitValidationError, "user name and password are required")
	}

	netinfo, err := session.DetectNetwork()
	if err != nil {
		VerboseLog("Warning: cannot detect network addresses: %v", err)
	}
	VerboseLog("Station MAC %s, IP %s", netinfo.MACAddress, netinfo.IPAddress)

	client, err := newClient(cfg, &session.Session{MACAddress: netinfo.MACAddress, IPAddress: netinfo.IPAddress})
	if err != nil {
		return err
	}
	res, err := client.SignIn(ctx, username, password)
	if err != nil {
		return apiFailure("sign-in failed", err)
	}

	sess := &session.Session{
		Token:      res.Token,
		Username:   res.Username,
		UserID:     res.UserID.String(),
		Server:     cfg.Server,
		MACAddress: netinfo.MACAddress,
		IPAddress:  netinfo.IPAddress,
		SignedInAt: time.Now().UTC(),
	}
	if sess.Username == "" {
		sess.Username = username
	}
	store, err := openStore()
	if err != nil {
		return err
	}
	if err := store.Save(sess); err != nil {
		return model.WrapCLIError(model.ExitPersistenceError, "failed to store session", err)
	}
	VerboseLog("Session stored in %s", store.Path())

	if IsJSONOutput() {
		return printJSON(map[string]any{"username": sess.Username, "server": sess.Server, "verified": false})
	}
	fmt.Printf("Signed in as %s on %s\n", sess.Username, sess.Server)
	fmt.Println(`If your account uses two-factor authentication, run "lotscan verify <code>".`)
	return nil
}

// NewVerifyCommand creates the "verify" cobra command.
func NewVerifyCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "verify <code>",
		Short: "Confirm a two-factor code for the stored session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerify(cmd.Context(), args[0])
		},
	}
}

func runVerify(ctx context.Context, otp string) error {
	otp = strings.TrimSpace(otp)
	if otp == "" {
		return model.NewCLIError(model.ExitValidationError, "verification code is required")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, sess, err := loadSession()
	if err != nil {
		return err
	}
	client, err := newClient(cfg, sess)
	if err != nil {
		return err
	}

	res, err := client.Verify(ctx, sess.Token, otp)
	if err != nil {
		return apiFailure("verification failed", err)
	}
	if res.Token != "" {
		sess.Token = res.Token
	}
	if id := res.UserID.String(); id != "" {
		sess.UserID = id
	}
	sess.Verified = true
	if err := store.Save(sess); err != nil {
		return model.WrapCLIError(model.ExitPersistenceError, "failed to store session", err)
	}

	if IsJSONOutput() {
		return printJSON(map[string]any{"username": sess.Username, "server": sess.Server, "verified": true})
	}
	fmt.Printf("Verified %s\n", sess.Username)
	return nil
}

// NewLogoutCommand creates the "logout" cobra command.
func NewLogoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}
			if err := store.Clear(); err != nil {
				return model.WrapCLIError(model.ExitPersistenceError, "failed to remove session", err)
			}
			if IsJSONOutput() {
				return printJSON(map[string]any{"signedOut": true})
			}
			fmt.Println("Signed out")
			return nil
		},
	}
}

func openStore() (*session.Store, error) {
	store, err := session.DefaultStore()
	if err != nil {
		return nil, model.WrapCLIError(model.ExitConfigError, "cannot locate session file", err)
	}
	return store, nil
}

// loadSession returns the stored session or an ExitNotSignedIn error.
func loadSession() (*session.Store, *session.Session, error) {
	store, err := openStore()
	if err != nil {
		return nil, nil, err
	}
	sess, err := store.Load()
	if errors.Is(err, session.ErrNotSignedIn) {
		return nil, nil, model.NewCLIError(model.ExitNotSignedIn, "not signed in, run 'lotscan login' first")
	}
	if err != nil {
		return nil, nil, model.WrapCLIError(model.ExitConfigError, "cannot read session", err)
	}
	return store, sess, nil
}

// newClient builds an API client for cfg.Server. A non-nil sess supplies
// the credential headers.
func newClient(cfg *config.Config, sess *session.Session) (*inventory.Client, error) {
	timeout, err := cfg.Timeout()
	if err != nil {
		return nil, model.WrapCLIError(model.ExitConfigError, "invalid request timeout", err)
	}
	opts := []inventory.Option{inventory.WithTimeout(timeout)}
	if sess != nil {
		opts = append(opts, inventory.WithCredentials(inventory.Credentials{
			Token:      sess.Token,
			UserID:     sess.UserID,
			MACAddress: sess.MACAddress,
			IPAddress:  sess.IPAddress,
		}))
	}
	client, err := inventory.New(cfg.Server, opts...)
	if err != nil {
		return nil, model.WrapCLIError(model.ExitConfigError, "invalid server URL", err)
	}
	return client, nil
}

// apiFailure wraps an inventory error with the exit code matching its kind.
func apiFailure(action string, err error) error {
	switch {
	case errors.Is(err, inventory.ErrNoCredentials):
		return model.NewCLIError(model.ExitNotSignedIn, "not signed in, run 'lotscan login' first")
	case errors.Is(err, context.Canceled):
		return err
	default:
		return model.WrapCLIError(model.ExitAPIError, action, err)
	}
}

// readLine reads the first line of r without the line ending.
func readLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// stdinIsPipe reports whether stdin is redirected rather than a terminal.
func stdinIsPipe() bool {
	fi, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice == 0
}

package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"rewardsreceipts/pkg/auth"
	"rewardsreceipts/pkg/ui"
)

// credentialManager is what the auth commands need from the credential store
type credentialManager interface {
	Store(cred *auth.Credential) error
	Retrieve(name string) (*auth.Credential, error)
	List() ([]*auth.Credential, error)
	Delete(name string) error
}

// newCredentialManager opens the credential store; replaced in tests
var newCredentialManager = func() (credentialManager, error) {
	return auth.NewManager()
}

func newAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage stored bearer tokens",
		Long: `Manage bearer tokens for the rewards backend.

Tokens are stored in the system keychain when available, otherwise in a
file encrypted with a key derived by PBKDF2. A token given with --token or
REWARDSRECEIPTS_TOKEN always takes precedence over stored ones.`,
	}

	login := &cobra.Command{
		Use:   "login [name]",
		Short: "Store a bearer token",
		Long: `Store a bearer token under a name ("default" when omitted).

The token is read from the terminal without echo, or from standard input
when it is not a terminal.`,
		Example: `  rewardsreceipts auth login
  rewardsreceipts auth login home
  echo "$TOKEN" | rewardsreceipts auth login ci`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogin(cmd, nameArg(args))
		},
	}

	logout := &cobra.Command{
		Use:   "logout [name]",
		Short: "Remove a stored bearer token",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogout(cmd, nameArg(args))
		},
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List stored bearer tokens",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(cmd)
		},
	}

	cmd.AddCommand(login, logout, list)
	return cmd
}

func nameArg(args []string) string {
	if len(args) > 0 {
		return strings.TrimSpace(args[0])
	}
	return auth.DefaultName
}

func runLogin(cmd *cobra.Command, name string) error {
	manager, err := newCredentialManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}

	out := cmd.OutOrStdout()
	interactive := isTerminal(cmd.InOrStdin())
	if interactive {
		auth.ShowTokenGuide(out)
		if existing, _ := manager.Retrieve(name); existing != nil {
			ui.PrintWarning(fmt.Sprintf("Credential '%s' already exists and will be replaced", name))
		}
		fmt.Fprint(out, "Bearer token (hidden): ")
	}

	token, err := readToken(cmd.InOrStdin())
	if interactive {
		fmt.Fprintln(out)
	}
	if err != nil {
		return fmt.Errorf("failed to read token: %w", err)
	}
	token = strings.TrimPrefix(strings.TrimSpace(token), "Bearer ")
	if token == "" {
		return errors.New("token is required")
	}

	cred := &auth.Credential{Name: name, Token: token}
	if err := manager.Store(cred); err != nil {
		return err
	}

	ui.PrintSuccess(fmt.Sprintf("Credential saved: %s (%s)", name, auth.SanitizeCredential(cred).Token))
	if name != auth.DefaultName {
		ui.PrintInfo("Use it with", "rewardsreceipts --account "+name)
	}
	return nil
}

func runLogout(cmd *cobra.Command, name string) error {
	manager, err := newCredentialManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}

	if err := manager.Delete(name); err != nil {
		return err
	}
	ui.PrintSuccess("Credential removed: " + name)
	return nil
}

func runList(cmd *cobra.Command) error {
	manager, err := newCredentialManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}

	creds, err := manager.List()
	if err != nil {
		return fmt.Errorf("failed to list credentials: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(creds) == 0 {
		fmt.Fprintln(out, "No stored credentials. Use 'rewardsreceipts auth login' to add one.")
		return nil
	}

	for _, cred := range creds {
		masked := auth.SanitizeCredential(cred)
		fmt.Fprintf(out, "%-16s %-14s %s\n", masked.Name, masked.Token, masked.LastModified.Format("2006-01-02 15:04:05"))
	}
	return nil
}

func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// readToken reads one line from r, without echo when r is a terminal
func readToken(r io.Reader) (string, error) {
	if f, ok := r.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		return string(b), err
	}

	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return line, nil
}

package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"artbot/pkg/auth"
	"artbot/pkg/ui"
)

// newCredentialManager is replaced in tests
var newCredentialManager = auth.NewManager

var (
	showGuide bool
	assumeYes bool
)

// authCmd represents the auth command
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage X credentials",
	Long: `Manage stored X API credentials.

Credentials are looked up in:
  - System keychain (when available)
  - Encrypted file with PBKDF2 key derivation
  - Environment variables (API_KEY, API_SECRET, ACCESS_TOKEN, ACCESS_TOKEN_SECRET)

Never share your credentials or config files!`,
}

// loginCmd represents the auth login command
var loginCmd = &cobra.Command{
	Use:   "login [account]",
	Short: "Store X credentials securely",
	Long: `Store the four X API values under an account name. Without a name the
account is stored as "default", which 'artbot post' uses when no --account
is given.`,
	Example: `  # Interactive login
  artbot auth login

  # Store a second account
  artbot auth login museum-bot`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLogin,
}

// logoutCmd represents the auth logout command
var logoutCmd = &cobra.Command{
	Use:   "logout <account>",
	Short: "Remove stored credentials",
	Args:  cobra.ExactArgs(1),
	RunE:  runLogout,
}

// listCmd represents the auth list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all stored accounts",
	Long:  `List all stored X accounts with sanitized credential information.`,
	RunE:  runList,
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(loginCmd)
	authCmd.AddCommand(logoutCmd)
	authCmd.AddCommand(listCmd)

	loginCmd.Flags().BoolVar(&showGuide, "guide", false, "print where to find the four values first")
	logoutCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "do not ask for confirmation")
}

func runLogin(cmd *cobra.Command, args []string) error {
	manager, err := newCredentialManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}

	in, out := cmd.InOrStdin(), cmd.OutOrStdout()
	reader := bufio.NewReader(in)
	printer := ui.NewPrinter(out)

	if showGuide {
		auth.ShowKeysGuide(out)
		fmt.Fprintln(out)
	}

	name := auth.DefaultAccountName
	if len(args) > 0 {
		name = strings.TrimSpace(args[0])
	}

	if existing, _ := manager.Retrieve(name); existing != nil {
		fmt.Fprintf(out, "Account '%s' already exists. Update credentials? (y/N): ", name)
		if !confirm(reader) {
			return nil
		}
	}

	fmt.Fprintln(out, "Enter your X API values (secrets are hidden as you type):")

	account := &auth.Account{Name: name, LastModified: time.Now()}
	prompts := []struct {
		label  string
		target *string
		secret bool
	}{
		{"API key", &account.APIKey, false},
		{"API secret", &account.APISecret, true},
		{"Access token", &account.AccessToken, false},
		{"Access token secret", &account.AccessTokenSecret, true},
	}
	for _, p := range prompts {
		fmt.Fprintf(out, "%s: ", p.label)
		value, err := readValue(reader, in, out, p.secret)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", strings.ToLower(p.label), err)
		}
		*p.target = value
	}

	if err := manager.Store(account); err != nil {
		return fmt.Errorf("failed to store credentials: %w", err)
	}

	printer.Success("Account saved: " + name)
	if name != auth.DefaultAccountName {
		printer.Dim(fmt.Sprintf("Post with it using: artbot post --account %s", name))
	}
	return nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	manager, err := newCredentialManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}

	name := args[0]
	if !assumeYes {
		fmt.Fprintf(cmd.OutOrStdout(), "Remove account '%s'? (y/N): ", name)
		if !confirm(bufio.NewReader(cmd.InOrStdin())) {
			return nil
		}
	}

	if err := manager.Delete(name); err != nil {
		return fmt.Errorf("failed to remove account: %w", err)
	}
	ui.NewPrinter(cmd.OutOrStdout()).Success("Account removed: " + name)
	return nil
}

func runList(cmd *cobra.Command, args []string) error {
	manager, err := newCredentialManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}

	accounts, err := manager.List()
	if err != nil {
		return fmt.Errorf("failed to list accounts: %w", err)
	}

	out := cmd.OutOrStdout()
	printer := ui.NewPrinter(out)
	if len(accounts) == 0 {
		printer.Info("No stored accounts", "Use 'artbot auth login' to add an account")
		return nil
	}

	printer.Highlight("Stored Accounts")
	fmt.Fprintln(out)

	for i, account := range accounts {
		sanitized := auth.SanitizeAccount(account)
		fmt.Fprintf(out, "%d. %s\n", i+1, sanitized.Name)
		fmt.Fprintf(out, "   API key: %s\n", sanitized.APIKey)
		fmt.Fprintf(out, "   Access token: %s\n", sanitized.AccessToken)
		if !sanitized.LastModified.IsZero() {
			fmt.Fprintf(out, "   Last modified: %s\n", sanitized.LastModified.Format("2006-01-02 15:04:05"))
		}
		fmt.Fprintln(out)
	}
	return nil
}

func confirm(reader *bufio.Reader) bool {
	input, _ := reader.ReadString('\n')
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(input)), "y")
}

// readValue reads one line, without echo when secret is set and in is a terminal
func readValue(reader *bufio.Reader, in io.Reader, out io.Writer, secret bool) (string, error) {
	if f, ok := in.(*os.File); ok && secret && term.IsTerminal(int(f.Fd())) {
		value, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(out)
		if err == nil {
			return strings.TrimSpace(string(value)), nil
		}
	}

	input, err := reader.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && input != "") {
		return "", err
	}
	return strings.TrimSpace(input), nil
}

package auth

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"

	"artbot/pkg/config"
)

// DefaultAccountName is used when an account is stored without a name
const DefaultAccountName = "default"

// Account holds the four OAuth 1.0a values for one X account
type Account struct {
	Name              string    `json:"name"`
	APIKey            string    `json:"api_key"`
	APISecret         string    `json:"api_secret"`
	AccessToken       string    `json:"access_token"`
	AccessTokenSecret string    `json:"access_token_secret"`
	LastModified      time.Time `json:"last_modified"`
}

// Validate checks that every credential value is present
func (a *Account) Validate() error {
	if a == nil {
		return ErrInvalidCredentials
	}

	var problems []error
	if strings.TrimSpace(a.Name) == "" {
		problems = append(problems, errors.New("account name is required"))
	}
	if a.APIKey == "" {
		problems = append(problems, errors.New("API key is required"))
	}
	if a.APISecret == "" {
		problems = append(problems, errors.New("API secret is required"))
	}
	if a.AccessToken == "" {
		problems = append(problems, errors.New("access token is required"))
	}
	if a.AccessTokenSecret == "" {
		problems = append(problems, errors.New("access token secret is required"))
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidCredentials, errors.Join(problems...))
	}
	return nil
}

// Apply copies the credentials into cfg, keeping its endpoints and timeout
func (a *Account) Apply(cfg config.TwitterConfig) config.TwitterConfig {
	cfg.APIKey = a.APIKey
	cfg.APISecret = a.APISecret
	cfg.AccessToken = a.AccessToken
	cfg.AccessTokenSecret = a.AccessTokenSecret
	return cfg
}

// CredentialStore is the interface for storing and retrieving credentials
type CredentialStore interface {
	// Store saves credentials for a given account
	Store(account *Account) error

	// Retrieve gets credentials for a named account
	Retrieve(name string) (*Account, error)

	// List returns all stored accounts
	List() ([]*Account, error)

	// Delete removes credentials for a named account
	Delete(name string) error

	// Exists checks if credentials exist for a name
	Exists(name string) bool
}

// Manager reads through an ordered list of stores and writes to the first
// one that accepts the account
type Manager struct {
	stores []CredentialStore
}

// NewManager creates a manager over the keychain (when available), the
// encrypted file store and the environment, in that order
func NewManager() (*Manager, error) {
	var stores []CredentialStore

	if keyringStore, err := NewKeyringStore(); err == nil {
		stores = append(stores, keyringStore)
	}

	configDir, err := getConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get config directory: %w", err)
	}

	encryptedStore, err := NewEncryptedFileStore(filepath.Join(configDir, "credentials.enc"))
	if err != nil {
		return nil, fmt.Errorf("failed to create encrypted store: %w", err)
	}
	stores = append(stores, encryptedStore, NewEnvironmentStore())

	return &Manager{stores: stores}, nil
}

// NewManagerWithStores creates a manager over explicit stores
func NewManagerWithStores(stores ...CredentialStore) *Manager {
	return &Manager{stores: stores}
}

// Store validates the account and saves it in the first writable store
func (m *Manager) Store(account *Account) error {
	if account != nil && account.Name == "" {
		account.Name = DefaultAccountName
	}
	if err := account.Validate(); err != nil {
		return err
	}

	account.LastModified = time.Now()

	var lastErr error
	for _, store := range m.stores {
		err := store.Store(account)
		if err == nil {
			return nil
		}
		lastErr = err
	}

	if lastErr != nil {
		return fmt.Errorf("failed to store credentials: %w", lastErr)
	}
	return ErrStoreUnavailable
}

// Retrieve gets credentials from the first store that has them
func (m *Manager) Retrieve(name string) (*Account, error) {
	for _, store := range m.stores {
		if account, err := store.Retrieve(name); err == nil && account != nil {
			return account, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrCredentialsNotFound, name)
}

// RetrieveDefault returns the "default" account, or the only stored account
// when exactly one exists under another name
func (m *Manager) RetrieveDefault() (*Account, error) {
	if account, err := m.Retrieve(DefaultAccountName); err == nil {
		return account, nil
	}

	accounts, err := m.List()
	if err != nil {
		return nil, err
	}
	switch len(accounts) {
	case 0:
		return nil, ErrCredentialsNotFound
	case 1:
		return accounts[0], nil
	default:
		return nil, fmt.Errorf("%d accounts stored, choose one with --account", len(accounts))
	}
}

// List merges accounts from every store, keeping the most recently modified
// copy of each name, sorted by name
func (m *Manager) List() ([]*Account, error) {
	byName := make(map[string]*Account)

	for _, store := range m.stores {
		accounts, err := store.List()
		if err != nil {
			continue
		}
		for _, account := range accounts {
			if existing, ok := byName[account.Name]; !ok || account.LastModified.After(existing.LastModified) {
				byName[account.Name] = account
			}
		}
	}

	result := make([]*Account, 0, len(byName))
	for _, account := range byName {
		result = append(result, account)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })

	return result, nil
}

// Delete removes credentials from every store holding them
func (m *Manager) Delete(name string) error {
	var deleted bool
	var lastErr error

	for _, store := range m.stores {
		err := store.Delete(name)
		switch {
		case err == nil:
			deleted = true
		case errors.Is(err, ErrCredentialsNotFound), errors.Is(err, ErrStoreUnavailable):
		default:
			lastErr = err
		}
	}

	if deleted {
		return nil
	}
	if lastErr != nil {
		return fmt.Errorf("failed to delete credentials: %w", lastErr)
	}
	return fmt.Errorf("%w: %s", ErrCredentialsNotFound, name)
}

// getConfigDir returns the per-user configuration directory, creating it
func getConfigDir() (string, error) {
	var configDir string

	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		configDir = filepath.Join(home, "Library", "Application Support", "artbot")
	case "windows":
		configDir = filepath.Join(os.Getenv("APPDATA"), "artbot")
	default:
		if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
			configDir = filepath.Join(xdgConfig, "artbot")
		} else {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			configDir = filepath.Join(home, ".config", "artbot")
		}
	}

	if err := os.MkdirAll(configDir, 0700); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	return configDir, nil
}

// SanitizeAccount returns a copy of the account with secrets masked
func SanitizeAccount(account *Account) *Account {
	if account == nil {
		return nil
	}

	return &Account{
		Name:              account.Name,
		APIKey:            config.MaskSecret(account.APIKey),
		APISecret:         config.MaskSecret(account.APISecret),
		AccessToken:       config.MaskSecret(account.AccessToken),
		AccessTokenSecret: config.MaskSecret(account.AccessTokenSecret),
		LastModified:      account.LastModified,
	}
}

// Errors
var (
	ErrCredentialsNotFound = errors.New("credentials not found")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrStoreUnavailable    = errors.New("credential store unavailable")
)

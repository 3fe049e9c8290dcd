package auth

import (
	"os"
	"time"
)

// Environment variables holding the credentials of the unnamed account
const (
	EnvAPIKey            = "API_KEY"
	EnvAPISecret         = "API_SECRET"
	EnvAccessToken       = "ACCESS_TOKEN"
	EnvAccessTokenSecret = "ACCESS_TOKEN_SECRET"
)

// EnvironmentStore exposes credentials set in the environment as a read-only
// account named "env"
type EnvironmentStore struct{}

// EnvAccountName is the name the environment account is listed under
const EnvAccountName = "env"

// NewEnvironmentStore creates a new environment-based credential store
func NewEnvironmentStore() *EnvironmentStore {
	return &EnvironmentStore{}
}

// Store is not supported for environment variables
func (e *EnvironmentStore) Store(account *Account) error {
	return ErrStoreUnavailable
}

// Retrieve returns the environment account for "env" or the default name
func (e *EnvironmentStore) Retrieve(name string) (*Account, error) {
	if name != EnvAccountName && name != DefaultAccountName && name != "" {
		return nil, ErrCredentialsNotFound
	}

	account := &Account{
		Name:              EnvAccountName,
		APIKey:            os.Getenv(EnvAPIKey),
		APISecret:         os.Getenv(EnvAPISecret),
		AccessToken:       os.Getenv(EnvAccessToken),
		AccessTokenSecret: os.Getenv(EnvAccessTokenSecret),
		LastModified:      time.Time{},
	}
	if account.Validate() != nil {
		return nil, ErrCredentialsNotFound
	}
	return account, nil
}

// List returns the environment account if all four variables are set
func (e *EnvironmentStore) List() ([]*Account, error) {
	account, err := e.Retrieve(EnvAccountName)
	if err != nil {
		return []*Account{}, nil
	}
	return []*Account{account}, nil
}

// Delete is not supported for environment variables
func (e *EnvironmentStore) Delete(name string) error {
	return ErrStoreUnavailable
}

// Exists checks if environment credentials exist
func (e *EnvironmentStore) Exists(name string) bool {
	_, err := e.Retrieve(name)
	return err == nil
}

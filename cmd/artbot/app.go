package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"artbot/pkg/auth"
	"artbot/pkg/config"
	"artbot/pkg/logger"
	"artbot/pkg/met"
	"artbot/pkg/picker"
	"artbot/pkg/ratelimit"
	"artbot/pkg/retry"
)

// Exit codes
const (
	exitFailure  = 1
	exitNotFound = 2
	exitConfig   = 3
)

type configError struct{ err error }

func (e *configError) Error() string { return e.err.Error() }
func (e *configError) Unwrap() error { return e.err }

func exitCode(err error) int {
	var cfgErr *configError
	switch {
	case errors.As(err, &cfgErr):
		return exitConfig
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return exitFailure
	case picker.IsNotFound(err):
		return exitNotFound
	default:
		return exitFailure
	}
}

// loadConfig loads configuration with the global and given command flags
// merged in, then initialises the global logger
func loadConfig(flags map[string]interface{}) (*config.Config, logger.Logger, error) {
	if flags == nil {
		flags = make(map[string]interface{})
	}
	if logLevel != "" {
		flags["log-level"] = logLevel
	}
	if logFile != "" {
		flags["log-file"] = logFile
	}

	cfg, err := config.Load(configFile, flags)
	if err != nil {
		return nil, nil, &configError{err}
	}

	if err := logger.Initialize(&cfg.Logging); err != nil {
		return nil, nil, &configError{fmt.Errorf("failed to initialize logger: %w", err)}
	}

	log := logger.GetLogger().WithFields(map[string]interface{}{
		"run_id":  uuid.NewString(),
		"version": version,
	})
	return cfg, log, nil
}

// newMuseumClient builds the collection client with pacing and download retries
func newMuseumClient(cfg *config.Config, log logger.Logger, httpClient *http.Client) *met.Client {
	opts := []met.Option{
		met.WithLogger(log.WithField("component", "met")),
		met.WithLimiter(ratelimit.NewTokenBucket(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)),
		met.WithRetrier(retry.NewRetrier(retry.FromSettings(cfg.Retry, log))),
		met.WithDownloadTimeout(cfg.Download.Timeout),
	}
	if httpClient != nil {
		opts = append(opts, met.WithHTTPClient(httpClient))
	}
	return met.NewClient(cfg.Museum, opts...)
}

func newPicker(client *met.Client, log logger.Logger) *picker.Picker {
	return picker.New(client, client, picker.WithLogger(log.WithField("component", "picker")))
}

// resolveCredentials fills cfg.Twitter from a stored account when the
// environment and config file did not provide all four values. An explicit
// account name always wins.
func resolveCredentials(cfg *config.Config, accountName string, manager *auth.Manager) error {
	if accountName == "" && cfg.HasCredentials() {
		return nil
	}

	if manager == nil {
		var err error
		manager, err = newCredentialManager()
		if err != nil {
			return fmt.Errorf("failed to initialize credential manager: %w", err)
		}
	}

	var account *auth.Account
	var err error
	if accountName != "" {
		account, err = manager.Retrieve(accountName)
	} else {
		account, err = manager.RetrieveDefault()
	}
	if err != nil {
		if validateErr := cfg.ValidateCredentials(); validateErr != nil {
			return &configError{fmt.Errorf("no X credentials available: %w", errors.Join(err, validateErr))}
		}
		return &configError{err}
	}

	cfg.Twitter = account.Apply(cfg.Twitter)
	return nil
}

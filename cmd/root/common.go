package root

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/LucasSabena/codemobile-sub001/pkg/config"
	"github.com/LucasSabena/codemobile-sub001/pkg/credentials"
	"github.com/LucasSabena/codemobile-sub001/pkg/httpclient"
	"github.com/LucasSabena/codemobile-sub001/pkg/model/provider"
	"github.com/LucasSabena/codemobile-sub001/pkg/oauth"
	"github.com/LucasSabena/codemobile-sub001/pkg/paths"
	"github.com/LucasSabena/codemobile-sub001/pkg/session"
)

// app bundles what every command needs: the user config, the credential
// store and the provider factory.
type app struct {
	cfg        *config.Config
	creds      *credentials.Store
	httpClient *http.Client
	factory    *provider.Factory
}

func loadApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	kv, err := openKeyring()
	if err != nil {
		return nil, err
	}
	creds := credentials.NewStore(credentials.NewEnvFallback(kv, provider.KeyEnvVars()))

	client := httpclient.NewHTTPClient()
	factory := provider.NewFactory(creds,
		provider.WithHTTPClient(client),
		provider.WithValidationTTL(cfg.Limits.ValidationTTL),
		provider.WithRefresher(provider.Codex, oauth.NewCodexFlow(client)),
	)

	return &app{cfg: cfg, creds: creds, httpClient: client, factory: factory}, nil
}

// openKeyring uses the system keyring unless CODEMOBILE_KEYRING=file asks
// for the encrypted file store only. The file store is keyed with
// CODEMOBILE_KEYRING_PASSPHRASE.
func openKeyring() (credentials.KeyValue, error) {
	dir := filepath.Join(paths.GetDataDir(), "credentials")
	passphrase := cmp.Or(os.Getenv("CODEMOBILE_KEYRING_PASSPHRASE"), AppName)

	if os.Getenv("CODEMOBILE_KEYRING") == "file" {
		return credentials.OpenFileKeyring(dir, passphrase)
	}
	kv, err := credentials.OpenKeyring(dir, passphrase)
	if err != nil {
		slog.Warn("System keyring unavailable, using the encrypted file store", "error", err)
		return credentials.OpenFileKeyring(dir, passphrase)
	}
	return kv, nil
}

func openSessionStore(ctx context.Context) (*session.SQLiteSessionStore, error) {
	return session.NewSQLiteSessionStore(ctx, filepath.Join(paths.GetDataDir(), "sessions.db"))
}

// providerID picks the provider named on the command line, then the
// configured default.
func (a *app) providerID(flag string) (string, error) {
	id := flag
	if id == "" {
		id = a.cfg.Provider
	}
	if id == "" {
		return "", errors.New("no provider selected; pass --provider or set provider in " + config.Path())
	}
	if _, ok := provider.Lookup(id); !ok {
		return "", &provider.ConfigError{ProviderID: id, Reason: "unknown provider"}
	}
	return id, nil
}

// model picks the model named on the command line, then the configured
// one, then the first model of the provider's catalog.
func (a *app) model(providerID, flag string) (string, error) {
	if flag != "" {
		return flag, nil
	}
	if m := a.cfg.ProviderOverride(providerID).Model; m != "" {
		return m, nil
	}
	desc, _ := provider.Lookup(providerID)
	if len(desc.Models) == 0 {
		return "", fmt.Errorf("provider %q has no default model; pass --model", providerID)
	}
	return desc.Models[0].ID, nil
}

func (a *app) providerConfig(providerID, model string) provider.Config {
	return provider.Config{
		ProviderID: providerID,
		Model:      model,
		BaseURL:    a.cfg.ProviderOverride(providerID).BaseURL,
	}
}

package root

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/LucasSabena/codemobile-sub001/pkg/browser"
	"github.com/LucasSabena/codemobile-sub001/pkg/model/provider"
	"github.com/LucasSabena/codemobile-sub001/pkg/oauth"
)

type loginFlags struct {
	apiKey    string
	noBrowser bool
}

func newLoginCmd() *cobra.Command {
	var flags loginFlags

	cmd := &cobra.Command{
		Use:   "login <provider>",
		Short: "Store credentials for a provider",
		Long: `Store credentials for a provider.

GitHub Copilot and Codex use a device login: a code is shown, the
verification page opens in the browser and the command waits until the
code has been entered. Other providers take an API key, from --api-key or
from standard input.`,
		Example: `  codemobile login github-copilot
  codemobile login openai --api-key sk-...
  echo $ANTHROPIC_API_KEY | codemobile login anthropic`,
		GroupID:   "auth",
		Args:      cobra.ExactArgs(1),
		ValidArgs: provider.IDs(),
		RunE: func(cmd *cobra.Command, args []string) error {
			return flags.run(cmd, args[0])
		},
	}

	cmd.Flags().StringVar(&flags.apiKey, "api-key", "", "API key to store")
	cmd.Flags().BoolVar(&flags.noBrowser, "no-browser", false, "Do not open the verification page")

	return cmd
}

func (f *loginFlags) run(cmd *cobra.Command, providerID string) error {
	ctx := cmd.Context()

	desc, ok := provider.Lookup(providerID)
	if !ok {
		return &provider.ConfigError{ProviderID: providerID, Reason: "unknown provider"}
	}

	a, err := loadApp()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	switch desc.Auth {
	case provider.AuthNone:
		fmt.Fprintf(out, "%s does not need credentials.\n", desc.Name)
		return nil
	case provider.AuthAPIKey:
		key := strings.TrimSpace(f.apiKey)
		if key == "" {
			fmt.Fprintf(cmd.ErrOrStderr(), "Enter the %s API key: ", desc.Name)
			scanner := bufio.NewScanner(cmd.InOrStdin())
			if scanner.Scan() {
				key = strings.TrimSpace(scanner.Text())
			}
		}
		if key == "" {
			return errors.New("no API key given")
		}
		if err := a.creds.SaveAPIKey(ctx, desc.ID, key); err != nil {
			return err
		}
		fmt.Fprintln(out, green("Saved API key for %s.", desc.Name))
		return nil
	}

	flow, err := a.deviceFlow(desc.ID)
	if err != nil {
		return err
	}

	auth := oauth.NewAuthenticator(flow, a.cfg.Limits)
	for ev := range auth.Run(ctx) {
		switch ev := ev.(type) {
		case *oauth.ShowCodeEvent:
			fmt.Fprintf(out, "Enter the code %s at %s\n", bold(ev.UserCode), blue("%s", ev.VerificationURI))
			f.openBrowser(ctx, ev.VerificationURI)
		case *oauth.PollingEvent:
			slog.Debug("Waiting for device authorization", "provider", desc.ID, "attempt", ev.Attempt)
		case *oauth.SuccessEvent:
			if err := oauth.SaveToken(ctx, a.creds, desc.ID, ev.Token); err != nil {
				return err
			}
			fmt.Fprintln(out, green("Logged in to %s.", desc.Name))
		case *oauth.ErrorEvent:
			return fmt.Errorf("login to %s failed: %s", desc.Name, ev.Message)
		}
	}
	return nil
}

func (f *loginFlags) openBrowser(ctx context.Context, url string) {
	if f.noBrowser {
		return
	}
	if err := browser.Open(context.WithoutCancel(ctx), url); err != nil {
		slog.Debug("Could not open browser", "error", err)
	}
}

func (a *app) deviceFlow(providerID string) (oauth.Flow, error) {
	switch providerID {
	case provider.Copilot:
		return oauth.NewGitHubFlow(a.httpClient), nil
	case provider.Codex:
		return oauth.NewCodexFlow(a.httpClient), nil
	default:
		return nil, &provider.ConfigError{ProviderID: providerID, Reason: "no device login available"}
	}
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "logout <provider>",
		Short:     "Remove the stored credentials of a provider",
		GroupID:   "auth",
		Args:      cobra.ExactArgs(1),
		ValidArgs: provider.IDs(),
		RunE: func(cmd *cobra.Command, args []string) error {
			desc, ok := provider.Lookup(args[0])
			if !ok {
				return &provider.ConfigError{ProviderID: args[0], Reason: "unknown provider"}
			}
			a, err := loadApp()
			if err != nil {
				return err
			}
			if err := a.creds.Forget(cmd.Context(), desc.ID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed credentials for %s.\n", desc.Name)
			return nil
		},
	}
}

func newValidateCmd() *cobra.Command {
	var providerID string

	cmd := &cobra.Command{
		Use:     "validate",
		Short:   "Check that the stored credentials of a provider work",
		GroupID: "auth",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := loadApp()
			if err != nil {
				return err
			}
			id, err := a.providerID(providerID)
			if err != nil {
				return err
			}
			model, _ := a.model(id, "")

			p := a.factory.CreateOrNilWithRefresh(ctx, a.providerConfig(id, model))
			if p == nil {
				if _, err := a.factory.Create(ctx, a.providerConfig(id, model)); err != nil {
					return err
				}
				return fmt.Errorf("could not create provider %s", id)
			}
			if !p.ValidateCredentials(ctx) {
				return fmt.Errorf("credentials for %s were rejected", id)
			}
			fmt.Fprintln(cmd.OutOrStdout(), green("✓ credentials for %s are valid", id))
			return nil
		},
	}
	cmd.Flags().StringVarP(&providerID, "provider", "p", "", "Provider id")

	return cmd
}

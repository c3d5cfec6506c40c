package cli

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/oauth2"

	"github.com/v-hunt/trunity-importer/internal/config"
	"github.com/v-hunt/trunity-importer/internal/trunity"
)

const loginAttempts = 3

// login returns a client for the configured or prompted operator. Prompted
// credentials are checked against the token endpoint and asked again on a
// rejected login.
func login(ctx context.Context, cfg config.Trunity, p *prompter) (*trunity.Client, error) {
	tc := trunity.Config{
		BaseURL:  cfg.BaseURL,
		TokenURL: cfg.TokenURL,
		ClientID: cfg.ClientID,
		Username: cfg.Username,
		Password: cfg.Password,
		Timeout:  cfg.Timeout,
	}
	prompted := tc.Username == "" || tc.Password == ""
	for attempt := 1; ; attempt++ {
		var err error
		if cfg.Username == "" {
			if tc.Username, err = p.promptString("Username"); err != nil {
				return nil, err
			}
		}
		if cfg.Password == "" {
			if tc.Password, err = p.promptPassword("Password"); err != nil {
				return nil, err
			}
		}
		err = trunity.VerifyCredentials(ctx, tc, tc.Username, tc.Password)
		if err == nil {
			return trunity.New(tc), nil
		}
		var re *oauth2.RetrieveError
		if !prompted || attempt == loginAttempts || !errors.As(err, &re) {
			return nil, fmt.Errorf("login as %q: %w", tc.Username, err)
		}
		fmt.Fprintln(p.out, "Login failed, try again.")
	}
}

package google

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"golang.org/x/oauth2"
	googleauth "golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
)

// TokenManager loads OAuth2 credentials, persists the user token on disk,
// and refreshes it when expired. The token file is created by the
// interactive scald-auth flow; after that, refresh is automatic.
type TokenManager struct {
	config    *oauth2.Config
	tokenFile string
	logger    *slog.Logger
}

func NewTokenManager(credentialsPath, tokenPath string, logger *slog.Logger) (*TokenManager, error) {
	if logger == nil {
		logger = slog.Default()
	}

	data, err := os.ReadFile(credentialsPath)
	if err != nil {
		return nil, fmt.Errorf("read credentials file: %w", err)
	}

	config, err := googleauth.ConfigFromJSON(data, calendar.CalendarReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("parse credentials file: %w", err)
	}

	return &TokenManager{
		config:    config,
		tokenFile: tokenPath,
		logger:    logger,
	}, nil
}

// AuthURL returns the URL a user must visit to authorize access. Offline
// access is requested so a refresh token is issued.
func (tm *TokenManager) AuthURL() string {
	return tm.config.AuthCodeURL("state-token",
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"))
}

// Exchange trades an authorization code for a token and saves it.
func (tm *TokenManager) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	token, err := tm.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchange authorization code: %w", err)
	}
	if err := tm.save(token); err != nil {
		return nil, err
	}
	tm.logger.Info("obtained and saved oauth token")
	return token, nil
}

func (tm *TokenManager) load() (*oauth2.Token, error) {
	data, err := os.ReadFile(tm.tokenFile)
	if err != nil {
		return nil, fmt.Errorf("read token file: %w", err)
	}

	var token oauth2.Token
	if err := json.Unmarshal(data, &token); err != nil {
		return nil, fmt.Errorf("parse token file: %w", err)
	}
	return &token, nil
}

func (tm *TokenManager) save(token *oauth2.Token) error {
	data, err := json.MarshalIndent(token, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal token: %w", err)
	}
	if err := os.WriteFile(tm.tokenFile, data, 0600); err != nil {
		return fmt.Errorf("write token file: %w", err)
	}
	return nil
}

// Fresh returns a valid token, refreshing through the stored refresh token
// if the access token has expired. A refreshed token is saved back to disk.
func (tm *TokenManager) Fresh(ctx context.Context) (*oauth2.Token, error) {
	token, err := tm.load()
	if err != nil {
		return nil, fmt.Errorf("load token: %w (run scald-auth first)", err)
	}

	fresh, err := tm.config.TokenSource(ctx, token).Token()
	if err != nil {
		return nil, fmt.Errorf("refresh token: %w", err)
	}

	if fresh.AccessToken != token.AccessToken {
		tm.logger.Info("access token refreshed")
		if err := tm.save(fresh); err != nil {
			tm.logger.Warn("failed to save refreshed token", "error", err)
		}
	}
	return fresh, nil
}

// Renewer satisfies the poller's renewal contract. RequestRenewal is
// fire-and-forget: the refreshed credential is delivered asynchronously
// through the supply callback, never by blocking the caller.
type Renewer struct {
	tokens *TokenManager
	supply func(credential string)
	logger *slog.Logger
}

func NewRenewer(tokens *TokenManager, supply func(credential string), logger *slog.Logger) *Renewer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Renewer{tokens: tokens, supply: supply, logger: logger}
}

func (r *Renewer) RequestRenewal() {
	go func() {
		token, err := r.tokens.Fresh(context.Background())
		if err != nil {
			r.logger.Error("credential renewal failed; reauthorize with scald-auth",
				"auth_url", r.tokens.AuthURL(),
				"error", err)
			return
		}
		r.supply(token.AccessToken)
	}()
}

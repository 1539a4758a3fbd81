// Package oauth implements the external identity broker: the OAuth2
// authorization-code flow (with PKCE) against a configurable provider,
// followed by a find-or-create of the local user keyed on the provider
// subject id.
package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dmitrijs2005/usersecrets/internal/common"
	"github.com/dmitrijs2005/usersecrets/internal/logging"
	"github.com/dmitrijs2005/usersecrets/internal/server/models"
	"github.com/dmitrijs2005/usersecrets/internal/server/repositories/users"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/oauth2"
)

const (
	stateBytes         = 24
	defaultPendingSize = 4096
	maxProfileBytes    = 1 << 20
)

type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string
	AuthURL      string
	TokenURL     string
	UserInfoURL  string

	// PendingTTL bounds how long a started login may wait for its callback.
	PendingTTL  time.Duration
	PendingSize int

	HTTPClient *http.Client
}

// Profile is the part of the provider's userinfo document we rely on.
type Profile struct {
	Subject string
	Name    string
}

type Broker struct {
	oauth       *oauth2.Config
	userInfoURL string
	httpClient  *http.Client
	pending     *expirable.LRU[string, string]
	users       users.Repository
	logger      logging.Logger
}

func NewBroker(cfg Config, repo users.Repository, logger logging.Logger) *Broker {
	size := cfg.PendingSize
	if size <= 0 {
		size = defaultPendingSize
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	return &Broker{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       cfg.Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:  cfg.AuthURL,
				TokenURL: cfg.TokenURL,
			},
		},
		userInfoURL: cfg.UserInfoURL,
		httpClient:  client,
		pending:     expirable.NewLRU[string, string](size, nil, cfg.PendingTTL),
		users:       repo,
		logger:      logger.With("module", "oauth"),
	}
}

// Begin starts a login: it remembers a fresh state with its PKCE verifier and
// returns both the state and the provider URL to send the browser to.
func (b *Broker) Begin(ctx context.Context) (state string, authURL string, err error) {
	state, err = common.MakeRandHexString(stateBytes)
	if err != nil {
		return "", "", err
	}

	verifier := oauth2.GenerateVerifier()
	b.pending.Add(state, verifier)

	return state, b.oauth.AuthCodeURL(state, oauth2.S256ChallengeOption(verifier)), nil
}

// consume returns the verifier for state and forgets it. Only one caller can
// consume a given state.
func (b *Broker) consume(state string) (string, bool) {
	if state == "" {
		return "", false
	}
	verifier, ok := b.pending.Peek(state)
	if !ok {
		return "", false
	}
	if !b.pending.Remove(state) {
		return "", false
	}
	return verifier, true
}

// Complete finishes the callback. Every failure is reported as
// common.ErrProviderAuth with the cause wrapped for logging.
func (b *Broker) Complete(ctx context.Context, state, code, providerError string) (*models.User, error) {
	verifier, ok := b.consume(state)

	if providerError != "" {
		return nil, fmt.Errorf("%w: provider returned %q", common.ErrProviderAuth, providerError)
	}
	if !ok {
		return nil, fmt.Errorf("%w: unknown or expired state", common.ErrProviderAuth)
	}
	if code == "" {
		return nil, fmt.Errorf("%w: missing code", common.ErrProviderAuth)
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, b.httpClient)

	token, err := b.oauth.Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, fmt.Errorf("%w: exchange: %v", common.ErrProviderAuth, err)
	}

	profile, err := b.FetchProfile(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("%w: profile: %v", common.ErrProviderAuth, err)
	}

	user, err := b.users.FindOrCreateByExternalID(ctx, profile.Subject)
	if err != nil {
		return nil, fmt.Errorf("%w: find or create: %v", common.ErrProviderAuth, err)
	}

	b.logger.Info(ctx, "external login", "user_id", user.ID)
	return user, nil
}

// FetchProfile reads the userinfo document with the access token. The stable
// subject is "sub", or "id" for providers that do not follow OIDC naming.
func (b *Broker) FetchProfile(ctx context.Context, token *oauth2.Token) (*Profile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.userInfoURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := b.oauth.Client(ctx, token).Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("userinfo status %d", resp.StatusCode)
	}

	var doc struct {
		Sub  string          `json:"sub"`
		ID   json.RawMessage `json:"id"`
		Name string          `json:"name"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxProfileBytes)).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode userinfo: %w", err)
	}

	subject := doc.Sub
	if subject == "" {
		subject = rawID(doc.ID)
	}
	if subject == "" {
		return nil, fmt.Errorf("userinfo has no subject")
	}

	return &Profile{Subject: subject, Name: doc.Name}, nil
}

// rawID accepts both "id": "abc" and "id": 123.
func rawID(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}

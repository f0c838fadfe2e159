// Package google verifies Google Sign-In ID tokens against Google's
// tokeninfo endpoint.
package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/smartplate/smartplate/internal/apperr"
)

const DefaultTokenInfoURL = "https://oauth2.googleapis.com/tokeninfo"

// Config holds the verifier settings. Zero values get defaults in New.
type Config struct {
	TokenInfoURL string
	// ClientID, when set, must equal the token's audience.
	ClientID string
	// Timeout bounds a single call to the tokeninfo endpoint.
	Timeout time.Duration
	// Retries is how many extra attempts a transient failure gets.
	Retries int
	// Backoff is the base delay of the exponential backoff between attempts.
	Backoff time.Duration

	HTTPClient *http.Client
}

// Identity is the verified subset of the ID token's claims.
type Identity struct {
	Subject       string
	Email         string
	EmailVerified bool
	Name          string
	Picture       string
}

// Verifier validates ID tokens with the identity provider.
type Verifier struct {
	cfg    Config
	client *http.Client
}

func New(cfg Config) *Verifier {
	if cfg.TokenInfoURL == "" {
		cfg.TokenInfoURL = DefaultTokenInfoURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.Retries < 0 {
		cfg.Retries = 0
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = 200 * time.Millisecond
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &Verifier{cfg: cfg, client: client}
}

type tokenInfo struct {
	Audience      string `json:"aud"`
	Subject       string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified string `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
	Error         string `json:"error"`
	ErrorDesc     string `json:"error_description"`
}

// transientError marks a failure worth retrying: network errors, timeouts
// and 5xx responses.
type transientError struct{ err error }

func (e *transientError) Error() string { return e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }

// Verify checks idToken with the provider. A token the provider refuses
// yields apperr.ErrProviderRejected. Transient failures are retried with
// exponential backoff; when attempts run out the result is
// apperr.ErrProviderUnavailable.
func (v *Verifier) Verify(ctx context.Context, idToken string) (Identity, error) {
	idToken = strings.TrimSpace(idToken)
	if idToken == "" {
		return Identity{}, apperr.ErrProviderRejected
	}

	var id Identity
	backoff := retry.WithMaxRetries(uint64(v.cfg.Retries), retry.NewExponential(v.cfg.Backoff))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		got, err := v.attempt(ctx, idToken)
		if err != nil {
			var te *transientError
			if errors.As(err, &te) {
				return retry.RetryableError(err)
			}
			return err
		}
		id = got
		return nil
	})
	if err != nil {
		var te *transientError
		if errors.As(err, &te) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return Identity{}, apperr.Wrap(apperr.KindProviderUnavailable, apperr.ErrProviderUnavailable.Reason, err)
		}
		return Identity{}, err
	}
	return id, nil
}

func (v *Verifier) attempt(ctx context.Context, idToken string) (Identity, error) {
	ctx, cancel := context.WithTimeout(ctx, v.cfg.Timeout)
	defer cancel()

	u := v.cfg.TokenInfoURL + "?" + url.Values{"id_token": {idToken}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return Identity{}, fmt.Errorf("google: build request: %w", err)
	}
	resp, err := v.client.Do(req)
	if err != nil {
		return Identity{}, &transientError{err: fmt.Errorf("google: tokeninfo: %w", err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Identity{}, &transientError{err: fmt.Errorf("google: read body: %w", err)}
	}
	if resp.StatusCode >= http.StatusInternalServerError {
		return Identity{}, &transientError{err: fmt.Errorf("google: tokeninfo status %d", resp.StatusCode)}
	}

	var info tokenInfo
	_ = json.Unmarshal(body, &info)
	if resp.StatusCode != http.StatusOK || info.Error != "" {
		return Identity{}, apperr.Wrap(apperr.KindProviderRejected, apperr.ErrProviderRejected.Reason,
			fmt.Errorf("google: status %d: %s %s", resp.StatusCode, info.Error, info.ErrorDesc))
	}
	if info.Email == "" {
		return Identity{}, apperr.Wrap(apperr.KindProviderRejected, apperr.ErrProviderRejected.Reason,
			errors.New("google: token carries no email"))
	}
	if v.cfg.ClientID != "" && info.Audience != v.cfg.ClientID {
		return Identity{}, apperr.Wrap(apperr.KindProviderRejected, apperr.ErrProviderRejected.Reason,
			fmt.Errorf("google: audience %q not accepted", info.Audience))
	}
	// Accounts are matched by email, so an unconfirmed address must never
	// reach the lookup.
	if info.EmailVerified != "true" {
		return Identity{}, apperr.Wrap(apperr.KindProviderRejected, apperr.ErrProviderRejected.Reason,
			fmt.Errorf("google: email %q not verified", info.Email))
	}

	return Identity{
		Subject:       info.Subject,
		Email:         info.Email,
		EmailVerified: info.EmailVerified == "true",
		Name:          info.Name,
		Picture:       info.Picture,
	}, nil
}

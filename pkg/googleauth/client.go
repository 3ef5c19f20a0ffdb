package googleauth

import (
	"context"
	"net/http"
	"time"

	syncdomain "traction-backend/internal/sync/domain"

	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// notifyTokenSource wraps a token source to detect silent refreshes so the
// new access token can be written back to the user record.
type notifyTokenSource struct {
	src      oauth2.TokenSource
	current  *oauth2.Token
	callback syncdomain.TokenUpdateFunc
}

func (s *notifyTokenSource) Token() (*oauth2.Token, error) {
	t, err := s.src.Token()
	if err != nil {
		return nil, err
	}
	if s.callback != nil && s.current.AccessToken != t.AccessToken {
		s.current = t
		if err := s.callback(t); err != nil {
			logrus.WithError(err).Warn("unable to persist refreshed token")
		}
	}
	return t, nil
}

// HTTPClient builds an authenticated client for Google APIs from the
// caller's stored tokens.
func HTTPClient(ctx context.Context, clientID, clientSecret string, creds syncdomain.Credentials) *http.Client {
	token := &oauth2.Token{
		AccessToken:  creds.AccessToken,
		RefreshToken: creds.RefreshToken,
		TokenType:    "Bearer",
	}

	// Only force refresh if we have a refresh token
	if creds.RefreshToken != "" {
		token.Expiry = time.Now()
	}

	config := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint:     google.Endpoint,
	}

	wrapped := &notifyTokenSource{
		src:      config.TokenSource(ctx, token),
		current:  token,
		callback: creds.OnRefresh,
	}
	return oauth2.NewClient(ctx, wrapped)
}

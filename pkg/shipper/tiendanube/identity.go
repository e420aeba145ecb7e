package tiendanube

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/mobapp/domicilio/pkg/shipper"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// Identity exchanges Tiendanube authorization codes for store credentials.
// Tiendanube answers the token request with {access_token, token_type, scope, user_id};
// user_id is the store id used to scope every API call.
type Identity struct {
	clientID   string
	authURL    string
	oauth      *oauth2.Config
	httpClient *http.Client
	logger     *otelzap.Logger
}

// NewIdentity creates the OAuth2 code exchanger for the app described by cfg.
func NewIdentity(cfg Config, logger *otelzap.Logger) *Identity {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	authURL := strings.TrimRight(cfg.AuthURL, "/")
	return &Identity{
		clientID: cfg.ClientID,
		authURL:  authURL,
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint: oauth2.Endpoint{
				AuthURL:   fmt.Sprintf("%s/apps/%s/authorize", authURL, cfg.ClientID),
				TokenURL:  cfg.TokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// AuthorizeURL returns https://<platform>/apps/<client_id>/authorize with state attached.
func (i *Identity) AuthorizeURL(state string) string {
	u := fmt.Sprintf("%s/apps/%s/authorize", i.authURL, url.PathEscape(i.clientID))
	if state == "" {
		return u
	}
	return u + "?state=" + url.QueryEscape(state)
}

// Exchange trades an authorization code for the store credential.
// A response without user_id yields a Credential with an empty StoreID; callers decide
// whether that is fatal.
func (i *Identity) Exchange(ctx context.Context, code string) (*shipper.Credential, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, i.httpClient)

	tok, err := i.oauth.Exchange(ctx, code)
	if err != nil {
		i.logger.Ctx(ctx).Error("Tiendanube token exchange failed", zap.Error(err))
		return nil, shipper.NewShipperError(platformName, "TOKEN_EXCHANGE", "exchanging authorization code").WithCause(err)
	}

	return &shipper.Credential{
		StoreID:     extraString(tok, "user_id"),
		AccessToken: tok.AccessToken,
	}, nil
}

// extraString reads a raw token field that may arrive as a JSON number or string.
func extraString(tok *oauth2.Token, key string) string {
	switch v := tok.Extra(key).(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case json.Number:
		return v.String()
	case int64:
		return strconv.FormatInt(v, 10)
	default:
		return ""
	}
}

var _ shipper.Identity = (*Identity)(nil)

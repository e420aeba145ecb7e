package tiendanube_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mobapp/domicilio/pkg/shipper/tiendanube"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

func newTokenServer(t *testing.T, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "authorization_code", r.PostForm.Get("grant_type"))
		assert.Equal(t, "the-code", r.PostForm.Get("code"))
		assert.Equal(t, "4321", r.PostForm.Get("client_id"))
		assert.Equal(t, "s3cret", r.PostForm.Get("client_secret"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestIdentity(tokenURL string) *tiendanube.Identity {
	return tiendanube.NewIdentity(tiendanube.Config{
		ClientID:     "4321",
		ClientSecret: "s3cret",
		AuthURL:      "https://www.tiendanube.com/",
		TokenURL:     tokenURL,
		RedirectURL:  "https://rates.example.com",
	}, otelzap.New(zap.NewNop()))
}

func TestIdentity_AuthorizeURL(t *testing.T) {
	id := newTestIdentity("http://unused")

	assert.Equal(t, "https://www.tiendanube.com/apps/4321/authorize?state=abc123", id.AuthorizeURL("abc123"))
	assert.Equal(t, "https://www.tiendanube.com/apps/4321/authorize", id.AuthorizeURL(""))
}

func TestIdentity_Exchange_Success(t *testing.T) {
	srv := newTokenServer(t, `{"access_token":"tok-xyz","token_type":"bearer","scope":"write_shipping","user_id":7654321}`)
	id := newTestIdentity(srv.URL)

	cred, err := id.Exchange(context.Background(), "the-code")

	require.NoError(t, err)
	assert.Equal(t, "tok-xyz", cred.AccessToken)
	assert.Equal(t, "7654321", cred.StoreID)
	assert.True(t, cred.Valid())
}

func TestIdentity_Exchange_MissingUserID(t *testing.T) {
	srv := newTokenServer(t, `{"access_token":"tok-xyz","token_type":"bearer"}`)
	id := newTestIdentity(srv.URL)

	cred, err := id.Exchange(context.Background(), "the-code")

	require.NoError(t, err)
	assert.Empty(t, cred.StoreID)
	assert.False(t, cred.Valid())
}

func TestIdentity_Exchange_MissingAccessToken(t *testing.T) {
	srv := newTokenServer(t, `{"user_id":7654321}`)
	id := newTestIdentity(srv.URL)

	_, err := id.Exchange(context.Background(), "the-code")

	assert.Error(t, err)
}

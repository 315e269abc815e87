package supabase

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gotrue(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/v1/token", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("apikey") != "anon" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"message":"No API key found in request"}`))
			return
		}
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		switch r.URL.Query().Get("grant_type") {
		case "password":
			if body["email"] != "rh@example.com" || body["password"] != "s3cret" {
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(`{"error":"invalid_grant","error_description":"Invalid login credentials"}`))
				return
			}
			_, _ = w.Write([]byte(`{"access_token":"at-1","token_type":"bearer","expires_in":3600,"refresh_token":"rt-1","user":{"id":"u1","email":"rh@example.com"}}`))
		case "refresh_token":
			if body["refresh_token"] != "rt-1" {
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(`{"code":400,"msg":"Invalid Refresh Token: Refresh Token Not Found"}`))
				return
			}
			_, _ = w.Write([]byte(`{"access_token":"at-2","token_type":"bearer","expires_at":4102444800,"refresh_token":"rt-2","user":{"id":"u1","email":"rh@example.com"}}`))
		}
	})
	mux.HandleFunc("/auth/v1/user", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer at-1" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"msg":"invalid JWT"}`))
			return
		}
		_, _ = w.Write([]byte(`{"id":"u1","email":"rh@example.com","role":"authenticated"}`))
	})
	mux.HandleFunc("/auth/v1/logout", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "Bearer broken" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_SignInWithPassword(t *testing.T) {
	srv := gotrue(t)
	c := NewClient(srv.URL, "anon", time.Second)

	t.Run("Should return tokens and user on success", func(t *testing.T) {
		now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		resp, err := c.SignInWithPassword(context.Background(), "rh@example.com", "s3cret")
		require.NoError(t, err)
		assert.Equal(t, "u1", resp.User.ID)

		tok := resp.Token(now)
		assert.Equal(t, "at-1", tok.AccessToken)
		assert.Equal(t, "rt-1", tok.RefreshToken)
		assert.Equal(t, now.Add(time.Hour), tok.Expiry)
	})

	t.Run("Should surface a readable message on bad credentials", func(t *testing.T) {
		_, err := c.SignInWithPassword(context.Background(), "rh@example.com", "wrong")
		require.Error(t, err)
		var authErr *Error
		require.True(t, errors.As(err, &authErr))
		assert.Equal(t, http.StatusBadRequest, authErr.StatusCode)
		assert.Equal(t, "login failed: Invalid login credentials", err.Error())
	})

	t.Run("Should report a missing api key", func(t *testing.T) {
		_, err := NewClient(srv.URL, "", time.Second).SignInWithPassword(context.Background(), "a", "b")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "No API key found")
	})
}

func TestClient_Refresh(t *testing.T) {
	c := NewClient(gotrue(t).URL, "anon", time.Second)

	resp, err := c.Refresh(context.Background(), "rt-1")
	require.NoError(t, err)
	assert.Equal(t, time.Unix(4102444800, 0), resp.Token(time.Now()).Expiry)

	_, err = c.Refresh(context.Background(), "stale")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Refresh Token Not Found")
}

func TestClient_GetUserAndSignOut(t *testing.T) {
	c := NewClient(gotrue(t).URL, "anon", time.Second)

	u, err := c.GetUser(context.Background(), "at-1")
	require.NoError(t, err)
	assert.Equal(t, "rh@example.com", u.Email)

	_, err = c.GetUser(context.Background(), "expired")
	require.Error(t, err)
	assert.Equal(t, "get user failed: invalid JWT", err.Error())

	assert.NoError(t, c.SignOut(context.Background(), "at-1"))
	assert.Error(t, c.SignOut(context.Background(), "broken"))
}

package auth

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/harrisonrobin/applytrack/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func TestRedirectURL(t *testing.T) {
	l := logger.Discard()
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"Should replace out-of-band redirects", "urn:ietf:wg:oauth:2.0:oob", "http://localhost:6789/oauth2callback"},
		{"Should add the port to bare localhost", "http://localhost", "http://localhost:6789"},
		{"Should force the callback port", "http://127.0.0.1:8080/cb", "http://127.0.0.1:6789/cb"},
		{"Should keep a correct localhost redirect", "http://localhost:6789/oauth2callback", "http://localhost:6789/oauth2callback"},
		{"Should keep remote redirects", "https://example.com/cb", "https://example.com/cb"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, redirectURL(tt.in, l))
		})
	}
}

func TestTokenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "applytrack", TokenFile)
	tok := &oauth2.Token{AccessToken: "ya29", RefreshToken: "1//r", Expiry: time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)}

	require.NoError(t, saveToken(path, tok))
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	got, err := tokenFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "ya29", got.AccessToken)
	assert.Equal(t, "1//r", got.RefreshToken)
	assert.True(t, tok.Expiry.Equal(got.Expiry))

	_, err = tokenFromFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	t.Run("Should report a failed write", func(t *testing.T) {
		if _, err := os.Stat("/dev/full"); err != nil {
			t.Skip("no /dev/full on this system")
		}
		assert.Error(t, saveToken("/dev/full", tok))
	})
}

func TestNotify(t *testing.T) {
	t.Run("Should keep the first value and never block", func(t *testing.T) {
		ch := make(chan string, 1)
		done := make(chan struct{})
		go func() {
			notify(ch, "first")
			notify(ch, "second")
			notify(ch, "third")
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("notify blocked on a full channel")
		}
		assert.Equal(t, "first", <-ch)
		assert.Empty(t, ch)
	})
}

type staticSource struct{ tok *oauth2.Token }

func (s staticSource) Token() (*oauth2.Token, error) { return s.tok, nil }

func TestSavingTokenSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), TokenFile)
	old := &oauth2.Token{AccessToken: "old", RefreshToken: "r"}

	t.Run("Should not write when the token is unchanged", func(t *testing.T) {
		src := &savingTokenSource{base: staticSource{old}, path: path, last: old, log: logger.Discard()}
		_, err := src.Token()
		require.NoError(t, err)
		_, err = os.Stat(path)
		assert.True(t, os.IsNotExist(err))
	})

	t.Run("Should persist a refreshed token", func(t *testing.T) {
		fresh := &oauth2.Token{AccessToken: "new", RefreshToken: "r"}
		src := &savingTokenSource{base: staticSource{fresh}, path: path, last: old, log: logger.Discard()}
		got, err := src.Token()
		require.NoError(t, err)
		assert.Equal(t, "new", got.AccessToken)

		saved, err := tokenFromFile(path)
		require.NoError(t, err)
		assert.Equal(t, "new", saved.AccessToken)
	})
}

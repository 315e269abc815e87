package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/oauth2"
)

// Error is a failed auth call with a message fit for showing to the user.
type Error struct {
	Op         string
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s failed: %s", e.Op, e.Message)
}

type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role,omitempty"`
}

type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	ExpiresAt    int64  `json:"expires_at"`
	RefreshToken string `json:"refresh_token"`
	User         User   `json:"user"`
}

// Token converts the response into an oauth2 token. ExpiresAt wins over
// ExpiresIn when both are present.
func (r *TokenResponse) Token(now time.Time) *oauth2.Token {
	tok := &oauth2.Token{
		AccessToken:  r.AccessToken,
		TokenType:    r.TokenType,
		RefreshToken: r.RefreshToken,
	}
	switch {
	case r.ExpiresAt > 0:
		tok.Expiry = time.Unix(r.ExpiresAt, 0)
	case r.ExpiresIn > 0:
		tok.Expiry = now.Add(time.Duration(r.ExpiresIn) * time.Second)
	}
	return tok
}

// Client talks to the GoTrue auth API of one Supabase project.
type Client struct {
	http *resty.Client
}

func NewClient(projectURL, anonKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	http := resty.New().
		SetBaseURL(strings.TrimRight(projectURL, "/")+"/auth/v1").
		SetTimeout(timeout).
		SetHeader("apikey", anonKey).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	return &Client{http: http}
}

func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*TokenResponse, error) {
	return c.token(ctx, "login", "password", map[string]string{"email": email, "password": password})
}

func (c *Client) Refresh(ctx context.Context, refreshToken string) (*TokenResponse, error) {
	return c.token(ctx, "refresh", "refresh_token", map[string]string{"refresh_token": refreshToken})
}

func (c *Client) token(ctx context.Context, op, grant string, body map[string]string) (*TokenResponse, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("grant_type", grant).
		SetBody(body).
		Post("/token")
	if err != nil {
		return nil, &Error{Op: op, Message: err.Error()}
	}
	if !resp.IsSuccess() {
		return nil, apiError(op, resp)
	}
	var out TokenResponse
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return nil, &Error{Op: op, StatusCode: resp.StatusCode(), Message: "unexpected response from auth server"}
	}
	if out.AccessToken == "" {
		return nil, &Error{Op: op, StatusCode: resp.StatusCode(), Message: "auth server returned no access token"}
	}
	return &out, nil
}

func (c *Client) SignOut(ctx context.Context, accessToken string) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(accessToken).
		Post("/logout")
	if err != nil {
		return &Error{Op: "logout", Message: err.Error()}
	}
	// An expired or already revoked token means there is nothing left to sign out.
	if resp.StatusCode() == http.StatusUnauthorized {
		return nil
	}
	if !resp.IsSuccess() {
		return apiError("logout", resp)
	}
	return nil
}

func (c *Client) GetUser(ctx context.Context, accessToken string) (*User, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(accessToken).
		Get("/user")
	if err != nil {
		return nil, &Error{Op: "get user", Message: err.Error()}
	}
	if !resp.IsSuccess() {
		return nil, apiError("get user", resp)
	}
	var u User
	if err := json.Unmarshal(resp.Body(), &u); err != nil {
		return nil, &Error{Op: "get user", StatusCode: resp.StatusCode(), Message: "unexpected response from auth server"}
	}
	return &u, nil
}

// apiError pulls the most specific message GoTrue put in the body. Older
// servers use error/error_description, newer ones msg or message.
func apiError(op string, resp *resty.Response) *Error {
	var body struct {
		Error            string `json:"error"`
		ErrorDescription string `json:"error_description"`
		Msg              string `json:"msg"`
		Message          string `json:"message"`
	}
	_ = json.Unmarshal(resp.Body(), &body)

	msg := body.ErrorDescription
	for _, m := range []string{body.Msg, body.Message, body.Error} {
		if msg == "" {
			msg = m
		}
	}
	if msg == "" {
		msg = resp.Status()
	}
	return &Error{Op: op, StatusCode: resp.StatusCode(), Message: msg}
}

package backend

import (
	"context"
	"net/http"
)

// User is the commerce API's account record.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

// Credentials identifies an account for login.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterInput holds the fields for creating an account.
type RegisterInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

// ProfileInput holds the mutable profile fields.
type ProfileInput struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

type loginResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// Login authenticates and returns the opaque session token together with
// the account. Token issuance and format are entirely the backend's
// concern.
func (c *Client) Login(ctx context.Context, creds Credentials) (string, User, error) {
	var resp loginResponse
	if err := c.do(ctx, http.MethodPost, "/auth/login", nil, "", creds, &resp); err != nil {
		return "", User{}, err
	}
	return resp.Token, resp.User, nil
}

// Register creates a new account.
func (c *Client) Register(ctx context.Context, input RegisterInput) (User, error) {
	var user User
	if err := c.do(ctx, http.MethodPost, "/auth/register", nil, "", input, &user); err != nil {
		return User{}, err
	}
	return user, nil
}

// Profile fetches the account behind the token.
func (c *Client) Profile(ctx context.Context, token string) (User, error) {
	var user User
	if err := c.do(ctx, http.MethodGet, "/auth/profile", nil, token, nil, &user); err != nil {
		return User{}, err
	}
	return user, nil
}

// UpdateProfile updates the account behind the token.
func (c *Client) UpdateProfile(ctx context.Context, token string, input ProfileInput) (User, error) {
	var user User
	if err := c.do(ctx, http.MethodPut, "/auth/profile", nil, token, input, &user); err != nil {
		return User{}, err
	}
	return user, nil
}

package api

import (
	"context"
	"fmt"
	"net/http"
)

// LoginRequest is the credential pair posted to /auth/login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse is the successful authentication payload.
type LoginResponse struct {
	AccessToken string `json:"access_token"`
	ID          int    `json:"id"`
	Role        string `json:"role"`
}

// User is one directory entry from /auth/users.
type User struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// Login authenticates and returns the bearer credential with the caller's
// identity. A 4xx comes back as *Error carrying the server detail.
func (c *Client) Login(ctx context.Context, username, password string) (*LoginResponse, error) {
	var out LoginResponse
	err := c.doJSON(ctx, http.MethodPost, "/auth/login", "", LoginRequest{
		Username: username,
		Password: password,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ListUsers fetches the full user directory.
func (c *Client) ListUsers(ctx context.Context, token string) ([]User, error) {
	var out []User
	if err := c.doJSON(ctx, http.MethodGet, "/auth/users", token, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteUser removes one user from the directory.
func (c *Client) DeleteUser(ctx context.Context, token string, userID int) error {
	return c.doJSON(ctx, http.MethodDelete, fmt.Sprintf("/auth/users/%d", userID), token, nil, nil)
}

package remote

import (
	"context"
	"errors"
	"net/http"

	"github.com/i474232898/weather-dashboard/internal/weather"
)

// Credentials are the login form fields.
type Credentials struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// Registration are the fields accepted by the registration endpoint.
type Registration struct {
	Username  string `json:"username" validate:"required,min=3,max=150"`
	Email     string `json:"email" validate:"required,email"`
	Password1 string `json:"password1" validate:"required,min=8"`
	Password2 string `json:"password2" validate:"required,eqfield=Password1"`
}

// LoginResponse is the auth API's answer to a successful login.
type LoginResponse struct {
	Token string `json:"token"`
	Key   string `json:"key"`
	User  struct {
		ID       int64  `json:"pk"`
		Username string `json:"username"`
		Email    string `json:"email"`
	} `json:"user"`
}

// AccessToken returns whichever token field the backend populated.
func (r LoginResponse) AccessToken() string {
	if r.Token != "" {
		return r.Token
	}
	return r.Key
}

// Login authenticates against the auth API. Rejected credentials are
// reported as *weather.AuthError.
func (c *Client) Login(ctx context.Context, creds Credentials) (LoginResponse, error) {
	var out LoginResponse
	err := c.postJSON(ctx, "login", "/auth/login/", creds, &out)
	if err != nil {
		return LoginResponse{}, asAuthError(err)
	}
	if out.AccessToken() == "" {
		return LoginResponse{}, &weather.AuthError{Message: "no token in login response"}
	}
	return out, nil
}

// Register creates a new account. Validation failures from the backend are
// reported as *weather.APIError.
func (c *Client) Register(ctx context.Context, reg Registration) error {
	return c.postJSON(ctx, "register", "/auth/registration/", reg, nil)
}

func asAuthError(err error) error {
	var apiErr *weather.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden:
			return &weather.AuthError{Message: apiErr.Message}
		}
	}
	return err
}

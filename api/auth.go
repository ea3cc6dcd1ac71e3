package api

import (
	"github.com/earshot-audio/earshot/models"
)

const (
	authEndpoint     = "/auth"
	registerEndpoint = "/register"
)

type credentialPayload struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email,omitempty"`
}

// Login exchanges credentials for a token. The token is not stored on
// the client automatically; the session decides whether to adopt it.
func (c *Client) Login(username, password string) (models.AuthResponse, error) {
	var auth models.AuthResponse
	err := c.post(authEndpoint, credentialPayload{Username: username, Password: password}, "auth", &auth)
	return auth, err
}

func (c *Client) Register(username, email, password string) (models.AuthResponse, error) {
	payload := credentialPayload{Username: username, Password: password, Email: email}
	var auth models.AuthResponse
	err := c.post(registerEndpoint, payload, "register", &auth)
	return auth, err
}

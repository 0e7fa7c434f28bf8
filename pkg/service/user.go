package service

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/luthenlog/luthen/pkg/api"
	"github.com/luthenlog/luthen/pkg/client"
)

// UserService manages the account behind a token.
type UserService struct {
	client *client.Client
}

// NewUserService creates a UserService over c.
func NewUserService(c *client.Client) *UserService {
	return &UserService{client: c}
}

// Delete removes the account that owns token. There is no demo variant.
func (s *UserService) Delete(ctx context.Context, token string) api.Result[json.RawMessage] {
	if token == "" {
		return api.Fail[json.RawMessage](api.Unauthorized, "")
	}
	return client.Send[json.RawMessage](ctx, s.client, client.Request{
		Method:  http.MethodDelete,
		Path:    "/user/",
		Session: api.Session{Token: token},
	})
}

package service

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/luthenlog/luthen/pkg/api"
	"github.com/luthenlog/luthen/pkg/client"
)

// FundService issues fund requests.
type FundService struct {
	client *client.Client
}

// NewFundService creates a FundService over c.
func NewFundService(c *client.Client) *FundService {
	return &FundService{client: c}
}

type fundName struct {
	Name string `json:"name"`
}

// Create adds a fund named name.
func (s *FundService) Create(ctx context.Context, sess api.Session, name string) api.Result[api.Fund] {
	return client.Send[api.Fund](ctx, s.client, client.Request{
		Method:  http.MethodPost,
		Path:    resourcePath(sess, "fund", ""),
		Body:    fundName{Name: name},
		Session: sess,
	})
}

// Read lists the session's funds.
func (s *FundService) Read(ctx context.Context, sess api.Session) api.Result[[]api.Fund] {
	return client.Send[[]api.Fund](ctx, s.client, client.Request{
		Method:  http.MethodGet,
		Path:    resourcePath(sess, "fund", ""),
		Session: sess,
	})
}

// Update renames the fund identified by patch.ID.
func (s *FundService) Update(ctx context.Context, sess api.Session, patch api.FundPatch) api.Result[api.Fund] {
	if patch.ID == "" {
		return api.Fail[api.Fund](api.Unclassified, api.ErrMissingFundID.Error())
	}
	return client.Send[api.Fund](ctx, s.client, client.Request{
		Method:  http.MethodPatch,
		Path:    resourcePath(sess, "fund", patch.ID),
		Body:    fundName{Name: patch.Name},
		Session: sess,
	})
}

// Delete removes the fund. The payload is whatever the API answers with.
func (s *FundService) Delete(ctx context.Context, sess api.Session, id string) api.Result[json.RawMessage] {
	if id == "" {
		return api.Fail[json.RawMessage](api.Unclassified, api.ErrMissingFundID.Error())
	}
	return client.Send[json.RawMessage](ctx, s.client, client.Request{
		Method:  http.MethodDelete,
		Path:    resourcePath(sess, "fund", id),
		Session: sess,
	})
}

package service

import (
	"context"
	"net/http"

	"github.com/luthenlog/luthen/pkg/api"
	"github.com/luthenlog/luthen/pkg/client"
)

// RecordService issues record requests. Mutations answer with the funds
// whose balances changed.
type RecordService struct {
	client *client.Client
}

// NewRecordService creates a RecordService over c.
func NewRecordService(c *client.Client) *RecordService {
	return &RecordService{client: c}
}

// Create validates in and posts it. Invalid input fails without a request.
func (s *RecordService) Create(ctx context.Context, sess api.Session, in api.RecordInput) api.Result[[]api.Fund] {
	if err := in.Validate(); err != nil {
		return api.Fail[[]api.Fund](api.Unclassified, err.Error())
	}
	return client.Send[[]api.Fund](ctx, s.client, client.Request{
		Method:  http.MethodPost,
		Path:    resourcePath(sess, "record", ""),
		Body:    in,
		Session: sess,
	})
}

// Read lists records matching filter. The zero filter lists everything.
func (s *RecordService) Read(ctx context.Context, sess api.Session, filter api.RecordFilter) api.Result[[]api.Record] {
	return client.Send[[]api.Record](ctx, s.client, client.Request{
		Method:  http.MethodGet,
		Path:    resourcePath(sess, "record", ""),
		Query:   filter.Values(),
		Session: sess,
	})
}

// Update applies patch to the record with id and returns it with the funds it touched.
func (s *RecordService) Update(ctx context.Context, sess api.Session, id string, patch api.RecordPatch) api.Result[api.RecordUpdate] {
	if id == "" {
		return api.Fail[api.RecordUpdate](api.Unclassified, api.ErrMissingRecordID.Error())
	}
	return client.Send[api.RecordUpdate](ctx, s.client, client.Request{
		Method:  http.MethodPatch,
		Path:    resourcePath(sess, "record", id),
		Body:    patch,
		Session: sess,
	})
}

// Delete removes the record with id and returns the funds whose balance changed.
func (s *RecordService) Delete(ctx context.Context, sess api.Session, id string) api.Result[[]api.Fund] {
	if id == "" {
		return api.Fail[[]api.Fund](api.Unclassified, api.ErrMissingRecordID.Error())
	}
	return client.Send[[]api.Fund](ctx, s.client, client.Request{
		Method:  http.MethodDelete,
		Path:    resourcePath(sess, "record", id),
		Session: sess,
	})
}

// Package api defines the core interfaces and data structures for luthen.
package api

import (
	"context"
	"errors"
	"net/url"
	"strconv"
)

// Fund is a named balance the user keeps records against.
type Fund struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Balance Amount `json:"balance"`
	// IsMain marks the default fund.
	IsMain bool `json:"is_main"`
}

// FundPatch renames a fund. Only Name is sent to the server.
type FundPatch struct {
	ID   string `json:"-"`
	Name string `json:"name"`
}

// RecordType classifies a record. Transfers use one of these alongside a
// correlated fund.
type RecordType int

const (
	Neutral RecordType = 0
	Credit  RecordType = 1
	Debit   RecordType = 2
)

func (t RecordType) String() string {
	switch t {
	case Neutral:
		return "neutral"
	case Credit:
		return "credit"
	case Debit:
		return "debit"
	default:
		return "unknown"
	}
}

// Valid reports whether t is one of the known record types.
func (t RecordType) Valid() bool {
	return t >= Neutral && t <= Debit
}

// Record is a single financial transaction against one fund, or two for
// transfers.
type Record struct {
	// ID is empty until the server created the record.
	ID     string `json:"id,omitempty"`
	Amount Amount `json:"amount"`
	Date   string `json:"date"`
	FundID string `json:"fund_id"`
	// CorrelatedFundID links the second fund of a transfer.
	CorrelatedFundID string     `json:"correlated_fund_id,omitempty"`
	Note             *string    `json:"note"`
	Tag              *string    `json:"tag"`
	Type             RecordType `json:"type"`
}

// IsTransfer reports whether the record moves money between two funds.
func (r Record) IsTransfer() bool {
	return r.CorrelatedFundID != ""
}

// RecordInput is the payload used to create a record.
type RecordInput struct {
	Amount           Amount     `json:"amount"`
	Date             string     `json:"date"`
	FundID           string     `json:"fund_id"`
	CorrelatedFundID string     `json:"correlated_fund_id,omitempty"`
	Note             *string    `json:"note"`
	Tag              *string    `json:"tag"`
	Type             RecordType `json:"type"`
}

// Validation errors returned by RecordInput.Validate.
var (
	ErrMissingFund     = errors.New("fund_id is required")
	ErrSameFund        = errors.New("correlated_fund_id must differ from fund_id")
	ErrInvalidType     = errors.New("type must be 0, 1 or 2")
	ErrMissingRecordID = errors.New("record id is required")
	ErrMissingFundID   = errors.New("fund id is required")
)

// Validate checks the invariants the client can verify on its own. Whether
// the referenced funds exist is left to the server.
func (in RecordInput) Validate() error {
	if in.FundID == "" {
		return ErrMissingFund
	}
	if in.CorrelatedFundID != "" && in.CorrelatedFundID == in.FundID {
		return ErrSameFund
	}
	if !in.Type.Valid() {
		return ErrInvalidType
	}
	return nil
}

// RecordPatch is a partial record update. Nil fields are left unchanged.
type RecordPatch struct {
	Amount           *Amount     `json:"amount,omitempty"`
	Date             *string     `json:"date,omitempty"`
	FundID           *string     `json:"fund_id,omitempty"`
	CorrelatedFundID *string     `json:"correlated_fund_id,omitempty"`
	Note             *string     `json:"note,omitempty"`
	Tag              *string     `json:"tag,omitempty"`
	Type             *RecordType `json:"type,omitempty"`
}

// RecordUpdate is the server response to a record update: the new record and
// every fund whose balance changed.
type RecordUpdate struct {
	Record Record `json:"record"`
	Funds  []Fund `json:"funds"`
}

// RecordFilter narrows a record listing. Empty fields are not sent.
type RecordFilter struct {
	FundID           string
	CorrelatedFundID string
	Type             *RecordType
	Tag              string
	Note             string
	FromDate         string
	ToDate           string
}

// Values encodes the filter as URL query parameters.
func (f RecordFilter) Values() url.Values {
	v := url.Values{}
	set := func(key, val string) {
		if val != "" {
			v.Set(key, val)
		}
	}
	set("fund_id", f.FundID)
	set("correlated_fund_id", f.CorrelatedFundID)
	if f.Type != nil {
		v.Set("type", strconv.Itoa(int(*f.Type)))
	}
	set("tag", f.Tag)
	set("note", f.Note)
	set("fromDate", f.FromDate)
	set("toDate", f.ToDate)
	return v
}

// Session carries the credentials a request is made with.
type Session struct {
	// Demo selects the public endpoints and suppresses the bearer token.
	Demo  bool
	Token string
}

// Bearer reports whether requests made with s carry an Authorization header.
func (s Session) Bearer() bool {
	return !s.Demo && s.Token != ""
}

// AuthState is the session state of the client.
type AuthState int

const (
	Anonymous AuthState = iota
	Demo
	Authenticated
)

func (s AuthState) String() string {
	switch s {
	case Anonymous:
		return "anonymous"
	case Demo:
		return "demo"
	case Authenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

// Writer consumes records from a channel and writes them to a destination.
// The ID of every record written is sent to ackChan.
type Writer interface {
	Write(ctx context.Context, in <-chan *Record, ackChan chan<- string) error
}

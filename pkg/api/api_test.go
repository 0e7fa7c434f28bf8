package api

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestResultEnvelope(t *testing.T) {
	tests := []struct {
		name     string
		result   Result[[]Fund]
		wantJSON string
	}{
		{
			name:     "success",
			result:   Ok([]Fund{{ID: "a", Name: "Cash", Balance: MustAmount("10.5")}}),
			wantJSON: `{"data":[{"id":"a","name":"Cash","balance":10.5,"is_main":false}],"errorMessage":null}`,
		},
		{
			name:     "success with nil slice",
			result:   Ok[[]Fund](nil),
			wantJSON: `{"data":[],"errorMessage":null}`,
		},
		{
			name:     "failure",
			result:   Fail[[]Fund](NotFound, ""),
			wantJSON: `{"data":null,"errorMessage":"not found"}`,
		},
		{
			name:     "zero value",
			result:   Result[[]Fund]{},
			wantJSON: `{"data":null,"errorMessage":"unexpected error"}`,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := json.Marshal(tc.result)
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}
			if string(got) != tc.wantJSON {
				t.Errorf("envelope: got %s, want %s", got, tc.wantJSON)
			}
		})
	}
}

func TestResultExactlyOneSide(t *testing.T) {
	results := []Result[string]{
		Ok(""),
		Ok("payload"),
		Fail[string](Conflict, "duplicate name"),
		Fail[string](NoFailure, ""),
		{},
	}

	for i, r := range results {
		hasMessage := r.ErrorMessage() != ""
		if r.OK() == hasMessage {
			t.Errorf("result %d: ok=%v but message=%q", i, r.OK(), r.ErrorMessage())
		}
		if r.OK() && r.Kind() != NoFailure {
			t.Errorf("result %d: successful result has kind %v", i, r.Kind())
		}
		if !r.OK() && r.Kind() == NoFailure {
			t.Errorf("result %d: failed result has no kind", i)
		}
	}
}

func TestRecast(t *testing.T) {
	r := Recast[string, []Fund](Fail[string](Forbidden, ""))
	if r.OK() {
		t.Fatal("recast result should be a failure")
	}
	if r.Kind() != Forbidden || r.ErrorMessage() != "forbidden" {
		t.Errorf("recast: got (%v, %q), want (forbidden, %q)", r.Kind(), r.ErrorMessage(), "forbidden")
	}
}

func TestAmountJSON(t *testing.T) {
	var f Fund
	if err := json.Unmarshal([]byte(`{"id":"f1","name":"Main","balance":"25.10","is_main":true}`), &f); err != nil {
		t.Fatalf("unmarshal quoted balance: %v", err)
	}
	if !f.Balance.Equal(MustAmount("25.1")) {
		t.Errorf("balance: got %s, want 25.1", f.Balance)
	}

	if err := json.Unmarshal([]byte(`{"id":"f1","balance":-3}`), &f); err != nil {
		t.Fatalf("unmarshal numeric balance: %v", err)
	}
	if !f.Balance.Equal(NewAmount(-3)) {
		t.Errorf("balance: got %s, want -3", f.Balance)
	}

	out, err := json.Marshal(RecordInput{Amount: MustAmount("12.34"), FundID: "f1", Type: Debit})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"amount":12.34,"date":"","fund_id":"f1","note":null,"tag":null,"type":2}`
	if string(out) != want {
		t.Errorf("record input: got %s, want %s", out, want)
	}
}

func TestRecordInputValidate(t *testing.T) {
	tests := []struct {
		name string
		in   RecordInput
		want error
	}{
		{name: "valid debit", in: RecordInput{FundID: "a", Type: Debit}},
		{name: "valid transfer", in: RecordInput{FundID: "a", CorrelatedFundID: "b", Type: Credit}},
		{name: "missing fund", in: RecordInput{Type: Credit}, want: ErrMissingFund},
		{name: "transfer to same fund", in: RecordInput{FundID: "a", CorrelatedFundID: "a"}, want: ErrSameFund},
		{name: "unknown type", in: RecordInput{FundID: "a", Type: 7}, want: ErrInvalidType},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.in.Validate(); !errors.Is(err, tc.want) {
				t.Errorf("validate: got %v, want %v", err, tc.want)
			}
		})
	}
}

func TestRecordFilterValues(t *testing.T) {
	debit := Debit
	f := RecordFilter{FundID: "f1", Type: &debit, FromDate: "2024-01-01", ToDate: "2024-01-31"}

	got := f.Values().Encode()
	want := "fromDate=2024-01-01&fund_id=f1&toDate=2024-01-31&type=2"
	if got != want {
		t.Errorf("query: got %q, want %q", got, want)
	}

	if enc := (RecordFilter{}).Values().Encode(); enc != "" {
		t.Errorf("empty filter: got %q, want empty", enc)
	}
}

func TestRecordPatchOmitsUnsetFields(t *testing.T) {
	neutral := Neutral
	out, err := json.Marshal(RecordPatch{Type: &neutral})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(out) != `{"type":0}` {
		t.Errorf("patch: got %s, want %s", out, `{"type":0}`)
	}
}

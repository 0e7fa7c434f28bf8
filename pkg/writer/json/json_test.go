package json

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/luthenlog/luthen/pkg/api"
	"github.com/luthenlog/luthen/pkg/logging"
)

func export(t *testing.T, path string, recs ...*api.Record) *Writer {
	t.Helper()
	w, err := New(Config{FilePath: path}, logging.Discard())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	in := make(chan *api.Record, len(recs))
	for _, r := range recs {
		in <- r
	}
	close(in)
	if err := w.Write(context.Background(), in, nil); err != nil {
		t.Fatalf("Write: %v", err)
	}
	return w
}

func TestWriter_MergesByID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.json")

	export(t, path,
		&api.Record{ID: "r1", Amount: api.MustAmount("10.25"), FundID: "f1", Type: api.Credit},
		&api.Record{ID: "r2", Amount: api.MustAmount("3"), FundID: "f1", Type: api.Debit},
	)
	w := export(t, path,
		&api.Record{ID: "r2", Amount: api.MustAmount("4"), FundID: "f1", Type: api.Debit},
		&api.Record{ID: "r3", Amount: api.MustAmount("1"), FundID: "f2", Type: api.Debit},
	)

	if n := w.RecordCount(); n != 3 {
		t.Errorf("count: got %d, want 3", n)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading output: %v", err)
	}
	var got []api.Record
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("decoding output: %v", err)
	}
	if len(got) != 3 || got[1].ID != "r2" || !got[1].Amount.Equal(api.NewAmount(4)) {
		t.Errorf("records: got %+v", got)
	}
	if !got[0].Amount.Equal(api.MustAmount("10.25")) {
		t.Errorf("amount: got %s, want 10.25", got[0].Amount)
	}
}

func TestNew_RejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := New(Config{FilePath: path}, logging.Discard()); err == nil {
		t.Error("expected error for corrupt file")
	}
}

package csv

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/luthenlog/luthen/pkg/api"
	"github.com/luthenlog/luthen/pkg/logging"
)

func TestWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.csv")
	w, err := New(Config{FilePath: path, BatchSize: 1}, logging.Discard())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	note := "rent, january"
	in := make(chan *api.Record, 2)
	in <- &api.Record{ID: "r1", Date: "2024-01-15", Amount: api.MustAmount("-12.50"), FundID: "f1", Type: api.Debit, Note: &note}
	in <- &api.Record{ID: "r2", Date: "2024-01-16", Amount: api.MustAmount("100"), FundID: "f1", CorrelatedFundID: "f2", Type: api.Credit}
	close(in)

	acks := make(chan string, 2)
	if err := w.Write(context.Background(), in, acks); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if len(acks) != 2 {
		t.Errorf("acks: got %d, want 2", len(acks))
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("reading csv: %v", err)
	}

	want := [][]string{
		Header,
		{"r1", "2024-01-15", "2", "f1", "", "-12.5", "", "rent, january"},
		{"r2", "2024-01-16", "1", "f1", "f2", "100", "", ""},
	}
	if len(rows) != len(want) {
		t.Fatalf("rows: got %d, want %d", len(rows), len(want))
	}
	for i := range want {
		for j := range want[i] {
			if rows[i][j] != want[i][j] {
				t.Errorf("row %d col %d: got %q, want %q", i, j, rows[i][j], want[i][j])
			}
		}
	}
}

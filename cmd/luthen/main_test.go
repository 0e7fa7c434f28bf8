package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/subcommands"
	"golang.org/x/oauth2"

	"github.com/luthenlog/luthen/internal/exporter"
	"github.com/luthenlog/luthen/pkg/api"
	"github.com/luthenlog/luthen/pkg/client"
)

type route struct {
	status int
	body   string
}

// fakeAPI serves canned answers keyed by "METHOD /path" and records the
// Authorization header of every request.
func fakeAPI(t *testing.T, routes map[string]route) *[]string {
	t.Helper()
	var auth []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = append(auth, r.Header.Get("Authorization"))
		rt, ok := routes[r.Method+" "+r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(rt.status)
		io.WriteString(w, rt.body)
	}))
	t.Cleanup(srv.Close)

	t.Setenv("LUTHEN_API_URL", srv.URL)
	return &auth
}

// run executes the CLI with args against the environment prepared by the
// test and returns the exit status and both outputs.
func run(t *testing.T, args ...string) (subcommands.ExitStatus, string, string) {
	t.Helper()
	var out, errOut bytes.Buffer
	opts := &options{out: &out, errOut: &errOut}

	fs := flag.NewFlagSet("luthen", flag.ContinueOnError)
	commander := newCommander(fs, "luthen", opts)
	args = append([]string{"-config", filepath.Join(t.TempDir(), "missing.json")}, args...)
	if err := fs.Parse(args); err != nil {
		t.Fatalf("parsing flags: %v", err)
	}
	status := commander.Execute(context.Background(), opts)
	return status, out.String(), errOut.String()
}

func tokenFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "token.json")
	t.Setenv("LUTHEN_TOKEN_FILE", path)
	return path
}

const demoFunds = `[{"id":"f1","name":"Cash","balance":10,"is_main":true},{"id":"f2","name":"Savings","balance":90}]`

const demoRecords = `[
	{"id":"r1","amount":5,"date":"2024-01-15","fund_id":"f1","type":2,"tag":"food","note":null},
	{"id":"r2","amount":20,"date":"2024-01-16","fund_id":"f1","correlated_fund_id":"f2","type":0,"tag":null,"note":"move"}
]`

func TestFundList(t *testing.T) {
	tokenFile(t)
	auth := fakeAPI(t, map[string]route{
		"GET /public/fund": {http.StatusOK, demoFunds},
	})

	status, out, errOut := run(t, "-demo", "-plain", "fund", "list")
	if status != subcommands.ExitSuccess {
		t.Fatalf("status: got %v, want success (stderr %q)", status, errOut)
	}
	for _, want := range []string{"| f1 | Cash |", "| yes |", "Savings", "**Total**"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if len(*auth) != 1 || (*auth)[0] != "" {
		t.Errorf("demo requests must not carry a token, got %q", *auth)
	}
}

func TestFundListJSON(t *testing.T) {
	tokenFile(t)
	fakeAPI(t, map[string]route{
		"GET /public/fund": {http.StatusOK, demoFunds},
	})

	status, out, _ := run(t, "-demo", "-json", "fund", "list")
	if status != subcommands.ExitSuccess {
		t.Fatalf("status: got %v, want success", status)
	}

	var env struct {
		Data         []api.Fund `json:"data"`
		ErrorMessage *string    `json:"errorMessage"`
	}
	if err := json.Unmarshal([]byte(out), &env); err != nil {
		t.Fatalf("decoding output: %v\n%s", err, out)
	}
	if env.ErrorMessage != nil || len(env.Data) != 2 {
		t.Errorf("envelope: got %+v", env)
	}
}

func TestNotLoggedIn(t *testing.T) {
	tokenFile(t)
	auth := fakeAPI(t, nil)

	status, _, errOut := run(t, "fund", "list")
	if status != subcommands.ExitFailure {
		t.Errorf("status: got %v, want failure", status)
	}
	if !strings.Contains(errOut, "not logged in") {
		t.Errorf("stderr: got %q", errOut)
	}
	if len(*auth) != 0 {
		t.Errorf("requests: got %d, want 0", len(*auth))
	}
}

func TestSavedTokenIsSent(t *testing.T) {
	path := tokenFile(t)
	if err := client.SaveToken(path, &oauth2.Token{AccessToken: "tok"}); err != nil {
		t.Fatalf("SaveToken: %v", err)
	}
	auth := fakeAPI(t, map[string]route{
		"GET /fund": {http.StatusOK, demoFunds},
	})

	if status, _, errOut := run(t, "-plain", "fund", "list"); status != subcommands.ExitSuccess {
		t.Fatalf("status: got %v (stderr %q)", status, errOut)
	}
	if (*auth)[0] != "Bearer tok" {
		t.Errorf("authorization: got %q", (*auth)[0])
	}
}

func TestFundCreateConflict(t *testing.T) {
	tokenFile(t)
	fakeAPI(t, map[string]route{
		"POST /public/fund": {http.StatusConflict, `{"message":"duplicate name"}`},
	})

	status, out, errOut := run(t, "-demo", "fund", "create", "Groceries")
	if status != subcommands.ExitFailure {
		t.Errorf("status: got %v, want failure", status)
	}
	if !strings.Contains(errOut, "Error: duplicate name") {
		t.Errorf("stderr: got %q", errOut)
	}
	if out != "" {
		t.Errorf("stdout: got %q, want empty", out)
	}
}

func TestUsageErrors(t *testing.T) {
	tokenFile(t)
	fakeAPI(t, nil)

	tests := []struct {
		name string
		args []string
	}{
		{"fund create without name", []string{"-demo", "fund", "create"}},
		{"fund rename without name", []string{"-demo", "fund", "rename", "f1"}},
		{"record delete without id", []string{"-demo", "record", "delete"}},
		{"record create with same funds", []string{"-demo", "record", "create", "-fund", "f1", "-to", "f1", "-amount", "1"}},
		{"record create with bad amount", []string{"-demo", "record", "create", "-fund", "f1", "-amount", "x"}},
		{"delete-account without confirmation", []string{"delete-account"}},
		{"unknown sink", []string{"-demo", "export", "-to", "ftp"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if status, _, _ := run(t, tc.args...); status != subcommands.ExitUsageError {
				t.Errorf("status: got %v, want usage error", status)
			}
		})
	}
}

func TestRecordList(t *testing.T) {
	tokenFile(t)
	fakeAPI(t, map[string]route{
		"GET /public/fund":   {http.StatusOK, demoFunds},
		"GET /public/record": {http.StatusOK, demoRecords},
	})

	tests := []struct {
		view    string
		want    []string
		notWant string
	}{
		{"all", []string{"| r1 |", "| r2 |", "food", "move"}, ""},
		{"debits", []string{"| r1 |"}, "| r2 |"},
		{"transfers", []string{"| r2 | ", "| transfer | Cash | Savings |"}, "| r1 |"},
	}
	for _, tc := range tests {
		t.Run(tc.view, func(t *testing.T) {
			status, out, errOut := run(t, "-demo", "-plain", "record", "list", "-view", tc.view)
			if status != subcommands.ExitSuccess {
				t.Fatalf("status: got %v (stderr %q)", status, errOut)
			}
			for _, w := range tc.want {
				if !strings.Contains(out, w) {
					t.Errorf("output missing %q:\n%s", w, out)
				}
			}
			if tc.notWant != "" && strings.Contains(out, tc.notWant) {
				t.Errorf("output should not contain %q:\n%s", tc.notWant, out)
			}
		})
	}
}

func TestRecordDeleteShowsNewBalance(t *testing.T) {
	tokenFile(t)
	fakeAPI(t, map[string]route{
		"GET /public/fund":         {http.StatusOK, demoFunds},
		"DELETE /public/record/r1": {http.StatusOK, `[{"id":"f1","name":"Cash","balance":15,"is_main":true}]`},
	})

	status, out, errOut := run(t, "-demo", "-plain", "record", "delete", "r1")
	if status != subcommands.ExitSuccess {
		t.Fatalf("status: got %v (stderr %q)", status, errOut)
	}
	if !strings.Contains(out, "Deleted record `r1`") || !strings.Contains(out, "| f1 | Cash |") {
		t.Errorf("output:\n%s", out)
	}
}

func TestDeleteAccount(t *testing.T) {
	path := tokenFile(t)
	if err := client.SaveToken(path, &oauth2.Token{AccessToken: "tok"}); err != nil {
		t.Fatalf("SaveToken: %v", err)
	}
	auth := fakeAPI(t, map[string]route{
		"DELETE /user/": {http.StatusOK, `{"deleted":true}`},
	})

	status, out, errOut := run(t, "-plain", "delete-account", "-yes")
	if status != subcommands.ExitSuccess {
		t.Fatalf("status: got %v (stderr %q)", status, errOut)
	}
	if !strings.Contains(out, "Account deleted") {
		t.Errorf("output: got %q", out)
	}
	if len(*auth) != 1 || (*auth)[0] != "Bearer tok" {
		t.Errorf("requests: got %q", *auth)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("token file should be removed, stat error: %v", err)
	}
}

func TestDeleteAccountRefusedInDemo(t *testing.T) {
	tokenFile(t)
	auth := fakeAPI(t, nil)

	if status, _, _ := run(t, "-demo", "delete-account", "-yes"); status != subcommands.ExitFailure {
		t.Errorf("status: got %v, want failure", status)
	}
	if len(*auth) != 0 {
		t.Errorf("requests: got %d, want 0", len(*auth))
	}
}

func TestLogout(t *testing.T) {
	path := tokenFile(t)
	fakeAPI(t, nil)
	if err := client.SaveToken(path, &oauth2.Token{AccessToken: "tok"}); err != nil {
		t.Fatalf("SaveToken: %v", err)
	}

	_, out, _ := run(t, "logout")
	if !strings.Contains(out, "Logged out") {
		t.Errorf("output: got %q", out)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("token file should be removed, stat error: %v", err)
	}

	_, out, _ = run(t, "logout")
	if !strings.Contains(out, "Not logged in") {
		t.Errorf("second logout: got %q", out)
	}
}

func TestExportJSON(t *testing.T) {
	tokenFile(t)
	fakeAPI(t, map[string]route{
		"GET /public/fund":   {http.StatusOK, demoFunds},
		"GET /public/record": {http.StatusOK, demoRecords},
	})
	dest := filepath.Join(t.TempDir(), "records.json")

	status, out, errOut := run(t, "-demo", "export", "-to", "json", "-out", dest)
	if status != subcommands.ExitSuccess {
		t.Fatalf("status: got %v (stderr %q)", status, errOut)
	}
	if !strings.Contains(out, "Exported 2 of 2 records") {
		t.Errorf("output: got %q", out)
	}

	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("reading export: %v", err)
	}
	var got []api.Record
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("decoding export: %v", err)
	}
	if len(got) != 2 || got[0].ID != "r1" || !got[1].IsTransfer() {
		t.Errorf("exported records: got %+v", got)
	}
}

func TestExportList(t *testing.T) {
	status, out, _ := run(t, "export", "-list")
	if status != subcommands.ExitSuccess {
		t.Fatalf("status: got %v", status)
	}
	for _, name := range []string{"csv", "json", "postgres", "sheets"} {
		if !strings.Contains(out, name) {
			t.Errorf("output missing sink %q:\n%s", name, out)
		}
	}
}

// closingSink opens writers that accept every record and fail on Close.
type closingSink struct{ closeErr error }

func (closingSink) Name() string        { return "closing" }
func (closingSink) Description() string { return "accepts records, fails on close" }

func (s closingSink) Open(context.Context, exporter.Options) (api.Writer, error) {
	return &closingWriter{err: s.closeErr}, nil
}

type closingWriter struct {
	err    error
	closed bool
}

func (w *closingWriter) Write(_ context.Context, in <-chan *api.Record, ackChan chan<- string) error {
	for r := range in {
		ackChan <- r.ID
	}
	return nil
}

func (w *closingWriter) Close() error {
	w.closed = true
	return w.err
}

func TestExportCloseError(t *testing.T) {
	tests := []struct {
		name       string
		closeErr   error
		wantStatus subcommands.ExitStatus
		wantErr    string
	}{
		{"close fails", errors.New("disk full"), subcommands.ExitFailure, "Error: closing closing sink: disk full"},
		{"close succeeds", nil, subcommands.ExitSuccess, ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tokenFile(t)
			fakeAPI(t, map[string]route{
				"GET /public/fund":   {http.StatusOK, demoFunds},
				"GET /public/record": {http.StatusOK, demoRecords},
			})
			orig := sinkRegistry
			t.Cleanup(func() { sinkRegistry = orig })
			sinkRegistry = func() *exporter.Registry {
				r := exporter.NewRegistry()
				if err := r.Register(closingSink{closeErr: tc.closeErr}); err != nil {
					t.Fatalf("register: %v", err)
				}
				return r
			}

			status, out, errOut := run(t, "-demo", "export", "-to", "closing")
			if status != tc.wantStatus {
				t.Fatalf("status: got %v, want %v (stderr %q)", status, tc.wantStatus, errOut)
			}
			if tc.wantErr != "" {
				if !strings.Contains(errOut, tc.wantErr) {
					t.Errorf("stderr: got %q, want %q", errOut, tc.wantErr)
				}
				if strings.Contains(out, "Exported") {
					t.Errorf("success reported despite close error: %q", out)
				}
			} else if !strings.Contains(out, "Exported 2 of 2 records to closing") {
				t.Errorf("output: got %q", out)
			}
		})
	}
}

func TestCloseWriter(t *testing.T) {
	w := &closingWriter{err: errors.New("flush failed")}
	if err := closeWriter(w); err == nil || err.Error() != "flush failed" {
		t.Errorf("error: got %v, want flush failed", err)
	}
	if !w.closed {
		t.Error("writer was not closed")
	}
	if err := closeWriter(plainWriter{}); err != nil {
		t.Errorf("writer without Close: got %v, want nil", err)
	}
}

type plainWriter struct{}

func (plainWriter) Write(context.Context, <-chan *api.Record, chan<- string) error { return nil }

func TestStatusDemo(t *testing.T) {
	tokenFile(t)
	fakeAPI(t, map[string]route{
		"GET /public/fund": {http.StatusOK, demoFunds},
	})

	status, out, _ := run(t, "-demo", "status")
	if status != subcommands.ExitSuccess {
		t.Fatalf("status: got %v\n%s", status, out)
	}
	for _, want := range []string{"Session: demo", "✓ 2 funds (main: Cash)", "Requests: 1 (200=1)", "Status: ✓ Ready"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestStatusWithoutToken(t *testing.T) {
	tokenFile(t)
	fakeAPI(t, nil)

	status, out, _ := run(t, "status")
	if status != subcommands.ExitFailure {
		t.Errorf("status: got %v, want failure", status)
	}
	if !strings.Contains(out, "✗ Not found") {
		t.Errorf("output:\n%s", out)
	}
}

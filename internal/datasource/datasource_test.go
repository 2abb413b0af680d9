package datasource

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestErrorMessage(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{"missing fields", missingFields("S&P 500 symbol list", "Symbol"), "S&P 500 symbol list: missing Symbol"},
		{"wrapped", newError(KindParse, "price history for AAPL", errors.New("bad json")), "price history for AAPL: parse: bad json"},
		{"bare", &Error{Kind: KindUpstream, Op: "company info"}, "company info: upstream"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestKindOf(t *testing.T) {
	wrapped := fmt.Errorf("outer: %w", newError(KindNetwork, "x", errors.New("dial")))
	if got := KindOf(wrapped); got != KindNetwork {
		t.Errorf("KindOf(wrapped) = %q, want %q", got, KindNetwork)
	}
	if got := KindOf(errors.New("plain")); got != "" {
		t.Errorf("KindOf(plain) = %q, want empty", got)
	}
	if got := KindOf(nil); got != "" {
		t.Errorf("KindOf(nil) = %q, want empty", got)
	}
}

func TestDescribe(t *testing.T) {
	if got := Describe(nil); got != nil {
		t.Fatalf("Describe(nil) = %v, want nil", got)
	}

	err := errors.Join(
		newError(KindNetwork, "company info for AAPL", errors.New("timeout")),
		missingFields("Cash flow for AAPL", "FreeCashFlow"),
		errors.New("something else"),
	)
	got := Describe(err)
	want := []string{
		"Could not load company info for AAPL: timeout",
		"Cash flow for AAPL is missing: FreeCashFlow",
		"something else",
	}
	if len(got) != len(want) {
		t.Fatalf("Describe returned %d lines, want %d: %v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestErrHTTPError(t *testing.T) {
	e := &ErrHTTP{StatusCode: 404, Status: "Not Found", Body: "page not found"}
	msg := e.Error()
	if !strings.Contains(msg, "404") || !strings.Contains(msg, "page not found") {
		t.Errorf("ErrHTTP.Error() = %q", msg)
	}
}

func TestHTTPClientGet(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		if r.URL.Path == "/missing" {
			http.Error(w, "nope", http.StatusNotFound)
			return
		}
		fmt.Fprint(w, "hello")
	}))
	defer srv.Close()

	c := NewHTTPClient(5*time.Second, "")
	data, err := c.getBytes(context.Background(), srv.URL+"/ok", nil)
	if err != nil {
		t.Fatalf("getBytes: %v", err)
	}
	if string(data) != "hello" {
		t.Errorf("body = %q, want hello", data)
	}
	if gotUA != DefaultUserAgent {
		t.Errorf("User-Agent = %q, want default", gotUA)
	}

	_, err = c.getBytes(context.Background(), srv.URL+"/missing", nil)
	var he *ErrHTTP
	if !errors.As(err, &he) {
		t.Fatalf("expected *ErrHTTP, got %v", err)
	}
	if he.StatusCode != http.StatusNotFound {
		t.Errorf("StatusCode = %d, want 404", he.StatusCode)
	}
}

func TestHTTPClientCustomUserAgent(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
	}))
	defer srv.Close()

	c := NewHTTPClient(time.Second, "indexdash-test")
	if _, err := c.getBytes(context.Background(), srv.URL, nil); err != nil {
		t.Fatalf("getBytes: %v", err)
	}
	if gotUA != "indexdash-test" {
		t.Errorf("User-Agent = %q, want indexdash-test", gotUA)
	}
}

func TestHTTPClientRateLimited(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	c := NewHTTPClient(time.Second, "")
	c.SetRateLimiter(NewRateLimiter(0.01, 1))

	if _, err := c.getBytes(context.Background(), srv.URL, nil); err != nil {
		t.Fatalf("first getBytes: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := c.getBytes(ctx, srv.URL, nil); err == nil {
		t.Fatal("second getBytes should fail while the limiter has no token")
	}
	if n := hits.Load(); n != 1 {
		t.Errorf("server hits = %d, want 1", n)
	}
}

func TestNewRateLimiter(t *testing.T) {
	if rl := NewRateLimiter(0, 4); rl != nil {
		t.Errorf("NewRateLimiter(0) = %v, want nil", rl)
	}
	rl := NewRateLimiter(2, 0)
	if rl == nil {
		t.Fatal("NewRateLimiter(2, 0) = nil")
	}
	if rl.Limit() != 2 || rl.Burst() != 1 {
		t.Errorf("limit/burst = %v/%d, want 2/1", rl.Limit(), rl.Burst())
	}

	// nil limiter never blocks
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()
	c := NewHTTPClient(time.Second, "")
	c.SetRateLimiter(nil)
	for i := 0; i < 5; i++ {
		if _, err := c.getBytes(context.Background(), srv.URL, nil); err != nil {
			t.Fatalf("getBytes %d: %v", i, err)
		}
	}
}

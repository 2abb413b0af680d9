package datasource

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/seenimoa/indexdash/pkg/models"
)

const headlinesRSS = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel>
<title>Yahoo! Finance: AAPL News</title>
<item>
 <title>Older story</title>
 <link>https://example.com/older</link>
 <description>&lt;p&gt;Apple &lt;b&gt;ships&lt;/b&gt;   things&lt;/p&gt;</description>
 <pubDate>Mon, 01 Jan 2024 10:00:00 +0000</pubDate>
</item>
<item>
 <title> Newest story </title>
 <link>https://example.com/newest</link>
 <pubDate>Wed, 03 Jan 2024 10:00:00 +0000</pubDate>
</item>
<item>
 <title>Middle story</title>
 <link>https://example.com/middle</link>
 <pubDate>Tue, 02 Jan 2024 10:00:00 +0000</pubDate>
</item>
</channel></rss>`

func TestGetHeadlines(t *testing.T) {
	var gotSymbol string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSymbol = r.URL.Query().Get("s")
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(headlinesRSS))
	}))
	defer srv.Close()

	n := NewNews(NewHTTPClient(5*time.Second, ""), srv.URL+"/rss?s=%s&region=US")
	hs, err := n.GetHeadlines(context.Background(), "BRK-B", 2)
	if err != nil {
		t.Fatalf("GetHeadlines: %v", err)
	}
	if gotSymbol != "BRK-B" {
		t.Errorf("symbol = %q", gotSymbol)
	}
	if len(hs) != 2 {
		t.Fatalf("got %d headlines, want 2", len(hs))
	}
	if hs[0].Title != "Newest story" || hs[1].Title != "Middle story" {
		t.Errorf("order = %q, %q", hs[0].Title, hs[1].Title)
	}
	if hs[0].Source != "Yahoo! Finance: AAPL News" {
		t.Errorf("source = %q", hs[0].Source)
	}

	all, err := n.GetHeadlines(context.Background(), "AAPL", 0)
	if err != nil {
		t.Fatalf("GetHeadlines: %v", err)
	}
	if len(all) != 3 || all[2].Summary != "Apple ships things" {
		t.Errorf("headlines = %+v", all)
	}
}

func TestGetHeadlinesErrors(t *testing.T) {
	tests := []struct {
		name string
		h    http.HandlerFunc
		want ErrorKind
	}{
		{"http error", func(w http.ResponseWriter, r *http.Request) { http.Error(w, "gone", http.StatusGone) }, KindNetwork},
		{"not a feed", func(w http.ResponseWriter, r *http.Request) { w.Write([]byte("plain text, no feed")) }, KindParse},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.h)
			defer srv.Close()

			n := NewNews(NewHTTPClient(5*time.Second, ""), srv.URL+"/rss?s=%s")
			if _, err := n.GetHeadlines(context.Background(), "AAPL", 5); KindOf(err) != tt.want {
				t.Errorf("kind = %q (%v), want %q", KindOf(err), err, tt.want)
			}
		})
	}
}

func TestCleanHTML(t *testing.T) {
	tests := []struct{ in, want string }{
		{"", ""},
		{"plain", "plain"},
		{"<p>Hello <a href='#'>world</a></p>", "Hello world"},
		{"a\n\n  b", "a b"},
	}
	for _, tt := range tests {
		if got := cleanHTML(tt.in); got != tt.want {
			t.Errorf("cleanHTML(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSortHeadlinesByDate(t *testing.T) {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	hs := []models.Headline{
		{Title: "a", Published: t0},
		{Title: "b", Published: t0.Add(2 * time.Hour)},
		{Title: "c", Published: t0.Add(time.Hour)},
	}
	sortHeadlinesByDate(hs)
	var titles []string
	for _, h := range hs {
		titles = append(titles, h.Title)
	}
	if strings.Join(titles, "") != "bca" {
		t.Errorf("order = %v", titles)
	}
}

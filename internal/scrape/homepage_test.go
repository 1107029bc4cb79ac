package scrape

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHomepageScraper_CleanHTML(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(200)
		_, _ = w.Write([]byte(`<html><head><title>Acme Corp</title><style>body{color:red}</style></head>
<body><header>Top banner</header><nav>Menu</nav>
<h1>Welcome</h1>
<p>We build great products.</p>
<script>alert('hi')</script>
<footer>Copyright 2024</footer></body></html>`))
	}))
	defer srv.Close()

	s := NewHomepageScraper(Options{UserAgent: "test-agent/1.0"})
	result, err := s.Scrape(context.Background(), srv.URL)
	require.NoError(t, err)

	assert.Equal(t, "test-agent/1.0", gotUA)
	assert.Equal(t, 200, result.StatusCode)
	assert.Equal(t, srv.URL, result.URL)
	assert.False(t, result.Truncated)
	assert.Equal(t, "Acme Corp\nWelcome\nWe build great products.", result.Text)
}

func TestHomepageScraper_FollowsRedirects(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/home", http.StatusMovedPermanently)
	})
	mux.HandleFunc("/home", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><body><p>Landed</p></body></html>`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	result, err := NewHomepageScraper(Options{}).Scrape(context.Background(), srv.URL+"/")
	require.NoError(t, err)
	assert.Equal(t, "Landed", result.Text)
}

func TestHomepageScraper_HTTP404(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(404)
		_, _ = w.Write([]byte(`<html><body>Not found</body></html>`))
	}))
	defer srv.Close()

	_, err := NewHomepageScraper(Options{}).Scrape(context.Background(), srv.URL)
	require.Error(t, err)

	var fe *FetchError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, 404, fe.StatusCode)
	assert.Equal(t, srv.URL, fe.URL)
	assert.Contains(t, err.Error(), "status 404")
}

func TestHomepageScraper_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(503)
	}))
	defer srv.Close()

	_, err := NewHomepageScraper(Options{}).Scrape(context.Background(), srv.URL)
	var fe *FetchError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, 503, fe.StatusCode)
}

func TestHomepageScraper_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	addr := srv.URL
	srv.Close()

	_, err := NewHomepageScraper(Options{}).Scrape(context.Background(), addr)
	var fe *FetchError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, 0, fe.StatusCode)
	assert.Contains(t, err.Error(), addr)
}

func TestHomepageScraper_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	_, err := NewHomepageScraper(Options{Timeout: 50 * time.Millisecond}).Scrape(context.Background(), srv.URL)
	var fe *FetchError
	require.ErrorAs(t, err, &fe)
}

func TestHomepageScraper_InvalidURL(t *testing.T) {
	_, err := NewHomepageScraper(Options{}).Scrape(context.Background(), "://nope")
	var fe *FetchError
	require.ErrorAs(t, err, &fe)
}

func TestHomepageScraper_EmptyPageIsNotAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><head><script>var x = 1;</script></head><body><nav>Home</nav></body></html>`))
	}))
	defer srv.Close()

	result, err := NewHomepageScraper(Options{}).Scrape(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "", result.Text)
}

func TestHomepageScraper_Truncates(t *testing.T) {
	body := "<html><body><p>" + strings.Repeat("x", 500) + "</p></body></html>"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(body))
	}))
	defer srv.Close()

	result, err := NewHomepageScraper(Options{MaxChars: 100}).Scrape(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.True(t, result.Truncated)
	assert.Equal(t, strings.Repeat("x", 100), result.Text)
}

func TestHomepageScraper_DecodesLatin1(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=iso-8859-1")
		// "Café" with é as a single Latin-1 byte.
		_, _ = w.Write([]byte("<html><body><p>Caf\xe9 Acme</p></body></html>"))
	}))
	defer srv.Close()

	result, err := NewHomepageScraper(Options{}).Scrape(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "Café Acme", result.Text)
}

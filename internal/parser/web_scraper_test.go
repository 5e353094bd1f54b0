package parser

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

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const profilePageHTML = `<html><head><title>Jane Doe</title><style>.x{color:red}</style></head>
<body>
<nav>Home Jobs Messaging</nav>
<header>Sign in</header>
<main>
  <section class="top-card"><h1>Jane Doe</h1><div>Senior Engineer at <b>Acme</b></div></section>
  <section id="experience"><h2>Experience</h2><ul><li>Engineer at Acme</li></ul></section>
  <div style="display: none">secret tracking text</div>
  <script>var x = 1;</script>
</main>
<footer>© 2024</footer>
</body></html>`

func TestExtractVisibleText_ProfileRegions(t *testing.T) {
	text, err := ExtractVisibleText(strings.NewReader(profilePageHTML))
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe\nSenior Engineer at Acme\nExperience\nEngineer at Acme", text)
}

func TestExtractVisibleText_FallbackToBody(t *testing.T) {
	page := `<html><body><div>Jane Doe</div><p>Hello <i>world</i></p><script>x()</script><div hidden>gone</div></body></html>`

	text, err := ExtractVisibleText(strings.NewReader(page))
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe\nHello world", text, "没有档案区域时应退回到整个body")
}

func TestWebScraper_ValidateURL(t *testing.T) {
	s := NewWebScraper(WithAllowedHosts("linkedin.com"), WithScraperLogger(zerolog.Nop()))

	_, err := s.ValidateURL("https://www.linkedin.com/in/jane")
	assert.NoError(t, err)
	_, err = s.ValidateURL("https://linkedin.com/in/jane")
	assert.NoError(t, err)

	for _, bad := range []string{"", "not a url", "ftp://linkedin.com/in/jane", "https://evil.com/in/jane", "https://notlinkedin.com/in/jane"} {
		_, err := s.ValidateURL(bad)
		assert.True(t, errors.Is(err, ErrInvalidURL), "URL %q 应被拒绝", bad)
	}
}

func TestWebScraper_ScrapeRetriesTransientErrors(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, profilePageHTML)
	}))
	defer server.Close()

	s := NewWebScraper(WithRetry(3, time.Millisecond), WithScraperLogger(zerolog.Nop()))
	text, err := s.Scrape(context.Background(), server.URL+"/in/jane")

	require.NoError(t, err)
	assert.Contains(t, text, "Senior Engineer at Acme")
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls), "503之后应重试一次")
}

func TestWebScraper_ScrapeDoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	s := NewWebScraper(WithRetry(3, time.Millisecond), WithScraperLogger(zerolog.Nop()))
	_, err := s.Scrape(context.Background(), server.URL)

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrFetchFailed))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "404不应重试")
}

func TestWebScraper_ScrapeEmptyPage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html><body><script>only()</script></body></html>")
	}))
	defer server.Close()

	s := NewWebScraper(WithScraperLogger(zerolog.Nop()))
	_, err := s.Scrape(context.Background(), server.URL)
	assert.True(t, errors.Is(err, ErrNoTextExtracted))
}

func TestWebScraper_PublicHostsOnly(t *testing.T) {
	s := NewWebScraper(WithPublicHostsOnly(true), WithScraperLogger(zerolog.Nop()))

	_, err := s.ValidateURL("https://www.linkedin.com/in/jane")
	assert.NoError(t, err)

	for _, bad := range []string{"http://127.0.0.1/in/jane", "http://localhost:8080/", "http://profiles.internal/jane", "http://[::1]/"} {
		_, err := s.ValidateURL(bad)
		assert.True(t, errors.Is(err, ErrInvalidURL), "URL %q 应被拒绝", bad)
	}
}

func TestWebScraper_AllowedHostsByRegistrableDomain(t *testing.T) {
	s := NewWebScraper(WithAllowedHosts("linkedin.com"), WithScraperLogger(zerolog.Nop()))

	_, err := s.ValidateURL("https://de.linkedin.com/in/jane")
	assert.NoError(t, err)
	_, err = s.ValidateURL("https://linkedin.com.evil.io/in/jane")
	assert.True(t, errors.Is(err, ErrInvalidURL))
}

type fakeRenderer struct {
	calls int32
	page  string
	err   error
}

func (f *fakeRenderer) Render(ctx context.Context, pageURL string) ([]byte, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.err != nil {
		return nil, f.err
	}
	return []byte(f.page), nil
}

func TestWebScraper_UsesRenderer(t *testing.T) {
	r := &fakeRenderer{page: profilePageHTML}
	s := NewWebScraper(WithRenderer(r), WithScraperLogger(zerolog.Nop()))

	text, err := s.Scrape(context.Background(), "https://www.linkedin.com/in/jane")
	require.NoError(t, err)
	assert.Contains(t, text, "Senior Engineer at Acme")
	assert.Equal(t, int32(1), atomic.LoadInt32(&r.calls))

	r.err = errors.New("navigation failed")
	_, err = s.Scrape(context.Background(), "https://www.linkedin.com/in/john")
	assert.True(t, errors.Is(err, ErrFetchFailed))
}

func TestWebScraper_PageCacheAvoidsRefetch(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		fmt.Fprint(w, profilePageHTML)
	}))
	defer server.Close()

	cache, err := NewPageCache(time.Minute)
	require.NoError(t, err)
	s := NewWebScraper(WithPageCache(cache), WithScraperLogger(zerolog.Nop()))

	first, err := s.Scrape(context.Background(), server.URL+"/in/jane")
	require.NoError(t, err)
	second, err := s.Scrape(context.Background(), server.URL+"/in/jane")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "第二次应命中缓存")
}

func TestPageCacheKey_Stable(t *testing.T) {
	a := PageCacheKey("https://www.linkedin.com/in/jane")
	assert.Len(t, a, 64)
	assert.Equal(t, a, PageCacheKey("https://www.linkedin.com/in/jane"))
	assert.NotEqual(t, a, PageCacheKey("https://www.linkedin.com/in/john"))
}

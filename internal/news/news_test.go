package news

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBaseAsset(t *testing.T) {
	assert.Equal(t, "BTC", baseAsset("BTCUSDT"))
	assert.Equal(t, "ETH", baseAsset("ETHBTC"))
	assert.Equal(t, "SOL", baseAsset("SOLUSDC"))
	assert.Equal(t, "DOGE", baseAsset("DOGE"))
	// A symbol that is only a quote asset must not be stripped to nothing.
	assert.Equal(t, "USDT", baseAsset("USDT"))
}

func TestHeadingLinkTitles(t *testing.T) {
	html := `<html><body>
		<h2><a href="/a">Bitcoin surges past resistance level</a></h2>
		<h3><a href="/b">Short</a></h3>
		<h4><a href="/c">Ethereum staking withdrawals accelerate</a></h4>
		<p><a href="/d">Not a heading link so it is ignored here</a></p>
	</body></html>`
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)

	titles := headingLinkTitles(doc)
	require.Len(t, titles, 2, "short titles and non-heading links are dropped")
	assert.Equal(t, "Bitcoin surges past resistance level", titles[0])
	assert.Equal(t, "Ethereum staking withdrawals accelerate", titles[1])
}

func TestScraperGenericSourceAndCache(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		assert.Contains(t, r.URL.Path, "btc")
		w.Write([]byte(`<html><body>
			<h2><a href="/1">Bitcoin ETF inflows hit a monthly record</a></h2>
			<h2><a href="/2">Miners sell down reserves ahead of halving</a></h2>
			<h2><a href="/2b">Miners sell down reserves ahead of halving</a></h2>
			<h3><a href="/3">Derivatives funding rates flip negative</a></h3>
		</body></html>`))
	}))
	defer srv.Close()

	s := NewScraper([]string{srv.URL + "/tags/{asset}"}, 2, 5*time.Second)
	got, err := s.Headlines(context.Background(), "BTCUSDT")
	require.NoError(t, err)
	require.Len(t, got, 2, "maxHeadlines caps and duplicates are dropped")
	assert.Equal(t, "Bitcoin ETF inflows hit a monthly record", got[0])

	// Second call within the TTL hits the cache, not the source.
	_, err = s.Headlines(context.Background(), "BTCUSDT")
	require.NoError(t, err)
	assert.Equal(t, 1, hits)
}

func TestScraperSourceFailureIsNotAnError(t *testing.T) {
	s := NewScraper([]string{"http://127.0.0.1:1/{asset}"}, 5, time.Second)
	got, err := s.Headlines(context.Background(), "ETHUSDT")
	require.NoError(t, err, "dead sources degrade to no headlines")
	assert.Empty(t, got)
}

func TestDisabledSource(t *testing.T) {
	got, err := Disabled{}.Headlines(context.Background(), "BTCUSDT")
	require.NoError(t, err)
	assert.Nil(t, got)
}

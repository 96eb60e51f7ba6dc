// Package news scrapes recent crypto headlines that get injected into
// the decision prompt. Scraping is strictly best effort: a dead source
// never blocks a trading pass.
package news

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"

	"ai-crypto-trader/internal/interfaces"
	"ai-crypto-trader/internal/logger"
)

// Source is one headline source. A non-empty Container selects the
// colly path with per-article selectors; an empty Container falls back
// to a generic goquery scan of heading links.
type Source struct {
	Name      string
	URL       string // {asset} is replaced with the lowercased base asset
	Container string
	Title     string
}

func defaultSources() []Source {
	return []Source{
		{
			Name:      "CoinDesk",
			URL:       "https://www.coindesk.com/tag/{asset}/",
			Container: "div.articleTextSection, article",
			Title:     "h2, h3, h4",
		},
		{
			Name: "Cointelegraph",
			URL:  "https://cointelegraph.com/tags/{asset}",
		},
	}
}

// quoteAssets are stripped from the tail of a symbol to get the base
// asset used in source URLs.
var quoteAssets = []string{"USDT", "BUSD", "USDC", "TUSD", "USD", "EUR", "BTC", "ETH", "BNB"}

func baseAsset(symbol string) string {
	for _, q := range quoteAssets {
		if strings.HasSuffix(symbol, q) && len(symbol) > len(q) {
			return symbol[:len(symbol)-len(q)]
		}
	}
	return symbol
}

type cacheEntry struct {
	headlines []string
	fetchedAt time.Time
}

// Scraper implements interfaces.HeadlineSource with a per-symbol TTL
// cache so successive ticks do not hammer the sources.
type Scraper struct {
	sources      []Source
	timeout      time.Duration
	maxHeadlines int
	ttl          time.Duration

	mu    sync.Mutex
	cache map[string]cacheEntry
}

var _ interfaces.HeadlineSource = (*Scraper)(nil)

// NewScraper builds the scraper. urls, when non-empty, replace the
// default source list as generic sources.
func NewScraper(urls []string, maxHeadlines int, timeout time.Duration) *Scraper {
	sources := defaultSources()
	if len(urls) > 0 {
		sources = make([]Source, 0, len(urls))
		for _, u := range urls {
			sources = append(sources, Source{Name: u, URL: u})
		}
	}
	if maxHeadlines <= 0 {
		maxHeadlines = 5
	}
	return &Scraper{
		sources:      sources,
		timeout:      timeout,
		maxHeadlines: maxHeadlines,
		ttl:          15 * time.Minute,
		cache:        make(map[string]cacheEntry),
	}
}

func (s *Scraper) Headlines(ctx context.Context, symbol string) ([]string, error) {
	s.mu.Lock()
	if e, ok := s.cache[symbol]; ok && time.Since(e.fetchedAt) < s.ttl {
		s.mu.Unlock()
		return e.headlines, nil
	}
	s.mu.Unlock()

	asset := strings.ToLower(baseAsset(symbol))
	seen := make(map[string]bool)
	headlines := []string{}

	for _, source := range s.sources {
		if len(headlines) >= s.maxHeadlines {
			break
		}
		titles, err := s.scrapeSource(ctx, source, asset)
		if err != nil {
			logger.Debug(ctx, "Headline source failed", "source", source.Name, "symbol", symbol, "error", err.Error())
			continue
		}
		for _, t := range titles {
			if len(headlines) >= s.maxHeadlines {
				break
			}
			if !seen[t] {
				seen[t] = true
				headlines = append(headlines, t)
			}
		}
	}

	s.mu.Lock()
	s.cache[symbol] = cacheEntry{headlines: headlines, fetchedAt: time.Now()}
	s.mu.Unlock()

	logger.Debug(ctx, "Headlines fetched", "symbol", symbol, "count", len(headlines))
	return headlines, nil
}

func (s *Scraper) scrapeSource(ctx context.Context, source Source, asset string) ([]string, error) {
	target := strings.ReplaceAll(source.URL, "{asset}", asset)
	if source.Container != "" {
		return s.scrapeWithSelectors(source, target)
	}
	return s.scrapeGeneric(target)
}

// scrapeWithSelectors walks article containers with the source's own
// selectors.
func (s *Scraper) scrapeWithSelectors(source Source, target string) ([]string, error) {
	c := colly.NewCollector(colly.MaxDepth(1))
	c.SetRequestTimeout(s.timeout)
	c.OnRequest(func(r *colly.Request) {
		r.Headers.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	})

	titles := []string{}
	c.OnHTML(source.Container, func(e *colly.HTMLElement) {
		t := strings.TrimSpace(e.ChildText(source.Title))
		if t != "" {
			titles = append(titles, t)
		}
	})

	if err := c.Visit(target); err != nil {
		return nil, err
	}
	c.Wait()
	return titles, nil
}

// scrapeGeneric fetches the page once and takes the text of every
// heading-wrapped link, which covers most news listing layouts.
func (s *Scraper) scrapeGeneric(target string) ([]string, error) {
	c := colly.NewCollector(colly.MaxDepth(1))
	c.SetRequestTimeout(s.timeout)
	c.OnRequest(func(r *colly.Request) {
		r.Headers.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	})

	var body []byte
	c.OnResponse(func(r *colly.Response) {
		body = r.Body
	})
	if err := c.Visit(target); err != nil {
		return nil, err
	}
	c.Wait()

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	return headingLinkTitles(doc), nil
}

// headingLinkTitles extracts the text of links nested in h1..h4.
func headingLinkTitles(doc *goquery.Document) []string {
	titles := []string{}
	doc.Find("h1 a, h2 a, h3 a, h4 a").Each(func(_ int, sel *goquery.Selection) {
		t := strings.TrimSpace(sel.Text())
		if len(t) > 15 {
			titles = append(titles, t)
		}
	})
	return titles
}

// Disabled is the no-op headline source used when news is turned off.
type Disabled struct{}

var _ interfaces.HeadlineSource = Disabled{}

func (Disabled) Headlines(ctx context.Context, symbol string) ([]string, error) {
	return nil, nil
}

package dictionary

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/satriahrh/learnvoice/domain/entities"
	"github.com/satriahrh/learnvoice/domain/repositories"
)

const (
	defaultBaseURL      = "https://dictionary.cambridge.org"
	defaultRegion       = "us"
	defaultUserAgent    = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"
	defaultPageTimeout  = 5 * time.Second
	defaultAudioTimeout = 10 * time.Second
	defaultRateLimit    = 2 // pages per second
	maxAudioBytes       = 10 << 20
)

// CambridgeConfig holds configuration for the Cambridge dictionary adapter
// Optional fields with defaults:
// - BaseURL: site origin, also used to absolutize relative links (default: "https://dictionary.cambridge.org")
// - Region: preferred accent tag, "us" matches links containing "us_" (default: "us")
// - UserAgent: header sent with every request (default: a desktop Chrome agent)
// - PageTimeout / AudioTimeout: per request timeouts (default: 5s / 10s)
// - RateLimit: dictionary pages per second (default: 2)
// - Strategies: ranked extraction strategies (default: DefaultStrategies())
type CambridgeConfig struct {
	BaseURL      string
	Region       string
	UserAgent    string
	PageTimeout  time.Duration
	AudioTimeout time.Duration
	RateLimit    float64
	Strategies   []ExtractionStrategy
	HTTPClient   *http.Client
}

// Cambridge implements DictionaryAudio by scraping dictionary.cambridge.org
type Cambridge struct {
	baseURL      string
	region       string
	userAgent    string
	pageTimeout  time.Duration
	audioTimeout time.Duration
	strategies   []ExtractionStrategy
	limiter      *rate.Limiter
	client       *http.Client
	logger       *zap.Logger
}

var _ repositories.DictionaryAudio = (*Cambridge)(nil)

// NewCambridge creates a Cambridge dictionary adapter
func NewCambridge(config CambridgeConfig, logger *zap.Logger) (*Cambridge, error) {
	if logger == nil {
		return nil, errors.New("logger is required")
	}
	if config.BaseURL == "" {
		config.BaseURL = defaultBaseURL
	}
	if _, err := url.Parse(config.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	if config.Region == "" {
		config.Region = defaultRegion
	}
	if config.UserAgent == "" {
		config.UserAgent = defaultUserAgent
	}
	if config.PageTimeout <= 0 {
		config.PageTimeout = defaultPageTimeout
	}
	if config.AudioTimeout <= 0 {
		config.AudioTimeout = defaultAudioTimeout
	}
	if config.RateLimit <= 0 {
		config.RateLimit = defaultRateLimit
	}
	if len(config.Strategies) == 0 {
		config.Strategies = DefaultStrategies()
	}
	if config.HTTPClient == nil {
		config.HTTPClient = &http.Client{}
	}

	return &Cambridge{
		baseURL:      strings.TrimRight(config.BaseURL, "/"),
		region:       strings.ToLower(config.Region),
		userAgent:    config.UserAgent,
		pageTimeout:  config.PageTimeout,
		audioTimeout: config.AudioTimeout,
		strategies:   config.Strategies,
		limiter:      rate.NewLimiter(rate.Limit(config.RateLimit), 1),
		client:       config.HTTPClient,
		logger:       logger,
	}, nil
}

// Lookup implements repositories.DictionaryAudio. A page without audio is a miss, not an error.
func (c *Cambridge) Lookup(ctx context.Context, word string) (*entities.AudioReference, error) {
	word = strings.ToLower(strings.TrimSpace(word))
	if word == "" {
		return nil, nil
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("failed to wait for rate limiter: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.pageTimeout)
	defer cancel()

	pageURL := c.baseURL + "/dictionary/english/" + url.PathEscape(word)
	resp, err := c.get(ctx, pageURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch dictionary page: %w: %w", entities.ErrSourceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Debug("Dictionary page unavailable",
			zap.String("word", word),
			zap.Int("status", resp.StatusCode))
		return nil, nil
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse dictionary page: %w: %w", entities.ErrSourceUnavailable, err)
	}

	candidates := c.collect(doc)
	if len(candidates) == 0 {
		return nil, nil
	}

	ref := c.selectCandidate(candidates)
	c.logger.Debug("Found dictionary audio",
		zap.String("word", word),
		zap.String("url", ref.URL),
		zap.String("strategy", ref.Strategy))
	return ref, nil
}

// Fetch implements repositories.DictionaryAudio
func (c *Cambridge) Fetch(ctx context.Context, ref entities.AudioReference) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.audioTimeout)
	defer cancel()

	resp, err := c.get(ctx, ref.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch dictionary audio: %w: %w", entities.ErrSourceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("dictionary audio returned status %d: %w", resp.StatusCode, entities.ErrSourceUnavailable)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxAudioBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read dictionary audio: %w: %w", entities.ErrSourceUnavailable, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("dictionary audio is empty: %w", entities.ErrSourceUnavailable)
	}
	return data, nil
}

type candidate struct {
	url      string
	strategy string
}

// collect runs the strategies in rank order, absolutizing and deduplicating links
func (c *Cambridge) collect(doc *goquery.Document) []candidate {
	seen := make(map[string]bool)
	var out []candidate
	for _, strategy := range c.strategies {
		for _, raw := range strategy.Extract(doc) {
			u := c.absolute(strings.TrimSpace(raw))
			if u == "" || seen[u] {
				continue
			}
			seen[u] = true
			out = append(out, candidate{url: u, strategy: strategy.Name()})
		}
	}
	return out
}

func (c *Cambridge) absolute(u string) string {
	if strings.HasPrefix(u, "/") && !strings.HasPrefix(u, "//") {
		return c.baseURL + u
	}
	return u
}

// selectCandidate prefers the configured region's mp3, then any mp3, then whatever came first
func (c *Cambridge) selectCandidate(candidates []candidate) *entities.AudioReference {
	tag := c.region + "_"
	for _, cand := range candidates {
		if strings.Contains(cand.url, tag) && strings.HasSuffix(cand.url, ".mp3") {
			return &entities.AudioReference{URL: cand.url, Region: c.region, Strategy: cand.strategy}
		}
	}
	for _, cand := range candidates {
		if strings.HasSuffix(cand.url, ".mp3") {
			return &entities.AudioReference{URL: cand.url, Strategy: cand.strategy}
		}
	}
	return &entities.AudioReference{URL: candidates[0].url, Strategy: candidates[0].strategy}
}

func (c *Cambridge) get(ctx context.Context, target string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	return c.client.Do(req)
}

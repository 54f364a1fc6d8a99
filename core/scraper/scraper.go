package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/siherrmann/dealgraph/helper"
	"github.com/siherrmann/dealgraph/model"
	"golang.org/x/net/html"
)

// Config describes the publications site and how politely to crawl it.
type Config struct {
	BaseURL   string `mapstructure:"base_url" yaml:"base_url"`
	PageParam string `mapstructure:"page_param" yaml:"page_param"`
	Pages     int    `mapstructure:"pages" yaml:"pages"`
	LinkClass string `mapstructure:"link_class" yaml:"link_class"`
	// ContentClasses are tried in order. An entry with several class names
	// requires all of them on the same element.
	ContentClasses    []string `mapstructure:"content_classes" yaml:"content_classes"`
	UserAgent         string   `mapstructure:"user_agent" yaml:"user_agent"`
	Timeout           int      `mapstructure:"timeout" yaml:"timeout"` // seconds
	MaxBytes          int64    `mapstructure:"max_bytes" yaml:"max_bytes"`
	RequestsPerSecond float64  `mapstructure:"requests_per_second" yaml:"requests_per_second"`
	RespectRobots     bool     `mapstructure:"respect_robots" yaml:"respect_robots"`
}

// DefaultConfig crawls the first three listing pages of the IMAA
// publications archive at one request per second.
func DefaultConfig() Config {
	return Config{
		BaseURL:   "https://imaa-institute.org/publications/",
		PageParam: "e-page-8fbddee",
		Pages:     3,
		LinkClass: "elementor-post__read-more",
		ContentClasses: []string{
			"elementor-widget-theme-post-content",
			"elementor-element-47b8612",
			"elementor-element-45386381",
		},
		UserAgent:         "dealgraph/1.0 (+https://github.com/siherrmann/dealgraph)",
		Timeout:           30,
		MaxBytes:          5 << 20,
		RequestsPerSecond: 1,
		RespectRobots:     true,
	}
}

// ErrNoContent is returned when none of the content classes match.
var ErrNoContent = errors.New("no article content found")

// ErrDisallowed is returned for URLs excluded by robots.txt.
var ErrDisallowed = errors.New("disallowed by robots.txt")

// Scraper crawls listing pages and scrapes the linked articles.
type Scraper struct {
	config  Config
	fetcher *Fetcher
	limiter *Limiter
	robots  *RobotsChecker
	log     *slog.Logger
}

// NewScraper creates a scraper. Zero config fields take their defaults; a
// negative RequestsPerSecond disables rate limiting.
func NewScraper(config Config, logger *slog.Logger) (*Scraper, error) {
	d := DefaultConfig()
	if config.BaseURL == "" {
		config.BaseURL = d.BaseURL
	}
	if config.PageParam == "" {
		config.PageParam = d.PageParam
	}
	if config.Pages <= 0 {
		config.Pages = d.Pages
	}
	if config.LinkClass == "" {
		config.LinkClass = d.LinkClass
	}
	if len(config.ContentClasses) == 0 {
		config.ContentClasses = d.ContentClasses
	}
	if config.UserAgent == "" {
		config.UserAgent = d.UserAgent
	}
	if config.Timeout <= 0 {
		config.Timeout = d.Timeout
	}
	if config.MaxBytes <= 0 {
		config.MaxBytes = d.MaxBytes
	}
	if config.RequestsPerSecond == 0 {
		config.RequestsPerSecond = d.RequestsPerSecond
	}

	if _, err := url.ParseRequestURI(config.BaseURL); err != nil {
		return nil, helper.NewError("parse base url", err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	timeout := time.Duration(config.Timeout) * time.Second
	s := &Scraper{
		config:  config,
		fetcher: NewFetcher(timeout, config.UserAgent, config.MaxBytes),
		limiter: NewLimiter(config.RequestsPerSecond, 1),
		log:     logger,
	}
	if config.RespectRobots {
		s.robots = NewRobotsChecker(config.UserAgent, timeout)
	}
	return s, nil
}

// ListingPages returns the base URL followed by ?<param>=2..Pages.
func (s *Scraper) ListingPages() []string {
	pages := []string{s.config.BaseURL}
	for i := 2; i <= s.config.Pages; i++ {
		pages = append(pages, fmt.Sprintf("%s?%s=%d", s.config.BaseURL, s.config.PageParam, i))
	}
	return pages
}

// ArticleLinks returns the absolute article URLs on a listing page,
// deduplicated and in document order.
func (s *Scraper) ArticleLinks(ctx context.Context, pageURL string) ([]string, error) {
	doc, finalURL, err := s.fetchDocument(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	base, err := url.Parse(finalURL)
	if err != nil {
		return nil, helper.NewError("parse page url", err)
	}

	anchors := findAll(doc, func(n *html.Node) bool {
		return n.Data == "a" && hasClass(n, s.config.LinkClass)
	})

	links := []string{}
	seen := map[string]bool{}
	for _, a := range anchors {
		link := resolveURL(base, attr(a, "href"))
		if link == "" || seen[link] {
			continue
		}
		seen[link] = true
		links = append(links, link)
	}
	return links, nil
}

// ScrapeArticle fetches one article page. Content comes from the first
// matching content class with whitespace collapsed.
func (s *Scraper) ScrapeArticle(ctx context.Context, articleURL string) (*model.Article, error) {
	doc, _, err := s.fetchDocument(ctx, articleURL)
	if err != nil {
		return nil, err
	}

	content := ""
	for _, class := range s.config.ContentClasses {
		classes := strings.Fields(class)
		node := findFirst(doc, func(n *html.Node) bool {
			for _, c := range classes {
				if !hasClass(n, c) {
					return false
				}
			}
			return len(classes) > 0
		})
		if node == nil {
			continue
		}
		if content = textContent(node); content != "" {
			break
		}
	}
	if content == "" {
		return nil, helper.NewError("scrape "+articleURL, ErrNoContent)
	}

	return &model.Article{
		URL:         articleURL,
		Title:       pageTitle(doc),
		PublishedAt: publishedAt(doc),
		Content:     content,
		Metadata:    model.Metadata{"source": "scraper"},
	}, nil
}

// Stats summarizes one crawl.
type Stats struct {
	Pages   int `json:"pages"`
	Links   int `json:"links"`
	Skipped int `json:"skipped"`
	Scraped int `json:"scraped"`
	Failed  int `json:"failed"`
}

// ArticleHandler receives every newly scraped article.
type ArticleHandler func(ctx context.Context, article *model.Article) error

// Run crawls all listing pages and passes every article not yet processed
// to handle. Page and article failures are logged and counted; only a
// cancelled context stops the crawl.
func (s *Scraper) Run(ctx context.Context, processed func(url string) bool, handle ArticleHandler) (*Stats, error) {
	stats := &Stats{}
	seen := map[string]bool{}

	for _, page := range s.ListingPages() {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		links, err := s.ArticleLinks(ctx, page)
		if err != nil {
			if ctx.Err() != nil {
				return stats, ctx.Err()
			}
			s.log.Warn("Skipping listing page", slog.String("page", page), slog.String("error", err.Error()))
			continue
		}
		stats.Pages++
		stats.Links += len(links)
		s.log.Info("Crawled listing page", slog.String("page", page), slog.Int("links", len(links)))

		for _, link := range links {
			if seen[link] || (processed != nil && processed(link)) {
				stats.Skipped++
				continue
			}
			seen[link] = true

			article, err := s.ScrapeArticle(ctx, link)
			if err == nil {
				err = handle(ctx, article)
			}
			if err != nil {
				if ctx.Err() != nil {
					return stats, ctx.Err()
				}
				stats.Failed++
				s.log.Warn("Skipping article", slog.String("url", link), slog.String("error", err.Error()))
				continue
			}

			stats.Scraped++
			s.log.Info("Scraped article", slog.String("url", link), slog.Int("characters", len(article.Content)))
		}
	}

	return stats, nil
}

func (s *Scraper) fetchDocument(ctx context.Context, rawURL string) (*html.Node, string, error) {
	if s.robots != nil {
		allowed, crawlDelay, err := s.robots.CanFetch(ctx, rawURL)
		if err != nil {
			return nil, "", helper.NewError("check robots.txt", err)
		}
		if !allowed {
			return nil, "", helper.NewError("fetch "+rawURL, ErrDisallowed)
		}
		if parsed, err := url.Parse(rawURL); err == nil {
			s.limiter.SlowDown(parsed.Host, crawlDelay)
		}
	}

	if err := s.limiter.Wait(ctx, rawURL); err != nil {
		return nil, "", helper.NewError("rate limit", err)
	}

	result, err := s.fetcher.FetchWithRetry(ctx, rawURL)
	if err != nil {
		return nil, "", helper.NewError("fetch "+rawURL, err)
	}

	doc, err := html.Parse(strings.NewReader(result.HTML))
	if err != nil {
		return nil, "", helper.NewError("parse html", err)
	}
	return doc, result.FinalURL, nil
}

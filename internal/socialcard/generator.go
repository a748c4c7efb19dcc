// Package socialcard renders square share images for articles: the
// blurred cover backdrop, the brand badge and the wrapped headline.
package socialcard

import (
	"context"
	"fmt"
	"image"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/newsroom-api/internal/cache"
	"github.com/newsroom-api/internal/config"
	"github.com/newsroom-api/internal/content"
	"github.com/newsroom-api/internal/fetcher"
	"github.com/newsroom-api/internal/metrics"
	"github.com/newsroom-api/internal/models"
	"github.com/newsroom-api/pkg/apperr"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// renderTimeout bounds one shared render, which outlives any single caller.
const renderTimeout = 30 * time.Second

// ArticleSource looks articles up by id. A missing article is (nil, nil).
type ArticleSource interface {
	GetByID(ctx context.Context, id string) (*models.Article, error)
}

// AssetFetcher downloads upstream bytes.
type AssetFetcher interface {
	Fetch(ctx context.Context, rawURL, kind string) (*fetcher.Asset, error)
}

// SharedStore is an optional second cache tier for rendered cards.
type SharedStore interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// Card is a rendered image.
type Card struct {
	Bytes       []byte
	ContentType string
	Cached      bool
}

type cardKey struct {
	id   string
	size int
}

func (k cardKey) String() string {
	return "card:" + k.id + ":" + strconv.Itoa(k.size)
}

// CacheStats reports cache occupancy.
type CacheStats struct {
	Cards  int `json:"cards"`
	Assets int `json:"assets"`
}

// ParseSize maps the size query to pixels: s=540 or size=preview select
// the half-scale preview, anything else the full card.
func ParseSize(s, size string) int {
	if strings.TrimSpace(s) == strconv.Itoa(SizePreview) || strings.EqualFold(strings.TrimSpace(size), "preview") {
		return SizePreview
	}
	return SizeFull
}

// Generator renders cards and caches the results.
type Generator struct {
	articles ArticleSource
	fetch    AssetFetcher
	fonts    *FontLoader
	cards    *cache.TTL[cardKey, []byte]
	assets   *cache.TTL[string, string]
	shared   SharedStore
	cardTTL  time.Duration
	logoURL  string
	flight   singleflight.Group
	log      zerolog.Logger

	// generation counts invalidations per article id; a render only keeps
	// its result if the count did not move while it ran
	genMu      sync.Mutex
	generation map[string]uint64
}

// Option configures a Generator.
type Option func(*Generator)

// WithSharedStore adds a second cache tier behind the in-process one.
func WithSharedStore(s SharedStore) Option {
	return func(g *Generator) { g.shared = s }
}

// NewGenerator builds a Generator. clock may be nil.
func NewGenerator(cfg config.SocialCardConfig, articles ArticleSource, fetch AssetFetcher, clock cache.Clock, log zerolog.Logger, opts ...Option) (*Generator, error) {
	log = log.With().Str("component", "social_card").Logger()

	cacheOpts := []cache.Option{cache.WithLogger(log)}
	if clock != nil {
		cacheOpts = append(cacheOpts, cache.WithClock(clock))
	}

	cards, err := cache.NewTTL[cardKey, []byte]("social_card", cfg.CacheMax, cfg.CacheTTL, cacheOpts...)
	if err != nil {
		return nil, err
	}
	assets, err := cache.NewTTL[string, string]("card_asset", cfg.AssetCacheMax, cfg.AssetCacheTTL, cacheOpts...)
	if err != nil {
		return nil, err
	}

	g := &Generator{
		articles: articles,
		fetch:    fetch,
		fonts:    NewFontLoader(cfg.FontRegularURL, cfg.FontItalicURL, fetch, log),
		cards:    cards,
		assets:   assets,
		cardTTL:  cfg.CacheTTL,
		logoURL:  strings.TrimSpace(cfg.LogoURL),
		log:      log,

		generation: make(map[string]uint64),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Render returns the card for article id at size pixels. Errors are
// ValidationError for a missing id or cover, NotFoundError for an
// unknown article and UpstreamAssetError when the cover cannot be fetched.
func (g *Generator) Render(ctx context.Context, id string, size int) (*Card, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperr.NewFieldError("id", "Missing id")
	}
	if size != SizePreview {
		size = SizeFull
	}
	key := cardKey{id: id, size: size}

	if b, ok := g.cards.Get(key); ok {
		return &Card{Bytes: b, ContentType: ContentType, Cached: true}, nil
	}
	if b, ok := g.sharedGet(ctx, key); ok {
		g.cards.Set(key, b)
		return &Card{Bytes: b, ContentType: ContentType, Cached: true}, nil
	}

	gen := g.currentGeneration(id)
	flightKey := key.String() + "#" + strconv.FormatUint(gen, 10)
	ch := g.flight.DoChan(flightKey, func() (interface{}, error) {
		renderCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), renderTimeout)
		defer cancel()
		return g.render(renderCtx, key, gen)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return &Card{Bytes: res.Val.([]byte), ContentType: ContentType}, nil
	}
}

func (g *Generator) render(ctx context.Context, key cardKey, gen uint64) ([]byte, error) {
	article, err := g.articles.GetByID(ctx, key.id)
	if err != nil {
		return nil, apperr.Store("get article", err)
	}
	if article == nil {
		return nil, apperr.NewNotFoundError("Article not found")
	}
	cover := content.NormalizeImageURL(article.CoverImage)
	if cover == "" {
		return nil, apperr.NewFieldError("coverImage", "No coverImage")
	}

	lines := WrapTitle(NormalizeTitle(article.Title), MaxLines)

	var coverImg, logoImg image.Image
	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		img, err := g.loadImage(egCtx, "cover", cover)
		if err != nil {
			return err
		}
		coverImg = img
		return nil
	})
	if g.logoURL != "" {
		eg.Go(func() error {
			img, err := g.loadImage(egCtx, "logo", g.logoURL)
			if err != nil {
				g.log.Warn().Err(err).Str("url", g.logoURL).Msg("Brand logo unavailable, rendering badge without it")
				return nil
			}
			logoImg = img
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	fonts, err := g.fonts.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load fonts: %w", err)
	}

	start := time.Now()
	b, err := Render(Input{Size: key.size, Cover: coverImg, Logo: logoImg, Lines: lines}, fonts)
	if err != nil {
		return nil, fmt.Errorf("render card %s: %w", key.id, err)
	}
	metrics.RecordRender(strconv.Itoa(key.size), time.Since(start).Seconds())

	g.store(ctx, key, gen, b)

	g.log.Debug().
		Str("article_id", key.id).
		Int("size", key.size).
		Int("bytes", len(b)).
		Dur("elapsed", time.Since(start)).
		Msg("Rendered social card")
	return b, nil
}

// loadImage resolves url to a decoded image, going through the data-URL
// cache keyed "<kind>:<url>".
func (g *Generator) loadImage(ctx context.Context, kind, url string) (image.Image, error) {
	dataURL, err := g.dataURL(ctx, kind, url)
	if err != nil {
		return nil, err
	}
	b, _, err := fetcher.DecodeDataURL(dataURL)
	if err != nil {
		return nil, apperr.NewUpstreamAssetError(url, 0, err)
	}
	img, err := DecodeImage(b)
	if err != nil {
		return nil, apperr.NewUpstreamAssetError(url, 0, err)
	}
	return img, nil
}

func (g *Generator) dataURL(ctx context.Context, kind, url string) (string, error) {
	if strings.HasPrefix(url, "data:") {
		return url, nil
	}

	key := kind + ":" + url
	if v, ok := g.assets.Get(key); ok {
		return v, nil
	}

	asset, err := g.fetch.Fetch(ctx, url, kind)
	if err != nil {
		return "", err
	}
	v := asset.DataURL("image/png")
	g.assets.Set(key, v)
	return v, nil
}

// store caches b for key, then undoes the write if id was invalidated
// since the render began.
func (g *Generator) store(ctx context.Context, key cardKey, gen uint64, b []byte) {
	g.cards.Set(key, b)
	g.sharedSet(ctx, key, b)

	if g.currentGeneration(key.id) == gen {
		return
	}
	g.cards.Delete(key)
	if g.shared != nil {
		if err := g.shared.Delete(ctx, key.String()); err != nil {
			g.log.Warn().Err(err).Str("key", key.String()).Msg("Failed to drop stale shared card")
		}
	}
	g.log.Debug().Str("article_id", key.id).Msg("Discarded card rendered before invalidation")
}

func (g *Generator) currentGeneration(id string) uint64 {
	g.genMu.Lock()
	defer g.genMu.Unlock()
	return g.generation[id]
}

// Invalidate drops every cached size of article id. Renders already in
// flight for id do not repopulate the caches.
func (g *Generator) Invalidate(ctx context.Context, id string) {
	g.genMu.Lock()
	g.generation[id]++
	g.genMu.Unlock()

	keys := make([]string, 0, 2)
	for _, size := range []int{SizeFull, SizePreview} {
		k := cardKey{id: id, size: size}
		g.cards.Delete(k)
		keys = append(keys, k.String())
	}
	if g.shared != nil {
		if err := g.shared.Delete(ctx, keys...); err != nil {
			g.log.Warn().Err(err).Str("article_id", id).Msg("Failed to invalidate shared card cache")
		}
	}
}

// Stats reports cache occupancy.
func (g *Generator) Stats() CacheStats {
	return CacheStats{Cards: g.cards.Len(), Assets: g.assets.Len()}
}

func (g *Generator) sharedGet(ctx context.Context, key cardKey) ([]byte, bool) {
	if g.shared == nil {
		return nil, false
	}
	b, ok, err := g.shared.Get(ctx, key.String())
	if err != nil {
		g.log.Warn().Err(err).Str("key", key.String()).Msg("Shared card cache read failed")
		return nil, false
	}
	return b, ok
}

func (g *Generator) sharedSet(ctx context.Context, key cardKey, b []byte) {
	if g.shared == nil {
		return
	}
	if err := g.shared.Set(ctx, key.String(), b, g.cardTTL); err != nil {
		g.log.Warn().Err(err).Str("key", key.String()).Msg("Shared card cache write failed")
	}
}

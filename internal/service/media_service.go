package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/newsroom-api/internal/content"
	"github.com/newsroom-api/internal/fetcher"
	"github.com/newsroom-api/internal/metrics"
	"github.com/newsroom-api/internal/models"
	"github.com/newsroom-api/internal/socialcard"
	"github.com/newsroom-api/pkg/apperr"
	"github.com/rs/zerolog"
)

const (
	proxyCacheControl    = "public, max-age=300"
	fallbackCacheControl = "public, max-age=60, s-maxage=60"
	defaultContentType   = "application/octet-stream"
)

// ProxiedImage is the image proxy response. Fallback is set when the
// placeholder was served instead of the upstream bytes.
type ProxiedImage struct {
	Body         []byte
	ContentType  string
	CacheControl string
	Fallback     string
}

type mediaService struct {
	cards *socialcard.Generator
	fetch socialcard.AssetFetcher
	log   zerolog.Logger
}

func newMediaService(cards *socialcard.Generator, fetch socialcard.AssetFetcher, log zerolog.Logger) *mediaService {
	return &mediaService{
		cards: cards,
		fetch: fetch,
		log:   log.With().Str("component", "media_service").Logger(),
	}
}

func (s *mediaService) SocialCard(ctx context.Context, id string, size int) (*socialcard.Card, error) {
	return s.cards.Render(ctx, id, size)
}

// ProxyImage fetches rawURL for the reader site. Only a missing or
// malformed url is an error; an upstream failure yields the placeholder.
func (s *mediaService) ProxyImage(ctx context.Context, rawURL string) (*ProxiedImage, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return nil, apperr.NewFieldError("url", "Missing url")
	}
	target := content.NormalizeImageURL(rawURL)
	if err := fetcher.ValidateURL(target); err != nil {
		return nil, err
	}

	asset, err := s.fetch.Fetch(ctx, target, "proxy")
	if err != nil {
		reason, label := fallbackReason(err)
		metrics.RecordProxyFallback(label)
		s.log.Warn().Err(err).Str("url", target).Msg("Image proxy serving placeholder")
		return &ProxiedImage{
			Body:         fetcher.PlaceholderPNG,
			ContentType:  "image/png",
			CacheControl: fallbackCacheControl,
			Fallback:     reason,
		}, nil
	}

	ct := asset.ContentType
	if ct == "" {
		ct = defaultContentType
	}
	return &ProxiedImage{
		Body:         asset.Body,
		ContentType:  ct,
		CacheControl: proxyCacheControl,
	}, nil
}

// fallbackReason returns the header value and the metric label.
func fallbackReason(err error) (string, string) {
	var upstream *apperr.UpstreamAssetError
	if errors.As(err, &upstream) && upstream.Status != 0 {
		return fmt.Sprintf("1 (upstream %d)", upstream.Status), "upstream_status"
	}
	return "1 (exception)", "exception"
}

func (s *mediaService) Invalidate(ctx context.Context, articleID string) {
	s.cards.Invalidate(ctx, articleID)
}

func (s *mediaService) CacheStats() models.CacheCounts {
	st := s.cards.Stats()
	return models.CacheCounts{Cards: st.Cards, Assets: st.Assets}
}

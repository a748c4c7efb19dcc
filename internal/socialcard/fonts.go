package socialcard

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/newsroom-api/internal/fetcher"
	"github.com/rs/zerolog"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gobolditalic"
	"golang.org/x/image/font/opentype"
)

// Fonts holds the parsed typefaces a card is drawn with.
type Fonts struct {
	Regular *opentype.Font
	Italic  *opentype.Font
}

// Face builds a face at px pixels. Faces are not safe for concurrent use,
// so each render creates its own.
func Face(f *opentype.Font, px float64) (font.Face, error) {
	return opentype.NewFace(f, &opentype.FaceOptions{
		Size:    px,
		DPI:     72,
		Hinting: font.HintingFull,
	})
}

// fontFetchTimeout bounds the font download, which runs detached from the
// first caller's context.
const fontFetchTimeout = 30 * time.Second

// FontLoader fetches the configured fonts once per process. A font that
// cannot be fetched or parsed is replaced by the bundled Go Bold family and
// is not retried.
type FontLoader struct {
	regularURL string
	italicURL  string
	fetch      AssetFetcher
	log        zerolog.Logger

	once  sync.Once
	fonts *Fonts
	err   error
}

// NewFontLoader creates a loader. Empty URLs select the bundled fonts.
func NewFontLoader(regularURL, italicURL string, fetch AssetFetcher, log zerolog.Logger) *FontLoader {
	return &FontLoader{
		regularURL: regularURL,
		italicURL:  italicURL,
		fetch:      fetch,
		log:        log,
	}
}

// Load returns the memoized fonts.
func (l *FontLoader) Load(ctx context.Context) (*Fonts, error) {
	l.once.Do(func() {
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), fontFetchTimeout)
		defer cancel()
		l.fonts, l.err = l.load(loadCtx)
	})
	return l.fonts, l.err
}

func (l *FontLoader) load(ctx context.Context) (*Fonts, error) {
	regular, err := l.loadOne(ctx, l.regularURL, gobold.TTF)
	if err != nil {
		return nil, err
	}
	italic, err := l.loadOne(ctx, l.italicURL, gobolditalic.TTF)
	if err != nil {
		return nil, err
	}
	return &Fonts{Regular: regular, Italic: italic}, nil
}

func (l *FontLoader) loadOne(ctx context.Context, url string, fallback []byte) (*opentype.Font, error) {
	if url != "" && l.fetch != nil {
		asset, err := l.fetch.Fetch(ctx, url, "font")
		if err == nil {
			f, perr := opentype.Parse(asset.Body)
			if perr == nil {
				return f, nil
			}
			err = perr
		}
		l.log.Warn().Err(err).Str("url", url).Msg("Font unavailable, using bundled font")
	}

	f, err := opentype.Parse(fallback)
	if err != nil {
		return nil, fmt.Errorf("parse bundled font: %w", err)
	}
	return f, nil
}

// ensure the fetcher satisfies the interface the loader needs
var _ AssetFetcher = (*fetcher.Client)(nil)

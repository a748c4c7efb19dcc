package socialcard

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/newsroom-api/internal/cache"
	"github.com/newsroom-api/internal/config"
	"github.com/newsroom-api/internal/fetcher"
	"github.com/newsroom-api/internal/models"
	"github.com/newsroom-api/pkg/apperr"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/sfnt"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("github.com/redis/go-redis/v9/internal/pool.(*ConnPool).reaper"),
	)
}

func TestWrapTitle(t *testing.T) {
	tests := []struct {
		name  string
		title string
		want  []string
	}{
		{
			name:  "exactly eighteen characters stays on one line",
			title: "ABCDEFGH IJKLMNOPQ",
			want:  []string{"ABCDEFGH IJKLMNOPQ"},
		},
		{
			name:  "nineteen characters wraps",
			title: "ABCDEFGHI IJKLMNOPQ",
			want:  []string{"ABCDEFGHI", "IJKLMNOPQ"},
		},
		{
			name:  "long first word keeps its own line",
			title: "SUPERCALIFRAGILISTICEXPIALIDOCIOUS NEWS",
			want:  []string{"SUPERCALIFRAGILISTICEXPIALIDOCIOUS", "NEWS"},
		},
		{
			name:  "later lines allow twenty four",
			title: "INDIA GDP GROWS AS EXPORTS RISE SHARPLY",
			want:  []string{"INDIA GDP GROWS AS", "EXPORTS RISE SHARPLY"},
		},
		{
			name:  "extra words beyond four lines are dropped",
			title: strings.Repeat("WORDWORDWORDWORDWORD ", 6),
			want:  []string{"WORDWORDWORDWORDWORD", "WORDWORDWORDWORDWORD", "WORDWORDWORDWORDWORD", "WORDWORDWORDWORDWORD"},
		},
		{
			name:  "whitespace is collapsed",
			title: "  A \t B\n\nC ",
			want:  []string{"A B C"},
		},
		{
			name:  "empty title",
			title: "   ",
			want:  []string{},
		},
		{
			name:  "limits count characters not bytes",
			title: "ÉÉÉÉÉÉÉÉÉ ÉÉÉÉÉÉÉÉ",
			want:  []string{"ÉÉÉÉÉÉÉÉÉ ÉÉÉÉÉÉÉÉ"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, WrapTitle(tt.title, MaxLines))
		})
	}
}

func TestWrapTitle_NoLines(t *testing.T) {
	assert.Empty(t, WrapTitle("ANY TITLE", 0))
}

func TestNormalizeTitle(t *testing.T) {
	assert.Equal(t, "MARKETS RALLY ON RATE CUT", NormalizeTitle("  Markets   rally\non rate cut "))
	assert.Equal(t, "ÉTÉ À PARIS", NormalizeTitle("été à Paris"))
}

func TestParseSize(t *testing.T) {
	assert.Equal(t, SizePreview, ParseSize("540", ""))
	assert.Equal(t, SizePreview, ParseSize("", "preview"))
	assert.Equal(t, SizePreview, ParseSize("", "PREVIEW"))
	assert.Equal(t, SizeFull, ParseSize("", ""))
	assert.Equal(t, SizeFull, ParseSize("1080", ""))
	assert.Equal(t, SizeFull, ParseSize("300", "full"))
}

func testPNG(t testing.TB, w, h int, c color.Color) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func bundledFonts(t testing.TB) *Fonts {
	t.Helper()
	f, err := NewFontLoader("", "", nil, zerolog.Nop()).Load(context.Background())
	require.NoError(t, err)
	return f
}

func TestRender_Sizes(t *testing.T) {
	cover, err := DecodeImage(testPNG(t, 64, 40, color.RGBA{R: 20, G: 120, B: 200, A: 255}))
	require.NoError(t, err)
	fonts := bundledFonts(t)

	for _, size := range []int{SizeFull, SizePreview} {
		b, err := Render(Input{
			Size:  size,
			Cover: cover,
			Lines: WrapTitle(NormalizeTitle("Monsoon arrives early across the southern states"), MaxLines),
		}, fonts)
		require.NoError(t, err)

		img, err := png.Decode(bytes.NewReader(b))
		require.NoError(t, err)
		assert.Equal(t, size, img.Bounds().Dx())
		assert.Equal(t, size, img.Bounds().Dy())
	}
}

func TestDraw_Layers(t *testing.T) {
	cover, err := DecodeImage(testPNG(t, 40, 40, color.RGBA{G: 255, A: 255}))
	require.NoError(t, err)
	logo, err := DecodeImage(testPNG(t, 10, 10, color.RGBA{R: 255, G: 255, A: 255}))
	require.NoError(t, err)

	img, err := Draw(Input{Size: SizePreview, Cover: cover, Logo: logo, Lines: []string{"BREAKING"}}, bundledFonts(t))
	require.NoError(t, err)

	// square cover is contained edge to edge; top half is unobstructed green
	r, g, b, _ := img.At(SizePreview/2, SizePreview/4).RGBA()
	assert.Greater(t, g>>8, uint32(200))
	assert.Less(t, r>>8, uint32(40))
	assert.Less(t, b>>8, uint32(40))

	// the title chip is red somewhere along the chip row
	found := false
	for x := 0; x < SizePreview && !found; x++ {
		c := color.RGBAModel.Convert(img.At(x, SizePreview-7-38)).(color.RGBA)
		if c.R > 150 && c.G < 40 && c.B < 40 {
			found = true
		}
	}
	assert.True(t, found, "expected a red title chip")

	// badge sits top right
	c := color.RGBAModel.Convert(img.At(SizePreview-22-50, 22+12)).(color.RGBA)
	assert.NotEqual(t, color.RGBA{G: 255, A: 255}, c)
}

func TestDraw_Errors(t *testing.T) {
	cover := image.NewRGBA(image.Rect(0, 0, 2, 2))
	fonts := bundledFonts(t)

	_, err := Draw(Input{Size: 800, Cover: cover}, fonts)
	assert.Error(t, err)
	_, err = Draw(Input{Size: SizeFull}, fonts)
	assert.Error(t, err)
	_, err = Draw(Input{Size: SizeFull, Cover: cover}, nil)
	assert.Error(t, err)
}

func TestDecodeImage(t *testing.T) {
	_, err := DecodeImage(nil)
	assert.Error(t, err)
	_, err = DecodeImage([]byte("not an image"))
	assert.Error(t, err)

	img, err := DecodeImage(fetcher.PlaceholderPNG)
	require.NoError(t, err)
	assert.Equal(t, 1, img.Bounds().Dx())
}

func TestBlurPlane_PreservesFlatImage(t *testing.T) {
	pix := bytes.Repeat([]byte{100}, 10*10)
	blurPlane(pix, 10, 10, 10, 1, 2)
	for _, v := range pix {
		assert.Equal(t, uint8(100), v)
	}
}

func TestBlurPlane_Spreads(t *testing.T) {
	pix := make([]byte, 9)
	pix[4] = 255
	blurPlane(pix, 9, 1, 9, 1, 1)
	assert.Equal(t, uint8(85), pix[3])
	assert.Equal(t, uint8(85), pix[4])
	assert.Equal(t, uint8(85), pix[5])
	assert.Equal(t, uint8(0), pix[0])
}

// fakes

type fakeArticles struct {
	mu       sync.Mutex
	articles map[string]*models.Article
	err      error
	calls    int
	onGet    func(id string)
}

func (f *fakeArticles) GetByID(_ context.Context, id string) (*models.Article, error) {
	if f.onGet != nil {
		f.onGet(id)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.articles[id], nil
}

type fakeFetcher struct {
	mu     sync.Mutex
	assets map[string][]byte
	delay  time.Duration
	calls  map[string]int
	total  int32
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{assets: map[string][]byte{}, calls: map[string]int{}}
}

func (f *fakeFetcher) Fetch(ctx context.Context, rawURL, _ string) (*fetcher.Asset, error) {
	atomic.AddInt32(&f.total, 1)
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if err := ctx.Err(); err != nil {
		return nil, apperr.NewUpstreamAssetError(rawURL, 0, err)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[rawURL]++
	b, ok := f.assets[rawURL]
	if !ok {
		return nil, apperr.NewUpstreamAssetError(rawURL, 404, nil)
	}
	return &fetcher.Asset{Body: b, ContentType: "image/png"}, nil
}

func (f *fakeFetcher) count(u string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[u]
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

const (
	coverURL = "https://cdn.example.com/cover.png"
	logoURL  = "https://cdn.example.com/logo.png"
)

type harness struct {
	gen      *Generator
	articles *fakeArticles
	fetch    *fakeFetcher
	clock    *clock
}

func newHarness(t *testing.T, opts ...Option) *harness {
	t.Helper()

	articles := &fakeArticles{articles: map[string]*models.Article{
		"a1":       {ID: "a1", Title: "Rupee hits record high", CoverImage: coverURL},
		"no-cover": {ID: "no-cover", Title: "Text only", CoverImage: "  "},
		"broken":   {ID: "broken", Title: "Broken cover", CoverImage: "https://cdn.example.com/missing.png"},
	}}
	f := newFakeFetcher()
	f.assets[coverURL] = testPNG(t, 32, 20, color.RGBA{R: 200, A: 255})
	f.assets[logoURL] = testPNG(t, 8, 8, color.RGBA{B: 200, A: 255})

	clk := &clock{now: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)}
	cfg := config.SocialCardConfig{
		LogoURL:       logoURL,
		CacheTTL:      6 * time.Hour,
		CacheMax:      150,
		AssetCacheTTL: 6 * time.Hour,
		AssetCacheMax: 250,
	}
	gen, err := NewGenerator(cfg, articles, f, clk.Now, zerolog.Nop(), opts...)
	require.NoError(t, err)
	return &harness{gen: gen, articles: articles, fetch: f, clock: clk}
}

func TestGenerator_Errors(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		id      string
		check   func(error) bool
		message string
	}{
		{"missing id", "  ", apperr.IsValidationError, "Missing id"},
		{"unknown article", "nope", apperr.IsNotFoundError, "Article not found"},
		{"no cover", "no-cover", apperr.IsValidationError, "No coverImage"},
		{"cover fetch fails", "broken", apperr.IsUpstreamAssetError, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.gen.Render(ctx, tt.id, SizePreview)
			require.Error(t, err)
			assert.True(t, tt.check(err), "unexpected error type %T", err)
			if tt.message != "" {
				assert.Equal(t, tt.message, err.Error())
			}
		})
	}
}

func TestGenerator_StoreError(t *testing.T) {
	h := newHarness(t)
	h.articles.err = errors.New("connection reset")

	_, err := h.gen.Render(context.Background(), "a1", SizePreview)
	require.Error(t, err)
	assert.True(t, apperr.IsStoreError(err))
}

func TestGenerator_CachesCards(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	first, err := h.gen.Render(ctx, "a1", SizePreview)
	require.NoError(t, err)
	assert.False(t, first.Cached)
	assert.Equal(t, "image/png", first.ContentType)

	second, err := h.gen.Render(ctx, "a1", SizePreview)
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, first.Bytes, second.Bytes)
	assert.Equal(t, 1, h.articles.calls)

	// a different size is a different entry, but reuses cached assets
	_, err = h.gen.Render(ctx, "a1", SizeFull)
	require.NoError(t, err)
	assert.Equal(t, 1, h.fetch.count(coverURL))
	assert.Equal(t, 1, h.fetch.count(logoURL))
	assert.Equal(t, CacheStats{Cards: 2, Assets: 2}, h.gen.Stats())
}

func TestGenerator_CardExpiry(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.gen.Render(ctx, "a1", SizePreview)
	require.NoError(t, err)

	h.clock.Advance(6 * time.Hour)
	card, err := h.gen.Render(ctx, "a1", SizePreview)
	require.NoError(t, err)
	assert.False(t, card.Cached)
	assert.Equal(t, 2, h.fetch.count(coverURL), "asset cache expires on the same schedule")
}

func TestGenerator_Invalidate(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.gen.Render(ctx, "a1", SizePreview)
	require.NoError(t, err)
	h.gen.Invalidate(ctx, "a1")

	card, err := h.gen.Render(ctx, "a1", SizePreview)
	require.NoError(t, err)
	assert.False(t, card.Cached)
}

func TestGenerator_LogoFailureDegrades(t *testing.T) {
	h := newHarness(t)
	delete(h.fetch.assets, logoURL)

	card, err := h.gen.Render(context.Background(), "a1", SizePreview)
	require.NoError(t, err)
	assert.NotEmpty(t, card.Bytes)
}

func TestGenerator_DataURLCover(t *testing.T) {
	h := newHarness(t)
	h.articles.articles["inline"] = &models.Article{
		ID:         "inline",
		Title:      "Inline",
		CoverImage: fetcher.DataURL(testPNG(t, 4, 4, color.White), "image/png"),
	}

	_, err := h.gen.Render(context.Background(), "inline", SizePreview)
	require.NoError(t, err)
	assert.Equal(t, 0, h.fetch.count(coverURL))
}

func TestGenerator_CoalescesConcurrentRenders(t *testing.T) {
	h := newHarness(t)
	h.fetch.delay = 50 * time.Millisecond

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.gen.Render(context.Background(), "a1", SizePreview)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, 1, h.fetch.count(coverURL))
}

func TestGenerator_SharedStore(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	defer mr.Close()

	store, err := cache.NewRedisStore("redis://"+mr.Addr(), "social_card_l2")
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	h := newHarness(t, WithSharedStore(store))
	first, err := h.gen.Render(ctx, "a1", SizePreview)
	require.NoError(t, err)
	assert.True(t, mr.Exists(cache.DefaultKeyPrefix+"card:a1:540"))

	// a second process sharing the store skips rendering
	other := newHarness(t, WithSharedStore(store))
	card, err := other.gen.Render(ctx, "a1", SizePreview)
	require.NoError(t, err)
	assert.True(t, card.Cached)
	assert.Equal(t, first.Bytes, card.Bytes)
	assert.Equal(t, 0, other.articles.calls)

	h.gen.Invalidate(ctx, "a1")
	assert.False(t, mr.Exists(cache.DefaultKeyPrefix+"card:a1:540"))
}

func TestFontLoader_FallsBackOnce(t *testing.T) {
	f := newFakeFetcher()
	loader := NewFontLoader("https://fonts.example.com/regular.ttf", "https://fonts.example.com/italic.ttf", f, zerolog.Nop())

	for i := 0; i < 3; i++ {
		fonts, err := loader.Load(context.Background())
		require.NoError(t, err)
		assert.NotNil(t, fonts.Regular)
		assert.NotNil(t, fonts.Italic)
	}
	assert.Equal(t, int32(2), atomic.LoadInt32(&f.total))
}

func TestFontLoader_CancelledFirstCallerStillGetsConfiguredFonts(t *testing.T) {
	const (
		regularURL = "https://fonts.example.com/regular.ttf"
		italicURL  = "https://fonts.example.com/italic.ttf"
	)
	f := newFakeFetcher()
	f.assets[regularURL] = goregular.TTF
	f.assets[italicURL] = goitalic.TTF
	loader := NewFontLoader(regularURL, italicURL, f, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := loader.Load(ctx)
	require.NoError(t, err)

	fonts, err := loader.Load(context.Background())
	require.NoError(t, err)
	regular, err := fonts.Regular.Name(nil, sfnt.NameIDFull)
	require.NoError(t, err)
	italic, err := fonts.Italic.Name(nil, sfnt.NameIDFull)
	require.NoError(t, err)
	assert.Equal(t, "Go Regular", regular)
	assert.Equal(t, "Go Italic", italic)
}

func TestGenerator_CancelledCallerDoesNotFailWaiters(t *testing.T) {
	h := newHarness(t)
	h.fetch.delay = 50 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	first := make(chan error, 1)
	go func() {
		_, err := h.gen.Render(ctx, "a1", SizePreview)
		first <- err
	}()

	time.Sleep(10 * time.Millisecond)
	card, err := h.gen.Render(context.Background(), "a1", SizePreview)
	require.NoError(t, err)
	assert.NotEmpty(t, card.Bytes)
	assert.ErrorIs(t, <-first, context.Canceled)
	assert.Equal(t, 1, h.fetch.count(coverURL))
}

func TestGenerator_InvalidateDuringRenderDiscardsResult(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	defer mr.Close()

	store, err := cache.NewRedisStore("redis://"+mr.Addr(), "social_card_l2")
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	h := newHarness(t, WithSharedStore(store))

	var once sync.Once
	h.articles.onGet = func(id string) {
		// the article is edited while its card is being rendered
		once.Do(func() { h.gen.Invalidate(ctx, id) })
	}

	card, err := h.gen.Render(ctx, "a1", SizePreview)
	require.NoError(t, err)
	assert.NotEmpty(t, card.Bytes)
	assert.Equal(t, 0, h.gen.Stats().Cards)
	assert.False(t, mr.Exists(cache.DefaultKeyPrefix+"card:a1:540"))

	again, err := h.gen.Render(ctx, "a1", SizePreview)
	require.NoError(t, err)
	assert.False(t, again.Cached)
	assert.Equal(t, 2, h.articles.calls)
	assert.Equal(t, 1, h.gen.Stats().Cards)
}

package socialcard

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"math"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
	_ "golang.org/x/image/webp"
)

// Card sizes in pixels.
const (
	SizeFull    = 1080
	SizePreview = 540
)

// ContentType of rendered cards.
const ContentType = "image/png"

var (
	chipRed   = color.NRGBA{R: 0xE1, G: 0x06, B: 0x00, A: 0xFF}
	white     = color.NRGBA{R: 0xFF, G: 0xFF, B: 0xFF, A: 0xFF}
	black     = color.NRGBA{A: 0xFF}
	overlay   = color.NRGBA{A: 89} // 0.35
	badgeEdge = color.NRGBA{R: 0xFF, G: 0xFF, B: 0xFF, A: 56}
)

type gradientStop struct {
	at float64
	c  color.NRGBA
}

var (
	bottomFade = []gradientStop{
		{0, color.NRGBA{A: 0}},
		{0.35, color.NRGBA{A: 140}},
		{1, color.NRGBA{A: 235}},
	}
	badgeFill = []gradientStop{
		{0, color.NRGBA{R: 0, G: 102, B: 255, A: 242}},
		{0.55, color.NRGBA{R: 0, G: 180, B: 255, A: 230}},
		{1, color.NRGBA{R: 0, G: 255, B: 210, A: 184}},
	}
	badgeSheen = []gradientStop{
		{0, color.NRGBA{R: 255, G: 255, B: 255, A: 31}},
		{0.38, color.NRGBA{R: 255, G: 255, B: 255, A: 0}},
		{1, color.NRGBA{R: 255, G: 255, B: 255, A: 0}},
	}
)

// Input is everything a card is drawn from.
type Input struct {
	Size  int
	Cover image.Image
	Logo  image.Image // optional
	Lines []string
}

// DecodeImage decodes JPEG, PNG, GIF or WebP bytes.
func DecodeImage(b []byte) (image.Image, error) {
	if len(b) == 0 {
		return nil, errors.New("empty image data")
	}
	img, _, err := image.Decode(bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return img, nil
}

// Render draws the card and encodes it as PNG.
func Render(in Input, fonts *Fonts) ([]byte, error) {
	img, err := Draw(in, fonts)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// Draw composites the card layers bottom to top: blurred backdrop,
// darkening overlay, contained cover, bottom fade, brand badge, title.
func Draw(in Input, fonts *Fonts) (*image.RGBA, error) {
	if in.Size != SizeFull && in.Size != SizePreview {
		return nil, fmt.Errorf("unsupported card size %d", in.Size)
	}
	if in.Cover == nil {
		return nil, errors.New("missing cover image")
	}
	if fonts == nil || fonts.Regular == nil || fonts.Italic == nil {
		return nil, errors.New("fonts not loaded")
	}

	size := in.Size
	s := float64(size) / SizeFull
	px := func(v float64) int { return int(math.Round(v * s)) }

	canvas := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(black), image.Point{}, draw.Src)

	drawBackdrop(canvas, in.Cover, 18*s)
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(overlay), image.Point{}, draw.Over)

	contained := fitRect(in.Cover.Bounds(), canvas.Bounds(), false, 1)
	draw.CatmullRom.Scale(canvas, contained, in.Cover, in.Cover.Bounds(), draw.Over, nil)

	fadeH := px(560)
	fillGradient(canvas, image.Rect(0, size-fadeH, size, size), bottomFade, true)

	badge := image.Rect(size-px(44)-px(200), px(44), size-px(44), px(44)+px(48))
	drawBadge(canvas, badge, in.Logo, px(5))

	if err := drawTitle(canvas, in, fonts, s); err != nil {
		return nil, err
	}
	return canvas, nil
}

func drawBackdrop(dst *image.RGBA, src image.Image, blur float64) {
	const factor = 8
	b := dst.Bounds()
	small := image.NewRGBA(image.Rect(0, 0, b.Dx()/factor, b.Dy()/factor))
	draw.ApproxBiLinear.Scale(small, fitRect(src.Bounds(), small.Bounds(), true, 1.08), src, src.Bounds(), draw.Src, nil)

	// three box passes approximate a gaussian with sigma^2 = r(r+1)
	sigma := blur / factor
	r := int(math.Max(1, math.Round((math.Sqrt(1+4*sigma*sigma)-1)/2)))
	for i := 0; i < 3; i++ {
		blurPlane(small.Pix, small.Bounds().Dx(), small.Bounds().Dy(), small.Stride, 4, r)
	}
	draw.BiLinear.Scale(dst, b, small, small.Bounds(), draw.Src, nil)
}

func drawBadge(dst *image.RGBA, r image.Rectangle, logo image.Image, logoShift int) {
	edge := r.Inset(-1)
	draw.DrawMask(dst, edge, image.NewUniform(badgeEdge), image.Point{}, pillMask(edge), edge.Min, draw.Over)

	layer := image.NewRGBA(r)
	fillGradient(layer, r, badgeFill, false)
	fillGradient(layer, r, badgeSheen, false)

	if logo != nil {
		side := r.Dx()
		box := image.Rect(0, 0, side, side).Add(image.Pt(r.Min.X, r.Min.Y+(r.Dy()-side)/2+logoShift))
		draw.CatmullRom.Scale(layer, fitRect(logo.Bounds(), box, true, 1), logo, logo.Bounds(), draw.Over, nil)
	}

	draw.DrawMask(dst, r, layer, r.Min, pillMask(r), r.Min, draw.Over)
}

func drawTitle(dst *image.RGBA, in Input, fonts *Fonts, s float64) error {
	if len(in.Lines) == 0 {
		return nil
	}
	size := float64(in.Size)
	first := in.Lines[0]
	rest := in.Lines[1:]
	if len(rest) > MaxLines-1 {
		rest = rest[:MaxLines-1]
	}

	rowH := 150 * s
	lineH := 58 * s * 1.18
	restH := 0.0
	if len(rest) > 0 {
		restH = float64(len(rest))*lineH + float64(len(rest)-1)*3*s
	}
	top := size - 15*s - rowH - restH
	if len(rest) > 0 {
		top -= 6 * s
	}

	// thumbnail with a white frame, pinned to the left edge of the row
	left := 36 * s
	frame := image.Rect(int(math.Round(left)), int(math.Round(top)), int(math.Round(left+rowH)), int(math.Round(top+rowH)))
	draw.Draw(dst, frame, image.NewUniform(white), image.Point{}, draw.Src)
	inner := frame.Inset(int(math.Round(8 * s)))
	draw.Draw(dst, inner, image.NewUniform(black), image.Point{}, draw.Src)
	if sub, ok := dst.SubImage(inner).(*image.RGBA); ok {
		draw.CatmullRom.Scale(sub, fitRect(in.Cover.Bounds(), inner, true, 1), in.Cover, in.Cover.Bounds(), draw.Over, nil)
	}

	chipFace, err := Face(fonts.Italic, 76*s)
	if err != nil {
		return fmt.Errorf("chip face: %w", err)
	}
	defer chipFace.Close()

	textW := measure(chipFace, first, 0)
	chipW := fixedToFloat(textW) + 48*s
	chipH := 76*s + 32*s
	chipX := size/2 - chipW/2
	chipY := top + (rowH-chipH)/2
	chip := image.Rect(int(math.Round(chipX)), int(math.Round(chipY)), int(math.Round(chipX+chipW)), int(math.Round(chipY+chipH)))
	draw.Draw(dst, chip, image.NewUniform(chipRed), image.Point{}, draw.Src)

	chipBase := baseline(chipFace, chipY+16*s, 76*s)
	firstRun := []textRun{{text: first, x: chipX + 24*s, baseline: chipBase}}
	drawShadow(dst, chipFace, firstRun, 0, 10*s, 30*s, 140)
	drawRuns(dst, chipFace, firstRun, 0, white)

	if len(rest) == 0 {
		return nil
	}

	restFace, err := Face(fonts.Regular, 58*s)
	if err != nil {
		return fmt.Errorf("line face: %w", err)
	}
	defer restFace.Close()

	tracking := floatToFixed(0.08 * 58 * s)
	runs := make([]textRun, 0, len(rest))
	y := top + rowH + 6*s
	for _, ln := range rest {
		w := fixedToFloat(measure(restFace, ln, tracking))
		runs = append(runs, textRun{text: ln, x: size/2 - w/2, baseline: baseline(restFace, y, lineH)})
		y += lineH + 3*s
	}
	drawShadow(dst, restFace, runs, tracking, 10*s, 30*s, 166)
	drawRuns(dst, restFace, runs, tracking, white)
	return nil
}

type textRun struct {
	text     string
	x        float64
	baseline float64
}

func drawRuns(dst draw.Image, face font.Face, runs []textRun, tracking fixed.Int26_6, c color.Color) {
	src := image.NewUniform(c)
	for _, r := range runs {
		d := &font.Drawer{
			Dst:  dst,
			Src:  src,
			Face: face,
			Dot:  fixed.Point26_6{X: floatToFixed(r.x), Y: floatToFixed(r.baseline)},
		}
		prev := rune(-1)
		for _, ch := range r.text {
			if prev >= 0 {
				d.Dot.X += face.Kern(prev, ch) + tracking
			}
			d.DrawString(string(ch))
			prev = ch
		}
	}
}

// drawShadow renders runs into an alpha mask shifted by dy, blurs it and
// composites black through it.
func drawShadow(dst *image.RGBA, face font.Face, runs []textRun, tracking fixed.Int26_6, dy, blur float64, alpha uint8) {
	r := int(math.Max(1, math.Round((math.Sqrt(1+4*(blur/2)*(blur/2))-1)/2)))
	mask := image.NewAlpha(dst.Bounds())
	shifted := make([]textRun, len(runs))
	for i, run := range runs {
		run.baseline += dy
		shifted[i] = run
	}
	drawRuns(mask, face, shifted, tracking, color.Opaque)

	b := mask.Bounds()
	for i := 0; i < 3; i++ {
		blurPlane(mask.Pix, b.Dx(), b.Dy(), mask.Stride, 1, r)
	}
	draw.DrawMask(dst, b, image.NewUniform(color.NRGBA{A: alpha}), image.Point{}, mask, b.Min, draw.Over)
}

func measure(face font.Face, s string, tracking fixed.Int26_6) fixed.Int26_6 {
	var w fixed.Int26_6
	prev := rune(-1)
	for _, ch := range s {
		if prev >= 0 {
			w += face.Kern(prev, ch) + tracking
		}
		adv, ok := face.GlyphAdvance(ch)
		if ok {
			w += adv
		}
		prev = ch
	}
	return w
}

// baseline centers the face's ascent+descent inside a line box.
func baseline(face font.Face, boxTop, boxH float64) float64 {
	m := face.Metrics()
	asc := fixedToFloat(m.Ascent)
	desc := fixedToFloat(m.Descent)
	return boxTop + (boxH-(asc+desc))/2 + asc
}

func fixedToFloat(v fixed.Int26_6) float64 { return float64(v) / 64 }

func floatToFixed(v float64) fixed.Int26_6 { return fixed.Int26_6(math.Round(v * 64)) }

// fitRect scales src into dst keeping its aspect ratio, centered. cover
// fills dst (cropping), otherwise src is contained. zoom enlarges the
// result around the center.
func fitRect(src, dst image.Rectangle, cover bool, zoom float64) image.Rectangle {
	sw, sh := float64(src.Dx()), float64(src.Dy())
	if sw == 0 || sh == 0 {
		return dst
	}
	dw, dh := float64(dst.Dx()), float64(dst.Dy())
	k := math.Min(dw/sw, dh/sh)
	if cover {
		k = math.Max(dw/sw, dh/sh)
	}
	k *= zoom
	w, h := sw*k, sh*k
	x := float64(dst.Min.X) + (dw-w)/2
	y := float64(dst.Min.Y) + (dh-h)/2
	return image.Rect(int(math.Round(x)), int(math.Round(y)), int(math.Round(x+w)), int(math.Round(y+h)))
}

// fillGradient blends stops over r. vertical runs top to bottom,
// otherwise the gradient runs diagonally from the top-left corner.
func fillGradient(dst *image.RGBA, r image.Rectangle, stops []gradientStop, vertical bool) {
	area := r.Intersect(dst.Bounds())
	if area.Empty() {
		return
	}
	w, h := float64(r.Dx()), float64(r.Dy())
	for y := area.Min.Y; y < area.Max.Y; y++ {
		for x := area.Min.X; x < area.Max.X; x++ {
			var t float64
			if vertical {
				t = (float64(y-r.Min.Y) + 0.5) / h
			} else {
				t = (float64(x-r.Min.X) + float64(y-r.Min.Y)) / (w + h)
			}
			blend(dst, x, y, sample(stops, t))
		}
	}
}

// blend composites c over the pixel at (x, y).
func blend(dst *image.RGBA, x, y int, c color.NRGBA) {
	if c.A == 0 {
		return
	}
	i := dst.PixOffset(x, y)
	a := uint32(c.A)
	inv := 255 - a
	p := dst.Pix[i : i+4 : i+4]
	p[0] = uint8((uint32(c.R)*a + uint32(p[0])*inv + 127) / 255)
	p[1] = uint8((uint32(c.G)*a + uint32(p[1])*inv + 127) / 255)
	p[2] = uint8((uint32(c.B)*a + uint32(p[2])*inv + 127) / 255)
	p[3] = uint8((a*255 + uint32(p[3])*inv + 127) / 255)
}

func sample(stops []gradientStop, t float64) color.NRGBA {
	if t <= stops[0].at {
		return stops[0].c
	}
	for i := 1; i < len(stops); i++ {
		if t <= stops[i].at {
			a, b := stops[i-1], stops[i]
			f := (t - a.at) / (b.at - a.at)
			lerp := func(x, y uint8) uint8 { return uint8(math.Round(float64(x) + (float64(y)-float64(x))*f)) }
			return color.NRGBA{R: lerp(a.c.R, b.c.R), G: lerp(a.c.G, b.c.G), B: lerp(a.c.B, b.c.B), A: lerp(a.c.A, b.c.A)}
		}
	}
	return stops[len(stops)-1].c
}

// pillMask is an anti-aliased capsule filling r.
func pillMask(r image.Rectangle) *image.Alpha {
	m := image.NewAlpha(r)
	rad := float64(r.Dy()) / 2
	cy := float64(r.Min.Y) + rad
	lx := float64(r.Min.X) + rad
	rx := float64(r.Max.X) - rad
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			px, py := float64(x)+0.5, float64(y)+0.5
			cx := math.Max(lx, math.Min(rx, px))
			d := math.Hypot(px-cx, py-cy)
			cov := math.Max(0, math.Min(1, rad-d+0.5))
			m.SetAlpha(x, y, color.Alpha{A: uint8(math.Round(cov * 255))})
		}
	}
	return m
}

// blurPlane runs one horizontal and one vertical box blur of radius r
// over interleaved 8-bit channels.
func blurPlane(pix []uint8, w, h, stride, channels, r int) {
	if w == 0 || h == 0 || r < 1 {
		return
	}
	buf := make([]int, max(w, h))
	for ch := 0; ch < channels; ch++ {
		for y := 0; y < h; y++ {
			boxLine(pix, buf[:w], y*stride+ch, channels, r)
		}
		for x := 0; x < w; x++ {
			boxLine(pix, buf[:h], x*channels+ch, stride, r)
		}
	}
}

// boxLine blurs len(buf) samples starting at base spaced step apart.
// Samples past either end repeat the edge value.
func boxLine(pix []uint8, buf []int, base, step, r int) {
	n := len(buf)
	for i := range buf {
		buf[i] = int(pix[base+i*step])
	}
	at := func(i int) int {
		return buf[min(max(i, 0), n-1)]
	}

	win := 2*r + 1
	sum := 0
	for i := -r; i <= r; i++ {
		sum += at(i)
	}
	for i := 0; i < n; i++ {
		pix[base+i*step] = uint8((sum + win/2) / win)
		sum += at(i+r+1) - at(i-r)
	}
}

package main

import (
	"flag"
	"fmt"
	"image"
	"image/color"
	"log"

	"github.com/cbegin/vosc-go"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
)

const (
	windowW    = 1100
	windowH    = 520
	minWindowW = 640
	minWindowH = 360

	textScale = 2
	lineH     = 14 * textScale
)

var (
	bgColor          = color.RGBA{192, 192, 192, 255}
	borderColor      = color.RGBA{128, 128, 128, 255}
	bevelLight       = color.RGBA{255, 255, 255, 255}
	bevelDarker      = color.RGBA{64, 64, 64, 255}
	scopeBgColor     = color.RGBA{0, 0, 0, 255}
	waveColor        = color.RGBA{80, 220, 120, 255}
	placeholderColor = color.RGBA{60, 40, 40, 255}
	cursorColor      = color.RGBA{255, 200, 40, 255}
	gridColor        = color.RGBA{40, 44, 58, 255}
)

type game struct {
	dev         *vosc.Device
	params      vosc.Params
	placeholder byte

	snapshot []byte
	cursor   int

	status    string
	statusErr bool

	textCache map[string]*ebiten.Image
	viewW     int
	viewH     int
}

func newGame(dev *vosc.Device, p vosc.Params, placeholder byte) *game {
	return &game{
		dev:         dev,
		params:      p,
		placeholder: placeholder,
		snapshot:    make([]byte, p.BufferBytes),
		status:      "Stopped - space to start, M to mute",
		textCache:   make(map[string]*ebiten.Image, 64),
		viewW:       windowW,
		viewH:       windowH,
	}
}

func (g *game) Update() error {
	if inpututil.IsKeyJustPressed(ebiten.KeySpace) {
		g.toggleRunning()
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyM) {
		g.dev.SetSynthEnabled(!g.dev.SynthEnabled())
	}
	_, g.cursor = g.dev.CopyBuffer(g.snapshot)
	return nil
}

func (g *game) toggleRunning() {
	var err error
	if g.dev.State() == vosc.StateRunning {
		err = g.dev.Stop()
	} else {
		err = g.dev.Start()
	}
	if err != nil {
		g.status = err.Error()
		g.statusErr = true
		return
	}
	g.statusErr = false
}

func (g *game) Draw(screen *ebiten.Image) {
	screen.Fill(bgColor)
	pad := 20
	statusH := 40
	scope := image.Rect(pad, pad, g.viewW-pad, g.viewH-2*pad-statusH)
	status := image.Rect(pad, g.viewH-pad-statusH, g.viewW-pad, g.viewH-pad)

	ebitenutil.DrawRect(screen, float64(scope.Min.X), float64(scope.Min.Y), float64(scope.Dx()), float64(scope.Dy()), scopeBgColor)
	drawSunkenBorder(screen, scope)
	g.drawBuffer(screen, scope.Inset(2))

	ebitenutil.DrawRect(screen, float64(status.Min.X), float64(status.Min.Y), float64(status.Dx()), float64(status.Dy()), bgColor)
	drawSunkenBorder(screen, status)
	g.drawText(screen, g.statusLine(), status.Min.X+8, status.Min.Y+(status.Dy()-lineH)/2)
}

func (g *game) statusLine() string {
	if g.statusErr {
		return g.status
	}
	mode := "synth"
	if !g.dev.SynthEnabled() {
		mode = "muted"
	}
	state := g.dev.State()
	if state != vosc.StateRunning {
		return fmt.Sprintf("%v  %s  cursor %d  periods %d  (space: start, M: mute)",
			state, mode, g.cursor, g.dev.PeriodsElapsed())
	}
	return fmt.Sprintf("%v  %s  cursor %d  silent %d  periods %d",
		state, mode, g.cursor, g.dev.SilentBytes(), g.dev.PeriodsElapsed())
}

// drawBuffer plots the raw buffer bytes, one column per x. Runs of
// placeholder bytes are shaded so the region not yet synthesized shows up.
func (g *game) drawBuffer(dst *ebiten.Image, rect image.Rectangle) {
	n := len(g.snapshot)
	width := rect.Dx()
	height := rect.Dy()
	if n == 0 || width <= 1 || height <= 1 {
		return
	}
	x0 := float64(rect.Min.X)
	y0 := float64(rect.Min.Y)
	midY := y0 + float64(height)/2
	ebitenutil.DrawRect(dst, x0, midY, float64(width), 1, gridColor)

	sampleY := func(b byte) float64 {
		var v float64
		if g.params.Format.Unsigned() {
			v = (float64(b) - 128) / 128
		} else {
			v = float64(int8(b)) / 128
		}
		return midY - v*float64(height)/2*0.95
	}

	var prevX, prevY float64
	for px := 0; px < width; px++ {
		i := px * n / width
		b := g.snapshot[i]
		x := x0 + float64(px)
		if b == g.placeholder {
			ebitenutil.DrawRect(dst, x, y0, 1, float64(height), placeholderColor)
		}
		y := sampleY(b)
		if px > 0 {
			ebitenutil.DrawLine(dst, prevX, prevY, x, y, waveColor)
		}
		prevX, prevY = x, y
	}

	cx := x0 + float64(g.cursor)*float64(width)/float64(n)
	ebitenutil.DrawRect(dst, cx, y0, 2, float64(height), cursorColor)
}

func (g *game) Layout(outsideW, outsideH int) (int, int) {
	g.viewW = max(outsideW, minWindowW)
	g.viewH = max(outsideH, minWindowH)
	return g.viewW, g.viewH
}

// drawSunkenBorder draws a sunken 3D bevel (shadow top/left, highlight bottom/right).
func drawSunkenBorder(screen *ebiten.Image, rect image.Rectangle) {
	x := float64(rect.Min.X)
	y := float64(rect.Min.Y)
	w := float64(rect.Dx())
	h := float64(rect.Dy())
	ebitenutil.DrawRect(screen, x, y, w-1, 1, borderColor)
	ebitenutil.DrawRect(screen, x, y+1, 1, h-2, borderColor)
	ebitenutil.DrawRect(screen, x, y+h-1, w, 1, bevelLight)
	ebitenutil.DrawRect(screen, x+w-1, y, 1, h, bevelLight)
	ebitenutil.DrawRect(screen, x+1, y+1, w-3, 1, bevelDarker)
	ebitenutil.DrawRect(screen, x+1, y+2, 1, h-4, bevelDarker)
}

func (g *game) drawText(screen *ebiten.Image, msg string, x int, y int) {
	if msg == "" {
		return
	}
	img := g.textCache[msg]
	if img == nil {
		w := max(1, len([]rune(msg))*7)
		img = ebiten.NewImage(w, 14)
		ebitenutil.DebugPrintAt(img, msg, 0, 0)
		if len(g.textCache) > 3000 {
			g.textCache = make(map[string]*ebiten.Image, 64)
		}
		g.textCache[msg] = img
	}
	op := &ebiten.DrawImageOptions{}
	op.GeoM.Scale(textScale, textScale)
	op.GeoM.Translate(float64(x), float64(y))
	if g.statusErr {
		op.ColorScale.Scale(1, 0.3, 0.3, 1)
	}
	screen.DrawImage(img, op)
}

func main() {
	def := vosc.DefaultParams()
	var (
		rate    = flag.Int("rate", def.Rate, "sample rate in Hz")
		period  = flag.Int("period", def.PeriodBytes, "period size in bytes")
		buffer  = flag.Int("buffer", def.BufferBytes, "buffer size in bytes")
		hz      = flag.Uint64("hz", 1000, "tick source frequency")
		sine    = flag.Int("sine", 0, "use a sine cycle of this many bytes instead of the stock waveform")
		verbose = flag.Bool("v", false, "trace device state changes")
	)
	flag.Parse()

	p, err := vosc.OpenConstraints().Negotiate(vosc.Params{
		Rate:        *rate,
		Channels:    1,
		Format:      vosc.FormatU8,
		PeriodBytes: *period,
		BufferBytes: *buffer,
	})
	if err != nil {
		log.Fatal(err)
	}

	opts := []vosc.Option{vosc.WithClock(vosc.NewSystemClock(*hz))}
	if *sine > 0 {
		opts = append(opts, vosc.WithSineWaveform(*sine, 128, 100))
	}
	if *verbose {
		opts = append(opts, vosc.WithLogger(log.Default()))
	}
	dev := vosc.New(opts...)
	if err := dev.Open(); err != nil {
		log.Fatal(err)
	}
	defer dev.Close()
	if err := dev.Prepare(p); err != nil {
		log.Fatal(err)
	}

	g := newGame(dev, p, vosc.DefaultPlaceholder)
	ebiten.SetWindowSize(windowW, windowH)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetWindowSizeLimits(minWindowW, minWindowH, -1, -1)
	ebiten.SetWindowTitle("vosc scope")
	if err := ebiten.RunGame(g); err != nil {
		log.Fatal(err)
	}
}

package main

import (
	"fmt"
	"image"
	"image/color"
	"log"
	"strings"

	laelia "github.com/donnybrilliant/Laelia"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
)

const (
	windowW      = 1060
	windowH      = 700
	minWindowW   = 900
	minWindowH   = 620
	uiSampleRate = 48000

	textScale = 2
	charW     = 7 * textScale
	lineH     = 14 * textScale
)

var (
	bgColor     = color.RGBA{192, 192, 192, 255}
	panelColor  = color.RGBA{192, 192, 192, 255}
	borderColor = color.RGBA{128, 128, 128, 255}
	activeColor = color.RGBA{0, 0, 128, 255}

	// 3D bevel colors for old-school embossed look.
	bevelLight  = color.RGBA{255, 255, 255, 255}
	bevelDarker = color.RGBA{64, 64, 64, 255}

	sunkenBgColor = color.RGBA{24, 24, 32, 255}

	sliderFillColor = color.RGBA{0, 0, 128, 255}

	whiteKeyColor     = color.RGBA{236, 236, 230, 255}
	whiteKeyHeldColor = color.RGBA{150, 190, 255, 255}
	blackKeyColor     = color.RGBA{30, 30, 36, 255}
	blackKeyHeldColor = color.RGBA{70, 110, 200, 255}
)

const scopeSamples = 1024

var modeNames = []string{"Poly", "Strum", "Arp", "Harp"}

var modeValues = []laelia.Mode{
	laelia.ModePoly, laelia.ModeStrum, laelia.ModeArp, laelia.ModeHarp,
}

var chordNames = []string{"Maj", "Min", "Dim", "Sus4"}

var chordValues = []laelia.ChordKind{
	laelia.ChordMaj, laelia.ChordMin, laelia.ChordDim, laelia.ChordSus,
}

var extNames = []string{"6", "7", "maj7", "9"}

var extValues = []laelia.Extension{
	laelia.Ext6, laelia.ExtM7, laelia.ExtMaj7, laelia.Ext9,
}

// qwertyKeys maps the playable ebiten keys to the code strings the
// engine's keyboard table uses.
var qwertyKeys = map[ebiten.Key]string{
	ebiten.KeyA: "KeyA", ebiten.KeyS: "KeyS", ebiten.KeyD: "KeyD",
	ebiten.KeyF: "KeyF", ebiten.KeyG: "KeyG", ebiten.KeyH: "KeyH",
	ebiten.KeyJ: "KeyJ", ebiten.KeyK: "KeyK",
	ebiten.KeyW: "KeyW", ebiten.KeyE: "KeyE", ebiten.KeyT: "KeyT",
	ebiten.KeyY: "KeyY", ebiten.KeyU: "KeyU",
}

const (
	dragNone = iota
	dragVolume
	dragTempo
	dragFx
	dragChordVoicing
	dragBassVoicing
	dragRootKey
	dragKeyboard
)

type game struct {
	eng *laelia.Engine

	dragging   int
	touchIDs   []ebiten.TouchID
	wasFocused bool
	wavePeak   float64

	scopeImg *ebiten.Image
	scopeW   int
	scopeH   int

	textCache map[string]*ebiten.Image
	viewW     int
	viewH     int
}

func newGame() (*game, error) {
	eng, err := laelia.New(uiSampleRate)
	if err != nil {
		return nil, err
	}
	return &game{
		eng:        eng,
		textCache:  make(map[string]*ebiten.Image, 512),
		wasFocused: true,
		viewW:      windowW,
		viewH:      windowH,
	}, nil
}

func (g *game) Update() error {
	g.handleFocus()
	g.handleQwerty()
	g.handleMouse()
	g.handleTouches()
	return nil
}

func (g *game) handleFocus() {
	focused := ebiten.IsFocused()
	if g.wasFocused && !focused {
		g.eng.Blur()
		g.dragging = dragNone
	}
	g.wasFocused = focused
}

func (g *game) handleQwerty() {
	for key, code := range qwertyKeys {
		if inpututil.IsKeyJustPressed(key) {
			g.firstGesture()
			g.eng.KeyboardDown(code)
		}
		if inpututil.IsKeyJustReleased(key) {
			g.eng.KeyboardUp(code)
		}
	}
}

// firstGesture runs in every input handler that can be the user's
// first interaction: the audio context must be created inside a
// gesture on some platforms.
func (g *game) firstGesture() {
	g.eng.Unlock()
	g.eng.EnsureReady()
}

func (g *game) handleMouse() {
	mx, my := ebiten.CursorPosition()
	l := g.layoutRects()

	if inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonLeft) {
		g.firstGesture()
		switch {
		case pointInRect(mx, my, l.keyboard):
			g.dragging = dragKeyboard
			g.pointerToKeyboard(mx, my, l.keyboard)
		case pointInRect(mx, my, l.volume):
			g.dragging = dragVolume
		case pointInRect(mx, my, l.tempo):
			g.dragging = dragTempo
		case pointInRect(mx, my, l.fx):
			g.dragging = dragFx
		case pointInRect(mx, my, l.chordVoicing):
			g.dragging = dragChordVoicing
		case pointInRect(mx, my, l.bassVoicing):
			g.dragging = dragBassVoicing
		case pointInRect(mx, my, l.rootKey):
			g.dragging = dragRootKey
		default:
			g.clickButtons(mx, my, l)
		}
	}

	if !ebiten.IsMouseButtonPressed(ebiten.MouseButtonLeft) {
		if g.dragging == dragKeyboard {
			g.eng.PointerUp(0)
		}
		g.dragging = dragNone
	}

	switch g.dragging {
	case dragKeyboard:
		g.pointerToKeyboard(mx, my, l.keyboard)
	case dragVolume:
		g.eng.SetVolume(sliderFrac(mx, l.volume))
	case dragTempo:
		g.eng.SetTempo(40 + sliderFrac(mx, l.tempo)*160)
	case dragFx:
		g.eng.SetFxMix(sliderFrac(mx, l.fx))
	case dragChordVoicing:
		g.eng.SetChordVoicing(sliderFrac(mx, l.chordVoicing))
	case dragBassVoicing:
		g.eng.SetBassVoicing(sliderFrac(mx, l.bassVoicing))
	case dragRootKey:
		g.eng.SetRootKey(int(sliderFrac(mx, l.rootKey)*11 + 0.5))
	}
}

func (g *game) clickButtons(mx, my int, l uiLayout) {
	for i, r := range l.modes {
		if pointInRect(mx, my, r) {
			g.eng.SetMode(modeValues[i])
			return
		}
	}
	for i, r := range l.chords {
		if pointInRect(mx, my, r) {
			g.eng.SetChordKind(chordValues[i])
			return
		}
	}
	for i, r := range l.exts {
		if pointInRect(mx, my, r) {
			g.eng.SetExtensions(g.eng.Extensions() ^ extValues[i])
			return
		}
	}
	if pointInRect(mx, my, l.timbre) {
		g.eng.SetTimbre((g.eng.Timbre() + 1) % laelia.TimbreCount())
	}
}

func (g *game) pointerToKeyboard(mx, my int, rect image.Rectangle) {
	g.eng.PointerMove(0,
		float64(mx-rect.Min.X), float64(my-rect.Min.Y),
		float64(rect.Dx()), float64(rect.Dy()))
}

func (g *game) handleTouches() {
	l := g.layoutRects()
	for _, id := range inpututil.AppendJustPressedTouchIDs(nil) {
		tx, ty := ebiten.TouchPosition(id)
		if pointInRect(tx, ty, l.keyboard) {
			g.firstGesture()
			g.eng.TouchDown(int(id),
				float64(tx-l.keyboard.Min.X), float64(ty-l.keyboard.Min.Y),
				float64(l.keyboard.Dx()), float64(l.keyboard.Dy()))
		}
	}
	g.touchIDs = ebiten.AppendTouchIDs(g.touchIDs[:0])
	for _, id := range g.touchIDs {
		if inpututil.TouchPressDuration(id) <= 1 {
			continue
		}
		tx, ty := ebiten.TouchPosition(id)
		g.eng.TouchMove(int(id),
			float64(tx-l.keyboard.Min.X), float64(ty-l.keyboard.Min.Y),
			float64(l.keyboard.Dx()), float64(l.keyboard.Dy()))
	}
	for _, id := range inpututil.AppendJustReleasedTouchIDs(nil) {
		g.eng.TouchUp(int(id))
	}
}

type uiLayout struct {
	modes  []image.Rectangle
	chords []image.Rectangle
	exts   []image.Rectangle
	timbre image.Rectangle

	volume, tempo, fx             image.Rectangle
	chordVoicing, bassVoicing     image.Rectangle
	rootKey                       image.Rectangle
	scope, keyboard, status       image.Rectangle
}

func (g *game) layoutRects() uiLayout {
	w := g.viewW
	h := g.viewH
	if w < minWindowW {
		w = minWindowW
	}
	if h < minWindowH {
		h = minWindowH
	}

	pad := 20
	rowH := 44
	gap := 10
	statusH := 40

	var l uiLayout

	// Row 1: mode buttons, chord kind buttons, timbre.
	y := pad
	x := pad
	for range modeNames {
		l.modes = append(l.modes, image.Rect(x, y, x+92, y+rowH))
		x += 92 + gap
	}
	x += 12
	for range chordNames {
		l.chords = append(l.chords, image.Rect(x, y, x+82, y+rowH))
		x += 82 + gap
	}
	x += 12
	l.timbre = image.Rect(x, y, x+150, y+rowH)

	// Row 2: extension toggles + root key slider.
	y += rowH + gap
	x = pad
	for range extNames {
		l.exts = append(l.exts, image.Rect(x, y, x+82, y+rowH))
		x += 82 + gap
	}
	x += 12
	l.rootKey = image.Rect(x, y, w-pad, y+rowH)

	// Row 3: volume, tempo, fx sliders.
	y += rowH + gap
	sliderW := (w - pad*2 - gap*2) / 3
	l.volume = image.Rect(pad, y, pad+sliderW, y+rowH)
	l.tempo = image.Rect(l.volume.Max.X+gap, y, l.volume.Max.X+gap+sliderW, y+rowH)
	l.fx = image.Rect(l.tempo.Max.X+gap, y, w-pad, y+rowH)

	// Row 4: voicing sliders.
	y += rowH + gap
	halfW := (w - pad*2 - gap) / 2
	l.chordVoicing = image.Rect(pad, y, pad+halfW, y+rowH)
	l.bassVoicing = image.Rect(l.chordVoicing.Max.X+gap, y, w-pad, y+rowH)

	// Bottom-up: status bar, then keyboard and scope fill the rest.
	statusTop := h - pad - statusH
	l.status = image.Rect(pad, statusTop, w-pad, statusTop+statusH)

	contentTop := y + rowH + 12
	contentBottom := statusTop - 12
	scopeH := 110
	keyTop := contentTop + scopeH + gap
	if keyTop > contentBottom-80 {
		scopeH = 60
		keyTop = contentTop + scopeH + gap
	}
	l.scope = image.Rect(pad, contentTop, w-pad, contentTop+scopeH)
	l.keyboard = image.Rect(pad, keyTop, w-pad, contentBottom)
	return l
}

func (g *game) Draw(screen *ebiten.Image) {
	screen.Fill(bgColor)
	l := g.layoutRects()

	mode := g.eng.Mode()
	for i, r := range l.modes {
		g.drawToggleButton(screen, r, modeNames[i], mode == modeValues[i])
	}
	kind := g.eng.ChordKind()
	for i, r := range l.chords {
		g.drawToggleButton(screen, r, chordNames[i], kind == chordValues[i])
	}
	exts := g.eng.Extensions()
	for i, r := range l.exts {
		g.drawToggleButton(screen, r, extNames[i], exts.Has(extValues[i]))
	}
	g.drawButton(screen, l.timbre, "Tone: "+laelia.TimbreName(g.eng.Timbre()))

	g.drawSlider(screen, l.volume, fmt.Sprintf("Vol %d%%", int(g.eng.Volume()*100+0.5)), g.eng.Volume())
	g.drawSlider(screen, l.tempo, fmt.Sprintf("Tempo %d", int(g.eng.Tempo()+0.5)), (g.eng.Tempo()-40)/160)
	g.drawSlider(screen, l.fx, fmt.Sprintf("FX %d%%", int(g.eng.FxMix()*100+0.5)), g.eng.FxMix())
	g.drawSlider(screen, l.chordVoicing, fmt.Sprintf("Voicing %d%%", int(g.eng.ChordVoicing()*100+0.5)), g.eng.ChordVoicing())
	g.drawSlider(screen, l.bassVoicing, fmt.Sprintf("Bass %d%%", int(g.eng.BassVoicing()*100+0.5)), g.eng.BassVoicing())
	g.drawSlider(screen, l.rootKey, "Key "+laelia.NoteName(g.eng.RootKey()), float64(g.eng.RootKey())/11)

	g.drawScope(screen, l.scope)
	g.drawKeyboard(screen, l.keyboard)
	g.drawStatus(screen, l.status)
}

func (g *game) drawKeyboard(screen *ebiten.Image, rect image.Rectangle) {
	g.drawSunkenPanel(screen, rect)

	inner := image.Rect(rect.Min.X+4, rect.Min.Y+4, rect.Max.X-4, rect.Max.Y-4)
	w := float64(inner.Dx())
	h := float64(inner.Dy())
	naturalW := w / 8

	held := make(map[int]bool)
	for _, k := range g.eng.HeldKeys() {
		held[k] = true
	}

	// Naturals first, accidentals drawn on top to match the hit-test
	// priority.
	for i := 0; i < 8; i++ {
		x := float64(inner.Min.X) + float64(i)*naturalW
		fill := whiteKeyColor
		if held[i] {
			fill = whiteKeyHeldColor
		}
		ebitenutil.DrawRect(screen, x+1, float64(inner.Min.Y), naturalW-2, h, fill)
		g.drawText(screen, laelia.KeyShortcut(i), int(x+naturalW/2)-charW/2, inner.Max.Y-lineH-6)
	}
	blackW := naturalW * 0.6
	blackH := h * 0.62
	accidentalAfter := [5]int{0, 1, 3, 4, 5}
	for i, after := range accidentalAfter {
		key := 8 + i
		center := float64(inner.Min.X) + naturalW*float64(after+1)
		fill := blackKeyColor
		if held[key] {
			fill = blackKeyHeldColor
		}
		ebitenutil.DrawRect(screen, center-blackW/2, float64(inner.Min.Y), blackW, blackH, fill)
		g.drawText(screen, laelia.KeyShortcut(key), int(center)-charW/2, inner.Min.Y+int(blackH)-lineH-6)
	}
}

func (g *game) drawScope(screen *ebiten.Image, rect image.Rectangle) {
	g.drawSunkenPanel(screen, rect)
	inner := image.Rect(rect.Min.X+8, rect.Min.Y+8, rect.Max.X-8, rect.Max.Y-8)
	width := inner.Dx()
	height := inner.Dy()
	if width <= 2 || height <= 4 {
		return
	}

	if g.scopeImg == nil || g.scopeW != width || g.scopeH != height {
		g.scopeW = width
		g.scopeH = height
		g.scopeImg = ebiten.NewImage(width, height)
	}
	g.scopeImg.Fill(color.RGBA{14, 16, 22, 255})

	samples := g.eng.Waveform(scopeSamples)
	midY := height / 2
	ebitenutil.DrawRect(g.scopeImg, 0, float64(midY), float64(width), 1, color.RGBA{40, 44, 58, 100})

	// Auto-gain: track peak with fast attack, slow release.
	peak := float32(0)
	for _, s := range samples {
		if s < 0 {
			s = -s
		}
		if s > peak {
			peak = s
		}
	}
	target := float64(peak)
	if target < 0.01 {
		target = 0.01
	}
	if target > g.wavePeak {
		g.wavePeak = g.wavePeak*0.3 + target*0.7
	} else {
		g.wavePeak = g.wavePeak*0.995 + target*0.005
	}
	if g.wavePeak < 0.01 {
		g.wavePeak = 0.01
	}
	gain := float64(midY-2) / g.wavePeak

	// Zero-crossing trigger stabilizes the display.
	trigger := findZeroCrossing(samples, len(samples)/4)
	visible := len(samples) - trigger
	if visible < 2 {
		visible = 2
	}
	waveColor := color.RGBA{80, 200, 255, 220}
	prevX := 0
	prevY := midY - int(float64(samples[trigger])*gain)
	for px := 1; px < width; px++ {
		si := trigger + px*visible/width
		if si >= len(samples) {
			si = len(samples) - 1
		}
		y := midY - int(float64(samples[si])*gain)
		ebitenutil.DrawLine(g.scopeImg, float64(prevX), float64(prevY), float64(px), float64(y), waveColor)
		prevX = px
		prevY = y
	}

	op := &ebiten.DrawImageOptions{}
	op.GeoM.Translate(float64(inner.Min.X), float64(inner.Min.Y))
	screen.DrawImage(g.scopeImg, op)
}

func findZeroCrossing(samples []float32, searchLen int) int {
	if searchLen > len(samples)-2 {
		searchLen = len(samples) - 2
	}
	for i := 1; i < searchLen; i++ {
		if samples[i-1] <= 0 && samples[i] > 0 {
			return i
		}
	}
	return 0
}

func (g *game) drawStatus(screen *ebiten.Image, rect image.Rectangle) {
	g.drawSunkenPanel(screen, rect)
	msg := "Press a key or click the keyboard to play"
	if label := g.eng.ChordLabel(); label != "" {
		var names []string
		for _, p := range g.eng.ActivePitches() {
			names = append(names, p.Name)
		}
		msg = label
		if len(names) > 0 {
			msg += "   " + strings.Join(names, " ")
		}
	}
	maxChars := max(8, (rect.Dx()-16)/charW)
	g.drawText(screen, shortenEnd(msg, maxChars), rect.Min.X+8, rect.Min.Y+6)
}

func (g *game) drawSlider(screen *ebiten.Image, rect image.Rectangle, label string, frac float64) {
	g.drawPanel(screen, rect)
	g.drawText(screen, label, rect.Min.X+8, rect.Min.Y+8)

	trackX := rect.Min.X + 150
	trackW := rect.Dx() - 166
	trackY := rect.Min.Y + rect.Dy()/2 - 4
	if trackW < 20 {
		return
	}
	// Sunken track groove.
	ebitenutil.DrawRect(screen, float64(trackX), float64(trackY), float64(trackW), 8, bevelDarker)
	ebitenutil.DrawRect(screen, float64(trackX), float64(trackY), float64(trackW-1), 1, borderColor)
	ebitenutil.DrawRect(screen, float64(trackX), float64(trackY), 1, 7, borderColor)
	fillW := int(float64(trackW) * clamp01(frac))
	if fillW > 2 {
		ebitenutil.DrawRect(screen, float64(trackX+1), float64(trackY+1), float64(fillW-1), 6, sliderFillColor)
	}
	knobX := trackX + fillW - 5
	if knobX < trackX-5 {
		knobX = trackX - 5
	}
	if knobX > trackX+trackW-5 {
		knobX = trackX + trackW - 5
	}
	knobRect := image.Rect(knobX, trackY-4, knobX+10, trackY+12)
	ebitenutil.DrawRect(screen, float64(knobRect.Min.X), float64(knobRect.Min.Y), float64(knobRect.Dx()), float64(knobRect.Dy()), panelColor)
	drawBorder(screen, knobRect)
}

func sliderFrac(mx int, rect image.Rectangle) float64 {
	trackX := rect.Min.X + 150
	trackW := rect.Dx() - 166
	if trackW <= 0 {
		return 0
	}
	return clamp01(float64(mx-trackX) / float64(trackW))
}

func (g *game) drawButton(screen *ebiten.Image, rect image.Rectangle, label string) {
	ebitenutil.DrawRect(screen, float64(rect.Min.X), float64(rect.Min.Y), float64(rect.Dx()), float64(rect.Dy()), panelColor)
	drawBorder(screen, rect)
	labelW := len([]rune(label)) * charW
	x := rect.Min.X + (rect.Dx()-labelW)/2
	y := rect.Min.Y + (rect.Dy()-lineH)/2
	g.drawText(screen, label, x, y)
}

func (g *game) drawToggleButton(screen *ebiten.Image, rect image.Rectangle, label string, active bool) {
	fill := panelColor
	if active {
		fill = activeColor
	}
	ebitenutil.DrawRect(screen, float64(rect.Min.X), float64(rect.Min.Y), float64(rect.Dx()), float64(rect.Dy()), fill)
	drawBorder(screen, rect)
	labelW := len([]rune(label)) * charW
	x := rect.Min.X + (rect.Dx()-labelW)/2
	y := rect.Min.Y + (rect.Dy()-lineH)/2
	g.drawText(screen, label, x, y)
}

func (g *game) drawPanel(screen *ebiten.Image, rect image.Rectangle) {
	ebitenutil.DrawRect(screen, float64(rect.Min.X), float64(rect.Min.Y), float64(rect.Dx()), float64(rect.Dy()), panelColor)
	drawBorder(screen, rect)
}

func (g *game) drawSunkenPanel(screen *ebiten.Image, rect image.Rectangle) {
	ebitenutil.DrawRect(screen, float64(rect.Min.X), float64(rect.Min.Y), float64(rect.Dx()), float64(rect.Dy()), sunkenBgColor)
	drawSunkenBorder(screen, rect)
}

// drawBorder draws a raised 3D bevel (highlight top/left, shadow bottom/right).
func drawBorder(screen *ebiten.Image, rect image.Rectangle) {
	x := float64(rect.Min.X)
	y := float64(rect.Min.Y)
	w := float64(rect.Dx())
	h := float64(rect.Dy())
	ebitenutil.DrawRect(screen, x, y, w-1, 1, bevelLight)
	ebitenutil.DrawRect(screen, x, y+1, 1, h-2, bevelLight)
	ebitenutil.DrawRect(screen, x, y+h-1, w, 1, bevelDarker)
	ebitenutil.DrawRect(screen, x+w-1, y, 1, h, bevelDarker)
	ebitenutil.DrawRect(screen, x+1, y+h-2, w-3, 1, borderColor)
	ebitenutil.DrawRect(screen, x+w-2, y+1, 1, h-3, borderColor)
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
		if len(g.textCache) > 2000 {
			g.textCache = make(map[string]*ebiten.Image, 512)
		}
		g.textCache[msg] = img
	}
	opS := &ebiten.DrawImageOptions{}
	opS.GeoM.Scale(textScale, textScale)
	opS.GeoM.Translate(float64(x+2), float64(y+2))
	opS.ColorScale.Scale(0, 0, 0, 1)
	screen.DrawImage(img, opS)
	op := &ebiten.DrawImageOptions{}
	op.GeoM.Scale(textScale, textScale)
	op.GeoM.Translate(float64(x), float64(y))
	screen.DrawImage(img, op)
}

func (g *game) Layout(outsideW, outsideH int) (int, int) {
	if outsideW < minWindowW {
		outsideW = minWindowW
	}
	if outsideH < minWindowH {
		outsideH = minWindowH
	}
	g.viewW = outsideW
	g.viewH = outsideH
	return outsideW, outsideH
}

func shortenEnd(s string, maxChars int) string {
	r := []rune(s)
	if len(r) <= maxChars {
		return s
	}
	if maxChars <= 3 {
		return string(r[:max(0, maxChars)])
	}
	return string(r[:maxChars-3]) + "..."
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func pointInRect(x, y int, rect image.Rectangle) bool {
	return x >= rect.Min.X && x < rect.Max.X && y >= rect.Min.Y && y < rect.Max.Y
}

func main() {
	g, err := newGame()
	if err != nil {
		log.Fatal(err)
	}
	defer g.eng.Dispose()

	ebiten.SetWindowSize(windowW, windowH)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetWindowSizeLimits(minWindowW, minWindowH, -1, -1)
	ebiten.SetWindowTitle("laelia")
	if err := ebiten.RunGame(g); err != nil {
		log.Fatal(err)
	}
}

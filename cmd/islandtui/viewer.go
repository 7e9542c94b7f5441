package main

import (
	"fmt"
	"math"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/gekko3d/island/sim"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/lucasb-eyer/go-colorful"
)

const (
	// Terminals report no key-up, so a key counts as held until it stops repeating.
	holdTimeout = 150 * time.Millisecond
	maxDelta    = 0.25

	skyRows   = 6
	chartRows = 8
	boatBaseY = -2
)

var (
	textStyle  = tcell.StyleDefault.Foreground(tcell.ColorWhite)
	labelStyle = tcell.StyleDefault.Foreground(tcell.ColorGray)
	sunStyle   = tcell.StyleDefault.Foreground(tcell.ColorYellow)
)

// viewer drives the frame updater without a window and paints the state as text.
type viewer struct {
	updater *sim.Updater
	state   sim.State
	locked  bool
	held    map[rune]time.Time
	last    time.Time
}

func newViewer(updater *sim.Updater, now time.Time) *viewer {
	state := updater.NewState()
	// No models are loaded here, so the boat bobs around its scene height.
	state.MarkBoat(true, boatBaseY)
	return &viewer{
		updater: updater,
		state:   state,
		held:    make(map[rune]time.Time),
		last:    now,
	}
}

// handleKey applies a key event and reports whether the viewer should quit.
func (v *viewer) handleKey(ev *tcell.EventKey, now time.Time) bool {
	switch ev.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return true
	case tcell.KeyRune:
	default:
		return false
	}
	r := ev.Rune()
	if r >= 'A' && r <= 'Z' {
		r += 'a' - 'A'
	}
	switch r {
	case 'q':
		return true
	case 'l':
		v.locked = !v.locked
		clear(v.held)
	case 'w', 'a', 's', 'd', ' ':
		v.held[r] = now
	}
	return false
}

func (v *viewer) down(r rune, now time.Time) bool {
	at, ok := v.held[r]
	if !ok {
		return false
	}
	if now.Sub(at) > holdTimeout {
		delete(v.held, r)
		return false
	}
	return true
}

func (v *viewer) input(now time.Time) sim.Input {
	return sim.Input{
		Forward:     v.down('w', now),
		Backward:    v.down('s', now),
		Left:        v.down('a', now),
		Right:       v.down('d', now),
		FastForward: v.down(' ', now),
		Locked:      v.locked,
	}
}

func (v *viewer) step(now time.Time) {
	dt := now.Sub(v.last).Seconds()
	v.last = now
	dt = math.Min(maxDelta, math.Max(0, dt))
	v.state = v.updater.Update(v.state, dt, v.input(now))
}

func toTcell(c colorful.Color) tcell.Color {
	r, g, b := c.Clamped().RGB255()
	return tcell.NewRGBColor(int32(r), int32(g), int32(b))
}

func drawText(s tcell.Screen, x, y int, text string, style tcell.Style) {
	for _, r := range text {
		s.SetContent(x, y, r, nil, style)
		x++
	}
}

func (v *viewer) draw(s tcell.Screen, now time.Time) {
	s.Clear()
	w, h := s.Size()
	if w <= 0 || h <= 0 {
		return
	}

	v.drawSky(s, w)
	v.drawStatus(s, now)
	v.drawSmoke(s, w, h)
	s.Show()
}

func (v *viewer) drawSky(s tcell.Screen, w int) {
	band := tcell.StyleDefault.Background(toTcell(v.state.Sky))
	for y := 0; y < skyRows; y++ {
		for x := 0; x < w; x++ {
			s.SetContent(x, y, ' ', nil, band)
		}
	}

	col, row, up := sunCell(v.state.SunPosition, v.updater.Config().SunRadius, w)
	if up {
		s.SetContent(col, row, 'O', nil, sunStyle.Background(toTcell(v.state.Sky)))
	}
}

// sunCell maps the sun's arc onto the sky band. The sun is hidden below the horizon.
func sunCell(pos mgl32.Vec3, radius float32, w int) (col, row int, up bool) {
	if pos.Y() <= 0 || radius <= 0 || w <= 0 {
		return 0, 0, false
	}
	fx := (pos.X()/radius + 1) / 2
	col = min(w-1, max(0, int(fx*float32(w-1)+0.5)))
	row = min(skyRows-1, max(0, int((1-pos.Y()/radius)*(skyRows-1)+0.5)))
	return col, row, true
}

func (v *viewer) statusLines(now time.Time) []string {
	st := v.state
	clock := st.Clock()
	if v.down(' ', now) {
		clock += " >>"
	}
	lock := "released (l to lock)"
	if v.locked {
		lock = "locked (l to release)"
	}
	boat := st.Boat.Status.String()
	if st.Boat.Ready() {
		boat = fmt.Sprintf("%s offset %+.2f", boat, st.Boat.Offset)
	}
	live := 0
	for _, p := range st.Smoke {
		if p.Opacity > 0 {
			live++
		}
	}
	cam, sun := st.Camera.Position, st.SunPosition
	return []string{
		"time     " + clock,
		fmt.Sprintf("ambient  %.2f", st.Ambient),
		fmt.Sprintf("sun      %.1f %.1f %.1f", sun.X(), sun.Y(), sun.Z()),
		fmt.Sprintf("camera   %.2f %.2f %.2f", cam.X(), cam.Y(), cam.Z()),
		"boat     " + boat,
		fmt.Sprintf("smoke    %d live", live),
		"pointer  " + lock,
	}
}

func (v *viewer) drawStatus(s tcell.Screen, now time.Time) {
	for i, line := range v.statusLines(now) {
		drawText(s, 1, skyRows+1+i, line[:9], labelStyle)
		drawText(s, 10, skyRows+1+i, line[9:], textStyle)
	}
}

// smokeBar is the bar height in rows for a particle, scaled against the highest a
// particle can climb before it fades out.
func smokeBar(p sim.SmokeParticle, cfg sim.Config, rows int) int {
	if p.Opacity <= 0 || cfg.SmokeFade <= 0 {
		return 0
	}
	ceiling := cfg.SmokeJitter.Y() + cfg.SmokeRise*cfg.SmokeInitialOpacity/cfg.SmokeFade
	if ceiling <= 0 {
		return rows
	}
	frac := (p.Position.Y() - cfg.SmokeOrigin.Y()) / ceiling
	return min(rows, max(1, int(math.Ceil(float64(frac)*float64(rows)))))
}

func (v *viewer) drawSmoke(s tcell.Screen, w, h int) {
	base := h - 1
	top := base - chartRows
	if top <= skyRows+8 {
		return
	}
	drawText(s, 1, top, "smoke height", labelStyle)
	cfg := v.updater.Config()
	for i, p := range v.state.Smoke {
		x := 1 + i*2
		if x >= w {
			break
		}
		grey := int32(80 + 175*min(1, p.Opacity/cfg.SmokeInitialOpacity))
		style := tcell.StyleDefault.Foreground(tcell.NewRGBColor(grey, grey, grey))
		for y := 0; y < smokeBar(p, cfg, chartRows); y++ {
			s.SetContent(x, base-y, '█', nil, style)
		}
	}
}

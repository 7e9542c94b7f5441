package island

import (
	"testing"
	"time"

	"github.com/gekko3d/island/sim"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/font/basicfont"
)

func TestTextRenderer_AtlasCoversPrintableASCII(t *testing.T) {
	tr := NewTextRenderer(basicfont.Face7x13)

	for r := rune(32); r < 127; r++ {
		_, ok := tr.Glyphs[r]
		assert.True(t, ok, "glyph %q", r)
	}

	g := tr.Glyphs['A']
	assert.Equal(t, [2]float32{7, 13}, g.Size)
	assert.Equal(t, float32(7), g.Adv)
	for _, uv := range [][2]float32{g.UVMin, g.UVMax} {
		assert.True(t, uv[0] >= 0 && uv[0] <= 1 && uv[1] >= 0 && uv[1] <= 1)
	}

	inked := 0
	for _, px := range tr.AtlasImage.Pix {
		if px > 0 {
			inked++
		}
	}
	assert.Positive(t, inked)
}

func TestTextRenderer_BuildVertices(t *testing.T) {
	tr := NewTextRenderer(basicfont.Face7x13)

	verts := tr.BuildVertices([]TextItem{
		{Text: "12:00", Position: [2]float32{0, 0}, Scale: 1, Color: hudWhite},
	}, 640, 480)
	require.Len(t, verts, 5*6)

	for _, v := range verts {
		assert.GreaterOrEqual(t, v.Pos[0], float32(-1))
		assert.LessOrEqual(t, v.Pos[0], float32(1))
		assert.GreaterOrEqual(t, v.Pos[1], float32(-1))
		assert.LessOrEqual(t, v.Pos[1], float32(1))
		assert.Equal(t, hudWhite, v.Color)
	}
	assert.InDelta(t, -1, verts[0].Pos[0], 1e-6, "first glyph starts at the left edge")
	assert.InDelta(t, 1, verts[0].Pos[1], 1e-6, "and at the top edge")

	assert.Empty(t, tr.BuildVertices([]TextItem{{Text: "x", Scale: 1}}, 0, 0))
}

func TestTextRenderer_MeasureText(t *testing.T) {
	tr := NewTextRenderer(basicfont.Face7x13)
	assert.Equal(t, float32(7*5*2), tr.MeasureText("hello", 2))
	assert.Zero(t, tr.MeasureText("", 1))
}

func newTestHUD() *HUD {
	return &HUD{Text: NewTextRenderer(basicfont.Face7x13), Width: 800, Height: 600}
}

func hudTexts(items []TextItem) []string {
	texts := make([]string, 0, len(items))
	for _, item := range items {
		texts = append(texts, item.Text)
	}
	return texts
}

func TestHudItems(t *testing.T) {
	hud := newTestHUD()
	state := sim.State{TimeOfDay: 0.5}

	items := hudItems(hud, state, sim.Input{})
	assert.Equal(t, []string{"12:00", lockHint}, hudTexts(items))

	hint := items[1]
	width := hud.Text.MeasureText(lockHint, hudScale)
	assert.InDelta(t, (800-width)/2, hint.Position[0], 1e-3, "hint is centered")
	assert.Greater(t, hint.Position[1], float32(500))

	items = hudItems(hud, state, sim.Input{Locked: true, FastForward: true})
	assert.Equal(t, []string{"12:00", ">>"}, hudTexts(items))
	assert.Greater(t, items[1].Position[0], items[0].Position[0])
}

func TestHudItems_Debug(t *testing.T) {
	hud := newTestHUD()
	hud.ShowDebug = true
	items := hudItems(hud, sim.State{}, sim.Input{Locked: true})
	require.Len(t, items, 2)
	assert.Contains(t, items[1].Text, "boat pending")
}

func TestHUDModule_ToggleDebugAndTrackClock(t *testing.T) {
	clock := &testClock{now: time.Unix(100, 0)}
	app := NewAppBuilder().UseModules(
		TimeModule{Now: clock.Now},
		headlessInputModule{},
		FrameModule{Config: sim.DefaultConfig(), Seed: 3},
		PointerLockModule{},
		HUDModule{},
	).Build()

	input := Resource[Input](app)
	hud := Resource[HUD](app)

	runFrames(app, clock, 1)
	require.NotEmpty(t, hud.Items)
	assert.Equal(t, Resource[sim.State](app).Clock(), hud.Items[0].Text)
	assert.False(t, hud.ShowDebug)

	input.setButton(KeyF3, true)
	runFrames(app, clock, 1)
	assert.True(t, hud.ShowDebug)

	input.setButton(KeyF3, true)
	runFrames(app, clock, 1)
	assert.True(t, hud.ShowDebug, "held key toggles once")
}

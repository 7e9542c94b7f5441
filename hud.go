package island

import (
	"fmt"
	"image"
	"image/draw"

	"github.com/gekko3d/island/sim"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

type TextVertex struct {
	Pos   [2]float32 `gekko:"layout" location:"0" format:"float2"`
	UV    [2]float32 `gekko:"layout" location:"1" format:"float2"`
	Color [4]float32 `gekko:"layout" location:"2" format:"float4"`
}

type TextItem struct {
	Text     string
	Position [2]float32 // pixels from the top-left corner
	Scale    float32
	Color    [4]float32
}

type GlyphInfo struct {
	UVMin [2]float32
	UVMax [2]float32
	Size  [2]float32
	Off   [2]float32
	Adv   float32
}

// TextRenderer rasterizes the printable ASCII range of a face into a single-channel
// atlas and lays out quads against it.
type TextRenderer struct {
	AtlasImage *image.Alpha
	Glyphs     map[rune]GlyphInfo
	Face       font.Face
}

const atlasSize = 256

func NewTextRenderer(face font.Face) *TextRenderer {
	atlas := image.NewAlpha(image.Rect(0, 0, atlasSize, atlasSize))
	glyphs := make(map[rune]GlyphInfo)

	x, y := 2, 2
	rowHeight := 0

	for r := rune(32); r < 127; r++ {
		bounds, mask, maskp, adv, ok := face.Glyph(fixed.Point26_6{}, r)
		if !ok {
			continue
		}

		w := bounds.Dx()
		h := bounds.Dy()

		if x+w >= atlasSize {
			x = 2
			y += rowHeight + 4
			rowHeight = 0
		}
		if y+h >= atlasSize {
			break
		}

		draw.Draw(atlas, image.Rect(x, y, x+w, y+h), mask, maskp, draw.Src)

		glyphs[r] = GlyphInfo{
			UVMin: [2]float32{float32(x) / atlasSize, float32(y) / atlasSize},
			UVMax: [2]float32{float32(x+w) / atlasSize, float32(y+h) / atlasSize},
			Size:  [2]float32{float32(w), float32(h)},
			Off:   [2]float32{float32(bounds.Min.X), float32(bounds.Min.Y)},
			Adv:   float32(adv) / 64.0, // fixed 26.6
		}

		x += w + 4
		if h > rowHeight {
			rowHeight = h
		}
	}

	return &TextRenderer{
		AtlasImage: atlas,
		Glyphs:     glyphs,
		Face:       face,
	}
}

// BuildVertices lays out items as two triangles per glyph in normalized device
// coordinates for a screen of the given size.
func (tr *TextRenderer) BuildVertices(items []TextItem, screenW, screenH int) []TextVertex {
	vertices := make([]TextVertex, 0, len(items)*6)
	if screenW <= 0 || screenH <= 0 {
		return vertices
	}

	sw := float32(screenW)
	sh := float32(screenH)
	ascent := float32(tr.Face.Metrics().Ascent.Ceil())

	for _, item := range items {
		posX := item.Position[0]
		posY := item.Position[1] + ascent*item.Scale

		for _, r := range item.Text {
			g, ok := tr.Glyphs[r]
			if !ok {
				continue
			}

			x0 := (posX+g.Off[0]*item.Scale)/sw*2.0 - 1.0
			y0 := 1.0 - (posY+g.Off[1]*item.Scale)/sh*2.0
			x1 := (posX+(g.Off[0]+g.Size[0])*item.Scale)/sw*2.0 - 1.0
			y1 := 1.0 - (posY+(g.Off[1]+g.Size[1])*item.Scale)/sh*2.0

			vertices = append(vertices,
				TextVertex{Pos: [2]float32{x0, y0}, UV: [2]float32{g.UVMin[0], g.UVMin[1]}, Color: item.Color},
				TextVertex{Pos: [2]float32{x1, y0}, UV: [2]float32{g.UVMax[0], g.UVMin[1]}, Color: item.Color},
				TextVertex{Pos: [2]float32{x0, y1}, UV: [2]float32{g.UVMin[0], g.UVMax[1]}, Color: item.Color},
				TextVertex{Pos: [2]float32{x1, y0}, UV: [2]float32{g.UVMax[0], g.UVMin[1]}, Color: item.Color},
				TextVertex{Pos: [2]float32{x1, y1}, UV: [2]float32{g.UVMax[0], g.UVMax[1]}, Color: item.Color},
				TextVertex{Pos: [2]float32{x0, y1}, UV: [2]float32{g.UVMin[0], g.UVMax[1]}, Color: item.Color},
			)

			posX += g.Adv * item.Scale
		}
	}

	return vertices
}

func (tr *TextRenderer) MeasureText(text string, scale float32) float32 {
	width := float32(0)
	for _, r := range text {
		if g, ok := tr.Glyphs[r]; ok {
			width += g.Adv * scale
		}
	}
	return width
}

const (
	hudScale  = 2
	hudMargin = 12
)

var (
	hudWhite  = [4]float32{1, 1, 1, 1}
	hudYellow = [4]float32{1, 0.85, 0.2, 1}
	hudGrey   = [4]float32{0.85, 0.85, 0.85, 0.9}
)

const lockHint = "Click to look around - WASD move - Space fast-forward - Esc release"

// HUD is the text overlay drawn over the scene.
type HUD struct {
	Text      *TextRenderer
	ShowDebug bool
	Items     []TextItem
	// Width and Height are the surface size in pixels, kept current by the renderer.
	Width, Height int
}

// HUDModule lays out the clock, fast-forward marker and pointer-lock hint each frame.
// F3 toggles a debug line.
type HUDModule struct {
	ShowDebug bool
}

func (m HUDModule) Install(app *App, cmd *Commands) {
	cmd.AddResources(&HUD{
		Text:      NewTextRenderer(basicfont.Face7x13),
		ShowDebug: m.ShowDebug,
		Width:     1280,
		Height:    720,
	})
	app.UseSystem(
		System(hudSystem).
			InStage(PostUpdate).
			RunAlways(),
	)
}

func hudSystem(hud *HUD, input *Input, state *sim.State, frameIn *sim.Input) {
	if input.JustPressed[KeyF3] {
		hud.ShowDebug = !hud.ShowDebug
	}
	hud.Items = hudItems(hud, *state, *frameIn)
}

func hudItems(hud *HUD, state sim.State, in sim.Input) []TextItem {
	items := []TextItem{
		{Text: state.Clock(), Position: [2]float32{hudMargin, hudMargin}, Scale: hudScale, Color: hudWhite},
	}
	if in.FastForward {
		x := hudMargin + hud.Text.MeasureText(state.Clock()+" ", hudScale)
		items = append(items, TextItem{Text: ">>", Position: [2]float32{x, hudMargin}, Scale: hudScale, Color: hudYellow})
	}

	lineHeight := float32(hud.Text.Face.Metrics().Height.Ceil()) * hudScale
	if !in.Locked {
		w := hud.Text.MeasureText(lockHint, hudScale)
		items = append(items, TextItem{
			Text:     lockHint,
			Position: [2]float32{(float32(hud.Width) - w) / 2, float32(hud.Height) - hudMargin - lineHeight},
			Scale:    hudScale,
			Color:    hudGrey,
		})
	}

	if hud.ShowDebug {
		pos := state.Camera.Position
		items = append(items, TextItem{
			Text: fmt.Sprintf("cam %.1f %.1f %.1f  ambient %.2f  boat %s  smoke %d",
				pos.X(), pos.Y(), pos.Z(), state.Ambient, state.Boat.Status, len(state.Smoke)),
			Position: [2]float32{hudMargin, hudMargin + lineHeight + 4},
			Scale:    1,
			Color:    hudGrey,
		})
	}
	return items
}

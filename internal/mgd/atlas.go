package mgd

import (
	"fmt"
	"image"

	xdraw "golang.org/x/image/draw"

	"github.com/ossyrian/fjsysparse/internal/fjsys"
)

// ReadAtlas reads the sprite rectangles that follow the content region.
// It returns nil if the asset has no room for a sprite count, and never
// reads rectangles past the end of the asset even if the count claims more.
func ReadAtlas(asset []byte, h fjsys.AssetHeader) []fjsys.SpriteRect {
	end := int64(len(asset))
	countOff := h.ContentEnd() + fjsys.SpriteCountOffset
	if countOff+2 > end {
		return nil
	}

	count, _ := fjsys.Uint16At(asset, int(countOff))

	rectsOff := h.ContentEnd() + fjsys.SpriteRectsOffset
	available := max(0, end-rectsOff) / fjsys.SpriteRectSize
	n := min(int64(count), available)

	rects := make([]fjsys.SpriteRect, 0, n)
	for i := range n {
		off := int(rectsOff + i*fjsys.SpriteRectSize)
		var r fjsys.SpriteRect
		r.OriginX, _ = fjsys.Int16At(asset, off)
		r.OriginY, _ = fjsys.Int16At(asset, off+2)
		r.Width, _ = fjsys.Uint16At(asset, off+4)
		r.Height, _ = fjsys.Uint16At(asset, off+6)
		rects = append(rects, r)
	}
	return rects
}

// Sprite is one image cut from a canvas.
type Sprite struct {
	// Number is the 1-based position of the rectangle in the atlas,
	// or 0 for a full sheet.
	Number int
	Image  *image.NRGBA
}

// SkippedSprite is a rectangle that did not fit the canvas.
type SkippedSprite struct {
	Number int
	Rect   fjsys.SpriteRect
	Reason error
}

// Sheet is the result of slicing a canvas.
type Sheet struct {
	// Full is set when the canvas is emitted as a single image.
	Full    bool
	Sprites []Sprite
	Skipped []SkippedSprite
}

// Slice cuts canvas into sprites.
//
// With no rectangles, or a single rectangle covering exactly the whole canvas,
// the canvas is returned as one full-sheet sprite. Otherwise every valid
// rectangle becomes a sprite numbered by its position in rects; invalid ones
// are reported in Skipped.
func Slice(canvas *image.NRGBA, rects []fjsys.SpriteRect) Sheet {
	bounds := canvas.Bounds()

	if len(rects) == 0 || (len(rects) == 1 && coversCanvas(rects[0], bounds)) {
		return Sheet{Full: true, Sprites: []Sprite{{Number: 0, Image: canvas}}}
	}

	var sheet Sheet
	for i, r := range rects {
		number := i + 1
		if err := validateRect(r, bounds); err != nil {
			sheet.Skipped = append(sheet.Skipped, SkippedSprite{Number: number, Rect: r, Reason: err})
			continue
		}
		sheet.Sprites = append(sheet.Sprites, Sprite{Number: number, Image: crop(canvas, r)})
	}
	return sheet
}

func coversCanvas(r fjsys.SpriteRect, bounds image.Rectangle) bool {
	return r.OriginX == 0 && r.OriginY == 0 &&
		int(r.Width) == bounds.Dx() && int(r.Height) == bounds.Dy()
}

func validateRect(r fjsys.SpriteRect, bounds image.Rectangle) error {
	if r.Width == 0 || r.Height == 0 {
		return fmt.Errorf("non-positive size %dx%d", r.Width, r.Height)
	}
	if r.OriginX < 0 || r.OriginY < 0 {
		return fmt.Errorf("negative origin (%d, %d)", r.OriginX, r.OriginY)
	}
	if int(r.OriginX)+int(r.Width) > bounds.Dx() || int(r.OriginY)+int(r.Height) > bounds.Dy() {
		return fmt.Errorf("rect (%d, %d) %dx%d exceeds canvas %dx%d",
			r.OriginX, r.OriginY, r.Width, r.Height, bounds.Dx(), bounds.Dy())
	}
	return nil
}

// crop copies r out of canvas into a new image anchored at the origin.
func crop(canvas *image.NRGBA, r fjsys.SpriteRect) *image.NRGBA {
	src := image.Rect(int(r.OriginX), int(r.OriginY), int(r.OriginX)+int(r.Width), int(r.OriginY)+int(r.Height)).
		Add(canvas.Bounds().Min)
	dst := image.NewNRGBA(image.Rect(0, 0, src.Dx(), src.Dy()))
	xdraw.Draw(dst, dst.Bounds(), canvas, src.Min, xdraw.Src)
	return dst
}

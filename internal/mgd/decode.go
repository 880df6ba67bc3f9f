package mgd

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"github.com/ossyrian/fjsysparse/internal/fjsys"
)

var (
	// ErrInvalidInlineStructure is returned when a Mode-1 length prefix runs past the content region.
	ErrInvalidInlineStructure = errors.New("mgd: invalid inline structure")
	// ErrInsufficientPixelData is returned when a Mode-1 pixel run cannot fill the canvas.
	ErrInsufficientPixelData = errors.New("mgd: insufficient pixel data")
	// ErrEmptyCanvas is returned when the header declares a zero width or height.
	ErrEmptyCanvas = errors.New("mgd: empty canvas")
	// ErrCanvasTooLarge is returned when a canvas exceeds Options.MaxCanvasBytes.
	ErrCanvasTooLarge = errors.New("mgd: canvas too large")
	// ErrCodecFailure is returned when an embedded bitstream cannot be decoded.
	ErrCodecFailure = errors.New("mgd: codec failure")
)

// DefaultMaxCanvasBytes is the canvas limit used when Options.MaxCanvasBytes is zero.
const DefaultMaxCanvasBytes = 1 << 30

// Options tunes decoding.
type Options struct {
	// MaxCanvasBytes bounds the memory of one decoded canvas (width*height*4).
	// Zero means DefaultMaxCanvasBytes, a negative value disables the check.
	MaxCanvasBytes int64
}

// CheckCanvas returns ErrCanvasTooLarge if a w*h canvas exceeds the limit.
func (o Options) CheckCanvas(w, h int) error {
	limit := o.MaxCanvasBytes
	if limit == 0 {
		limit = DefaultMaxCanvasBytes
	}
	if limit < 0 {
		return nil
	}
	if need := int64(w) * int64(h) * fjsys.BytesPerPixel; need > limit {
		return fmt.Errorf("%w: %dx%d needs %d bytes, limit is %d", ErrCanvasTooLarge, w, h, need, limit)
	}
	return nil
}

// Output extensions per decoded mode.
const (
	ExtARGB = "bmp"
	ExtPNG  = "png"
)

// Result is the outcome of decoding one asset.
// Exactly one of Canvas and Raw is set.
type Result struct {
	Mode fjsys.AssetMode

	Canvas *image.NRGBA
	Raw    []byte

	// Ext is the output extension. It is empty when Raw is the whole asset,
	// which keeps the entry's own filename.
	Ext string

	// Err is why decoding degraded to raw output, if it did.
	Err error
}

// Decoded reports whether a canvas was produced.
func (r Result) Decoded() bool { return r.Canvas != nil }

// Decoder decodes the content of one asset. A returned error makes the
// caller fall back to the raw asset.
type Decoder func(asset []byte, h fjsys.AssetHeader, opts Options) (Result, error)

var decoders = map[fjsys.AssetMode]Decoder{
	fjsys.AssetModeARGB: DecodeARGB,
	fjsys.AssetModePNG:  DecodePNG,
}

// SelectDecoder returns the decoder for mode. Unknown modes get DecodeRaw.
func SelectDecoder(mode fjsys.AssetMode) Decoder {
	if d, ok := decoders[mode]; ok {
		return d
	}
	return DecodeRaw
}

// Decode runs the decoder selected by h.Mode and falls back to the raw
// asset if it fails. It never fails itself.
func Decode(asset []byte, h fjsys.AssetHeader, opts Options) Result {
	res, err := SelectDecoder(h.Mode)(asset, h, opts)
	if err != nil {
		res, _ = DecodeRaw(asset, h, opts)
		res.Err = err
	}
	return res
}

// DecodeRaw returns the asset unchanged.
func DecodeRaw(asset []byte, h fjsys.AssetHeader, _ Options) (Result, error) {
	return Result{Mode: h.Mode, Raw: asset}, nil
}

// DecodeARGB decodes a Mode-1 asset:
//
//	[inner_header_size(u32)][inner_header][pixel_length(u32)][pixels]
//
// Pixels are 4-byte A,R,G,B samples.
func DecodeARGB(asset []byte, h fjsys.AssetHeader, opts Options) (Result, error) {
	content, err := ContentRegion(asset, h)
	if err != nil {
		return Result{}, err
	}

	w, hgt := int(h.ResolutionX), int(h.ResolutionY)
	if err := opts.CheckCanvas(w, hgt); err != nil {
		return Result{}, err
	}

	pixels, err := inlinePixels(content)
	if err != nil {
		return Result{}, err
	}

	argb, err := ExpandPixels(pixels, w, hgt)
	if err != nil {
		return Result{}, err
	}

	canvas := image.NewNRGBA(image.Rect(0, 0, w, hgt))
	for i := 0; i < len(argb); i += fjsys.BytesPerPixel {
		canvas.Pix[i+0] = argb[i+1]
		canvas.Pix[i+1] = argb[i+2]
		canvas.Pix[i+2] = argb[i+3]
		canvas.Pix[i+3] = argb[i+0]
	}

	return Result{Mode: h.Mode, Canvas: canvas, Ext: ExtARGB}, nil
}

// inlinePixels walks the length-prefixed Mode-1 structure and returns the pixel run.
func inlinePixels(content []byte) ([]byte, error) {
	innerSize, ok := fjsys.Uint32At(content, 0)
	if !ok {
		return nil, fmt.Errorf("%w: no inner header size", ErrInvalidInlineStructure)
	}

	pos := int64(4) + int64(innerSize)
	if pos > int64(len(content)) {
		return nil, fmt.Errorf("%w: inner header of %d bytes exceeds content of %d bytes",
			ErrInvalidInlineStructure, innerSize, len(content))
	}

	pixelLen, ok := fjsys.Uint32At(content, int(pos))
	if !ok {
		return nil, fmt.Errorf("%w: no pixel data length", ErrInvalidInlineStructure)
	}
	pos += 4

	end := pos + int64(pixelLen)
	if end > int64(len(content)) {
		return nil, fmt.Errorf("%w: pixel data of %d bytes exceeds content of %d bytes",
			ErrInvalidInlineStructure, pixelLen, len(content))
	}

	return content[pos:end], nil
}

// ExpandPixels fits an ARGB pixel run to a w*h canvas.
// A single 4-byte sample fills the whole canvas, a longer run is truncated
// and a shorter one is an error.
func ExpandPixels(pixels []byte, w, h int) ([]byte, error) {
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrEmptyCanvas, w, h)
	}

	want := w * h * fjsys.BytesPerPixel

	switch {
	case len(pixels) == 0:
		return nil, fmt.Errorf("%w: no pixels", ErrInsufficientPixelData)
	case len(pixels) == fjsys.BytesPerPixel && want > fjsys.BytesPerPixel:
		return bytes.Repeat(pixels, w*h), nil
	case len(pixels) < want:
		return nil, fmt.Errorf("%w: have %d bytes, need %d", ErrInsufficientPixelData, len(pixels), want)
	default:
		return pixels[:want], nil
	}
}

// DecodePNG decodes a Mode-2 asset whose content region is a complete image
// file. If the bitstream cannot be decoded the content region is returned
// as raw output with Err set.
func DecodePNG(asset []byte, h fjsys.AssetHeader, opts Options) (Result, error) {
	content, err := ContentRegion(asset, h)
	if err != nil {
		return Result{}, err
	}

	fallback := func(err error) (Result, error) {
		return Result{Mode: h.Mode, Raw: content, Ext: ExtPNG, Err: err}, nil
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(content))
	if err != nil {
		return fallback(fmt.Errorf("%w: %w", ErrCodecFailure, err))
	}
	if err := opts.CheckCanvas(cfg.Width, cfg.Height); err != nil {
		return fallback(err)
	}

	img, _, err := image.Decode(bytes.NewReader(content))
	if err != nil {
		return fallback(fmt.Errorf("%w: %w", ErrCodecFailure, err))
	}

	b := img.Bounds()
	canvas, ok := img.(*image.NRGBA)
	if !ok || b.Min != (image.Point{}) {
		canvas = image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		xdraw.Draw(canvas, canvas.Bounds(), img, b.Min, xdraw.Src)
	}

	return Result{Mode: h.Mode, Canvas: canvas, Ext: ExtPNG}, nil
}

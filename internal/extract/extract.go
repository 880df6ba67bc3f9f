// Package extract runs every archive entry through the decode pipeline and
// writes the results below an output directory.
package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/anthonynsimon/bild/imgio"
	"github.com/opencontainers/go-digest"
	"golang.org/x/sync/errgroup"

	"github.com/ossyrian/fjsysparse/internal/blockstore"
	"github.com/ossyrian/fjsysparse/internal/fjsys"
	"github.com/ossyrian/fjsysparse/internal/mgd"
)

var (
	// ErrUnsafeName is returned for entry names that would escape the output directory.
	ErrUnsafeName = errors.New("unsafe entry name")
	// ErrOutputConflict is returned when an entry's output path is already
	// taken by an earlier entry.
	ErrOutputConflict = errors.New("output path already claimed")
)

// Extractor writes decoded or raw entries of one archive.
type Extractor struct {
	src      blockstore.Source
	out      *blockstore.Writer
	logger   *slog.Logger
	source   bool
	manifest bool
	workers  int
	decode   mgd.Options
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithSource writes every entry verbatim instead of decoding assets.
func WithSource(source bool) Option {
	return func(x *Extractor) {
		x.source = source
	}
}

// WithWorkers sets how many entries are extracted concurrently.
// Values <= 0 use GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(x *Extractor) {
		x.workers = n
	}
}

// WithManifest reserves ManifestName so no entry can write over the manifest.
func WithManifest(manifest bool) Option {
	return func(x *Extractor) {
		x.manifest = manifest
	}
}

// WithMaxCanvasBytes limits the memory of one decoded canvas.
// Zero keeps mgd.DefaultMaxCanvasBytes, a negative value removes the limit.
func WithMaxCanvasBytes(n int64) Option {
	return func(x *Extractor) {
		x.decode.MaxCanvasBytes = n
	}
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(x *Extractor) {
		x.logger = logger
	}
}

// New creates an Extractor reading from src and writing through out.
func New(src blockstore.Source, out *blockstore.Writer, opts ...Option) *Extractor {
	x := &Extractor{
		src:    src,
		out:    out,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(x)
	}
	if x.workers <= 0 {
		x.workers = runtime.GOMAXPROCS(0)
	}
	return x
}

// Run extracts all entries. A failing entry is recorded in the report and
// does not stop the others; Run itself only fails if ctx is cancelled.
// Entry reports are in the same order as entries.
//
// Entries are decoded concurrently but written in directory order, and each
// output path belongs to the first entry that produces it. A later entry
// whose outputs collide fails with ErrOutputConflict and writes nothing.
func (x *Extractor) Run(ctx context.Context, entries []fjsys.DirectoryEntry) (*Report, error) {
	report := &Report{Entries: make([]EntryReport, len(entries))}
	owned := newClaims()
	if x.manifest {
		owned.reserve(ManifestName, "manifest")
	}

	// done[i] is closed once entry i has been written
	done := make([]chan struct{}, len(entries))
	for i := range done {
		done[i] = make(chan struct{})
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(x.workers)

	for i, e := range entries {
		g.Go(func() error {
			defer close(done[i])
			if err := ctx.Err(); err != nil {
				return err
			}

			rep, outputs := x.prepare(e)
			if i > 0 {
				select {
				case <-done[i-1]:
				case <-ctx.Done():
					return ctx.Err()
				}
			}
			x.commit(&rep, outputs, owned)
			report.Entries[i] = rep
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	x.logger.Info("extraction finished",
		"entries", len(entries),
		"decoded", report.Count(OutcomeDecoded),
		"raw", report.Count(OutcomeRaw),
		"fallback", report.Count(OutcomeFallback),
		"failed", report.Count(OutcomeFailed),
	)

	return report, nil
}

// pending is an encoded output that has not been written yet.
type pending struct {
	name string
	data []byte
}

// prepare reads and decodes one entry. Nothing is written.
func (x *Extractor) prepare(e fjsys.DirectoryEntry) (EntryReport, []pending) {
	rep := EntryReport{
		Index:  e.Index,
		Name:   e.Name,
		Offset: e.Offset,
		Size:   e.Size,
	}

	logger := x.logger.With("entry", e.Name, "index", e.Index)

	outputs, err := x.extract(e, &rep, logger)
	if err != nil {
		x.fail(&rep, err)
		return rep, nil
	}
	return rep, outputs
}

// commit claims every output path of one entry and writes them. If any path
// is taken the entry fails before anything is written.
func (x *Extractor) commit(rep *EntryReport, outputs []pending, owned *claims) {
	for _, o := range outputs {
		if owner, ok := owned.conflict(o.name); ok {
			x.fail(rep, fmt.Errorf("%w: %s (by %s)", ErrOutputConflict, o.name, owner))
			return
		}
	}
	for _, o := range outputs {
		owned.claim(o.name, rep.Name)
	}

	for _, o := range outputs {
		if _, err := x.out.WriteBytes(o.name, o.data); err != nil {
			x.fail(rep, err)
			return
		}
		rep.Outputs = append(rep.Outputs, Output{
			Path:   o.name,
			Size:   len(o.data),
			Digest: digest.FromBytes(o.data),
		})
	}
}

func (x *Extractor) fail(rep *EntryReport, err error) {
	rep.Outcome = OutcomeFailed
	rep.Error = err.Error()
	x.logger.Warn("failed to extract entry", "entry", rep.Name, "index", rep.Index, "error", err)
}

func (x *Extractor) extract(e fjsys.DirectoryEntry, rep *EntryReport, logger *slog.Logger) ([]pending, error) {
	if !filepath.IsLocal(filepath.FromSlash(e.Name)) {
		return nil, fmt.Errorf("%w: %q", ErrUnsafeName, e.Name)
	}

	data, err := blockstore.ReadBytes(x.src, int64(e.Offset), int64(e.Size))
	if err != nil {
		return nil, err
	}

	if x.source || !e.IsAsset() {
		rep.Outcome = OutcomeRaw
		return []pending{{name: e.Name, data: data}}, nil
	}

	h, err := mgd.ParseHeader(data)
	if err != nil {
		return nil, err
	}
	rep.Asset = &AssetReport{
		Mode:        h.Mode.String(),
		ModeByte:    uint8(h.Mode),
		Width:       h.ResolutionX,
		Height:      h.ResolutionY,
		ContentSize: h.ContentSize,
	}

	res := mgd.Decode(data, h, x.decode)
	if !res.Decoded() {
		return x.rawOutput(e, rep, res, logger), nil
	}

	rects := mgd.ReadAtlas(data, h)
	sheet := mgd.Slice(res.Canvas, rects)
	for _, s := range sheet.Skipped {
		logger.Debug("skipping sprite",
			"sprite", s.Number,
			"origin_x", s.Rect.OriginX,
			"origin_y", s.Rect.OriginY,
			"width", s.Rect.Width,
			"height", s.Rect.Height,
			"reason", s.Reason,
		)
	}
	rep.Asset.Sprites = len(rects)
	rep.Asset.SkippedSprites = len(sheet.Skipped)
	if len(sheet.Sprites) == 0 {
		logger.Warn("no sprite fits the canvas, nothing written", "sprites", len(rects))
	}

	encode := encoderFor(res.Ext)
	outputs := make([]pending, 0, len(sheet.Sprites))
	for _, sp := range sheet.Sprites {
		name := spriteName(e, sheet.Full, sp.Number, res.Ext)

		buf := new(bytes.Buffer)
		if err := encode(buf, sp.Image); err != nil {
			return nil, fmt.Errorf("encode %s: %w", name, err)
		}
		outputs = append(outputs, pending{name: name, data: buf.Bytes()})
	}

	rep.Outcome = OutcomeDecoded
	logger.Debug("decoded asset",
		"mode", h.Mode,
		"width", res.Canvas.Bounds().Dx(),
		"height", res.Canvas.Bounds().Dy(),
		"outputs", len(outputs),
	)
	return outputs, nil
}

// rawOutput is the output of an asset that was not decoded to a canvas.
func (x *Extractor) rawOutput(e fjsys.DirectoryEntry, rep *EntryReport, res mgd.Result, logger *slog.Logger) []pending {
	name := e.Name
	if res.Ext != "" {
		name = e.Basename() + "." + res.Ext
	}

	switch {
	case errors.Is(res.Err, mgd.ErrCanvasTooLarge):
		rep.Outcome = OutcomeFallback
		rep.Error = res.Err.Error()
		logger.Warn("canvas exceeds the size limit, writing raw bytes",
			"mode", res.Mode,
			"width", rep.Asset.Width,
			"height", rep.Asset.Height,
			"output", name,
			"error", res.Err,
		)
	case res.Err != nil:
		rep.Outcome = OutcomeFallback
		rep.Error = res.Err.Error()
		logger.Warn("could not decode asset, writing raw bytes",
			"mode", res.Mode,
			"output", name,
			"error", res.Err,
		)
	default:
		rep.Outcome = OutcomeRaw
		logger.Debug("no decoder for asset mode, writing raw asset",
			"mode", uint8(res.Mode),
		)
	}

	return []pending{{name: name, data: res.Raw}}
}

// spriteName is <basename>.<ext> for a full sheet and
// <basename>/<base>_<n>.<ext> for individual sprites.
func spriteName(e fjsys.DirectoryEntry, full bool, number int, ext string) string {
	base := e.Basename()
	if full {
		return base + "." + ext
	}
	return path.Join(base, fmt.Sprintf("%s_%d.%s", path.Base(base), number, ext))
}

func encoderFor(ext string) imgio.Encoder {
	if ext == mgd.ExtARGB {
		return imgio.BMPEncoder()
	}
	return imgio.PNGEncoder()
}

// claims maps output paths to the entry that owns them. Keys are case-folded
// so outputs stay distinct on case-insensitive filesystems. Commits run one
// at a time, so no locking is needed.
type claims struct {
	files map[string]string
	dirs  map[string]string
}

func newClaims() *claims {
	return &claims{
		files: make(map[string]string),
		dirs:  make(map[string]string),
	}
}

func (c *claims) reserve(name, owner string) {
	c.files[strings.ToLower(name)] = owner
}

// conflict reports the owner of anything name would clash with: the same
// file, a directory at name, or a file where one of its parents must go.
func (c *claims) conflict(name string) (string, bool) {
	key := strings.ToLower(name)
	if owner, ok := c.files[key]; ok {
		return owner, true
	}
	if owner, ok := c.dirs[key]; ok {
		return owner, true
	}
	for dir := path.Dir(key); dir != "."; dir = path.Dir(dir) {
		if owner, ok := c.files[dir]; ok {
			return owner, true
		}
	}
	return "", false
}

func (c *claims) claim(name, owner string) {
	key := strings.ToLower(name)
	c.files[key] = owner
	for dir := path.Dir(key); dir != "."; dir = path.Dir(dir) {
		if _, ok := c.dirs[dir]; !ok {
			c.dirs[dir] = owner
		}
	}
}

package measurement

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/stemhealth/stem-measure/internal/config"
	"github.com/stemhealth/stem-measure/internal/imaging"
	"github.com/stemhealth/stem-measure/internal/logger"
)

// Entry is one image of a batch with the detector's boxes for it.
type Entry struct {
	ID        string        `json:"id"`
	ImagePath string        `json:"image_path"`
	Boxes     []BoundingBox `json:"boxes"`
	Timestamp time.Time     `json:"timestamp,omitempty"`
	// AnnotatedPath, when set, receives a copy of the image with measured
	// boxes outlined.
	AnnotatedPath string `json:"annotated_path,omitempty"`
}

// EntryResult is the outcome for one entry. Err is set when the entry could
// not be processed at all; per-box problems land in Skipped instead.
type EntryResult struct {
	ID            string       `json:"id"`
	ImagePath     string       `json:"image_path"`
	Timestamp     time.Time    `json:"timestamp,omitempty"`
	Records       []Record     `json:"records"`
	Skipped       []Skipped    `json:"skipped"`
	Summary       EntrySummary `json:"summary"`
	AnnotatedPath string       `json:"annotated_path,omitempty"`
	Err           error        `json:"-"`
	Error         string       `json:"error,omitempty"`
}

// BatchResult holds every entry's result in input order.
type BatchResult struct {
	Entries []EntryResult `json:"entries"`
	Optimum *Optimum      `json:"optimum,omitempty"`
}

// Pipeline turns images and boxes into measurements.
//
// Reference calibrations are computed once per reference path and reused by
// every later batch. Medium calibration is per batch.
type Pipeline struct {
	cfg      *config.Config
	cache    *imaging.ImageCache
	log      zerolog.Logger
	refOpts  ObjectParams
	medOpts  ObjectParams
	boxColor color.NRGBA

	mu         sync.Mutex
	references map[string]*ObjectCalibration
}

// NewPipeline validates the segmentation settings in cfg and returns a
// pipeline reading images through cache.
func NewPipeline(cfg *config.Config, cache *imaging.ImageCache, log zerolog.Logger) (*Pipeline, error) {
	refOpts, err := NewObjectParams(cfg.Reference, cfg.Simplify)
	if err != nil {
		return nil, fmt.Errorf("invalid reference settings: %w", err)
	}
	medOpts, err := NewObjectParams(cfg.Medium, cfg.Simplify)
	if err != nil {
		return nil, fmt.Errorf("invalid medium settings: %w", err)
	}
	boxColor := imaging.DefaultBoxColor
	if cfg.Annotate.BoxColor != "" {
		if boxColor, err = imaging.ParseHexColor(cfg.Annotate.BoxColor); err != nil {
			return nil, fmt.Errorf("invalid annotate.box_color: %w", err)
		}
	}

	return &Pipeline{
		cfg:        cfg,
		cache:      cache,
		log:        logger.Component(log, "measurement"),
		refOpts:    refOpts,
		medOpts:    medOpts,
		boxColor:   boxColor,
		references: make(map[string]*ObjectCalibration),
	}, nil
}

// ReferenceParams returns the reference segmentation settings.
func (p *Pipeline) ReferenceParams() ObjectParams { return p.refOpts }

// MediumParams returns the medium segmentation settings.
func (p *Pipeline) MediumParams() ObjectParams { return p.medOpts }

// Calibrate builds the calibration for a batch from the reference image and
// the batch's first image.
func (p *Pipeline) Calibrate(ctx context.Context, referencePath, mediumPath string) (*CalibrationContext, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ref, err := p.reference(referencePath)
	if err != nil {
		p.log.Error().Err(err).Str("path", referencePath).Msg("reference calibration failed")
		return nil, err
	}

	img, err := p.loadBatchImage(mediumPath)
	if err != nil {
		return nil, err
	}
	medium, err := ExtractMedium(img, p.medOpts)
	if err != nil {
		p.log.Error().Err(err).Str("path", mediumPath).Msg("medium calibration failed")
		return nil, err
	}

	cal, err := NewCalibrationContext(ref, medium, p.cfg.Height)
	if err != nil {
		p.log.Error().Err(err).Msg("calibration failed")
		return nil, err
	}

	p.log.Info().
		Str("reference", referencePath).
		Str("medium", mediumPath).
		Interface("reference_quad", ref.Quad()).
		Interface("eligibility", cal.Eligibility.Polygon).
		Msg("batch calibrated")
	return cal, nil
}

// reference returns the cached calibration for path, computing it on first use.
func (p *Pipeline) reference(path string) (*ObjectCalibration, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if ref, ok := p.references[path]; ok {
		return ref, nil
	}

	img, err := p.cache.Load(path)
	if err != nil {
		return nil, err
	}
	ref, err := CalibrateReference(img, p.refOpts)
	if err != nil {
		return nil, err
	}
	p.references[path] = ref
	return ref, nil
}

// ForgetReference drops the cached calibration for a reference path.
func (p *Pipeline) ForgetReference(path string) {
	p.mu.Lock()
	delete(p.references, path)
	p.mu.Unlock()
}

// loadBatchImage loads a batch image and preprocesses it.
func (p *Pipeline) loadBatchImage(path string) (image.Image, error) {
	img, err := p.cache.Load(path)
	if err != nil {
		return nil, err
	}
	return p.preprocess(img), nil
}

// preprocess sharpens img when enabled.
func (p *Pipeline) preprocess(img image.Image) image.Image {
	if p.cfg.Preprocess.Sharpen {
		return imaging.Sharpen(img, p.cfg.Preprocess.Radius, p.cfg.Preprocess.Amount)
	}
	return img
}

// MeasureEntry measures one entry's boxes. The entry image must exist and
// share the calibration raster; otherwise the entry fails as a whole.
func (p *Pipeline) MeasureEntry(ctx context.Context, cal *CalibrationContext, e Entry) EntryResult {
	res := EntryResult{ID: e.ID, ImagePath: e.ImagePath, Timestamp: e.Timestamp}
	log := p.log.With().Str("entry", e.ID).Logger()

	fail := func(err error) EntryResult {
		log.Warn().Err(err).Msg("entry failed")
		res.Records, res.Skipped = nil, nil
		res.Summary = Summarize(nil)
		res.Err = err
		res.Error = err.Error()
		return res
	}

	if err := ctx.Err(); err != nil {
		return fail(err)
	}

	img, err := p.cache.Load(e.ImagePath)
	if err != nil {
		return fail(err)
	}
	defer p.evict(e.ImagePath)
	if err := cal.CheckRaster(img); err != nil {
		return fail(err)
	}

	res.Records = make([]Record, 0, len(e.Boxes))
	res.Skipped = make([]Skipped, 0)
	for _, b := range e.Boxes {
		if err := ctx.Err(); err != nil {
			return fail(err)
		}
		r, s := cal.MeasureBox(b)
		if r != nil {
			res.Records = append(res.Records, *r)
			continue
		}
		log.Debug().Stringer("box", b).Str("reason", s.Reason).Msg("box skipped")
		res.Skipped = append(res.Skipped, *s)
	}
	res.Summary = Summarize(res.Records)

	if e.AnnotatedPath != "" {
		if err := ctx.Err(); err != nil {
			return fail(err)
		}
		if err := p.annotate(img, e, res.Records); err != nil {
			return fail(err)
		}
		res.AnnotatedPath = e.AnnotatedPath
	}

	log.Info().
		Int("measured", len(res.Records)).
		Int("skipped", len(res.Skipped)).
		Msg("entry measured")
	return res
}

func (p *Pipeline) annotate(img image.Image, e Entry, records []Record) error {
	img = p.preprocess(img)
	anns := make([]imaging.Annotation, len(records))
	for i, r := range records {
		anns[i] = imaging.Annotation{
			X1: r.Box.X1, Y1: r.Box.Y1, X2: r.Box.X2, Y2: r.Box.Y2,
			Label: fmt.Sprintf("%.2f cm", r.HeightCM),
		}
	}
	out := imaging.Annotate(img, anns, p.boxColor, p.cfg.Annotate.ShowLabels)
	return imaging.SaveImage(out, e.AnnotatedPath)
}

// evict drops an entry image from the cache unless it is a reference image.
func (p *Pipeline) evict(path string) {
	p.mu.Lock()
	_, isRef := p.references[path]
	p.mu.Unlock()
	if !isRef {
		p.cache.Evict(path)
	}
}

// MeasureBatch measures entries concurrently on at most cfg.Workers
// goroutines. Each entry runs under its own cfg.EntryTimeout; a failing or
// timed-out entry does not affect the others. Results keep input order.
func (p *Pipeline) MeasureBatch(ctx context.Context, cal *CalibrationContext, entries []Entry) BatchResult {
	results := make([]EntryResult, len(entries))

	workers := max(p.cfg.Workers, 1)
	var wg sync.WaitGroup
	sem := make(chan struct{}, workers)

	for i, e := range entries {
		wg.Add(1)
		sem <- struct{}{}

		go func(i int, e Entry) {
			defer wg.Done()
			defer func() { <-sem }()

			ectx, cancel := context.WithTimeout(ctx, p.cfg.EntryTimeout)
			defer cancel()
			results[i] = p.MeasureEntry(ectx, cal, e)
		}(i, e)
	}
	wg.Wait()

	batch := BatchResult{
		Entries: results,
		Optimum: FindOptimum(results, p.cfg.Height.TargetCM),
	}
	p.log.Info().Int("entries", len(entries)).Int("workers", workers).Msg("batch measured")
	return batch
}

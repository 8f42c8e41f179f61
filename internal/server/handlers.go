package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"time"

	"github.com/stemhealth/stem-measure/internal/detection"
	"github.com/stemhealth/stem-measure/internal/imaging"
	"github.com/stemhealth/stem-measure/internal/measurement"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "image_load", "measure_batch").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// errInvalidArgs marks argument problems so they can be reported as
// invalid params rather than tool failures.
var errInvalidArgs = errors.New("invalid arguments")

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Argument errors return -32602, execution errors -32000.
func (s *Server) handleToolsCall(ctx context.Context, req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, codeInvalidParams, "Invalid params", err.Error())
	}

	start := time.Now()
	result, err := s.executeTool(ctx, params.Name, params.Arguments)
	log := s.log.With().Str("tool", params.Name).Dur("elapsed", time.Since(start)).Logger()
	if err != nil {
		log.Warn().Err(err).Msg("tool failed")
		if errors.Is(err, errInvalidArgs) {
			return s.errorResponse(req.ID, codeInvalidParams, "Invalid params", err.Error())
		}
		return s.errorResponse(req.ID, codeToolFailed, "Tool execution failed", err.Error())
	}
	log.Debug().Msg("tool done")

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
func (s *Server) executeTool(ctx context.Context, name string, args json.RawMessage) (interface{}, error) {
	switch name {
	// Image inspection
	case "image_load":
		return s.handleImageLoad(args)
	case "image_sample_color":
		return s.handleImageSampleColor(args)

	// Segmentation
	case "color_mask":
		return s.handleColorMask(args)
	case "region_quadrilateral":
		return s.handleRegionQuadrilateral(args)

	// Measurement
	case "calibrate_batch":
		return s.handleCalibrateBatch(ctx, args)
	case "measure_image":
		return s.handleMeasureImage(ctx, args)
	case "measure_batch":
		return s.handleMeasureBatch(ctx, args)
	case "release_batch":
		return s.handleReleaseBatch(args)

	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message, data string) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &MCPError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// On marshal failure it returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

func decodeArgs(args json.RawMessage, v interface{}) error {
	if err := json.Unmarshal(args, v); err != nil {
		return fmt.Errorf("%w: %v", errInvalidArgs, err)
	}
	return nil
}

type point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func toPoints(pts []image.Point) []point {
	out := make([]point, len(pts))
	for i, p := range pts {
		out[i] = point{X: p.X, Y: p.Y}
	}
	return out
}

type rect struct {
	X1 int `json:"x1"`
	Y1 int `json:"y1"`
	X2 int `json:"x2"`
	Y2 int `json:"y2"`
}

func toRect(r image.Rectangle) rect {
	return rect{X1: r.Min.X, Y1: r.Min.Y, X2: r.Max.X, Y2: r.Max.Y}
}

// === Image Inspection Handlers ===

type imageLoadArgs struct {
	Path string `json:"path"`
}

func (s *Server) handleImageLoad(args json.RawMessage) (interface{}, error) {
	var a imageLoadArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	return imaging.LoadImageInfo(s.cache, a.Path)
}

type imageSampleColorArgs struct {
	Path string `json:"path"`
	X    int    `json:"x"`
	Y    int    `json:"y"`
}

func (s *Server) handleImageSampleColor(args json.RawMessage) (interface{}, error) {
	var a imageSampleColorArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}
	return imaging.SampleColor(img, a.X, a.Y)
}

// === Segmentation Handlers ===

// objectArgs picks the colour range for a segmentation tool.
type objectArgs struct {
	Path       string            `json:"path"`
	Object     string            `json:"object"`
	Lower      *imaging.HSVColor `json:"lower"`
	Upper      *imaging.HSVColor `json:"upper"`
	Morphology string            `json:"morphology"`
	KernelSize int               `json:"kernel_size"`
}

// params resolves the named object to segmentation settings.
func (a objectArgs) params(s *Server) (measurement.ObjectParams, error) {
	switch a.Object {
	case "", "reference":
		return s.pipeline.ReferenceParams(), nil
	case "medium":
		return s.pipeline.MediumParams(), nil
	case "custom":
		if a.Lower == nil || a.Upper == nil {
			return measurement.ObjectParams{}, fmt.Errorf("%w: custom object requires lower and upper", errInvalidArgs)
		}
		op, err := detection.ParseMorphOp(a.Morphology)
		if err != nil {
			return measurement.ObjectParams{}, fmt.Errorf("%w: %v", errInvalidArgs, err)
		}
		if a.KernelSize == 0 {
			a.KernelSize = 3
		}
		bounds := detection.HSVBounds{Lower: *a.Lower, Upper: *a.Upper}
		if err := bounds.Validate(); err != nil {
			return measurement.ObjectParams{}, fmt.Errorf("%w: %v", errInvalidArgs, err)
		}
		return measurement.ObjectParams{
			Mask:     detection.MaskParams{Bounds: bounds, Op: op, KernelSize: a.KernelSize},
			Simplify: s.pipeline.MediumParams().Simplify,
		}, nil
	default:
		return measurement.ObjectParams{}, fmt.Errorf("%w: unknown object %q", errInvalidArgs, a.Object)
	}
}

type colorMaskArgs struct {
	objectArgs
	IncludeMask *bool `json:"include_mask"`
}

// ColorMaskResult describes a thresholded mask.
type ColorMaskResult struct {
	Width            int    `json:"width"`
	Height           int    `json:"height"`
	ForegroundPixels int    `json:"foreground_pixels"`
	MaskPNG          string `json:"mask_png,omitempty"`
}

func (s *Server) handleColorMask(args json.RawMessage) (interface{}, error) {
	var a colorMaskArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	p, err := a.params(s)
	if err != nil {
		return nil, err
	}
	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}

	// An empty mask is a valid answer here.
	m, err := detection.ExtractMask(img, p.Mask)
	if err != nil && !errors.Is(err, detection.ErrNoForegroundPixels) {
		return nil, err
	}

	res := &ColorMaskResult{
		Width:            m.Width,
		Height:           m.Height,
		ForegroundPixels: m.Count(),
	}
	if a.IncludeMask == nil || *a.IncludeMask {
		if res.MaskPNG, err = imaging.EncodePNGBase64(m.Gray()); err != nil {
			return nil, err
		}
	}
	return res, nil
}

// QuadrilateralResult describes a simplified region.
type QuadrilateralResult struct {
	Quad   []point `json:"quad"`
	Hull   []point `json:"hull"`
	Area   int     `json:"area"`
	Bounds rect    `json:"bounds"`
}

func (s *Server) handleRegionQuadrilateral(args json.RawMessage) (interface{}, error) {
	var a objectArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	p, err := a.params(s)
	if err != nil {
		return nil, err
	}
	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}

	_, shape, err := detection.ExtractRegion(img, p.Mask, p.Simplify)
	if err != nil {
		return nil, err
	}
	return &QuadrilateralResult{
		Quad:   toPoints(shape.Quad.Points()),
		Hull:   toPoints(shape.Hull),
		Area:   shape.Region.Area,
		Bounds: toRect(shape.Region.Bounds),
	}, nil
}

// === Measurement Handlers ===

type calibrateBatchArgs struct {
	BatchID       string `json:"batch_id"`
	ReferencePath string `json:"reference_path"`
	MediumPath    string `json:"medium_path"`
}

// CalibrationResult reports the geometry a batch was calibrated with.
type CalibrationResult struct {
	BatchID        string  `json:"batch_id"`
	ReferenceQuad  []point `json:"reference_quad"`
	MediumQuad     []point `json:"medium_quad"`
	Eligibility    []point `json:"eligibility"`
	ReferenceCM    float64 `json:"reference_cm"`
	EligiblePixels int     `json:"eligible_pixels"`
}

func (s *Server) handleCalibrateBatch(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a calibrateBatchArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.BatchID == "" {
		return nil, fmt.Errorf("%w: batch_id is required", errInvalidArgs)
	}

	cal, err := s.pipeline.Calibrate(ctx, a.ReferencePath, a.MediumPath)
	if err != nil {
		return nil, err
	}
	s.storeBatch(&batch{
		ID:            a.BatchID,
		ReferencePath: a.ReferencePath,
		MediumPath:    a.MediumPath,
		Calibration:   cal,
		CreatedAt:     time.Now(),
	})

	return &CalibrationResult{
		BatchID:        a.BatchID,
		ReferenceQuad:  toPoints(cal.Reference.Quad().Points()),
		MediumQuad:     toPoints(cal.Medium.Quad().Points()),
		Eligibility:    toPoints(cal.Eligibility.Polygon.Points()),
		ReferenceCM:    cal.Height.ReferenceCM,
		EligiblePixels: cal.Eligibility.Mask().Count(),
	}, nil
}

type measureImageArgs struct {
	BatchID string            `json:"batch_id"`
	Entry   measurement.Entry `json:"entry"`
}

func (s *Server) handleMeasureImage(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a measureImageArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	b, err := s.lookupBatch(a.BatchID)
	if err != nil {
		return nil, err
	}

	ectx, cancel := context.WithTimeout(ctx, s.cfg.EntryTimeout)
	defer cancel()
	res := s.pipeline.MeasureEntry(ectx, b.Calibration, a.Entry)
	if res.Err != nil {
		return nil, res.Err
	}
	return res, nil
}

type measureBatchArgs struct {
	BatchID string              `json:"batch_id"`
	Entries []measurement.Entry `json:"entries"`
}

func (s *Server) handleMeasureBatch(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a measureBatchArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	b, err := s.lookupBatch(a.BatchID)
	if err != nil {
		return nil, err
	}
	res := s.pipeline.MeasureBatch(ctx, b.Calibration, a.Entries)
	return res, nil
}

type releaseBatchArgs struct {
	BatchID         string `json:"batch_id"`
	ForgetReference bool   `json:"forget_reference"`
}

// ReleaseResult reports whether a batch existed.
type ReleaseResult struct {
	BatchID  string `json:"batch_id"`
	Released bool   `json:"released"`
}

func (s *Server) handleReleaseBatch(args json.RawMessage) (interface{}, error) {
	var a releaseBatchArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	b, ok := s.releaseBatch(a.BatchID)
	if ok && a.ForgetReference {
		s.pipeline.ForgetReference(b.ReferencePath)
		s.cache.Evict(b.ReferencePath)
	}
	return &ReleaseResult{BatchID: a.BatchID, Released: ok}, nil
}

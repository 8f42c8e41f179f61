package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

var pathSchema = map[string]interface{}{
	"type":        "string",
	"description": "Absolute path to the image file",
}

var hsvSchema = map[string]interface{}{
	"type": "object",
	"properties": map[string]interface{}{
		"h": map[string]interface{}{"type": "integer", "description": "Hue 0-180"},
		"s": map[string]interface{}{"type": "integer", "description": "Saturation 0-255"},
		"v": map[string]interface{}{"type": "integer", "description": "Value 0-255"},
	},
	"required": []string{"h", "s", "v"},
}

// objectSchema selects the colour range used for segmentation tools.
var objectSchema = map[string]interface{}{
	"object": map[string]interface{}{
		"type":        "string",
		"enum":        []string{"reference", "medium", "custom"},
		"description": "Configured range to use. \"custom\" requires lower and upper.",
		"default":     "reference",
	},
	"lower": hsvSchema,
	"upper": hsvSchema,
	"morphology": map[string]interface{}{
		"type":        "string",
		"enum":        []string{"open", "close", "none"},
		"description": "Morphology for a custom range. Default none.",
	},
	"kernel_size": map[string]interface{}{
		"type":        "integer",
		"description": "Structuring element size for a custom range. Default 3.",
	},
}

var boxSchema = map[string]interface{}{
	"type": "object",
	"properties": map[string]interface{}{
		"x1":         map[string]interface{}{"type": "integer"},
		"y1":         map[string]interface{}{"type": "integer"},
		"x2":         map[string]interface{}{"type": "integer", "description": "Right edge; (x2,y2) is the bottom-right corner"},
		"y2":         map[string]interface{}{"type": "integer"},
		"label":      map[string]interface{}{"type": "string"},
		"confidence": map[string]interface{}{"type": "number"},
	},
	"required": []string{"x1", "y1", "x2", "y2"},
}

var entrySchema = map[string]interface{}{
	"type": "object",
	"properties": map[string]interface{}{
		"id":         map[string]interface{}{"type": "string", "description": "Caller's entry identifier"},
		"image_path": pathSchema,
		"boxes": map[string]interface{}{
			"type":  "array",
			"items": boxSchema,
		},
		"timestamp": map[string]interface{}{
			"type":        "string",
			"description": "RFC 3339 capture time, used for the batch optimum",
		},
		"annotated_path": map[string]interface{}{
			"type":        "string",
			"description": "Optional output path for a copy with measured boxes outlined",
		},
	},
	"required": []string{"id", "image_path", "boxes"},
}

func mergeProps(base map[string]interface{}, extra map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(base)+len(extra))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		// Image inspection
		{
			Name:        "image_load",
			Description: "Load an image file and return its dimensions, format and file size.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathSchema,
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "image_sample_color",
			Description: "Get the colour of a pixel as hex, RGB and HSV (H 0-180, S/V 0-255). Use it to tune the reference and medium colour ranges.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathSchema,
					"x":    map[string]interface{}{"type": "integer", "description": "X coordinate (0-based)"},
					"y":    map[string]interface{}{"type": "integer", "description": "Y coordinate (0-based)"},
				},
				"required": []string{"path", "x", "y"},
			},
		},

		// Segmentation
		{
			Name:        "color_mask",
			Description: "Threshold an image against an HSV range with morphological clean-up. Returns the foreground pixel count and the mask as base64 PNG.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": mergeProps(objectSchema, map[string]interface{}{
					"path": pathSchema,
					"include_mask": map[string]interface{}{
						"type":        "boolean",
						"description": "Include the mask PNG in the result. Default true.",
						"default":     true,
					},
				}),
				"required": []string{"path"},
			},
		},
		{
			Name:        "region_quadrilateral",
			Description: "Segment an object and reduce its largest connected region to a quadrilateral. Returns the quadrilateral, the convex hull and the region area.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": mergeProps(objectSchema, map[string]interface{}{
					"path": pathSchema,
				}),
				"required": []string{"path"},
			},
		},

		// Measurement
		{
			Name:        "calibrate_batch",
			Description: "Calibrate a batch from the reference image and the batch's first image. The calibration is kept under batch_id for measure_image and measure_batch.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"batch_id":       map[string]interface{}{"type": "string"},
					"reference_path": pathSchema,
					"medium_path":    pathSchema,
				},
				"required": []string{"batch_id", "reference_path", "medium_path"},
			},
		},
		{
			Name:        "measure_image",
			Description: "Measure the stem heights of one image's detector boxes against a calibrated batch.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"batch_id": map[string]interface{}{"type": "string"},
					"entry":    entrySchema,
				},
				"required": []string{"batch_id", "entry"},
			},
		},
		{
			Name:        "measure_batch",
			Description: "Measure many images concurrently against a calibrated batch. Returns per-entry records, skipped boxes, summaries and the entry closest to the target height.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"batch_id": map[string]interface{}{"type": "string"},
					"entries": map[string]interface{}{
						"type":  "array",
						"items": entrySchema,
					},
				},
				"required": []string{"batch_id", "entries"},
			},
		},
		{
			Name:        "release_batch",
			Description: "Drop a batch calibration. With forget_reference the cached reference calibration is dropped too.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"batch_id": map[string]interface{}{"type": "string"},
					"forget_reference": map[string]interface{}{
						"type":    "boolean",
						"default": false,
					},
				},
				"required": []string{"batch_id"},
			},
		},
	}
}

// handleToolsList returns the list of available tools
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": GetToolDefinitions(),
		},
	}
}

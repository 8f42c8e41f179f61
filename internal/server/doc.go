// Package server implements the MCP (Model Context Protocol) server that
// exposes seedling stem measurement as tools.
//
// # Protocol
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses on stdout
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
// Image inspection:
//   - image_load: Load image and get metadata
//   - image_sample_color: Get colour at pixel, including the HSV scale used by the colour ranges
//
// Segmentation:
//   - color_mask: Threshold against the reference, medium or a custom HSV range
//   - region_quadrilateral: Reduce the largest region to a quadrilateral
//
// Measurement:
//   - calibrate_batch: Calibrate a batch from the reference and the batch's first image
//   - measure_image: Measure one image's detector boxes
//   - measure_batch: Measure many images concurrently and pick the optimum entry
//   - release_batch: Drop a batch calibration
//
// Calibrations are kept in memory under the caller's batch_id until
// release_batch. Reference calibrations are additionally cached per
// reference path by the measurement pipeline.
//
// # Error Handling
//
// Tool errors are returned as JSON-RPC error responses with:
//   - code: -32602 for malformed arguments, -32000 for tool execution failure
//   - message: Human-readable error description
//   - data: The Go error string
//
// # Usage
//
//	srv, err := server.New(cfg, log)
//	if err != nil {
//	    return err
//	}
//	return srv.Run(ctx)
package server

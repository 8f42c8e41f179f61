// Package imaging provides the raster plumbing around the measurement core.
//
// It loads and caches decoded photographs, converts pixels to the HSV scale
// used by the segmentation bounds, sharpens batch images before measurement,
// and renders annotated copies of measured images. All operations work with
// standard Go image.Image types and use a coordinate system where (0,0) is at
// the top-left corner, X increases rightward, and Y increases downward.
//
// # Coordinate System
//
// All pixel coordinates in this package are 0-based:
//   - X: horizontal position (0 = leftmost pixel)
//   - Y: vertical position (0 = topmost pixel)
//
// # Thread Safety
//
// The ImageCache type is safe for concurrent use. Cached images are shared and
// must not be mutated; Annotate and Sharpen always return new images.
//
// # Color Representation
//
// Sampled colours are reported as:
//   - Hex: 6-character format "#RRGGBB" (alpha excluded)
//   - RGB: 8-bit components (0-255)
//   - HSV: Hue (0-180), Saturation (0-255), Value (0-255)
//
// # Error Handling
//
// Functions return errors for invalid inputs such as:
//   - Coordinates outside image bounds
//   - File I/O errors during image loading or saving
//   - Encoding errors during image output
package imaging

// Package detection segments coloured objects out of photographs and reduces
// them to simple polygons.
//
// The pipeline for one object is:
//
//  1. Threshold: every pixel is converted to HSV (H 0-180, S and V 0-255) and
//     kept if it falls inside an inclusive colour box.
//  2. Morphology: an open (erode then dilate) or close (dilate then erode)
//     with a square structuring element removes specks or fills gaps.
//  3. Regions: 8-connected components are labelled and the largest one is
//     kept. Equal areas go to the region whose bounding box starts highest,
//     then leftmost.
//  4. Simplification: the region's convex hull is approximated with closed
//     Douglas-Peucker and forced to exactly four vertices.
//  5. Rasterisation: the quadrilateral is filled back onto a mask, edges
//     included.
//
// # Masks
//
// A Mask is a strictly binary raster. Reads outside it return background and
// writes outside it are dropped. Masks convert to and from image.Gray for
// display.
//
// # Coordinate System
//
// All coordinates use the standard image convention:
//   - Origin (0, 0) at top-left corner
//   - X increases rightward
//   - Y increases downward
//   - Bounding boxes use inclusive top-left and exclusive bottom-right
//
// # Errors
//
// ExtractMask fails with ErrNoForegroundPixels when nothing survives
// thresholding; SimplifyRegion fails with ErrNoRegionFound when there is no
// region to simplify. ExtractRegion chains both and reports an empty mask as
// both errors at once.
package detection

// Package measurement converts seedling bounding boxes into stem heights in
// centimetres.
//
// A batch is calibrated once: the reference object (a block of known height
// standing beside the tray) and the growing medium are segmented with the
// detection package, and from their quadrilaterals an eligibility region is
// derived. It spans the front edge of the medium, from the reference's bottom
// edge to where the medium ends on the right.
//
// Each box is then measured independently:
//
//  1. Selection: the box's bottom-right corner must lie in the eligibility
//     region and the box must be taller than wide.
//  2. Scale: scanning left from the bottom-right corner finds the reference;
//     scanning down its column from row 0 finds the reference's top. The pixel
//     distance between them is the reference height at that depth.
//  3. Height: box height x (reference cm / reference pixels), rounded to
//     2 decimals.
//
// Boxes that fail selection or calculation become Skipped records with a
// reason; they are never reported as zero heights.
//
// # Concurrency
//
// CalibrationContext is immutable once built. Pipeline.MeasureBatch fans
// entries out to a bounded set of goroutines that share it.
package measurement

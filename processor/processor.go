// Package processor wraps the opaque long-running watermark-removal
// operation. The worker hands it local paths only; it knows nothing about
// where payloads are ultimately stored.
package processor

import "context"

// ProgressFunc receives percentage values in [0, 100]. Implementations must
// tolerate it being slow or lossy; reporting progress never aborts a run.
type ProgressFunc func(percentage int)

// VideoProcessor runs the watermark-removal pipeline over a local input
// file, writing the cleaned video to the local output path and reporting
// incremental progress through the callback.
type VideoProcessor interface {
	Run(ctx context.Context, inputPath, outputPath string, report ProgressFunc) error
}

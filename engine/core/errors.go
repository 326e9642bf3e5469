package core

import (
	"github.com/cockroachdb/errors"
)

// Renderer error taxonomy. Creation sites wrap these with context via
// errors.Wrapf; callers branch with errors.Is.
var (
	// Fatal at startup: the environment is unusable, never retried.
	ErrNoSuitableDevice = errors.New("no suitable GPU found")
	ErrDeviceCreation   = errors.New("logical device creation failed")

	// Fatal to the current frame: a stalled GPU or driver.
	ErrDrawTimeout      = errors.New("frame fence wait timed out")
	ErrSwapchainTimeout = errors.New("swapchain image acquisition timed out")

	// Recoverable by swapchain recreation at the next frame boundary.
	ErrSwapchainOutOfDate = errors.New("swapchain out of date")
	ErrSwapchainNotReady  = errors.New("swapchain image not ready")
)

// Package calibration defines the types used by the interactive camera
// calibration workflow. It contains:
//
//   - State: the discrete steps of the session state machine
//   - Signal: per-iteration operator input (capture, proceed, quit)
//   - BoardGeometry: the physical ChArUco target
//   - Detection / Correspondence / CorrespondenceSet: per-frame board
//     observations and the accumulated calibration data
//   - Result: camera intrinsics, distortion and reprojection error
//   - Status: a synthesized view model returned by the HTTP API and the CLI
//
// These types are shared across session, server, client and CLI code to avoid
// duplicate definitions and keep JSON contracts consistent.
package calibration

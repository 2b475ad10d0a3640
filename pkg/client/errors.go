package client

import "github.com/charlie0129/camcalib/internal/client"

var (
	// ErrSessionNotRunning is returned when no session listens on the socket
	ErrSessionNotRunning = client.ErrSessionNotRunning

	// ErrPermissionDenied is returned when the user does not have permission to open the socket
	ErrPermissionDenied = client.ErrPermissionDenied

	// ErrNotFound is returned when 404 is returned from the session
	ErrNotFound = client.ErrNotFound
)

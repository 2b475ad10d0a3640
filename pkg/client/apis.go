// Package client provides typed access to the HTTP API of a running
// calibration session.
package client

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"strings"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/charlie0129/camcalib/internal/client"
	"github.com/charlie0129/camcalib/pkg/calibration"
	"github.com/charlie0129/camcalib/pkg/events"
)

type Client struct {
	*client.Client
}

func NewClient(socketPath string) *Client {
	return &Client{Client: client.NewClient(socketPath)}
}

func (c *Client) GetStatus() (*calibration.Status, error) {
	ret, err := c.Get("/status")
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to get session status")
	}

	var st calibration.Status
	if err := json.Unmarshal([]byte(ret), &st); err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to unmarshal session status")
	}
	return &st, nil
}

func (c *Client) GetResult() (*calibration.Result, error) {
	ret, err := c.Get("/result")
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to get calibration result")
	}

	var res calibration.Result
	if err := json.Unmarshal([]byte(ret), &res); err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to unmarshal calibration result")
	}
	return &res, nil
}

func (c *Client) SendSignal(sig calibration.Signal) (string, error) {
	payload, err := json.Marshal(string(sig))
	if err != nil {
		return "", err
	}
	return c.Put("/signal", string(payload))
}

func (c *Client) GetVersion() (string, error) {
	ret, err := c.Get("/version")
	if err != nil {
		return "", pkgerrors.Wrapf(err, "failed to get version")
	}
	var v string
	if err := json.Unmarshal([]byte(ret), &v); err != nil {
		return "", pkgerrors.Wrapf(err, "failed to unmarshal version")
	}
	return v, nil
}

// SubscribeEvents streams session events until ctx is cancelled or the
// session goes away. The returned channel is closed when the stream ends.
func (c *Client) SubscribeEvents(ctx context.Context) (<-chan events.Event, error) {
	body, err := c.Stream(ctx, "/events")
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to subscribe to events")
	}

	ch := make(chan events.Event, 16)
	go func() {
		defer close(ch)
		defer func() {
			if err := body.Close(); err != nil {
				logrus.Debugf("failed to close event stream: %v", err)
			}
		}()
		if err := readEvents(ctx, body, ch); err != nil && ctx.Err() == nil {
			logrus.WithError(err).Warn("event stream ended")
		}
	}()
	return ch, nil
}

// readEvents parses a text/event-stream body. Only the event and data
// fields are used; multiple data lines are joined with newlines.
func readEvents(ctx context.Context, r io.Reader, ch chan<- events.Event) error {
	sc := bufio.NewScanner(r)
	var name string
	var data []string

	dispatch := func() bool {
		defer func() { name, data = "", nil }()
		if len(data) == 0 {
			return true
		}
		if name == "" {
			name = "message"
		}
		ev := events.Event{Name: name, Data: json.RawMessage(strings.Join(data, "\n"))}
		select {
		case ch <- ev:
			return true
		case <-ctx.Done():
			return false
		}
	}

	for sc.Scan() {
		line := sc.Text()
		switch {
		case line == "":
			if !dispatch() {
				return ctx.Err()
			}
		case strings.HasPrefix(line, ":"):
			// comment
		case strings.HasPrefix(line, "event:"):
			name = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			v := strings.TrimPrefix(line, "data:")
			data = append(data, strings.TrimPrefix(v, " "))
		}
	}
	if err := sc.Err(); err != nil {
		return err
	}
	dispatch()
	return nil
}

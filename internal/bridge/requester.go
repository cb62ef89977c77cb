package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/google/uuid"
)

// Requester asks the embedding parent for the location id. Requests are
// fire-and-forget: the call returns at once and the reply, if the parent
// sends one, arrives later on the Server's /message endpoint.
type Requester struct {
	parentURL string
	replyTo   func() string
	client    *http.Client
	settings  Settings
	logger    Logger

	wg sync.WaitGroup
}

// RequesterOption customizes Requester construction.
type RequesterOption func(*Requester)

// RequesterWithHTTPClient shares an http.Client with the rest of the widget.
func RequesterWithHTTPClient(hc *http.Client) RequesterOption {
	return func(r *Requester) {
		if hc != nil {
			r.client = hc
		}
	}
}

// RequesterWithLogger injects a logger for delivery failures.
func RequesterWithLogger(l Logger) RequesterOption {
	return func(r *Requester) {
		if l != nil {
			r.logger = l
		}
	}
}

// RequesterWithReplyTo sets the address the parent should answer on,
// usually Server.MessageURL.
func RequesterWithReplyTo(replyTo func() string) RequesterOption {
	return func(r *Requester) {
		r.replyTo = replyTo
	}
}

// NewRequester targets settings.ParentURL. With no parent URL configured
// every request is a no-op.
func NewRequester(settings Settings, opts ...RequesterOption) *Requester {
	settings.normalize()
	r := &Requester{
		parentURL: settings.ParentURL,
		client:    http.DefaultClient,
		settings:  settings,
		logger:    nopLogger{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// RequestLocation posts a REQUEST_LOCATION_ID message in the background.
// It never blocks on the network and only fails if the message cannot be
// encoded.
func (r *Requester) RequestLocation(ctx context.Context) error {
	if r == nil || r.parentURL == "" {
		return nil
	}
	msg := Message{
		Type:      TypeRequestLocation,
		RequestID: uuid.NewString(),
	}
	if r.replyTo != nil {
		msg.ReplyTo = r.replyTo()
	}
	buf, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("bridge: encode request: %w", err)
	}
	// detach from the caller; the reply is never awaited
	base := context.WithoutCancel(ctx)
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		sendCtx, cancel := context.WithTimeout(base, r.settings.RequestTimeout)
		defer cancel()
		if err := r.send(sendCtx, buf); err != nil {
			r.logger.Printf("bridge: location request %s failed: %v", msg.RequestID, err)
			return
		}
		r.logger.Printf("bridge: location request %s delivered", msg.RequestID)
	}()
	return nil
}

// Wait blocks until in-flight requests finish. Used on shutdown and in tests.
func (r *Requester) Wait() {
	if r == nil {
		return
	}
	r.wg.Wait()
}

func (r *Requester) send(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.parentURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := r.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("parent returned status %d", resp.StatusCode)
	}
	return nil
}

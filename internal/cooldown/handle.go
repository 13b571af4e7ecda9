package cooldown

import (
	"context"
	"time"
)

// Handle is bound to the request that opened a window. Commands use it to
// refund (Cancel) or adjust (UpdateExpiry, Extend) their own cooldown after
// it was charged. A nil Handle is valid and does nothing.
type Handle struct {
	m      *Manager
	req    Request
	key    string
	bypass bool
}

// Key returns the window key, empty for bypassed owners.
func (h *Handle) Key() string {
	if h == nil {
		return ""
	}
	return h.key
}

// Request returns the request the handle was opened with.
func (h *Handle) Request() Request {
	if h == nil {
		return Request{}
	}
	return h.req
}

// Cancel removes the window.
func (h *Handle) Cancel(ctx context.Context) error {
	if h == nil || h.bypass {
		return nil
	}
	return h.m.Cancel(ctx, h.req)
}

// UpdateExpiry moves the window to expires.
func (h *Handle) UpdateExpiry(ctx context.Context, expires time.Time) error {
	if h == nil || h.bypass {
		return nil
	}
	return h.m.UpdateExpiry(ctx, h.req, expires)
}

// Extend pushes the window d further out from its current expiry, or from now
// if the window is already gone.
func (h *Handle) Extend(ctx context.Context, d time.Duration) error {
	if h == nil || h.bypass {
		return nil
	}
	base := h.m.now()
	if rem, ok, err := h.m.Remaining(h.req); err != nil {
		return err
	} else if ok {
		base = base.Add(rem)
	}
	return h.UpdateExpiry(ctx, base.Add(d))
}

package mediapool

import (
	"context"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
)

// Attach subscribes the pool to every network response in the given chromedp
// context. The subscription lives as long as the context; it runs on
// chromedp's event goroutine and never blocks the traversal loop.
//
// network.Enable must be run on the context before navigation for events to
// flow; EnableAction returns the action to include in the setup sequence.
func Attach(ctx context.Context, pool *Pool) {
	chromedp.ListenTarget(ctx, func(ev interface{}) {
		resp, ok := ev.(*network.EventResponseReceived)
		if !ok {
			return
		}
		r := resp.Response
		if r == nil {
			return
		}
		pool.Observe(r.URL, int(r.Status), r.MimeType)
	})
}

// EnableAction turns on CDP network events for the session.
func EnableAction() chromedp.Action {
	return network.Enable()
}

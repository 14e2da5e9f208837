package main

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.mau.fi/whatsmeow/types"
)

// startComposing shows "typing..." in chat until the returned stop function is
// called. WhatsApp drops the composing state after about 25 seconds, so it is
// re-sent every interval. Only the first signal's error is returned.
func startComposing(ctx context.Context, t Transport, chat types.JID, interval time.Duration, log zerolog.Logger) (func(), error) {
	if err := t.SetComposing(ctx, chat, true); err != nil {
		return func() {}, err
	}

	refreshCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-refreshCtx.Done():
				return
			case <-ticker.C:
				if err := t.SetComposing(refreshCtx, chat, true); err != nil && refreshCtx.Err() == nil {
					log.Warn().Err(err).Str("chat", chat.String()).Msg("Failed to refresh typing indicator")
				}
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			<-done
			// The parent context may already be gone; clearing the indicator still matters.
			if err := t.SetComposing(context.WithoutCancel(ctx), chat, false); err != nil {
				log.Warn().Err(err).Str("chat", chat.String()).Msg("Failed to clear typing indicator")
			}
		})
	}, nil
}

package extractor

import (
	"context"

	"golang.org/x/time/rate"
)

type limitedChatter struct {
	inner   Chatter
	limiter *rate.Limiter
}

// NewLimited paces calls to inner at rps with the given burst. A non-positive
// rps returns inner unchanged.
func NewLimited(inner Chatter, rps float64, burst int) Chatter {
	if rps <= 0 {
		return inner
	}
	if burst <= 0 {
		burst = 1
	}
	return &limitedChatter{inner: inner, limiter: rate.NewLimiter(rate.Limit(rps), burst)}
}

func (l *limitedChatter) Provider() string { return l.inner.Provider() }

func (l *limitedChatter) Chat(ctx context.Context, messages []Message) (string, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return "", err
	}
	return l.inner.Chat(ctx, messages)
}

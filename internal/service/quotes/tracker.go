package quotes

import (
	"context"
	"strings"
	"sync"

	"PriceCast/internal/domain/models"
	drepo "PriceCast/internal/domain/repository"
	applogger "PriceCast/pkg/logger"
)

// Tracker consumes a QuoteStream and keeps the latest quote per symbol.
type Tracker struct {
	stream  drepo.QuoteStream
	metrics drepo.Metrics
	l       *applogger.Logger

	mu     sync.RWMutex
	latest map[string]*models.Quote
}

func NewTracker(stream drepo.QuoteStream, metrics drepo.Metrics, l *applogger.Logger) *Tracker {
	return &Tracker{
		stream:  stream,
		metrics: metrics,
		l:       l,
		latest:  make(map[string]*models.Quote),
	}
}

// Run connects, subscribes and consumes quotes until ctx is cancelled.
// Stream errors trigger a reconnect instead of terminating the loop.
func (t *Tracker) Run(ctx context.Context) error {
	if err := t.stream.Connect(ctx); err != nil {
		return err
	}
	if err := t.stream.Subscribe(ctx); err != nil {
		return err
	}

	for {
		quotes, errs := t.stream.Read(ctx)
	consume:
		for {
			select {
			case <-ctx.Done():
				return t.stream.Close()
			case q, ok := <-quotes:
				if !ok {
					break consume
				}
				t.record(q)
			case err, ok := <-errs:
				if !ok {
					break consume
				}
				if err != nil {
					t.l.Warn("quote stream error", applogger.Error(err))
					if t.metrics != nil {
						t.metrics.RecordError("quote_stream")
					}
					break consume
				}
			}
		}

		select {
		case <-ctx.Done():
			return t.stream.Close()
		default:
		}
		if err := t.stream.Reconnect(ctx); err != nil {
			t.l.Error("quote stream reconnect failed", applogger.Error(err))
			if t.metrics != nil {
				t.metrics.RecordError("quote_reconnect")
			}
		}
	}
}

func (t *Tracker) record(q *models.Quote) {
	key := strings.ToLower(q.Symbol)
	t.mu.Lock()
	t.latest[key] = q
	t.mu.Unlock()
	if t.metrics != nil {
		t.metrics.RecordLastPrice(key, q.Price)
	}
}

// Latest returns the most recent quote for a symbol, if any.
func (t *Tracker) Latest(symbol string) (*models.Quote, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	q, ok := t.latest[strings.ToLower(symbol)]
	return q, ok
}

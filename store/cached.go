package store

import (
	"context"

	"go.uber.org/zap"

	"github.com/minios-linux/nameproxy/proxy"
)

// CachedTranslator answers repeated sentences from the store and forwards
// misses to Next. Cache failures are logged and never fail a translation.
type CachedTranslator struct {
	Store *Store
	Next  proxy.Translator
	// Namespace separates caches of different providers or language pairs.
	Namespace string
	Logger    *zap.Logger
}

var _ proxy.Translator = (*CachedTranslator)(nil)

// Translate implements proxy.Translator.
func (c *CachedTranslator) Translate(ctx context.Context, sentence string) (string, error) {
	log := c.Logger
	if log == nil {
		log = zap.NewNop()
	}

	out, ok, err := c.Store.CachedTranslation(ctx, c.Namespace, sentence)
	switch {
	case err != nil:
		log.Warn("translation cache read failed", zap.Error(err))
	case ok:
		log.Debug("translation cache hit", zap.String("namespace", c.Namespace))
		return out, nil
	}

	out, err = c.Next.Translate(ctx, sentence)
	if err != nil {
		return "", err
	}
	if err := c.Store.PutTranslation(ctx, c.Namespace, sentence, out); err != nil {
		log.Warn("translation cache write failed", zap.Error(err))
	}
	return out, nil
}

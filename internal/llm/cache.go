package llm

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"sync/atomic"

	"github.com/PentesterFlow/jalapi/internal/logger"
)

// Cached serves repeated requests from a Store. Only successful replies are
// stored.
type Cached struct {
	next  Completer
	store Store
	log   *logger.Logger

	hits   atomic.Int64
	misses atomic.Int64
}

// NewCached wraps next with store.
func NewCached(next Completer, store Store, log *logger.Logger) *Cached {
	return &Cached{
		next:  next,
		store: store,
		log:   logger.OrNop(log).WithComponent("llm-cache"),
	}
}

// Complete returns the stored reply for req, or asks next and stores the
// result. Store failures degrade to a miss.
func (c *Cached) Complete(ctx context.Context, req Request) (Response, error) {
	key := CacheKey(req)

	resp, ok, err := c.store.Get(key)
	if err != nil {
		c.log.Event(logger.WarnLevel).Err(err).Msg("Cache read failed")
	}
	if ok {
		c.hits.Add(1)
		resp.Cached = true
		return resp, nil
	}
	c.misses.Add(1)

	resp, err = c.next.Complete(ctx, req)
	if err != nil {
		return Response{}, err
	}
	if err := c.store.Put(key, resp); err != nil {
		c.log.Event(logger.WarnLevel).Err(err).Msg("Cache write failed")
	}
	return resp, nil
}

// Stats returns the hit and miss counts.
func (c *Cached) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// CacheKey is the SHA-256 of everything that determines a reply.
func CacheKey(req Request) string {
	h := sha256.New()
	write := func(s string) {
		h.Write([]byte(strconv.Itoa(len(s))))
		h.Write([]byte{':'})
		h.Write([]byte(s))
	}
	write(req.Model)
	write(req.System)
	for _, m := range req.History {
		write(m.Role)
		write(m.Content)
	}
	write(req.Prompt)
	write(strconv.Itoa(req.MaxTokens))
	write(strconv.FormatFloat(req.Temperature, 'g', -1, 64))
	return hex.EncodeToString(h.Sum(nil))
}

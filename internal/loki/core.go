package loki

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap/zapcore"
)

// Core adapts Client into a zapcore.Core, batching entries and flushing
// them on a ticker so every zap.Logger call doesn't block on an HTTP round
// trip (spec.md's ambient-logging-stack carry-through — this is an
// additional sink, not a replacement for the teacher's stdout JSON core).
type Core struct {
	zapcore.LevelEnabler
	enc    zapcore.Encoder
	client *Client
	labels map[string]string

	mu      sync.Mutex
	pending []Entry
}

// NewCore wraps client as a zapcore.Core at the given minimum level,
// flushing buffered entries every flushInterval.
func NewCore(client *Client, enc zapcore.Encoder, level zapcore.LevelEnabler, labels map[string]string, flushInterval time.Duration) *Core {
	if flushInterval <= 0 {
		flushInterval = 2 * time.Second
	}
	c := &Core{LevelEnabler: level, enc: enc, client: client, labels: labels}
	go c.flushLoop(flushInterval)
	return c
}

func (c *Core) With(fields []zapcore.Field) zapcore.Core {
	clone := *c
	enc := c.enc.Clone()
	for _, f := range fields {
		f.AddTo(enc)
	}
	clone.enc = enc
	return &clone
}

func (c *Core) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}

func (c *Core) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	buf, err := c.enc.EncodeEntry(ent, fields)
	if err != nil {
		return err
	}
	line := buf.String()
	buf.Free()

	c.mu.Lock()
	c.pending = append(c.pending, Entry{
		Timestamp: ent.Time,
		Line:      line,
		Labels:    map[string]string{"level": ent.Level.String()},
	})
	c.mu.Unlock()
	return nil
}

func (c *Core) Sync() error {
	return c.flush()
}

func (c *Core) flushLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for range ticker.C {
		_ = c.flush()
	}
}

func (c *Core) flush() error {
	c.mu.Lock()
	if len(c.pending) == 0 {
		c.mu.Unlock()
		return nil
	}
	batch := c.pending
	c.pending = nil
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return c.client.Push(ctx, batch)
}

package engine

import (
	"strings"

	"github.com/roach88/seqcheck/internal/ir"
)

// PinnedPrefix marks context keys whose value must not change once captured.
const PinnedPrefix = "_"

// Context holds the values captured from named regex groups during one
// occurrence. Child occurrences of nested steps share their parent's Context.
// Keys keep their first capture order.
type Context struct {
	keys   []string
	values map[string]string
}

// NewContext returns an empty context.
func NewContext() *Context {
	return &Context{values: make(map[string]string)}
}

// Get returns the value captured for key.
func (c *Context) Get(key string) (string, bool) {
	v, ok := c.values[key]
	return v, ok
}

// Len returns the number of captured keys.
func (c *Context) Len() int {
	return len(c.keys)
}

// Pairs returns the captured values in first capture order.
// Returns nil for an empty context.
func (c *Context) Pairs() []ir.ContextPair {
	if len(c.keys) == 0 {
		return nil
	}
	pairs := make([]ir.ContextPair, len(c.keys))
	for i, k := range c.keys {
		pairs[i] = ir.ContextPair{Key: k, Value: c.values[k]}
	}
	return pairs
}

// conflict returns the first pinned key in pairs that already holds a
// different value, along with the value it holds.
func (c *Context) conflict(pairs []ir.ContextPair) (ir.ContextPair, string, bool) {
	for _, p := range pairs {
		if !strings.HasPrefix(p.Key, PinnedPrefix) {
			continue
		}
		if had, ok := c.values[p.Key]; ok && had != p.Value {
			return p, had, true
		}
	}
	return ir.ContextPair{}, "", false
}

// merge stores pairs. Unpinned keys are overwritten.
func (c *Context) merge(pairs []ir.ContextPair) {
	for _, p := range pairs {
		if _, ok := c.values[p.Key]; !ok {
			c.keys = append(c.keys, p.Key)
		}
		c.values[p.Key] = p.Value
	}
}

package mqtt

import (
	"strconv"

	"github.com/sweeney/dimmer/internal/waveform"
)

// DefaultMaxAge is the number of publish rounds after which an unchanged
// value is sent again.
const DefaultMaxAge = 60

// Value is one status value ready to publish.
type Value struct {
	Tag     string
	Payload string
}

// StatusValues are the values published on the status topics.
type StatusValues struct {
	Dim    uint8
	FreqHz float64
	Mode   waveform.Mode
	Effect waveform.EffectKind
}

// Values renders v in publish order. Mode and effect are sent as their
// numeric values.
func (v StatusValues) Values() []Value {
	return []Value{
		{TagDimStatus, strconv.Itoa(int(v.Dim))},
		{TagFreqStatus, FormatFrequency(v.FreqHz)},
		{TagModeStatus, strconv.Itoa(int(v.Mode))},
		{TagEffectStatus, strconv.Itoa(int(v.Effect))},
	}
}

// ValueCache remembers the last published payload per tag.
// Not safe for concurrent use.
type ValueCache struct {
	maxAge int
	last   map[string]string
	age    map[string]int
}

// NewValueCache creates a cache that forces a republish every maxAge rounds.
// maxAge <= 0 selects DefaultMaxAge.
func NewValueCache(maxAge int) *ValueCache {
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	return &ValueCache{
		maxAge: maxAge,
		last:   make(map[string]string),
		age:    make(map[string]int),
	}
}

// Due returns the values that changed since they were last returned, and
// those unchanged for maxAge rounds.
func (c *ValueCache) Due(values []Value) []Value {
	var due []Value
	for _, v := range values {
		last, seen := c.last[v.Tag]
		if seen && last == v.Payload && c.age[v.Tag]+1 < c.maxAge {
			c.age[v.Tag]++
			continue
		}
		c.last[v.Tag] = v.Payload
		c.age[v.Tag] = 0
		due = append(due, v)
	}
	return due
}

// Forget clears the cache so every value is due on the next round.
func (c *ValueCache) Forget() {
	clear(c.last)
	clear(c.age)
}

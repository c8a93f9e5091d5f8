package aggregate

import (
	"sort"
)

// Entry is one row of a frequency table
type Entry struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}

// Table is an ordered frequency table
type Table []Entry

// Sum returns the total of all counts
func (t Table) Sum() int {
	total := 0
	for _, e := range t {
		total += e.Count
	}
	return total
}

// Get returns the count for key
func (t Table) Get(key string) (int, bool) {
	for _, e := range t {
		if e.Key == key {
			return e.Count, true
		}
	}
	return 0, false
}

// Keys returns the keys in table order
func (t Table) Keys() []string {
	keys := make([]string, len(t))
	for i, e := range t {
		keys[i] = e.Key
	}
	return keys
}

// Map returns the table as an unordered map
func (t Table) Map() map[string]int {
	m := make(map[string]int, len(t))
	for _, e := range t {
		m[e.Key] = e.Count
	}
	return m
}

// Counter counts keys and remembers the order in which they were first seen
type Counter struct {
	counts map[string]int
	order  []string
}

// NewCounter creates an empty counter
func NewCounter() *Counter {
	return &Counter{counts: make(map[string]int)}
}

// Add increments key by one
func (c *Counter) Add(key string) {
	c.AddN(key, 1)
}

// AddN increments key by n, registering the key even when n is zero
func (c *Counter) AddN(key string, n int) {
	if _, seen := c.counts[key]; !seen {
		c.order = append(c.order, key)
	}
	c.counts[key] += n
}

// Len returns the number of distinct keys
func (c *Counter) Len() int {
	return len(c.order)
}

// Total returns the sum of all counts
func (c *Counter) Total() int {
	total := 0
	for _, n := range c.counts {
		total += n
	}
	return total
}

// Table returns the counts in first-seen order
func (c *Counter) Table() Table {
	t := make(Table, 0, len(c.order))
	for _, key := range c.order {
		t = append(t, Entry{Key: key, Count: c.counts[key]})
	}
	return t
}

// Options controls the post-processing of a counted table
type Options struct {
	// MinCount drops entries below it (inclusive bound)
	MinCount int
	// MaxCount drops entries above it (inclusive bound), 0 for no upper bound
	MaxCount int
	// TopN keeps the first N entries after sorting, 0 for all
	TopN int
}

// DefaultOptions keeps every entry seen at least once
func DefaultOptions() Options {
	return Options{MinCount: 1}
}

// Filter returns the entries whose count lies in [MinCount, MaxCount],
// keeping their order
func (o Options) Filter(t Table) Table {
	out := make(Table, 0, len(t))
	for _, e := range t {
		if e.Count < o.MinCount {
			continue
		}
		if o.MaxCount > 0 && e.Count > o.MaxCount {
			continue
		}
		out = append(out, e)
	}
	return out
}

// Truncate keeps the first TopN entries
func (o Options) Truncate(t Table) Table {
	if o.TopN > 0 && len(t) > o.TopN {
		return t[:o.TopN]
	}
	return t
}

// SortByCount orders entries by descending count; ties keep their order
func SortByCount(t Table) {
	sort.SliceStable(t, func(i, j int) bool {
		return t[i].Count > t[j].Count
	})
}

// SortByKey orders entries by ascending key
func SortByKey(t Table) {
	sort.SliceStable(t, func(i, j int) bool {
		return t[i].Key < t[j].Key
	})
}

// Finalize filters, sorts by descending count and truncates. Filtering only
// happens here, after every observation has been counted.
func Finalize(c *Counter, opts Options) Table {
	t := opts.Filter(c.Table())
	SortByCount(t)
	return opts.Truncate(t)
}

// Skip records an input record an aggregation could not use
type Skip struct {
	Index  int    `json:"index"`
	Reason string `json:"reason"`
}

// Diagnostics lists the records skipped by an aggregation
type Diagnostics struct {
	Processed int    `json:"processed"`
	Skipped   []Skip `json:"skipped,omitempty"`
}

func (d *Diagnostics) skip(index int, reason string) {
	d.Skipped = append(d.Skipped, Skip{Index: index, Reason: reason})
}

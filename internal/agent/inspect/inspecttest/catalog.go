// Package inspecttest provides an in-memory catalog for tests.
package inspecttest

import (
	"context"
	"slices"
	"sync"
)

type Catalog struct {
	mu      sync.Mutex
	tables  []string
	columns map[string][]string
	err     error
	lookups int
}

func New() *Catalog {
	return &Catalog{columns: map[string][]string{}}
}

// WithTable adds a table and its columns.
func (c *Catalog) WithTable(name string, columns ...string) *Catalog {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !slices.Contains(c.tables, name) {
		c.tables = append(c.tables, name)
	}
	c.columns[name] = columns
	return c
}

// Fail makes every lookup return err; nil restores normal behaviour.
func (c *Catalog) Fail(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.err = err
}

func (c *Catalog) Lookups() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lookups
}

func (c *Catalog) ListTables(ctx context.Context) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lookups++
	if c.err != nil {
		return nil, c.err
	}
	return slices.Clone(c.tables), nil
}

func (c *Catalog) ListColumns(ctx context.Context, table string) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lookups++
	if c.err != nil {
		return nil, c.err
	}
	return slices.Clone(c.columns[table]), nil
}

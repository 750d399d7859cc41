// Package catalog defines the procurement sources and the batches they are queried in.
package catalog

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/jonathan/procurement-watch/internal/prompts"
	"github.com/jonathan/procurement-watch/internal/types"
)

// Catalog holds the immutable source and batch definitions
type Catalog struct {
	Sources []types.Source
	Batches []types.Batch

	byID map[string]types.Source
}

// New builds a catalog and validates that the batches partition the sources
func New(sources []types.Source, batches []types.Batch) (*Catalog, error) {
	c := &Catalog{
		Sources: sources,
		Batches: batches,
		byID:    make(map[string]types.Source, len(sources)),
	}
	for _, s := range sources {
		c.byID[s.ID] = s
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Default returns the built-in catalog of 17 sources in 4 batches. Every
// embedded batch prompt must be used by one of them.
func Default() *Catalog {
	c, err := New(defaultSources(), defaultBatches())
	if err != nil {
		panic(fmt.Sprintf("invalid built-in catalog: %v", err))
	}
	if unused := c.UnusedPrompts(); len(unused) > 0 {
		panic(fmt.Sprintf("invalid built-in catalog: prompts %v are not used by any batch", unused))
	}
	return c
}

// UnusedPrompts lists the embedded batch prompt keys no batch refers to
func (c *Catalog) UnusedPrompts() []string {
	used := make(map[string]bool, len(c.Batches))
	for _, b := range c.Batches {
		used[b.PromptKey] = true
	}

	var unused []string
	for _, key := range prompts.BatchKeys() {
		if !used[key] {
			unused = append(unused, key)
		}
	}
	return unused
}

// Validate checks field constraints and the partition invariant: every source
// belongs to exactly one batch and every batch member is a known source.
func (c *Catalog) Validate() error {
	validate := validator.New()

	if len(c.Sources) == 0 {
		return &Error{Message: "catalog has no sources"}
	}

	seen := make(map[string]bool, len(c.Sources))
	for i := range c.Sources {
		if err := validate.Struct(c.Sources[i]); err != nil {
			return &Error{Message: fmt.Sprintf("source %d", i), Cause: err}
		}
		if seen[c.Sources[i].ID] {
			return &Error{Message: fmt.Sprintf("duplicate source id %q", c.Sources[i].ID)}
		}
		seen[c.Sources[i].ID] = true
	}

	assigned := make(map[string]string, len(c.Sources))
	batchIDs := make(map[string]bool, len(c.Batches))
	for i := range c.Batches {
		b := c.Batches[i]
		if err := validate.Struct(b); err != nil {
			return &Error{Message: fmt.Sprintf("batch %d", i), Cause: err}
		}
		if batchIDs[b.ID] {
			return &Error{Message: fmt.Sprintf("duplicate batch id %q", b.ID)}
		}
		batchIDs[b.ID] = true
		if _, err := prompts.Batch(b.PromptKey); err != nil {
			return &Error{Message: fmt.Sprintf("batch %q", b.ID), Cause: err}
		}
		for _, sid := range b.SourceIDs {
			if !seen[sid] {
				return &Error{Message: fmt.Sprintf("batch %q references unknown source %q", b.ID, sid)}
			}
			if other, ok := assigned[sid]; ok {
				return &Error{Message: fmt.Sprintf("source %q is in batches %q and %q", sid, other, b.ID)}
			}
			assigned[sid] = b.ID
		}
	}

	for _, s := range c.Sources {
		if _, ok := assigned[s.ID]; !ok {
			return &Error{Message: fmt.Sprintf("source %q is not in any batch", s.ID)}
		}
	}
	return nil
}

// Source looks up a source by id
func (c *Catalog) Source(id string) (types.Source, bool) {
	s, ok := c.byID[id]
	return s, ok
}

// SourceIDs returns all source ids in catalog order
func (c *Catalog) SourceIDs() []string {
	ids := make([]string, len(c.Sources))
	for i, s := range c.Sources {
		ids[i] = s.ID
	}
	return ids
}

// Prompt returns the instruction prompt for a batch
func (c *Catalog) Prompt(b types.Batch) (string, error) {
	return prompts.Batch(b.PromptKey)
}

// Regions returns the distinct regions in catalog order
func (c *Catalog) Regions() []types.Region {
	var out []types.Region
	seen := map[types.Region]bool{}
	for _, s := range c.Sources {
		if !seen[s.Region] {
			seen[s.Region] = true
			out = append(out, s.Region)
		}
	}
	return out
}

// Categories returns the distinct categories in catalog order
func (c *Catalog) Categories() []types.Category {
	var out []types.Category
	seen := map[types.Category]bool{}
	for _, s := range c.Sources {
		if !seen[s.Category] {
			seen[s.Category] = true
			out = append(out, s.Category)
		}
	}
	return out
}

// Package domain defines the entity model, change records, and rule evaluation
// primitives used by contactbook.
package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"iter"
	"slices"
)

// Entity is a record identified by a unique code.
type Entity[T any] interface {
	Code() string
	// Copy returns an independent copy so callers never alias collection state.
	Copy() T
	// Compare orders entities for Order; negative when the receiver sorts first.
	Compare(other T) int
}

// Entities is an ordered collection of entities with unique codes.
type Entities[T Entity[T]] struct {
	items []T
	index map[string]int
}

// NewEntities returns an empty collection.
func NewEntities[T Entity[T]]() *Entities[T] {
	return &Entities[T]{index: make(map[string]int)}
}

// EntitiesOf builds a collection from items, rejecting empty or duplicate codes.
func EntitiesOf[T Entity[T]](items ...T) (*Entities[T], error) {
	out := NewEntities[T]()
	for _, item := range items {
		if err := out.Add(item); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (c *Entities[T]) ensureIndex() {
	if c.index == nil {
		c.index = make(map[string]int, len(c.items))
	}
}

func (c *Entities[T]) reindex() {
	c.index = make(map[string]int, len(c.items))
	for i, item := range c.items {
		c.index[item.Code()] = i
	}
}

// Len returns the number of entities.
func (c *Entities[T]) Len() int {
	if c == nil {
		return 0
	}
	return len(c.items)
}

// IsEmpty reports whether the collection holds no entities.
func (c *Entities[T]) IsEmpty() bool { return c.Len() == 0 }

// Add appends entity, failing when its code is empty or already present.
func (c *Entities[T]) Add(entity T) error {
	code := entity.Code()
	if code == "" {
		return ErrEmptyCode
	}
	c.ensureIndex()
	if _, exists := c.index[code]; exists {
		return DuplicateCodeError{Code: code}
	}
	c.items = append(c.items, entity.Copy())
	c.index[code] = len(c.items) - 1
	return nil
}

// Contains reports whether an entity with code exists.
func (c *Entities[T]) Contains(code string) bool {
	if c == nil {
		return false
	}
	_, ok := c.index[code]
	return ok
}

// Find returns a copy of the entity with code.
func (c *Entities[T]) Find(code string) (T, bool) {
	var zero T
	if c == nil {
		return zero, false
	}
	i, ok := c.index[code]
	if !ok {
		return zero, false
	}
	return c.items[i].Copy(), true
}

// Remove deletes the entity with code, preserving the order of the rest.
func (c *Entities[T]) Remove(code string) bool {
	if c == nil {
		return false
	}
	i, ok := c.index[code]
	if !ok {
		return false
	}
	c.items = slices.Delete(c.items, i, i+1)
	c.reindex()
	return true
}

// Replace swaps the stored entity sharing entity's code, keeping its position.
func (c *Entities[T]) Replace(entity T) error {
	code := entity.Code()
	if c == nil {
		return NotFoundError{Code: code}
	}
	i, ok := c.index[code]
	if !ok {
		return NotFoundError{Code: code}
	}
	c.items[i] = entity.Copy()
	return nil
}

// Clear removes every entity. It is a no-op on a nil collection.
func (c *Entities[T]) Clear() {
	if c == nil {
		return
	}
	c.items = nil
	c.index = make(map[string]int)
}

// Order stably sorts the collection using the entities' Compare.
func (c *Entities[T]) Order() {
	c.OrderBy(func(a, b T) int { return a.Compare(b) })
}

// OrderBy stably sorts the collection with cmp.
func (c *Entities[T]) OrderBy(cmp func(a, b T) int) {
	if c == nil {
		return
	}
	slices.SortStableFunc(c.items, cmp)
	c.reindex()
}

// Select returns a new collection with copies of the entities matching pred.
func (c *Entities[T]) Select(pred func(T) bool) *Entities[T] {
	out := NewEntities[T]()
	for _, item := range c.All() {
		if pred(item) {
			out.items = append(out.items, item)
			out.index[item.Code()] = len(out.items) - 1
		}
	}
	return out
}

// All iterates over copies of the entities in collection order.
func (c *Entities[T]) All() iter.Seq2[int, T] {
	return func(yield func(int, T) bool) {
		if c == nil {
			return
		}
		for i, item := range c.items {
			if !yield(i, item.Copy()) {
				return
			}
		}
	}
}

// List returns copies of the entities in collection order.
func (c *Entities[T]) List() []T {
	out := make([]T, 0, c.Len())
	for _, item := range c.All() {
		out = append(out, item)
	}
	return out
}

// Codes returns entity codes in collection order.
func (c *Entities[T]) Codes() []string {
	out := make([]string, 0, c.Len())
	if c == nil {
		return out
	}
	for _, item := range c.items {
		out = append(out, item.Code())
	}
	return out
}

// Copy returns a deep copy of the collection.
func (c *Entities[T]) Copy() *Entities[T] {
	out := NewEntities[T]()
	if c == nil {
		return out
	}
	out.items = make([]T, 0, len(c.items))
	for _, item := range c.items {
		out.items = append(out.items, item.Copy())
	}
	out.reindex()
	return out
}

// MarshalJSON encodes the collection as a list of records in collection order.
func (c *Entities[T]) MarshalJSON() ([]byte, error) {
	if c == nil || len(c.items) == 0 {
		return []byte("[]"), nil
	}
	return json.Marshal(c.items)
}

// UnmarshalJSON decodes a list of records, rejecting empty and duplicate codes.
// The receiver is left unchanged when decoding fails.
func (c *Entities[T]) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		c.Clear()
		return nil
	}
	var items []T
	if err := json.Unmarshal(data, &items); err != nil {
		return fmt.Errorf("decode entities: %w", err)
	}
	decoded, err := EntitiesOf(items...)
	if err != nil {
		return err
	}
	*c = *decoded
	return nil
}

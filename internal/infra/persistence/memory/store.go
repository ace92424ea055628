// Package memory provides an in-memory implementation of the contact
// persistence store used for tests, ephemeral environments, and as the
// transactional core of the snapshotting SQL backends.
package memory

import (
	"contactbook/pkg/domain"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// Compile-time contract assertion ensuring memory.Store adheres to the domain persistence interface.
var _ domain.PersistentStore = (*Store)(nil)

type (
	// Contact aliases domain.Contact for in-memory persistence operations.
	Contact = domain.Contact
	// Contacts aliases the domain contact collection.
	Contacts = domain.Contacts
	// Change aliases domain.Change captured in transactions.
	Change = domain.Change
	// Result aliases domain.Result summarizing rule evaluation.
	Result = domain.Result
	// RulesEngine aliases domain.RulesEngine used to evaluate rules.
	RulesEngine = domain.RulesEngine
	// Transaction aliases domain.Transaction representing a mutable unit of work.
	Transaction = domain.Transaction
	// TransactionView aliases domain.TransactionView providing read-only state.
	TransactionView = domain.TransactionView
)

// Snapshot captures a point-in-time clone of the store state.
type Snapshot struct {
	Contacts *Contacts `json:"contacts"`
}

func migrateSnapshot(snapshot Snapshot) Snapshot {
	if snapshot.Contacts == nil {
		snapshot.Contacts = domain.NewContacts()
	}
	return snapshot
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source used to stamp created/updated times.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.nowFn = now
		}
	}
}

// CommitHook receives the state a transaction is about to commit. A non-nil
// error aborts the commit and leaves the previous state in place.
type CommitHook func(ctx context.Context, state *Contacts) error

// WithCommitHook registers hook to run, under the store lock, before every commit.
func WithCommitHook(hook CommitHook) Option {
	return func(s *Store) {
		s.commitHook = hook
	}
}

// Store provides an in-memory transactional store for contacts.
type Store struct {
	mu         sync.RWMutex
	state      *Contacts
	engine     *RulesEngine
	nowFn      func() time.Time
	commitHook CommitHook
}

// NewStore constructs an in-memory store backed by the provided rules engine.
func NewStore(engine *RulesEngine, opts ...Option) *Store {
	if engine == nil {
		engine = domain.NewRulesEngine()
	}
	s := &Store{
		state:  domain.NewContacts(),
		engine: engine,
		nowFn:  func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ExportState clones the current store state for external persistence.
func (s *Store) ExportState() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{Contacts: s.state.Copy()}
}

// ImportState replaces the store state with the provided snapshot.
func (s *Store) ImportState(snapshot Snapshot) {
	snapshot = migrateSnapshot(snapshot)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = snapshot.Contacts.Copy()
}

// RulesEngine exposes the currently configured engine.
func (s *Store) RulesEngine() *RulesEngine {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engine
}

// NowFunc returns the time provider used by the in-memory store.
func (s *Store) NowFunc() func() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nowFn
}

type transaction struct {
	state   *Contacts
	changes []Change
	now     time.Time
}

type transactionView struct {
	state *Contacts
}

func newTransactionView(state *Contacts) TransactionView {
	return transactionView{state: state}
}

// ListContacts returns all contacts in the snapshot in default order.
func (v transactionView) ListContacts() []Contact {
	return orderedContacts(v.state)
}

// FindContact retrieves a contact by code from the snapshot.
func (v transactionView) FindContact(code string) (Contact, bool) {
	return v.state.Find(code)
}

func orderedContacts(state *Contacts) []Contact {
	ordered := state.Copy()
	ordered.Order()
	return ordered.List()
}

// RunInTransaction executes fn within a transactional copy of the store state.
// The copy replaces committed state only when fn succeeds, no blocking rule fires
// and the commit hook, if any, accepts it.
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx Transaction) error) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &transaction{
		state: s.state.Copy(),
		now:   s.nowFn(),
	}

	if err := fn(tx); err != nil {
		return Result{}, err
	}

	var result Result
	if s.engine != nil {
		res, err := s.engine.Evaluate(ctx, newTransactionView(tx.state), tx.changes)
		if err != nil {
			return Result{}, err
		}
		result = res
		if res.HasBlocking() {
			return res, domain.RuleViolationError{Result: res}
		}
	}

	if s.commitHook != nil {
		if err := s.commitHook(ctx, tx.state.Copy()); err != nil {
			return result, err
		}
	}
	s.state = tx.state
	return result, nil
}

// View executes fn against a read-only snapshot of the store state.
func (s *Store) View(ctx context.Context, fn func(TransactionView) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	snapshot := s.state.Copy()
	s.mu.RUnlock()
	return fn(newTransactionView(snapshot))
}

func (tx *transaction) recordChange(change Change) {
	tx.changes = append(tx.changes, change)
}

// Snapshot returns a read-only view over the transactional state.
func (tx *transaction) Snapshot() TransactionView {
	return newTransactionView(tx.state)
}

// FindContact exposes contact lookup within the transaction scope.
func (tx *transaction) FindContact(code string) (Contact, bool) {
	return tx.state.Find(code)
}

// ListContacts returns the transaction's contacts in default order.
func (tx *transaction) ListContacts() []Contact {
	return orderedContacts(tx.state)
}

// CreateContact stores a new contact within the transaction. Fields are trimmed first.
func (tx *transaction) CreateContact(c Contact) (Contact, error) {
	c = c.Normalized()
	c.CreatedAt = tx.now
	c.UpdatedAt = tx.now
	if err := tx.state.Add(c); err != nil {
		var dup domain.DuplicateCodeError
		if errors.As(err, &dup) {
			dup.Entity = domain.EntityContact
			return Contact{}, dup
		}
		return Contact{}, err
	}
	after := c
	tx.recordChange(Change{Entity: domain.EntityContact, Action: domain.ActionCreate, After: &after})
	return c, nil
}

// UpdateContact mutates a contact using the provided mutator function.
// The code is immutable; a mutator that changes it is overridden.
func (tx *transaction) UpdateContact(code string, mutator func(*Contact) error) (Contact, error) {
	current, ok := tx.state.Find(code)
	if !ok {
		return Contact{}, domain.NotFoundError{Entity: domain.EntityContact, Code: code}
	}
	before := current
	if err := mutator(&current); err != nil {
		return Contact{}, err
	}
	current = current.Normalized()
	current.ContactCode = code
	current.CreatedAt = before.CreatedAt
	current.UpdatedAt = tx.now
	if err := tx.state.Replace(current); err != nil {
		return Contact{}, fmt.Errorf("replace contact %q: %w", code, err)
	}
	after := current
	tx.recordChange(Change{Entity: domain.EntityContact, Action: domain.ActionUpdate, Before: &before, After: &after})
	return current, nil
}

// DeleteContact removes a contact from the transaction state.
func (tx *transaction) DeleteContact(code string) error {
	current, ok := tx.state.Find(code)
	if !ok {
		return domain.NotFoundError{Entity: domain.EntityContact, Code: code}
	}
	tx.state.Remove(code)
	tx.recordChange(Change{Entity: domain.EntityContact, Action: domain.ActionDelete, Before: &current})
	return nil
}

// GetContact retrieves a contact by code from committed state.
func (s *Store) GetContact(code string) (Contact, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Find(code)
}

// ListContacts returns all contacts from committed state in default order.
func (s *Store) ListContacts() []Contact {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return orderedContacts(s.state)
}

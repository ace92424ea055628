package domain

import "context"

// Transaction exposes the domain operations that a persistence implementation
// must support within an atomic scope.
type Transaction interface {
	Snapshot() TransactionView
	CreateContact(Contact) (Contact, error)
	UpdateContact(code string, mutator func(*Contact) error) (Contact, error)
	DeleteContact(code string) error
	FindContact(code string) (Contact, bool)
	ListContacts() []Contact
}

// TransactionView provides read-only access to snapshot data for rules.
type TransactionView interface {
	RuleView
}

// PersistentStore is a minimal abstraction over durable backends. It mirrors
// the subset of store capabilities used directly by higher layers.
type PersistentStore interface {
	RunInTransaction(ctx context.Context, fn func(Transaction) error) (Result, error)
	View(ctx context.Context, fn func(TransactionView) error) error
	GetContact(code string) (Contact, bool)
	ListContacts() []Contact
}

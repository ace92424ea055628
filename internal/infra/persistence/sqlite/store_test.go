package sqlite

import (
	"contactbook/pkg/domain"
	"context"
	"path/filepath"
	"testing"
)

func createContact(t *testing.T, s *Store, c domain.Contact) {
	t.Helper()
	if _, err := s.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		_, err := tx.CreateContact(c)
		return err
	}); err != nil {
		t.Fatalf("create %s: %v", c.Code(), err)
	}
}

func TestStorePersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "contacts.db")
	store, err := NewStore(path, domain.NewRulesEngine())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	if store.Path() != path {
		t.Fatalf("unexpected path %s", store.Path())
	}
	createContact(t, store, domain.NewContact("ada", "Ada", "Lovelace", "555-0100"))
	createContact(t, store, domain.NewContact("alan", "Alan", "Turing", "555-0101"))
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := NewStore(path, domain.NewRulesEngine())
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer func() { _ = reopened.Close() }()
	list := reopened.ListContacts()
	if len(list) != 2 || list[0].Code() != "ada" || list[1].Number != "555-0101" {
		t.Fatalf("unexpected contacts after reopen: %+v", list)
	}
}

func TestStoreFailedTransactionDoesNotPersist(t *testing.T) {
	path := filepath.Join(t.TempDir(), "contacts.db")
	store, err := NewStore(path, nil)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	createContact(t, store, domain.NewContact("dup", "Dup", "", ""))
	if _, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		_, err := tx.CreateContact(domain.NewContact("dup", "Again", "", ""))
		return err
	}); err == nil {
		t.Fatalf("expected duplicate error")
	}

	var count int
	if err := store.DB().QueryRow(`SELECT COUNT(*) FROM state`).Scan(&count); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected single bucket row, got %d", count)
	}
	_ = store.Close()
}

func TestStoreRejectsCorruptPayload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "contacts.db")
	store, err := NewStore(path, nil)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	if _, err := store.DB().Exec(`INSERT INTO state(bucket,payload) VALUES(?,?)`, contactBucket, []byte(`[{"code":"a"},{"code":"a"}]`)); err != nil {
		t.Fatalf("seed: %v", err)
	}
	_ = store.Close()
	if _, err := NewStore(path, nil); err == nil {
		t.Fatalf("expected duplicate codes in payload to fail load")
	}
}

func TestStorePersistFailureLeavesStateUnchanged(t *testing.T) {
	store, err := NewStore(filepath.Join(t.TempDir(), "contacts.db"), nil)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	createContact(t, store, domain.NewContact("kept", "Kept", "", ""))
	if err := store.DB().Close(); err != nil {
		t.Fatalf("close db: %v", err)
	}

	_, err = store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		_, err := tx.CreateContact(domain.NewContact("x", "X", "", ""))
		return err
	})
	if err == nil {
		t.Fatalf("expected persist failure on closed database")
	}
	if _, ok := store.GetContact("x"); ok {
		t.Fatalf("contact visible after failed persist")
	}
	if _, ok := store.GetContact("kept"); !ok {
		t.Fatalf("previously committed contact lost")
	}
}

package core

import (
	"bytes"
	"contactbook/internal/blob"
	"contactbook/pkg/domain"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ImportMode controls how ImportContacts treats existing contacts.
type ImportMode string

const (
	// ImportMerge adds unknown codes and skips codes already present.
	ImportMerge ImportMode = "merge"
	// ImportReplace removes every existing contact before adding the incoming ones.
	ImportReplace ImportMode = "replace"
)

// ParseImportMode maps a user supplied mode onto an ImportMode. Empty means merge.
func ParseImportMode(s string) (ImportMode, error) {
	switch ImportMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ImportMerge:
		return ImportMerge, nil
	case ImportReplace:
		return ImportReplace, nil
	default:
		return "", fmt.Errorf("unknown import mode %q", s)
	}
}

// ErrInvalidImport wraps every failure to read or decode an import payload.
var ErrInvalidImport = errors.New("invalid import")

// ImportReport summarizes an import.
type ImportReport struct {
	Mode    ImportMode `json:"mode"`
	Added   int        `json:"added"`
	Skipped int        `json:"skipped"`
	Removed int        `json:"removed"`
}

// ExportContentType is the media type of exported contact lists.
const ExportContentType = "application/json"

// ExportKey returns the default blob key for an export.
func ExportKey() string {
	return "exports/contacts-" + uuid.NewString() + ".json"
}

// ExportContacts writes every contact, in default order, as a JSON list to key
// in store. An empty key uses ExportKey.
func (s *Service) ExportContacts(ctx context.Context, store blob.Store, key string) (blob.Info, error) {
	if key == "" {
		key = ExportKey()
	}
	var info blob.Info
	err := s.run(ctx, OpExportContacts, func(ctx context.Context) error {
		var contacts *Contacts
		if err := s.store.View(ctx, func(view TransactionView) error {
			var err error
			contacts, err = domain.EntitiesOf(view.ListContacts()...)
			return err
		}); err != nil {
			return err
		}
		payload, err := json.MarshalIndent(contacts, "", "  ")
		if err != nil {
			return fmt.Errorf("encode contacts: %w", err)
		}
		info, err = store.Put(ctx, key, bytes.NewReader(payload), blob.PutOptions{
			ContentType: ExportContentType,
			Metadata:    map[string]string{"contacts": strconv.Itoa(contacts.Len())},
		})
		if err != nil {
			return fmt.Errorf("store export %s: %w", key, err)
		}
		if info.URL == "" {
			if url, err := store.PresignURL(ctx, key, blob.SignedURLOptions{}); err == nil {
				info.URL = url
			}
		}
		return nil
	}, zap.String("key", key), zap.String("driver", string(store.Driver())))
	return info, err
}

// ImportContacts reads a JSON list of contacts from r and applies it in a single
// transaction. Duplicate codes inside the payload reject the whole import.
func (s *Service) ImportContacts(ctx context.Context, r io.Reader, mode ImportMode) (ImportReport, Result, error) {
	report := ImportReport{Mode: mode}
	var res Result
	err := s.run(ctx, OpImportContacts, func(ctx context.Context) error {
		if mode != ImportMerge && mode != ImportReplace {
			return fmt.Errorf("%w: unknown mode %q", ErrInvalidImport, mode)
		}
		incoming := domain.NewContacts()
		if err := json.NewDecoder(r).Decode(incoming); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidImport, err)
		}
		var err error
		res, err = s.store.RunInTransaction(ctx, func(tx Transaction) error {
			report = ImportReport{Mode: mode}
			if mode == ImportReplace {
				for _, existing := range tx.ListContacts() {
					if err := tx.DeleteContact(existing.Code()); err != nil {
						return err
					}
					report.Removed++
				}
			}
			for _, c := range incoming.All() {
				if _, exists := tx.FindContact(c.Code()); exists {
					report.Skipped++
					continue
				}
				if _, err := tx.CreateContact(c); err != nil {
					return err
				}
				report.Added++
			}
			return nil
		})
		return err
	}, zap.String("mode", string(mode)))
	s.logViolations(OpImportContacts, res)
	if err != nil {
		return ImportReport{Mode: mode}, res, err
	}
	return report, res, nil
}

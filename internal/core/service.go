// Package core implements the contact service: transactional CRUD over a
// persistent store, search, blob export and bulk import.
package core

import (
	"contactbook/internal/infra/persistence/memory"
	"contactbook/pkg/domain"
	"context"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Service operation names reported to metrics, traces and logs.
const (
	OpAddContact     = "add_contact"
	OpUpdateContact  = "update_contact"
	OpRemoveContact  = "remove_contact"
	OpGetContact     = "get_contact"
	OpListContacts   = "list_contacts"
	OpFindContacts   = "find_contacts"
	OpExportContacts = "export_contacts"
	OpImportContacts = "import_contacts"
)

// Service exposes higher-level transactional operations over contacts.
type Service struct {
	store   PersistentStore
	logger  *zap.Logger
	metrics MetricsRecorder
	tracer  Tracer
	now     func() time.Time
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithLogger sets the structured logger. A nil logger is ignored.
func WithLogger(logger *zap.Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(recorder MetricsRecorder) ServiceOption {
	return func(s *Service) {
		if recorder != nil {
			s.metrics = recorder
		}
	}
}

// WithTracer sets the tracer.
func WithTracer(tracer Tracer) ServiceOption {
	return func(s *Service) {
		if tracer != nil {
			s.tracer = tracer
		}
	}
}

// NewService constructs a service backed by the supplied store.
func NewService(store PersistentStore, opts ...ServiceOption) *Service {
	s := &Service{
		store:   store,
		logger:  zap.NewNop(),
		metrics: NoopMetricsRecorder(),
		tracer:  NoopTracer(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewInMemoryService creates a service over a fresh in-memory store.
func NewInMemoryService(engine *RulesEngine, opts ...ServiceOption) *Service {
	return NewService(memory.NewStore(engine), opts...)
}

// Store returns the underlying storage implementation.
func (s *Service) Store() PersistentStore { return s.store }

// run wraps an operation with tracing, metrics and logging.
func (s *Service) run(ctx context.Context, op string, fn func(context.Context) error, fields ...zap.Field) error {
	start := s.now()
	ctx, span := s.tracer.Start(ctx, op)
	err := fn(ctx)
	span.End(err)
	elapsed := s.now().Sub(start)
	s.metrics.Observe(ctx, op, err == nil, elapsed)

	fields = append(fields, zap.String("operation", op), zap.Duration("duration", elapsed))
	if err != nil {
		s.logger.Warn("contact operation failed", append(fields, zap.Error(err))...)
		return err
	}
	s.logger.Debug("contact operation completed", fields...)
	return nil
}

func (s *Service) logViolations(op string, res Result) {
	for _, v := range res.Violations {
		if v.Severity == SeverityBlock {
			continue
		}
		s.logger.Info("rule violation",
			zap.String("operation", op),
			zap.String("rule", v.Rule),
			zap.String("severity", string(v.Severity)),
			zap.String("code", v.Code),
			zap.String("message", v.Message),
		)
	}
}

// AddContact persists a new contact.
func (s *Service) AddContact(ctx context.Context, contact Contact) (Contact, Result, error) {
	var created Contact
	var res Result
	err := s.run(ctx, OpAddContact, func(ctx context.Context) error {
		var err error
		res, err = s.store.RunInTransaction(ctx, func(tx Transaction) error {
			var err error
			created, err = tx.CreateContact(contact)
			return err
		})
		return err
	}, zap.String("code", contact.Code()))
	s.logViolations(OpAddContact, res)
	return created, res, err
}

// UpdateContact mutates a contact using the provided mutator. The code cannot change.
func (s *Service) UpdateContact(ctx context.Context, code string, mutator func(*Contact) error) (Contact, Result, error) {
	var updated Contact
	var res Result
	err := s.run(ctx, OpUpdateContact, func(ctx context.Context) error {
		var err error
		res, err = s.store.RunInTransaction(ctx, func(tx Transaction) error {
			var err error
			updated, err = tx.UpdateContact(code, mutator)
			return err
		})
		return err
	}, zap.String("code", code))
	s.logViolations(OpUpdateContact, res)
	return updated, res, err
}

// RemoveContact deletes a contact record.
func (s *Service) RemoveContact(ctx context.Context, code string) (Result, error) {
	var res Result
	err := s.run(ctx, OpRemoveContact, func(ctx context.Context) error {
		var err error
		res, err = s.store.RunInTransaction(ctx, func(tx Transaction) error {
			return tx.DeleteContact(code)
		})
		return err
	}, zap.String("code", code))
	s.logViolations(OpRemoveContact, res)
	return res, err
}

// GetContact returns the contact with code or a domain.NotFoundError.
func (s *Service) GetContact(ctx context.Context, code string) (Contact, error) {
	var found Contact
	err := s.run(ctx, OpGetContact, func(ctx context.Context) error {
		return s.store.View(ctx, func(view TransactionView) error {
			c, ok := view.FindContact(code)
			if !ok {
				return domain.NotFoundError{Entity: domain.EntityContact, Code: code}
			}
			found = c
			return nil
		})
	}, zap.String("code", code))
	return found, err
}

// ListContacts returns every contact in default order.
func (s *Service) ListContacts(ctx context.Context) ([]Contact, error) {
	return s.FindContacts(ctx, "")
}

// FindContacts returns the contacts matching query in default order. An empty
// query matches everything.
func (s *Service) FindContacts(ctx context.Context, query string) ([]Contact, error) {
	op := OpFindContacts
	query = strings.TrimSpace(query)
	if query == "" {
		op = OpListContacts
	}
	var out []Contact
	err := s.run(ctx, op, func(ctx context.Context) error {
		return s.store.View(ctx, func(view TransactionView) error {
			out = make([]Contact, 0)
			for _, c := range view.ListContacts() {
				if c.Matches(query) {
					out = append(out, c)
				}
			}
			return nil
		})
	}, zap.String("query", query))
	return out, err
}

package core

import (
	"contactbook/pkg/domain"
	"context"
	"fmt"
	"strings"
)

// Rule names.
const (
	RuleContactRequiredFields  = "contact_required_fields"
	RuleContactDuplicateNumber = "contact_duplicate_number"
)

// NewDefaultRulesEngine returns an engine with the built-in contact rules registered.
func NewDefaultRulesEngine() *domain.RulesEngine {
	engine := domain.NewRulesEngine()
	engine.Register(NewContactRequiredFieldsRule())
	engine.Register(NewContactDuplicateNumberRule())
	return engine
}

// NewContactRequiredFieldsRule blocks created or updated contacts that fail Validate.
func NewContactRequiredFieldsRule() domain.Rule {
	return requiredFieldsRule{}
}

type requiredFieldsRule struct{}

func (requiredFieldsRule) Name() string { return RuleContactRequiredFields }

func (requiredFieldsRule) Evaluate(_ context.Context, _ domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, change := range changes {
		if change.After == nil {
			continue
		}
		if err := change.After.Validate(); err != nil {
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     RuleContactRequiredFields,
				Severity: domain.SeverityBlock,
				Message:  fmt.Sprintf("contact %q invalid: %v", change.After.Code(), err),
				Entity:   domain.EntityContact,
				Code:     change.After.Code(),
			})
		}
	}
	return res, nil
}

// NewContactDuplicateNumberRule warns when a touched contact shares its number with another contact.
func NewContactDuplicateNumberRule() domain.Rule {
	return duplicateNumberRule{}
}

type duplicateNumberRule struct{}

func (duplicateNumberRule) Name() string { return RuleContactDuplicateNumber }

func (duplicateNumberRule) Evaluate(_ context.Context, view domain.RuleView, changes []domain.Change) (domain.Result, error) {
	owners := make(map[string][]string)
	for _, c := range view.ListContacts() {
		if n := normalizeNumber(c.Number); n != "" {
			owners[n] = append(owners[n], c.Code())
		}
	}

	res := domain.Result{}
	seen := make(map[string]bool)
	for _, change := range changes {
		if change.After == nil || seen[change.After.Code()] {
			continue
		}
		seen[change.After.Code()] = true
		current, ok := view.FindContact(change.After.Code())
		if !ok {
			continue
		}
		n := normalizeNumber(current.Number)
		if n == "" || len(owners[n]) < 2 {
			continue
		}
		var others []string
		for _, code := range owners[n] {
			if code != current.Code() {
				others = append(others, code)
			}
		}
		res.Violations = append(res.Violations, domain.Violation{
			Rule:     RuleContactDuplicateNumber,
			Severity: domain.SeverityWarn,
			Message:  fmt.Sprintf("contact %q shares number %s with %s", current.Code(), current.Number, strings.Join(others, ", ")),
			Entity:   domain.EntityContact,
			Code:     current.Code(),
		})
	}
	return res, nil
}

// normalizeNumber drops common phone number punctuation so "555-0100" and "555 0100" compare equal.
func normalizeNumber(number string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '.', '(', ')', '\t':
			return -1
		}
		return r
	}, number)
}

package core

import (
	"contactbook/pkg/domain"
	"context"
	"testing"
)

type staticView struct{ contacts []Contact }

func (v staticView) ListContacts() []Contact { return v.contacts }

func (v staticView) FindContact(code string) (Contact, bool) {
	for _, c := range v.contacts {
		if c.Code() == code {
			return c, true
		}
	}
	return Contact{}, false
}

func TestNewDefaultRulesEngine(t *testing.T) {
	names := NewDefaultRulesEngine().Rules()
	if len(names) != 2 || names[0] != RuleContactRequiredFields || names[1] != RuleContactDuplicateNumber {
		t.Fatalf("unexpected rules %v", names)
	}
}

func TestRequiredFieldsRule(t *testing.T) {
	valid := domain.NewContact("c1", "Ada", "", "")
	noName := domain.NewContact("c2", "", "", "555")
	cases := []struct {
		name    string
		changes []Change
		want    int
	}{
		{"valid create", []Change{{Action: domain.ActionCreate, After: &valid}}, 0},
		{"missing name", []Change{{Action: domain.ActionCreate, After: &noName}}, 1},
		{"delete ignored", []Change{{Action: domain.ActionDelete, Before: &noName}}, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res, err := NewContactRequiredFieldsRule().Evaluate(context.Background(), staticView{}, tc.changes)
			if err != nil {
				t.Fatalf("evaluate: %v", err)
			}
			if len(res.Violations) != tc.want {
				t.Fatalf("want %d violations, got %+v", tc.want, res.Violations)
			}
			if tc.want > 0 && !res.HasBlocking() {
				t.Fatalf("missing fields must block")
			}
		})
	}
}

func TestDuplicateNumberRuleOnlyFlagsTouchedContacts(t *testing.T) {
	a := domain.NewContact("a", "Ada", "", "(555) 0100")
	b := domain.NewContact("b", "Bea", "", "555-0100")
	c := domain.NewContact("c", "Cy", "", "555.0100")
	d := domain.NewContact("d", "Di", "", "")
	view := staticView{contacts: []Contact{a, b, c, d}}

	rule := NewContactDuplicateNumberRule()
	res, err := rule.Evaluate(context.Background(), view, []Change{
		{Action: domain.ActionCreate, After: &c},
		{Action: domain.ActionUpdate, After: &c},
		{Action: domain.ActionCreate, After: &d},
	})
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if len(res.Violations) != 1 {
		t.Fatalf("expected one warning for c, got %+v", res.Violations)
	}
	v := res.Violations[0]
	if v.Code != "c" || v.Severity != SeverityWarn || v.Message != `contact "c" shares number 555.0100 with a, b` {
		t.Fatalf("unexpected violation %+v", v)
	}

	res, _ = rule.Evaluate(context.Background(), view, []Change{{Action: domain.ActionDelete, Before: &a}})
	if len(res.Violations) != 0 {
		t.Fatalf("deletes should not warn: %+v", res.Violations)
	}
}

func TestNormalizeNumber(t *testing.T) {
	if got := normalizeNumber(" +1 (555) 010-0.1 "); got != "+155501001" {
		t.Fatalf("unexpected normalization %q", got)
	}
}

package core

import "contactbook/pkg/domain"

type (
	Contact            = domain.Contact
	Contacts           = domain.Contacts
	Change             = domain.Change
	Result             = domain.Result
	Violation          = domain.Violation
	Severity           = domain.Severity
	Rule               = domain.Rule
	RuleView           = domain.RuleView
	RulesEngine        = domain.RulesEngine
	RuleViolationError = domain.RuleViolationError
	Transaction        = domain.Transaction
	TransactionView    = domain.TransactionView
	PersistentStore    = domain.PersistentStore
)

const (
	SeverityBlock = domain.SeverityBlock
	SeverityWarn  = domain.SeverityWarn
	SeverityLog   = domain.SeverityLog
)

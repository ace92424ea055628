package domain

import (
	"cmp"
	"encoding/json"
	"strings"
	"time"
)

// EntityType identifies the type of record stored in the domain.
type EntityType string

// EntityContact identifies a contact record in Change entries and persistence buckets.
const EntityContact EntityType = "contact"

// Contact is an address-book entry keyed by its code.
type Contact struct {
	ContactCode string    `json:"code"`
	Name        string    `json:"name"`
	Surname     string    `json:"surname"`
	Number      string    `json:"number"`
	CreatedAt   time.Time `json:"created_at,omitzero"`
	UpdatedAt   time.Time `json:"updated_at,omitzero"`
}

// Contacts is the code-unique collection of contacts.
type Contacts = Entities[Contact]

// NewContact returns a contact with surrounding whitespace trimmed from every field.
func NewContact(code, name, surname, number string) Contact {
	return Contact{ContactCode: code, Name: name, Surname: surname, Number: number}.Normalized()
}

// Normalized returns c with surrounding whitespace trimmed from every text field.
func (c Contact) Normalized() Contact {
	c.ContactCode = strings.TrimSpace(c.ContactCode)
	c.Name = strings.TrimSpace(c.Name)
	c.Surname = strings.TrimSpace(c.Surname)
	c.Number = strings.TrimSpace(c.Number)
	return c
}

// UnmarshalJSON decodes a contact record and normalizes it, so decoded codes
// compare the same way as codes built with NewContact.
func (c *Contact) UnmarshalJSON(data []byte) error {
	type record Contact
	var r record
	if err := json.Unmarshal(data, &r); err != nil {
		return err
	}
	*c = Contact(r).Normalized()
	return nil
}

// NewContacts returns an empty contact collection.
func NewContacts() *Contacts { return NewEntities[Contact]() }

// ContactsFromJSON decodes a JSON list of contact records.
func ContactsFromJSON(data []byte) (*Contacts, error) {
	out := NewContacts()
	if err := json.Unmarshal(data, out); err != nil {
		return nil, err
	}
	return out, nil
}

// Code implements Entity.
func (c Contact) Code() string { return c.ContactCode }

// Copy implements Entity. Contact holds no reference fields.
func (c Contact) Copy() Contact { return c }

// Compare orders by surname, then name (case-insensitive), then code.
func (c Contact) Compare(other Contact) int {
	if r := cmp.Compare(strings.ToLower(c.Surname), strings.ToLower(other.Surname)); r != 0 {
		return r
	}
	if r := cmp.Compare(strings.ToLower(c.Name), strings.ToLower(other.Name)); r != 0 {
		return r
	}
	return cmp.Compare(c.ContactCode, other.ContactCode)
}

// DisplayName joins name and surname.
func (c Contact) DisplayName() string {
	return strings.TrimSpace(c.Name + " " + c.Surname)
}

// Validate reports missing required fields.
func (c Contact) Validate() error {
	if strings.TrimSpace(c.ContactCode) == "" {
		return ErrEmptyCode
	}
	if strings.TrimSpace(c.Name) == "" && strings.TrimSpace(c.Surname) == "" {
		return ErrMissingName
	}
	return nil
}

// Matches reports whether query occurs, case-insensitively, in any contact field.
func (c Contact) Matches(query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return true
	}
	for _, field := range []string{c.ContactCode, c.Name, c.Surname, c.Number} {
		if strings.Contains(strings.ToLower(field), q) {
			return true
		}
	}
	return false
}

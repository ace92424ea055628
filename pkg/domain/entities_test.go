package domain

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustContacts(t *testing.T, items ...Contact) *Contacts {
	t.Helper()
	c, err := EntitiesOf(items...)
	require.NoError(t, err)
	return c
}

func TestEntitiesAddRejectsDuplicateAndEmptyCodes(t *testing.T) {
	c := NewContacts()
	require.NoError(t, c.Add(NewContact("ann", "Ann", "Lee", "555")))

	err := c.Add(NewContact("ann", "Other", "Person", ""))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDuplicateCode))
	var dup DuplicateCodeError
	require.True(t, errors.As(err, &dup))
	assert.Equal(t, "ann", dup.Code)

	assert.ErrorIs(t, c.Add(Contact{Name: "nameless"}), ErrEmptyCode)
	assert.Equal(t, 1, c.Len())

	got, ok := c.Find("ann")
	require.True(t, ok)
	assert.Equal(t, "Ann", got.Name, "rejected add must not overwrite the stored entity")
}

func TestEntitiesFindReturnsCopy(t *testing.T) {
	c := mustContacts(t, NewContact("bob", "Bob", "Stone", "1"))
	got, ok := c.Find("bob")
	require.True(t, ok)
	got.Name = "mutated"

	again, _ := c.Find("bob")
	assert.Equal(t, "Bob", again.Name)

	_, ok = c.Find("missing")
	assert.False(t, ok)
	assert.False(t, c.Contains("missing"))
}

func TestEntitiesRemoveKeepsOrderAndIndex(t *testing.T) {
	c := mustContacts(t,
		NewContact("a", "A", "", ""),
		NewContact("b", "B", "", ""),
		NewContact("c", "C", "", ""),
	)
	assert.True(t, c.Remove("b"))
	assert.False(t, c.Remove("b"))
	assert.Equal(t, []string{"a", "c"}, c.Codes())

	got, ok := c.Find("c")
	require.True(t, ok)
	assert.Equal(t, "C", got.Name)
	require.NoError(t, c.Add(NewContact("b", "B2", "", "")))
	assert.Equal(t, []string{"a", "c", "b"}, c.Codes())
}

func TestEntitiesReplace(t *testing.T) {
	c := mustContacts(t, NewContact("a", "A", "", ""), NewContact("b", "B", "", ""))
	require.NoError(t, c.Replace(NewContact("a", "Alpha", "", "")))
	assert.Equal(t, []string{"a", "b"}, c.Codes())
	got, _ := c.Find("a")
	assert.Equal(t, "Alpha", got.Name)

	err := c.Replace(NewContact("zzz", "Z", "", ""))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestEntitiesOrderIsStableAndUsesCompare(t *testing.T) {
	c := mustContacts(t,
		NewContact("3", "zed", "Young", ""),
		NewContact("1", "amy", "adams", ""),
		NewContact("2", "Amy", "Adams", ""),
	)
	c.Order()
	assert.Equal(t, []string{"1", "2", "3"}, c.Codes())

	c.OrderBy(func(a, b Contact) int { return strings.Compare(b.ContactCode, a.ContactCode) })
	assert.Equal(t, []string{"3", "2", "1"}, c.Codes())
	got, ok := c.Find("3")
	require.True(t, ok)
	assert.Equal(t, "zed", got.Name)

	// equal keys keep insertion order
	s := mustContacts(t, NewContact("x", "Same", "Name", ""), NewContact("y", "Same", "Name", ""))
	s.OrderBy(func(a, b Contact) int { return strings.Compare(a.Surname, b.Surname) })
	assert.Equal(t, []string{"x", "y"}, s.Codes())
}

func TestEntitiesSelectCopyAndClear(t *testing.T) {
	c := mustContacts(t,
		NewContact("a", "Ann", "", "555"),
		NewContact("b", "Ben", "", ""),
		NewContact("c", "Cid", "", "555"),
	)
	sel := c.Select(func(ct Contact) bool { return ct.Number == "555" })
	assert.Equal(t, []string{"a", "c"}, sel.Codes())
	assert.True(t, sel.Contains("c"))

	cp := c.Copy()
	c.Clear()
	assert.True(t, c.IsEmpty())
	assert.Equal(t, 3, cp.Len())
	require.NoError(t, c.Add(NewContact("a", "again", "", "")))
}

func TestEntitiesIteration(t *testing.T) {
	c := mustContacts(t, NewContact("a", "A", "", ""), NewContact("b", "B", "", ""))
	var seen []string
	for i, ct := range c.All() {
		seen = append(seen, ct.Code())
		if i == 0 {
			break
		}
	}
	assert.Equal(t, []string{"a"}, seen)
	assert.Len(t, c.List(), 2)

	var nilColl *Contacts
	assert.Equal(t, 0, nilColl.Len())
	assert.Empty(t, nilColl.List())
	assert.False(t, nilColl.Contains("a"))
}

func TestEntitiesNilReceiver(t *testing.T) {
	var c *Contacts
	_, ok := c.Find("a")
	assert.False(t, ok)
	assert.False(t, c.Remove("a"))
	assert.ErrorIs(t, c.Replace(NewContact("a", "A", "", "")), ErrNotFound)
	assert.NotPanics(t, c.Clear)
	assert.NotPanics(t, c.Order)
	assert.Empty(t, c.Codes())
	assert.Equal(t, 0, c.Copy().Len())
	assert.Equal(t, 0, c.Select(func(Contact) bool { return true }).Len())
}

func TestEntitiesJSONListOfRecords(t *testing.T) {
	c := mustContacts(t, NewContact("b", "Ben", "Bo", "2"), NewContact("a", "Ann", "Al", "1"))
	data, err := json.Marshal(c)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"code":"b","name":"Ben","surname":"Bo","number":"2"},{"code":"a","name":"Ann","surname":"Al","number":"1"}]`, string(data))

	back, err := ContactsFromJSON(data)
	require.NoError(t, err)
	assert.Equal(t, c.Codes(), back.Codes())
	assert.Equal(t, c.List(), back.List())

	empty, err := json.Marshal(NewContacts())
	require.NoError(t, err)
	assert.Equal(t, "[]", string(empty))
}

func TestEntitiesUnmarshalRejectsDuplicatesWithoutMutation(t *testing.T) {
	c := mustContacts(t, NewContact("keep", "Keep", "", ""))
	err := json.Unmarshal([]byte(`[{"code":"x","name":"X"},{"code":"x","name":"Y"}]`), c)
	assert.ErrorIs(t, err, ErrDuplicateCode)
	assert.Equal(t, []string{"keep"}, c.Codes())

	err = json.Unmarshal([]byte(`[{"name":"no code"}]`), c)
	assert.ErrorIs(t, err, ErrEmptyCode)

	err = json.Unmarshal([]byte(`{"code":"x"}`), c)
	assert.Error(t, err)
	assert.Equal(t, []string{"keep"}, c.Codes())

	require.NoError(t, json.Unmarshal([]byte(`null`), c))
	assert.True(t, c.IsEmpty())
}

func TestEntitiesJSONKeepsTimestamps(t *testing.T) {
	stamp := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)
	withTimes := NewContact("t1", "Tim", "Berners-Lee", "555")
	withTimes.CreatedAt = stamp
	withTimes.UpdatedAt = stamp.Add(time.Hour)

	tests := []struct {
		name  string
		items []Contact
	}{
		{"empty", nil},
		{"without timestamps", []Contact{NewContact("a", "Ann", "Al", "1")}},
		{"with timestamps", []Contact{withTimes, NewContact("b", "Ben", "Bo", "")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(mustContacts(t, tt.items...))
			require.NoError(t, err)
			back, err := ContactsFromJSON(data)
			require.NoError(t, err)
			want := tt.items
			if want == nil {
				want = []Contact{}
			}
			if diff := cmp.Diff(want, back.List()); diff != "" {
				t.Errorf("round trip mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

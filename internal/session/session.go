// Package session holds the state of one widget run: the pasted credential,
// the resolved location, the fetched contacts, and the single selection.
package session

import "strings"

// Contact is one phone number returned by the list endpoint. IDs are
// assigned at fetch time and are not stable across fetches.
type Contact struct {
	ID          int
	PhoneNumber string
}

// Session is created once at startup and passed by pointer to the
// controller. The selection never holds more than one contact.
type Session struct {
	credential string
	LocationID string
	contacts   []Contact
	selected   int // 0 means nothing selected
}

// New returns an empty session.
func New() *Session {
	return &Session{}
}

// SetCredential trims and stores the API token, returning the stored value.
func (s *Session) SetCredential(raw string) string {
	s.credential = strings.TrimSpace(raw)
	return s.credential
}

// Credential returns the trimmed API token.
func (s *Session) Credential() string {
	return s.credential
}

// HasCredential reports whether a non-empty token has been entered.
func (s *Session) HasCredential() bool {
	return s.credential != ""
}

// SetContacts replaces the contact list, numbering entries from 1 in
// response order. Any previous selection is dropped.
func (s *Session) SetContacts(numbers []string) {
	contacts := make([]Contact, 0, len(numbers))
	for i, number := range numbers {
		contacts = append(contacts, Contact{ID: i + 1, PhoneNumber: number})
	}
	s.contacts = contacts
	s.selected = 0
}

// Contacts returns a copy of the contacts in fetch order.
func (s *Session) Contacts() []Contact {
	out := make([]Contact, len(s.contacts))
	copy(out, s.contacts)
	return out
}

// Toggle deselects id when it is the current selection, otherwise makes it
// the only selected contact. Unknown ids leave the selection untouched.
// It reports whether id is selected afterwards.
func (s *Session) Toggle(id int) bool {
	if _, ok := s.find(id); !ok {
		return false
	}
	if s.selected == id {
		s.selected = 0
		return false
	}
	s.selected = id
	return true
}

// IsSelected reports whether id is the current selection.
func (s *Session) IsSelected(id int) bool {
	return id != 0 && s.selected == id
}

// Selected returns the selected contact, if any.
func (s *Session) Selected() (Contact, bool) {
	if s.selected == 0 {
		return Contact{}, false
	}
	return s.find(s.selected)
}

// SelectedCount is 0 or 1.
func (s *Session) SelectedCount() int {
	if _, ok := s.Selected(); ok {
		return 1
	}
	return 0
}

// ClearSelection drops the current selection.
func (s *Session) ClearSelection() {
	s.selected = 0
}

func (s *Session) find(id int) (Contact, bool) {
	for _, c := range s.contacts {
		if c.ID == id {
			return c, true
		}
	}
	return Contact{}, false
}

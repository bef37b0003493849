// Package sessions binds server-side session values to a signed browser cookie.
package sessions

import (
	"encoding/json"
	"maps"

	"github.com/google/uuid"
)

// Well-known session keys.
const (
	KeyToken    = "token"
	KeyUserID   = "user_id"
	KeyUserName = "user_name"

	keyFlashes = "_flashes"
)

// Flash kinds.
const (
	FlashSuccess = "success"
	FlashError   = "error"
	FlashInfo    = "info"
)

// Flash is a one-time message shown on the next rendered page.
type Flash struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Session is the value bag of one browser session.
type Session struct {
	id      string
	values  map[string]string
	isNew   bool
	changed bool
}

func newSession() *Session {
	return &Session{
		id:     uuid.NewString(),
		values: map[string]string{},
		isNew:  true,
	}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Get returns the value stored under key.
func (s *Session) Get(key string) (string, bool) {
	v, ok := s.values[key]
	return v, ok
}

// Set stores value under key.
func (s *Session) Set(key, value string) {
	s.values[key] = value
	s.changed = true
}

// Delete removes key.
func (s *Session) Delete(key string) {
	if _, ok := s.values[key]; ok {
		delete(s.values, key)
		s.changed = true
	}
}

// Clear removes every value, flashes included.
func (s *Session) Clear() {
	if len(s.values) > 0 {
		s.values = map[string]string{}
		s.changed = true
	}
}

// Values returns a copy of the stored values.
func (s *Session) Values() map[string]string {
	return maps.Clone(s.values)
}

// AddFlash queues a message for the next page.
func (s *Session) AddFlash(kind, message string) {
	flashes := s.peekFlashes()
	flashes = append(flashes, Flash{Kind: kind, Message: message})
	data, _ := json.Marshal(flashes)
	s.Set(keyFlashes, string(data))
}

// Flashes returns and removes the queued messages.
func (s *Session) Flashes() []Flash {
	flashes := s.peekFlashes()
	s.Delete(keyFlashes)
	return flashes
}

func (s *Session) peekFlashes() []Flash {
	raw, ok := s.values[keyFlashes]
	if !ok {
		return nil
	}
	var flashes []Flash
	if err := json.Unmarshal([]byte(raw), &flashes); err != nil {
		return nil
	}
	return flashes
}

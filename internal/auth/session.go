// Package auth tracks the signed-in contact and exposes it as a stream.
package auth

import (
	"context"
	"errors"
	"fmt"
	"math/rand"

	log "github.com/sirupsen/logrus"

	"github.com/nhle/kanban/internal/model"
	"github.com/nhle/kanban/internal/observable"
)

// identityKey is the vault key the session identity is remembered under.
const identityKey = "session-identity"

// GuestName is the display name given to guest contacts.
const GuestName = "Guest"

// Directory creates and looks up contacts.
type Directory interface {
	CreateContact(ctx context.Context, c model.Contact) (string, error)
	GetContact(ctx context.Context, id string) (model.Contact, error)
}

// Secrets persists the session identity between runs.
type Secrets interface {
	Get(key string) (string, error)
	Set(key, value string) error
	Delete(key string) error
}

// Session is the authentication provider.
type Session struct {
	dir      Directory
	secrets  Secrets
	rnd      *rand.Rand
	identity *observable.Subject[string]
}

// NewSession returns a logged-out session. secrets may be nil.
func NewSession(dir Directory, secrets Secrets, rnd *rand.Rand) *Session {
	return &Session{
		dir:      dir,
		secrets:  secrets,
		rnd:      rnd,
		identity: observable.NewSubject(""),
	}
}

// Current returns the signed-in contact id, or "" when logged out.
func (s *Session) Current() string {
	return s.identity.Value()
}

// Subscribe delivers the identity now and on every login or logout.
func (s *Session) Subscribe(fn func(string)) (cancel func()) {
	return s.identity.Subscribe(fn)
}

// Login signs in as an existing contact.
func (s *Session) Login(ctx context.Context, contactID string) error {
	if contactID == "" {
		return errors.New("login: empty contact id")
	}
	if _, err := s.dir.GetContact(ctx, contactID); err != nil {
		return fmt.Errorf("login %s: %w", contactID, err)
	}
	s.remember(contactID)
	s.identity.Publish(contactID)
	return nil
}

// GuestLogin creates a guest contact and signs in as it.
func (s *Session) GuestLogin(ctx context.Context) (model.Contact, error) {
	c := model.NewContact(GuestName, "", s.rnd)
	c.IsGuest = true

	id, err := s.dir.CreateContact(ctx, c)
	if err != nil {
		return model.Contact{}, fmt.Errorf("creating guest: %w", err)
	}
	c.ID = id

	s.remember(id)
	s.identity.Publish(id)
	return c, nil
}

// Logout signs out and forgets the remembered identity.
func (s *Session) Logout() {
	if s.secrets != nil {
		if err := s.secrets.Delete(identityKey); err != nil {
			log.WithError(err).Warn("forgetting session identity")
		}
	}
	s.identity.Publish("")
}

// Restore signs in as the remembered identity if it still exists. It
// reports whether a session was restored.
func (s *Session) Restore(ctx context.Context) bool {
	if s.secrets == nil {
		return false
	}
	id, err := s.secrets.Get(identityKey)
	if err != nil || id == "" {
		return false
	}
	if err := s.Login(ctx, id); err != nil {
		log.WithField("contact_id", id).WithError(err).Info("remembered identity is gone")
		_ = s.secrets.Delete(identityKey)
		return false
	}
	return true
}

func (s *Session) remember(id string) {
	if s.secrets == nil {
		return
	}
	if err := s.secrets.Set(identityKey, id); err != nil {
		log.WithError(err).Warn("remembering session identity")
	}
}

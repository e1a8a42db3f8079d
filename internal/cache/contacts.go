package cache

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	log "github.com/sirupsen/logrus"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/nhle/kanban/internal/model"
	"github.com/nhle/kanban/internal/notify"
	"github.com/nhle/kanban/internal/observable"
	"github.com/nhle/kanban/internal/store"
)

// Group is a run of contacts listed under the same letter.
type Group struct {
	Letter   string
	Contacts []model.Contact
}

// ContactCache mirrors the users collection.
type ContactCache struct {
	store    ContactStore
	identity Identity
	notifier notify.Notifier
	locale   language.Tag

	mu       sync.Mutex
	contacts []model.Contact
	subject  *observable.Subject[[]model.Contact]

	cleanup sync.WaitGroup
}

// NewContactCache builds an empty cache. locale is a BCP 47 tag used for
// name ordering; an unparsable tag falls back to English.
func NewContactCache(s ContactStore, id Identity, n notify.Notifier, locale string) *ContactCache {
	tag, err := language.Parse(locale)
	if err != nil {
		log.WithField("locale", locale).WithError(err).Warn("falling back to english collation")
		tag = language.English
	}
	return &ContactCache{
		store:    s,
		identity: id,
		notifier: n,
		locale:   tag,
		subject:  observable.NewSubject([]model.Contact{}),
	}
}

// Subscribe delivers the current contact list now and after every change.
// Received slices must not be modified.
func (c *ContactCache) Subscribe(fn func([]model.Contact)) (cancel func()) {
	return c.subject.Subscribe(fn)
}

// Snapshot returns a copy of the current contact list.
func (c *ContactCache) Snapshot() []model.Contact {
	return cloneContacts(c.subject.Value())
}

// FetchAll replaces the cache with the visible contacts from the store.
// Guests other than the signed-in identity are removed from the store in
// the background and never listed.
func (c *ContactCache) FetchAll(ctx context.Context) ([]model.Contact, error) {
	all, err := c.store.ListContacts(ctx)
	if err != nil {
		c.notifier.Error("Contacts could not be loaded.")
		return nil, fmt.Errorf("fetching contacts: %w", err)
	}

	current := c.identity.Current()
	c.removeStaleGuests(ctx, all, current)

	visible := make([]model.Contact, 0, len(all))
	for _, ct := range all {
		if ct.IsGuest && ct.ID != current {
			continue
		}
		visible = append(visible, ct)
	}
	c.sortByName(visible)

	c.mu.Lock()
	c.contacts = visible
	c.publishLocked()
	c.mu.Unlock()

	return cloneContacts(visible), nil
}

// removeStaleGuests deletes guest contacts other than current. It runs
// detached from the caller and reports at most one error per pass.
func (c *ContactCache) removeStaleGuests(ctx context.Context, all []model.Contact, current string) {
	var stale []string
	for _, ct := range all {
		if ct.IsGuest && ct.ID != current {
			stale = append(stale, ct.ID)
		}
	}
	if len(stale) == 0 {
		return
	}

	ctx = context.WithoutCancel(ctx)
	c.cleanup.Add(1)
	go func() {
		defer c.cleanup.Done()
		failed := 0
		for _, id := range stale {
			err := c.store.DeleteContact(ctx, id)
			if err != nil && !errors.Is(err, store.ErrNotFound) {
				failed++
				log.WithField("contact_id", id).WithError(err).Warn("guest cleanup failed")
			}
		}
		if failed > 0 {
			c.notifier.Error(fmt.Sprintf("Could not remove %d stale guest account(s).", failed))
		}
	}()
}

// WaitCleanup blocks until background guest cleanup has finished.
func (c *ContactCache) WaitCleanup() {
	c.cleanup.Wait()
}

// Grouped returns the cached contacts grouped by first letter, in list order.
func (c *ContactCache) Grouped() []Group {
	return GroupByLetter(c.subject.Value())
}

// GroupByLetter groups already sorted contacts by their list letter.
func GroupByLetter(contacts []model.Contact) []Group {
	var groups []Group
	index := make(map[string]int)
	for _, ct := range contacts {
		letter := ct.Group()
		i, ok := index[letter]
		if !ok {
			i = len(groups)
			index[letter] = i
			groups = append(groups, Group{Letter: letter})
		}
		groups[i].Contacts = append(groups[i].Contacts, ct)
	}
	return groups
}

// Get returns a cached contact.
func (c *ContactCache) Get(id string) (model.Contact, bool) {
	for _, ct := range c.subject.Value() {
		if ct.ID == id {
			return ct, true
		}
	}
	return model.Contact{}, false
}

// Resolve returns the contact from the cache, falling back to the store.
// Missing contacts resolve to false without error.
func (c *ContactCache) Resolve(ctx context.Context, id string) (model.Contact, bool) {
	if ct, ok := c.Get(id); ok {
		return ct, true
	}
	ct, err := c.store.GetContact(ctx, id)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			log.WithField("contact_id", id).WithError(err).Debug("resolving contact")
		}
		return model.Contact{}, false
	}
	return ct, true
}

// Create persists a new contact and adds it to the list.
func (c *ContactCache) Create(ctx context.Context, ct model.Contact) (model.Contact, error) {
	id, err := c.store.CreateContact(ctx, ct)
	if err != nil {
		c.notifier.Error("Contact could not be created.")
		return model.Contact{}, fmt.Errorf("creating contact: %w", err)
	}
	ct.ID = id

	c.mu.Lock()
	c.contacts = append(c.contacts, ct)
	c.sortByName(c.contacts)
	c.publishLocked()
	c.mu.Unlock()

	c.notifier.Success("Contact successfully created")
	return ct, nil
}

// Update persists patch and applies it to the cached entry.
func (c *ContactCache) Update(ctx context.Context, id string, patch model.ContactPatch) error {
	if err := c.store.UpdateContact(ctx, id, patch); err != nil {
		c.notifier.Error("Contact could not be updated.")
		return fmt.Errorf("updating contact %s: %w", id, err)
	}

	c.mu.Lock()
	for i := range c.contacts {
		if c.contacts[i].ID != id {
			continue
		}
		applyContactPatch(&c.contacts[i], patch)
	}
	c.sortByName(c.contacts)
	c.publishLocked()
	c.mu.Unlock()

	c.notifier.Success("Contact updated")
	return nil
}

// Delete removes the contact from the store and the list.
func (c *ContactCache) Delete(ctx context.Context, id string) error {
	if err := c.store.DeleteContact(ctx, id); err != nil {
		c.notifier.Error("Contact could not be deleted.")
		return fmt.Errorf("deleting contact %s: %w", id, err)
	}

	c.mu.Lock()
	kept := c.contacts[:0]
	for _, ct := range c.contacts {
		if ct.ID != id {
			kept = append(kept, ct)
		}
	}
	c.contacts = kept
	c.publishLocked()
	c.mu.Unlock()

	c.notifier.Success("Contact deleted")
	return nil
}

func (c *ContactCache) publishLocked() {
	c.subject.Publish(cloneContacts(c.contacts))
}

// sortByName orders contacts by display name using the cache locale.
// Equal names keep their store order.
func (c *ContactCache) sortByName(contacts []model.Contact) {
	col := collate.New(c.locale)
	sort.SliceStable(contacts, func(i, j int) bool {
		return col.CompareString(contacts[i].Name, contacts[j].Name) < 0
	})
}

func applyContactPatch(ct *model.Contact, p model.ContactPatch) {
	if p.Name != nil {
		ct.Name = *p.Name
	}
	if p.Email != nil {
		ct.Email = *p.Email
	}
	if p.Phone != nil {
		ct.Phone = *p.Phone
	}
	if p.ProfilePicture != nil {
		ct.ProfilePicture = *p.ProfilePicture
	}
}

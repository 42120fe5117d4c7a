// Package memory keeps queue items in process memory. It backs the
// --store=memory mode and the service tests.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/playqueue/internal/errs"
	"github.com/and161185/playqueue/internal/model"
	"github.com/and161185/playqueue/internal/repository"
)

// ItemRepo is an in-memory ItemRepository. Writers of one owner are
// serialized by a per-owner mutex; their changes are staged and become
// visible atomically on commit.
type ItemRepo struct {
	mu    sync.RWMutex // guards items
	items map[uuid.UUID]model.Item

	ownersMu sync.Mutex
	owners   map[uuid.UUID]*sync.Mutex

	newID func() (uuid.UUID, error)
	now   func() time.Time
}

var _ repository.ItemRepository = (*ItemRepo)(nil)

// NewItemRepo returns an empty repository.
func NewItemRepo() *ItemRepo {
	return &ItemRepo{
		items:  map[uuid.UUID]model.Item{},
		owners: map[uuid.UUID]*sync.Mutex{},
		newID:  uuid.NewV7,
		now:    time.Now,
	}
}

// WithClock replaces the timestamp source; used by tests.
func (r *ItemRepo) WithClock(now func() time.Time) *ItemRepo {
	r.now = now
	return r
}

func (r *ItemRepo) ownerLock(owner uuid.UUID) *sync.Mutex {
	r.ownersMu.Lock()
	defer r.ownersMu.Unlock()
	m, ok := r.owners[owner]
	if !ok {
		m = &sync.Mutex{}
		r.owners[owner] = m
	}
	return m
}

// InOwnerTx runs fn with the owner's lock held and commits its staged
// changes if fn succeeds.
func (r *ItemRepo) InOwnerTx(ctx context.Context, owner uuid.UUID, fn func(tx repository.ItemTx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l := r.ownerLock(owner)
	l.Lock()
	defer l.Unlock()

	tx := &itemTx{repo: r, owner: owner, staged: map[uuid.UUID]*model.Item{}}
	if err := fn(tx); err != nil {
		return err
	}
	return r.commit(tx)
}

// ReadSnapshot runs fn while commits are blocked.
func (r *ItemRepo) ReadSnapshot(ctx context.Context, fn func(rd repository.ItemReader) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return fn(&snapshot{repo: r})
}

func (r *ItemRepo) commit(tx *itemTx) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Uniqueness is checked once all staged writes are known, like a
	// deferred constraint.
	next := make(map[uuid.UUID]model.Item, len(tx.staged))
	for id, it := range tx.staged {
		if it != nil {
			next[id] = *it
		}
	}
	for id, it := range r.items {
		if it.OwnerID != tx.owner {
			continue
		}
		if _, ok := tx.staged[id]; !ok {
			next[id] = it
		}
	}
	seen := map[int32]uuid.UUID{}
	for id, it := range next {
		if it.Position == nil {
			continue
		}
		if other, ok := seen[*it.Position]; ok {
			return fmt.Errorf("position %d held by %s and %s: %w", *it.Position, other, id, errs.ErrVersionConflict)
		}
		seen[*it.Position] = id
	}

	for id, it := range tx.staged {
		if it == nil {
			delete(r.items, id)
			continue
		}
		r.items[id] = *it
	}
	return nil
}

// read looks up an item in committed state. Callers hold r.mu.
func (r *ItemRepo) read(id uuid.UUID) (model.Item, bool) {
	it, ok := r.items[id]
	return it, ok
}

type snapshot struct{ repo *ItemRepo }

func (s *snapshot) lookup(id uuid.UUID) (model.Item, bool) { return s.repo.read(id) }

func (s *snapshot) each(owner uuid.UUID, fn func(model.Item)) {
	for _, it := range s.repo.items {
		if it.OwnerID == owner {
			fn(it)
		}
	}
}

func (s *snapshot) Get(_ context.Context, id uuid.UUID) (*model.Item, error) { return get(s, id) }

func (s *snapshot) FindByIdentifier(_ context.Context, owner uuid.UUID, identifier string) (*model.Item, error) {
	return findByIdentifier(s, owner, identifier)
}

func (s *snapshot) ListQueued(_ context.Context, owner uuid.UUID, f model.Filter) ([]model.Item, error) {
	return listQueued(s, owner, f), nil
}

func (s *snapshot) ListCompleted(_ context.Context, owner uuid.UUID, f model.Filter) ([]model.Item, error) {
	return listCompleted(s, owner, f), nil
}

type itemTx struct {
	repo   *ItemRepo
	owner  uuid.UUID
	staged map[uuid.UUID]*model.Item // nil value marks a delete
}

func (t *itemTx) lookup(id uuid.UUID) (model.Item, bool) {
	if it, ok := t.staged[id]; ok {
		if it == nil {
			return model.Item{}, false
		}
		return *it, true
	}
	t.repo.mu.RLock()
	defer t.repo.mu.RUnlock()
	return t.repo.read(id)
}

func (t *itemTx) each(owner uuid.UUID, fn func(model.Item)) {
	t.repo.mu.RLock()
	var committed []model.Item
	for id, it := range t.repo.items {
		if _, ok := t.staged[id]; !ok && it.OwnerID == owner {
			committed = append(committed, it)
		}
	}
	t.repo.mu.RUnlock()

	for _, it := range committed {
		fn(it)
	}
	for _, it := range t.staged {
		if it != nil && it.OwnerID == owner {
			fn(*it)
		}
	}
}

func (t *itemTx) Get(_ context.Context, id uuid.UUID) (*model.Item, error) { return get(t, id) }

func (t *itemTx) FindByIdentifier(_ context.Context, owner uuid.UUID, identifier string) (*model.Item, error) {
	return findByIdentifier(t, owner, identifier)
}

func (t *itemTx) ListQueued(_ context.Context, owner uuid.UUID, f model.Filter) ([]model.Item, error) {
	return listQueued(t, owner, f), nil
}

func (t *itemTx) ListCompleted(_ context.Context, owner uuid.UUID, f model.Filter) ([]model.Item, error) {
	return listCompleted(t, owner, f), nil
}

func (t *itemTx) Insert(_ context.Context, it *model.Item) error {
	if it.OwnerID != t.owner {
		return fmt.Errorf("insert for owner %s in tx of %s: %w", it.OwnerID, t.owner, errs.ErrUnauthorized)
	}
	if _, err := findByIdentifier(t, it.OwnerID, it.Identifier); err == nil {
		return errs.ErrAlreadyExists
	}
	id, err := t.repo.newID()
	if err != nil {
		return err
	}
	now := t.repo.now().UTC()
	it.ID, it.CreatedAt, it.UpdatedAt = id, now, now
	t.stage(*it)
	return nil
}

func (t *itemTx) Update(_ context.Context, it *model.Item) error {
	cur, ok := t.lookup(it.ID)
	if !ok || cur.OwnerID != it.OwnerID {
		return errs.ErrNotFound
	}
	next := *it
	next.Identifier = cur.Identifier
	next.CreatedAt = cur.CreatedAt
	next.UpdatedAt = t.repo.now().UTC()
	next.AfterID = nil
	t.stage(next)
	it.UpdatedAt = next.UpdatedAt
	return nil
}

func (t *itemTx) SetPositions(_ context.Context, owner uuid.UUID, ups []model.PositionUpdate) error {
	now := t.repo.now().UTC()
	for _, u := range ups {
		cur, ok := t.lookup(u.ID)
		if !ok || cur.OwnerID != owner {
			return fmt.Errorf("set positions: item %s: %w", u.ID, errs.ErrVersionConflict)
		}
		cur.Position = model.Int32(u.Position)
		cur.UpdatedAt = now
		t.stage(cur)
	}
	return nil
}

func (t *itemTx) Delete(_ context.Context, owner, id uuid.UUID) error {
	cur, ok := t.lookup(id)
	if !ok || cur.OwnerID != owner {
		return errs.ErrNotFound
	}
	t.staged[id] = nil
	return nil
}

func (t *itemTx) stage(it model.Item) {
	c := clone(it)
	t.staged[it.ID] = &c
}

// view is the lookup surface shared by snapshots and write transactions.
type view interface {
	lookup(id uuid.UUID) (model.Item, bool)
	each(owner uuid.UUID, fn func(model.Item))
}

func get(v view, id uuid.UUID) (*model.Item, error) {
	it, ok := v.lookup(id)
	if !ok {
		return nil, errs.ErrNotFound
	}
	c := clone(it)
	return &c, nil
}

func findByIdentifier(v view, owner uuid.UUID, identifier string) (*model.Item, error) {
	var found *model.Item
	v.each(owner, func(it model.Item) {
		if found == nil && it.Identifier == identifier {
			c := clone(it)
			found = &c
		}
	})
	if found == nil {
		return nil, errs.ErrNotFound
	}
	return found, nil
}

func listQueued(v view, owner uuid.UUID, f model.Filter) []model.Item {
	var out []model.Item
	v.each(owner, func(it model.Item) {
		if !it.Status.Terminal() && f.Match(it) {
			out = append(out, clone(it))
		}
	})
	slices.SortFunc(out, model.CompareQueued)
	return out
}

func listCompleted(v view, owner uuid.UUID, f model.Filter) []model.Item {
	var out []model.Item
	v.each(owner, func(it model.Item) {
		if it.Status.Terminal() && f.Match(it) {
			out = append(out, clone(it))
		}
	})
	slices.SortFunc(out, model.CompareCompleted)
	return out
}

// clone copies the pointer fields so callers cannot mutate stored state.
func clone(it model.Item) model.Item {
	if it.Position != nil {
		it.Position = model.Int32(*it.Position)
	}
	if it.CompletedAt != nil {
		ts := *it.CompletedAt
		it.CompletedAt = &ts
	}
	if it.PublishedAt != nil {
		ts := *it.PublishedAt
		it.PublishedAt = &ts
	}
	it.AfterID = nil
	return it
}

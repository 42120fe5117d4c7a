package service

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap/zaptest"

	"github.com/and161185/playqueue/internal/errs"
	"github.com/and161185/playqueue/internal/listview"
	"github.com/and161185/playqueue/internal/model"
	"github.com/and161185/playqueue/internal/notify"
	"github.com/and161185/playqueue/internal/repository"
	"github.com/and161185/playqueue/internal/repository/memory"
)

type fakeNotifier struct {
	mu     sync.Mutex
	events []notify.Event
	err    error
}

func (f *fakeNotifier) Notify(_ context.Context, ev notify.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
	return f.err
}

func newService(t *testing.T) (*ItemServiceImpl, *memory.ItemRepo, *fakeNotifier) {
	t.Helper()
	repo := memory.NewItemRepo()
	n := &fakeNotifier{}
	return NewItemService(repo, n, zaptest.NewLogger(t), listview.Limits{}), repo, n
}

func input(ident string) model.ItemInput {
	return model.ItemInput{Payload: model.Payload{
		Identifier: ident, Title: "Title " + ident, URL: "https://example.com/" + ident, Source: "feed", Playtime: 60,
	}}
}

func placed(in model.ItemInput, p model.Placement) model.ItemInput {
	in.Placement = &p
	return in
}

func mustCreate(t *testing.T, s *ItemServiceImpl, owner uuid.UUID, in model.ItemInput) *model.Item {
	t.Helper()
	it, err := s.Create(context.Background(), owner, in)
	if err != nil {
		t.Fatalf("Create(%s): %v", in.Identifier, err)
	}
	return it
}

func positions(t *testing.T, s *ItemServiceImpl, owner uuid.UUID) map[uuid.UUID]int32 {
	t.Helper()
	page, err := s.List(context.Background(), owner, model.ListQuery{PageSize: 100})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	out := map[uuid.UUID]int32{}
	for _, it := range page.Items {
		if it.Position != nil {
			out[it.ID] = *it.Position
		}
	}
	return out
}

func TestItemService_RejectsMissingOwner(t *testing.T) {
	t.Parallel()
	s, _, _ := newService(t)
	ctx := context.Background()
	id := uuid.Must(uuid.NewV4())

	if _, err := s.Create(ctx, uuid.Nil, input("a")); !errors.Is(err, errs.ErrUnauthorized) {
		t.Fatalf("Create: want unauthorized, got %v", err)
	}
	if _, err := s.Update(ctx, uuid.Nil, id, model.ItemPatch{}); !errors.Is(err, errs.ErrUnauthorized) {
		t.Fatalf("Update: want unauthorized, got %v", err)
	}
	if _, err := s.Get(ctx, uuid.Nil, id); !errors.Is(err, errs.ErrUnauthorized) {
		t.Fatalf("Get: want unauthorized, got %v", err)
	}
	if err := s.Delete(ctx, uuid.Nil, id); !errors.Is(err, errs.ErrUnauthorized) {
		t.Fatalf("Delete: want unauthorized, got %v", err)
	}
	if _, err := s.List(ctx, uuid.Nil, model.ListQuery{}); !errors.Is(err, errs.ErrUnauthorized) {
		t.Fatalf("List: want unauthorized, got %v", err)
	}
	if _, err := s.Resort(ctx, uuid.Nil); !errors.Is(err, errs.ErrUnauthorized) {
		t.Fatalf("Resort: want unauthorized, got %v", err)
	}
}

func TestItemService_Create_AppendsByDefault(t *testing.T) {
	t.Parallel()
	s, _, n := newService(t)
	owner := uuid.Must(uuid.NewV4())

	var last int32 = math.MinInt32
	for _, ident := range []string{"a", "b", "c", "d"} {
		it := mustCreate(t, s, owner, input(ident))
		if it.Position == nil || *it.Position <= last {
			t.Fatalf("%s: positions must strictly increase, got %v after %d", ident, it.Position, last)
		}
		if it.Status != model.StatusUnplayed {
			t.Fatalf("default status: %s", it.Status)
		}
		last = *it.Position
	}
	if last != 30 {
		t.Fatalf("fourth append: want 30, got %d", last)
	}
	if len(n.events) != 4 || n.events[0].Type != notify.ItemSaved {
		t.Fatalf("want 4 item.saved events, got %+v", n.events)
	}
}

func TestItemService_Create_MakeFirst(t *testing.T) {
	t.Parallel()
	s, _, _ := newService(t)
	owner := uuid.Must(uuid.NewV4())

	first := mustCreate(t, s, owner, input("a"))
	if *first.Position != 0 {
		t.Fatalf("first item: want 0, got %d", *first.Position)
	}
	it := mustCreate(t, s, owner, placed(input("b"), model.MakeFirst()))
	if *it.Position != -10 {
		t.Fatalf("make-first: want -10, got %d", *it.Position)
	}
	if it.AfterID != nil {
		t.Fatalf("first item has no predecessor, got %v", it.AfterID)
	}
}

func TestItemService_Create_AfterTriggersRebalance(t *testing.T) {
	t.Parallel()
	s, repo, _ := newService(t)
	ctx := context.Background()
	owner := uuid.Must(uuid.NewV4())

	a := mustCreate(t, s, owner, input("a"))
	b := mustCreate(t, s, owner, input("b"))
	// squeeze b next to a
	err := repo.InOwnerTx(ctx, owner, func(tx repository.ItemTx) error {
		return tx.SetPositions(ctx, owner, []model.PositionUpdate{{ID: b.ID, Position: 1}})
	})
	if err != nil {
		t.Fatalf("SetPositions: %v", err)
	}

	it := mustCreate(t, s, owner, placed(input("c"), model.After(a.ID)))
	got := positions(t, s, owner)
	if got[a.ID] != 0 || got[b.ID] != 10 || got[it.ID] != 5 {
		t.Fatalf("want a=0 c=5 b=10, got a=%d c=%d b=%d", got[a.ID], got[it.ID], got[b.ID])
	}
	if it.AfterID == nil || *it.AfterID != a.ID {
		t.Fatalf("derived after: want %s, got %v", a.ID, it.AfterID)
	}
}

func TestItemService_Create_AfterForeignItemRejected(t *testing.T) {
	t.Parallel()
	s, _, n := newService(t)
	ctx := context.Background()
	owner, other := uuid.Must(uuid.NewV4()), uuid.Must(uuid.NewV4())

	foreign := mustCreate(t, s, other, input("x"))
	n.events = nil

	_, err := s.Create(ctx, owner, placed(input("a"), model.After(foreign.ID)))
	if !errors.Is(err, errs.ErrWrongUserAfter) {
		t.Fatalf("want ErrWrongUserAfter, got %v", err)
	}
	page, _ := s.List(ctx, owner, model.ListQuery{})
	if page.Meta.TotalCount != 0 {
		t.Fatalf("no item must be created, got %d", page.Meta.TotalCount)
	}
	if len(n.events) != 0 {
		t.Fatalf("failed writes must not notify: %+v", n.events)
	}

	_, err = s.Create(ctx, owner, placed(input("a"), model.After(uuid.Nil)))
	if !errors.Is(err, errs.ErrAfterItemUnpersisted) {
		t.Fatalf("want ErrAfterItemUnpersisted, got %v", err)
	}
}

func TestItemService_Create_AfterMaximumRejected(t *testing.T) {
	t.Parallel()
	s, repo, _ := newService(t)
	ctx := context.Background()
	owner := uuid.Must(uuid.NewV4())

	top := mustCreate(t, s, owner, input("top"))
	err := repo.InOwnerTx(ctx, owner, func(tx repository.ItemTx) error {
		return tx.SetPositions(ctx, owner, []model.PositionUpdate{{ID: top.ID, Position: math.MaxInt32}})
	})
	if err != nil {
		t.Fatalf("SetPositions: %v", err)
	}

	_, err = s.Create(ctx, owner, placed(input("b"), model.After(top.ID)))
	if !errors.Is(err, errs.ErrRangeViolation) {
		t.Fatalf("want ErrRangeViolation, got %v", err)
	}
	if got := positions(t, s, owner); len(got) != 1 || got[top.ID] != math.MaxInt32 {
		t.Fatalf("state must be unchanged, got %v", got)
	}
}

func TestItemService_Create_ValidationErrors(t *testing.T) {
	t.Parallel()
	s, _, _ := newService(t)
	owner := uuid.Must(uuid.NewV4())

	in := input("a")
	in.Identifier = ""
	in.Playtime = -1
	_, err := s.Create(context.Background(), owner, in)
	var ve *errs.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("want *ValidationError, got %v", err)
	}
	if len(ve.Fields) != 2 || ve.Fields[0].Field != "identifier" || ve.Fields[0].Detail != "can't be blank" {
		t.Fatalf("unexpected fields: %+v", ve.Fields)
	}

	in = input("b")
	in.Status = "bogus"
	if _, err := s.Create(context.Background(), owner, in); !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("invalid status: want validation error, got %v", err)
	}

	in = input("c")
	ts := time.Now()
	in.CompletedAt = &ts
	if _, err := s.Create(context.Background(), owner, in); !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("completed_at on unplayed: want validation error, got %v", err)
	}
}

func TestItemService_Create_ExistingIdentifierUpdates(t *testing.T) {
	t.Parallel()
	s, _, _ := newService(t)
	owner := uuid.Must(uuid.NewV4())

	first := mustCreate(t, s, owner, input("blah1234"))
	in := input("blah1234")
	in.Title = "Renamed"
	again := mustCreate(t, s, owner, in)

	if again.ID != first.ID {
		t.Fatalf("want same id %s, got %s", first.ID, again.ID)
	}
	if again.Title != "Renamed" || *again.Position != *first.Position {
		t.Fatalf("want title updated and position kept, got %+v", again)
	}
	page, _ := s.List(context.Background(), owner, model.ListQuery{})
	if page.Meta.TotalCount != 1 {
		t.Fatalf("want a single item, got %d", page.Meta.TotalCount)
	}
}

func TestItemService_Update_StatusTransitions(t *testing.T) {
	t.Parallel()
	s, _, _ := newService(t)
	ctx := context.Background()
	owner := uuid.Must(uuid.NewV4())
	a := mustCreate(t, s, owner, input("a"))
	b := mustCreate(t, s, owner, input("b"))

	completed := model.StatusCompleted
	done, err := s.Update(ctx, owner, a.ID, model.ItemPatch{Status: &completed})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if done.Position != nil || done.CompletedAt == nil {
		t.Fatalf("completed item: want nil position and stamped completed_at, got %+v", done)
	}

	unplayed := model.StatusUnplayed
	back, err := s.Update(ctx, owner, a.ID, model.ItemPatch{Status: &unplayed})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if back.CompletedAt != nil || back.Position == nil || *back.Position <= *b.Position {
		t.Fatalf("item leaving completed is appended, got %+v", back)
	}
	if back.AfterID == nil || *back.AfterID != b.ID {
		t.Fatalf("derived after: want %s, got %v", b.ID, back.AfterID)
	}
}

func TestItemService_Update_PlaceAfterMovesItem(t *testing.T) {
	t.Parallel()
	s, _, _ := newService(t)
	ctx := context.Background()
	owner := uuid.Must(uuid.NewV4())
	first := mustCreate(t, s, owner, input("first"))
	second := mustCreate(t, s, owner, placed(input("second"), model.After(first.ID)))

	p := model.After(second.ID)
	moved, err := s.Update(ctx, owner, first.ID, model.ItemPatch{Placement: &p})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if *moved.Position <= *second.Position {
		t.Fatalf("want %d > %d", *moved.Position, *second.Position)
	}
	got, err := s.Get(ctx, owner, first.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.AfterID == nil || *got.AfterID != second.ID {
		t.Fatalf("after: want %s, got %v", second.ID, got.AfterID)
	}

	self := model.After(first.ID)
	if _, err := s.Update(ctx, owner, first.ID, model.ItemPatch{Placement: &self}); !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("self reference: want validation error, got %v", err)
	}
}

func TestItemService_Update_FieldsAndNotFound(t *testing.T) {
	t.Parallel()
	s, _, _ := newService(t)
	ctx := context.Background()
	owner := uuid.Must(uuid.NewV4())
	it := mustCreate(t, s, owner, input("a"))

	pt := int32(123456)
	up, err := s.Update(ctx, owner, it.ID, model.ItemPatch{Playtime: &pt})
	if err != nil || up.Playtime != pt || *up.Position != *it.Position {
		t.Fatalf("playtime update: %+v %v", up, err)
	}

	blank := ""
	_, err = s.Update(ctx, owner, it.ID, model.ItemPatch{Title: &blank})
	var ve *errs.ValidationError
	if !errors.As(err, &ve) || ve.Fields[0].Field != "title" {
		t.Fatalf("blank title: want field error, got %v", err)
	}

	if _, err := s.Update(ctx, uuid.Must(uuid.NewV4()), it.ID, model.ItemPatch{Playtime: &pt}); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("other owner: want not found, got %v", err)
	}
	if _, err := s.Update(ctx, owner, uuid.Must(uuid.NewV4()), model.ItemPatch{}); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("missing: want not found, got %v", err)
	}
}

func TestItemService_Delete_EmitsRemoval(t *testing.T) {
	t.Parallel()
	s, _, n := newService(t)
	ctx := context.Background()
	owner := uuid.Must(uuid.NewV4())
	it := mustCreate(t, s, owner, input("12345"))
	n.events = nil

	if err := s.Delete(ctx, uuid.Must(uuid.NewV4()), it.ID); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("other owner: want not found, got %v", err)
	}
	if err := s.Delete(ctx, owner, it.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if len(n.events) != 1 || n.events[0].Type != notify.ItemRemoved || n.events[0].ItemID != it.ID {
		t.Fatalf("want one item.removed event, got %+v", n.events)
	}
	if n.events[0].Identifier != "12345" {
		t.Fatalf("event identifier: %q", n.events[0].Identifier)
	}
	if _, err := s.Get(ctx, owner, it.ID); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("after delete: want not found, got %v", err)
	}
	if err := s.Delete(ctx, owner, it.ID); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("second delete: want not found, got %v", err)
	}
}

func TestItemService_NotifyFailureDoesNotFailWrite(t *testing.T) {
	t.Parallel()
	s, _, n := newService(t)
	n.err = errors.New("redis down")
	owner := uuid.Must(uuid.NewV4())

	it := mustCreate(t, s, owner, input("a"))
	if err := s.Delete(context.Background(), owner, it.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
}

func TestItemService_Resort(t *testing.T) {
	t.Parallel()
	s, repo, _ := newService(t)
	ctx := context.Background()
	owner := uuid.Must(uuid.NewV4())

	var ids []uuid.UUID
	for _, ident := range []string{"a", "b", "c", "d"} {
		ids = append(ids, mustCreate(t, s, owner, input(ident)).ID)
	}
	err := repo.InOwnerTx(ctx, owner, func(tx repository.ItemTx) error {
		ups := make([]model.PositionUpdate, len(ids))
		for i, id := range ids {
			ups[i] = model.PositionUpdate{ID: id, Position: int32(i)}
		}
		return tx.SetPositions(ctx, owner, ups)
	})
	if err != nil {
		t.Fatalf("SetPositions: %v", err)
	}

	n, err := s.Resort(ctx, owner)
	if err != nil || n != 3 {
		t.Fatalf("Resort: n=%d err=%v", n, err)
	}
	got := positions(t, s, owner)
	for i, id := range ids {
		if got[id] != int32(i*10) {
			t.Fatalf("item %d: want %d, got %d", i, i*10, got[id])
		}
	}
	if n, err := s.Resort(ctx, owner); err != nil || n != 0 {
		t.Fatalf("second Resort must be a no-op: n=%d err=%v", n, err)
	}
}

func TestItemService_List(t *testing.T) {
	t.Parallel()
	s, _, _ := newService(t)
	ctx := context.Background()
	owner := uuid.Must(uuid.NewV4())

	a := mustCreate(t, s, owner, input("a"))
	b := mustCreate(t, s, owner, input("b"))
	done := input("c")
	done.Status = model.StatusCompleted
	c := mustCreate(t, s, owner, done)

	page, err := s.List(ctx, owner, model.ListQuery{AfterID: &a.ID})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(page.Items) != 2 || page.Items[0].ID != b.ID || page.Items[1].ID != c.ID {
		t.Fatalf("unexpected order: %+v", page.Items)
	}

	if _, err := s.List(ctx, owner, model.ListQuery{Page: -1}); !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("negative page: want validation error, got %v", err)
	}
}

func TestItemService_ConcurrentAppendsKeepPositionsDistinct(t *testing.T) {
	t.Parallel()
	s, _, _ := newService(t)
	owner := uuid.Must(uuid.NewV4())

	var wg sync.WaitGroup
	errCh := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := s.Create(context.Background(), owner, input(uuid.Must(uuid.NewV4()).String()))
			errCh <- err
		}(i)
	}
	wg.Wait()
	close(errCh)
	for err := range errCh {
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	seen := map[int32]bool{}
	for _, p := range positions(t, s, owner) {
		if seen[p] {
			t.Fatalf("duplicate position %d", p)
		}
		seen[p] = true
	}
	if len(seen) != 20 {
		t.Fatalf("want 20 positions, got %d", len(seen))
	}
}

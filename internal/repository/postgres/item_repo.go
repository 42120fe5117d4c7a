package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/and161185/playqueue/internal/errs"
	"github.com/and161185/playqueue/internal/model"
	"github.com/and161185/playqueue/internal/repository"
	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
)

const itemCols = `id, owner_id, status, position, completed_at, identifier, title, url, description, hosts, program, origin_url, image_url, source, playtime, published_at, created_at, updated_at`

// ItemRepo implements ItemRepository using PostgreSQL.
type ItemRepo struct {
	db    *DB
	newID func() (uuid.UUID, error)
	now   func() time.Time
}

var _ repository.ItemRepository = (*ItemRepo)(nil)

// NewItemRepo constructs an item repository.
func NewItemRepo(db *DB) *ItemRepo {
	return &ItemRepo{db: db, newID: uuid.NewV7, now: time.Now}
}

// InOwnerTx runs fn in a transaction holding the owner's row lock.
func (r *ItemRepo) InOwnerTx(ctx context.Context, owner uuid.UUID, fn func(tx repository.ItemTx) error) (err error) {
	tx, err := r.db.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
			return
		}
		if e := tx.Commit(ctx); e != nil {
			err = classify(e)
		}
	}()

	// The upsert creates the owner on first use and keeps its row locked
	// until commit, serializing writers of the same owner.
	const lock = `INSERT INTO owners (id) VALUES ($1) ON CONFLICT (id) DO UPDATE SET touched_at=now()`
	if _, err = tx.Exec(ctx, lock, owner); err != nil {
		return fmt.Errorf("lock owner: %w", err)
	}
	return fn(&itemTx{q: tx, repo: r})
}

// ReadSnapshot runs fn inside a read-only REPEATABLE READ transaction.
func (r *ItemRepo) ReadSnapshot(ctx context.Context, fn func(rd repository.ItemReader) error) (err error) {
	tx, err := r.db.Pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
			return
		}
		if e := tx.Commit(ctx); e != nil {
			err = e
		}
	}()
	return fn(&itemTx{q: tx, repo: r})
}

type itemTx struct {
	q    querier
	repo *ItemRepo
}

// Get returns a single item by id.
func (t *itemTx) Get(ctx context.Context, id uuid.UUID) (*model.Item, error) {
	q := `SELECT ` + itemCols + ` FROM items WHERE id=$1`
	return scanOne(t.q.QueryRow(ctx, q, id))
}

// FindByIdentifier returns the owner's item with the given identifier.
func (t *itemTx) FindByIdentifier(ctx context.Context, owner uuid.UUID, identifier string) (*model.Item, error) {
	q := `SELECT ` + itemCols + ` FROM items WHERE owner_id=$1 AND identifier=$2`
	return scanOne(t.q.QueryRow(ctx, q, owner, identifier))
}

// ListQueued returns non-terminal items ordered by position.
func (t *itemTx) ListQueued(ctx context.Context, owner uuid.UUID, f model.Filter) ([]model.Item, error) {
	where, args := filterSQL(f, []any{owner})
	q := `SELECT ` + itemCols + ` FROM items WHERE owner_id=$1 AND status<>'completed'` + where +
		` ORDER BY position ASC NULLS LAST, created_at ASC, id ASC`
	return t.list(ctx, q, args)
}

// ListCompleted returns completed items, most recently completed first.
func (t *itemTx) ListCompleted(ctx context.Context, owner uuid.UUID, f model.Filter) ([]model.Item, error) {
	where, args := filterSQL(f, []any{owner})
	q := `SELECT ` + itemCols + ` FROM items WHERE owner_id=$1 AND status='completed'` + where +
		` ORDER BY completed_at DESC, id ASC`
	return t.list(ctx, q, args)
}

func (t *itemTx) list(ctx context.Context, q string, args []any) ([]model.Item, error) {
	rows, err := t.q.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

// Insert stores a new item with a fresh time-ordered id.
func (t *itemTx) Insert(ctx context.Context, it *model.Item) error {
	id, err := t.repo.newID()
	if err != nil {
		return err
	}
	now := t.repo.now().UTC()
	const q = `
INSERT INTO items (` + itemCols + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)`
	_, err = t.q.Exec(ctx, q,
		id, it.OwnerID, string(it.Status), it.Position, it.CompletedAt,
		it.Identifier, it.Title, it.URL, it.Description, it.Hosts, it.Program,
		it.OriginURL, it.ImageURL, it.Source, it.Playtime, it.PublishedAt, now, now)
	if err != nil {
		return classify(err)
	}
	it.ID, it.CreatedAt, it.UpdatedAt = id, now, now
	return nil
}

// Update rewrites the mutable columns of a stored item.
func (t *itemTx) Update(ctx context.Context, it *model.Item) error {
	now := t.repo.now().UTC()
	const q = `
UPDATE items SET status=$3, position=$4, completed_at=$5, title=$6, url=$7, description=$8,
  hosts=$9, program=$10, origin_url=$11, image_url=$12, source=$13, playtime=$14,
  published_at=$15, updated_at=$16
WHERE id=$1 AND owner_id=$2`
	tag, err := t.q.Exec(ctx, q,
		it.ID, it.OwnerID, string(it.Status), it.Position, it.CompletedAt,
		it.Title, it.URL, it.Description, it.Hosts, it.Program,
		it.OriginURL, it.ImageURL, it.Source, it.Playtime, it.PublishedAt, now)
	if err != nil {
		return classify(err)
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	it.UpdatedAt = now
	return nil
}

// SetPositions renumbers several items in a single statement; the deferrable
// unique constraint on (owner_id, position) is checked once it completes.
func (t *itemTx) SetPositions(ctx context.Context, owner uuid.UUID, ups []model.PositionUpdate) error {
	if len(ups) == 0 {
		return nil
	}
	ids := make([]string, len(ups))
	pos := make([]int32, len(ups))
	for i, u := range ups {
		ids[i], pos[i] = u.ID.String(), u.Position
	}
	const q = `
UPDATE items AS i SET position=u.position, updated_at=$4
FROM unnest($2::text[], $3::int4[]) AS u(id, position)
WHERE i.owner_id=$1 AND i.id=u.id::uuid`
	tag, err := t.q.Exec(ctx, q, owner, ids, pos, t.repo.now().UTC())
	if err != nil {
		return err
	}
	if int(tag.RowsAffected()) != len(ups) {
		return fmt.Errorf("set positions: %d of %d rows: %w", tag.RowsAffected(), len(ups), errs.ErrVersionConflict)
	}
	return nil
}

// Delete removes the owner's item.
func (t *itemTx) Delete(ctx context.Context, owner, id uuid.UUID) error {
	const q = `DELETE FROM items WHERE id=$1 AND owner_id=$2`
	tag, err := t.q.Exec(ctx, q, id, owner)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// filterSQL appends "= ANY" clauses for the set attributes of f.
func filterSQL(f model.Filter, args []any) (string, []any) {
	var b strings.Builder
	add := func(col string, vals []string) {
		if len(vals) == 0 {
			return
		}
		args = append(args, vals)
		fmt.Fprintf(&b, " AND %s = ANY($%d)", col, len(args))
	}
	statuses := make([]string, len(f.Statuses))
	for i, s := range f.Statuses {
		statuses[i] = string(s)
	}
	add("status", statuses)
	add("identifier", f.Identifiers)
	add("source", f.Sources)
	return b.String(), args
}

func scanOne(row pgx.Row) (*model.Item, error) {
	it, err := scanItem(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	return &it, nil
}

func scanItem(row pgx.Row) (model.Item, error) {
	var (
		it     model.Item
		status string
	)
	err := row.Scan(&it.ID, &it.OwnerID, &status, &it.Position, &it.CompletedAt,
		&it.Identifier, &it.Title, &it.URL, &it.Description, &it.Hosts, &it.Program,
		&it.OriginURL, &it.ImageURL, &it.Source, &it.Playtime, &it.PublishedAt,
		&it.CreatedAt, &it.UpdatedAt)
	if err != nil {
		return model.Item{}, err
	}
	it.Status = model.Status(status)
	return it, nil
}

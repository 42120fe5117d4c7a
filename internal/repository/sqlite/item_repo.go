// Package sqlite contains a single-file SQLite implementation of the item repository.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/mattn/go-sqlite3"

	"github.com/and161185/playqueue/internal/errs"
	"github.com/and161185/playqueue/internal/migrate"
	"github.com/and161185/playqueue/internal/model"
	"github.com/and161185/playqueue/internal/repository"
)

const itemCols = `id, owner_id, status, position, completed_at, identifier, title, url, description, hosts, program, origin_url, image_url, source, playtime, published_at, created_at, updated_at`

// ItemRepo implements ItemRepository on top of a SQLite database.
// SQLite has one writer at a time, so the pool is pinned to a single
// connection and transactions are serialized by it.
type ItemRepo struct {
	db    *sql.DB
	newID func() (uuid.UUID, error)
	now   func() time.Time
}

var _ repository.ItemRepository = (*ItemRepo)(nil)

// Open creates or opens the database at path and migrates it.
func Open(ctx context.Context, path string) (*ItemRepo, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, p := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	} {
		if _, err := db.ExecContext(ctx, p); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: %w", p, err)
		}
	}
	if err := migrate.UpDB(ctx, db, migrate.SQLite); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate sqlite: %w", err)
	}
	return &ItemRepo{db: db, newID: uuid.NewV7, now: time.Now}, nil
}

// Close closes the database.
func (r *ItemRepo) Close() error { return r.db.Close() }

// InOwnerTx runs fn in a write transaction for owner.
func (r *ItemRepo) InOwnerTx(ctx context.Context, owner uuid.UUID, fn func(tx repository.ItemTx) error) error {
	return r.inTx(ctx, nil, func(tx *sql.Tx) error {
		const q = `INSERT INTO owners (id) VALUES (?) ON CONFLICT (id) DO UPDATE SET touched_at=CURRENT_TIMESTAMP`
		if _, err := tx.ExecContext(ctx, q, owner); err != nil {
			return fmt.Errorf("lock owner: %w", err)
		}
		return fn(&itemTx{tx: tx, repo: r})
	})
}

// ReadSnapshot runs fn in a read-only transaction.
func (r *ItemRepo) ReadSnapshot(ctx context.Context, fn func(rd repository.ItemReader) error) error {
	return r.inTx(ctx, &sql.TxOptions{ReadOnly: true}, func(tx *sql.Tx) error {
		return fn(&itemTx{tx: tx, repo: r})
	})
}

func (r *ItemRepo) inTx(ctx context.Context, opts *sql.TxOptions, fn func(tx *sql.Tx) error) (err error) {
	tx, err := r.db.BeginTx(ctx, opts)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
			return
		}
		err = tx.Commit()
	}()
	return fn(tx)
}

type itemTx struct {
	tx   *sql.Tx
	repo *ItemRepo
}

func (t *itemTx) Get(ctx context.Context, id uuid.UUID) (*model.Item, error) {
	return scanOne(t.tx.QueryRowContext(ctx, `SELECT `+itemCols+` FROM items WHERE id=?`, id))
}

func (t *itemTx) FindByIdentifier(ctx context.Context, owner uuid.UUID, identifier string) (*model.Item, error) {
	q := `SELECT ` + itemCols + ` FROM items WHERE owner_id=? AND identifier=?`
	return scanOne(t.tx.QueryRowContext(ctx, q, owner, identifier))
}

func (t *itemTx) ListQueued(ctx context.Context, owner uuid.UUID, f model.Filter) ([]model.Item, error) {
	where, args := filterSQL(f, []any{owner})
	q := `SELECT ` + itemCols + ` FROM items WHERE owner_id=? AND status<>'completed'` + where +
		` ORDER BY position IS NULL, position, created_at, id`
	return t.list(ctx, q, args)
}

func (t *itemTx) ListCompleted(ctx context.Context, owner uuid.UUID, f model.Filter) ([]model.Item, error) {
	where, args := filterSQL(f, []any{owner})
	q := `SELECT ` + itemCols + ` FROM items WHERE owner_id=? AND status='completed'` + where +
		` ORDER BY completed_at DESC, id`
	return t.list(ctx, q, args)
}

func (t *itemTx) list(ctx context.Context, q string, args []any) ([]model.Item, error) {
	rows, err := t.tx.QueryContext(ctx, q, args...)
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

func (t *itemTx) Insert(ctx context.Context, it *model.Item) error {
	id, err := t.repo.newID()
	if err != nil {
		return err
	}
	now := t.repo.now().UTC()
	q := `INSERT INTO items (` + itemCols + `) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`
	_, err = t.tx.ExecContext(ctx, q,
		id, it.OwnerID, string(it.Status), it.Position, utc(it.CompletedAt),
		it.Identifier, it.Title, it.URL, it.Description, it.Hosts, it.Program,
		it.OriginURL, it.ImageURL, it.Source, it.Playtime, utc(it.PublishedAt), now, now)
	if isUniqueViolation(err) {
		return errs.ErrAlreadyExists
	}
	if err != nil {
		return err
	}
	it.ID, it.CreatedAt, it.UpdatedAt = id, now, now
	return nil
}

func (t *itemTx) Update(ctx context.Context, it *model.Item) error {
	now := t.repo.now().UTC()
	const q = `
UPDATE items SET status=?, position=?, completed_at=?, title=?, url=?, description=?,
  hosts=?, program=?, origin_url=?, image_url=?, source=?, playtime=?, published_at=?, updated_at=?
WHERE id=? AND owner_id=?`
	res, err := t.tx.ExecContext(ctx, q,
		string(it.Status), it.Position, utc(it.CompletedAt), it.Title, it.URL, it.Description,
		it.Hosts, it.Program, it.OriginURL, it.ImageURL, it.Source, it.Playtime, utc(it.PublishedAt), now,
		it.ID, it.OwnerID)
	if isUniqueViolation(err) {
		return errs.ErrVersionConflict
	}
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errs.ErrNotFound
	}
	it.UpdatedAt = now
	return nil
}

// SetPositions clears the changed rows before writing them back because the
// (owner_id, position) constraint is checked per statement in SQLite.
func (t *itemTx) SetPositions(ctx context.Context, owner uuid.UUID, ups []model.PositionUpdate) error {
	if len(ups) == 0 {
		return nil
	}
	now := t.repo.now().UTC()
	unset, err := t.tx.PrepareContext(ctx, `UPDATE items SET position=NULL WHERE id=? AND owner_id=?`)
	if err != nil {
		return err
	}
	defer unset.Close()
	for _, u := range ups {
		res, err := unset.ExecContext(ctx, u.ID, owner)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("set positions: item %s: %w", u.ID, errs.ErrVersionConflict)
		}
	}

	set, err := t.tx.PrepareContext(ctx, `UPDATE items SET position=?, updated_at=? WHERE id=? AND owner_id=?`)
	if err != nil {
		return err
	}
	defer set.Close()
	for _, u := range ups {
		if _, err := set.ExecContext(ctx, u.Position, now, u.ID, owner); err != nil {
			return err
		}
	}
	return nil
}

func (t *itemTx) Delete(ctx context.Context, owner, id uuid.UUID) error {
	res, err := t.tx.ExecContext(ctx, `DELETE FROM items WHERE id=? AND owner_id=?`, id, owner)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errs.ErrNotFound
	}
	return nil
}

func filterSQL(f model.Filter, args []any) (string, []any) {
	var b strings.Builder
	add := func(col string, vals []string) {
		if len(vals) == 0 {
			return
		}
		b.WriteString(" AND " + col + " IN (" + strings.TrimSuffix(strings.Repeat("?,", len(vals)), ",") + ")")
		for _, v := range vals {
			args = append(args, v)
		}
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

type scanner interface {
	Scan(dest ...any) error
}

func scanOne(row scanner) (*model.Item, error) {
	it, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &it, nil
}

func scanItem(row scanner) (model.Item, error) {
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

func utc(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

func isUniqueViolation(err error) bool {
	var se sqlite3.Error
	return errors.As(err, &se) &&
		(se.ExtendedCode == sqlite3.ErrConstraintUnique || se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey)
}

package sweets

import (
	"context"
	"database/sql"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

var purchaseSweetSQL = `UPDATE "sweets" AS "swt"
SET
	"quantity" = "quantity" - 1,
	"updated_at" = ?
WHERE
	"swt"."id" = ?
AND "swt"."quantity" > 0
RETURNING *;`

// ErrNotFound is returned when a sweet does not exist.
var ErrNotFound = errors.New("sweet not found", errors.CategoryNotFound).
	WithCode(errors.CodeNotFound).
	WithTextCode("SWEET_NOT_FOUND")

// ErrOutOfStock is returned when a purchase targets an item with zero
// quantity.
var ErrOutOfStock = errors.New("out of stock", errors.CategoryConflict).
	WithCode(errors.CodeBadRequest).
	WithTextCode("OUT_OF_STOCK")

// Repository persists inventory items.
type Repository interface {
	List(ctx context.Context) ([]*Sweet, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Sweet, error)
	Create(ctx context.Context, sweet *Sweet) (*Sweet, error)
	Update(ctx context.Context, sweet *Sweet) (*Sweet, error)
	Delete(ctx context.Context, id uuid.UUID) error
	// Purchase atomically decrements quantity, guarded so concurrent
	// purchases of the last unit produce at most one success.
	Purchase(ctx context.Context, id uuid.UUID) (*Sweet, error)
}

type repo struct {
	db *bun.DB
}

var _ Repository = (*repo)(nil)

// NewRepository returns a bun backed Repository
func NewRepository(db *bun.DB) Repository {
	return &repo{db: db}
}

func (r *repo) List(ctx context.Context) ([]*Sweet, error) {
	var records []*Sweet
	err := r.db.NewSelect().
		Model(&records).
		Order("name ASC").
		Scan(ctx)

	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "could not list sweets")
	}

	return records, nil
}

func (r *repo) GetByID(ctx context.Context, id uuid.UUID) (*Sweet, error) {
	record := &Sweet{}
	err := r.db.NewSelect().
		Model(record).
		Where("?TableAlias.id = ?", id).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "could not query sweet")
	}

	return record, nil
}

func (r *repo) Create(ctx context.Context, sweet *Sweet) (*Sweet, error) {
	if sweet.ID == uuid.Nil {
		sweet.ID = uuid.New()
	}

	_, err := r.db.NewInsert().Model(sweet).Exec(ctx)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "could not create sweet")
	}

	return sweet, nil
}

func (r *repo) Update(ctx context.Context, sweet *Sweet) (*Sweet, error) {
	now := time.Now()
	sweet.UpdatedAt = &now

	res, err := r.db.NewUpdate().
		Model(sweet).
		WherePK().
		Exec(ctx)

	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "could not update sweet")
	}

	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return nil, ErrNotFound
	}

	return sweet, nil
}

func (r *repo) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.NewDelete().
		Model((*Sweet)(nil)).
		Where("id = ?", id).
		Exec(ctx)

	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "could not delete sweet")
	}

	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return ErrNotFound
	}

	return nil
}

func (r *repo) Purchase(ctx context.Context, id uuid.UUID) (*Sweet, error) {
	record := &Sweet{}

	err := r.db.NewRaw(purchaseSweetSQL, time.Now(), id).Scan(ctx, record)
	if err == nil {
		return record, nil
	}

	if !errors.Is(err, sql.ErrNoRows) {
		return nil, errors.Wrap(err, errors.CategoryInternal, "could not purchase sweet")
	}

	// No row matched: either the sweet does not exist or it is sold out.
	if _, err := r.GetByID(ctx, id); err != nil {
		return nil, err
	}

	return nil, ErrOutOfStock
}

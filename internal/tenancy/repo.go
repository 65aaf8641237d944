package tenancy

import (
	"context"

	"github.com/diewo77/garage-manager/internal/db"
	"github.com/diewo77/garage-manager/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Query customises a list query (filters, ordering, paging).
type Query func(*gorm.DB) *gorm.DB

// Paginate applies limit and offset.
func Paginate(limit, offset int) Query {
	return func(tx *gorm.DB) *gorm.DB {
		if limit > 0 {
			tx = tx.Limit(limit)
		}
		if offset > 0 {
			tx = tx.Offset(offset)
		}
		return tx
	}
}

// Where adds a condition.
func Where(cond string, args ...any) Query {
	return func(tx *gorm.DB) *gorm.DB { return tx.Where(cond, args...) }
}

// Order sets the ordering.
func Order(order string) Query {
	return func(tx *gorm.DB) *gorm.DB { return tx.Order(order) }
}

// Repo is a garage-scoped repository. Every operation re-applies the scope
// so ids from another garage behave as missing records.
type Repo[T any, PT interface {
	*T
	models.Tenanted
}] struct {
	db           *gorm.DB
	name         string
	conflictCode string
}

// NewRepo builds a repository; name is used in error messages.
func NewRepo[T any, PT interface {
	*T
	models.Tenanted
}](gdb *gorm.DB, name string) *Repo[T, PT] {
	return &Repo[T, PT]{db: gdb, name: name, conflictCode: "already_exists"}
}

// WithConflictCode sets the error code reported on unique violations.
func (r *Repo[T, PT]) WithConflictCode(code string) *Repo[T, PT] {
	c := *r
	c.conflictCode = code
	return &c
}

func (r *Repo[T, PT]) query(ctx context.Context, scope Scope) *gorm.DB {
	return scope.Apply(r.db.WithContext(ctx).Model(new(T)))
}

func (r *Repo[T, PT]) List(ctx context.Context, scope Scope, opts ...Query) ([]T, error) {
	tx := r.query(ctx, scope)
	for _, o := range opts {
		tx = o(tx)
	}
	var out []T
	if err := tx.Order("id ASC").Find(&out).Error; err != nil {
		return nil, db.Translate(err, "", "list "+r.name)
	}
	return out, nil
}

// Count returns the number of records in scope matching opts.
func (r *Repo[T, PT]) Count(ctx context.Context, scope Scope, opts ...Query) (int64, error) {
	tx := r.query(ctx, scope)
	for _, o := range opts {
		tx = o(tx)
	}
	var n int64
	if err := tx.Count(&n).Error; err != nil {
		return 0, db.Translate(err, "", "count "+r.name)
	}
	return n, nil
}

func (r *Repo[T, PT]) Get(ctx context.Context, scope Scope, id uint) (PT, error) {
	var out T
	if err := r.query(ctx, scope).Where("id = ?", id).First(&out).Error; err != nil {
		return nil, db.Translate(err, "", "load "+r.name)
	}
	return &out, nil
}

// Create stores v in the scope's write garage, overriding any garage id the
// caller supplied.
func (r *Repo[T, PT]) Create(ctx context.Context, scope Scope, v PT) error {
	gid, err := scope.WriteGarage()
	if err != nil {
		return err
	}
	v.SetGarageID(gid)
	if err := r.db.WithContext(ctx).Create(v).Error; err != nil {
		return db.Translate(err, r.conflictCode, "create "+r.name)
	}
	return nil
}

// Update loads the record in scope, applies fn and saves it. The garage id
// cannot be changed by fn.
func (r *Repo[T, PT]) Update(ctx context.Context, scope Scope, id uint, fn func(PT) error) (PT, error) {
	v, err := r.Get(ctx, scope, id)
	if err != nil {
		return nil, err
	}
	gid := v.GetGarageID()
	if err := fn(v); err != nil {
		return nil, err
	}
	v.SetGarageID(gid)
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Save(v).Error; err != nil {
		return nil, db.Translate(err, r.conflictCode, "update "+r.name)
	}
	return v, nil
}

// Delete soft-deletes the record in scope.
func (r *Repo[T, PT]) Delete(ctx context.Context, scope Scope, id uint) error {
	v, err := r.Get(ctx, scope, id)
	if err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Delete(v).Error; err != nil {
		return db.Translate(err, "", "delete "+r.name)
	}
	return nil
}

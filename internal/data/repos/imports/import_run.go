package imports

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	types "github.com/yungbote/conceptdb/internal/domain/imports"
	"github.com/yungbote/conceptdb/internal/pkg/dbctx"
	"github.com/yungbote/conceptdb/internal/platform/logger"
)

const maxListLimit = 500

type ImportRunRepo interface {
	Create(dbc dbctx.Context, run *types.ImportRun) (*types.ImportRun, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.ImportRun, error)
	ListRecent(dbc dbctx.Context, kind string, limit int) ([]*types.ImportRun, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	DeleteOlderThan(dbc dbctx.Context, cutoff time.Time) (int64, error)
}

type importRunRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewImportRunRepo(db *gorm.DB, baseLog *logger.Logger) ImportRunRepo {
	return &importRunRepo{
		db:  db,
		log: baseLog.With("repo", "ImportRunRepo"),
	}
}

func (r *importRunRepo) Create(dbc dbctx.Context, run *types.ImportRun) (*types.ImportRun, error) {
	if run == nil {
		return nil, nil
	}
	if err := dbc.DB(r.db).Create(run).Error; err != nil {
		return nil, err
	}
	return run, nil
}

func (r *importRunRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.ImportRun, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var run types.ImportRun
	err := dbc.DB(r.db).Where("id = ?", id).Limit(1).Find(&run).Error
	if err != nil {
		return nil, err
	}
	if run.ID == uuid.Nil {
		return nil, nil
	}
	return &run, nil
}

func (r *importRunRepo) ListRecent(dbc dbctx.Context, kind string, limit int) ([]*types.ImportRun, error) {
	if limit <= 0 || limit > maxListLimit {
		limit = maxListLimit
	}
	q := dbc.DB(r.db).Order("created_at DESC").Limit(limit)
	if kind != "" {
		q = q.Where("kind = ?", kind)
	}
	var out []*types.ImportRun
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *importRunRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	if id == uuid.Nil || len(updates) == 0 {
		return nil
	}
	updates["updated_at"] = time.Now()
	return dbc.DB(r.db).Model(&types.ImportRun{}).Where("id = ?", id).Updates(updates).Error
}

func (r *importRunRepo) DeleteOlderThan(dbc dbctx.Context, cutoff time.Time) (int64, error) {
	res := dbc.DB(r.db).Where("created_at < ?", cutoff).Delete(&types.ImportRun{})
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected > 0 {
		r.log.Info("pruned import history", "rows", res.RowsAffected, "cutoff", cutoff)
	}
	return res.RowsAffected, nil
}

// IsRetryable reports postgres serialization failures and deadlocks.
func IsRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	switch pgErr.Code {
	case "40001", "40P01":
		return true
	default:
		return false
	}
}

// IsUniqueViolation reports a postgres unique constraint violation or the
// sqlite/gorm equivalent.
func IsUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"strings"

	"gorm.io/gorm"
)

// 错误定义
var (
	ErrNotFound            = errors.New("record not found")
	ErrConstraintViolation = errors.New("constraint violation")
	ErrStaleVersion        = errors.New("current version changed concurrently")
	ErrInvalidTransition   = errors.New("invalid status transition")
	ErrStorageUnavailable  = errors.New("storage unavailable")
)

// Repositories 仓库集合
type Repositories struct {
	db *gorm.DB

	Master  *MasterRepository
	Version *VersionRepository
	SKU     *SKURepository
}

// NewRepositories 创建仓库集合
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		db:      db,
		Master:  NewMasterRepository(db),
		Version: NewVersionRepository(db),
		SKU:     NewSKURepository(db),
	}
}

// Transaction 在同一事务中执行 fn，fn 返回错误时整体回滚
func (r *Repositories) Transaction(ctx context.Context, fn func(tx *Repositories) error) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewRepositories(tx))
	})
	return translateError(err)
}

// Ping 检查数据库连接
func (r *Repositories) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return translateError(err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return nil
}

// translateError 将驱动错误归类为仓库错误
func translateError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrConstraintViolation),
		errors.Is(err, ErrStaleVersion), errors.Is(err, ErrInvalidTransition),
		errors.Is(err, ErrStorageUnavailable):
		return err
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey), errors.Is(err, gorm.ErrForeignKeyViolated), isUniqueViolation(err):
		return fmt.Errorf("%w: %v", ErrConstraintViolation, err)
	case isConnectionError(err):
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return err
}

func isUniqueViolation(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value") ||
		strings.Contains(msg, "SQLSTATE 23505")
}

func isConnectionError(err error) bool {
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// lastID 按长度、字典序取前缀下最大的编号
func lastID(ctx context.Context, db *gorm.DB, model interface{}, column, prefix string) (string, error) {
	var ids []string
	err := db.WithContext(ctx).
		Model(model).
		Where(column+" LIKE ? ESCAPE '\\'", escapeLike(prefix)+"%").
		Order("LENGTH(" + column + ") DESC, " + column + " DESC").
		Limit(1).
		Pluck(column, &ids).Error
	if err != nil {
		return "", translateError(err)
	}
	if len(ids) == 0 {
		return "", nil
	}
	return ids[0], nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

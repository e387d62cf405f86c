package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/brainhub/brain-ingest/pkg/types"
)

func ErrorSqlBuild(err error) error {
	return fmt.Errorf("failed to build sql query, %w", err)
}

// IsNotFound reports whether err means the row does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

type SqlProviderAchieve interface {
	GetMaster() *sqlx.DB
	GetReplica() *sqlx.DB
	GetDBName(ctx context.Context) (string, error)
	GetTxFromCtx(ctx context.Context) *sqlx.Tx
}

// store 基础设置
type CommonFields struct {
	table      string
	provider   SqlProviderAchieve
	allColumns []string
}

func (c *CommonFields) GetTable(key ...interface{}) string {
	return c.table
}

func (c *CommonFields) SetAllColumns(str ...string) {
	c.allColumns = str
}

func (c *CommonFields) GetAllColumns() []string {
	return c.allColumns
}

func (c *CommonFields) SetTable(table types.TableName) {
	c.table = table.Name()
}

func (c *CommonFields) SetProvider(p SqlProviderAchieve) {
	c.provider = p
}

type Master interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
}

// GetMaster returns the transaction carried by ctx, or the master connection.
func (c *CommonFields) GetMaster(ctx context.Context) Master {
	if ctx == nil {
		return c.provider.GetMaster()
	}

	if tx := c.provider.GetTxFromCtx(ctx); tx != nil {
		return &txWithContext{tx: tx, ctx: ctx}
	}

	return &dbWithContext{
		db:  c.provider.GetMaster(),
		ctx: ctx,
	}
}

type Replica interface {
	Get(dest interface{}, query string, args ...interface{}) error
	Select(dest interface{}, query string, args ...interface{}) error
}

// GetReplica reads inside the transaction carried by ctx so uncommitted
// writes stay visible, otherwise from a replica.
func (c *CommonFields) GetReplica(ctx context.Context) Replica {
	if ctx == nil {
		return c.provider.GetReplica()
	}

	if tx := c.provider.GetTxFromCtx(ctx); tx != nil {
		return &txWithContext{tx: tx, ctx: ctx}
	}

	return &dbWithContext{
		db:  c.provider.GetReplica(),
		ctx: ctx,
	}
}

// exec builds and runs a write statement and returns the affected rows.
func (c *CommonFields) exec(ctx context.Context, query sq.Sqlizer) (int64, error) {
	queryString, args, err := query.ToSql()
	if err != nil {
		return 0, ErrorSqlBuild(err)
	}

	res, err := c.GetMaster(ctx).Exec(queryString, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func paging(query sq.SelectBuilder, page, pageSize uint64) sq.SelectBuilder {
	if page == types.NO_PAGINATION || pageSize == types.NO_PAGINATION {
		return query
	}
	return query.Limit(pageSize).Offset((page - 1) * pageSize)
}

type dbWithContext struct {
	db  *sqlx.DB
	ctx context.Context
}

func (d *dbWithContext) Get(dest interface{}, query string, args ...interface{}) error {
	return d.db.GetContext(d.ctx, dest, query, args...)
}

func (d *dbWithContext) Select(dest interface{}, query string, args ...interface{}) error {
	return d.db.SelectContext(d.ctx, dest, query, args...)
}

func (d *dbWithContext) Exec(query string, args ...interface{}) (sql.Result, error) {
	return d.db.ExecContext(d.ctx, query, args...)
}

type txWithContext struct {
	tx  *sqlx.Tx
	ctx context.Context
}

func (t *txWithContext) Get(dest interface{}, query string, args ...interface{}) error {
	return t.tx.GetContext(t.ctx, dest, query, args...)
}

func (t *txWithContext) Select(dest interface{}, query string, args ...interface{}) error {
	return t.tx.SelectContext(t.ctx, dest, query, args...)
}

func (t *txWithContext) Exec(query string, args ...interface{}) (sql.Result, error) {
	return t.tx.ExecContext(t.ctx, query, args...)
}

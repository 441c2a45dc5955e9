// Package repository 提供数据访问层
package repository

import (
	"context"
	"database/sql"
)

// DB 仓储依赖的最小数据库接口
type DB interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

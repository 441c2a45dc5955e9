// Package repository 提供数据访问层
package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/paike/paike/pkg/errors"
	"github.com/paike/paike/pkg/model"
	"github.com/paike/paike/pkg/scheduler/solver"
)

// SolutionRepository 求解结果仓储
type SolutionRepository struct {
	db DB
}

// NewSolutionRepository 创建求解结果仓储
func NewSolutionRepository(db DB) *SolutionRepository {
	return &SolutionRepository{db: db}
}

// SaveReport 持久化一次求解的运行记录与全部安排。
// 调用方通常把 db 换成事务句柄以保证原子性。
func (r *SolutionRepository) SaveReport(ctx context.Context, rep *solver.Report) error {
	runID, err := uuid.Parse(rep.RunID)
	if err != nil {
		return errors.Wrap(err, errors.CodeInvalidInput, "运行ID不是合法UUID")
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO solver_runs (id, instance_name, builder, engine, cost, iterations, duration_ms, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		runID, rep.Instance, rep.Builder, rep.Engine, rep.Cost,
		rep.Iterations, rep.Duration.Milliseconds(), time.Now())
	if err != nil {
		return errors.Wrap(err, errors.CodeDatabaseError, "写入运行记录失败")
	}

	for _, pl := range rep.Placements {
		_, err = r.db.ExecContext(ctx,
			`INSERT INTO placements (run_id, course_id, room_id, day, period)
			 VALUES ($1, $2, $3, $4, $5)`,
			runID, pl.CourseID, pl.RoomID, pl.Day, pl.Period)
		if err != nil {
			return errors.Wrap(err, errors.CodeDatabaseError,
				fmt.Sprintf("写入课程 %s 的安排失败", pl.CourseID))
		}
	}
	return nil
}

// GetPlacements 读取一次运行的全部安排
func (r *SolutionRepository) GetPlacements(ctx context.Context, runID uuid.UUID) ([]model.Placement, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT course_id, room_id, day, period FROM placements
		 WHERE run_id = $1 ORDER BY course_id, day, period`, runID)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeDatabaseError, "查询安排失败")
	}
	defer rows.Close()

	var out []model.Placement
	for rows.Next() {
		var pl model.Placement
		if err := rows.Scan(&pl.CourseID, &pl.RoomID, &pl.Day, &pl.Period); err != nil {
			return nil, errors.Wrap(err, errors.CodeDatabaseError, "读取安排记录失败")
		}
		out = append(out, pl)
	}
	return out, rows.Err()
}

// GetLatestRun 查询实例最近一次运行的ID与代价
func (r *SolutionRepository) GetLatestRun(ctx context.Context, instance string) (uuid.UUID, int, error) {
	var runID uuid.UUID
	var cost int
	err := r.db.QueryRowContext(ctx,
		`SELECT id, cost FROM solver_runs WHERE instance_name = $1
		 ORDER BY created_at DESC LIMIT 1`, instance).Scan(&runID, &cost)
	if err == sql.ErrNoRows {
		return uuid.Nil, 0, errors.New(errors.CodeNotFound,
			fmt.Sprintf("实例 %s 没有任何运行记录", instance))
	}
	if err != nil {
		return uuid.Nil, 0, errors.Wrap(err, errors.CodeDatabaseError, "查询运行记录失败")
	}
	return runID, cost, nil
}

// Package solver 提供课表初始解构造与求解编排
package solver

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/paike/paike/internal/config"
	"github.com/paike/paike/pkg/errors"
	"github.com/paike/paike/pkg/logger"
	"github.com/paike/paike/pkg/model"
	"github.com/paike/paike/pkg/scheduler/optimizer"
	"github.com/paike/paike/pkg/scheduler/state"
	"github.com/paike/paike/pkg/validator"
)

// Options 一次求解的参数
type Options struct {
	Seed           int64
	TimeLimit      time.Duration
	Metaheuristic  string  // SA 或 TS
	Init           string  // greedy-cprop 或 random-repair
	ConstructShare float64 // 构造阶段占总预算的比例
	ConstructTries int     // 回溯构造重试次数
	RepairRetries  int     // 修复构造单讲次重试上限
	Weights        state.Weights
	ProgressPath   string // CSV 进度日志路径，空则不写
}

// OptionsFromConfig 由配置生成默认求解参数
func OptionsFromConfig(cfg config.SolverConfig) Options {
	return Options{
		Seed:           time.Now().UnixNano(),
		TimeLimit:      cfg.TimeLimit,
		Metaheuristic:  cfg.Metaheuristic,
		Init:           "greedy-cprop",
		ConstructShare: cfg.ConstructShare,
		ConstructTries: cfg.ConstructAttempts,
		RepairRetries:  cfg.RepairRetries,
		Weights:        state.DefaultWeights(),
	}
}

// Report 一次求解的产出
type Report struct {
	RunID      string               `json:"run_id"`
	Instance   string               `json:"instance"`
	Placements []model.Placement    `json:"placements"`
	Cost       int                  `json:"cost"`
	Breakdown  state.CostBreakdown  `json:"breakdown"`
	Builder    string               `json:"builder"`
	Engine     string               `json:"engine"`
	Iterations int                  `json:"iterations"`
	Duration   time.Duration        `json:"duration"`
}

// Solve 完整求解流程：构造初始解、元启发式改进、对最优快照
// 独立重建复核硬约束，全部通过才产出安排列表。复核失败说明
// 状态机不变式被破坏，属编程错误，绝不静默输出违约课表。
func Solve(inst *model.Instance, opts Options) (*Report, error) {
	start := time.Now()
	deadline := start.Add(opts.TimeLimit)
	runID := uuid.New().String()
	log := logger.NewSolverLogger()
	log.StartSolve(runID, inst.Name, len(inst.Lectures), len(inst.Rooms), inst.Periods())

	rng := rand.New(rand.NewSource(opts.Seed))

	tt, builderName, err := construct(inst, opts, rng, deadline)
	if err != nil {
		return nil, err
	}
	log.ConstructionDone(builderName, tt.Cost(), time.Since(start))

	var progress *optimizer.ProgressWriter
	if opts.ProgressPath != "" {
		progress, err = optimizer.NewProgressWriter(opts.ProgressPath)
		if err != nil {
			return nil, err
		}
		defer progress.Close()
	}

	engine, err := newEngine(opts, rng, progress)
	if err != nil {
		return nil, err
	}
	res := engine.Optimize(tt, deadline)

	// 用原始快照从零重建，增量索引不参与最终裁决
	final, err := state.NewFromAssignment(inst, opts.Weights, res.Best)
	if err != nil {
		return nil, errors.VerificationFailed(fmt.Sprintf("最优快照无法重建: %v", err))
	}
	if !final.CheckHardConstraints() {
		return nil, errors.VerificationFailed("最优快照违反硬约束")
	}
	if final.Cost() != res.BestCost {
		return nil, errors.VerificationFailed(
			fmt.Sprintf("增量代价 %d 与重建代价 %d 不一致", res.BestCost, final.Cost()))
	}
	placements := final.Placements()
	if vr := validator.NewConflictDetector(inst).DetectAll(placements); !vr.Valid {
		return nil, errors.VerificationFailed(
			fmt.Sprintf("独立复核发现 %d 处冲突: %s", len(vr.Conflicts), vr.Conflicts[0].Message))
	}

	duration := time.Since(start)
	log.SolveComplete(runID, duration, final.Cost())

	return &Report{
		RunID:      runID,
		Instance:   inst.Name,
		Placements: placements,
		Cost:       final.Cost(),
		Breakdown:  final.Breakdown(),
		Builder:    builderName,
		Engine:     engine.Name(),
		Iterations: res.Iterations,
		Duration:   duration,
	}, nil
}

// construct 构造初始解：先在预算份额内回溯，失败则用剩余
// 时间做弹出链修复
func construct(inst *model.Instance, opts Options, rng *rand.Rand, deadline time.Time) (*state.Timetable, string, error) {
	repair := NewRepairBuilder(rng, opts.Weights, opts.RepairRetries)

	if opts.Init == repair.Name() {
		tt, err := repair.Build(inst, deadline)
		if err != nil {
			return nil, "", errors.Wrap(err, errors.CodeNoFeasibleSolution, "修复构造失败")
		}
		return tt, repair.Name(), nil
	}

	backtracking := NewBacktrackingBuilder(rng, opts.Weights, opts.ConstructTries)
	share := opts.ConstructShare
	if share <= 0 || share >= 1 {
		share = 0.35
	}
	constructDeadline := time.Now().Add(time.Duration(share * float64(time.Until(deadline))))
	tt, err := backtracking.Build(inst, constructDeadline)
	if err == nil {
		return tt, backtracking.Name(), nil
	}
	logger.WithError(err).Msg("回溯构造失败，转入修复构造")

	tt, err = repair.Build(inst, deadline)
	if err != nil {
		return nil, "", errors.Wrap(err, errors.CodeNoFeasibleSolution, "回溯与修复构造均告失败")
	}
	return tt, repair.Name(), nil
}

// newEngine 按配置挑选元启发式引擎
func newEngine(opts Options, rng *rand.Rand, progress *optimizer.ProgressWriter) (optimizer.Engine, error) {
	switch opts.Metaheuristic {
	case "SA", "":
		return optimizer.NewAnnealer(optimizer.DefaultAnnealingConfig(), rng, progress), nil
	case "TS":
		return optimizer.NewTabuSearch(optimizer.DefaultTabuConfig(), rng, progress), nil
	default:
		return nil, errors.InvalidInput("metaheuristic", fmt.Sprintf("未知的元启发式引擎 %q", opts.Metaheuristic))
	}
}

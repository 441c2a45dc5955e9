// Package optimizer 提供课表局部搜索优化算法
package optimizer

import (
	"math"
	"math/rand"
	"time"

	"github.com/paike/paike/pkg/logger"
	"github.com/paike/paike/pkg/scheduler/state"
)

// AnnealingConfig 模拟退火参数
type AnnealingConfig struct {
	CoolingRate     float64 // 每次迭代的降温系数
	MinTemp         float64 // 温度下限
	ReheatFactor    float64 // 回火系数
	StagnationLimit int     // 触发回火的连续无改进迭代数
}

// DefaultAnnealingConfig 默认退火参数
func DefaultAnnealingConfig() AnnealingConfig {
	return AnnealingConfig{
		CoolingRate:     0.995,
		MinTemp:         0.05,
		ReheatFactor:    1.5,
		StagnationLimit: 2000,
	}
}

// Annealer 模拟退火引擎。初温按初始代价与讲次数自适应，
// 长期停滞时回火跳出局部最优。
type Annealer struct {
	cfg      AnnealingConfig
	gen      *Generator
	mgr      *Manager
	rng      *rand.Rand
	log      *logger.SolverLogger
	progress *ProgressWriter
}

// NewAnnealer 创建模拟退火引擎
func NewAnnealer(cfg AnnealingConfig, rng *rand.Rand, progress *ProgressWriter) *Annealer {
	return &Annealer{
		cfg:      cfg,
		gen:      NewGenerator(rng),
		mgr:      NewManager(rng),
		rng:      rng,
		log:      logger.NewSolverLogger(),
		progress: progress,
	}
}

// Name 引擎名称
func (sa *Annealer) Name() string { return "SA" }

// Optimize 执行退火搜索直至截止时刻
func (sa *Annealer) Optimize(tt *state.Timetable, deadline time.Time) Result {
	start := time.Now()
	inst := tt.Instance()

	best := tt.Snapshot()
	bestCost := tt.Cost()
	bestBreakdown := tt.Breakdown()

	initialTemp := math.Max(1, float64(tt.Cost())/float64(len(inst.Lectures)))
	temp := initialTemp
	stale := 0
	lastReport := start
	lastOperator := ""
	var window acceptTracker

	res := Result{}
	for time.Now().Before(deadline) {
		res.Iterations++

		kind := sa.mgr.Select()
		mv := sa.gen.Generate(kind, tt)
		if mv == nil {
			continue
		}

		delta, ok := mv.Apply(tt, false)
		if !ok {
			continue
		}

		accept := delta <= 0 || sa.rng.Float64() < math.Exp(-float64(delta)/temp)
		window.observe(accept)
		if accept {
			if _, ok := mv.Apply(tt, true); !ok {
				// 试算通过的移动提交不应失败
				continue
			}
			res.Accepted++
			lastOperator = kind.String()
			sa.mgr.Reward(kind, delta < 0)

			if c := tt.Cost(); c < bestCost {
				best = tt.Snapshot()
				bestCost = c
				bestBreakdown = tt.Breakdown()
				stale = 0
			} else {
				stale++
			}
		} else {
			sa.mgr.Reward(kind, false)
			stale++
		}

		temp *= sa.cfg.CoolingRate
		if temp < sa.cfg.MinTemp {
			temp = sa.cfg.MinTemp
		}
		if stale >= sa.cfg.StagnationLimit {
			temp = math.Max(temp*sa.cfg.ReheatFactor, initialTemp)
			stale = 0
		}

		if now := time.Now(); now.Sub(lastReport) >= reportInterval {
			hardOK := tt.CheckHardConstraints()
			sa.log.SearchProgress(sa.Name(), now.Sub(start), bestCost, tt.Cost(), hardOK, window.rate(), lastOperator)
			sa.progress.Record(bestCost, tt.Cost(), hardOK, window.rate(), lastOperator)
			window.reset()
			lastReport = now
		}
	}

	res.Best = best
	res.BestCost = bestCost
	res.Breakdown = bestBreakdown
	res.Duration = time.Since(start)
	return res
}

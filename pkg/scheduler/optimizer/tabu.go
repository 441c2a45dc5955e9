// Package optimizer 提供课表局部搜索优化算法
package optimizer

import (
	"math/rand"
	"time"

	"github.com/paike/paike/pkg/logger"
	"github.com/paike/paike/pkg/scheduler/state"
)

// TabuConfig 禁忌搜索参数
type TabuConfig struct {
	CandidatesPerIter int // 每次迭代采样的候选数上限
	BaseTenure        int // 禁忌期基准值
	TenureJitter      int // 禁忌期随机抖动幅度
	MinTenure         int // 禁忌期基准下限
	TenureBumpAfter   int // 连续无改进多少次后加长禁忌期
	ClearAfter        int // 连续无改进多少次后清空禁忌表
}

// DefaultTabuConfig 默认禁忌搜索参数
func DefaultTabuConfig() TabuConfig {
	return TabuConfig{
		CandidatesPerIter: 80,
		BaseTenure:        25,
		TenureJitter:      5,
		MinTenure:         15,
		TenureBumpAfter:   150,
		ClearAfter:        300,
	}
}

// TabuSearch 禁忌搜索引擎。每次迭代采样一批候选，取未被
// 禁忌的最优者落子；禁忌期随停滞程度自适应伸缩。
type TabuSearch struct {
	cfg      TabuConfig
	gen      *Generator
	mgr      *Manager
	rng      *rand.Rand
	log      *logger.SolverLogger
	progress *ProgressWriter

	tabu   map[uint64]int // 禁忌键 → 解禁迭代号
	tenure int
}

// NewTabuSearch 创建禁忌搜索引擎
func NewTabuSearch(cfg TabuConfig, rng *rand.Rand, progress *ProgressWriter) *TabuSearch {
	return &TabuSearch{
		cfg:      cfg,
		gen:      NewGenerator(rng),
		mgr:      NewManager(rng),
		rng:      rng,
		log:      logger.NewSolverLogger(),
		progress: progress,
		tabu:     make(map[uint64]int),
		tenure:   cfg.BaseTenure,
	}
}

// Name 引擎名称
func (ts *TabuSearch) Name() string { return "TS" }

// Optimize 执行禁忌搜索直至截止时刻
func (ts *TabuSearch) Optimize(tt *state.Timetable, deadline time.Time) Result {
	start := time.Now()

	best := tt.Snapshot()
	bestCost := tt.Cost()
	bestBreakdown := tt.Breakdown()

	stale := 0
	lastReport := start
	lastOperator := ""
	var window acceptTracker

	res := Result{}
	for time.Now().Before(deadline) {
		res.Iterations++

		var chosen *Move
		chosenDelta := 0
		chosenKind := Kind(-1)
		for i := 0; i < ts.cfg.CandidatesPerIter; i++ {
			kind := ts.mgr.Select()
			mv := ts.gen.Generate(kind, tt)
			if mv == nil {
				continue
			}
			delta, ok := mv.Apply(tt, false)
			if !ok {
				continue
			}
			// 渴望准则：能刷新历史最优的禁忌移动照样放行
			if expire, banned := ts.tabu[mv.Signature()]; banned && expire > res.Iterations {
				if tt.Cost()+delta >= bestCost {
					continue
				}
			}
			if chosen == nil || delta < chosenDelta {
				chosen = mv
				chosenDelta = delta
				chosenKind = kind
			}
		}

		if chosen == nil {
			window.observe(false)
			stale++
			ts.adapt(&stale, false)
			continue
		}

		if _, ok := chosen.Apply(tt, true); !ok {
			continue
		}
		window.observe(true)
		res.Accepted++
		lastOperator = chosenKind.String()
		ts.tabu[chosen.Signature()] = res.Iterations + ts.tenure + ts.rng.Intn(ts.cfg.TenureJitter+1)

		improvedBest := tt.Cost() < bestCost
		ts.mgr.Reward(chosenKind, chosenDelta < 0)
		if improvedBest {
			best = tt.Snapshot()
			bestCost = tt.Cost()
			bestBreakdown = tt.Breakdown()
			stale = 0
		} else {
			stale++
		}
		ts.adapt(&stale, improvedBest)

		if now := time.Now(); now.Sub(lastReport) >= reportInterval {
			hardOK := tt.CheckHardConstraints()
			ts.log.SearchProgress(ts.Name(), now.Sub(start), bestCost, tt.Cost(), hardOK, window.rate(), lastOperator)
			ts.progress.Record(bestCost, tt.Cost(), hardOK, window.rate(), lastOperator)
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

// adapt 按停滞程度调节禁忌强度：停滞加长禁忌期加强扰动，
// 见效则缩短；长期停滞时整表清空作为多样化手段。
func (ts *TabuSearch) adapt(stale *int, improvedBest bool) {
	if improvedBest {
		ts.tenure--
		if ts.tenure < ts.cfg.MinTenure {
			ts.tenure = ts.cfg.MinTenure
		}
		return
	}
	if *stale > 0 && *stale%ts.cfg.TenureBumpAfter == 0 {
		ts.tenure += 2
	}
	if *stale >= ts.cfg.ClearAfter {
		ts.tabu = make(map[uint64]int)
		*stale = 0
	}
}

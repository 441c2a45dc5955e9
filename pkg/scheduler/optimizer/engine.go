// Package optimizer 提供课表局部搜索优化算法
package optimizer

import (
	"time"

	"github.com/paike/paike/pkg/scheduler/state"
)

// Engine 元启发式搜索引擎。Optimize 在截止时刻前就地改进
// 课表，返回途中见过的最优快照。
type Engine interface {
	Name() string
	Optimize(tt *state.Timetable, deadline time.Time) Result
}

// Result 一次搜索的产出与统计
type Result struct {
	Best       []state.Slot
	BestCost   int
	Breakdown  state.CostBreakdown
	Iterations int
	Accepted   int
	Duration   time.Duration
}

// acceptRate 窗口接受率统计
type acceptTracker struct {
	attempted int
	accepted  int
}

func (a *acceptTracker) observe(accepted bool) {
	a.attempted++
	if accepted {
		a.accepted++
	}
}

func (a *acceptTracker) rate() float64 {
	if a.attempted == 0 {
		return 0
	}
	return float64(a.accepted) / float64(a.attempted)
}

func (a *acceptTracker) reset() {
	a.attempted = 0
	a.accepted = 0
}

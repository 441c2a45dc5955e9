// Package solver 提供课表初始解构造与求解编排
package solver

import (
	"math/rand"
	"time"

	"github.com/paike/paike/pkg/errors"
	"github.com/paike/paike/pkg/logger"
	"github.com/paike/paike/pkg/model"
	"github.com/paike/paike/pkg/scheduler/state"
)

// RepairBuilder 弹出链修复构造器。维护一个未安排讲次队列，
// 为队首挑冲突最少的落位，强行弹出在位冲突讲次回到队列。
// 容量在此阶段放宽为软项，保证有限步内能排完。
type RepairBuilder struct {
	rng        *rand.Rand
	weights    state.Weights
	maxRetries int
	log        *logger.SolverLogger
}

// NewRepairBuilder 创建修复构造器。maxRetries 为单个讲次被
// 弹出后重新入队的次数上限。
func NewRepairBuilder(rng *rand.Rand, weights state.Weights, maxRetries int) *RepairBuilder {
	return &RepairBuilder{
		rng:        rng,
		weights:    weights,
		maxRetries: maxRetries,
		log:        logger.NewSolverLogger(),
	}
}

// Name 构造器名称
func (b *RepairBuilder) Name() string { return "random-repair" }

// Build 执行弹出链构造
func (b *RepairBuilder) Build(inst *model.Instance, deadline time.Time) (*state.Timetable, error) {
	tt := state.New(inst, b.weights)

	queue := make([]int, len(inst.Lectures))
	for i := range queue {
		queue[i] = i
	}
	b.rng.Shuffle(len(queue), func(i, j int) {
		queue[i], queue[j] = queue[j], queue[i]
	})
	retries := make([]int, len(inst.Lectures))

	for len(queue) > 0 {
		if time.Now().After(deadline) {
			return nil, errors.ConstructionExhausted(b.Name(), "修复构造超出时间片")
		}
		lecture := queue[0]
		queue = queue[1:]

		period, room, evict, ok := b.bestSpot(tt, lecture)
		if !ok {
			return nil, errors.ConstructionExhausted(b.Name(), "讲次没有任何可占用的落位")
		}
		for _, victim := range evict {
			tt.Remove(victim)
			retries[victim]++
			if retries[victim] > b.maxRetries {
				return nil, errors.ConstructionExhausted(b.Name(), "弹出链超出单讲次重试上限")
			}
			queue = append(queue, victim)
		}
		if !tt.Place(lecture, period, room) {
			// 弹出冲突后放置不应失败
			return nil, errors.New(errors.CodeInternal, "修复构造内部状态不一致")
		}
	}
	return tt, nil
}

// bestSpot 在可行时段与适配教室中挑 (冲突数, 容量超员) 最小
// 的落位，同档随机打破平局
func (b *RepairBuilder) bestSpot(tt *state.Timetable, lecture int) (period, room int, evict []int, ok bool) {
	inst := tt.Instance()
	course := inst.Lectures[lecture].Course
	students := inst.Courses[course].Students

	bestConf, bestOver, bestTie := -1, 0, 0
	for _, p := range inst.FeasiblePeriods[course] {
		for _, r := range inst.RoomPreference[course] {
			conflicts := tt.ConflictsAt(lecture, p, r)
			over := students - inst.Rooms[r].Capacity
			if over < 0 {
				over = 0
			}
			tie := b.rng.Int()
			better := bestConf < 0 ||
				len(conflicts) < bestConf ||
				(len(conflicts) == bestConf && over < bestOver) ||
				(len(conflicts) == bestConf && over == bestOver && tie < bestTie)
			if better {
				period, room, evict = p, r, conflicts
				bestConf, bestOver, bestTie = len(conflicts), over, tie
				ok = true
			}
		}
	}
	return period, room, evict, ok
}

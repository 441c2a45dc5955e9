// Package solver 提供课表初始解构造与求解编排
package solver

import (
	"math/rand"
	"sort"
	"time"

	"github.com/paike/paike/pkg/errors"
	"github.com/paike/paike/pkg/logger"
	"github.com/paike/paike/pkg/model"
	"github.com/paike/paike/pkg/scheduler/state"
)

// Builder 初始解构造器接口
type Builder interface {
	// Build 在截止时刻前构造全部讲次已安排的状态
	Build(inst *model.Instance, deadline time.Time) (*state.Timetable, error)

	// Name 返回构造器名称
	Name() string
}

const (
	// branchCap 每个讲次尝试的候选落位上限
	branchCap = 4
	// adjacencyBonus 候选与同课程讲次相邻时的评分奖励
	adjacencyBonus = 8
	// prefBonus 候选落在教师偏好时段时的评分奖励
	prefBonus = 2
)

// BacktrackingBuilder 回溯构造器。讲次按课程优先级排序且同
// 课程讲次相邻成对，候选落位按综合评分取前若干个深入。
type BacktrackingBuilder struct {
	rng      *rand.Rand
	weights  state.Weights
	attempts int
	log      *logger.SolverLogger
}

// NewBacktrackingBuilder 创建回溯构造器。attempts 为打乱课程
// 顺序的整体重试次数上限。
func NewBacktrackingBuilder(rng *rand.Rand, weights state.Weights, attempts int) *BacktrackingBuilder {
	if attempts < 1 {
		attempts = 1
	}
	return &BacktrackingBuilder{
		rng:      rng,
		weights:  weights,
		attempts: attempts,
		log:      logger.NewSolverLogger(),
	}
}

// Name 构造器名称
func (b *BacktrackingBuilder) Name() string { return "greedy-cprop" }

// Build 执行回溯构造，失败时打乱顺序重试
func (b *BacktrackingBuilder) Build(inst *model.Instance, deadline time.Time) (*state.Timetable, error) {
	for attempt := 1; attempt <= b.attempts; attempt++ {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			break
		}
		// 剩余时间平摊到剩余尝试次数
		slice := remaining / time.Duration(b.attempts-attempt+1)
		attemptDeadline := time.Now().Add(slice)

		order := b.lectureOrder(inst, attempt > 1)
		tt := state.New(inst, b.weights)
		if b.place(tt, order, 0, attemptDeadline) {
			return tt, nil
		}
		b.log.ConstructionAttemptFailed(b.Name(), attempt)
	}
	return nil, errors.ConstructionExhausted(b.Name(), "回溯构造在时间片内未能安排全部讲次")
}

// lectureOrder 构造讲次处理顺序：课程按最少授课天数与班级
// 规模降序，同课程讲次保持相邻以利连排
func (b *BacktrackingBuilder) lectureOrder(inst *model.Instance, shuffle bool) []int {
	courses := make([]int, len(inst.Courses))
	for i := range courses {
		courses[i] = i
	}
	if shuffle {
		b.rng.Shuffle(len(courses), func(i, j int) {
			courses[i], courses[j] = courses[j], courses[i]
		})
	}
	sort.SliceStable(courses, func(i, j int) bool {
		ci, cj := &inst.Courses[courses[i]], &inst.Courses[courses[j]]
		if ci.MinWorkingDays != cj.MinWorkingDays {
			return ci.MinWorkingDays > cj.MinWorkingDays
		}
		return ci.Students > cj.Students
	})

	order := make([]int, 0, len(inst.Lectures))
	for _, ci := range courses {
		order = append(order, inst.CourseLectures[ci]...)
	}
	return order
}

// candidate 带评分的候选落位
type candidate struct {
	period int
	room   int
	score  int
	tie    int
}

// place 递归放置 order[idx:]，失败时完整回退
func (b *BacktrackingBuilder) place(tt *state.Timetable, order []int, idx int, deadline time.Time) bool {
	if idx >= len(order) {
		return true
	}
	if time.Now().After(deadline) {
		return false
	}

	lecture := order[idx]
	cands := b.rankCandidates(tt, lecture)
	tried := 0
	for _, c := range cands {
		if tried >= branchCap {
			break
		}
		if !tt.CanPlace(lecture, c.period, c.room) {
			continue
		}
		tried++
		tt.Place(lecture, c.period, c.room)
		if b.place(tt, order, idx+1, deadline) {
			return true
		}
		tt.Remove(lecture)
		if time.Now().After(deadline) {
			return false
		}
	}
	return false
}

// rankCandidates 枚举可行落位并按综合评分升序排列：
// 同课程相邻加分、教师偏好加分、教室适配度加分、代价增量罚分
func (b *BacktrackingBuilder) rankCandidates(tt *state.Timetable, lecture int) []candidate {
	inst := tt.Instance()
	course := inst.Lectures[lecture].Course
	rooms := inst.RoomPreference[course]

	var cands []candidate
	for _, p := range inst.FeasiblePeriods[course] {
		for ri, r := range rooms {
			if !tt.CanPlace(lecture, p, r) {
				continue
			}
			score := ri // 教室适配度：排名越靠前越好
			if b.adjacentSibling(tt, course, lecture, p) {
				score -= adjacencyBonus
			}
			if inst.CoursePreferred(course, p) {
				score -= prefBonus
			}
			score += b.costDelta(tt, lecture, p, r)
			cands = append(cands, candidate{period: p, room: r, score: score, tie: b.rng.Int()})
		}
	}
	sort.Slice(cands, func(i, j int) bool {
		if cands[i].score != cands[j].score {
			return cands[i].score < cands[j].score
		}
		// 同分随机打破平局
		return cands[i].tie < cands[j].tie
	})
	return cands
}

// adjacentSibling 同课程是否已有讲次落在 p 的相邻节次
func (b *BacktrackingBuilder) adjacentSibling(tt *state.Timetable, course, lecture, period int) bool {
	inst := tt.Instance()
	day := inst.DayOf(period)
	slot := inst.SlotOf(period)
	for _, li := range inst.CourseLectures[course] {
		if li == lecture {
			continue
		}
		s := tt.SlotOf(li)
		if !s.IsAssigned() || inst.DayOf(s.Period) != day {
			continue
		}
		d := inst.SlotOf(s.Period) - slot
		if d == 1 || d == -1 {
			return true
		}
	}
	return false
}

// costDelta 试放一次量出软代价增量
func (b *BacktrackingBuilder) costDelta(tt *state.Timetable, lecture, period, room int) int {
	before := tt.Cost()
	if !tt.Place(lecture, period, room) {
		return 0
	}
	delta := tt.Cost() - before
	tt.Remove(lecture)
	return delta
}

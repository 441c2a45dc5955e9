// Package stats 提供课表统计分析功能
package stats

import (
	"fmt"
	"sort"
	"strings"

	"github.com/samber/lo"

	"github.com/paike/paike/pkg/model"
	"github.com/paike/paike/pkg/scheduler/state"
)

// CourseStat 课程级软代价分布
type CourseStat struct {
	CourseID        string `json:"course_id"`
	Teacher         string `json:"teacher"`
	Lectures        int    `json:"lectures"`
	ActiveDays      int    `json:"active_days"`
	MinWorkingDays  int    `json:"min_working_days"`
	MWDPenalty      int    `json:"mwd_penalty"`
	Stability       int    `json:"stability_penalty"`
	Consecutiveness int    `json:"consecutiveness_penalty"`
	Capacity        int    `json:"capacity_penalty"`
	Preference      int    `json:"preference_penalty"`
}

// Total 课程承担的软代价合计
func (c CourseStat) Total() int {
	return c.MWDPenalty + c.Stability + c.Consecutiveness + c.Capacity + c.Preference
}

// Report 一份课表的代价与占用统计
type Report struct {
	Instance        string              `json:"instance"`
	Cost            int                 `json:"cost"`
	Breakdown       state.CostBreakdown `json:"breakdown"`
	CourseStats     []CourseStat        `json:"course_stats"`
	RoomUtilization float64             `json:"room_utilization"` // 已用 (时段, 教室) 格子占比
	PenalizedCourse int                 `json:"penalized_courses"`
}

// Analyze 从安排列表重建状态并汇总统计
func Analyze(inst *model.Instance, placements []model.Placement, weights state.Weights) (*Report, error) {
	slots := make([]state.Slot, len(inst.Lectures))
	for i := range slots {
		slots[i] = state.Unassigned()
	}
	courseIndex := make(map[string]int, len(inst.Courses))
	for i, c := range inst.Courses {
		courseIndex[c.ID] = i
	}
	roomIndex := make(map[string]int, len(inst.Rooms))
	for i, r := range inst.Rooms {
		roomIndex[r.ID] = i
	}
	next := make(map[int]int, len(inst.Courses))
	for _, pl := range placements {
		ci, okC := courseIndex[pl.CourseID]
		ri, okR := roomIndex[pl.RoomID]
		if !okC || !okR {
			return nil, fmt.Errorf("安排引用未知课程或教室: %s %s", pl.CourseID, pl.RoomID)
		}
		ls := inst.CourseLectures[ci]
		if next[ci] >= len(ls) {
			return nil, fmt.Errorf("课程 %s 的安排多于讲次数", pl.CourseID)
		}
		slots[ls[next[ci]]] = state.Slot{Period: inst.PeriodIndex(pl.Day, pl.Period), Room: ri}
		next[ci]++
	}

	tt, err := state.NewFromAssignment(inst, weights, slots)
	if err != nil {
		return nil, err
	}
	return FromState(tt), nil
}

// FromState 直接从搜索状态汇总统计
func FromState(tt *state.Timetable) *Report {
	inst := tt.Instance()

	courseStats := lo.Map(lo.Range(len(inst.Courses)), func(ci, _ int) CourseStat {
		c := &inst.Courses[ci]
		days := make(map[int]bool)
		capacity, pref := 0, 0
		for _, li := range inst.CourseLectures[ci] {
			s := tt.SlotOf(li)
			if s.IsAssigned() {
				days[inst.DayOf(s.Period)] = true
			}
			capacity += tt.LectureCapacityOver(li)
			pref += tt.LecturePreferencePenalty(li)
		}
		return CourseStat{
			CourseID:        c.ID,
			Teacher:         c.Teacher,
			Lectures:        c.Lectures,
			ActiveDays:      len(days),
			MinWorkingDays:  c.MinWorkingDays,
			MWDPenalty:      tt.CourseMWDPenalty(ci),
			Stability:       tt.CourseStabilityPenalty(ci),
			Consecutiveness: tt.CourseConsecutivenessPenalty(ci),
			Capacity:        capacity,
			Preference:      pref,
		}
	})
	sort.Slice(courseStats, func(i, j int) bool {
		return courseStats[i].CourseID < courseStats[j].CourseID
	})

	cells := inst.Periods() * len(inst.Rooms)
	utilization := 0.0
	if cells > 0 {
		utilization = float64(tt.AssignedCount()) / float64(cells)
	}

	return &Report{
		Instance:        inst.Name,
		Cost:            tt.Cost(),
		Breakdown:       tt.Breakdown(),
		CourseStats:     courseStats,
		RoomUtilization: utilization,
		PenalizedCourse: lo.CountBy(courseStats, func(c CourseStat) bool { return c.Total() > 0 }),
	}
}

// Render 面向终端的摘要文本
func (r *Report) Render() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "实例 %s 软代价 %d\n", r.Instance, r.Cost)
	fmt.Fprintf(&sb, "  容量 %d  最少天数 %d  教室稳定 %d  紧凑 %d  连排 %d  偏好 %d\n",
		r.Breakdown.RoomCapacity, r.Breakdown.MinWorkingDays, r.Breakdown.RoomStability,
		r.Breakdown.Compactness, r.Breakdown.Consecutiveness, r.Breakdown.TeacherPreference)
	fmt.Fprintf(&sb, "  教室利用率 %.1f%%  有罚分课程 %d/%d\n",
		r.RoomUtilization*100, r.PenalizedCourse, len(r.CourseStats))

	worst := lo.MaxBy(r.CourseStats, func(a, b CourseStat) bool { return a.Total() > b.Total() })
	if worst.Total() > 0 {
		fmt.Fprintf(&sb, "  罚分最重课程 %s (%d)\n", worst.CourseID, worst.Total())
	}
	return sb.String()
}

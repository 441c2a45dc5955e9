package model

import (
	"sort"
	"strconv"

	"github.com/samber/lo"

	"github.com/paike/paike/pkg/errors"
)

// Unavailability 课程不可用时段记录
type Unavailability struct {
	Course int // 课程索引
	Day    int
	Period int
}

// Preference 教师偏好时段记录
type Preference struct {
	Teacher int // 教师索引
	Day     int
	Period  int
}

// BuildOptions 实例构建选项
type BuildOptions struct {
	// EnforceRoomPerCourse 为真时每门课程只允许使用其首选教室
	EnforceRoomPerCourse bool
}

// Instance 问题实例：装载后只读
type Instance struct {
	Name          string
	Days          int
	PeriodsPerDay int

	Rooms     []Room
	Courses   []Course
	Curricula []Curriculum
	Lectures  []Lecture
	Teachers  []string // 教师ID，下标即教师索引

	// 派生查询表
	CourseLectures   [][]int  // 课程 → 讲次索引
	CourseCurricula  [][]int  // 课程 → 所属课程体系索引
	Unavailable      [][]bool // 课程 × 时段：被禁用
	FeasiblePeriods  [][]int  // 课程 → 可行时段列表
	RoomPreference   [][]int  // 课程 → 按适配度排序的教室索引
	TeacherPreferred [][]bool // 教师 × 时段：偏好集合，nil 表示未声明偏好
	CourseConflict   [][]bool // 课程 × 课程：讲次不得同时段（同教师或同体系）
	ConflictCourses  [][]int  // 课程 → 冲突课程索引列表
}

// Periods 返回每周总时段数
func (inst *Instance) Periods() int {
	return inst.Days * inst.PeriodsPerDay
}

// PeriodIndex 由 (day, slot) 得到时段索引
func (inst *Instance) PeriodIndex(day, slot int) int {
	return day*inst.PeriodsPerDay + slot
}

// DayOf 返回时段所在天
func (inst *Instance) DayOf(period int) int {
	return period / inst.PeriodsPerDay
}

// SlotOf 返回时段在当天内的节次
func (inst *Instance) SlotOf(period int) int {
	return period % inst.PeriodsPerDay
}

// TeacherOf 返回讲次对应的教师索引
func (inst *Instance) TeacherOf(lecture int) int {
	return inst.Courses[inst.Lectures[lecture].Course].TeacherIndex
}

// CoursePreferred 课程的教师是否偏好该时段
// 未声明偏好的教师视为无约束
func (inst *Instance) CoursePreferred(course, period int) bool {
	pref := inst.TeacherPreferred[inst.Courses[course].TeacherIndex]
	if pref == nil {
		return true
	}
	return pref[period]
}

// TeacherHasPreference 教师是否声明了偏好
func (inst *Instance) TeacherHasPreference(teacher int) bool {
	return inst.TeacherPreferred[teacher] != nil
}

// NewInstance 组装实例并构建全部派生查询表
// 输入的 Rooms/Courses/Curricula 须已设置稳定索引；任一课程在应用
// 不可用约束后没有可行时段时返回 InfeasibleInstance 错误
func NewInstance(name string, days, periodsPerDay int, rooms []Room, courses []Course, curricula []Curriculum, unavail []Unavailability, prefs []Preference, opts BuildOptions) (*Instance, error) {
	inst := &Instance{
		Name:          name,
		Days:          days,
		PeriodsPerDay: periodsPerDay,
		Rooms:         rooms,
		Courses:       courses,
		Curricula:     curricula,
	}
	periods := inst.Periods()

	// 教师索引
	teacherIndex := make(map[string]int)
	for i := range inst.Courses {
		c := &inst.Courses[i]
		idx, ok := teacherIndex[c.Teacher]
		if !ok {
			idx = len(inst.Teachers)
			teacherIndex[c.Teacher] = idx
			inst.Teachers = append(inst.Teachers, c.Teacher)
		}
		c.TeacherIndex = idx
	}

	// 讲次展开
	inst.CourseLectures = make([][]int, len(courses))
	for ci := range inst.Courses {
		c := &inst.Courses[ci]
		for k := 0; k < c.Lectures; k++ {
			li := len(inst.Lectures)
			inst.Lectures = append(inst.Lectures, Lecture{
				ID:      c.ID + "-" + strconv.Itoa(k),
				Course:  ci,
				Ordinal: k,
				Index:   li,
			})
			inst.CourseLectures[ci] = append(inst.CourseLectures[ci], li)
		}
	}

	// 课程 → 所属体系
	inst.CourseCurricula = make([][]int, len(courses))
	for qi, q := range inst.Curricula {
		for _, ci := range q.Courses {
			inst.CourseCurricula[ci] = append(inst.CourseCurricula[ci], qi)
		}
	}

	// 不可用表与可行时段
	inst.Unavailable = make([][]bool, len(courses))
	for ci := range inst.Unavailable {
		inst.Unavailable[ci] = make([]bool, periods)
	}
	for _, u := range unavail {
		inst.Unavailable[u.Course][inst.PeriodIndex(u.Day, u.Period)] = true
	}
	inst.FeasiblePeriods = make([][]int, len(courses))
	for ci := range inst.Courses {
		feasible := lo.Filter(lo.Range(periods), func(p, _ int) bool {
			return !inst.Unavailable[ci][p]
		})
		if len(feasible) == 0 {
			return nil, errors.InfeasibleInstance(inst.Courses[ci].ID, "应用不可用约束后没有可行时段")
		}
		inst.FeasiblePeriods[ci] = feasible
	}

	// 教师偏好：按教师并集
	inst.TeacherPreferred = make([][]bool, len(inst.Teachers))
	for _, p := range prefs {
		if inst.TeacherPreferred[p.Teacher] == nil {
			inst.TeacherPreferred[p.Teacher] = make([]bool, periods)
		}
		inst.TeacherPreferred[p.Teacher][inst.PeriodIndex(p.Day, p.Period)] = true
	}

	// 教室偏好序
	inst.RoomPreference = make([][]int, len(courses))
	for ci := range inst.Courses {
		inst.RoomPreference[ci] = inst.rankRooms(ci)
		if opts.EnforceRoomPerCourse && len(inst.RoomPreference[ci]) > 1 {
			inst.RoomPreference[ci] = inst.RoomPreference[ci][:1]
		}
	}

	// 课程冲突矩阵：同教师或同体系
	inst.CourseConflict = make([][]bool, len(courses))
	for ci := range inst.CourseConflict {
		inst.CourseConflict[ci] = make([]bool, len(courses))
	}
	for ci := range inst.Courses {
		for cj := range inst.Courses {
			if ci != cj && inst.Courses[ci].TeacherIndex == inst.Courses[cj].TeacherIndex {
				inst.CourseConflict[ci][cj] = true
			}
		}
	}
	for _, q := range inst.Curricula {
		for _, ci := range q.Courses {
			for _, cj := range q.Courses {
				if ci != cj {
					inst.CourseConflict[ci][cj] = true
				}
			}
		}
	}
	inst.ConflictCourses = make([][]int, len(courses))
	for ci := range inst.Courses {
		for cj := range inst.Courses {
			if inst.CourseConflict[ci][cj] {
				inst.ConflictCourses[ci] = append(inst.ConflictCourses[ci], cj)
			}
		}
	}

	return inst, nil
}

// rankRooms 计算课程的教室偏好序
// 规则：类型必须匹配；设备齐全者靠前；容量足够者按容量升序靠前，
// 容量不足者按容量降序垫后
func (inst *Instance) rankRooms(course int) []int {
	c := &inst.Courses[course]
	candidates := lo.Filter(lo.Range(len(inst.Rooms)), func(ri, _ int) bool {
		return inst.Rooms[ri].Type == c.Type
	})

	equipped := func(ri int) bool {
		return len(c.Equipment) == 0 || lo.Every(inst.Rooms[ri].Equipment, c.Equipment)
	}
	sort.SliceStable(candidates, func(a, b int) bool {
		ra, rb := &inst.Rooms[candidates[a]], &inst.Rooms[candidates[b]]
		ea, eb := equipped(candidates[a]), equipped(candidates[b])
		if ea != eb {
			return ea
		}
		fitA, fitB := ra.Capacity >= c.Students, rb.Capacity >= c.Students
		if fitA != fitB {
			return fitA
		}
		if fitA {
			return ra.Capacity < rb.Capacity
		}
		return ra.Capacity > rb.Capacity
	})
	return candidates
}

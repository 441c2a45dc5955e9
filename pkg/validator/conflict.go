// Package validator 提供课表验证功能
package validator

import (
	"fmt"
	"sort"

	"github.com/paike/paike/pkg/model"
)

// ConflictType 冲突类型
type ConflictType string

const (
	ConflictUnknownCourse  ConflictType = "unknown_course"  // 课程不存在
	ConflictUnknownRoom    ConflictType = "unknown_room"    // 教室不存在
	ConflictPeriodRange    ConflictType = "period_range"    // 天或节次越界
	ConflictLectureCount   ConflictType = "lecture_count"   // 讲次数量不符
	ConflictRoomOccupancy  ConflictType = "room_occupancy"  // 教室同时段重复占用
	ConflictTeacherClash   ConflictType = "teacher_clash"   // 教师同时段重复授课
	ConflictCurriculum     ConflictType = "curriculum"      // 体系同时段重复上课
	ConflictUnavailability ConflictType = "unavailability"  // 落在禁用时段
	ConflictRoomType       ConflictType = "room_type"       // 教室类型不匹配
)

// Conflict 冲突信息
type Conflict struct {
	Type     ConflictType `json:"type"`
	CourseID string       `json:"course_id"`
	RoomID   string       `json:"room_id,omitempty"`
	Day      int          `json:"day"`
	Period   int          `json:"period"`
	Message  string       `json:"message"`
}

// Result 验证结果
type Result struct {
	Valid     bool       `json:"valid"`
	Conflicts []Conflict `json:"conflicts,omitempty"`
}

// ConflictDetector 对原始安排列表独立复核全部硬约束，
// 不依赖搜索状态的增量索引
type ConflictDetector struct {
	inst *model.Instance
}

// NewConflictDetector 创建冲突检测器
func NewConflictDetector(inst *model.Instance) *ConflictDetector {
	return &ConflictDetector{inst: inst}
}

// DetectAll 检测所有冲突
func (d *ConflictDetector) DetectAll(placements []model.Placement) Result {
	inst := d.inst
	var conflicts []Conflict
	add := func(c Conflict) { conflicts = append(conflicts, c) }

	courseIndex := make(map[string]int, len(inst.Courses))
	for i, c := range inst.Courses {
		courseIndex[c.ID] = i
	}
	roomIndex := make(map[string]int, len(inst.Rooms))
	for i, r := range inst.Rooms {
		roomIndex[r.ID] = i
	}

	type cell struct{ period, entity int }
	roomUse := make(map[cell]string)
	teacherUse := make(map[cell]string)
	curriculumUse := make(map[cell]string)
	perCourse := make(map[int]int, len(inst.Courses))

	for _, pl := range placements {
		ci, okC := courseIndex[pl.CourseID]
		if !okC {
			add(Conflict{Type: ConflictUnknownCourse, CourseID: pl.CourseID, Day: pl.Day, Period: pl.Period,
				Message: fmt.Sprintf("课程 %s 不在实例中", pl.CourseID)})
			continue
		}
		ri, okR := roomIndex[pl.RoomID]
		if !okR {
			add(Conflict{Type: ConflictUnknownRoom, CourseID: pl.CourseID, RoomID: pl.RoomID, Day: pl.Day, Period: pl.Period,
				Message: fmt.Sprintf("教室 %s 不在实例中", pl.RoomID)})
			continue
		}
		if pl.Day < 0 || pl.Day >= inst.Days || pl.Period < 0 || pl.Period >= inst.PeriodsPerDay {
			add(Conflict{Type: ConflictPeriodRange, CourseID: pl.CourseID, RoomID: pl.RoomID, Day: pl.Day, Period: pl.Period,
				Message: fmt.Sprintf("时段 (%d, %d) 越界", pl.Day, pl.Period)})
			continue
		}
		perCourse[ci]++
		p := inst.PeriodIndex(pl.Day, pl.Period)
		course := &inst.Courses[ci]

		if inst.Unavailable[ci][p] {
			add(Conflict{Type: ConflictUnavailability, CourseID: pl.CourseID, RoomID: pl.RoomID, Day: pl.Day, Period: pl.Period,
				Message: fmt.Sprintf("课程 %s 落在禁用时段 (%d, %d)", pl.CourseID, pl.Day, pl.Period)})
		}
		if inst.Rooms[ri].Type != course.Type {
			add(Conflict{Type: ConflictRoomType, CourseID: pl.CourseID, RoomID: pl.RoomID, Day: pl.Day, Period: pl.Period,
				Message: fmt.Sprintf("课程 %s 的类型与教室 %s 不匹配", pl.CourseID, pl.RoomID)})
		}
		if prev, busy := roomUse[cell{p, ri}]; busy {
			add(Conflict{Type: ConflictRoomOccupancy, CourseID: pl.CourseID, RoomID: pl.RoomID, Day: pl.Day, Period: pl.Period,
				Message: fmt.Sprintf("教室 %s 在 (%d, %d) 已被课程 %s 占用", pl.RoomID, pl.Day, pl.Period, prev)})
		} else {
			roomUse[cell{p, ri}] = pl.CourseID
		}
		if prev, busy := teacherUse[cell{p, course.TeacherIndex}]; busy {
			add(Conflict{Type: ConflictTeacherClash, CourseID: pl.CourseID, RoomID: pl.RoomID, Day: pl.Day, Period: pl.Period,
				Message: fmt.Sprintf("教师 %s 在 (%d, %d) 已有课程 %s", course.Teacher, pl.Day, pl.Period, prev)})
		} else {
			teacherUse[cell{p, course.TeacherIndex}] = pl.CourseID
		}
		for _, q := range inst.CourseCurricula[ci] {
			if prev, busy := curriculumUse[cell{p, q}]; busy {
				add(Conflict{Type: ConflictCurriculum, CourseID: pl.CourseID, RoomID: pl.RoomID, Day: pl.Day, Period: pl.Period,
					Message: fmt.Sprintf("体系 %s 在 (%d, %d) 已有课程 %s", inst.Curricula[q].ID, pl.Day, pl.Period, prev)})
			} else {
				curriculumUse[cell{p, q}] = pl.CourseID
			}
		}
	}

	// 每门课的讲次必须恰好排满
	courseOrder := make([]int, 0, len(inst.Courses))
	for ci := range inst.Courses {
		courseOrder = append(courseOrder, ci)
	}
	sort.Ints(courseOrder)
	for _, ci := range courseOrder {
		want := inst.Courses[ci].Lectures
		if got := perCourse[ci]; got != want {
			add(Conflict{Type: ConflictLectureCount, CourseID: inst.Courses[ci].ID,
				Message: fmt.Sprintf("课程 %s 应有 %d 个讲次，实际 %d 个", inst.Courses[ci].ID, want, got)})
		}
	}

	return Result{Valid: len(conflicts) == 0, Conflicts: conflicts}
}

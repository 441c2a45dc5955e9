package state

import (
	"fmt"

	"github.com/paike/paike/pkg/errors"
	"github.com/paike/paike/pkg/model"
)

// CheckHardConstraints 从头重推硬约束是否全部满足
// 只作为最终安全网：全部讲次已安排、教室/教师/体系无双占、
// 无不可用时段违反；增量索引维护正确时该检查必然通过
func (t *Timetable) CheckHardConstraints() bool {
	inst := t.inst
	periods := inst.Periods()

	roomSeen := makeGrid(periods, len(inst.Rooms))
	teacherSeen := makeGrid(periods, len(inst.Teachers))
	curriculumSeen := makeGrid(periods, len(inst.Curricula))

	for li := range inst.Lectures {
		slot := t.assign[li]
		if !slot.IsAssigned() {
			return false
		}
		course := inst.Lectures[li].Course
		if inst.Unavailable[course][slot.Period] {
			return false
		}
		if roomSeen[slot.Period][slot.Room] != unassigned {
			return false
		}
		roomSeen[slot.Period][slot.Room] = li

		teacher := inst.Courses[course].TeacherIndex
		if teacherSeen[slot.Period][teacher] != unassigned {
			return false
		}
		teacherSeen[slot.Period][teacher] = li

		for _, q := range inst.CourseCurricula[course] {
			if curriculumSeen[slot.Period][q] != unassigned {
				return false
			}
			curriculumSeen[slot.Period][q] = li
		}
	}
	return true
}

// NewFromAssignment 由原始安排表重建全新状态
// 用于把搜索期间克隆出的最优快照复原成可校验的完整状态
func NewFromAssignment(inst *model.Instance, weights Weights, slots []Slot) (*Timetable, error) {
	if len(slots) != len(inst.Lectures) {
		return nil, errors.New(errors.CodeInternal,
			fmt.Sprintf("安排表长度 %d 与讲次数 %d 不符", len(slots), len(inst.Lectures)))
	}
	t := New(inst, weights)
	for li, slot := range slots {
		if !slot.IsAssigned() {
			continue
		}
		if slot.Period < 0 || slot.Period >= inst.Periods() || slot.Room < 0 || slot.Room >= len(inst.Rooms) {
			return nil, errors.New(errors.CodeInternal,
				fmt.Sprintf("讲次 %s 的安排越界: period=%d room=%d", inst.Lectures[li].ID, slot.Period, slot.Room))
		}
		if !t.Place(li, slot.Period, slot.Room) {
			return nil, errors.VerificationFailed(
				fmt.Sprintf("讲次 %s 无法按快照复原到 (%d,%d)", inst.Lectures[li].ID, slot.Period, slot.Room))
		}
	}
	return t, nil
}

// Placements 导出当前安排为解记录
func (t *Timetable) Placements() []model.Placement {
	out := make([]model.Placement, 0, t.assignedCount)
	for li, slot := range t.assign {
		if !slot.IsAssigned() {
			continue
		}
		course := t.inst.Lectures[li].Course
		out = append(out, model.Placement{
			CourseID: t.inst.Courses[course].ID,
			RoomID:   t.inst.Rooms[slot.Room].ID,
			Day:      t.inst.DayOf(slot.Period),
			Period:   t.inst.SlotOf(slot.Period),
		})
	}
	return out
}

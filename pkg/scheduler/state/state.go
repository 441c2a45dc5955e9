// Package state 维护课表求解状态：讲次安排、冲突索引与增量软代价
package state

import (
	"github.com/paike/paike/pkg/model"
)

// unassigned 空位标记
const unassigned = -1

// Slot 讲次的 (时段, 教室) 安排；-1 表示未安排
type Slot struct {
	Period int
	Room   int
}

// Unassigned 返回未安排标记
func Unassigned() Slot {
	return Slot{Period: unassigned, Room: unassigned}
}

// IsAssigned 是否已安排
func (s Slot) IsAssigned() bool {
	return s.Period != unassigned
}

// Timetable 可变课表状态
// 所有索引表都由稠密整数下标寻址，且仅归本结构所有；
// 任何修改都同步更新原始表与软代价分项，两者不允许脱节
type Timetable struct {
	inst    *model.Instance
	weights Weights

	assign         []Slot  // 讲次 → 安排
	roomBusy       [][]int // [时段][教室] → 讲次
	teacherBusy    [][]int // [时段][教师] → 讲次
	curriculumBusy [][]int // [时段][体系] → 讲次

	courseDayCount   [][]int // [课程][天] 当天讲次数
	courseActiveDays []int   // [课程] 有课天数
	courseRoomUse    [][]int // [课程][教室] 使用次数
	courseRoomCount  []int   // [课程] 使用过的不同教室数

	// 分项缓存：保证增量更新只触达受影响的局部
	capacityPenalty      []int   // [讲次]
	prefPenalty          []int   // [讲次]
	courseMWDPenalty     []int   // [课程]
	courseStabPenalty    []int   // [课程]
	courseConsecPenalty  []int   // [课程]
	curriculumDayPenalty [][]int // [体系][天]

	cost          CostBreakdown
	assignedCount int

	dayMaskScratch []uint64 // 连排统计的按天位图缓冲
}

// New 创建空课表状态
func New(inst *model.Instance, weights Weights) *Timetable {
	periods := inst.Periods()
	t := &Timetable{
		inst:    inst,
		weights: weights,

		assign:         make([]Slot, len(inst.Lectures)),
		roomBusy:       makeGrid(periods, len(inst.Rooms)),
		teacherBusy:    makeGrid(periods, len(inst.Teachers)),
		curriculumBusy: makeGrid(periods, len(inst.Curricula)),

		courseDayCount:   makeZeroGrid(len(inst.Courses), inst.Days),
		courseActiveDays: make([]int, len(inst.Courses)),
		courseRoomUse:    makeZeroGrid(len(inst.Courses), len(inst.Rooms)),
		courseRoomCount:  make([]int, len(inst.Courses)),

		capacityPenalty:      make([]int, len(inst.Lectures)),
		prefPenalty:          make([]int, len(inst.Lectures)),
		courseMWDPenalty:     make([]int, len(inst.Courses)),
		courseStabPenalty:    make([]int, len(inst.Courses)),
		courseConsecPenalty:  make([]int, len(inst.Courses)),
		curriculumDayPenalty: makeZeroGrid(len(inst.Curricula), inst.Days),

		dayMaskScratch: make([]uint64, inst.Days),
	}
	for i := range t.assign {
		t.assign[i] = Unassigned()
	}
	// 未安排课程的最少天数罚分从0天起计
	for ci := range inst.Courses {
		t.courseMWDPenalty[ci] = weights.MinWorkingDays * inst.Courses[ci].MinWorkingDays
		t.cost.MinWorkingDays += t.courseMWDPenalty[ci]
	}
	return t
}

// makeGrid 构造以 -1 填充的二维表
func makeGrid(rows, cols int) [][]int {
	g := make([][]int, rows)
	for i := range g {
		row := make([]int, cols)
		for j := range row {
			row[j] = unassigned
		}
		g[i] = row
	}
	return g
}

// makeZeroGrid 构造零值二维表
func makeZeroGrid(rows, cols int) [][]int {
	g := make([][]int, rows)
	for i := range g {
		g[i] = make([]int, cols)
	}
	return g
}

// Instance 返回只读实例
func (t *Timetable) Instance() *model.Instance {
	return t.inst
}

// Cost 返回当前软代价总和
func (t *Timetable) Cost() int {
	return t.cost.Total()
}

// Breakdown 返回软代价分解
func (t *Timetable) Breakdown() CostBreakdown {
	return t.cost
}

// AssignedCount 已安排讲次数
func (t *Timetable) AssignedCount() int {
	return t.assignedCount
}

// Complete 是否所有讲次均已安排
func (t *Timetable) Complete() bool {
	return t.assignedCount == len(t.inst.Lectures)
}

// SlotOf 返回讲次当前安排
func (t *Timetable) SlotOf(lecture int) Slot {
	return t.assign[lecture]
}

// LectureAt 返回占用 (时段, 教室) 的讲次，空位返回 -1
func (t *Timetable) LectureAt(period, room int) int {
	return t.roomBusy[period][room]
}

// TeacherLectureAt 返回教师在该时段的讲次，空闲返回 -1
func (t *Timetable) TeacherLectureAt(period, teacher int) int {
	return t.teacherBusy[period][teacher]
}

// CanPlace 硬约束检查：时段未被课程禁用、教室空闲、教师空闲、
// 所属体系空闲、容量足够、教室类型匹配
// 教师偏好只是软项，永不阻止放置
func (t *Timetable) CanPlace(lecture, period, room int) bool {
	course := t.inst.Lectures[lecture].Course
	c := &t.inst.Courses[course]
	r := &t.inst.Rooms[room]

	if t.inst.Unavailable[course][period] {
		return false
	}
	if r.Type != c.Type || r.Capacity < c.Students {
		return false
	}
	if occ := t.roomBusy[period][room]; occ != unassigned && occ != lecture {
		return false
	}
	if occ := t.teacherBusy[period][c.TeacherIndex]; occ != unassigned && occ != lecture {
		return false
	}
	for _, q := range t.inst.CourseCurricula[course] {
		if occ := t.curriculumBusy[period][q]; occ != unassigned && occ != lecture {
			return false
		}
	}
	return true
}

// canOccupy 占用合法性（不含容量）：修复构造器的放宽检查
func (t *Timetable) canOccupy(lecture, period, room int) bool {
	course := t.inst.Lectures[lecture].Course
	c := &t.inst.Courses[course]
	r := &t.inst.Rooms[room]

	if t.inst.Unavailable[course][period] {
		return false
	}
	if r.Type != c.Type {
		return false
	}
	if occ := t.roomBusy[period][room]; occ != unassigned && occ != lecture {
		return false
	}
	if occ := t.teacherBusy[period][c.TeacherIndex]; occ != unassigned && occ != lecture {
		return false
	}
	for _, q := range t.inst.CourseCurricula[course] {
		if occ := t.curriculumBusy[period][q]; occ != unassigned && occ != lecture {
			return false
		}
	}
	return true
}

// Place 放置未安排的讲次
// 只放宽容量（修复构造器可能制造容量超员），其余硬约束不满足时返回假
func (t *Timetable) Place(lecture, period, room int) bool {
	if t.assign[lecture].IsAssigned() {
		return false
	}
	if !t.canOccupy(lecture, period, room) {
		return false
	}
	t.insert(lecture, period, room)
	return true
}

// Remove 撤下已安排的讲次
func (t *Timetable) Remove(lecture int) bool {
	if !t.assign[lecture].IsAssigned() {
		return false
	}
	t.remove(lecture)
	return true
}

// ConflictsAt 返回阻碍讲次占用 (时段, 教室) 的在位讲次集合
// 供修复构造器做弹出链：取出这些讲次后 Place 必然成功
func (t *Timetable) ConflictsAt(lecture, period, room int) []int {
	course := t.inst.Lectures[lecture].Course
	c := &t.inst.Courses[course]

	var conflicts []int
	seen := func(l int) bool {
		for _, x := range conflicts {
			if x == l {
				return true
			}
		}
		return false
	}
	if occ := t.roomBusy[period][room]; occ != unassigned && occ != lecture {
		conflicts = append(conflicts, occ)
	}
	if occ := t.teacherBusy[period][c.TeacherIndex]; occ != unassigned && occ != lecture && !seen(occ) {
		conflicts = append(conflicts, occ)
	}
	for _, q := range t.inst.CourseCurricula[course] {
		if occ := t.curriculumBusy[period][q]; occ != unassigned && occ != lecture && !seen(occ) {
			conflicts = append(conflicts, occ)
		}
	}
	return conflicts
}

// Snapshot 拷贝当前安排表（仅原始安排，不含派生索引）
func (t *Timetable) Snapshot() []Slot {
	out := make([]Slot, len(t.assign))
	copy(out, t.assign)
	return out
}

// insert 写入安排并同步全部索引与软代价分项
func (t *Timetable) insert(lecture, period, room int) {
	course := t.inst.Lectures[lecture].Course
	c := &t.inst.Courses[course]
	day := t.inst.DayOf(period)

	t.assign[lecture] = Slot{Period: period, Room: room}
	t.roomBusy[period][room] = lecture
	t.teacherBusy[period][c.TeacherIndex] = lecture
	for _, q := range t.inst.CourseCurricula[course] {
		t.curriculumBusy[period][q] = lecture
	}
	t.assignedCount++

	// 容量超员
	if over := c.Students - t.inst.Rooms[room].Capacity; over > 0 {
		t.capacityPenalty[lecture] = over
		t.cost.RoomCapacity += over
	}
	// 教师偏好
	if t.inst.TeacherHasPreference(c.TeacherIndex) && !t.inst.CoursePreferred(course, period) {
		t.prefPenalty[lecture] = t.weights.TeacherPreference
		t.cost.TeacherPreference += t.prefPenalty[lecture]
	}
	// 最少授课天数
	t.courseDayCount[course][day]++
	if t.courseDayCount[course][day] == 1 {
		t.courseActiveDays[course]++
		t.refreshMWD(course)
	}
	// 教室稳定性
	t.courseRoomUse[course][room]++
	if t.courseRoomUse[course][room] == 1 {
		t.courseRoomCount[course]++
		t.refreshStability(course)
	}
	// 体系紧凑度：只重算受影响的 (体系, 天)
	for _, q := range t.inst.CourseCurricula[course] {
		t.refreshCompactness(q, day)
	}
	// 课程连排模式
	t.refreshConsecutiveness(course)
}

// remove 撤下安排并回退全部索引与软代价分项
func (t *Timetable) remove(lecture int) {
	course := t.inst.Lectures[lecture].Course
	c := &t.inst.Courses[course]
	slot := t.assign[lecture]
	period, room := slot.Period, slot.Room
	day := t.inst.DayOf(period)

	t.assign[lecture] = Unassigned()
	t.roomBusy[period][room] = unassigned
	t.teacherBusy[period][c.TeacherIndex] = unassigned
	for _, q := range t.inst.CourseCurricula[course] {
		t.curriculumBusy[period][q] = unassigned
	}
	t.assignedCount--

	t.cost.RoomCapacity -= t.capacityPenalty[lecture]
	t.capacityPenalty[lecture] = 0
	t.cost.TeacherPreference -= t.prefPenalty[lecture]
	t.prefPenalty[lecture] = 0

	t.courseDayCount[course][day]--
	if t.courseDayCount[course][day] == 0 {
		t.courseActiveDays[course]--
		t.refreshMWD(course)
	}
	t.courseRoomUse[course][room]--
	if t.courseRoomUse[course][room] == 0 {
		t.courseRoomCount[course]--
		t.refreshStability(course)
	}
	for _, q := range t.inst.CourseCurricula[course] {
		t.refreshCompactness(q, day)
	}
	t.refreshConsecutiveness(course)
}

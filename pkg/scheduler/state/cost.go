package state

// Weights 软约束罚分系数
// 取值沿用竞赛调优结果，按配置传入以便重新调参
type Weights struct {
	MinWorkingDays    int `json:"min_working_days"`   // 每缺一天
	RoomStability     int `json:"room_stability"`     // 每多用一间教室
	Compactness       int `json:"compactness"`        // 每个孤立时段
	Consecutiveness   int `json:"consecutiveness"`    // 每缺一组连排
	SameDay           int `json:"same_day"`           // 讲次全部挤在一天
	TeacherPreference int `json:"teacher_preference"` // 每个偏好外讲次
}

// DefaultWeights 返回默认罚分系数
func DefaultWeights() Weights {
	return Weights{
		MinWorkingDays:    5,
		RoomStability:     20,
		Compactness:       2,
		Consecutiveness:   2,
		SameDay:           5,
		TeacherPreference: 1,
	}
}

// CostBreakdown 软代价分解
// 不变式：Total() 恒等于状态的当前总代价
type CostBreakdown struct {
	RoomCapacity      int `json:"room_capacity"`
	MinWorkingDays    int `json:"min_working_days"`
	RoomStability     int `json:"room_stability"`
	Compactness       int `json:"compactness"`
	Consecutiveness   int `json:"consecutiveness"`
	TeacherPreference int `json:"teacher_preference"`
}

// Total 软代价总和
func (c CostBreakdown) Total() int {
	return c.RoomCapacity + c.MinWorkingDays + c.RoomStability +
		c.Compactness + c.Consecutiveness + c.TeacherPreference
}

// refreshMWD 重算课程的最少授课天数罚分
func (t *Timetable) refreshMWD(course int) {
	c := &t.inst.Courses[course]
	penalty := 0
	if shortfall := c.MinWorkingDays - t.courseActiveDays[course]; shortfall > 0 {
		penalty = shortfall * t.weights.MinWorkingDays
	}
	t.cost.MinWorkingDays += penalty - t.courseMWDPenalty[course]
	t.courseMWDPenalty[course] = penalty
}

// refreshStability 重算课程的教室稳定性罚分
func (t *Timetable) refreshStability(course int) {
	penalty := 0
	if extra := t.courseRoomCount[course] - 1; extra > 0 {
		penalty = extra * t.weights.RoomStability
	}
	t.cost.RoomStability += penalty - t.courseStabPenalty[course]
	t.courseStabPenalty[course] = penalty
}

// refreshCompactness 重算 (体系, 天) 的紧凑度罚分
// 当天每个前后都无同体系占用的孤立时段计一次罚分
func (t *Timetable) refreshCompactness(curriculum, day int) {
	ppd := t.inst.PeriodsPerDay
	base := day * ppd

	occupied := func(slot int) bool {
		if slot < 0 || slot >= ppd {
			return false
		}
		return t.curriculumBusy[base+slot][curriculum] != unassigned
	}

	penalty := 0
	for s := 0; s < ppd; s++ {
		if occupied(s) && !occupied(s-1) && !occupied(s+1) {
			penalty += t.weights.Compactness
		}
	}
	t.cost.Compactness += penalty - t.curriculumDayPenalty[curriculum][day]
	t.curriculumDayPenalty[curriculum][day] = penalty
}

// refreshConsecutiveness 重算课程的连排模式罚分
func (t *Timetable) refreshConsecutiveness(course int) {
	penalty := t.consecutivenessPenalty(course)
	t.cost.Consecutiveness += penalty - t.courseConsecPenalty[course]
	t.courseConsecPenalty[course] = penalty
}

// consecutivenessPenalty 课程连排模式打分
// 教学规则以“成对连排”为目标：
//   - 每周2讲：恰好一组连排，否则罚 Consecutiveness
//   - 每周3讲：一组连排加一个分散到另一天的单讲；
//     无连排罚 Consecutiveness，全挤一天罚 SameDay
//   - 每周4讲：两天各一组连排，按缺失组数线性计罚
//   - 每周5讲以上：至少两组连排且分布到至少两天
func (t *Timetable) consecutivenessPenalty(course int) int {
	n, pairs, days, pairDays := t.coursePattern(course)
	w := t.weights

	switch {
	case n <= 1:
		return 0
	case n == 2:
		if pairs == 1 {
			return 0
		}
		return w.Consecutiveness
	case n == 3:
		if pairs >= 1 && days >= 2 {
			return 0
		}
		if days == 1 {
			return w.SameDay
		}
		return w.Consecutiveness
	case n == 4:
		effective := pairs
		if effective > 2 {
			effective = 2
		}
		if pairDays < 2 && effective > 1 {
			effective = 1
		}
		return (2 - effective) * w.Consecutiveness
	default: // n >= 5
		missing := 0
		if pairs < 2 {
			missing += 2 - pairs
		}
		if pairDays < 2 {
			missing++
		}
		return missing * w.Consecutiveness
	}
}

// coursePattern 统计课程已安排讲次的连排结构：
// 讲次数、连排组数、有课天数、含连排的天数
func (t *Timetable) coursePattern(course int) (n, pairs, days, pairDays int) {
	ppd := t.inst.PeriodsPerDay
	// 标记每天各节次是否被本课程占用
	masks := t.dayMaskScratch
	for i := range masks {
		masks[i] = 0
	}

	for _, li := range t.inst.CourseLectures[course] {
		slot := t.assign[li]
		if !slot.IsAssigned() {
			continue
		}
		n++
		masks[t.inst.DayOf(slot.Period)] |= 1 << uint(t.inst.SlotOf(slot.Period))
	}

	for _, mask := range masks {
		if mask == 0 {
			continue
		}
		days++
		dayPairs := 0
		run := 0
		for s := 0; s <= ppd; s++ {
			if s < ppd && mask&(1<<uint(s)) != 0 {
				run++
				continue
			}
			dayPairs += run / 2
			run = 0
		}
		if dayPairs > 0 {
			pairDays++
			pairs += dayPairs
		}
	}
	return
}

// CourseMWDPenalty 课程当前的最少授课天数罚分
func (t *Timetable) CourseMWDPenalty(course int) int {
	return t.courseMWDPenalty[course]
}

// CourseStabilityPenalty 课程当前的教室稳定性罚分
func (t *Timetable) CourseStabilityPenalty(course int) int {
	return t.courseStabPenalty[course]
}

// CourseConsecutivenessPenalty 课程当前的连排模式罚分
func (t *Timetable) CourseConsecutivenessPenalty(course int) int {
	return t.courseConsecPenalty[course]
}

// LectureCapacityOver 讲次当前的容量超员人数
func (t *Timetable) LectureCapacityOver(lecture int) int {
	return t.capacityPenalty[lecture]
}

// LecturePreferencePenalty 讲次当前的教师偏好罚分
func (t *Timetable) LecturePreferencePenalty(lecture int) int {
	return t.prefPenalty[lecture]
}

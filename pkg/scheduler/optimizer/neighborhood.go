// Package optimizer 提供课表局部搜索优化算法
package optimizer

import (
	"math/rand"

	"github.com/paike/paike/pkg/scheduler/state"
)

const (
	relocateTries  = 10 // 重定位类算子的随机尝试上限
	kempeChainCap  = 12 // Kempe 链连通分量规模上限
	prefTradeLimit = 4  // 偏好算子可接受的最大代价上升
)

// Generator 邻域候选生成器。全部随机性来自注入的 rng，
// 同一种子下生成序列可复现。
type Generator struct {
	rng *rand.Rand
}

// NewGenerator 创建邻域候选生成器
func NewGenerator(rng *rand.Rand) *Generator {
	return &Generator{rng: rng}
}

// Generate 按类型生成候选移动。当前状态下该类型产生不了
// 候选时返回 nil，调用方应改试其他算子。
func (g *Generator) Generate(kind Kind, tt *state.Timetable) *Move {
	switch kind {
	case KindMoveLecture:
		return g.moveLecture(tt)
	case KindRoomChange:
		return g.roomChange(tt)
	case KindPeriodChange:
		return g.periodChange(tt)
	case KindSwapLectures:
		return g.swapLectures(tt)
	case KindKempeChain:
		return g.kempeChain(tt)
	case KindCapacityFix:
		return g.capacityFix(tt)
	case KindGapFill:
		return g.gapFill(tt)
	case KindPairingSwap:
		return g.pairingSwap(tt)
	case KindTeacherPreference:
		return g.teacherPreference(tt)
	default:
		return nil
	}
}

func relocate(kind Kind, lecture, period, room int) *Move {
	return &Move{Kind: kind, Lecture: lecture, Period: period, Room: room, A: -1, B: -1}
}

func swapPair(kind Kind, a, b int) *Move {
	return &Move{Kind: kind, Lecture: -1, A: a, B: b}
}

// randomAssigned 随机选取一个已落位的讲次
func (g *Generator) randomAssigned(tt *state.Timetable) int {
	inst := tt.Instance()
	n := len(inst.Lectures)
	if n == 0 {
		return -1
	}
	start := g.rng.Intn(n)
	for i := 0; i < n; i++ {
		li := (start + i) % n
		if tt.SlotOf(li).IsAssigned() {
			return li
		}
	}
	return -1
}

// moveLecture 单讲次重定位。一半概率优先挑选带有天数或
// 稳定性罚分的课程，定向消解这两项软代价。
func (g *Generator) moveLecture(tt *state.Timetable) *Move {
	inst := tt.Instance()
	lecture := -1
	if g.rng.Float64() < 0.5 {
		var penalized []int
		for ci := range inst.Courses {
			if tt.CourseMWDPenalty(ci) > 0 || tt.CourseStabilityPenalty(ci) > 0 {
				penalized = append(penalized, ci)
			}
		}
		if len(penalized) > 0 {
			ci := penalized[g.rng.Intn(len(penalized))]
			ls := inst.CourseLectures[ci]
			lecture = ls[g.rng.Intn(len(ls))]
		}
	}
	if lecture < 0 {
		lecture = g.randomAssigned(tt)
	}
	if lecture < 0 || !tt.SlotOf(lecture).IsAssigned() {
		return nil
	}

	course := inst.Lectures[lecture].Course
	feasible := inst.FeasiblePeriods[course]
	rooms := inst.RoomPreference[course]
	cur := tt.SlotOf(lecture)
	for try := 0; try < relocateTries; try++ {
		p := feasible[g.rng.Intn(len(feasible))]
		r := rooms[g.rng.Intn(len(rooms))]
		if p == cur.Period && r == cur.Room {
			continue
		}
		if tt.CanPlace(lecture, p, r) {
			return relocate(KindMoveLecture, lecture, p, r)
		}
	}
	return nil
}

// roomChange 同时段换教室
func (g *Generator) roomChange(tt *state.Timetable) *Move {
	lecture := g.randomAssigned(tt)
	if lecture < 0 {
		return nil
	}
	inst := tt.Instance()
	course := inst.Lectures[lecture].Course
	rooms := inst.RoomPreference[course]
	cur := tt.SlotOf(lecture)
	start := g.rng.Intn(len(rooms))
	for i := 0; i < len(rooms); i++ {
		r := rooms[(start+i)%len(rooms)]
		if r == cur.Room {
			continue
		}
		if tt.CanPlace(lecture, cur.Period, r) {
			return relocate(KindRoomChange, lecture, cur.Period, r)
		}
	}
	return nil
}

// periodChange 同教室换时段
func (g *Generator) periodChange(tt *state.Timetable) *Move {
	lecture := g.randomAssigned(tt)
	if lecture < 0 {
		return nil
	}
	inst := tt.Instance()
	course := inst.Lectures[lecture].Course
	feasible := inst.FeasiblePeriods[course]
	cur := tt.SlotOf(lecture)
	for try := 0; try < relocateTries; try++ {
		p := feasible[g.rng.Intn(len(feasible))]
		if p == cur.Period {
			continue
		}
		if tt.CanPlace(lecture, p, cur.Room) {
			return relocate(KindPeriodChange, lecture, p, cur.Room)
		}
	}
	return nil
}

// swapLectures 交换两个不同课程讲次的落位。可行性与增量
// 由调用方试算，这里只负责配对。
func (g *Generator) swapLectures(tt *state.Timetable) *Move {
	a := g.randomAssigned(tt)
	if a < 0 {
		return nil
	}
	inst := tt.Instance()
	ca := inst.Lectures[a].Course
	for try := 0; try < relocateTries; try++ {
		b := g.rng.Intn(len(inst.Lectures))
		if b == a || inst.Lectures[b].Course == ca || !tt.SlotOf(b).IsAssigned() {
			continue
		}
		return swapPair(KindSwapLectures, a, b)
	}
	return nil
}

// kempeChain 在两个时段之间构造冲突连通分量并整体换色。
// 分量内每个讲次移动到对面时段，教室重新挑选。
func (g *Generator) kempeChain(tt *state.Timetable) *Move {
	seed := g.randomAssigned(tt)
	if seed < 0 {
		return nil
	}
	inst := tt.Instance()
	course := inst.Lectures[seed].Course
	feasible := inst.FeasiblePeriods[course]
	if len(feasible) < 2 {
		return nil
	}
	p1 := tt.SlotOf(seed).Period
	p2 := feasible[g.rng.Intn(len(feasible))]
	for try := 0; p2 == p1 && try < relocateTries; try++ {
		p2 = feasible[g.rng.Intn(len(feasible))]
	}
	if p2 == p1 {
		return nil
	}

	// 冲突关系限定在 p1/p2 两个时段内做 BFS
	inChain := map[int]bool{seed: true}
	queue := []int{seed}
	var chain []int
	for len(queue) > 0 {
		x := queue[0]
		queue = queue[1:]
		chain = append(chain, x)
		if len(chain) > kempeChainCap {
			return nil
		}
		cx := inst.Lectures[x].Course
		px := tt.SlotOf(x).Period
		other := p1 + p2 - px
		for r := range inst.Rooms {
			y := tt.LectureAt(other, r)
			if y < 0 || inChain[y] {
				continue
			}
			cy := inst.Lectures[y].Course
			if cx == cy || inst.CourseConflict[cx][cy] {
				inChain[y] = true
				queue = append(queue, y)
			}
		}
	}

	recolors := make([]state.Recolor, 0, len(chain))
	for _, x := range chain {
		px := tt.SlotOf(x).Period
		target := p1 + p2 - px
		// 目标时段必须对该讲次的课程可行
		if inst.Unavailable[inst.Lectures[x].Course][target] {
			return nil
		}
		recolors = append(recolors, state.Recolor{Lecture: x, Period: target, Room: -1})
	}
	return &Move{Kind: KindKempeChain, Lecture: -1, A: -1, B: -1, Recolors: recolors}
}

// capacityFix 定向消解容量超员：把超员最重的讲次挪进装得下
// 的教室，同时段优先，不行再换时段，最后尝试与占用者互换。
func (g *Generator) capacityFix(tt *state.Timetable) *Move {
	inst := tt.Instance()
	worst, over := -1, 0
	for li := range inst.Lectures {
		if o := tt.LectureCapacityOver(li); o > over {
			worst, over = li, o
		}
	}
	if worst < 0 {
		return nil
	}
	course := inst.Lectures[worst].Course
	students := inst.Courses[course].Students
	cur := tt.SlotOf(worst)

	fits := func(r int) bool { return inst.Rooms[r].Capacity >= students }

	// 同时段换进更大的空教室
	for _, r := range inst.RoomPreference[course] {
		if r != cur.Room && fits(r) && tt.CanPlace(worst, cur.Period, r) {
			return relocate(KindCapacityFix, worst, cur.Period, r)
		}
	}
	// 换一个时段
	feasible := inst.FeasiblePeriods[course]
	for try := 0; try < relocateTries; try++ {
		p := feasible[g.rng.Intn(len(feasible))]
		if p == cur.Period {
			continue
		}
		for _, r := range inst.RoomPreference[course] {
			if fits(r) && tt.CanPlace(worst, p, r) {
				return relocate(KindCapacityFix, worst, p, r)
			}
		}
	}
	// 与同时段大教室里的讲次互换
	for _, r := range inst.RoomPreference[course] {
		if r == cur.Room || !fits(r) {
			continue
		}
		if occ := tt.LectureAt(cur.Period, r); occ >= 0 && inst.Lectures[occ].Course != course {
			return swapPair(KindCapacityFix, worst, occ)
		}
	}
	return nil
}

// penalizedCourse 随机挑一个满足谓词的课程
func (g *Generator) penalizedCourse(tt *state.Timetable, pred func(ci int) bool) int {
	inst := tt.Instance()
	var hit []int
	for ci := range inst.Courses {
		if pred(ci) {
			hit = append(hit, ci)
		}
	}
	if len(hit) == 0 {
		return -1
	}
	return hit[g.rng.Intn(len(hit))]
}

// gapFill 针对连排罚分的课程：选一个讲次作锚点，把同课程的
// 另一讲次搬到锚点的相邻节次，凑出连排对。
func (g *Generator) gapFill(tt *state.Timetable) *Move {
	inst := tt.Instance()
	course := g.penalizedCourse(tt, func(ci int) bool {
		return tt.CourseConsecutivenessPenalty(ci) > 0
	})
	if course < 0 {
		return nil
	}
	lectures := inst.CourseLectures[course]
	if len(lectures) < 2 {
		return nil
	}
	anchor := lectures[g.rng.Intn(len(lectures))]
	as := tt.SlotOf(anchor)
	if !as.IsAssigned() {
		return nil
	}
	day := inst.DayOf(as.Period)
	slot := inst.SlotOf(as.Period)

	for _, ds := range []int{1, -1} {
		ns := slot + ds
		if ns < 0 || ns >= inst.PeriodsPerDay {
			continue
		}
		target := inst.PeriodIndex(day, ns)
		if inst.Unavailable[course][target] {
			continue
		}
		// 相邻节次已有同课程讲次则连排已成
		occupied := false
		for _, li := range lectures {
			if s := tt.SlotOf(li); s.IsAssigned() && s.Period == target {
				occupied = true
				break
			}
		}
		if occupied {
			continue
		}
		for _, mover := range lectures {
			if mover == anchor || !tt.SlotOf(mover).IsAssigned() {
				continue
			}
			ms := tt.SlotOf(mover)
			if tt.CanPlace(mover, target, ms.Room) {
				return relocate(KindGapFill, mover, target, ms.Room)
			}
			for _, r := range inst.RoomPreference[course] {
				if tt.CanPlace(mover, target, r) {
					return relocate(KindGapFill, mover, target, r)
				}
			}
		}
	}
	return nil
}

// pairingSwap 为落单讲次凑连排：目标相邻节次被占用时与占用
// 者互换，优先用锚点同教室的占用者，避免抬高稳定性代价。
func (g *Generator) pairingSwap(tt *state.Timetable) *Move {
	inst := tt.Instance()
	course := g.penalizedCourse(tt, func(ci int) bool {
		return len(inst.CourseLectures[ci]) >= 2 && tt.CourseConsecutivenessPenalty(ci) > 0
	})
	if course < 0 {
		return nil
	}
	lectures := inst.CourseLectures[course]
	anchor := lectures[g.rng.Intn(len(lectures))]
	as := tt.SlotOf(anchor)
	if !as.IsAssigned() {
		return nil
	}
	day := inst.DayOf(as.Period)
	slot := inst.SlotOf(as.Period)

	// 搬来凑对的兄弟讲次
	mover := -1
	for _, li := range lectures {
		if li != anchor && tt.SlotOf(li).IsAssigned() {
			mover = li
			break
		}
	}
	if mover < 0 {
		return nil
	}

	for _, ds := range []int{1, -1} {
		ns := slot + ds
		if ns < 0 || ns >= inst.PeriodsPerDay {
			continue
		}
		target := inst.PeriodIndex(day, ns)
		if inst.Unavailable[course][target] {
			continue
		}
		if s := tt.SlotOf(mover); s.Period == target {
			continue
		}
		// 锚点同教室的占用者优先
		if occ := tt.LectureAt(target, as.Room); occ >= 0 {
			if inst.Lectures[occ].Course != course && occ != mover {
				return swapPair(KindPairingSwap, mover, occ)
			}
			continue
		}
		// 空位直接搬入
		for _, r := range inst.RoomPreference[course] {
			if tt.CanPlace(mover, target, r) {
				return relocate(KindPairingSwap, mover, target, r)
			}
		}
	}
	return nil
}

// teacherPreference 把违背教师偏好的讲次移入偏好时段。
// 这里直接试算增量，只放行代价上升不超过界限的候选。
func (g *Generator) teacherPreference(tt *state.Timetable) *Move {
	inst := tt.Instance()
	var bad []int
	for li := range inst.Lectures {
		if tt.LecturePreferencePenalty(li) > 0 {
			bad = append(bad, li)
		}
	}
	if len(bad) == 0 {
		return nil
	}
	lecture := bad[g.rng.Intn(len(bad))]
	course := inst.Lectures[lecture].Course
	teacher := inst.TeacherOf(lecture)
	cur := tt.SlotOf(lecture)

	// 同日偏好时段优先，连带的软项扰动更小；同日无解再跨日
	var sameDay, crossDay []int
	for _, p := range inst.FeasiblePeriods[course] {
		if p == cur.Period || !inst.CoursePreferred(course, p) {
			continue
		}
		if inst.DayOf(p) == inst.DayOf(cur.Period) {
			sameDay = append(sameDay, p)
		} else {
			crossDay = append(crossDay, p)
		}
	}
	for _, periods := range [][]int{sameDay, crossDay} {
		if len(periods) == 0 {
			continue
		}
		start := g.rng.Intn(len(periods))
		for i := 0; i < len(periods); i++ {
			p := periods[(start+i)%len(periods)]
			if occ := tt.TeacherLectureAt(p, teacher); occ >= 0 && occ != lecture {
				continue
			}
			room := -1
			if tt.CanPlace(lecture, p, cur.Room) {
				room = cur.Room
			} else {
				for _, r := range inst.RoomPreference[course] {
					if tt.CanPlace(lecture, p, r) {
						room = r
						break
					}
				}
			}
			if room < 0 {
				continue
			}
			mv := relocate(KindTeacherPreference, lecture, p, room)
			if delta, ok := mv.Apply(tt, false); ok && delta <= prefTradeLimit {
				return mv
			}
		}
	}
	return nil
}

package state

// Recolor Kempe链重染色的一项：讲次换到新时段
// Room 为 -1 时按课程教室偏好序自动选择
type Recolor struct {
	Lecture int
	Period  int
	Room    int
}

// Move 试探或提交单讲次迁移，返回软代价净变化
// 不可行时返回 ok=false 且状态保持原样；commit=false 时无论成败
// 状态都与调用前完全一致
func (t *Timetable) Move(lecture, period, room int, commit bool) (delta int, ok bool) {
	cur := t.assign[lecture]
	if !cur.IsAssigned() {
		return 0, false
	}
	// 原位自迁移恒为零变化
	if cur.Period == period && cur.Room == room {
		return 0, true
	}

	before := t.cost.Total()
	t.remove(lecture)
	if !t.CanPlace(lecture, period, room) {
		t.insert(lecture, cur.Period, cur.Room)
		return 0, false
	}
	t.insert(lecture, period, room)
	delta = t.cost.Total() - before

	if !commit {
		t.remove(lecture)
		t.insert(lecture, cur.Period, cur.Room)
	}
	return delta, true
}

// Swap 试探或提交两讲次互换安排
// 任一讲次在对方位置不可行时整体回滚
func (t *Timetable) Swap(a, b int, commit bool) (delta int, ok bool) {
	if a == b {
		return 0, false
	}
	slotA, slotB := t.assign[a], t.assign[b]
	if !slotA.IsAssigned() || !slotB.IsAssigned() {
		return 0, false
	}

	before := t.cost.Total()
	t.remove(a)
	t.remove(b)

	if !t.CanPlace(a, slotB.Period, slotB.Room) {
		t.insert(a, slotA.Period, slotA.Room)
		t.insert(b, slotB.Period, slotB.Room)
		return 0, false
	}
	t.insert(a, slotB.Period, slotB.Room)
	if !t.CanPlace(b, slotA.Period, slotA.Room) {
		t.remove(a)
		t.insert(a, slotA.Period, slotA.Room)
		t.insert(b, slotB.Period, slotB.Room)
		return 0, false
	}
	t.insert(b, slotA.Period, slotA.Room)
	delta = t.cost.Total() - before

	if !commit {
		t.remove(a)
		t.remove(b)
		t.insert(a, slotA.Period, slotA.Room)
		t.insert(b, slotB.Period, slotB.Room)
	}
	return delta, true
}

// KempeChain 试探或提交对一组关联讲次的同步重染色
// 任一成员放不下时整体回滚；Room=-1 的成员按教室偏好序搜索容量合适的教室
func (t *Timetable) KempeChain(recolors []Recolor, commit bool) (delta int, ok bool) {
	if len(recolors) == 0 {
		return 0, false
	}

	// 所有成员必须在位且互不重复
	originals := make([]Slot, len(recolors))
	for i, rc := range recolors {
		originals[i] = t.assign[rc.Lecture]
		if !originals[i].IsAssigned() {
			return 0, false
		}
		for j := 0; j < i; j++ {
			if recolors[j].Lecture == rc.Lecture {
				return 0, false
			}
		}
	}
	before := t.cost.Total()
	for _, rc := range recolors {
		t.remove(rc.Lecture)
	}

	rollback := func(placed int) {
		for i := placed - 1; i >= 0; i-- {
			t.remove(recolors[i].Lecture)
		}
		for i, rc := range recolors {
			t.insert(rc.Lecture, originals[i].Period, originals[i].Room)
		}
	}

	for i, rc := range recolors {
		room := rc.Room
		if room == unassigned {
			room = t.pickRoom(rc.Lecture, rc.Period)
			if room == unassigned {
				rollback(i)
				return 0, false
			}
		} else if !t.CanPlace(rc.Lecture, rc.Period, room) {
			rollback(i)
			return 0, false
		}
		t.insert(rc.Lecture, rc.Period, room)
	}
	delta = t.cost.Total() - before

	if !commit {
		rollback(len(recolors))
	}
	return delta, true
}

// pickRoom 按课程教室偏好序为讲次挑选指定时段下可行的教室
func (t *Timetable) pickRoom(lecture, period int) int {
	course := t.inst.Lectures[lecture].Course
	for _, room := range t.inst.RoomPreference[course] {
		if t.CanPlace(lecture, period, room) {
			return room
		}
	}
	return unassigned
}

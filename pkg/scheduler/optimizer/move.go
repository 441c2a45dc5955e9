// Package optimizer 提供课表局部搜索优化算法
package optimizer

import (
	"encoding/binary"
	"hash/fnv"

	"github.com/paike/paike/pkg/scheduler/state"
)

// Kind 邻域移动类型
type Kind int

const (
	KindMoveLecture       Kind = iota // 重定位：讲次移动到新时段与教室
	KindRoomChange                    // 同时段换教室
	KindPeriodChange                  // 同教室换时段
	KindSwapLectures                  // 交换两个讲次的落位
	KindKempeChain                    // Kempe 链：冲突连通分量整体换色
	KindCapacityFix                   // 定向修复容量超员
	KindGapFill                       // 填补同日讲次之间的空档
	KindPairingSwap                   // 为落单讲次凑连排的交换
	KindTeacherPreference             // 将讲次移入教师偏好时段
	numKinds
)

var kindNames = [numKinds]string{
	"move_lecture",
	"room_change",
	"period_change",
	"swap_lectures",
	"kempe_chain",
	"capacity_fix",
	"gap_fill",
	"pairing_swap",
	"teacher_preference",
}

func (k Kind) String() string {
	if k < 0 || k >= numKinds {
		return "unknown"
	}
	return kindNames[k]
}

// Move 候选移动。Kind 标记来源算子，实际形态由负载决定：
// Recolors 非空为 Kempe 链，B 非负为交换，否则为单讲次重定位。
type Move struct {
	Kind     Kind
	Lecture  int
	Period   int
	Room     int
	A        int
	B        int
	Recolors []state.Recolor
}

// Apply 在课表上执行移动。commit 为假时只试算增量并完整回滚。
func (m *Move) Apply(tt *state.Timetable, commit bool) (delta int, ok bool) {
	switch {
	case len(m.Recolors) > 0:
		return tt.KempeChain(m.Recolors, commit)
	case m.B >= 0:
		return tt.Swap(m.A, m.B, commit)
	default:
		return tt.Move(m.Lecture, m.Period, m.Room, commit)
	}
}

// Signature 计算移动的禁忌键 (FNV-1a)。同一对讲次的交换
// 不论顺序映射到同一个键。
func (m *Move) Signature() uint64 {
	h := fnv.New64a()
	var buf [8]byte
	put := func(v int) {
		binary.LittleEndian.PutUint64(buf[:], uint64(int64(v)))
		h.Write(buf[:])
	}
	switch {
	case len(m.Recolors) > 0:
		put(-1)
		for _, rc := range m.Recolors {
			put(rc.Lecture)
			put(rc.Period)
		}
	case m.B >= 0:
		put(-2)
		a, b := m.A, m.B
		if a > b {
			a, b = b, a
		}
		put(a)
		put(b)
	default:
		put(-3)
		put(m.Lecture)
		put(m.Period)
		put(m.Room)
	}
	return h.Sum64()
}

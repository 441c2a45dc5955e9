// Package scenario 提供排课场景测试
package scenario

import (
	"math/rand"
	"testing"
	"time"

	"github.com/paike/paike/pkg/model"
	"github.com/paike/paike/pkg/scheduler/optimizer"
	"github.com/paike/paike/pkg/scheduler/solver"
	"github.com/paike/paike/pkg/scheduler/state"
	"github.com/paike/paike/pkg/validator"
)

// buildPairInstance 一门 2 讲次课程加一门陪衬课程，2天每天4节
func buildPairInstance(t *testing.T) *model.Instance {
	t.Helper()
	rooms := []model.Room{
		{ID: "r0001", Capacity: 40, Type: model.RoomLecture, Index: 0},
		{ID: "r0002", Capacity: 40, Type: model.RoomLecture, Index: 1},
	}
	courses := []model.Course{
		{ID: "c0001", Teacher: "t0001", Lectures: 2, MinWorkingDays: 1, Students: 30, Type: model.RoomLecture, Index: 0},
		{ID: "c0002", Teacher: "t0002", Lectures: 2, MinWorkingDays: 1, Students: 30, Type: model.RoomLecture, Index: 1},
	}
	inst, err := model.NewInstance("pair-scenario", 2, 4, rooms, courses, nil, nil, nil, model.BuildOptions{})
	if err != nil {
		t.Fatalf("构造实例失败: %v", err)
	}
	return inst
}

// TestConsecutivenessRepair 每周 2 讲的课程同天不相邻时罚 2 分，
// 空档填补算子把它修复成相邻对后罚分归零
func TestConsecutivenessRepair(t *testing.T) {
	inst := buildPairInstance(t)
	tt := state.New(inst, state.DefaultWeights())

	// c0001 两讲放在同天 0、2 节，中间隔一节
	c1 := inst.CourseLectures[0]
	if !tt.Place(c1[0], inst.PeriodIndex(0, 0), 0) || !tt.Place(c1[1], inst.PeriodIndex(0, 2), 0) {
		t.Fatal("预置落位失败")
	}
	c2 := inst.CourseLectures[1]
	if !tt.Place(c2[0], inst.PeriodIndex(1, 0), 0) || !tt.Place(c2[1], inst.PeriodIndex(1, 1), 0) {
		t.Fatal("预置落位失败")
	}

	if got := tt.Breakdown().Consecutiveness; got != 2 {
		t.Fatalf("同天不相邻的连排罚分应为 2, 实为 %d", got)
	}

	gen := optimizer.NewGenerator(rand.New(rand.NewSource(1)))
	repaired := false
	for i := 0; i < 50 && !repaired; i++ {
		mv := gen.Generate(optimizer.KindGapFill, tt)
		if mv == nil {
			continue
		}
		if delta, ok := mv.Apply(tt, false); ok && delta < 0 {
			if _, ok := mv.Apply(tt, true); !ok {
				t.Fatal("试算通过的修复提交失败")
			}
			repaired = true
		}
	}
	if !repaired {
		t.Fatal("空档填补算子未能产出修复移动")
	}
	if got := tt.Breakdown().Consecutiveness; got != 0 {
		t.Fatalf("修复后连排罚分应为 0, 实为 %d", got)
	}
}

// TestTeacherClashNeverEmitted 同教师多门课程的紧实例下，
// 求解产出永不包含教师同时段冲突
func TestTeacherClashNeverEmitted(t *testing.T) {
	rooms := []model.Room{
		{ID: "r0001", Capacity: 40, Type: model.RoomLecture, Index: 0},
		{ID: "r0002", Capacity: 40, Type: model.RoomLecture, Index: 1},
		{ID: "r0003", Capacity: 40, Type: model.RoomLecture, Index: 2},
	}
	// t0001 承担 6 讲，恰好占满 2 天 × 3 节
	courses := []model.Course{
		{ID: "c0001", Teacher: "t0001", Lectures: 3, MinWorkingDays: 2, Students: 30, Type: model.RoomLecture, Index: 0},
		{ID: "c0002", Teacher: "t0001", Lectures: 3, MinWorkingDays: 2, Students: 30, Type: model.RoomLecture, Index: 1},
		{ID: "c0003", Teacher: "t0002", Lectures: 2, MinWorkingDays: 1, Students: 30, Type: model.RoomLecture, Index: 2},
	}
	inst, err := model.NewInstance("clash-scenario", 2, 3, rooms, courses, nil, nil, nil, model.BuildOptions{})
	if err != nil {
		t.Fatalf("构造实例失败: %v", err)
	}

	rep, err := solver.Solve(inst, solver.Options{
		Seed:           31,
		TimeLimit:      500 * time.Millisecond,
		Metaheuristic:  "TS",
		Init:           "greedy-cprop",
		ConstructShare: 0.35,
		ConstructTries: 4,
		RepairRetries:  50,
		Weights:        state.DefaultWeights(),
	})
	if err != nil {
		t.Fatalf("求解失败: %v", err)
	}

	vr := validator.NewConflictDetector(inst).DetectAll(rep.Placements)
	for _, c := range vr.Conflicts {
		if c.Type == validator.ConflictTeacherClash {
			t.Fatalf("产出包含教师冲突: %s", c.Message)
		}
	}
	if !vr.Valid {
		t.Fatalf("产出存在其他硬约束冲突: %+v", vr.Conflicts[0])
	}
}

// TestTinyTimeLimit 极小时间预算下仍须产出完整合法的课表
func TestTinyTimeLimit(t *testing.T) {
	inst := buildPairInstance(t)

	rep, err := solver.Solve(inst, solver.Options{
		Seed:           5,
		TimeLimit:      50 * time.Millisecond,
		Metaheuristic:  "TS",
		Init:           "greedy-cprop",
		ConstructShare: 0.35,
		ConstructTries: 4,
		RepairRetries:  50,
		Weights:        state.DefaultWeights(),
	})
	if err != nil {
		t.Fatalf("极小预算求解失败: %v", err)
	}
	if len(rep.Placements) != len(inst.Lectures) {
		t.Fatalf("安排数 %d 与讲次数 %d 不符", len(rep.Placements), len(inst.Lectures))
	}
	if vr := validator.NewConflictDetector(inst).DetectAll(rep.Placements); !vr.Valid {
		t.Fatalf("产出存在硬约束冲突: %+v", vr.Conflicts[0])
	}
}

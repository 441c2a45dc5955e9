package solver

import (
	"encoding/csv"
	"math/rand"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/paike/paike/pkg/errors"
	"github.com/paike/paike/pkg/model"
	"github.com/paike/paike/pkg/scheduler/state"
)

// buildTestInstance 构造测试实例：4门课、3间教室、3天、每天4节
func buildTestInstance(t *testing.T) *model.Instance {
	t.Helper()
	rooms := []model.Room{
		{ID: "r0001", Capacity: 40, Type: model.RoomLecture, Index: 0},
		{ID: "r0002", Capacity: 25, Type: model.RoomLecture, Index: 1},
		{ID: "r0003", Capacity: 30, Type: model.RoomLecture, Index: 2},
	}
	courses := []model.Course{
		{ID: "c0001", Teacher: "t0001", Lectures: 2, MinWorkingDays: 2, Students: 25, Type: model.RoomLecture, Index: 0},
		{ID: "c0002", Teacher: "t0001", Lectures: 2, MinWorkingDays: 2, Students: 35, Type: model.RoomLecture, Index: 1},
		{ID: "c0003", Teacher: "t0002", Lectures: 3, MinWorkingDays: 2, Students: 20, Type: model.RoomLecture, Index: 2},
		{ID: "c0004", Teacher: "t0003", Lectures: 2, MinWorkingDays: 1, Students: 28, Type: model.RoomLecture, Index: 3},
	}
	curricula := []model.Curriculum{
		{ID: "q0001", Courses: []int{0, 2}, Index: 0},
	}
	unavail := []model.Unavailability{{Course: 0, Day: 0, Period: 0}}
	prefs := []model.Preference{{Teacher: 0, Day: 1, Period: 0}}

	inst, err := model.NewInstance("solver-test", 3, 4, rooms, courses, curricula, unavail, prefs, model.BuildOptions{})
	if err != nil {
		t.Fatalf("构造实例失败: %v", err)
	}
	return inst
}

func defaultOptions(meta string) Options {
	return Options{
		Seed:           42,
		TimeLimit:      500 * time.Millisecond,
		Metaheuristic:  meta,
		Init:           "greedy-cprop",
		ConstructShare: 0.35,
		ConstructTries: 4,
		RepairRetries:  50,
		Weights:        state.DefaultWeights(),
	}
}

func TestBacktrackingBuilder(t *testing.T) {
	inst := buildTestInstance(t)
	rng := rand.New(rand.NewSource(1))
	b := NewBacktrackingBuilder(rng, state.DefaultWeights(), 4)

	tt, err := b.Build(inst, time.Now().Add(2*time.Second))
	if err != nil {
		t.Fatalf("回溯构造失败: %v", err)
	}
	if !tt.Complete() {
		t.Fatal("构造结果未安排全部讲次")
	}
	if !tt.CheckHardConstraints() {
		t.Fatal("构造结果违反硬约束")
	}
}

func TestBacktrackingExhaustedOnExpiredDeadline(t *testing.T) {
	inst := buildTestInstance(t)
	rng := rand.New(rand.NewSource(1))
	b := NewBacktrackingBuilder(rng, state.DefaultWeights(), 4)

	_, err := b.Build(inst, time.Now().Add(-time.Second))
	if err == nil {
		t.Fatal("过期截止时刻下构造应当失败")
	}
	if !errors.Is(err, errors.CodeConstructionExhausted) {
		t.Fatalf("期望 CONSTRUCTION_EXHAUSTED, 实为 %v", err)
	}
}

func TestRepairBuilder(t *testing.T) {
	inst := buildTestInstance(t)
	rng := rand.New(rand.NewSource(3))
	b := NewRepairBuilder(rng, state.DefaultWeights(), 50)

	tt, err := b.Build(inst, time.Now().Add(2*time.Second))
	if err != nil {
		t.Fatalf("修复构造失败: %v", err)
	}
	if !tt.Complete() {
		t.Fatal("构造结果未安排全部讲次")
	}
	if !tt.CheckHardConstraints() {
		t.Fatal("构造结果违反硬约束")
	}
}

func TestSolveEndToEnd(t *testing.T) {
	inst := buildTestInstance(t)
	for _, meta := range []string{"SA", "TS"} {
		t.Run(meta, func(t *testing.T) {
			rep, err := Solve(inst, defaultOptions(meta))
			if err != nil {
				t.Fatalf("求解失败: %v", err)
			}
			if len(rep.Placements) != len(inst.Lectures) {
				t.Fatalf("安排数 %d 与讲次数 %d 不符", len(rep.Placements), len(inst.Lectures))
			}
			if rep.Cost != rep.Breakdown.Total() {
				t.Fatalf("报告代价 %d 与分项和 %d 不符", rep.Cost, rep.Breakdown.Total())
			}
			if rep.Engine != meta {
				t.Fatalf("报告引擎 %q 与请求 %q 不符", rep.Engine, meta)
			}
			if rep.RunID == "" {
				t.Fatal("报告缺少运行ID")
			}
		})
	}
}

func TestSolveRepairInit(t *testing.T) {
	inst := buildTestInstance(t)
	opts := defaultOptions("SA")
	opts.Init = "random-repair"
	rep, err := Solve(inst, opts)
	if err != nil {
		t.Fatalf("修复构造入口求解失败: %v", err)
	}
	if rep.Builder != "random-repair" {
		t.Fatalf("报告构造器 %q 与请求不符", rep.Builder)
	}
}

func TestSolveRejectsUnknownEngine(t *testing.T) {
	inst := buildTestInstance(t)
	opts := defaultOptions("GA")
	if _, err := Solve(inst, opts); err == nil {
		t.Fatal("未知引擎应当报错")
	}
}

func TestSolveWritesProgressLog(t *testing.T) {
	inst := buildTestInstance(t)
	opts := defaultOptions("SA")
	opts.ProgressPath = filepath.Join(t.TempDir(), "progress.csv")

	if _, err := Solve(inst, opts); err != nil {
		t.Fatalf("求解失败: %v", err)
	}
	f, err := os.Open(opts.ProgressPath)
	if err != nil {
		t.Fatalf("进度日志未创建: %v", err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("进度日志不是合法 CSV: %v", err)
	}
	want := []string{"elapsed", "best_cost", "current_cost", "hard_ok", "accept_rate", "operator"}
	if len(rows) == 0 || len(rows[0]) != len(want) {
		t.Fatalf("进度日志表头异常: %v", rows)
	}
	for i, col := range want {
		if rows[0][i] != col {
			t.Fatalf("表头第 %d 列应为 %q, 实为 %q", i, col, rows[0][i])
		}
	}
}

package stats

import (
	"strings"
	"testing"

	"github.com/paike/paike/pkg/model"
	"github.com/paike/paike/pkg/scheduler/state"
)

func buildTestInstance(t *testing.T) *model.Instance {
	t.Helper()
	rooms := []model.Room{
		{ID: "r0001", Capacity: 30, Type: model.RoomLecture, Index: 0},
		{ID: "r0002", Capacity: 25, Type: model.RoomLecture, Index: 1},
	}
	courses := []model.Course{
		{ID: "c0001", Teacher: "t0001", Lectures: 2, MinWorkingDays: 2, Students: 25, Type: model.RoomLecture, Index: 0},
		{ID: "c0002", Teacher: "t0002", Lectures: 1, MinWorkingDays: 1, Students: 20, Type: model.RoomLecture, Index: 1},
	}
	inst, err := model.NewInstance("stats-test", 2, 3, rooms, courses, nil, nil, nil, model.BuildOptions{})
	if err != nil {
		t.Fatalf("构造实例失败: %v", err)
	}
	return inst
}

func TestAnalyze(t *testing.T) {
	inst := buildTestInstance(t)

	// c0001 两讲同天不相邻且分居两教室：连排 2 + 稳定 20 + 天数 5
	placements := []model.Placement{
		{CourseID: "c0001", RoomID: "r0001", Day: 0, Period: 0},
		{CourseID: "c0001", RoomID: "r0002", Day: 0, Period: 2},
		{CourseID: "c0002", RoomID: "r0001", Day: 1, Period: 1},
	}
	rep, err := Analyze(inst, placements, state.DefaultWeights())
	if err != nil {
		t.Fatalf("统计失败: %v", err)
	}
	if rep.Cost != rep.Breakdown.Total() {
		t.Fatalf("总代价 %d 与分项和 %d 不符", rep.Cost, rep.Breakdown.Total())
	}
	if len(rep.CourseStats) != 2 {
		t.Fatalf("课程统计条数 %d 应为 2", len(rep.CourseStats))
	}
	c1 := rep.CourseStats[0]
	if c1.CourseID != "c0001" {
		t.Fatalf("课程统计应按ID排序, 首条为 %s", c1.CourseID)
	}
	if c1.Consecutiveness != 2 {
		t.Fatalf("c0001 连排罚分应为 2, 实为 %d", c1.Consecutiveness)
	}
	if c1.Stability != 20 {
		t.Fatalf("c0001 稳定性罚分应为 20, 实为 %d", c1.Stability)
	}
	if c1.MWDPenalty != 5 {
		t.Fatalf("c0001 最少天数罚分应为 5, 实为 %d", c1.MWDPenalty)
	}
	if c1.ActiveDays != 1 {
		t.Fatalf("c0001 实际上课天数应为 1, 实为 %d", c1.ActiveDays)
	}
	if rep.PenalizedCourse != 1 {
		t.Fatalf("有罚分课程数应为 1, 实为 %d", rep.PenalizedCourse)
	}

	out := rep.Render()
	if !strings.Contains(out, "stats-test") || !strings.Contains(out, "c0001") {
		t.Fatalf("摘要缺少关键信息:\n%s", out)
	}
}

func TestAnalyzeRejectsUnknownIDs(t *testing.T) {
	inst := buildTestInstance(t)
	placements := []model.Placement{
		{CourseID: "c9999", RoomID: "r0001", Day: 0, Period: 0},
	}
	if _, err := Analyze(inst, placements, state.DefaultWeights()); err == nil {
		t.Fatal("未知课程ID应当报错")
	}
}

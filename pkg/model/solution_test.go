package model

import (
	"bytes"
	"strings"
	"testing"
)

func TestSolutionRoundTrip(t *testing.T) {
	placements := []Placement{
		{CourseID: "c0002", RoomID: "r0001", Day: 1, Period: 2},
		{CourseID: "c0001", RoomID: "r0002", Day: 0, Period: 1},
		{CourseID: "c0001", RoomID: "r0002", Day: 0, Period: 2},
	}

	var buf bytes.Buffer
	if err := WriteSolution(&buf, placements); err != nil {
		t.Fatalf("写出解失败: %v", err)
	}

	// 每行4个空白分隔字段，且按课程标识排序
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("期望 3 行，得到 %d", len(lines))
	}
	for _, l := range lines {
		if got := len(strings.Fields(l)); got != 4 {
			t.Errorf("每行应有 4 个字段，得到 %d: %q", got, l)
		}
	}
	if !strings.HasPrefix(lines[0], "c0001") || !strings.HasPrefix(lines[2], "c0002") {
		t.Errorf("输出应按课程标识排序: %v", lines)
	}

	back, err := ReadSolution(&buf)
	if err != nil {
		t.Fatalf("读回解失败: %v", err)
	}
	if len(back) != len(placements) {
		t.Fatalf("期望读回 %d 条，得到 %d", len(placements), len(back))
	}
	if back[0].CourseID != "c0001" || back[0].RoomID != "r0002" || back[0].Day != 0 || back[0].Period != 1 {
		t.Errorf("首条记录不符: %+v", back[0])
	}
}

func TestReadSolution_BadLine(t *testing.T) {
	_, err := ReadSolution(strings.NewReader("c0001 r0001 0\n"))
	if err == nil {
		t.Fatal("字段数不足应报错")
	}
}

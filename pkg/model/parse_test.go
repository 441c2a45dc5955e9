package model

import (
	"strings"
	"testing"

	"github.com/paike/paike/pkg/errors"
)

// sampleInstance 参考样例：2课程、2教室、2天、每天3节
const sampleInstance = `Name: Toy
Courses: 2
Rooms: 2
Days: 2
Periods_per_day: 3
Curricula: 1
Constraints: 1
Preferences: 1

COURSES:
c0001 t0001 2 2 30
c0002 t0002 2 2 35 LT projector

ROOMS:
r0001 40
r0002 35 LT projector

CURRICULA:
q0001 2 c0001 c0002

UNAVAILABILITY_CONSTRAINTS:
c0001 0 0

PREFERENCES:
t0001 1 0

END.
`

func TestParseInstance_Sample(t *testing.T) {
	inst, err := ParseInstance(strings.NewReader(sampleInstance), BuildOptions{})
	if err != nil {
		t.Fatalf("解析样例失败: %v", err)
	}

	if inst.Days != 2 || inst.PeriodsPerDay != 3 {
		t.Errorf("期望 2天×3节，得到 %d天×%d节", inst.Days, inst.PeriodsPerDay)
	}
	if len(inst.Courses) != 2 {
		t.Errorf("期望 2 门课程，得到 %d", len(inst.Courses))
	}
	if len(inst.Rooms) != 2 {
		t.Errorf("期望 2 间教室，得到 %d", len(inst.Rooms))
	}
	if len(inst.Curricula) != 1 {
		t.Errorf("期望 1 个课程体系，得到 %d", len(inst.Curricula))
	}
	if len(inst.Lectures) != 4 {
		t.Errorf("期望 4 个讲次，得到 %d", len(inst.Lectures))
	}

	// c0001 在 (0,0) 不可用：可行时段应为 5 个
	if got := len(inst.FeasiblePeriods[0]); got != 5 {
		t.Errorf("c0001 期望 5 个可行时段，得到 %d", got)
	}

	// t0001 声明了 (1,0) 偏好
	if !inst.TeacherHasPreference(inst.Courses[0].TeacherIndex) {
		t.Error("t0001 应声明偏好")
	}
	if !inst.CoursePreferred(0, inst.PeriodIndex(1, 0)) {
		t.Error("(1,0) 应在 t0001 偏好集内")
	}
	if inst.CoursePreferred(0, inst.PeriodIndex(0, 1)) {
		t.Error("(0,1) 不应在 t0001 偏好集内")
	}
	// t0002 未声明偏好：任何时段都视为满足
	if !inst.CoursePreferred(1, inst.PeriodIndex(0, 1)) {
		t.Error("未声明偏好的教师不应产生违反")
	}

	// 同一体系的两门课互相冲突
	if !inst.CourseConflict[0][1] || !inst.CourseConflict[1][0] {
		t.Error("c0001 与 c0002 同属 q0001，应互相冲突")
	}
}

func TestParseInstance_Errors(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(string) string
		code    errors.Code
		keyword string
	}{
		{
			name:   "缺少必填头字段",
			mutate: func(s string) string { return strings.Replace(s, "Days: 2\n", "", 1) },
			code:   errors.CodeInstanceFormat,
		},
		{
			name:   "课程数量与声明不符",
			mutate: func(s string) string { return strings.Replace(s, "Courses: 2", "Courses: 3", 1) },
			code:   errors.CodeInstanceFormat,
		},
		{
			name: "课程标识重复",
			mutate: func(s string) string {
				return strings.Replace(s, "c0002 t0002 2 2 35 LT projector", "c0001 t0002 2 2 35 LT projector", 1)
			},
			code: errors.CodeInstanceFormat,
		},
		{
			name: "课程体系引用未知课程",
			mutate: func(s string) string {
				return strings.Replace(s, "q0001 2 c0001 c0002", "q0001 2 c0001 c9999", 1)
			},
			code: errors.CodeInstanceFormat,
		},
		{
			name: "讲次数非正",
			mutate: func(s string) string {
				return strings.Replace(s, "c0001 t0001 2 2 30", "c0001 t0001 0 2 30", 1)
			},
			code: errors.CodeInstanceFormat,
		},
		{
			name:   "教室容量非正",
			mutate: func(s string) string { return strings.Replace(s, "r0001 40", "r0001 0", 1) },
			code:   errors.CodeInstanceFormat,
		},
		{
			name:   "不可用day越界",
			mutate: func(s string) string { return strings.Replace(s, "c0001 0 0", "c0001 2 0", 1) },
			code:   errors.CodeInstanceFormat,
		},
		{
			name:   "不可用period越界",
			mutate: func(s string) string { return strings.Replace(s, "c0001 0 0", "c0001 0 3", 1) },
			code:   errors.CodeInstanceFormat,
		},
		{
			name: "未知类型标记",
			mutate: func(s string) string {
				return strings.Replace(s, "c0002 t0002 2 2 35 LT projector", "c0002 t0002 2 2 35 XX projector", 1)
			},
			code: errors.CodeInstanceFormat,
		},
		{
			name: "偏好引用未知教师",
			mutate: func(s string) string {
				return strings.Replace(s, "t0001 1 0", "t9999 1 0", 1)
			},
			code: errors.CodeInstanceFormat,
		},
		{
			name:   "缺少END标记",
			mutate: func(s string) string { return strings.Replace(s, "END.\n", "", 1) },
			code:   errors.CodeInstanceFormat,
		},
		{
			name: "课程无可行时段",
			mutate: func(s string) string {
				s = strings.Replace(s, "Constraints: 1", "Constraints: 6", 1)
				return strings.Replace(s, "c0001 0 0",
					"c0001 0 0\nc0001 0 1\nc0001 0 2\nc0001 1 0\nc0001 1 1\nc0001 1 2", 1)
			},
			code: errors.CodeInfeasibleInstance,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseInstance(strings.NewReader(tc.mutate(sampleInstance)), BuildOptions{})
			if err == nil {
				t.Fatal("期望解析失败")
			}
			if got := errors.GetCode(err); got != tc.code {
				t.Errorf("期望错误码 %s，得到 %s (%v)", tc.code, got, err)
			}
		})
	}
}

func TestParseInstance_PreferencesSectionOptional(t *testing.T) {
	s := sampleInstance
	s = strings.Replace(s, "Preferences: 1\n", "", 1)
	s = strings.Replace(s, "PREFERENCES:\nt0001 1 0\n\n", "", 1)
	inst, err := ParseInstance(strings.NewReader(s), BuildOptions{})
	if err != nil {
		t.Fatalf("省略偏好区段应可解析: %v", err)
	}
	if inst.TeacherHasPreference(0) || inst.TeacherHasPreference(1) {
		t.Error("未声明偏好时所有教师都应视为无偏好")
	}
}

func TestParseInstance_EnforceRoomPerCourse(t *testing.T) {
	inst, err := ParseInstance(strings.NewReader(sampleInstance), BuildOptions{EnforceRoomPerCourse: true})
	if err != nil {
		t.Fatalf("解析失败: %v", err)
	}
	for ci := range inst.Courses {
		if len(inst.RoomPreference[ci]) != 1 {
			t.Errorf("课程 %s 应只保留一间指定教室，得到 %d 间", inst.Courses[ci].ID, len(inst.RoomPreference[ci]))
		}
	}
}

func TestRoomPreferenceOrdering(t *testing.T) {
	inst, err := ParseInstance(strings.NewReader(sampleInstance), BuildOptions{})
	if err != nil {
		t.Fatalf("解析失败: %v", err)
	}
	// c0001 30人：r0002(35) 比 r0001(40) 更贴合
	pref := inst.RoomPreference[0]
	if len(pref) != 2 || inst.Rooms[pref[0]].ID != "r0002" {
		t.Errorf("c0001 的首选教室应为 r0002，得到 %v", pref)
	}
	// c0002 要求 projector：只有 r0002 配备
	pref = inst.RoomPreference[1]
	if inst.Rooms[pref[0]].ID != "r0002" {
		t.Errorf("c0002 的首选教室应为 r0002，得到 %v", pref)
	}
}

package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"

	"github.com/paike/paike/pkg/errors"
	"github.com/paike/paike/pkg/model"
	"github.com/paike/paike/pkg/scheduler/solver"
)

func newMockDB(t *testing.T) (DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("创建 sqlmock 失败: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func expectMet(t *testing.T, mock sqlmock.Sqlmock) {
	t.Helper()
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("存在未满足的语句预期: %v", err)
	}
}

func TestInstanceRepositoryGetByName(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery("FROM instances").WithArgs("toy").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "days", "periods_per_day"}).
			AddRow(int64(1), "toy", 2, 3))
	// 数组列按 postgres 字面量喂给 pq.Array
	mock.ExpectQuery("FROM rooms").WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"room_id", "capacity", "room_type", "equipment"}).
			AddRow("r0001", 30, "LT", []byte("{projector}")).
			AddRow("r0002", 20, "TH", []byte("{}")))
	mock.ExpectQuery("FROM courses").WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"course_id", "teacher", "lectures", "min_working_days", "students", "course_type", "equipment"}).
			AddRow("c0001", "t0001", 2, 1, 25, "LT", []byte("{}")).
			AddRow("c0002", "t0002", 2, 1, 15, "TH", []byte("{}")))
	mock.ExpectQuery("FROM curricula").WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"curriculum_id", "array_agg"}).
			AddRow("q0001", []byte("{c0001,c0002}")))
	mock.ExpectQuery("FROM unavailability").WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"course_id", "day", "period"}).
			AddRow("c0001", 0, 0))
	mock.ExpectQuery("FROM preferences").WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"teacher", "day", "period"}).
			AddRow("t0002", 1, 0))
	repo := NewInstanceRepository(db)

	inst, err := repo.GetByName(context.Background(), "toy", model.BuildOptions{})
	if err != nil {
		t.Fatalf("物化实例失败: %v", err)
	}
	if inst.Name != "toy" || inst.Days != 2 || inst.PeriodsPerDay != 3 {
		t.Fatalf("实例主表字段错误: %s %d×%d", inst.Name, inst.Days, inst.PeriodsPerDay)
	}
	if len(inst.Rooms) != 2 || inst.Rooms[1].Type != model.RoomPractical {
		t.Fatalf("教室未按录入顺序物化: %+v", inst.Rooms)
	}
	if len(inst.Rooms[0].Equipment) != 1 || inst.Rooms[0].Equipment[0] != "projector" {
		t.Fatalf("设备数组解析错误: %v", inst.Rooms[0].Equipment)
	}
	if got := inst.Curricula[0].Courses; len(got) != 2 || got[0] != 0 || got[1] != 1 {
		t.Fatalf("体系成员未解析为课程索引: %v", got)
	}
	if !inst.Unavailable[0][inst.PeriodIndex(0, 0)] {
		t.Fatal("禁用时段丢失")
	}
	if !inst.TeacherPreferred[1][inst.PeriodIndex(1, 0)] {
		t.Fatal("教师偏好未按首次出现顺序编号")
	}
	expectMet(t, mock)
}

func TestInstanceRepositoryNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery("FROM instances").WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "days", "periods_per_day"}))
	repo := NewInstanceRepository(db)

	_, err := repo.GetByName(context.Background(), "missing", model.BuildOptions{})
	if !errors.Is(err, errors.CodeNotFound) {
		t.Fatalf("期望 NotFound，得到 %v", err)
	}
	expectMet(t, mock)
}

func TestInstanceRepositoryBadRoomType(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery("FROM instances").WithArgs("toy").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "days", "periods_per_day"}).
			AddRow(int64(1), "toy", 2, 3))
	mock.ExpectQuery("FROM rooms").WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"room_id", "capacity", "room_type", "equipment"}).
			AddRow("r0001", 30, "XX", []byte("{}")))
	repo := NewInstanceRepository(db)

	_, err := repo.GetByName(context.Background(), "toy", model.BuildOptions{})
	if !errors.Is(err, errors.CodeDatabaseError) {
		t.Fatalf("期望 DatabaseError，得到 %v", err)
	}
}

func TestSolutionRepositorySaveReport(t *testing.T) {
	db, mock := newMockDB(t)
	runID := uuid.New()
	mock.ExpectExec("INSERT INTO solver_runs").
		WithArgs(runID, "toy", "greedy-cprop", "SA", 7, 0, int64(250), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO placements").
		WithArgs(runID, "c0001", "r0001", 0, 1).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO placements").
		WithArgs(runID, "c0002", "r0002", 1, 0).
		WillReturnResult(sqlmock.NewResult(1, 1))
	repo := NewSolutionRepository(db)

	rep := &solver.Report{
		RunID:    runID.String(),
		Instance: "toy",
		Builder:  "greedy-cprop",
		Engine:   "SA",
		Cost:     7,
		Placements: []model.Placement{
			{CourseID: "c0001", RoomID: "r0001", Day: 0, Period: 1},
			{CourseID: "c0002", RoomID: "r0002", Day: 1, Period: 0},
		},
		Duration: 250 * time.Millisecond,
	}
	if err := repo.SaveReport(context.Background(), rep); err != nil {
		t.Fatalf("持久化运行记录失败: %v", err)
	}
	expectMet(t, mock)
}

func TestSolutionRepositorySaveReportBadRunID(t *testing.T) {
	db, _ := newMockDB(t)
	repo := NewSolutionRepository(db)

	err := repo.SaveReport(context.Background(), &solver.Report{RunID: "not-a-uuid"})
	if !errors.Is(err, errors.CodeInvalidInput) {
		t.Fatalf("期望 InvalidInput，得到 %v", err)
	}
}

func TestSolutionRepositoryGetPlacements(t *testing.T) {
	db, mock := newMockDB(t)
	runID := uuid.New()
	mock.ExpectQuery("FROM placements").WithArgs(runID).
		WillReturnRows(sqlmock.NewRows([]string{"course_id", "room_id", "day", "period"}).
			AddRow("c0001", "r0001", 0, 1).
			AddRow("c0001", "r0001", 1, 2))
	repo := NewSolutionRepository(db)

	got, err := repo.GetPlacements(context.Background(), runID)
	if err != nil {
		t.Fatalf("读取安排失败: %v", err)
	}
	if len(got) != 2 || got[0].Period != 1 || got[1].Day != 1 {
		t.Fatalf("安排记录解析错误: %+v", got)
	}
	expectMet(t, mock)
}

func TestSolutionRepositoryGetLatestRun(t *testing.T) {
	db, mock := newMockDB(t)
	runID := uuid.New()
	mock.ExpectQuery("FROM solver_runs").WithArgs("toy").
		WillReturnRows(sqlmock.NewRows([]string{"id", "cost"}).AddRow(runID.String(), 12))
	mock.ExpectQuery("FROM solver_runs").WithArgs("empty").
		WillReturnRows(sqlmock.NewRows([]string{"id", "cost"}))
	repo := NewSolutionRepository(db)

	gotID, cost, err := repo.GetLatestRun(context.Background(), "toy")
	if err != nil {
		t.Fatalf("查询最近运行失败: %v", err)
	}
	if gotID != runID || cost != 12 {
		t.Fatalf("运行记录错误: %s cost=%d", gotID, cost)
	}

	if _, _, err := repo.GetLatestRun(context.Background(), "empty"); !errors.Is(err, errors.CodeNotFound) {
		t.Fatalf("期望 NotFound，得到 %v", err)
	}
	expectMet(t, mock)
}

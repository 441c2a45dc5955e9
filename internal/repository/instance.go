// Package repository 提供数据访问层
package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/paike/paike/pkg/errors"
	"github.com/paike/paike/pkg/model"
)

// InstanceRepository 课表实例仓储。从持久化的课程、教室、
// 体系与约束记录物化一份 model.Instance。
type InstanceRepository struct {
	db DB
}

// NewInstanceRepository 创建实例仓储
func NewInstanceRepository(db DB) *InstanceRepository {
	return &InstanceRepository{db: db}
}

// instanceRow 实例主表行
type instanceRow struct {
	id            int64
	name          string
	days          int
	periodsPerDay int
}

// GetByName 按名称物化完整实例。课程与教室按持久化时的
// position 排序，保证索引与录入顺序一致。
func (r *InstanceRepository) GetByName(ctx context.Context, name string, opts model.BuildOptions) (*model.Instance, error) {
	var row instanceRow
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, days, periods_per_day FROM instances WHERE name = $1`, name,
	).Scan(&row.id, &row.name, &row.days, &row.periodsPerDay)
	if err == sql.ErrNoRows {
		return nil, errors.New(errors.CodeNotFound, fmt.Sprintf("实例 %s 不存在", name))
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeDatabaseError, "查询实例失败")
	}

	rooms, err := r.loadRooms(ctx, row.id)
	if err != nil {
		return nil, err
	}
	courses, courseIndex, err := r.loadCourses(ctx, row.id)
	if err != nil {
		return nil, err
	}
	curricula, err := r.loadCurricula(ctx, row.id, courseIndex)
	if err != nil {
		return nil, err
	}
	unavail, err := r.loadUnavailability(ctx, row.id, courseIndex)
	if err != nil {
		return nil, err
	}
	prefs, err := r.loadPreferences(ctx, row.id, courses)
	if err != nil {
		return nil, err
	}

	return model.NewInstance(row.name, row.days, row.periodsPerDay,
		rooms, courses, curricula, unavail, prefs, opts)
}

func (r *InstanceRepository) loadRooms(ctx context.Context, instID int64) ([]model.Room, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT room_id, capacity, room_type, equipment
		 FROM rooms WHERE instance_id = $1 ORDER BY position`, instID)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeDatabaseError, "查询教室失败")
	}
	defer rows.Close()

	var out []model.Room
	for rows.Next() {
		var room model.Room
		var typ string
		if err := rows.Scan(&room.ID, &room.Capacity, &typ, pq.Array(&room.Equipment)); err != nil {
			return nil, errors.Wrap(err, errors.CodeDatabaseError, "读取教室记录失败")
		}
		var ok bool
		if room.Type, ok = model.ParseRoomType(typ); !ok {
			return nil, errors.New(errors.CodeDatabaseError, fmt.Sprintf("教室 %s 的类型 %q 非法", room.ID, typ))
		}
		room.Index = len(out)
		out = append(out, room)
	}
	return out, rows.Err()
}

func (r *InstanceRepository) loadCourses(ctx context.Context, instID int64) ([]model.Course, map[string]int, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT course_id, teacher, lectures, min_working_days, students, course_type, equipment
		 FROM courses WHERE instance_id = $1 ORDER BY position`, instID)
	if err != nil {
		return nil, nil, errors.Wrap(err, errors.CodeDatabaseError, "查询课程失败")
	}
	defer rows.Close()

	var out []model.Course
	index := make(map[string]int)
	for rows.Next() {
		var c model.Course
		var typ string
		if err := rows.Scan(&c.ID, &c.Teacher, &c.Lectures, &c.MinWorkingDays,
			&c.Students, &typ, pq.Array(&c.Equipment)); err != nil {
			return nil, nil, errors.Wrap(err, errors.CodeDatabaseError, "读取课程记录失败")
		}
		var ok bool
		if c.Type, ok = model.ParseRoomType(typ); !ok {
			return nil, nil, errors.New(errors.CodeDatabaseError, fmt.Sprintf("课程 %s 的类型 %q 非法", c.ID, typ))
		}
		c.Index = len(out)
		index[c.ID] = c.Index
		out = append(out, c)
	}
	return out, index, rows.Err()
}

func (r *InstanceRepository) loadCurricula(ctx context.Context, instID int64, courseIndex map[string]int) ([]model.Curriculum, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT c.curriculum_id, array_agg(m.course_id ORDER BY m.position)
		 FROM curricula c JOIN curriculum_courses m ON m.curriculum_pk = c.id
		 WHERE c.instance_id = $1 GROUP BY c.id ORDER BY c.position`, instID)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeDatabaseError, "查询课程体系失败")
	}
	defer rows.Close()

	var out []model.Curriculum
	for rows.Next() {
		var q model.Curriculum
		var members []string
		if err := rows.Scan(&q.ID, pq.Array(&members)); err != nil {
			return nil, errors.Wrap(err, errors.CodeDatabaseError, "读取课程体系失败")
		}
		for _, cid := range members {
			ci, ok := courseIndex[cid]
			if !ok {
				return nil, errors.New(errors.CodeDatabaseError,
					fmt.Sprintf("体系 %s 引用未知课程 %s", q.ID, cid))
			}
			q.Courses = append(q.Courses, ci)
		}
		q.Index = len(out)
		out = append(out, q)
	}
	return out, rows.Err()
}

func (r *InstanceRepository) loadUnavailability(ctx context.Context, instID int64, courseIndex map[string]int) ([]model.Unavailability, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT course_id, day, period FROM unavailability WHERE instance_id = $1`, instID)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeDatabaseError, "查询禁用时段失败")
	}
	defer rows.Close()

	var out []model.Unavailability
	for rows.Next() {
		var cid string
		var u model.Unavailability
		if err := rows.Scan(&cid, &u.Day, &u.Period); err != nil {
			return nil, errors.Wrap(err, errors.CodeDatabaseError, "读取禁用时段失败")
		}
		ci, ok := courseIndex[cid]
		if !ok {
			return nil, errors.New(errors.CodeDatabaseError,
				fmt.Sprintf("禁用时段引用未知课程 %s", cid))
		}
		u.Course = ci
		out = append(out, u)
	}
	return out, rows.Err()
}

// loadPreferences 教师偏好。教师索引与 model.NewInstance 的
// 约定一致：按课程首次出现的顺序编号。
func (r *InstanceRepository) loadPreferences(ctx context.Context, instID int64, courses []model.Course) ([]model.Preference, error) {
	teacherIndex := make(map[string]int)
	for _, c := range courses {
		if _, ok := teacherIndex[c.Teacher]; !ok {
			teacherIndex[c.Teacher] = len(teacherIndex)
		}
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT teacher, day, period FROM preferences WHERE instance_id = $1`, instID)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeDatabaseError, "查询教师偏好失败")
	}
	defer rows.Close()

	var out []model.Preference
	for rows.Next() {
		var teacher string
		var p model.Preference
		if err := rows.Scan(&teacher, &p.Day, &p.Period); err != nil {
			return nil, errors.Wrap(err, errors.CodeDatabaseError, "读取教师偏好失败")
		}
		ti, ok := teacherIndex[teacher]
		if !ok {
			return nil, errors.New(errors.CodeDatabaseError,
				fmt.Sprintf("偏好引用未知教师 %s", teacher))
		}
		p.Teacher = ti
		out = append(out, p)
	}
	return out, rows.Err()
}

package model

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/paike/paike/pkg/errors"
)

// 实例文本格式的区段标记
const (
	sectionCourses        = "COURSES:"
	sectionRooms          = "ROOMS:"
	sectionCurricula      = "CURRICULA:"
	sectionUnavailability = "UNAVAILABILITY_CONSTRAINTS:"
	sectionPreferences    = "PREFERENCES:"
	sectionEnd            = "END."
)

// 必填头字段
var requiredHeaders = []string{"Name", "Courses", "Rooms", "Days", "Periods_per_day", "Curricula", "Constraints"}

// line 带行号的输入行
type line struct {
	no   int
	text string
}

// ParseInstanceFile 从文件解析问题实例
func ParseInstanceFile(path string, opts BuildOptions) (*Instance, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInstanceFormat, "无法打开实例文件")
	}
	defer f.Close()
	return ParseInstance(f, opts)
}

// ParseInstance 解析竞赛文本格式的问题实例
// 头字段缺失、计数不符、标识重复、引用未知、数值越界均返回
// InstanceFormat 错误并给出行号
func ParseInstance(r io.Reader, opts BuildOptions) (*Instance, error) {
	var lines []line
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	no := 0
	for scanner.Scan() {
		no++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		lines = append(lines, line{no: no, text: text})
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, errors.CodeInstanceFormat, "读取实例失败")
	}

	p := &instanceParser{lines: lines}
	return p.parse(opts)
}

// instanceParser 逐行解析器
type instanceParser struct {
	lines []line
	pos   int

	headers    map[string]string
	headerLine map[string]int
}

// peek 返回当前行，越过末尾时 ok 为假
func (p *instanceParser) peek() (line, bool) {
	if p.pos >= len(p.lines) {
		return line{}, false
	}
	return p.lines[p.pos], true
}

func (p *instanceParser) next() (line, bool) {
	l, ok := p.peek()
	if ok {
		p.pos++
	}
	return l, ok
}

// isSection 判断是否为区段标记行
func isSection(text string) bool {
	switch text {
	case sectionCourses, sectionRooms, sectionCurricula, sectionUnavailability, sectionPreferences, sectionEnd:
		return true
	}
	return false
}

func (p *instanceParser) parse(opts BuildOptions) (*Instance, error) {
	if err := p.parseHeader(); err != nil {
		return nil, err
	}

	name := p.headers["Name"]
	days, err := p.headerInt("Days", 1)
	if err != nil {
		return nil, err
	}
	periodsPerDay, err := p.headerInt("Periods_per_day", 1)
	if err != nil {
		return nil, err
	}
	courseCount, err := p.headerInt("Courses", 0)
	if err != nil {
		return nil, err
	}
	roomCount, err := p.headerInt("Rooms", 0)
	if err != nil {
		return nil, err
	}
	curriculumCount, err := p.headerInt("Curricula", 0)
	if err != nil {
		return nil, err
	}
	constraintCount, err := p.headerInt("Constraints", 0)
	if err != nil {
		return nil, err
	}
	preferenceCount := 0
	if _, ok := p.headers["Preferences"]; ok {
		preferenceCount, err = p.headerInt("Preferences", 0)
		if err != nil {
			return nil, err
		}
	}

	courses, courseIndex, err := p.parseCourses(courseCount)
	if err != nil {
		return nil, err
	}
	rooms, err := p.parseRooms(roomCount)
	if err != nil {
		return nil, err
	}

	curricula, err := p.parseCurricula(curriculumCount, courseIndex)
	if err != nil {
		return nil, err
	}

	unavail, err := p.parseUnavailability(constraintCount, courseIndex, days, periodsPerDay)
	if err != nil {
		return nil, err
	}

	// 偏好区段可省略，但声明了数量时必须出现
	teacherIndex := make(map[string]int)
	for i := range courses {
		if _, ok := teacherIndex[courses[i].Teacher]; !ok {
			teacherIndex[courses[i].Teacher] = len(teacherIndex)
		}
	}
	prefs, err := p.parsePreferences(preferenceCount, teacherIndex, days, periodsPerDay)
	if err != nil {
		return nil, err
	}

	if err := p.expectSection(sectionEnd); err != nil {
		return nil, err
	}

	return NewInstance(name, days, periodsPerDay, rooms, courses, curricula, unavail, prefs, opts)
}

// parseHeader 解析 key: value 头部块，直到首个区段标记
func (p *instanceParser) parseHeader() error {
	p.headers = make(map[string]string)
	p.headerLine = make(map[string]int)
	for {
		l, ok := p.peek()
		if !ok || isSection(l.text) {
			break
		}
		p.pos++
		key, value, found := strings.Cut(l.text, ":")
		if !found {
			return errors.InstanceFormat(l.no, fmt.Sprintf("期望 'key: value' 头字段，得到 %q", l.text))
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		if _, dup := p.headers[key]; dup {
			return errors.InstanceFormat(l.no, fmt.Sprintf("头字段 %q 重复", key))
		}
		p.headers[key] = value
		p.headerLine[key] = l.no
	}
	for _, key := range requiredHeaders {
		if _, ok := p.headers[key]; !ok {
			return errors.InstanceFormat(0, fmt.Sprintf("缺少必填头字段 %q", key))
		}
	}
	return nil
}

// headerInt 读取整数头字段并校验下界
func (p *instanceParser) headerInt(key string, min int) (int, error) {
	v, err := strconv.Atoi(p.headers[key])
	if err != nil {
		return 0, errors.InstanceFormat(p.headerLine[key], fmt.Sprintf("头字段 %q 不是整数: %q", key, p.headers[key]))
	}
	if v < min {
		return 0, errors.InstanceFormat(p.headerLine[key], fmt.Sprintf("头字段 %q 必须 >= %d，得到 %d", key, min, v))
	}
	return v, nil
}

// expectSection 消费给定的区段标记行
func (p *instanceParser) expectSection(marker string) error {
	l, ok := p.next()
	if !ok {
		return errors.InstanceFormat(0, fmt.Sprintf("文件提前结束，期望区段 %q", marker))
	}
	if l.text != marker {
		return errors.InstanceFormat(l.no, fmt.Sprintf("期望区段 %q，得到 %q", marker, l.text))
	}
	return nil
}

// sectionLines 读取区段内所有记录行并校验与声明数量一致
func (p *instanceParser) sectionLines(marker string, declared int) ([]line, error) {
	if err := p.expectSection(marker); err != nil {
		return nil, err
	}
	var records []line
	for {
		l, ok := p.peek()
		if !ok || isSection(l.text) {
			break
		}
		p.pos++
		records = append(records, l)
	}
	if len(records) != declared {
		return nil, errors.InstanceFormat(0, fmt.Sprintf("区段 %s 声明 %d 条记录，实际 %d 条", marker, declared, len(records)))
	}
	return records, nil
}

func (p *instanceParser) parseCourses(count int) ([]Course, map[string]int, error) {
	records, err := p.sectionLines(sectionCourses, count)
	if err != nil {
		return nil, nil, err
	}
	courses := make([]Course, 0, count)
	index := make(map[string]int, count)
	for _, l := range records {
		fields := strings.Fields(l.text)
		if len(fields) < 5 {
			return nil, nil, errors.InstanceFormat(l.no, "课程记录至少需要 5 个字段: id teacher lectures min_working_days students")
		}
		id := fields[0]
		if _, dup := index[id]; dup {
			return nil, nil, errors.InstanceFormat(l.no, fmt.Sprintf("课程标识 %q 重复", id))
		}
		lectures, err := atoiField(l, "lectures", fields[2])
		if err != nil {
			return nil, nil, err
		}
		if lectures <= 0 {
			return nil, nil, errors.InstanceFormat(l.no, fmt.Sprintf("课程 %q 的讲次数必须 > 0，得到 %d", id, lectures))
		}
		minDays, err := atoiField(l, "min_working_days", fields[3])
		if err != nil {
			return nil, nil, err
		}
		students, err := atoiField(l, "students", fields[4])
		if err != nil {
			return nil, nil, err
		}
		courseType := RoomLecture
		var equipment []string
		if len(fields) > 5 {
			t, ok := ParseRoomType(fields[5])
			if !ok {
				return nil, nil, errors.InstanceFormat(l.no, fmt.Sprintf("未知课程类型标记 %q", fields[5]))
			}
			courseType = t
			equipment = fields[6:]
		}
		index[id] = len(courses)
		courses = append(courses, Course{
			ID:             id,
			Teacher:        fields[1],
			Lectures:       lectures,
			MinWorkingDays: minDays,
			Students:       students,
			Type:           courseType,
			Equipment:      equipment,
			Index:          len(courses),
		})
	}
	return courses, index, nil
}

func (p *instanceParser) parseRooms(count int) ([]Room, error) {
	records, err := p.sectionLines(sectionRooms, count)
	if err != nil {
		return nil, err
	}
	rooms := make([]Room, 0, count)
	index := make(map[string]int, count)
	for _, l := range records {
		fields := strings.Fields(l.text)
		if len(fields) < 2 {
			return nil, errors.InstanceFormat(l.no, "教室记录至少需要 2 个字段: id capacity")
		}
		id := fields[0]
		if _, dup := index[id]; dup {
			return nil, errors.InstanceFormat(l.no, fmt.Sprintf("教室标识 %q 重复", id))
		}
		capacity, err := atoiField(l, "capacity", fields[1])
		if err != nil {
			return nil, err
		}
		if capacity <= 0 {
			return nil, errors.InstanceFormat(l.no, fmt.Sprintf("教室 %q 的容量必须 > 0，得到 %d", id, capacity))
		}
		roomType := RoomLecture
		var equipment []string
		if len(fields) > 2 {
			t, ok := ParseRoomType(fields[2])
			if !ok {
				return nil, errors.InstanceFormat(l.no, fmt.Sprintf("未知教室类型标记 %q", fields[2]))
			}
			roomType = t
			equipment = fields[3:]
		}
		index[id] = len(rooms)
		rooms = append(rooms, Room{
			ID:        id,
			Capacity:  capacity,
			Type:      roomType,
			Equipment: equipment,
			Index:     len(rooms),
		})
	}
	return rooms, nil
}

func (p *instanceParser) parseCurricula(count int, courseIndex map[string]int) ([]Curriculum, error) {
	records, err := p.sectionLines(sectionCurricula, count)
	if err != nil {
		return nil, err
	}
	curricula := make([]Curriculum, 0, count)
	seen := make(map[string]bool, count)
	for _, l := range records {
		fields := strings.Fields(l.text)
		if len(fields) < 2 {
			return nil, errors.InstanceFormat(l.no, "课程体系记录至少需要 2 个字段: id member_count")
		}
		id := fields[0]
		if seen[id] {
			return nil, errors.InstanceFormat(l.no, fmt.Sprintf("课程体系标识 %q 重复", id))
		}
		seen[id] = true
		memberCount, err := atoiField(l, "member_count", fields[1])
		if err != nil {
			return nil, err
		}
		members := fields[2:]
		if len(members) != memberCount {
			return nil, errors.InstanceFormat(l.no, fmt.Sprintf("课程体系 %q 声明 %d 门课程，实际 %d 门", id, memberCount, len(members)))
		}
		q := Curriculum{ID: id, Index: len(curricula)}
		for _, cid := range members {
			ci, ok := courseIndex[cid]
			if !ok {
				return nil, errors.InstanceFormat(l.no, fmt.Sprintf("课程体系 %q 引用未知课程 %q", id, cid))
			}
			q.Courses = append(q.Courses, ci)
		}
		curricula = append(curricula, q)
	}
	return curricula, nil
}

func (p *instanceParser) parseUnavailability(count int, courseIndex map[string]int, days, periodsPerDay int) ([]Unavailability, error) {
	records, err := p.sectionLines(sectionUnavailability, count)
	if err != nil {
		return nil, err
	}
	unavail := make([]Unavailability, 0, count)
	for _, l := range records {
		fields := strings.Fields(l.text)
		if len(fields) != 3 {
			return nil, errors.InstanceFormat(l.no, "不可用记录需要 3 个字段: course_id day period")
		}
		ci, ok := courseIndex[fields[0]]
		if !ok {
			return nil, errors.InstanceFormat(l.no, fmt.Sprintf("不可用记录引用未知课程 %q", fields[0]))
		}
		day, period, err := p.parseDayPeriod(l, fields[1], fields[2], days, periodsPerDay)
		if err != nil {
			return nil, err
		}
		unavail = append(unavail, Unavailability{Course: ci, Day: day, Period: period})
	}
	return unavail, nil
}

func (p *instanceParser) parsePreferences(count int, teacherIndex map[string]int, days, periodsPerDay int) ([]Preference, error) {
	// 数量为0且区段缺席时直接跳过
	if count == 0 {
		if l, ok := p.peek(); !ok || l.text != sectionPreferences {
			return nil, nil
		}
	}
	records, err := p.sectionLines(sectionPreferences, count)
	if err != nil {
		return nil, err
	}
	prefs := make([]Preference, 0, count)
	for _, l := range records {
		fields := strings.Fields(l.text)
		if len(fields) != 3 {
			return nil, errors.InstanceFormat(l.no, "偏好记录需要 3 个字段: teacher_id day period")
		}
		ti, ok := teacherIndex[fields[0]]
		if !ok {
			return nil, errors.InstanceFormat(l.no, fmt.Sprintf("偏好记录引用未知教师 %q", fields[0]))
		}
		day, period, err := p.parseDayPeriod(l, fields[1], fields[2], days, periodsPerDay)
		if err != nil {
			return nil, err
		}
		prefs = append(prefs, Preference{Teacher: ti, Day: day, Period: period})
	}
	return prefs, nil
}

// parseDayPeriod 解析并校验 day/period 取值范围
func (p *instanceParser) parseDayPeriod(l line, dayField, periodField string, days, periodsPerDay int) (int, int, error) {
	day, err := atoiField(l, "day", dayField)
	if err != nil {
		return 0, 0, err
	}
	if day < 0 || day >= days {
		return 0, 0, errors.InstanceFormat(l.no, fmt.Sprintf("day 必须在 [0,%d) 内，得到 %d", days, day))
	}
	period, err := atoiField(l, "period", periodField)
	if err != nil {
		return 0, 0, err
	}
	if period < 0 || period >= periodsPerDay {
		return 0, 0, errors.InstanceFormat(l.no, fmt.Sprintf("period 必须在 [0,%d) 内，得到 %d", periodsPerDay, period))
	}
	return day, period, nil
}

// atoiField 解析整数字段
func atoiField(l line, name, value string) (int, error) {
	v, err := strconv.Atoi(value)
	if err != nil {
		return 0, errors.InstanceFormat(l.no, fmt.Sprintf("字段 %s 不是整数: %q", name, value))
	}
	return v, nil
}

// Package model 定义排课引擎的核心数据模型
package model

// RoomType 教室类型
type RoomType string

const (
	RoomLecture   RoomType = "LT" // 理论教室
	RoomPractical RoomType = "TH" // 实训教室
)

// ParseRoomType 解析教室类型标记
func ParseRoomType(token string) (RoomType, bool) {
	switch token {
	case "LT":
		return RoomLecture, true
	case "TH":
		return RoomPractical, true
	default:
		return "", false
	}
}

// Room 教室
// Index 为稳定的稠密索引，装载后不再变化
type Room struct {
	ID        string   `json:"id"`
	Capacity  int      `json:"capacity"`
	Type      RoomType `json:"type"`
	Equipment []string `json:"equipment,omitempty"`
	Index     int      `json:"index"`
}

// Course 课程
type Course struct {
	ID             string   `json:"id"`
	Teacher        string   `json:"teacher"`
	Lectures       int      `json:"lectures"`         // 每周讲次数
	MinWorkingDays int      `json:"min_working_days"` // 最少授课天数
	Students       int      `json:"students"`
	Type           RoomType `json:"type"`
	Equipment      []string `json:"equipment,omitempty"`
	Index          int      `json:"index"`
	TeacherIndex   int      `json:"teacher_index"`
}

// Curriculum 课程体系（互斥组：同一体系的课程讲次不得同时段）
type Curriculum struct {
	ID      string `json:"id"`
	Courses []int  `json:"courses"` // 成员课程索引
	Index   int    `json:"index"`
}

// Lecture 讲次：课程每周一次的授课，调度的基本单元
type Lecture struct {
	ID      string `json:"id"`
	Course  int    `json:"course"`  // 所属课程索引
	Ordinal int    `json:"ordinal"` // 课程内序号
	Index   int    `json:"index"`
}

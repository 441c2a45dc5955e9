package model

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/paike/paike/pkg/errors"
)

// Placement 单个讲次的最终安排
type Placement struct {
	CourseID string `json:"course_id"`
	RoomID   string `json:"room_id"`
	Day      int    `json:"day"`
	Period   int    `json:"period"`
}

// WriteSolution 输出解文件：每讲次一行 `course_id room_id day period`，
// 按课程标识排序
func WriteSolution(w io.Writer, placements []Placement) error {
	sorted := make([]Placement, len(placements))
	copy(sorted, placements)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CourseID < sorted[j].CourseID
	})

	bw := bufio.NewWriter(w)
	for _, pl := range sorted {
		if _, err := fmt.Fprintf(bw, "%s %s %d %d\n", pl.CourseID, pl.RoomID, pl.Day, pl.Period); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// WriteSolutionFile 输出解到文件
func WriteSolutionFile(path string, placements []Placement) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return WriteSolution(f, placements)
}

// ReadSolution 读取解文件
func ReadSolution(r io.Reader) ([]Placement, error) {
	var placements []Placement
	scanner := bufio.NewScanner(r)
	no := 0
	for scanner.Scan() {
		no++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		fields := strings.Fields(text)
		if len(fields) != 4 {
			return nil, errors.InstanceFormat(no, fmt.Sprintf("解记录需要 4 个字段，得到 %d 个", len(fields)))
		}
		l := line{no: no, text: text}
		day, err := atoiField(l, "day", fields[2])
		if err != nil {
			return nil, err
		}
		period, err := atoiField(l, "period", fields[3])
		if err != nil {
			return nil, err
		}
		placements = append(placements, Placement{
			CourseID: fields[0],
			RoomID:   fields[1],
			Day:      day,
			Period:   period,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return placements, nil
}

// ReadSolutionFile 从文件读取解
func ReadSolutionFile(path string) ([]Placement, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadSolution(f)
}

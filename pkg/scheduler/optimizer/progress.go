// Package optimizer 提供课表局部搜索优化算法
package optimizer

import (
	"encoding/csv"
	"os"
	"strconv"
	"time"

	"github.com/paike/paike/pkg/errors"
)

// reportInterval 搜索进度上报的最小间隔
const reportInterval = 2 * time.Second

// ProgressWriter 把搜索轨迹写成 CSV，便于事后绘制收敛曲线
type ProgressWriter struct {
	f     *os.File
	w     *csv.Writer
	start time.Time
}

// NewProgressWriter 创建进度记录器并写入表头
func NewProgressWriter(path string) (*ProgressWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInvalidInput, "无法创建进度日志文件")
	}
	w := csv.NewWriter(f)
	header := []string{"elapsed", "best_cost", "current_cost", "hard_ok", "accept_rate", "operator"}
	if err := w.Write(header); err != nil {
		f.Close()
		return nil, errors.Wrap(err, errors.CodeInternal, "写入进度日志表头失败")
	}
	return &ProgressWriter{f: f, w: w, start: time.Now()}, nil
}

// Record 追加一行搜索进度
func (p *ProgressWriter) Record(best, current int, hardOK bool, acceptRate float64, operator string) {
	if p == nil {
		return
	}
	elapsed := time.Since(p.start)
	row := []string{
		strconv.FormatFloat(elapsed.Seconds(), 'f', 3, 64),
		strconv.Itoa(best),
		strconv.Itoa(current),
		strconv.FormatBool(hardOK),
		strconv.FormatFloat(acceptRate, 'f', 4, 64),
		operator,
	}
	_ = p.w.Write(row)
}

// Close 刷新缓冲并关闭文件
func (p *ProgressWriter) Close() error {
	if p == nil {
		return nil
	}
	p.w.Flush()
	if err := p.w.Error(); err != nil {
		p.f.Close()
		return errors.Wrap(err, errors.CodeInternal, "刷新进度日志失败")
	}
	return p.f.Close()
}

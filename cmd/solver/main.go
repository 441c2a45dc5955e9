// PaiKe 排课引擎
// 命令行求解器入口

package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/paike/paike/internal/config"
	"github.com/paike/paike/pkg/errors"
	"github.com/paike/paike/pkg/logger"
	"github.com/paike/paike/pkg/model"
	"github.com/paike/paike/pkg/scheduler/solver"
	"github.com/paike/paike/pkg/stats"
)

// 构建信息（通过 ldflags 注入）
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	var (
		instancePath  = flag.String("instance", "", "实例文件路径 (必填)")
		outPath       = flag.String("out", "solution.sol", "解文件输出路径")
		seed          = flag.Int64("seed", 0, "随机种子，0 表示取当前时间")
		timeLimit     = flag.Float64("time_limit", 0, "总时间预算（秒），0 表示用配置默认值")
		meta          = flag.String("meta", "", "元启发式引擎 (SA/TS)，默认用配置值")
		initBuilder   = flag.String("init", "greedy-cprop", "初始解构造器 (greedy-cprop/random-repair)")
		logPath       = flag.String("log", "", "CSV 搜索进度日志路径")
		dryRunParse   = flag.Bool("dry_run_parse", false, "只解析实例并打印概况，不求解")
		roomPerCourse = flag.Bool("enforce_room_per_course", false, "每门课程限定使用其首选教室")
	)
	flag.Parse()

	logger.Init(logger.Config{
		Level:  os.Getenv("APP_LOG_LEVEL"),
		Format: "console",
	})

	fmt.Fprintf(os.Stderr, "PaiKe 排课引擎 v%s\n", Version)
	fmt.Fprintf(os.Stderr, "Build: %s (%s)\n\n", BuildTime, GitCommit)

	if *instancePath == "" {
		fmt.Fprintln(os.Stderr, "必须指定 --instance")
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		logger.WithError(err).Msg("加载配置失败")
		os.Exit(2)
	}

	inst, err := model.ParseInstanceFile(*instancePath, model.BuildOptions{
		EnforceRoomPerCourse: *roomPerCourse,
	})
	if err != nil {
		logger.WithError(err).Msg("实例解析失败")
		os.Exit(exitCode(err))
	}

	if *dryRunParse {
		fmt.Printf("实例 %s: 课程 %d, 讲次 %d, 教室 %d, 体系 %d, 时段 %d×%d\n",
			inst.Name, len(inst.Courses), len(inst.Lectures), len(inst.Rooms),
			len(inst.Curricula), inst.Days, inst.PeriodsPerDay)
		return
	}

	opts := solver.OptionsFromConfig(cfg.Solver)
	if *seed != 0 {
		opts.Seed = *seed
	}
	if *timeLimit > 0 {
		opts.TimeLimit = time.Duration(*timeLimit * float64(time.Second))
	}
	if *meta != "" {
		opts.Metaheuristic = *meta
	}
	opts.Init = *initBuilder
	opts.ProgressPath = *logPath

	rep, err := solver.Solve(inst, opts)
	if err != nil {
		logger.WithError(err).Msg("求解失败")
		os.Exit(exitCode(err))
	}

	if err := model.WriteSolutionFile(*outPath, rep.Placements); err != nil {
		logger.WithError(err).Msg("写出解文件失败")
		os.Exit(1)
	}

	if report, err := stats.Analyze(inst, rep.Placements, opts.Weights); err == nil {
		fmt.Print(report.Render())
	}
	fmt.Printf("解已写入 %s (代价 %d, 引擎 %s, 构造器 %s, 用时 %s)\n",
		*outPath, rep.Cost, rep.Engine, rep.Builder, rep.Duration.Round(time.Millisecond))
}

// exitCode 错误分类到退出码：输入与格式问题 2，其余 1
func exitCode(err error) int {
	switch errors.GetCode(err) {
	case errors.CodeInstanceFormat, errors.CodeInfeasibleInstance, errors.CodeInvalidInput:
		return 2
	default:
		return 1
	}
}

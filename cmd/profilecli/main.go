package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"profile-insight-go/internal/config"
	appCoreLogger "profile-insight-go/internal/logger"

	"github.com/spf13/pflag"
)

// 命令行参数定义
var (
	configPath = pflag.StringP("config", "c", "", "配置文件路径，为空时使用默认配置")
	command    = pflag.String("cmd", "parse", "执行的命令: parse=解析档案文本, pdf=解析PDF档案, clean=仅清洗文本, analyze=分析档案")
	inputPath  = pflag.StringP("in", "i", "", "输入文件路径，为空时从标准输入读取")
	targetRole = pflag.String("role", "", "分析时的目标职位")
	withStats  = pflag.Bool("stats", false, "parse 命令额外输出解析统计")
)

func main() {
	pflag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fail("加载配置失败: %v", err)
	}
	// 标准输出留给 JSON 结果
	if err := appCoreLogger.Init(appCoreLogger.Config{
		Level:      cfg.Logger.Level,
		Format:     "pretty",
		TimeFormat: cfg.Logger.TimeFormat,
		Output:     os.Stderr,
	}); err != nil {
		fail("初始化日志失败: %v", err)
	}

	switch *command {
	case "parse":
		handleParseCommand()
	case "pdf":
		handlePDFCommand(cfg)
	case "clean":
		handleCleanCommand()
	case "analyze":
		handleAnalyzeCommand(cfg)
	default:
		fmt.Fprintf(os.Stderr, "错误: 未知命令 '%s'。支持的命令: parse, pdf, clean, analyze\n", *command)
		pflag.Usage()
		os.Exit(1)
	}
}

// readInput 读取 --in 指定的文件，未指定时读取标准输入
func readInput() []byte {
	var (
		data []byte
		err  error
	)
	if *inputPath == "" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(*inputPath)
	}
	if err != nil {
		fail("读取输入失败: %v", err)
	}
	return data
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		fail("输出结果失败: %v", err)
	}
}

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

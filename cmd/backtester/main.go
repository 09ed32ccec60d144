package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"stock-backtester/internal/app"
	"stock-backtester/internal/config"
	"stock-backtester/internal/log"
	"stock-backtester/internal/store"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stderr))
}

// run 返回进程退出码，保证 defer 中的日志刷新与数据库关闭在退出前执行。
func run(args []string, stderr io.Writer) int {
	var (
		configPath string
		envPath    string
		sweep      bool
	)
	flags := flag.NewFlagSet("backtester", flag.ContinueOnError)
	flags.SetOutput(stderr)
	flags.StringVar(&configPath, "config", "", "配置文件路径，默认使用 configs/config.yaml")
	flags.StringVar(&envPath, "env", ".env", "环境变量文件，不存在时忽略")
	flags.BoolVar(&sweep, "sweep", false, "按 sweep.grid 执行参数扫描")
	if err := flags.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	if err := loadEnv(envPath); err != nil {
		fmt.Fprintf(stderr, "加载环境变量文件失败: %v\n", err)
		return 1
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(stderr, "加载配置失败: %v\n", err)
		return 1
	}

	logger, err := log.NewLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(stderr, "初始化日志失败: %v\n", err)
		return 1
	}
	defer func(logger *zap.Logger) {
		_ = logger.Sync()
	}(logger)

	sqliteStore, err := store.NewSQLite(cfg.Database)
	if err != nil {
		logger.Error("初始化数据库失败", zap.Error(err))
		return 1
	}
	defer func() {
		if closeErr := sqliteStore.Close(); closeErr != nil {
			logger.Warn("关闭数据库失败", zap.Error(closeErr))
		}
	}()

	backtestApp := app.New(cfg, logger, sqliteStore)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := backtestApp.Run(ctx, app.Options{Sweep: sweep}); err != nil {
		logger.Error("回测运行异常", zap.Error(err))
		return 1
	}

	logger.Info("回测任务结束")
	return 0
}

func loadEnv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

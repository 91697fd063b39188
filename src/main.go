package main

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/robfig/cron"

	"EcoInsight/src/config"
	"EcoInsight/src/datapush"
	"EcoInsight/src/datasource/file"
	"EcoInsight/src/datasource/worldbank"
	"EcoInsight/src/processor"
	"EcoInsight/src/storage"
)

func main() {
	jsonFolder := "./config"
	jsonFile := "config.json"
	dataJsonFile := "dataconfig.json"
	cfg, dcfg, err := config.LoadConfig(jsonFolder, jsonFile, dataJsonFile)
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	// 初始化日志系统
	logger, err := storage.NewLogger(cfg.LogName)
	if err != nil {
		log.Fatal("Failed to initialize logger:", err)
	}

	// 监听配置目录，数据配置(聚合标签、经济体列表)改动后热更新
	monitor, err := file.NewConfigMonitor(jsonFolder)
	if err != nil {
		logger.Error("创建配置监听失败: " + err.Error())
	} else {
		go func() {
			err := monitor.Watch(func(path string) {
				if err := config.Reload(jsonFolder, jsonFile, dataJsonFile); err != nil {
					logger.Error("配置重新加载失败: " + err.Error())
					return
				}
				logger.Info("配置已重新加载: " + path)
			})
			if err != nil {
				logger.Error("配置监听错误: " + err.Error())
			}
		}()
	}

	// 设置定时任务: 周期性重建报表并导出/推送
	c := cron.New()
	interval := cfg.Snapshot().Refresh.Interval.Std().String()
	cronSpec := fmt.Sprintf("@every %s", interval)

	err = c.AddFunc(cronSpec, func() {
		logger.Info(fmt.Sprintf("开始定时刷新报表(间隔: %v)...", interval))

		// 取配置副本，整轮刷新使用同一份配置，不受中途热更新影响
		snap := cfg.Snapshot()

		t1 := time.Now()
		figures, err := buildFigures(snap, dcfg)
		if err != nil {
			logger.Error("报表构建失败: " + err.Error())
			return
		}

		if err := os.MkdirAll(snap.Refresh.ReportDir, 0755); err != nil {
			logger.Error("创建报表目录失败: " + err.Error())
			return
		}
		reportPath := filepath.Join(snap.Refresh.ReportDir,
			fmt.Sprintf("dashboard_%s.xlsx", time.Now().Format("20060102150405")))
		if err := datapush.ExportExcel(figures, reportPath); err != nil {
			logger.Error("导出报表失败: " + err.Error())
			return
		}
		logger.Info("报表已导出: " + reportPath)

		if snap.SendEmail.Enabled {
			if err := datapush.SendReport(&snap, reportPath); err != nil {
				logger.Error("推送报表失败: " + err.Error())
			}
		}

		if err := logger.CheckRotate(&snap); err != nil {
			logger.Error("日志轮转失败: " + err.Error())
		}
		logger.Info(fmt.Sprintf("报表刷新完成，耗时: %v", time.Since(t1)))
	})
	if err != nil {
		logger.Error("创建定时任务失败: " + err.Error())
		return
	}

	c.Start()
	defer c.Stop()

	// 启动仪表盘服务: /figures返回五个图表描述符，/logs实时输出日志
	go startWebUI(cfg, dcfg, logger)

	logger.Info(fmt.Sprintf("仪表盘服务已启动(地址: %s, 刷新间隔: %v)，按Ctrl+C退出",
		cfg.Snapshot().Server.Addr, interval))
	waitForShutdown(cfg, logger)
}

// buildFigures 每次调用都重新组装完整的加载与构建链路，
// 不缓存API响应，也保证配置热更新即时生效。
// 接收配置副本，调用方通过Snapshot取得。
func buildFigures(cfg config.Config, dcfg *config.DataConfig) ([]processor.Figure, error) {
	client := worldbank.NewClient(cfg.API.BaseURL, cfg.API.Timeout.Std())
	loader := processor.NewIndicatorLoader(client, dcfg.GetRemoveCountries())
	builder := processor.NewReportBuilder(loader, dcfg)
	return builder.BuildReport()
}

// figuresHandler 返回/figures的处理函数: 现建现返五个图表描述符的JSON
func figuresHandler(cfg *config.Config, dcfg *config.DataConfig, logger *storage.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t1 := time.Now()
		figures, err := buildFigures(cfg.Snapshot(), dcfg)
		if err != nil {
			logger.Error("报表构建失败: " + err.Error())
			http.Error(w, "failed to build report", http.StatusBadGateway)
			return
		}

		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		if err := json.NewEncoder(w).Encode(figures); err != nil {
			logger.Error("响应编码失败: " + err.Error())
			return
		}
		logger.Info(fmt.Sprintf("图表构建完成，耗时: %v", time.Since(t1)))
	}
}

// startWebUI 启动仪表盘HTTP服务
func startWebUI(cfg *config.Config, dcfg *config.DataConfig, logger *storage.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/figures", figuresHandler(cfg, dcfg, logger))
	mux.HandleFunc("/logs", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("Transfer-Encoding", "chunked")

		// 订阅日志消息，持续写给客户端直到断开
		logChan := logger.Subscribe()
		defer logger.Unsubscribe(logChan)

		for {
			select {
			case msg, ok := <-logChan:
				if !ok {
					return
				}
				_, err := fmt.Fprintln(w, msg)
				if err != nil {
					return
				}
				if f, ok := w.(http.Flusher); ok {
					f.Flush()
				}
			case <-r.Context().Done():
				return
			}
		}
	})

	if err := http.ListenAndServe(cfg.Snapshot().Server.Addr, mux); err != nil {
		logger.Error("HTTP服务退出: " + err.Error())
	}
}

func waitForShutdown(cfg *config.Config, logger *storage.Logger) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	for sig := range sigChan {
		switch sig {
		case syscall.SIGHUP:
			// SIGHUP切换日志文件
			rotated := fmt.Sprintf("%s.%s", cfg.Snapshot().LogName, time.Now().Format("20060102"))
			if err := logger.Reopen(rotated); err != nil {
				log.Printf("Failed to rotate logs: %v", err)
			}
		default:
			logger.Info("Received signal: " + sig.String() + ", shutting down...")
			logger.Close()
			os.Exit(0)
		}
	}
}

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"hr-agent-go/internal/agent"
	"hr-agent-go/internal/api/handler"
	"hr-agent-go/internal/api/router"
	"hr-agent-go/internal/chat"
	"hr-agent-go/internal/config"
	"hr-agent-go/internal/constants"
	appCoreLogger "hr-agent-go/internal/logger"
	"hr-agent-go/internal/outbox"
	"hr-agent-go/internal/processor"
	"hr-agent-go/internal/storage"
	"hr-agent-go/internal/tracing"

	"github.com/cloudwego/hertz/pkg/app/server"
	glog "github.com/cloudwego/hertz/pkg/common/hlog"
	hertzadapter "github.com/hertz-contrib/logger/zerolog"
	hertztracing "github.com/hertz-contrib/obs-opentelemetry/tracing"
	"github.com/spf13/pflag"
)

func main() {
	var configPath string
	pflag.StringVarP(&configPath, "config", "c", "", "配置文件路径")
	pflag.Parse()

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		glog.Fatalf("加载配置失败: %v", err)
	}

	initLogger(cfg)
	glog.Info("配置加载成功")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 追踪初始化先行，后续组件注册各自的instrumentation
	shutdownTracing, err := tracing.InitTracerProvider(ctx, &cfg.Tracing)
	if err != nil {
		glog.Warnf("初始化追踪失败，继续以无追踪模式运行: %v", err)
		shutdownTracing = func(context.Context) error { return nil }
	}

	storageManager, err := storage.NewStorage(ctx, cfg)
	if err != nil {
		glog.Fatalf("初始化存储失败: %v", err)
	}
	defer storageManager.Close()
	if storageManager.MySQL == nil {
		glog.Fatal("MySQL是必需组件，无法继续启动")
	}
	glog.Info("存储服务初始化成功")

	// 发件箱中继：有消息队列才启动
	var messageRelay *outbox.MessageRelay
	if storageManager.RabbitMQ != nil {
		if err := storageManager.RabbitMQ.SetupDomainTopology(); err != nil {
			glog.Warnf("初始化消息拓扑失败: %v", err)
		}
		messageRelay = outbox.NewMessageRelay(storageManager.MySQL.DB(), storageManager.RabbitMQ)
		messageRelay.Start()
		glog.Info("消息中继服务已启动")
	} else {
		glog.Warn("RabbitMQ未配置，发件箱事件将停留在PENDING状态")
	}

	// 模型网关工厂：按请求解析凭证链（个人密钥 → 共享设置 → 环境变量）
	newGateway := func(c context.Context, personalKey string) (agent.ModelGateway, error) {
		if cfg.Model.UseMock {
			return agent.NewMockGateway(), nil
		}
		shared := storageManager.GetSetting(c, config.SettingSharedModelKey, cfg.Model.APIKey)
		key, err := agent.ResolveCredential(personalKey, shared, agent.DefaultCredentialEnvVar)
		if err != nil {
			return nil, err
		}
		timeout := time.Duration(cfg.Model.TimeoutSeconds) * time.Second
		return agent.NewOpenAIGateway(key, cfg.Model.ModelName, cfg.Model.APIURL, timeout)
	}

	// 抽取流水线使用启动期解析一次的网关
	extractionGateway, err := newGateway(ctx, "")
	if err != nil {
		glog.Warnf("抽取网关凭证不可用，回退到离线网关: %v", err)
		extractionGateway = agent.NewMockGateway()
	}

	var archive processor.RawTextArchive
	if storageManager.MinIO != nil {
		archive = storageManager.MinIO
	}
	var dedup processor.DedupIndex
	if storageManager.Redis != nil {
		dedup = storageManager.Redis
	}

	extractor := processor.NewExtractor(storageManager.MySQL, extractionGateway, storageManager, processor.ExtractorOptions{
		Archive:         archive,
		Dedup:           dedup,
		MaxRawTextChars: cfg.Extraction.MaxRawTextChars,
		Timeout:         time.Duration(cfg.Extraction.TimeoutSeconds) * time.Second,
		EventExchange:   cfg.RabbitMQ.DomainEventExchange,
		EventRoutingKey: cfg.RabbitMQ.ResumeRoutingKey,
	})
	glog.Info("简历抽取器初始化成功")

	// 会话记忆：Redis可用时跨实例共享，否则进程内降级
	var memory agent.ChatMemory
	if storageManager.Redis != nil {
		keyPrefix := cfg.Chat.HistoryKeyPrefix
		if keyPrefix == "" {
			keyPrefix = constants.ChatMemoryKeyPrefix
		}
		ttl := time.Duration(cfg.Chat.MemoryTTLMinutes) * time.Minute
		if ttl <= 0 {
			ttl = constants.ChatMemoryTTL
		}
		memory, err = agent.NewRedisChatMemory(storageManager.Redis.Client(), keyPrefix, ttl)
		if err != nil {
			glog.Warnf("初始化Redis会话记忆失败，降级为进程内记忆: %v", err)
			memory = agent.NewInMemoryChatMemory()
		}
	} else {
		memory = agent.NewInMemoryChatMemory()
	}

	chatEngine := chat.NewEngine(storageManager.MySQL, storageManager.MySQL, memory,
		storageManager, newGateway, chat.EngineOptions{
			FallbackLanguage: cfg.Chat.FallbackLanguage,
			MaxHistoryTurns:  cfg.Chat.MaxHistoryTurns,
			MaxContextChars:  cfg.Chat.MaxContextChars,
			EventExchange:    cfg.RabbitMQ.DomainEventExchange,
			EventRoutingKey:  cfg.RabbitMQ.ChatRoutingKey,
		})
	glog.Info("会话引擎初始化成功")

	resumeHandler := handler.NewResumeHandler(extractor, storageManager.MySQL)
	candidateHandler := handler.NewCandidateHandler(storageManager.MySQL)
	chatHandler := handler.NewChatHandler(chatEngine)
	settingHandler := handler.NewSettingHandler(storageManager)

	tracer, tracerCfg := hertztracing.NewServerTracer()
	h := server.New(
		server.WithHostPorts(cfg.Server.Address),
		server.WithHandleMethodNotAllowed(true),
		tracer,
	)
	h.Use(hertztracing.ServerMiddleware(tracerCfg))

	router.RegisterRoutes(h, cfg.Server.AuthToken, resumeHandler, candidateHandler, chatHandler, settingHandler)
	glog.Info("HTTP路由注册成功")

	go func() {
		glog.Infof("HTTP服务器启动中，监听地址: %s", cfg.Server.Address)
		if err := h.Run(); err != nil {
			glog.Fatalf("启动HTTP服务器失败: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	glog.Info("接收到终止信号，正在优雅退出...")

	if messageRelay != nil {
		messageRelay.Stop()
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	if err := h.Shutdown(shutdownCtx); err != nil {
		glog.Errorf("服务器关闭失败: %v", err)
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		glog.Errorf("追踪管线关闭失败: %v", err)
	}
	glog.Info("优雅退出完成")
}

// initLogger 初始化zerolog并把Hertz的hlog桥接到同一输出
func initLogger(cfg *config.Config) {
	appCoreLogger.Init(appCoreLogger.Config{
		Level:        cfg.Logger.Level,
		Format:       cfg.Logger.Format,
		TimeFormat:   cfg.Logger.TimeFormat,
		ReportCaller: cfg.Logger.ReportCaller,
	})

	hertzCompatibleLogger := hertzadapter.From(appCoreLogger.Logger)
	glog.SetLogger(hertzCompatibleLogger)
}

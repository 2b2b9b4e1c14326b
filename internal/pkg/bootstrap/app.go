package bootstrap

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"ticketblitz/internal/pkg/tracing"
)

// App 描述一个服务进程需要的启动信息。
type App struct {
	ServiceName    string
	HTTPAddr       string
	JaegerEndpoint string

	// RegisterRoutes 挂载服务自己的业务路由
	RegisterRoutes func(r *gin.Engine)

	// OnShutdown 按注册顺序的逆序执行，用于关 consumer、relay、连接池
	OnShutdown []func(ctx context.Context)
}

// Run 封装所有服务共同的启动与优雅关停流程：tracer、HTTP server、
// 信号监听、清理回调。阻塞直到进程收到退出信号。
func Run(app App, log zerolog.Logger) {
	tp, err := tracing.InitTracerProvider(app.ServiceName, app.JaegerEndpoint)
	if err != nil {
		log.Fatal().Err(err).Msg("init tracer provider failed")
	}

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	if app.RegisterRoutes != nil {
		app.RegisterRoutes(r)
	}

	server := &http.Server{Addr: app.HTTPAddr, Handler: r}
	go func() {
		log.Info().Str("addr", app.HTTPAddr).Msg("http server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("http server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("http server shutdown failed")
	}

	for i := len(app.OnShutdown) - 1; i >= 0; i-- {
		app.OnShutdown[i](ctx)
	}

	if err := tp.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("tracer provider shutdown failed")
	}
	log.Info().Msg("shutdown complete")
}

package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"txdecoder/internal/chains"
	"txdecoder/internal/config"
	decodeerrors "txdecoder/internal/errors"
	"txdecoder/internal/output"
	"txdecoder/pkg/models"
)

const (
	defaultLogLimit = 20
	maxLogLimit     = 500
)

// Decoder 解码入口
type Decoder interface {
	Decode(ctx context.Context, hash, chain string) (*models.DecodedTransaction, error)
}

// Server API服务器
type Server struct {
	decoder    Decoder
	registry   *chains.Registry
	outputter  output.Output
	logger     *logrus.Logger
	logManager *LogManager
	router     *gin.Engine
	server     *http.Server
	port       int
}

// NewServer 创建API服务器，out 为空时不转发解码结果
func NewServer(decoder Decoder, registry *chains.Registry, out output.Output, logger *logrus.Logger, cfg *config.APIConfig) *Server {
	if cfg == nil {
		cfg = config.GetDefaultConfig().API
	}

	logManager := NewLogManager(cfg.LogBufferSize)
	logger.AddHook(NewLogHook(logManager))

	s := &Server{
		decoder:    decoder,
		registry:   registry,
		outputter:  out,
		logger:     logger,
		logManager: logManager,
		port:       cfg.Port,
	}
	s.router = s.newRouter()
	return s
}

// Handler 路由，测试时直接使用
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start 启动API服务器，阻塞直到关闭
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.Infof("API服务器启动在端口 %d", s.port)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Stop 停止API服务器
func (s *Server) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *Server) newRouter() *gin.Engine {
	router := gin.New()

	// 添加CORS中间件
	router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept-Encoding")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})
	router.Use(gin.Recovery())
	router.Use(s.requestLogger())

	router.GET("/health", s.healthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api/v1")
	{
		api.GET("/chains", s.getChains)
		api.GET("/tx/:chain/:hash", s.decodeTransaction)

		// 日志管理
		api.GET("/logs", s.getLogs)
		api.DELETE("/logs", s.clearLogs)
	}

	return router
}

// requestLogger 用 logrus 记录请求
func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		s.logger.WithFields(logrus.Fields{
			"method":  c.Request.Method,
			"path":    c.FullPath(),
			"status":  c.Writer.Status(),
			"latency": time.Since(start).String(),
		}).Debug("HTTP请求")
	}
}

// healthCheck 健康检查
func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().Unix(),
		"service":   "txdecoder-api",
	})
}

// getChains 支持的链
func (s *Server) getChains(c *gin.Context) {
	all := s.registry.All()
	c.JSON(http.StatusOK, gin.H{
		"chains": all,
		"total":  len(all),
	})
}

// decodeTransaction 解码一笔交易
func (s *Server) decodeTransaction(c *gin.Context) {
	chain := c.Param("chain")
	hash := c.Param("hash")

	result, err := s.decoder.Decode(c.Request.Context(), hash, chain)
	if err != nil {
		c.JSON(decodeerrors.HTTPStatus(err), gin.H{
			"error": decodeerrors.ToTransactionError(err),
		})
		return
	}

	if s.outputter != nil {
		if err := s.outputter.WriteTransaction(result); err != nil {
			// 转发失败不影响响应
			s.logger.WithError(err).WithField("tx_hash", result.Hash.Hex()).Warn("转发解码结果失败")
		}
	}

	c.JSON(http.StatusOK, result)
}

// getLogs 按 offset/limit 分页查询日志，level 为最低严重程度
func (s *Server) getLogs(c *gin.Context) {
	q := LogQuery{Limit: defaultLogLimit}

	if raw := c.Query("level"); raw != "" {
		lvl, err := logrus.ParseLevel(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": &models.TransactionError{Message: err.Error(), Code: "INVALID_LOG_LEVEL"},
			})
			return
		}
		q.MinLevel = &lvl
	}
	if n, err := strconv.Atoi(c.Query("offset")); err == nil && n > 0 {
		q.Offset = n
	}
	if n, err := strconv.Atoi(c.Query("limit")); err == nil && n > 0 {
		q.Limit = min(n, maxLogLimit)
	}

	page := s.logManager.Query(q)
	c.JSON(http.StatusOK, gin.H{
		"entries": page.Entries,
		"total":   page.Total,
		"offset":  q.Offset,
		"limit":   q.Limit,
	})
}

// clearLogs 清空日志
func (s *Server) clearLogs(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"cleared": s.logManager.Reset()})
}

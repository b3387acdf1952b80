package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/loyala/internal/card"
	carddomain "github.com/smallbiznis/loyala/internal/card/domain"
	"github.com/smallbiznis/loyala/internal/claim"
	claimdomain "github.com/smallbiznis/loyala/internal/claim/domain"
	"github.com/smallbiznis/loyala/internal/config"
	"github.com/smallbiznis/loyala/internal/observability"
	obsmiddleware "github.com/smallbiznis/loyala/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/loyala/internal/observability/metrics"
	obstracing "github.com/smallbiznis/loyala/internal/observability/tracing"
	"github.com/smallbiznis/loyala/internal/ratelimit"
	"github.com/smallbiznis/loyala/internal/scanauth"
	"github.com/smallbiznis/loyala/internal/store"
	storedomain "github.com/smallbiznis/loyala/internal/store/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	card.Module,
	claim.Module,
	store.Module,
	scanauth.Module,
	ratelimit.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine      *gin.Engine
	cfg         config.Config
	log         *zap.Logger
	cardSvc     carddomain.Service
	claimSvc    claimdomain.Service
	storeSvc    storedomain.Service
	scanLimiter *ratelimit.ScanLimiter
}

type ServerParams struct {
	fx.In

	Gin         *gin.Engine
	Cfg         config.Config
	Log         *zap.Logger
	CardSvc     carddomain.Service
	ClaimSvc    claimdomain.Service
	StoreSvc    storedomain.Service
	ScanLimiter *ratelimit.ScanLimiter `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:      p.Gin,
		cfg:         p.Cfg,
		log:         p.Log.Named("http.server"),
		cardSvc:     p.CardSvc,
		claimSvc:    p.ClaimSvc,
		storeSvc:    p.StoreSvc,
		scanLimiter: p.ScanLimiter,
	}

	svc.registerAPIRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	v1 := s.engine.Group("/v1")

	v1.GET("/ping", s.Ping)

	// -------- Cards --------
	v1.POST("/cards/claim", s.ClaimCard)
	v1.POST("/cards/stamps", s.AddStamps)
	v1.GET("/cards", s.ListCards)
	v1.POST("/cards/delete", s.DeleteCard)

	// -------- Rewards --------
	v1.POST("/rewards/consume", s.ConsumeReward)

	// -------- Claims --------
	v1.POST("/claims", s.MerchantAdminRequired(), s.CreateClaim)

	// -------- Stores --------
	v1.GET("/stores", s.BatchGetStores)
	v1.GET("/stores/:storeId", s.GetStore)
	v1.PATCH("/stores/:storeId", s.MerchantAdminRequired(), s.UpdateStoreTemplate)

	if !s.cfg.IsProduction() {
		v1.POST("/dev/cards", s.DevCreateCard)
	}
}

// Ping reads a store to prove the storage backend is reachable.
func (s *Server) Ping(c *gin.Context) {
	if _, err := s.storeSvc.Get(c.Request.Context(), storedomain.GetRequest{ID: "ping"}); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "ts": time.Now().UTC().Format(time.RFC3339)})
}

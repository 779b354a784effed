package server

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/opentracing/opentracing-go"
	"github.com/opentracing/opentracing-go/ext"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"

	"github.com/bosatsu/aws-twilio-fax/api"
	"github.com/bosatsu/aws-twilio-fax/config"
	"github.com/bosatsu/aws-twilio-fax/internal/cron"
	"github.com/bosatsu/aws-twilio-fax/internal/listeners"
	"github.com/bosatsu/aws-twilio-fax/internal/logger"
	"github.com/bosatsu/aws-twilio-fax/internal/tracing"
	"github.com/bosatsu/aws-twilio-fax/services"
	"github.com/bosatsu/aws-twilio-fax/services/events"
)

type Server struct {
	config       *config.Config
	log          logger.Logger
	httpServer   *http.Server
	router       *gin.Engine
	services     *services.Services
	cronManager  *cron.CronManager
	tracerCloser io.Closer
}

func NewServer(cfg *config.Config) (*Server, error) {
	// Initialize logger
	appLogger := logger.NewAppLogger(cfg.Logger)
	appLogger.InitLogger()

	// Initialize tracing
	tracer, closer, err := tracing.NewJaegerTracer(cfg.Tracing, appLogger)
	if err != nil {
		log.Fatalf("Could not initialize jaeger tracer: %s", err.Error())
	}
	opentracing.SetGlobalTracer(tracer)

	// Initialize services
	svcs, err := services.InitServices(context.Background(), cfg, appLogger)
	if err != nil {
		return nil, err
	}

	// Initialize Gin
	gin.SetMode(gin.ReleaseMode)
	router := gin.Default()

	return &Server{
		config:       cfg,
		log:          appLogger,
		router:       router,
		services:     svcs,
		cronManager:  cron.NewCronManager(appLogger, k8sClient(appLogger), svcs.AllowList),
		tracerCloser: closer,
		httpServer: &http.Server{
			Addr:    ":" + cfg.AppConfig.APIPort,
			Handler: router,
		},
	}, nil
}

// k8sClient builds an in-cluster client for cron leader election; outside a
// cluster it returns nil and crons run in local mode.
func k8sClient(log logger.Logger) kubernetes.Interface {
	restCfg, err := rest.InClusterConfig()
	if err != nil {
		log.Infof("No in-cluster config, cron leader election disabled: %v", err)
		return nil
	}
	client, err := kubernetes.NewForConfig(restCfg)
	if err != nil {
		log.Warnf("Failed to build kubernetes client: %v", err)
		return nil
	}
	return client
}

func (s *Server) Initialize(ctx context.Context) error {
	s.log.Info("Registering event listeners...")

	subscriber := s.services.EventsService.Subscriber
	subscriber.RegisterListener(listeners.NewEmailReceivedListener(s.log, s.services.IngestionPipeline))
	subscriber.RegisterListener(listeners.NewFaxJobStoredListener(s.log, s.services.Dispatcher))
	subscriber.RegisterListener(listeners.NewFaxReceivedListener(s.log, s.services.FaxDeliveryService))

	for _, queue := range []string{
		events.QueueEmailReceived,
		events.QueueFaxJobStored,
		events.QueueFaxReceived,
	} {
		queue := queue
		go s.wrapGoroutine("listener_"+queue, func() {
			if err := subscriber.ListenQueue(queue); err != nil {
				s.log.Errorf("Listener for queue %s stopped: %v", queue, err)
			}
		})
	}

	// Setup API routes
	api.RegisterRoutes(ctx, s.router, s.services, s.config, s.log)

	return nil
}

func (s *Server) recoverWithJaeger(name string) {
	if r := recover(); r != nil {
		span := opentracing.GlobalTracer().StartSpan(
			fmt.Sprintf("panic.%s", name),
		)
		defer span.Finish()

		ext.Error.Set(span, true)

		span.LogKV(
			"event", "panic",
			"process", name,
			"error", fmt.Sprintf("%v", r),
			"stack", string(debug.Stack()),
		)

		log.Printf("❌ Panic in %s: %v\n%s", name, r, debug.Stack())
	}
}

func (s *Server) wrapGoroutine(name string, fn func()) {
	defer s.recoverWithJaeger(name)
	fn()
}

func (s *Server) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := s.Initialize(ctx); err != nil {
		return err
	}

	// Start scheduled jobs
	podName := os.Getenv("POD_NAME")
	namespace := os.Getenv("POD_NAMESPACE")
	if err := s.cronManager.Start(podName, namespace); err != nil {
		s.log.Errorf("Cron manager failed to start: %v", err)
	}

	// Start HTTP server in a goroutine with panic recovery
	go s.wrapGoroutine("http_server", func() {
		s.log.Info("Starting HTTP server")
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.log.Errorf("HTTP server error: %v", err)
		}
	})
	s.log.Info("Fax bridge is now running. Press Ctrl+C to exit.")

	return s.waitForShutdown()
}

func (s *Server) waitForShutdown() error {
	defer s.recoverWithJaeger("shutdown")

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	s.log.Info("Shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	s.cronManager.Stop()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.log.Errorf("HTTP server shutdown error: %v", err)
	} else {
		s.log.Info("HTTP server shut down successfully")
	}

	if err := s.services.EventsService.Close(); err != nil {
		s.log.Errorf("Events service shutdown error: %v", err)
	}

	if s.tracerCloser != nil {
		s.tracerCloser.Close()
	}

	return nil
}

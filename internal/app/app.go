package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"financial-movement/internal/broker"
	"financial-movement/internal/cache"
	"financial-movement/internal/config"
	"financial-movement/internal/database"
	"financial-movement/internal/models"
	"financial-movement/internal/repositories"
	"financial-movement/internal/repositories/kafkarepo"
	"financial-movement/internal/repositories/memoryrepo"
	"financial-movement/internal/repositories/postgresrepo"
	"financial-movement/internal/repositories/redisrepo"
	"financial-movement/internal/services"
	"financial-movement/internal/transport/http/handler"
	"financial-movement/internal/worker"

	"github.com/gin-gonic/gin"
)

type App struct {
	cfg        *config.Config
	consumer   *worker.Consumer
	httpServer *http.Server
	closers    []func() error
}

func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{cfg: cfg}
	if err := a.init(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) init(ctx context.Context) error {
	cfg := a.cfg

	// Connect to movement store
	store, err := a.newStore(ctx)
	if err != nil {
		return fmt.Errorf("database connection error: %w", err)
	}

	// Connect to cache; saga state tracking is optional
	var (
		tracker services.StateTracker
		states  handler.SagaStateReader
	)
	redis, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		log.Printf("Warning: saga state tracking disabled: cache connection error: %v", err)
	} else {
		a.closers = append(a.closers, redis.Close)
		stateRepo := redisrepo.NewSagaStateRepository(redis, cfg.Redis.StateTTL)
		tracker, states = stateRepo, stateRepo
	}

	// Connect to broker
	writer := broker.NewKafkaWriter(cfg.Kafka)
	a.closers = append(a.closers, writer.Close)

	group, err := broker.NewConsumerGroup(cfg.Kafka)
	if err != nil {
		return fmt.Errorf("broker connection error: %w", err)
	}
	a.closers = append(a.closers, group.Close)

	// Initialize repositories
	publisher := kafkarepo.NewPublisher(writer)

	// Initialize services
	faults := services.CardFaults{
		CompensationCard: cfg.Faults.CompensationCard,
		CorrelationCard:  cfg.Faults.CorrelationCard,
	}
	notifier := services.NewNotifier(publisher, cfg.Worker.CleanupTimeout)

	dispatcher := worker.NewDispatcher(cfg.Worker.HandlerTimeout)
	dispatcher.Route(models.TopicStartTransactions, services.NewRecorder(store, publisher, notifier, tracker))
	dispatcher.Route(models.TopicCompensation, services.NewCompensator(store, notifier, tracker, faults))
	dispatcher.Route(models.TopicMovements, services.NewCorrelator(store, publisher, notifier, tracker, faults))

	a.consumer = worker.NewConsumer(group, dispatcher)

	// Initialize router and handlers
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	handler.NewSaga(router, states)

	a.httpServer = &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  15 * time.Second,
	}

	return nil
}

func (a *App) newStore(ctx context.Context) (repositories.MovementStore, error) {
	switch a.cfg.Store.Driver {
	case config.StoreDriverMemory:
		log.Println("Warning: using in-memory movement store, movements are not durable")
		return memoryrepo.NewMovementRepo(), nil
	default:
		db, err := database.NewPostgres(ctx, a.cfg.Postgres.URL)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, db.Close)
		if err := database.Migrate(ctx, db); err != nil {
			return nil, err
		}
		return postgresrepo.NewMovementRepo(db), nil
	}
}

// Run consumes until SIGINT or SIGTERM, then drains in-flight handlers and
// releases every connection.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	defer a.Close()

	go func() {
		log.Printf("Starting HTTP server on port %s", a.cfg.Server.Port)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("http server error: %v", err)
		}
	}()

	consumeErr := a.consumer.Start(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("http server shutdown error: %v", err)
	}

	if consumeErr != nil {
		return fmt.Errorf("consumer error: %w", consumeErr)
	}
	return nil
}

// Close releases resources in reverse acquisition order.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			log.Printf("Warning: close error: %v", err)
		}
	}
	a.closers = nil
}

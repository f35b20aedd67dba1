package main

import (
	"context"
	"database/sql"

	config "github.com/davicafu/taskboard/internal/config"
	directoryDomain "github.com/davicafu/taskboard/internal/directory/domain"
	directoryHttp "github.com/davicafu/taskboard/internal/directory/infra/inbound/http"
	directoryRepo "github.com/davicafu/taskboard/internal/directory/infra/outbound/db/mongodb"
	identityHttp "github.com/davicafu/taskboard/internal/identity/infra/inbound/http"
	notificationApp "github.com/davicafu/taskboard/internal/notification/application"
	notificationDomain "github.com/davicafu/taskboard/internal/notification/domain"
	notificationEvents "github.com/davicafu/taskboard/internal/notification/infra/inbound/events"
	"github.com/davicafu/taskboard/internal/notification/infra/outbound/lognotify"
	"github.com/davicafu/taskboard/internal/notification/infra/outbound/mail"
	taskApp "github.com/davicafu/taskboard/internal/task/application"
	taskDomain "github.com/davicafu/taskboard/internal/task/domain"
	taskHttp "github.com/davicafu/taskboard/internal/task/infra/inbound/http"
	"github.com/davicafu/taskboard/internal/task/infra/outbound/analytics/clickhouse"
	taskCache "github.com/davicafu/taskboard/internal/task/infra/outbound/cache"
	taskRepoPg "github.com/davicafu/taskboard/internal/task/infra/outbound/db/postgre"
	taskRepoLite "github.com/davicafu/taskboard/internal/task/infra/outbound/db/sqlite"

	sharedDomain "github.com/davicafu/taskboard/internal/shared/domain"
	infraEvents "github.com/davicafu/taskboard/internal/shared/infra/events"
	sharedBus "github.com/davicafu/taskboard/internal/shared/infra/platform/bus"
	sharedCache "github.com/davicafu/taskboard/internal/shared/infra/platform/cache"
	infraRelayer "github.com/davicafu/taskboard/internal/shared/infra/relayer"
	"github.com/davicafu/taskboard/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/segmentio/kafka-go"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	// _ "github.com/mattn/go-sqlite3" // requires gcc
	_ "modernc.org/sqlite"
)

// ---------------- Main ----------------
func main() {
	logger.Init()          // inicializa zap
	log := logger.Logger() // obtiene logger estructurado
	defer log.Sync()       // flush buffers al salir

	ctx := context.Background()
	cfg := config.LoadConfig()

	// ---------------- DB ----------------
	var tasksRepo taskDomain.TaskRepository
	var assignmentsRepo taskDomain.AssignmentRepository
	var outboxRepo sharedDomain.OutboxRepository

	if cfg.PostgresDSN != "" {
		db, err := sql.Open("pgx", cfg.PostgresDSN)
		if err != nil {
			log.Fatal("failed to open PostgreSQL", zap.Error(err))
		}
		defer db.Close()

		if err := db.PingContext(ctx); err != nil {
			log.Fatal("failed to ping PostgreSQL", zap.Error(err))
		}
		if err := taskRepoPg.InitPostgresTaskSchema(db); err != nil {
			log.Fatal("failed to initialize PostgreSQL schema", zap.Error(err))
		}

		tasksRepo = taskRepoPg.NewTaskRepoPostgres(db)
		assignmentsRepo = taskRepoPg.NewAssignmentRepoPostgres(db)
		outboxRepo = taskRepoPg.NewOutboxRepoPostgres(db)
		log.Info("✅ PostgreSQL conectado")
	} else {
		db, err := sql.Open("sqlite", cfg.SQLitePath)
		if err != nil {
			log.Fatal("failed to open SQLite", zap.Error(err))
		}
		defer db.Close()

		if err := db.PingContext(ctx); err != nil {
			log.Fatal("failed to ping SQLite", zap.Error(err))
		}
		if err := taskRepoLite.InitTaskSchema(db); err != nil {
			log.Fatal("failed to initialize SQLite schema", zap.Error(err))
		}

		tasksRepo = taskRepoLite.NewTaskRepoSQLite(db)
		assignmentsRepo = taskRepoLite.NewAssignmentRepoSQLite(db)
		outboxRepo = taskRepoLite.NewOutboxRepoSQLite(db)
		log.Info("✅ SQLite listo", zap.String("path", cfg.SQLitePath))
	}

	// ---------------- Cache ----------------
	var cacheInstance sharedCache.Cache
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Warn("⚠️ Redis no disponible, cache en memoria:", zap.Error(err))
		cacheInstance = taskCache.NewInMemoryCache(cfg.CacheTTL, 3*cfg.CacheTTL)
	} else {
		cacheInstance = taskCache.NewRedisTaskCache(rdb, cfg.CacheTTL)
		log.Info("✅ Redis conectado, cache habilitado")
	}

	// ------------- Analítica ---------------
	var analytics taskDomain.TaskAnalyticsRepository
	if cfg.ClickHouseAddr != "" {
		repo, err := clickhouse.NewTaskAnalyticsRepo(cfg.ClickHouseAddr, cfg.ClickHouseDB)
		if err != nil {
			log.Warn("⚠️ ClickHouse no disponible, analítica deshabilitada", zap.Error(err))
		} else if err := repo.InitSchema(); err != nil {
			log.Warn("⚠️ No se pudo inicializar el esquema de ClickHouse", zap.Error(err))
		} else {
			analytics = repo
			log.Info("✅ ClickHouse conectado, analítica habilitada")
		}
	}

	// ------------- Directorio --------------
	var userDirectory directoryDomain.UserDirectory
	var adminDirectory notificationDomain.AdminDirectory
	if cfg.MongoURI != "" {
		mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
		if err != nil {
			log.Warn("⚠️ MongoDB no disponible, directorio deshabilitado", zap.Error(err))
		} else {
			defer mongoClient.Disconnect(ctx)
			dir, err := directoryRepo.NewUserDirectoryMongoDB(ctx, mongoClient, cfg.MongoDB)
			if err != nil {
				log.Warn("⚠️ MongoDB no responde, directorio deshabilitado", zap.Error(err))
			} else {
				userDirectory = dir
				adminDirectory = dir
				log.Info("✅ MongoDB conectado, directorio de usuarios habilitado")
			}
		}
	}

	// ------------- Notificador -------------
	var notifier notificationDomain.Notifier
	if cfg.SMTPAddr != "" {
		notifier = mail.NewSMTPNotifier(cfg.SMTPAddr, cfg.SMTPFrom, cfg.SMTPUser, cfg.SMTPPass, log)
		log.Info("✅ SMTP configurado", zap.String("addr", cfg.SMTPAddr))
	} else {
		notifier = lognotify.NewLogNotifier(log)
		log.Info("⚡️Sin SMTP: las notificaciones se vuelcan al log")
	}

	// --------------- Servicios -------------
	taskService := taskApp.NewTaskService(tasksRepo, assignmentsRepo, cacheInstance, analytics, notifier, log)
	notificationService := notificationApp.NewService(notifier, assignmentsRepo, adminDirectory, log)
	notificationConsumer := notificationEvents.NewNotificationConsumer(notificationService, log)

	// ---------------- Events ---------------
	var eventPublisher sharedBus.EventPublisher

	if cfg.UseKafka {
		log.Info("🚀 Usando Kafka como bus de eventos")

		taskWriter := kafka.NewWriter(kafka.WriterConfig{
			Brokers: cfg.KafkaBrokers,
			Topic:   cfg.KafkaTopicTask,
		})
		defer taskWriter.Close()

		eventPublisher = infraEvents.NewKafkaPublisher(taskWriter, log)

		taskKafkaReader := kafka.NewReader(kafka.ReaderConfig{
			Brokers:  cfg.KafkaBrokers,
			Topic:    cfg.KafkaTopicTask,
			GroupID:  "taskboard-notification-service",
			MinBytes: 10e3, // 10KB
			MaxBytes: 10e6, // 10MB
		})
		defer taskKafkaReader.Close()

		consumerAdapter := infraEvents.NewConsumerAdapter(taskKafkaReader, notificationConsumer, log)
		consumerAdapter.Start(ctx)

	} else {
		log.Info("⚡️Usando bus de eventos en memoria (canales de Go)")

		inMemoryTaskBus := infraEvents.NewInMemoryEventBus(taskDomain.TaskTopic)
		eventPublisher = inMemoryTaskBus

		taskEventsChannel := inMemoryTaskBus.Subscribe(10)

		log.Info("🎧 Iniciando listener en memoria para eventos de tarea")
		notificationEvents.BackgroundConsumerChan(ctx, taskEventsChannel, notificationConsumer)
	}

	// ------------ Outbox Worker ------------
	// Se podría ejecutar externamente
	outboxWorker := infraRelayer.NewOutboxWorker(outboxRepo, eventPublisher, taskDomain.NewEventRegistry(), cfg.OutboxPeriod, cfg.OutboxLimit, log)
	outboxWorker.Start(ctx)

	// ---------------- HTTP ----------------
	router := gin.Default()
	authn := identityHttp.Middleware()

	taskHandler := taskHttp.NewTaskHandler(taskService)
	taskHttp.RegisterTaskRoutes(router, taskHandler, authn)

	if userDirectory != nil {
		userHandler := directoryHttp.NewUserHandler(userDirectory)
		directoryHttp.RegisterUserRoutes(router, userHandler, authn)
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	log.Info("🚀 Server running",
		zap.String("url", "http://localhost:"+cfg.HTTPPort),
	)
	if err := router.Run(":" + cfg.HTTPPort); err != nil {
		log.Fatal("failed to start server: %v", zap.Error(err))
	}
}

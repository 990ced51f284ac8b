package di

import (
	"fmt"

	"chat-companion-analytics/backend/ai"
	insightsapi "chat-companion-analytics/backend/insights/api"
	insights "chat-companion-analytics/backend/insights/service"
	journalapi "chat-companion-analytics/backend/journal/api"
	"chat-companion-analytics/backend/journal/repository"
	journalsvc "chat-companion-analytics/backend/journal/service"
	"chat-companion-analytics/backend/pkg/cache"
	"chat-companion-analytics/backend/pkg/config"
	"chat-companion-analytics/backend/pkg/jwt"
	"chat-companion-analytics/backend/pkg/logger"
	sharedredis "chat-companion-analytics/backend/shared/redis"
	usageapi "chat-companion-analytics/backend/usage/api"
	usagerepo "chat-companion-analytics/backend/usage/repository"
	usagesvc "chat-companion-analytics/backend/usage/service"

	"gorm.io/gorm"
)

// Container holds all the dependencies for the application
type Container struct {
	DB         *gorm.DB
	Logger     *logger.Logger
	JWTService *jwt.Service

	EventStore      *repository.GormEventStore
	JournalService  *journalsvc.JournalService
	SessionReader   *insights.PaginatedSessionReader
	UsageAggregator *usagesvc.UsageAggregator

	EventHandler   *journalapi.EventHandler
	SessionHandler *insightsapi.SessionHandler
	UsageHandler   *usageapi.UsageHandler
}

// New creates a new dependency injection container
func New(db *gorm.DB, cfg *config.Config, log *logger.Logger) (*Container, error) {
	if cfg == nil {
		cfg = config.Get()
	}
	if log == nil {
		log = logger.GetGlobal()
	}

	jwtService := jwt.NewService(cfg.JWT.Secret, cfg.JWT.ExpiryHours)

	// Event log and derivation engine
	store := repository.NewGormEventStore(db)
	if err := store.Migrate(); err != nil {
		return nil, fmt.Errorf("failed to migrate event store: %w", err)
	}
	maxRows := cfg.Features.MaxScanRows
	reader := insights.NewPaginatedSessionReader(store, maxRows, log)

	// Usage counters and badges
	usageRepository := usagerepo.NewGormUsageRepository(db)
	if err := usageRepository.Migrate(); err != nil {
		return nil, fmt.Errorf("failed to migrate usage store: %w", err)
	}
	var stamps usagesvc.DayStamper
	if cfg.Redis.Enabled {
		stamps = sharedredis.NewClient(cfg.Redis.URL)
	}
	aggregator := usagesvc.NewUsageAggregator(usageRepository, usagesvc.NewLogNotifier(log), stamps, log)

	// External collaborators; the bot is optional in development
	var bot journalsvc.BotAnswerer
	if cfg.Services.BotServiceURL != "" {
		client, err := ai.NewBotClient(cfg.Services.BotServiceURL, log)
		if err != nil {
			return nil, fmt.Errorf("failed to create bot client: %w", err)
		}
		bot = client
	}
	sentiment := ai.NewSentimentClient(cfg.Services.SentimentServiceURL, log)

	journalService := journalsvc.NewJournalService(
		store,
		reader.Locator(),
		reader.Assembler(),
		bot,
		sentiment,
		aggregator,
		cfg.Features.HistoryWindowTurns,
		log,
	)

	var responseCache *cache.Cache
	if cfg.Cache.Enabled {
		responseCache = cache.NewCache()
	}

	return &Container{
		DB:              db,
		Logger:          log,
		JWTService:      jwtService,
		EventStore:      store,
		JournalService:  journalService,
		SessionReader:   reader,
		UsageAggregator: aggregator,
		EventHandler:    journalapi.NewEventHandler(journalService),
		SessionHandler:  insightsapi.NewSessionHandler(reader, responseCache),
		UsageHandler:    usageapi.NewUsageHandler(aggregator),
	}, nil
}

package app

import (
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/templui/estatedesk/internal/config"
	"github.com/templui/estatedesk/internal/db"
	"github.com/templui/estatedesk/internal/markdown"
	"github.com/templui/estatedesk/internal/repository"
	"github.com/templui/estatedesk/internal/service"
	"github.com/templui/estatedesk/internal/service/ai"
	"github.com/templui/estatedesk/internal/service/payment"
	"github.com/templui/estatedesk/internal/service/social"
	"github.com/templui/estatedesk/internal/service/video"
	"github.com/templui/estatedesk/internal/storage"
)

const videoAPITimeout = 5 * time.Minute

type App struct {
	Cfg                 *config.Config
	DB                  *sqlx.DB
	Parser              *markdown.Parser
	AuthService         *service.AuthService
	AgentService        *service.AgentService
	EmailService        *service.EmailService
	FileService         *service.FileService
	SubscriptionService *service.SubscriptionService
	CreditService       *service.CreditService
	PropertyService     *service.PropertyService
	CustomFieldService  *service.CustomFieldService
	UploadTokenService  *service.UploadTokenService
	CurrencyService     *service.CurrencyService
	ExportService       *service.ExportService
	AnalyticsService    *service.AnalyticsService
	AIService           *service.AIService
	FacebookService     *service.FacebookService
	SitemapService      *service.SitemapService
	LegalService        *service.LegalService
	PaymentService      payment.Provider
	Facebook            *social.Facebook
}

func New(cfg *config.Config) (*App, error) {
	// Initialize database
	database, err := db.Init(cfg.DBDriver, cfg.DBConnection)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %v", err)
	}

	// Run database migrations
	err = db.RunMigrations(database.DB, cfg.DBDriver)
	if err != nil {
		return nil, fmt.Errorf("failed to run migrations: %v", err)
	}

	// Storage
	fileStorage, err := storage.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %v", err)
	}

	a := Build(cfg, database, fileStorage)

	// Initialize payment provider based on config
	a.PaymentService, err = payment.NewProvider(cfg, a.SubscriptionService)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize payment provider: %v", err)
	}

	err = a.CurrencyService.EnsureSeeded()
	if err != nil {
		return nil, fmt.Errorf("failed to seed currencies: %v", err)
	}

	return a, nil
}

// Build wires repositories, clients and services around an open database and
// storage. The payment provider is left for the caller.
func Build(cfg *config.Config, database *sqlx.DB, fileStorage storage.Storage) *App {
	// Repositories
	agentRepository := repository.NewAgentRepository(database)
	tokenRepository := repository.NewTokenRepository(database)
	fileRepository := repository.NewFileRepository(database)
	subscriptionRepository := repository.NewSubscriptionRepository(database)
	propertyRepository := repository.NewPropertyRepository(database)
	customFieldRepository := repository.NewCustomFieldRepository(database)
	uploadTokenRepository := repository.NewUploadTokenRepository(database)
	currencyRepository := repository.NewCurrencyRepository(database)

	// External clients
	aiClient := ai.NewClient(ai.Config{
		BaseURL:         cfg.AIAPIURL,
		APIKey:          cfg.AIAPIKey,
		TextModel:       cfg.AITextModel,
		ImageModel:      cfg.AIImageModel,
		TranscribeModel: cfg.AITranscribeModel,
		Timeout:         cfg.AITimeout,
	})
	videoClient := video.NewClient(video.Config{
		BaseURL:   cfg.VideoAPIURL,
		AccountID: cfg.VideoAccountID,
		APIToken:  cfg.VideoAPIToken,
		Timeout:   videoAPITimeout,
	})
	facebook := social.NewFacebook(social.FacebookConfig{
		AppID:        cfg.FacebookAppID,
		AppSecret:    cfg.FacebookAppSecret,
		RedirectURL:  cfg.AppURL + "/api/facebook/callback",
		GraphVersion: cfg.FacebookGraphVersion,
		GraphURL:     cfg.FacebookGraphURL,
	})
	parser := markdown.NewParser()

	// Services
	emailService := service.NewEmailService(
		cfg.ResendAPIKey,
		cfg.EmailFrom,
		cfg.AppURL,
		cfg.AppName,
		cfg.IsDevelopment(),
	)
	fileService := service.NewFileService(fileRepository, fileStorage)
	subscriptionService := service.NewSubscriptionService(subscriptionRepository, agentRepository)
	creditService := service.NewCreditService(agentRepository, subscriptionService)

	agentService := service.NewAgentService(
		agentRepository,
		propertyRepository,
		fileService,
		emailService,
		subscriptionService,
		videoClient,
	)
	authService := service.NewAuthService(
		agentRepository,
		tokenRepository,
		agentService,
		emailService,
		cfg.JWTSecret,
		cfg.IsProduction(),
		cfg.JWTExpiry,
		cfg.TokenMagicLinkExpiry,
	)
	propertyService := service.NewPropertyService(
		propertyRepository,
		customFieldRepository,
		currencyRepository,
		uploadTokenRepository,
		agentRepository,
		subscriptionService,
		fileService,
		emailService,
		creditService,
		videoClient,
		aiClient,
	)
	uploadTokenService := service.NewUploadTokenService(
		uploadTokenRepository,
		propertyRepository,
		agentRepository,
		customFieldRepository,
		currencyRepository,
		cfg.AppURL,
		cfg.UploadTokenDefaultExpiry,
		cfg.UploadTokenMaxExpiry,
	)
	aiService := service.NewAIService(
		aiClient,
		propertyService,
		propertyRepository,
		customFieldRepository,
		agentRepository,
		creditService,
		fileService,
	)
	facebookService := service.NewFacebookService(
		facebook,
		agentRepository,
		propertyService,
		subscriptionService,
		cfg.AppURL,
	)

	return &App{
		Cfg:                 cfg,
		DB:                  database,
		Parser:              parser,
		AuthService:         authService,
		AgentService:        agentService,
		EmailService:        emailService,
		FileService:         fileService,
		SubscriptionService: subscriptionService,
		CreditService:       creditService,
		PropertyService:     propertyService,
		CustomFieldService:  service.NewCustomFieldService(customFieldRepository),
		UploadTokenService:  uploadTokenService,
		CurrencyService:     service.NewCurrencyService(currencyRepository),
		ExportService:       service.NewExportService(propertyRepository, customFieldRepository, subscriptionService, cfg.AppURL),
		AnalyticsService:    service.NewAnalyticsService(propertyRepository),
		AIService:           aiService,
		FacebookService:     facebookService,
		SitemapService:      service.NewSitemapService(propertyRepository, agentRepository, cfg.AppURL),
		LegalService:        service.NewLegalService(cfg.ContentPath, parser),
		Facebook:            facebook,
	}
}

func (a *App) Close() error {
	if a.DB != nil {
		return a.DB.Close()
	}
	return nil
}

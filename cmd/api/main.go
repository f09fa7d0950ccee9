package main

import (
	"context"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	ginadapter "github.com/awslabs/aws-lambda-go-api-proxy/gin"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/imrishuroy/abc-church-payments/internal/aws"
	"github.com/imrishuroy/abc-church-payments/internal/config"
	"github.com/imrishuroy/abc-church-payments/internal/handlers"
	"github.com/imrishuroy/abc-church-payments/internal/logger"
	"github.com/imrishuroy/abc-church-payments/internal/metrics"
	"github.com/imrishuroy/abc-church-payments/internal/mpesa"
	"github.com/imrishuroy/abc-church-payments/internal/notify"
	"github.com/imrishuroy/abc-church-payments/internal/payments"
	"github.com/imrishuroy/abc-church-payments/internal/transactions"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
)

const serviceName = "abc-church-payments-api"

type routerDeps struct {
	Log         zerolog.Logger
	Metrics     *metrics.Metrics
	CORSOrigins []string
	Payments    handlers.HandlerConfig
}

func setupRouter(deps routerDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(deps.Log))
	if deps.Metrics != nil {
		r.Use(deps.Metrics.Middleware())
	}
	if len(deps.CORSOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     deps.CORSOrigins,
			AllowMethods:     []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", logger.RequestIDHeader},
			ExposeHeaders:    []string{"Content-Length", logger.RequestIDHeader},
			AllowCredentials: true,
		}))
	}

	// health
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if deps.Metrics != nil {
		r.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))
	}

	handlers.RegisterPaymentRoutes(r, deps.Payments)

	return r
}

func main() {
	// bootstrap logger until LOG_LEVEL/LOG_FORMAT are known
	log := logger.New(logger.Options{ServiceName: serviceName})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	log = logger.New(logger.Options{
		ServiceName: serviceName,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
	})
	if cfg.App.IsProd() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx := log.WithContext(context.Background())

	var clients *aws.AWSClients
	if cfg.Storage.Backend == config.BackendDynamoDB || cfg.Storage.PaymentsQueueURL != "" || cfg.AWS.CloudWatchNamespace != "" {
		clients, err = aws.NewAWSClients(ctx, cfg.AWS.Region, cfg.AWS.EndpointOverride)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to init aws clients")
		}
	}

	var store transactions.Store
	switch cfg.Storage.Backend {
	case config.BackendMemory:
		log.Warn().Msg("using in-memory transaction store; records are lost on restart")
		store = transactions.NewMemoryStore()
	default:
		store = transactions.NewDynamoStore(clients.DynamoDB, cfg.Storage.TransactionsTable)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	promMetrics := metrics.New(reg)

	observers := payments.Observers{promMetrics}
	if cfg.AWS.CloudWatchNamespace != "" {
		observers = append(observers, notify.NewMetricsPublisher(clients.CloudWatch, cfg.AWS.CloudWatchNamespace))
	}

	var publisher payments.EventPublisher
	if cfg.Storage.PaymentsQueueURL != "" {
		publisher = notify.NewPublisher(clients.SQS, cfg.Storage.PaymentsQueueURL)
	} else {
		log.Info().Msg("PAYMENTS_QUEUE_URL not set; payment events are not published")
	}

	callbackURL, err := payments.CallbackURL(cfg.Mpesa.CallbackBaseURL, cfg.Mpesa.CallbackSecret)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid callback url")
	}

	daraja := mpesa.NewClient(mpesa.BaseURL(cfg.Mpesa.Env), cfg.Mpesa.ConsumerKey, cfg.Mpesa.ConsumerSecret, cfg.Mpesa.HTTPTimeout)

	var admins gin.Accounts
	if cfg.App.AdminUser != "" && cfg.App.AdminPass != "" {
		admins = gin.Accounts{cfg.App.AdminUser: cfg.App.AdminPass}
	} else {
		log.Warn().Msg("ADMIN_USER/ADMIN_PASS not set; admin listing disabled")
	}

	r := setupRouter(routerDeps{
		Log:         log,
		Metrics:     promMetrics,
		CORSOrigins: cfg.App.CORSAllowOrigins,
		Payments: handlers.HandlerConfig{
			Initiator: payments.NewInitiator(payments.InitiatorConfig{
				ShortCode:        cfg.Mpesa.ShortCode,
				Passkey:          cfg.Mpesa.Passkey,
				CallbackURL:      callbackURL,
				AccountReference: cfg.Mpesa.AccountReference,
				TransactionDesc:  cfg.Mpesa.TransactionDesc,
				Timeout:          cfg.Mpesa.HTTPTimeout,
			}, daraja, daraja, store, observers),
			Reconciler:    payments.NewReconciler(cfg.Mpesa.CallbackSecret, store, publisher, observers),
			Status:        payments.NewStatusQuery(store, cfg.Mpesa.PendingTTL),
			Transactions:  store,
			AdminAccounts: admins,
		},
	})

	log.Info().
		Str("mpesa_env", cfg.Mpesa.Env).
		Str("store_backend", cfg.Storage.Backend).
		Msg("payments api configured")

	// if environment variable RUN_LOCAL is set to "true", run local HTTP server for development.
	if cfg.App.RunLocal {
		addr := ":" + cfg.App.Port
		log.Info().Str("addr", addr).Msg("running local server")
		if err := r.Run(addr); err != nil {
			log.Fatal().Err(err).Msg("failed to run local server")
		}
		return
	}

	// lambda adapter
	adapter := ginadapter.New(r)

	lambda.Start(func(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
		return adapter.ProxyWithContext(ctx, req)
	})
}

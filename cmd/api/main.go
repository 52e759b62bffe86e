package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"arxiv_rag_go_backend/cmd/api/config"
	"arxiv_rag_go_backend/internal/api"
	"arxiv_rag_go_backend/internal/auth"
	"arxiv_rag_go_backend/internal/database"
	"arxiv_rag_go_backend/internal/llm"
	"arxiv_rag_go_backend/internal/logging"
	"arxiv_rag_go_backend/internal/services"
	"arxiv_rag_go_backend/internal/utils/broker"
	"arxiv_rag_go_backend/internal/vectordb"
	"arxiv_rag_go_backend/internal/wsocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

func main() {
	issueToken := flag.String("issue-token", "", "print a signed API token for the given subject and exit")
	tokenTTL := flag.Duration("token-ttl", 0, "lifetime of the issued token (0 = no expiry)")
	flag.Parse()

	envErr := godotenv.Load()
	cfg := config.Load()

	if *issueToken != "" {
		if cfg.AuthJWTSecret == "" {
			fmt.Fprintln(os.Stderr, "AUTH_JWT_SECRET is not set")
			os.Exit(1)
		}
		var exp int64
		if *tokenTTL > 0 {
			exp = time.Now().Add(*tokenTTL).Unix()
		}
		token, err := auth.IssueToken(cfg.AuthJWTSecret, *issueToken, exp)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		fmt.Println(token)
		return
	}

	logger, err := logging.Setup(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat, File: cfg.LogFile})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to set up logging")
	}
	if envErr != nil {
		logger.Debug().Msg("No .env file found")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logger.WithContext(ctx)

	db, err := database.InitDB(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		logger.Fatal().Err(err).Str("driver", cfg.DBDriver).Msg("Failed to initialize database")
	}
	defer database.Close(db)

	provider, closeProvider, err := llm.New(ctx, llm.Options{
		Provider:      cfg.LLMProvider,
		OllamaBaseURL: cfg.OllamaBaseURL,
		OllamaModel:   cfg.OllamaModel,
		GeminiAPIKey:  cfg.GeminiAPIKey,
		GeminiModel:   cfg.GeminiModel,
		Timeout:       cfg.LLMTimeout,
	})
	if err != nil {
		logger.Fatal().Err(err).Str("provider", cfg.LLMProvider).Msg("Failed to create LLM provider")
	}
	defer closeProvider()

	var embedder vectordb.Embedder
	if cfg.Retriever == vectordb.KindEmbedding {
		embedder, err = llm.NewOllamaEmbedder(cfg.OllamaBaseURL, cfg.OllamaEmbedModel)
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to create embedder")
		}
	}
	retriever, err := vectordb.New(cfg.Retriever, cfg.TFIDFMaxFeatures, embedder)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create retriever")
	}

	messageBroker := broker.NewBroker()
	httpClient := &http.Client{Timeout: 30 * time.Second}

	ragService := services.NewRAGService(
		services.NewArxivService(cfg.ArxivAPIURL, httpClient),
		services.NewContentAggregationService(cfg.ArxivPDFBaseURL),
		services.NewPaperStore(db),
		services.NewHistoryStore(db),
		retriever,
		provider,
		messageBroker,
		cfg.ChunkSize,
	)

	restored, err := ragService.RestoreIndex(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to restore index, starting empty")
	} else {
		logger.Info().Int("chunks", restored).Str("retriever", retriever.Stats().Kind).Msg("Index restored")
	}

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), logging.Middleware(logger))

	corsConfig := cors.Config{
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization", logging.RequestIDHeader},
		ExposeHeaders: []string{"Content-Length", logging.RequestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	if cfg.AllowAllOrigins() {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
		corsConfig.AllowCredentials = true
	}
	r.Use(cors.New(corsConfig))

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}
	wsHandler := wsocket.NewHandler(ragService, upgrader, messageBroker)

	referenceLoader := services.NewReferenceLoader(cfg.ArxivEprintBaseURL, httpClient, services.NewReferenceStore(db))
	api.SetupRoutes(r, ragService, referenceLoader, cfg.AuthJWTSecret)
	r.GET("/ws", auth.AuthMiddleware(cfg.AuthJWTSecret), func(c *gin.Context) {
		wsHandler.HandleWebSocket(c.Writer, c.Request)
	})

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info().
			Str("addr", cfg.Addr()).
			Str("provider", provider.Name()).
			Str("retriever", retriever.Stats().Kind).
			Msg("Server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Graceful shutdown failed")
	}
}

// server runs the SpeechToTalk translation backend: the offline-aware
// translation cache, the emergency phrasebook, the conversation turn engine,
// and the HTTP API the mobile app talks to.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/emifrog/speechtotalk/internal/api/handlers"
	"github.com/emifrog/speechtotalk/internal/cache"
	"github.com/emifrog/speechtotalk/internal/compress"
	"github.com/emifrog/speechtotalk/internal/conversation"
	"github.com/emifrog/speechtotalk/internal/database"
	"github.com/emifrog/speechtotalk/internal/metrics"
	"github.com/emifrog/speechtotalk/internal/middleware"
	"github.com/emifrog/speechtotalk/internal/services"
	"github.com/emifrog/speechtotalk/internal/translator"
)

func main() {
	dbPath := os.Getenv("DB_PATH")
	if dbPath == "" {
		dbPath = "./data/speechtotalk.db"
	}
	if err := os.MkdirAll("./data", 0755); err != nil {
		log.Printf("Warning: could not create data directory: %v", err)
	}

	db, err := database.Open(dbPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}

	// Composition root: every collaborator is constructed here and injected.
	store := cache.NewStore(database.NewKVStore(db), compress.New(compress.DefaultThreshold), time.Now)
	if v := os.Getenv("CACHE_LIMIT"); v != "" {
		if limit, err := strconv.Atoi(v); err == nil {
			store.SetCapacity(limit)
		}
	}

	google := translator.NewGoogleClient()
	probe := translator.NewNetProbe()
	orchestrator := services.NewOrchestrator(store, google, probe, services.NewPhrasebook())
	engine := conversation.NewEngine(google, db, time.Now)
	worker := services.NewOptimizeWorker(store, 0)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go worker.Start(ctx)

	router := gin.Default()
	router.Use(cors.Default())
	router.Use(metrics.HTTPMetrics())

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":         "ok",
			"remote_enabled": google.IsEnabled(),
			"online":         probe.IsOnline(),
		})
	})
	router.GET("/api/auth/status", middleware.GetAuthStatus)

	translateHandler := handlers.NewTranslateHandler(orchestrator, google)
	cacheHandler := handlers.NewCacheHandler(orchestrator, worker)
	conversationHandler := handlers.NewConversationHandler(engine)

	api := router.Group("/api")
	{
		api.POST("/translate", translateHandler.Translate)
		api.POST("/detect", translateHandler.Detect)
		api.POST("/languages/:code/download", translateHandler.DownloadLanguage)

		api.GET("/cache/stats", cacheHandler.GetStats)
		api.POST("/cache/optimize", cacheHandler.Optimize)
		api.GET("/cache/optimize/status", cacheHandler.OptimizeStatus)

		admin := api.Group("")
		admin.Use(middleware.AdminKeyAuth())
		{
			admin.DELETE("/cache", cacheHandler.Clear)
			admin.PUT("/cache/limit", cacheHandler.SetLimit)
		}

		conv := api.Group("/conversation")
		{
			conv.POST("", conversationHandler.Initialize)
			conv.DELETE("", conversationHandler.Deactivate)
			conv.GET("/participants", conversationHandler.GetParticipants)
			conv.POST("/participants", conversationHandler.AddParticipant)
			conv.DELETE("/participants/:id", conversationHandler.RemoveParticipant)
			conv.POST("/next", conversationHandler.NextParticipant)
			conv.POST("/utterances", conversationHandler.ProcessTextInput)
			conv.GET("/history", conversationHandler.GetHistory)
			conv.DELETE("/history", conversationHandler.ClearHistory)
		}
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	srv := &http.Server{Addr: ":" + port, Handler: router}
	go func() {
		log.Printf("SpeechToTalk backend listening on :%s", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Shutdown error: %v", err)
	}

	// Let fire-and-forget cache writes land before exit.
	store.Flush()
}

package main

import (
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/otomatiktech/consult-booking/internal/cache"
	"github.com/otomatiktech/consult-booking/internal/calendar"
	"github.com/otomatiktech/consult-booking/internal/config"
	"github.com/otomatiktech/consult-booking/internal/database"
	"github.com/otomatiktech/consult-booking/internal/gateway"
	"github.com/otomatiktech/consult-booking/internal/handler"
	"github.com/otomatiktech/consult-booking/internal/queue"
	"github.com/otomatiktech/consult-booking/internal/repository"
	"github.com/otomatiktech/consult-booking/internal/router"
	"github.com/otomatiktech/consult-booking/internal/service"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file loaded: %v", err)
	}
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// Redis is optional; a nil client degrades caching and slot locks
	// to no-ops and the database checks carry the invariants alone.
	redisClient := config.NewRedisClient()
	if redisClient == nil {
		log.Println("redis unavailable; availability cache and slot locks disabled")
	}
	slotCache := cache.NewSlotCache(redisClient, 60*time.Second)

	bookings := repository.NewBookingRepo(db)
	wallets := repository.NewWalletRepo(db)
	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	settings := repository.NewSettingsRepo(db)
	comments := repository.NewCommentRepo(db)
	stats := repository.NewStatsRepo(db)

	cal := calendar.NewLogService()
	gw := gateway.NewClient(cfg.FlwBaseURL, cfg.FlwSecretKey)
	publisher := service.PublisherFunc(queue.Publish)

	bookingSvc := service.NewBookingService(bookings, wallets, users, settings, comments, cal, slotCache, publisher)
	paymentSvc := service.NewPaymentService(
		bookings, wallets, users, cal, gw,
		service.NewLatestUnpaidMatcher(bookings),
		slotCache, publisher,
		cfg.FlwWebhookHash, cfg.RedirectURL,
	)
	walletSvc := service.NewWalletService(wallets, users)

	authH := handler.NewAuthHandler(cfg, users, tokens)
	bookingH := handler.NewBookingHandler(bookingSvc)
	paymentH := handler.NewPaymentHandler(paymentSvc)
	walletH := handler.NewWalletHandler(walletSvc)
	adminH := handler.NewAdminHandler(users, settings, stats, slotCache, tokens)

	e := echo.New()
	e.Validator = handler.NewValidator()
	router.RegisterRoutes(e, bookingH, paymentH)
	router.RegisterAuth(e, authH)
	router.RegisterProtected(e, cfg.JWTSecret, authH, bookingH, paymentH, walletH, adminH)

	go func() {
		if err := queue.StartBookingConsumer(); err != nil {
			log.Printf("booking consumer stopped: %v", err)
		}
	}()

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}

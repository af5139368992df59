package main

import (
	"context"

	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/linemk/online-store/internal/app"
	"github.com/linemk/online-store/internal/app/handlers"
	"github.com/linemk/online-store/internal/cart"
	"github.com/linemk/online-store/internal/config"
	"github.com/linemk/online-store/internal/jwt-new/jwtmiddleware"
	"github.com/linemk/online-store/internal/lib/logger"
	"github.com/linemk/online-store/internal/lib/logger/handlers/urllog"
	"github.com/linemk/online-store/internal/service"
	"github.com/linemk/online-store/internal/session"
	"github.com/linemk/online-store/internal/storage"
	"github.com/pkg/errors"
)

func main() {
	// загрузка конфигурации
	cfg := config.MustLoad()

	// инициализация логгера, зависит от настройки окружения
	log := logger.SetupLogger(cfg.Env)
	log.Info("starting app", slog.String("env", cfg.Env))

	// загружаем объект приложения: конфиг, подключение к БД и redis
	application, err := app.NewApp(log, cfg)
	if err != nil {
		log.Error("failed to initialize app", slog.Any("error", err))
		panic(errors.Wrap(err, "failed to initialize app"))
	}
	defer application.DB.Close()
	defer application.Redis.Close()

	router := chi.NewRouter()
	// настройка middleware
	router.Use(middleware.RequestID)
	router.Use(urllog.CustomLoggerMiddleware(log))
	router.Use(middleware.Recoverer)
	router.Use(middleware.URLFormat)
	// сессионная кука нужна всем маршрутам: корзина и её бейдж живут в сессии
	router.Use(session.Middleware(cfg.Session.CookieName))

	// реализация слоев по работе с БД и сессионным хранилищем
	userRepo := storage.NewUserRepository(application.DB)
	profileRepo := storage.NewProfileRepository(application.DB)
	productRepo := storage.NewProductRepository(application.DB)
	categoryRepo := storage.NewCategoryRepository(application.DB)
	orderRepo := storage.NewOrderRepository(application.DB)

	sessionStore := session.NewRedisStore(application.Redis, cfg.Session.TTL)
	cartEngine := cart.NewEngine(application.Logger, sessionStore, productRepo)

	authService := service.NewAuthService(application.Logger, userRepo, profileRepo, sessionStore, time.Duration(application.Config.JWT.TokenTTL)*time.Minute)
	catalogService := service.NewCatalogService(application.Logger, productRepo, categoryRepo)
	checkoutService := service.NewCheckoutService(application.Logger, application.DB, productRepo, orderRepo)
	orderService := service.NewOrderService(application.Logger, orderRepo)
	profileService := service.NewProfileService(application.Logger, userRepo, profileRepo)

	// эндпоинты аккаунтов
	router.Post("/register", handlers.RegisterHandler(application.Logger, authService))
	router.Post("/login", handlers.LoginHandler(application.Logger, authService))
	router.Post("/logout", handlers.LogoutHandler(application.Logger, cfg.Session.CookieName))
	router.Post("/password-reset", handlers.PasswordResetHandler(application.Logger, authService))
	router.Post("/password-reset/confirm", handlers.PasswordResetConfirmHandler(application.Logger, authService))

	// витрина каталога
	router.Get("/products", handlers.ProductListHandler(application.Logger, catalogService, cartEngine))
	router.Get("/products/{id}", handlers.ProductDetailHandler(application.Logger, catalogService))

	// корзина доступна и гостям
	router.Get("/cart", handlers.CartDetailHandler(application.Logger, cartEngine))
	router.Get("/cart/add/{id}", handlers.CartAddHandler(application.Logger, catalogService, cartEngine))
	router.Post("/cart/add/{id}", handlers.CartAddHandler(application.Logger, catalogService, cartEngine))
	router.Get("/cart/remove/{id}", handlers.CartRemoveHandler(application.Logger, cartEngine))
	router.Post("/cart/remove/{id}", handlers.CartRemoveHandler(application.Logger, cartEngine))

	// оформление заказа: гость оформляет анонимно, владелец токена становится владельцем заказа
	router.Group(func(r chi.Router) {
		optionalJWT := jwtmiddleware.NewOptionalJWTMiddleware()
		r.Use(optionalJWT)
		r.Get("/checkout", handlers.CheckoutFormHandler(application.Logger, cartEngine, profileService))
		r.Post("/checkout", handlers.CheckoutSubmitHandler(application.Logger, cartEngine, checkoutService))
	})

	// история заказов и профиль — только для авторизованных
	router.Group(func(r chi.Router) {
		jwtMW := jwtmiddleware.NewJWTMiddleware()
		r.Use(jwtMW)
		r.Get("/orders", handlers.OrderListHandler(application.Logger, orderService))
		r.Get("/orders/{id}", handlers.OrderDetailHandler(application.Logger, orderService))
		r.Get("/profile", handlers.ProfileHandler(application.Logger, profileService))
		r.Post("/profile", handlers.ProfileUpdateHandler(application.Logger, profileService))
	})

	srv := &http.Server{
		Addr:         cfg.HTTPServer.Address,
		Handler:      router,
		ReadTimeout:  cfg.HTTPServer.Timeout,
		WriteTimeout: cfg.HTTPServer.Timeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	go func() {
		log.Info("starting server", slog.String("address", cfg.HTTPServer.Address))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", slog.Any("error", err))
		}
	}()

	// graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	stopSign := <-stop
	log.Info("received shutdown signal", slog.String("signal", stopSign.String()))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("server shutdown failed", slog.Any("error", err))
	}
	log.Info("server gracefully stopped")
}

// Package server provides the HTTP server and routing for Money Master.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/portfolio-management-app/money-master/internal/api"
	"github.com/portfolio-management-app/money-master/internal/clientdata"
	"github.com/portfolio-management-app/money-master/internal/clients/coingecko"
	"github.com/portfolio-management-app/money-master/internal/clients/exchangerate"
	"github.com/portfolio-management-app/money-master/internal/clients/finnhub"
	"github.com/portfolio-management-app/money-master/internal/config"
	"github.com/portfolio-management-app/money-master/internal/database"
	"github.com/portfolio-management-app/money-master/internal/modules/assets"
	"github.com/portfolio-management-app/money-master/internal/modules/charts"
	"github.com/portfolio-management-app/money-master/internal/modules/currency"
	"github.com/portfolio-management-app/money-master/internal/modules/fund"
	"github.com/portfolio-management-app/money-master/internal/modules/market"
	"github.com/portfolio-management-app/money-master/internal/modules/portfolio"
	"github.com/portfolio-management-app/money-master/internal/modules/transactions"
)

// Config holds server configuration
type Config struct {
	Log         zerolog.Logger
	PortfolioDB *database.DB
	LedgerDB    *database.DB
	CacheDB     *database.DB
	Config      *config.Config
	Port        int
	DevMode     bool
}

// Server represents the HTTP server
type Server struct {
	router      *chi.Mux
	server      *http.Server
	log         zerolog.Logger
	portfolioDB *database.DB
	ledgerDB    *database.DB
	cacheDB     *database.DB
	cfg         *config.Config

	systemHandlers *SystemHandlers
	streamHub      *market.StreamHub
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	s := &Server{
		router:      chi.NewRouter(),
		log:         cfg.Log.With().Str("component", "server").Logger(),
		portfolioDB: cfg.PortfolioDB,
		ledgerDB:    cfg.LedgerDB,
		cacheDB:     cfg.CacheDB,
		cfg:         cfg.Config,
	}

	s.systemHandlers = NewSystemHandlers(cfg.Log, cfg.Config.DataDir,
		cfg.PortfolioDB, cfg.LedgerDB, cfg.CacheDB)

	s.setupMiddleware(cfg.DevMode)
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// StreamHub exposes the quote stream hub for lifecycle management.
func (s *Server) StreamHub() *market.StreamHub {
	return s.streamHub
}

// setupMiddleware configures middleware
func (s *Server) setupMiddleware(devMode bool) {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(middleware.Timeout(60 * time.Second))

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if !devMode {
		s.router.Use(middleware.Compress(5))
	}
}

// authMiddleware enforces the static bearer token when one is configured.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.APIToken == "" {
			next.ServeHTTP(w, r)
			return
		}
		if r.Header.Get("Authorization") != "Bearer "+s.cfg.APIToken {
			api.RespondError(w, http.StatusUnauthorized, "invalid or missing token", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// setupRoutes configures all routes
func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)

	cacheStore := clientdata.NewStore(s.cacheDB.Conn(), s.log)

	rateClient := exchangerate.NewClient(s.cfg.ExchangeRateURL, cacheStore, s.log)
	stockClient := finnhub.NewClient(s.cfg.FinnhubBaseURL, s.cfg.FinnhubAPIKey, cacheStore, s.log)
	cryptoClient := coingecko.NewClient(s.cfg.CoinGeckoBaseURL, cacheStore, s.log)

	assetRepo := assets.NewRepository(s.portfolioDB.Conn(), s.log)
	fundRepo := fund.NewRepository(s.portfolioDB.Conn(), s.log)
	portfolioRepo := portfolio.NewRepository(s.portfolioDB.Conn(), s.log)
	txRepo := transactions.NewRepository(s.ledgerDB.Conn(), s.log)

	assetService := assets.NewService(assetRepo, s.log)
	portfolioService := portfolio.NewService(portfolioRepo, assetRepo, fundRepo, s.log)
	txService := transactions.NewService(txRepo, assetRepo, fundRepo, s.portfolioDB.Conn(), s.log)
	chartsService := charts.NewService(assetRepo, txRepo, fundRepo, s.log)
	currencyService := currency.NewService(rateClient, s.log)
	marketService := market.NewService(stockClient, cryptoClient, s.log)

	portfolioHandler := portfolio.NewHandler(portfolioService, s.log)
	assetHandler := assets.NewHandler(assetService, txService, s.log)
	txHandler := transactions.NewHandler(txService, fundRepo, s.log)
	chartsHandler := charts.NewHandler(chartsService, s.log)
	currencyHandler := currency.NewHandler(currencyService, s.log)
	marketHandler := market.NewHandler(marketService, s.log)

	s.streamHub = market.NewStreamHub(marketService, s.log)

	s.router.Route("/api", func(r chi.Router) {
		r.Use(s.authMiddleware)

		r.Route("/portfolio", func(r chi.Router) {
			r.Get("/", portfolioHandler.HandleList)
			r.Post("/", portfolioHandler.HandleCreate)

			r.Route("/{portfolioId}", func(r chi.Router) {
				r.Get("/", portfolioHandler.HandleGet)
				r.Put("/", portfolioHandler.HandleRename)
				r.Delete("/", portfolioHandler.HandleDelete)

				// Invest fund
				r.Get("/fund", txHandler.HandleGetFund)
				r.Post("/fund", txHandler.HandleMoveToFund)

				// Transactions
				r.Get("/transactions", txHandler.HandlePortfolioHistory)
				r.Post("/transactions", txHandler.HandleApply)

				// Projections
				r.Get("/pieChart", chartsHandler.HandlePieChart)
				r.Get("/sankey", chartsHandler.HandleSankey)
				r.Get("/profitLoss", chartsHandler.HandleProfitLoss)

				// Assets
				r.Route("/{assetType}", func(r chi.Router) {
					r.Get("/", assetHandler.HandleList)
					r.Post("/", assetHandler.HandleCreate)
					r.Route("/{assetId}", func(r chi.Router) {
						r.Get("/", assetHandler.HandleGet)
						r.Put("/", assetHandler.HandleUpdate)
						r.Delete("/", assetHandler.HandleDelete)
						r.Get("/transactions", txHandler.HandleHistory)
					})
				})
			})
		})

		// Market data
		r.Route("/market", func(r chi.Router) {
			r.Get("/stock/{symbol}", marketHandler.HandleStockQuote)
			r.Get("/crypto/{coinCode}", marketHandler.HandleCryptoQuote)
			r.Get("/search/{assetType}", marketHandler.HandleSearch)
			r.Get("/stream", s.streamHub.HandleWS)
		})

		// Currencies
		r.Get("/currencies", currencyHandler.HandleList)
		r.Get("/currencies/convert", currencyHandler.HandleConvert)

		// System monitoring
		r.Route("/system", func(r chi.Router) {
			r.Get("/status", s.systemHandlers.HandleSystemStatus)
			r.Get("/database/stats", s.systemHandlers.HandleDatabaseStats)
		})
	})
}

// Start begins listening
func (s *Server) Start() error {
	s.streamHub.Start()
	s.log.Info().Str("addr", s.server.Addr).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	s.streamHub.Stop()
	return s.server.Shutdown(ctx)
}

// Router exposes the chi mux for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	api.RespondData(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration_ms", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}

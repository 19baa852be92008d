// Package api wires HTTP routes to their handlers using a
// dependency-injected Dependencies struct and router setup.
package api

import (
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"hldesk/internal/aitrader"
	"hldesk/internal/api/handlers"
	"hldesk/internal/api/middleware"
	"hldesk/internal/ratecache"
	"hldesk/internal/repository"
	"hldesk/internal/sampler"
	"hldesk/internal/venue"
)

// Dependencies holds everything the route table needs to construct
// handlers.
type Dependencies struct {
	Cache        *ratecache.Cache
	VenueHealth  *venue.HealthTracker
	Funding      *repository.FundingRepository
	Portfolios   *repository.PortfolioRepository
	Positions    *repository.PositionRepository
	Transactions *repository.TransactionRepository
	Snapshots    *repository.SnapshotRepository
	Traders      *repository.AiTraderRepository
	AiEngine     *aitrader.Engine
	Sampler      *sampler.Sampler
	Logger       *zap.Logger
}

// SetupRoutes builds the full router: /, /api/health, /api/funding/*,
// /api/paper/*, /api/ai/*, /api/internal/*.
func SetupRoutes(deps *Dependencies) *mux.Router {
	router := mux.NewRouter()

	router.Use(middleware.Recovery(deps.Logger))
	router.Use(middleware.Logging(deps.Logger))
	router.Use(middleware.CORS)

	health := handlers.NewHealthHandler(deps.Cache, deps.VenueHealth)
	funding := handlers.NewFundingHandler(deps.Cache, deps.Funding)
	paper := handlers.NewPaperHandler(deps.Cache, deps.Portfolios, deps.Positions, deps.Transactions, deps.Snapshots)
	ai := handlers.NewAiHandler(deps.Cache, deps.Traders, deps.Snapshots, deps.AiEngine)
	internalH := handlers.NewInternalHandler(deps.Cache, deps.Sampler)

	router.HandleFunc("/", health.Root).Methods("GET")
	router.HandleFunc("/api/health", health.GetHealth).Methods("GET")

	router.HandleFunc("/api/funding", funding.GetTopSpreads).Methods("GET")
	router.HandleFunc("/api/funding/history", funding.GetHistory).Methods("GET")
	router.HandleFunc("/api/funding/{asset}", funding.GetAsset).Methods("GET")

	router.HandleFunc("/api/paper/portfolios", paper.GetPortfolios).Methods("GET")
	router.HandleFunc("/api/paper/leaderboard", paper.GetLeaderboard).Methods("GET")
	router.HandleFunc("/api/paper/portfolios/{id}", paper.GetPortfolioDetail).Methods("GET")
	router.HandleFunc("/api/paper/snapshots", paper.GetSnapshots).Methods("GET")

	router.HandleFunc("/api/ai/traders", ai.GetTraders).Methods("GET")
	router.HandleFunc("/api/ai/traders/{name}", ai.GetTraderDetail).Methods("GET")
	router.HandleFunc("/api/ai/snapshots", ai.GetSnapshots).Methods("GET")
	router.HandleFunc("/api/ai/run/{name}", ai.RunCycle).Methods("POST")

	router.HandleFunc("/api/internal/snapshot", internalH.RunSnapshot).Methods("POST")

	return router
}

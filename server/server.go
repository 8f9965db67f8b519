package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/jrsteele09/masapp-server/auth"
	"github.com/jrsteele09/masapp-server/internal/config"
	"github.com/jrsteele09/masapp-server/kvstore"
	"github.com/jrsteele09/masapp-server/mfa"
	"github.com/jrsteele09/masapp-server/orders"
	"github.com/jrsteele09/masapp-server/qrsession"
	"github.com/jrsteele09/masapp-server/ratelimit"
	"github.com/jrsteele09/masapp-server/restaurants"
	"github.com/jrsteele09/masapp-server/token"
	"github.com/jrsteele09/masapp-server/users"
	"github.com/rs/zerolog/log"
)

// Repos holds every repository the server reads from or writes to.
type Repos struct {
	Users       users.UserRepo
	Restaurants restaurants.Repo
	QRSessions  qrsession.Repo
	Orders      orders.Repo
}

type Server struct {
	env        string // Environment (e.g., "DEV", "PROD")
	mux        *http.ServeMux
	routes     []string
	config     config.Config
	repos      Repos
	store      kvstore.Store
	auth       *auth.Service
	tokens     *token.Manager
	limiter    *ratelimit.Limiter
	qrSessions *qrsession.Manager
	orders     *orders.Service
	nowFunc    func() time.Time
}

type ServerOption func(*Server)

// WithNowFunc drives every clock in the server from now (primarily for testing).
func WithNowFunc(now func() time.Time) ServerOption {
	return func(s *Server) {
		s.nowFunc = now
	}
}

func New(config config.Config, repos Repos, store kvstore.Store, options ...ServerOption) (*Server, error) {
	s := &Server{
		env:     config.GetEnv(),
		mux:     http.NewServeMux(),
		config:  config,
		repos:   repos,
		store:   store,
		nowFunc: time.Now,
	}
	for _, opt := range options {
		opt(s)
	}

	s.tokens = token.New(
		token.NewHMACSigner(config.GetJWTSecret()),
		token.NewStoreRevocationList(store, s.nowFunc),
		token.WithIssuer(config.GetTokenIssuer()),
		token.WithTokenExpiry(config.GetAccessTokenExpiry(), config.GetRefreshTokenExpiry(), config.GetMFAChallengeExpiry()),
		token.WithNowFunc(s.nowFunc),
	)
	s.limiter = ratelimit.New(store, ratelimit.WithNowFunc(s.nowFunc))
	verifier := mfa.NewVerifier(config.GetAppName(), mfa.WithWindow(config.GetTOTPSkew()), mfa.WithNowFunc(s.nowFunc))

	authService, err := auth.NewService(
		auth.Repos{Users: repos.Users, Restaurants: repos.Restaurants},
		s.tokens, s.limiter, verifier,
		auth.WithNowTime(s.nowFunc),
		auth.WithLoginLimit(config.GetLoginMaxAttempts(), config.GetLoginWindow()),
		auth.WithBackupCodeCount(config.GetBackupCodeCount()),
		auth.WithBcryptCost(config.GetBcryptCost()),
	)
	if err != nil {
		return nil, fmt.Errorf("[Server New] failed to create auth service: %w", err)
	}
	s.auth = authService

	s.qrSessions = qrsession.New(repos.QRSessions,
		qrsession.WithValidity(config.GetQRSessionValidity()),
		qrsession.WithNowFunc(s.nowFunc),
	)
	s.orders = orders.NewService(repos.Orders, s.qrSessions, orders.WithNowFunc(s.nowFunc))

	if config.IsJWTSecretGenerated() {
		log.Warn().Msg("JWT_SECRET not set, using a random secret: tokens will not survive a restart")
	}

	// Bootstrap: ensure the super admin (and in DEV a demo restaurant) exist
	if _, err := s.InitialiseSystem(context.Background()); err != nil {
		return nil, fmt.Errorf("[Server New] Failed to initialise the system: %w", err)
	}

	s.initRoutes()
	s.logRoutes()

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteFunc(pattern string, handler http.HandlerFunc) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

// RunSweepers drops expired revocations, rate limit windows and QR sessions every interval
// until ctx is cancelled.
func (s *Server) RunSweepers(ctx context.Context, interval time.Duration) {
	logSweep := func(name string) func(int, error) {
		return func(removed int, err error) {
			if err != nil {
				log.Err(err).Str("sweeper", name).Msg("sweep failed")
				return
			}
			if removed > 0 {
				log.Debug().Str("sweeper", name).Int("removed", removed).Msg("expired entries removed")
			}
		}
	}

	if sweeper, ok := s.store.(kvstore.Sweeper); ok {
		go kvstore.RunSweeper(ctx, sweeper, interval, logSweep("store"))
	}
	go kvstore.RunSweeper(ctx, s.qrSessions, interval, logSweep("qr-sessions"))
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return // Skip logging in non-development environments
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)

		if len(parts) > 1 {
			logRoute(parts[0], parts[1])
		} else {
			logRoute("", parts[0])
		}
	}
}

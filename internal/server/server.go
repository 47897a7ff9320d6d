// Package server wires the stores, services, and handlers into one HTTP
// surface and owns the background loops (event fan-out, push delivery).
package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/ho8ae/growpromise-sub001/internal/backup"
	"github.com/ho8ae/growpromise-sub001/internal/cache"
	"github.com/ho8ae/growpromise-sub001/internal/commitment"
	"github.com/ho8ae/growpromise-sub001/internal/config"
	"github.com/ho8ae/growpromise-sub001/internal/event"
	"github.com/ho8ae/growpromise-sub001/internal/growth"
	"github.com/ho8ae/growpromise-sub001/internal/handler"
	"github.com/ho8ae/growpromise-sub001/internal/ledger"
	"github.com/ho8ae/growpromise-sub001/internal/middleware"
	"github.com/ho8ae/growpromise-sub001/internal/push"
	"github.com/ho8ae/growpromise-sub001/internal/queue"
	"github.com/ho8ae/growpromise-sub001/internal/store"
	ws "github.com/ho8ae/growpromise-sub001/internal/websocket"
)

type Server struct {
	db  *sql.DB
	bus *event.Bus
	hub *ws.Hub

	memberH     *handler.MemberHandler
	sessionH    *handler.SessionHandler
	commitmentH *handler.CommitmentHandler
	ledgerH     *handler.LedgerHandler
	plantH      *handler.PlantHandler
	syncH       *handler.SyncHandler
	cacheH      *handler.CacheHandler
	pushH       *handler.PushHandler
	backupH     *handler.BackupHandler

	sessions    *store.SessionStore
	members     *store.MemberStore
	notifier    *push.Notifier
	backupMgr   *backup.Manager
	rateLimiter *middleware.RateLimiter
	logger      *slog.Logger

	cancel context.CancelFunc
}

func New(db *sql.DB, cfg config.Config, logger *slog.Logger) *Server {
	bus := event.NewBus(logger.With("component", "bus"))
	hub := ws.NewHub(bus, logger.With("component", "websocket"))

	members := store.NewMemberStore(db)
	commitments := store.NewCommitmentStore(db)
	stickers := store.NewStickerStore(db)
	rewards := store.NewRewardStore(db)
	plants := store.NewPlantStore(db)
	sessions := store.NewSessionStore(db)
	pending := store.NewQueueStore(db)
	pushSubs := store.NewPushStore(db)
	backups := store.NewBackupStore(db)
	snapshots := store.NewCacheStore(db)

	growthSvc := growth.NewService(plants, cfg.Growth, bus, logger.With("component", "growth"))
	ledgerSvc := ledger.NewService(stickers, rewards, bus, logger.With("component", "ledger"))
	commitmentSvc := commitment.NewService(commitments, members, ledgerSvc, growthSvc, bus, logger.With("component", "commitment"))
	queueSvc := queue.NewService(pending, cfg.Queue, logger.With("component", "queue"))

	backupMgr := backup.NewManager(cfg.Backup, cfg.Database.Path, db, backups, logger.With("component", "backup"))

	var notifier *push.Notifier
	var pushH *handler.PushHandler
	if cfg.Push.VAPIDPublicKey != "" && cfg.Push.VAPIDPrivateKey != "" {
		pushSvc := push.NewService(cfg.Push.VAPIDPublicKey, cfg.Push.VAPIDPrivateKey)
		notifier = push.NewNotifier(pushSvc, pushSubs, members, bus, logger.With("component", "push"))
		pushH = handler.NewPushHandler(pushSubs, pushSvc, logger.With("component", "push_handler"))
	}

	return &Server{
		db:          db,
		bus:         bus,
		hub:         hub,
		memberH:     handler.NewMemberHandler(members, logger.With("component", "member")),
		sessionH:    handler.NewSessionHandler(members, sessions, logger.With("component", "session")),
		commitmentH: handler.NewCommitmentHandler(commitmentSvc, logger.With("component", "commitment_handler")),
		ledgerH:     handler.NewLedgerHandler(ledgerSvc, logger.With("component", "ledger_handler")),
		plantH:      handler.NewPlantHandler(growthSvc, logger.With("component", "plant_handler")),
		syncH:       handler.NewSyncHandler(queueSvc, commitmentSvc, growthSvc, ledgerSvc, logger.With("component", "sync")),
		cacheH:      handler.NewCacheHandler(cache.NewService(snapshots), logger.With("component", "cache")),
		pushH:       pushH,
		backupH:     handler.NewBackupHandler(backupMgr, logger.With("component", "backup_handler")),
		sessions:    sessions,
		members:     members,
		notifier:    notifier,
		backupMgr:   backupMgr,
		rateLimiter: middleware.NewRateLimiter(),
		logger:      logger,
	}
}

// Start launches the background loops: websocket fan-out, push delivery,
// and periodic session cleanup.
func (s *Server) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)

	go s.hub.Run(ctx)
	if s.notifier != nil {
		go s.notifier.Run(ctx)
	}
	go s.cleanupLoop(ctx)
}

// Stop cancels the background loops.
func (s *Server) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
}

func (s *Server) cleanupLoop(ctx context.Context) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n, err := s.sessions.DeleteExpired(); err != nil {
				s.logger.Error("delete expired sessions", "error", err)
			} else if n > 0 {
				s.logger.Info("expired sessions removed", "count", n)
			}
			s.rateLimiter.Cleanup()
		}
	}
}

func (s *Server) Router() http.Handler {
	outerMux := http.NewServeMux()

	// Public routes
	outerMux.HandleFunc("GET /health", s.healthHandler)
	outerMux.HandleFunc("GET /api/members", s.memberH.List)
	outerMux.HandleFunc("POST /api/login", s.rateLimited(s.sessionH.Login))

	// Protected routes behind the session check
	protectedMux := http.NewServeMux()
	s.registerProtectedRoutes(protectedMux)

	authMiddleware := middleware.RequireAuth(s.sessions, s.members)
	outerMux.Handle("/", authMiddleware(protectedMux))

	return middleware.RequestLogger(s.logger.With("component", "http"))(outerMux)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) rateLimited(h http.HandlerFunc) http.HandlerFunc {
	rl := middleware.RateLimit(s.rateLimiter, middleware.RealIP, 10, time.Minute)
	return func(w http.ResponseWriter, r *http.Request) {
		rl(h).ServeHTTP(w, r)
	}
}

func (s *Server) registerProtectedRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/logout", s.sessionH.Logout)

	// Members
	mux.Handle("POST /api/members", middleware.RequireGuardian(http.HandlerFunc(s.memberH.Create)))
	mux.HandleFunc("GET /api/members/{id}", s.memberH.Get)
	mux.Handle("PUT /api/members/{id}", middleware.RequireGuardian(http.HandlerFunc(s.memberH.Update)))
	mux.Handle("DELETE /api/members/{id}", middleware.RequireGuardian(http.HandlerFunc(s.memberH.Delete)))
	mux.HandleFunc("POST /api/members/{id}/pin", s.memberH.SetPIN)
	mux.Handle("DELETE /api/members/{id}/pin", middleware.RequireGuardian(http.HandlerFunc(s.memberH.ClearPIN)))

	// Commitments
	mux.HandleFunc("POST /api/commitments", s.commitmentH.Create)
	mux.HandleFunc("GET /api/commitments", s.commitmentH.List)
	mux.HandleFunc("GET /api/commitments/{id}", s.commitmentH.Get)
	mux.HandleFunc("PUT /api/commitments/{id}", s.commitmentH.Update)
	mux.HandleFunc("PUT /api/commitments/{id}/active", s.commitmentH.SetActive)
	mux.HandleFunc("DELETE /api/commitments/{id}", s.commitmentH.Delete)
	mux.HandleFunc("POST /api/commitments/{id}/assignments", s.commitmentH.Instantiate)
	mux.HandleFunc("GET /api/commitments/{id}/assignments", s.commitmentH.ListAssignments)

	// Assignments
	mux.HandleFunc("GET /api/assignments", s.commitmentH.MyAssignments)
	mux.HandleFunc("GET /api/assignments/{id}", s.commitmentH.GetAssignment)
	mux.HandleFunc("POST /api/assignments/{id}/submit", s.commitmentH.Submit)
	mux.HandleFunc("POST /api/assignments/{id}/approve", s.commitmentH.Approve)
	mux.HandleFunc("POST /api/assignments/{id}/reject", s.commitmentH.Reject)

	// Stickers and rewards
	mux.HandleFunc("GET /api/stickers", s.ledgerH.ListStickers)
	mux.HandleFunc("GET /api/stickers/balance", s.ledgerH.Balance)
	mux.HandleFunc("GET /api/redemptions", s.ledgerH.ListRedemptions)
	mux.HandleFunc("POST /api/rewards", s.ledgerH.CreateReward)
	mux.HandleFunc("GET /api/rewards", s.ledgerH.ListRewards)
	mux.HandleFunc("GET /api/rewards/{id}", s.ledgerH.GetReward)
	mux.HandleFunc("PUT /api/rewards/{id}", s.ledgerH.UpdateReward)
	mux.HandleFunc("DELETE /api/rewards/{id}", s.ledgerH.DeleteReward)
	mux.HandleFunc("POST /api/rewards/{id}/redeem", s.ledgerH.Redeem)

	// Plants
	mux.HandleFunc("GET /api/plant-types", s.plantH.ListTypes)
	mux.HandleFunc("POST /api/plants", s.plantH.Create)
	mux.HandleFunc("GET /api/plants", s.plantH.List)
	mux.HandleFunc("GET /api/plants/active", s.plantH.Active)
	mux.HandleFunc("GET /api/plants/{id}", s.plantH.Get)
	mux.HandleFunc("POST /api/plants/{id}/water", s.plantH.Water)
	mux.Handle("POST /api/plants/{id}/experience", middleware.RequireGuardian(http.HandlerFunc(s.plantH.GrantExperience)))
	mux.HandleFunc("POST /api/plants/{id}/advance", s.plantH.Advance)
	mux.HandleFunc("GET /api/plants/{id}/waterings", s.plantH.WateringHistory)

	// Offline action queue
	mux.HandleFunc("POST /api/queue", s.syncH.Enqueue)
	mux.HandleFunc("GET /api/queue", s.syncH.Pending)
	mux.HandleFunc("POST /api/queue/drain", s.syncH.Drain)

	// Snapshot cache
	mux.HandleFunc("PUT /api/snapshots/{entity}", s.cacheH.Put)
	mux.HandleFunc("GET /api/snapshots/{entity}", s.cacheH.Get)
	mux.HandleFunc("DELETE /api/snapshots/{entity}", s.cacheH.Delete)

	// Push notifications
	if s.pushH != nil {
		mux.HandleFunc("GET /api/push/vapid-key", s.pushH.VAPIDKey)
		mux.HandleFunc("POST /api/push/subscribe", s.pushH.Subscribe)
		mux.HandleFunc("GET /api/push/subscriptions", s.pushH.List)
		mux.HandleFunc("DELETE /api/push/subscriptions", s.pushH.Unsubscribe)
		mux.HandleFunc("POST /api/push/test", s.pushH.Test)
	}

	// Backups (guardian only)
	mux.Handle("GET /api/backups", middleware.RequireGuardian(http.HandlerFunc(s.backupH.List)))
	mux.Handle("GET /api/backups/status", middleware.RequireGuardian(http.HandlerFunc(s.backupH.Status)))
	mux.Handle("POST /api/backups", middleware.RequireGuardian(http.HandlerFunc(s.backupH.RunNow)))
	mux.Handle("POST /api/backups/{id}/restore", middleware.RequireGuardian(http.HandlerFunc(s.backupH.Restore)))
	mux.Handle("GET /api/backups/{id}/download", middleware.RequireGuardian(http.HandlerFunc(s.backupH.Download)))

	// WebSocket
	mux.HandleFunc("GET /ws", s.hub.Handler())
}

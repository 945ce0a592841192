package main

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel/trace"

	"petcare/internal/access"
	accessmetrics "petcare/internal/access/metrics"
	accounthandler "petcare/internal/account/handler"
	accountservice "petcare/internal/account/service"
	accountstore "petcare/internal/account/store"
	adminhandler "petcare/internal/admin/handler"
	appthandler "petcare/internal/appointments/handler"
	apptservice "petcare/internal/appointments/service"
	apptstore "petcare/internal/appointments/store"
	authhandler "petcare/internal/auth/handler"
	authservice "petcare/internal/auth/service"
	"petcare/internal/auth/store/revocation"
	chathandler "petcare/internal/chat/handler"
	chatservice "petcare/internal/chat/service"
	chatstore "petcare/internal/chat/store"
	jwttoken "petcare/internal/jwt_token"
	notifyhandler "petcare/internal/notifications/handler"
	notifyservice "petcare/internal/notifications/service"
	notifystore "petcare/internal/notifications/store"
	orderhandler "petcare/internal/orders/handler"
	orderservice "petcare/internal/orders/service"
	orderstore "petcare/internal/orders/store"
	pethandler "petcare/internal/pets/handler"
	petservice "petcare/internal/pets/service"
	petstore "petcare/internal/pets/store"
	"petcare/internal/platform/config"
	"petcare/internal/platform/metrics"
	ratelimitmetrics "petcare/internal/ratelimit/metrics"
	ratelimit "petcare/internal/ratelimit/middleware"
	ratelimitmodels "petcare/internal/ratelimit/models"
	ratelimitstore "petcare/internal/ratelimit/store"
	"petcare/internal/realtime"
	realtimemetrics "petcare/internal/realtime/metrics"
	recordhandler "petcare/internal/records/handler"
	recordservice "petcare/internal/records/service"
	recordstore "petcare/internal/records/store"
	"petcare/pkg/domain"
	audit "petcare/pkg/platform/audit"
	"petcare/pkg/platform/audit/mirror"
	"petcare/pkg/platform/audit/publisher"
	auditmemory "petcare/pkg/platform/audit/store/memory"
	auditpostgres "petcare/pkg/platform/audit/store/postgres"
	"petcare/pkg/platform/circuit"
	"petcare/pkg/platform/httputil"
	authmw "petcare/pkg/platform/middleware/auth"
	"petcare/pkg/platform/middleware/metadata"
	"petcare/pkg/platform/middleware/request"
	"petcare/pkg/platform/middleware/requesttime"
)

// accountStore is the account store as seen by every consumer: the account
// and auth services plus the admin and broadcast directories.
type accountStore interface {
	accountservice.Store
	ListActiveVerifiedAdmins(ctx context.Context) ([]domain.AccountID, error)
	ListActiveIDsByRoles(ctx context.Context, roles []domain.Role) ([]domain.AccountID, error)
}

type appointmentStore interface {
	apptservice.Store
	access.AppointmentStore
}

type stores struct {
	audit         audit.Store
	accounts      accountStore
	pets          petservice.Store
	appointments  appointmentStore
	records       recordservice.Store
	orders        orderservice.Store
	chat          chatservice.Store
	notifications notifyservice.Store
}

func newStores(in *infra) stores {
	if in.db != nil {
		return stores{
			audit:         auditpostgres.New(in.db),
			accounts:      accountstore.NewPostgres(in.db),
			pets:          petstore.NewPostgres(in.db),
			appointments:  apptstore.NewPostgres(in.db),
			records:       recordstore.NewPostgres(in.db),
			orders:        orderstore.NewPostgres(in.db),
			chat:          chatstore.NewPostgres(in.db),
			notifications: notifystore.NewPostgres(in.db),
		}
	}
	return stores{
		audit:         auditmemory.NewInMemoryStore(),
		accounts:      accountstore.NewInMemory(),
		pets:          petstore.NewInMemory(),
		appointments:  apptstore.NewInMemory(),
		records:       recordstore.NewInMemory(),
		orders:        orderstore.NewInMemory(),
		chat:          chatstore.NewInMemory(),
		notifications: notifystore.NewInMemory(),
	}
}

type app struct {
	router   http.Handler
	audit    *publisher.Publisher
	fanout   *realtime.FanOut
	accounts *accountservice.Service
}

func buildApp(cfg config.Server, in *infra, log *slog.Logger, tracer trace.Tracer) *app {
	st := newStores(in)
	appMetrics := metrics.New()

	// Audit
	auditOpts := []publisher.Option{
		publisher.WithAsyncBuffer(cfg.Audit.BufferSize),
		publisher.WithLogger(log),
		publisher.WithMetrics(publisher.NewMetrics()),
	}
	if in.kafka != nil {
		auditOpts = append(auditOpts, publisher.WithMirror(mirror.NewKafkaMirror(in.kafka, cfg.Kafka.AuditTopic,
			mirror.WithLogger(log),
			mirror.WithBreaker(circuit.New("audit-mirror", circuit.WithFailureThreshold(5))),
		)))
	}
	auditor := publisher.NewPublisher(st.audit, auditOpts...)

	// Access
	accessOpts := []access.Option{
		access.WithLogger(log),
		access.WithMetrics(accessmetrics.New()),
		access.WithTracer(tracer),
		access.WithOpaqueDenials(cfg.Access.OpaqueDenials),
	}
	ownership := access.NewOwnershipResolver(auditor, accessOpts...)
	relationships := access.NewRelationshipResolver(st.appointments, auditor, accessOpts...)
	authz := access.NewAuthorizer(relationships, ownership)
	roles := access.NewRoleGate(auditor, accessOpts...)

	// Realtime
	rtMetrics := realtimemetrics.New()
	fanoutOpts := []realtime.Option{realtime.WithLogger(log), realtime.WithMetrics(rtMetrics)}
	if in.redis != nil {
		fanoutOpts = append(fanoutOpts, realtime.WithBus(realtime.NewRedisBus(in.redis.Client, cfg.Realtime.BusChannel, log)))
	}
	registry := realtime.NewRegistry()
	fanout := realtime.NewFanOut(registry, st.accounts, fanoutOpts...)

	// Services
	notifications := notifyservice.New(st.notifications, st.accounts,
		notifyservice.WithLogger(log),
		notifyservice.WithAuditor(auditor),
		notifyservice.WithPusher(fanout),
	)

	var revocations authservice.RevocationList = revocation.NewInMemoryTRL()
	if in.redis != nil {
		revocations = revocation.NewRedisTRL(in.redis.Client)
	}
	tokens := jwttoken.NewJWTService(cfg.Auth.JWTSigningKey, cfg.Auth.JWTIssuer, cfg.Auth.JWTAudience)
	authSvc := authservice.New(st.accounts, tokens, revocations,
		authservice.WithLogger(log),
		authservice.WithAuditor(auditor),
		authservice.WithMetrics(appMetrics),
		authservice.WithTokenTTL(cfg.Auth.TokenTTL),
	)
	accounts := accountservice.New(st.accounts,
		accountservice.WithLogger(log),
		accountservice.WithAuditor(auditor),
		accountservice.WithNotifier(notifications),
		accountservice.WithMetrics(appMetrics),
	)
	pets := petservice.New(st.pets, authz,
		petservice.WithLogger(log),
		petservice.WithAuditor(auditor),
	)
	appointments := apptservice.New(st.appointments, st.pets, st.accounts, ownership,
		apptservice.WithLogger(log),
		apptservice.WithAuditor(auditor),
		apptservice.WithNotifier(notifications),
		apptservice.WithPusher(fanout),
	)
	records := recordservice.New(st.records, st.pets, authz,
		recordservice.WithLogger(log),
		recordservice.WithAuditor(auditor),
		recordservice.WithNotifier(notifications),
	)
	orders := orderservice.New(st.orders,
		orderservice.WithLogger(log),
		orderservice.WithAuditor(auditor),
	)
	chat := chatservice.New(st.chat, appointments, st.accounts, authz,
		chatservice.WithLogger(log),
		chatservice.WithAuditor(auditor),
		chatservice.WithRooms(fanout),
	)

	// Rate limiting
	var limitStore ratelimit.Store = ratelimitstore.NewInMemory()
	if in.redis != nil {
		limitStore = ratelimitstore.NewRedis(in.redis.Client)
	}
	limiter := ratelimit.New(limitStore,
		ratelimit.WithDisabled(cfg.Limits.Disabled),
		ratelimit.WithLogger(log),
		ratelimit.WithMetrics(ratelimitmetrics.New()),
		ratelimit.WithPolicy(ratelimitmodels.ClassAuth, ratelimitmodels.Policy{Limit: cfg.Limits.AuthPerMin, Window: time.Minute}),
		ratelimit.WithPolicy(ratelimitmodels.ClassWrite, ratelimitmodels.Policy{Limit: cfg.Limits.WritesPerMin, Window: time.Minute}),
	)

	// Routing
	authH := authhandler.New(authSvc, log)
	accountH := accounthandler.New(accounts, log)
	petH := pethandler.New(pets, ownership, log)
	apptH := appthandler.New(appointments, ownership, log)
	recordH := recordhandler.New(records, relationships, log)
	orderH := orderhandler.New(orders, ownership, log)
	chatH := chathandler.New(chat, log)
	notifyH := notifyhandler.New(notifications, ownership, log)
	adminH := adminhandler.New(auditor, log)
	wsH := realtime.NewHandler(registry, chat, realtime.HandlerConfig{
		SendBuffer:     cfg.Realtime.SendBuffer,
		WriteTimeout:   cfg.Realtime.WriteTimeout,
		AllowedOrigins: cfg.Realtime.AllowedOrigins,
	}, log, rtMetrics)

	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(request.RequestID)
	r.Use(metadata.ClientMetadata)
	r.Use(requesttime.Middleware)
	r.Use(request.Logger(log))

	r.Handle("/metrics", metrics.Handler())
	r.Get("/healthz", healthz(in))

	// Public
	r.Group(func(r chi.Router) {
		r.Use(limiter.RateLimit(ratelimitmodels.ClassAuth))
		authH.RegisterPublic(r)
		accountH.RegisterPublic(r)
	})
	r.Group(func(r chi.Router) {
		r.Use(authmw.OptionalAuth(authSvc, log))
		wsH.Register(r)
	})

	// Authenticated
	r.Group(func(r chi.Router) {
		r.Use(authmw.RequireAuth(authSvc, log))

		authH.RegisterProtected(r)
		petH.Register(r)
		apptH.Register(r)
		recordH.Register(r)
		orderH.Register(r)
		chatH.Register(r)
		notifyH.Register(r)

		r.Group(func(r chi.Router) {
			r.Use(roles.RequireRole(domain.RoleOwner, domain.RoleShelter, domain.RoleAdmin))
			r.Use(limiter.RateLimitCaller(ratelimitmodels.ClassWrite))
			petH.RegisterIntake(r)
			apptH.RegisterBooking(r)
		})

		r.Group(func(r chi.Router) {
			r.Use(roles.RequireRole(domain.RoleAdmin))
			accountH.RegisterAdmin(r)
			notifyH.RegisterAdmin(r)
			adminH.RegisterAdmin(r)
		})
	})

	return &app{router: r, audit: auditor, fanout: fanout, accounts: accounts}
}

type healthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Redis    string `json:"redis"`
}

func healthz(in *infra) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		resp := healthResponse{Status: "ok", Database: "memory", Redis: "disabled"}
		status := http.StatusOK
		if in.db != nil {
			resp.Database = "ok"
			if err := in.db.PingContext(ctx); err != nil {
				resp.Database, resp.Status, status = "unavailable", "degraded", http.StatusServiceUnavailable
			}
		}
		if in.redis != nil {
			resp.Redis = "ok"
			if err := in.redis.Health(ctx); err != nil {
				resp.Redis, resp.Status, status = "unavailable", "degraded", http.StatusServiceUnavailable
			}
		}
		httputil.WriteJSON(w, status, resp)
	}
}

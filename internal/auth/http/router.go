package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/moduhq/modu/internal/auth/service"
	"github.com/moduhq/modu/internal/auth/store"
	"github.com/moduhq/modu/pkg/httpx"
	"github.com/moduhq/modu/pkg/jwtx"
	"github.com/moduhq/modu/pkg/slogx"

	_ "github.com/moduhq/modu/api/auth" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	keys         *jwtx.KeySet
	verifier     jwtx.Verifier
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	store           store.Store
	AuthService     *service.AuthService
	TokenService    *service.TokenService
	PasswordService *service.PasswordService
}

func NewRouter(
	keys *jwtx.KeySet,
	verifier jwtx.Verifier,
	buildVersion string,
	st store.Store,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		keys:         keys,
		verifier:     verifier,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		logger:       logger,
	}

	// Set default middleware chain
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerLogin()
	r.registerSession()
	r.registerPassword()
	r.registerSystem()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			Modu Authentication Service API
//	@version		0.1.0
//	@description	Credential verification and token lifecycle service. Supports password and
//	@description	social login (Google, Kakao, Naver, Apple) with RS256-signed access and
//	@description	refresh tokens, verifiable via the JWKS endpoint.
//
//	@contact.name				Modu Team
//	@contact.url				https://github.com/moduhq/modu
//
//	@license.name				MIT
//	@license.url				https://opensource.org/licenses/MIT
//
//	@host						localhost:8080
//	@BasePath					/
//
//	@schemes					http https
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				JWT access token. Format: "Bearer {token}".
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerLogin() {
	login := &LoginHandler{Auth: r.AuthService}
	social := &SocialHandler{Auth: r.AuthService}

	// Credential endpoints carry strict per-IP limits to slow brute force
	r.Mux.Handle("POST /auth/login",
		httpx.Chain(http.HandlerFunc(login.HandleLogin),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
	r.Mux.Handle("POST /auth/admin-login",
		httpx.Chain(http.HandlerFunc(login.HandleAdminLogin),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
	r.Mux.Handle("POST /auth/social-login",
		httpx.Chain(http.HandlerFunc(social.HandleSocialLogin),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
	r.Mux.Handle("POST /auth/apple-login",
		httpx.Chain(http.HandlerFunc(social.HandleAppleLogin),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
}

func (r *Router) registerSession() {
	tokens := &TokenHandler{Tokens: r.TokenService}
	session := &SessionHandler{Auth: r.AuthService}
	device := &DeviceHandler{Auth: r.AuthService}

	// Refresh is unauthenticated (the refresh token is the credential)
	r.Mux.Handle("GET /auth/refresh-access-token",
		httpx.Chain(http.HandlerFunc(tokens.HandleRefresh),
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)

	r.Mux.Handle("GET /auth/logout",
		httpx.Chain(http.HandlerFunc(tokens.HandleLogout),
			httpx.AuthnMiddleware(r.verifier),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)
	r.Mux.Handle("GET /auth/check-login",
		httpx.Chain(http.HandlerFunc(session.HandleCheckLogin),
			httpx.AuthnMiddleware(r.verifier),
			httpx.RateLimitByUser(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("POST /auth/register-fcm-token",
		httpx.Chain(http.HandlerFunc(device.HandleRegisterFcmToken),
			httpx.AuthnMiddleware(r.verifier),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)
}

func (r *Router) registerPassword() {
	h := &PasswordHandler{Password: r.PasswordService}

	// Recovery endpoints are public and attacker-facing, so strict per-IP limits
	r.Mux.Handle("POST /auth/forgot-password",
		httpx.Chain(http.HandlerFunc(h.HandleForgotPassword),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
	r.Mux.Handle("POST /auth/reset-password",
		httpx.Chain(http.HandlerFunc(h.HandleResetPassword),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	r.Mux.Handle("POST /auth/change-password",
		httpx.Chain(http.HandlerFunc(h.HandleChangePassword),
			httpx.AuthnMiddleware(r.verifier),
			httpx.RateLimitByUser(httpx.StrictLimit),
		),
	)
	r.Mux.Handle("POST /auth/change-user-password",
		httpx.Chain(http.HandlerFunc(h.HandleChangeUserPassword),
			httpx.AuthnMiddleware(r.verifier),
			httpx.RateLimitByUser(httpx.StrictLimit),
		),
	)
}

func (r *Router) registerSystem() {
	// Health check endpoints - lenient rate limits (monitoring systems may poll frequently)
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store, r.keys),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)

	// Public key discovery
	r.Mux.Handle("GET /.well-known/jwks.json",
		httpx.Chain(JWKSHandler(r.keys),
			httpx.RateLimitByIP(httpx.PublicLimit),
		),
	)
}

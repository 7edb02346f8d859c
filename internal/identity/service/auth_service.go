package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"cuidame-health/backend/internal/audit"
	auditdomain "cuidame-health/backend/internal/audit/domain"
	identitydomain "cuidame-health/backend/internal/identity/domain"
	"cuidame-health/backend/internal/logger"
	"cuidame-health/backend/internal/security"
	sessiondomain "cuidame-health/backend/internal/session/domain"
	"cuidame-health/backend/internal/session/governor"
	sessionrepo "cuidame-health/backend/internal/session/repository"
	userdomain "cuidame-health/backend/internal/user/domain"
)

var tracer = otel.Tracer("cuidame/identity/service")

// UserRepo is the minimal user repository needed by the auth service.
type UserRepo interface {
	GetByID(ctx context.Context, id string) (*userdomain.User, error)
	GetByEmail(ctx context.Context, email string) (*userdomain.User, error)
}

// IdentityRepo is the minimal identity repository needed by the auth service.
type IdentityRepo interface {
	GetByUserAndProvider(ctx context.Context, userID string, provider identitydomain.IdentityProvider) (*identitydomain.Identity, error)
	UpdatePasswordHash(ctx context.Context, id string, passwordHash string) error
}

// SessionGovernor caps and sweeps sessions on login.
type SessionGovernor interface {
	CapSessions(ctx context.Context, userID string, maxKept int) ([]string, error)
	SweepBestEffort(ctx context.Context) sessiondomain.SweepResult
}

// Config holds the tunables of the session lifecycle.
type Config struct {
	AccessTTL             time.Duration
	MaxSessionsPerUser    int
	SweepOnLogin          bool
	RehashLegacyPasswords bool
}

// DefaultMaxSessionsPerUser is used when Config.MaxSessionsPerUser is not positive.
const DefaultMaxSessionsPerUser = 5

// Deps are the collaborators of AuthService. Locker, Audit, Logger, and Now are optional.
type Deps struct {
	Users      UserRepo
	Identities IdentityRepo
	Sessions   sessionrepo.Repository
	Governor   SessionGovernor
	Locker     governor.Locker
	Tokens     *security.TokenCodec
	Hasher     *security.Hasher
	Audit      audit.AuditLogger
	Logger     *zap.Logger
	Now        func() time.Time
}

// DeviceInfo describes the client a session was opened from.
type DeviceInfo struct {
	Info string
	Name string
	Type string
}

// LoginInput is the credential and provenance of a login attempt.
type LoginInput struct {
	Email     string
	Password  string
	Device    DeviceInfo
	IPAddress string
	UserAgent string
}

// LoginResult is returned on successful login. User never carries credential material.
type LoginResult struct {
	User             userdomain.User
	Principal        identitydomain.Principal
	AccessToken      string
	RefreshToken     string
	SessionID        string
	ExpiresAt        time.Time
	RefreshExpiresAt time.Time
}

// RefreshResult is the rotated token pair.
type RefreshResult struct {
	AccessToken      string
	RefreshToken     string
	SessionID        string
	ExpiresAt        time.Time
	RefreshExpiresAt time.Time
}

// LogoutInput selects what a logout retires. LogoutAll wins over the other fields;
// otherwise exactly one of SessionID and AccessToken must be set.
type LogoutInput struct {
	SessionID   string
	AccessToken string
	LogoutAll   bool
}

// LogoutResult reports how many sessions were retired.
type LogoutResult struct {
	Success bool
	Message string
	Count   int64
}

// AuthService implements login, refresh, logout, and session listing, and resolves bearer
// tokens for the authentication gates.
type AuthService struct {
	users      UserRepo
	identities IdentityRepo
	sessions   sessionrepo.Repository
	governor   SessionGovernor
	locker     governor.Locker
	tokens     *security.TokenCodec
	hasher     *security.Hasher
	audit      audit.AuditLogger
	logger     *zap.Logger
	now        func() time.Time
	cfg        Config
}

// NewAuthService returns an AuthService with the given dependencies.
func NewAuthService(deps Deps, cfg Config) *AuthService {
	if cfg.MaxSessionsPerUser <= 0 {
		cfg.MaxSessionsPerUser = DefaultMaxSessionsPerUser
	}
	if cfg.AccessTTL < 0 {
		cfg.AccessTTL = 0
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	hasher := deps.Hasher
	if hasher == nil {
		hasher = security.NewHasher(security.DefaultArgon2Params)
	}
	return &AuthService{
		users:      deps.Users,
		identities: deps.Identities,
		sessions:   deps.Sessions,
		governor:   deps.Governor,
		locker:     deps.Locker,
		tokens:     deps.Tokens,
		hasher:     hasher,
		audit:      deps.Audit,
		logger:     logger.Named("auth"),
		now:        now,
		cfg:        cfg,
	}
}

// Login verifies email and password, makes room under the session cap, and opens a new session.
// Every credential failure returns sessiondomain.ErrInvalidCredentials so callers cannot tell
// whether the account exists.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (_ *LoginResult, err error) {
	ctx, span := tracer.Start(ctx, "AuthService.Login")
	defer func() { endSpan(span, err) }()

	email := strings.TrimSpace(strings.ToLower(in.Email))
	if email == "" || in.Password == "" {
		return nil, s.loginFailed(ctx, "", email, "missing_credentials")
	}
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if user == nil {
		return nil, s.loginFailed(ctx, "", email, "unknown_email")
	}
	if user.Status != userdomain.UserStatusActive {
		return nil, s.loginFailed(ctx, user.ID, email, "user_disabled")
	}
	ident, err := s.identities.GetByUserAndProvider(ctx, user.ID, identitydomain.IdentityProviderLocal)
	if err != nil {
		return nil, fmt.Errorf("load identity: %w", err)
	}
	if ident == nil || ident.PasswordHash == "" {
		return nil, s.loginFailed(ctx, user.ID, email, "no_password")
	}
	if err := security.VerifyPassword(ident.PasswordHash, []byte(in.Password)); err != nil {
		if !errors.Is(err, security.ErrPasswordMismatch) {
			s.logger.Warn("unreadable password hash", zap.String("user_id", user.ID), zap.Error(err))
		}
		return nil, s.loginFailed(ctx, user.ID, email, "password_mismatch")
	}
	if s.cfg.RehashLegacyPasswords && security.NeedsRehash(ident.PasswordHash) {
		s.upgradePasswordHash(ctx, ident, in.Password)
	}

	if s.cfg.SweepOnLogin && s.governor != nil {
		s.governor.SweepBestEffort(ctx)
	}

	unlock := s.lockUser(ctx, user.ID)
	defer unlock()

	if s.governor != nil {
		evicted, err := s.governor.CapSessions(ctx, user.ID, s.cfg.MaxSessionsPerUser-1)
		if err != nil {
			return nil, fmt.Errorf("cap sessions: %w", err)
		}
		for _, id := range evicted {
			s.logAudit(ctx, user.ID, auditdomain.ActionSessionEvicted, audit.Metadata(map[string]any{"session_id": id}))
		}
	}

	principal := identitydomain.Principal{UserID: user.ID, Email: user.Email, Name: user.Name, Role: user.Role}
	pair, err := s.issuePair(principal)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	sess := &sessiondomain.Session{
		ID:               uuid.New().String(),
		UserID:           user.ID,
		AccessToken:      pair.AccessToken,
		RefreshToken:     pair.RefreshToken,
		ExpiresAt:        pair.ExpiresAt,
		RefreshExpiresAt: pair.RefreshExpiresAt,
		CreatedAt:        now,
		IsActive:         true,
		DeviceInfo:       strings.TrimSpace(in.Device.Info),
		DeviceName:       strings.TrimSpace(in.Device.Name),
		DeviceType:       strings.TrimSpace(in.Device.Type),
		IPAddress:        in.IPAddress,
		UserAgent:        in.UserAgent,
	}
	if err := s.sessions.Create(ctx, sess); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	principal.SessionID = sess.ID
	span.SetAttributes(attribute.String("user.id", user.ID), attribute.String("session.id", sess.ID))
	s.logAudit(ctx, user.ID, auditdomain.ActionLoginSuccess, audit.Metadata(map[string]any{"session_id": sess.ID}))
	s.logger.Info("login", zap.String("user_id", user.ID), zap.String("session_id", sess.ID))

	return &LoginResult{
		User:             *user,
		Principal:        principal,
		AccessToken:      pair.AccessToken,
		RefreshToken:     pair.RefreshToken,
		SessionID:        sess.ID,
		ExpiresAt:        pair.ExpiresAt,
		RefreshExpiresAt: pair.RefreshExpiresAt,
	}, nil
}

// Refresh rotates the token pair of the session holding refreshToken. The previous pair stops
// resolving as soon as the rotation is stored.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (_ *RefreshResult, err error) {
	ctx, span := tracer.Start(ctx, "AuthService.Refresh")
	defer func() { endSpan(span, err) }()

	if refreshToken == "" {
		return nil, sessiondomain.ErrMissingToken
	}
	now := s.now().UTC()
	sess, res, err := s.sessions.ResolveRefresh(ctx, refreshToken, now)
	if err != nil {
		return nil, fmt.Errorf("resolve refresh token: %w", err)
	}
	if err := resolutionErr(res); err != nil {
		return nil, err
	}
	claims, err := s.tokens.Decode(refreshToken)
	if err != nil {
		return nil, err
	}
	if claims.Kind != security.TokenKindRefresh {
		return nil, sessiondomain.ErrWrongTokenKind
	}
	if claims.Subject != sess.UserID {
		return nil, sessiondomain.ErrSessionNotFound
	}

	// Re-read the profile so rotated tokens carry current name and role.
	user, err := s.users.GetByID(ctx, sess.UserID)
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if user == nil || user.Status != userdomain.UserStatusActive {
		if err := s.sessions.Deactivate(ctx, sess.ID); err != nil {
			return nil, fmt.Errorf("deactivate session: %w", err)
		}
		return nil, sessiondomain.ErrSessionInactive
	}

	pair, err := s.issuePair(identitydomain.Principal{UserID: user.ID, Email: user.Email, Name: user.Name, Role: user.Role})
	if err != nil {
		return nil, err
	}
	err = s.sessions.UpdateTokens(ctx, sess.ID, sessiondomain.Rotation{
		PreviousRefreshToken: refreshToken,
		AccessToken:          pair.AccessToken,
		RefreshToken:         pair.RefreshToken,
		ExpiresAt:            pair.ExpiresAt,
		RefreshExpiresAt:     pair.RefreshExpiresAt,
		UsedAt:               now,
	})
	if err != nil {
		if errors.Is(err, sessiondomain.ErrSessionNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("rotate tokens: %w", err)
	}
	span.SetAttributes(attribute.String("session.id", sess.ID))
	s.logAudit(ctx, sess.UserID, auditdomain.ActionRefresh, audit.Metadata(map[string]any{"session_id": sess.ID}))

	pair.SessionID = sess.ID
	return pair, nil
}

// Logout deactivates every active session of the user and returns how many were retired.
func (s *AuthService) Logout(ctx context.Context, userID string) (int64, error) {
	n, err := s.sessions.DeactivateAllForUser(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("deactivate sessions: %w", err)
	}
	s.logAudit(ctx, userID, auditdomain.ActionLogoutAll, audit.Metadata(map[string]any{"count": n}))
	return n, nil
}

// LogoutSession retires one session of the user, or all of them when in.LogoutAll is set.
// A session id or access token that does not belong to the user yields ErrSessionIDNotFound.
func (s *AuthService) LogoutSession(ctx context.Context, userID string, in LogoutInput) (*LogoutResult, error) {
	if in.LogoutAll {
		n, err := s.Logout(ctx, userID)
		if err != nil {
			return nil, err
		}
		return &LogoutResult{Success: true, Message: fmt.Sprintf("logged out of %d session(s)", n), Count: n}, nil
	}
	sessionID := strings.TrimSpace(in.SessionID)
	accessToken := strings.TrimSpace(in.AccessToken)
	if (sessionID == "") == (accessToken == "") {
		return nil, sessiondomain.ErrLogoutTargetRequired
	}

	var sess *sessiondomain.Session
	var err error
	if sessionID != "" {
		sess, err = s.sessions.FindByID(ctx, sessionID)
	} else {
		sess, err = s.sessions.FindByAccessToken(ctx, accessToken)
	}
	if err != nil {
		return nil, fmt.Errorf("find session: %w", err)
	}
	if sess == nil || sess.UserID != userID {
		return nil, sessiondomain.ErrSessionIDNotFound
	}
	// Closing an already inactive session is not an error on either path.
	if sessionID != "" {
		err = s.sessions.Deactivate(ctx, sess.ID)
	} else {
		_, err = s.sessions.DeactivateByAccessToken(ctx, accessToken)
	}
	if err != nil {
		return nil, fmt.Errorf("deactivate session: %w", err)
	}
	s.logAudit(ctx, userID, auditdomain.ActionLogout, audit.Metadata(map[string]any{"session_id": sess.ID}))
	return &LogoutResult{Success: true, Message: "session closed", Count: 1}, nil
}

// ListActiveSessions returns the user's usable sessions newest-first, without token values.
func (s *AuthService) ListActiveSessions(ctx context.Context, userID, currentSessionID string) ([]sessiondomain.Summary, error) {
	list, err := s.sessions.FindActiveByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	now := s.now().UTC()
	out := make([]sessiondomain.Summary, 0, len(list))
	for i := len(list) - 1; i >= 0; i-- {
		if !list[i].RefreshUsable(now) {
			continue
		}
		out = append(out, sessiondomain.Summarize(list[i], currentSessionID))
	}
	return out, nil
}

// CurrentSession returns the profile and session summary of an authenticated principal.
func (s *AuthService) CurrentSession(ctx context.Context, p identitydomain.Principal) (*userdomain.User, *sessiondomain.Summary, error) {
	user, err := s.users.GetByID(ctx, p.UserID)
	if err != nil {
		return nil, nil, fmt.Errorf("load user: %w", err)
	}
	if user == nil {
		return nil, nil, sessiondomain.ErrSessionNotFound
	}
	sess, err := s.sessions.FindByID(ctx, p.SessionID)
	if err != nil {
		return nil, nil, fmt.Errorf("find session: %w", err)
	}
	if sess == nil || sess.UserID != p.UserID {
		return nil, nil, sessiondomain.ErrSessionNotFound
	}
	sum := sessiondomain.Summarize(sess, p.SessionID)
	return user, &sum, nil
}

// Authenticate resolves an access token to its principal. The token must verify, be of the
// access kind, and belong to an active unexpired session; the session's last use is recorded.
func (s *AuthService) Authenticate(ctx context.Context, accessToken string) (_ *identitydomain.Principal, err error) {
	ctx, span := tracer.Start(ctx, "AuthService.Authenticate")
	defer func() { endSpan(span, err) }()

	if accessToken == "" {
		return nil, sessiondomain.ErrMissingToken
	}
	now := s.now().UTC()
	claims, err := s.tokens.Decode(accessToken)
	if err != nil {
		if errors.Is(err, security.ErrTokenExpired) {
			// Authentic but expired: retire the session once its refresh window is gone too.
			if _, _, rerr := s.sessions.ResolveAccess(ctx, accessToken, now); rerr != nil {
				s.logger.Warn("deactivate expired session", zap.Error(rerr))
			}
		} else {
			s.logger.Debug("access token rejected", logger.Token("access", security.Fingerprint(accessToken)), zap.Error(err))
		}
		return nil, err
	}
	if claims.Kind != security.TokenKindAccess {
		return nil, sessiondomain.ErrWrongTokenKind
	}
	sess, res, err := s.sessions.ResolveAccess(ctx, accessToken, now)
	if err != nil {
		return nil, fmt.Errorf("resolve access token: %w", err)
	}
	if err := resolutionErr(res); err != nil {
		return nil, err
	}
	if sess.UserID != claims.Subject {
		return nil, sessiondomain.ErrSessionNotFound
	}
	if err := s.sessions.TouchLastUsed(ctx, sess.ID, now); err != nil {
		return nil, fmt.Errorf("touch session: %w", err)
	}
	p := claims.Principal()
	p.SessionID = sess.ID
	return &p, nil
}

// AuthenticateRefresh is the refresh-gate check: the token must verify, be of the refresh kind,
// and belong to an active session whose refresh token has not expired. It does not rotate.
func (s *AuthService) AuthenticateRefresh(ctx context.Context, refreshToken string) (*identitydomain.Principal, error) {
	if refreshToken == "" {
		return nil, sessiondomain.ErrMissingToken
	}
	claims, err := s.tokens.Decode(refreshToken)
	if err != nil {
		return nil, err
	}
	if claims.Kind != security.TokenKindRefresh {
		return nil, sessiondomain.ErrWrongTokenKind
	}
	sess, res, err := s.sessions.ResolveRefresh(ctx, refreshToken, s.now().UTC())
	if err != nil {
		return nil, fmt.Errorf("resolve refresh token: %w", err)
	}
	if err := resolutionErr(res); err != nil {
		return nil, err
	}
	if sess.UserID != claims.Subject {
		return nil, sessiondomain.ErrSessionNotFound
	}
	p := claims.Principal()
	p.SessionID = sess.ID
	return &p, nil
}

func (s *AuthService) issuePair(p identitydomain.Principal) (*RefreshResult, error) {
	access, accessExp, err := s.tokens.Issue(p, security.TokenKindAccess, s.cfg.AccessTTL)
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}
	refresh, refreshExp, err := s.tokens.Issue(p, security.TokenKindRefresh, security.RefreshTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("issue refresh token: %w", err)
	}
	return &RefreshResult{
		AccessToken:      access,
		RefreshToken:     refresh,
		ExpiresAt:        accessExp,
		RefreshExpiresAt: refreshExp,
	}, nil
}

// lockUser takes the per-user lock when a Locker is configured. A lock failure is logged and
// the caller proceeds without it; the cap then holds only eventually.
func (s *AuthService) lockUser(ctx context.Context, userID string) func() {
	if s.locker == nil {
		return func() {}
	}
	unlock, err := s.locker.Lock(ctx, userID)
	if err != nil {
		s.logger.Warn("session lock unavailable; proceeding without it", zap.String("user_id", userID), zap.Error(err))
		return func() {}
	}
	return unlock
}

func (s *AuthService) upgradePasswordHash(ctx context.Context, ident *identitydomain.Identity, password string) {
	hashed, err := s.hasher.Hash([]byte(password))
	if err != nil {
		s.logger.Warn("password rehash failed", zap.String("user_id", ident.UserID), zap.Error(err))
		return
	}
	if err := s.identities.UpdatePasswordHash(ctx, ident.ID, hashed); err != nil {
		s.logger.Warn("password rehash not stored", zap.String("user_id", ident.UserID), zap.Error(err))
		return
	}
	if s.audit != nil {
		s.audit.LogEvent(ctx, ident.UserID, auditdomain.ActionPasswordRehash, auditdomain.ResourceIdentity, "")
	}
}

func (s *AuthService) loginFailed(ctx context.Context, userID, email, reason string) error {
	s.logAudit(ctx, userID, auditdomain.ActionLoginFailure, audit.Metadata(map[string]any{"email": email, "reason": reason}))
	return sessiondomain.ErrInvalidCredentials
}

func (s *AuthService) logAudit(ctx context.Context, userID, action, metadata string) {
	if s.audit == nil {
		return
	}
	s.audit.LogEvent(ctx, userID, action, auditdomain.ResourceSession, metadata)
}

func resolutionErr(res sessiondomain.Resolution) error {
	switch res {
	case sessiondomain.ResolutionUsable:
		return nil
	case sessiondomain.ResolutionExpired:
		return sessiondomain.ErrSessionExpired
	case sessiondomain.ResolutionInactive:
		return sessiondomain.ErrSessionInactive
	default:
		return sessiondomain.ErrSessionNotFound
	}
}

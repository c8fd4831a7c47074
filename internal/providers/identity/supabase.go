package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yoockh/texttalk/internal/cache"
	"github.com/yoockh/texttalk/internal/models"
	"github.com/yoockh/texttalk/internal/services"
	"github.com/yoockh/texttalk/internal/utils"
)

type Config struct {
	URL        string // https://<project>.supabase.co
	AnonKey    string
	JWTSecret  string // optional; enables signature checks on access tokens
	SessionTTL time.Duration
	HTTPClient *http.Client
}

// Client talks to Supabase GoTrue and persists client sessions in a Cache.
type Client struct {
	cfg   Config
	http  *http.Client
	cache cache.Cache
	log   *logrus.Entry
	now   func() time.Time
}

func NewClient(cfg Config, c cache.Cache, l *logrus.Logger) *Client {
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 30 * 24 * time.Hour
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 15 * time.Second}
	}
	if l == nil {
		l = logrus.New()
	}
	cfg.URL = strings.TrimRight(cfg.URL, "/")
	return &Client{
		cfg:   cfg,
		http:  hc,
		cache: c,
		log:   l.WithField("component", "supabase_auth"),
		now:   time.Now,
	}
}

// ForClient returns the identity provider of one browser client.
func (c *Client) ForClient(clientID string) *Auth {
	return &Auth{
		c:         c,
		key:       "auth:session:" + clientID,
		listeners: map[int]func(models.SessionEvent){},
	}
}

// Auth implements services.IdentityProvider for a single client.
type Auth struct {
	c   *Client
	key string

	mu        sync.Mutex
	listeners map[int]func(models.SessionEvent)
	nextID    int
}

var _ services.IdentityProvider = (*Auth)(nil)

const refreshLeeway = 30 * time.Second

func (a *Auth) CurrentSession(ctx context.Context) (*models.AuthSession, error) {
	const op = "SupabaseAuth.CurrentSession"

	var sess models.AuthSession
	hit, err := a.c.cache.GetJSON(ctx, a.key, &sess)
	if err != nil {
		return nil, utils.E(utils.CodeUnavailable, op, "failed to read session", err)
	}
	if !hit || sess.User == nil {
		return nil, nil
	}
	if !sess.Expired(a.c.now(), refreshLeeway) {
		return &sess, nil
	}
	if sess.RefreshToken == "" {
		_ = a.c.cache.Del(ctx, a.key)
		return nil, nil
	}

	refreshed, err := a.refresh(ctx, sess.RefreshToken)
	if err != nil {
		// only a rejected refresh token ends the session; outages keep it for a retry
		if utils.IsCode(err, utils.CodeUnauthorized) {
			_ = a.c.cache.Del(ctx, a.key)
		}
		return nil, err
	}
	a.emit(models.SessionEvent{Type: models.EventTokenRefreshed, Session: refreshed})
	return refreshed, nil
}

func (a *Auth) refresh(ctx context.Context, refreshToken string) (*models.AuthSession, error) {
	const op = "SupabaseAuth.Refresh"

	var out tokenResponse
	if err := a.c.do(ctx, op, "/auth/v1/token?grant_type=refresh_token", "", map[string]string{
		"refresh_token": refreshToken,
	}, &out); err != nil {
		return nil, err
	}
	return a.store(ctx, op, out)
}

func (a *Auth) SignIn(ctx context.Context, email, password string) (*models.AuthSession, error) {
	const op = "SupabaseAuth.SignIn"

	var out tokenResponse
	if err := a.c.do(ctx, op, "/auth/v1/token?grant_type=password", "", credentials{Email: email, Password: password}, &out); err != nil {
		return nil, err
	}
	sess, err := a.store(ctx, op, out)
	if err != nil {
		return nil, err
	}
	a.emit(models.SessionEvent{Type: models.EventSignedIn, Session: sess})
	return sess, nil
}

// SignUp registers a user. When the project requires email confirmation
// GoTrue answers with the bare user and no tokens; that user is returned
// but nothing is persisted.
func (a *Auth) SignUp(ctx context.Context, email, password string) (*models.AuthSession, error) {
	const op = "SupabaseAuth.SignUp"

	var out signupResponse
	if err := a.c.do(ctx, op, "/auth/v1/signup", "", credentials{Email: email, Password: password}, &out); err != nil {
		return nil, err
	}
	if out.AccessToken == "" {
		if out.ID == "" {
			return nil, utils.E(utils.CodeBadGateway, op, "signup returned no user", utils.ErrAuthProvider)
		}
		return &models.AuthSession{User: out.gotrueUser.toModel()}, nil
	}

	sess, err := a.store(ctx, op, out.tokenResponse)
	if err != nil {
		return nil, err
	}
	a.emit(models.SessionEvent{Type: models.EventSignedIn, Session: sess})
	return sess, nil
}

// SignOut revokes the session upstream and always forgets it locally.
func (a *Auth) SignOut(ctx context.Context) error {
	const op = "SupabaseAuth.SignOut"

	var sess models.AuthSession
	hit, _ := a.c.cache.GetJSON(ctx, a.key, &sess)

	var upstream error
	if hit && sess.AccessToken != "" {
		upstream = a.c.do(ctx, op, "/auth/v1/logout", sess.AccessToken, nil, nil)
	}
	if err := a.c.cache.Del(ctx, a.key); err != nil {
		a.c.log.WithError(err).WithField("op", op).Warn("failed to drop cached session")
	}

	a.emit(models.SessionEvent{Type: models.EventSignedOut})
	return upstream
}

func (a *Auth) OnSessionChange(fn func(models.SessionEvent)) services.Subscription {
	a.mu.Lock()
	defer a.mu.Unlock()

	id := a.nextID
	a.nextID++
	a.listeners[id] = fn
	return &subscription{release: func() {
		a.mu.Lock()
		delete(a.listeners, id)
		a.mu.Unlock()
	}}
}

func (a *Auth) emit(ev models.SessionEvent) {
	a.mu.Lock()
	fns := make([]func(models.SessionEvent), 0, len(a.listeners))
	for _, fn := range a.listeners {
		fns = append(fns, fn)
	}
	a.mu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}

func (a *Auth) store(ctx context.Context, op string, out tokenResponse) (*models.AuthSession, error) {
	sess, err := a.c.toSession(out)
	if err != nil {
		return nil, utils.E(utils.CodeBadGateway, op, "invalid session from identity provider", errors.Join(utils.ErrAuthProvider, err))
	}
	if err := a.c.cache.SetJSON(ctx, a.key, sess, a.c.cfg.SessionTTL); err != nil {
		a.c.log.WithError(err).WithField("op", op).Warn("failed to persist session")
	}
	return sess, nil
}

type subscription struct {
	once    sync.Once
	release func()
}

func (s *subscription) Unsubscribe() { s.once.Do(s.release) }

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type gotrueUser struct {
	ID           string         `json:"id"`
	Email        string         `json:"email"`
	CreatedAt    time.Time      `json:"created_at"`
	LastSignInAt time.Time      `json:"last_sign_in_at"`
	AppMetadata  map[string]any `json:"app_metadata"`
}

func (u gotrueUser) toModel() *models.User {
	return &models.User{
		ID:           u.ID,
		Email:        u.Email,
		CreatedAt:    u.CreatedAt,
		LastSignInAt: u.LastSignInAt,
		Role:         appRole(u.AppMetadata),
	}
}

type tokenResponse struct {
	AccessToken  string      `json:"access_token"`
	TokenType    string      `json:"token_type"`
	ExpiresIn    int64       `json:"expires_in"`
	ExpiresAt    int64       `json:"expires_at"`
	RefreshToken string      `json:"refresh_token"`
	User         *gotrueUser `json:"user"`
}

type signupResponse struct {
	tokenResponse
	gotrueUser
}

func (c *Client) toSession(out tokenResponse) (*models.AuthSession, error) {
	if out.AccessToken == "" {
		return nil, errors.New("missing access_token")
	}

	sess := &models.AuthSession{
		AccessToken:  out.AccessToken,
		RefreshToken: out.RefreshToken,
		TokenType:    out.TokenType,
	}
	switch {
	case out.ExpiresAt > 0:
		sess.ExpiresAt = time.Unix(out.ExpiresAt, 0).UTC()
	case out.ExpiresIn > 0:
		sess.ExpiresAt = c.now().Add(time.Duration(out.ExpiresIn) * time.Second).UTC()
	}

	claimed, exp, err := ParseAccessToken(out.AccessToken, c.cfg.JWTSecret)
	if err != nil && c.cfg.JWTSecret != "" {
		return nil, fmt.Errorf("access token: %w", err)
	}
	if out.User != nil && out.User.ID != "" {
		sess.User = out.User.toModel()
	} else if claimed != nil {
		sess.User = claimed
	}
	if sess.User == nil {
		return nil, errors.New("missing user")
	}
	if sess.ExpiresAt.IsZero() && !exp.IsZero() {
		sess.ExpiresAt = exp
	}
	return sess, nil
}

type gotrueError struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
	Msg              string `json:"msg"`
	Message          string `json:"message"`
}

func (e gotrueError) text() string {
	for _, s := range []string{e.ErrorDescription, e.Msg, e.Message, e.Error} {
		if s != "" {
			return s
		}
	}
	return ""
}

// do POSTs body as JSON and decodes a 2xx answer into out (when non-nil).
func (c *Client) do(ctx context.Context, op, path, bearer string, body, out any) error {
	var rd io.Reader = http.NoBody
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return utils.E(utils.CodeInternal, op, "failed to encode request", err)
		}
		rd = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL+path, rd)
	if err != nil {
		return utils.E(utils.CodeInternal, op, "failed to build request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", c.cfg.AnonKey)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return utils.E(utils.CodeUnavailable, op, "identity provider unreachable", errors.Join(utils.ErrAuthProvider, err))
	}
	defer resp.Body.Close()

	const maxBytes = 1 << 20
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxBytes))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var ge gotrueError
		_ = json.Unmarshal(raw, &ge)
		msg := ge.text()
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		code := utils.CodeUnauthorized
		if resp.StatusCode >= 500 {
			code = utils.CodeUnavailable
		}
		return utils.E(code, op, msg, fmt.Errorf("%w: status %d", utils.ErrAuthProvider, resp.StatusCode))
	}

	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return utils.E(utils.CodeBadGateway, op, "invalid identity provider response", errors.Join(utils.ErrAuthProvider, err))
	}
	return nil
}

package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"docviewer-backend/internal/shared/server/respond"
	"docviewer-backend/internal/shared/telemetry"
	"docviewer-backend/internal/users"
)

var ErrDomainNotAllowed = errors.New("email domain not allowed")

// UserUpserter records a signed-in identity.
type UserUpserter interface {
	UpsertFromAuth(ctx context.Context, email, name, imageURL string) (users.User, error)
}

// TokenSigner issues the app session token.
type TokenSigner interface {
	Sign(userID, email, name string) (string, error)
}

type GoogleConfig struct {
	ClientID       string
	ClientSecret   string
	RedirectURL    string
	UIRedirectURL  string
	AllowedDomains []string
}

// GoogleService handles Google OAuth flows.
type GoogleService struct {
	oauthConfig    *oauth2.Config
	uiRedirect     string
	allowedDomains []string
	stateTTL       time.Duration
	stateStore     *stateStore
	users          UserUpserter
	signer         TokenSigner
}

// NewGoogleService builds a GoogleService.
func NewGoogleService(cfg GoogleConfig, userSvc UserUpserter, signer TokenSigner) *GoogleService {
	return &GoogleService{
		oauthConfig: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes: []string{
				"https://www.googleapis.com/auth/userinfo.email",
				"https://www.googleapis.com/auth/userinfo.profile",
			},
			Endpoint: google.Endpoint,
		},
		uiRedirect:     cfg.UIRedirectURL,
		allowedDomains: cfg.AllowedDomains,
		stateTTL:       5 * time.Minute,
		stateStore:     newStateStore(),
		users:          userSvc,
		signer:         signer,
	}
}

// RegisterRoutes attaches Google auth routes.
func (s *GoogleService) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/auth/google/start", s.start)
	rg.GET("/auth/google/callback", s.callback)
}

func (s *GoogleService) start(c *gin.Context) {
	if s.oauthConfig.ClientID == "" || s.oauthConfig.ClientSecret == "" || s.oauthConfig.RedirectURL == "" {
		respond.Error(c, http.StatusInternalServerError, "Google auth not configured")
		return
	}

	state := uuid.NewString()
	s.stateStore.put(state, time.Now().Add(s.stateTTL))

	c.Redirect(http.StatusFound, s.oauthConfig.AuthCodeURL(state))
}

func (s *GoogleService) callback(c *gin.Context) {
	state := c.Query("state")
	code := c.Query("code")
	if state == "" || code == "" {
		respond.Error(c, http.StatusBadRequest, "Missing state or code")
		return
	}

	if !s.stateStore.consume(state) {
		respond.Error(c, http.StatusBadRequest, "Invalid or expired state")
		return
	}

	ctx := c.Request.Context()
	token, err := s.oauthConfig.Exchange(ctx, code)
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "Failed to exchange code")
		return
	}

	info, err := s.fetchUserInfo(ctx, token)
	if err != nil {
		telemetry.Warn("auth.userinfo_failed", map[string]any{"error": err})
		respond.Error(c, http.StatusBadGateway, "Failed to fetch user profile")
		return
	}

	redirectURL, err := s.completeSignIn(ctx, info)
	if err != nil {
		switch {
		case errors.Is(err, ErrDomainNotAllowed):
			respond.Error(c, http.StatusForbidden, "Sign-in is restricted to approved email domains")
		default:
			telemetry.Error("auth.sign_in_failed", map[string]any{"error": err})
			respond.Error(c, http.StatusInternalServerError, "Failed to complete sign-in")
		}
		return
	}

	c.Redirect(http.StatusFound, redirectURL)
}

// completeSignIn checks the domain allow-list, records the user and returns
// the UI redirect carrying the session token.
func (s *GoogleService) completeSignIn(ctx context.Context, info googleUserInfo) (string, error) {
	if !EmailAllowed(info.Email, s.allowedDomains) {
		telemetry.Warn("auth.domain_rejected", map[string]any{"email_domain": emailDomain(info.Email)})
		return "", ErrDomainNotAllowed
	}

	user, err := s.users.UpsertFromAuth(ctx, info.Email, info.Name, info.Picture)
	if err != nil {
		return "", fmt.Errorf("upsert user: %w", err)
	}

	token, err := s.signer.Sign(user.ID, user.Email, user.Name)
	if err != nil {
		return "", fmt.Errorf("issue token: %w", err)
	}
	telemetry.Info("auth.sign_in", map[string]any{"user_id": user.ID, "role": user.Role})
	return appendToken(s.uiRedirect, token)
}

// EmailAllowed reports whether email belongs to one of domains. Matching is
// exact on the part after '@' and case-insensitive. An empty list allows none.
func EmailAllowed(email string, domains []string) bool {
	domain := emailDomain(email)
	if domain == "" {
		return false
	}
	for _, d := range domains {
		if strings.EqualFold(strings.TrimSpace(d), domain) {
			return true
		}
	}
	return false
}

func emailDomain(email string) string {
	at := strings.LastIndex(email, "@")
	if at <= 0 || at == len(email)-1 {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(email[at+1:]))
}

type googleUserInfo struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	VerifiedEmail bool   `json:"verified_email"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

func (s *GoogleService) fetchUserInfo(ctx context.Context, token *oauth2.Token) (googleUserInfo, error) {
	client := s.oauthConfig.Client(ctx, token)
	resp, err := client.Get("https://www.googleapis.com/oauth2/v2/userinfo")
	if err != nil {
		return googleUserInfo{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return googleUserInfo{}, fmt.Errorf("userinfo status %d", resp.StatusCode)
	}

	var info googleUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return googleUserInfo{}, err
	}
	if info.Email == "" || !info.VerifiedEmail {
		return googleUserInfo{}, errors.New("userinfo missing verified email")
	}
	return info, nil
}

type stateStore struct {
	items map[string]time.Time
	mu    sync.Mutex
}

func newStateStore() *stateStore {
	return &stateStore{items: make(map[string]time.Time)}
}

func (s *stateStore) put(state string, exp time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for k, v := range s.items {
		if now.After(v) {
			delete(s.items, k)
		}
	}
	s.items[state] = exp
}

func (s *stateStore) consume(state string) bool {
	s.mu.Lock()
	exp, ok := s.items[state]
	if ok {
		delete(s.items, state)
	}
	s.mu.Unlock()
	if !ok {
		return false
	}
	return !time.Now().After(exp)
}

func appendToken(rawURL, token string) (string, error) {
	if rawURL == "" {
		return "", errors.New("redirect url required")
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

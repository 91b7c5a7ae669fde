package httpapi

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	jwtlib "github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"penjualan/backend/internal/domain"
	"penjualan/backend/internal/service"
	"penjualan/backend/internal/store"
)

const (
	authCookieName  = "auth_token"
	csrfCookieName  = "csrf_token"
	csrfHeaderName  = "X-CSRF-Token"
	adminHeaderName = "X-Admin-Token"
	tokenIssuer     = "penjualan"
)

var (
	errInvalidCredentials = errors.New("invalid credentials")
	errInvalidToken       = errors.New("invalid or expired token")
)

type AuthManager struct {
	secret   []byte
	tokenTTL time.Duration
	users    store.UserStore
	validate *validator.Validate
}

type sessionClaims struct {
	jwtlib.RegisteredClaims
	Username string `json:"username"`
}

func NewAuthManager(secret string, tokenTTL time.Duration, users store.UserStore) *AuthManager {
	if tokenTTL <= 0 {
		tokenTTL = 24 * time.Hour
	}
	return &AuthManager{
		secret:   []byte(secret),
		tokenTTL: tokenTTL,
		users:    users,
		validate: service.NewValidator(),
	}
}

func (a *AuthManager) TokenTTL() time.Duration {
	return a.tokenTTL
}

func (a *AuthManager) Register(ctx context.Context, req domain.RegisterRequest) (domain.User, error) {
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.PhoneNumber != nil {
		phone := strings.TrimSpace(*req.PhoneNumber)
		req.PhoneNumber = &phone
		if phone == "" {
			req.PhoneNumber = nil
		}
	}
	if strings.ContainsAny(req.Username, " \t\r\n") {
		return domain.User{}, &service.ValidationError{Field: "username", Message: "must not contain spaces"}
	}
	if err := service.Validate(a.validate, req); err != nil {
		return domain.User{}, err
	}

	passwordHash, err := hashPassword(req.Password)
	if err != nil {
		return domain.User{}, fmt.Errorf("hash password: %w", err)
	}

	created, err := a.users.CreateUser(ctx, domain.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: passwordHash,
		PhoneNumber:  req.PhoneNumber,
		CreatedAt:    time.Now().UTC(),
	})
	if err != nil {
		return domain.User{}, err
	}
	return *created, nil
}

func (a *AuthManager) Login(ctx context.Context, req domain.LoginRequest) (domain.LoginResponse, error) {
	username := strings.TrimSpace(req.Username)
	if username == "" || req.Password == "" {
		return domain.LoginResponse{}, errInvalidCredentials
	}

	user, err := a.users.FindUserByUsername(ctx, username)
	if errors.Is(err, store.ErrNotFound) {
		return domain.LoginResponse{}, errInvalidCredentials
	}
	if err != nil {
		return domain.LoginResponse{}, err
	}
	if !verifyPassword(user.PasswordHash, req.Password) {
		return domain.LoginResponse{}, errInvalidCredentials
	}

	expiresAt := time.Now().UTC().Add(a.tokenTTL)
	token, err := a.sign(*user, expiresAt)
	if err != nil {
		return domain.LoginResponse{}, err
	}

	return domain.LoginResponse{
		AccessToken: token,
		ExpiresAt:   expiresAt.Format(time.RFC3339),
		User:        *user,
	}, nil
}

func (a *AuthManager) Profile(ctx context.Context, userID string) (domain.User, error) {
	user, err := a.users.FindUserByID(ctx, userID)
	if err != nil {
		return domain.User{}, err
	}
	return *user, nil
}

func (a *AuthManager) ParseToken(tokenStr string) (domain.Actor, error) {
	claims := &sessionClaims{}
	token, err := jwtlib.ParseWithClaims(tokenStr, claims, func(t *jwtlib.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwtlib.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return a.secret, nil
	}, jwtlib.WithValidMethods([]string{"HS256"}), jwtlib.WithIssuer(tokenIssuer))
	if err != nil || !token.Valid {
		return domain.Actor{}, errInvalidToken
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return domain.Actor{}, errors.New("invalid token subject")
	}
	return domain.Actor{UserID: sub, Username: claims.Username}, nil
}

func (a *AuthManager) sign(user domain.User, expiresAt time.Time) (string, error) {
	claims := sessionClaims{
		RegisteredClaims: jwtlib.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwtlib.NewNumericDate(time.Now().UTC()),
			ExpiresAt: jwtlib.NewNumericDate(expiresAt),
			Issuer:    tokenIssuer,
		},
		Username: user.Username,
	}
	token := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims)
	return token.SignedString(a.secret)
}

// credentialFromRequest returns the session token and whether it came from
// the cookie. A bearer header wins over the cookie.
func credentialFromRequest(r *http.Request) (string, bool) {
	authorization := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(authorization) > len("bearer ") && strings.EqualFold(authorization[:len("bearer ")], "bearer ") {
		return strings.TrimSpace(authorization[len("bearer "):]), false
	}
	if cookie, err := r.Cookie(authCookieName); err == nil && cookie.Value != "" {
		return cookie.Value, true
	}
	return "", false
}

func newCSRFToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

func (a *API) setSessionCookies(w http.ResponseWriter, token string, csrfToken string) {
	maxAge := int(a.auth.TokenTTL().Seconds())
	http.SetCookie(w, &http.Cookie{
		Name:     authCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   a.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	a.setCSRFCookie(w, csrfToken)
}

func (a *API) setCSRFCookie(w http.ResponseWriter, csrfToken string) {
	http.SetCookie(w, &http.Cookie{
		Name:     csrfCookieName,
		Value:    csrfToken,
		Path:     "/",
		MaxAge:   int(a.auth.TokenTTL().Seconds()),
		HttpOnly: false,
		Secure:   a.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (a *API) clearSessionCookies(w http.ResponseWriter) {
	for _, name := range []string{authCookieName, csrfCookieName} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			Expires:  time.Unix(0, 0),
			HttpOnly: name == authCookieName,
			Secure:   a.cookieSecure,
			SameSite: http.SameSiteLaxMode,
		})
	}
}

func verifyPassword(stored string, input string) bool {
	if stored == "" || strings.TrimSpace(input) == "" || !isPasswordHash(stored) {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(stored), []byte(input)) == nil
}

func hashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

func isPasswordHash(value string) bool {
	return strings.HasPrefix(value, "$2a$") || strings.HasPrefix(value, "$2b$") || strings.HasPrefix(value, "$2y$")
}

package macro_api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rskv-p/srtmacro/servs/s_macro/macro_vault"
)

const tokenCookie = "macro_token"

type jwtClaims struct {
	Username string `json:"sub"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

type contextKey string

const jwtContextKey = contextKey("jwt_claims")

// Auth guards the panel with JWTs. A disabled Auth lets everything through.
type Auth struct {
	Enabled bool
	key     []byte
	ttl     time.Duration
	vault   *macro_vault.Vault
}

func NewAuth(enabled bool, secret string, ttl time.Duration, vault *macro_vault.Vault) *Auth {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &Auth{Enabled: enabled, key: []byte(secret), ttl: ttl, vault: vault}
}

// -------- /auth/login --------
// JSON bodies get the token back; form posts get a cookie and a redirect.
func (a *Auth) HandleLogin() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !a.Enabled || a.vault == nil {
			http.Error(w, "auth disabled", http.StatusNotFound)
			return
		}

		var req LoginRequest
		isForm := strings.HasPrefix(r.Header.Get("Content-Type"), "application/x-www-form-urlencoded")
		if isForm {
			req.Username = r.PostFormValue("username")
			req.Password = r.PostFormValue("password")
		} else if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}

		user, err := a.vault.Authenticate(req.Username, req.Password)
		if err != nil {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		tokenStr, err := a.generateToken(user)
		if err != nil {
			http.Error(w, "token error", http.StatusInternalServerError)
			return
		}

		if isForm {
			http.SetCookie(w, &http.Cookie{
				Name:     tokenCookie,
				Value:    tokenStr,
				Path:     "/",
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
				Expires:  time.Now().Add(a.ttl),
			})
			http.Redirect(w, r, "/", http.StatusSeeOther)
			return
		}
		writeJSON(w, http.StatusOK, LoginResponse{Token: tokenStr})
	}
}

// -------- JWT Token Generation --------
func (a *Auth) generateToken(u *macro_vault.User) (string, error) {
	claims := jwtClaims{
		Username: u.Username,
		Role:     u.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(a.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.key)
}

func (a *Auth) parse(tokenStr string) (*jwtClaims, bool) {
	claims := &jwtClaims{}
	_, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		return a.key, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || claims.ExpiresAt == nil || claims.ExpiresAt.Time.Before(time.Now()) {
		return nil, false
	}
	return claims, true
}

// -------- Middleware: JWT Token Validation --------
// Browsers without a token see the login form instead of a bare 401.
func (a *Auth) Middleware(requiredRole string, loginPage http.HandlerFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !a.Enabled {
				next.ServeHTTP(w, r)
				return
			}

			claims, ok := a.parse(extractToken(r))
			if !ok {
				if loginPage != nil && r.Method == http.MethodGet && strings.Contains(r.Header.Get("Accept"), "text/html") {
					loginPage(w, r)
					return
				}
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			if requiredRole != "" && claims.Role != requiredRole {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}

			ctx := context.WithValue(r.Context(), jwtContextKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// -------- Utility: Extract Token --------
// Bearer header first, then the cookie, then ?token= for EventSource and websockets.
func extractToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	if c, err := r.Cookie(tokenCookie); err == nil && c.Value != "" {
		return c.Value
	}
	return r.URL.Query().Get("token")
}

// UserFromContext returns the authenticated user, if any.
func UserFromContext(ctx context.Context) (username, role string, ok bool) {
	claims, ok := ctx.Value(jwtContextKey).(*jwtClaims)
	if !ok {
		return "", "", false
	}
	return claims.Username, claims.Role, true
}

package main

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"golang.org/x/crypto/bcrypt"
)

const tokenCookieName = "token"

// maxPasswordBytes is the most bcrypt will hash.
const maxPasswordBytes = 72

// dummyHash is compared against when a login names an unknown email, so
// both failure paths cost one bcrypt comparison.
var dummyHash = mustHashPassword("feedline-unknown-account")

type ctxKeyUser struct{}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func mustHashPassword(password string) string {
	hash, err := hashPassword(password)
	if err != nil {
		panic(err)
	}
	return hash
}

func checkPassword(hash, password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

func (a *App) tokenCookie(value string) *http.Cookie {
	cookie := &http.Cookie{
		Name:     tokenCookieName,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	}
	if a.cfg.Production() {
		// The SPA is served from another site in production.
		cookie.Secure = true
		cookie.SameSite = http.SameSiteNoneMode
	}
	return cookie
}

func (a *App) setTokenCookie(w http.ResponseWriter, token string, expiresAt time.Time) {
	cookie := a.tokenCookie(token)
	cookie.Expires = expiresAt
	cookie.MaxAge = int(time.Until(expiresAt).Seconds())
	http.SetCookie(w, cookie)
}

func (a *App) clearTokenCookie(w http.ResponseWriter) {
	cookie := a.tokenCookie("")
	cookie.MaxAge = -1
	cookie.Expires = time.Unix(0, 0)
	http.SetCookie(w, cookie)
}

// startSession issues a token for user and sets it as the token cookie.
func (a *App) startSession(w http.ResponseWriter, user *User) error {
	token, expiresAt, err := a.tokens.Issue(user.ID)
	if err != nil {
		return err
	}
	a.setTokenCookie(w, token, expiresAt)
	return nil
}

// currentUser returns the user resolved by requireAuth.
func currentUser(r *http.Request) *User {
	user, _ := r.Context().Value(ctxKeyUser{}).(*User)
	return user
}

// requireAuth resolves the token cookie to a stored user or rejects the
// request with 401. It never mutates anything.
func (a *App) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")

		cookie, err := r.Cookie(tokenCookieName)
		if err != nil || cookie.Value == "" {
			writeError(w, http.StatusUnauthorized, "Access denied. Please login to continue.")
			return
		}

		userID, err := a.tokens.Verify(cookie.Value)
		if err != nil {
			logFrom(r).WithError(err).Debug("rejected session token")
			writeError(w, http.StatusUnauthorized, "Session expired or token is invalid. Please login again.")
			return
		}

		user, err := a.store.UserByID(r.Context(), userID)
		if err != nil {
			a.renderError(w, r, err, "Something went wrong with authentication. Please try again.")
			return
		}
		if user == nil {
			writeError(w, http.StatusUnauthorized, "User not found. Please login again.")
			return
		}

		ctx := context.WithValue(r.Context(), ctxKeyUser{}, user)
		next(w, r.WithContext(ctx))
	}
}

type signupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r signupRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, 100)),
		validation.Field(&r.Email, validation.Required, validation.Length(1, 254)),
		validation.Field(&r.Password, validation.Required),
	)
}

// validatePassword checks what Validate cannot report with its generic
// missing-field message.
func (r signupRequest) validatePassword() error {
	return validation.Validate(r.Password, validation.Length(0, maxPasswordBytes))
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r loginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required),
		validation.Field(&r.Password, validation.Required),
	)
}

func (a *App) Signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Please provide name, email, and password.")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Email = normalizeEmail(req.Email)

	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "Please provide name, email, and password.")
		return
	}
	if err := req.validatePassword(); err != nil {
		writeError(w, http.StatusBadRequest, "Password is too long. Use at most 72 bytes.")
		return
	}

	existing, err := a.store.UserByEmail(r.Context(), req.Email)
	if err != nil {
		a.renderError(w, r, err, "An error occurred while signing up. Please try again later.")
		return
	}
	if existing != nil {
		writeError(w, http.StatusConflict, "An account with this email already exists.")
		return
	}

	hash, err := hashPassword(req.Password)
	if err != nil {
		a.renderError(w, r, err, "An error occurred while signing up. Please try again later.")
		return
	}

	user, err := a.store.CreateUser(r.Context(), req.Name, req.Email, hash)
	if errors.Is(err, ErrEmailExists) {
		writeError(w, http.StatusConflict, "An account with this email already exists.")
		return
	}
	if err != nil {
		a.renderError(w, r, err, "An error occurred while signing up. Please try again later.")
		return
	}

	if err := a.startSession(w, user); err != nil {
		a.renderError(w, r, err, "An error occurred while signing up. Please try again later.")
		return
	}

	logFrom(r).WithField("user.id", user.ID).Info("user signed up")
	writeJSON(w, http.StatusCreated, envelope{Success: true, Data: user, Message: "User is registered successfully."})
}

func (a *App) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Both email and password are required.")
		return
	}
	req.Email = normalizeEmail(req.Email)

	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "Both email and password are required.")
		return
	}

	user, err := a.store.UserByEmail(r.Context(), req.Email)
	if err != nil {
		a.renderError(w, r, err, "An error occurred while logging in. Please try again later.")
		return
	}

	hash := dummyHash
	if user != nil {
		hash = user.PasswordHash
	}
	if !checkPassword(hash, req.Password) || user == nil {
		writeError(w, http.StatusUnauthorized, "Invalid email or password.")
		return
	}

	if err := a.startSession(w, user); err != nil {
		a.renderError(w, r, err, "An error occurred while logging in. Please try again later.")
		return
	}

	writeJSON(w, http.StatusOK, envelope{Success: true, Data: user, Message: "Login successful. Welcome back!"})
}

// Logout only clears the cookie; the token itself stays valid until it
// expires.
func (a *App) Logout(w http.ResponseWriter, r *http.Request) {
	a.clearTokenCookie(w)
	writeJSON(w, http.StatusOK, envelope{Success: true, Message: "Logout successful. See you soon!"})
}

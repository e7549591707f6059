package strapitest

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type claims struct {
	jwt.RegisteredClaims
	ID int64 `json:"id"`
}

type userKey struct{}

// AddUser stores a confirmed user and returns its id.
func (s *Server) AddUser(username, email, password string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, _ := s.addUserLocked(username, email, password)
	return u.ID
}

func (s *Server) addUserLocked(username, email, password string) (*user, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	u := &user{
		ID:           s.allocIDLocked(),
		DocumentID:   uuid.NewString(),
		Username:     username,
		Email:        strings.ToLower(email),
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	s.users[u.ID] = u
	return u, nil
}

// Token mints a valid token for user id.
func (s *Server) Token(id int64) string {
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(s.now()),
			ExpiresAt: jwt.NewNumericDate(s.now().Add(30 * 24 * time.Hour)),
			ID:        uuid.NewString(),
		},
		ID: id,
	})
	signed, _ := t.SignedString(s.secret)
	return signed
}

// ResetCode returns the code issued by forgot-password for email.
func (s *Server) ResetCode(email string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	for code, id := range s.resetCodes {
		if u, ok := s.users[id]; ok && u.Email == strings.ToLower(email) {
			return code
		}
	}
	return ""
}

func (s *Server) authed(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok {
			writeError(w, http.StatusUnauthorized, "UnauthorizedError", "Missing or invalid credentials")
			return
		}

		c := &claims{}
		_, err := jwt.ParseWithClaims(raw, c, func(*jwt.Token) (any, error) { return s.secret, nil },
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil {
			writeError(w, http.StatusUnauthorized, "UnauthorizedError", "Missing or invalid credentials")
			return
		}

		s.mu.Lock()
		_, exists := s.users[c.ID]
		s.mu.Unlock()
		if !exists {
			writeError(w, http.StatusUnauthorized, "UnauthorizedError", "Missing or invalid credentials")
			return
		}

		h(w, r.WithContext(context.WithValue(r.Context(), userKey{}, c.ID)))
	}
}

func callerID(r *http.Request) int64 {
	id, _ := r.Context().Value(userKey{}).(int64)
	return id
}

func (s *Server) writeAuth(w http.ResponseWriter, u *user) {
	token := s.Token(u.ID)
	writeJSON(w, http.StatusOK, map[string]any{"jwt": token, "user": s.renderUserLocked(u, false)})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Identifier string `json:"identifier"`
		Password   string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "ValidationError", err.Error())
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Username != in.Identifier && u.Email != strings.ToLower(in.Identifier) {
			continue
		}
		if bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(in.Password)) != nil {
			break
		}
		s.writeAuth(w, u)
		return
	}
	writeError(w, http.StatusBadRequest, "ValidationError", "Invalid identifier or password")
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.Username == "" || in.Email == "" || len(in.Password) < 6 {
		writeError(w, http.StatusBadRequest, "ValidationError", "username, email and a 6+ character password are required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Username == in.Username || u.Email == strings.ToLower(in.Email) {
			writeError(w, http.StatusBadRequest, "ApplicationError", "Email or Username are already taken")
			return
		}
	}
	u, err := s.addUserLocked(in.Username, in.Email, in.Password)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "InternalServerError", err.Error())
		return
	}
	s.writeAuth(w, u)
}

func (s *Server) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "ValidationError", err.Error())
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == strings.ToLower(in.Email) {
			s.resetCodes[uuid.NewString()] = u.ID
		}
	}
	// unknown emails get the same answer
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Code                 string `json:"code"`
		Password             string `json:"password"`
		PasswordConfirmation string `json:"passwordConfirmation"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.Password != in.PasswordConfirmation {
		writeError(w, http.StatusBadRequest, "ValidationError", "Passwords do not match")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.resetCodes[in.Code]
	if !ok {
		writeError(w, http.StatusBadRequest, "ValidationError", "Incorrect code provided")
		return
	}
	delete(s.resetCodes, in.Code)
	u := s.users[id]
	u.PasswordHash, _ = bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.MinCost)
	s.writeAuth(w, u)
}

func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	var in struct {
		CurrentPassword      string `json:"currentPassword"`
		Password             string `json:"password"`
		PasswordConfirmation string `json:"passwordConfirmation"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.Password != in.PasswordConfirmation {
		writeError(w, http.StatusBadRequest, "ValidationError", "Passwords do not match")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.users[callerID(r)]
	if bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(in.CurrentPassword)) != nil {
		writeError(w, http.StatusBadRequest, "ValidationError", "The provided current password is invalid")
		return
	}
	u.PasswordHash, _ = bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.MinCost)
	s.writeAuth(w, u)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writeAuth(w, s.users[callerID(r)])
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	return id, err == nil
}

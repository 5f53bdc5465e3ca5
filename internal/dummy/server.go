// Package dummy runs a stand-in for the HomeworkClick backend: the webhook,
// menu and user endpoints with in-memory state, so scenarios can be tried
// without the real application.
package dummy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

type ServerConfig struct {
	Port int

	// Secret signs login tokens.
	Secret string

	// ErrorRate is the share of requests answered with 500 (0-1).
	ErrorRate float64

	// Latency is the upper bound of a random delay added to every request.
	Latency time.Duration
}

type menuOption struct {
	ID          int    `json:"id"`
	Descripcion string `json:"descripcion"`
	Accion      string `json:"accion"`
}

var menu = []menuOption{
	{1, "Crear un proyecto", "crear_proyecto"},
	{2, "Crear las tareas del proyecto", "crear_tareas"},
	{3, "Consultar tareas del proyecto", "consultar_tareas"},
	{4, "Salir", "salir"},
}

type account struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"-"`
	Nombre   string `json:"nombre"`
	Apellido string `json:"apellido"`
}

type Server struct {
	cfg ServerConfig
	log *zap.Logger

	mu       sync.RWMutex
	accounts map[string]account
	hits     map[string]int
}

func NewServer(cfg ServerConfig, log *zap.Logger) *Server {
	if cfg.Secret == "" {
		cfg.Secret = "clickload-dummy-secret"
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{
		cfg:      cfg,
		log:      log,
		accounts: make(map[string]account),
		hits:     make(map[string]int),
	}
}

// Handler returns the router with every endpoint mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.count)
	r.Use(s.faults)

	r.Route("/webhook", func(r chi.Router) {
		r.Get("/health", s.health)
		r.Get("/test", s.test)
		r.Post("/chat", s.chat)
	})
	r.Route("/api/menu", func(r chi.Router) {
		r.Get("/opciones", s.menuOptions)
		r.Post("/procesar", s.menuProcess)
	})
	r.Route("/api/usuarios", func(r chi.Router) {
		r.Post("/registro", s.register)
		r.Post("/login", s.login)
	})
	return r
}

// Start listens on cfg.Port in the background.
func (s *Server) Start() *http.Server {
	addr := fmt.Sprintf(":%d", s.cfg.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("dummy server failed", zap.Error(err))
		}
	}()
	s.log.Info("dummy server listening", zap.String("addr", addr))
	return server
}

// Hits returns how many requests reached path.
func (s *Server) Hits(path string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hits[path]
}

// Registered returns the number of accounts.
func (s *Server) Registered() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.accounts)
}

func (s *Server) count(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.hits[r.URL.Path]++
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) faults(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.Latency > 0 {
			select {
			case <-time.After(time.Duration(rand.Int63n(int64(s.cfg.Latency)))):
			case <-r.Context().Done():
				return
			}
		}
		if s.cfg.ErrorRate > 0 && rand.Float64() < s.cfg.ErrorRate {
			http.Error(w, "500 Internal Server Error", http.StatusInternalServerError)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "UP"})
}

func (s *Server) test(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "Webhook funcionando correctamente"})
}

func (s *Server) chat(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Mensaje string `json:"mensaje"`
		Usuario string `json:"usuario"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Mensaje) == "" {
		http.Error(w, "El mensaje no puede estar vacío", http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"respuesta": "Recibido: " + req.Mensaje,
		"usuario":   req.Usuario,
	})
}

func (s *Server) menuOptions(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"titulo":   "Menú principal",
		"opciones": menu,
		"estado":   "activo",
	})
}

func (s *Server) menuProcess(w http.ResponseWriter, r *http.Request) {
	if _, err := s.authenticate(r); err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	id, err := strconv.Atoi(r.URL.Query().Get("optionId"))
	if err != nil || id < 1 || id > len(menu) {
		http.Error(w, "Opción no válida", http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"opcion":    menu[id-1],
		"sessionId": r.URL.Query().Get("sessionId"),
	})
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var a struct {
		account
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&a); err != nil {
		http.Error(w, "JSON inválido", http.StatusBadRequest)
		return
	}
	if a.Username == "" || a.Password == "" || a.Email == "" {
		http.Error(w, "username, email y password son obligatorios", http.StatusBadRequest)
		return
	}
	a.account.Password = a.Password

	s.mu.Lock()
	_, exists := s.accounts[a.Username]
	if !exists {
		s.accounts[a.Username] = a.account
	}
	s.mu.Unlock()

	if exists {
		http.Error(w, "El usuario ya existe", http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, a.account)
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "JSON inválido", http.StatusBadRequest)
		return
	}

	s.mu.RLock()
	a, ok := s.accounts[req.Username]
	s.mu.RUnlock()
	if !ok || a.Password != req.Password {
		http.Error(w, "Credenciales inválidas", http.StatusBadRequest)
		return
	}

	token, err := s.issue(a.Username)
	if err != nil {
		s.log.Error("sign token", zap.Error(err))
		http.Error(w, "Error interno", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"token":   token,
		"usuario": a,
		"message": "Login exitoso",
	})
}

func (s *Server) issue(username string) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   username,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(24 * time.Hour)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.Secret))
}

func (s *Server) authenticate(r *http.Request) (string, error) {
	raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok || raw == "" {
		return "", errors.New("missing bearer token")
	}
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(s.cfg.Secret), nil
	})
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

// Shutdown stops a server returned by Start.
func Shutdown(server *http.Server, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return server.Shutdown(ctx)
}

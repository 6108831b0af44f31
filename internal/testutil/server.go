package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"slices"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"tasksync/internal/service"
)

// Request is a request seen by Server.
type Request struct {
	Method string
	Path   string
	Token  string
}

type serverUser struct {
	user     service.User
	password string
}

// Server is a fake task API served over HTTP. Its behaviour mirrors the
// real backend: tokens in the x-auth-token header, {"msg": ...} error
// payloads, tasks keyed by "_id".
type Server struct {
	*httptest.Server

	mu         sync.Mutex
	users      map[string]serverUser // email -> account
	tokens     map[string]string     // token -> email
	tasks      map[string][]service.Task
	categories []string
	requests   []Request
	failures   map[string]failure // "METHOD /path-template" -> one-shot failure
}

type failure struct {
	status int
	msg    string
}

// NewServer starts a Server that is closed when the test ends.
func NewServer(t *testing.T) *Server {
	t.Helper()
	s := &Server{
		users:      make(map[string]serverUser),
		tokens:     make(map[string]string),
		tasks:      make(map[string][]service.Task),
		categories: slices.Clone(service.DefaultCategories),
		failures:   make(map[string]failure),
	}
	s.Server = httptest.NewServer(s.routes())
	t.Cleanup(s.Close)
	return s
}

// APIURL returns the base URL including the /api prefix.
func (s *Server) APIURL() string {
	return s.URL + "/api"
}

func (s *Server) routes() http.Handler {
	r := mux.NewRouter()
	r.Use(s.record)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/auth/register", s.register).Methods(http.MethodPost)
	api.HandleFunc("/auth/login", s.login).Methods(http.MethodPost)

	protected := api.NewRoute().Subrouter()
	protected.Use(s.requireToken)
	protected.HandleFunc("/auth/me", s.me).Methods(http.MethodGet)
	protected.HandleFunc("/tasks", s.listTasks).Methods(http.MethodGet)
	protected.HandleFunc("/tasks", s.createTask).Methods(http.MethodPost)
	protected.HandleFunc("/tasks/{taskID}", s.updateTask).Methods(http.MethodPut)
	protected.HandleFunc("/tasks/{taskID}", s.deleteTask).Methods(http.MethodDelete)
	protected.HandleFunc("/categories", s.listCategories).Methods(http.MethodGet)
	return r
}

// AddUser creates an account and returns a valid token for it.
func (s *Server) AddUser(name, email, password string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[email] = serverUser{
		user:     service.User{ID: uuid.NewString(), Name: name, Email: email},
		password: password,
	}
	tok := uuid.NewString()
	s.tokens[tok] = email
	return tok
}

// AddTask seeds a task for email, newest first.
func (s *Server) AddTask(email string, t service.Task) service.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	s.tasks[email] = append([]service.Task{t}, s.tasks[email]...)
	return t
}

// Tasks returns the stored tasks for email.
func (s *Server) Tasks(email string) []service.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.tasks[email])
}

// FailOnce makes the next request matching route (e.g. "DELETE /api/tasks/{taskID}")
// respond with status and {"msg": msg}.
func (s *Server) FailOnce(route string, status int, msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[route] = failure{status: status, msg: msg}
}

// Requests returns the requests seen so far.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.requests)
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests = append(s.requests, Request{
			Method: r.Method,
			Path:   r.URL.Path,
			Token:  r.Header.Get("x-auth-token"),
		})
		key := r.Method + " "
		if route := mux.CurrentRoute(r); route != nil {
			tmpl, _ := route.GetPathTemplate()
			key += tmpl
		}
		f, fail := s.failures[key]
		if fail {
			delete(s.failures, key)
		}
		s.mu.Unlock()

		if fail {
			writeMsg(w, f.status, f.msg)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tok := r.Header.Get("x-auth-token")
		if tok == "" {
			writeMsg(w, http.StatusUnauthorized, "No token, authorization denied")
			return
		}
		s.mu.Lock()
		_, ok := s.tokens[tok]
		s.mu.Unlock()
		if !ok {
			writeMsg(w, http.StatusUnauthorized, "Token is not valid")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) owner(r *http.Request) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tokens[r.Header.Get("x-auth-token")]
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Email == "" || body.Password == "" || body.Name == "" {
		writeMsg(w, http.StatusBadRequest, "Please enter all fields")
		return
	}
	s.mu.Lock()
	if _, exists := s.users[body.Email]; exists {
		s.mu.Unlock()
		writeMsg(w, http.StatusBadRequest, "User already exists")
		return
	}
	s.mu.Unlock()
	tok := s.AddUser(body.Name, body.Email, body.Password)
	writeJSON(w, http.StatusOK, map[string]string{"token": tok})
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeMsg(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[body.Email]
	if !ok || u.password != body.Password {
		writeMsg(w, http.StatusBadRequest, "Invalid credentials")
		return
	}
	tok := uuid.NewString()
	s.tokens[tok] = body.Email
	writeJSON(w, http.StatusOK, map[string]string{"token": tok})
}

func (s *Server) me(w http.ResponseWriter, r *http.Request) {
	email := s.owner(r)
	s.mu.Lock()
	u := s.users[email].user
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, u)
}

func (s *Server) listTasks(w http.ResponseWriter, r *http.Request) {
	tasks := s.Tasks(s.owner(r))
	if tasks == nil {
		tasks = []service.Task{}
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (s *Server) createTask(w http.ResponseWriter, r *http.Request) {
	var in service.TaskInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeMsg(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if in.Title == "" {
		writeMsg(w, http.StatusBadRequest, "Title is required")
		return
	}
	if in.Priority == "" {
		in.Priority = service.PriorityMedium
	}
	t := s.AddTask(s.owner(r), service.Task{
		Title:       in.Title,
		Description: in.Description,
		Priority:    in.Priority,
		DueDate:     in.DueDate,
		Completed:   in.Completed,
		Categories:  in.Categories,
	})
	writeJSON(w, http.StatusCreated, t)
}

func (s *Server) updateTask(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["taskID"]
	var patch service.TaskPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeMsg(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	email := s.owner(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, t := range s.tasks[email] {
		if t.ID == id {
			s.tasks[email][i] = patch.Apply(t)
			writeJSON(w, http.StatusOK, s.tasks[email][i])
			return
		}
	}
	writeMsg(w, http.StatusNotFound, "Task not found")
}

func (s *Server) deleteTask(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["taskID"]
	email := s.owner(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	tasks := s.tasks[email]
	for i, t := range tasks {
		if t.ID == id {
			s.tasks[email] = append(tasks[:i:i], tasks[i+1:]...)
			w.WriteHeader(http.StatusNoContent)
			return
		}
	}
	writeMsg(w, http.StatusNotFound, "Task not found")
}

func (s *Server) listCategories(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	c := slices.Clone(s.categories)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, c)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeMsg(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"msg": msg})
}

package web

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/modernice/goes/command"
	"github.com/modernice/goes/command/cmdbus/dispatch"
	"github.com/neoglyph/rippley/agent"
	"github.com/neoglyph/rippley/chat"
	"github.com/neoglyph/rippley/internal/api"
	"github.com/neoglyph/rippley/internal/ratelimit"
	"github.com/neoglyph/rippley/memory"
	"github.com/neoglyph/rippley/shell"
	"github.com/neoglyph/rippley/task"
	"github.com/neoglyph/rippley/web/routes"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	g "maragu.dev/gomponents"
)

// Server is the Rippley web server.
type Server struct {
	router chi.Router

	commands command.Bus
}

// Option is a server option.
type Option func(*Server)

// WithShell returns an Option that serves the viewer document at "/" with the
// provided fragment in the body, and the chatbot page at "/chatbot".
func WithShell(meta shell.Metadata, content []g.Node, opts ...routes.Option) Option {
	return func(s *Server) {
		chatMeta := meta
		chatMeta.Title = meta.Title + " Chatbot"

		r := routes.New(opts...)
		r.Install(s.router, routes.ShowViewer, page(meta, content...))
		r.Install(s.router, routes.ShowChatbot, page(chatMeta, shell.Chatbot(chatMeta)...))
	}
}

func page(meta shell.Metadata, content ...g.Node) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		shellRenders.Inc()
		api.HTML(w, r, http.StatusOK, func(w io.Writer) error {
			return shell.Render(w, meta, content...)
		})
	}
}

// WithAgents returns an Option that adds agent routes to the server.
func WithAgents(repo agent.Repository, lookup *agent.Lookup, opts ...routes.Option) Option {
	return func(s *Server) {
		s.router.Mount("/api/agents", newAgentServer(repo, lookup, s.commands, routes.New(opts...)))
	}
}

// WithTasks returns an Option that adds task routes and the "/api/simulate"
// endpoint to the server.
func WithTasks(runner *task.Runner, opts ...routes.Option) Option {
	return func(s *Server) {
		srv := newTaskServer(runner, routes.New(opts...))
		s.router.Mount("/api/tasks", srv)
		srv.routes.Install(s.router, routes.Simulate, http.HandlerFunc(srv.simulate))
	}
}

// WithMemory returns an Option that adds memory routes to the server.
func WithMemory(manager *memory.Manager, opts ...routes.Option) Option {
	return func(s *Server) {
		s.router.Mount("/api/memory", newMemoryServer(manager, routes.New(opts...)))
	}
}

// WithChat returns an Option that adds the "/api/chat" endpoint to the server.
func WithChat(client chat.Client, opts ...routes.Option) Option {
	return func(s *Server) {
		routes.New(opts...).Install(s.router, routes.Chat, chatHandler(client))
	}
}

// New returns the web server. Use the WithXXX Options to add routes to the
// server:
//
//	var commands command.Bus
//	srv := New(commands, WithShell(shell.Default(), nil), WithAgents(repo, lookup))
func New(commands command.Bus, opts ...Option) *Server {
	s := Server{
		router:   chi.NewRouter(),
		commands: commands,
	}
	s.router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		api.JSON(w, r, http.StatusOK, map[string]string{"status": "healthy"})
	})
	s.router.Method("GET", "/metrics", promhttp.Handler())
	for _, opt := range opts {
		opt(&s)
	}
	return &s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// RateLimit returns a middleware that rejects requests exceeding the
// per-client limit with a 429 response. A nil limiter allows everything.
func RateLimit(limiter *ratelimit.MapLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.RemoteAddr
			if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
				key = host
			}
			if !limiter.Allow(key, time.Now()) {
				api.Error(w, r, http.StatusTooManyRequests, api.Friendly(nil, "Too many requests."))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

type agentServer struct {
	chi.Router

	repo     agent.Repository
	lookup   *agent.Lookup
	commands command.Bus
	routes   routes.Routes
}

func newAgentServer(repo agent.Repository, lookup *agent.Lookup, commands command.Bus, routes routes.Routes) *agentServer {
	s := agentServer{
		Router:   chi.NewRouter(),
		repo:     repo,
		lookup:   lookup,
		commands: commands,
		routes:   routes,
	}
	s.init()
	return &s
}

func (s *agentServer) init() {
	s.routes.Install(s, routes.CreateAgent, http.HandlerFunc(s.createAgent))
	s.routes.Install(s, routes.ListAgents, http.HandlerFunc(s.listAgents))
	s.routes.Install(s, routes.LookupAgentByName, http.HandlerFunc(s.lookupName))
	s.routes.Install(s, routes.ShowAgent, http.HandlerFunc(s.showAgent))
	s.routes.Install(s, routes.ConfigureAgent, http.HandlerFunc(s.configureAgent))
	s.routes.Install(s, routes.DeactivateAgent, http.HandlerFunc(s.deactivateAgent))
}

func (s *agentServer) createAgent(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name   string            `json:"name"`
		Type   string            `json:"type"`
		Config map[string]string `json:"config"`
	}

	if err := api.Decode(r.Body, &req); err != nil {
		api.Error(w, r, http.StatusBadRequest, err)
		return
	}

	if strings.TrimSpace(req.Name) == "" {
		api.Error(w, r, http.StatusUnprocessableEntity, api.Friendly(nil, "Agent name must not be empty."))
		return
	}

	id := uuid.New()
	cmd := agent.CreateCmd(id, req.Name, req.Type, req.Config)

	if err := s.commands.Dispatch(r.Context(), cmd, dispatch.Sync()); err != nil {
		if strings.Contains(err.Error(), agent.ErrNameTaken.Error()) {
			api.Error(w, r, http.StatusConflict, api.Friendly(err, "An agent named %q already exists.", req.Name))
			return
		}
		api.Error(w, r, http.StatusInternalServerError, api.Friendly(err, "Failed to create agent: %v", err))
		return
	}

	a, err := s.repo.Fetch(r.Context(), id)
	if err != nil {
		api.Error(w, r, http.StatusInternalServerError, api.Friendly(err, "Failed to fetch agent: %v", err))
		return
	}

	api.JSON(w, r, http.StatusCreated, a)
}

func (s *agentServer) listAgents(w http.ResponseWriter, r *http.Request) {
	names := s.lookup.Names()
	if names == nil {
		names = make([]string, 0)
	}
	api.JSON(w, r, http.StatusOK, map[string]any{"agents": names})
}

func (s *agentServer) lookupName(w http.ResponseWriter, r *http.Request) {
	var resp struct {
		AgentID uuid.UUID `json:"agentId"`
	}

	name := chi.URLParam(r, "Name")

	id, ok := s.lookup.Name(name)
	if !ok {
		api.Error(w, r, http.StatusNotFound, api.Friendly(nil, "No agent named %q found.", name))
		return
	}
	resp.AgentID = id

	api.JSON(w, r, http.StatusOK, resp)
}

func (s *agentServer) showAgent(w http.ResponseWriter, r *http.Request) {
	id, err := api.ExtractUUID(r, "AgentID")
	if err != nil {
		api.Error(w, r, http.StatusBadRequest, err)
		return
	}

	a, err := s.repo.Fetch(r.Context(), id)
	if err != nil {
		api.Error(w, r, http.StatusInternalServerError, api.Friendly(err, "Failed to fetch agent: %v", err))
		return
	}

	if a.Name == "" {
		api.Error(w, r, http.StatusNotFound, api.Friendly(nil, "Agent %q not found.", id))
		return
	}

	api.JSON(w, r, http.StatusOK, a)
}

func (s *agentServer) configureAgent(w http.ResponseWriter, r *http.Request) {
	id, err := api.ExtractUUID(r, "AgentID")
	if err != nil {
		api.Error(w, r, http.StatusBadRequest, err)
		return
	}

	var req struct {
		Config map[string]string `json:"config"`
	}

	if err := api.Decode(r.Body, &req); err != nil {
		api.Error(w, r, http.StatusBadRequest, err)
		return
	}

	cmd := agent.ConfigureCmd(id, req.Config)
	if err := s.commands.Dispatch(r.Context(), cmd, dispatch.Sync()); err != nil {
		api.Error(w, r, http.StatusInternalServerError, api.Friendly(err, "Failed to dispatch %q command: %v", cmd.Name(), err))
		return
	}

	a, err := s.repo.Fetch(r.Context(), id)
	if err != nil {
		api.Error(w, r, http.StatusInternalServerError, api.Friendly(err, "Failed to fetch agent: %v", err))
		return
	}

	api.JSON(w, r, http.StatusOK, a)
}

func (s *agentServer) deactivateAgent(w http.ResponseWriter, r *http.Request) {
	id, err := api.ExtractUUID(r, "AgentID")
	if err != nil {
		api.Error(w, r, http.StatusBadRequest, err)
		return
	}

	cmd := agent.DeactivateCmd(id)
	if err := s.commands.Dispatch(r.Context(), cmd, dispatch.Sync()); err != nil {
		api.Error(w, r, http.StatusInternalServerError, api.Friendly(err, "Failed to dispatch %q command: %v", cmd.Name(), err))
		return
	}

	api.NoContent(w, r)
}

type taskServer struct {
	chi.Router

	runner *task.Runner
	routes routes.Routes
}

func newTaskServer(runner *task.Runner, routes routes.Routes) *taskServer {
	s := taskServer{
		Router: chi.NewRouter(),
		runner: runner,
		routes: routes,
	}
	s.runner.RegisterHandler("simulate", simulateTask)
	s.init()
	return &s
}

func (s *taskServer) init() {
	s.routes.Install(s, routes.EnqueueTask, http.HandlerFunc(s.enqueueTask))
	s.routes.Install(s, routes.TaskStats, http.HandlerFunc(s.taskStats))
	s.routes.Install(s, routes.ShowTask, http.HandlerFunc(s.showTask))
}

func simulateTask(_ context.Context, payload map[string]any) (any, error) {
	input, _ := payload["input"].(string)
	return fmt.Sprintf("Simulated processing of: %s", input), nil
}

func (s *taskServer) enqueueTask(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Type    string         `json:"type"`
		Payload map[string]any `json:"payload"`
	}

	if err := api.Decode(r.Body, &req); err != nil {
		api.Error(w, r, http.StatusBadRequest, err)
		return
	}

	if strings.TrimSpace(req.Type) == "" {
		api.Error(w, r, http.StatusUnprocessableEntity, api.Friendly(nil, "Task type must not be empty."))
		return
	}

	t, err := s.runner.Enqueue(req.Type, req.Payload, nil)
	if err != nil {
		api.Error(w, r, http.StatusServiceUnavailable, api.Friendly(err, "Failed to enqueue task: %v", err))
		return
	}

	api.JSON(w, r, http.StatusAccepted, t)
}

func (s *taskServer) showTask(w http.ResponseWriter, r *http.Request) {
	id, err := api.ExtractUUID(r, "TaskID")
	if err != nil {
		api.Error(w, r, http.StatusBadRequest, err)
		return
	}

	t, ok := s.runner.Get(id)
	if !ok {
		api.Error(w, r, http.StatusNotFound, api.Friendly(nil, "Task %q not found.", id))
		return
	}

	api.JSON(w, r, http.StatusOK, t)
}

func (s *taskServer) taskStats(w http.ResponseWriter, r *http.Request) {
	api.JSON(w, r, http.StatusOK, s.runner.Stats())
}

func (s *taskServer) simulate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Input string `json:"input"`
	}

	if err := api.Decode(r.Body, &req); err != nil {
		api.Error(w, r, http.StatusBadRequest, err)
		return
	}

	if strings.TrimSpace(req.Input) == "" {
		api.Error(w, r, http.StatusUnprocessableEntity, api.Friendly(nil, "Input must not be empty."))
		return
	}

	type outcome struct {
		result any
		err    error
	}

	done := make(chan outcome, 1)
	if _, err := s.runner.Enqueue("simulate", map[string]any{"input": req.Input}, func(result any, err error) {
		done <- outcome{result, err}
	}); err != nil {
		api.Error(w, r, http.StatusServiceUnavailable, api.Friendly(err, "Failed to enqueue task: %v", err))
		return
	}

	select {
	case out := <-done:
		if out.err != nil {
			api.Error(w, r, http.StatusInternalServerError, api.Friendly(out.err, "Simulation failed: %v", out.err))
			return
		}
		api.JSON(w, r, http.StatusOK, map[string]any{
			"result": out.result,
			"status": "success",
		})
	case <-r.Context().Done():
		api.Error(w, r, http.StatusServiceUnavailable, api.Friendly(r.Context().Err(), "Simulation aborted."))
	}
}

type memoryServer struct {
	chi.Router

	manager *memory.Manager
	routes  routes.Routes
}

func newMemoryServer(manager *memory.Manager, routes routes.Routes) *memoryServer {
	s := memoryServer{
		Router:  chi.NewRouter(),
		manager: manager,
		routes:  routes,
	}
	s.init()
	return &s
}

func (s *memoryServer) init() {
	s.routes.Install(s, routes.MemoryStats, http.HandlerFunc(s.memoryStats))
	s.routes.Install(s, routes.ExportMemory, http.HandlerFunc(s.exportMemory))
	s.routes.Install(s, routes.ImportMemory, http.HandlerFunc(s.importMemory))
	s.routes.Install(s, routes.StoreMemory, http.HandlerFunc(s.storeMemory))
	s.routes.Install(s, routes.ShowMemory, http.HandlerFunc(s.showMemory))
	s.routes.Install(s, routes.DeleteMemory, http.HandlerFunc(s.deleteMemory))
	s.routes.Install(s, routes.SearchMemory, http.HandlerFunc(s.searchMemory))
}

func (s *memoryServer) link(w http.ResponseWriter, r *http.Request) (*memory.Link, bool) {
	id, err := api.ExtractUUID(r, "AgentID")
	if err != nil {
		api.Error(w, r, http.StatusBadRequest, err)
		return nil, false
	}
	return s.manager.Link(id), true
}

func (s *memoryServer) storeMemory(w http.ResponseWriter, r *http.Request) {
	l, ok := s.link(w, r)
	if !ok {
		return
	}

	var req struct {
		Value      any            `json:"value"`
		Category   string         `json:"category"`
		Metadata   map[string]any `json:"metadata"`
		TTLSeconds int            `json:"ttlSeconds"`
	}

	if err := api.Decode(r.Body, &req); err != nil {
		api.Error(w, r, http.StatusBadRequest, err)
		return
	}

	var opts []memory.StoreOption
	if req.Category != "" {
		opts = append(opts, memory.WithCategory(req.Category))
	}
	if req.Metadata != nil {
		opts = append(opts, memory.WithMetadata(req.Metadata))
	}
	if req.TTLSeconds > 0 {
		opts = append(opts, memory.WithTTL(time.Duration(req.TTLSeconds)*time.Second))
	}

	key := chi.URLParam(r, "Key")
	if err := l.Store(key, req.Value, opts...); err != nil {
		api.Error(w, r, http.StatusUnprocessableEntity, api.Friendly(err, "Failed to store %q: %v", key, err))
		return
	}

	e, err := l.Retrieve(key)
	if err != nil {
		api.Error(w, r, http.StatusInternalServerError, err)
		return
	}

	api.JSON(w, r, http.StatusCreated, e)
}

func (s *memoryServer) showMemory(w http.ResponseWriter, r *http.Request) {
	l, ok := s.link(w, r)
	if !ok {
		return
	}

	key := chi.URLParam(r, "Key")
	e, err := l.Retrieve(key)
	if err != nil {
		api.Error(w, r, http.StatusNotFound, api.Friendly(err, "No memory stored under %q.", key))
		return
	}

	api.JSON(w, r, http.StatusOK, e)
}

func (s *memoryServer) deleteMemory(w http.ResponseWriter, r *http.Request) {
	l, ok := s.link(w, r)
	if !ok {
		return
	}

	key := chi.URLParam(r, "Key")
	if err := l.Delete(key); err != nil {
		api.Error(w, r, http.StatusNotFound, api.Friendly(err, "No memory stored under %q.", key))
		return
	}

	api.NoContent(w, r)
}

func (s *memoryServer) searchMemory(w http.ResponseWriter, r *http.Request) {
	l, ok := s.link(w, r)
	if !ok {
		return
	}

	query := r.URL.Query().Get("q")
	category := r.URL.Query().Get("category")

	var entries []memory.Entry
	if query == "" && category != "" {
		entries = l.RetrieveCategory(category)
	} else {
		entries = l.Search(query, category)
	}
	if entries == nil {
		entries = make([]memory.Entry, 0)
	}

	api.JSON(w, r, http.StatusOK, map[string]any{"entries": entries})
}

func (s *memoryServer) memoryStats(w http.ResponseWriter, r *http.Request) {
	l, ok := s.link(w, r)
	if !ok {
		return
	}

	api.JSON(w, r, http.StatusOK, l.Stats())
}

func (s *memoryServer) exportMemory(w http.ResponseWriter, r *http.Request) {
	l, ok := s.link(w, r)
	if !ok {
		return
	}

	api.JSON(w, r, http.StatusOK, map[string]any{"entries": l.Export()})
}

func (s *memoryServer) importMemory(w http.ResponseWriter, r *http.Request) {
	l, ok := s.link(w, r)
	if !ok {
		return
	}

	var req struct {
		Entries []memory.Entry `json:"entries"`
	}

	if err := api.Decode(r.Body, &req); err != nil {
		api.Error(w, r, http.StatusBadRequest, err)
		return
	}

	imported := l.Import(req.Entries)

	api.JSON(w, r, http.StatusOK, map[string]any{"imported": imported})
}

func chatHandler(client chat.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Message string `json:"message"`
			System  string `json:"system"`
		}

		if err := api.Decode(r.Body, &req); err != nil {
			chatRequests.WithLabelValues("error").Inc()
			api.Error(w, r, http.StatusBadRequest, err)
			return
		}

		if strings.TrimSpace(req.Message) == "" {
			chatRequests.WithLabelValues("error").Inc()
			api.Error(w, r, http.StatusUnprocessableEntity, api.Friendly(nil, "Message must not be empty."))
			return
		}

		response, err := client.CompleteWithSystem(r.Context(), req.System, req.Message)
		if err != nil {
			chatRequests.WithLabelValues("error").Inc()
			api.Error(w, r, http.StatusInternalServerError, api.Friendly(err, "Chat completion failed: %v", err))
			return
		}

		chatRequests.WithLabelValues("success").Inc()
		api.JSON(w, r, http.StatusOK, map[string]string{"response": response})
	}
}

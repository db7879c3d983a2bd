package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rpggio/ngoboard/internal/auth"
	"github.com/rpggio/ngoboard/internal/domain/project"
	"github.com/rpggio/ngoboard/internal/domain/report"
	"github.com/rpggio/ngoboard/internal/export"
	"github.com/rpggio/ngoboard/internal/mcp"
)

// MCPHandler handles tool dispatch.
type MCPHandler interface {
	Handle(ctx context.Context, id auth.Identity, method string, params json.RawMessage) (any, error)
}

// ProjectGetter loads a single project.
type ProjectGetter interface {
	Get(ctx context.Context, id string) (*project.Project, error)
}

// ReportLister lists the reports of a project.
type ReportLister interface {
	List(ctx context.Context, projectID string, opts report.ListOptions) ([]report.Report, error)
}

// Config wires the HTTP routes. Projects and Reports are optional; without
// them the workbook export route is not registered.
type Config struct {
	Handler        MCPHandler
	Projects       ProjectGetter
	Reports        ReportLister
	AuthMiddleware func(http.Handler) http.Handler
	Logger         *slog.Logger
}

// Server wires HTTP handlers.
type Server struct {
	handler  MCPHandler
	projects ProjectGetter
	reports  ReportLister
	logger   *slog.Logger
}

// NewServer creates an HTTP server router with middleware.
func NewServer(cfg Config) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(RequestLogger(cfg.Logger))

	srv := &Server{
		handler:  cfg.Handler,
		projects: cfg.Projects,
		reports:  cfg.Reports,
		logger:   cfg.Logger,
	}

	r.Get("/health", srv.handleHealth)

	r.Group(func(r chi.Router) {
		if cfg.AuthMiddleware != nil {
			r.Use(cfg.AuthMiddleware)
		}
		r.Post("/rpc", srv.handleRPC)
		if srv.projects != nil && srv.reports != nil {
			r.Get("/projects/{projectID}/reports.xlsx", srv.handleExport)
		}
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleRPC(w http.ResponseWriter, r *http.Request) {
	req, err := ParseRequest(r.Body)
	if err != nil {
		code := ErrInvalidReq
		if errors.Is(err, errParse) {
			code = ErrParseCode
		}
		WriteError(w, nil, code, err.Error(), nil)
		return
	}

	id, ok := auth.FromContext(r.Context())
	if !ok {
		http.Error(w, "missing identity", http.StatusUnauthorized)
		return
	}

	result, err := s.handler.Handle(r.Context(), id, req.Method, req.Params)
	if err != nil {
		if errors.Is(err, auth.ErrUnauthorized) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		s.writeHandlerError(w, r, req, err)
		return
	}

	WriteResult(w, req.ID, result)
}

// codedError is implemented by errors that carry a client-facing code.
type codedError interface {
	error
	CodeValue() string
	DetailsValue() any
}

func (s *Server) writeHandlerError(w http.ResponseWriter, r *http.Request, req Request, err error) {
	if errors.Is(err, mcp.ErrUnknownMethod) {
		WriteError(w, req.ID, ErrMethodNotFound, err.Error(), nil)
		return
	}

	var coded codedError
	if errors.As(err, &coded) {
		code := ErrDomain
		if coded.CodeValue() == mcp.CodeValidation {
			code = ErrInvalidParams
		}
		WriteError(w, req.ID, code, coded.Error(), coded)
		return
	}

	if s.logger != nil {
		s.logger.Error("rpc call failed", "method", req.Method, "request_id", middleware.GetReqID(r.Context()), "error", err)
	}
	WriteError(w, req.ID, ErrInternal, "internal error", nil)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")

	proj, err := s.projects.Get(r.Context(), projectID)
	if err != nil {
		if errors.Is(err, project.ErrProjectNotFound) {
			http.Error(w, "project not found", http.StatusNotFound)
			return
		}
		s.exportFailed(w, r, projectID, err)
		return
	}

	reports, err := s.reports.List(r.Context(), projectID, report.ListOptions{})
	if err != nil {
		s.exportFailed(w, r, projectID, err)
		return
	}

	// Render fully before writing headers so a failure still yields a 500.
	var buf bytes.Buffer
	if err := export.WriteReportsWorkbook(&buf, proj, reports); err != nil {
		s.exportFailed(w, r, projectID, err)
		return
	}

	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s-reports.xlsx"`, proj.ID))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (s *Server) exportFailed(w http.ResponseWriter, r *http.Request, projectID string, err error) {
	if s.logger != nil {
		s.logger.Error("report export failed", "project_id", projectID, "request_id", middleware.GetReqID(r.Context()), "error", err)
	}
	http.Error(w, "export failed", http.StatusInternalServerError)
}

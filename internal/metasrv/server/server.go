// Package server exposes the meta catalog over HTTP: DDL endpoints per
// object kind, snapshot reads, and a websocket notification stream.
package server

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/streamhouse/streamhouse/internal/common/httpx"
	"github.com/streamhouse/streamhouse/internal/common/logtrace"
	commonmiddleware "github.com/streamhouse/streamhouse/internal/common/middleware"
	"github.com/streamhouse/streamhouse/internal/metasrv/catalogmanager"
	"github.com/streamhouse/streamhouse/internal/metasrv/catcommon"
	"github.com/streamhouse/streamhouse/internal/metasrv/config"
)

type MetaServer struct {
	Router  *chi.Mux
	manager *catalogmanager.Manager
}

func CreateNewServer(m *catalogmanager.Manager) (*MetaServer, error) {
	if m == nil {
		return nil, fmt.Errorf("nil catalog manager")
	}
	s := &MetaServer{
		Router:  chi.NewRouter(),
		manager: m,
	}
	return s, nil
}

func (s *MetaServer) MountHandlers() {
	s.Router.Use(commonmiddleware.RequestLogger)
	s.Router.Use(commonmiddleware.PanicHandler)
	if config.Config().HandleCORS {
		s.Router.Use(cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type", "Content-Length", "Authorization", "X-Streamhouse-Principal", "X-Streamhouse-Database"},
		}))
	}
	s.Router.Route("/", s.mountResourceHandlers)
	if logtrace.IsTraceEnabled() {
		fmt.Println("Routes in meta server router")
		walkFunc := func(method string, route string, handler http.Handler, middlewares ...func(http.Handler) http.Handler) error {
			fmt.Printf("%s %s\n", method, route)
			return nil
		}
		if err := chi.Walk(s.Router, walkFunc); err != nil {
			fmt.Printf("Logging err: %s\n", err.Error())
		}
	}
}

func (s *MetaServer) mountResourceHandlers(r chi.Router) {
	r.Use(loadSession)
	r.Mount("/", s.catalogRouter())
	r.Get("/version", s.getVersion)
	r.Get("/notifications", s.streamNotifications)
}

// loadSession resolves the caller's session headers. The principal id becomes
// the owner recorded on created objects; unauthenticated callers act as the
// nil principal. X-Streamhouse-Database sets the session's current database,
// used when a request does not name one explicitly.
func loadSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if raw := r.Header.Get("X-Streamhouse-Principal"); raw != "" {
			principal, err := uuid.Parse(raw)
			if err != nil {
				httpx.ErrInvalidRequest("invalid principal id").Send(w)
				return
			}
			ctx = catcommon.SetPrincipalInContext(ctx, principal)
		}
		if database := r.Header.Get("X-Streamhouse-Database"); database != "" {
			ctx = catcommon.SetDatabaseInContext(ctx, database)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type GetVersionRsp struct {
	ServerVersion  string `json:"serverVersion"`
	ApiVersion     string `json:"apiVersion"`
	CatalogVersion uint64 `json:"catalogVersion"`
}

func (s *MetaServer) getVersion(w http.ResponseWriter, r *http.Request) {
	log.Ctx(r.Context()).Debug().Msg("GetVersion")
	rsp := &GetVersionRsp{
		ServerVersion:  "Streamhouse Meta Server: 0.1.0",
		ApiVersion:     "v1alpha1",
		CatalogVersion: s.manager.Snapshot().Version(),
	}
	httpx.SendJsonRsp(r.Context(), w, http.StatusOK, rsp)
}

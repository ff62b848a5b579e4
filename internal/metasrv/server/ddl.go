package server

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/streamhouse/streamhouse/internal/common/httpx"
	"github.com/streamhouse/streamhouse/internal/metasrv/catalogmanager"
	"github.com/streamhouse/streamhouse/internal/metasrv/catcommon"
	"github.com/streamhouse/streamhouse/pkg/types"
)

func (s *MetaServer) catalogRouter() chi.Router {
	r := chi.NewRouter()
	handlers := []httpx.ResponseHandlerParam{
		{Method: http.MethodPost, Path: "/databases", Handler: s.createDatabase},
		{Method: http.MethodGet, Path: "/databases", Handler: s.listDatabases},
		{Method: http.MethodDelete, Path: "/databases/{objectID}", Handler: s.dropDatabase},

		{Method: http.MethodPost, Path: "/schemas", Handler: s.createSchema},
		{Method: http.MethodGet, Path: "/schemas", Handler: s.listSchemas},
		{Method: http.MethodDelete, Path: "/schemas/{objectID}", Handler: s.dropSchema},

		{Method: http.MethodPost, Path: "/tables", Handler: s.createTable},
		{Method: http.MethodGet, Path: "/tables", Handler: s.listTables},
		{Method: http.MethodPut, Path: "/tables/{objectID}", Handler: s.alterTable},
		{Method: http.MethodDelete, Path: "/tables/{objectID}", Handler: s.dropTable},
		{Method: http.MethodGet, Path: "/tables/{objectID}/indexes", Handler: s.listTableIndexes},

		{Method: http.MethodPost, Path: "/sources", Handler: s.createSource},
		{Method: http.MethodGet, Path: "/sources", Handler: s.listSources},
		{Method: http.MethodDelete, Path: "/sources/{objectID}", Handler: s.dropSource},

		{Method: http.MethodPost, Path: "/sinks", Handler: s.createSink},
		{Method: http.MethodGet, Path: "/sinks", Handler: s.listSinks},
		{Method: http.MethodDelete, Path: "/sinks/{objectID}", Handler: s.dropSink},

		{Method: http.MethodPost, Path: "/indexes", Handler: s.createIndex},
		{Method: http.MethodDelete, Path: "/indexes/{objectID}", Handler: s.dropIndex},

		{Method: http.MethodPost, Path: "/views", Handler: s.createView},
		{Method: http.MethodGet, Path: "/views", Handler: s.listViews},
		{Method: http.MethodDelete, Path: "/views/{objectID}", Handler: s.dropView},

		{Method: http.MethodPost, Path: "/functions", Handler: s.createFunction},
		{Method: http.MethodGet, Path: "/functions", Handler: s.listFunctions},
		{Method: http.MethodDelete, Path: "/functions/{objectID}", Handler: s.dropFunction},

		{Method: http.MethodGet, Path: "/snapshot", Handler: s.getSnapshot},
	}
	for _, h := range handlers {
		r.Method(h.Method, h.Path, httpx.WrapHttpRsp(h.Handler))
	}
	return r
}

func objectIDParam(r *http.Request) (types.ObjectID, error) {
	raw := chi.URLParam(r, "objectID")
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		return 0, httpx.ErrInvalidObjectID()
	}
	return types.ObjectID(id), nil
}

// resolveScope resolves ?database= and ?schema= query params to a schema id
// against the current snapshot. When ?database= is absent the session's
// current database from the X-Streamhouse-Database header is used.
func (s *MetaServer) resolveScope(r *http.Request) (types.ObjectID, error) {
	snap := s.manager.Snapshot()
	database := r.URL.Query().Get("database")
	if database == "" {
		database = catcommon.DatabaseFromContext(r.Context())
	}
	if database == "" {
		return 0, httpx.ErrInvalidDatabase()
	}
	db, ok := snap.GetDatabaseByName(database)
	if !ok {
		return 0, httpx.ErrInvalidDatabase()
	}
	schema := r.URL.Query().Get("schema")
	if schema == "" {
		schema = catalogmanager.DefaultSchemaName
	}
	sc, ok := snap.GetSchemaByName(db.ID, schema)
	if !ok {
		return 0, httpx.ErrInvalidSchema()
	}
	return sc.ID, nil
}

func created(obj any) *httpx.Response {
	return &httpx.Response{StatusCode: http.StatusCreated, Response: obj}
}

func listed(obj any) *httpx.Response {
	return &httpx.Response{StatusCode: http.StatusOK, Response: obj}
}

func dropped() *httpx.Response {
	return &httpx.Response{StatusCode: http.StatusOK, Response: map[string]string{"status": "dropped"}}
}

func (s *MetaServer) createDatabase(r *http.Request) (*httpx.Response, error) {
	spec := &catalogmanager.DatabaseSpec{}
	if err := httpx.GetRequestData(r, spec); err != nil {
		return nil, err
	}
	db, err := s.manager.CreateDatabase(r.Context(), spec)
	if err != nil {
		return nil, err
	}
	return created(db), nil
}

func (s *MetaServer) listDatabases(r *http.Request) (*httpx.Response, error) {
	return listed(s.manager.Snapshot().ListDatabases()), nil
}

func (s *MetaServer) dropDatabase(r *http.Request) (*httpx.Response, error) {
	id, err := objectIDParam(r)
	if err != nil {
		return nil, err
	}
	if err := s.manager.DropDatabase(r.Context(), id); err != nil {
		return nil, err
	}
	return dropped(), nil
}

func (s *MetaServer) createSchema(r *http.Request) (*httpx.Response, error) {
	spec := &catalogmanager.SchemaSpec{}
	if err := httpx.GetRequestData(r, spec); err != nil {
		return nil, err
	}
	sc, err := s.manager.CreateSchema(r.Context(), spec)
	if err != nil {
		return nil, err
	}
	return created(sc), nil
}

func (s *MetaServer) listSchemas(r *http.Request) (*httpx.Response, error) {
	snap := s.manager.Snapshot()
	database := r.URL.Query().Get("database")
	db, ok := snap.GetDatabaseByName(database)
	if !ok {
		return nil, httpx.ErrInvalidDatabase()
	}
	return listed(snap.ListSchemas(db.ID)), nil
}

func (s *MetaServer) dropSchema(r *http.Request) (*httpx.Response, error) {
	id, err := objectIDParam(r)
	if err != nil {
		return nil, err
	}
	if err := s.manager.DropSchema(r.Context(), id); err != nil {
		return nil, err
	}
	return dropped(), nil
}

func (s *MetaServer) createTable(r *http.Request) (*httpx.Response, error) {
	spec := &catalogmanager.TableSpec{}
	if err := httpx.GetRequestData(r, spec); err != nil {
		return nil, err
	}
	table, err := s.manager.CreateTable(r.Context(), spec)
	if err != nil {
		return nil, err
	}
	return created(table), nil
}

func (s *MetaServer) listTables(r *http.Request) (*httpx.Response, error) {
	scID, err := s.resolveScope(r)
	if err != nil {
		return nil, err
	}
	return listed(s.manager.Snapshot().ListTables(scID)), nil
}

func (s *MetaServer) alterTable(r *http.Request) (*httpx.Response, error) {
	id, err := objectIDParam(r)
	if err != nil {
		return nil, err
	}
	req := &catalogmanager.AlterTableRequest{}
	if err := httpx.GetRequestData(r, req); err != nil {
		return nil, err
	}
	table, aerr := s.manager.AlterTable(r.Context(), id, req)
	if aerr != nil {
		return nil, aerr
	}
	return listed(table), nil
}

func (s *MetaServer) dropTable(r *http.Request) (*httpx.Response, error) {
	id, err := objectIDParam(r)
	if err != nil {
		return nil, err
	}
	if err := s.manager.DropTable(r.Context(), id); err != nil {
		return nil, err
	}
	return dropped(), nil
}

func (s *MetaServer) listTableIndexes(r *http.Request) (*httpx.Response, error) {
	id, err := objectIDParam(r)
	if err != nil {
		return nil, err
	}
	return listed(s.manager.Snapshot().IndexesByTable(id)), nil
}

func (s *MetaServer) createSource(r *http.Request) (*httpx.Response, error) {
	spec := &catalogmanager.SourceSpec{}
	if err := httpx.GetRequestData(r, spec); err != nil {
		return nil, err
	}
	source, err := s.manager.CreateSource(r.Context(), spec)
	if err != nil {
		return nil, err
	}
	return created(source), nil
}

func (s *MetaServer) listSources(r *http.Request) (*httpx.Response, error) {
	scID, err := s.resolveScope(r)
	if err != nil {
		return nil, err
	}
	return listed(s.manager.Snapshot().ListSources(scID)), nil
}

func (s *MetaServer) dropSource(r *http.Request) (*httpx.Response, error) {
	id, err := objectIDParam(r)
	if err != nil {
		return nil, err
	}
	if err := s.manager.DropSource(r.Context(), id); err != nil {
		return nil, err
	}
	return dropped(), nil
}

func (s *MetaServer) createSink(r *http.Request) (*httpx.Response, error) {
	spec := &catalogmanager.SinkSpec{}
	if err := httpx.GetRequestData(r, spec); err != nil {
		return nil, err
	}
	sink, err := s.manager.CreateSink(r.Context(), spec)
	if err != nil {
		return nil, err
	}
	return created(sink), nil
}

func (s *MetaServer) listSinks(r *http.Request) (*httpx.Response, error) {
	scID, err := s.resolveScope(r)
	if err != nil {
		return nil, err
	}
	return listed(s.manager.Snapshot().ListSinks(scID)), nil
}

func (s *MetaServer) dropSink(r *http.Request) (*httpx.Response, error) {
	id, err := objectIDParam(r)
	if err != nil {
		return nil, err
	}
	if err := s.manager.DropSink(r.Context(), id); err != nil {
		return nil, err
	}
	return dropped(), nil
}

func (s *MetaServer) createIndex(r *http.Request) (*httpx.Response, error) {
	spec := &catalogmanager.IndexSpec{}
	if err := httpx.GetRequestData(r, spec); err != nil {
		return nil, err
	}
	index, err := s.manager.CreateIndex(r.Context(), spec)
	if err != nil {
		return nil, err
	}
	return created(index), nil
}

func (s *MetaServer) dropIndex(r *http.Request) (*httpx.Response, error) {
	id, err := objectIDParam(r)
	if err != nil {
		return nil, err
	}
	if err := s.manager.DropIndex(r.Context(), id); err != nil {
		return nil, err
	}
	return dropped(), nil
}

func (s *MetaServer) createView(r *http.Request) (*httpx.Response, error) {
	spec := &catalogmanager.ViewSpec{}
	if err := httpx.GetRequestData(r, spec); err != nil {
		return nil, err
	}
	view, err := s.manager.CreateView(r.Context(), spec)
	if err != nil {
		return nil, err
	}
	return created(view), nil
}

func (s *MetaServer) listViews(r *http.Request) (*httpx.Response, error) {
	scID, err := s.resolveScope(r)
	if err != nil {
		return nil, err
	}
	return listed(s.manager.Snapshot().ListViews(scID)), nil
}

func (s *MetaServer) dropView(r *http.Request) (*httpx.Response, error) {
	id, err := objectIDParam(r)
	if err != nil {
		return nil, err
	}
	if err := s.manager.DropView(r.Context(), id); err != nil {
		return nil, err
	}
	return dropped(), nil
}

func (s *MetaServer) createFunction(r *http.Request) (*httpx.Response, error) {
	spec := &catalogmanager.FunctionSpec{}
	if err := httpx.GetRequestData(r, spec); err != nil {
		return nil, err
	}
	fn, err := s.manager.CreateFunction(r.Context(), spec)
	if err != nil {
		return nil, err
	}
	return created(fn), nil
}

func (s *MetaServer) listFunctions(r *http.Request) (*httpx.Response, error) {
	scID, err := s.resolveScope(r)
	if err != nil {
		return nil, err
	}
	return listed(s.manager.Snapshot().ListFunctions(scID)), nil
}

func (s *MetaServer) dropFunction(r *http.Request) (*httpx.Response, error) {
	id, err := objectIDParam(r)
	if err != nil {
		return nil, err
	}
	if err := s.manager.DropFunction(r.Context(), id); err != nil {
		return nil, err
	}
	return dropped(), nil
}

// catalogDump is the full catalog as of one version, the starting point for
// a subscriber before it follows the delta stream.
type catalogDump struct {
	Version   uint64 `json:"version"`
	Databases any    `json:"databases"`
	Schemas   any    `json:"schemas"`
	Tables    any    `json:"tables"`
	Sources   any    `json:"sources"`
	Sinks     any    `json:"sinks"`
	Indexes   any    `json:"indexes"`
	Views     any    `json:"views"`
	Functions any    `json:"functions"`
}

func (s *MetaServer) getSnapshot(r *http.Request) (*httpx.Response, error) {
	snap := s.manager.Snapshot()
	dump := &catalogDump{Version: snap.Version()}

	databases := snap.ListDatabases()
	dump.Databases = databases

	var schemaIDs []types.ObjectID
	var schemas, tables, sources, sinks, indexes, views, functions []any
	for _, db := range databases {
		for _, sc := range snap.ListSchemas(db.ID) {
			schemaIDs = append(schemaIDs, sc.ID)
			schemas = append(schemas, sc)
		}
	}
	for _, scID := range schemaIDs {
		for _, t := range snap.ListAllTables(scID) {
			tables = append(tables, t)
		}
		for _, src := range snap.ListSources(scID) {
			sources = append(sources, src)
		}
		for _, sk := range snap.ListSinks(scID) {
			sinks = append(sinks, sk)
		}
		for _, ix := range snap.ListIndexes(scID) {
			indexes = append(indexes, ix)
		}
		for _, v := range snap.ListViews(scID) {
			views = append(views, v)
		}
		for _, fn := range snap.ListFunctions(scID) {
			functions = append(functions, fn)
		}
	}
	dump.Schemas = schemas
	dump.Tables = tables
	dump.Sources = sources
	dump.Sinks = sinks
	dump.Indexes = indexes
	dump.Views = views
	dump.Functions = functions

	return listed(dump), nil
}

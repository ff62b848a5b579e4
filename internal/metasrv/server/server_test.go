package server

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streamhouse/streamhouse/internal/metasrv/catalogmanager"
	"github.com/streamhouse/streamhouse/internal/metasrv/notifier"
	"github.com/streamhouse/streamhouse/internal/metasrv/store"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	m, err := catalogmanager.New(context.Background(), store.NewMemStore(), notifier.New())
	require.NoError(t, err)
	s, serr := CreateNewServer(m)
	require.NoError(t, serr)
	s.MountHandlers()
	ts := httptest.NewServer(s.Router)
	t.Cleanup(ts.Close)
	return ts
}

func postJSON(t *testing.T, ts *httptest.Server, path, body string) *http.Response {
	t.Helper()
	rsp, err := http.Post(ts.URL+path, "application/json", bytes.NewBufferString(body))
	require.NoError(t, err)
	t.Cleanup(func() { rsp.Body.Close() })
	return rsp
}

func TestDatabaseLifecycleOverHTTP(t *testing.T) {
	ts := newTestServer(t)

	rsp := postJSON(t, ts, "/databases", `{"name": "dev"}`)
	assert.Equal(t, http.StatusCreated, rsp.StatusCode)

	var db struct {
		ID   uint32 `json:"id"`
		Name string `json:"name"`
	}
	require.NoError(t, json.NewDecoder(rsp.Body).Decode(&db))
	assert.Equal(t, "dev", db.Name)
	require.NotZero(t, db.ID)

	// Duplicate names map to 409.
	rsp = postJSON(t, ts, "/databases", `{"name": "dev"}`)
	assert.Equal(t, http.StatusConflict, rsp.StatusCode)

	// Invalid names map to 400.
	rsp = postJSON(t, ts, "/databases", `{"name": "not a name"}`)
	assert.Equal(t, http.StatusBadRequest, rsp.StatusCode)

	list, err := http.Get(ts.URL + "/databases")
	require.NoError(t, err)
	defer list.Body.Close()
	assert.Equal(t, http.StatusOK, list.StatusCode)
}

func TestTableEndpoints(t *testing.T) {
	ts := newTestServer(t)
	postJSON(t, ts, "/databases", `{"name": "dev"}`)

	rsp := postJSON(t, ts, "/tables", `{
		"database": "dev",
		"schema": "public",
		"name": "events",
		"columns": [{"name": "id", "data_type": "bigint"}, {"name": "v", "data_type": "int"}],
		"primary_key": ["id"],
		"definition": "create table events (id bigint primary key, v int)",
		"properties": {"connector": "kafka"}
	}`)
	require.Equal(t, http.StatusCreated, rsp.StatusCode)

	var table struct {
		ID      uint32 `json:"id"`
		Version struct {
			Version uint64 `json:"version"`
		} `json:"version"`
		AssociatedSourceID *uint32 `json:"associated_source_id"`
	}
	require.NoError(t, json.NewDecoder(rsp.Body).Decode(&table))
	require.NotNil(t, table.AssociatedSourceID)

	// The coupled source is listed under the same scope.
	srcList, err := http.Get(ts.URL + "/sources?database=dev&schema=public")
	require.NoError(t, err)
	defer srcList.Body.Close()
	assert.Equal(t, http.StatusOK, srcList.StatusCode)

	// Stale expected_version maps to 409.
	alter := `{"expected_version": 7, "add_columns": [{"name": "ts", "data_type": "timestamp"}]}`
	req, err := http.NewRequest(http.MethodPut, ts.URL+"/tables/"+strconv.FormatUint(uint64(table.ID), 10), strings.NewReader(alter))
	require.NoError(t, err)
	arsp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer arsp.Body.Close()
	assert.Equal(t, http.StatusConflict, arsp.StatusCode)

	// Unknown scope maps to 400.
	badList, err := http.Get(ts.URL + "/tables?database=missing")
	require.NoError(t, err)
	defer badList.Body.Close()
	assert.Equal(t, http.StatusBadRequest, badList.StatusCode)
}

func TestSessionDatabaseHeaderScopesRequests(t *testing.T) {
	ts := newTestServer(t)
	postJSON(t, ts, "/databases", `{"name": "dev"}`)

	// Without an explicit scope the request is rejected.
	bare, err := http.Get(ts.URL + "/tables")
	require.NoError(t, err)
	defer bare.Body.Close()
	assert.Equal(t, http.StatusBadRequest, bare.StatusCode)

	// The session database header supplies the scope instead.
	req, err := http.NewRequest(http.MethodGet, ts.URL+"/tables", nil)
	require.NoError(t, err)
	req.Header.Set("X-Streamhouse-Database", "dev")
	rsp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer rsp.Body.Close()
	assert.Equal(t, http.StatusOK, rsp.StatusCode)

	// An explicit query param wins over the header.
	req, err = http.NewRequest(http.MethodGet, ts.URL+"/tables?database=missing", nil)
	require.NoError(t, err)
	req.Header.Set("X-Streamhouse-Database", "dev")
	rsp2, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer rsp2.Body.Close()
	assert.Equal(t, http.StatusBadRequest, rsp2.StatusCode)
}

func TestNotificationStreamRejectsBadFromVersion(t *testing.T) {
	ts := newTestServer(t)

	rsp, err := http.Get(ts.URL + "/notifications?from=abc")
	require.NoError(t, err)
	defer rsp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, rsp.StatusCode)
	assert.Equal(t, "application/json", rsp.Header.Get("Content-Type"))
}

func TestSnapshotIncludesIndexBackingTables(t *testing.T) {
	ts := newTestServer(t)
	postJSON(t, ts, "/databases", `{"name": "dev"}`)

	rsp := postJSON(t, ts, "/tables", `{
		"database": "dev",
		"schema": "public",
		"name": "events",
		"columns": [{"name": "id", "data_type": "bigint"}, {"name": "v", "data_type": "int"}],
		"primary_key": ["id"],
		"definition": "create table events (id bigint primary key, v int)"
	}`)
	require.Equal(t, http.StatusCreated, rsp.StatusCode)

	rsp = postJSON(t, ts, "/indexes", `{
		"database": "dev",
		"schema": "public",
		"name": "events_by_v",
		"table": "events",
		"columns": ["v"]
	}`)
	require.Equal(t, http.StatusCreated, rsp.StatusCode)

	snap, err := http.Get(ts.URL + "/snapshot")
	require.NoError(t, err)
	defer snap.Body.Close()
	require.Equal(t, http.StatusOK, snap.StatusCode)

	var dump struct {
		Tables []struct {
			ID   uint32 `json:"id"`
			Name string `json:"name"`
		} `json:"tables"`
		Indexes []struct {
			IndexTableID uint32 `json:"index_table_id"`
		} `json:"indexes"`
	}
	require.NoError(t, json.NewDecoder(snap.Body).Decode(&dump))
	require.Len(t, dump.Indexes, 1)

	// Every table an index references must be present in the dump, hidden
	// backing tables included; otherwise a resyncing subscriber sees an
	// index whose table does not exist.
	seen := map[uint32]string{}
	for _, tbl := range dump.Tables {
		seen[tbl.ID] = tbl.Name
	}
	backing, ok := seen[dump.Indexes[0].IndexTableID]
	require.True(t, ok, "dump is missing the table the index references")
	assert.Equal(t, "__index_events_by_v", backing)
}

func TestNotificationStream(t *testing.T) {
	ts := newTestServer(t)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/notifications?from=0"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	postJSON(t, ts, "/databases", `{"name": "dev"}`)

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, payload, err := conn.ReadMessage()
	require.NoError(t, err)

	var delta notifier.Delta
	require.NoError(t, json.Unmarshal(payload, &delta))
	assert.Equal(t, uint64(1), delta.Version)
	require.Len(t, delta.Changes, 2)
	assert.Equal(t, notifier.OpCreated, delta.Changes[0].Op)
}

func TestSnapshotEndpoint(t *testing.T) {
	ts := newTestServer(t)
	postJSON(t, ts, "/databases", `{"name": "dev"}`)

	rsp, err := http.Get(ts.URL + "/snapshot")
	require.NoError(t, err)
	defer rsp.Body.Close()
	require.Equal(t, http.StatusOK, rsp.StatusCode)

	var dump struct {
		Version   uint64 `json:"version"`
		Databases []any  `json:"databases"`
		Schemas   []any  `json:"schemas"`
	}
	require.NoError(t, json.NewDecoder(rsp.Body).Decode(&dump))
	assert.Equal(t, uint64(1), dump.Version)
	assert.Len(t, dump.Databases, 1)
	assert.Len(t, dump.Schemas, 1)
}

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/starford/modeltree/internal/models"
	"github.com/starford/modeltree/internal/sse"
	"github.com/starford/modeltree/internal/testutil"
	"github.com/starford/modeltree/internal/treeservice"
)

// testEnv loads the sample model tree behind a router. An empty authToken
// means disabled mode.
func testEnv(t *testing.T, authToken string) (*treeservice.Service, http.Handler, string) {
	t.Helper()
	dir, source := testutil.ModelDir(t, testutil.SampleModels)
	svc, err := treeservice.Open(source, "", treeservice.WithJournal(testutil.Journal(t)))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	broker := sse.NewBroker(time.Second)
	t.Cleanup(broker.Close)
	router := NewRouter(svc, authToken != "", authToken, broker)
	return svc, router, dir
}

func do(t *testing.T, h http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		rd = bytes.NewReader(raw)
	} else {
		rd = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, rd)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestRootAndNode(t *testing.T) {
	_, router, _ := testEnv(t, "")

	w := do(t, router, http.MethodGet, "/root", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("root status = %d", w.Code)
	}
	var root RootResponse
	_ = json.Unmarshal(w.Body.Bytes(), &root)
	if root.Root != "R" {
		t.Errorf("root = %q, want R", root.Root)
	}

	w = do(t, router, http.MethodGet, "/nodes?name=S", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("node status = %d, body = %s", w.Code, w.Body.String())
	}
	var node models.Node
	_ = json.Unmarshal(w.Body.Bytes(), &node)
	if node.Name != "S" || node.RefCount != 3 || !node.HasChildren {
		t.Errorf("node = %+v", node)
	}
}

func TestQueries(t *testing.T) {
	_, router, _ := testEnv(t, "")

	w := do(t, router, http.MethodGet, "/nodes/children?name=R", nil)
	var children ChildrenResponse
	_ = json.Unmarshal(w.Body.Bytes(), &children)
	if strings.Join(children.Children, ",") != "A,S,S" {
		t.Errorf("children = %v", children.Children)
	}

	w = do(t, router, http.MethodGet, "/nodes/algorithm?name=L", nil)
	var alg AlgorithmResponse
	_ = json.Unmarshal(w.Body.Bytes(), &alg)
	if alg.Algorithm != "sum" {
		t.Errorf("algorithm = %q, want sum", alg.Algorithm)
	}

	w = do(t, router, http.MethodGet, "/nodes/refcount?name=nobody", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("refcount of missing = %d, want 200", w.Code)
	}
	var rc RefCountResponse
	_ = json.Unmarshal(w.Body.Bytes(), &rc)
	if rc.RefCount != 0 {
		t.Errorf("ref_count = %d, want 0", rc.RefCount)
	}
}

func TestNameRequired(t *testing.T) {
	_, router, _ := testEnv(t, "")
	for _, target := range []string{"/nodes", "/nodes/children", "/nodes/algorithm", "/nodes/refcount"} {
		if w := do(t, router, http.MethodGet, target, nil); w.Code != http.StatusBadRequest {
			t.Errorf("%s without name = %d, want 400", target, w.Code)
		}
	}
}

func TestErrorMapping(t *testing.T) {
	_, router, _ := testEnv(t, "")

	cases := []struct {
		method, target string
		body           any
		status         int
		kind           string
	}{
		{http.MethodGet, "/nodes?name=ghost", nil, http.StatusNotFound, "not_found"},
		{http.MethodGet, "/nodes/children?name=L", nil, http.StatusConflict, "kind_mismatch"},
		{http.MethodGet, "/nodes/algorithm?name=A", nil, http.StatusConflict, "kind_mismatch"},
		{http.MethodPost, "/nodes/delete", DeleteNodeRequest{Parent: "R", Name: "L"}, http.StatusConflict, "no_edge"},
		{http.MethodPost, "/nodes/add", AddNodeRequest{Parent: "L"}, http.StatusConflict, "kind_mismatch"},
		{http.MethodPut, "/nodes/algorithm", AlgorithmRequest{Name: "S", Algorithm: "x"}, http.StatusConflict, "kind_mismatch"},
		{http.MethodPost, "/nodes/rename", RenameRequest{OldName: "ghost", NewName: "x"}, http.StatusNotFound, "not_found"},
	}
	for _, c := range cases {
		w := do(t, router, c.method, c.target, c.body)
		if w.Code != c.status {
			t.Errorf("%s %s = %d, want %d (%s)", c.method, c.target, w.Code, c.status, w.Body.String())
			continue
		}
		var e errResponse
		_ = json.Unmarshal(w.Body.Bytes(), &e)
		if e.Kind != c.kind {
			t.Errorf("%s %s kind = %q, want %q", c.method, c.target, e.Kind, c.kind)
		}
	}
}

func TestBadBodies(t *testing.T) {
	_, router, _ := testEnv(t, "")

	req := httptest.NewRequest(http.MethodPost, "/nodes/rename", strings.NewReader("{not json"))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("malformed body = %d, want 400", w.Code)
	}

	w = do(t, router, http.MethodPost, "/nodes/rename", map[string]string{"old_name": "A"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing new_name = %d, want 400", w.Code)
	}

	w = do(t, router, http.MethodPost, "/nodes/add", map[string]string{"parent": "R", "extra": "x"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("unknown field = %d, want 400", w.Code)
	}
}

func TestMutationFlow(t *testing.T) {
	svc, router, _ := testEnv(t, "")
	ctx := context.Background()

	w := do(t, router, http.MethodPost, "/nodes/add", AddNodeRequest{Parent: "R"})
	if w.Code != http.StatusCreated {
		t.Fatalf("add = %d, body = %s", w.Code, w.Body.String())
	}
	var added AddNodeResponse
	_ = json.Unmarshal(w.Body.Bytes(), &added)
	if added.Name != "new node" {
		t.Errorf("added = %q", added.Name)
	}

	// Renaming a leaf onto another leaf merges.
	w = do(t, router, http.MethodPost, "/nodes/rename", RenameRequest{OldName: added.Name, NewName: "L"})
	if w.Code != http.StatusOK {
		t.Fatalf("rename = %d, body = %s", w.Code, w.Body.String())
	}
	var renamed map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &renamed)
	if renamed["new_name"] != "L" || renamed["merged"] != true || renamed["requires_update"] != true {
		t.Errorf("rename result = %v", renamed)
	}
	if got := svc.RefCount(ctx, "L"); got != 3 {
		t.Errorf("L ref_count = %d, want 3", got)
	}

	w = do(t, router, http.MethodPut, "/nodes/algorithm", AlgorithmRequest{Name: "L", Algorithm: "median"})
	if w.Code != http.StatusOK {
		t.Fatalf("update algorithm = %d", w.Code)
	}

	w = do(t, router, http.MethodPost, "/nodes/toggle", ToggleRequest{Name: "A"})
	if w.Code != http.StatusOK {
		t.Fatalf("toggle = %d", w.Code)
	}

	w = do(t, router, http.MethodPost, "/nodes/delete", DeleteNodeRequest{Parent: "R", Name: "S"})
	if w.Code != http.StatusOK {
		t.Fatalf("delete = %d, body = %s", w.Code, w.Body.String())
	}
	var del map[string]bool
	_ = json.Unmarshal(w.Body.Bytes(), &del)
	// A was toggled to a leaf, so R held every reference to S.
	if !del["removed"] {
		t.Errorf("delete result = %v, want removed", del)
	}

	w = do(t, router, http.MethodGet, "/journal?limit=10", nil)
	var j struct {
		Entries []struct {
			Op string `json:"op"`
		} `json:"entries"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &j)
	var ops []string
	for _, e := range j.Entries {
		ops = append(ops, e.Op)
	}
	if strings.Join(ops, ",") != "delete_node,toggle_node_kind,update_algorithm,rename,add_node" {
		t.Errorf("journal ops = %v", ops)
	}
}

func TestLogEndpoint(t *testing.T) {
	_, router, _ := testEnv(t, "")

	if w := do(t, router, http.MethodPost, "/log", LogRequest{Level: "warn", Message: "hello"}); w.Code != http.StatusNoContent {
		t.Errorf("log = %d, want 204", w.Code)
	}
	if w := do(t, router, http.MethodPost, "/log", LogRequest{Level: "shout", Message: "hello"}); w.Code != http.StatusBadRequest {
		t.Errorf("bad level = %d, want 400", w.Code)
	}
	w := do(t, router, http.MethodGet, "/journal?op=log", nil)
	if !strings.Contains(w.Body.String(), `"message":"hello"`) {
		t.Errorf("journal = %s", w.Body.String())
	}
}

func TestReloadEndpoint(t *testing.T) {
	_, router, dir := testEnv(t, "")

	do(t, router, http.MethodPost, "/nodes/add", AddNodeRequest{Parent: "R"})

	w := do(t, router, http.MethodPost, "/reload", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("reload = %d, body = %s", w.Code, w.Body.String())
	}
	if w := do(t, router, http.MethodGet, "/nodes?name=new+node", nil); w.Code != http.StatusNotFound {
		t.Errorf("edit survived reload: %d", w.Code)
	}

	testutil.WriteFile(t, dir, "bad.yaml", "name: Bad\n")
	if w := do(t, router, http.MethodPost, "/reload", nil); w.Code != http.StatusUnprocessableEntity {
		t.Errorf("reload of invalid dir = %d, want 422", w.Code)
	}
}

func TestExportEndpoints(t *testing.T) {
	_, router, _ := testEnv(t, "")

	w := do(t, router, http.MethodGet, "/graph/mermaid", nil)
	if !strings.HasPrefix(w.Body.String(), "graph TD") {
		t.Errorf("mermaid = %q", w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("mermaid content-type = %q", ct)
	}

	w = do(t, router, http.MethodGet, "/outline", nil)
	if !strings.HasPrefix(w.Body.String(), "# R") {
		t.Errorf("outline = %q", w.Body.String())
	}

	w = do(t, router, http.MethodGet, "/snapshot", nil)
	var snap SnapshotResponse
	_ = json.Unmarshal(w.Body.Bytes(), &snap)
	if snap.Root != "R" || len(snap.Models) != 4 {
		t.Errorf("snapshot root=%q models=%d", snap.Root, len(snap.Models))
	}
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	_, router, _ := testEnv(t, "secret123")
	req := httptest.NewRequest(http.MethodGet, "/root", nil)
	req.Header.Set("Authorization", "Bearer secret123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("authed = %d, want 200", w.Code)
	}
}

func TestAuthMiddleware_MissingToken(t *testing.T) {
	_, router, _ := testEnv(t, "secret123")
	if w := do(t, router, http.MethodGet, "/root", nil); w.Code != http.StatusUnauthorized {
		t.Errorf("unauthed = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_WrongToken(t *testing.T) {
	_, router, _ := testEnv(t, "secret123")
	req := httptest.NewRequest(http.MethodGet, "/root", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong token = %d, want 401", w.Code)
	}
}

func TestSSEEvents_AuthProtected(t *testing.T) {
	_, router, _ := testEnv(t, "secret")
	if w := do(t, router, http.MethodGet, "/events", nil); w.Code != http.StatusUnauthorized {
		t.Errorf("SSE no auth = %d, want 401", w.Code)
	}
}

func TestSSEEvents_ValidToken(t *testing.T) {
	_, router, _ := testEnv(t, "tok")

	// The SSE handler blocks until the request context ends.
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/events", nil).WithContext(ctx)
	req.Header.Set("Authorization", "Bearer tok")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("SSE with valid token = %d, want 200", w.Code)
	}
}

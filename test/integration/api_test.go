// Package integration exercises the full HTTP API against real
// pipelines: an in-memory document store and a deterministic
// embeddings backend served over HTTP.
package integration

import (
	"bytes"
	"encoding/json"
	"hash/fnv"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/semstore-dev/semstore/pkg/api"
	"github.com/semstore-dev/semstore/pkg/embedding"
	"github.com/semstore-dev/semstore/pkg/pipeline"
	"github.com/semstore-dev/semstore/pkg/storage/memory"
	"github.com/semstore-dev/semstore/pkg/transport"
)

const embeddingDims = 32

// startEmbeddingBackend serves a bag-of-words /v1/embeddings endpoint.
// Identical texts embed identically, so similarity is predictable.
func startEmbeddingBackend(t *testing.T) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/embeddings" {
			http.NotFound(w, r)
			return
		}

		var req struct {
			Input []string `json:"input"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		type datum struct {
			Index     int       `json:"index"`
			Embedding []float32 `json:"embedding"`
		}
		data := make([]datum, len(req.Input))
		for i, text := range req.Input {
			vec := make([]float32, embeddingDims)
			for _, token := range strings.Fields(strings.ToLower(text)) {
				h := fnv.New32a()
				h.Write([]byte(token))
				vec[int(h.Sum32())%embeddingDims]++
			}
			data[i] = datum{Index: i, Embedding: vec}
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"object": "list", "data": data})
	}))
	t.Cleanup(srv.Close)
	return srv
}

// startAPI wires the full stack and returns a test server for it.
func startAPI(t *testing.T) *httptest.Server {
	t.Helper()

	backend := startEmbeddingBackend(t)
	embedder := embedding.NewClient(embedding.Config{URL: backend.URL, Model: "test-model"})
	store := memory.New()
	t.Cleanup(func() { store.Close() })

	handler := transport.NewHandler(
		pipeline.NewIngestor(embedder, store, nil),
		pipeline.NewRetriever(embedder, store, nil),
		pipeline.NewLister(store),
		store,
		nil,
		10<<20,
	)

	chain := transport.Chain(
		transport.Recovery(nil),
		transport.RequestID(),
	)

	srv := httptest.NewServer(chain(handler))
	t.Cleanup(srv.Close)
	return srv
}

// ingestFiles posts the given files to /ingest/ and returns the response.
func ingestFiles(t *testing.T, baseURL string, files map[string]string) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for name, content := range files {
		part, err := mw.CreateFormFile("files", name)
		if err != nil {
			t.Fatalf("creating form file: %v", err)
		}
		part.Write([]byte(content))
	}
	mw.Close()

	resp, err := http.Post(baseURL+"/ingest/", mw.FormDataContentType(), &buf)
	if err != nil {
		t.Fatalf("POST /ingest/: %v", err)
	}
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()

	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decoding response body: %v", err)
	}
	return v
}

func TestIngestQueryListRoundTrip(t *testing.T) {
	srv := startAPI(t)

	// Ingest three documents in one batch.
	resp := ingestFiles(t, srv.URL, map[string]string{
		"go.txt":     "go is a statically typed compiled language",
		"python.txt": "python is a dynamically typed interpreted language",
		"coffee.txt": "an espresso machine brews coffee under pressure",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("ingest status = %d, want 200", resp.StatusCode)
	}
	ingested := decodeBody[api.IngestResponse](t, resp)
	if len(ingested.IDs) != 3 {
		t.Fatalf("ingested %d IDs, want 3", len(ingested.IDs))
	}
	if ingested.Status != "documents ingested successfully" {
		t.Errorf("status message = %q", ingested.Status)
	}

	// A query that repeats one document verbatim must rank it first with
	// distance zero.
	queryResp, err := http.Get(srv.URL + "/query/?search_text=" +
		"go%20is%20a%20statically%20typed%20compiled%20language")
	if err != nil {
		t.Fatalf("GET /query/: %v", err)
	}
	if queryResp.StatusCode != http.StatusOK {
		t.Fatalf("query status = %d, want 200", queryResp.StatusCode)
	}
	results := decodeBody[api.QueryResponse](t, queryResp)
	if len(results.Results) != 3 {
		t.Fatalf("query returned %d results, want 3", len(results.Results))
	}
	if results.Results[0].Filename != "go.txt" {
		t.Errorf("closest = %q, want go.txt", results.Results[0].Filename)
	}
	if results.Results[0].Score > 1e-6 {
		t.Errorf("score for verbatim match = %v, want ~0", results.Results[0].Score)
	}
	// Results are ordered by ascending distance.
	for i := 1; i < len(results.Results); i++ {
		if results.Results[i].Score < results.Results[i-1].Score {
			t.Errorf("results out of order at %d: %v then %v",
				i, results.Results[i-1].Score, results.Results[i].Score)
		}
	}

	// Full listing returns all documents with their filenames.
	listResp, err := http.Get(srv.URL + "/database/")
	if err != nil {
		t.Fatalf("GET /database/: %v", err)
	}
	listing := decodeBody[api.ListResponse](t, listResp)
	if len(listing.Documents) != 3 {
		t.Fatalf("listing returned %d documents, want 3", len(listing.Documents))
	}
	seen := map[string]bool{}
	for _, doc := range listing.Documents {
		seen[doc.Filename] = true
	}
	for _, name := range []string{"go.txt", "python.txt", "coffee.txt"} {
		if !seen[name] {
			t.Errorf("listing missing %q", name)
		}
	}
}

func TestQueryCapsResultsAtFive(t *testing.T) {
	srv := startAPI(t)

	files := map[string]string{
		"a.txt": "alpha document one",
		"b.txt": "bravo document two",
		"c.txt": "charlie document three",
		"d.txt": "delta document four",
		"e.txt": "echo document five",
		"f.txt": "foxtrot document six",
		"g.txt": "golf document seven",
	}
	resp := ingestFiles(t, srv.URL, files)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("ingest status = %d, want 200", resp.StatusCode)
	}
	resp.Body.Close()

	queryResp, err := http.Get(srv.URL + "/query/?search_text=document")
	if err != nil {
		t.Fatalf("GET /query/: %v", err)
	}
	results := decodeBody[api.QueryResponse](t, queryResp)
	if len(results.Results) != 5 {
		t.Errorf("query returned %d results, want 5", len(results.Results))
	}
}

func TestIngestRejectsBinaryBatch(t *testing.T) {
	srv := startAPI(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, _ := mw.CreateFormFile("files", "ok.txt")
	part.Write([]byte("fine"))
	part, _ = mw.CreateFormFile("files", "image.bin")
	part.Write([]byte{0xff, 0xfe, 0x00, 0x81})
	mw.Close()

	resp, err := http.Post(srv.URL+"/ingest/", mw.FormDataContentType(), &buf)
	if err != nil {
		t.Fatalf("POST /ingest/: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	errResp := decodeBody[api.ErrorResponse](t, resp)
	if errResp.Error == nil || errResp.Error.Type != api.ErrorTypeInvalidRequest {
		t.Errorf("error = %+v, want invalid_request", errResp.Error)
	}

	// Nothing from the failed batch is visible.
	listResp, err := http.Get(srv.URL + "/database/")
	if err != nil {
		t.Fatalf("GET /database/: %v", err)
	}
	listing := decodeBody[api.ListResponse](t, listResp)
	if len(listing.Documents) != 0 {
		t.Errorf("corpus size = %d after rejected batch, want 0", len(listing.Documents))
	}
}

func TestQueryMissingParameter(t *testing.T) {
	srv := startAPI(t)

	resp, err := http.Get(srv.URL + "/query/")
	if err != nil {
		t.Fatalf("GET /query/: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestEmptyCorpusResponses(t *testing.T) {
	srv := startAPI(t)

	queryResp, err := http.Get(srv.URL + "/query/?search_text=anything")
	if err != nil {
		t.Fatalf("GET /query/: %v", err)
	}
	results := decodeBody[api.QueryResponse](t, queryResp)
	if len(results.Results) != 0 {
		t.Errorf("query on empty corpus returned %d results", len(results.Results))
	}

	listResp, err := http.Get(srv.URL + "/database/")
	if err != nil {
		t.Fatalf("GET /database/: %v", err)
	}
	listing := decodeBody[api.ListResponse](t, listResp)
	if len(listing.Documents) != 0 {
		t.Errorf("listing on empty corpus returned %d documents", len(listing.Documents))
	}
}

func TestRequestIDHeader(t *testing.T) {
	srv := startAPI(t)

	resp, err := http.Get(srv.URL + "/database/")
	if err != nil {
		t.Fatalf("GET /database/: %v", err)
	}
	defer resp.Body.Close()
	if resp.Header.Get("X-Request-ID") == "" {
		t.Error("response missing X-Request-ID header")
	}
}

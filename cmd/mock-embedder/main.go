// Command mock-embedder runs a deterministic embeddings server for
// local development and end-to-end testing. It hashes each input's
// tokens into a fixed-size bag-of-words vector, so identical texts
// always embed identically and similar texts land close together.
//
// Configuration:
//
//	MOCK_PORT - Listen port (default: 9100)
//	MOCK_DIMS - Vector dimensionality (default: 64)
package main

import (
	"context"
	"encoding/json"
	"hash/fnv"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"
)

func main() {
	port := os.Getenv("MOCK_PORT")
	if port == "" {
		port = "9100"
	}

	dims := 64
	if v := os.Getenv("MOCK_DIMS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			dims = n
		}
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/embeddings", handleEmbeddings(dims))
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok\n"))
	})

	srv := &http.Server{Addr: ":" + port, Handler: mux}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("mock embedder starting", "port", port, "dims", dims)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("mock embedder failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("mock embedder shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	srv.Shutdown(shutdownCtx)
}

type embeddingsRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embeddingsResponse struct {
	Object string          `json:"object"`
	Model  string          `json:"model"`
	Data   []embeddingData `json:"data"`
}

type embeddingData struct {
	Object    string    `json:"object"`
	Index     int       `json:"index"`
	Embedding []float32 `json:"embedding"`
}

func handleEmbeddings(dims int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req embeddingsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid JSON: "+err.Error(), http.StatusBadRequest)
			return
		}

		resp := embeddingsResponse{
			Object: "list",
			Model:  req.Model,
			Data:   make([]embeddingData, len(req.Input)),
		}
		for i, text := range req.Input {
			resp.Data[i] = embeddingData{
				Object:    "embedding",
				Index:     i,
				Embedding: embed(text, dims),
			}
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}
}

// embed hashes whitespace-separated tokens into a bag-of-words vector.
// The vector is deterministic for a given text.
func embed(text string, dims int) []float32 {
	vec := make([]float32, dims)
	for _, token := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		h.Write([]byte(token))
		vec[int(h.Sum32())%dims]++
	}
	return vec
}

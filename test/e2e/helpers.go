//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/helicon-hq/helicon/internal/api/handlers"
	"github.com/helicon-hq/helicon/internal/extract"
	"github.com/helicon-hq/helicon/internal/jobs"
	"github.com/helicon-hq/helicon/internal/metrics"
	"github.com/helicon-hq/helicon/internal/openai"
	"github.com/helicon-hq/helicon/internal/repository"
	"github.com/helicon-hq/helicon/internal/server"
	"github.com/helicon-hq/helicon/internal/service"
	"github.com/helicon-hq/helicon/internal/testutil"
)

// E2ETestEnv holds all resources needed for E2E tests
type E2ETestEnv struct {
	T            *testing.T
	Ctx          context.Context
	PostgresC    *testutil.PostgresContainer
	Pool         *pgxpool.Pool
	ServerURL    string
	ServerCloser func()
	BinaryDir    string
	WorkspaceID  string
	SpaceID      string
	HTTPClient   *http.Client
}

// SetupE2EEnv creates a full E2E test environment with a database container
// and an in-process server. Embeddings come from a deterministic local stub,
// so no OpenAI key is needed.
func SetupE2EEnv(t *testing.T) *E2ETestEnv {
	ctx := context.Background()

	pgC := testutil.NewPostgresContainer(ctx, t)
	pool := testutil.NewTestPool(ctx, t, pgC, "../../migrations")

	port, err := getFreePort()
	if err != nil {
		t.Fatalf("failed to get free port: %v", err)
	}

	serverURL, serverCloser := startServer(t, pool, port)

	return &E2ETestEnv{
		T:            t,
		Ctx:          ctx,
		PostgresC:    pgC,
		Pool:         pool,
		ServerURL:    serverURL,
		ServerCloser: serverCloser,
		WorkspaceID:  uuid.NewString(),
		SpaceID:      uuid.NewString(),
		HTTPClient:   &http.Client{Timeout: 30 * time.Second},
	}
}

// Cleanup releases all resources
func (e *E2ETestEnv) Cleanup() {
	if e.ServerCloser != nil {
		e.ServerCloser()
	}
	if e.Pool != nil {
		e.Pool.Close()
	}
	if e.PostgresC != nil {
		e.PostgresC.Terminate(e.Ctx)
	}
	if e.BinaryDir != "" {
		os.RemoveAll(e.BinaryDir)
	}
}

// BuildBinaries builds the helicon and helicond binaries
func (e *E2ETestEnv) BuildBinaries() {
	tmpDir, err := os.MkdirTemp("", "helicon-e2e-*")
	if err != nil {
		e.T.Fatalf("failed to create temp dir: %v", err)
	}
	e.BinaryDir = tmpDir

	cmd := exec.Command("go", "build", "-o", filepath.Join(tmpDir, "helicond"), "./cmd/helicond")
	cmd.Dir = "../.."
	if out, err := cmd.CombinedOutput(); err != nil {
		e.T.Fatalf("failed to build helicond: %v\n%s", err, out)
	}

	cmd = exec.Command("go", "build", "-o", filepath.Join(tmpDir, "helicon"), "./cmd/helicon")
	cmd.Dir = "../.."
	if out, err := cmd.CombinedOutput(); err != nil {
		e.T.Fatalf("failed to build helicon: %v\n%s", err, out)
	}
}

// RunHelicon runs the helicon CLI command against the test server
func (e *E2ETestEnv) RunHelicon(workDir string, args ...string) (string, error) {
	return e.RunHeliconWithInput(workDir, "", args...)
}

// RunHeliconWithInput runs the helicon CLI command with stdin input
func (e *E2ETestEnv) RunHeliconWithInput(workDir string, input string, args ...string) (string, error) {
	cmd := exec.Command(filepath.Join(e.BinaryDir, "helicon"), args...)
	cmd.Dir = workDir
	if input != "" {
		cmd.Stdin = bytes.NewReader([]byte(input))
	}
	cmd.Env = append(os.Environ(),
		fmt.Sprintf("HELICON_API_URL=%s", e.ServerURL),
		fmt.Sprintf("HELICON_WORKSPACE_ID=%s", e.WorkspaceID),
		fmt.Sprintf("HELICON_SPACE_ID=%s", e.SpaceID),
		// Keep a developer's real config file out of the cascade.
		fmt.Sprintf("XDG_CONFIG_HOME=%s", e.BinaryDir),
	)
	out, err := cmd.CombinedOutput()
	return string(out), err
}

// ErrorBody is the error object inside an API error response
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// APIResponse represents a standard API response
type APIResponse struct {
	Data  json.RawMessage `json:"data"`
	Error *ErrorBody      `json:"error,omitempty"`
}

// Get performs a GET request with the env's tenant headers
func (e *E2ETestEnv) Get(path string) (*APIResponse, error) {
	return e.doRequest("GET", path, nil)
}

// Post performs a POST request with the env's tenant headers
func (e *E2ETestEnv) Post(path string, body interface{}) (*APIResponse, error) {
	return e.doRequest("POST", path, body)
}

// Delete performs a DELETE request with the env's tenant headers
func (e *E2ETestEnv) Delete(path string) (*APIResponse, error) {
	return e.doRequest("DELETE", path, nil)
}

func (e *E2ETestEnv) doRequest(method, path string, body interface{}) (*APIResponse, error) {
	url := e.ServerURL + "/api/v1" + path

	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal body: %w", err)
		}
		reqBody = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequest(method, url, reqBody)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	if e.WorkspaceID != "" {
		req.Header.Set("X-Workspace-ID", e.WorkspaceID)
	}
	if e.SpaceID != "" {
		req.Header.Set("X-Space-ID", e.SpaceID)
	}

	resp, err := e.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if len(respBody) == 0 {
		if resp.StatusCode >= 400 {
			return nil, fmt.Errorf("HTTP %d", resp.StatusCode)
		}
		return &APIResponse{}, nil
	}

	var apiResp APIResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		if resp.StatusCode >= 400 {
			return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(respBody))
		}
		return nil, err
	}

	if resp.StatusCode >= 400 {
		if apiResp.Error != nil {
			return nil, fmt.Errorf("HTTP %d %s: %s", resp.StatusCode, apiResp.Error.Code, apiResp.Error.Message)
		}
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(respBody))
	}

	return &apiResp, nil
}

// SourcePayload is the source object as the API returns it
type SourcePayload struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Type         string `json:"type"`
	Origin       string `json:"origin,omitempty"`
	Scope        string `json:"scope"`
	Status       string `json:"status"`
	Error        string `json:"error,omitempty"`
	ChunkCount   int    `json:"chunk_count"`
	LastSyncedAt string `json:"last_synced_at,omitempty"`
}

// WaitForSourceStatus polls the source until it reaches the wanted status.
// Reaching "error" while waiting for anything else fails the test immediately.
func (e *E2ETestEnv) WaitForSourceStatus(sourceID, want string, timeout time.Duration) *SourcePayload {
	deadline := time.Now().Add(timeout)
	var last *SourcePayload
	for time.Now().Before(deadline) {
		resp, err := e.Get("/knowledge/sources/" + sourceID)
		if err != nil {
			e.T.Fatalf("failed to poll source %s: %v", sourceID, err)
		}
		var src SourcePayload
		if err := json.Unmarshal(resp.Data, &src); err != nil {
			e.T.Fatalf("failed to parse source: %v", err)
		}
		if src.Status == want {
			return &src
		}
		if src.Status == "error" && want != "error" {
			e.T.Fatalf("source %s failed during ingestion: %s", sourceID, src.Error)
		}
		last = &src
		time.Sleep(100 * time.Millisecond)
	}
	status := "unknown"
	if last != nil {
		status = last.Status
	}
	e.T.Fatalf("source %s did not reach status %q within %v (last: %s)", sourceID, want, timeout, status)
	return nil
}

// SeedPage inserts a row into the pages projection table and returns its ID
func (e *E2ETestEnv) SeedPage(title, plainText, pageType string, metadata map[string]any, updatedAt time.Time) string {
	id := uuid.NewString()

	var metaJSON []byte
	if metadata != nil {
		var err error
		metaJSON, err = json.Marshal(metadata)
		if err != nil {
			e.T.Fatalf("failed to marshal page metadata: %v", err)
		}
	}

	_, err := e.Pool.Exec(e.Ctx,
		`INSERT INTO pages (id, workspace_id, space_id, title, plain_text, page_type, metadata, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7::jsonb, $8)`,
		id, e.WorkspaceID, e.SpaceID, title, plainText, pageType, metaJSON, updatedAt,
	)
	if err != nil {
		e.T.Fatalf("failed to seed page: %v", err)
	}
	return id
}

// SeedTask inserts a row into the tasks projection table and returns its ID
func (e *E2ETestEnv) SeedTask(title string, labels []string, done bool) string {
	id := uuid.NewString()
	_, err := e.Pool.Exec(e.Ctx,
		`INSERT INTO tasks (id, workspace_id, space_id, title, labels, done)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		id, e.WorkspaceID, e.SpaceID, title, labels, done,
	)
	if err != nil {
		e.T.Fatalf("failed to seed task: %v", err)
	}
	return id
}

// SeedRelation inserts a row into the page_relations projection table
func (e *E2ETestEnv) SeedRelation(fromPageID, toPageID, relationType string) {
	_, err := e.Pool.Exec(e.Ctx,
		`INSERT INTO page_relations (from_page_id, to_page_id, workspace_id, relation_type)
		 VALUES ($1, $2, $3, $4)`,
		fromPageID, toPageID, e.WorkspaceID, relationType,
	)
	if err != nil {
		e.T.Fatalf("failed to seed relation: %v", err)
	}
}

// startServer starts the HTTP server with all handlers wired against the pool
func startServer(t *testing.T, pool *pgxpool.Pool, port int) (string, func()) {
	sourceRepo := repository.NewSourceRepository(pool)
	chunkRepo := repository.NewChunkRepository(pool)
	memoryRepo := repository.NewMemoryRepository(pool)
	pageRepo := repository.NewPageRepository(pool)
	taskRepo := repository.NewTaskRepository(pool)
	graphRepo := repository.NewGraphRepository(pool)

	m := metrics.New()
	embedder := &hashEmbedder{}
	fetcher := extract.NewFetcher(5*time.Second, 1<<20)

	processor := service.NewProcessorService(sourceRepo, chunkRepo, pageRepo, embedder, fetcher, m)

	queue := jobs.NewIngestQueue(processor, 2, 16)
	queue.Start(context.Background())

	sourceSvc := service.NewSourceService(sourceRepo, chunkRepo, queue)
	searchSvc := service.NewVectorSearchService(chunkRepo, memoryRepo, embedder, m)
	contextSvc := service.NewContextService(pageRepo, taskRepo, graphRepo, searchSvc, m)

	cfg := server.RouterConfig{
		SourcesHandler: handlers.NewSourcesHandler(sourceSvc),
		SearchHandler:  handlers.NewSearchHandler(searchSvc),
		MemoryHandler:  handlers.NewMemoryHandler(searchSvc),
		ContextHandler: handlers.NewContextHandler(contextSvc),
		Pinger:         pool,
		MetricsHandler: m.Handler(),
	}

	router := server.NewRouter(cfg)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			t.Logf("server error: %v", err)
		}
	}()

	serverURL := fmt.Sprintf("http://localhost:%d", port)
	waitForServer(t, serverURL, 10*time.Second)

	return serverURL, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
		queue.Stop()
	}
}

func waitForServer(t *testing.T, url string, timeout time.Duration) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		resp, err := http.Get(url + "/health")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(100 * time.Millisecond)
	}
	t.Fatalf("server did not start within %v", timeout)
}

func getFreePort() (int, error) {
	addr, err := net.ResolveTCPAddr("tcp", "localhost:0")
	if err != nil {
		return 0, err
	}

	l, err := net.ListenTCP("tcp", addr)
	if err != nil {
		return 0, err
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}

// hashEmbedder is a deterministic bag-of-words embedding stub. Each word
// hashes to one vector bucket, so texts sharing words land near each other
// under cosine similarity, which is all the search pipeline needs.
type hashEmbedder struct{}

func (h *hashEmbedder) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	return hashEmbed(text), nil
}

func (h *hashEmbedder) GenerateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = hashEmbed(text)
	}
	return out, nil
}

func hashEmbed(text string) []float32 {
	vec := make([]float32, openai.DefaultEmbeddingDimensions)
	for _, word := range strings.Fields(strings.ToLower(text)) {
		word = strings.Trim(word, ".,;:!?\"'()[]")
		if word == "" {
			continue
		}
		sum := sha256.Sum256([]byte(word))
		idx := int(binary.BigEndian.Uint32(sum[:4]) % uint32(len(vec)))
		vec[idx]++
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		vec[0] = 1
		return vec
	}
	scale := float32(1 / math.Sqrt(norm))
	for i := range vec {
		vec[i] *= scale
	}
	return vec
}

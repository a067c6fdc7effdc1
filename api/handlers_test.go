package api

import (
	"bytes"
	"creatorhub/media-api/internal/service"
	"creatorhub/media-api/internal/storage"
	"creatorhub/media-api/model"
	"creatorhub/media-api/pkg/middleware"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testChunkSize = int64(4)

func newTestAPI(t *testing.T) *API {
	t.Helper()

	a := newQueuedTestAPI(t, 1, 8)
	a.Orchestrator.StartWorkerPool()

	return a
}

// newQueuedTestAPI leaves the worker pool stopped so tests can control
// when the queue drains.
func newQueuedTestAPI(t *testing.T, workers, queueSize int) *API {
	t.Helper()

	gin.SetMode(gin.TestMode)
	viper.Set("upload.max_size", int64(64<<20))

	dsn := filepath.Join(t.TempDir(), "test.db") + "?_busy_timeout=5000"
	database, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(&model.MediaAsset{}, &model.MediaChunk{}))

	root := t.TempDir()
	layout := &storage.Layout{
		ChunkDir:     root,
		UploadDir:    root,
		ProcessedDir: root,
	}

	a := &API{
		DB:        database,
		Chunks:    service.NewChunkStore(database, layout, testChunkSize),
		Assembler: service.NewAssembler(database, layout, testChunkSize),
		Progress:  service.NewProgressTracker(database, testChunkSize),
		Orchestrator: service.NewOrchestrator(
			database,
			service.NewMediaTransformer(layout, nil, 2048),
			layout,
			workers, queueSize,
		),
	}

	router := gin.New()
	router.Use(middleware.NewRequestIDMiddleware())

	media := router.Group("/api/media")
	{
		media.POST("", a.MediaCreate)
		media.GET("/:mediaID", a.MediaFetch)
		media.POST("/:mediaID/chunks/:index", a.ChunkUpload)
		media.POST("/:mediaID/complete", a.MediaComplete)
		media.GET("/:mediaID/progress", a.MediaProgress)
	}

	a.Router = router

	return a
}

func doJSON(t *testing.T, a *API, method, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	a.Router.ServeHTTP(w, req)

	out := map[string]any{}
	if w.Body.Len() > 0 {
		_ = json.Unmarshal(w.Body.Bytes(), &out)
	}

	return w, out
}

func uploadChunk(t *testing.T, a *API, mediaID string, index string, data string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/api/media/"+mediaID+"/chunks/"+index, strings.NewReader(data))

	w := httptest.NewRecorder()
	a.Router.ServeHTTP(w, req)

	return w
}

func TestUploadLifecycle(t *testing.T) {
	a := newTestAPI(t)

	w, created := doJSON(t, a, http.MethodPost, "/api/media", gin.H{
		"filename":  "clip.mp4",
		"type":      "video",
		"file_size": 10,
	})
	require.Equal(t, http.StatusCreated, w.Code)

	mediaID := created["id"].(string)
	require.NotEmpty(t, mediaID)
	assert.Equal(t, "PENDING", created["status"])

	// Out of order on purpose
	require.Equal(t, http.StatusOK, uploadChunk(t, a, mediaID, "1", "BBBB").Code)
	require.Equal(t, http.StatusOK, uploadChunk(t, a, mediaID, "0", "AAAA").Code)
	require.Equal(t, http.StatusOK, uploadChunk(t, a, mediaID, "2", "CC").Code)

	// Retrying a chunk is acknowledged, not duplicated
	require.Equal(t, http.StatusOK, uploadChunk(t, a, mediaID, "1", "BBBB").Code)

	w, progress := doJSON(t, a, http.MethodGet, "/api/media/"+mediaID+"/progress", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 3, progress["uploaded_chunks"])
	assert.EqualValues(t, 100, progress["percentage"])

	w, completed := doJSON(t, a, http.MethodPost, "/api/media/"+mediaID+"/complete", nil)
	require.Equal(t, http.StatusAccepted, w.Code)
	assert.NotEmpty(t, completed["task_id"])

	require.Eventually(t, func() bool {
		_, asset := doJSON(t, a, http.MethodGet, "/api/media/"+mediaID, nil)
		return asset["status"] == "READY"
	}, 5*time.Second, 20*time.Millisecond)

	_, asset := doJSON(t, a, http.MethodGet, "/api/media/"+mediaID, nil)
	assert.Contains(t, asset["url"], mediaID+"_clip.mp4")
	assert.GreaterOrEqual(t, asset["processing_time_ms"].(float64), float64(0))
}

func TestChunkUploadUnknownMedia(t *testing.T) {
	a := newTestAPI(t)

	assert.Equal(t, http.StatusNotFound, uploadChunk(t, a, "missing", "0", "AAAA").Code)
}

func TestChunkUploadBadIndex(t *testing.T) {
	a := newTestAPI(t)

	assert.Equal(t, http.StatusBadRequest, uploadChunk(t, a, "m1", "-1", "AAAA").Code)
	assert.Equal(t, http.StatusBadRequest, uploadChunk(t, a, "m1", "x", "AAAA").Code)
}

func TestChunkUploadIndexPastFileEnd(t *testing.T) {
	a := newTestAPI(t)

	w, created := doJSON(t, a, http.MethodPost, "/api/media", gin.H{
		"filename":  "clip.mp4",
		"type":      "video",
		"file_size": 10,
	})
	require.Equal(t, http.StatusCreated, w.Code)

	// 10 bytes over 4-byte chunks means indexes 0..2 only
	mediaID := created["id"].(string)
	assert.Equal(t, http.StatusBadRequest, uploadChunk(t, a, mediaID, "3", "XXXX").Code)
}

func TestCompleteRecoversAfterFullQueue(t *testing.T) {
	a := newQueuedTestAPI(t, 1, 1)

	ids := make([]string, 2)
	for i, name := range []string{"a.mp4", "b.mp4"} {
		w, created := doJSON(t, a, http.MethodPost, "/api/media", gin.H{
			"filename":  name,
			"type":      "video",
			"file_size": 4,
		})
		require.Equal(t, http.StatusCreated, w.Code)

		ids[i] = created["id"].(string)
		require.Equal(t, http.StatusOK, uploadChunk(t, a, ids[i], "0", "AAAA").Code)
	}

	// No workers running yet, so the first complete occupies the only
	// queue slot and the second bounces
	w, _ := doJSON(t, a, http.MethodPost, "/api/media/"+ids[0]+"/complete", nil)
	require.Equal(t, http.StatusAccepted, w.Code)

	w, _ = doJSON(t, a, http.MethodPost, "/api/media/"+ids[1]+"/complete", nil)
	require.Equal(t, http.StatusServiceUnavailable, w.Code)

	// The retry must see the full queue again, not a conflict: the
	// asset was assembled but never made it into the queue
	w, _ = doJSON(t, a, http.MethodPost, "/api/media/"+ids[1]+"/complete", nil)
	require.Equal(t, http.StatusServiceUnavailable, w.Code)

	a.Orchestrator.StartWorkerPool()

	require.Eventually(t, func() bool {
		w, _ := doJSON(t, a, http.MethodPost, "/api/media/"+ids[1]+"/complete", nil)
		return w.Code == http.StatusAccepted
	}, 5*time.Second, 20*time.Millisecond)
}

func TestCompleteRejectsSparseUpload(t *testing.T) {
	a := newTestAPI(t)

	w, created := doJSON(t, a, http.MethodPost, "/api/media", gin.H{
		"filename":  "clip.mp4",
		"type":      "video",
		"file_size": 10,
	})
	require.Equal(t, http.StatusCreated, w.Code)

	mediaID := created["id"].(string)
	require.Equal(t, http.StatusOK, uploadChunk(t, a, mediaID, "0", "AAAA").Code)

	w, _ = doJSON(t, a, http.MethodPost, "/api/media/"+mediaID+"/complete", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestCreateMediaValidation(t *testing.T) {
	a := newTestAPI(t)

	w, _ := doJSON(t, a, http.MethodPost, "/api/media", gin.H{
		"filename":  "",
		"type":      "video",
		"file_size": 10,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = doJSON(t, a, http.MethodPost, "/api/media", gin.H{
		"filename":  "a.bin",
		"type":      "document",
		"file_size": 10,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = doJSON(t, a, http.MethodPost, "/api/media", gin.H{
		"filename":  "a.mp4",
		"type":      "video",
		"file_size": 0,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = doJSON(t, a, http.MethodPost, "/api/media", gin.H{
		"filename":  "../../etc/cron.d/evil",
		"type":      "video",
		"file_size": 10,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestProgressUnknownMediaIsZero(t *testing.T) {
	a := newTestAPI(t)

	w, progress := doJSON(t, a, http.MethodGet, "/api/media/missing/progress", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 0, progress["percentage"])
	assert.EqualValues(t, 0, progress["total_chunks"])
}

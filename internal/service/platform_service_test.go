package service

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	config "github.com/maheshrc27/agency-planner/configs"
	"github.com/maheshrc27/agency-planner/internal/models"
	"github.com/maheshrc27/agency-planner/internal/transfer"
)

func newTestPlatform(t *testing.T, handler http.HandlerFunc) PlatformService {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewPlatformService(config.Config{Platform: config.Platform{
		BaseURL: srv.URL + "/",
		APIKey:  "test-key",
		Timeout: 5 * time.Second,
	}})
}

func TestSchedulePostSendsScheduleRequest(t *testing.T) {
	london, err := time.LoadLocation("Europe/London")
	require.NoError(t, err)

	var got transfer.LateCreatePostRequest
	svc := newTestPlatform(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/posts", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = io.WriteString(w, `{"post":{"_id":"late-123","status":"scheduled"}}`)
	})

	id, err := svc.SchedulePost(context.Background(), transfer.ScheduleRequest{
		Caption:           "Autumn menu",
		MediaRef:          "https://media.example.com/menu.mp4",
		ScheduledAt:       time.Date(2026, 10, 16, 12, 0, 0, 0, london),
		Platform:          "instagram",
		ExternalAccountID: "acc-ig",
	})
	require.NoError(t, err)
	assert.Equal(t, "late-123", id)

	assert.Equal(t, "Autumn menu", got.Content)
	assert.Equal(t, "2026-10-16T12:00:00", got.ScheduledFor)
	assert.Equal(t, "Europe/London", got.Timezone)
	require.Len(t, got.MediaItems, 1)
	assert.Equal(t, "video", got.MediaItems[0].Type)
	require.Len(t, got.Platforms, 1)
	assert.Equal(t, transfer.LatePlatformTarget{Platform: "instagram", AccountID: "acc-ig"}, got.Platforms[0])
}

func TestSchedulePostSurfacesAPIError(t *testing.T) {
	svc := newTestPlatform(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = io.WriteString(w, `{"error":"account disconnected"}`)
	})

	_, err := svc.SchedulePost(context.Background(), transfer.ScheduleRequest{ScheduledAt: time.Now()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "422")
	assert.Contains(t, err.Error(), "account disconnected")
}

func TestSchedulePostRequiresPostID(t *testing.T) {
	svc := newTestPlatform(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"post":{}}`)
	})

	_, err := svc.SchedulePost(context.Background(), transfer.ScheduleRequest{ScheduledAt: time.Now()})
	assert.Error(t, err)
}

func TestUploadMediaPostsMultipart(t *testing.T) {
	svc := newTestPlatform(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/media", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		files := r.MultipartForm.File["files"]
		require.Len(t, files, 1)
		assert.Equal(t, "photo.png", files[0].Filename)
		assert.Equal(t, "image/png", files[0].Header.Get("Content-Type"))
		_, _ = io.WriteString(w, `{"files":[{"url":"https://cdn.example.com/photo.png","type":"image"}]}`)
	})

	url, err := svc.UploadMedia(context.Background(), "photo.png", "image/png", []byte("png-bytes"))
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/photo.png", url)
}

func TestDeletePostEscapesID(t *testing.T) {
	var path string
	svc := newTestPlatform(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		path = r.URL.EscapedPath()
		w.WriteHeader(http.StatusNoContent)
	})

	require.NoError(t, svc.DeletePost(context.Background(), "a/b"))
	assert.Equal(t, "/v1/posts/a%2Fb", path)
}

func TestGetPostStatusMapsPlatformStates(t *testing.T) {
	statuses := map[string]string{"p1": "published", "p2": "failed", "p3": "partial", "p4": "scheduled"}
	svc := newTestPlatform(t, func(w http.ResponseWriter, r *http.Request) {
		id := r.URL.Path[len("/v1/posts/"):]
		_ = json.NewEncoder(w).Encode(transfer.LatePostResponse{Post: transfer.LatePost{ID: id, Status: statuses[id]}})
	})

	want := map[string]models.LateStatus{
		"p1": models.LateStatusPublished,
		"p2": models.LateStatusFailed,
		"p3": models.LateStatusFailed,
		"p4": models.LateStatusScheduled,
	}
	for id, expected := range want {
		got, err := svc.GetPostStatus(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, expected, got, id)
	}
}

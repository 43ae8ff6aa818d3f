package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/postdesk/internal/db"
	"github.com/jonathan/postdesk/internal/server/ratelimit"
	"github.com/jonathan/postdesk/internal/webhook"
	"github.com/jonathan/postdesk/internal/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type resultBody struct {
	Success bool           `json:"success"`
	Message string         `json:"message"`
	Error   string         `json:"error"`
	Data    map[string]any `json:"data"`
}

func TestHealthEndpoint(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodGet, "/health", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", decodeJSON[map[string]string](t, w)["status"])
}

func TestHealthEndpoint_BackendDown(t *testing.T) {
	ts := newTestServer(t)
	ts.health = func(context.Context) error { return errors.New("pool closed") }

	w := ts.do(t, http.MethodGet, "/health", nil, "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestCORSPreflight(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodOptions, "/api/posts/abc", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "PATCH")
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), "Authorization")
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	ts := newTestServer(t)
	id := uuid.NewString()

	routes := []struct{ method, path string }{
		{http.MethodGet, "/api/posts"},
		{http.MethodGet, "/api/posts/" + id},
		{http.MethodPatch, "/api/posts/" + id},
		{http.MethodPost, "/api/posts/" + id + "/approve"},
		{http.MethodPost, "/api/posts/" + id + "/reject"},
		{http.MethodPost, "/api/posts/" + id + "/generate-image"},
		{http.MethodPost, "/api/posts/" + id + "/publish"},
		{http.MethodGet, "/api/jobs"},
		{http.MethodGet, "/api/jobs/filter-options"},
		{http.MethodGet, "/api/jobs/" + id},
		{http.MethodPost, "/api/jobs/" + id + "/send-email"},
		{http.MethodPost, "/api/jobs/" + id + "/follow-up"},
		{http.MethodPost, "/api/jobs/intake"},
		{http.MethodGet, "/api/auth/me"},
		{http.MethodPost, "/api/auth/logout"},
	}
	for _, rt := range routes {
		t.Run(rt.method+" "+rt.path, func(t *testing.T) {
			w := ts.do(t, rt.method, rt.path, nil, "")
			assert.Equal(t, http.StatusUnauthorized, w.Code)

			w = ts.do(t, rt.method, rt.path, nil, "forged.token.value")
			assert.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}
}

func TestListPosts(t *testing.T) {
	ts := newTestServer(t)
	ts.store.addPost(db.Post{Title: "Launch", Content: "<p>We launched</p>", Status: workflow.PostApproved})
	token := ts.token(t, uuid.New())

	w := ts.do(t, http.MethodGet, "/api/posts?status=approved&search=launch&page=1&pageSize=10", nil, token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	page := decodeJSON[map[string]any](t, w)
	data := page["data"].([]any)
	require.Len(t, data, 1)
	assert.Equal(t, "We launched", data[0].(map[string]any)["excerpt"])
	assert.Equal(t, float64(1), page["meta"].(map[string]any)["total"])
	assert.Equal(t, "search=launch&status=approved", page["query"])
}

func TestListPosts_EmptyAndFailure(t *testing.T) {
	ts := newTestServer(t)
	token := ts.token(t, uuid.New())

	w := ts.do(t, http.MethodGet, "/api/posts", nil, token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"data":[]`)

	ts.store.failAll = true
	w = ts.do(t, http.MethodGet, "/api/posts", nil, token)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Failed to fetch posts", decodeJSON[map[string]string](t, w)["error"])
}

func TestGetPost(t *testing.T) {
	ts := newTestServer(t)
	post := ts.store.addPost(db.Post{Title: "Hello", Status: workflow.PostPending})
	token := ts.token(t, uuid.New())

	w := ts.do(t, http.MethodGet, "/api/posts/"+post.ID.String(), nil, token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Hello", decodeJSON[map[string]any](t, w)["title"])

	w = ts.do(t, http.MethodGet, "/api/posts/"+uuid.NewString(), nil, token)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = ts.do(t, http.MethodGet, "/api/posts/not-a-uuid", nil, token)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPostModeration(t *testing.T) {
	ts := newTestServer(t)
	token := ts.token(t, uuid.New())
	post := ts.store.addPost(db.Post{Title: "Draft", Status: workflow.PostPending})
	base := "/api/posts/" + post.ID.String()

	w := ts.do(t, http.MethodPost, base+"/approve", nil, token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	res := decodeJSON[resultBody](t, w)
	assert.True(t, res.Success)
	assert.Equal(t, workflow.PostApproved, ts.store.snapshotPost(post.ID).Status)

	w = ts.do(t, http.MethodPost, base+"/approve", nil, token)
	assert.Equal(t, http.StatusConflict, w.Code)
	res = decodeJSON[resultBody](t, w)
	assert.False(t, res.Success)
	assert.Equal(t, "INVALID_STATUS", res.Error)

	w = ts.do(t, http.MethodPost, "/api/posts/"+uuid.NewString()+"/reject", nil, token)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NOT_FOUND", decodeJSON[resultBody](t, w).Error)
}

func TestRejectPost_WithReason(t *testing.T) {
	ts := newTestServer(t)
	token := ts.token(t, uuid.New())
	post := ts.store.addPost(db.Post{Title: "Off brand", Status: workflow.PostPending})

	w := ts.do(t, http.MethodPost, "/api/posts/"+post.ID.String()+"/reject", RejectPostRequest{Reason: "off brand"}, token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, workflow.PostRejected, ts.store.snapshotPost(post.ID).Status)

	w = ts.do(t, http.MethodPost, "/api/posts/"+post.ID.String()+"/reject", `{"unknown":true}`, token)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdatePost(t *testing.T) {
	ts := newTestServer(t)
	token := ts.token(t, uuid.New())
	post := ts.store.addPost(db.Post{Title: "Old", Status: workflow.PostPending})
	path := "/api/posts/" + post.ID.String()

	w := ts.do(t, http.MethodPatch, path, map[string]any{"title": "New"}, token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "New", ts.store.snapshotPost(post.ID).Title)

	w = ts.do(t, http.MethodPatch, path, map[string]any{}, token)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_REQUEST", decodeJSON[resultBody](t, w).Error)

	w = ts.do(t, http.MethodPatch, path, map[string]any{"status": "published"}, token)
	assert.Equal(t, http.StatusBadRequest, w.Code, "status is not an editable field")

	w = ts.do(t, http.MethodPatch, path, map[string]any{"link": "not a url"}, token)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdatePost_NullClearsField(t *testing.T) {
	ts := newTestServer(t)
	token := ts.token(t, uuid.New())
	post := ts.store.addPost(db.Post{
		Title:    "Linked",
		Status:   workflow.PostPending,
		Link:     strPtr("https://example.com/source"),
		ImageURL: strPtr("https://cdn.example.com/a.png"),
		Hashtags: []string{"launch"},
	})
	path := "/api/posts/" + post.ID.String()

	w := ts.do(t, http.MethodPatch, path, `{"link": null, "hashtags": null}`, token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	got := ts.store.snapshotPost(post.ID)
	assert.Nil(t, got.Link)
	assert.Nil(t, got.Hashtags)
	require.NotNil(t, got.ImageURL, "fields that were not sent are unchanged")
	assert.Equal(t, "https://cdn.example.com/a.png", *got.ImageURL)
}

func TestGenerateImageAndPublish(t *testing.T) {
	ts := newTestServer(t)
	token := ts.token(t, uuid.New())
	pending := ts.store.addPost(db.Post{Title: "Pending", Status: workflow.PostPending})
	approved := ts.store.addPost(db.Post{Title: "Approved", Status: workflow.PostApproved})

	w := ts.do(t, http.MethodPost, "/api/posts/"+pending.ID.String()+"/generate-image", nil, token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, true, decodeJSON[resultBody](t, w).Data["queued"])

	w = ts.do(t, http.MethodPost, "/api/posts/"+pending.ID.String()+"/publish", PublishPostRequest{Platforms: []string{"instagram"}}, token)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = ts.do(t, http.MethodPost, "/api/posts/"+approved.ID.String()+"/publish", PublishPostRequest{Platforms: []string{"instagram", "facebook"}}, token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = ts.do(t, http.MethodPost, "/api/posts/"+approved.ID.String()+"/publish", nil, token)
	assert.Equal(t, http.StatusBadRequest, w.Code, "no platforms on the request or the post")

	assert.Equal(t, []webhook.Endpoint{webhook.GenerateImage, webhook.PublishPost}, ts.hooks.sent())
	assert.Equal(t, workflow.PostApproved, ts.store.snapshotPost(approved.ID).Status, "publish waits for the callback")
}

func TestGenerateImage_WebhookFailure(t *testing.T) {
	ts := newTestServer(t)
	token := ts.token(t, uuid.New())
	post := ts.store.addPost(db.Post{Title: "Pending", Status: workflow.PostPending})
	ts.hooks.err = &webhook.StatusError{Endpoint: webhook.GenerateImage, StatusCode: 500, Status: "500 Internal Server Error"}

	w := ts.do(t, http.MethodPost, "/api/posts/"+post.ID.String()+"/generate-image", nil, token)
	assert.Equal(t, http.StatusBadGateway, w.Code)
	res := decodeJSON[resultBody](t, w)
	assert.Equal(t, "WEBHOOK_ERROR", res.Error)
	assert.Equal(t, "Webhook failed: 500 Internal Server Error", res.Message)
}

func readyJob(owner uuid.UUID) db.Job {
	return db.Job{
		UserID:         owner,
		RawPost:        "Backend engineer at Acme",
		Title:          strPtr("Backend Engineer"),
		Company:        strPtr("Acme"),
		Location:       strPtr("Berlin"),
		WorkType:       strPtr("remote"),
		RecruiterEmail: strPtr("recruiter@acme.example"),
		GmailMessageID: strPtr("msg-1"),
		Status:         workflow.JobDraftCreated,
	}
}

func TestListJobs_ScopedToCaller(t *testing.T) {
	ts := newTestServer(t)
	owner, other := uuid.New(), uuid.New()
	ts.store.addJob(readyJob(owner))
	ts.store.addJob(readyJob(other))

	w := ts.do(t, http.MethodGet, "/api/jobs?status=draft_created", nil, ts.token(t, owner))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	page := decodeJSON[map[string]any](t, w)
	assert.Len(t, page["data"].([]any), 1)

	ts.store.failAll = true
	w = ts.do(t, http.MethodGet, "/api/jobs", nil, ts.token(t, owner))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestJobFilterOptions(t *testing.T) {
	ts := newTestServer(t)
	owner := uuid.New()
	ts.store.addJob(readyJob(owner))
	second := readyJob(owner)
	second.Company = strPtr("Globex")
	ts.store.addJob(second)

	w := ts.do(t, http.MethodGet, "/api/jobs/filter-options", nil, ts.token(t, owner))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	opts := decodeJSON[map[string][]string](t, w)
	assert.Equal(t, []string{"Acme", "Globex"}, opts["companies"])
	assert.Equal(t, []string{"Berlin"}, opts["locations"])
	assert.Equal(t, []string{"remote"}, opts["workTypes"])
}

func TestGetJob_Ownership(t *testing.T) {
	ts := newTestServer(t)
	owner := uuid.New()
	job := ts.store.addJob(readyJob(owner))

	w := ts.do(t, http.MethodGet, "/api/jobs/"+job.ID.String(), nil, ts.token(t, owner))
	require.Equal(t, http.StatusOK, w.Code)

	w = ts.do(t, http.MethodGet, "/api/jobs/"+job.ID.String(), nil, ts.token(t, uuid.New()))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSendJobEmail(t *testing.T) {
	ts := newTestServer(t)
	owner := uuid.New()
	job := ts.store.addJob(readyJob(owner))
	token := ts.token(t, owner)

	w := ts.do(t, http.MethodPost, "/api/jobs/"+job.ID.String()+"/send-email", nil, token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Email sent successfully", decodeJSON[resultBody](t, w).Message)
	assert.Equal(t, workflow.JobDraftCreated, ts.store.snapshotJob(job.ID).Status, "status waits for the sent callback")

	noEmail := readyJob(owner)
	noEmail.RecruiterEmail = nil
	missing := ts.store.addJob(noEmail)
	w = ts.do(t, http.MethodPost, "/api/jobs/"+missing.ID.String()+"/send-email", nil, token)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "MISSING_RECRUITER_EMAIL", decodeJSON[resultBody](t, w).Error)

	w = ts.do(t, http.MethodPost, "/api/jobs/"+job.ID.String()+"/send-email", nil, ts.token(t, uuid.New()))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestScheduleFollowUp(t *testing.T) {
	ts := newTestServer(t)
	owner := uuid.New()
	job := ts.store.addJob(readyJob(owner))
	token := ts.token(t, owner)
	path := "/api/jobs/" + job.ID.String() + "/follow-up"

	w := ts.do(t, http.MethodPost, path, FollowUpRequest{FollowUpNumber: 3}, token)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_FOLLOW_UP", decodeJSON[resultBody](t, w).Error)

	w = ts.do(t, http.MethodPost, path, FollowUpRequest{FollowUpNumber: 1}, token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	stored := ts.store.snapshotJob(job.ID)
	assert.Equal(t, workflow.JobFollowUp1, stored.Status)
	assert.Equal(t, 1, stored.FollowUpCount)
	require.NotNil(t, stored.FollowUpDate)
	assert.WithinDuration(t, time.Now().Add(7*24*time.Hour), *stored.FollowUpDate, time.Minute)

	w = ts.do(t, http.MethodPost, path, FollowUpRequest{FollowUpNumber: 1}, token)
	assert.Equal(t, http.StatusConflict, w.Code, "follow-ups never move backwards")

	w = ts.do(t, http.MethodPost, path, nil, token)
	assert.Equal(t, http.StatusBadRequest, w.Code, "body is required")
}

func TestJobIntake(t *testing.T) {
	ts := newTestServer(t)
	token := ts.token(t, uuid.New())
	description := strings.Repeat("Senior Go engineer, remote, Postgres. ", 3)

	w := ts.do(t, http.MethodPost, "/api/jobs/intake", JobIntakeRequest{JobDescription: description, Action: "send"}, token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, []webhook.Endpoint{webhook.JobIntake}, ts.hooks.sent())

	w = ts.do(t, http.MethodPost, "/api/jobs/intake", JobIntakeRequest{JobDescription: "too short", Action: "send"}, token)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_REQUEST", decodeJSON[resultBody](t, w).Error)
}

func TestPostStatusCallback(t *testing.T) {
	ts := newTestServer(t)
	post := ts.store.addPost(db.Post{Title: "Pending", Status: workflow.PostPending})
	path := "/api/callbacks/posts/" + post.ID.String() + "/status"

	w := ts.do(t, http.MethodPost, path, map[string]any{"event": "image_generated", "image_url": "https://cdn.example.com/a.png"}, "wrong-secret")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = ts.do(t, http.MethodPost, path, map[string]any{"event": "image_generated", "image_url": "https://cdn.example.com/a.png"}, testCallbackSecret)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	stored := ts.store.snapshotPost(post.ID)
	assert.Equal(t, workflow.PostApproved, stored.Status)
	require.NotNil(t, stored.ImageURL)
	assert.Equal(t, "https://cdn.example.com/a.png", *stored.ImageURL)

	w = ts.do(t, http.MethodPost, path, map[string]any{"event": "published", "platforms": []string{"instagram"}}, testCallbackSecret)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, workflow.PostPublished, ts.store.snapshotPost(post.ID).Status)

	w = ts.do(t, http.MethodPost, path, map[string]any{"event": "published"}, testCallbackSecret)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestPostStatusCallback_SchemaRejections(t *testing.T) {
	ts := newTestServer(t)
	post := ts.store.addPost(db.Post{Title: "Pending", Status: workflow.PostPending})
	path := "/api/callbacks/posts/" + post.ID.String() + "/status"

	tests := []struct {
		name string
		body any
	}{
		{"malformed json", "{"},
		{"unknown event", map[string]any{"event": "deleted"}},
		{"image_generated without url", map[string]any{"event": "image_generated"}},
		{"extra property", map[string]any{"event": "failed", "status": "published"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := ts.do(t, http.MethodPost, path, tt.body, testCallbackSecret)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			body := decodeJSON[map[string]any](t, w)
			assert.Equal(t, "Invalid callback payload", body["error"])
			assert.NotEmpty(t, body["errors"])
		})
	}
	assert.Equal(t, workflow.PostPending, ts.store.snapshotPost(post.ID).Status)
}

func TestJobSentCallback(t *testing.T) {
	ts := newTestServer(t)
	job := ts.store.addJob(readyJob(uuid.New()))
	path := "/api/callbacks/jobs/" + job.ID.String() + "/sent"

	w := ts.do(t, http.MethodPost, path, map[string]any{
		"gmail_message_id": "msg-2",
		"thread_id":        "thread-9",
		"sent_at":          "2026-03-01T10:00:00Z",
	}, testCallbackSecret)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	stored := ts.store.snapshotJob(job.ID)
	assert.Equal(t, workflow.JobSent, stored.Status)
	require.NotNil(t, stored.SentAt)
	assert.True(t, stored.SentAt.Equal(time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)))
	assert.Equal(t, "thread-9", *stored.ThreadID)

	w = ts.do(t, http.MethodPost, path, map[string]any{}, testCallbackSecret)
	assert.Equal(t, http.StatusConflict, w.Code, "already sent")

	w = ts.do(t, http.MethodPost, path, map[string]any{"sent_at": "yesterday"}, testCallbackSecret)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRateLimit(t *testing.T) {
	limiter := ratelimit.NewLimiter(&ratelimit.Config{
		Enabled: true,
		EndpointConfigs: []ratelimit.EndpointConfig{
			{Path: "/api/auth/login", Method: "POST", Limit: 2, Window: time.Minute, Burst: 2},
		},
		DefaultLimit:  100,
		DefaultWindow: time.Minute,
	})
	ts := newTestServerWithLimiter(t, limiter)
	body := LoginRequest{Email: "x@example.com", Password: "password123"}

	for i := 0; i < 2; i++ {
		w := ts.do(t, http.MethodPost, "/api/auth/login", body, "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "2", w.Header().Get("X-RateLimit-Limit"))
	}

	w := ts.do(t, http.MethodPost, "/api/auth/login", body, "")
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	assert.Equal(t, "rate_limit_exceeded", decodeJSON[map[string]any](t, w)["error"])

	assert.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, "/health", nil, "").Code, "health is never limited")
}

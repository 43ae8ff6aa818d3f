package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/postdesk/internal/actions"
	"github.com/jonathan/postdesk/internal/config"
	"github.com/jonathan/postdesk/internal/db"
	"github.com/jonathan/postdesk/internal/listing"
	"github.com/jonathan/postdesk/internal/query"
	"github.com/jonathan/postdesk/internal/server/ratelimit"
	"github.com/jonathan/postdesk/internal/webhook"
	"github.com/jonathan/postdesk/internal/workflow"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testCallbackSecret = "callback-secret"

var errStore = errors.New("store unavailable")

// memStore backs every store interface the server depends on.
type memStore struct {
	mu    sync.Mutex
	posts []*db.Post
	jobs  []*db.Job
	users []*db.User

	tokens  map[string]uuid.UUID // confirmation token -> user
	failAll bool
}

func newMemStore() *memStore {
	return &memStore{tokens: map[string]uuid.UUID{}}
}

func (m *memStore) addPost(p db.Post) *db.Post {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	m.posts = append(m.posts, &p)
	return &p
}

func (m *memStore) addJob(j db.Job) *db.Job {
	m.mu.Lock()
	defer m.mu.Unlock()
	if j.ID == uuid.Nil {
		j.ID = uuid.New()
	}
	m.jobs = append(m.jobs, &j)
	return &j
}

func (m *memStore) post(id uuid.UUID) *db.Post {
	for _, p := range m.posts {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func (m *memStore) job(id uuid.UUID) *db.Job {
	for _, j := range m.jobs {
		if j.ID == id {
			return j
		}
	}
	return nil
}

// snapshotPost returns a copy of the stored post for assertions.
func (m *memStore) snapshotPost(id uuid.UUID) db.Post {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.post(id)
}

func (m *memStore) snapshotJob(id uuid.UUID) db.Job {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.job(id)
}

func (m *memStore) ListPosts(ctx context.Context, q *query.Builder) ([]db.Post, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAll {
		return nil, 0, errStore
	}
	out := make([]db.Post, 0, len(m.posts))
	for _, p := range m.posts {
		out = append(out, *p)
	}
	return out, len(out), nil
}

func (m *memStore) GetPost(ctx context.Context, id uuid.UUID) (*db.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAll {
		return nil, errStore
	}
	p := m.post(id)
	if p == nil {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (m *memStore) TransitionPost(ctx context.Context, t db.PostTransition) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.post(t.ID)
	if p == nil || p.Status != t.From {
		return false, nil
	}
	p.Status = t.To
	if t.ImageURL != nil {
		p.ImageURL = t.ImageURL
	}
	return true, nil
}

func (m *memStore) UpdatePost(ctx context.Context, id uuid.UUID, u db.PostUpdate) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.post(id)
	if p == nil {
		return false, nil
	}
	if u.Title != nil {
		p.Title = *u.Title
	}
	if u.Content != nil {
		p.Content = *u.Content
	}
	if u.Link != nil {
		p.Link = u.Link
	} else if u.ClearLink {
		p.Link = nil
	}
	if u.ImageURL != nil {
		p.ImageURL = u.ImageURL
	} else if u.ClearImageURL {
		p.ImageURL = nil
	}
	if u.Hashtags != nil {
		p.Hashtags = *u.Hashtags
	} else if u.ClearHashtags {
		p.Hashtags = nil
	}
	return true, nil
}

func (m *memStore) ListJobs(ctx context.Context, q *query.Builder) ([]db.Job, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAll {
		return nil, 0, errStore
	}
	_, args := q.Where()
	owner, _ := args[0].(uuid.UUID)
	var out []db.Job
	for _, j := range m.jobs {
		if j.UserID == owner {
			out = append(out, *j)
		}
	}
	return out, len(out), nil
}

func (m *memStore) DistinctJobValues(ctx context.Context, userID uuid.UUID, column string) ([]*string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAll {
		return nil, errStore
	}
	var out []*string
	for _, j := range m.jobs {
		if j.UserID != userID {
			continue
		}
		switch column {
		case "company":
			out = append(out, j.Company)
		case "location":
			out = append(out, j.Location)
		case "work_type":
			out = append(out, j.WorkType)
		}
	}
	return out, nil
}

func (m *memStore) GetJob(ctx context.Context, id uuid.UUID) (*db.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAll {
		return nil, errStore
	}
	j := m.job(id)
	if j == nil {
		return nil, nil
	}
	cp := *j
	return &cp, nil
}

func (m *memStore) GetJobForUser(ctx context.Context, id, userID uuid.UUID) (*db.Job, error) {
	j, err := m.GetJob(ctx, id)
	if err != nil || j == nil || j.UserID != userID {
		return nil, err
	}
	return j, nil
}

func (m *memStore) ScheduleJobFollowUp(ctx context.Context, u db.FollowUpUpdate) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j := m.job(u.ID)
	if j == nil || j.UserID != u.UserID || j.Status != u.From {
		return false, nil
	}
	j.Status = u.To
	j.FollowUpCount = u.Count
	date := u.Date
	j.FollowUpDate = &date
	return true, nil
}

func (m *memStore) MarkJobSent(ctx context.Context, u db.JobSentUpdate) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j := m.job(u.ID)
	if j == nil || j.Status != u.From {
		return false, nil
	}
	j.Status = workflow.JobSent
	sentAt := u.SentAt
	j.SentAt = &sentAt
	if u.GmailMessageID != nil {
		j.GmailMessageID = u.GmailMessageID
	}
	if u.ThreadID != nil {
		j.ThreadID = u.ThreadID
	}
	return true, nil
}

func (m *memStore) CheckEmailExists(ctx context.Context, email string) (bool, error) {
	u, err := m.GetUserByEmail(ctx, email)
	return u != nil, err
}

func (m *memStore) CreateUser(ctx context.Context, email, passwordHash, confirmationToken string) (*db.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			return nil, db.ErrEmailTaken
		}
	}
	now := time.Now()
	u := &db.User{ID: uuid.New(), Email: email, PasswordHash: passwordHash, CreatedAt: now, UpdatedAt: now}
	m.users = append(m.users, u)
	m.tokens[confirmationToken] = u.ID
	cp := *u
	return &cp, nil
}

func (m *memStore) GetUser(ctx context.Context, id uuid.UUID) (*db.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAll {
		return nil, errStore
	}
	for _, u := range m.users {
		if u.ID == id {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memStore) GetUserByEmail(ctx context.Context, email string) (*db.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAll {
		return nil, errStore
	}
	for _, u := range m.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memStore) ConfirmEmail(ctx context.Context, token string) (*db.User, error) {
	m.mu.Lock()
	id, ok := m.tokens[token]
	delete(m.tokens, token)
	m.mu.Unlock()
	if !ok {
		return nil, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.ID == id {
			now := time.Now()
			u.EmailConfirmedAt = &now
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

type fakeDispatcher struct {
	mu        sync.Mutex
	endpoints []webhook.Endpoint
	payloads  []any
	err       error
}

func (d *fakeDispatcher) Send(ctx context.Context, endpoint webhook.Endpoint, payload any) (*webhook.Response, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.endpoints = append(d.endpoints, endpoint)
	d.payloads = append(d.payloads, payload)
	if d.err != nil {
		return nil, d.err
	}
	return &webhook.Response{StatusCode: http.StatusOK, Body: map[string]any{"queued": true}}, nil
}

func (d *fakeDispatcher) sent() []webhook.Endpoint {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]webhook.Endpoint(nil), d.endpoints...)
}

// testServer bundles a server with its fakes.
type testServer struct {
	*Server
	store *memStore
	hooks *fakeDispatcher
	users *UserService
	jwt   *JWTService
}

func newTestServer(t *testing.T) *testServer {
	return newTestServerWithLimiter(t, nil)
}

func newTestServerWithLimiter(t *testing.T, limiter *ratelimit.Limiter) *testServer {
	t.Helper()
	store := newMemStore()
	hooks := &fakeDispatcher{}
	users := NewUserService(store, &config.PasswordConfig{BcryptCost: bcrypt.MinCost}, nil)
	jwtService := NewJWTService(&config.JWTConfig{
		Secret:          "test-secret-key-for-jwt-signing-minimum-32-bytes",
		ExpirationHours: 24,
		Issuer:          "postdesk-test",
	})

	s := newServer(Deps{
		Listing:        listing.NewService(store, store, nil),
		Actions:        actions.NewService(store, store, hooks, nil),
		Users:          users,
		JWT:            jwtService,
		RateLimiter:    limiter,
		CallbackSecret: testCallbackSecret,
	})
	t.Cleanup(s.Close)

	return &testServer{Server: s, store: store, hooks: hooks, users: users, jwt: jwtService}
}

// token issues a session token for userID.
func (ts *testServer) token(t *testing.T, userID uuid.UUID) string {
	t.Helper()
	token, err := ts.jwt.GenerateToken(userID)
	require.NoError(t, err)
	return token
}

// do sends a request through the full middleware chain. body may be nil, a
// string or any JSON-encodable value.
func (ts *testServer) do(t *testing.T, method, path string, body any, bearer string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	w := httptest.NewRecorder()
	ts.Handler().ServeHTTP(w, req)
	return w
}

func decodeJSON[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), "body: %s", w.Body.String())
	return v
}

func strPtr(s string) *string { return &s }

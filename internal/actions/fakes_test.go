package actions

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/postdesk/internal/db"
	"github.com/jonathan/postdesk/internal/webhook"
)

var errStore = errors.New("store unavailable")

type memStore struct {
	mu    sync.Mutex
	posts map[uuid.UUID]*db.Post
	jobs  map[uuid.UUID]*db.Job

	failGet    bool
	failUpdate bool
	stale      bool // guarded updates match no row
	panicGet   bool
	writes     int
}

func newMemStore() *memStore {
	return &memStore{posts: map[uuid.UUID]*db.Post{}, jobs: map[uuid.UUID]*db.Job{}}
}

func (m *memStore) addPost(p db.Post) *db.Post {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	m.posts[p.ID] = &p
	return &p
}

func (m *memStore) addJob(j db.Job) *db.Job {
	if j.ID == uuid.Nil {
		j.ID = uuid.New()
	}
	m.jobs[j.ID] = &j
	return &j
}

func (m *memStore) GetPost(ctx context.Context, id uuid.UUID) (*db.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.panicGet {
		panic("boom")
	}
	if m.failGet {
		return nil, errStore
	}
	p, ok := m.posts[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (m *memStore) TransitionPost(ctx context.Context, t db.PostTransition) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failUpdate {
		return false, errStore
	}
	p, ok := m.posts[t.ID]
	if !ok || m.stale || p.Status != t.From {
		return false, nil
	}
	m.writes++
	p.Status = t.To
	if t.ImageURL != nil {
		p.ImageURL = t.ImageURL
	}
	return true, nil
}

func (m *memStore) UpdatePost(ctx context.Context, id uuid.UUID, u db.PostUpdate) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failUpdate {
		return false, errStore
	}
	p, ok := m.posts[id]
	if !ok {
		return false, nil
	}
	m.writes++
	if u.Title != nil {
		p.Title = *u.Title
	}
	if u.Platforms != nil {
		p.Platforms = *u.Platforms
	}
	return true, nil
}

func (m *memStore) GetJob(ctx context.Context, id uuid.UUID) (*db.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failGet {
		return nil, errStore
	}
	j, ok := m.jobs[id]
	if !ok {
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
	if m.failUpdate {
		return false, errStore
	}
	j, ok := m.jobs[u.ID]
	if !ok || m.stale || j.UserID != u.UserID || j.Status != u.From {
		return false, nil
	}
	m.writes++
	j.Status = u.To
	j.FollowUpCount = u.Count
	date := u.Date
	j.FollowUpDate = &date
	return true, nil
}

func (m *memStore) MarkJobSent(ctx context.Context, u db.JobSentUpdate) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failUpdate {
		return false, errStore
	}
	j, ok := m.jobs[u.ID]
	if !ok || m.stale || j.Status != u.From {
		return false, nil
	}
	m.writes++
	j.Status = "sent"
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

type sentPayload struct {
	endpoint webhook.Endpoint
	payload  any
}

type fakeDispatcher struct {
	mu   sync.Mutex
	sent []sentPayload
	resp *webhook.Response
	err  error
}

func (d *fakeDispatcher) Send(ctx context.Context, endpoint webhook.Endpoint, payload any) (*webhook.Response, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sent = append(d.sent, sentPayload{endpoint: endpoint, payload: payload})
	if d.err != nil {
		return nil, d.err
	}
	if d.resp != nil {
		return d.resp, nil
	}
	return &webhook.Response{StatusCode: 200}, nil
}

var fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newTestService() (*Service, *memStore, *fakeDispatcher) {
	store := newMemStore()
	hooks := &fakeDispatcher{}
	svc := NewService(store, store, hooks, nil)
	svc.now = func() time.Time { return fixedNow }
	return svc, store, hooks
}

func strPtr(s string) *string { return &s }

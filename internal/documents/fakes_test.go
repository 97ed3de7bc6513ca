package documents

import (
	"context"
	"io"
	"sync"
	"time"

	"docviewer-backend/internal/rendering"
	"docviewer-backend/internal/users"
)

type fakeRendering struct {
	mu sync.Mutex

	uploadErrs   []error
	uploadResult rendering.UploadResult
	uploadBodies []string

	sessionToken string
	sessionErr   error
	deleteErr    error

	uploadCalls  int
	sessionCalls int
	deleteCalls  int
}

func (f *fakeRendering) Upload(_ context.Context, body io.ReadSeeker, _ int64, _ string) (rendering.UploadResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploadCalls++
	if _, err := body.Seek(0, io.SeekStart); err == nil {
		b, _ := io.ReadAll(body)
		f.uploadBodies = append(f.uploadBodies, string(b))
	}
	if len(f.uploadErrs) > 0 {
		err := f.uploadErrs[0]
		f.uploadErrs = f.uploadErrs[1:]
		return rendering.UploadResult{}, err
	}
	return f.uploadResult, nil
}

func (f *fakeRendering) CreateSession(context.Context, string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessionCalls++
	return f.sessionToken, f.sessionErr
}

func (f *fakeRendering) DeleteDocument(context.Context, string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleteCalls++
	return f.deleteErr
}

func (f *fakeRendering) ViewerURL(token string) string {
	return "https://viewer.example.test/?jwt=" + token
}

var (
	testUser  = users.User{ID: "user-1", Email: "user@nutrient.io", Name: "User One", Role: users.RoleUser}
	otherUser = users.User{ID: "user-2", Email: "other@nutrient.io", Role: users.RoleUser}
	adminSelf = users.User{ID: "admin-1", Email: "admin@nutrient.io", Role: users.RoleAdmin, CurrentImpersonationMode: users.ModeSelf}
	adminAll  = users.User{ID: "admin-1", Email: "admin@nutrient.io", Role: users.RoleAdmin, CurrentImpersonationMode: users.ModeUser}
)

func newTestService(rs *fakeRendering) (*Service, *MemoryRepo) {
	userRepo := users.NewMemoryRepo()
	for _, u := range []users.User{testUser, otherUser, adminSelf} {
		userRepo.Seed(u)
	}
	repo := NewMemoryRepo(userRepo)
	svc := NewService(repo, rs)
	svc.Retry.Sleep = func(context.Context, time.Duration) error { return nil }

	var n int
	svc.newID = func() string {
		n++
		return "doc-" + string(rune('0'+n))
	}
	base := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	var tick int
	svc.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}
	return svc, repo
}

func seedDoc(repo *MemoryRepo, doc Document) {
	_ = repo.Create(context.Background(), doc)
}

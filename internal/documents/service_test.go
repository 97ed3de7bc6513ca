package documents

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docviewer-backend/internal/access"
	"docviewer-backend/internal/rendering"
)

func uploadInput(body, title string) UploadInput {
	return UploadInput{
		File:        strings.NewReader(body),
		Filename:    "report.pdf",
		ContentType: "application/pdf",
		Size:        int64(len(body)),
		Title:       title,
	}
}

func TestCreateStoresDocumentAfterUpload(t *testing.T) {
	rs := &fakeRendering{uploadResult: rendering.UploadResult{ExternalDocumentID: "ext-1", SessionToken: "tok-1"}}
	svc, repo := newTestService(rs)

	doc, err := svc.Create(context.Background(), testUser, uploadInput("pdf", "  Quarterly  "))
	require.NoError(t, err)
	assert.Equal(t, "Quarterly", doc.Title)
	assert.Equal(t, "ext-1", doc.ExternalDocumentID)
	assert.Equal(t, "tok-1", doc.SessionToken)
	assert.Equal(t, "User One", doc.Author)
	assert.Equal(t, testUser.ID, doc.OwnerID)

	stored, err := repo.Get(context.Background(), doc.ID, access.EffectiveFilter(testUser))
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", stored.FileType)
}

func TestCreateAuthorDefaultChain(t *testing.T) {
	cases := []struct {
		name     string
		supplied string
		userName string
		email    string
		want     string
	}{
		{"supplied wins", "Jane", "User", "u@nutrient.io", "Jane"},
		{"name", "", "User", "u@nutrient.io", "User"},
		{"email", "", "", "u@nutrient.io", "u@nutrient.io"},
		{"unknown", "", "", "", "Unknown"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rs := &fakeRendering{uploadResult: rendering.UploadResult{ExternalDocumentID: "ext"}}
			svc, _ := newTestService(rs)
			u := testUser
			u.Name, u.Email = tc.userName, tc.email
			in := uploadInput("x", "T")
			in.Author = tc.supplied

			doc, err := svc.Create(context.Background(), u, in)
			require.NoError(t, err)
			assert.Equal(t, tc.want, doc.Author)
		})
	}
}

func TestCreateValidatesBeforeUploading(t *testing.T) {
	cases := []struct {
		name string
		in   UploadInput
		want error
	}{
		{"missing file", UploadInput{Title: "T"}, ErrFileRequired},
		{"missing title", uploadInput("x", "   "), ErrTitleRequired},
		{"too large", func() UploadInput { in := uploadInput("x", "T"); in.Size = MaxFileSize + 1; return in }(), ErrFileTooLarge},
		{"title too long", uploadInput("x", strings.Repeat("a", 501)), ErrInvalidInput},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rs := &fakeRendering{}
			svc, _ := newTestService(rs)
			_, err := svc.Create(context.Background(), testUser, tc.in)
			require.ErrorIs(t, err, tc.want)
			assert.Zero(t, rs.uploadCalls)
		})
	}
}

func TestCreateAcceptsExactlyMaxSize(t *testing.T) {
	rs := &fakeRendering{uploadResult: rendering.UploadResult{ExternalDocumentID: "ext"}}
	svc, _ := newTestService(rs)
	in := uploadInput("x", "T")
	in.Size = MaxFileSize

	_, err := svc.Create(context.Background(), testUser, in)
	require.NoError(t, err)
}

func TestCreateRetriesUploadThenSucceeds(t *testing.T) {
	rs := &fakeRendering{
		uploadErrs:   []error{errors.New("flaky"), errors.New("flaky")},
		uploadResult: rendering.UploadResult{ExternalDocumentID: "ext-2"},
	}
	svc, _ := newTestService(rs)

	doc, err := svc.Create(context.Background(), testUser, uploadInput("same bytes", "T"))
	require.NoError(t, err)
	assert.Equal(t, "ext-2", doc.ExternalDocumentID)
	assert.Equal(t, 3, rs.uploadCalls)
	assert.Equal(t, []string{"same bytes", "same bytes", "same bytes"}, rs.uploadBodies)
}

func TestCreateUploadFailureWritesNoRow(t *testing.T) {
	unreachable := &rendering.IntegrationError{Message: "down", Status: 503}
	rs := &fakeRendering{uploadErrs: []error{unreachable, unreachable, unreachable}}
	svc, repo := newTestService(rs)

	_, err := svc.Create(context.Background(), testUser, uploadInput("x", "T"))
	var ie *rendering.IntegrationError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, 3, rs.uploadCalls)

	docs, err := repo.List(context.Background(), ListQuery{})
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestLargeFileSizeSerializesAsString(t *testing.T) {
	rs := &fakeRendering{uploadResult: rendering.UploadResult{ExternalDocumentID: "ext"}}
	svc, repo := newTestService(rs)
	seedDoc(repo, Document{ID: "big", OwnerID: testUser.ID, ExternalDocumentID: "ext", Title: "Big", FileSize: 5_000_000_000})

	got, err := svc.Get(context.Background(), testUser, "big")
	require.NoError(t, err)
	listed, err := svc.List(context.Background(), testUser, ListOptions{})
	require.NoError(t, err)
	require.Len(t, listed, 1)

	for _, doc := range []Document{got, listed[0]} {
		raw, err := json.Marshal(toResponse(doc))
		require.NoError(t, err)
		assert.Contains(t, string(raw), `"fileSize":"5000000000"`)
	}
}

func TestListScopesByAccessFilter(t *testing.T) {
	svc, repo := newTestService(&fakeRendering{})
	seedDoc(repo, Document{ID: "a", OwnerID: testUser.ID, Title: "A"})
	seedDoc(repo, Document{ID: "b", OwnerID: otherUser.ID, Title: "B"})
	seedDoc(repo, Document{ID: "c", OwnerID: adminSelf.ID, Title: "C"})

	ids := func(docs []Document) []string {
		out := make([]string, 0, len(docs))
		for _, d := range docs {
			out = append(out, d.ID)
		}
		return out
	}

	mine, err := svc.List(context.Background(), testUser, ListOptions{SortBy: "title", SortOrder: "asc"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, ids(mine))

	self, err := svc.List(context.Background(), adminSelf, ListOptions{SortBy: "title", SortOrder: "asc"})
	require.NoError(t, err)
	assert.Equal(t, []string{"c"}, ids(self))

	all, err := svc.List(context.Background(), adminAll, ListOptions{SortBy: "title", SortOrder: "asc"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, ids(all))
}

func TestListSearchAndFilters(t *testing.T) {
	svc, repo := newTestService(&fakeRendering{})
	seedDoc(repo, Document{ID: "1", OwnerID: testUser.ID, Title: "Annual Report", Filename: "a.pdf", FileType: "application/pdf", Author: "Ada"})
	seedDoc(repo, Document{ID: "2", OwnerID: testUser.ID, Title: "Notes", Filename: "REPORT-draft.docx", FileType: "application/msword", Author: "Bob"})
	seedDoc(repo, Document{ID: "3", OwnerID: testUser.ID, Title: "Slides", Filename: "s.pptx", FileType: "application/vnd.ms-powerpoint", Author: "Reporter Ray"})
	seedDoc(repo, Document{ID: "4", OwnerID: testUser.ID, Title: "Misc", Filename: "m.txt", FileType: "text/plain", Author: "Ada"})

	got, err := svc.List(context.Background(), testUser, ListOptions{Search: "report", SortBy: "title", SortOrder: "asc"})
	require.NoError(t, err)
	require.Len(t, got, 3)

	got, err = svc.List(context.Background(), testUser, ListOptions{FileType: "PDF"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "1", got[0].ID)

	got, err = svc.List(context.Background(), testUser, ListOptions{Author: "ada", FileType: "all"})
	require.NoError(t, err)
	assert.Len(t, got, 2)

	got, err = svc.List(context.Background(), testUser, ListOptions{Author: "all"})
	require.NoError(t, err)
	assert.Len(t, got, 4)
}

func TestListSortFallback(t *testing.T) {
	svc, repo := newTestService(&fakeRendering{})
	base := time.Date(2026, time.February, 1, 0, 0, 0, 0, time.UTC)
	seedDoc(repo, Document{ID: "old", OwnerID: testUser.ID, Title: "Z", CreatedAt: base})
	seedDoc(repo, Document{ID: "mid", OwnerID: testUser.ID, Title: "A", CreatedAt: base.Add(time.Hour)})
	seedDoc(repo, Document{ID: "new", OwnerID: testUser.ID, Title: "M", CreatedAt: base.Add(2 * time.Hour)})

	got, err := svc.List(context.Background(), testUser, ListOptions{SortBy: "nonexistentField", SortOrder: "sideways"})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"new", "mid", "old"}, []string{got[0].ID, got[1].ID, got[2].ID})

	got, err = svc.List(context.Background(), testUser, ListOptions{SortBy: "fileSize; DROP TABLE documents", SortOrder: "asc"})
	require.NoError(t, err)
	assert.Equal(t, []string{"old", "mid", "new"}, []string{got[0].ID, got[1].ID, got[2].ID})
}

func TestGetHidesDocumentsOutsideScope(t *testing.T) {
	svc, repo := newTestService(&fakeRendering{})
	seedDoc(repo, Document{ID: "theirs", OwnerID: otherUser.ID, Title: "T"})

	_, err := svc.Get(context.Background(), testUser, "theirs")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = svc.Get(context.Background(), testUser, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	doc, err := svc.Get(context.Background(), adminAll, "theirs")
	require.NoError(t, err)
	require.NotNil(t, doc.Owner)
	assert.Equal(t, otherUser.Email, doc.Owner.Email)
}

func TestUpdateKeepsStoredAuthorWhenOmitted(t *testing.T) {
	svc, repo := newTestService(&fakeRendering{})
	seedDoc(repo, Document{ID: "d", OwnerID: testUser.ID, Title: "Old", Author: "Original Author"})

	doc, err := svc.Update(context.Background(), testUser, "d", UpdateInput{Title: "New"})
	require.NoError(t, err)
	assert.Equal(t, "New", doc.Title)
	assert.Equal(t, "Original Author", doc.Author)

	doc, err = svc.Update(context.Background(), testUser, "d", UpdateInput{Title: "New", Author: "Someone"})
	require.NoError(t, err)
	assert.Equal(t, "Someone", doc.Author)
}

func TestUpdateErrors(t *testing.T) {
	svc, repo := newTestService(&fakeRendering{})
	seedDoc(repo, Document{ID: "d", OwnerID: otherUser.ID, Title: "Old"})

	_, err := svc.Update(context.Background(), otherUser, "d", UpdateInput{Title: ""})
	assert.ErrorIs(t, err, ErrTitleRequired)

	_, err = svc.Update(context.Background(), testUser, "d", UpdateInput{Title: "New"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteSucceedsWhenExternalDeleteFails(t *testing.T) {
	rs := &fakeRendering{deleteErr: &rendering.IntegrationError{Message: "rendering delete failed: 500", Status: 500}}
	svc, repo := newTestService(rs)
	seedDoc(repo, Document{ID: "d", OwnerID: testUser.ID, ExternalDocumentID: "ext", Title: "T"})

	require.NoError(t, svc.Delete(context.Background(), testUser, "d"))
	assert.Equal(t, 3, rs.deleteCalls)

	_, err := repo.Get(context.Background(), "d", access.EffectiveFilter(adminAll))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteOutsideScopeIsNotFound(t *testing.T) {
	rs := &fakeRendering{}
	svc, repo := newTestService(rs)
	seedDoc(repo, Document{ID: "d", OwnerID: otherUser.ID, ExternalDocumentID: "ext", Title: "T"})

	assert.ErrorIs(t, svc.Delete(context.Background(), testUser, "d"), ErrNotFound)
	assert.Zero(t, rs.deleteCalls)
}

func TestViewerSessionIsCachedAfterFirstCall(t *testing.T) {
	rs := &fakeRendering{sessionToken: "fresh-token"}
	svc, repo := newTestService(rs)
	seedDoc(repo, Document{ID: "d", OwnerID: testUser.ID, ExternalDocumentID: "ext", Title: "T"})

	first, err := svc.ViewerSession(context.Background(), testUser, "d")
	require.NoError(t, err)
	second, err := svc.ViewerSession(context.Background(), testUser, "d")
	require.NoError(t, err)

	assert.Equal(t, "fresh-token", first.SessionToken)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, rs.sessionCalls)
	assert.Equal(t, "ext", first.ExternalDocumentID)
	assert.Equal(t, "https://viewer.example.test/?jwt=fresh-token", first.ViewerURL)
}

func TestViewerSessionReturnsCachedTokenAsIs(t *testing.T) {
	rs := &fakeRendering{sessionToken: "unused"}
	svc, repo := newTestService(rs)
	seedDoc(repo, Document{ID: "d", OwnerID: testUser.ID, ExternalDocumentID: "ext", SessionToken: "cached", Title: "T"})

	got, err := svc.ViewerSession(context.Background(), testUser, "d")
	require.NoError(t, err)
	assert.Equal(t, "cached", got.SessionToken)
	assert.Zero(t, rs.sessionCalls)
}

func TestViewerSessionErrors(t *testing.T) {
	rs := &fakeRendering{sessionErr: &rendering.IntegrationError{Message: "no token", Status: 500}}
	svc, repo := newTestService(rs)
	seedDoc(repo, Document{ID: "noext", OwnerID: testUser.ID, Title: "T"})
	seedDoc(repo, Document{ID: "d", OwnerID: testUser.ID, ExternalDocumentID: "ext", Title: "T"})

	_, err := svc.ViewerSession(context.Background(), testUser, "noext")
	assert.ErrorIs(t, err, ErrMissingExternalID)

	_, err = svc.ViewerSession(context.Background(), testUser, "d")
	var ie *rendering.IntegrationError
	assert.ErrorAs(t, err, &ie)
	assert.Equal(t, 1, rs.sessionCalls, "viewer session creation is not retried")

	stored, err := repo.Get(context.Background(), "d", access.EffectiveFilter(testUser))
	require.NoError(t, err)
	assert.Empty(t, stored.SessionToken)
}

package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lokswami/newsroom/internal/middleware"
	"github.com/lokswami/newsroom/internal/model"
	"github.com/lokswami/newsroom/internal/service"
	"github.com/lokswami/newsroom/internal/workflow"
)

func transition(t *testing.T, s *testServer, token, id string, to model.Status) *model.Article {
	t.Helper()
	rr := s.do(t, http.MethodPost, "/api/articles/"+id+"/transitions", map[string]any{"status": to}, token)
	if rr.Code != http.StatusOK {
		return nil
	}
	var a model.Article
	decode(t, rr, &a)
	return &a
}

func TestArticleWorkflowOverHTTP(t *testing.T) {
	s := newTestServer(t)
	cat := s.category(t, "Politics")
	_, reporter := s.staff(t, model.RoleReporter)
	_, subEditor := s.staff(t, model.RoleSubEditor)
	_, editor := s.staff(t, model.RoleEditor)

	rr := s.do(t, http.MethodPost, "/api/articles", articleBody("Budget Session Begins", cat), reporter)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var draft model.Article
	decode(t, rr, &draft)
	assert.Equal(t, model.StatusDraft, draft.Status)
	assert.Equal(t, "budget-session-begins", draft.Slug)
	assert.Equal(t, []string{"politics"}, draft.Tags)

	require.NotNil(t, transition(t, s, reporter, draft.ID, model.StatusSubEditorReview))

	rr = s.do(t, http.MethodPost, "/api/articles/"+draft.ID+"/transitions", map[string]any{"status": model.StatusEditorApproved}, reporter)
	expectError(t, rr, http.StatusForbidden, workflow.CodeForbidden)

	require.NotNil(t, transition(t, s, subEditor, draft.ID, model.StatusEditorApproved))
	published := transition(t, s, editor, draft.ID, model.StatusPublished)
	require.NotNil(t, published)
	assert.NotNil(t, published.PublishedAt)

	rr = s.do(t, http.MethodPost, "/api/articles/"+draft.ID+"/transitions", map[string]any{"status": model.StatusEditorApproved}, editor)
	expectError(t, rr, http.StatusConflict, workflow.CodeInvalidTransition)

	rr = s.do(t, http.MethodGet, "/api/categories/"+cat.Slug, nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	var got model.Category
	decode(t, rr, &got)
	assert.EqualValues(t, 1, got.ArticleCount)

	rr = s.do(t, http.MethodGet, "/api/articles/"+draft.ID+"/history", nil, editor)
	require.Equal(t, http.StatusOK, rr.Code)
	var history []model.StatusChange
	decode(t, rr, &history)
	var targets []model.Status
	for _, h := range history {
		targets = append(targets, h.To)
	}
	assert.Contains(t, targets, model.StatusSubEditorReview)
	assert.Contains(t, targets, model.StatusEditorApproved)
	assert.Contains(t, targets, model.StatusPublished)
	assert.NotContains(t, targets, model.StatusArchived)
}

func TestTransitionValidation(t *testing.T) {
	s := newTestServer(t)
	_, token := s.staff(t, model.RoleEditor)

	tests := []struct {
		name   string
		body   any
		status int
		code   string
	}{
		{"missing status", map[string]any{}, http.StatusBadRequest, workflow.CodeValidation},
		{"unknown status", map[string]any{"status": "LIVE"}, http.StatusBadRequest, workflow.CodeValidation},
		{"unknown article", map[string]any{"status": "PUBLISHED"}, http.StatusNotFound, workflow.CodeArticleNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := s.do(t, http.MethodPost, "/api/articles/missing/transitions", tt.body, token)
			expectError(t, rr, tt.status, tt.code)
		})
	}

	rr := s.do(t, http.MethodPost, "/api/articles/missing/transitions", map[string]any{"status": "PUBLISHED"}, "")
	expectError(t, rr, http.StatusUnauthorized, middleware.CodeUnauthorized)
}

func TestCreateArticleDirectlyPublishedIsRejected(t *testing.T) {
	s := newTestServer(t)
	cat := s.category(t, "Sports")
	_, editor := s.staff(t, model.RoleEditor)

	body := articleBody("Final Whistle", cat)
	body["status"] = model.StatusPublished
	expectError(t, s.do(t, http.MethodPost, "/api/articles", body, editor), http.StatusConflict, workflow.CodeInvalidTransition)

	body = articleBody("", cat)
	env := expectError(t, s.do(t, http.MethodPost, "/api/articles", body, editor), http.StatusBadRequest, workflow.CodeValidation)
	assert.Contains(t, env.Details, "title")
}

func TestPublicArticleReads(t *testing.T) {
	s := newTestServer(t)
	cat := s.category(t, "City")
	_, editor := s.staff(t, model.RoleEditor)

	publishArticle := func(title string) model.Article {
		rr := s.do(t, http.MethodPost, "/api/articles", articleBody(title, cat), editor)
		require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
		var a model.Article
		decode(t, rr, &a)
		for _, to := range []model.Status{model.StatusSubEditorReview, model.StatusEditorApproved, model.StatusPublished} {
			require.NotNil(t, transition(t, s, editor, a.ID, to))
		}
		return a
	}
	live := publishArticle("Metro Line Opens")
	related := publishArticle("Metro Fares Announced")

	rr := s.do(t, http.MethodPost, "/api/articles", articleBody("Unreleased Story", cat), editor)
	require.Equal(t, http.StatusCreated, rr.Code)
	var hidden model.Article
	decode(t, rr, &hidden)

	// Anonymous list sees published only, even when asking for drafts.
	rr = s.do(t, http.MethodGet, "/api/articles?status=DRAFT&category="+cat.Slug, nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	var page service.Page[model.Article]
	decode(t, rr, &page)
	assert.EqualValues(t, 2, page.Pagination.Total)

	rr = s.do(t, http.MethodGet, "/api/articles?status=DRAFT", nil, editor)
	require.Equal(t, http.StatusOK, rr.Code)
	decode(t, rr, &page)
	require.Len(t, page.Items, 1)
	assert.Equal(t, hidden.ID, page.Items[0].ID)

	expectError(t, s.do(t, http.MethodGet, "/api/articles/slug/"+hidden.Slug, nil, ""), http.StatusNotFound, workflow.CodeArticleNotFound)
	require.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/api/articles/slug/"+hidden.Slug, nil, editor).Code)

	for range 2 {
		require.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/api/articles/slug/"+live.Slug, nil, "").Code)
	}
	rr = s.do(t, http.MethodGet, "/api/articles/"+live.ID, nil, editor)
	require.Equal(t, http.StatusOK, rr.Code)
	var reread model.Article
	decode(t, rr, &reread)
	assert.EqualValues(t, 2, reread.ViewCount)

	expectError(t, s.do(t, http.MethodGet, "/api/articles/"+live.ID, nil, ""), http.StatusUnauthorized, middleware.CodeUnauthorized)

	rr = s.do(t, http.MethodGet, "/api/articles/trending?days=7&limit=1", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	var trending []model.Article
	decode(t, rr, &trending)
	require.Len(t, trending, 1)
	assert.Equal(t, live.ID, trending[0].ID)

	rr = s.do(t, http.MethodGet, "/api/articles/"+live.ID+"/related", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	var rel []model.Article
	decode(t, rr, &rel)
	require.Len(t, rel, 1)
	assert.Equal(t, related.ID, rel[0].ID)
}

func TestUpdateAndDeleteArticle(t *testing.T) {
	s := newTestServer(t)
	cat := s.category(t, "Business")
	_, author := s.staff(t, model.RoleReporter)
	_, other := s.staff(t, model.RoleReporter)
	_, admin := s.staff(t, model.RoleAdmin)

	rr := s.do(t, http.MethodPost, "/api/articles", articleBody("Markets Rally", cat), author)
	require.Equal(t, http.StatusCreated, rr.Code)
	var a model.Article
	decode(t, rr, &a)

	expectError(t, s.do(t, http.MethodPatch, "/api/articles/"+a.ID, map[string]any{"title": "Hijacked"}, other),
		http.StatusForbidden, workflow.CodeForbidden)

	rr = s.do(t, http.MethodPatch, "/api/articles/"+a.ID, map[string]any{"title": "Markets Rally Again"}, author)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var updated model.Article
	decode(t, rr, &updated)
	assert.Equal(t, "Markets Rally Again", updated.Title)
	assert.Equal(t, "markets-rally-again", updated.Slug)

	expectError(t, s.do(t, http.MethodDelete, "/api/articles/"+a.ID, nil, other), http.StatusForbidden, workflow.CodeForbidden)
	require.Equal(t, http.StatusOK, s.do(t, http.MethodDelete, "/api/articles/"+a.ID, nil, admin).Code)
	expectError(t, s.do(t, http.MethodGet, "/api/articles/"+a.ID, nil, admin), http.StatusNotFound, workflow.CodeArticleNotFound)
}

func TestMalformedBody(t *testing.T) {
	s := newTestServer(t)
	_, token := s.staff(t, model.RoleReporter)

	req := s.do(t, http.MethodPost, "/api/articles", "not an object", token)
	env := expectError(t, req, http.StatusBadRequest, workflow.CodeValidation)
	assert.Contains(t, env.Details, "body")
}

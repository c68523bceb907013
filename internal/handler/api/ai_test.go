package api

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lokswami/newsroom/internal/ai"
	"github.com/lokswami/newsroom/internal/middleware"
	"github.com/lokswami/newsroom/internal/model"
	"github.com/lokswami/newsroom/internal/workflow"
)

var longContent = strings.Repeat("नगर निगम ने आज नई जल आपूर्ति योजना की घोषणा की। ", 4)

func TestAISummarize(t *testing.T) {
	s := newTestServer(t)
	_, token := s.staff(t, model.RoleReporter)
	s.provider.reply = "```json\n{\"summary\": [\"पहला\", \"दूसरा\", \"तीसरा\", \"चौथा\"]}\n```"

	rr := s.do(t, http.MethodPost, "/api/ai/summarize", map[string]any{"content": longContent}, token)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var got struct {
		Summary []string `json:"summary"`
	}
	env := decode(t, rr, &got)
	assert.Equal(t, []string{"पहला", "दूसरा", "तीसरा"}, got.Summary)
	assert.Equal(t, "Article summarized successfully", env.Message)
}

func TestAIErrors(t *testing.T) {
	tests := []struct {
		name    string
		opts    []serverOption
		provErr error
		body    map[string]any
		status  int
		code    string
	}{
		{
			name:   "disabled",
			opts:   []serverOption{withoutAI()},
			body:   map[string]any{"content": longContent},
			status: http.StatusServiceUnavailable,
			code:   ai.CodeDisabled,
		},
		{
			name:   "content too short",
			body:   map[string]any{"content": "छोटा"},
			status: http.StatusBadRequest,
			code:   workflow.CodeValidation,
		},
		{
			name:    "provider rate limited",
			provErr: &ai.ProviderError{StatusCode: http.StatusTooManyRequests},
			body:    map[string]any{"content": longContent},
			status:  http.StatusTooManyRequests,
			code:    ai.CodeRateLimited,
		},
		{
			name:    "provider down",
			provErr: &ai.ProviderError{StatusCode: http.StatusBadGateway},
			body:    map[string]any{"content": longContent},
			status:  http.StatusBadGateway,
			code:    ai.CodeUnavailable,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, tt.opts...)
			_, token := s.staff(t, model.RoleReporter)
			s.provider.err = tt.provErr

			rr := s.do(t, http.MethodPost, "/api/ai/summarize", tt.body, token)
			expectError(t, rr, tt.status, tt.code)
		})
	}
}

func TestAIRequiresAuthentication(t *testing.T) {
	s := newTestServer(t)
	rr := s.do(t, http.MethodPost, "/api/ai/tags", map[string]any{"content": longContent}, "")
	expectError(t, rr, http.StatusUnauthorized, middleware.CodeUnauthorized)
}

func TestAITranslateAndComplete(t *testing.T) {
	s := newTestServer(t)
	_, token := s.staff(t, model.RoleEditor)

	s.provider.reply = "The municipal corporation announced a new water supply plan."
	rr := s.do(t, http.MethodPost, "/api/ai/translate", map[string]any{"content": longContent, "direction": "HI_TO_EN"}, token)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var tr struct {
		Translation string `json:"translation"`
	}
	decode(t, rr, &tr)
	assert.Equal(t, s.provider.reply, tr.Translation)

	rr = s.do(t, http.MethodPost, "/api/ai/translate", map[string]any{"content": longContent, "direction": "HI_TO_FR"}, token)
	env := expectError(t, rr, http.StatusBadRequest, workflow.CodeValidation)
	assert.Contains(t, env.Details, "direction")

	s.provider.reply = `{"summary": ["एक", "दो", "तीन"], "tags": ["Water", "city"], "seo": {"title": "जल योजना", "metaDescription": "नई योजना", "keywords": ["जल"]}}`
	rr = s.do(t, http.MethodPost, "/api/ai/complete", map[string]any{"title": "जल योजना", "content": longContent}, token)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var c ai.Completion
	decode(t, rr, &c)
	assert.Len(t, c.Summary, 3)
	assert.Equal(t, []string{"water", "city"}, c.Tags)
	assert.Equal(t, "जल योजना", c.SEO.Title)
}

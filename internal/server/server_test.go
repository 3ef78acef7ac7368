package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"

	"careerpilot/internal/app"
	"careerpilot/pkg/ai"
	"careerpilot/pkg/domain"
)

// staticVerifier maps fixed tokens to subjects.
type staticVerifier struct {
	subjects map[string]string
}

func (v *staticVerifier) VerifySubject(token string) (string, error) {
	if sub, ok := v.subjects[token]; ok {
		return sub, nil
	}
	return "", errors.New("invalid token")
}

// fakeService implements CareerService with canned responses and
// injectable errors.
type fakeService struct {
	user        domain.User
	insight     domain.IndustryInsight
	insightErr  error
	questions   []domain.QuizQuestion
	quizErr     error
	assessment  domain.Assessment
	saveErr     error
	assessments []domain.Assessment
	resume      domain.Resume
	hasResume   bool
	improved    string

	savedQuestions []domain.QuizQuestion
	savedAnswers   []string
	savedContent   string
}

func (f *fakeService) SyncUser(_ context.Context, externalID, email, _ string) (domain.User, error) {
	u := f.user
	u.ExternalID = externalID
	u.Email = email
	return u, nil
}

func (f *fakeService) GetOnboardingStatus(_ context.Context, _ string) (bool, error) {
	return f.user.Industry != "", nil
}

func (f *fakeService) UpdateProfile(_ context.Context, _ string, input app.ProfileInput) (app.ProfileResult, error) {
	u := f.user
	u.Industry = input.Industry
	return app.ProfileResult{User: u, Insight: f.insight}, nil
}

func (f *fakeService) GetIndustryInsights(_ context.Context, _ string) (domain.IndustryInsight, error) {
	if f.insightErr != nil {
		return domain.IndustryInsight{}, f.insightErr
	}
	return f.insight, nil
}

func (f *fakeService) GenerateQuiz(_ context.Context, _ string) ([]domain.QuizQuestion, error) {
	if f.quizErr != nil {
		return nil, f.quizErr
	}
	return f.questions, nil
}

func (f *fakeService) SaveQuizResult(_ context.Context, _ string, questions []domain.QuizQuestion, answers []string, _ float64) (domain.Assessment, error) {
	if f.saveErr != nil {
		return domain.Assessment{}, f.saveErr
	}
	f.savedQuestions = questions
	f.savedAnswers = answers
	return f.assessment, nil
}

func (f *fakeService) GetAssessments(_ context.Context, _ string) ([]domain.Assessment, error) {
	return f.assessments, nil
}

func (f *fakeService) SaveResume(_ context.Context, _ string, content string) (domain.Resume, error) {
	f.savedContent = content
	r := f.resume
	r.Content = content
	return r, nil
}

func (f *fakeService) GetResume(_ context.Context, _ string) (domain.Resume, bool, error) {
	return f.resume, f.hasResume, nil
}

func (f *fakeService) ImproveWithAI(_ context.Context, _, _, _ string) (string, error) {
	return f.improved, nil
}

// fakeSweeper counts manual sweep triggers.
type fakeSweeper struct {
	refreshed int
	err       error
	calls     int
}

func (s *fakeSweeper) RunOnce(_ context.Context) (int, error) {
	s.calls++
	return s.refreshed, s.err
}

func newTestServer(t *testing.T, svc CareerService, sweeper Sweeper, sweepToken string) *Server {
	t.Helper()
	redis := miniredis.RunT(t)
	srv, err := New(Config{
		App:           svc,
		TokenVerifier: &staticVerifier{subjects: map[string]string{"good-token": "user-1"}},
		Sweeper:       sweeper,
		SweepToken:    sweepToken,
		RedisAddr:     redis.Addr(),
		QuizRateLimit: 2,
		AIRateLimit:   2,
	})
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	return srv
}

func doRequest(srv *Server, method, path, token string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t, &fakeService{}, nil, "")
	rec := doRequest(srv, http.MethodGet, "/healthz", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("healthz status = %d", rec.Code)
	}
}

func TestAuthRequired(t *testing.T) {
	srv := newTestServer(t, &fakeService{}, nil, "")
	paths := []struct {
		method, path string
	}{
		{http.MethodGet, "/api/insights"},
		{http.MethodGet, "/api/onboarding/status"},
		{http.MethodPut, "/api/profile"},
		{http.MethodPost, "/api/interview/quiz"},
		{http.MethodGet, "/api/resume"},
	}
	for _, p := range paths {
		if rec := doRequest(srv, p.method, p.path, "", nil); rec.Code != http.StatusUnauthorized {
			t.Fatalf("%s %s without token: status = %d, want 401", p.method, p.path, rec.Code)
		}
		if rec := doRequest(srv, p.method, p.path, "bad-token", nil); rec.Code != http.StatusUnauthorized {
			t.Fatalf("%s %s with bad token: status = %d, want 401", p.method, p.path, rec.Code)
		}
	}
}

func TestSyncUser(t *testing.T) {
	svc := &fakeService{user: domain.User{ID: "u-1"}}
	srv := newTestServer(t, svc, nil, "")

	rec := doRequest(srv, http.MethodPost, "/api/users/sync", "good-token", map[string]string{
		"email": "dev@example.com",
		"name":  "Dev",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("sync status = %d: %s", rec.Code, rec.Body)
	}
	var user domain.User
	if err := json.Unmarshal(rec.Body.Bytes(), &user); err != nil {
		t.Fatalf("decode user: %v", err)
	}
	if user.Email != "dev@example.com" {
		t.Fatalf("user email = %q", user.Email)
	}
}

func TestOnboardingStatus(t *testing.T) {
	svc := &fakeService{user: domain.User{Industry: "tech"}}
	srv := newTestServer(t, svc, nil, "")

	rec := doRequest(srv, http.MethodGet, "/api/onboarding/status", "good-token", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp map[string]bool
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp["isOnboarded"] {
		t.Fatal("expected isOnboarded true")
	}
}

func TestUpdateProfileValidation(t *testing.T) {
	srv := newTestServer(t, &fakeService{}, nil, "")

	rec := doRequest(srv, http.MethodPut, "/api/profile", "good-token", map[string]any{
		"experience": 3,
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("blank industry status = %d, want 400", rec.Code)
	}

	rec = doRequest(srv, http.MethodPut, "/api/profile", "good-token", map[string]any{
		"industry":   "tech",
		"experience": 3,
		"skills":     []string{"Go"},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("profile update status = %d: %s", rec.Code, rec.Body)
	}
}

func TestInsightsErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"user not found", app.ErrUserNotFound, http.StatusNotFound},
		{"model empty", ai.ErrNoResponse, http.StatusBadGateway},
		{"malformed output", ai.ErrMalformedResponse, http.StatusBadGateway},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := newTestServer(t, &fakeService{insightErr: tc.err}, nil, "")
			rec := doRequest(srv, http.MethodGet, "/api/insights", "good-token", nil)
			if rec.Code != tc.want {
				t.Fatalf("status = %d, want %d", rec.Code, tc.want)
			}
		})
	}
}

func TestQuizRateLimited(t *testing.T) {
	svc := &fakeService{questions: []domain.QuizQuestion{{Question: "q1"}}}
	srv := newTestServer(t, svc, nil, "")

	for i := 0; i < 2; i++ {
		if rec := doRequest(srv, http.MethodPost, "/api/interview/quiz", "good-token", nil); rec.Code != http.StatusOK {
			t.Fatalf("quiz request %d status = %d: %s", i+1, rec.Code, rec.Body)
		}
	}
	rec := doRequest(srv, http.MethodPost, "/api/interview/quiz", "good-token", nil)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Fatal("expected Retry-After header")
	}
}

func TestSaveQuizResult(t *testing.T) {
	svc := &fakeService{assessment: domain.Assessment{ID: "a-1", QuizScore: 50}}
	srv := newTestServer(t, svc, nil, "")

	questions := []domain.QuizQuestion{
		{Question: "q1", CorrectAnswer: "A"},
		{Question: "q2", CorrectAnswer: "B"},
	}

	rec := doRequest(srv, http.MethodPost, "/api/interview/assessments", "good-token", map[string]any{
		"questions": questions,
		"answers":   []string{"A"},
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("mismatched answers status = %d, want 400", rec.Code)
	}

	rec = doRequest(srv, http.MethodPost, "/api/interview/assessments", "good-token", map[string]any{
		"questions": questions,
		"answers":   []string{"A", "B"},
		"score":     100,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("save status = %d: %s", rec.Code, rec.Body)
	}
	if len(svc.savedQuestions) != 2 || len(svc.savedAnswers) != 2 {
		t.Fatalf("service received %d questions / %d answers", len(svc.savedQuestions), len(svc.savedAnswers))
	}
}

func TestSaveQuizResultPersistenceError(t *testing.T) {
	svc := &fakeService{saveErr: app.ErrSaveFailed}
	srv := newTestServer(t, svc, nil, "")

	rec := doRequest(srv, http.MethodPost, "/api/interview/assessments", "good-token", map[string]any{
		"questions": []domain.QuizQuestion{{Question: "q1"}},
		"answers":   []string{"A"},
	})
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
}

func TestListAssessments(t *testing.T) {
	svc := &fakeService{assessments: []domain.Assessment{{ID: "a-1"}, {ID: "a-2"}}}
	srv := newTestServer(t, svc, nil, "")

	rec := doRequest(srv, http.MethodGet, "/api/interview/assessments", "good-token", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp struct {
		Items []domain.Assessment `json:"items"`
		Count int                 `json:"count"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Count != 2 || len(resp.Items) != 2 {
		t.Fatalf("count = %d items = %d", resp.Count, len(resp.Items))
	}
}

func TestResumeLifecycle(t *testing.T) {
	svc := &fakeService{resume: domain.Resume{ID: "r-1"}}
	srv := newTestServer(t, svc, nil, "")

	if rec := doRequest(srv, http.MethodGet, "/api/resume", "good-token", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("missing resume status = %d, want 404", rec.Code)
	}

	rec := doRequest(srv, http.MethodPut, "/api/resume", "good-token", map[string]string{"content": "# Resume"})
	if rec.Code != http.StatusOK {
		t.Fatalf("save resume status = %d: %s", rec.Code, rec.Body)
	}
	if svc.savedContent != "# Resume" {
		t.Fatalf("saved content = %q", svc.savedContent)
	}

	if rec := doRequest(srv, http.MethodPut, "/api/resume", "good-token", map[string]string{"content": "  "}); rec.Code != http.StatusBadRequest {
		t.Fatalf("blank content status = %d, want 400", rec.Code)
	}

	svc.hasResume = true
	if rec := doRequest(srv, http.MethodGet, "/api/resume", "good-token", nil); rec.Code != http.StatusOK {
		t.Fatalf("get resume status = %d", rec.Code)
	}
}

func TestImproveResume(t *testing.T) {
	svc := &fakeService{improved: "Delivered a 40% latency reduction."}
	srv := newTestServer(t, svc, nil, "")

	rec := doRequest(srv, http.MethodPost, "/api/resume/improve", "good-token", map[string]string{
		"current": "made things faster",
		"type":    "experience",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("improve status = %d: %s", rec.Code, rec.Body)
	}
	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["content"] != svc.improved {
		t.Fatalf("content = %q", resp["content"])
	}

	if rec := doRequest(srv, http.MethodPost, "/api/resume/improve", "good-token", map[string]string{"current": ""}); rec.Code != http.StatusBadRequest {
		t.Fatalf("blank current status = %d, want 400", rec.Code)
	}
}

func TestManualSweepRequiresToken(t *testing.T) {
	sweeper := &fakeSweeper{refreshed: 4}
	srv := newTestServer(t, &fakeService{}, sweeper, "secret-token")

	rec := doRequest(srv, http.MethodPost, "/api/admin/insights/refresh", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("missing sweep token status = %d, want 401", rec.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/admin/insights/refresh", nil)
	req.Header.Set("X-Sweep-Token", "wrong")
	recorder := httptest.NewRecorder()
	srv.Router().ServeHTTP(recorder, req)
	if recorder.Code != http.StatusUnauthorized {
		t.Fatalf("wrong sweep token status = %d, want 401", recorder.Code)
	}
	if sweeper.calls != 0 {
		t.Fatalf("sweeper ran %d times without a valid token", sweeper.calls)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/admin/insights/refresh", nil)
	req.Header.Set("X-Sweep-Token", "secret-token")
	recorder = httptest.NewRecorder()
	srv.Router().ServeHTTP(recorder, req)
	if recorder.Code != http.StatusOK {
		t.Fatalf("valid sweep token status = %d: %s", recorder.Code, recorder.Body)
	}
	var resp map[string]int
	if err := json.Unmarshal(recorder.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["refreshed"] != 4 {
		t.Fatalf("refreshed = %d, want 4", resp["refreshed"])
	}
}

func TestManualSweepDisabledWithoutConfig(t *testing.T) {
	srv := newTestServer(t, &fakeService{}, nil, "")
	rec := doRequest(srv, http.MethodPost, "/api/admin/insights/refresh", "", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unconfigured sweep status = %d, want 404", rec.Code)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	srv := newTestServer(t, &fakeService{}, nil, "")
	rec := doRequest(srv, http.MethodDelete, "/api/insights", "good-token", nil)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", rec.Code)
	}
}

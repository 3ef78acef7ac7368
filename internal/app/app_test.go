package app

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"careerpilot/pkg/domain"
	"careerpilot/pkg/store"
)

// fakeGenerator records prompts and answers via a scripted responder.
type fakeGenerator struct {
	mu      sync.Mutex
	calls   []string
	respond func(prompt string) (string, error)
}

func (g *fakeGenerator) GenerateText(_ context.Context, prompt string) (string, error) {
	g.mu.Lock()
	g.calls = append(g.calls, prompt)
	g.mu.Unlock()
	if g.respond == nil {
		return "", errors.New("fake generator: no responder")
	}
	return g.respond(prompt)
}

func (g *fakeGenerator) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.calls)
}

func (g *fakeGenerator) callsMatching(substr string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	n := 0
	for _, c := range g.calls {
		if strings.Contains(c, substr) {
			n++
		}
	}
	return n
}

type profileApplyCall struct {
	userID     string
	update     store.ProfileUpdate
	newInsight *domain.IndustryInsight
}

// fakeStore is an in-memory store.Store with injectable failures.
type fakeStore struct {
	mu          sync.Mutex
	users       map[string]domain.User // keyed by external ID
	insights    map[string]domain.IndustryInsight
	assessments []domain.Assessment
	resumes     map[string]domain.Resume

	updateInsightErr    map[string]error
	applyErr            error
	applyCalls          []profileApplyCall
	createAssessmentErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:            map[string]domain.User{},
		insights:         map[string]domain.IndustryInsight{},
		resumes:          map[string]domain.Resume{},
		updateInsightErr: map[string]error{},
	}
}

func (s *fakeStore) addUser(u domain.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ExternalID] = u
}

func (s *fakeStore) CreateUser(u domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[u.ExternalID]; ok {
		return errors.New("duplicate external id")
	}
	s.users[u.ExternalID] = u
	return nil
}

func (s *fakeStore) GetUserByExternalID(externalID string) (domain.User, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[externalID]
	return u, ok, nil
}

func (s *fakeStore) GetInsightByIndustry(industry string) (domain.IndustryInsight, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	insight, ok := s.insights[industry]
	return insight, ok, nil
}

func (s *fakeStore) CreateInsight(insight domain.IndustryInsight) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.insights[insight.Industry]; ok {
		return errors.New("duplicate industry")
	}
	s.insights[insight.Industry] = insight
	return nil
}

func (s *fakeStore) UpdateInsight(insight domain.IndustryInsight) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.updateInsightErr[insight.Industry]; err != nil {
		return err
	}
	if _, ok := s.insights[insight.Industry]; !ok {
		return errors.New("industry not found")
	}
	s.insights[insight.Industry] = insight
	return nil
}

func (s *fakeStore) ListIndustries() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.insights))
	for industry := range s.insights {
		out = append(out, industry)
	}
	return out, nil
}

func (s *fakeStore) ApplyProfileUpdate(userID string, update store.ProfileUpdate, newInsight *domain.IndustryInsight) (domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.applyCalls = append(s.applyCalls, profileApplyCall{userID: userID, update: update, newInsight: newInsight})
	if s.applyErr != nil {
		return domain.User{}, s.applyErr
	}
	if newInsight != nil {
		if _, ok := s.insights[newInsight.Industry]; ok {
			return domain.User{}, errors.New("duplicate industry")
		}
		s.insights[newInsight.Industry] = *newInsight
	}
	for externalID, u := range s.users {
		if u.ID != userID {
			continue
		}
		u.Industry = update.Industry
		u.Experience = update.Experience
		u.Bio = update.Bio
		u.Skills = update.Skills
		u.UpdatedAt = time.Now().UTC()
		s.users[externalID] = u
		return u, nil
	}
	return domain.User{}, errors.New("user not found")
}

func (s *fakeStore) CreateAssessment(a domain.Assessment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createAssessmentErr != nil {
		return s.createAssessmentErr
	}
	s.assessments = append(s.assessments, a)
	return nil
}

func (s *fakeStore) ListAssessmentsByUser(userID string) ([]domain.Assessment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Assessment
	for _, a := range s.assessments {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *fakeStore) UpsertResume(userID, content string) (domain.Resume, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	resume, ok := s.resumes[userID]
	if !ok {
		resume = domain.Resume{ID: "resume-" + userID, UserID: userID, CreatedAt: now}
	}
	resume.Content = content
	resume.UpdatedAt = now
	s.resumes[userID] = resume
	return resume, nil
}

func (s *fakeStore) GetResumeByUser(userID string) (domain.Resume, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	resume, ok := s.resumes[userID]
	return resume, ok, nil
}

func (s *fakeStore) insight(industry string) (domain.IndustryInsight, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	insight, ok := s.insights[industry]
	return insight, ok
}

const sampleInsightJSON = "```json\n" + `{
  "salaryRanges": [
    {"role": "Backend Engineer", "min": 90000, "max": 180000, "median": 130000, "location": "Remote"},
    {"role": "Data Engineer", "min": 95000, "max": 175000, "median": 135000, "location": "Remote"},
    {"role": "SRE", "min": 100000, "max": 190000, "median": 140000, "location": "US"},
    {"role": "Engineering Manager", "min": 140000, "max": 230000, "median": 180000, "location": "US"},
    {"role": "QA Engineer", "min": 70000, "max": 130000, "median": 95000, "location": "Remote"}
  ],
  "growthRate": 6.5,
  "demandLevel": "High",
  "topSkills": ["Go", "Kubernetes", "SQL", "Cloud", "CI/CD"],
  "marketOutlook": "Positive",
  "keyTrends": ["AI tooling", "Platform engineering", "Edge computing", "Security automation", "Serverless"],
  "recommendedSkills": ["Terraform", "Observability", "Rust", "Distributed systems", "MLOps"]
}` + "\n```"

func testUser(externalID, industry string) domain.User {
	return domain.User{
		ID:         "id-" + externalID,
		ExternalID: externalID,
		Email:      externalID + "@example.com",
		Industry:   industry,
		Skills:     []string{"Go", "SQL"},
	}
}

func newTestApp(s store.Store, gen *fakeGenerator) *App {
	return &App{store: s, gen: gen}
}

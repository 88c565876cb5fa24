package reconciler

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"tax-reconciliation-service/internal/models"
)

// ProjectStore is the seam to the storage collaborator. The engine only
// needs project records and the latest result snapshot per project;
// durable persistence lives outside this module.
type ProjectStore interface {
	Create(project *models.ReconciliationProject) error
	Get(id string) (*models.ReconciliationProject, error)
	Update(project *models.ReconciliationProject) error
	SaveResult(result *models.ReconciliationResult) error
	LatestResult(projectID string) (*models.ReconciliationResult, error)
}

// MemoryStore is an in-process ProjectStore. Each re-run's result
// supersedes the previous snapshot for the same project.
type MemoryStore struct {
	mu       sync.RWMutex
	projects map[string]*models.ReconciliationProject
	results  map[string]*models.ReconciliationResult
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		projects: make(map[string]*models.ReconciliationProject),
		results:  make(map[string]*models.ReconciliationResult),
	}
}

// Create stores a new project, assigning an ID and draft status when
// absent.
func (s *MemoryStore) Create(project *models.ReconciliationProject) error {
	if err := project.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if project.ID == "" {
		project.ID = uuid.New().String()
	}
	if project.Status == "" {
		project.Status = models.StatusDraft
	}

	if _, exists := s.projects[project.ID]; exists {
		return fmt.Errorf("project %s already exists", project.ID)
	}

	stored := *project
	s.projects[project.ID] = &stored
	return nil
}

// Get returns a copy of the stored project.
func (s *MemoryStore) Get(id string) (*models.ReconciliationProject, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	project, ok := s.projects[id]
	if !ok {
		return nil, fmt.Errorf("project %s not found", id)
	}

	copied := *project
	return &copied, nil
}

// Update replaces the stored project.
func (s *MemoryStore) Update(project *models.ReconciliationProject) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.projects[project.ID]; !ok {
		return fmt.Errorf("project %s not found", project.ID)
	}

	stored := *project
	s.projects[project.ID] = &stored
	return nil
}

// SaveResult stores the latest result snapshot for its project.
func (s *MemoryStore) SaveResult(result *models.ReconciliationResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.projects[result.ProjectID]; !ok {
		return fmt.Errorf("project %s not found", result.ProjectID)
	}

	s.results[result.ProjectID] = result
	return nil
}

// LatestResult returns the most recent result snapshot for the project.
func (s *MemoryStore) LatestResult(projectID string) (*models.ReconciliationResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result, ok := s.results[projectID]
	if !ok {
		return nil, fmt.Errorf("no result for project %s", projectID)
	}

	return result, nil
}

// Package testutil provides in-memory fakes for the persistence and
// model-backend interfaces, used by package tests across the pipeline.
package testutil

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/osamusic/med-regulatory/internal/core"
	"github.com/osamusic/med-regulatory/internal/models"
)

// MemStore is a mutex-guarded in-memory core.Store.
type MemStore struct {
	mu sync.Mutex

	users           map[string]models.User // keyed by email
	documents       map[string]models.Document
	docOrder        []string
	classifications []models.ClassificationResult
	nextClassID     int64

	processDocs  map[string]models.ProcessDocument
	processOrder []string
	clusters     map[string]models.ProcessCluster
	clusterOrder []string
}

func NewMemStore() *MemStore {
	return &MemStore{
		users:       make(map[string]models.User),
		documents:   make(map[string]models.Document),
		processDocs: make(map[string]models.ProcessDocument),
		clusters:    make(map[string]models.ProcessCluster),
		nextClassID: 1,
	}
}

func (s *MemStore) CreateUser(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[user.Email]; ok {
		return fmt.Errorf("user exists: %s", user.Email)
	}
	s.users[user.Email] = *user
	return nil
}

func (s *MemStore) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[email]; ok {
		return &u, nil
	}
	return nil, nil
}

func (s *MemStore) CountUsers(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.users), nil
}

func (s *MemStore) Exists(_ context.Context, docID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.documents[docID]
	return ok, nil
}

func (s *MemStore) Upsert(_ context.Context, doc *models.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.documents[doc.DocID]; !ok {
		s.docOrder = append(s.docOrder, doc.DocID)
	}
	s.documents[doc.DocID] = *doc
	return nil
}

func (s *MemStore) GetDocument(_ context.Context, docID string) (*models.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d, ok := s.documents[docID]; ok {
		return &d, nil
	}
	return nil, nil
}

func (s *MemStore) ListDocuments(_ context.Context) ([]models.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.orderedDocsLocked(), nil
}

func (s *MemStore) orderedDocsLocked() []models.Document {
	out := make([]models.Document, 0, len(s.docOrder))
	for _, id := range s.docOrder {
		out = append(out, s.documents[id])
	}
	return out
}

func (s *MemStore) ListUnclassified(_ context.Context) ([]models.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	classified := make(map[string]bool)
	for _, c := range s.classifications {
		classified[c.DocumentID] = true
	}
	var out []models.Document
	for _, d := range s.orderedDocsLocked() {
		if !classified[d.DocID] {
			out = append(out, d)
		}
	}
	return out, nil
}

func (s *MemStore) ListDocumentsByIDs(_ context.Context, docIDs []string) ([]models.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	want := make(map[string]bool, len(docIDs))
	for _, id := range docIDs {
		want[id] = true
	}
	var out []models.Document
	for _, d := range s.orderedDocsLocked() {
		if want[d.DocID] {
			out = append(out, d)
		}
	}
	return out, nil
}

func (s *MemStore) ListRecentDocuments(_ context.Context, limit int) ([]models.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	docs := s.orderedDocsLocked()
	sort.Slice(docs, func(i, j int) bool { return docs[i].DownloadedAt.After(docs[j].DownloadedAt) })
	if limit > 0 && len(docs) > limit {
		docs = docs[:limit]
	}
	return docs, nil
}

func (s *MemStore) CountDocuments(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.documents), nil
}

func (s *MemStore) SaveClassification(_ context.Context, result *models.ClassificationResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.classifications {
		if s.classifications[i].DocumentID == result.DocumentID {
			result.ID = s.classifications[i].ID
			s.classifications[i] = *result
			return nil
		}
	}
	result.ID = s.nextClassID
	s.nextClassID++
	s.classifications = append(s.classifications, *result)
	return nil
}

func (s *MemStore) LatestClassification(_ context.Context, docID string) (*models.ClassificationResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var latest *models.ClassificationResult
	for i := range s.classifications {
		c := s.classifications[i]
		if c.DocumentID != docID {
			continue
		}
		if latest == nil || c.CreatedAt.After(latest.CreatedAt) {
			latest = &c
		}
	}
	return latest, nil
}

func (s *MemStore) ListLatestClassifications(_ context.Context, offset, limit int) ([]models.ClassificationResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.ClassificationResult, len(s.classifications))
	copy(out, s.classifications)
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemStore) ListAllClassifications(_ context.Context) ([]models.ClassificationResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.ClassificationResult, len(s.classifications))
	copy(out, s.classifications)
	return out, nil
}

func (s *MemStore) CountClassifiedDocuments(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := make(map[string]bool)
	for _, c := range s.classifications {
		seen[c.DocumentID] = true
	}
	return len(seen), nil
}

func (s *MemStore) CreateProcessDocument(_ context.Context, doc *models.ProcessDocument) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now()
	}
	if _, ok := s.processDocs[doc.ID]; !ok {
		s.processOrder = append(s.processOrder, doc.ID)
	}
	s.processDocs[doc.ID] = *doc
	return nil
}

func (s *MemStore) ListUnclassifiedProcess(_ context.Context) ([]models.ProcessDocument, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.ProcessDocument
	for _, id := range s.processOrder {
		if d := s.processDocs[id]; d.Subject == models.SubjectUnknown {
			out = append(out, d)
		}
	}
	return out, nil
}

func (s *MemStore) ListUnclustered(_ context.Context) ([]models.ProcessDocument, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.ProcessDocument
	for _, id := range s.processOrder {
		if d := s.processDocs[id]; d.ClusterID == "" {
			out = append(out, d)
		}
	}
	return out, nil
}

func (s *MemStore) UpdateProcessDocument(_ context.Context, doc *models.ProcessDocument) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.processDocs[doc.ID]
	if !ok {
		return fmt.Errorf("process document not found: %s", doc.ID)
	}
	existing.ProcessedText = doc.ProcessedText
	existing.Subject = doc.Subject
	existing.Phase = doc.Phase
	existing.Priority = doc.Priority
	existing.Role = doc.Role
	existing.Status = doc.Status
	s.processDocs[doc.ID] = existing
	return nil
}

func (s *MemStore) CreateCluster(_ context.Context, cluster *models.ProcessCluster) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.clusters[cluster.ID]; !ok {
		s.clusterOrder = append(s.clusterOrder, cluster.ID)
	}
	s.clusters[cluster.ID] = *cluster
	return nil
}

func (s *MemStore) AssignCluster(_ context.Context, docID, clusterID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.processDocs[docID]
	if !ok {
		return fmt.Errorf("process document not found: %s", docID)
	}
	doc.ClusterID = clusterID
	s.processDocs[docID] = doc
	return nil
}

func (s *MemStore) ListClusters(_ context.Context) ([]models.ProcessCluster, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.ProcessCluster
	for _, id := range s.clusterOrder {
		c := s.clusters[id]
		c.Documents = nil
		for _, docID := range s.processOrder {
			if d := s.processDocs[docID]; d.ClusterID == id {
				c.Documents = append(c.Documents, d)
			}
		}
		out = append(out, c)
	}
	return out, nil
}

func (s *MemStore) ListClusteredByPhase(_ context.Context, phase models.PhaseEnum) ([]models.ProcessDocument, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.ProcessDocument
	for _, id := range s.processOrder {
		if d := s.processDocs[id]; d.ClusterID != "" && d.Phase == phase {
			out = append(out, d)
		}
	}
	return out, nil
}

// ProcessDocument returns a copy of one stored process document; second
// return is false when absent.
func (s *MemStore) ProcessDocument(id string) (models.ProcessDocument, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.processDocs[id]
	return d, ok
}

var _ core.Store = (*MemStore)(nil)

// backend/src/storage/memory.go
package storage

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/statify/backend/src/models"
)

// MemoryStore is an in-memory Store used by tests and single-process
// experiments. Safe for concurrent use.
type MemoryStore struct {
	mu         sync.RWMutex
	uploads    map[uuid.UUID]models.Upload
	txns       map[uuid.UUID]models.Transaction
	txnOrder   []uuid.UUID
	categories map[int64]models.Category
	rules      map[int64]models.CategorizationRule
	anomalies  map[uuid.UUID]models.Anomaly
	anomOrder  []uuid.UUID
	nextCatID  int64
	nextRuleID int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		uploads:    make(map[uuid.UUID]models.Upload),
		txns:       make(map[uuid.UUID]models.Transaction),
		categories: make(map[int64]models.Category),
		rules:      make(map[int64]models.CategorizationRule),
		anomalies:  make(map[uuid.UUID]models.Anomaly),
		nextCatID:  1,
		nextRuleID: 1,
	}
}

// ── Uploads ──

func (s *MemoryStore) CreateUpload(upload *models.Upload) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.uploads[upload.ID] = *upload
	return nil
}

func (s *MemoryStore) UpdateUpload(upload *models.Upload) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.uploads[upload.ID]; !ok {
		return ErrNotFound
	}
	s.uploads[upload.ID] = *upload
	return nil
}

func (s *MemoryStore) GetUpload(id uuid.UUID) (*models.Upload, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	upload, ok := s.uploads[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &upload, nil
}

// ── Transactions ──

func (s *MemoryStore) InsertTransactions(txns []models.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, txn := range txns {
		s.txns[txn.ID] = txn
		s.txnOrder = append(s.txnOrder, txn.ID)
	}
	return nil
}

func (s *MemoryStore) GetTransaction(id uuid.UUID) (*models.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	txn, ok := s.txns[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &txn, nil
}

func (s *MemoryStore) ListTransactionsByUpload(uploadID uuid.UUID) ([]models.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var txns []models.Transaction
	for _, id := range s.txnOrder {
		if txn := s.txns[id]; txn.UploadID == uploadID {
			txns = append(txns, txn)
		}
	}
	sort.SliceStable(txns, func(i, j int) bool { return txns[i].TxnDate.Before(txns[j].TxnDate) })
	return txns, nil
}

func (s *MemoryStore) UpdateTransactionCategory(id uuid.UUID, categoryID int64, override bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	txn, ok := s.txns[id]
	if !ok {
		return ErrNotFound
	}
	txn.CategoryID = &categoryID
	txn.IsOverride = override
	s.txns[id] = txn
	return nil
}

// ── Categories ──

// AddCategory seeds a category, assigning its id. Test helper.
func (s *MemoryStore) AddCategory(category *models.Category) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if category.ID == 0 {
		category.ID = s.nextCatID
		s.nextCatID++
	} else if category.ID >= s.nextCatID {
		s.nextCatID = category.ID + 1
	}
	s.categories[category.ID] = *category
}

func (s *MemoryStore) ListCategories() ([]models.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	categories := make([]models.Category, 0, len(s.categories))
	for _, c := range s.categories {
		categories = append(categories, c)
	}
	sort.Slice(categories, func(i, j int) bool { return categories[i].ID < categories[j].ID })
	return categories, nil
}

func (s *MemoryStore) GetCategory(id int64) (*models.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.categories[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &c, nil
}

// ── Rules ──

func (s *MemoryStore) ListRulesByPriority() ([]models.CategorizationRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rules := make([]models.CategorizationRule, 0, len(s.rules))
	for _, r := range s.rules {
		rules = append(rules, r)
	}
	sort.Slice(rules, func(i, j int) bool {
		if rules[i].Priority != rules[j].Priority {
			return rules[i].Priority > rules[j].Priority
		}
		return rules[i].ID < rules[j].ID
	})
	return rules, nil
}

func (s *MemoryStore) GetRule(id int64) (*models.CategorizationRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.rules[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &r, nil
}

func (s *MemoryStore) CreateRule(rule *models.CategorizationRule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rule.ID == 0 {
		rule.ID = s.nextRuleID
		s.nextRuleID++
	} else if rule.ID >= s.nextRuleID {
		s.nextRuleID = rule.ID + 1
	}
	s.rules[rule.ID] = *rule
	return nil
}

func (s *MemoryStore) UpdateRule(rule *models.CategorizationRule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.rules[rule.ID]
	if !ok {
		return ErrNotFound
	}
	existing.Keyword = rule.Keyword
	existing.CategoryID = rule.CategoryID
	existing.Priority = rule.Priority
	s.rules[rule.ID] = existing
	return nil
}

func (s *MemoryStore) DeleteRule(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rules[id]; !ok {
		return ErrNotFound
	}
	delete(s.rules, id)
	return nil
}

func (s *MemoryStore) IncrementRuleMatchCounts(deltas map[int64]int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, delta := range deltas {
		rule, ok := s.rules[id]
		if !ok {
			return ErrNotFound
		}
		rule.MatchCount += delta
		s.rules[id] = rule
	}
	return nil
}

// ── Anomalies ──

func (s *MemoryStore) InsertAnomalies(anomalies []models.Anomaly) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range anomalies {
		s.anomalies[a.ID] = a
		s.anomOrder = append(s.anomOrder, a.ID)
	}
	return nil
}

func (s *MemoryStore) GetAnomaly(id uuid.UUID) (*models.Anomaly, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.anomalies[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &a, nil
}

func (s *MemoryStore) ListAnomaliesByUpload(uploadID uuid.UUID) ([]models.Anomaly, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var anomalies []models.Anomaly
	// Most recent first: walk insertion order backwards.
	for i := len(s.anomOrder) - 1; i >= 0; i-- {
		a := s.anomalies[s.anomOrder[i]]
		txn, ok := s.txns[a.TransactionID]
		if ok && txn.UploadID == uploadID {
			anomalies = append(anomalies, a)
		}
	}
	return anomalies, nil
}

func (s *MemoryStore) UpdateAnomalyStatus(id uuid.UUID, status string, reviewedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.anomalies[id]
	if !ok {
		return ErrNotFound
	}
	a.Status = status
	a.ReviewedAt = &reviewedAt
	s.anomalies[id] = a
	return nil
}

// backend/src/services/categorization_service.go
package services

import (
	"fmt"
	"strings"

	"github.com/statify/backend/src/logger"
	"github.com/statify/backend/src/models"
	"github.com/statify/backend/src/storage"
)

// CategorizationService assigns categories to transactions from the ordered
// keyword rule set.
type CategorizationService struct {
	rules storage.RuleStore
}

func NewCategorizationService(rules storage.RuleStore) *CategorizationService {
	return &CategorizationService{rules: rules}
}

// CategorizeTransactions runs the rule engine over a batch in input order.
// Rules are fetched once, ordered by priority descending (id ascending on
// ties); the first rule whose keyword occurs case-insensitively in the
// description wins and scanning stops for that transaction. Transactions
// matching no rule keep a nil category. Match counters are flushed to the
// store in one atomic-increment batch at the end.
func (s *CategorizationService) CategorizeTransactions(txns []models.Transaction) error {
	if len(txns) == 0 {
		return nil
	}

	rules, err := s.rules.ListRulesByPriority()
	if err != nil {
		return fmt.Errorf("failed to load categorization rules: %w", err)
	}

	matchDeltas := make(map[int64]int64)
	matched := 0
	for i := range txns {
		description := strings.ToUpper(txns[i].Description)
		for _, rule := range rules {
			if strings.Contains(description, strings.ToUpper(rule.Keyword)) {
				categoryID := rule.CategoryID
				ruleID := rule.ID
				txns[i].CategoryID = &categoryID
				txns[i].MatchedRuleID = &ruleID
				matchDeltas[ruleID]++
				matched++
				break
			}
		}
	}

	if len(matchDeltas) > 0 {
		if err := s.rules.IncrementRuleMatchCounts(matchDeltas); err != nil {
			return fmt.Errorf("failed to persist rule match counts: %w", err)
		}
	}

	logger.L.Debug("Categorization complete", "transactions", len(txns), "matched", matched, "rulesHit", len(matchDeltas))
	return nil
}

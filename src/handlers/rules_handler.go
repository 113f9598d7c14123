// backend/src/handlers/rules_handler.go
package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/statify/backend/src/logger"
	"github.com/statify/backend/src/models"
	"github.com/statify/backend/src/storage"
	"github.com/statify/backend/src/utils"
)

type RulesHandler struct {
	store storage.Store
}

func NewRulesHandler(store storage.Store) *RulesHandler {
	return &RulesHandler{store: store}
}

// HandleListCategories serves all categories.
func (h *RulesHandler) HandleListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.store.ListCategories()
	if err != nil {
		sendNotFoundOrInternal(w, err)
		return
	}
	if categories == nil {
		categories = []models.Category{}
	}
	utils.SendJSON(w, http.StatusOK, categories)
}

// HandleListRules serves all rules in evaluation order.
func (h *RulesHandler) HandleListRules(w http.ResponseWriter, r *http.Request) {
	rules, err := h.store.ListRulesByPriority()
	if err != nil {
		sendNotFoundOrInternal(w, err)
		return
	}
	if rules == nil {
		rules = []models.CategorizationRule{}
	}
	utils.SendJSON(w, http.StatusOK, rules)
}

type ruleRequest struct {
	Keyword    string `json:"keyword"`
	CategoryID int64  `json:"categoryId"`
	Priority   int    `json:"priority"`
}

// validate returns the trimmed keyword, or an empty string plus a message
// when the request is unusable.
func (req *ruleRequest) validate(h *RulesHandler) (keyword, errMsg string) {
	keyword = strings.TrimSpace(req.Keyword)
	if keyword == "" {
		return "", "keyword must not be empty."
	}
	if _, err := h.store.GetCategory(req.CategoryID); err != nil {
		return "", "categoryId does not reference an existing category."
	}
	return keyword, ""
}

// HandleCreateRule creates a user-defined categorization rule. New rules
// affect future uploads only; already-categorized transactions are not
// revisited.
func (h *RulesHandler) HandleCreateRule(w http.ResponseWriter, r *http.Request) {
	var req ruleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendAPIError(w, http.StatusBadRequest, "INVALID_PARAMETER",
			"Invalid request body.", "Send a JSON body with keyword, categoryId and priority.")
		return
	}
	keyword, errMsg := req.validate(h)
	if errMsg != "" {
		utils.SendAPIError(w, http.StatusBadRequest, "INVALID_PARAMETER",
			errMsg, "Check the rule fields and try again.")
		return
	}

	rule := &models.CategorizationRule{
		Keyword:    keyword,
		CategoryID: req.CategoryID,
		Priority:   req.Priority,
		IsSystem:   false,
		CreatedAt:  time.Now().UTC(),
	}
	if err := h.store.CreateRule(rule); err != nil {
		sendNotFoundOrInternal(w, err)
		return
	}
	logger.L.Info("Categorization rule created", "ruleID", rule.ID, "keyword", rule.Keyword)
	utils.SendJSON(w, http.StatusCreated, rule)
}

// HandleUpdateRule edits an existing rule's keyword, category or priority.
// System rules can be re-prioritized but keep their system flag.
func (h *RulesHandler) HandleUpdateRule(w http.ResponseWriter, r *http.Request) {
	ruleID, ok := parseRuleID(w, r)
	if !ok {
		return
	}
	existing, err := h.store.GetRule(ruleID)
	if err != nil {
		sendNotFoundOrInternal(w, err)
		return
	}

	var req ruleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendAPIError(w, http.StatusBadRequest, "INVALID_PARAMETER",
			"Invalid request body.", "Send a JSON body with keyword, categoryId and priority.")
		return
	}
	keyword, errMsg := req.validate(h)
	if errMsg != "" {
		utils.SendAPIError(w, http.StatusBadRequest, "INVALID_PARAMETER",
			errMsg, "Check the rule fields and try again.")
		return
	}

	existing.Keyword = keyword
	existing.CategoryID = req.CategoryID
	existing.Priority = req.Priority
	if err := h.store.UpdateRule(existing); err != nil {
		sendNotFoundOrInternal(w, err)
		return
	}
	utils.SendJSON(w, http.StatusOK, existing)
}

// HandleDeleteRule removes a user-defined rule. System rules are protected.
func (h *RulesHandler) HandleDeleteRule(w http.ResponseWriter, r *http.Request) {
	ruleID, ok := parseRuleID(w, r)
	if !ok {
		return
	}
	rule, err := h.store.GetRule(ruleID)
	if err != nil {
		sendNotFoundOrInternal(w, err)
		return
	}
	if rule.IsSystem {
		utils.SendAPIError(w, http.StatusForbidden, "SYSTEM_RULE_PROTECTED",
			"System rules cannot be deleted.",
			"Create a higher-priority rule to override its behavior instead.")
		return
	}
	if err := h.store.DeleteRule(ruleID); err != nil {
		sendNotFoundOrInternal(w, err)
		return
	}
	logger.L.Info("Categorization rule deleted", "ruleID", ruleID)
	w.WriteHeader(http.StatusNoContent)
}

func parseRuleID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		utils.SendAPIError(w, http.StatusNotFound, "RESOURCE_NOT_FOUND",
			"The requested resource could not be found.",
			"Check the ID and try again.")
		return 0, false
	}
	return id, true
}

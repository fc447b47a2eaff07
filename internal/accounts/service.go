package accounts

import (
	"strings"

	"github.com/beandash/beandash/internal/model"
)

// Service provides in-memory lookup over the ledger's account names.
type Service struct {
	names  []string
	byName map[string]bool
}

// NewService creates a Service from account names. Duplicates are dropped;
// first-seen order is kept.
func NewService(names []string) *Service {
	byName := make(map[string]bool, len(names))
	var unique []string
	for _, n := range names {
		if n == "" || byName[n] {
			continue
		}
		byName[n] = true
		unique = append(unique, n)
	}
	return &Service{names: unique, byName: byName}
}

// All returns all account names.
func (s *Service) All() []string {
	return s.names
}

// Exists reports whether an account name is known.
func (s *Service) Exists(name string) bool {
	return s.byName[name]
}

// ByRoot returns the accounts under a root category.
func (s *Service) ByRoot(root model.RootCategory) []string {
	var result []string
	for _, n := range s.names {
		if model.RootOf(n) == root {
			result = append(result, n)
		}
	}
	return result
}

// Matching returns accounts containing substr, case-insensitively, for
// autocomplete. An empty substr matches everything.
func (s *Service) Matching(substr string) []string {
	needle := strings.ToLower(substr)
	var result []string
	for _, n := range s.names {
		if strings.Contains(strings.ToLower(n), needle) {
			result = append(result, n)
		}
	}
	return result
}

// Tree builds the account forest for the known names.
func (s *Service) Tree() []*model.AccountNode {
	return BuildTree(s.names)
}

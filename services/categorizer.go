package services

import (
	"context"
	"sort"
	"strings"

	"github.com/arneor/vault-api/models"
)

// CategorySuggestion is the category proposed for a new transaction.
type CategorySuggestion struct {
	Category string `json:"category"`
	Source   string `json:"source"`
}

// staticRules maps vendor keywords to expense categories.
var staticRules = map[string]string{
	// INFRASTRUCTURE
	"aws": "Infrastructure Costs", "amazon web services": "Infrastructure Costs",
	"gcp": "Infrastructure Costs", "google cloud": "Infrastructure Costs", "azure": "Infrastructure Costs",
	"digitalocean": "Infrastructure Costs", "vercel": "Infrastructure Costs", "render": "Infrastructure Costs",
	"cloudflare": "Infrastructure Costs", "hosting": "Infrastructure Costs", "domain": "Infrastructure Costs",

	// TOOLS
	"github": "Software Development Tools", "gitlab": "Software Development Tools",
	"jetbrains": "Software Development Tools", "copilot": "Software Development Tools",
	"postman": "Software Development Tools",

	// LICENSES
	"figma": "Software Licenses & Subscriptions", "notion": "Software Licenses & Subscriptions",
	"slack": "Software Licenses & Subscriptions", "google workspace": "Software Licenses & Subscriptions",
	"zoom": "Software Licenses & Subscriptions", "adobe": "Software Licenses & Subscriptions",

	// PEOPLE & OFFICE
	"salary": "Team Salaries", "payroll": "Team Salaries", "stipend": "Team Salaries",
	"rent": "Office & Operations", "electricity": "Office & Operations", "internet": "Office & Operations",

	// GROWTH
	"ads": "Marketing & Product Launch", "linkedin": "Marketing & Product Launch",
	"launch": "Marketing & Product Launch",

	// LEGAL
	"trademark": "Legal & IP Protection", "patent": "Legal & IP Protection", "lawyer": "Legal & IP Protection",

	// HARDWARE
	"laptop": "Hardware & Equipment", "monitor": "Hardware & Equipment",
	"pcb": "Prototyping Costs", "3d print": "Prototyping Costs",

	// TRAVEL
	"flight": "Travel & Conferences", "hotel": "Travel & Conferences", "uber": "Travel & Conferences",
	"conference": "Travel & Conferences",
}

// CategorizerService proposes a category from a transaction description:
// first the vendor keywords, then the categories already used in the ledger
// for descriptions sharing a word.
type CategorizerService struct {
	ledger  *LedgerService
	allowed map[string]bool
}

// NewCategorizerService restricts suggestions to categories when the list
// is non-empty.
func NewCategorizerService(ledger *LedgerService, categories []string) *CategorizerService {
	s := &CategorizerService{ledger: ledger, allowed: make(map[string]bool, len(categories))}
	for _, c := range categories {
		s.allowed[c] = true
	}
	return s
}

func (s *CategorizerService) permitted(category string) bool {
	return len(s.allowed) == 0 || s.allowed[category]
}

// Suggest never fails on an unknown description: the empty category with
// source "none" is returned.
func (s *CategorizerService) Suggest(ctx context.Context, description string, typ models.TransactionType) (CategorySuggestion, error) {
	label := strings.ToLower(strings.TrimSpace(description))
	if label == "" {
		return CategorySuggestion{Source: "none"}, nil
	}

	if typ != models.TransactionIncome {
		// longest keyword wins
		keys := make([]string, 0, len(staticRules))
		for k := range staticRules {
			keys = append(keys, k)
		}
		sort.Slice(keys, func(i, j int) bool {
			if len(keys[i]) != len(keys[j]) {
				return len(keys[i]) > len(keys[j])
			}
			return keys[i] < keys[j]
		})
		for _, k := range keys {
			if containsWord(label, k) && s.permitted(staticRules[k]) {
				return CategorySuggestion{Category: staticRules[k], Source: "rules"}, nil
			}
		}
	}

	txs, err := s.ledger.Transactions(ctx)
	if err != nil {
		return CategorySuggestion{}, err
	}
	if cat := categoryFromHistory(txs, label, typ); cat != "" && s.permitted(cat) {
		return CategorySuggestion{Category: cat, Source: "history"}, nil
	}
	return CategorySuggestion{Source: "none"}, nil
}

// categoryFromHistory scores each category by the words its past
// descriptions share with label. Ties go to the alphabetically first.
func categoryFromHistory(txs []models.Transaction, label string, typ models.TransactionType) string {
	words := strings.Fields(label)
	scores := map[string]int{}
	for _, t := range txs {
		if !t.Persisted() || t.Category == "" || (typ != "" && t.Type != typ) {
			continue
		}
		desc := strings.ToLower(t.Description)
		for _, w := range words {
			if len(w) >= 3 && containsWord(desc, w) {
				scores[t.Category]++
			}
		}
	}

	best, bestScore := "", 0
	for cat, score := range scores {
		if score > bestScore || (score == bestScore && cat < best) {
			best, bestScore = cat, score
		}
	}
	return best
}

// containsWord matches needle at word boundaries of haystack.
func containsWord(haystack, needle string) bool {
	for i := 0; ; {
		j := strings.Index(haystack[i:], needle)
		if j < 0 {
			return false
		}
		start, end := i+j, i+j+len(needle)
		before := start == 0 || !isWordByte(haystack[start-1])
		after := end == len(haystack) || !isWordByte(haystack[end])
		if before && after {
			return true
		}
		i = start + 1
	}
}

func isWordByte(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= '0' && b <= '9'
}

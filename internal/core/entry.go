package core

import (
	"strings"
	"time"
)

const (
	Income  EntryType = "income"
	Expense EntryType = "expense"
)

const (
	Salary         Category = "salary"
	Education      Category = "education"
	Health         Category = "health"
	Food           Category = "food"
	Transportation Category = "transportation"
	Entertainment  Category = "entertainment"
	Utilities      Category = "utilities"
	Others         Category = "others"
)

type (
	EntryType string

	Category string

	// Entry is one income/expense ledger record owned by a user.
	// ID and CreatedAt are assigned by the store; Owner never changes
	// after creation.
	Entry struct {
		ID        string
		Owner     string
		Title     string
		Amount    Money
		Type      EntryType
		Category  Category
		CreatedAt time.Time
	}

	// NewEntry carries the caller-supplied fields of an entry to create.
	NewEntry struct {
		Owner    string
		Title    string
		Amount   Money
		Type     EntryType
		Category Category
	}

	// EntryPatch is the set of fields an update may change. Owner and
	// CreatedAt are immutable and deliberately absent.
	EntryPatch struct {
		Title    *string
		Amount   *Money
		Type     *EntryType
		Category *Category
	}
)

// Categories lists every valid category in declaration order.
var Categories = []Category{
	Salary, Education, Health, Food, Transportation, Entertainment, Utilities, Others,
}

// ParseEntryType validates s against the entry type enum.
func ParseEntryType(s string) (EntryType, error) {
	switch EntryType(s) {
	case Income, Expense:
		return EntryType(s), nil
	}
	return "", Invalid("type", "must be income or expense")
}

// ParseCategory validates s against the category enum.
func ParseCategory(s string) (Category, error) {
	for _, c := range Categories {
		if Category(s) == c {
			return c, nil
		}
	}
	return "", Invalid("category", "unknown category")
}

func (e NewEntry) Validate() error {
	if strings.TrimSpace(e.Owner) == "" {
		return Invalid("owner", "required")
	}
	if strings.TrimSpace(e.Title) == "" {
		return Invalid("title", "required")
	}
	if err := e.Amount.Validate(); err != nil {
		return err
	}
	if _, err := ParseEntryType(string(e.Type)); err != nil {
		return err
	}
	if _, err := ParseCategory(string(e.Category)); err != nil {
		return err
	}
	return nil
}

// Validate checks only the fields present in the patch.
func (p EntryPatch) Validate() error {
	if p.Title != nil && strings.TrimSpace(*p.Title) == "" {
		return Invalid("title", "required")
	}
	if p.Amount != nil {
		if err := p.Amount.Validate(); err != nil {
			return err
		}
	}
	if p.Type != nil {
		if _, err := ParseEntryType(string(*p.Type)); err != nil {
			return err
		}
	}
	if p.Category != nil {
		if _, err := ParseCategory(string(*p.Category)); err != nil {
			return err
		}
	}
	return nil
}

// IsEmpty reports whether the patch changes nothing.
func (p EntryPatch) IsEmpty() bool {
	return p.Title == nil && p.Amount == nil && p.Type == nil && p.Category == nil
}

// Apply returns a copy of e with the patch fields replaced.
func (p EntryPatch) Apply(e Entry) Entry {
	if p.Title != nil {
		e.Title = *p.Title
	}
	if p.Amount != nil {
		e.Amount = *p.Amount
	}
	if p.Type != nil {
		e.Type = *p.Type
	}
	if p.Category != nil {
		e.Category = *p.Category
	}
	return e
}

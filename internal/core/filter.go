package core

import (
	"strings"
	"time"
)

type (
	// Predicate is an explicit conjunction of conditions selecting entries.
	// It is built fresh per request and never persisted.
	Predicate struct {
		Conditions []Condition
	}

	// Condition is one filter clause. Each variant corresponds to a single
	// filter kind, so a predicate's shape is visible and testable instead of
	// being an accumulation of overwritten fields.
	Condition interface {
		filterCondition()
	}

	// OwnerIs restricts the selection to one user's entries. It is always
	// the first condition of a built predicate.
	OwnerIs struct {
		Owner string
	}

	TypeIs struct {
		Type EntryType
	}

	// CategoryIs matches the category column verbatim. The raw input is kept
	// unvalidated here: an unknown category simply selects nothing.
	CategoryIs struct {
		Category string
	}

	// CreatedWindow bounds CreatedAt. A zero Start or End leaves that side
	// unbounded. Year/month windows are half-open; explicit date ranges are
	// inclusive on both ends (IncludeEnd).
	CreatedWindow struct {
		Start      time.Time
		End        time.Time
		IncludeEnd bool
	}

	// AmountBetween bounds the amount in cents, inclusive on whichever
	// sides are present.
	AmountBetween struct {
		Min *int64
		Max *int64
	}

	// KeywordContains matches entries whose title or category literal
	// contains the keyword, case-insensitively. Matching is literal
	// substring matching; stores must escape any pattern metacharacters.
	KeywordContains struct {
		Keyword string
	}
)

func (OwnerIs) filterCondition()         {}
func (TypeIs) filterCondition()          {}
func (CategoryIs) filterCondition()      {}
func (CreatedWindow) filterCondition()   {}
func (AmountBetween) filterCondition()   {}
func (KeywordContains) filterCondition() {}

// Filter collects raw, optional filter inputs and turns them into a
// Predicate. It is an immutable value: every With method returns a copy,
// and Build does not mutate the receiver.
type Filter struct {
	owner     string
	entryType string
	category  string
	keyword   string
	year      *int
	month     *int
	minCents  *int64
	maxCents  *int64
	start     *time.Time
	end       *time.Time

	now func() time.Time
}

// NewFilter starts a filter for the given owner. The owner condition is
// always present and cannot be removed or overridden.
func NewFilter(owner string) Filter {
	return Filter{owner: owner, now: time.Now}
}

func (f Filter) WithType(t string) Filter {
	f.entryType = strings.TrimSpace(t)
	return f
}

func (f Filter) WithCategory(c string) Filter {
	f.category = strings.TrimSpace(c)
	return f
}

func (f Filter) WithKeyword(k string) Filter {
	f.keyword = strings.TrimSpace(k)
	return f
}

func (f Filter) WithYear(year int) Filter {
	f.year = &year
	return f
}

func (f Filter) WithMonth(month int) Filter {
	f.month = &month
	return f
}

func (f Filter) WithMinAmount(cents int64) Filter {
	f.minCents = &cents
	return f
}

func (f Filter) WithMaxAmount(cents int64) Filter {
	f.maxCents = &cents
	return f
}

func (f Filter) WithStartDate(t time.Time) Filter {
	f.start = &t
	return f
}

func (f Filter) WithEndDate(t time.Time) Filter {
	f.end = &t
	return f
}

// withNow overrides the clock used to default the year when only a month
// is given. Test hook.
func (f Filter) withNow(now func() time.Time) Filter {
	f.now = now
	return f
}

// Build assembles the predicate. Conditions are added in a fixed order:
// owner, type, category, created window, amount range, keyword.
func (f Filter) Build() (Predicate, error) {
	conds := []Condition{OwnerIs{Owner: f.owner}}

	if f.entryType != "" {
		t, err := ParseEntryType(f.entryType)
		if err != nil {
			return Predicate{}, err
		}
		conds = append(conds, TypeIs{Type: t})
	}

	if f.category != "" {
		conds = append(conds, CategoryIs{Category: f.category})
	}

	window, err := f.createdWindow()
	if err != nil {
		return Predicate{}, err
	}
	if window != nil {
		conds = append(conds, *window)
	}

	if f.minCents != nil || f.maxCents != nil {
		conds = append(conds, AmountBetween{Min: f.minCents, Max: f.maxCents})
	}

	if f.keyword != "" {
		conds = append(conds, KeywordContains{Keyword: f.keyword})
	}

	return Predicate{Conditions: conds}, nil
}

// createdWindow resolves the temporal inputs into at most one window.
//
// An explicit start/end range replaces a year/month window outright rather
// than intersecting with it: when both are present in one request the
// explicit range wins.
func (f Filter) createdWindow() (*CreatedWindow, error) {
	if f.start != nil || f.end != nil {
		w := CreatedWindow{IncludeEnd: true}
		if f.start != nil {
			w.Start = f.start.UTC()
		}
		if f.end != nil {
			w.End = f.end.UTC()
		}
		return &w, nil
	}

	if f.year == nil && f.month == nil {
		return nil, nil
	}

	year := 0
	switch {
	case f.year != nil:
		year = *f.year
	default:
		// Month without year defaults to the current calendar year.
		year = f.now().UTC().Year()
	}
	if year < 1 || year > 9999 {
		return nil, Invalid("year", "out of range")
	}

	if f.month == nil {
		start, end := YearWindow(year)
		return &CreatedWindow{Start: start, End: end}, nil
	}

	if *f.month < 1 || *f.month > 12 {
		return nil, Invalid("month", "must be between 1 and 12")
	}
	start, end := MonthWindow(year, *f.month)
	return &CreatedWindow{Start: start, End: end}, nil
}

// YearWindow returns the half-open UTC interval [Jan 1 year, Jan 1 year+1).
func YearWindow(year int) (start, end time.Time) {
	start = time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(1, 0, 0)
}

// MonthWindow returns the half-open UTC interval covering the given month.
// December rolls the end bound into January of the following year.
func MonthWindow(year, month int) (start, end time.Time) {
	start = time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, 0)
}

// Matches evaluates the predicate against a single entry. This is the
// reference semantics; SQL stores compile the same conditions to WHERE
// clauses.
func (p Predicate) Matches(e Entry) bool {
	for _, c := range p.Conditions {
		if !matches(c, e) {
			return false
		}
	}
	return true
}

func matches(c Condition, e Entry) bool {
	switch c := c.(type) {
	case OwnerIs:
		return e.Owner == c.Owner
	case TypeIs:
		return e.Type == c.Type
	case CategoryIs:
		return string(e.Category) == c.Category
	case CreatedWindow:
		at := e.CreatedAt.UTC()
		if !c.Start.IsZero() && at.Before(c.Start) {
			return false
		}
		if !c.End.IsZero() {
			if c.IncludeEnd {
				return !at.After(c.End)
			}
			return at.Before(c.End)
		}
		return true
	case AmountBetween:
		if c.Min != nil && e.Amount.Cents < *c.Min {
			return false
		}
		if c.Max != nil && e.Amount.Cents > *c.Max {
			return false
		}
		return true
	case KeywordContains:
		k := strings.ToLower(c.Keyword)
		return strings.Contains(strings.ToLower(e.Title), k) ||
			strings.Contains(strings.ToLower(string(e.Category)), k)
	}
	return false
}

// Package insights reduces an expense list into the figures the dashboard
// shows. Every function is pure and leaves its input untouched.
package insights

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jinzhu/now"
	"github.com/shopspring/decimal"

	"github.com/expensetrack/expensetrack/internal/model"
)

// Window is a trailing time range ending at "now".
type Window string

const (
	WindowAll   Window = "all"
	WindowWeek  Window = "week"
	WindowMonth Window = "month"
	WindowYear  Window = "year"
)

// ParseWindow accepts all, week, month or year. Empty means all.
func ParseWindow(s string) (Window, error) {
	switch w := Window(strings.ToLower(strings.TrimSpace(s))); w {
	case "", WindowAll:
		return WindowAll, nil
	case WindowWeek, WindowMonth, WindowYear:
		return w, nil
	default:
		return "", fmt.Errorf("unknown window %q (want all, week, month or year)", s)
	}
}

// Start returns the earliest instant inside the window. The all window has
// no start and reports false.
func (w Window) Start(at time.Time) (time.Time, bool) {
	switch w {
	case WindowWeek:
		return at.AddDate(0, 0, -7), true
	case WindowMonth:
		return at.AddDate(0, -1, 0), true
	case WindowYear:
		return at.AddDate(-1, 0, 0), true
	default:
		return time.Time{}, false
	}
}

// Filter selects expenses by window and category.
type Filter struct {
	Window Window
	// Category matches exactly. Empty or "all" keeps every category.
	Category string
	// Now anchors the window; zero means time.Now.
	Now time.Time
}

// Apply returns the expenses that pass f, in input order.
func (f Filter) Apply(expenses []*model.Expense) []*model.Expense {
	at := f.Now
	if at.IsZero() {
		at = time.Now()
	}
	start, bounded := f.Window.Start(at)
	anyCategory := f.Category == "" || f.Category == "all"

	out := make([]*model.Expense, 0, len(expenses))
	for _, e := range expenses {
		if bounded && (e.CreatedAt.Before(start) || e.CreatedAt.After(at)) {
			continue
		}
		if !anyCategory && e.Category != f.Category {
			continue
		}
		out = append(out, e)
	}
	return out
}

// Search is the list view filter: a case-insensitive title substring and a
// case-insensitive category. Empty arguments match everything.
func Search(expenses []*model.Expense, query, category string) []*model.Expense {
	query = strings.ToLower(strings.TrimSpace(query))
	category = strings.TrimSpace(category)

	out := make([]*model.Expense, 0, len(expenses))
	for _, e := range expenses {
		if query != "" && !strings.Contains(strings.ToLower(e.Title), query) {
			continue
		}
		if category != "" && !strings.EqualFold(e.Category, category) {
			continue
		}
		out = append(out, e)
	}
	return out
}

// Total sums the amounts.
func Total(expenses []*model.Expense) decimal.Decimal {
	sum := decimal.Zero
	for _, e := range expenses {
		sum = sum.Add(e.Amount)
	}
	return sum
}

// Count is the number of expenses.
func Count(expenses []*model.Expense) int { return len(expenses) }

// Highest returns the largest expense. On ties the earliest in the list wins.
// It returns nil for an empty list.
func Highest(expenses []*model.Expense) *model.Expense {
	var top *model.Expense
	for _, e := range expenses {
		if top == nil || e.Amount.GreaterThan(top.Amount) {
			top = e
		}
	}
	return top
}

// CategoryTotal is the sum spent in one category.
type CategoryTotal struct {
	Category string
	Total    decimal.Decimal
}

// ByCategory sums per category, ordered by first appearance.
func ByCategory(expenses []*model.Expense) []CategoryTotal {
	index := make(map[string]int)
	var out []CategoryTotal
	for _, e := range expenses {
		i, ok := index[e.Category]
		if !ok {
			i = len(out)
			index[e.Category] = i
			out = append(out, CategoryTotal{Category: e.Category, Total: decimal.Zero})
		}
		out[i].Total = out[i].Total.Add(e.Amount)
	}
	return out
}

// DayTotal is the sum spent on one calendar day.
type DayTotal struct {
	// Day is midnight in the location passed to ByDay.
	Day   time.Time
	Total decimal.Decimal
}

// ByDay sums per calendar day in loc, oldest day first. A nil loc means
// time.Local.
func ByDay(expenses []*model.Expense, loc *time.Location) []DayTotal {
	if loc == nil {
		loc = time.Local
	}

	sums := make(map[time.Time]decimal.Decimal)
	for _, e := range expenses {
		day := now.With(e.CreatedAt.In(loc)).BeginningOfDay()
		sums[day] = sums[day].Add(e.Amount)
	}

	out := make([]DayTotal, 0, len(sums))
	for day, total := range sums {
		out = append(out, DayTotal{Day: day, Total: total})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Day.Before(out[j].Day) })
	return out
}

// Categories lists distinct categories in order of first appearance.
func Categories(expenses []*model.Expense) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, e := range expenses {
		if _, ok := seen[e.Category]; ok {
			continue
		}
		seen[e.Category] = struct{}{}
		out = append(out, e.Category)
	}
	return out
}

// Summary is the dashboard header for one filtered set.
type Summary struct {
	Total      decimal.Decimal
	Count      int
	Highest    *model.Expense
	Categories []CategoryTotal
	Days       []DayTotal
}

// Summarize applies f and reduces the result. Days are bucketed in loc.
func Summarize(expenses []*model.Expense, f Filter, loc *time.Location) Summary {
	filtered := f.Apply(expenses)
	return Summary{
		Total:      Total(filtered),
		Count:      Count(filtered),
		Highest:    Highest(filtered),
		Categories: ByCategory(filtered),
		Days:       ByDay(filtered, loc),
	}
}

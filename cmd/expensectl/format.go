package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"

	"github.com/expensetrack/expensetrack/internal/insights"
	"github.com/expensetrack/expensetrack/internal/model"
)

const displayCurrency = money.USD

// formatAmount renders a decimal amount in the display currency.
func formatAmount(d decimal.Decimal) string {
	cur := money.New(0, displayCurrency).Currency()
	minor := d.Shift(int32(cur.Fraction)).Round(0)
	return cur.Formatter().Format(minor.IntPart())
}

func writeExpenses(w io.Writer, expenses []*model.Expense) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDATE\tCATEGORY\tAMOUNT\tTITLE\tNOTE")
	for _, e := range expenses {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			e.ID, e.CreatedAt.Local().Format("2006-01-02"), e.Category, formatAmount(e.Amount), e.Title, e.DescriptionOrEmpty())
	}
	return tw.Flush()
}

func writeSummary(w io.Writer, s insights.Summary) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Total\t%s\n", formatAmount(s.Total))
	fmt.Fprintf(tw, "Count\t%d\n", s.Count)
	if s.Highest != nil {
		fmt.Fprintf(tw, "Highest\t%s (%s)\n", formatAmount(s.Highest.Amount), s.Highest.Title)
	}

	if len(s.Categories) > 0 {
		fmt.Fprintln(tw, "\nBy category")
		for _, c := range s.Categories {
			fmt.Fprintf(tw, "  %s\t%s\n", c.Category, formatAmount(c.Total))
		}
	}
	if len(s.Days) > 0 {
		fmt.Fprintln(tw, "\nBy day")
		for _, d := range s.Days {
			fmt.Fprintf(tw, "  %s\t%s\n", d.Day.Format("2006-01-02"), formatAmount(d.Total))
		}
	}
	return tw.Flush()
}

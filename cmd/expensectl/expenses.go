package main

import (
	"context"
	"flag"
	"fmt"
	"strings"

	"github.com/google/subcommands"
	"github.com/shopspring/decimal"

	"github.com/expensetrack/expensetrack/internal/handler/dto"
	"github.com/expensetrack/expensetrack/internal/insights"
	"github.com/expensetrack/expensetrack/internal/session"
)

type listCmd struct {
	search   string
	category string
}

func (*listCmd) Name() string     { return "list" }
func (*listCmd) Synopsis() string { return "list expenses, newest first" }
func (*listCmd) Usage() string {
	return `expensectl list [-search <text>] [-category <name>]

  Title search and category match are case-insensitive.
`
}

func (c *listCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.search, "search", "", "Only titles containing this text.")
	f.StringVar(&c.category, "category", "", "Only this category.")
}

func (c *listCmd) Execute(ctx context.Context, _ *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	a := appFrom(args)
	if !a.enter(ctx, session.RouteProtected) {
		return subcommands.ExitFailure
	}

	expenses, err := a.client.ListExpenses(ctx)
	if err != nil {
		return a.fail(err)
	}

	shown := insights.Search(expenses, c.search, c.category)
	if len(shown) == 0 {
		fmt.Fprintln(a.stdout, "No expenses.")
		return subcommands.ExitSuccess
	}
	if err := writeExpenses(a.stdout, shown); err != nil {
		return a.fail(err)
	}
	return subcommands.ExitSuccess
}

type addCmd struct {
	title       string
	amount      string
	category    string
	description string
}

func (*addCmd) Name() string     { return "add" }
func (*addCmd) Synopsis() string { return "record an expense" }
func (*addCmd) Usage() string {
	return `expensectl add -title <title> -amount <amount> -category <category> [-description <text>]
`
}

func (c *addCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.title, "title", "", "What the money went on.")
	f.StringVar(&c.amount, "amount", "", "Amount spent, e.g. 12.50.")
	f.StringVar(&c.category, "category", "", "Category (at least 3 characters).")
	f.StringVar(&c.description, "description", "", "Optional note.")
}

func (c *addCmd) Execute(ctx context.Context, _ *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	a := appFrom(args)

	amount, err := parseAmount(c.amount)
	if err != nil {
		fmt.Fprintf(a.stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}
	if !a.enter(ctx, session.RouteProtected) {
		return subcommands.ExitFailure
	}

	req := dto.CreateExpenseRequest{Title: c.title, Amount: &amount, Category: c.category}
	if c.description != "" {
		req.Description = &c.description
	}

	created, err := a.client.CreateExpense(ctx, req)
	if err != nil {
		return a.fail(err)
	}
	fmt.Fprintf(a.stdout, "Added %s (%s) %s\n", created.Title, formatAmount(created.Amount), created.ID)
	return subcommands.ExitSuccess
}

type editCmd struct {
	title       string
	amount      string
	category    string
	description string
}

func (*editCmd) Name() string     { return "edit" }
func (*editCmd) Synopsis() string { return "change fields of an expense" }
func (*editCmd) Usage() string {
	return `expensectl edit [-title ...] [-amount ...] [-category ...] [-description ...] <id>

  Only the flags given are changed. An empty -description clears it.
`
}

func (c *editCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.title, "title", "", "New title.")
	f.StringVar(&c.amount, "amount", "", "New amount.")
	f.StringVar(&c.category, "category", "", "New category.")
	f.StringVar(&c.description, "description", "", "New note.")
}

func (c *editCmd) Execute(ctx context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	a := appFrom(args)
	if f.NArg() != 1 {
		fmt.Fprint(a.stderr, c.Usage())
		return subcommands.ExitUsageError
	}

	var req dto.UpdateExpenseRequest
	var parseErr error
	f.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "title":
			req.Title = &c.title
		case "category":
			req.Category = &c.category
		case "description":
			req.Description = &c.description
		case "amount":
			amount, err := parseAmount(c.amount)
			if err != nil {
				parseErr = err
				return
			}
			req.Amount = &amount
		}
	})
	if parseErr != nil {
		fmt.Fprintf(a.stderr, "Error: %v\n", parseErr)
		return subcommands.ExitUsageError
	}
	if req == (dto.UpdateExpenseRequest{}) {
		fmt.Fprintln(a.stderr, "Error: nothing to change")
		return subcommands.ExitUsageError
	}

	if !a.enter(ctx, session.RouteProtected) {
		return subcommands.ExitFailure
	}

	updated, err := a.client.UpdateExpense(ctx, f.Arg(0), req)
	if err != nil {
		return a.fail(err)
	}
	fmt.Fprintf(a.stdout, "Updated %s (%s)\n", updated.Title, formatAmount(updated.Amount))
	return subcommands.ExitSuccess
}

type deleteCmd struct{}

func (*deleteCmd) Name() string             { return "delete" }
func (*deleteCmd) Synopsis() string         { return "remove an expense" }
func (*deleteCmd) Usage() string            { return "expensectl delete <id>\n" }
func (*deleteCmd) SetFlags(_ *flag.FlagSet) {}

func (c *deleteCmd) Execute(ctx context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	a := appFrom(args)
	if f.NArg() != 1 {
		fmt.Fprint(a.stderr, c.Usage())
		return subcommands.ExitUsageError
	}
	if !a.enter(ctx, session.RouteProtected) {
		return subcommands.ExitFailure
	}

	if err := a.client.DeleteExpense(ctx, f.Arg(0)); err != nil {
		return a.fail(err)
	}
	fmt.Fprintln(a.stdout, "Deleted.")
	return subcommands.ExitSuccess
}

func parseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Decimal{}, fmt.Errorf("-amount is required")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("invalid amount %q", s)
	}
	return d, nil
}

package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/google/subcommands"

	"github.com/expensetrack/expensetrack/internal/insights"
	"github.com/expensetrack/expensetrack/internal/session"
)

type statsCmd struct {
	window   string
	category string
}

func (*statsCmd) Name() string     { return "stats" }
func (*statsCmd) Synopsis() string { return "totals per category and per day" }
func (*statsCmd) Usage() string {
	return `expensectl stats [-window all|week|month|year] [-category <name>]

  Summarizes expenses in a trailing window. Days are local calendar days.
`
}

func (c *statsCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.window, "window", "all", "Time window: all, week, month or year.")
	f.StringVar(&c.category, "category", "all", "Exact category, or all.")
}

func (c *statsCmd) Execute(ctx context.Context, _ *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	a := appFrom(args)

	window, err := insights.ParseWindow(c.window)
	if err != nil {
		fmt.Fprintf(a.stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}
	if !a.enter(ctx, session.RouteProtected) {
		return subcommands.ExitFailure
	}

	expenses, err := a.client.ListExpenses(ctx)
	if err != nil {
		return a.fail(err)
	}

	summary := insights.Summarize(expenses, insights.Filter{Window: window, Category: c.category, Now: time.Now()}, time.Local)
	if err := writeSummary(a.stdout, summary); err != nil {
		return a.fail(err)
	}
	return subcommands.ExitSuccess
}

var commands = []struct {
	cmd   subcommands.Command
	group string
}{
	{&registerCmd{}, "account"},
	{&loginCmd{}, "account"},
	{&logoutCmd{}, "account"},
	{&whoamiCmd{}, "account"},
	{&profileCmd{}, "account"},
	{&listCmd{}, "expenses"},
	{&addCmd{}, "expenses"},
	{&editCmd{}, "expenses"},
	{&deleteCmd{}, "expenses"},
	{&statsCmd{}, "expenses"},
}

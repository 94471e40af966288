package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/fwojciec/dumpit"
)

// Run executes the runs command.
func (c *RunsCmd) Run(deps *Dependencies) error {
	filter := dumpit.RunFilter{Limit: c.Limit, Offset: c.Offset}
	if c.Seed != "" {
		filter.Seed = &c.Seed
	}

	runs, err := deps.Runs.FindRuns(deps.Ctx, filter)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", dumpit.ErrorMessage(err))
		return err
	}

	if len(runs) == 0 {
		fmt.Fprintln(deps.Stdout, "No archived runs. Scrape with --db to create one.")
		return nil
	}

	for _, r := range runs {
		fmt.Fprintf(deps.Stdout, "%s  %s  %-7s  %s  (%d discovered, %d failed)\n",
			r.ID, r.StartedAt.Format(time.RFC3339), r.Mode, r.Seed, r.Discovered, r.Failed)
	}
	return nil
}

// Run executes the show command.
func (c *ShowCmd) Run(deps *Dependencies) error {
	run, err := deps.Runs.FindRunByID(deps.Ctx, c.ID)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", dumpit.ErrorMessage(err))
		return err
	}
	pages, err := deps.Runs.FindPages(deps.Ctx, c.ID)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", dumpit.ErrorMessage(err))
		return err
	}

	fmt.Fprintf(deps.Stdout, "Run %s: %s (%s, %d pages, %s)\n",
		run.ID, run.Seed, run.Mode, len(pages), run.FinishedAt.Sub(run.StartedAt).Round(time.Millisecond))

	for i, p := range pages {
		title := p.Title
		if title == "" {
			title = "(untitled)"
		}
		fmt.Fprintf(deps.Stdout, "%3d. %s  %s  [%d words, %d blocks]\n", i+1, p.URL, title, p.TotalWords, len(p.Blocks))
		if !c.Full {
			continue
		}
		for _, b := range p.Blocks {
			fmt.Fprintf(deps.Stdout, "       %s\n", describeBlock(b))
		}
	}
	return nil
}

// describeBlock renders b on one line.
func describeBlock(b dumpit.Block) string {
	switch b := b.(type) {
	case *dumpit.Heading:
		return fmt.Sprintf("h%d %s", b.Level, b.Text)
	case *dumpit.Paragraph:
		return "p  " + b.Text
	case *dumpit.List:
		return "li " + strings.Join(b.Items, " | ")
	case *dumpit.Image:
		return fmt.Sprintf("img %s %q", b.LocalPath, b.AltText)
	case *dumpit.Form:
		return fmt.Sprintf("form %s %s (%d fields)", b.Method, b.Action, len(b.Fields))
	}
	return string(b.Type())
}

// Run executes the delete command.
func (c *DeleteCmd) Run(deps *Dependencies) error {
	if err := deps.Runs.DeleteRun(deps.Ctx, c.ID); err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", dumpit.ErrorMessage(err))
		return err
	}
	fmt.Fprintf(deps.Stdout, "Deleted run %s\n", c.ID)
	return nil
}

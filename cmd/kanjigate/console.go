package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/phrazzld/kanjigate/internal/events"
	"github.com/phrazzld/kanjigate/internal/service"
)

// consoleObserver prints sync progress for a terminal. Failed items are
// always shown; other items only in verbose mode.
type consoleObserver struct {
	w       io.Writer
	verbose bool
}

var _ events.Observer = (*consoleObserver)(nil)

func newConsoleObserver(w io.Writer, verbose bool) *consoleObserver {
	return &consoleObserver{w: w, verbose: verbose}
}

func (c *consoleObserver) OnPhaseStart(_ context.Context, phase events.Phase, total int) {
	fmt.Fprintf(c.w, "%s %s\n", TitleStyle.Render(string(phase)), SubtitleStyle.Render(fmt.Sprintf("(%d)", total)))
}

func (c *consoleObserver) OnItem(_ context.Context, e events.ItemEvent) {
	if e.Outcome != events.OutcomeFailed && !c.verbose {
		return
	}

	var mark string
	switch e.Outcome {
	case events.OutcomeChanged:
		mark = SuccessStyle.Render("✓")
	case events.OutcomeSkipped:
		mark = SubtitleStyle.Render("·")
	default:
		mark = ErrorStyle.Render("✗")
	}

	line := fmt.Sprintf("  %s %s %s", mark, GlyphStyle.Render(e.Key.Identity), SubtitleStyle.Render(e.Key.Tier.String()))
	if e.Detail != "" {
		line += " " + e.Detail
	}
	if e.Err != nil {
		line += " " + ErrorStyle.Render(e.Err.Error())
	}
	fmt.Fprintln(c.w, line)
}

func (c *consoleObserver) OnPhaseEnd(_ context.Context, s events.PhaseSummary) {
	if s.Err != nil {
		fmt.Fprintf(c.w, "  %s %s\n", ErrorStyle.Render("aborted:"), s.Err.Error())
	}
	if s.Processed == 0 {
		if s.Err == nil {
			fmt.Fprintf(c.w, "  %s\n", SubtitleStyle.Render("nothing to do"))
		}
		return
	}

	counts := fmt.Sprintf("%d changed, %d skipped", s.Changed, s.Skipped)
	if s.Failed > 0 {
		counts += ", " + ErrorStyle.Render(fmt.Sprintf("%d failed", s.Failed))
	}
	fmt.Fprintf(c.w, "  %s %s\n", counts, SubtitleStyle.Render(s.Duration.Round(time.Millisecond).String()))
}

// printReport writes the closing summary of a run.
func printReport(w io.Writer, report *service.RunReport) {
	if report == nil {
		return
	}
	fmt.Fprintln(w)

	if len(report.Observed) > 0 {
		fmt.Fprintf(w, "%s %s\n", TitleStyle.Render("new components:"), strings.Join(report.Observed, " "))
	}
	for _, v := range report.Violations {
		fmt.Fprintf(w, "%s %s needs %s\n", WarningStyle.Render("unsound:"), v.Card.String(), strings.Join(v.Missing, " "))
	}

	summary := fmt.Sprintf("%d changed, %d failed in %s", report.Changed(), report.Failed(),
		report.Run.Duration().Round(time.Millisecond))
	switch {
	case report.Run.Error != "":
		fmt.Fprintln(w, ErrorStyle.Render("sync failed: ")+summary)
	case report.Failed() > 0:
		fmt.Fprintln(w, WarningStyle.Render("sync finished with failures: ")+summary)
	default:
		fmt.Fprintln(w, SuccessStyle.Render("sync finished: ")+summary)
	}
}

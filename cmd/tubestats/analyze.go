package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"thirdcoast.systems/tubestats/internal/analysis"
	"thirdcoast.systems/tubestats/pkg/utils/format"
)

func newAnalyzeCmd(c *cli) *cobra.Command {
	var (
		asJSON          bool
		top             int
		keywords        []string
		caseInsensitive bool
	)

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Compute the channel report from the persisted tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := reportOptions(c)
			if cmd.Flags().Changed("top") {
				opts.TopN = top
			}
			if cmd.Flags().Changed("keywords") {
				opts.Keywords = keywords
			}
			if cmd.Flags().Changed("case-insensitive") {
				opts.KeywordCaseInsensitive = caseInsensitive
			}

			ctx := cmd.Context()
			store, closeStore, err := c.openTables(ctx)
			if err != nil {
				return err
			}
			defer closeStore()

			session, err := analysis.Open(ctx, store)
			if err != nil {
				return err
			}
			defer session.Close()

			report, err := session.Report(ctx, opts)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			}
			printReport(out, report, time.Now())
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print every result set as JSON")
	cmd.Flags().IntVar(&top, "top", 0, "Rows in top-N result sets (TOP_N)")
	cmd.Flags().StringSliceVar(&keywords, "keywords", nil, "Keywords to analyze (ANALYZE_KEYWORDS)")
	cmd.Flags().BoolVar(&caseInsensitive, "case-insensitive", false, "Match keywords ignoring case (KEYWORD_CASE_INSENSITIVE)")

	return cmd
}

func reportOptions(c *cli) analysis.ReportOptions {
	return analysis.ReportOptions{
		TopN:                   c.cfg.TopN,
		Keywords:               c.cfg.AnalyzeKeywords,
		KeywordCaseInsensitive: c.cfg.KeywordCaseInsensitive,
	}
}

func printReport(w io.Writer, r *analysis.Report, now time.Time) {
	ch := r.ChannelSummary
	title := ch.Title
	if title == "" {
		title = "Unknown"
	}
	fmt.Fprintf(w, "Channel: %s\n", title)
	fmt.Fprintf(w, "Subscribers: %s\n", format.Count(ch.SubscriberCount))
	fmt.Fprintf(w, "Total Videos: %s\n", format.Count(ch.VideoCount))
	if ch.PublishedAt != nil {
		fmt.Fprintf(w, "Created: %s\n", format.Age(*ch.PublishedAt, now))
	}

	m := r.EngagementMetrics
	fmt.Fprintf(w, "\nEngagement Metrics:\n")
	fmt.Fprintf(w, "Average Views: %s (median %s)\n", format.Decimal(m.AvgViews), format.Decimal(m.MedianViews))
	fmt.Fprintf(w, "Average Likes: %s\n", format.Decimal(m.AvgLikes))
	fmt.Fprintf(w, "Average Comments: %s\n", format.Decimal(m.AvgComments))
	fmt.Fprintf(w, "Average Engagement Rate: %s\n", format.Percent(m.AvgEngagement))
	fmt.Fprintf(w, "Total Views: %s\n", format.Number(m.TotalViews))

	if len(r.TopVideosByViews) > 0 {
		v := r.TopVideosByViews[0]
		fmt.Fprintf(w, "\nTop Video: %s\n", format.Truncate(v.Title, 80))
		fmt.Fprintf(w, "Views: %s  Length: %s\n", format.Count(v.ViewCount), format.Duration(v.DurationSeconds))
	}

	if len(r.PerformanceByDay) > 0 {
		fmt.Fprintf(w, "\nBy Day:\n")
		for _, d := range r.PerformanceByDay {
			fmt.Fprintf(w, "  %s  %3d videos  avg views %s\n", d.DayOfWeek, d.VideoCount, format.Decimal(d.AvgViews))
		}
	}

	if len(r.KeywordPerformance) > 0 {
		kws := make([]string, 0, len(r.KeywordPerformance))
		for _, k := range r.KeywordPerformance {
			kws = append(kws, fmt.Sprintf("%s (%d)", k.Keyword, k.VideoCount))
		}
		fmt.Fprintf(w, "\nKeywords: %s\n", strings.Join(kws, ", "))
	}
}

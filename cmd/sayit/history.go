package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/satindergrewal/sayit/internal/scoring"
	"github.com/spf13/cobra"
)

var (
	historyStatus  string
	progressPeriod string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List submitted recordings with scores and teacher feedback",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		recs, err := newClient().Recordings(cmd.Context(), historyStatus)
		if err != nil {
			return err
		}
		if len(recs) == 0 {
			fmt.Println("No recordings yet.")
			return nil
		}
		printHistory(os.Stdout, recs)
		return nil
	},
}

var progressCmd = &cobra.Command{
	Use:   "progress",
	Short: "Show practice statistics",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := newClient().Progress(cmd.Context(), progressPeriod)
		if err != nil {
			return err
		}
		fmt.Printf("Words practised: %d  attempts: %d  average score: %.1f  streak: %d day(s)\n",
			p.WordsPracticed, p.TotalAttempts, p.AverageScore, p.StreakCount)
		for _, r := range p.RecentRecordings {
			fmt.Printf("  #%-5d %-20s %5.1f  %s\n", r.ID, r.WordText, r.Score, r.Status)
		}
		return nil
	},
}

func init() {
	historyCmd.Flags().StringVar(&historyStatus, "status", "", `filter by status ("pending" or "reviewed")`)
	progressCmd.Flags().StringVar(&progressPeriod, "period", "week", `"week", "month" or "all"`)
}

func printHistory(out io.Writer, recs []scoring.SubmittedRecording) {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tWORD\tSCORE\tSTATUS\tGRADE\tSUBMITTED")
	for _, r := range recs {
		score := "-"
		if r.Scores != nil {
			score = fmt.Sprintf("%.1f", r.Scores.Pronunciation)
		}
		grade := r.TeacherGrade
		if grade == "" {
			grade = "-"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n",
			r.ID, r.WordText, score, r.Status, grade, r.CreatedAt.Format("2006-01-02 15:04"))
		if r.TeacherFeedback != "" {
			fmt.Fprintf(tw, "\t  teacher: %s\t\t\t\t\n", r.TeacherFeedback)
		}
	}
	tw.Flush()
}

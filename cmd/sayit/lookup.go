package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/satindergrewal/sayit/internal/capture"
	"github.com/spf13/cobra"
)

var submitWord string

var submitCmd = &cobra.Command{
	Use:   "submit FILE",
	Short: "Submit a saved WAV take for scoring",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		rec, err := capture.LoadRecording(data)
		if err != nil {
			return fmt.Errorf("%s: %w", args[0], err)
		}
		log.Debug().Str("file", args[0]).Dur("duration", rec.Duration()).Msg("Submitting take")

		res, err := newClient().Submit(cmd.Context(), submitWord, rec.NewReader(), rec.Size(), rec.Filename())
		if err != nil {
			return err
		}
		printResult(res)
		return nil
	},
}

var wordCmd = &cobra.Command{
	Use:   "word WORD",
	Short: "Show the dictionary entry and model pronunciation for a word",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		w, err := newClient().Word(cmd.Context(), strings.Join(args, " "))
		if err != nil {
			return err
		}
		fmt.Printf("%s %s\n", w.Word, w.Phonetic)
		for _, m := range w.Meanings {
			fmt.Printf("  (%s) %s\n", m.PartOfSpeech, m.Definition)
			if m.Example != "" {
				fmt.Printf("      e.g. %s\n", m.Example)
			}
		}
		if w.AudioURL != "" {
			fmt.Printf("  listen: %s\n", w.AudioURL)
		}
		return nil
	},
}

func init() {
	submitCmd.Flags().StringVarP(&submitWord, "word", "w", "", "word the take is for (required)")
	submitCmd.MarkFlagRequired("word")
}

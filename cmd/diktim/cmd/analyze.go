package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/adverant/nexus/diktim-ocr/internal/analysis"
)

const (
	formatJSON = "json"
	formatText = "text"
)

var (
	analyzeExpected string
	analyzeNoLLM    bool
	analyzeFormat   string
	analyzeLexicon  string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <image>",
	Short: "Analyze one dictation photo",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if analyzeFormat != formatJSON && analyzeFormat != formatText {
			return fmt.Errorf("unsupported format %q (json or text)", analyzeFormat)
		}
		if analyzeLexicon != "" {
			if err := os.Setenv("LEXICON_FILE", analyzeLexicon); err != nil {
				return err
			}
		}
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read image: %w", err)
		}

		a, err := buildApp(cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		ctx := cmd.Context()
		if cfg.ProcessingTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, time.Duration(cfg.ProcessingTimeout)*time.Millisecond)
			defer cancel()
		}

		report, err := a.service.Analyze(ctx, analysis.Request{
			Image:        data,
			ExpectedText: analyzeExpected,
			UseLLM:       !analyzeNoLLM,
		})
		if err != nil {
			return err
		}

		if analyzeFormat == formatJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		}
		writeTextReport(cmd.OutOrStdout(), report)
		return nil
	},
}

func writeTextReport(w io.Writer, r *analysis.Report) {
	fmt.Fprintf(w, "Extracted: %s\n", r.ExtractedText)
	if r.RefinedText != nil {
		fmt.Fprintf(w, "Refined:   %s (%s, confidence %.2f)\n", *r.RefinedText, r.Meta.LLMModel, r.Meta.LLMConfidence)
	}
	fmt.Fprintf(w, "Engine:    %s/%s, avg confidence %.1f, rotation %d\n",
		r.Meta.OCREngine, r.Meta.OCRProfile, r.Meta.OCRConfidenceAvg, r.Meta.DeskewRotation)
	fmt.Fprintf(w, "Issues:    %d of %d tokens\n", r.Meta.IssuesFound, r.Meta.TokensExtracted)
	for _, is := range r.Issues {
		line := fmt.Sprintf("  [%d] %-16s %s", is.Position, is.Token, is.Type)
		if len(is.Suggestions) > 0 {
			line += " -> " + strings.Join(is.Suggestions, ", ")
		}
		fmt.Fprintln(w, line)
	}
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	analyzeCmd.Flags().StringVarP(&analyzeExpected, "expected", "e", "", "expected text; switches to reference comparison")
	analyzeCmd.Flags().BoolVar(&analyzeNoLLM, "no-llm", false, "skip LLM refinement")
	analyzeCmd.Flags().StringVarP(&analyzeFormat, "format", "f", formatText, "output format (json, text)")
	analyzeCmd.Flags().StringVar(&analyzeLexicon, "lexicon", "", "lexicon file to use instead of LEXICON_FILE")
}

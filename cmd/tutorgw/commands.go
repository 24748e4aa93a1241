package main

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kalambet/tutorgw/internal/config"
	"github.com/kalambet/tutorgw/internal/normalize"
	"github.com/kalambet/tutorgw/internal/storage"
	"github.com/kalambet/tutorgw/internal/tutor"
)

// --- ask ---

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask the running gateway to resolve a doubt",
	Long: `Ask the running gateway to resolve a doubt.

Examples:
  tutorgw ask "What is inertia?" --context Physics
  tutorgw ask "Explain Ohm's law" --board CBSE --grade 10 --provider native`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		res, err := ask(cmd.Context(), client, doubtRequestFromFlags(cmd, strings.Join(args, " ")))
		if err != nil {
			return err
		}
		printDoubt(res)
		return nil
	},
}

func init() {
	addRequestFlags(askCmd)
}

func doubtRequestFromFlags(cmd *cobra.Command, question string) map[string]any {
	req := map[string]any{"question": question}
	addCommonFields(cmd, req)
	return req
}

func ask(ctx context.Context, c *apiClient, req map[string]any) (normalize.DoubtResolution, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	var res normalize.DoubtResolution
	notify(toneWork, "Resolving doubt with the %s provider...", providerLabel(req))
	resp, err := c.post(ctx, "/api/doubt", req)
	if err != nil {
		return res, err
	}
	err = decodeJSON(resp, &res)
	return res, err
}

func printDoubt(d normalize.DoubtResolution) {
	fmt.Fprintln(out, d.Explanation)
	if len(d.Examples) > 0 {
		fmt.Fprintln(out)
		fmt.Fprintln(out, colorize(colorBold, "Examples"))
		for _, e := range d.Examples {
			fmt.Fprintf(out, "  • %s\n", e)
		}
	}
	if q := d.QuizQuestion; q != nil {
		fmt.Fprintln(out)
		fmt.Fprintln(out, colorize(colorBold, "Check yourself"))
		printQuestion(1, *q)
	}
}

// --- quiz ---

var quizCmd = &cobra.Command{
	Use:   "quiz <topic>",
	Short: "Generate a multiple-choice quiz",
	Long: `Generate a multiple-choice quiz through the running gateway.

Examples:
  tutorgw quiz "Photosynthesis" -n 10 --difficulty hard
  tutorgw quiz "Quadratic equations" --exam JEE --answers`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		n, _ := cmd.Flags().GetInt("num")
		difficulty, _ := cmd.Flags().GetString("difficulty")
		answers, _ := cmd.Flags().GetBool("answers")

		req := map[string]any{"topic": strings.Join(args, " ")}
		if n > 0 {
			req["numQuestions"] = n
		}
		if difficulty != "" {
			req["difficulty"] = difficulty
		}
		addCommonFields(cmd, req)

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		q, err := generateQuiz(cmd.Context(), client, req)
		if err != nil {
			return err
		}
		printQuiz(q, answers)
		return nil
	},
}

func init() {
	quizCmd.Flags().IntP("num", "n", 0, fmt.Sprintf("number of questions, 1-%d (default %d)", tutor.MaxNumQuestions, tutor.DefaultNumQuestions))
	quizCmd.Flags().String("difficulty", "", "easy, medium or hard (default medium)")
	quizCmd.Flags().Bool("answers", false, "show answers and explanations")
	addRequestFlags(quizCmd)
}

func generateQuiz(ctx context.Context, c *apiClient, req map[string]any) (normalize.Quiz, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	var q normalize.Quiz
	notify(toneWork, "Generating quiz with the %s provider...", providerLabel(req))
	resp, err := c.post(ctx, "/api/quiz", req)
	if err != nil {
		return q, err
	}
	err = decodeJSON(resp, &q)
	return q, err
}

func printQuiz(q normalize.Quiz, answers bool) {
	fmt.Fprintln(out, colorize(colorBold, q.Topic))
	for i, question := range q.Questions {
		fmt.Fprintln(out)
		printQuestion(i+1, question)
		if answers {
			fmt.Fprintf(out, "   %s %c\n", colorize(colorGreen, "Answer:"), 'A'+rune(question.CorrectAnswerIndex))
			if question.Explanation != "" {
				fmt.Fprintf(out, "   %s\n", question.Explanation)
			}
		}
	}
	if len(q.Questions) == 0 {
		notify(toneWarn, "the gateway returned a quiz without questions")
	}
}

func printQuestion(n int, q normalize.QuizQuestion) {
	fmt.Fprintf(out, "%d. %s\n", n, q.Question)
	for i, o := range q.Options {
		fmt.Fprintf(out, "   %c) %s\n", 'A'+rune(i), o)
	}
}

// providerLabel names the provider a request asks for, or "default".
func providerLabel(req map[string]any) string {
	if p, ok := req["provider"].(string); ok && p != "" {
		return p
	}
	return "default"
}

// addRequestFlags registers the flags shared by tutoring commands.
func addRequestFlags(cmd *cobra.Command) {
	cmd.Flags().String("context", "", "optional context, e.g. the chapter or subject")
	cmd.Flags().String("provider", "", "general or native (default: gateway default)")
	cmd.Flags().String("board", "", "curriculum board")
	cmd.Flags().String("grade", "", "curriculum grade")
	cmd.Flags().String("exam", "", "target exam")
	cmd.Flags().String("subject", "", "subject")
}

func addCommonFields(cmd *cobra.Command, req map[string]any) {
	if v, _ := cmd.Flags().GetString("context"); v != "" {
		req["context"] = v
	}
	if v, _ := cmd.Flags().GetString("provider"); v != "" {
		req["provider"] = v
	}

	cc := map[string]string{}
	for _, k := range []string{"board", "grade", "exam", "subject"} {
		if v, _ := cmd.Flags().GetString(k); v != "" {
			cc[k] = v
		}
	}
	if len(cc) > 0 {
		req["curriculumContext"] = cc
	}
}

// --- history ---

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent requests from the gateway journal",
	Long: `Show recent requests from the gateway journal.
The server must run with history.dir set.

Examples:
  tutorgw history -n 50
  tutorgw history --summary --since 1h`,
	RunE: func(cmd *cobra.Command, args []string) error {
		n, _ := cmd.Flags().GetInt("num")
		summary, _ := cmd.Flags().GetBool("summary")
		since, _ := cmd.Flags().GetString("since")

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		if summary {
			return showSummary(cmd.Context(), client, since)
		}
		return showHistory(cmd.Context(), client, n)
	},
}

func init() {
	historyCmd.Flags().IntP("num", "n", 20, "number of requests to show")
	historyCmd.Flags().Bool("summary", false, "count outcomes per operation instead of listing requests")
	historyCmd.Flags().String("since", "24h", "summary window")
}

func showHistory(ctx context.Context, c *apiClient, n int) error {
	if ctx == nil {
		ctx = context.Background()
	}
	resp, err := c.get(ctx, fmt.Sprintf("/api/history?limit=%d", n))
	if err != nil {
		return err
	}
	var body struct {
		Interactions []storage.Interaction `json:"interactions"`
	}
	if err := decodeJSON(resp, &body); err != nil {
		return err
	}

	if len(body.Interactions) == 0 {
		notify(toneWarn, "no requests journaled yet; is history.dir set on the server?")
		return nil
	}
	for _, in := range body.Interactions {
		result := in.Result
		if result == "ok" {
			result = colorize(colorGreen, result)
		} else {
			result = colorize(colorRed, result)
		}
		provider := in.Provider
		if provider == "" {
			provider = "-"
		}
		fmt.Fprintf(out, "%s  %-16s %-8s %-24s %d attempt(s) %6dms  %s\n",
			in.CreatedAt.Local().Format("2006-01-02 15:04:05"), in.Operation, provider, result, in.Attempts, in.DurationMS, in.RequestID)
	}
	return nil
}

func showSummary(ctx context.Context, c *apiClient, since string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	resp, err := c.get(ctx, "/api/history/summary?since="+url.QueryEscape(since))
	if err != nil {
		return err
	}
	var body struct {
		Since  string                `json:"since"`
		Counts []storage.ResultCount `json:"counts"`
	}
	if err := decodeJSON(resp, &body); err != nil {
		return err
	}

	fmt.Fprintf(out, "Since %s\n", body.Since)
	for _, rc := range body.Counts {
		fmt.Fprintf(out, "  %-16s %-24s %d\n", rc.Operation, rc.Result, rc.Count)
	}
	return nil
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		for _, k := range config.ShowAll(cfg) {
			fmt.Fprintf(out, "  %s = %s  (%s)\n", colorize(colorBold, k.Key), k.Value, k.EnvVar)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: "Set a configuration value. API keys and the API token are written to the secrets file.\n\nKeys:\n  " +
		strings.Join(config.ValidKeys(), "\n  "),
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			return err
		}

		if config.IsSecret(key) {
			notify(toneDone, "Stored %s in the secrets file", key)
			return nil
		}
		notify(toneDone, "Set %s = %s", key, value)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}

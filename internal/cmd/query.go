package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"formsearch/internal/client"
	"formsearch/internal/domain"
	"formsearch/internal/presenter"
	"formsearch/internal/service"
)

var (
	queryDev           bool
	queryQuestionsOnly bool
	queryList          bool
	queryJSON          bool
)

var queryCmd = &cobra.Command{
	Use:   "query <text>",
	Short: "Run one search and print the results",
	Long: `Run one search through the gateway and print the ranked results.

Examples:
  formsearch query zip code             # primary strategy only
  formsearch query --dev zip code       # every strategy, concurrently
  formsearch query --json "date of birth"
  formsearch query --list               # strategies the backend offers`,
	Args: func(cmd *cobra.Command, args []string) error {
		if queryList {
			return nil
		}
		return cobra.MinimumNArgs(1)(cmd, args)
	},
	RunE: runQuery,
}

func init() {
	queryCmd.Flags().BoolVar(&queryDev, "dev", false, "query every configured strategy")
	queryCmd.Flags().BoolVar(&queryQuestionsOnly, "questions-only", false, "match against question text only")
	queryCmd.Flags().BoolVar(&queryList, "list", false, "list the backend's strategies and exit")
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "output responses as JSON")
}

func runQuery(cmd *cobra.Command, args []string) error {
	closer, err := setupLogging(appCfg.Log.File)
	if err != nil {
		return err
	}
	defer closer.Close()

	out := cmd.OutOrStdout()
	if queryList {
		cl := client.New(client.Config{BaseURL: appCfg.Client.GatewayURL})
		infos, err := cl.Strategies(cmd.Context())
		if err != nil {
			return err
		}
		return writeStrategies(out, infos)
	}

	q := strings.Join(args, " ")
	if strings.TrimSpace(q) == "" {
		return errors.New("query is empty")
	}

	d := newDispatcher(appCfg, appCfg.Client.GatewayURL)
	defer d.Close()
	d.SetQuestionsOnly(queryQuestionsOnly)

	mode := domain.UserView
	if queryDev {
		mode = domain.DevView
	}
	results := d.RunAll(d.Dispatch(q, mode))

	if queryJSON {
		return writeResultsJSON(out, results)
	}

	failed := 0
	for i, r := range results {
		if i > 0 {
			fmt.Fprintln(out)
		}
		if r.Err != nil {
			failed++
			fmt.Fprintf(out, "%s: %v\n", presenter.StrategyTitle(r.Strategy), r.Err)
			continue
		}
		writeResponse(out, r.Strategy, r.Response, q)
	}
	if failed == len(results) {
		return fmt.Errorf("all %d strategies failed", failed)
	}
	return nil
}

func writeStrategies(w io.Writer, infos []domain.StrategyInfo) error {
	if len(infos) == 0 {
		_, err := fmt.Fprintln(w, "No strategies reported.")
		return err
	}
	for _, s := range infos {
		if _, err := fmt.Fprintf(w, "%-10s %-20s %s\n", s.ID, s.Name, s.Description); err != nil {
			return err
		}
	}
	return nil
}

type queryOutput struct {
	Strategy domain.Strategy        `json:"strategy"`
	Response *domain.SearchResponse `json:"response,omitempty"`
	Error    string                 `json:"error,omitempty"`
}

func writeResultsJSON(w io.Writer, results []service.Result) error {
	outs := make([]queryOutput, 0, len(results))
	for _, r := range results {
		o := queryOutput{Strategy: r.Strategy, Response: r.Response}
		if r.Err != nil {
			o.Error = r.Err.Error()
		}
		outs = append(outs, o)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(outs)
}

func writeResponse(w io.Writer, s domain.Strategy, resp *domain.SearchResponse, q string) {
	fmt.Fprintf(w, "%s  %d results • %.1fms\n", presenter.StrategyTitle(s), len(resp.Results), resp.ElapsedMS)
	if len(resp.Results) == 0 {
		fmt.Fprintf(w, "  No results found for %q\n", presenter.Sanitize(q))
		return
	}
	for _, r := range resp.Results {
		question := plainQuestion(r)
		tier := presenter.TierFor(r.ConfidencePercent)
		fmt.Fprintf(w, "  #%d  %3.0f%% %-6s  %s  [%s]\n", r.Rank, r.ConfidencePercent, tier, question, presenter.Sanitize(r.Key))
	}
}

// plainQuestion strips highlight markup for non-terminal output.
func plainQuestion(r domain.SearchResult) string {
	segs := presenter.PlainSegments(r.Question)
	if r.HighlightedQuestion != nil {
		segs = presenter.ParseHighlight(*r.HighlightedQuestion)
	}
	var b strings.Builder
	for _, s := range segs {
		b.WriteString(s.Text)
	}
	return b.String()
}

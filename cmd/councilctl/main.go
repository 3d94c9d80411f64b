package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/upb/ai-product-council/handlers"
	"github.com/upb/ai-product-council/internal/fallback"
	"github.com/upb/ai-product-council/models"
)

// options are the persistent flags shared by every command
type options struct {
	server  string
	json    bool
	timeout time.Duration
}

func (o *options) client() *apiClient {
	return newAPIClient(o.server, o.timeout)
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:   "councilctl",
		Short: "Operate an AI Product Council server",
		Long: `councilctl talks to a running api-gateway. It submits ideas to the
	council, reads refinement sessions, and inspects or resets the fallback
	orchestrator that keeps the agents answering when the primary model fails.`,
		SilenceUsage: true,
	}

	defaultServer := os.Getenv("COUNCIL_SERVER")
	if defaultServer == "" {
		defaultServer = "http://localhost:8000"
	}
	rootCmd.PersistentFlags().StringVar(&opts.server, "server", defaultServer, "api-gateway base URL")
	rootCmd.PersistentFlags().BoolVar(&opts.json, "json", false, "print the raw JSON response")
	rootCmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", 5*time.Minute, "request timeout")

	rootCmd.AddCommand(statusCmd(opts))
	rootCmd.AddCommand(healthCmd(opts))
	rootCmd.AddCommand(methodsCmd(opts))
	rootCmd.AddCommand(resetCmd(opts))
	rootCmd.AddCommand(refineCmd(opts))
	rootCmd.AddCommand(sessionsCmd(opts))

	return rootCmd
}

func statusCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the fallback orchestrator state and per-method stats",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var status fallback.Status
			raw, err := opts.client().getJSON(cmd.Context(), "/api/v1/fallback/status", &status)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if opts.json {
				return printJSON(out, raw)
			}

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "STATE\tERRORS\tAVAILABLE FALLBACKS\tLAST ERROR\tHALTED")
			fmt.Fprintf(w, "%s\t%d\t%d\t%s\t%t\n",
				status.State, status.ErrorCount, status.AvailableFallbacks, formatTime(status.LastErrorTime), status.Halted)
			if err := w.Flush(); err != nil {
				return err
			}

			if len(status.MethodStats) == 0 {
				return nil
			}
			fmt.Fprintln(out)
			return printMethodStats(out, status.MethodStats)
		},
	}
}

func healthCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Show service and council health",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client := opts.client()

			var service handlers.HealthResponse
			serviceRaw, err := client.getJSON(cmd.Context(), "/health", &service)
			if err != nil {
				return err
			}
			// an unhealthy council still reports its inventory
			var council fallback.Health
			councilRaw, err := client.getJSON(cmd.Context(), "/api/v1/fallback/health", &council, http.StatusServiceUnavailable)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if opts.json {
				return printJSON(out, []byte(fmt.Sprintf(`{"service":%s,"council":%s}`, bytes.TrimSpace(serviceRaw), bytes.TrimSpace(councilRaw))))
			}

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "STATUS\tVERSION\tDATABASE\tAI SERVICE\tFALLBACK STATE")
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				service.Status, service.Version,
				upDown(service.DatabaseConnected), upDown(service.AIServiceAvailable), service.FallbackState)
			fmt.Fprintln(w)
			fmt.Fprintln(w, "COUNCIL\tFALLBACKS\tMETHODS")
			fmt.Fprintf(w, "%s\t%d/%d\t%s\n",
				healthyWord(council.Healthy), council.AvailableFallbacks, council.TotalFallbacks, formatList(council.FallbackMethods))
			return w.Flush()
		},
	}
}

func methodsCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "methods",
		Short: "List fallback methods with availability and base confidence",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var methods map[string]fallback.MethodInfo
			raw, err := opts.client().getJSON(cmd.Context(), "/api/v1/fallback/methods", &methods)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if opts.json {
				return printJSON(out, raw)
			}

			names := make([]string, 0, len(methods))
			for name := range methods {
				names = append(names, name)
			}
			sort.Strings(names)

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "METHOD\tAVAILABLE\tCONFIDENCE")
			for _, name := range names {
				m := methods[name]
				fmt.Fprintf(w, "%s\t%t\t%.2f\n", name, m.Available, m.ConfidenceScore)
			}
			return w.Flush()
		},
	}
}

func resetCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Return the council to the primary model",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var ack handlers.ResetResponse
			raw, err := opts.client().postJSON(cmd.Context(), "/api/v1/fallback/reset", nil, &ack)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if opts.json {
				return printJSON(out, raw)
			}
			fmt.Fprintf(out, "%s (state: %s)\n", ack.Message, ack.State)
			return nil
		},
	}
}

func refineCmd(opts *options) *cobra.Command {
	var syncFlag bool
	var focusFlag string

	cmd := &cobra.Command{
		Use:   "refine [idea]",
		Short: "Submit a product idea to the council",
		Long: `Submits the idea for refinement. By default the server queues the
	session and this command prints its ID; follow it with "sessions get".
	Use --sync to wait for the council's report.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := handlers.RefineRequest{
				Idea:          strings.Join(args, " "),
				PriorityFocus: focusFlag,
			}
			client := opts.client()
			out := cmd.OutOrStdout()

			if syncFlag {
				var resp handlers.SyncRefineResponse
				raw, err := client.postJSON(cmd.Context(), "/api/v1/refine/sync", req, &resp)
				if err != nil {
					return err
				}
				if opts.json {
					return printJSON(out, raw)
				}
				fmt.Fprintf(out, "Session %s refined in %.2fs\n\n", resp.SessionID, resp.ProcessingTimeSeconds)
				return printRequirement(out, resp.Result)
			}

			var session handlers.SessionResponse
			raw, err := client.postJSON(cmd.Context(), "/api/v1/refine", req, &session)
			if err != nil {
				return err
			}
			if opts.json {
				return printJSON(out, raw)
			}
			fmt.Fprintf(out, "Session %s %s\n", session.ID, session.Status)
			return nil
		},
	}

	cmd.Flags().BoolVar(&syncFlag, "sync", false, "wait for the refined requirement")
	cmd.Flags().StringVar(&focusFlag, "focus", "", "priority focus: balanced, technical, market or user")

	return cmd
}

func sessionsCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Inspect refinement sessions",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "get <id>",
		Short: "Show one session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var session handlers.SessionResponse
			raw, err := opts.client().getJSON(cmd.Context(), "/api/v1/refine/"+url.PathEscape(args[0]), &session)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if opts.json {
				return printJSON(out, raw)
			}

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "ID\t%s\n", session.ID)
			fmt.Fprintf(w, "STATUS\t%s\n", session.Status)
			fmt.Fprintf(w, "FOCUS\t%s\n", session.PriorityFocus)
			fmt.Fprintf(w, "IDEA\t%s\n", session.OriginalIdea)
			fmt.Fprintf(w, "CREATED\t%s\n", session.CreatedAt)
			if session.CompletedAt != nil {
				fmt.Fprintf(w, "COMPLETED\t%s\n", *session.CompletedAt)
			}
			if session.ProcessingTimeSeconds != nil {
				fmt.Fprintf(w, "PROCESSING\t%.2fs\n", *session.ProcessingTimeSeconds)
			}
			if session.ErrorMessage != nil {
				fmt.Fprintf(w, "ERROR\t%s\n", *session.ErrorMessage)
			}
			if err := w.Flush(); err != nil {
				return err
			}

			if session.RefinedResult == nil {
				return nil
			}
			fmt.Fprintln(out)
			return printRequirement(out, session.RefinedResult)
		},
	})

	var limitFlag int
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List the most recent sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var sessions []handlers.SessionResponse
			raw, err := opts.client().getJSON(cmd.Context(), "/api/v1/refine?limit="+strconv.Itoa(limitFlag), &sessions)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if opts.json {
				return printJSON(out, raw)
			}

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tSTATUS\tFOCUS\tCREATED\tIDEA")
			for _, s := range sessions {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", s.ID, s.Status, s.PriorityFocus, s.CreatedAt, truncate(s.OriginalIdea, 48))
			}
			return w.Flush()
		},
	}
	listCmd.Flags().IntVar(&limitFlag, "limit", 10, "number of sessions (1-100)")
	cmd.AddCommand(listCmd)

	return cmd
}

func printMethodStats(out io.Writer, stats map[string]fallback.MethodStats) error {
	names := make([]string, 0, len(stats))
	for name := range stats {
		names = append(names, name)
	}
	sort.Strings(names)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "METHOD\tATTEMPTS\tSUCCESSFUL\tSUCCESS RATE\tLAST USED")
	for _, name := range names {
		s := stats[name]
		fmt.Fprintf(w, "%s\t%d\t%d\t%.0f%%\t%s\n",
			name, s.TotalAttempts, s.SuccessfulAttempts, s.SuccessRate*100, formatTime(s.LastUsed))
	}
	return w.Flush()
}

func printRequirement(out io.Writer, r *models.RefinedRequirement) error {
	if r == nil {
		fmt.Fprintln(out, "No refined requirement yet.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "REQUIREMENT\t%s\n", r.RefinedRequirement)
	fmt.Fprintf(w, "PRIORITY\t%d/10\n", r.PriorityScore)
	fmt.Fprintf(w, "EFFORT\t%s\n", r.EstimatedEffort)
	fmt.Fprintf(w, "RISK\t%s\n", r.RiskAssessment)
	fmt.Fprintf(w, "DEGRADED\t%t\n", r.Degraded)
	if err := w.Flush(); err != nil {
		return err
	}

	printSection(out, "Key changes", r.KeyChangesSummary)
	printSection(out, "User stories", r.UserStories)
	printSection(out, "Technical tasks", r.TechnicalTasks)

	if len(r.AgentDebate) == 0 {
		return nil
	}
	fmt.Fprintln(out)
	w = tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "AGENT\tSOURCE\tCONFIDENCE\tCONCERNS")
	for _, fb := range r.AgentDebate {
		fmt.Fprintf(w, "%s\t%s\t%.2f\t%d\n", fb.AgentName, fb.Source, fb.ConfidenceScore, len(fb.Concerns))
	}
	return w.Flush()
}

func printSection(out io.Writer, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(out, "\n%s:\n", title)
	for _, item := range items {
		fmt.Fprintf(out, "  - %s\n", item)
	}
}

func printJSON(out io.Writer, raw []byte) error {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return fmt.Errorf("failed to format response: %w", err)
	}
	buf.WriteByte('\n')
	_, err := buf.WriteTo(out)
	return err
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Local().Format(time.RFC3339)
}

func formatList(items []string) string {
	if len(items) == 0 {
		return "-"
	}
	return strings.Join(items, ", ")
}

func upDown(ok bool) string {
	if ok {
		return "up"
	}
	return "down"
}

func healthyWord(ok bool) string {
	if ok {
		return "healthy"
	}
	return "unhealthy"
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

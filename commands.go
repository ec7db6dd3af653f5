package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	contractx "github.com/rishi-noob/soulsyncmain/agent/contract"
	flowsx "github.com/rishi-noob/soulsyncmain/agent/flows"
	llmx "github.com/rishi-noob/soulsyncmain/agent/llm"
	serverx "github.com/rishi-noob/soulsyncmain/agent/server"
	configx "github.com/rishi-noob/soulsyncmain/pkg/config"
)

// useCaseMoodCheckIn is the CLI name of the local check-in classifier.
const useCaseMoodCheckIn = "mood_check_in"

// newPipeline builds the pipeline from LLM_* and PIPELINE_* settings.
var newPipeline = func(ctx context.Context) (contractx.Pipeline, error) {
	llmCfg, err := configx.New[llmx.Config]("LLM")
	if err != nil {
		return nil, err
	}
	registry, err := llmx.NewRegistry(*llmCfg)
	if err != nil {
		return nil, err
	}
	flowCfg, err := configx.New[flowsx.Config]("PIPELINE")
	if err != nil {
		return nil, err
	}
	return flowsx.New(ctx, registry, *flowCfg)
}

func serveCmd() *cobra.Command {
	var addr, basePath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			srvCfg, err := configx.New[serverx.Config]("SERVER")
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("addr") {
				srvCfg.Addr = addr
			}
			if cmd.Flags().Changed("base-path") {
				srvCfg.BasePath = basePath
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			pipeline, err := newPipeline(ctx)
			if err != nil {
				return err
			}
			handler, err := serverx.New(*srvCfg, pipeline)
			if err != nil {
				return err
			}
			return serve(ctx, *srvCfg, handler)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	cmd.Flags().StringVar(&basePath, "base-path", "/v1", "API base path")
	return cmd
}

func serve(ctx context.Context, cfg serverx.Config, handler http.Handler) error {
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", cfg.Addr).Str("base_path", cfg.BasePath).Msg("serving SoulSync API (OpenAPI at /openapi.json)")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		log.Info().Msg("shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func runCmd() *cobra.Command {
	var inputPath string
	cmd := &cobra.Command{
		Use:   "run <use-case>",
		Short: "Run one use case against an input file",
		Long: `Use cases: chat_advice, wellness_reminders, forum_moderation, journal_summary,
mood_check_in. The input file is YAML or JSON using the API's field names; "-"
reads standard input. Event dates are RFC 3339 timestamps.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readInput(cmd.InOrStdin(), inputPath)
			if err != nil {
				return err
			}
			pipeline, err := newPipeline(cmd.Context())
			if err != nil {
				return err
			}
			out, err := runUseCase(cmd.Context(), pipeline, args[0], raw)
			if err != nil {
				return err
			}
			if viper.GetBool("json") {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(out)
			}
			return renderTable(cmd.OutOrStdout(), out)
		},
	}
	cmd.Flags().StringVarP(&inputPath, "input", "i", "-", "input file (YAML or JSON)")
	return cmd
}

func useCasesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "use-cases",
		Short: "List use cases and their output fields",
		RunE: func(cmd *cobra.Command, args []string) error {
			tw := table.NewWriter()
			tw.SetOutputMirror(cmd.OutOrStdout())
			tw.AppendHeader(table.Row{"Use case", "Retries", "Output fields", "Description"})
			for _, uc := range contractx.UseCases() {
				c := contractx.MustDescribe(uc)
				names := make([]string, 0, len(c.Output.Fields))
				for _, f := range c.Output.Fields {
					names = append(names, f.Name)
				}
				tw.AppendRow(table.Row{uc, c.Retry, strings.Join(names, ", "), c.Description})
			}
			tw.AppendRow(table.Row{useCaseMoodCheckIn, false, "date, intensity, responses", "Local daily check-in classification."})
			tw.Render()
			return nil
		},
	}
}

func readInput(stdin io.Reader, path string) ([]byte, error) {
	if path == "" || path == "-" {
		return io.ReadAll(stdin)
	}
	return os.ReadFile(path)
}

// decodeInput reads YAML (or JSON, its subset) into dst through the JSON field names
// the API uses.
func decodeInput(raw []byte, dst any) error {
	var doc any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("%w: parse input: %v", contractx.ErrValidation, err)
	}
	if doc == nil {
		return fmt.Errorf("%w: input is empty", contractx.ErrValidation)
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("%w: parse input: %v", contractx.ErrValidation, err)
	}
	if err := json.Unmarshal(b, dst); err != nil {
		return fmt.Errorf("%w: decode input: %v", contractx.ErrValidation, err)
	}
	return nil
}

func runUseCase(ctx context.Context, p contractx.Pipeline, name string, raw []byte) (any, error) {
	if strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), "-", "_") == useCaseMoodCheckIn {
		var answers map[string]any
		if err := decodeInput(raw, &answers); err != nil {
			return nil, err
		}
		moodLog := make(contractx.MoodLog, len(answers))
		for k, v := range answers {
			if v != nil {
				moodLog[k] = fmt.Sprint(v)
			}
		}
		return p.LogMood(ctx, moodLog)
	}

	uc, err := contractx.ParseUseCase(name)
	if err != nil {
		return nil, err
	}
	switch uc {
	case contractx.UseCaseChatAdvice:
		var req contractx.ChatAdviceRequest
		if err := decodeInput(raw, &req); err != nil {
			return nil, err
		}
		return p.ChatAdvice(ctx, req)
	case contractx.UseCaseWellnessReminders:
		var req contractx.WellnessRemindersRequest
		if err := decodeInput(raw, &req); err != nil {
			return nil, err
		}
		return p.WellnessReminders(ctx, req)
	case contractx.UseCaseForumModeration:
		var req contractx.ModerationRequest
		if err := decodeInput(raw, &req); err != nil {
			return nil, err
		}
		return p.ModerateForumMessage(ctx, req)
	case contractx.UseCaseJournalSummary:
		var req contractx.JournalSummaryRequest
		if err := decodeInput(raw, &req); err != nil {
			return nil, err
		}
		return p.SummarizeJournal(ctx, req)
	default:
		return nil, fmt.Errorf("%w: %q", contractx.ErrContractMissing, name)
	}
}

func renderTable(w io.Writer, out any) error {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)

	switch v := out.(type) {
	case contractx.ChatAdviceOutput:
		tw.AppendHeader(table.Row{"Field", "Value"})
		tw.AppendRow(table.Row{"Message", v.MessageHTML})
		for i, step := range v.CopingSteps {
			tw.AppendRow(table.Row{fmt.Sprintf("Coping step %d", i+1), step})
		}
		tw.AppendRow(table.Row{"Escalation", v.Escalation})
		if v.Confidence != nil {
			tw.AppendRow(table.Row{"Confidence", fmt.Sprintf("%.2f", *v.Confidence)})
		}
		if len(v.SourceReferences) > 0 {
			tw.AppendRow(table.Row{"Sources", strings.Join(v.SourceReferences, "\n")})
		}
	case contractx.WellnessRemindersOutput:
		tw.AppendHeader(table.Row{"#", "Reminder"})
		for i, r := range v.Reminders {
			tw.AppendRow(table.Row{i + 1, r})
		}
	case contractx.ModerationOutput:
		tw.AppendHeader(table.Row{"Allowed", "Flag reason"})
		tw.AppendRow(table.Row{v.Allowed, v.FlagReason})
	case contractx.JournalSummaryOutput:
		tw.SetTitle(v.CentralIdea)
		tw.AppendHeader(table.Row{"Theme", "Sentiment", "Keywords"})
		for _, th := range v.Themes {
			tw.AppendRow(table.Row{th.Theme, th.Sentiment, strings.Join(th.Keywords, ", ")})
		}
		if v.ActionableInsight != "" {
			tw.AppendFooter(table.Row{"Insight", "", v.ActionableInsight})
		}
	case contractx.MoodEntry:
		tw.AppendHeader(table.Row{"Date", "Intensity", "Responses"})
		keys := make([]string, 0, len(v.Responses))
		for k := range v.Responses {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, fmt.Sprintf("%s=%v", k, v.Responses[k]))
		}
		tw.AppendRow(table.Row{v.Date, v.Intensity, strings.Join(parts, "\n")})
	default:
		return fmt.Errorf("no table layout for %T", out)
	}

	tw.Render()
	return nil
}

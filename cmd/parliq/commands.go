package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/KMMOrganisation/ParliQ/internal/core/chat"
	"github.com/KMMOrganisation/ParliQ/internal/core/ingest"
	"github.com/KMMOrganisation/ParliQ/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		app, logger, err := bootstrap(ctx)
		if err != nil {
			return err
		}
		defer logger.Sync()
		defer app.Close()

		srv := server.NewServer(app, logger)
		return srv.Run(ctx, ":"+app.Config.Server.Port)
	},
}

var ingestSRT string

var ingestCmd = &cobra.Command{
	Use:   "ingest <url-or-id>...",
	Short: "Ingest one or more videos",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		app, logger, err := bootstrap(ctx)
		if err != nil {
			return err
		}
		defer logger.Sync()
		defer app.Close()

		opts := ingest.Options{Progress: printProgress(cmd)}
		if ingestSRT != "" {
			if len(args) > 1 {
				return fmt.Errorf("--srt applies to a single video, got %d", len(args))
			}
			data, err := os.ReadFile(ingestSRT)
			if err != nil {
				return fmt.Errorf("failed to read SRT file: %w", err)
			}
			opts.SRT = string(data)
		}

		out := cmd.OutOrStdout()
		failed := 0
		for _, input := range args {
			res, err := app.Ingest.IngestVideo(ctx, input, opts)
			if err != nil {
				failed++
				fmt.Fprintf(out, "FAILED %s: %v\n", input, err)
				continue
			}
			fmt.Fprintf(out, "%s  %q  segments=%d entities=%d triples=%d strategy=%s\n",
				res.Video.ID, res.Video.Title, res.Segments, res.Entities, res.Triples, res.Strategy)
			for _, w := range res.Warnings {
				fmt.Fprintf(out, "  warning: %s\n", w)
			}
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d videos failed", failed, len(args))
		}
		return nil
	},
}

var (
	channelSince string
	channelMax   int
)

var ingestChannelCmd = &cobra.Command{
	Use:   "ingest-channel <channel>",
	Short: "Ingest the most recent videos of a channel",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := ingest.Options{MaxVideos: channelMax}
		if channelSince != "" {
			since, err := time.Parse(time.RFC3339, channelSince)
			if err != nil {
				return fmt.Errorf("--since must be RFC 3339: %w", err)
			}
			opts.Since = since
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		app, logger, err := bootstrap(ctx)
		if err != nil {
			return err
		}
		defer logger.Sync()
		defer app.Close()

		opts.Progress = printProgress(cmd)
		res, err := app.Ingest.IngestChannel(ctx, args[0], opts)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Channel %s (%s): %d ingested, %d failed\n", res.ChannelTitle, res.ChannelID, len(res.Ingested), len(res.Failed))
		for _, r := range res.Ingested {
			fmt.Fprintf(out, "  %s  %q  segments=%d entities=%d\n", r.Video.ID, r.Video.Title, r.Segments, r.Entities)
		}
		for _, f := range res.Failed {
			fmt.Fprintf(out, "  FAILED %s: %s\n", f.VideoID, f.Reason)
		}
		return nil
	},
}

var exportOutput string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the knowledge graph as Turtle",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		app, logger, err := bootstrap(ctx)
		if err != nil {
			return err
		}
		defer logger.Sync()
		defer app.Close()

		doc, err := app.Export(ctx)
		if err != nil {
			return err
		}

		path := exportOutput
		if path == "" {
			path = doc.Filename
		}
		if path == "-" {
			_, err = cmd.OutOrStdout().Write(doc.Body)
			return err
		}
		if err := os.WriteFile(path, doc.Body, 0o644); err != nil {
			return fmt.Errorf("failed to write export: %w", err)
		}
		logger.Info("export written", zap.String("path", path), zap.Int("triples", doc.Triples))
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%d videos, %d triples)\n", path, doc.Videos, doc.Triples)
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print stored counts and knowledge graph statistics",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		app, logger, err := bootstrap(ctx)
		if err != nil {
			return err
		}
		defer logger.Sync()
		defer app.Close()

		counts, err := app.Status(ctx)
		if err != nil {
			return err
		}
		st, err := app.Stats(ctx)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Storage:   %s\n", app.Config.Storage.Driver)
		fmt.Fprintf(out, "Videos:    %d\n", counts.Videos)
		fmt.Fprintf(out, "Sentences: %d\n", counts.Segments)
		fmt.Fprintf(out, "Entities:  %d\n", counts.Entities)
		fmt.Fprintf(out, "Triples:   ~%d\n", st.TotalTriples)
		printCategories(out, st.Categories)
		return nil
	},
}

// printCategories writes one line per category in name order.
func printCategories(out io.Writer, categories map[string]int) {
	names := make([]string, 0, len(categories))
	for name := range categories {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(out, "  %-14s %d\n", name, categories[name])
	}
}

var searchLimit int

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Keyword search across stored transcripts",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		app, logger, err := bootstrap(ctx)
		if err != nil {
			return err
		}
		defer logger.Sync()
		defer app.Close()

		query := strings.Join(args, " ")
		hits, err := app.Search(ctx, query, searchLimit)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if len(hits) == 0 {
			fmt.Fprintf(out, "No matches for %q\n", query)
			return nil
		}
		for _, h := range hits {
			c := h.Citation()
			fmt.Fprintf(out, "[%d] %s @ %s\n    %s\n    %s\n", h.Score, h.Title, chat.Timestamp(h.Segment.Start), h.Segment.Text, c.URL)
		}
		return nil
	},
}

func init() {
	ingestCmd.Flags().StringVar(&ingestSRT, "srt", "", "use this SRT file instead of fetching captions")
	ingestChannelCmd.Flags().StringVar(&channelSince, "since", "", "only videos published after this RFC 3339 time")
	ingestChannelCmd.Flags().IntVar(&channelMax, "max", 0, "maximum number of videos (default from config)")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", `output file, "-" for stdout (default parliq-knowledge-graph-<date>.ttl)`)
	searchCmd.Flags().IntVar(&searchLimit, "limit", 5, "maximum number of results")
}

func printProgress(cmd *cobra.Command) ingest.ProgressFunc {
	out := cmd.ErrOrStderr()
	return func(p ingest.Progress) {
		fmt.Fprintf(out, "  [%3d%%] %-14s %s\n", p.Percent, p.Stage, p.Message)
	}
}

package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/AdguardTeam/golibs/logutil/slogutil"
	"github.com/SukkaW/tsurlfilter-sub001/declarative"
	"github.com/SukkaW/tsurlfilter-sub001/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

// convertCommand is the "convert" command.
type convertCommand struct {
	ctx    context.Context
	logger *slog.Logger
	conf   *configuration

	Filters   []string `short:"f" long:"filter" description:"Path to the filter list. Can be specified multiple times." required:"true"`
	OutputDir string   `short:"o" long:"output" description:"Directory to write the rule-set to." required:"true"`
	ID        string   `long:"id" description:"Identifier of the rule-set." default:"ruleset_1"`
}

// Execute implements the [goFlags.Commander] interface for *convertCommand.
func (cmd *convertCommand) Execute(_ []string) (err error) {
	c := cmd.conf.Converter

	m, err := metrics.NewConverter(cmd.conf.MetricsNamespace, prometheus.NewRegistry())
	if err != nil {
		return fmt.Errorf("converter metrics: %w", err)
	}

	conv, err := declarative.NewConverter(&declarative.ConverterConfig{
		Logger:         cmd.logger.With(slogutil.KeyPrefix, "converter"),
		Metrics:        m,
		ResourcesPath:  c.ResourcesPath,
		MaxRules:       c.MaxRules,
		MaxRegexpRules: c.MaxRegexpRules,
		Concurrency:    c.Concurrency,
	})
	if err != nil {
		return err
	}

	filters := make([]*declarative.Filter, 0, len(cmd.Filters))
	for i, p := range cmd.Filters {
		filters = append(filters, &declarative.Filter{
			Content: &declarative.FileSource{
				Path:    p,
				MaxSize: c.MaxFilterSize,
			},
			ID: i,
		})
	}

	rs, err := conv.Convert(cmd.ctx, cmd.ID, filters)
	if err != nil {
		return err
	}

	for _, l := range rs.Limitations {
		cmd.logger.DebugContext(
			cmd.ctx,
			"rule not converted",
			"filter_id", l.Source.FilterID,
			"line", l.Source.Line,
			"reason", l.Reason,
		)
	}

	for _, e := range rs.Errors {
		cmd.logger.WarnContext(
			cmd.ctx,
			"converting rule",
			"filter_id", e.Source.FilterID,
			"line", e.Source.Line,
			slogutil.KeyError, e.Message,
		)
	}

	err = declarative.NewWriter(cmd.logger.With(slogutil.KeyPrefix, "writer")).Write(cmd.OutputDir, rs)
	if err != nil {
		return fmt.Errorf("writing rule-set: %w", err)
	}

	fmt.Printf(
		"rule-set %q: %d rules, %d regexp, %d limitations, %d errors\n",
		rs.ID,
		rs.Counters.Total,
		rs.Counters.Regexp,
		len(rs.Limitations),
		len(rs.Errors),
	)

	return nil
}

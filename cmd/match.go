package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/AdguardTeam/golibs/errors"
	"github.com/AdguardTeam/golibs/logutil/slogutil"
	"github.com/SukkaW/tsurlfilter-sub001"
	"github.com/SukkaW/tsurlfilter-sub001/filterlist"
	"github.com/SukkaW/tsurlfilter-sub001/internal/metrics"
	"github.com/SukkaW/tsurlfilter-sub001/rules"
	"github.com/prometheus/client_golang/prometheus"
)

// matchCommand is the "match" command.
type matchCommand struct {
	ctx    context.Context
	logger *slog.Logger
	conf   *configuration

	Filters   []string `short:"f" long:"filter" description:"Path to the filter list. Can be specified multiple times." required:"true"`
	URL       string   `short:"u" long:"url" description:"URL of the request." required:"true"`
	SourceURL string   `short:"s" long:"source" description:"URL of the page that initiated the request."`
	Type      string   `short:"t" long:"type" description:"Type of the request, like script or image." default:"other"`
	Cosmetic  bool     `short:"c" long:"cosmetic" description:"Also print the cosmetic rules for the request hostname."`
}

// matchOutput is the JSON output of the "match" command.
type matchOutput struct {
	Cosmetic     *urlfilter.CosmeticResult `json:"cosmetic,omitempty"`
	Basic        string                    `json:"basic,omitempty"`
	Document     string                    `json:"document,omitempty"`
	CSP          string                    `json:"csp,omitempty"`
	Cookie       string                    `json:"cookie,omitempty"`
	Replace      string                    `json:"replace,omitempty"`
	Redirect     string                    `json:"redirect,omitempty"`
	RemoveParam  string                    `json:"removeparam,omitempty"`
	RemoveHeader string                    `json:"removeheader,omitempty"`
	Stealth      string                    `json:"stealth,omitempty"`
	Blocked      bool                      `json:"blocked"`
}

// Execute implements the [goFlags.Commander] interface for *matchCommand.
func (cmd *matchCommand) Execute(_ []string) (err error) {
	reqType, err := rules.ParseRequestType(cmd.Type)
	if err != nil {
		return fmt.Errorf("type: %w", err)
	}

	h, err := cmd.newHolder()
	if err != nil {
		return err
	}

	lists, err := openLists(cmd.Filters)
	if err != nil {
		return err
	}
	defer func() { err = closeLists(err, lists) }()

	err = h.Reload(cmd.ctx, lists)
	if err != nil {
		return fmt.Errorf("loading filters: %w", err)
	}

	req := rules.NewRequest(cmd.URL, cmd.SourceURL, reqType)
	res := h.MatchRequest(req)

	out := &matchOutput{
		Basic:        ruleText(res.BasicRule),
		Document:     ruleText(res.DocumentRule),
		CSP:          ruleText(res.CspRule),
		Cookie:       ruleText(res.CookieRule),
		Replace:      ruleText(res.ReplaceRule),
		Redirect:     ruleText(res.RedirectRule),
		RemoveParam:  ruleText(res.RemoveParamRule),
		RemoveHeader: ruleText(res.RemoveHeaderRule),
		Stealth:      ruleText(res.StealthRule),
	}

	if basic := res.GetBasicResult(); basic != nil && !basic.Whitelist {
		out.Blocked = true
	}

	if cmd.Cosmetic {
		out.Cosmetic = h.Engine().GetCosmeticResult(req.Hostname, res.GetCosmeticOption())
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "\t")

	return enc.Encode(out)
}

// newHolder returns a new engine holder with the Prometheus metrics.
func (cmd *matchCommand) newHolder() (h *urlfilter.Holder, err error) {
	reg := prometheus.NewRegistry()

	engineMetrics, err := metrics.NewEngine(cmd.conf.MetricsNamespace, reg)
	if err != nil {
		return nil, fmt.Errorf("engine metrics: %w", err)
	}

	storageMetrics, err := metrics.NewStorage(cmd.conf.MetricsNamespace, reg)
	if err != nil {
		return nil, fmt.Errorf("storage metrics: %w", err)
	}

	engineConf, err := cmd.conf.Engine.toInternal(engineMetrics)
	if err != nil {
		return nil, fmt.Errorf("engine config: %w", err)
	}

	engineConf.Logger = cmd.logger.With(slogutil.KeyPrefix, "engine")

	return urlfilter.NewHolder(&urlfilter.HolderConfig{
		Logger:         cmd.logger.With(slogutil.KeyPrefix, "holder"),
		Metrics:        engineMetrics,
		StorageMetrics: storageMetrics,
		Engine:         engineConf,
		CacheSize:      cmd.conf.Engine.CacheSize,
	})
}

// openLists opens the filter lists at paths.  The identifiers of the lists
// are their indexes.
func openLists(paths []string) (lists []filterlist.RuleList, err error) {
	for i, p := range paths {
		var l *filterlist.FileRuleList
		l, err = filterlist.NewFileRuleList(i, p, false)
		if err != nil {
			return nil, closeLists(fmt.Errorf("filter %q: %w", p, err), lists)
		}

		lists = append(lists, l)
	}

	return lists, nil
}

// closeLists closes lists and joins the errors with err.
func closeLists(err error, lists []filterlist.RuleList) (res error) {
	errs := []error{err}
	for _, l := range lists {
		errs = append(errs, l.Close())
	}

	return errors.Join(errs...)
}

// ruleText returns the text of r or an empty string if r is nil.
func ruleText(r *rules.NetworkRule) (s string) {
	if r == nil {
		return ""
	}

	return r.Text()
}

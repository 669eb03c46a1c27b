// Command urlfilter matches requests against filter lists and converts filter
// lists into declarative rule-sets.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/AdguardTeam/golibs/errors"
	"github.com/AdguardTeam/golibs/logutil/slogutil"
	goFlags "github.com/jessevdk/go-flags"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	envs := errors.Must(parseEnvironment())
	errors.Check(envs.Validate())

	baseLogger := slogutil.New(&slogutil.Config{
		// Don't use [slogutil.NewFormat] here, because the value is validated.
		Format:       slogutil.Format(envs.LogFormat),
		AddTimestamp: bool(envs.LogTimestamp),
		Level:        errors.Must(slogutil.VerbosityToLevel(envs.Verbosity)),
	})

	conf := errors.Must(parseConfig(envs.ConfPath))
	errors.Check(conf.Validate())

	parser := goFlags.NewParser(nil, goFlags.Default)

	_, err := parser.AddCommand(
		"match",
		"Match a request",
		"Matches a request against the filter lists and prints the matching rules.",
		&matchCommand{ctx: ctx, logger: baseLogger, conf: conf},
	)
	errors.Check(err)

	_, err = parser.AddCommand(
		"convert",
		"Convert filter lists",
		"Converts the filter lists into a declarative rule-set.",
		&convertCommand{ctx: ctx, logger: baseLogger, conf: conf},
	)
	errors.Check(err)

	_, err = parser.Parse()
	if err != nil {
		if flagsErr, ok := err.(*goFlags.Error); ok && flagsErr.Type == goFlags.ErrHelp {
			os.Exit(0)
		}

		os.Exit(1)
	}
}

// Copyright 2022-2026 The shadowtrace Authors
// This file is part of the shadowtrace library.
//
// The shadowtrace library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The shadowtrace library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the shadowtrace library. If not, see <http://www.gnu.org/licenses/>.

package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/shadowvm/shadowtrace/common/hexutil"
	"github.com/shadowvm/shadowtrace/common/types"
	"github.com/shadowvm/shadowtrace/conf"
	"github.com/shadowvm/shadowtrace/internal/tracer"
	"github.com/shadowvm/shadowtrace/log"
	"github.com/shadowvm/shadowtrace/modules/state"
	"github.com/shadowvm/shadowtrace/params"
	"github.com/shadowvm/shadowtrace/pkg/errors"
)

var runCommand = &cli.Command{
	Name:  "run",
	Usage: "execute bytecode on the reference interpreter with tracing",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:     "code",
			Usage:    "bytecode as hex",
			Category: "EXECUTION",
		},
		&cli.StringFlag{
			Name:     "code-file",
			Usage:    "file holding the bytecode hex",
			Category: "EXECUTION",
		},
		&cli.Uint64Flag{
			Name:     "gas",
			Usage:    "gas limit for the frame",
			Value:    10_000_000,
			Category: "EXECUTION",
		},
		&cli.StringFlag{
			Name:     "input",
			Usage:    "calldata as hex",
			Category: "EXECUTION",
		},
		&cli.StringFlag{
			Name:     "sender",
			Usage:    "caller address",
			Value:    "0x1000000000000000000000000000000000000001",
			Category: "EXECUTION",
		},
		&cli.StringFlag{
			Name:     "receiver",
			Usage:    "callee address",
			Value:    "0x2000000000000000000000000000000000000002",
			Category: "EXECUTION",
		},
		&cli.StringFlag{
			Name:     "trace-out",
			Usage:    "trace output file (JSON Lines, default stdout)",
			Category: "TRACING",
		},
		&cli.BoolFlag{
			Name:     "include-memory",
			Usage:    "emit frame memory with step events",
			Category: "TRACING",
		},
		&cli.BoolFlag{
			Name:     "no-stack",
			Usage:    "omit the operand stack from step events",
			Category: "TRACING",
		},
		&cli.IntFlag{
			Name:     "max-stack-items",
			Usage:    "cap emitted stack items, top-down (0 = all)",
			Value:    16,
			Category: "TRACING",
		},
		&cli.StringSliceFlag{
			Name:     "disable-event",
			Usage:    "event type to suppress (repeatable)",
			Category: "TRACING",
		},
		&cli.BoolFlag{
			Name:     "debug-events",
			Usage:    "emit analysis and host debug events",
			Category: "TRACING",
		},
		&cli.StringFlag{
			Name:     "log-level",
			Usage:    "log level: trace, debug, info, warn, error",
			Value:    "info",
			Category: "LOGGING",
		},
		&cli.StringFlag{
			Name:     "log-file",
			Usage:    "log file (default stderr only)",
			Category: "LOGGING",
		},
	},
	Action: runAction,
}

var versionCommand = &cli.Command{
	Name:  "version",
	Usage: "print version information",
	Action: func(ctx *cli.Context) error {
		fmt.Printf("shadowtrace %s\n", params.VersionWithCommit(params.GitCommit, ""))
		return nil
	},
}

func runAction(ctx *cli.Context) error {
	logCfg := conf.DefaultLoggerConfig()
	logCfg.Level = ctx.String("log-level")
	logCfg.LogFile = ctx.String("log-file")
	log.Init(logCfg)

	code, err := loadCode(ctx)
	if err != nil {
		return err
	}

	var input []byte
	if in := ctx.String("input"); in != "" {
		if input, err = hexutil.DecodeLoose(in); err != nil {
			return errors.Wrap(err, "bad --input")
		}
	}

	out := io.Writer(os.Stdout)
	if path := ctx.String("trace-out"); path != "" {
		f, err := os.Create(path)
		if err != nil {
			return errors.Wrap(err, "open trace output")
		}
		defer f.Close()
		out = f
	}

	traceCfg := conf.DefaultTracerConfig()
	traceCfg.IncludeStack = !ctx.Bool("no-stack")
	traceCfg.MaxStackItems = ctx.Int("max-stack-items")
	traceCfg.IncludeMemory = ctx.Bool("include-memory")
	traceCfg.DisabledEvents = ctx.StringSlice("disable-event")
	traceCfg.DebugEvents = ctx.Bool("debug-events")

	t := tracer.NewDefaultTracer(traceCfg, out)
	defer t.Close()
	t.SetDivergenceHandler(func(d *tracer.Divergence) {
		log.Error("divergence detected", "detail", d.Error())
	})

	st := state.New()
	runErr := tracer.RunLoopback(t, code, ctx.Uint64("gas"), st, tracer.LoopbackContext{
		Caller: types.HexToAddress(ctx.String("sender")),
		Callee: types.HexToAddress(ctx.String("receiver")),
		Input:  input,
	})
	switch {
	case runErr == nil:
		log.Info("execution stopped")
	case errors.Is(runErr, errors.ErrExecutionReverted):
		log.Warn("execution reverted")
	default:
		log.Error("execution failed", "err", runErr)
	}
	if t.Divergent() {
		return errors.New("interpreters diverged, see trace")
	}
	return nil
}

func loadCode(ctx *cli.Context) ([]byte, error) {
	raw := ctx.String("code")
	if path := ctx.String("code-file"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrap(err, "read code file")
		}
		raw = strings.TrimSpace(string(data))
	}
	if raw == "" {
		return nil, errors.New("one of --code or --code-file is required")
	}
	code, err := hexutil.DecodeLoose(raw)
	if err != nil {
		return nil, errors.Wrap(err, "bad bytecode hex")
	}
	return code, nil
}

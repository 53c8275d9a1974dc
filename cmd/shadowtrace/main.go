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
	"os"

	"github.com/urfave/cli/v2"

	"github.com/shadowvm/shadowtrace/params"
)

const usageText = `shadowtrace [options] [command]

Quick start:
  shadowtrace run --code 600360040100        run bytecode with tracing to stdout
  shadowtrace run --code-file prog.hex       read bytecode from a hex file
  shadowtrace run --code ... --trace-out t.jsonl --include-memory

Help:
  shadowtrace --help                         all options
  shadowtrace run --help                     run options`

func main() {
	app := &cli.App{
		Name:                   "shadowtrace",
		Usage:                  "differential EVM execution tracer",
		UsageText:              usageText,
		Version:                params.VersionWithCommit(params.GitCommit, ""),
		Commands:               []*cli.Command{runCommand, versionCommand},
		UseShortOptionHandling: true,
		Suggest:                true,
		EnableBashCompletion:   true,
		Copyright:              "Copyright 2022-2026 The shadowtrace Authors",
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

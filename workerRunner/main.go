////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

// package main is a command line utility that runs a JavaScript file as the
// child of a worker. The main side answers remote lookups from a native
// namespace filled from the flags, and sync messages can be posted to the
// script with their results printed as JSON.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	jww "github.com/spf13/jwalterweatherman"

	"gitlab.com/elixxir/threadworker/jsworker"
	"gitlab.com/elixxir/threadworker/logging"
	"gitlab.com/elixxir/threadworker/remote"
	"gitlab.com/elixxir/threadworker/worker"
)

// Flag variables.
var (
	paramsPath, logFile string
	logLevel, captureLog int
	evals, posts, natives []string
	wait                  time.Duration
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

// Runs the script as the entry point of a new worker. Refer to the flags for
// details.
var cmd = &cobra.Command{
	Use:   "workerRunner script.js",
	Short: "Runs a JavaScript file as the child thread of a worker.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		// Initialize the logging
		if err := logging.InitLog(jww.Threshold(logLevel), logFile); err != nil {
			return err
		}

		if captureLog > 0 {
			lf, id, err := logging.EnableLogFile(
				"workerRunner", jww.LevelWarn, captureLog)
			if err != nil {
				return err
			}
			defer func() {
				logging.RemoveLogListener(id)
				_, _ = os.Stderr.Write(lf.GetFile())
			}()
		}

		c := runConfig{
			script: args[0],
			evals:  evals,
			wait:   wait,
		}

		var err error
		if c.params, err = loadParams(paramsPath); err != nil {
			return err
		}
		if c.posts, err = parseAssignments(posts); err != nil {
			return errors.Wrap(err, "invalid post")
		}
		if c.natives, err = parseAssignments(natives); err != nil {
			return errors.Wrap(err, "invalid native value")
		}

		return run(c, cmd.OutOrStdout())
	},
}

// init is the initialization function for Cobra which defines flags.
func init() {
	cmd.Flags().StringVarP(&paramsPath, "params", "p", "",
		"Path to a JSON file with the worker parameters. Unset fields keep "+
			"their default values.")
	cmd.Flags().StringArrayVarP(&evals, "eval", "e", nil,
		"JavaScript chunk to evaluate in the worker after it starts. May be "+
			"repeated.")
	cmd.Flags().StringArrayVar(&posts, "post", nil,
		"Sync message to post to the script as tag=JSON. The result is "+
			"printed as JSON. May be repeated.")
	cmd.Flags().StringArrayVar(&natives, "native", nil,
		"Value in the native namespace as path=JSON, for example "+
			"native.os.name=\"linux\". May be repeated.")
	cmd.Flags().DurationVarP(&wait, "wait", "w", 0,
		"Time to wait for the script to stop the worker before closing it.")
	cmd.Flags().StringVarP(&logFile, "log", "l", "-",
		"Log output path. By default, logs are printed to stdout. "+
			"To disable logging, set this to empty (\"\").")
	cmd.Flags().IntVarP(&logLevel, "logLevel", "v", 4,
		"Verbosity level of logging. 0 = TRACE, 1 = DEBUG, 2 = INFO, "+
			"3 = WARN, 4 = ERROR, 5 = CRITICAL, 6 = FATAL")
	cmd.Flags().IntVar(&captureLog, "captureLog", 0,
		"Size, in bytes, of a buffer capturing warnings and errors. When "+
			"set, the buffer is written to stderr on exit.")
}

// assignment is a parsed key=JSON flag value.
type assignment struct {
	key   string
	value any
}

// runConfig holds everything needed to run a script.
type runConfig struct {
	script  string
	params  worker.Params
	evals   []string
	posts   []assignment
	natives []assignment
	wait    time.Duration
}

// loadParams returns the default parameters overwritten by the fields of the
// JSON file, if one is given.
func loadParams(path string) (worker.Params, error) {
	p := worker.DefaultParams()
	if path == "" {
		return p, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return p, errors.Wrapf(err, "failed to read params file %q", path)
	}
	if err = json.Unmarshal(data, &p); err != nil {
		return p, errors.Wrapf(err, "failed to parse params file %q", path)
	}
	return p, nil
}

// parseAssignments parses values of the form key=JSON. An empty JSON part is
// nil.
func parseAssignments(values []string) ([]assignment, error) {
	list := make([]assignment, 0, len(values))
	for _, s := range values {
		key, raw, _ := strings.Cut(s, "=")
		if key == "" {
			return nil, errors.Errorf("missing key in %q", s)
		}

		a := assignment{key: key}
		if raw != "" {
			if err := json.Unmarshal([]byte(raw), &a.value); err != nil {
				return nil, errors.Wrapf(err, "value of %q is not JSON", key)
			}
		}
		list = append(list, a)
	}
	return list, nil
}

// run starts the script in a new worker, evaluates the chunks, posts the
// messages and writes each result to out as a line of JSON.
func run(c runConfig, out io.Writer) error {
	script, err := filepath.Abs(c.script)
	if err != nil {
		return errors.Wrapf(err, "invalid script path %q", c.script)
	}
	if _, err = os.Stat(script); err != nil {
		return errors.Wrap(err, "cannot run script")
	}

	ns := remote.NewNamespace()
	for _, a := range c.natives {
		if err = ns.Set(a.key, a.value); err != nil {
			return err
		}
	}

	host, err := jsworker.NewHost(jsworker.WithName(c.params.Name))
	if err != nil {
		return err
	}

	main, err := worker.New(host, ns, c.params)
	if err != nil {
		host.Close()
		return err
	}
	defer func() { _ = main.Stop() }()

	if err = main.Start(script); err != nil {
		return err
	}
	jww.INFO.Printf("Started %s in worker %s", script, main.ID())

	for i, chunk := range c.evals {
		err = main.Eval(chunk, fmt.Sprintf("eval%d", i))
		if err != nil {
			return err
		}
	}

	for _, a := range c.posts {
		result, err := main.PostSync(worker.Tag(a.key), a.value, true)
		if err != nil {
			return errors.Wrapf(err, "post %q failed", a.key)
		}

		data, err := json.Marshal(result)
		if err != nil {
			return errors.Wrapf(err, "result of %q cannot be printed", a.key)
		}
		if _, err = fmt.Fprintf(out, "%s\n", data); err != nil {
			return err
		}
	}

	if c.wait > 0 {
		select {
		case <-main.Done():
			jww.INFO.Printf("Worker %s stopped by the script", main.ID())
		case <-time.After(c.wait):
			jww.DEBUG.Printf("Done waiting for worker %s", main.ID())
		}
	}

	return nil
}

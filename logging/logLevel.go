////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

package logging

import (
	"io"
	"log"
	"os"

	"github.com/pkg/errors"
	jww "github.com/spf13/jwalterweatherman"
)

// LogLevel sets level of logging. All logs at the set level and above will be
// displayed (e.g., when log level is ERROR, only ERROR, CRITICAL, and FATAL
// messages will be printed).
//
// The default log level without updates is INFO.
func LogLevel(threshold jww.Threshold) error {
	if threshold < jww.LevelTrace || threshold > jww.LevelFatal {
		return errors.Errorf("log level is not valid: log level: %d", threshold)
	}

	// Display microseconds if the threshold is set to TRACE or DEBUG
	if threshold == jww.LevelTrace || threshold == jww.LevelDebug {
		jww.SetFlags(log.LstdFlags | log.Lmicroseconds)
	}

	jww.SetStdoutThreshold(threshold)
	jww.SetLogThreshold(threshold)
	jww.INFO.Printf("Log level set to: %s", threshold)
	return nil
}

// InitLog sets the log level and the log destination. An empty path leaves
// logging disabled, "-" logs to stdout and any other path is opened for
// appending.
func InitLog(threshold jww.Threshold, logPath string) error {
	if logPath == "" {
		// Do not enable logging if no log file is set
		return nil
	} else if logPath != "-" {
		// Use log file
		logOutput, err :=
			os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return errors.Wrapf(err, "failed to open log file %q", logPath)
		}

		// Disable stdout output
		jww.SetStdoutOutput(io.Discard)
		jww.SetLogOutput(logOutput)
	}

	return LogLevel(threshold)
}

// EnableLogFile starts recording logs at the threshold to a new in-memory
// [LogFile] of the given size. Returns the file and the listener ID that
// stops the recording when passed to [RemoveLogListener].
func EnableLogFile(name string, threshold jww.Threshold, maxSize int) (
	*LogFile, uint64, error) {
	lf, err := NewLogFile(name, threshold, maxSize)
	if err != nil {
		return nil, 0, err
	}

	id := AddLogListener(lf.Listen)
	jww.INFO.Printf("[LOG] Outputting log to file %q of max size %d at "+
		"level %s", name, maxSize, threshold)
	return lf, id, nil
}

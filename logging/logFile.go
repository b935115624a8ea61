////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

package logging

import (
	"io"
	"sync"

	"github.com/armon/circbuf"
	"github.com/pkg/errors"
	jww "github.com/spf13/jwalterweatherman"
)

// stoppedThreshold is above every log level, so nothing is written once a
// LogFile is stopped.
const stoppedThreshold = jww.LevelFatal + 1

// LogFile represents a virtual log file in memory. It contains a circular
// buffer that limits the log file, overwriting the oldest logs. Workers log
// from several goroutines, so writes are serialised.
type LogFile struct {
	name      string
	threshold jww.Threshold
	b         *circbuf.Buffer
	mux       sync.Mutex
}

// NewLogFile initialises a new [LogFile] for log writing.
func NewLogFile(
	name string, threshold jww.Threshold, maxSize int) (*LogFile, error) {
	// Create new buffer of the specified size
	b, err := circbuf.NewBuffer(int64(maxSize))
	if err != nil {
		return nil, errors.Wrap(err, "could not create new circular buffer")
	}

	return &LogFile{
		name:      name,
		threshold: threshold,
		b:         b,
	}, nil
}

// Write adheres to the io.Writer interface and writes log entries to the
// buffer.
func (lf *LogFile) Write(p []byte) (n int, err error) {
	lf.mux.Lock()
	defer lf.mux.Unlock()
	if lf.threshold == stoppedThreshold {
		return len(p), nil
	}
	return lf.b.Write(p)
}

// Listen is called for every logging event. This function adheres to the
// [jwalterweatherman.LogListener] type.
func (lf *LogFile) Listen(t jww.Threshold) io.Writer {
	if t < lf.Threshold() {
		return nil
	}

	return lf
}

// StopLogging stops log message writes, including through writers already
// handed out by Listen. The contents written so far are kept.
func (lf *LogFile) StopLogging() {
	lf.mux.Lock()
	defer lf.mux.Unlock()
	lf.threshold = stoppedThreshold
}

// Name returns the name of the log file.
func (lf *LogFile) Name() string { return lf.name }

// Threshold returns the log level threshold used in the file.
func (lf *LogFile) Threshold() jww.Threshold {
	lf.mux.Lock()
	defer lf.mux.Unlock()
	return lf.threshold
}

// GetFile returns the entire log file.
func (lf *LogFile) GetFile() []byte {
	lf.mux.Lock()
	defer lf.mux.Unlock()
	return append([]byte{}, lf.b.Bytes()...)
}

// MaxSize returns the max size, in bytes, that the log file is allowed to be.
func (lf *LogFile) MaxSize() int { return int(lf.b.Size()) }

// Size returns the current size, in bytes, written to the log file.
func (lf *LogFile) Size() int {
	lf.mux.Lock()
	defer lf.mux.Unlock()
	return int(lf.b.TotalWritten())
}

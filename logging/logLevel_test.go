////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

package logging

import (
	"testing"

	jww "github.com/spf13/jwalterweatherman"
)

// Tests that LogLevel sets the stdout and log thresholds.
func TestLogLevel(t *testing.T) {
	defer jww.SetStdoutThreshold(jww.StdoutThreshold())
	defer jww.SetLogThreshold(jww.LogThreshold())

	if err := LogLevel(jww.LevelWarn); err != nil {
		t.Fatalf("Failed to set log level: %+v", err)
	}

	if jww.StdoutThreshold() != jww.LevelWarn {
		t.Errorf("Unexpected stdout threshold.\nexpected: %s\nreceived: %s",
			jww.LevelWarn, jww.StdoutThreshold())
	}
	if jww.LogThreshold() != jww.LevelWarn {
		t.Errorf("Unexpected log threshold.\nexpected: %s\nreceived: %s",
			jww.LevelWarn, jww.LogThreshold())
	}
}

// Error path: Tests that LogLevel rejects out of range thresholds.
func TestLogLevel_Invalid(t *testing.T) {
	for _, threshold := range []jww.Threshold{-1, jww.LevelFatal + 1} {
		if err := LogLevel(threshold); err == nil {
			t.Errorf("No error for invalid threshold %d.", threshold)
		}
	}
}

// Tests that InitLog with an empty path does nothing.
func TestInitLog_Empty(t *testing.T) {
	if err := InitLog(jww.Threshold(100), ""); err != nil {
		t.Errorf("Unexpected error for empty log path: %+v", err)
	}
}

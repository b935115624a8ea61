////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

package utils

import "testing"

// Tests that GoroutineID returns the same ID on one goroutine and a different
// ID on another.
func TestGoroutineID(t *testing.T) {
	id := GoroutineID()
	if id <= 0 {
		t.Fatalf("Invalid goroutine ID: %d", id)
	}
	if again := GoroutineID(); again != id {
		t.Errorf("ID changed on the same goroutine.\nexpected: %d\nreceived: %d",
			id, again)
	}

	other := make(chan int64)
	go func() { other <- GoroutineID() }()
	if o := <-other; o == id || o <= 0 {
		t.Errorf("Unexpected ID for other goroutine: %d (this goroutine %d)",
			o, id)
	}
}

// Tests parseGoroutineID on valid and invalid stack headers.
func Test_parseGoroutineID(t *testing.T) {
	tests := map[string]int64{
		"goroutine 1 [running]:\nmain.main()": 1,
		"goroutine 4821 [running]:":           4821,
		"goroutine ":                          0,
		"":                                    0,
		"panic: oops":                         0,
	}

	for stack, expected := range tests {
		if id := parseGoroutineID([]byte(stack)); id != expected {
			t.Errorf("Unexpected ID for %q.\nexpected: %d\nreceived: %d",
				stack, expected, id)
		}
	}
}

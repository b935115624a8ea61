////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

package remote

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// Tests that Namespace.Resolve returns only transferable values.
func TestNamespace_Resolve(t *testing.T) {
	ns := NewNamespace()
	require.NoError(t, ns.Set("native.Time.frameCount", 42))
	require.NoError(t, ns.Set("native.Application.productName", "demo"))
	require.NoError(t, ns.Set("native.Application.quit", func() {}))
	require.NoError(t, ns.Set("native.Screen.dpi", nil))

	tests := []struct {
		path     string
		value    any
		resolved bool
	}{
		{"native.Time.frameCount", 42, true},
		{"native..Time.frameCount", 42, true},
		{"native.Application.productName", "demo", true},
		{"native.Application.quit", nil, false},
		{"native.Screen.dpi", nil, false},
		{"native.Time", nil, false},
		{"native", nil, false},
		{"native.Missing", nil, false},
		{"", nil, false},
	}

	for _, tt := range tests {
		v, ok := ns.Resolve(tt.path)
		if ok != tt.resolved || v != tt.value {
			t.Errorf("Unexpected result for %q.\nexpected: %v %t"+
				"\nreceived: %v %t", tt.path, tt.value, tt.resolved, v, ok)
		}
	}
}

// Tests that Namespace.Set rejects paths that cross a value or replace a
// namespace.
func TestNamespace_Set_Invalid(t *testing.T) {
	ns := NewNamespace()
	require.NoError(t, ns.Set("native.Time.frameCount", 42))

	require.Error(t, ns.Set("", 1))
	require.Error(t, ns.Set("...", 1))
	require.Error(t, ns.Set("native.Time.frameCount.low", 1))
	require.Error(t, ns.Set("native.Time", 1))

	require.NoError(t, ns.Set("native.Time.frameCount", 43))
	v, ok := ns.Resolve("native.Time.frameCount")
	require.True(t, ok)
	require.Equal(t, 43, v)
}

////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

package worker

import "time"

// Params are parameters used in the [Endpoint] pair of a worker.
type Params struct {
	// Name describes the worker. It is used for debugging and logging purposes.
	Name string `json:"name"`

	// MessageLogging indicates if a DEBUG message should be printed every time
	// a message is sent or received.
	MessageLogging bool `json:"messageLogging"`

	// ResponseTimeout is the time PostSync waits for a response before timing
	// out and returning an error. Zero waits until the response arrives or the
	// worker closes.
	ResponseTimeout time.Duration `json:"responseTimeout"`

	// Remote enables the remote proxy in the child so it can resolve paths in
	// the main side's native namespace.
	Remote bool `json:"remote"`

	// RemoteRoot is the namespace root whose paths are resolved remotely.
	RemoteRoot string `json:"remoteRoot"`

	// RemoteLocal lists sub-namespaces of RemoteRoot that are always resolved
	// in the child.
	RemoteLocal []string `json:"remoteLocal"`
}

// DefaultParams returns the default parameters.
func DefaultParams() Params {
	return Params{
		Name:            "worker",
		MessageLogging:  false,
		ResponseTimeout: 0,
		Remote:          false,
		RemoteRoot:      "native",
		RemoteLocal:     []string{"native.Debug"},
	}
}

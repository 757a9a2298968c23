// Copyright 2018 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package pin declares well known pin functionality constants.
//
// pin is about physical pins, not about their logical function.
package pin

// Func is a pin function.
//
// The Func format must be "[A-Z]+" or "[A-Z]+_[A-Z]+".
type Func string

// FuncNone is returned for a pin without an active functionality.
const FuncNone Func = ""

/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: harness.go
Description: Replay and libFuzzer entry for the C++ demangler harness.
*/

package main

import (
	"github.com/kleascm/fixreverter-harness/pkg/harness"
	"github.com/kleascm/fixreverter-harness/pkg/targets"
)

var h = harness.New(targets.Cxxfilt{})

/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: instrumented_default.go
Description: Build-time switch for regular builds, where the FIXREVERTER gate is compiled out.
*/

//go:build !frcov

package gate

// Instrumented reports whether the binary was built with the frcov tag.
const Instrumented = false

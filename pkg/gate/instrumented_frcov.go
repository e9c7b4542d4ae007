/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: instrumented_frcov.go
Description: Build-time switch enabling the FIXREVERTER gate under the frcov tag.
*/

//go:build frcov

package gate

// Instrumented reports whether the binary was built with the frcov tag.
const Instrumented = true

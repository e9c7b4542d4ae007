/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: main.go
Description: Replay driver: xml_reader [file...]. Always exits 0.
*/

//go:build !libfuzzer

package main

import "github.com/kleascm/fixreverter-harness/pkg/driver"

func main() {
	driver.Main(h.Name(), h.TestOneInput)
}

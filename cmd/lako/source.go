package main

import (
	"os"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// readSource reads a script file as text. A UTF-8 byte order mark is
// dropped, and files with a UTF-16 byte order mark are transcoded to UTF-8.
func readSource(filename string) (string, error) {
	raw, err := os.ReadFile(filename)
	if err != nil {
		return "", err
	}
	return decodeSource(raw)
}

func decodeSource(raw []byte) (string, error) {
	dec := unicode.BOMOverride(unicode.UTF8.NewDecoder())
	out, _, err := transform.Bytes(dec, raw)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

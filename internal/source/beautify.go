package source

import (
	"fmt"

	"github.com/ditashi/jsbeautifier-go/jsbeautifier"
)

// Beautify reformats minified JavaScript one statement per line.
func Beautify(code string) (out string, err error) {
	// The beautifier panics on some malformed input.
	defer func() {
		if r := recover(); r != nil {
			out, err = "", fmt.Errorf("beautifier panic: %v", r)
		}
	}()

	return jsbeautifier.Beautify(&code, jsbeautifier.DefaultOptions())
}

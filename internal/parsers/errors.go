package parsers

import "fmt"

func errNotString(format string) error {
	return fmt.Errorf("%s data must be a string", format)
}

func errNotObject(format string) error {
	return fmt.Errorf("%s parsed but not an object", format)
}

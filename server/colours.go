package server

import "fmt"

const (
	ansiRed   = "\033[31m"
	ansiGray  = "\033[90m"
	ansiReset = "\033[0m"
)

var methodANSI = map[string]string{
	"GET":     "\033[32m",
	"POST":    "\033[34m",
	"PATCH":   "\033[35m",
	"DELETE":  "\033[33m",
	"OPTIONS": ansiGray,
}

// paintMethod pads an HTTP method to a fixed width and colours it for console logs.
func paintMethod(method string) string {
	colour, ok := methodANSI[method]
	if !ok {
		colour = ansiGray
	}
	return fmt.Sprintf("%s %-7s%s", colour, method, ansiReset)
}

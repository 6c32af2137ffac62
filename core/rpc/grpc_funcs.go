package rpc

import (
	"fmt"
	"strings"
)

// FullNameToURL transforms a method name from "package.Service.Method" to "/package.Service/Method"
func FullNameToURL(fullMethodName string) string {
	parts := strings.Split(fullMethodName, ".")
	if len(parts) < 2 {
		return ""
	}

	var (
		methodName  = parts[len(parts)-1]
		serviceName = strings.Join(parts[:len(parts)-1], ".")
	)

	return fmt.Sprintf("/%s/%s", serviceName, methodName)
}

// URLToServiceAndMethod splits "/package.Service/Method" into the service full
// name and the method name. Malformed input yields two empty strings.
func URLToServiceAndMethod(url string) (string, string) {
	if len(url) == 0 || url[0] != '/' {
		return "", ""
	}

	parts := strings.Split(url[1:], "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", ""
	}

	return parts[0], parts[1]
}

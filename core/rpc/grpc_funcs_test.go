package rpc

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFullNameToURL(t *testing.T) {
	testCases := []struct {
		in, want string
	}{
		{in: "shop.v1.OrderService.PlaceOrder", want: "/shop.v1.OrderService/PlaceOrder"},
		{in: "OrderService.PlaceOrder", want: "/OrderService/PlaceOrder"},
		{in: "PlaceOrder", want: ""},
	}

	for _, tc := range testCases {
		t.Run(tc.in, func(t *testing.T) {
			assert.Equal(t, tc.want, FullNameToURL(tc.in))
		})
	}
}

func TestURLToServiceAndMethod(t *testing.T) {
	testCases := []struct {
		url, service, method string
	}{
		{url: "/shop.v1.OrderService/PlaceOrder", service: "shop.v1.OrderService", method: "PlaceOrder"},
		{url: "shop.v1.OrderService/PlaceOrder"},
		{url: "/shop.v1.OrderService"},
		{url: "/a/b/c"},
		{url: "//PlaceOrder"},
		{url: ""},
	}

	for _, tc := range testCases {
		t.Run(tc.url, func(t *testing.T) {
			service, method := URLToServiceAndMethod(tc.url)
			assert.Equal(t, tc.service, service)
			assert.Equal(t, tc.method, method)
		})
	}
}

package api

import (
	"net/http"
	"testing"
)

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		trust      bool
		xff        string
		xri        string
		remoteAddr string
		want       string
	}{
		{name: "remote addr", remoteAddr: "192.168.1.1:12345", want: "192.168.1.1"},
		{name: "ipv6 remote addr", remoteAddr: "[::1]:12345", want: "::1"},
		{name: "bare remote addr", remoteAddr: "192.168.1.1", want: "192.168.1.1"},
		{name: "headers ignored without trust", xff: "1.2.3.4", xri: "5.6.7.8", remoteAddr: "10.0.0.1:1", want: "10.0.0.1"},
		{name: "XFF single", trust: true, xff: "1.2.3.4", remoteAddr: "10.0.0.1:1", want: "1.2.3.4"},
		{name: "XFF takes first", trust: true, xff: " 1.2.3.4 , 10.0.0.1", remoteAddr: "10.0.0.3:1", want: "1.2.3.4"},
		{name: "X-Real-IP fallback", trust: true, xri: "5.6.7.8", remoteAddr: "10.0.0.1:1", want: "5.6.7.8"},
		{name: "garbage XFF falls through", trust: true, xff: "<script>", xri: "5.6.7.8", remoteAddr: "10.0.0.1:1", want: "5.6.7.8"},
		{name: "garbage everywhere", trust: true, xff: "nope", xri: "also nope", remoteAddr: "10.0.0.1:1", want: "10.0.0.1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &http.Request{RemoteAddr: tt.remoteAddr, Header: http.Header{}}
			if tt.xff != "" {
				r.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.xri != "" {
				r.Header.Set("X-Real-IP", tt.xri)
			}
			if got := clientIP(r, tt.trust); got != tt.want {
				t.Errorf("clientIP = %q, want %q", got, tt.want)
			}
		})
	}
}

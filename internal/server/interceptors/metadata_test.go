package interceptors

import (
	"context"
	"net"
	"testing"

	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
)

func TestClientIP(t *testing.T) {
	cases := []struct {
		name string
		ctx  context.Context
		want string
	}{
		{"forwarded list", metadata.NewIncomingContext(context.Background(), metadata.Pairs("x-forwarded-for", "10.0.0.1, 10.0.0.2")), "10.0.0.1"},
		{"real ip", metadata.NewIncomingContext(context.Background(), metadata.Pairs("x-real-ip", "10.0.0.3")), "10.0.0.3"},
		{"peer", peer.NewContext(context.Background(), &peer.Peer{Addr: &net.TCPAddr{IP: net.ParseIP("192.168.1.5"), Port: 5000}}), "192.168.1.5"},
		{"none", context.Background(), "unknown"},
	}
	for _, tc := range cases {
		if got := ClientIP(tc.ctx); got != tc.want {
			t.Errorf("%s: ClientIP = %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestUserAgent(t *testing.T) {
	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs("user-agent", " app/1.0 "))
	if got := UserAgent(ctx); got != "app/1.0" {
		t.Errorf("UserAgent = %q", got)
	}
	if got := UserAgent(context.Background()); got != "" {
		t.Errorf("UserAgent(empty) = %q", got)
	}
}

package audit

import "testing"

func TestParseFullMethod(t *testing.T) {
	tests := []struct {
		in   string
		want ActionResource
	}{
		{"/cuidame.session.v1.SessionService/ListSessions", ActionResource{"list", "session"}},
		{"/cuidame.session.v1.SessionService/SweepSessions", ActionResource{"sessions_swept", "session"}},
		{"/cuidame.session.v1.SessionService/PurgeSessions", ActionResource{"sessions_purged", "session"}},
		{"/cuidame.auth.v1.AuthService/ValidateSession", ActionResource{"validate", "auth"}},
		{"/cuidame.auth.v1.AuthService/Logout", ActionResource{"logout", "auth"}},
		{"/NoDots/Method", ActionResource{"method", "unknown"}},
		{"garbage", ActionResource{"unknown", "unknown"}},
	}
	for _, tt := range tests {
		if got := ParseFullMethod(tt.in); got != tt.want {
			t.Errorf("ParseFullMethod(%q) = %+v, want %+v", tt.in, got, tt.want)
		}
	}
}

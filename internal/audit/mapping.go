package audit

import "strings"

// ActionResource holds action and resource derived from a gRPC full method name.
type ActionResource struct {
	Action   string
	Resource string
}

// Maintenance RPCs are audited under explicit action names.
const (
	sessionSweep = "/cuidame.session.v1.SessionService/SweepSessions"
	sessionPurge = "/cuidame.session.v1.SessionService/PurgeSessions"
)

// ParseFullMethod returns action and resource for a gRPC full method (e.g. /cuidame.session.v1.SessionService/ListSessions).
// Action is a verb: get, list, validate, or a lowercase method name for others.
// Resource is derived from the service name (e.g. SessionService -> session).
func ParseFullMethod(fullMethod string) ActionResource {
	switch fullMethod {
	case sessionSweep:
		return ActionResource{Action: "sessions_swept", Resource: "session"}
	case sessionPurge:
		return ActionResource{Action: "sessions_purged", Resource: "session"}
	}
	// fullMethod format: /cuidame.package.v1.ServiceName/MethodName
	slash := strings.LastIndex(fullMethod, "/")
	if slash < 0 {
		return ActionResource{Action: "unknown", Resource: "unknown"}
	}
	method := fullMethod[slash+1:]
	beforeSlash := fullMethod[:slash]
	dot := strings.LastIndex(beforeSlash, ".")
	if dot < 0 {
		return ActionResource{Action: strings.ToLower(method), Resource: "unknown"}
	}
	return ActionResource{Action: methodToAction(method), Resource: serviceToResource(beforeSlash[dot+1:])}
}

func serviceToResource(serviceName string) string {
	// SessionService -> session, AuthService -> auth
	s := strings.TrimSuffix(serviceName, "Service")
	if s == "" {
		return "unknown"
	}
	return strings.ToLower(s[0:1]) + s[1:]
}

func methodToAction(method string) string {
	switch {
	case strings.HasPrefix(method, "Get") && method != "Get":
		return "get"
	case strings.HasPrefix(method, "List"):
		return "list"
	case strings.HasPrefix(method, "Validate"):
		return "validate"
	default:
		return strings.ToLower(method)
	}
}

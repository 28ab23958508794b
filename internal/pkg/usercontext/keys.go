package usercontext

// Shared Locals keys used across controllers and middlewares
const (
	KeyActor     = "ACTOR"
	KeyClientID  = "client_id"
	KeyIsAdmin   = "isAdmin"
	KeyRequestID = "requestid"
)

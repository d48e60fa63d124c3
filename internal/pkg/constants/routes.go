package constants

// Route prefixes shared by the routers and the probes that call them.
const (
	WebhooksRoute = "/webhooks"
	AuthRoute     = "/auth"
	APIRoute      = "/api"
	APIV1Route    = "/v1"
	MetricsRoute  = "/metrics"
	// Account endpoint polled by clients after checkout
	AccountPath = APIRoute + APIV1Route + "/account"
)

package rest

const (
	// api
	RouteApiV1 = "/api/v1"

	// auth
	RouteAuth  = RouteApiV1 + "/auth"
	RouteLogin = RouteAuth + "/login"

	RouteTransfers = RouteApiV1 + "/transfers"
	RouteTransfer  = RouteTransfers + "/:code"

	// admin
	RouteAdmin          = RouteApiV1 + "/admin"
	RouteAdminTransfers = RouteAdmin + "/transfers"
	RouteAdminTransfer  = RouteAdminTransfers + "/:code"
	RouteAdminSweep     = RouteAdmin + "/sweep"
	RouteAdminEvents    = RouteAdmin + "/events"

	// devtrans client
	RouteUpload     = "/upload"
	RouteDownload   = "/download/:code"
	RouteCLIVersion = "/cli/version"
	RouteCLIBinary  = "/cli/devtrans"

	// ops
	RouteHealth  = RouteApiV1 + "/healthz"
	RouteMetrics = RouteApiV1 + "/metrics"
)

package indexer

const (
	// AuthorizationHeader carries the bearer key for the indexer and the feed api
	AuthorizationHeader = "Authorization"
	// AppVersionHeader is the header that contains the app version of the sender
	AppVersionHeader = "X-App-Version"
)

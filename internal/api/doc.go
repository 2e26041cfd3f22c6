// Package api provides an HTTP client for the monitored server's REST surface.
//
// # Overview
//
// Every call is issued against <serverURL>/api<endpoint> with a JSON
// content type. Successful responses are decoded from JSON; everything else
// is reported as an error to the caller. The client never retries.
//
// # Endpoints
//
//	GET    /server/status   {status}            FetchStatus
//	GET    /server/stats    ServerStats         FetchStats
//	POST   /server/start                        StartServer
//	POST   /server/stop                         StopServer
//	GET    /server/config   ServerConfig        FetchConfig
//	GET    /routes          {routes}            FetchRoutes
//	POST   /routes          {path,handler,method} AddRoute
//	GET    /logs?limit=N    {logs}              FetchLogs
//	DELETE /logs                                ClearLogs
//
// # Errors
//
// Three failure shapes reach callers:
//
//   - *StatusError for any response outside 2xx (carries code and status text)
//   - "execute request: ..." when the request never completed (DNS, refused, ...)
//   - "decode response: ..." when the body was not valid JSON
//
// # Timeouts
//
// No per-request timeout is applied unless WithTimeout is passed; a hanging
// server keeps the call pending until the caller's context ends.
package api

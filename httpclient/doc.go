// Package httpclient is the outbound HTTP layer of ssekit.
//
// Do sends ordinary requests (the emit and broadcast commands use it with
// retry enabled). DoStream opens long-lived responses and hands
// text/event-stream bodies to the sse reader; the SSE client transport is
// built on it.
//
//	c, _ := httpclient.New(httpclient.Config{
//	    BaseURL: "http://localhost:8080",
//	    Retry:   httpclient.DefaultRetryConfig(),
//	})
//	resp, err := c.Do(ctx, httpclient.Request{Method: http.MethodPost, Path: "/broadcast", Body: payload})
package httpclient

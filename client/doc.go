// Package client keeps a server-sent event stream alive from the
// consuming side.
//
// A Connector owns one logical session. It dials a Transport, and when
// reconnection is configured it answers transport errors by tearing the
// transport down and dialing a new one after a linearly growing delay:
//
//	c, err := client.New("http://localhost:8080/events/alice",
//	    client.WithReconnect(client.ReconnectOptions{
//	        Interval: time.Second,
//	        Delay:    500 * time.Millisecond,
//	        Retries:  client.Retries(3),
//	    }),
//	)
//	if err != nil {
//	    return err
//	}
//	stop := c.On("notice", func(ev *client.Event) { fmt.Println(ev.Data) })
//	defer stop()
//	_ = c.Open()
//	defer c.Dispose()
//
// The default transport is EventSource, which reads the stream through
// httpclient and reconnects natively like the browser primitive.
package client

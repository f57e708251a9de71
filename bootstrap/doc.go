// Package bootstrap runs a process's lifecycle: typed configuration,
// component registration, startup and shutdown hooks, and graceful stop on
// OS signals.
//
//	app, err := bootstrap.NewApp(&cfg)
//	if err != nil {
//	    return err
//	}
//	_ = app.RegisterComponent(sse.NewComponent(registry))
//	_ = app.RegisterComponent(server.NewComponent(srv))
//	return app.Run(ctx)
//
// Components start in registration order and stop in reverse.
package bootstrap

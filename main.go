package main

import (
	"context"

	"github.com/shandysiswandi/otpgate/internal/app"
)

func main() {
	gateway := app.New()
	<-gateway.Start()

	ctx, cancel := context.WithTimeout(context.Background(), gateway.ShutdownTimeout())
	defer cancel()

	gateway.Stop(ctx)
}

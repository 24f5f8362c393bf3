// Command admin creates an ADMIN profile in the configured storage. It reads
// the same configuration sources as the server.
package main

import (
	"context"
	"log"
	"os"

	"github.com/dmitrijs2005/farmtrack/internal/adminctl"
	"github.com/dmitrijs2005/farmtrack/internal/server"
	"github.com/dmitrijs2005/farmtrack/internal/server/config"
)

func main() {

	ctx := context.Background()
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("%v", err)
	}
	if cfg.Storage == config.StorageMemory {
		log.Fatalf("admin bootstrap needs persistent storage, got %q", cfg.Storage)
	}

	app, err := server.NewApp(ctx, cfg, os.Stderr)
	if err != nil {
		log.Fatalf("%v", err)
	}
	defer app.Close()

	if _, err := adminctl.Bootstrap(ctx, os.Stdin, os.Stdout, app.Service()); err != nil {
		log.Printf("%v", err)
		app.Close()
		os.Exit(1)
	}

}

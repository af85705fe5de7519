package main

import (
	"context"
	"log"
	"os"
	"os/signal"

	"openstage/server"
	"openstage/utils"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Llongfile)

	cfg, err := utils.ReadTOML("config.toml")
	if err != nil {
		if !os.IsNotExist(err) {
			log.Fatal(err)
		}
		cfg = utils.DefaultConfig()
	}
	if len(os.Args) > 1 {
		cfg.Server.Address = os.Args[1]
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	s := server.New(server.Config{
		Address:          cfg.Server.Address,
		TickRate:         cfg.Server.TickRate,
		HandshakeTimeout: cfg.Server.HandshakeTimeout(),
		TestEntities:     cfg.Server.TestEntities,
	})
	if err := s.Run(ctx); err != nil && ctx.Err() == nil {
		log.Fatal(err)
	}
}

package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"time"

	"openstage/client"
	"openstage/protocol"
	"openstage/server"
	"openstage/transport"
	"openstage/utils"
)

func loadConfig() *utils.Config {
	cfg, err := utils.ReadTOML("config.toml")
	if err != nil {
		if !os.IsNotExist(err) {
			log.Fatal(err)
		}
		cfg = utils.DefaultConfig()
	}
	return cfg
}

func main() {
	log.SetFlags(log.LstdFlags | log.Llongfile)
	cfg := loadConfig()

	if len(os.Args) > 1 && os.Args[1] == "server" {
		if err := runServer(cfg.Server); err != nil {
			log.Fatal(err)
		}
		return
	}

	if err := runClient(cfg.Client); err != nil {
		log.Fatal(err)
	}
}

func runServer(cfg utils.ServerConfig) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	s := server.New(server.Config{
		Address:          cfg.Address,
		TickRate:         cfg.TickRate,
		HandshakeTimeout: cfg.HandshakeTimeout(),
		TestEntities:     cfg.TestEntities,
	})
	err := s.Run(ctx)
	if ctx.Err() != nil {
		log.Printf("terminating: %v", ctx.Err())
		return nil
	}
	return err
}

// runClient connects a headless mirror: it logs world changes and walks its
// player along the x axis so the round trip is visible without a GUI.
func runClient(cfg utils.ClientConfig) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	dialer := &transport.WebSocketDialer{URL: cfg.URL}
	c := client.New(dialer.Connect())
	defer c.Close()

	c.OnTickOutput(func(output protocol.TickOutput) {
		if !output.Empty() {
			log.Printf("tick output: %+v", output)
		}
	})

	status := client.StatusConnecting
	pump := time.NewTicker(50 * time.Millisecond)
	defer pump.Stop()
	walk := time.NewTicker(time.Second)
	defer walk.Stop()
	x := 0.0

	for {
		select {
		case <-ctx.Done():
			log.Printf("terminating: %v", ctx.Err())
			return nil
		case <-pump.C:
			if err := c.Tick(); err != nil {
				return err
			}
			if next := c.Status(); next != status {
				log.Printf("status: %v", next)
				status = next
			}
		case <-walk.C:
			if status != client.StatusConnected {
				continue
			}
			x++
			if err := c.SendInput(protocol.PlayerInputNewPosition(protocol.Vector3{x, 0, 0})); err != nil {
				return err
			}
		}
	}
}

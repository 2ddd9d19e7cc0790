package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/duskhollow/comlink/pkg/server"
)

// envDefault returns the environment variable value if set, otherwise the fallback.
func envDefault(envVar, fallback string) string {
	if v := os.Getenv(envVar); v != "" {
		return v
	}
	return fallback
}

func main() {
	confFile := flag.String("conf", envDefault("COMLINK_CONF", ""), "Path to server config file (env: COMLINK_CONF)")
	port := flag.Int("port", 0, "TCP port to listen on, overrides config (env: COMLINK_PORT)")
	dataDir := flag.String("data", envDefault("COMLINK_DATA", ""), "Data directory, overrides config (env: COMLINK_DATA)")
	channelsFile := flag.String("channels", envDefault("COMLINK_CHANNELS", ""), "Channel definitions file, overrides config (env: COMLINK_CHANNELS)")
	flag.Parse()

	// Handle COMLINK_PORT env if -port flag not set
	if *port == 0 {
		if envPort := os.Getenv("COMLINK_PORT"); envPort != "" {
			if p, err := strconv.Atoi(envPort); err == nil {
				*port = p
			}
		}
	}

	conf := server.DefaultConf()
	if *confFile != "" {
		loaded, err := server.LoadConf(*confFile)
		if err != nil {
			log.Fatalf("config: %v", err)
		}
		conf = loaded
	}
	if *port != 0 {
		conf.Port = *port
	}
	if *dataDir != "" {
		conf.DataDir = *dataDir
	}
	if *channelsFile != "" {
		conf.ChannelsFile = *channelsFile
	}

	srv, err := server.NewServer(conf)
	if err != nil {
		log.Fatalf("startup: %v", err)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sig
		log.Printf("shutting down")
		srv.Close()
	}()

	if err := srv.Start(); err != nil {
		log.Fatalf("server: %v", err)
	}
}

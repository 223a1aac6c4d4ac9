// Package main implements a standalone mock Cloudflare API server for
// manual and end-to-end testing. It also serves a public IP echo endpoint
// under /echo so the agent can run fully offline.
package main

import (
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/skyfold/cloudflare-ddns/internal/testutil/mockcloudflare"
)

func getPort() string {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8081"
	}
	return port
}

func getEchoIP() string {
	ip := os.Getenv("ECHO_IP")
	if ip == "" {
		ip = "203.0.113.5"
	}
	return ip
}

func main() {
	port := getPort()

	mux := http.NewServeMux()
	mux.Handle("/client/", mockcloudflare.Handler())
	mux.Handle("/echo", mockcloudflare.EchoHandler(getEchoIP()))

	httpServer := &http.Server{
		Addr:    ":" + port,
		Handler: mux,
	}

	done := make(chan struct{})
	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, os.Interrupt, syscall.SIGTERM)
		<-sigint

		log.Println("Shutting down mockcloudflare server...")
		httpServer.Close() //nolint:errcheck
		close(done)
	}()

	log.Printf("mockcloudflare listening on :%s", port)
	if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("HTTP server error: %v", err)
	}

	<-done
	log.Println("mockcloudflare stopped")
}

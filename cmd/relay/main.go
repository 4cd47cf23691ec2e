package main

import (
	"flag"
	"log"
	"net/http"

	"zeta-sync/internal/relay"
)

func main() {
	listen := flag.String("listen", ":8081", "address to listen on")
	flag.Parse()

	srv := relay.NewServer()
	http.Handle("/relay/", srv.Handler("/relay/"))

	log.Printf("zeta-sync relay listening on %s", *listen)
	if err := http.ListenAndServe(*listen, nil); err != nil {
		log.Fatalf("relay: %v", err)
	}
}

package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/devwelkin/hermes-static/internal/listener"
	"github.com/devwelkin/hermes-static/internal/request"
)

func main() {
	port := flag.Int("p", 42069, "port to listen on")
	flag.Parse()

	ln, err := listener.Create(*port)
	if err != nil {
		log.Fatal(err)
	}
	for {
		conn, peer, err := ln.Accept()
		if err != nil {
			log.Fatal(err)
		}
		fmt.Printf("connection from %s has been accepted\n", peer)

		req, err := request.RequestFromReader(conn)
		if err != nil {
			fmt.Printf("error: %v\n", err)
		}
		fmt.Printf("Request line:\n- Method: %s\n- Target: %s\n- Version: %s\n",
			req.Method(), req.Target(), req.Version())
		fmt.Println("Headers:")
		for _, h := range req.Headers {
			fmt.Printf("- %s: %s\n", req.Text(h.Label), req.Text(h.Value))
		}
		if len(req.Body) > 0 {
			fmt.Printf("Body:\n%s\n", req.Body)
		}
		conn.Close()
	}
}

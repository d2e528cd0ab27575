package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/divoxx/echosrv/pkg/client"
	"github.com/divoxx/echosrv/pkg/transport"
)

// echoc sends payloads to an echo server and prints the replies.
//
// Payloads come from the command line arguments, one request per
// argument, or from stdin line by line when no arguments are given.
func main() {
	transportName := flag.String("transport", "tcp", "Transport to use (tcp, udp, unix, unixgram)")
	addr := flag.String("addr", "127.0.0.1:7777", "Server address (host:port or socket path)")
	connectTimeout := flag.Duration("connect-timeout", 10*time.Second, "Connection timeout")
	requestTimeout := flag.Duration("timeout", 30*time.Second, "Per-request read/write timeout")

	flag.Parse()

	cfg := client.Config{
		ConnectTimeout: *connectTimeout,
		ReadTimeout:    *requestTimeout,
		WriteTimeout:   *requestTimeout,
	}

	request, err := newRequester(*transportName, *addr, cfg)
	if err != nil {
		log.Fatalf("Failed to connect to %s over %s: %v", *addr, *transportName, err)
	}
	defer func() { _ = request.close() }()

	if args := flag.Args(); len(args) > 0 {
		for _, payload := range args {
			roundTrip(request, payload)
		}
		return
	}

	// No arguments: echo stdin line by line
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		roundTrip(request, scanner.Text())
	}
	if err := scanner.Err(); err != nil && err != io.EOF {
		log.Fatalf("Failed to read stdin: %v", err)
	}
}

// requester abstracts the stream and datagram clients behind one
// request function plus cleanup.
type requester struct {
	request func(string) (string, error)
	close   func() error
}

func newRequester(transportName, addr string, cfg client.Config) (*requester, error) {
	switch strings.ToLower(transportName) {
	case "tcp":
		c, err := client.Dial(transport.TCP{}, addr, cfg)
		if err != nil {
			return nil, err
		}
		return &requester{request: c.RequestString, close: c.Close}, nil
	case "unix":
		c, err := client.Dial(transport.UnixStream{}, addr, cfg)
		if err != nil {
			return nil, err
		}
		return &requester{request: c.RequestString, close: c.Close}, nil
	case "udp":
		c, err := client.DialDatagram(transport.UDP{}, addr, cfg)
		if err != nil {
			return nil, err
		}
		return &requester{request: c.RequestString, close: c.Close}, nil
	case "unixgram":
		c, err := client.DialDatagram(transport.UnixDatagram{}, addr, cfg)
		if err != nil {
			return nil, err
		}
		return &requester{request: c.RequestString, close: c.Close}, nil
	default:
		return nil, fmt.Errorf("unknown transport %q", transportName)
	}
}

func roundTrip(r *requester, payload string) {
	reply, err := r.request(payload)
	if err != nil {
		log.Fatalf("Request failed: %v", err)
	}
	fmt.Println(reply)
}

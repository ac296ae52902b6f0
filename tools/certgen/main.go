// Package main writes development TLS material (a CA plus a server
// certificate for the given hosts) into a directory, ./certs by default.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/atinyakov/GophShelf/internal/certgen"
)

func main() {
	dir := pflag.String("dir", "certs", "output directory")
	hosts := pflag.StringSlice("host", []string{"localhost", "127.0.0.1"}, "DNS names or IPs the server certificate is valid for")
	pflag.Parse()

	files, err := certgen.WriteDevCertificates(*dir, *hosts)
	if err != nil {
		fmt.Fprintln(os.Stderr, "certgen:", err)
		os.Exit(1)
	}
	fmt.Printf("CA:     %s\nServer: %s (key %s)\n", files.CACert, files.ServerCert, files.ServerKey)
	fmt.Printf("Run the server with GOPHSHELF_TLS_CERT=%s GOPHSHELF_TLS_KEY=%s\n", files.ServerCert, files.ServerKey)
	fmt.Printf("Trust it from the client with --ca %s\n", files.CACert)
}

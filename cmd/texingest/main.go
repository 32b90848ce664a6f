// cmd/texingest/main.go
package main

import "github.com/David-Botos/texture-ingress/pkg/cli"

func main() {
	cli.Execute()
}

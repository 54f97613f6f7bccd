// Command cartpilot drives a mobile shopping app through UIAutomator2.
package main

import "github.com/devicelab-dev/cartpilot/pkg/cli"

func main() {
	cli.Execute()
}

// Command maritime-alarm runs the vessel alarm engine, the AIS ingester and
// the alarm feed client.
package main

import "github.com/maritimalarm/maritime-alarm/cmd/maritime-alarm/cmd"

func main() {
	cmd.Execute()
}

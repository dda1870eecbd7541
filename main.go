// Command trend-aggregator collects trending items into the hot_trends table.
package main

import "github.com/JakeFAU/trend-aggregator/cmd"

func main() {
	cmd.Execute()
}

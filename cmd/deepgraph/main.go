// Package main is the entry point for deepgraph.
package main

func main() {
	Execute()
}

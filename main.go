/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package main

import "github.com/manisense/constellation-push-dispatcher/cmd"

func main() {
	cmd.Execute()
}

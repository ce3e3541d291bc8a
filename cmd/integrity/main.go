// Command integrity verifies that a file was actually written: it must
// exist, have been modified within the freshness window, and contain the
// required keyword. Exit codes: 0 success, 1 file missing, 2 not recently
// modified, 3 keyword absent.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"
)

func main() {
	window := flag.Duration("window", 60*time.Second, "how recently the file must have been modified")
	flag.Parse()

	args := flag.Args()
	if len(args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: integrity [-window 60s] <file> <keyword>")
		os.Exit(1)
	}
	os.Exit(check(args[0], args[1], *window, time.Now()))
}

func check(path, keyword string, window time.Duration, now time.Time) int {
	fmt.Printf("integrity check: %s\n", path)

	info, err := os.Stat(path)
	if err != nil {
		fmt.Printf("FAILED: file does not exist: %s\n", path)
		return 1
	}

	age := now.Sub(info.ModTime())
	fmt.Printf("  last modified: %s (%s ago)\n", info.ModTime().Format("15:04:05"), age.Round(time.Second))
	if age > window {
		fmt.Printf("FAILED: file was not modified within the last %s\n", window)
		return 2
	}

	content, err := os.ReadFile(path)
	if err != nil {
		fmt.Printf("FAILED: cannot read file: %v\n", err)
		return 1
	}
	if !strings.Contains(string(content), keyword) {
		fmt.Printf("FAILED: keyword %q not found in file\n", keyword)
		return 3
	}

	fmt.Printf("VERIFIED: %q present and file is fresh\n", keyword)
	return 0
}

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ilagnev/barnes-tms-extract/pkg/listing"
)

var (
	pageURL  = flag.String("url", "", "URL of the static directory-listing page")
	suffixes = flag.String("suffixes", "", "Comma-separated file suffixes to keep (e.g. .jpg,.tif)")
	timeout  = flag.Duration("timeout", 30*time.Second, "Request timeout")
)

func main() {
	flag.Parse()

	if *pageURL == "" {
		fmt.Fprintln(os.Stderr, "Usage: listfiles -url <listing page> [-suffixes .jpg,.tif]")
		os.Exit(1)
	}

	var filters []string
	if *suffixes != "" {
		for _, s := range strings.Split(*suffixes, ",") {
			if s = strings.TrimSpace(s); s != "" {
				filters = append(filters, s)
			}
		}
	}

	scraper := listing.NewScraper(*timeout)
	files, err := scraper.ListFiles(context.Background(), *pageURL, filters...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to list files: %v\n", err)
		os.Exit(1)
	}

	for _, file := range files {
		fmt.Println(file)
	}
}

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/peterh/liner"

	"zlibsearch/internal/api"
	"zlibsearch/internal/config"
	"zlibsearch/internal/search"
)

const historyFile = ".zlibsearch_history"

func main() {
	cfg := config.Get()
	addr := flag.String("addr", cfg.Server.BaseURL(), "base URL of the search API")
	limit := flag.Uint("limit", 0, "result limit (0 keeps the server default)")
	flag.Parse()

	var lim *uint
	if *limit > 0 {
		lim = limit
	}
	client := api.NewClient(*addr, 10*time.Second)

	if flag.NArg() > 0 {
		if err := executeRequest(os.Stdout, client, strings.Join(flag.Args(), " "), lim); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	shell(client, lim)
}

func shell(client *api.Client, lim *uint) {
	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	histPath := filepath.Join(os.TempDir(), historyFile)
	if home, err := os.UserHomeDir(); err == nil {
		histPath = filepath.Join(home, historyFile)
	}
	if f, err := os.Open(histPath); err == nil {
		_, _ = line.ReadHistory(f)
		f.Close()
	}
	defer func() {
		if f, err := os.Create(histPath); err == nil {
			_, _ = line.WriteHistory(f)
			f.Close()
		}
	}()

	fmt.Println("zlibsearch interactive shell (:limit N, exit)")
	for {
		input, err := line.Prompt("zlib> ")
		if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
			return
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return
		}
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		line.AppendHistory(input)

		switch {
		case input == "exit" || input == "quit":
			return
		case strings.HasPrefix(input, ":limit "):
			n, err := strconv.ParseUint(strings.TrimSpace(strings.TrimPrefix(input, ":limit ")), 10, 0)
			if err != nil {
				fmt.Println("usage: :limit N")
				continue
			}
			v := uint(n)
			lim = &v
			continue
		}

		if err := executeRequest(os.Stdout, client, input, lim); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
	}
}

func executeRequest(w io.Writer, client *api.Client, query string, lim *uint) error {
	start := time.Now()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	res, err := client.Search(ctx, query, lim)
	if err != nil {
		return err
	}

	printBooks(w, res.Books)
	fmt.Fprintf(w, "\n⏱ %d books in %v\n\n", len(res.Books), time.Since(start).Round(time.Millisecond))
	return nil
}

func printBooks(w io.Writer, books []search.Book) {
	if len(books) == 0 {
		fmt.Fprintln(w, "No results found.")
		return
	}
	fmt.Fprintf(w, "%-10s | %-40s | %-25s | %-5s | %-4s\n", "ID", "Title", "Author", "Ext", "Year")
	fmt.Fprintln(w, strings.Repeat("-", 98))
	for _, b := range books {
		year := ""
		if b.Year > 0 {
			year = strconv.FormatUint(b.Year, 10)
		}
		fmt.Fprintf(w, "%-10d | %-40s | %-25s | %-5s | %-4s\n", b.ID, clip(b.Title, 40), clip(b.Author, 25), b.Extension, year)
	}
}

// clip shortens s to n runes.
func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

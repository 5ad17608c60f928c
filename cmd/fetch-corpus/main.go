// fetch-corpus downloads a web page, strips the markup, and writes the
// body text one sentence per line, the input format the analysis
// pipeline expects.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/jdkato/prose/v2"
	"golang.org/x/net/html"
)

func main() {
	var (
		url     = flag.String("url", "", "Page to download (required)")
		out     = flag.String("out", "", "Output file (default: stdout)")
		timeout = flag.Duration("timeout", 30*time.Second, "HTTP timeout")
	)
	flag.Parse()

	if *url == "" {
		log.Fatal("--url required")
	}

	client := &http.Client{Timeout: *timeout}
	resp, err := client.Get(*url)
	if err != nil {
		log.Fatalf("fetch %s: %v", *url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Fatalf("fetch %s: HTTP %d", *url, resp.StatusCode)
	}

	root, err := html.Parse(resp.Body)
	if err != nil {
		log.Fatalf("parse html: %v", err)
	}

	sentences, err := segment(extractText(root))
	if err != nil {
		log.Fatalf("segment text: %v", err)
	}
	if len(sentences) == 0 {
		log.Fatalf("no text content at %s", *url)
	}

	w := os.Stdout
	if *out != "" {
		f, err := os.Create(*out)
		if err != nil {
			log.Fatalf("create output: %v", err)
		}
		defer f.Close()
		w = f
	}

	bw := bufio.NewWriter(w)
	for _, s := range sentences {
		fmt.Fprintln(bw, s)
	}
	if err := bw.Flush(); err != nil {
		log.Fatalf("write output: %v", err)
	}

	if *out != "" {
		log.Printf("wrote %d sentences to %s", len(sentences), *out)
	}
}

// extractText walks the DOM and collects text nodes, skipping script
// and style subtrees.
func extractText(root *html.Node) string {
	var buf strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style" || n.Data == "noscript") {
			return
		}
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
			buf.WriteString(" ")
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return buf.String()
}

func segment(text string) ([]string, error) {
	doc, err := prose.NewDocument(text,
		prose.WithTagging(false),
		prose.WithExtraction(false))
	if err != nil {
		return nil, err
	}

	var out []string
	for _, sent := range doc.Sentences() {
		s := strings.Join(strings.Fields(sent.Text), " ")
		if s != "" {
			out = append(out, s)
		}
	}
	return out, nil
}

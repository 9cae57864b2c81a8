package ingest

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"sort"
)

// CollectInputs resolves input locations to a flat, ordered list of files.
// A file is taken as-is; a directory is scanned non-recursively for *.jsonl
// and *.csv, lexically sorted. Missing paths are warned about and skipped.
func CollectInputs(inputs []string, logger *log.Logger) []string {
	var files []string
	for _, item := range inputs {
		info, err := os.Stat(item)
		if err != nil {
			logger.Printf("input path not found: %s", item)
			continue
		}
		if !info.IsDir() {
			files = append(files, item)
			continue
		}
		for _, pattern := range []string{"*.jsonl", "*.csv"} {
			matches, err := filepath.Glob(filepath.Join(item, pattern))
			if err != nil {
				continue
			}
			sort.Strings(matches)
			files = append(files, matches...)
		}
	}
	return files
}

// Download fetches each URL into dir, sequentially, and returns the staged
// file paths. The staged files are then treated like any local input.
func Download(ctx context.Context, urls []string, dir string, logger *log.Logger) ([]string, error) {
	if len(urls) == 0 {
		return nil, nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create staging dir: %w", err)
	}

	client := &http.Client{}
	var staged []string
	for _, raw := range urls {
		dest, err := fetchOne(ctx, client, raw, dir, logger)
		if err != nil {
			return nil, err
		}
		staged = append(staged, dest)
	}
	return staged, nil
}

func fetchOne(ctx context.Context, client *http.Client, rawURL, dir string, logger *log.Logger) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse url %s: %w", rawURL, err)
	}
	name := path.Base(parsed.Path)
	if name == "" || name == "." || name == "/" {
		name = "downloaded_data"
	}
	dest := filepath.Join(dir, name)
	logger.Printf("downloading %s -> %s", rawURL, dest)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", err
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("download %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download %s: HTTP %d", rawURL, resp.StatusCode)
	}

	out, err := os.Create(dest)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(out, resp.Body); err != nil {
		out.Close()
		return "", fmt.Errorf("write %s: %w", dest, err)
	}
	if err := out.Close(); err != nil {
		return "", err
	}
	return dest, nil
}

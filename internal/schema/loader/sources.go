package loader

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
)

// maxDocumentBytes bounds every source.
const maxDocumentBytes = 8 << 20

func readLimited(r io.Reader, location string) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxDocumentBytes+1))
	if err != nil {
		return nil, fmt.Errorf("schema loader: read %s: %w", location, err)
	}
	if len(data) > maxDocumentBytes {
		return nil, fmt.Errorf("schema loader: %s exceeds %d bytes", location, maxDocumentBytes)
	}
	return data, nil
}

func readFile(path string) ([]byte, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("schema loader: %w", err)
	}
	defer file.Close()
	return readLimited(file, path)
}

func readFS(files fs.FS, name string) ([]byte, error) {
	file, err := files.Open(name)
	if err != nil {
		return nil, fmt.Errorf("schema loader: %w", err)
	}
	defer file.Close()
	return readLimited(file, name)
}

func fetchURL(ctx context.Context, client *http.Client, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("schema loader: %w", err)
	}
	req.Header.Set("Accept", "application/json, application/yaml;q=0.9, */*;q=0.1")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("schema loader: fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("schema loader: fetch %s: unexpected status %s", url, resp.Status)
	}
	return readLimited(resp.Body, url)
}

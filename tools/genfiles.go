//go:build tools
// +build tools

// genfiles lays out a sample video library for trying vidshelf by hand.
// The "videos" are random bytes so players will refuse them, but the
// catalog, navigation and range requests all work.
package main

import (
	"crypto/rand"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

var sizes = []int64{
	1024,             // 1KB
	1024 * 1024,      // 1MB
	10 * 1024 * 1024, // 10MB
}

var layout = map[string][]string{
	"Mathematics": {"01 Algebra", "02 Calculus", "03 Statistics"},
	"Physics":     {"01 Kinematics", "02 Waves"},
	"Programming": {"Go Basics", "Concurrency"},
}

var videoExts = []string{"mp4", "webm", "mkv", "mov"}

type randReader struct {
	remaining int64
}

func (r *randReader) Read(p []byte) (int, error) {
	if r.remaining <= 0 {
		return 0, io.EOF
	}
	if int64(len(p)) > r.remaining {
		p = p[:r.remaining]
	}
	n, err := rand.Read(p)
	r.remaining -= int64(n)
	return n, err
}

func writeFile(path string, size int64) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = io.Copy(f, &randReader{remaining: size})
	return err
}

// createLibrary writes n lectures into every chapter. Every other lecture
// gets a PDF handout with the same base name, and each chapter gets a stray
// text file that the catalog should ignore.
func createLibrary(root string, n int) (int, error) {
	count := 0
	for subject, chapters := range layout {
		for _, chapter := range chapters {
			dir := filepath.Join(root, subject, chapter)
			if err := os.MkdirAll(dir, 0755); err != nil {
				return count, err
			}
			for i := range n {
				base := fmt.Sprintf("Lecture %02d", i+1)
				video := filepath.Join(dir, base+"."+videoExts[i%len(videoExts)])
				fmt.Printf("Creating: %s\n", video)
				if err := writeFile(video, sizes[i%len(sizes)]); err != nil {
					return count, err
				}
				count++
				if i%2 == 0 {
					if err := writeFile(filepath.Join(dir, base+".pdf"), 512); err != nil {
						return count, err
					}
				}
			}
			if err := os.WriteFile(filepath.Join(dir, "README.txt"), []byte("not a video\n"), 0644); err != nil {
				return count, err
			}
		}
	}
	return count, nil
}

func main() {
	dir := flag.String("dir", "./library", "Where to create the sample library.")
	n := flag.Int("n", 4, "Lectures per chapter.")
	flag.Parse()

	count, err := createLibrary(*dir, *n)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("Created", count, "sample videos in", *dir)
}

package extractor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
)

// IsOCRAvailable reports whether pdftoppm and tesseract are on PATH.
func IsOCRAvailable() bool {
	_, errPpm := exec.LookPath("pdftoppm")
	_, errTess := exec.LookPath("tesseract")
	return errPpm == nil && errTess == nil
}

// extractWithOCR renders each page to a 300 DPI PNG with pdftoppm and runs
// tesseract on it. Pages that fail OCR are skipped.
func extractWithOCR(ctx context.Context, path string) ([]string, error) {
	if !IsOCRAvailable() {
		return nil, errors.New("OCR needs pdftoppm (poppler-utils) and tesseract (tesseract-ocr)")
	}

	tmpDir, err := os.MkdirTemp("", "ocr-pages-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	prefix := filepath.Join(tmpDir, "page")
	if out, err := exec.CommandContext(ctx, "pdftoppm", "-r", "300", "-png", path, prefix).CombinedOutput(); err != nil {
		return nil, fmt.Errorf("pdftoppm failed: %w (output: %s)", err, out)
	}

	images, err := filepath.Glob(prefix + "*.png")
	if err != nil {
		return nil, fmt.Errorf("listing page images: %w", err)
	}
	if len(images) == 0 {
		return nil, errors.New("pdftoppm produced no page images")
	}
	sort.Strings(images)

	var pages []string
	for _, img := range images {
		outBase := strings.TrimSuffix(img, ".png") + "-ocr"
		// --psm 4: single column of variable-size text, which suits statements.
		cmd := exec.CommandContext(ctx, "tesseract", img, outBase, "-l", "eng", "--psm", "4")
		if err := cmd.Run(); err != nil {
			continue
		}
		data, err := os.ReadFile(outBase + ".txt")
		if err != nil {
			continue
		}
		if text := strings.TrimSpace(string(data)); text != "" {
			pages = append(pages, text)
		}
	}
	if len(pages) == 0 {
		return nil, fmt.Errorf("tesseract produced no text from %d page images", len(images))
	}
	return pages, nil
}

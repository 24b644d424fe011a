// Package capture renders workbook pages into PNG snapshots by converting
// the file to PDF with LibreOffice and rasterizing the first pages with
// pdftoppm. Capture is best effort: callers degrade to text-only analysis
// when it fails.
package capture

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"sheetlens/internal/config"
)

// Capturer shells out to LibreOffice and pdftoppm. It implements
// port.SheetCapturer.
type Capturer struct {
	soffice  string
	pdftoppm string
	maxPages int
	dpi      int
	timeout  time.Duration
}

// New creates a Capturer from config, applying defaults for unset fields.
func New(cfg *config.CaptureConfig) *Capturer {
	c := &Capturer{
		soffice:  cfg.SofficeBin,
		pdftoppm: cfg.PdftoppmBin,
		maxPages: cfg.MaxPages,
		dpi:      cfg.DPI,
		timeout:  time.Duration(cfg.TimeoutSecs) * time.Second,
	}
	if c.soffice == "" {
		c.soffice = "soffice"
	}
	if c.pdftoppm == "" {
		c.pdftoppm = "pdftoppm"
	}
	if c.maxPages < 1 {
		c.maxPages = 3
	}
	if c.dpi < 1 {
		c.dpi = 150
	}
	if c.timeout == 0 {
		c.timeout = 60 * time.Second
	}
	return c
}

// Capture converts workbook bytes into ordered PNG page snapshots, at most
// maxPages of them. All intermediate artifacts live in a temp dir removed
// before return.
func (c *Capturer) Capture(ctx context.Context, workbook []byte) ([][]byte, error) {
	dir, err := os.MkdirTemp("", "sheetlens-capture-")
	if err != nil {
		return nil, fmt.Errorf("creating capture dir: %w", err)
	}
	defer os.RemoveAll(dir)

	xlsxPath := filepath.Join(dir, "workbook.xlsx")
	if err := os.WriteFile(xlsxPath, workbook, 0o600); err != nil {
		return nil, fmt.Errorf("writing workbook: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, c.soffice,
		"--headless",
		"--convert-to", "pdf",
		"--outdir", dir,
		xlsxPath)
	if out, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("libreoffice conversion failed: %w (%s)", err, strings.TrimSpace(string(out)))
	}

	// LibreOffice names the output after the input basename.
	pdfPath := filepath.Join(dir, "workbook.pdf")
	pages, err := pageCount(pdfPath)
	if err != nil {
		return nil, err
	}
	if pages < 1 {
		return nil, fmt.Errorf("conversion produced an empty pdf")
	}
	if pages > c.maxPages {
		pages = c.maxPages
	}

	cmd = exec.CommandContext(ctx, c.pdftoppm,
		"-f", "1",
		"-l", strconv.Itoa(pages),
		"-png",
		"-r", strconv.Itoa(c.dpi),
		pdfPath,
		filepath.Join(dir, "page"))
	if out, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("pdftoppm failed: %w (%s)", err, strings.TrimSpace(string(out)))
	}

	return collectPageImages(dir)
}

// pageCount reads the converted PDF and returns its page count.
func pageCount(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("opening converted pdf: %w", err)
	}
	defer f.Close()

	conf := model.NewDefaultConfiguration()
	pdfCtx, err := api.ReadValidateAndOptimize(f, conf)
	if err != nil {
		return 0, fmt.Errorf("pdfcpu read: %w", err)
	}
	return pdfCtx.PageCount, nil
}

// collectPageImages gathers the page-N.png files pdftoppm wrote into dir,
// ordered by page number. pdftoppm zero-pads the numbers, so lexical order
// is not relied on.
func collectPageImages(dir string) ([][]byte, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("listing capture dir: %w", err)
	}

	type pageFile struct {
		num  int
		name string
	}
	var files []pageFile
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), "page-") || !strings.HasSuffix(entry.Name(), ".png") {
			continue
		}
		namePart := strings.TrimPrefix(entry.Name(), "page-")
		namePart = strings.TrimSuffix(namePart, ".png")
		var num int
		if _, err := fmt.Sscanf(namePart, "%d", &num); err != nil {
			continue
		}
		files = append(files, pageFile{num: num, name: entry.Name()})
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no page images produced")
	}
	sort.Slice(files, func(i, j int) bool { return files[i].num < files[j].num })

	images := make([][]byte, 0, len(files))
	for _, pf := range files {
		data, err := os.ReadFile(filepath.Join(dir, pf.name))
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", pf.name, err)
		}
		images = append(images, data)
	}
	return images, nil
}

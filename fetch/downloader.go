// Package fetch retrieves weekly position report workbooks from the public
// report index. Reports are static files republished under new names each
// week, so fetching is scrape, pick, download.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/time/rate"

	appconfig "cotflow/config"
	"cotflow/logger"
	"cotflow/models"
)

// ReportFile identifies one downloadable report workbook, parsed from its
// published filename.
type ReportFile struct {
	Filename     string
	URL          string
	ReportDate   models.Date
	ContractCode string
	Timestamp    string
}

// Published filenames look like WPR_2026-01-23_DEBM_COMB_260127080028.xlsx:
// report date, contract code, publication timestamp.
var reportFilePattern = regexp.MustCompile(`^WPR_(\d{4}-\d{2}-\d{2})_([A-Z0-9]+)_COMB_(\d+)\.xlsx$`)

// parseFilename splits a report filename into its parts. Links that do not
// follow the scheme are not report files.
func parseFilename(name string) (ReportFile, bool) {
	m := reportFilePattern.FindStringSubmatch(name)
	if m == nil {
		return ReportFile{}, false
	}
	date, err := models.ParseDate(m[1])
	if err != nil {
		return ReportFile{}, false
	}
	return ReportFile{
		Filename:     name,
		ReportDate:   date,
		ContractCode: m[2],
		Timestamp:    m[3],
	}, true
}

// Downloader fetches report files over a pooled HTTP client, paced so a
// batch of downloads does not hammer the host.
type Downloader struct {
	cfg        *appconfig.Config
	httpClient *http.Client
	limiter    *rate.Limiter
	log        *logger.Log
}

// NewDownloader prepares the download directory and the HTTP client.
func NewDownloader(cfg *appconfig.Config) (*Downloader, error) {
	if err := os.MkdirAll(cfg.Source.DownloadDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create download directory %s: %w", cfg.Source.DownloadDir, err)
	}

	transport := &http.Transport{
		MaxIdleConns:        cfg.Source.ConnectionPool.MaxIdleConns,
		MaxIdleConnsPerHost: cfg.Source.ConnectionPool.MaxIdleConns,
		MaxConnsPerHost:     cfg.Source.ConnectionPool.MaxConnsPerHost,
		IdleConnTimeout:     cfg.Source.ConnectionPool.IdleConnTimeout,
		DisableCompression:  false,
	}

	burst := cfg.Source.RateLimit.BurstSize
	if burst < 1 {
		burst = 1
	}

	return &Downloader{
		cfg: cfg,
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   cfg.Source.Timeout,
		},
		limiter: rate.NewLimiter(rate.Limit(cfg.Source.RateLimit.RequestsPerSecond), burst),
		log:     logger.GetLogger(),
	}, nil
}

// AvailableFiles scrapes the index page and returns every report file it
// links, newest first by (report date, publication timestamp).
func (d *Downloader) AvailableFiles(ctx context.Context) ([]ReportFile, error) {
	log := d.log.WithComponent("fetch").WithFields(logger.Fields{"index_url": d.cfg.Source.IndexURL})
	log.Info("fetching report index")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.cfg.Source.IndexURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build index request: %w", err)
	}
	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch report index: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("report index returned status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse report index: %w", err)
	}

	base := d.cfg.Source.BaseURL
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}

	var files []ReportFile
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		if !ok {
			return
		}
		file, ok := parseFilename(href)
		if !ok {
			return
		}
		file.URL = base + file.Filename
		files = append(files, file)
	})

	sort.Slice(files, func(i, j int) bool {
		if files[i].ReportDate != files[j].ReportDate {
			return files[j].ReportDate.Before(files[i].ReportDate)
		}
		return files[i].Timestamp > files[j].Timestamp
	})

	log.WithFields(logger.Fields{"files": len(files)}).Info("report index fetched")
	return files, nil
}

// LatestFiles returns the newest file per contract. With no contracts given
// it covers every contract on the index; otherwise contracts with no files
// are logged and skipped.
func (d *Downloader) LatestFiles(ctx context.Context, contracts []string) ([]ReportFile, error) {
	all, err := d.AvailableFiles(ctx)
	if err != nil {
		return nil, err
	}

	if len(contracts) == 0 {
		seen := make(map[string]struct{})
		var latest []ReportFile
		for _, f := range all {
			if _, ok := seen[f.ContractCode]; ok {
				continue
			}
			seen[f.ContractCode] = struct{}{}
			latest = append(latest, f)
		}
		return latest, nil
	}

	var latest []ReportFile
	for _, code := range contracts {
		found := false
		for _, f := range all {
			if f.ContractCode == code {
				latest = append(latest, f)
				found = true
				break
			}
		}
		if !found {
			d.log.WithComponent("fetch").WithFields(logger.Fields{
				"contract_code": code,
			}).Warn("no report files for contract")
		}
	}
	return latest, nil
}

// Download fetches one report file into the download directory. A file that
// is already present is returned as is unless force is set. The body goes
// through a temp file rename so an interrupted download never leaves a
// partial workbook under the final name.
func (d *Downloader) Download(ctx context.Context, file ReportFile, force bool) (string, error) {
	log := d.log.WithComponent("fetch").WithFields(logger.Fields{
		"filename":      file.Filename,
		"contract_code": file.ContractCode,
	})

	target := filepath.Join(d.cfg.Source.DownloadDir, file.Filename)
	if !force {
		if _, err := os.Stat(target); err == nil {
			log.Debug("report file already downloaded")
			return target, nil
		}
	}

	if err := d.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("download pacing interrupted: %w", err)
	}

	log.Info("downloading report file")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, file.URL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build download request: %w", err)
	}
	resp, err := d.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to download %s: %w", file.Filename, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download of %s returned status %d", file.Filename, resp.StatusCode)
	}

	tmp, err := os.CreateTemp(d.cfg.Source.DownloadDir, file.Filename+"-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file for %s: %w", file.Filename, err)
	}
	tmpPath := tmp.Name()

	size, err := io.Copy(tmp, resp.Body)
	if err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return "", fmt.Errorf("failed to write %s: %w", file.Filename, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("failed to flush %s: %w", file.Filename, err)
	}
	if err := os.Rename(tmpPath, target); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("failed to move %s into place: %w", file.Filename, err)
	}

	logger.IncrementDownload(size)
	log.WithFields(logger.Fields{"file": target, "size": size}).Info("report file downloaded")
	return target, nil
}

// DownloadLatest fetches the newest file per requested contract. Individual
// download failures are logged and skipped; cancellation stops the batch.
func (d *Downloader) DownloadLatest(ctx context.Context, contracts []string, force bool) ([]string, error) {
	latest, err := d.LatestFiles(ctx, contracts)
	if err != nil {
		return nil, err
	}

	paths := make([]string, 0, len(latest))
	for _, f := range latest {
		path, err := d.Download(ctx, f, force)
		if err != nil {
			if ctx.Err() != nil {
				return paths, ctx.Err()
			}
			d.log.WithComponent("fetch").WithError(err).WithFields(logger.Fields{
				"filename": f.Filename,
			}).Warn("failed to download report file")
			continue
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// ContractHistory lists the files published for one contract, newest first,
// at most limit of them when limit is positive.
func (d *Downloader) ContractHistory(ctx context.Context, code string, limit int) ([]ReportFile, error) {
	all, err := d.AvailableFiles(ctx)
	if err != nil {
		return nil, err
	}

	var files []ReportFile
	for _, f := range all {
		if f.ContractCode == code {
			files = append(files, f)
		}
	}
	if limit > 0 && len(files) > limit {
		files = files[:limit]
	}
	return files, nil
}

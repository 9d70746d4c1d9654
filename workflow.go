package main

import (
	"context"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"cotflow/analyzer"
	appconfig "cotflow/config"
	"cotflow/fetch"
	"cotflow/logger"
	"cotflow/models"
	"cotflow/parser"
	"cotflow/report"
	"cotflow/storage"
)

// workflow wires the pipeline stages of a single ingest run: download the
// latest report workbooks, merge them into the contract archives, then render
// the positioning summaries and the tabbed HTML report.
type workflow struct {
	cfg        *appconfig.Config
	downloader *fetch.Downloader
	store      *storage.Store
	mirror     *storage.Mirror
	generator  *report.Generator
	log        *logger.Log
	runID      string
}

func newWorkflow(cfg *appconfig.Config) (*workflow, error) {
	downloader, err := fetch.NewDownloader(cfg)
	if err != nil {
		return nil, err
	}
	store, err := storage.New(cfg.Storage.DataDir)
	if err != nil {
		return nil, err
	}
	generator, err := report.NewGenerator(cfg.Report.OutputDir, cfg.Report.Weeks)
	if err != nil {
		return nil, err
	}

	w := &workflow{
		cfg:        cfg,
		downloader: downloader,
		store:      store,
		generator:  generator,
		log:        logger.GetLogger(),
		runID:      uuid.New().String(),
	}

	if cfg.Storage.S3.Enabled {
		mirror, err := storage.NewMirror(cfg)
		if err != nil {
			return nil, err
		}
		w.mirror = mirror
	}

	return w, nil
}

func (w *workflow) entry() *logger.Entry {
	return w.log.WithComponent("workflow").WithFields(logger.Fields{"run_id": w.runID})
}

// Run executes one ingest cycle for the given contracts and returns the number
// of contracts whose archive was updated. Failures on a single file or
// contract are logged and the run continues with the rest.
func (w *workflow) Run(ctx context.Context, contracts []string, force, updateOnly bool) int {
	log := w.entry()
	start := time.Now()

	log.WithFields(logger.Fields{
		"contracts":   strings.Join(contracts, ","),
		"force":       force,
		"update_only": updateOnly,
	}).Info("starting ingest run")

	paths, err := w.downloader.DownloadLatest(ctx, contracts, force)
	if err != nil {
		log.WithError(err).Error("download stage failed")
		return 0
	}
	if len(paths) == 0 {
		log.Error("no report files downloaded")
		return 0
	}

	updated := w.ingest(ctx, paths)
	if len(contracts) == 0 {
		for code := range updated {
			contracts = append(contracts, code)
		}
		sort.Strings(contracts)
	}

	if updateOnly {
		log.WithFields(logger.Fields{
			"contracts_updated": len(updated),
			"duration":          time.Since(start).String(),
		}).Info("archive update finished")
		return len(updated)
	}

	data := w.summarize(contracts, updated)
	w.publish(data, contracts)

	log.WithFields(logger.Fields{
		"contracts_updated": len(updated),
		"duration":          time.Since(start).String(),
	}).Info("ingest run finished")

	return len(updated)
}

// ingest decodes each downloaded workbook and merges its observations into the
// archive of the contract named in the workbook metadata. Returns the metadata
// of every contract that was updated.
func (w *workflow) ingest(ctx context.Context, paths []string) map[string]models.ReportMetadata {
	log := w.entry()
	updated := make(map[string]models.ReportMetadata)

	for _, path := range paths {
		meta, series, err := decodeWorkbook(path)
		if err != nil {
			log.WithError(err).WithFields(logger.Fields{"file": path}).Warn("skipping workbook that failed to decode")
			continue
		}
		code := meta.ContractCode
		if code == "" || len(series) == 0 {
			log.WithFields(logger.Fields{"file": path}).Warn("workbook carries no decodable observations")
			continue
		}

		if err := w.store.Append(code, series, true); err != nil {
			log.WithError(err).WithFields(logger.Fields{"contract_code": code}).Error("failed to update archive")
			continue
		}
		updated[code] = meta

		if w.cfg.Storage.Parquet.Enabled {
			if _, err := w.store.ExportParquet(code, w.cfg.Storage.Parquet.Compression); err != nil {
				log.WithError(err).WithFields(logger.Fields{"contract_code": code}).Warn("failed to export parquet archive")
			}
		}
		if w.mirror != nil {
			archived, found, err := w.store.Load(code)
			if err != nil || !found {
				log.WithError(err).WithFields(logger.Fields{"contract_code": code}).Warn("failed to reload archive for mirroring")
				continue
			}
			if err := w.mirror.MirrorContract(ctx, code, archived); err != nil {
				log.WithError(err).WithFields(logger.Fields{"contract_code": code}).Warn("failed to mirror archive to s3")
			}
		}
	}

	return updated
}

// summarize writes the console summary for each contract archive and collects
// the data the HTML report is built from. Contracts without archived
// observations are skipped.
func (w *workflow) summarize(contracts []string, metadata map[string]models.ReportMetadata) []report.ContractData {
	log := w.entry()
	data := make([]report.ContractData, 0, len(contracts))

	for _, code := range contracts {
		series, found, err := w.store.Load(code)
		if err != nil {
			log.WithError(err).WithFields(logger.Fields{"contract_code": code}).Error("failed to load archive")
			continue
		}
		if !found || len(series) == 0 {
			log.WithFields(logger.Fields{"contract_code": code}).Warn("no archived data for contract")
			continue
		}

		if err := analyzer.New(series).WriteSummary(os.Stdout); err != nil {
			log.WithError(err).WithFields(logger.Fields{"contract_code": code}).Warn("failed to write contract summary")
		}

		data = append(data, report.ContractData{
			Code:     code,
			Series:   series,
			Metadata: metadata[code],
		})
	}

	return data
}

// publish renders the tabbed HTML report and refreshes the report index.
func (w *workflow) publish(data []report.ContractData, contracts []string) {
	log := w.entry()

	if len(data) == 0 {
		log.Warn("no archived data to report")
		return
	}

	path, err := w.generator.Generate(data)
	if err != nil {
		log.WithError(err).Error("failed to generate html report")
		return
	}
	log.WithFields(logger.Fields{"report": path}).Info("html report published")

	if err := w.generator.WriteIndex(contracts); err != nil {
		log.WithError(err).Error("failed to update report index")
	}
}

// decodeWorkbook opens a report workbook and decodes every sheet. The
// metadata of the current week identifies which contract the file belongs to.
func decodeWorkbook(path string) (models.ReportMetadata, models.InstrumentSeries, error) {
	p, err := parser.Open(path)
	if err != nil {
		return models.ReportMetadata{}, nil, err
	}
	defer p.Close()

	meta, err := p.Metadata(parser.DefaultSheet)
	if err != nil {
		return models.ReportMetadata{}, nil, err
	}

	return meta, p.All(), nil
}

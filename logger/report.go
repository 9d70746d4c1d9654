package logger

import (
	"context"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
	gnet "github.com/shirou/gopsutil/v3/net"

	"github.com/aws/aws-sdk-go-v2/aws"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
)

type channelStat struct {
	messages int64
	bytes    int64
}

var (
	errorsFetch   int64
	errorsDecode  int64
	warnsFetch    int64
	warnsDecode   int64
	downloads     int64
	decodedSheets int64
	archiveWrites int64
	s3Writes      int64
	channels      sync.Map // map[string]*channelStat
)

func recordWarn(component string) {
	if strings.Contains(component, "fetch") {
		atomic.AddInt64(&warnsFetch, 1)
	} else if strings.Contains(component, "parser") {
		atomic.AddInt64(&warnsDecode, 1)
	}
}

func recordError(component string) {
	if strings.Contains(component, "fetch") {
		atomic.AddInt64(&errorsFetch, 1)
	} else if strings.Contains(component, "parser") {
		atomic.AddInt64(&errorsDecode, 1)
	}
}

// IncrementDownload counts one fetched report file of the given size.
func IncrementDownload(size int64) {
	atomic.AddInt64(&downloads, 1)
	recordChannel("report_download", int(size))
}

// IncrementDecodedSheet counts one successfully decoded report sheet.
func IncrementDecodedSheet() {
	atomic.AddInt64(&decodedSheets, 1)
}

// IncrementArchiveWrite counts one contract archive written to disk.
func IncrementArchiveWrite(size int64) {
	atomic.AddInt64(&archiveWrites, 1)
	recordChannel("archive_write", int(size))
}

// IncrementS3Write counts one object mirrored to S3.
func IncrementS3Write(size int64) {
	atomic.AddInt64(&s3Writes, 1)
	recordChannel("s3_mirror", int(size))
}

func RecordChannelMessage(name string, size int) {
	recordChannel(name, size)
}

func recordChannel(name string, size int) {
	v, _ := channels.LoadOrStore(name, &channelStat{})
	cs := v.(*channelStat)
	atomic.AddInt64(&cs.messages, 1)
	atomic.AddInt64(&cs.bytes, int64(size))
}

func startReport(ctx context.Context, log *Log, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		for {
			select {
			case <-ctx.Done():
				ticker.Stop()
				return
			case <-ticker.C:
				logReport(ctx, log)
			}
		}
	}()
}

// StartReport begins periodic logging of system and pipeline statistics.
func StartReport(ctx context.Context, log *Log, interval time.Duration) {
	startReport(ctx, log, interval)
}

func logReport(ctx context.Context, log *Log) {
	cpuPercent, _ := cpu.Percent(0, false)
	memStats, _ := mem.VirtualMemory()
	diskStats, _ := disk.Usage("/")
	netStats, _ := gnet.IOCounters(false)
	channelData := map[string]map[string]int64{}
	channels.Range(func(k, v any) bool {
		name := k.(string)
		cs := v.(*channelStat)
		channelData[name] = map[string]int64{
			"messages": atomic.LoadInt64(&cs.messages),
			"bytes":    atomic.LoadInt64(&cs.bytes),
		}
		return true
	})

	cpuPct := 0.0
	if len(cpuPercent) > 0 {
		cpuPct = cpuPercent[0]
	}

	bytesSent := uint64(0)
	bytesRecv := uint64(0)
	if len(netStats) > 0 {
		bytesSent = netStats[0].BytesSent
		bytesRecv = netStats[0].BytesRecv
	}

	fields := Fields{
		"errors_fetch":   atomic.LoadInt64(&errorsFetch),
		"errors_decode":  atomic.LoadInt64(&errorsDecode),
		"warns_fetch":    atomic.LoadInt64(&warnsFetch),
		"warns_decode":   atomic.LoadInt64(&warnsDecode),
		"downloads":      atomic.LoadInt64(&downloads),
		"decoded_sheets": atomic.LoadInt64(&decodedSheets),
		"archive_writes": atomic.LoadInt64(&archiveWrites),
		"s3_writes":      atomic.LoadInt64(&s3Writes),
		"goroutines":     runtime.NumGoroutine(),
		"cpu_percent":    cpuPct,
		"memory_mb":      int64(memStats.Used) / 1024 / 1024,
		"disk_mb":        int64(diskStats.Used) / 1024 / 1024,
		"channels":       channelData,
		"net_bytes_sent": int64(bytesSent),
		"net_bytes_recv": int64(bytesRecv),
	}

	log.WithComponent("report").WithFields(fields).Info("runtime report")

	var data []cwtypes.MetricDatum
	data = append(data,
		cwtypes.MetricDatum{MetricName: aws.String("Cot-CPUPercent"), Unit: cwtypes.StandardUnitPercent, Value: aws.Float64(cpuPct)},
		cwtypes.MetricDatum{MetricName: aws.String("Cot-MemoryMB"), Unit: cwtypes.StandardUnitMegabytes, Value: aws.Float64(float64(memStats.Used) / 1024 / 1024)},
		cwtypes.MetricDatum{MetricName: aws.String("Cot-DiskMB"), Unit: cwtypes.StandardUnitMegabytes, Value: aws.Float64(float64(diskStats.Used) / 1024 / 1024)},
		cwtypes.MetricDatum{MetricName: aws.String("Cot-ErrorsFetch"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(fields["errors_fetch"].(int64)))},
		cwtypes.MetricDatum{MetricName: aws.String("Cot-ErrorsDecode"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(fields["errors_decode"].(int64)))},
		cwtypes.MetricDatum{MetricName: aws.String("Cot-WarnsFetch"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(fields["warns_fetch"].(int64)))},
		cwtypes.MetricDatum{MetricName: aws.String("Cot-WarnsDecode"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(fields["warns_decode"].(int64)))},
		cwtypes.MetricDatum{MetricName: aws.String("Cot-Downloads"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(fields["downloads"].(int64)))},
		cwtypes.MetricDatum{MetricName: aws.String("Cot-DecodedSheets"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(fields["decoded_sheets"].(int64)))},
		cwtypes.MetricDatum{MetricName: aws.String("Cot-ArchiveWrites"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(fields["archive_writes"].(int64)))},
		cwtypes.MetricDatum{MetricName: aws.String("Cot-S3Writes"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(fields["s3_writes"].(int64)))},
		cwtypes.MetricDatum{MetricName: aws.String("Cot-NetBytesSent"), Unit: cwtypes.StandardUnitBytes, Value: aws.Float64(float64(bytesSent))},
		cwtypes.MetricDatum{MetricName: aws.String("Cot-NetBytesRecv"), Unit: cwtypes.StandardUnitBytes, Value: aws.Float64(float64(bytesRecv))},
	)

	for name, stats := range channelData {
		data = append(data,
			cwtypes.MetricDatum{
				MetricName: aws.String("Cot-ChannelMessages"),
				Unit:       cwtypes.StandardUnitCount,
				Dimensions: []cwtypes.Dimension{{Name: aws.String("Channel"), Value: aws.String(name)}},
				Value:      aws.Float64(float64(stats["messages"])),
			},
			cwtypes.MetricDatum{
				MetricName: aws.String("Cot-ChannelBytes"),
				Unit:       cwtypes.StandardUnitBytes,
				Dimensions: []cwtypes.Dimension{{Name: aws.String("Channel"), Value: aws.String(name)}},
				Value:      aws.Float64(float64(stats["bytes"])),
			},
		)
	}

	publishMetrics(ctx, data)
}

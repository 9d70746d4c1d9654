package logger

import (
	"io"
	"os"
	"sync/atomic"
	"testing"
)

func TestWithComponent(t *testing.T) {
	log := Logger()
	entry := log.WithComponent("test")
	if v, ok := entry.Entry.Data["component"]; !ok || v != "test" {
		t.Fatalf("component field missing: %v", entry.Entry.Data)
	}
}

func TestConfigureInvalidLevel(t *testing.T) {
	// Ensure environment variables do not override the provided level
	t.Setenv("LOG_LEVEL", "")

	log := Logger()
	if err := log.Configure("invalid", "json", "stdout", 0); err == nil {
		t.Fatalf("expected error for invalid level")
	}
}

func TestWithEnv(t *testing.T) {
	os.Setenv("FOO", "bar")
	log := Logger()
	entry := log.WithEnv("FOO")
	if v, ok := entry.Entry.Data["FOO"]; !ok || v != "bar" {
		t.Fatalf("env field not set: %v", entry.Entry.Data)
	}
}

func TestRecordChannel(t *testing.T) {
	RecordChannelMessage("test_channel", 100)
	RecordChannelMessage("test_channel", 50)

	v, ok := channels.Load("test_channel")
	if !ok {
		t.Fatal("channel stats not recorded")
	}
	cs := v.(*channelStat)
	if got := atomic.LoadInt64(&cs.messages); got != 2 {
		t.Errorf("messages = %d, want 2", got)
	}
	if got := atomic.LoadInt64(&cs.bytes); got != 150 {
		t.Errorf("bytes = %d, want 150", got)
	}
}

func TestWarnCounterRouting(t *testing.T) {
	log := Logger()
	log.SetOutput(io.Discard)

	before := atomic.LoadInt64(&warnsFetch)
	log.WithComponent("fetch").Warn("boom")
	if got := atomic.LoadInt64(&warnsFetch); got != before+1 {
		t.Errorf("fetch warns = %d, want %d", got, before+1)
	}

	beforeDecode := atomic.LoadInt64(&warnsDecode)
	log.WithComponent("parser").Warn("boom")
	if got := atomic.LoadInt64(&warnsDecode); got != beforeDecode+1 {
		t.Errorf("decode warns = %d, want %d", got, beforeDecode+1)
	}
}

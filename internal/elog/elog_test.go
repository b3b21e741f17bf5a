package elog

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestSubscribeReceivesEmittedEntries(t *testing.T) {
	l := New()
	ctx, cancelCtx := context.WithCancel(context.Background())
	defer cancelCtx()
	var wg sync.WaitGroup
	l.Start(ctx, &wg)

	entries, cancel := l.Subscribe()
	defer cancel()

	l.Info().Src("project").Track("t1").Msgf("added clip %d", 1)

	select {
	case e := <-entries:
		if e.Msg != "added clip 1" {
			t.Fatalf("unexpected message: %q", e.Msg)
		}
		if e.Level != LevelInfo || e.Src != "project" || e.Track != "t1" {
			t.Fatalf("unexpected entry: %+v", e)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for log entry")
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	l := New()
	ctx, cancelCtx := context.WithCancel(context.Background())
	defer cancelCtx()
	var wg sync.WaitGroup
	l.Start(ctx, &wg)

	entries, cancel := l.Subscribe()
	cancel()

	l.Warn().Msg("should not be delivered")

	select {
	case _, ok := <-entries:
		if ok {
			t.Fatal("expected no entries after unsubscribe")
		}
	case <-time.After(50 * time.Millisecond):
	}
}

package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/newsdex/internal/domain"
	"github.com/kailas-cloud/newsdex/internal/repository/ingest"
)

func waitForAcks(t *testing.T, ingestor *mockIngestor, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if len(ingestor.ackedIDs()) >= want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d acks, got %v", want, ingestor.ackedIDs())
}

func runService(t *testing.T, svc *Service, ingestor *mockIngestor) context.CancelFunc {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := svc.Run(ctx, ingestor, 2, 4); err != nil && !errors.Is(err, context.Canceled) {
			t.Errorf("Run returned %v", err)
		}
	}()
	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Error("Run did not stop after cancel")
		}
	})
	return cancel
}

func TestRun_ProcessesAndAcks(t *testing.T) {
	sentiment := &fakeAnalyzer{name: "sentiment", confidence: 0.8}
	sink := newMockSink()
	svc := newTestService(&mockIndex{}, newMockCache(), sink, specsOf(sentiment))

	ingestor := newMockIngestor(4)
	ingestor.batches <- []ingest.Message{
		{EntryID: "1-0", Item: testItem(t, "item-1")},
		{EntryID: "1-1", Item: testItem(t, "item-2")},
	}

	runService(t, svc, ingestor)
	waitForAcks(t, ingestor, 2)

	if sink.writes != 2 {
		t.Errorf("expected 2 records written, got %d", sink.writes)
	}
}

func TestRun_MalformedEntryAckedAndDropped(t *testing.T) {
	sentiment := &fakeAnalyzer{name: "sentiment", confidence: 0.8}
	svc := newTestService(&mockIndex{}, newMockCache(), newMockSink(), specsOf(sentiment))

	ingestor := newMockIngestor(4)
	ingestor.batches <- []ingest.Message{
		{EntryID: "1-0", ParseErr: errors.New("missing id")},
	}

	runService(t, svc, ingestor)
	waitForAcks(t, ingestor, 1)

	if sentiment.calls.Load() != 0 {
		t.Error("malformed entries must not be processed")
	}
}

func TestRun_TransientFailureLeavesEntryPending(t *testing.T) {
	sentiment := &fakeAnalyzer{name: "sentiment", confidence: 0.8}
	sink := newMockSink()
	sink.writeErr = errors.New("store down")
	svc := newTestService(&mockIndex{}, newMockCache(), sink, specsOf(sentiment))

	ingestor := newMockIngestor(4)
	ingestor.batches <- []ingest.Message{
		{EntryID: "1-0", Item: testItem(t, "item-1")},
	}

	runService(t, svc, ingestor)

	// Give the worker time to settle the item.
	time.Sleep(100 * time.Millisecond)
	if got := ingestor.ackedIDs(); len(got) != 0 {
		t.Errorf("transient failures must not ack, got %v", got)
	}
}

func TestRun_HardAnalysisFailureStillAcks(t *testing.T) {
	sentiment := &fakeAnalyzer{name: "sentiment", err: domain.ErrAnalyzerFailure}
	svc := newTestService(&mockIndex{}, newMockCache(), newMockSink(), specsOf(sentiment))

	ingestor := newMockIngestor(4)
	ingestor.batches <- []ingest.Message{
		{EntryID: "1-0", Item: testItem(t, "item-1")},
	}

	runService(t, svc, ingestor)
	// Retry budget exhausted: redelivering the same poison item forever
	// would not help, so the entry is acknowledged.
	waitForAcks(t, ingestor, 1)
}

func TestRun_RejectedItemAcks(t *testing.T) {
	svc := New(
		&mockFingerprinter{err: domain.ErrInsufficientContent},
		&mockIndex{}, newMockCache(), newMockSink(),
		specsOf(&fakeAnalyzer{name: "sentiment"}), zap.NewNop(),
	)

	ingestor := newMockIngestor(4)
	ingestor.batches <- []ingest.Message{
		{EntryID: "1-0", Item: testItem(t, "item-1")},
	}

	runService(t, svc, ingestor)
	waitForAcks(t, ingestor, 1)
}

func TestRun_InitFailure(t *testing.T) {
	svc := newTestService(&mockIndex{}, newMockCache(), newMockSink(), specsOf(&fakeAnalyzer{name: "sentiment"}))
	ingestor := newMockIngestor(1)
	ingestor.initErr = errors.New("group create failed")

	if err := svc.Run(context.Background(), ingestor, 1, 1); err == nil {
		t.Error("expected init failure to propagate")
	}
}

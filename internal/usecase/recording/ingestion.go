package recording

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/johnquangdev/meeting-recorder/internal/domain/entities"
	"github.com/johnquangdev/meeting-recorder/internal/domain/repositories"
	"github.com/johnquangdev/meeting-recorder/internal/infrastructure/metrics"
)

// ingestQueueSize bounds how far the mixing layer may run ahead of checkpoint encoding
const ingestQueueSize = 1024

// ingestMessage is either a chunk or the Stop marker. Stop travels the same
// channel as data, so every chunk enqueued before it is processed first.
type ingestMessage struct {
	chunk entities.AudioChunk
	stop  bool
}

type chunkAdder interface {
	AddChunk(ctx context.Context, chunk entities.AudioChunk) error
}

// ChunkSender is the ingestion endpoint handed to the mixing pipeline.
// The channel behind it is never closed: once the loop exits, Send drops
// the chunk and returns false instead of panicking.
type ChunkSender struct {
	ch      chan<- ingestMessage
	done    <-chan struct{}
	dropped *atomic.Int64
	metrics *metrics.Metrics
}

var _ repositories.ChunkSink = (*ChunkSender)(nil)

func (s *ChunkSender) Send(chunk entities.AudioChunk) bool {
	select {
	case <-s.done:
		s.drop()
		return false
	default:
	}

	select {
	case s.ch <- ingestMessage{chunk: chunk}:
		return true
	case <-s.done:
		s.drop()
		return false
	}
}

func (s *ChunkSender) drop() {
	s.dropped.Add(1)
	s.metrics.ChunkDropped()
}

// ingestion drains the channel into the saver on its own goroutine
type ingestion struct {
	ch        chan ingestMessage
	done      chan struct{}
	processed atomic.Int64
	dropped   atomic.Int64
	stopSent  atomic.Bool
}

func startIngestion(ctx context.Context, saver chunkAdder, onError func(error), logger *zap.Logger, m *metrics.Metrics) (*ingestion, *ChunkSender) {
	in := &ingestion{
		ch:   make(chan ingestMessage, ingestQueueSize),
		done: make(chan struct{}),
	}
	go in.run(ctx, saver, onError, logger, m)

	return in, &ChunkSender{ch: in.ch, done: in.done, dropped: &in.dropped, metrics: m}
}

func (in *ingestion) run(ctx context.Context, saver chunkAdder, onError func(error), logger *zap.Logger, m *metrics.Metrics) {
	defer close(in.done)

	if logger != nil {
		logger.Info("🎧 Accumulation loop started")
	}
	for {
		msg := <-in.ch
		if msg.stop {
			break
		}
		if err := saver.AddChunk(ctx, msg.chunk); err != nil {
			if logger != nil {
				logger.Error("❌ Failed to add chunk to incremental saver", zap.Error(err))
			}
			if onError != nil {
				onError(err)
			}
		}
		in.processed.Add(1)
		m.ChunkIngested()
	}
	if logger != nil {
		logger.Info("🛑 Accumulation loop ended", zap.Int64("chunks", in.processed.Load()))
	}
}

// stop enqueues the Stop marker behind any queued chunks and waits for the
// loop to acknowledge it. It returns false if timeout elapsed first; the
// marker is then still delivered in the background so the loop always exits.
func (in *ingestion) stop(timeout time.Duration) bool {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	if in.stopSent.CompareAndSwap(false, true) {
		select {
		case in.ch <- ingestMessage{stop: true}:
		case <-in.done:
			return true
		case <-timer.C:
			go in.sendStop()
			return false
		}
	}

	select {
	case <-in.done:
		return true
	case <-timer.C:
		return false
	}
}

func (in *ingestion) sendStop() {
	select {
	case in.ch <- ingestMessage{stop: true}:
	case <-in.done:
	}
}

// pending is the number of messages still queued
func (in *ingestion) pending() int {
	return len(in.ch)
}

func (in *ingestion) stopped() bool {
	select {
	case <-in.done:
		return true
	default:
		return false
	}
}

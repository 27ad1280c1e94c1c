package pubsub

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// watchLoop 实现规格 §4.E：建连后先通过 getDirectory 做一次全量引导，
// 随后以引导时的修订号为起点持续 watch，把变更喂给 discoveryRegistry。
//
// 连接丢失（watch 返回错误）时清空已发现的全部端点并退避重连；
// 重连后的引导会重新产出一份完整快照，因此无需记录"丢失了哪些"。
type watchLoop struct {
	client   Client
	rootPath string
	registry *discoveryRegistry
	log      *zap.Logger
	backoff  time.Duration
	maxRetry uint32

	stopCh chan struct{}
	doneCh chan struct{}
}

func newWatchLoop(client Client, rootPath string, registry *discoveryRegistry, log *zap.Logger, backoff time.Duration, maxRetry uint32) *watchLoop {
	return &watchLoop{
		client:   client,
		rootPath: rootPath,
		registry: registry,
		log:      log,
		backoff:  backoff,
		maxRetry: maxRetry,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// run 在调用方自己的 goroutine 中执行循环，调用方必须单独 go 出去。
func (w *watchLoop) run(ctx context.Context) {
	defer close(w.doneCh)

	var attempt uint32
	for {
		select {
		case <-w.stopCh:
			return
		case <-ctx.Done():
			return
		default:
		}

		index, err := w.bootstrap(ctx)
		if err != nil {
			if w.log != nil {
				w.log.Warn("discovery bootstrap failed", zap.Error(err))
			}
			if !w.sleepBackoff(&attempt) {
				return
			}
			continue
		}
		attempt = 0

		err = w.streamChanges(ctx, index)
		if err != nil {
			if w.log != nil {
				w.log.Warn("discovery watch connection lost", zap.Error(err))
			}
			w.registry.purgeAll()
			if !w.sleepBackoff(&attempt) {
				return
			}
			continue
		}

		// streamChanges only returns nil when asked to stop.
		return
	}
}

// bootstrap 枚举当前已存在的端点，返回用作 watch 起点的修订号。
func (w *watchLoop) bootstrap(ctx context.Context) (int64, error) {
	return w.client.GetDirectory(ctx, w.rootPath, func(key, value string) {
		ep, err := Decode([]byte(value))
		if err != nil {
			if w.log != nil {
				w.log.Warn("skipping malformed endpoint during bootstrap", zap.String("key", key), zap.Error(err))
			}
			return
		}
		w.registry.ingest(key, ep)
	})
}

// streamChanges 消费一次 watch 会话直到连接失败或被要求停止。
func (w *watchLoop) streamChanges(ctx context.Context, fromIndex int64) error {
	stream, err := w.client.Watch(ctx, w.rootPath, fromIndex)
	if err != nil {
		return err
	}
	defer stream.Close()

	for {
		select {
		case <-w.stopCh:
			return nil
		case <-ctx.Done():
			return nil
		default:
		}

		event, err := stream.Next(ctx)
		if err != nil {
			return err
		}
		if event == nil {
			// Timeout：本轮无变更，继续等待下一条。
			continue
		}

		switch event.Action {
		case ActionCreate, ActionSet, ActionUpdate:
			ep, decodeErr := Decode(event.Value)
			if decodeErr != nil {
				if w.log != nil {
					w.log.Warn("skipping malformed endpoint in watch event", zap.String("key", event.Key), zap.Error(decodeErr))
				}
				continue
			}
			w.registry.ingest(event.Key, ep)
		case ActionDelete, ActionExpire:
			w.registry.retract(event.Key)
		default:
			// Get/Other 不携带可操作的状态变化。
		}
	}
}

// sleepBackoff 退避等待后返回 true；若期间被要求停止或超过 maxRetry 则返回 false。
func (w *watchLoop) sleepBackoff(attempt *uint32) bool {
	*attempt++
	if w.maxRetry > 0 && *attempt > w.maxRetry {
		return false
	}
	timer := time.NewTimer(w.backoff)
	defer timer.Stop()
	select {
	case <-w.stopCh:
		return false
	case <-timer.C:
		return true
	}
}

// stop 请求循环退出，并阻塞直到其 goroutine 返回。
func (w *watchLoop) stop() {
	close(w.stopCh)
	<-w.doneCh
}

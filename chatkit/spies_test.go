package chatkit

import (
	"sync"
	"time"
)

// callLog records collaborator calls in order so tests can assert sequencing.
type callLog struct {
	mu    sync.Mutex
	calls []string
}

func (l *callLog) add(name string) {
	l.mu.Lock()
	l.calls = append(l.calls, name)
	l.mu.Unlock()
}

func (l *callLog) snapshot() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.calls))
	copy(out, l.calls)
	return out
}

func (l *callLog) count(name string) int {
	n := 0
	for _, c := range l.snapshot() {
		if c == name {
			n++
		}
	}
	return n
}

// indexOf returns the position of the nth occurrence of name, or -1.
func (l *callLog) indexOf(name string) int {
	for i, c := range l.snapshot() {
		if c == name {
			return i
		}
	}
	return -1
}

// spyTransport simulates the websocket transport. When connectionID is set,
// Connect synchronously walks the status stream through connecting and
// connected, the way the real transport does asynchronously.
type spyTransport struct {
	log          *callLog
	connectionID string
	failWith     error

	mu              sync.Mutex
	endpoint        string
	onStatus        func(ConnectionStatus)
	connectCalls    int
	disconnectCalls int
	lastSource      DisconnectSource
}

func (t *spyTransport) Connect() {
	t.mu.Lock()
	t.connectCalls++
	fn := t.onStatus
	t.mu.Unlock()
	t.log.add("transport.connect")
	if fn == nil {
		return
	}
	fn(ConnectionStatus{Code: StatusConnecting})
	if t.failWith != nil {
		fn(StatusDisconnectedBy(SourceServer, t.failWith))
		return
	}
	if t.connectionID != "" {
		fn(StatusConnectedWith(t.connectionID))
	}
}

func (t *spyTransport) Disconnect(source DisconnectSource, completion func()) {
	t.mu.Lock()
	t.disconnectCalls++
	t.lastSource = source
	t.mu.Unlock()
	t.log.add("transport.disconnect")
	completion()
}

func (t *spyTransport) SetConnectEndpoint(endpoint string) {
	t.mu.Lock()
	t.endpoint = endpoint
	t.mu.Unlock()
}

func (t *spyTransport) ConnectEndpoint() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.endpoint
}

func (t *spyTransport) SetOnStatusChange(fn func(ConnectionStatus)) {
	t.mu.Lock()
	t.onStatus = fn
	t.mu.Unlock()
}

func (t *spyTransport) connects() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.connectCalls
}

func (t *spyTransport) disconnects() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.disconnectCalls
}

type spyQueue struct {
	log *callLog
}

func (q *spyQueue) FlushPendingRequests() { q.log.add("queue.flush") }

type spySync struct {
	log *callLog
}

func (s *spySync) CancelRecoveryFlow() { s.log.add("sync.cancel") }

type spyStore struct {
	log *callLog
	err error
}

func (s *spyStore) WipeAll(completion func(error)) {
	s.log.add("store.wipe")
	completion(s.err)
}

type spyWorkers struct {
	log *callLog

	mu    sync.Mutex
	count int
}

func (w *spyWorkers) CreateWorkers() {
	w.log.add("workers.create")
	w.mu.Lock()
	w.count = 1
	w.mu.Unlock()
}

func (w *spyWorkers) RemoveAllWorkers() {
	w.log.add("workers.remove")
	w.mu.Lock()
	w.count = 0
	w.mu.Unlock()
}

func (w *spyWorkers) WorkerCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.count
}

// testHarness bundles a client wired to spies.
type testHarness struct {
	client    *Client
	log       *callLog
	transport *spyTransport
	queue     *spyQueue
	syncMgr   *spySync
	store     *spyStore
	workers   *spyWorkers
}

func newHarness(mode Mode, mutate ...func(*testHarness)) *testHarness {
	log := &callLog{}
	h := &testHarness{
		log:       log,
		transport: &spyTransport{log: log, connectionID: "conn-1"},
		queue:     &spyQueue{log: log},
		syncMgr:   &spySync{log: log},
		store:     &spyStore{log: log},
		workers:   &spyWorkers{log: log},
	}
	for _, m := range mutate {
		m(h)
	}
	cfg := DefaultConfig()
	cfg.Mode = mode
	cfg.WebsocketURL = "wss://chat.test/ws"
	h.client = NewClient(cfg,
		WithTransport(h.transport),
		WithRequestQueue(h.queue),
		WithSyncManager(h.syncMgr),
		WithStore(h.store),
		WithWorkerFactory(h.workers),
	)
	return h
}

// wait reads one error from ch or fails the test via the returned flag.
func wait(ch <-chan error) (error, bool) {
	select {
	case err := <-ch:
		return err, true
	case <-time.After(2 * time.Second):
		return nil, false
	}
}

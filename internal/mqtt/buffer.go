package mqtt

import "go.uber.org/zap"

// bufferedMsg is a formatted message waiting for a broker connection.
type bufferedMsg struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// offlineQueue keeps the newest messages published while the broker is
// unreachable. When full, the oldest message is replaced. The caller must
// synchronize access.
type offlineQueue struct {
	msgs  []bufferedMsg
	start int // index of the oldest message
	n     int

	dropped uint64 // since the last take
	warned  bool
	log     *zap.Logger
}

func newOfflineQueue(capacity int, log *zap.Logger) *offlineQueue {
	if capacity < 1 {
		capacity = 1
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &offlineQueue{msgs: make([]bufferedMsg, capacity), log: log}
}

func (q *offlineQueue) add(msg bufferedMsg) {
	size := len(q.msgs)
	if q.n < size {
		q.msgs[(q.start+q.n)%size] = msg
		q.n++
		return
	}

	if !q.warned {
		q.log.Warn("mqtt offline queue full, dropping oldest", zap.Int("capacity", size))
		q.warned = true
	}
	q.dropped++
	q.msgs[q.start] = msg
	q.start = (q.start + 1) % size
}

// take empties the queue and returns its messages oldest first, together
// with the number of messages lost to overflow since the previous take.
func (q *offlineQueue) take() ([]bufferedMsg, uint64) {
	dropped := q.dropped
	q.dropped = 0
	q.warned = false
	if q.n == 0 {
		return nil, dropped
	}

	out := make([]bufferedMsg, 0, q.n)
	for i := 0; i < q.n; i++ {
		j := (q.start + i) % len(q.msgs)
		out = append(out, q.msgs[j])
		q.msgs[j] = bufferedMsg{}
	}
	q.start, q.n = 0, 0
	return out, dropped
}

func (q *offlineQueue) len() int {
	return q.n
}

package group

// Observer receives side-channel notifications about channel engine
// activity, for the ambient metrics/audit/logging stack to hook into
// without the engine itself depending on Prometheus, logrus, or the
// audit log. All methods must be safe to call from multiple goroutines
// and must not block the caller for long; a nil Observer is always
// valid (see noopObserver).
type Observer interface {
	OnSend(correspondentIndex int, nonce uint32, chunkCount int)
	OnReceive(correspondentIndex int, nonce uint32, blockTimestampMs uint64)
	OnAuthFailure(correspondentIndex int, nonce uint32)
	OnNonceDiscoveryProbe(correspondentIndex int, probes int)
}

type noopObserver struct{}

func (noopObserver) OnSend(int, uint32, int)        {}
func (noopObserver) OnReceive(int, uint32, uint64)  {}
func (noopObserver) OnAuthFailure(int, uint32)      {}
func (noopObserver) OnNonceDiscoveryProbe(int, int) {}

var defaultObserver Observer = noopObserver{}

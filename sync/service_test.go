package sync

import (
	"testing"

	"github.com/johnyfernandes/shlf-sync/model"
	"github.com/johnyfernandes/shlf-sync/worker"
)

type stubProber struct {
	reachable bool
}

func (p *stubProber) Reachable() bool {
	return p.reachable
}

type stubPool struct{}

func (stubPool) Push(worker.Outbound) {}

func TestPeerStatus(t *testing.T) {
	unpaired := NewService(nil, nil, nil, model.DevicePhone)
	if status := unpaired.PeerStatus(); status.Paired || status.Reachable {
		t.Fatalf("Unpaired service must report nothing, got %+v", status)
	}

	prober := &stubProber{reachable: true}
	paired := NewService(nil, stubPool{}, prober, model.DevicePhone)
	status := paired.PeerStatus()
	if !status.Paired || !status.Reachable {
		t.Fatalf("Expected paired and reachable, got %+v", status)
	}

	prober.reachable = false
	if status := paired.PeerStatus(); status.Reachable {
		t.Fatal("Reachable must reflect the live probe")
	}
}

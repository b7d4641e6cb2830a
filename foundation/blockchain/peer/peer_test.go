package peer_test

import (
	"testing"

	"github.com/ardanlabs/utxochain/foundation/blockchain/peer"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func Test_Set(t *testing.T) {
	t.Log("Given the need to track connected peers.")
	{
		ps := peer.NewSet()
		peers := []peer.Peer{peer.New("host3:8080"), peer.New("host1:8080"), peer.New("host2:8080")}

		for _, p := range peers {
			if !ps.Add(p) {
				t.Fatalf("\t%s\tShould be able to add peer %s.", failed, p)
			}
		}
		t.Logf("\t%s\tShould be able to add peers.", success)

		if ps.Add(peers[0]) {
			t.Fatalf("\t%s\tShould not add the same peer twice.", failed)
		}
		t.Logf("\t%s\tShould not add the same peer twice.", success)

		list := ps.List()
		if len(list) != 3 || list[0].Host != "host1:8080" || list[2].Host != "host3:8080" {
			t.Logf("\t\tgot: %v", list)
			t.Fatalf("\t%s\tShould list the peers ordered by host.", failed)
		}
		t.Logf("\t%s\tShould list the peers ordered by host.", success)

		if since, exists := ps.Since(peers[1]); !exists || since.IsZero() {
			t.Fatalf("\t%s\tShould know when a peer connected.", failed)
		}
		t.Logf("\t%s\tShould know when a peer connected.", success)

		ps.Remove(peers[0])
		if ps.Contains(peers[0]) || ps.Len() != 2 {
			t.Fatalf("\t%s\tShould be able to remove a peer.", failed)
		}
		t.Logf("\t%s\tShould be able to remove a peer.", success)
	}
}

func Test_Range(t *testing.T) {
	r := peer.Range{Host: "localhost", MinPort: 8080, MaxPort: 8089}

	peers := r.Candidates(8083)
	if len(peers) != 9 {
		t.Fatalf("Should get nine candidates, got %d.", len(peers))
	}

	for _, p := range peers {
		if p == peer.NewFromPort("localhost", 8083) {
			t.Fatalf("Should not include the node itself.")
		}
	}

	if peers[0].Host != "localhost:8080" {
		t.Fatalf("Should start at the lowest port, got %s.", peers[0].Host)
	}

	if !r.Contains(8089) || r.Contains(8090) {
		t.Fatalf("Should know the bounds of the range.")
	}
}

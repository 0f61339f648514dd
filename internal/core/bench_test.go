package core

import (
	"fmt"
	"testing"
)

func benchmarkBroadcast(b *testing.B, recipients int) {
	hub := NewHub(nil)

	clients := make([]*Client, 0, recipients)
	for i := 0; i < recipients; i++ {
		c := NewClient(fmt.Sprintf("c%d", i), fmt.Sprintf("u%d", i), "client")
		hub.Join("bench", c)
		clients = append(clients, c)
	}

	// Drain recipients to avoid channel backpressure skewing the numbers.
	done := make(chan struct{})
	for _, c := range clients {
		go func(cl *Client) {
			for {
				select {
				case <-cl.Events:
				case <-done:
					return
				}
			}
		}(c)
	}
	defer close(done)

	ev := &Event{Kind: EventUserTyping, ToyID: "bench", Username: "someone"}

	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		hub.Broadcast("bench", ev)
	}
}

func BenchmarkBroadcast10(b *testing.B)  { benchmarkBroadcast(b, 10) }
func BenchmarkBroadcast100(b *testing.B) { benchmarkBroadcast(b, 100) }

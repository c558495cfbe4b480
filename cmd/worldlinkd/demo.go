package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/opd-ai/worldlink/pkg/protocol"
	"github.com/opd-ai/worldlink/pkg/sync"
	"github.com/opd-ai/worldlink/pkg/transport"
	"github.com/opd-ai/worldlink/pkg/worldstate"
)

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Run a loopback producer/consumer pair over an in-memory transport",
	RunE:  runDemo,
}

func runDemo(cmd *cobra.Command, args []string) error {
	a, b := transport.NewMemoryTransportPair()

	producerCfg := sync.DefaultConfig()
	producerCfg.Mode = sync.ModeDelta
	producer := sync.New(a, producerCfg)
	consumer := sync.New(b, sync.DefaultConfig())

	snapshot := demoSnapshot(0, 0)
	if err := producer.SendSnapshot(snapshot); err != nil {
		return fmt.Errorf("send initial snapshot: %w", err)
	}
	ev, err := consumer.Receive()
	if err != nil {
		return fmt.Errorf("receive initial snapshot: %w", err)
	}
	fmt.Printf("consumer received %v with %d entities\n", ev.Kind, len(ev.Snapshot.Entities))

	for step := 1; step <= 5; step++ {
		snapshot = demoSnapshot(float64(step)*1.5, float64(step))
		if err := producer.SendDelta(snapshot); err != nil {
			return fmt.Errorf("send delta %d: %w", step, err)
		}
		ev, err := consumer.Receive()
		if err != nil {
			return fmt.Errorf("receive delta %d: %w", step, err)
		}
		if ev == nil {
			fmt.Printf("step %d: no changes\n", step)
			continue
		}
		fmt.Printf("step %d: %v with %d changes\n", step, ev.Kind, len(ev.Delta.Changes))
		time.Sleep(10 * time.Millisecond)
	}

	return nil
}

func demoSnapshot(x, ts float64) worldstate.WorldSnapshot {
	return worldstate.WorldSnapshot{
		Entities: []protocol.SerializedEntity{
			{
				ID: 1,
				Components: []protocol.SerializedComponent{
					{
						ID: "Position",
						Data: protocol.StructuredData(map[protocol.FieldID]protocol.FieldValue{
							"x": protocol.F64Value(x),
							"y": protocol.F64Value(0),
						}),
					},
				},
			},
		},
		Timestamp: ts,
		Version:   "1.0.0",
	}
}

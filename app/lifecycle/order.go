// Copyright © 2025 NetherGamesMC. Licensed under the terms of a Business Source License 1.1

package lifecycle

import "strconv"

// OrderStart defines the order hooks are started.
type OrderStart int

// OrderStop defines the order hooks are stopped.
type OrderStop int

// Global ordering of start hooks.
const (
	StartAgent OrderStart = iota
	StartMonitoringAPI
	StartInput
)

// Global ordering of stop hooks; producers are stopped before the agent flushes.
const (
	StopInput OrderStop = iota
	StopMonitoringAPI
	StopAgent // Final flush of buffered lines.
)

var (
	startNames = map[OrderStart]string{
		StartAgent:         "Agent",
		StartMonitoringAPI: "MonitoringAPI",
		StartInput:         "Input",
	}
	stopNames = map[OrderStop]string{
		StopInput:         "Input",
		StopMonitoringAPI: "MonitoringAPI",
		StopAgent:         "Agent",
	}
)

func (i OrderStart) String() string {
	if name, ok := startNames[i]; ok {
		return name
	}

	return "OrderStart(" + strconv.Itoa(int(i)) + ")"
}

func (i OrderStop) String() string {
	if name, ok := stopNames[i]; ok {
		return name
	}

	return "OrderStop(" + strconv.Itoa(int(i)) + ")"
}

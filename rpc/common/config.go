package common

import (
	"fmt"
	"strconv"
	"strings"
)

// --------------------------------------------------------------------------
// World configuration
// --------------------------------------------------------------------------

// TransportType names a peer transport implementation
type TransportType string

const (
	TransportLocal TransportType = "local"
	TransportTCP   TransportType = "tcp"
	TransportUnix  TransportType = "unix"
)

// SocketConf holds socket settings shared by tcp and unix transports
type SocketConf struct {
	WriteBufferSize int
	ReadBufferSize  int
}

// TCPConf holds TCP specific socket settings
type TCPConf struct {
	TCPNoDelay      bool
	TCPKeepAliveSec int
	TCPLingerSec    int
}

// WorldConfig describes how this process joins the world of ranks
type WorldConfig struct {
	// Transport is the peer transport (local runs every rank as a goroutine)
	Transport TransportType
	// Serializer is the envelope encoding (binary, json, gob)
	Serializer string

	// Rank and Endpoints are used by the tcp and unix transports. Endpoints[i]
	// is the listen address of rank i; len(Endpoints) is the world size.
	Rank      int
	Endpoints []string
	// Workers is the world size of the local transport
	Workers int

	// TimeoutSecond bounds a single receive (0 = wait forever)
	TimeoutSecond int
	// RetryCount bounds dial attempts while peers start up
	RetryCount int

	SocketConf
	TCPConf

	// Logging configuration
	LogLevel string
}

// Size returns the number of ranks of the world
func (c *WorldConfig) Size() int {
	if c.Transport == TransportLocal {
		return c.Workers
	}
	return len(c.Endpoints)
}

// Validate checks the configuration for consistency
func (c *WorldConfig) Validate() error {
	switch c.Transport {
	case TransportLocal:
		if c.Workers < 1 {
			return fmt.Errorf("local transport needs at least one worker (got %d)", c.Workers)
		}
	case TransportTCP, TransportUnix:
		if len(c.Endpoints) == 0 {
			return fmt.Errorf("%s transport needs at least one endpoint", c.Transport)
		}
		if c.Rank < 0 || c.Rank >= len(c.Endpoints) {
			return fmt.Errorf("rank %d out of range for %d endpoints", c.Rank, len(c.Endpoints))
		}
	default:
		return fmt.Errorf("invalid transport %s", c.Transport)
	}
	return nil
}

// String returns a formatted string representation of the configuration
func (c *WorldConfig) String() string {
	var sb strings.Builder

	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	addSection("World")
	addField("Transport", string(c.Transport))
	addField("Serializer", c.Serializer)
	addField("Size", strconv.Itoa(c.Size()))
	addField("Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))

	if c.Transport != TransportLocal {
		addField("Rank", strconv.Itoa(c.Rank))
		addField("Retry Count", strconv.Itoa(c.RetryCount))

		addSection("Sockets")
		addField("Write Buffer", fmt.Sprintf("%d bytes", c.WriteBufferSize))
		addField("Read Buffer", fmt.Sprintf("%d bytes", c.ReadBufferSize))
		if c.Transport == TransportTCP {
			addField("TCP NoDelay", strconv.FormatBool(c.TCPNoDelay))
			addField("TCP KeepAlive", fmt.Sprintf("%d sec", c.TCPKeepAliveSec))
			addField("TCP Linger", fmt.Sprintf("%d sec", c.TCPLingerSec))
		}

		addSection("Endpoints")
		for i, endpoint := range c.Endpoints {
			addField(strconv.Itoa(i), endpoint)
		}
	}

	addSection("Logging")
	addField("Log Level", c.LogLevel)

	return sb.String()
}

// --------------------------------------------------------------------------
// Reshape configuration
// --------------------------------------------------------------------------

// Strategy selects how a snapshot is read or written
type Strategy string

const (
	StrategyParallel Strategy = "parallel"
	StrategySerial   Strategy = "serial"
)

// ParseStrategy converts a flag value to a Strategy
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(strings.ToLower(s)) {
	case StrategyParallel:
		return StrategyParallel, nil
	case StrategySerial:
		return StrategySerial, nil
	default:
		return "", fmt.Errorf("invalid strategy %q (expected parallel or serial)", s)
	}
}

// ReshapeConfig holds the parameters of one reshape run
type ReshapeConfig struct {
	InputDir      string
	OutputDir     string
	ReadStrategy  Strategy
	WriteStrategy Strategy
}

// String returns a formatted string representation of the configuration
func (c *ReshapeConfig) String() string {
	var sb strings.Builder

	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	addSection("Reshape")
	addField("Input Directory", c.InputDir)
	addField("Output Directory", c.OutputDir)
	addField("Read Strategy", string(c.ReadStrategy))
	addField("Write Strategy", string(c.WriteStrategy))

	return sb.String()
}

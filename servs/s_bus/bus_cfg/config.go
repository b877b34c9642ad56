// servs/s_bus/bus_cfg/config.go
package bus_cfg

type BusConfig struct {
	Enabled bool   `json:"enabled"` // Run the embedded NATS server
	Name    string `json:"name"`    // Client connection name
	Host    string `json:"host"`    // NATS bind host
	Port    int    `json:"port"`    // NATS bind port, -1 picks a random one
	URL     string `json:"url"`     // External server; skips the embedded one when set
}

// DefaultConfig keeps the bus off; the panel works without it.
func DefaultConfig() BusConfig {
	return BusConfig{
		Enabled: false,
		Name:    "srtmacro",
		Host:    "127.0.0.1",
		Port:    4222,
	}
}
